// Package roast holds the warning and roast message catalogs used when the
// AI coach is unavailable or disabled. The built-in lists can be replaced
// wholesale from a YAML file.
package roast

import (
	"fmt"
	"math/rand"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

// Built-in catalogs.
var (
	defaultWarnings = []string{
		"Running away again? 🏃",
		"Your future self is disappointed. 😤",
		"That's your 3rd escape. Seriously? 💀",
		"Procrastination won't finish this task.",
		"Every second you waste is XP lost.",
		"Get back to work. NOW. 🔥",
		"You were so close. Don't quit.",
		"The leaderboard doesn't care about your excuses.",
	}

	defaultRoasts = []string{
		"Congratulations, you played yourself. Again.",
		"Your procrastination has procrastination.",
		"Even your tasks are tired of waiting for you.",
		"Breaking news: Local person discovers new way to waste time.",
		"Your streak just died. It had so much potential.",
		"The 'later' you keep promising never comes, does it?",
		"If procrastination was a sport, you'd still find a way to put off training.",
		"Your to-do list just filed a missing person report on you.",
		"Plot twist: The deadline was yesterday.",
		"You've mastered the art of doing absolutely nothing productively.",
		"Your future self just sent a disappointed emoji.",
		"Task abandoned? That's on brand for you.",
		"The focus timer was rooting for you. It's crying now.",
		"Achievement unlocked: Professional Time Waster 🏆",
		"Even your avatar is embarrassed right now.",
		"Speed-running failure is still failure.",
		"Your productivity graph looks like a flatline. Fitting.",
		"I'd say 'try harder' but you'd need to try first.",
		"Your excuses have better work ethic than you.",
		"Somewhere, a deadline is laughing at you.",
	}
)

// Catalog is a message catalog with random selection.
type Catalog struct {
	mu       sync.Mutex
	warnings []string
	roasts   []string
	rng      *rand.Rand
}

// catalogFile is the YAML override shape. Either list may be omitted to keep
// the built-in one.
type catalogFile struct {
	Warnings []string `yaml:"warnings"`
	Roasts   []string `yaml:"roasts"`
}

// NewCatalog returns the built-in catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		warnings: defaultWarnings,
		roasts:   defaultRoasts,
		rng:      rand.New(rand.NewSource(rand.Int63())),
	}
}

// LoadCatalog reads a YAML override file on top of the built-in catalog. An
// empty path or a missing file yields the built-in catalog; a present but
// malformed file is an error.
func LoadCatalog(path string) (*Catalog, error) {
	c := NewCatalog()
	if path == "" {
		return c, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return c, nil
		}
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if len(file.Warnings) > 0 {
		c.warnings = file.Warnings
	}
	if len(file.Roasts) > 0 {
		c.roasts = file.Roasts
	}
	return c, nil
}

// RandomRoast picks one roast message.
func (c *Catalog) RandomRoast() string {
	return c.pick(c.roasts)
}

// RandomWarning picks one warning message.
func (c *Catalog) RandomWarning() string {
	return c.pick(c.warnings)
}

// Warnings returns the full warning list, for clients that cycle through it.
func (c *Catalog) Warnings() []string {
	out := make([]string, len(c.warnings))
	copy(out, c.warnings)
	return out
}

func (c *Catalog) pick(list []string) string {
	if len(list) == 0 {
		return ""
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return list[c.rng.Intn(len(list))]
}
