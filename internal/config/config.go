// Package config provides configuration management for procrastino.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	json "github.com/goccy/go-json"
)

// Defaults.
const (
	DefaultPort      = 3000
	DefaultDBDriver  = "sqlite"
	DefaultAIBaseURL = "https://api.openai.com/v1"
	DefaultAIModel   = "gpt-4o-mini"
)

// Config holds the daemon configuration. Values come from
// ~/.procrastino/settings.json and can be overridden per-key with environment
// variables of the same name.
type Config struct {
	Port     int
	DBDriver string // "sqlite" or "postgres"
	PGDSN    string
	MaxConns int

	RedisAddr       string
	CacheTTLSeconds int

	AIBaseURL        string
	AIAPIKey         string
	AIModel          string
	AITimeoutSeconds int

	CatalogPath    string
	AllowedOrigins []string
	JWTSecret      string
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Port:             DefaultPort,
		DBDriver:         DefaultDBDriver,
		MaxConns:         4,
		CacheTTLSeconds:  30,
		AIBaseURL:        DefaultAIBaseURL,
		AIModel:          DefaultAIModel,
		AITimeoutSeconds: 30,
		CatalogPath:      CatalogPath(),
	}
}

// DataDir returns the data directory path (~/.procrastino).
func DataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".procrastino")
}

// DBPath returns the SQLite database path.
func DBPath() string {
	return filepath.Join(DataDir(), "procrastino.db")
}

// SettingsPath returns the settings file path.
func SettingsPath() string {
	return filepath.Join(DataDir(), "settings.json")
}

// CatalogPath returns the default roast catalog override path.
func CatalogPath() string {
	return filepath.Join(DataDir(), "catalog.yaml")
}

// EnsureDataDir creates the data directory if missing.
func EnsureDataDir() error {
	return os.MkdirAll(DataDir(), 0750)
}

// EnsureSettings creates an empty settings file if missing.
func EnsureSettings() error {
	path := SettingsPath()
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	return os.WriteFile(path, []byte("{}\n"), 0600)
}

// EnsureAll initializes the data directory and settings file.
func EnsureAll() error {
	if err := EnsureDataDir(); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	if err := EnsureSettings(); err != nil {
		return fmt.Errorf("create settings: %w", err)
	}
	return nil
}

// settings is the raw key-value view of settings.json. Keys use the same
// names as the corresponding environment variables.
type settings map[string]interface{}

func (s settings) str(key string) (string, bool) {
	if env := os.Getenv(key); env != "" {
		return env, true
	}
	if v, ok := s[key]; ok {
		if str, ok := v.(string); ok {
			return str, true
		}
	}
	return "", false
}

func (s settings) num(key string) (int, bool) {
	if env := os.Getenv(key); env != "" {
		if n, err := strconv.Atoi(env); err == nil {
			return n, true
		}
		return 0, false
	}
	if v, ok := s[key]; ok {
		if f, ok := v.(float64); ok {
			return int(f), true
		}
	}
	return 0, false
}

// Load reads settings.json and applies environment overrides. A missing or
// unparseable settings file yields the defaults.
func Load() (*Config, error) {
	cfg := Default()

	raw := settings{}
	if data, err := os.ReadFile(SettingsPath()); err == nil {
		// Unparseable settings fall back to defaults rather than failing.
		_ = json.Unmarshal(data, &raw)
	}

	if n, ok := raw.num("PROCRASTINO_PORT"); ok && n > 0 {
		cfg.Port = n
	}
	if v, ok := raw.str("PROCRASTINO_DB_DRIVER"); ok {
		cfg.DBDriver = v
	}
	if v, ok := raw.str("PROCRASTINO_PG_DSN"); ok {
		cfg.PGDSN = v
	}
	if n, ok := raw.num("PROCRASTINO_MAX_CONNS"); ok && n > 0 {
		cfg.MaxConns = n
	}
	if v, ok := raw.str("PROCRASTINO_REDIS_ADDR"); ok {
		cfg.RedisAddr = v
	}
	if n, ok := raw.num("PROCRASTINO_CACHE_TTL_SECONDS"); ok && n > 0 {
		cfg.CacheTTLSeconds = n
	}
	if v, ok := raw.str("PROCRASTINO_AI_BASE_URL"); ok {
		cfg.AIBaseURL = v
	}
	if v, ok := raw.str("PROCRASTINO_AI_API_KEY"); ok {
		cfg.AIAPIKey = v
	}
	if v, ok := raw.str("PROCRASTINO_AI_MODEL"); ok {
		cfg.AIModel = v
	}
	if n, ok := raw.num("PROCRASTINO_AI_TIMEOUT_SECONDS"); ok && n > 0 {
		cfg.AITimeoutSeconds = n
	}
	if v, ok := raw.str("PROCRASTINO_CATALOG_PATH"); ok {
		cfg.CatalogPath = v
	}
	if v, ok := raw.str("PROCRASTINO_ALLOWED_ORIGINS"); ok {
		cfg.AllowedOrigins = splitTrim(v)
	}
	if v, ok := raw.str("PROCRASTINO_JWT_SECRET"); ok {
		cfg.JWTSecret = v
	}

	return cfg, nil
}

var (
	globalMu  sync.Mutex
	globalCfg *Config
)

// Get returns the cached global configuration, loading it on first use.
func Get() *Config {
	globalMu.Lock()
	defer globalMu.Unlock()
	if globalCfg == nil {
		cfg, err := Load()
		if err != nil {
			cfg = Default()
		}
		globalCfg = cfg
	}
	return globalCfg
}

// Reset clears the cached configuration. Used by tests.
func Reset() {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalCfg = nil
}

// GetPort returns the HTTP port, honoring the environment first.
func GetPort() int {
	if env := os.Getenv("PROCRASTINO_PORT"); env != "" {
		if port, err := strconv.Atoi(env); err == nil && port > 0 {
			return port
		}
	}
	return Get().Port
}

// splitTrim splits a comma-separated list, trimming whitespace and dropping
// empty entries.
func splitTrim(input string) []string {
	result := []string{}
	for _, part := range strings.Split(input, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			result = append(result, part)
		}
	}
	return result
}
