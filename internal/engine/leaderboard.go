package engine

import (
	"context"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/procrastino/procrastino/internal/cache"
	"github.com/procrastino/procrastino/internal/db"
	"github.com/procrastino/procrastino/pkg/models"
)

// LeaderboardType selects the ranking dimension.
type LeaderboardType string

const (
	LeaderboardFocus  LeaderboardType = "focus"
	LeaderboardStreak LeaderboardType = "streak"
)

// SyntheticPopulation is the number of bots merged into every leaderboard.
const SyntheticPopulation = 100

// botEpoch is the instant the synthetic population came online. Bot scores
// grow continuously and deterministically with wall-clock time since then.
var botEpoch = time.Date(2026, 2, 22, 14, 41, 0, 0, time.UTC)

var (
	botAdjectives = []string{"Quantum", "Neon", "Cyber", "Swift", "Silent", "Cosmic", "Hyper", "Alpha", "Beta", "Omega"}
	botNouns      = []string{"Coder", "Scholar", "Ninja", "Master", "Brain", "Machine", "Spirit", "Ghost", "Force", "Mind"}
)

// LeaderboardEntry is one ranked row in the merged view.
type LeaderboardEntry struct {
	Rank              int         `json:"rank"`
	Name              string      `json:"name"`
	XP                int64       `json:"xp"`
	CurrentStreak     int         `json:"currentStreak"`
	TotalFocusMinutes int64       `json:"totalFocusMinutes"`
	AvatarLevel       AvatarLevel `json:"avatarLevel"`
}

// Leaderboard is a paginated ranked view over real users and bots.
type Leaderboard struct {
	Entries []LeaderboardEntry `json:"users"`
	Total   int                `json:"total"`
	Offset  int                `json:"offset"`
	Limit   int                `json:"limit"`
}

// Ranker merges real user standings with the synthetic population. The real
// rows can be served from an optional Redis cache; concurrent computations
// for the same key collapse through singleflight.
type Ranker struct {
	store db.Store
	cache *cache.Cache
	group singleflight.Group
	now   func() time.Time
}

// NewRanker creates a leaderboard ranker. The cache may be nil.
func NewRanker(store db.Store, c *cache.Cache) *Ranker {
	return &Ranker{store: store, cache: c, now: time.Now}
}

// Rank produces the paginated merged leaderboard. Rank numbers are 1-based
// positions within the full sorted population.
func (r *Ranker) Rank(ctx context.Context, lbType LeaderboardType, limit, offset int) (*Leaderboard, error) {
	if lbType != LeaderboardStreak {
		lbType = LeaderboardFocus
	}
	if limit <= 0 {
		limit = 20
	}
	if limit > 50 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	key := db.LeaderboardKeyFocus
	if lbType == LeaderboardStreak {
		key = db.LeaderboardKeyStreak
	}

	realRows, err := r.realRows(ctx, key)
	if err != nil {
		return nil, err
	}

	merged := append(realRows, SyntheticRows(r.now())...)

	sortKey := func(row models.LeaderboardRow) int64 {
		if lbType == LeaderboardStreak {
			return int64(row.CurrentStreak)
		}
		return row.TotalFocusMinutes
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return sortKey(merged[i]) > sortKey(merged[j])
	})

	total := len(merged)
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}

	entries := make([]LeaderboardEntry, 0, end-offset)
	for i, row := range merged[offset:end] {
		entries = append(entries, LeaderboardEntry{
			Rank:              offset + i + 1,
			Name:              row.Name,
			XP:                row.XP,
			CurrentStreak:     row.CurrentStreak,
			TotalFocusMinutes: row.TotalFocusMinutes,
			AvatarLevel:       LevelFor(row.XP),
		})
	}

	return &Leaderboard{Entries: entries, Total: total, Offset: offset, Limit: limit}, nil
}

// realRows fetches real user standings, deduplicating concurrent fetches and
// consulting the cache first.
func (r *Ranker) realRows(ctx context.Context, key db.LeaderboardKey) ([]models.LeaderboardRow, error) {
	cacheKey := fmt.Sprintf("procrastino:leaderboard:%s", key)
	if rows, ok := r.cache.GetRows(cacheKey); ok {
		return rows, nil
	}

	v, err, _ := r.group.Do(cacheKey, func() (interface{}, error) {
		rows, err := r.store.Users().LeaderboardRows(ctx, key)
		if err != nil {
			return nil, err
		}
		r.cache.SetRows(cacheKey, rows)
		return rows, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]models.LeaderboardRow), nil
}

// SyntheticRows generates the bot population for the given instant. Each
// bot's figures are a pure function of its index and the fractional days
// elapsed since the epoch, so repeated calls are reproducible and grow
// smoothly over time.
func SyntheticRows(now time.Time) []models.LeaderboardRow {
	days := now.Sub(botEpoch).Hours() / 24
	if days < 0 {
		days = 0
	}

	rows := make([]models.LeaderboardRow, 0, SyntheticPopulation)
	for i := 0; i < SyntheticPopulation; i++ {
		seeded := float64((i*9301+49297)%233280) / 233280

		adj := botAdjectives[i%len(botAdjectives)]
		noun := botNouns[(i/len(botAdjectives))%len(botNouns)]
		name := fmt.Sprintf("%s%s%d", adj, noun, int(seeded*99))

		rows = append(rows, models.LeaderboardRow{
			Name:              name,
			XP:                int64(seeded * 200 * days),
			CurrentStreak:     int(days),
			TotalFocusMinutes: int64(seeded * 120 * days),
		})
	}
	return rows
}
