// Package cache provides an optional Redis cache for leaderboard rows. All
// methods are nil-receiver safe: a nil cache is simply always a miss, so the
// ranker degrades gracefully when Redis is not configured or unreachable.
package cache

import (
	"time"

	json "github.com/goccy/go-json"
	"github.com/gomodule/redigo/redis"
	"github.com/rs/zerolog/log"

	"github.com/procrastino/procrastino/pkg/models"
)

// Cache wraps a Redis connection pool with a fixed TTL.
type Cache struct {
	pool *redis.Pool
	ttl  time.Duration
}

// New creates a cache against the given Redis address. Returns nil when the
// address is empty.
func New(addr string, ttl time.Duration) *Cache {
	if addr == "" {
		return nil
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}

	pool := &redis.Pool{
		MaxIdle:     4,
		IdleTimeout: 240 * time.Second,
		Dial: func() (redis.Conn, error) {
			return redis.Dial("tcp", addr,
				redis.DialConnectTimeout(2*time.Second),
				redis.DialReadTimeout(2*time.Second),
				redis.DialWriteTimeout(2*time.Second),
			)
		},
	}
	return &Cache{pool: pool, ttl: ttl}
}

// GetRows returns cached leaderboard rows for key, or a miss.
func (c *Cache) GetRows(key string) ([]models.LeaderboardRow, bool) {
	if c == nil {
		return nil, false
	}

	conn := c.pool.Get()
	defer conn.Close()

	data, err := redis.Bytes(conn.Do("GET", key))
	if err != nil {
		if err != redis.ErrNil {
			log.Debug().Err(err).Str("key", key).Msg("Leaderboard cache read failed")
		}
		return nil, false
	}

	var rows []models.LeaderboardRow
	if err := json.Unmarshal(data, &rows); err != nil {
		log.Debug().Err(err).Str("key", key).Msg("Leaderboard cache decode failed")
		return nil, false
	}
	return rows, true
}

// SetRows stores leaderboard rows under key with the cache TTL. Failures are
// logged and swallowed.
func (c *Cache) SetRows(key string, rows []models.LeaderboardRow) {
	if c == nil {
		return
	}

	data, err := json.Marshal(rows)
	if err != nil {
		return
	}

	conn := c.pool.Get()
	defer conn.Close()

	if _, err := conn.Do("SET", key, data, "PX", c.ttl.Milliseconds()); err != nil {
		log.Debug().Err(err).Str("key", key).Msg("Leaderboard cache write failed")
	}
}

// Close releases the connection pool.
func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	return c.pool.Close()
}
