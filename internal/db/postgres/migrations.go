package postgres

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

// The DDL is written by hand rather than through AutoMigrate so the schema
// stays byte-for-byte reviewable, including the partial unique index that
// enforces one active session per user.
func runMigrations(gdb *gorm.DB) error {
	m := gormigrate.New(gdb, gormigrate.DefaultOptions, []*gormigrate.Migration{
		{
			ID: "001_users",
			Migrate: func(tx *gorm.DB) error {
				return tx.Exec(`
					CREATE TABLE IF NOT EXISTS users (
						id                  TEXT PRIMARY KEY,
						name                TEXT NOT NULL,
						email               TEXT NOT NULL,
						password_hash       TEXT NOT NULL,
						xp                  BIGINT NOT NULL DEFAULT 0 CHECK (xp >= 0),
						current_streak      INTEGER NOT NULL DEFAULT 0,
						longest_streak      INTEGER NOT NULL DEFAULT 0,
						last_active_date    TEXT NOT NULL DEFAULT '',
						total_focus_minutes BIGINT NOT NULL DEFAULT 0,
						punishment_prefs    JSONB NOT NULL DEFAULT '{}',
						created_at          TEXT NOT NULL,
						created_at_epoch    BIGINT NOT NULL
					);
					CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email ON users(lower(email));
					CREATE INDEX IF NOT EXISTS idx_users_focus ON users(total_focus_minutes DESC);
					CREATE INDEX IF NOT EXISTS idx_users_streak ON users(current_streak DESC);
				`).Error
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Exec(`DROP TABLE IF EXISTS users`).Error
			},
		},
		{
			ID: "002_tasks",
			Migrate: func(tx *gorm.DB) error {
				return tx.Exec(`
					CREATE TABLE IF NOT EXISTS tasks (
						id               TEXT PRIMARY KEY,
						user_id          TEXT NOT NULL REFERENCES users(id),
						title            TEXT NOT NULL,
						description      TEXT NOT NULL DEFAULT '',
						category         TEXT NOT NULL DEFAULT 'general',
						focus_duration   INTEGER NOT NULL,
						micro_tasks      JSONB NOT NULL DEFAULT '[]',
						status           TEXT NOT NULL DEFAULT 'pending'
							CHECK (status IN ('pending', 'active', 'completed', 'abandoned')),
						xp_earned        BIGINT NOT NULL DEFAULT 0,
						created_at       TEXT NOT NULL,
						created_at_epoch BIGINT NOT NULL,
						completed_at     TEXT
					);
					CREATE INDEX IF NOT EXISTS idx_tasks_user_status ON tasks(user_id, status);
					CREATE INDEX IF NOT EXISTS idx_tasks_created ON tasks(created_at_epoch DESC);
				`).Error
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Exec(`DROP TABLE IF EXISTS tasks`).Error
			},
		},
		{
			ID: "003_focus_sessions",
			Migrate: func(tx *gorm.DB) error {
				return tx.Exec(`
					CREATE TABLE IF NOT EXISTS focus_sessions (
						id                TEXT PRIMARY KEY,
						user_id           TEXT NOT NULL REFERENCES users(id),
						task_id           TEXT NOT NULL REFERENCES tasks(id),
						started_at        TEXT NOT NULL,
						started_at_epoch  BIGINT NOT NULL,
						ended_at          TEXT,
						ended_at_epoch    BIGINT,
						planned_duration  INTEGER NOT NULL,
						actual_focus_time BIGINT NOT NULL DEFAULT 0,
						tab_switches      INTEGER NOT NULL DEFAULT 0,
						status            TEXT NOT NULL DEFAULT 'active'
							CHECK (status IN ('active', 'completed', 'abandoned')),
						xp_earned         BIGINT NOT NULL DEFAULT 0
					);
					CREATE INDEX IF NOT EXISTS idx_sessions_user_status ON focus_sessions(user_id, status);
					CREATE INDEX IF NOT EXISTS idx_sessions_started ON focus_sessions(started_at_epoch DESC);
					CREATE UNIQUE INDEX IF NOT EXISTS idx_sessions_one_active
						ON focus_sessions(user_id) WHERE status = 'active';
				`).Error
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Exec(`DROP TABLE IF EXISTS focus_sessions`).Error
			},
		},
	})
	return m.Migrate()
}
