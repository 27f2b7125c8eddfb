package sqlite

import (
	"database/sql"
	"fmt"
)

// migrations are applied in order; the schema version lives in
// PRAGMA user_version. Each entry is one transactional step.
var migrations = []string{
	// 001: users
	`CREATE TABLE IF NOT EXISTS users (
		id                  TEXT PRIMARY KEY,
		name                TEXT NOT NULL,
		email               TEXT NOT NULL,
		password_hash       TEXT NOT NULL,
		xp                  INTEGER NOT NULL DEFAULT 0 CHECK (xp >= 0),
		current_streak      INTEGER NOT NULL DEFAULT 0,
		longest_streak      INTEGER NOT NULL DEFAULT 0,
		last_active_date    TEXT NOT NULL DEFAULT '',
		total_focus_minutes INTEGER NOT NULL DEFAULT 0,
		punishment_prefs    TEXT NOT NULL DEFAULT '{}',
		created_at          TEXT NOT NULL,
		created_at_epoch    INTEGER NOT NULL
	);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email ON users(lower(email));
	CREATE INDEX IF NOT EXISTS idx_users_focus ON users(total_focus_minutes DESC);
	CREATE INDEX IF NOT EXISTS idx_users_streak ON users(current_streak DESC);`,

	// 002: tasks
	`CREATE TABLE IF NOT EXISTS tasks (
		id               TEXT PRIMARY KEY,
		user_id          TEXT NOT NULL REFERENCES users(id),
		title            TEXT NOT NULL,
		description      TEXT NOT NULL DEFAULT '',
		category         TEXT NOT NULL DEFAULT 'general',
		focus_duration   INTEGER NOT NULL,
		micro_tasks      TEXT NOT NULL DEFAULT '[]',
		status           TEXT NOT NULL DEFAULT 'pending'
			CHECK (status IN ('pending', 'active', 'completed', 'abandoned')),
		xp_earned        INTEGER NOT NULL DEFAULT 0,
		created_at       TEXT NOT NULL,
		created_at_epoch INTEGER NOT NULL,
		completed_at     TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_tasks_user_status ON tasks(user_id, status);
	CREATE INDEX IF NOT EXISTS idx_tasks_created ON tasks(created_at_epoch DESC);`,

	// 003: focus sessions; the partial unique index is the arena-and-index
	// enforcement of the one-active-session-per-user invariant.
	`CREATE TABLE IF NOT EXISTS focus_sessions (
		id                TEXT PRIMARY KEY,
		user_id           TEXT NOT NULL REFERENCES users(id),
		task_id           TEXT NOT NULL REFERENCES tasks(id),
		started_at        TEXT NOT NULL,
		started_at_epoch  INTEGER NOT NULL,
		ended_at          TEXT,
		ended_at_epoch    INTEGER,
		planned_duration  INTEGER NOT NULL,
		actual_focus_time INTEGER NOT NULL DEFAULT 0,
		tab_switches      INTEGER NOT NULL DEFAULT 0,
		status            TEXT NOT NULL DEFAULT 'active'
			CHECK (status IN ('active', 'completed', 'abandoned')),
		xp_earned         INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_sessions_user_status ON focus_sessions(user_id, status);
	CREATE INDEX IF NOT EXISTS idx_sessions_started ON focus_sessions(started_at_epoch DESC);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_sessions_one_active
		ON focus_sessions(user_id) WHERE status = 'active';`,
}

// runMigrations applies pending migrations based on user_version.
func runMigrations(sqlDB *sql.DB) error {
	var version int
	if err := sqlDB.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	for i := version; i < len(migrations); i++ {
		tx, err := sqlDB.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", i+1, err)
		}
		if _, err := tx.Exec(migrations[i]); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("apply migration %d: %w", i+1, err)
		}
		// PRAGMA cannot be parameterized.
		if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", i+1)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("bump schema version to %d: %w", i+1, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", i+1, err)
		}
	}
	return nil
}
