// Package db defines the storage contracts shared by the SQLite and
// Postgres backends.
package db

import (
	"context"

	"github.com/procrastino/procrastino/pkg/models"
)

// LeaderboardKey selects the ranking column for leaderboard queries.
type LeaderboardKey string

const (
	LeaderboardKeyFocus  LeaderboardKey = "total_focus_minutes"
	LeaderboardKeyStreak LeaderboardKey = "current_streak"
)

// Store aggregates the per-entity stores and transaction support.
//
// Lookups return (nil, nil) when the entity does not exist; the engine
// translates that into its NotFound error.
type Store interface {
	Users() UserStore
	Tasks() TaskStore
	Sessions() SessionStore

	// InTx runs fn against a transactional view of the store. Every write
	// inside fn commits or rolls back as one unit. Settlement relies on this
	// plus conditional status updates for its at-most-once guarantee.
	InTx(ctx context.Context, fn func(Store) error) error

	Ping() error
	Close() error
}

// UserStore provides user persistence.
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)

	// UpdateProgression writes the settlement-owned progression fields.
	UpdateProgression(ctx context.Context, user *models.User) error
	UpdatePunishmentPrefs(ctx context.Context, id string, prefs models.PunishmentPrefs) error

	// LeaderboardRows returns every user whose sort key is positive.
	LeaderboardRows(ctx context.Context, key LeaderboardKey) ([]models.LeaderboardRow, error)
}

// TaskStore provides task persistence. Status transitions are written only
// through the dedicated methods so the engine alone drives the lifecycle.
type TaskStore interface {
	Create(ctx context.Context, task *models.Task) error
	CreateBatch(ctx context.Context, tasks []*models.Task) error
	GetForUser(ctx context.Context, id, userID string) (*models.Task, error)
	ListForUser(ctx context.Context, userID string, status models.TaskStatus, limit int) ([]*models.Task, error)

	// UpdateDetails writes title, description, category and micro-tasks.
	UpdateDetails(ctx context.Context, task *models.Task) error

	SetActive(ctx context.Context, id string) error
	MarkCompleted(ctx context.Context, id, completedAt string, xpEarned int64) error
	Reopen(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

// SessionStore provides focus-session persistence.
type SessionStore interface {
	Create(ctx context.Context, session *models.FocusSession) error
	GetForUser(ctx context.Context, id, userID string) (*models.FocusSession, error)

	// ActiveForUser returns the user's active session regardless of age, or
	// (nil, nil) when there is none.
	ActiveForUser(ctx context.Context, userID string) (*models.FocusSession, error)
	ListRecent(ctx context.Context, userID string, limit int) ([]*models.FocusSession, error)

	// UpdateProgress writes the client-reported metrics onto an active
	// session. Nil fields are left untouched.
	UpdateProgress(ctx context.Context, id string, focusSeconds *int64, tabSwitches *int) error

	// Settle transitions an active session to a terminal status together with
	// its final metrics and XP. The update is conditional on status='active';
	// the returned bool reports whether this call performed the transition.
	Settle(ctx context.Context, id string, status models.SessionStatus, endedAt string, endedAtEpoch int64, focusSeconds int64, tabSwitches int, xpEarned int64) (bool, error)

	// AbandonActive force-abandons every active session for the user without
	// applying XP. Used when starting a new session and for stale reclamation.
	AbandonActive(ctx context.Context, userID, endedAt string, endedAtEpoch int64) (int64, error)
}
