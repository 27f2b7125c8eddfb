package models

import (
	"database/sql"
	"time"
)

// SessionStatus represents the status of a focus session.
type SessionStatus string

const (
	SessionStatusActive    SessionStatus = "active"
	SessionStatusCompleted SessionStatus = "completed"
	SessionStatusAbandoned SessionStatus = "abandoned"
)

// SessionTimeout is the staleness threshold: an active session whose
// StartedAt is older than this is reclaimed lazily on the next active-session
// lookup instead of by a timer.
const SessionTimeout = 30 * time.Minute

// FocusSession is one timed attempt at a task. It is created on start,
// updated by periodic progress reports, and terminated exactly once by
// settlement or staleness reclamation.
type FocusSession struct {
	ID              string         `db:"id" json:"id"`
	UserID          string         `db:"user_id" json:"userId"`
	TaskID          string         `db:"task_id" json:"taskId"`
	StartedAt       string         `db:"started_at" json:"startedAt"`
	StartedAtEpoch  int64          `db:"started_at_epoch" json:"-"`
	EndedAt         sql.NullString `db:"ended_at" json:"endedAt,omitempty"`
	EndedAtEpoch    sql.NullInt64  `db:"ended_at_epoch" json:"-"`
	PlannedDuration int            `db:"planned_duration" json:"plannedDuration"` // minutes, copied from task at start
	ActualFocusTime int64          `db:"actual_focus_time" json:"actualFocusTime"` // seconds
	TabSwitches     int            `db:"tab_switches" json:"tabSwitches"`
	Status          SessionStatus  `db:"status" json:"status"`
	XPEarned        int64          `db:"xp_earned" json:"xpEarned"` // raw signed delta, kept for audit even when the user floor absorbs it
}

// Stale reports whether the session started longer ago than the timeout,
// relative to now in epoch milliseconds.
func (s *FocusSession) Stale(nowEpoch int64) bool {
	return nowEpoch-s.StartedAtEpoch > SessionTimeout.Milliseconds()
}

// FocusMinutes returns whole minutes of measured focus.
func (s *FocusSession) FocusMinutes() int64 {
	return s.ActualFocusTime / 60
}
