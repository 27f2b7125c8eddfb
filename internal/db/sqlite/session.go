package sqlite

import (
	"context"
	"database/sql"

	"github.com/procrastino/procrastino/pkg/models"
)

// SessionStore provides focus-session database operations.
type SessionStore struct {
	store *Store
}

const sessionColumns = `id, user_id, task_id, started_at, started_at_epoch,
	ended_at, ended_at_epoch, planned_duration, actual_focus_time,
	tab_switches, status, xp_earned`

func scanSession(scanner interface{ Scan(...interface{}) error }) (*models.FocusSession, error) {
	var sess models.FocusSession
	if err := scanner.Scan(
		&sess.ID, &sess.UserID, &sess.TaskID, &sess.StartedAt, &sess.StartedAtEpoch,
		&sess.EndedAt, &sess.EndedAtEpoch, &sess.PlannedDuration, &sess.ActualFocusTime,
		&sess.TabSwitches, &sess.Status, &sess.XPEarned,
	); err != nil {
		return nil, err
	}
	return &sess, nil
}

// Create inserts a new session.
func (s *SessionStore) Create(ctx context.Context, session *models.FocusSession) error {
	const query = `
		INSERT INTO focus_sessions
		(` + sessionColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.store.ExecContext(ctx, query,
		session.ID, session.UserID, session.TaskID, session.StartedAt, session.StartedAtEpoch,
		session.EndedAt, session.EndedAtEpoch, session.PlannedDuration, session.ActualFocusTime,
		session.TabSwitches, session.Status, session.XPEarned,
	)
	return err
}

// GetForUser retrieves a session scoped to its owner, or (nil, nil).
func (s *SessionStore) GetForUser(ctx context.Context, id, userID string) (*models.FocusSession, error) {
	const query = `SELECT ` + sessionColumns + ` FROM focus_sessions WHERE id = ? AND user_id = ? LIMIT 1`

	row, cleanup, err := s.store.queryRowPrepared(ctx, query, id, userID)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	session, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return session, err
}

// ActiveForUser returns the user's active session regardless of age, or
// (nil, nil). The partial unique index guarantees at most one row matches.
func (s *SessionStore) ActiveForUser(ctx context.Context, userID string) (*models.FocusSession, error) {
	const query = `
		SELECT ` + sessionColumns + `
		FROM focus_sessions
		WHERE user_id = ? AND status = 'active'
		LIMIT 1
	`

	row, cleanup, err := s.store.queryRowPrepared(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	session, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return session, err
}

// ListRecent returns the user's sessions, newest first.
func (s *SessionStore) ListRecent(ctx context.Context, userID string, limit int) ([]*models.FocusSession, error) {
	const query = `
		SELECT ` + sessionColumns + `
		FROM focus_sessions
		WHERE user_id = ?
		ORDER BY started_at_epoch DESC
		LIMIT ?
	`

	rows, err := s.store.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*models.FocusSession
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

// UpdateProgress writes client-reported metrics onto an active session.
// Nil fields are left untouched; the status guard makes late reports for a
// settled session harmless.
func (s *SessionStore) UpdateProgress(ctx context.Context, id string, focusSeconds *int64, tabSwitches *int) error {
	const query = `
		UPDATE focus_sessions
		SET actual_focus_time = COALESCE(?, actual_focus_time),
		    tab_switches = COALESCE(?, tab_switches)
		WHERE id = ? AND status = 'active'
	`
	_, err := s.store.ExecContext(ctx, query, focusSeconds, tabSwitches, id)
	return err
}

// Settle transitions an active session to a terminal status. The WHERE
// clause on status makes the transition a check-and-set: only one caller
// ever observes a true result for a given session.
func (s *SessionStore) Settle(ctx context.Context, id string, status models.SessionStatus, endedAt string, endedAtEpoch int64, focusSeconds int64, tabSwitches int, xpEarned int64) (bool, error) {
	const query = `
		UPDATE focus_sessions
		SET status = ?, ended_at = ?, ended_at_epoch = ?,
		    actual_focus_time = ?, tab_switches = ?, xp_earned = ?
		WHERE id = ? AND status = 'active'
	`

	result, err := s.store.execPrepared(ctx, query,
		string(status), endedAt, endedAtEpoch, focusSeconds, tabSwitches, xpEarned, id,
	)
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

// AbandonActive force-abandons all active sessions for a user without XP.
func (s *SessionStore) AbandonActive(ctx context.Context, userID, endedAt string, endedAtEpoch int64) (int64, error) {
	const query = `
		UPDATE focus_sessions
		SET status = 'abandoned', ended_at = ?, ended_at_epoch = ?
		WHERE user_id = ? AND status = 'active'
	`

	result, err := s.store.ExecContext(ctx, query, endedAt, endedAtEpoch, userID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
