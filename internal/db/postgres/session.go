package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/procrastino/procrastino/pkg/models"
)

// SessionStore provides focus-session database operations.
type SessionStore struct {
	store *Store
}

// Create inserts a new session. The partial unique index rejects a second
// active session for the same user.
func (s *SessionStore) Create(ctx context.Context, session *models.FocusSession) error {
	return wrapBusy(s.store.gdb.WithContext(ctx).Create(sessionRowFrom(session)).Error)
}

// GetForUser retrieves a session scoped to its owner, or (nil, nil).
func (s *SessionStore) GetForUser(ctx context.Context, id, userID string) (*models.FocusSession, error) {
	var row sessionRow
	err := s.store.gdb.WithContext(ctx).First(&row, "id = ? AND user_id = ?", id, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapBusy(err)
	}
	return row.toModel(), nil
}

// ActiveForUser returns the user's active session regardless of age.
func (s *SessionStore) ActiveForUser(ctx context.Context, userID string) (*models.FocusSession, error) {
	var row sessionRow
	err := s.store.gdb.WithContext(ctx).
		First(&row, "user_id = ? AND status = ?", userID, string(models.SessionStatusActive)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapBusy(err)
	}
	return row.toModel(), nil
}

// ListRecent returns the user's most recent sessions, newest first.
func (s *SessionStore) ListRecent(ctx context.Context, userID string, limit int) ([]*models.FocusSession, error) {
	var rows []sessionRow
	err := s.store.gdb.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("started_at_epoch DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, wrapBusy(err)
	}

	sessions := make([]*models.FocusSession, 0, len(rows))
	for i := range rows {
		sessions = append(sessions, rows[i].toModel())
	}
	return sessions, nil
}

// UpdateProgress writes client-reported metrics onto an active session.
// Nil fields are left untouched.
func (s *SessionStore) UpdateProgress(ctx context.Context, id string, focusSeconds *int64, tabSwitches *int) error {
	updates := map[string]interface{}{}
	if focusSeconds != nil {
		updates["actual_focus_time"] = *focusSeconds
	}
	if tabSwitches != nil {
		updates["tab_switches"] = *tabSwitches
	}
	if len(updates) == 0 {
		return nil
	}

	err := s.store.gdb.WithContext(ctx).Model(&sessionRow{}).
		Where("id = ? AND status = ?", id, string(models.SessionStatusActive)).
		Updates(updates).Error
	return wrapBusy(err)
}

// Settle transitions an active session to a terminal status. The status
// condition makes the transition a check-and-set: only one caller ever
// observes a true result for a given session.
func (s *SessionStore) Settle(ctx context.Context, id string, status models.SessionStatus, endedAt string, endedAtEpoch int64, focusSeconds int64, tabSwitches int, xpEarned int64) (bool, error) {
	result := s.store.gdb.WithContext(ctx).Model(&sessionRow{}).
		Where("id = ? AND status = ?", id, string(models.SessionStatusActive)).
		Updates(map[string]interface{}{
			"status":            string(status),
			"ended_at":          endedAt,
			"ended_at_epoch":    endedAtEpoch,
			"actual_focus_time": focusSeconds,
			"tab_switches":      tabSwitches,
			"xp_earned":         xpEarned,
		})
	if result.Error != nil {
		return false, wrapBusy(result.Error)
	}
	return result.RowsAffected == 1, nil
}

// AbandonActive force-abandons all active sessions for a user without XP.
func (s *SessionStore) AbandonActive(ctx context.Context, userID, endedAt string, endedAtEpoch int64) (int64, error) {
	result := s.store.gdb.WithContext(ctx).Model(&sessionRow{}).
		Where("user_id = ? AND status = ?", userID, string(models.SessionStatusActive)).
		Updates(map[string]interface{}{
			"status":         string(models.SessionStatusAbandoned),
			"ended_at":       endedAt,
			"ended_at_epoch": endedAtEpoch,
		})
	if result.Error != nil {
		return 0, wrapBusy(result.Error)
	}
	return result.RowsAffected, nil
}
