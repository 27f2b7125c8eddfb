package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/procrastino/procrastino/internal/db"
	"github.com/procrastino/procrastino/pkg/models"
)

// UserStore provides user-related database operations.
type UserStore struct {
	store *Store
}

// Create inserts a new user.
func (s *UserStore) Create(ctx context.Context, user *models.User) error {
	return wrapBusy(s.store.gdb.WithContext(ctx).Create(userRowFrom(user)).Error)
}

// GetByID retrieves a user by id, or (nil, nil) when missing.
func (s *UserStore) GetByID(ctx context.Context, id string) (*models.User, error) {
	var row userRow
	err := s.store.gdb.WithContext(ctx).First(&row, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapBusy(err)
	}
	return row.toModel(), nil
}

// GetByEmail retrieves a user by case-insensitive email.
func (s *UserStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var row userRow
	err := s.store.gdb.WithContext(ctx).First(&row, "lower(email) = lower(?)", email).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapBusy(err)
	}
	return row.toModel(), nil
}

// UpdateProgression writes the settlement-owned progression fields.
func (s *UserStore) UpdateProgression(ctx context.Context, user *models.User) error {
	err := s.store.gdb.WithContext(ctx).Model(&userRow{}).
		Where("id = ?", user.ID).
		Updates(map[string]interface{}{
			"xp":                  user.XP,
			"current_streak":      user.CurrentStreak,
			"longest_streak":      user.LongestStreak,
			"last_active_date":    user.LastActiveDate,
			"total_focus_minutes": user.TotalFocusMinutes,
		}).Error
	return wrapBusy(err)
}

// UpdatePunishmentPrefs writes the punishment preference toggles.
func (s *UserStore) UpdatePunishmentPrefs(ctx context.Context, id string, prefs models.PunishmentPrefs) error {
	err := s.store.gdb.WithContext(ctx).Model(&userRow{}).
		Where("id = ?", id).
		Update("punishment_prefs", prefs).Error
	return wrapBusy(err)
}

// LeaderboardRows returns every user whose sort key is positive.
func (s *UserStore) LeaderboardRows(ctx context.Context, key db.LeaderboardKey) ([]models.LeaderboardRow, error) {
	// key is one of two fixed column names, never user input.
	var scanned []struct {
		Name              string `gorm:"column:name"`
		XP                int64  `gorm:"column:xp"`
		CurrentStreak     int    `gorm:"column:current_streak"`
		TotalFocusMinutes int64  `gorm:"column:total_focus_minutes"`
	}
	err := s.store.gdb.WithContext(ctx).Model(&userRow{}).
		Select("name, xp, current_streak, total_focus_minutes").
		Where(string(key)+" > 0").
		Order(string(key) + " DESC").
		Scan(&scanned).Error
	if err != nil {
		return nil, wrapBusy(err)
	}

	rows := make([]models.LeaderboardRow, 0, len(scanned))
	for _, r := range scanned {
		rows = append(rows, models.LeaderboardRow{
			Name:              r.Name,
			XP:                r.XP,
			CurrentStreak:     r.CurrentStreak,
			TotalFocusMinutes: r.TotalFocusMinutes,
		})
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows, nil
}
