package postgres

import (
	"database/sql"

	"github.com/procrastino/procrastino/pkg/models"
)

// The row types mirror the domain models with explicit column mappings.
// JSON-ish columns (micro_tasks, punishment_prefs) reuse the domain types'
// Scanner/Valuer implementations over jsonb.

type userRow struct {
	ID                string                 `gorm:"column:id;primaryKey"`
	Name              string                 `gorm:"column:name"`
	Email             string                 `gorm:"column:email"`
	PasswordHash      string                 `gorm:"column:password_hash"`
	XP                int64                  `gorm:"column:xp"`
	CurrentStreak     int                    `gorm:"column:current_streak"`
	LongestStreak     int                    `gorm:"column:longest_streak"`
	LastActiveDate    string                 `gorm:"column:last_active_date"`
	TotalFocusMinutes int64                  `gorm:"column:total_focus_minutes"`
	PunishmentPrefs   models.PunishmentPrefs `gorm:"column:punishment_prefs;type:jsonb"`
	CreatedAt         string                 `gorm:"column:created_at"`
	CreatedAtEpoch    int64                  `gorm:"column:created_at_epoch"`
}

func (userRow) TableName() string { return "users" }

func (r *userRow) toModel() *models.User {
	return &models.User{
		ID:                r.ID,
		Name:              r.Name,
		Email:             r.Email,
		PasswordHash:      r.PasswordHash,
		XP:                r.XP,
		CurrentStreak:     r.CurrentStreak,
		LongestStreak:     r.LongestStreak,
		LastActiveDate:    r.LastActiveDate,
		TotalFocusMinutes: r.TotalFocusMinutes,
		PunishmentPrefs:   r.PunishmentPrefs,
		CreatedAt:         r.CreatedAt,
		CreatedAtEpoch:    r.CreatedAtEpoch,
	}
}

func userRowFrom(u *models.User) *userRow {
	return &userRow{
		ID:                u.ID,
		Name:              u.Name,
		Email:             u.Email,
		PasswordHash:      u.PasswordHash,
		XP:                u.XP,
		CurrentStreak:     u.CurrentStreak,
		LongestStreak:     u.LongestStreak,
		LastActiveDate:    u.LastActiveDate,
		TotalFocusMinutes: u.TotalFocusMinutes,
		PunishmentPrefs:   u.PunishmentPrefs,
		CreatedAt:         u.CreatedAt,
		CreatedAtEpoch:    u.CreatedAtEpoch,
	}
}

type taskRow struct {
	ID             string               `gorm:"column:id;primaryKey"`
	UserID         string               `gorm:"column:user_id"`
	Title          string               `gorm:"column:title"`
	Description    string               `gorm:"column:description"`
	Category       string               `gorm:"column:category"`
	FocusDuration  int                  `gorm:"column:focus_duration"`
	MicroTasks     models.MicroTaskList `gorm:"column:micro_tasks;type:jsonb"`
	Status         string               `gorm:"column:status"`
	XPEarned       int64                `gorm:"column:xp_earned"`
	CreatedAt      string               `gorm:"column:created_at"`
	CreatedAtEpoch int64                `gorm:"column:created_at_epoch"`
	CompletedAt    sql.NullString       `gorm:"column:completed_at"`
}

func (taskRow) TableName() string { return "tasks" }

func (r *taskRow) toModel() *models.Task {
	return &models.Task{
		ID:             r.ID,
		UserID:         r.UserID,
		Title:          r.Title,
		Description:    r.Description,
		Category:       r.Category,
		FocusDuration:  r.FocusDuration,
		MicroTasks:     r.MicroTasks,
		Status:         models.TaskStatus(r.Status),
		XPEarned:       r.XPEarned,
		CreatedAt:      r.CreatedAt,
		CreatedAtEpoch: r.CreatedAtEpoch,
		CompletedAt:    r.CompletedAt,
	}
}

func taskRowFrom(t *models.Task) *taskRow {
	return &taskRow{
		ID:             t.ID,
		UserID:         t.UserID,
		Title:          t.Title,
		Description:    t.Description,
		Category:       t.Category,
		FocusDuration:  t.FocusDuration,
		MicroTasks:     t.MicroTasks,
		Status:         string(t.Status),
		XPEarned:       t.XPEarned,
		CreatedAt:      t.CreatedAt,
		CreatedAtEpoch: t.CreatedAtEpoch,
		CompletedAt:    t.CompletedAt,
	}
}

type sessionRow struct {
	ID              string         `gorm:"column:id;primaryKey"`
	UserID          string         `gorm:"column:user_id"`
	TaskID          string         `gorm:"column:task_id"`
	StartedAt       string         `gorm:"column:started_at"`
	StartedAtEpoch  int64          `gorm:"column:started_at_epoch"`
	EndedAt         sql.NullString `gorm:"column:ended_at"`
	EndedAtEpoch    sql.NullInt64  `gorm:"column:ended_at_epoch"`
	PlannedDuration int            `gorm:"column:planned_duration"`
	ActualFocusTime int64          `gorm:"column:actual_focus_time"`
	TabSwitches     int            `gorm:"column:tab_switches"`
	Status          string         `gorm:"column:status"`
	XPEarned        int64          `gorm:"column:xp_earned"`
}

func (sessionRow) TableName() string { return "focus_sessions" }

func (r *sessionRow) toModel() *models.FocusSession {
	return &models.FocusSession{
		ID:              r.ID,
		UserID:          r.UserID,
		TaskID:          r.TaskID,
		StartedAt:       r.StartedAt,
		StartedAtEpoch:  r.StartedAtEpoch,
		EndedAt:         r.EndedAt,
		EndedAtEpoch:    r.EndedAtEpoch,
		PlannedDuration: r.PlannedDuration,
		ActualFocusTime: r.ActualFocusTime,
		TabSwitches:     r.TabSwitches,
		Status:          models.SessionStatus(r.Status),
		XPEarned:        r.XPEarned,
	}
}

func sessionRowFrom(s *models.FocusSession) *sessionRow {
	return &sessionRow{
		ID:              s.ID,
		UserID:          s.UserID,
		TaskID:          s.TaskID,
		StartedAt:       s.StartedAt,
		StartedAtEpoch:  s.StartedAtEpoch,
		EndedAt:         s.EndedAt,
		EndedAtEpoch:    s.EndedAtEpoch,
		PlannedDuration: s.PlannedDuration,
		ActualFocusTime: s.ActualFocusTime,
		TabSwitches:     s.TabSwitches,
		Status:          string(s.Status),
		XPEarned:        s.XPEarned,
	}
}
