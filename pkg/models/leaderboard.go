package models

// LeaderboardRow is the slim per-user projection the stores return for
// ranking. Synthetic bot rows are generated in memory and never persisted.
type LeaderboardRow struct {
	Name              string `db:"name" json:"name"`
	XP                int64  `db:"xp" json:"xp"`
	CurrentStreak     int    `db:"current_streak" json:"currentStreak"`
	TotalFocusMinutes int64  `db:"total_focus_minutes" json:"totalFocusMinutes"`
}
