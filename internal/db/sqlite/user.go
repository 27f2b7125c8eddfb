package sqlite

import (
	"context"
	"database/sql"

	"github.com/procrastino/procrastino/internal/db"
	"github.com/procrastino/procrastino/pkg/models"
)

// UserStore provides user-related database operations.
type UserStore struct {
	store *Store
}

const userColumns = `id, name, email, password_hash, xp, current_streak, longest_streak,
	last_active_date, total_focus_minutes, punishment_prefs, created_at, created_at_epoch`

func scanUser(scanner interface{ Scan(...interface{}) error }) (*models.User, error) {
	var user models.User
	if err := scanner.Scan(
		&user.ID, &user.Name, &user.Email, &user.PasswordHash,
		&user.XP, &user.CurrentStreak, &user.LongestStreak,
		&user.LastActiveDate, &user.TotalFocusMinutes, &user.PunishmentPrefs,
		&user.CreatedAt, &user.CreatedAtEpoch,
	); err != nil {
		return nil, err
	}
	return &user, nil
}

// Create inserts a new user.
func (s *UserStore) Create(ctx context.Context, user *models.User) error {
	const query = `
		INSERT INTO users
		(` + userColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.store.ExecContext(ctx, query,
		user.ID, user.Name, user.Email, user.PasswordHash,
		user.XP, user.CurrentStreak, user.LongestStreak,
		user.LastActiveDate, user.TotalFocusMinutes, user.PunishmentPrefs,
		user.CreatedAt, user.CreatedAtEpoch,
	)
	return err
}

// GetByID retrieves a user by id, or (nil, nil) when missing. Runs on every
// authenticated request, so it goes through the statement cache.
func (s *UserStore) GetByID(ctx context.Context, id string) (*models.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE id = ? LIMIT 1`

	row, cleanup, err := s.store.queryRowPrepared(ctx, query, id)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	user, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return user, err
}

// GetByEmail retrieves a user by case-insensitive email.
func (s *UserStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE lower(email) = lower(?) LIMIT 1`

	user, err := scanUser(s.store.QueryRowContext(ctx, query, email))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return user, err
}

// UpdateProgression writes the settlement-owned progression fields.
func (s *UserStore) UpdateProgression(ctx context.Context, user *models.User) error {
	const query = `
		UPDATE users
		SET xp = ?, current_streak = ?, longest_streak = ?,
		    last_active_date = ?, total_focus_minutes = ?
		WHERE id = ?
	`
	_, err := s.store.ExecContext(ctx, query,
		user.XP, user.CurrentStreak, user.LongestStreak,
		user.LastActiveDate, user.TotalFocusMinutes, user.ID,
	)
	return err
}

// UpdatePunishmentPrefs writes the punishment preference toggles.
func (s *UserStore) UpdatePunishmentPrefs(ctx context.Context, id string, prefs models.PunishmentPrefs) error {
	const query = `UPDATE users SET punishment_prefs = ? WHERE id = ?`
	_, err := s.store.ExecContext(ctx, query, prefs, id)
	return err
}

// LeaderboardRows returns every user whose sort key is positive.
func (s *UserStore) LeaderboardRows(ctx context.Context, key db.LeaderboardKey) ([]models.LeaderboardRow, error) {
	// key is one of two fixed column names, never user input.
	query := `
		SELECT name, xp, current_streak, total_focus_minutes
		FROM users
		WHERE ` + string(key) + ` > 0
		ORDER BY ` + string(key) + ` DESC
	`

	rows, err := s.store.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []models.LeaderboardRow
	for rows.Next() {
		var row models.LeaderboardRow
		if err := rows.Scan(&row.Name, &row.XP, &row.CurrentStreak, &row.TotalFocusMinutes); err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	return result, rows.Err()
}
