package sqlite

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/procrastino/procrastino/pkg/models"
)

// testDB creates a migrated temp-file database for a test.
func testDB(t *testing.T) (*sql.DB, string, func()) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "procrastino-test.db")

	sqlDB, err := sql.Open("sqlite", path)
	require.NoError(t, err)

	_, err = sqlDB.Exec("PRAGMA busy_timeout=5000")
	require.NoError(t, err)
	_, err = sqlDB.Exec("PRAGMA foreign_keys=ON")
	require.NoError(t, err)

	require.NoError(t, runMigrations(sqlDB))

	cleanup := func() {
		_ = sqlDB.Close()
	}
	return sqlDB, path, cleanup
}

// testStore creates a migrated Store for a test.
func testStore(t *testing.T) (*Store, func()) {
	t.Helper()
	sqlDB, _, cleanup := testDB(t)
	return newStoreFromDB(sqlDB), cleanup
}

// seededUser builds a user value without inserting it.
func seededUser(name, email string) *models.User {
	now := time.Now()
	return &models.User{
		ID:              uuid.NewString(),
		Name:            name,
		Email:           email,
		PasswordHash:    "x",
		PunishmentPrefs: models.DefaultPunishmentPrefs(),
		CreatedAt:       now.Format(time.RFC3339),
		CreatedAtEpoch:  now.UnixMilli(),
	}
}

// seedUser inserts a user and returns it.
func seedUser(t *testing.T, store *Store, name, email string) *models.User {
	t.Helper()

	now := time.Now()
	user := &models.User{
		ID:              uuid.NewString(),
		Name:            name,
		Email:           email,
		PasswordHash:    "x",
		PunishmentPrefs: models.DefaultPunishmentPrefs(),
		CreatedAt:       now.Format(time.RFC3339),
		CreatedAtEpoch:  now.UnixMilli(),
	}
	require.NoError(t, store.Users().Create(context.Background(), user))
	return user
}

// seedTask inserts a pending task for the user and returns it.
func seedTask(t *testing.T, store *Store, userID, title string, micro models.MicroTaskList) *models.Task {
	t.Helper()

	now := time.Now()
	task := &models.Task{
		ID:             uuid.NewString(),
		UserID:         userID,
		Title:          title,
		Category:       "general",
		FocusDuration:  25,
		MicroTasks:     micro,
		Status:         models.TaskStatusPending,
		CreatedAt:      now.Format(time.RFC3339),
		CreatedAtEpoch: now.UnixMilli(),
	}
	require.NoError(t, store.Tasks().Create(context.Background(), task))
	return task
}

// seedSession inserts an active session and returns it.
func seedSession(t *testing.T, store *Store, userID, taskID string, startedAt time.Time) *models.FocusSession {
	t.Helper()

	session := &models.FocusSession{
		ID:              uuid.NewString(),
		UserID:          userID,
		TaskID:          taskID,
		StartedAt:       startedAt.Format(time.RFC3339),
		StartedAtEpoch:  startedAt.UnixMilli(),
		PlannedDuration: 25,
		Status:          models.SessionStatusActive,
	}
	require.NoError(t, store.Sessions().Create(context.Background(), session))
	return session
}
