package sqlite

import (
	"context"
	"database/sql"

	"github.com/procrastino/procrastino/internal/db"
	"github.com/procrastino/procrastino/pkg/models"
)

// TaskStore provides task-related database operations.
type TaskStore struct {
	store *Store
}

const taskColumns = `id, user_id, title, description, category, focus_duration,
	micro_tasks, status, xp_earned, created_at, created_at_epoch, completed_at`

func scanTask(scanner interface{ Scan(...interface{}) error }) (*models.Task, error) {
	var task models.Task
	if err := scanner.Scan(
		&task.ID, &task.UserID, &task.Title, &task.Description, &task.Category,
		&task.FocusDuration, &task.MicroTasks, &task.Status, &task.XPEarned,
		&task.CreatedAt, &task.CreatedAtEpoch, &task.CompletedAt,
	); err != nil {
		return nil, err
	}
	return &task, nil
}

func scanTaskRows(rows *sql.Rows) ([]*models.Task, error) {
	var tasks []*models.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

const insertTaskQuery = `
	INSERT INTO tasks
	(` + taskColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

// Create inserts a new task.
func (s *TaskStore) Create(ctx context.Context, task *models.Task) error {
	_, err := s.store.ExecContext(ctx, insertTaskQuery,
		task.ID, task.UserID, task.Title, task.Description, task.Category,
		task.FocusDuration, task.MicroTasks, task.Status, task.XPEarned,
		task.CreatedAt, task.CreatedAtEpoch, task.CompletedAt,
	)
	return err
}

// CreateBatch inserts tasks as one transaction.
func (s *TaskStore) CreateBatch(ctx context.Context, tasks []*models.Task) error {
	return s.store.InTx(ctx, func(tx db.Store) error {
		for _, task := range tasks {
			if err := tx.Tasks().Create(ctx, task); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetForUser retrieves a task scoped to its owner, or (nil, nil).
func (s *TaskStore) GetForUser(ctx context.Context, id, userID string) (*models.Task, error) {
	const query = `SELECT ` + taskColumns + ` FROM tasks WHERE id = ? AND user_id = ? LIMIT 1`

	task, err := scanTask(s.store.QueryRowContext(ctx, query, id, userID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return task, err
}

// ListForUser returns the user's tasks, newest first. An empty status means
// no filter.
func (s *TaskStore) ListForUser(ctx context.Context, userID string, status models.TaskStatus, limit int) ([]*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE user_id = ?`
	args := []interface{}{userID}

	if status != "" {
		query += ` AND status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY created_at_epoch DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.store.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanTaskRows(rows)
}

// UpdateDetails writes title, description, category and micro-tasks.
func (s *TaskStore) UpdateDetails(ctx context.Context, task *models.Task) error {
	const query = `
		UPDATE tasks
		SET title = ?, description = ?, category = ?, micro_tasks = ?
		WHERE id = ?
	`
	_, err := s.store.ExecContext(ctx, query,
		task.Title, task.Description, task.Category, task.MicroTasks, task.ID,
	)
	return err
}

// SetActive flips a task to active when a session starts against it.
func (s *TaskStore) SetActive(ctx context.Context, id string) error {
	const query = `UPDATE tasks SET status = 'active' WHERE id = ?`
	_, err := s.store.ExecContext(ctx, query, id)
	return err
}

// MarkCompleted finalizes a task at settlement.
func (s *TaskStore) MarkCompleted(ctx context.Context, id, completedAt string, xpEarned int64) error {
	const query = `
		UPDATE tasks
		SET status = 'completed', completed_at = ?, xp_earned = ?
		WHERE id = ?
	`
	_, err := s.store.ExecContext(ctx, query, completedAt, xpEarned, id)
	return err
}

// Reopen returns an abandoned task to the pending pool.
func (s *TaskStore) Reopen(ctx context.Context, id string) error {
	const query = `UPDATE tasks SET status = 'pending' WHERE id = ?`
	_, err := s.store.ExecContext(ctx, query, id)
	return err
}

// Delete removes a task. The engine guarantees only pending tasks reach
// this point.
func (s *TaskStore) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM tasks WHERE id = ?`
	_, err := s.store.ExecContext(ctx, query, id)
	return err
}
