package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/procrastino/procrastino/pkg/models"
)

// TaskStore provides task-related database operations.
type TaskStore struct {
	store *Store
}

// Create inserts a new task.
func (s *TaskStore) Create(ctx context.Context, task *models.Task) error {
	return wrapBusy(s.store.gdb.WithContext(ctx).Create(taskRowFrom(task)).Error)
}

// CreateBatch inserts tasks in one statement.
func (s *TaskStore) CreateBatch(ctx context.Context, tasks []*models.Task) error {
	if len(tasks) == 0 {
		return nil
	}
	rows := make([]*taskRow, 0, len(tasks))
	for _, task := range tasks {
		rows = append(rows, taskRowFrom(task))
	}
	return wrapBusy(s.store.gdb.WithContext(ctx).Create(rows).Error)
}

// GetForUser retrieves a task scoped to its owner, or (nil, nil).
func (s *TaskStore) GetForUser(ctx context.Context, id, userID string) (*models.Task, error) {
	var row taskRow
	err := s.store.gdb.WithContext(ctx).First(&row, "id = ? AND user_id = ?", id, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapBusy(err)
	}
	return row.toModel(), nil
}

// ListForUser returns the user's tasks, newest first, optionally filtered
// by status.
func (s *TaskStore) ListForUser(ctx context.Context, userID string, status models.TaskStatus, limit int) ([]*models.Task, error) {
	q := s.store.gdb.WithContext(ctx).Where("user_id = ?", userID)
	if status != "" {
		q = q.Where("status = ?", string(status))
	}

	var rows []taskRow
	if err := q.Order("created_at_epoch DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, wrapBusy(err)
	}

	tasks := make([]*models.Task, 0, len(rows))
	for i := range rows {
		tasks = append(tasks, rows[i].toModel())
	}
	return tasks, nil
}

// UpdateDetails writes title, description, category and micro-tasks.
func (s *TaskStore) UpdateDetails(ctx context.Context, task *models.Task) error {
	err := s.store.gdb.WithContext(ctx).Model(&taskRow{}).
		Where("id = ?", task.ID).
		Updates(map[string]interface{}{
			"title":       task.Title,
			"description": task.Description,
			"category":    task.Category,
			"micro_tasks": task.MicroTasks,
		}).Error
	return wrapBusy(err)
}

// SetActive flips a task to active when a session starts against it.
func (s *TaskStore) SetActive(ctx context.Context, id string) error {
	err := s.store.gdb.WithContext(ctx).Model(&taskRow{}).
		Where("id = ?", id).
		Update("status", string(models.TaskStatusActive)).Error
	return wrapBusy(err)
}

// MarkCompleted finalizes a task at settlement.
func (s *TaskStore) MarkCompleted(ctx context.Context, id, completedAt string, xpEarned int64) error {
	err := s.store.gdb.WithContext(ctx).Model(&taskRow{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":       string(models.TaskStatusCompleted),
			"completed_at": completedAt,
			"xp_earned":    xpEarned,
		}).Error
	return wrapBusy(err)
}

// Reopen returns an abandoned task to the pending pool.
func (s *TaskStore) Reopen(ctx context.Context, id string) error {
	err := s.store.gdb.WithContext(ctx).Model(&taskRow{}).
		Where("id = ?", id).
		Update("status", string(models.TaskStatusPending)).Error
	return wrapBusy(err)
}

// Delete removes a task. The engine guarantees only pending tasks reach
// this point.
func (s *TaskStore) Delete(ctx context.Context, id string) error {
	return wrapBusy(s.store.gdb.WithContext(ctx).Delete(&taskRow{}, "id = ?", id).Error)
}
