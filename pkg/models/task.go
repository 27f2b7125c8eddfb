package models

import (
	"database/sql"
	"database/sql/driver"
	"fmt"

	json "github.com/goccy/go-json"
)

// TaskStatus represents the lifecycle state of a task.
type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusActive    TaskStatus = "active"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusAbandoned TaskStatus = "abandoned"
)

// Focus duration bounds in minutes, validated at task creation.
const (
	MinFocusDuration = 1
	MaxFocusDuration = 480
)

// Task is a unit of work a focus session runs against. Status transitions are
// driven exclusively by the session engine; clients never set status directly.
type Task struct {
	ID             string         `db:"id" json:"id"`
	UserID         string         `db:"user_id" json:"userId"`
	Title          string         `db:"title" json:"title"`
	Description    string         `db:"description" json:"description"`
	Category       string         `db:"category" json:"category"`
	FocusDuration  int            `db:"focus_duration" json:"focusDuration"` // minutes
	MicroTasks     MicroTaskList  `db:"micro_tasks" json:"microTasks"`
	Status         TaskStatus     `db:"status" json:"status"`
	XPEarned       int64          `db:"xp_earned" json:"xpEarned"`
	CreatedAt      string         `db:"created_at" json:"createdAt"`
	CreatedAtEpoch int64          `db:"created_at_epoch" json:"-"`
	CompletedAt    sql.NullString `db:"completed_at" json:"completedAt,omitempty"`
}

// MicroTask is a sub-checklist item within a task, independently toggleable
// while the task is not in a terminal state.
type MicroTask struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Completed bool   `json:"completed"`
}

// MicroTaskList is an ordered micro-task sequence stored as a JSON column.
type MicroTaskList []MicroTask

// AllCompleted reports whether the list is non-empty and every entry is done.
func (m MicroTaskList) AllCompleted() bool {
	if len(m) == 0 {
		return false
	}
	for _, mt := range m {
		if !mt.Completed {
			return false
		}
	}
	return true
}

// Scan implements sql.Scanner.
func (m *MicroTaskList) Scan(value interface{}) error {
	if value == nil {
		*m = MicroTaskList{}
		return nil
	}

	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into MicroTaskList", value)
	}

	if len(data) == 0 {
		*m = MicroTaskList{}
		return nil
	}
	return json.Unmarshal(data, m)
}

// Value implements driver.Valuer.
func (m MicroTaskList) Value() (driver.Value, error) {
	if m == nil {
		m = MicroTaskList{}
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}
