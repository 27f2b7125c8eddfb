package engine

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/procrastino/procrastino/internal/db"
	"github.com/procrastino/procrastino/internal/metrics"
	"github.com/procrastino/procrastino/pkg/models"
)

// Publisher receives engine events for fan-out to dashboard clients. A nil
// publisher disables eventing.
type Publisher interface {
	Broadcast(data interface{})
}

// Event is pushed to the publisher after a state change has committed.
type Event struct {
	Type    string      `json:"type"`
	UserID  string      `json:"userId"`
	Payload interface{} `json:"payload,omitempty"`
}

// Engine is the session orchestrator. It coordinates the task and session
// lifecycles with the leveling, streak and XP policies, and owns the
// per-user critical section that keeps settlement atomic.
type Engine struct {
	store  db.Store
	events Publisher
	now    func() time.Time

	mu        sync.Mutex
	userLocks map[string]*sync.Mutex
}

// New creates an engine on top of a store. The publisher may be nil.
func New(store db.Store, events Publisher) *Engine {
	return &Engine{
		store:     store,
		events:    events,
		now:       time.Now,
		userLocks: make(map[string]*sync.Mutex),
	}
}

// lockUser serializes start/complete/abandon for one user. Cross-user
// operations never contend.
func (e *Engine) lockUser(userID string) func() {
	e.mu.Lock()
	lock, ok := e.userLocks[userID]
	if !ok {
		lock = &sync.Mutex{}
		e.userLocks[userID] = lock
	}
	e.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}

func (e *Engine) publish(event Event) {
	if e.events != nil {
		e.events.Broadcast(event)
	}
}

func (e *Engine) timestamps() (string, int64) {
	now := e.now()
	return now.Format(time.RFC3339), now.UnixMilli()
}

// CreateTaskInput carries the client-supplied task fields.
type CreateTaskInput struct {
	Title         string
	Description   string
	Category      string
	FocusDuration int
	MicroTasks    []string
}

func (in *CreateTaskInput) toTask(userID, createdAt string, createdAtEpoch int64) (*models.Task, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, validationf("title is required")
	}
	if in.FocusDuration < models.MinFocusDuration || in.FocusDuration > models.MaxFocusDuration {
		return nil, validationf("focus duration must be between %d and %d minutes",
			models.MinFocusDuration, models.MaxFocusDuration)
	}

	micro := make(models.MicroTaskList, 0, len(in.MicroTasks))
	for _, text := range in.MicroTasks {
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		micro = append(micro, models.MicroTask{ID: uuid.NewString(), Text: text})
	}

	category := strings.TrimSpace(in.Category)
	if category == "" {
		category = "general"
	}

	return &models.Task{
		ID:             uuid.NewString(),
		UserID:         userID,
		Title:          title,
		Description:    in.Description,
		Category:       category,
		FocusDuration:  in.FocusDuration,
		MicroTasks:     micro,
		Status:         models.TaskStatusPending,
		CreatedAt:      createdAt,
		CreatedAtEpoch: createdAtEpoch,
	}, nil
}

// CreateTask validates and persists a new pending task.
func (e *Engine) CreateTask(ctx context.Context, userID string, in CreateTaskInput) (*models.Task, error) {
	createdAt, epoch := e.timestamps()
	task, err := in.toTask(userID, createdAt, epoch)
	if err != nil {
		return nil, err
	}
	if err := e.store.Tasks().Create(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

// CreateTaskBatch persists a set of tasks in one transaction. Used by the
// AI planner import; invalid entries fail the whole batch.
func (e *Engine) CreateTaskBatch(ctx context.Context, userID string, inputs []CreateTaskInput) ([]*models.Task, error) {
	if len(inputs) == 0 {
		return nil, validationf("tasks are required")
	}

	createdAt, epoch := e.timestamps()
	tasks := make([]*models.Task, 0, len(inputs))
	for _, in := range inputs {
		task, err := in.toTask(userID, createdAt, epoch)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}

	if err := e.store.Tasks().CreateBatch(ctx, tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// ListTasks returns the user's tasks, newest first, optionally filtered by
// status.
func (e *Engine) ListTasks(ctx context.Context, userID string, status models.TaskStatus, limit int) ([]*models.Task, error) {
	if limit <= 0 || limit > 50 {
		limit = 50
	}
	return e.store.Tasks().ListForUser(ctx, userID, status, limit)
}

// UpdateTaskInput carries optional task field edits.
type UpdateTaskInput struct {
	Title       *string
	Description *string
}

// UpdateTask edits mutable task fields. Status is never client-settable.
func (e *Engine) UpdateTask(ctx context.Context, userID, taskID string, in UpdateTaskInput) (*models.Task, error) {
	task, err := e.store.Tasks().GetForUser(ctx, taskID, userID)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, notFoundf("task %s", taskID)
	}

	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return nil, validationf("title cannot be empty")
		}
		task.Title = title
	}
	if in.Description != nil {
		task.Description = *in.Description
	}

	if err := e.store.Tasks().UpdateDetails(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

// ToggleMicroTask flips one micro-task's completion flag.
func (e *Engine) ToggleMicroTask(ctx context.Context, userID, taskID, microTaskID string) (*models.Task, error) {
	task, err := e.store.Tasks().GetForUser(ctx, taskID, userID)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, notFoundf("task %s", taskID)
	}

	found := false
	for i := range task.MicroTasks {
		if task.MicroTasks[i].ID == microTaskID {
			task.MicroTasks[i].Completed = !task.MicroTasks[i].Completed
			found = true
			break
		}
	}
	if !found {
		return nil, notFoundf("micro-task %s", microTaskID)
	}

	if err := e.store.Tasks().UpdateDetails(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

// DeleteTask removes a task. Only pending tasks may be deleted.
func (e *Engine) DeleteTask(ctx context.Context, userID, taskID string) error {
	task, err := e.store.Tasks().GetForUser(ctx, taskID, userID)
	if err != nil {
		return err
	}
	if task == nil {
		return notFoundf("task %s", taskID)
	}
	if task.Status != models.TaskStatusPending {
		return invalidStatef("only pending tasks can be deleted")
	}
	return e.store.Tasks().Delete(ctx, taskID)
}

// StartSession begins a focus session against a task. Any pre-existing
// active session for the user is force-abandoned without XP, and the task is
// flipped to active, all in one transaction. Starting against a completed
// task is rejected.
func (e *Engine) StartSession(ctx context.Context, userID, taskID string) (*models.FocusSession, error) {
	unlock := e.lockUser(userID)
	defer unlock()

	now, epoch := e.timestamps()
	var session *models.FocusSession

	err := e.store.InTx(ctx, func(tx db.Store) error {
		task, err := tx.Tasks().GetForUser(ctx, taskID, userID)
		if err != nil {
			return err
		}
		if task == nil {
			return notFoundf("task %s", taskID)
		}
		if task.Status == models.TaskStatusCompleted {
			return invalidStatef("task %s is already completed", taskID)
		}

		abandoned, err := tx.Sessions().AbandonActive(ctx, userID, now, epoch)
		if err != nil {
			return err
		}
		if abandoned > 0 {
			log.Debug().Str("userId", userID).Int64("count", abandoned).
				Msg("Abandoned previous active sessions on start")
		}

		if err := tx.Tasks().SetActive(ctx, taskID); err != nil {
			return err
		}

		session = &models.FocusSession{
			ID:              uuid.NewString(),
			UserID:          userID,
			TaskID:          taskID,
			StartedAt:       now,
			StartedAtEpoch:  epoch,
			PlannedDuration: task.FocusDuration,
			Status:          models.SessionStatusActive,
		}
		return tx.Sessions().Create(ctx, session)
	})
	if err != nil {
		return nil, err
	}

	metrics.SessionStarted(ctx)
	e.publish(Event{Type: "session_started", UserID: userID, Payload: session})
	return session, nil
}

// ActiveSession returns the user's active session, reclaiming it first if it
// has gone stale. Reclamation is a garbage-collection path: no XP penalty.
func (e *Engine) ActiveSession(ctx context.Context, userID string) (*models.FocusSession, error) {
	session, err := e.store.Sessions().ActiveForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, nil
	}

	now, epoch := e.timestamps()
	if !session.Stale(epoch) {
		return session, nil
	}

	unlock := e.lockUser(userID)
	defer unlock()

	var reclaimed int64
	err = e.store.InTx(ctx, func(tx db.Store) error {
		reclaimed, err = tx.Sessions().AbandonActive(ctx, userID, now, epoch)
		return err
	})
	if err != nil {
		return nil, err
	}

	metrics.SessionsReclaimed(ctx, reclaimed)
	if reclaimed > 0 {
		log.Info().Str("userId", userID).Int64("count", reclaimed).
			Msg("Reclaimed stale focus sessions")
	}
	return nil, nil
}

// RecentSessions returns the user's most recent sessions, newest first.
func (e *Engine) RecentSessions(ctx context.Context, userID string, limit int) ([]*models.FocusSession, error) {
	if limit <= 0 || limit > 50 {
		limit = 20
	}
	return e.store.Sessions().ListRecent(ctx, userID, limit)
}

// ReportProgress writes client-reported metrics onto an active session.
// Repeated identical reports are harmless.
func (e *Engine) ReportProgress(ctx context.Context, userID, sessionID string, focusSeconds *int64, tabSwitches *int) (*models.FocusSession, error) {
	session, err := e.store.Sessions().GetForUser(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, notFoundf("session %s", sessionID)
	}
	if session.Status != models.SessionStatusActive {
		return nil, invalidStatef("session %s is %s", sessionID, session.Status)
	}

	if err := e.store.Sessions().UpdateProgress(ctx, sessionID, focusSeconds, tabSwitches); err != nil {
		return nil, err
	}

	if focusSeconds != nil {
		session.ActualFocusTime = *focusSeconds
	}
	if tabSwitches != nil {
		session.TabSwitches = *tabSwitches
	}
	return session, nil
}

// SettlementResult is returned to the caller after a session ends.
type SettlementResult struct {
	Session       *models.FocusSession `json:"session"`
	XPDelta       int64                `json:"xpDelta"`
	UserXP        int64                `json:"userXP"`
	CurrentStreak int                  `json:"currentStreak"`
}

// CompleteSession settles a session as completed: XP is credited, focus
// minutes accumulate, the streak advances when the session qualifies, and
// the linked task completes. All effects commit atomically, and the
// conditional status transition guarantees at-most-once settlement.
func (e *Engine) CompleteSession(ctx context.Context, userID, sessionID string, focusSeconds int64, tabSwitches int) (*SettlementResult, error) {
	unlock := e.lockUser(userID)
	defer unlock()

	now, epoch := e.timestamps()
	var result *SettlementResult

	err := e.store.InTx(ctx, func(tx db.Store) error {
		session, err := tx.Sessions().GetForUser(ctx, sessionID, userID)
		if err != nil {
			return err
		}
		if session == nil {
			return notFoundf("session %s", sessionID)
		}
		if session.Status != models.SessionStatusActive {
			return invalidStatef("session %s is already %s", sessionID, session.Status)
		}

		task, err := tx.Tasks().GetForUser(ctx, session.TaskID, userID)
		if err != nil {
			return err
		}
		var microTasks models.MicroTaskList
		if task != nil {
			microTasks = task.MicroTasks
		}

		settlement := SettleComplete(focusSeconds, tabSwitches, microTasks)

		ok, err := tx.Sessions().Settle(ctx, sessionID, models.SessionStatusCompleted,
			now, epoch, focusSeconds, tabSwitches, settlement.SessionXP)
		if err != nil {
			return err
		}
		if !ok {
			return invalidStatef("session %s is already settled", sessionID)
		}

		user, err := tx.Users().GetByID(ctx, userID)
		if err != nil {
			return err
		}
		if user == nil {
			return notFoundf("user %s", userID)
		}

		user.XP = settlement.ApplyToXP(user.XP)
		user.TotalFocusMinutes += settlement.FocusMinutes
		if settlement.StreakEligible {
			user.CurrentStreak, user.LongestStreak, user.LastActiveDate =
				AdvanceStreak(user.CurrentStreak, user.LongestStreak, user.LastActiveDate, TodayUTC(e.now()))
		}
		if err := tx.Users().UpdateProgression(ctx, user); err != nil {
			return err
		}

		if task != nil {
			if err := tx.Tasks().MarkCompleted(ctx, task.ID, now, settlement.SessionXP); err != nil {
				return err
			}
		}

		session.Status = models.SessionStatusCompleted
		session.EndedAt.String, session.EndedAt.Valid = now, true
		session.EndedAtEpoch.Int64, session.EndedAtEpoch.Valid = epoch, true
		session.ActualFocusTime = focusSeconds
		session.TabSwitches = tabSwitches
		session.XPEarned = settlement.SessionXP

		result = &SettlementResult{
			Session:       session,
			XPDelta:       settlement.SessionXP,
			UserXP:        user.XP,
			CurrentStreak: user.CurrentStreak,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.SessionCompleted(ctx, result.XPDelta)
	e.publish(Event{Type: "xp_settled", UserID: userID, Payload: result})
	return result, nil
}

// AbandonSession settles a session as abandoned: the flat penalty applies
// (floor-clamped on the user total, raw on the session record), the streak
// is untouched, and the linked task reopens as pending.
func (e *Engine) AbandonSession(ctx context.Context, userID, sessionID string, focusSeconds int64, tabSwitches int) (*SettlementResult, error) {
	unlock := e.lockUser(userID)
	defer unlock()

	now, epoch := e.timestamps()
	var result *SettlementResult

	err := e.store.InTx(ctx, func(tx db.Store) error {
		session, err := tx.Sessions().GetForUser(ctx, sessionID, userID)
		if err != nil {
			return err
		}
		if session == nil {
			return notFoundf("session %s", sessionID)
		}
		if session.Status != models.SessionStatusActive {
			return invalidStatef("session %s is already %s", sessionID, session.Status)
		}

		settlement := SettleAbandon()

		ok, err := tx.Sessions().Settle(ctx, sessionID, models.SessionStatusAbandoned,
			now, epoch, focusSeconds, tabSwitches, settlement.SessionXP)
		if err != nil {
			return err
		}
		if !ok {
			return invalidStatef("session %s is already settled", sessionID)
		}

		user, err := tx.Users().GetByID(ctx, userID)
		if err != nil {
			return err
		}
		if user == nil {
			return notFoundf("user %s", userID)
		}

		user.XP = settlement.ApplyToXP(user.XP)
		if err := tx.Users().UpdateProgression(ctx, user); err != nil {
			return err
		}

		if err := tx.Tasks().Reopen(ctx, session.TaskID); err != nil {
			return err
		}

		session.Status = models.SessionStatusAbandoned
		session.EndedAt.String, session.EndedAt.Valid = now, true
		session.EndedAtEpoch.Int64, session.EndedAtEpoch.Valid = epoch, true
		session.ActualFocusTime = focusSeconds
		session.TabSwitches = tabSwitches
		session.XPEarned = settlement.SessionXP

		result = &SettlementResult{
			Session:       session,
			XPDelta:       settlement.SessionXP,
			UserXP:        user.XP,
			CurrentStreak: user.CurrentStreak,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.SessionAbandoned(ctx, result.XPDelta)
	e.publish(Event{Type: "xp_settled", UserID: userID, Payload: result})
	return result, nil
}

// Progression is the gamification summary for a user.
type Progression struct {
	XP                int64        `json:"xp"`
	CurrentStreak     int          `json:"currentStreak"`
	LongestStreak     int          `json:"longestStreak"`
	TotalFocusMinutes int64        `json:"totalFocusMinutes"`
	AvatarLevel       AvatarLevel  `json:"avatarLevel"`
	NextLevel         *AvatarLevel `json:"nextLevel,omitempty"`
	XPToNextLevel     int64        `json:"xpToNextLevel"`
}

// Progression computes the user's gamification summary.
func (e *Engine) Progression(ctx context.Context, userID string) (*Progression, error) {
	user, err := e.store.Users().GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, notFoundf("user %s", userID)
	}

	p := &Progression{
		XP:                user.XP,
		CurrentStreak:     user.CurrentStreak,
		LongestStreak:     user.LongestStreak,
		TotalFocusMinutes: user.TotalFocusMinutes,
		AvatarLevel:       LevelFor(user.XP),
	}
	if next, ok := NextLevel(user.XP); ok {
		p.NextLevel = &next
		p.XPToNextLevel = next.MinXP - user.XP
	}
	return p, nil
}
