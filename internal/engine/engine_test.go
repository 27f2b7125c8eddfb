package engine

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/procrastino/procrastino/internal/db"
	"github.com/procrastino/procrastino/internal/db/sqlite"
	"github.com/procrastino/procrastino/pkg/models"
)

func testStore(t *testing.T) db.Store {
	t.Helper()

	store, err := sqlite.NewStore(sqlite.StoreConfig{
		Path: filepath.Join(t.TempDir(), "engine_test.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func seedUser(t *testing.T, store db.Store, name, email string) *models.User {
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

// capturePublisher records broadcast events for assertions.
type capturePublisher struct {
	mu     sync.Mutex
	events []Event
}

func (p *capturePublisher) Broadcast(data interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if ev, ok := data.(Event); ok {
		p.events = append(p.events, ev)
	}
}

func (p *capturePublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}

// EngineSuite exercises the session orchestrator against a real store.
type EngineSuite struct {
	suite.Suite
	store  db.Store
	engine *Engine
	events *capturePublisher
	user   *models.User
	clock  time.Time
}

func (s *EngineSuite) SetupTest() {
	s.store = testStore(s.T())
	s.events = &capturePublisher{}
	s.engine = New(s.store, s.events)

	s.clock = time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC)
	s.engine.now = func() time.Time { return s.clock }

	s.user = seedUser(s.T(), s.store, "Tester", "tester@example.com")
}

func (s *EngineSuite) advance(d time.Duration) {
	s.clock = s.clock.Add(d)
}

func TestEngineSuite(t *testing.T) {
	suite.Run(t, new(EngineSuite))
}

func (s *EngineSuite) createTask(micro ...string) *models.Task {
	task, err := s.engine.CreateTask(context.Background(), s.user.ID, CreateTaskInput{
		Title:         "Write thesis chapter",
		FocusDuration: 25,
		MicroTasks:    micro,
	})
	s.Require().NoError(err)
	return task
}

func (s *EngineSuite) reloadUser() *models.User {
	user, err := s.store.Users().GetByID(context.Background(), s.user.ID)
	s.Require().NoError(err)
	s.Require().NotNil(user)
	return user
}

// TestCreateTaskValidation tests input rejection and defaults.
func (s *EngineSuite) TestCreateTaskValidation() {
	ctx := context.Background()

	tests := []struct {
		name  string
		input CreateTaskInput
	}{
		{"empty title", CreateTaskInput{Title: "   ", FocusDuration: 25}},
		{"duration too short", CreateTaskInput{Title: "ok", FocusDuration: 0}},
		{"duration too long", CreateTaskInput{Title: "ok", FocusDuration: 481}},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			_, err := s.engine.CreateTask(ctx, s.user.ID, tt.input)
			s.ErrorIs(err, ErrValidation)
		})
	}

	task, err := s.engine.CreateTask(ctx, s.user.ID, CreateTaskInput{
		Title:         "  trimmed  ",
		FocusDuration: 25,
		MicroTasks:    []string{"one", "", "  two  "},
	})
	s.NoError(err)
	s.Equal("trimmed", task.Title)
	s.Equal("general", task.Category)
	s.Require().Len(task.MicroTasks, 2)
	s.Equal("two", task.MicroTasks[1].Text)
}

// TestCreateTaskBatch tests all-or-nothing batch semantics.
func (s *EngineSuite) TestCreateTaskBatch() {
	ctx := context.Background()

	_, err := s.engine.CreateTaskBatch(ctx, s.user.ID, nil)
	s.ErrorIs(err, ErrValidation)

	_, err = s.engine.CreateTaskBatch(ctx, s.user.ID, []CreateTaskInput{
		{Title: "good", FocusDuration: 25},
		{Title: "", FocusDuration: 25},
	})
	s.ErrorIs(err, ErrValidation)

	tasks, listErr := s.engine.ListTasks(ctx, s.user.ID, "", 0)
	s.NoError(listErr)
	s.Empty(tasks, "a failed batch must not leave partial rows")

	created, err := s.engine.CreateTaskBatch(ctx, s.user.ID, []CreateTaskInput{
		{Title: "first", FocusDuration: 25},
		{Title: "second", FocusDuration: 50},
	})
	s.NoError(err)
	s.Len(created, 2)
}

// TestStartSession tests the start guards and the task activation.
func (s *EngineSuite) TestStartSession() {
	ctx := context.Background()
	task := s.createTask()

	_, err := s.engine.StartSession(ctx, s.user.ID, "no-such-task")
	s.ErrorIs(err, ErrNotFound)

	session, err := s.engine.StartSession(ctx, s.user.ID, task.ID)
	s.Require().NoError(err)
	s.Equal(models.SessionStatusActive, session.Status)
	s.Equal(task.FocusDuration, session.PlannedDuration)

	got, err := s.store.Tasks().GetForUser(ctx, task.ID, s.user.ID)
	s.NoError(err)
	s.Equal(models.TaskStatusActive, got.Status)
	s.Equal([]string{"session_started"}, s.events.types())
}

// TestStartSessionReplacesActive tests that a restart silently abandons the
// previous session without touching XP.
func (s *EngineSuite) TestStartSessionReplacesActive() {
	ctx := context.Background()
	first := s.createTask()
	second := s.createTask()

	oldSession, err := s.engine.StartSession(ctx, s.user.ID, first.ID)
	s.Require().NoError(err)

	newSession, err := s.engine.StartSession(ctx, s.user.ID, second.ID)
	s.Require().NoError(err)
	s.NotEqual(oldSession.ID, newSession.ID)

	stale, err := s.store.Sessions().GetForUser(ctx, oldSession.ID, s.user.ID)
	s.NoError(err)
	s.Equal(models.SessionStatusAbandoned, stale.Status)
	s.Zero(stale.XPEarned)
	s.Zero(s.reloadUser().XP)
}

// TestStartSessionCompletedTask tests the completed-task guard.
func (s *EngineSuite) TestStartSessionCompletedTask() {
	ctx := context.Background()
	task := s.createTask()

	session, err := s.engine.StartSession(ctx, s.user.ID, task.ID)
	s.Require().NoError(err)
	_, err = s.engine.CompleteSession(ctx, s.user.ID, session.ID, 25*60, 0)
	s.Require().NoError(err)

	_, err = s.engine.StartSession(ctx, s.user.ID, task.ID)
	s.ErrorIs(err, ErrInvalidState)
}

// TestCompleteSession tests the full credit path.
func (s *EngineSuite) TestCompleteSession() {
	ctx := context.Background()
	task := s.createTask("outline", "draft")

	session, err := s.engine.StartSession(ctx, s.user.ID, task.ID)
	s.Require().NoError(err)

	// Tick off every micro-task so the bonus fires.
	for _, mt := range s.mustGetTask(task.ID).MicroTasks {
		_, err := s.engine.ToggleMicroTask(ctx, s.user.ID, task.ID, mt.ID)
		s.Require().NoError(err)
	}

	s.advance(25 * time.Minute)
	result, err := s.engine.CompleteSession(ctx, s.user.ID, session.ID, 25*60, 2)
	s.Require().NoError(err)

	// 25*2 + 10 + 20
	s.Equal(int64(80), result.XPDelta)
	s.Equal(int64(80), result.UserXP)
	s.Equal(1, result.CurrentStreak)
	s.Equal(models.SessionStatusCompleted, result.Session.Status)

	user := s.reloadUser()
	s.Equal(int64(80), user.XP)
	s.Equal(int64(25), user.TotalFocusMinutes)
	s.Equal(1, user.CurrentStreak)
	s.Equal("2026-08-28", user.LastActiveDate)

	got := s.mustGetTask(task.ID)
	s.Equal(models.TaskStatusCompleted, got.Status)
	s.Equal(int64(80), got.XPEarned)
	s.Contains(s.events.types(), "xp_settled")
}

// TestCompleteSessionShortRun tests that sub-threshold sessions complete
// without advancing the streak.
func (s *EngineSuite) TestCompleteSessionShortRun() {
	ctx := context.Background()
	task := s.createTask()

	session, err := s.engine.StartSession(ctx, s.user.ID, task.ID)
	s.Require().NoError(err)

	result, err := s.engine.CompleteSession(ctx, s.user.ID, session.ID, 3*60, 0)
	s.Require().NoError(err)
	s.Equal(int64(16), result.XPDelta)
	s.Zero(result.CurrentStreak)

	user := s.reloadUser()
	s.Zero(user.CurrentStreak)
	s.Empty(user.LastActiveDate)
	s.Equal(int64(3), user.TotalFocusMinutes)
}

// TestAbandonSession tests the penalty path and the task reopening.
func (s *EngineSuite) TestAbandonSession() {
	ctx := context.Background()
	task := s.createTask()

	// Build up some XP first so the penalty is visible.
	session, err := s.engine.StartSession(ctx, s.user.ID, task.ID)
	s.Require().NoError(err)
	_, err = s.engine.CompleteSession(ctx, s.user.ID, session.ID, 25*60, 0)
	s.Require().NoError(err)
	s.Require().NoError(s.store.Tasks().Reopen(ctx, task.ID))

	session, err = s.engine.StartSession(ctx, s.user.ID, task.ID)
	s.Require().NoError(err)

	result, err := s.engine.AbandonSession(ctx, s.user.ID, session.ID, 2*60, 1)
	s.Require().NoError(err)
	s.Equal(int64(-10), result.XPDelta)
	s.Equal(int64(50), result.UserXP)
	s.Equal(int64(-10), result.Session.XPEarned)

	got := s.mustGetTask(task.ID)
	s.Equal(models.TaskStatusPending, got.Status, "abandoned task reopens")
}

// TestAbandonSessionFloor tests the zero floor on the user total.
func (s *EngineSuite) TestAbandonSessionFloor() {
	ctx := context.Background()
	task := s.createTask()

	session, err := s.engine.StartSession(ctx, s.user.ID, task.ID)
	s.Require().NoError(err)

	result, err := s.engine.AbandonSession(ctx, s.user.ID, session.ID, 0, 0)
	s.Require().NoError(err)
	s.Equal(int64(-10), result.XPDelta, "session keeps the raw delta")
	s.Zero(result.UserXP, "total never drops below zero")
	s.Zero(s.reloadUser().XP)
}

// TestSettleExactlyOnce tests that the second settlement of a session fails.
func (s *EngineSuite) TestSettleExactlyOnce() {
	ctx := context.Background()
	task := s.createTask()

	session, err := s.engine.StartSession(ctx, s.user.ID, task.ID)
	s.Require().NoError(err)

	_, err = s.engine.CompleteSession(ctx, s.user.ID, session.ID, 25*60, 0)
	s.Require().NoError(err)

	_, err = s.engine.CompleteSession(ctx, s.user.ID, session.ID, 25*60, 0)
	s.ErrorIs(err, ErrInvalidState)
	_, err = s.engine.AbandonSession(ctx, s.user.ID, session.ID, 0, 0)
	s.ErrorIs(err, ErrInvalidState)

	s.Equal(int64(60), s.reloadUser().XP, "XP credited exactly once")
}

// TestConcurrentCompletes tests that racing settlements produce one winner.
func (s *EngineSuite) TestConcurrentCompletes() {
	ctx := context.Background()
	task := s.createTask()

	session, err := s.engine.StartSession(ctx, s.user.ID, task.ID)
	s.Require().NoError(err)

	const racers = 8
	var wg sync.WaitGroup
	errs := make([]error, racers)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.engine.CompleteSession(ctx, s.user.ID, session.ID, 25*60, 0)
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
		} else {
			s.True(errors.Is(err, ErrInvalidState), "unexpected error: %v", err)
		}
	}
	s.Equal(1, wins)
	s.Equal(int64(60), s.reloadUser().XP)
}

// TestStreakAcrossDays tests day-over-day progression through settlements.
func (s *EngineSuite) TestStreakAcrossDays() {
	ctx := context.Background()

	completeOne := func() {
		task := s.createTask()
		session, err := s.engine.StartSession(ctx, s.user.ID, task.ID)
		s.Require().NoError(err)
		_, err = s.engine.CompleteSession(ctx, s.user.ID, session.ID, 25*60, 0)
		s.Require().NoError(err)
	}

	completeOne()
	completeOne() // same day, no double count
	s.Equal(1, s.reloadUser().CurrentStreak)

	s.advance(24 * time.Hour)
	completeOne()
	s.Equal(2, s.reloadUser().CurrentStreak)

	s.advance(72 * time.Hour)
	completeOne()
	user := s.reloadUser()
	s.Equal(1, user.CurrentStreak, "gap resets the streak")
	s.Equal(2, user.LongestStreak)
}

// TestActiveSessionReclaim tests lazy reclamation of stale sessions.
func (s *EngineSuite) TestActiveSessionReclaim() {
	ctx := context.Background()
	task := s.createTask()

	session, err := s.engine.StartSession(ctx, s.user.ID, task.ID)
	s.Require().NoError(err)

	// Fresh session comes straight back.
	got, err := s.engine.ActiveSession(ctx, s.user.ID)
	s.NoError(err)
	s.Require().NotNil(got)
	s.Equal(session.ID, got.ID)

	s.advance(models.SessionTimeout + time.Minute)

	got, err = s.engine.ActiveSession(ctx, s.user.ID)
	s.NoError(err)
	s.Nil(got, "stale session is reclaimed, not returned")

	reclaimed, err := s.store.Sessions().GetForUser(ctx, session.ID, s.user.ID)
	s.NoError(err)
	s.Equal(models.SessionStatusAbandoned, reclaimed.Status)
	s.Zero(reclaimed.XPEarned, "reclamation is not a penalty")
	s.Zero(s.reloadUser().XP)

	// The task stays where it was; a fresh start reuses it.
	_, err = s.engine.StartSession(ctx, s.user.ID, task.ID)
	s.NoError(err)
}

// TestReportProgress tests progress writes and the active-only guard.
func (s *EngineSuite) TestReportProgress() {
	ctx := context.Background()
	task := s.createTask()

	session, err := s.engine.StartSession(ctx, s.user.ID, task.ID)
	s.Require().NoError(err)

	seconds := int64(600)
	switches := 3
	updated, err := s.engine.ReportProgress(ctx, s.user.ID, session.ID, &seconds, &switches)
	s.Require().NoError(err)
	s.Equal(int64(600), updated.ActualFocusTime)
	s.Equal(3, updated.TabSwitches)

	_, err = s.engine.CompleteSession(ctx, s.user.ID, session.ID, 600, 3)
	s.Require().NoError(err)

	_, err = s.engine.ReportProgress(ctx, s.user.ID, session.ID, &seconds, &switches)
	s.ErrorIs(err, ErrInvalidState)
}

// TestDeleteTaskRules tests that only pending tasks are deletable.
func (s *EngineSuite) TestDeleteTaskRules() {
	ctx := context.Background()
	task := s.createTask()

	_, err := s.engine.StartSession(ctx, s.user.ID, task.ID)
	s.Require().NoError(err)

	err = s.engine.DeleteTask(ctx, s.user.ID, task.ID)
	s.ErrorIs(err, ErrInvalidState)

	pending := s.createTask()
	s.NoError(s.engine.DeleteTask(ctx, s.user.ID, pending.ID))
	s.ErrorIs(s.engine.DeleteTask(ctx, s.user.ID, pending.ID), ErrNotFound)
}

// TestToggleMicroTask tests the flip and the not-found paths.
func (s *EngineSuite) TestToggleMicroTask() {
	ctx := context.Background()
	task := s.createTask("only step")
	mtID := task.MicroTasks[0].ID

	updated, err := s.engine.ToggleMicroTask(ctx, s.user.ID, task.ID, mtID)
	s.Require().NoError(err)
	s.True(updated.MicroTasks[0].Completed)

	updated, err = s.engine.ToggleMicroTask(ctx, s.user.ID, task.ID, mtID)
	s.Require().NoError(err)
	s.False(updated.MicroTasks[0].Completed)

	_, err = s.engine.ToggleMicroTask(ctx, s.user.ID, task.ID, "missing")
	s.ErrorIs(err, ErrNotFound)
}

// TestProgression tests the gamification summary.
func (s *EngineSuite) TestProgression() {
	ctx := context.Background()

	p, err := s.engine.Progression(ctx, s.user.ID)
	s.Require().NoError(err)
	s.Equal("Lazy", p.AvatarLevel.Name)
	s.Require().NotNil(p.NextLevel)
	s.Equal(int64(100), p.XPToNextLevel)

	task := s.createTask()
	session, err := s.engine.StartSession(ctx, s.user.ID, task.ID)
	s.Require().NoError(err)
	_, err = s.engine.CompleteSession(ctx, s.user.ID, session.ID, 60*60, 0)
	s.Require().NoError(err)

	p, err = s.engine.Progression(ctx, s.user.ID)
	s.Require().NoError(err)
	s.Equal(int64(130), p.XP)
	s.Equal("Focused", p.AvatarLevel.Name)
	s.Equal(int64(370), p.XPToNextLevel)

	_, err = s.engine.Progression(ctx, "nobody")
	s.ErrorIs(err, ErrNotFound)
}

func (s *EngineSuite) mustGetTask(taskID string) *models.Task {
	task, err := s.store.Tasks().GetForUser(context.Background(), taskID, s.user.ID)
	s.Require().NoError(err)
	s.Require().NotNil(task)
	return task
}
