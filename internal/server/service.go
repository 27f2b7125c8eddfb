// Package server exposes the procrastino HTTP API: auth, tasks, focus
// sessions, gamification, leaderboard, AI assists and the event stream.
package server

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/procrastino/procrastino/internal/ai"
	"github.com/procrastino/procrastino/internal/auth"
	"github.com/procrastino/procrastino/internal/config"
	"github.com/procrastino/procrastino/internal/db"
	"github.com/procrastino/procrastino/internal/engine"
	"github.com/procrastino/procrastino/internal/roast"
	"github.com/procrastino/procrastino/internal/server/sse"
)

// Service wires the HTTP surface to the engine and its collaborators.
type Service struct {
	version string
	config  *config.Config

	store       db.Store
	engine      *engine.Engine
	ranker      *engine.Ranker
	tokens      *auth.Tokens
	aiClient    *ai.Client
	catalog     *roast.Catalog
	broadcaster *sse.Broadcaster

	router chi.Router

	ctx    context.Context
	cancel context.CancelFunc

	ready     atomic.Bool
	startTime time.Time

	now func() time.Time
}

// New assembles the service and registers its routes.
func New(version string, cfg *config.Config, store db.Store, eng *engine.Engine,
	ranker *engine.Ranker, tokens *auth.Tokens, aiClient *ai.Client,
	catalog *roast.Catalog, broadcaster *sse.Broadcaster) *Service {

	ctx, cancel := context.WithCancel(context.Background())

	svc := &Service{
		version:     version,
		config:      cfg,
		store:       store,
		engine:      eng,
		ranker:      ranker,
		tokens:      tokens,
		aiClient:    aiClient,
		catalog:     catalog,
		broadcaster: broadcaster,
		router:      chi.NewRouter(),
		ctx:         ctx,
		cancel:      cancel,
		startTime:   time.Now(),
		now:         time.Now,
	}

	svc.setupRoutes()
	svc.ready.Store(true)
	return svc
}

// Handler returns the root HTTP handler.
func (s *Service) Handler() http.Handler {
	return s.router
}

// Close releases the service context. The caller owns store shutdown.
func (s *Service) Close() {
	s.ready.Store(false)
	s.cancel()
}

func (s *Service) setupRoutes() {
	r := s.router
	r.Use(s.checkOrigin)

	r.Get("/api/health", s.handleHealth)
	r.Get("/api/leaderboard", s.handleLeaderboard)

	r.Post("/api/auth/register", s.handleRegister)
	r.Post("/api/auth/login", s.handleLogin)

	r.Group(func(r chi.Router) {
		r.Use(s.requireAuth)

		r.Get("/api/auth/me", s.handleMe)
		r.Delete("/api/auth/me", s.handleLogout)
		r.Patch("/api/auth/me/preferences", s.handlePreferences)

		r.Get("/api/tasks", s.handleListTasks)
		r.Post("/api/tasks", s.handleCreateTask)
		r.Patch("/api/tasks/{id}", s.handleUpdateTask)
		r.Delete("/api/tasks/{id}", s.handleDeleteTask)

		r.Get("/api/focus", s.handleGetFocus)
		r.Post("/api/focus", s.handleStartFocus)
		r.Patch("/api/focus", s.handlePatchFocus)

		r.Get("/api/gamification", s.handleGamification)

		r.Post("/api/ai/study-plan", s.handleStudyPlan)
		r.Post("/api/ai/create-plan-tasks", s.handleCreatePlanTasks)
		r.Post("/api/ai/roast", s.handleRoast)
		r.Post("/api/ai/rewrite", s.handleRewrite)
		r.Post("/api/ai/insights", s.handleInsights)

		r.Get("/api/events", s.handleEvents)
	})
}

func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	dbStatus := "ok"
	if err := s.store.Ping(); err != nil {
		dbStatus = "error"
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "ok",
		"version":  s.version,
		"ready":    s.ready.Load(),
		"database": dbStatus,
		"uptime":   int64(time.Since(s.startTime).Seconds()),
	})
}
