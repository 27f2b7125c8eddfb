package server

import (
	"net/http"
	"strconv"

	"github.com/procrastino/procrastino/internal/engine"
)

func (s *Service) handleGamification(w http.ResponseWriter, r *http.Request) {
	progression, err := s.engine.Progression(r.Context(), userID(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, progression)
}

func (s *Service) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	lbType := engine.LeaderboardType(q.Get("type"))
	if lbType == "" {
		lbType = engine.LeaderboardFocus
	}

	limit := 20
	if raw := q.Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			limit = n
		}
	}
	offset := 0
	if raw := q.Get("offset"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n >= 0 {
			offset = n
		}
	}

	board, err := s.ranker.Rank(r.Context(), lbType, limit, offset)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, board)
}

func (s *Service) handleEvents(w http.ResponseWriter, r *http.Request) {
	s.broadcaster.Serve(w, r, userID(r))
}
