package server

import (
	"net/http"

	"github.com/procrastino/procrastino/pkg/models"
)

func (s *Service) handleGetFocus(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)

	if r.URL.Query().Get("active") == "true" {
		session, err := s.engine.ActiveSession(r.Context(), uid)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"session": session})
		return
	}

	sessions, err := s.engine.RecentSessions(r.Context(), uid, 20)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if sessions == nil {
		sessions = []*models.FocusSession{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"sessions": sessions})
}

func (s *Service) handleStartFocus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TaskID string `json:"taskId"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.TaskID == "" {
		writeError(w, http.StatusBadRequest, "Task ID is required")
		return
	}

	session, err := s.engine.StartSession(r.Context(), userID(r), req.TaskID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{"session": session})
}

type patchFocusRequest struct {
	SessionID       string `json:"sessionId"`
	Action          string `json:"action"`
	TabSwitches     *int   `json:"tabSwitches"`
	ActualFocusTime *int64 `json:"actualFocusTime"` // seconds
}

func (s *Service) handlePatchFocus(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)

	var req patchFocusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.SessionID == "" || req.Action == "" {
		writeError(w, http.StatusBadRequest, "Session ID and action are required")
		return
	}

	if req.Action == "update" {
		session, err := s.engine.ReportProgress(r.Context(), uid, req.SessionID,
			req.ActualFocusTime, req.TabSwitches)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"session": session})
		return
	}

	// Settlement actions fall back to the last reported metrics when the
	// final request omits them.
	session, err := s.store.Sessions().GetForUser(r.Context(), req.SessionID, uid)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if session == nil {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}

	focusSeconds := session.ActualFocusTime
	if req.ActualFocusTime != nil {
		focusSeconds = *req.ActualFocusTime
	}
	tabSwitches := session.TabSwitches
	if req.TabSwitches != nil {
		tabSwitches = *req.TabSwitches
	}

	switch req.Action {
	case "complete":
		result, err := s.engine.CompleteSession(r.Context(), uid, req.SessionID, focusSeconds, tabSwitches)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"session":  result.Session,
			"xpGained": result.XPDelta,
			"user": map[string]interface{}{
				"xp":            result.UserXP,
				"currentStreak": result.CurrentStreak,
			},
		})

	case "abandon":
		result, err := s.engine.AbandonSession(r.Context(), uid, req.SessionID, focusSeconds, tabSwitches)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		xpLost := result.XPDelta
		if xpLost < 0 {
			xpLost = -xpLost
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"session": result.Session,
			"xpLost":  xpLost,
			"user": map[string]interface{}{
				"xp":            result.UserXP,
				"currentStreak": result.CurrentStreak,
			},
		})

	default:
		writeError(w, http.StatusBadRequest, "Invalid action")
	}
}
