package server

import (
	"net/http"
	"time"

	"github.com/procrastino/procrastino/internal/ai"
	"github.com/procrastino/procrastino/internal/engine"
	"github.com/procrastino/procrastino/pkg/models"
)

func (s *Service) handleStudyPlan(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Messages []ai.Message `json:"messages"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Messages == nil {
		writeError(w, http.StatusBadRequest, "Messages array is required")
		return
	}

	currentDate := s.now().UTC().Format("2006-01-02")
	content, err := s.aiClient.StudyPlan(r.Context(), req.Messages, currentDate)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "AI planner temporarily unavailable")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"reply": ai.ParsePlanReply(content),
	})
}

func (s *Service) handleCreatePlanTasks(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Tasks []ai.PlanTask `json:"tasks"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(req.Tasks) == 0 {
		writeError(w, http.StatusBadRequest, "Tasks array is required")
		return
	}

	inputs := make([]engine.CreateTaskInput, 0, len(req.Tasks))
	for _, t := range req.Tasks {
		duration := t.FocusDuration
		if duration == 0 {
			duration = 25
		}
		micro := make([]string, 0, len(t.MicroTasks))
		for _, m := range t.MicroTasks {
			micro = append(micro, m.Text)
		}
		inputs = append(inputs, engine.CreateTaskInput{
			Title:         t.Title,
			Description:   t.Description,
			Category:      "Study Plan",
			FocusDuration: duration,
			MicroTasks:    micro,
		})
	}

	tasks, err := s.engine.CreateTaskBatch(r.Context(), userID(r), inputs)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"created": len(tasks),
		"tasks":   tasks,
	})
}

func (s *Service) handleRoast(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Context string `json:"context"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Context == "" {
		req.Context = "abandon"
	}

	roastText, err := s.aiClient.Roast(r.Context(), req.Context)
	if err != nil {
		// Tab-switch nags use the warning catalog; the client cycles the
		// full list between requests.
		if req.Context == "tab-switch" {
			writeJSON(w, http.StatusOK, map[string]interface{}{
				"roast":    s.catalog.RandomWarning(),
				"warnings": s.catalog.Warnings(),
				"fallback": true,
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"roast":    s.catalog.RandomRoast(),
			"fallback": true,
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"roast": roastText})
}

func (s *Service) handleRewrite(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TaskTitle       string `json:"taskTitle"`
		TaskDescription string `json:"taskDescription"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.TaskTitle == "" {
		writeError(w, http.StatusBadRequest, "Task title is required")
		return
	}

	result, err := s.aiClient.Rewrite(r.Context(), req.TaskTitle, req.TaskDescription)
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"fallback": true,
			"microTasks": []ai.MicroTaskSuggestion{
				{Text: req.TaskTitle, EstimatedMinutes: 5},
			},
			"message": "AI unavailable. Try again later.",
		})
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// insightsMinSessions is the history floor below which the analysis has
// nothing to work with.
const insightsMinSessions = 3

func (s *Service) handleInsights(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)

	sessions, err := s.engine.RecentSessions(r.Context(), uid, 30)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if len(sessions) < insightsMinSessions {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"fallback": true,
			"message":  "Complete at least 3 focus sessions to get AI insights.",
			"insights": []ai.Insight{},
		})
		return
	}

	history := make([]ai.SessionDigest, 0, len(sessions))
	for _, session := range sessions {
		digest := ai.SessionDigest{
			Task:           "Unknown",
			Category:       "general",
			Date:           session.StartedAt,
			PlannedMinutes: session.PlannedDuration,
			ActualMinutes:  session.ActualFocusTime / 60,
			TabSwitches:    session.TabSwitches,
			Completed:      session.Status == models.SessionStatusCompleted,
		}
		if started, err := time.Parse(time.RFC3339, session.StartedAt); err == nil {
			digest.DayOfWeek = started.Weekday().String()
			digest.Hour = started.Hour()
		}
		if task, err := s.store.Tasks().GetForUser(r.Context(), session.TaskID, uid); err == nil && task != nil {
			digest.Task = task.Title
			digest.Category = task.Category
		}
		history = append(history, digest)
	}

	result, err := s.aiClient.Insights(r.Context(), history)
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"fallback": true,
			"message":  "AI insights temporarily unavailable. Keep focusing!",
			"insights": []ai.Insight{},
		})
		return
	}

	writeJSON(w, http.StatusOK, result)
}
