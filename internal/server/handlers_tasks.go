package server

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"

	"github.com/procrastino/procrastino/internal/engine"
	"github.com/procrastino/procrastino/pkg/models"
)

func (s *Service) handleListTasks(w http.ResponseWriter, r *http.Request) {
	status := models.TaskStatus(r.URL.Query().Get("status"))

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			limit = n
		}
	}

	tasks, err := s.engine.ListTasks(r.Context(), userID(r), status, limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if tasks == nil {
		tasks = []*models.Task{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"tasks": tasks})
}

// microTaskText accepts a micro-task either as a bare string or as an
// object with a text field, matching what the planner UI sends.
type microTaskText string

func (m *microTaskText) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*m = microTaskText(s)
		return nil
	}
	var obj struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	*m = microTaskText(obj.Text)
	return nil
}

type createTaskRequest struct {
	Title         string          `json:"title"`
	Description   string          `json:"description"`
	Category      string          `json:"category"`
	FocusDuration int             `json:"focusDuration"`
	MicroTasks    []microTaskText `json:"microTasks"`
}

func (req *createTaskRequest) toInput() engine.CreateTaskInput {
	micro := make([]string, 0, len(req.MicroTasks))
	for _, m := range req.MicroTasks {
		micro = append(micro, string(m))
	}
	return engine.CreateTaskInput{
		Title:         req.Title,
		Description:   req.Description,
		Category:      req.Category,
		FocusDuration: req.FocusDuration,
		MicroTasks:    micro,
	}
}

func (s *Service) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var req createTaskRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Title == "" || req.FocusDuration == 0 {
		writeError(w, http.StatusBadRequest, "Title and focus duration are required")
		return
	}

	task, err := s.engine.CreateTask(r.Context(), userID(r), req.toInput())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{"task": task})
}

type updateTaskRequest struct {
	Title           *string `json:"title"`
	Description     *string `json:"description"`
	ToggleMicroTask string  `json:"toggleMicroTask"`
}

func (s *Service) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	taskID := chi.URLParam(r, "id")

	var req updateTaskRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	var (
		task *models.Task
		err  error
	)

	if req.ToggleMicroTask != "" {
		task, err = s.engine.ToggleMicroTask(r.Context(), uid, taskID, req.ToggleMicroTask)
		if err != nil {
			writeDomainError(w, err)
			return
		}
	}

	if req.Title != nil || req.Description != nil {
		task, err = s.engine.UpdateTask(r.Context(), uid, taskID, engine.UpdateTaskInput{
			Title:       req.Title,
			Description: req.Description,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}
	}

	if task == nil {
		writeError(w, http.StatusBadRequest, "Nothing to update")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"task": task})
}

func (s *Service) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.DeleteTask(r.Context(), userID(r), chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
