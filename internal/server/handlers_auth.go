package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/procrastino/procrastino/internal/auth"
	"github.com/procrastino/procrastino/internal/engine"
	"github.com/procrastino/procrastino/pkg/models"
)

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Service) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	if req.Name == "" || req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Name, email and password are required")
		return
	}
	if len(req.Password) < 6 {
		writeError(w, http.StatusBadRequest, "Password must be at least 6 characters")
		return
	}

	existing, err := s.store.Users().GetByEmail(r.Context(), req.Email)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if existing != nil {
		writeError(w, http.StatusConflict, "Email already registered")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	now := s.now()
	user := &models.User{
		ID:              uuid.NewString(),
		Name:            req.Name,
		Email:           req.Email,
		PasswordHash:    hash,
		PunishmentPrefs: models.DefaultPunishmentPrefs(),
		CreatedAt:       now.Format(time.RFC3339),
		CreatedAtEpoch:  now.UnixMilli(),
	}

	if err := s.store.Users().Create(r.Context(), user); err != nil {
		// Unique email index catches registration races.
		writeError(w, http.StatusConflict, "Email already registered")
		return
	}

	token, err := s.tokens.Sign(user.ID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	auth.SetCookie(w, token)
	log.Info().Str("userId", user.ID).Msg("User registered")

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"token": token,
		"user": map[string]interface{}{
			"id":            user.ID,
			"name":          user.Name,
			"email":         user.Email,
			"xp":            user.XP,
			"currentStreak": user.CurrentStreak,
		},
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Service) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Email and password are required")
		return
	}

	user, err := s.store.Users().GetByEmail(r.Context(), req.Email)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if user == nil || !auth.CheckPassword(user.PasswordHash, req.Password) {
		writeError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	token, err := s.tokens.Sign(user.ID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	auth.SetCookie(w, token)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"token": token,
		"user": map[string]interface{}{
			"id":                user.ID,
			"name":              user.Name,
			"email":             user.Email,
			"xp":                user.XP,
			"currentStreak":     user.CurrentStreak,
			"totalFocusMinutes": user.TotalFocusMinutes,
		},
	})
}

// meResponse decorates the stored user with the derived avatar level.
type meResponse struct {
	*models.User
	AvatarLevel engine.AvatarLevel `json:"avatarLevel"`
}

func (s *Service) handleMe(w http.ResponseWriter, r *http.Request) {
	user, err := s.store.Users().GetByID(r.Context(), userID(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if user == nil {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"user": meResponse{User: user, AvatarLevel: engine.LevelFor(user.XP)},
	})
}

func (s *Service) handleLogout(w http.ResponseWriter, r *http.Request) {
	auth.ClearCookie(w)
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Service) handlePreferences(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)

	user, err := s.store.Users().GetByID(r.Context(), uid)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if user == nil {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}

	// Decode over the current prefs so omitted keys keep their values.
	prefs := user.PunishmentPrefs
	if err := decodeJSON(r, &prefs); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := s.store.Users().UpdatePunishmentPrefs(r.Context(), uid, prefs); err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"punishmentPrefs": prefs})
}
