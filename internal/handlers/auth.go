package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/HammerMeetNail/dailydoodle/internal/models"
	"github.com/HammerMeetNail/dailydoodle/internal/services"
)

type AuthHandler struct {
	authService services.AuthServiceInterface
	userService services.UserServiceInterface
	secure      bool
}

func NewAuthHandler(authService services.AuthServiceInterface, userService services.UserServiceInterface, secure bool) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		userService: userService,
		secure:      secure,
	}
}

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type NotificationSettingsRequest struct {
	NotifyThemeReveal *bool `json:"notify_theme_reveal"`
}

type AuthResponse struct {
	User    *models.User `json:"user,omitempty"`
	Message string       `json:"message,omitempty"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := h.authService.Register(r.Context(), req.Email, req.Password, strings.TrimSpace(req.Name))
	switch {
	case errors.Is(err, services.ErrInvalidEmail):
		writeError(w, http.StatusBadRequest, "Invalid email address")
		return
	case errors.Is(err, services.ErrWeakPassword):
		writeError(w, http.StatusBadRequest, "Password must be at least 8 characters")
		return
	case errors.Is(err, services.ErrEmailAlreadyExists):
		writeError(w, http.StatusConflict, "Email already registered")
		return
	case err != nil:
		log.Printf("Error registering user: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	if !h.startSession(w, r, user) {
		return
	}
	writeJSON(w, http.StatusCreated, AuthResponse{User: user})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := h.authService.Login(r.Context(), req.Email, req.Password)
	if errors.Is(err, services.ErrInvalidCredentials) {
		writeError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}
	if err != nil {
		log.Printf("Error logging in: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	if !h.startSession(w, r, user) {
		return
	}
	writeJSON(w, http.StatusOK, AuthResponse{User: user})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
		if err := h.authService.DeleteSession(r.Context(), cookie.Value); err != nil {
			log.Printf("Error deleting session: %v", err)
		}
	}
	clearSessionCookie(w, h.secure)
	writeJSON(w, http.StatusOK, AuthResponse{Message: "Logged out"})
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}
	writeJSON(w, http.StatusOK, AuthResponse{User: user})
}

// UpdateNotifications toggles the theme reveal email.
func (h *AuthHandler) UpdateNotifications(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req NotificationSettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.NotifyThemeReveal == nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.userService.UpdateNotifyThemeReveal(r.Context(), user.ID, *req.NotifyThemeReveal); err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			writeError(w, http.StatusUnauthorized, "Authentication required")
			return
		}
		log.Printf("Error updating notification settings: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	updated := *user
	updated.NotifyThemeReveal = *req.NotifyThemeReveal
	writeJSON(w, http.StatusOK, AuthResponse{User: &updated})
}

func (h *AuthHandler) startSession(w http.ResponseWriter, r *http.Request, user *models.User) bool {
	token, err := h.authService.CreateSession(r.Context(), user.ID)
	if err != nil {
		log.Printf("Error creating session: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return false
	}
	setSessionCookie(w, token, h.secure)
	return true
}
