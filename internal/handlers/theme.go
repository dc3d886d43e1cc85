package handlers

import (
	"log"
	"net/http"

	"github.com/HammerMeetNail/dailydoodle/internal/models"
	"github.com/HammerMeetNail/dailydoodle/internal/services"
)

type ThemeHandler struct {
	themeService   services.ThemeServiceInterface
	drawingService services.DrawingServiceInterface
}

func NewThemeHandler(themeService services.ThemeServiceInterface, drawingService services.DrawingServiceInterface) *ThemeHandler {
	return &ThemeHandler{themeService: themeService, drawingService: drawingService}
}

type ThemeListResponse struct {
	Themes []models.Theme `json:"themes"`
}

// Today returns the current contest day's theme status. It is public.
func (h *ThemeHandler) Today(w http.ResponseWriter, r *http.Request) {
	today, err := h.themeService.Today(r.Context())
	if err != nil {
		log.Printf("Error resolving today's theme: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, today)
}

// LateCandidates lists past themes the user can still post to.
func (h *ThemeHandler) LateCandidates(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	themes, err := h.drawingService.LateCandidates(r.Context(), user.ID)
	if err != nil {
		log.Printf("Error listing late themes: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, ThemeListResponse{Themes: themes})
}
