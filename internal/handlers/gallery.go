package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/HammerMeetNail/dailydoodle/internal/models"
	"github.com/HammerMeetNail/dailydoodle/internal/services"
)

const maxHistoryLimit = 2000

type GalleryHandler struct {
	galleryService services.GalleryServiceInterface
}

func NewGalleryHandler(galleryService services.GalleryServiceInterface) *GalleryHandler {
	return &GalleryHandler{galleryService: galleryService}
}

type GalleryResponse struct {
	Drawings []models.DrawingWithTheme `json:"drawings"`
}

type HistoryResponse struct {
	Groups []models.HistoryGroup `json:"groups"`
}

// Gallery lists yesterday's drawings.
func (h *GalleryHandler) Gallery(w http.ResponseWriter, r *http.Request) {
	drawings, err := h.galleryService.Gallery(r.Context())
	if err != nil {
		log.Printf("Error loading gallery: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, GalleryResponse{Drawings: drawings})
}

func (h *GalleryHandler) History(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > maxHistoryLimit {
			writeError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = n
	}

	groups, err := h.galleryService.History(r.Context(), limit)
	if err != nil {
		log.Printf("Error loading history: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, HistoryResponse{Groups: groups})
}

func (h *GalleryHandler) Profile(w http.ResponseWriter, r *http.Request) {
	userID, err := parsePathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	profile, err := h.galleryService.Profile(r.Context(), userID)
	if errors.Is(err, services.ErrUserNotFound) {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	if err != nil {
		log.Printf("Error loading profile: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, profile)
}
