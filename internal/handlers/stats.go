package handlers

import (
	"log"
	"net/http"
	"strconv"

	"github.com/HammerMeetNail/dailydoodle/internal/models"
	"github.com/HammerMeetNail/dailydoodle/internal/services"
)

type StatsHandler struct {
	statsService services.StatsServiceInterface
	render       func(stats models.Stats, heading string) ([]byte, error)
}

func NewStatsHandler(statsService services.StatsServiceInterface) *StatsHandler {
	return &StatsHandler{statsService: statsService, render: services.RenderStatsPNG}
}

// Stats returns contest totals, plus the caller's own numbers when signed in.
func (h *StatsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.statsService.Stats(r.Context(), viewerID(r))
	if err != nil {
		log.Printf("Error computing stats: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// Card renders the stats as a shareable PNG.
func (h *StatsHandler) Card(w http.ResponseWriter, r *http.Request) {
	stats, err := h.statsService.Stats(r.Context(), viewerID(r))
	if err != nil {
		log.Printf("Error computing stats: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	heading := "Daily Doodle"
	if user := GetUserFromContext(r.Context()); user != nil {
		heading = user.Summary().DisplayName() + "'s Daily Doodle"
	}

	data, err := h.render(*stats, heading)
	if err != nil {
		log.Printf("Error rendering stats card: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "private, max-age=300")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		log.Printf("Error writing stats card: %v", err)
	}
}
