package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/HammerMeetNail/dailydoodle/internal/contest"
	"github.com/HammerMeetNail/dailydoodle/internal/models"
	"github.com/HammerMeetNail/dailydoodle/internal/services"
)

type ReactionHandler struct {
	reactionService services.ReactionServiceInterface
}

func NewReactionHandler(reactionService services.ReactionServiceInterface) *ReactionHandler {
	return &ReactionHandler{reactionService: reactionService}
}

type SetReactionRequest struct {
	Emoji string `json:"emoji"`
}

type ReactionResponse struct {
	Reaction   *models.Reaction         `json:"reaction,omitempty"`
	Reactions  []models.Reaction        `json:"reactions,omitempty"`
	Summary    []models.ReactionSummary `json:"summary,omitempty"`
	MyReaction *string                  `json:"my_reaction,omitempty"`
	Message    string                   `json:"message,omitempty"`
}

type AllowedEmojisResponse struct {
	Emojis []string `json:"emojis"`
}

// SetReaction sets the caller's reaction. Sending the current emoji again
// removes it.
func (h *ReactionHandler) SetReaction(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	drawingID, err := parsePathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid drawing ID")
		return
	}

	var req SetReactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	reaction, err := h.reactionService.SetReaction(r.Context(), user.ID, drawingID, req.Emoji)
	if errors.Is(err, services.ErrInvalidEmoji) {
		writeError(w, http.StatusBadRequest, "Invalid emoji")
		return
	}
	if errors.Is(err, services.ErrDrawingNotFound) {
		writeError(w, http.StatusNotFound, "Drawing not found")
		return
	}
	if err != nil {
		log.Printf("Error setting reaction: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	if reaction == nil {
		writeJSON(w, http.StatusOK, ReactionResponse{Message: "Reaction removed"})
		return
	}
	writeJSON(w, http.StatusOK, ReactionResponse{Reaction: reaction})
}

func (h *ReactionHandler) RemoveReaction(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	drawingID, err := parsePathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid drawing ID")
		return
	}

	err = h.reactionService.RemoveReaction(r.Context(), user.ID, drawingID)
	if errors.Is(err, services.ErrReactionNotFound) {
		writeError(w, http.StatusNotFound, "Reaction not found")
		return
	}
	if err != nil {
		log.Printf("Error removing reaction: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, ReactionResponse{Message: "Reaction removed"})
}

// GetReactions returns the raw reactions, the per-emoji summary and, when
// signed in, the caller's own reaction.
func (h *ReactionHandler) GetReactions(w http.ResponseWriter, r *http.Request) {
	drawingID, err := parsePathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid drawing ID")
		return
	}

	reactions, err := h.reactionService.ListForDrawing(r.Context(), drawingID)
	if err != nil {
		log.Printf("Error getting reactions: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	resp := ReactionResponse{
		Reactions: reactions,
		Summary:   contest.AggregateReactions(reactions),
	}
	if user := GetUserFromContext(r.Context()); user != nil {
		if emoji, ok := contest.CurrentReaction(reactions, user.ID); ok {
			resp.MyReaction = &emoji
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *ReactionHandler) GetAllowedEmojis(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, AllowedEmojisResponse{Emojis: models.AllowedEmojis})
}
