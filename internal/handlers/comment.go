package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/HammerMeetNail/dailydoodle/internal/models"
	"github.com/HammerMeetNail/dailydoodle/internal/services"
)

type CommentHandler struct {
	commentService services.CommentServiceInterface
}

func NewCommentHandler(commentService services.CommentServiceInterface) *CommentHandler {
	return &CommentHandler{commentService: commentService}
}

type CommentRequest struct {
	Content string `json:"content"`
}

type CommentResponse struct {
	Comment *models.Comment     `json:"comment,omitempty"`
	Like    *models.CommentLike `json:"like,omitempty"`
	Message string              `json:"message,omitempty"`
}

type CommentListResponse struct {
	Comments []models.Comment `json:"comments"`
}

func (h *CommentHandler) List(w http.ResponseWriter, r *http.Request) {
	drawingID, err := parsePathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid drawing ID")
		return
	}

	comments, err := h.commentService.List(r.Context(), drawingID, viewerID(r))
	if err != nil {
		log.Printf("Error listing comments: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, CommentListResponse{Comments: comments})
}

func (h *CommentHandler) Create(w http.ResponseWriter, r *http.Request) {
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

	var req CommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	comment, err := h.commentService.Create(r.Context(), user.ID, drawingID, req.Content)
	if err != nil {
		writeCommentError(w, err, "creating comment")
		return
	}
	writeJSON(w, http.StatusCreated, CommentResponse{Comment: comment})
}

func (h *CommentHandler) Update(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	commentID, err := parsePathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid comment ID")
		return
	}

	var req CommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	comment, err := h.commentService.Update(r.Context(), user.ID, commentID, req.Content)
	if err != nil {
		writeCommentError(w, err, "updating comment")
		return
	}
	writeJSON(w, http.StatusOK, CommentResponse{Comment: comment})
}

func (h *CommentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	commentID, err := parsePathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid comment ID")
		return
	}

	if err := h.commentService.Delete(r.Context(), user.ID, commentID); err != nil {
		writeCommentError(w, err, "deleting comment")
		return
	}
	writeJSON(w, http.StatusOK, CommentResponse{Message: "Comment deleted"})
}

func (h *CommentHandler) Like(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	commentID, err := parsePathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid comment ID")
		return
	}

	like, err := h.commentService.Like(r.Context(), user.ID, commentID)
	if err != nil {
		writeCommentError(w, err, "liking comment")
		return
	}
	writeJSON(w, http.StatusCreated, CommentResponse{Like: like})
}

func (h *CommentHandler) Unlike(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	commentID, err := parsePathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid comment ID")
		return
	}

	if err := h.commentService.Unlike(r.Context(), user.ID, commentID); err != nil {
		writeCommentError(w, err, "unliking comment")
		return
	}
	writeJSON(w, http.StatusOK, CommentResponse{Message: "Like removed"})
}

func writeCommentError(w http.ResponseWriter, err error, action string) {
	switch {
	case errors.Is(err, services.ErrInvalidComment):
		writeError(w, http.StatusBadRequest, "Comments must be between 1 and 2000 characters")
	case errors.Is(err, services.ErrDrawingNotFound):
		writeError(w, http.StatusNotFound, "Drawing not found")
	case errors.Is(err, services.ErrCommentNotFound):
		writeError(w, http.StatusNotFound, "Comment not found")
	case errors.Is(err, services.ErrNotCommentAuthor):
		writeError(w, http.StatusForbidden, "You can only change your own comments")
	case errors.Is(err, services.ErrAlreadyLiked):
		writeError(w, http.StatusConflict, "Comment already liked")
	case errors.Is(err, services.ErrLikeNotFound):
		writeError(w, http.StatusNotFound, "Like not found")
	default:
		log.Printf("Error %s: %v", action, err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}
