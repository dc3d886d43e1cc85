package models

import (
	"time"

	"github.com/google/uuid"
)

const MaxCommentLength = 2000

type Comment struct {
	ID        uuid.UUID    `json:"id"`
	DrawingID uuid.UUID    `json:"drawing_id"`
	UserID    *uuid.UUID   `json:"user_id,omitempty"`
	Content   string       `json:"content"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt *time.Time   `json:"updated_at,omitempty"`
	Author    *UserSummary `json:"author,omitempty"`
	LikeCount int          `json:"like_count"`
	LikedByMe bool         `json:"liked_by_me"`
}

type CommentLike struct {
	ID        uuid.UUID `json:"id"`
	CommentID uuid.UUID `json:"comment_id"`
	DrawingID uuid.UUID `json:"drawing_id"`
	UserID    uuid.UUID `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}
