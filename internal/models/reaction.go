package models

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

var AllowedEmojis = []string{"❤️", "😂", "😮", "🔥", "👏", "🎨", "👍", "😢"}

func IsAllowedEmoji(emoji string) bool {
	return slices.Contains(AllowedEmojis, emoji)
}

type Reaction struct {
	ID        uuid.UUID    `json:"id"`
	DrawingID uuid.UUID    `json:"drawing_id"`
	UserID    uuid.UUID    `json:"user_id"`
	Emoji     string       `json:"emoji"`
	CreatedAt time.Time    `json:"created_at"`
	User      *UserSummary `json:"user,omitempty"`
}

type ReactionSummary struct {
	Emoji string   `json:"emoji"`
	Count int      `json:"count"`
	Users []string `json:"users,omitempty"`
}
