package models

import (
	"time"

	"github.com/google/uuid"
)

type Drawing struct {
	ID          uuid.UUID  `json:"id"`
	UserID      uuid.UUID  `json:"user_id"`
	ThemeID     *uuid.UUID `json:"theme_id,omitempty"`
	ImageURL    string     `json:"image_url"`
	Title       string     `json:"title"`
	Description *string    `json:"description,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// ThemeRef is the slice of a theme joined onto a drawing row.
// Title is empty when the joined title was null.
type ThemeRef struct {
	ID    uuid.UUID `json:"id"`
	Title string    `json:"title,omitempty"`
	Date  string    `json:"date"`
}

// DrawingWithTheme is a drawing row joined with its author and theme.
type DrawingWithTheme struct {
	Drawing
	Theme         *ThemeRef    `json:"theme,omitempty"`
	Author        *UserSummary `json:"author,omitempty"`
	IsLate        bool         `json:"is_late"`
	ReactionCount int          `json:"reaction_count"`
}

// HistoryGroup is one day or theme bucket of past drawings.
type HistoryGroup struct {
	Key      string             `json:"key"`
	Date     string             `json:"date"`
	Title    string             `json:"title,omitempty"`
	ThemeID  *uuid.UUID         `json:"theme_id,omitempty"`
	Drawings []DrawingWithTheme `json:"drawings"`
}

// DrawingDetail backs the single drawing page.
type DrawingDetail struct {
	Drawing    DrawingWithTheme  `json:"drawing"`
	Reactions  []ReactionSummary `json:"reactions"`
	MyReaction *string           `json:"my_reaction,omitempty"`
	Comments   []Comment         `json:"comments"`
}

type Profile struct {
	User     UserSummary        `json:"user"`
	Drawings []DrawingWithTheme `json:"drawings"`
}

type Stats struct {
	TotalDrawings  int                `json:"total_drawings"`
	TotalReactions int                `json:"total_reactions"`
	TotalThemes    int                `json:"total_themes"`
	TopDrawings    []DrawingWithTheme `json:"top_drawings"`
	Mine           *UserStats         `json:"mine,omitempty"`
}

type UserStats struct {
	Drawings          int `json:"drawings"`
	LateDrawings      int `json:"late_drawings"`
	ReactionsReceived int `json:"reactions_received"`
	ReactionsGiven    int `json:"reactions_given"`
	Comments          int `json:"comments"`
}
