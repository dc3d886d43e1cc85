package models

import (
	"time"

	"github.com/google/uuid"
)

// DateLayout is the calendar date format used for theme dates.
const DateLayout = "2006-01-02"

type Theme struct {
	ID              uuid.UUID `json:"id"`
	Title           string    `json:"title"`
	Description     *string   `json:"description,omitempty"`
	Date            string    `json:"date"`
	IsActive        bool      `json:"is_active"`
	ReferenceImages []string  `json:"reference_images"`
	CreatedAt       time.Time `json:"created_at"`
}

type CreateThemeParams struct {
	Title           string
	Description     string
	Date            string
	IsActive        bool
	ReferenceImages []string
}

type ThemeStatus string

const (
	ThemeStatusActive      ThemeStatus = "active"
	ThemeStatusNone        ThemeStatus = "none"
	ThemeStatusNotRevealed ThemeStatus = "not_revealed"
)

// TodayTheme is what the home page shows for the current contest day.
type TodayTheme struct {
	Status       ThemeStatus   `json:"status"`
	Date         string        `json:"date"`
	Theme        *Theme        `json:"theme,omitempty"`
	Participants []UserSummary `json:"participants"`
	Deadline     *time.Time    `json:"deadline,omitempty"`
}
