package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID                uuid.UUID `json:"id"`
	Email             string    `json:"email"`
	Name              *string   `json:"name,omitempty"`
	PasswordHash      string    `json:"-"`
	IsAdmin           bool      `json:"is_admin"`
	NotifyThemeReveal bool      `json:"notify_theme_reveal"`
	CreatedAt         time.Time `json:"created_at"`
}

// Summary strips the private fields from a user.
func (u *User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Name: u.Name, Email: u.Email}
}

type CreateUserParams struct {
	Email        string
	PasswordHash string
	Name         string
}

// UserSummary is the author shape embedded in drawings, comments and reactions.
type UserSummary struct {
	ID    uuid.UUID `json:"id"`
	Name  *string   `json:"name,omitempty"`
	Email string    `json:"email,omitempty"`
}

// DisplayName prefers the name, then the email, then the id.
func (u UserSummary) DisplayName() string {
	if u.Name != nil && strings.TrimSpace(*u.Name) != "" {
		return *u.Name
	}
	if u.Email != "" {
		return u.Email
	}
	return u.ID.String()
}
