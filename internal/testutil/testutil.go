// Package testutil holds request and fixture helpers shared by package tests.
package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/HammerMeetNail/dailydoodle/internal/models"
)

func NewTestRequestWithJSON(t *testing.T, method, path string, v any) *http.Request {
	t.Helper()
	body, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("failed to marshal request body: %v", err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func NewTestRequest(method, path string, body io.Reader) *http.Request {
	return httptest.NewRequest(method, path, body)
}

func ParseJSONResponse(t *testing.T, body []byte) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("failed to parse JSON response %q: %v", body, err)
	}
	return out
}

func AssertStatusCode(t *testing.T, rr *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rr.Code != want {
		t.Fatalf("expected status %d, got %d (body: %s)", want, rr.Code, rr.Body.String())
	}
}

func AssertJSONContains(t *testing.T, body []byte, key string, want any) {
	t.Helper()
	got, ok := ParseJSONResponse(t, body)[key]
	if !ok {
		t.Fatalf("expected key %q in %s", key, body)
	}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("expected %s=%v, got %v", key, want, got)
	}
}

func RandomUUID() uuid.UUID {
	return uuid.New()
}

func RandomEmail() string {
	return fmt.Sprintf("doodler-%s@example.com", uuid.NewString()[:8])
}

func NewTestUser() *models.User {
	return &models.User{
		ID:        RandomUUID(),
		Email:     RandomEmail(),
		CreatedAt: time.Now(),
	}
}

// NewTestTheme returns an active theme for the given YYYY-MM-DD date.
func NewTestTheme(date string) *models.Theme {
	return &models.Theme{
		ID:              RandomUUID(),
		Title:           "Theme " + date,
		Date:            date,
		IsActive:        true,
		ReferenceImages: []string{},
		CreatedAt:       time.Now(),
	}
}

func NewTestDrawing(userID uuid.UUID, theme *models.Theme) *models.Drawing {
	d := &models.Drawing{
		ID:        RandomUUID(),
		UserID:    userID,
		ImageURL:  "https://cdn.example.com/" + uuid.NewString() + ".png",
		Title:     "Untitled",
		CreatedAt: time.Now(),
	}
	if theme != nil {
		id := theme.ID
		d.ThemeID = &id
		d.Title = theme.Title
	}
	return d
}
