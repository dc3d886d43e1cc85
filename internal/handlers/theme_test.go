package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/HammerMeetNail/dailydoodle/internal/models"
	"github.com/HammerMeetNail/dailydoodle/internal/services"
)

type mockThemeService struct {
	services.ThemeServiceInterface
	TodayFunc                func(ctx context.Context) (*models.TodayTheme, error)
	ListFunc                 func(ctx context.Context) ([]models.Theme, error)
	CreateFunc               func(ctx context.Context, params models.CreateThemeParams) (*models.Theme, error)
	SetActiveFunc            func(ctx context.Context, id uuid.UUID, active bool) (*models.Theme, error)
	DeleteFunc               func(ctx context.Context, id uuid.UUID) error
	RemoveReferenceImageFunc func(ctx context.Context, id uuid.UUID, imageURL string) (*models.Theme, error)
}

func (m *mockThemeService) Today(ctx context.Context) (*models.TodayTheme, error) {
	return m.TodayFunc(ctx)
}

func (m *mockThemeService) List(ctx context.Context) ([]models.Theme, error) {
	return m.ListFunc(ctx)
}

func (m *mockThemeService) Create(ctx context.Context, params models.CreateThemeParams) (*models.Theme, error) {
	return m.CreateFunc(ctx, params)
}

func (m *mockThemeService) SetActive(ctx context.Context, id uuid.UUID, active bool) (*models.Theme, error) {
	return m.SetActiveFunc(ctx, id, active)
}

func (m *mockThemeService) Delete(ctx context.Context, id uuid.UUID) error {
	return m.DeleteFunc(ctx, id)
}

func (m *mockThemeService) RemoveReferenceImage(ctx context.Context, id uuid.UUID, imageURL string) (*models.Theme, error) {
	return m.RemoveReferenceImageFunc(ctx, id, imageURL)
}

func TestThemeHandler_Today_NotRevealed(t *testing.T) {
	handler := NewThemeHandler(&mockThemeService{
		TodayFunc: func(ctx context.Context) (*models.TodayTheme, error) {
			return &models.TodayTheme{Status: models.ThemeStatusNotRevealed, Date: "2024-06-01", Participants: []models.UserSummary{}}, nil
		},
	}, &mockDrawingService{})

	rr := httptest.NewRecorder()
	handler.Today(rr, httptest.NewRequest(http.MethodGet, "/api/themes/today", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var resp models.TodayTheme
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != models.ThemeStatusNotRevealed || resp.Theme != nil {
		t.Fatalf("unexpected today %+v", resp)
	}
}

func TestThemeHandler_Today_Error(t *testing.T) {
	handler := NewThemeHandler(&mockThemeService{
		TodayFunc: func(ctx context.Context) (*models.TodayTheme, error) {
			return nil, errors.New("db down")
		},
	}, &mockDrawingService{})

	rr := httptest.NewRecorder()
	handler.Today(rr, httptest.NewRequest(http.MethodGet, "/api/themes/today", nil))
	assertErrorResponse(t, rr, http.StatusInternalServerError, "Internal server error")
}

func TestThemeHandler_LateCandidates(t *testing.T) {
	user := &models.User{ID: uuid.New()}
	handler := NewThemeHandler(&mockThemeService{}, &mockDrawingService{
		LateCandidatesFunc: func(ctx context.Context, userID uuid.UUID) ([]models.Theme, error) {
			if userID != user.ID {
				t.Fatalf("unexpected user %s", userID)
			}
			return []models.Theme{{ID: uuid.New(), Title: "Boats", Date: "2024-05-30"}}, nil
		},
	})

	rr := httptest.NewRecorder()
	handler.LateCandidates(rr, withUser(httptest.NewRequest(http.MethodGet, "/api/themes/late", nil), user))

	var resp ThemeListResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Themes) != 1 || resp.Themes[0].Title != "Boats" {
		t.Fatalf("unexpected themes %+v", resp.Themes)
	}
}

func TestThemeHandler_LateCandidates_RequiresAuth(t *testing.T) {
	handler := NewThemeHandler(&mockThemeService{}, &mockDrawingService{})
	rr := httptest.NewRecorder()

	handler.LateCandidates(rr, httptest.NewRequest(http.MethodGet, "/api/themes/late", nil))
	assertErrorResponse(t, rr, http.StatusUnauthorized, "Authentication required")
}
