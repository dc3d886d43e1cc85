package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/HammerMeetNail/dailydoodle/internal/models"
	"github.com/HammerMeetNail/dailydoodle/internal/services"
	"github.com/HammerMeetNail/dailydoodle/internal/testutil"
)

type mockCommentService struct {
	services.CommentServiceInterface
	ListFunc   func(ctx context.Context, drawingID, viewer uuid.UUID) ([]models.Comment, error)
	CreateFunc func(ctx context.Context, userID, drawingID uuid.UUID, content string) (*models.Comment, error)
	UpdateFunc func(ctx context.Context, userID, commentID uuid.UUID, content string) (*models.Comment, error)
	DeleteFunc func(ctx context.Context, userID, commentID uuid.UUID) error
	LikeFunc   func(ctx context.Context, userID, commentID uuid.UUID) (*models.CommentLike, error)
	UnlikeFunc func(ctx context.Context, userID, commentID uuid.UUID) error
}

func (m *mockCommentService) List(ctx context.Context, drawingID, viewer uuid.UUID) ([]models.Comment, error) {
	return m.ListFunc(ctx, drawingID, viewer)
}

func (m *mockCommentService) Create(ctx context.Context, userID, drawingID uuid.UUID, content string) (*models.Comment, error) {
	return m.CreateFunc(ctx, userID, drawingID, content)
}

func (m *mockCommentService) Update(ctx context.Context, userID, commentID uuid.UUID, content string) (*models.Comment, error) {
	return m.UpdateFunc(ctx, userID, commentID, content)
}

func (m *mockCommentService) Delete(ctx context.Context, userID, commentID uuid.UUID) error {
	return m.DeleteFunc(ctx, userID, commentID)
}

func (m *mockCommentService) Like(ctx context.Context, userID, commentID uuid.UUID) (*models.CommentLike, error) {
	return m.LikeFunc(ctx, userID, commentID)
}

func (m *mockCommentService) Unlike(ctx context.Context, userID, commentID uuid.UUID) error {
	return m.UnlikeFunc(ctx, userID, commentID)
}

func commentRequest(method, path, id, body string) *http.Request {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.SetPathValue("id", id)
	return req
}

func TestCommentHandler_List(t *testing.T) {
	drawingID := uuid.New()
	handler := NewCommentHandler(&mockCommentService{
		ListFunc: func(ctx context.Context, gotDrawing, viewer uuid.UUID) ([]models.Comment, error) {
			if gotDrawing != drawingID || viewer != uuid.Nil {
				t.Fatalf("unexpected args %s %s", gotDrawing, viewer)
			}
			return []models.Comment{{ID: uuid.New(), Content: "nice"}}, nil
		},
	})
	rr := httptest.NewRecorder()
	handler.List(rr, commentRequest(http.MethodGet, "/api/drawings/x/comments", drawingID.String(), ""))

	var resp CommentListResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Comments) != 1 || resp.Comments[0].Content != "nice" {
		t.Fatalf("unexpected comments %+v", resp.Comments)
	}
}

func TestCommentHandler_Create(t *testing.T) {
	user := testutil.NewTestUser()
	drawingID := uuid.New()
	handler := NewCommentHandler(&mockCommentService{
		CreateFunc: func(ctx context.Context, userID, gotDrawing uuid.UUID, content string) (*models.Comment, error) {
			if userID != user.ID || gotDrawing != drawingID || content != "love it" {
				t.Fatalf("unexpected args %s %s %q", userID, gotDrawing, content)
			}
			return &models.Comment{ID: uuid.New(), DrawingID: gotDrawing, Content: content}, nil
		},
	})
	rr := httptest.NewRecorder()
	handler.Create(rr, withUser(commentRequest(http.MethodPost, "/api/drawings/x/comments", drawingID.String(), `{"content":"love it"}`), user))

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rr.Code)
	}
}

func TestCommentHandler_Create_Invalid(t *testing.T) {
	handler := NewCommentHandler(&mockCommentService{
		CreateFunc: func(ctx context.Context, userID, drawingID uuid.UUID, content string) (*models.Comment, error) {
			return nil, services.ErrInvalidComment
		},
	})
	rr := httptest.NewRecorder()

	handler.Create(rr, withUser(commentRequest(http.MethodPost, "/api/drawings/x/comments", uuid.NewString(), `{"content":"  "}`), testutil.NewTestUser()))
	assertErrorResponse(t, rr, http.StatusBadRequest, "Comments must be between 1 and 2000 characters")
}

func TestCommentHandler_Update_NotAuthor(t *testing.T) {
	handler := NewCommentHandler(&mockCommentService{
		UpdateFunc: func(ctx context.Context, userID, commentID uuid.UUID, content string) (*models.Comment, error) {
			return nil, services.ErrNotCommentAuthor
		},
	})
	rr := httptest.NewRecorder()

	handler.Update(rr, withUser(commentRequest(http.MethodPut, "/api/comments/x", uuid.NewString(), `{"content":"edit"}`), testutil.NewTestUser()))
	assertErrorResponse(t, rr, http.StatusForbidden, "You can only change your own comments")
}

func TestCommentHandler_Delete(t *testing.T) {
	tests := []struct {
		err     error
		status  int
		message string
	}{
		{services.ErrCommentNotFound, http.StatusNotFound, "Comment not found"},
		{services.ErrNotCommentAuthor, http.StatusForbidden, "You can only change your own comments"},
		{errors.New("db down"), http.StatusInternalServerError, "Internal server error"},
	}
	for _, tt := range tests {
		handler := NewCommentHandler(&mockCommentService{
			DeleteFunc: func(ctx context.Context, userID, commentID uuid.UUID) error { return tt.err },
		})
		rr := httptest.NewRecorder()
		handler.Delete(rr, withUser(commentRequest(http.MethodDelete, "/api/comments/x", uuid.NewString(), ""), testutil.NewTestUser()))
		assertErrorResponse(t, rr, tt.status, tt.message)
	}
}

func TestCommentHandler_Delete_InvalidID(t *testing.T) {
	handler := NewCommentHandler(&mockCommentService{})
	rr := httptest.NewRecorder()

	handler.Delete(rr, withUser(commentRequest(http.MethodDelete, "/api/comments/x", "x", ""), testutil.NewTestUser()))
	assertErrorResponse(t, rr, http.StatusBadRequest, "Invalid comment ID")
}

func TestCommentHandler_Like(t *testing.T) {
	handler := NewCommentHandler(&mockCommentService{
		LikeFunc: func(ctx context.Context, userID, commentID uuid.UUID) (*models.CommentLike, error) {
			return &models.CommentLike{ID: uuid.New(), CommentID: commentID, UserID: userID}, nil
		},
	})
	rr := httptest.NewRecorder()
	handler.Like(rr, withUser(commentRequest(http.MethodPost, "/api/comments/x/like", uuid.NewString(), ""), testutil.NewTestUser()))
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rr.Code)
	}
}

func TestCommentHandler_Like_Twice(t *testing.T) {
	handler := NewCommentHandler(&mockCommentService{
		LikeFunc: func(ctx context.Context, userID, commentID uuid.UUID) (*models.CommentLike, error) {
			return nil, services.ErrAlreadyLiked
		},
	})
	rr := httptest.NewRecorder()

	handler.Like(rr, withUser(commentRequest(http.MethodPost, "/api/comments/x/like", uuid.NewString(), ""), testutil.NewTestUser()))
	assertErrorResponse(t, rr, http.StatusConflict, "Comment already liked")
}

func TestCommentHandler_Unlike_NotFound(t *testing.T) {
	handler := NewCommentHandler(&mockCommentService{
		UnlikeFunc: func(ctx context.Context, userID, commentID uuid.UUID) error {
			return services.ErrLikeNotFound
		},
	})
	rr := httptest.NewRecorder()

	handler.Unlike(rr, withUser(commentRequest(http.MethodDelete, "/api/comments/x/like", uuid.NewString(), ""), testutil.NewTestUser()))
	assertErrorResponse(t, rr, http.StatusNotFound, "Like not found")
}

func TestCommentHandler_RequiresAuth(t *testing.T) {
	handler := NewCommentHandler(&mockCommentService{})
	for _, fn := range []http.HandlerFunc{handler.Create, handler.Update, handler.Delete, handler.Like, handler.Unlike} {
		rr := httptest.NewRecorder()
		fn(rr, commentRequest(http.MethodPost, "/", uuid.NewString(), "{}"))
		assertErrorResponse(t, rr, http.StatusUnauthorized, "Authentication required")
	}
}
