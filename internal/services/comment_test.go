package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/HammerMeetNail/dailydoodle/internal/realtime"
)

func commentValues(id, drawingID uuid.UUID, author *uuid.UUID, content string, likes int, liked bool) []any {
	var authorID, email any
	if author != nil {
		authorID = author
		e := "ada@example.com"
		email = &e
	}
	return []any{id, drawingID, author, content, time.Now(), nil, authorID, nil, email, likes, liked}
}

func TestCommentService_Create_Validates(t *testing.T) {
	svc := NewCommentService(&fakeDB{}, nil)
	for _, content := range []string{"", "   \n\t", strings.Repeat("é", 2001)} {
		if _, err := svc.Create(context.Background(), uuid.New(), uuid.New(), content); !errors.Is(err, ErrInvalidComment) {
			t.Fatalf("expected ErrInvalidComment for %d chars, got %v", len(content), err)
		}
	}
}

func TestCommentService_Create_TrimsAndPublishes(t *testing.T) {
	userID, drawingID, commentID := uuid.New(), uuid.New(), uuid.New()
	feed := realtime.NewMemoryFeed()
	sub, _ := feed.Subscribe(context.Background(), realtime.Topic(realtime.TableComments, drawingID))
	defer sub.Close()

	db := &fakeDB{
		QueryRowFunc: func(ctx context.Context, sql string, args ...any) Row {
			if strings.Contains(sql, "INSERT INTO comments") {
				if args[2] != "nice cat" {
					t.Fatalf("expected trimmed content, got %q", args[2])
				}
				return rowFromValues(commentID)
			}
			return rowFromValues(commentValues(commentID, drawingID, &userID, "nice cat", 0, false)...)
		},
	}

	comment, err := NewCommentService(db, feed).Create(context.Background(), userID, drawingID, "  nice cat  ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if comment.Author == nil || comment.Author.ID != userID {
		t.Fatalf("unexpected author %+v", comment.Author)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	ev, err := sub.Next(ctx)
	if err != nil || ev.Type != realtime.EventInsert || ev.ID != commentID {
		t.Fatalf("unexpected event %+v (%v)", ev, err)
	}
}

func TestCommentService_Create_MissingDrawing(t *testing.T) {
	db := &fakeDB{
		QueryRowFunc: func(ctx context.Context, sql string, args ...any) Row {
			return fakeRow{scanFunc: func(dest ...any) error { return &pgconn.PgError{Code: pgForeignKeyViolation} }}
		},
	}
	if _, err := NewCommentService(db, nil).Create(context.Background(), uuid.New(), uuid.New(), "hi"); !errors.Is(err, ErrDrawingNotFound) {
		t.Fatalf("expected ErrDrawingNotFound, got %v", err)
	}
}

func TestCommentService_List_PassesViewer(t *testing.T) {
	drawingID, viewer := uuid.New(), uuid.New()
	db := &fakeDB{
		QueryFunc: func(ctx context.Context, sql string, args ...any) (Rows, error) {
			if args[0] != drawingID || args[1] != viewer {
				t.Fatalf("unexpected args %v", args)
			}
			return &fakeRows{rows: [][]any{
				commentValues(uuid.New(), drawingID, nil, "orphan", 0, false),
				commentValues(uuid.New(), drawingID, &viewer, "mine", 3, true),
			}}, nil
		},
	}

	comments, err := NewCommentService(db, nil).List(context.Background(), drawingID, viewer)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(comments) != 2 || comments[0].Author != nil || comments[1].LikeCount != 3 || !comments[1].LikedByMe {
		t.Fatalf("unexpected comments %+v", comments)
	}
}

func authorTx(t *testing.T, drawingID uuid.UUID, author *uuid.UUID, execs *[]string) *fakeTx {
	return &fakeTx{
		QueryRowFunc: func(ctx context.Context, sql string, args ...any) Row {
			if author == nil {
				return noRows()
			}
			return rowFromValues(drawingID, author)
		},
		ExecFunc: func(ctx context.Context, sql string, args ...any) (CommandTag, error) {
			*execs = append(*execs, sql)
			return fakeCommandTag{rowsAffected: 1}, nil
		},
	}
}

func TestCommentService_Update_RequiresAuthor(t *testing.T) {
	owner := uuid.New()
	var execs []string
	db := &fakeDB{BeginFunc: func(ctx context.Context) (Tx, error) { return authorTx(t, uuid.New(), &owner, &execs), nil }}

	if _, err := NewCommentService(db, nil).Update(context.Background(), uuid.New(), uuid.New(), "edit"); !errors.Is(err, ErrNotCommentAuthor) {
		t.Fatalf("expected ErrNotCommentAuthor, got %v", err)
	}
	if len(execs) != 0 {
		t.Fatalf("expected no writes, got %v", execs)
	}
}

func TestCommentService_Update_SetsUpdatedAt(t *testing.T) {
	owner, drawingID, commentID := uuid.New(), uuid.New(), uuid.New()
	var execs []string
	db := &fakeDB{
		BeginFunc: func(ctx context.Context) (Tx, error) { return authorTx(t, drawingID, &owner, &execs), nil },
		QueryRowFunc: func(ctx context.Context, sql string, args ...any) Row {
			return rowFromValues(commentValues(commentID, drawingID, &owner, "edit", 0, false)...)
		},
	}

	comment, err := NewCommentService(db, nil).Update(context.Background(), owner, commentID, " edit ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if comment.Content != "edit" || len(execs) != 1 || !strings.Contains(execs[0], "updated_at = NOW()") {
		t.Fatalf("unexpected update %+v %v", comment, execs)
	}
}

func TestCommentService_Delete(t *testing.T) {
	owner := uuid.New()
	var execs []string
	db := &fakeDB{BeginFunc: func(ctx context.Context) (Tx, error) { return authorTx(t, uuid.New(), &owner, &execs), nil }}
	svc := NewCommentService(db, nil)

	if err := svc.Delete(context.Background(), uuid.New(), uuid.New()); !errors.Is(err, ErrNotCommentAuthor) {
		t.Fatalf("expected ErrNotCommentAuthor, got %v", err)
	}
	if err := svc.Delete(context.Background(), owner, uuid.New()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(execs) != 1 || !strings.Contains(execs[0], "DELETE FROM comments") {
		t.Fatalf("unexpected execs %v", execs)
	}

	db.BeginFunc = func(ctx context.Context) (Tx, error) { return authorTx(t, uuid.Nil, nil, &execs), nil }
	if err := svc.Delete(context.Background(), owner, uuid.New()); !errors.Is(err, ErrCommentNotFound) {
		t.Fatalf("expected ErrCommentNotFound, got %v", err)
	}
}

func TestCommentService_LikeAndUnlike(t *testing.T) {
	commentID, drawingID, userID := uuid.New(), uuid.New(), uuid.New()
	db := &fakeDB{
		QueryRowFunc: func(ctx context.Context, sql string, args ...any) Row {
			return rowFromValues(uuid.New(), commentID, drawingID, userID, time.Now())
		},
	}
	svc := NewCommentService(db, nil)

	like, err := svc.Like(context.Background(), userID, commentID)
	if err != nil || like.DrawingID != drawingID {
		t.Fatalf("unexpected like %+v (%v)", like, err)
	}

	db.QueryRowFunc = func(ctx context.Context, sql string, args ...any) Row {
		return fakeRow{scanFunc: func(dest ...any) error { return &pgconn.PgError{Code: pgUniqueViolation} }}
	}
	if _, err := svc.Like(context.Background(), userID, commentID); !errors.Is(err, ErrAlreadyLiked) {
		t.Fatalf("expected ErrAlreadyLiked, got %v", err)
	}

	db.QueryRowFunc = func(ctx context.Context, sql string, args ...any) Row { return noRows() }
	if _, err := svc.Like(context.Background(), userID, commentID); !errors.Is(err, ErrCommentNotFound) {
		t.Fatalf("expected ErrCommentNotFound, got %v", err)
	}
	if err := svc.Unlike(context.Background(), userID, commentID); !errors.Is(err, ErrLikeNotFound) {
		t.Fatalf("expected ErrLikeNotFound, got %v", err)
	}
}
