package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/HammerMeetNail/dailydoodle/internal/models"
)

func userValues(id uuid.UUID, email string, isAdmin bool) []any {
	name := "Ada"
	return []any{id, email, &name, "hash", isAdmin, true, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func TestUserService_Create_NormalizesEmail(t *testing.T) {
	id := uuid.New()
	db := &fakeDB{
		QueryRowFunc: func(ctx context.Context, sql string, args ...any) Row {
			if !strings.Contains(sql, "INSERT INTO users") {
				t.Fatalf("unexpected sql: %q", sql)
			}
			if args[0] != "ada@example.com" {
				t.Fatalf("expected normalized email, got %v", args[0])
			}
			if name := args[1].(*string); name == nil || *name != "Ada" {
				t.Fatalf("expected trimmed name, got %v", args[1])
			}
			return rowFromValues(userValues(id, "ada@example.com", false)...)
		},
	}

	user, err := NewUserService(db).Create(context.Background(), modelsCreateUser(" Ada@Example.com ", "hash", "  Ada "))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.ID != id || user.Name == nil || *user.Name != "Ada" {
		t.Fatalf("unexpected user %+v", user)
	}
}

func TestUserService_Create_DuplicateEmail(t *testing.T) {
	db := &fakeDB{
		QueryRowFunc: func(ctx context.Context, sql string, args ...any) Row {
			return fakeRow{scanFunc: func(dest ...any) error {
				return &pgconn.PgError{Code: "23505"}
			}}
		},
	}
	_, err := NewUserService(db).Create(context.Background(), modelsCreateUser("a@example.com", "", ""))
	if !errors.Is(err, ErrEmailAlreadyExists) {
		t.Fatalf("expected ErrEmailAlreadyExists, got %v", err)
	}
}

func TestUserService_GetByID_NotFound(t *testing.T) {
	db := &fakeDB{
		QueryRowFunc: func(ctx context.Context, sql string, args ...any) Row {
			return fakeRow{scanFunc: func(dest ...any) error { return pgx.ErrNoRows }}
		},
	}
	if _, err := NewUserService(db).GetByID(context.Background(), uuid.New()); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestUserService_SetAdmin(t *testing.T) {
	db := &fakeDB{
		ExecFunc: func(ctx context.Context, sql string, args ...any) (CommandTag, error) {
			if !strings.Contains(sql, "is_admin") {
				t.Fatalf("unexpected sql: %q", sql)
			}
			return fakeCommandTag{rowsAffected: 0}, nil
		},
	}
	if err := NewUserService(db).SetAdmin(context.Background(), uuid.New(), true); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestUserService_ListRevealRecipients(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	db := &fakeDB{
		QueryFunc: func(ctx context.Context, sql string, args ...any) (Rows, error) {
			if !strings.Contains(sql, "notify_theme_reveal") {
				t.Fatalf("unexpected sql: %q", sql)
			}
			return &fakeRows{rows: [][]any{userValues(a, "a@example.com", false), userValues(b, "b@example.com", true)}}, nil
		},
	}
	users, err := NewUserService(db).ListRevealRecipients(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(users) != 2 || users[0].ID != a || !users[1].IsAdmin {
		t.Fatalf("unexpected users %+v", users)
	}
}

func modelsCreateUser(email, hash, name string) models.CreateUserParams {
	return models.CreateUserParams{Email: email, PasswordHash: hash, Name: name}
}
