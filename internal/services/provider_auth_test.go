package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

func noRows() Row {
	return fakeRow{scanFunc: func(dest ...any) error { return pgx.ErrNoRows }}
}

func TestProviderAuth_LinkOrCreate_InvalidClaims(t *testing.T) {
	service := NewProviderAuthService(&fakeDB{})

	_, err := service.LinkOrCreateUser(context.Background(), IdentityClaims{})
	if !errors.Is(err, ErrInvalidProviderClaims) {
		t.Fatalf("expected ErrInvalidProviderClaims, got %v", err)
	}
}

func TestProviderAuth_LinkOrCreate_ExistingIdentity(t *testing.T) {
	userID := uuid.New()
	db := &fakeDB{
		QueryRowFunc: func(ctx context.Context, sql string, args ...any) Row {
			if !strings.Contains(sql, "user_identities") {
				t.Fatalf("unexpected sql: %q", sql)
			}
			return rowFromValues(userValues(userID, "a@example.com", false)...)
		},
	}
	user, err := NewProviderAuthService(db).LinkOrCreateUser(context.Background(), IdentityClaims{Provider: ProviderGoogle, Subject: "sub"})
	if err != nil || user.ID != userID {
		t.Fatalf("expected linked user, got %+v %v", user, err)
	}
}

func TestProviderAuth_LinkOrCreate_UnverifiedEmail(t *testing.T) {
	db := &fakeDB{
		QueryRowFunc: func(ctx context.Context, sql string, args ...any) Row { return noRows() },
	}
	_, err := NewProviderAuthService(db).LinkOrCreateUser(context.Background(), IdentityClaims{
		Provider:      ProviderGoogle,
		Subject:       "sub",
		Email:         "test@example.com",
		EmailVerified: false,
	})
	if !errors.Is(err, ErrProviderEmailUnverified) {
		t.Fatalf("expected ErrProviderEmailUnverified, got %v", err)
	}
}

func TestProviderAuth_LinkOrCreate_CreatesUser(t *testing.T) {
	userID := uuid.New()
	var committed bool
	var linked []any

	tx := &fakeTx{
		QueryRowFunc: func(ctx context.Context, sql string, args ...any) Row {
			switch {
			case strings.Contains(sql, "FROM users WHERE email"):
				return noRows()
			case strings.Contains(sql, "INSERT INTO users"):
				if args[0] != "test@example.com" {
					t.Fatalf("expected normalized email, got %v", args[0])
				}
				return rowFromValues(userValues(userID, "test@example.com", false)...)
			default:
				t.Fatalf("unexpected sql: %q", sql)
				return nil
			}
		},
		ExecFunc: func(ctx context.Context, sql string, args ...any) (CommandTag, error) {
			linked = args
			return fakeCommandTag{rowsAffected: 1}, nil
		},
		CommitFunc: func(ctx context.Context) error {
			committed = true
			return nil
		},
	}
	db := &fakeDB{
		QueryRowFunc: func(ctx context.Context, sql string, args ...any) Row { return noRows() },
		BeginFunc:    func(ctx context.Context) (Tx, error) { return tx, nil },
	}

	user, err := NewProviderAuthService(db).LinkOrCreateUser(context.Background(), IdentityClaims{
		Provider:      ProviderGoogle,
		Subject:       "sub",
		Email:         "Test@Example.com",
		EmailVerified: true,
		Name:          "Tess",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !committed {
		t.Fatal("expected transaction commit")
	}
	if user.ID != userID {
		t.Fatalf("expected user id %v, got %v", userID, user.ID)
	}
	if len(linked) != 4 || linked[0] != userID || linked[2] != "sub" {
		t.Fatalf("unexpected identity link args %v", linked)
	}
}

func TestProviderAuth_LinkOrCreate_RaceFallsBackToLookup(t *testing.T) {
	userID := uuid.New()
	lookups := 0
	tx := &fakeTx{
		QueryRowFunc: func(ctx context.Context, sql string, args ...any) Row {
			return rowFromValues(userValues(userID, "a@example.com", false)...)
		},
		ExecFunc: func(ctx context.Context, sql string, args ...any) (CommandTag, error) {
			return nil, &pgconn.PgError{Code: "23505"}
		},
	}
	db := &fakeDB{
		QueryRowFunc: func(ctx context.Context, sql string, args ...any) Row {
			lookups++
			if lookups == 1 {
				return noRows()
			}
			return rowFromValues(userValues(userID, "a@example.com", false)...)
		},
		BeginFunc: func(ctx context.Context) (Tx, error) { return tx, nil },
	}

	user, err := NewProviderAuthService(db).LinkOrCreateUser(context.Background(), IdentityClaims{
		Provider: ProviderGoogle, Subject: "sub", Email: "a@example.com", EmailVerified: true,
	})
	if err != nil || user.ID != userID {
		t.Fatalf("expected fallback lookup to succeed, got %+v %v", user, err)
	}
	if lookups != 2 {
		t.Fatalf("expected 2 identity lookups, got %d", lookups)
	}
}
