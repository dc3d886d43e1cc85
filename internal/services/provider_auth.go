package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/HammerMeetNail/dailydoodle/internal/models"
)

var (
	ErrInvalidProviderClaims   = errors.New("invalid provider claims")
	ErrProviderEmailUnverified = errors.New("provider email not verified")
)

// ProviderAuthService maps external identities onto local users.
type ProviderAuthService struct {
	db DB
}

func NewProviderAuthService(db DB) *ProviderAuthService {
	return &ProviderAuthService{db: db}
}

// LinkOrCreateUser returns the user linked to claims. A verified email that
// matches an existing account links to it; otherwise a new account is created.
func (s *ProviderAuthService) LinkOrCreateUser(ctx context.Context, claims IdentityClaims) (*models.User, error) {
	provider := strings.TrimSpace(string(claims.Provider))
	subject := strings.TrimSpace(claims.Subject)
	if provider == "" || subject == "" {
		return nil, ErrInvalidProviderClaims
	}

	user, err := s.getUserByProviderSubject(ctx, s.db, claims.Provider, subject)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return nil, err
	}

	email := normalizeEmail(claims.Email)
	if email == "" || !claims.EmailVerified {
		return nil, ErrProviderEmailUnverified
	}

	err = withTx(ctx, s.db, func(tx Tx) error {
		users := NewUserService(tx)
		existing, err := users.GetByEmail(ctx, email)
		switch {
		case err == nil:
			user = existing
		case errors.Is(err, ErrUserNotFound):
			user, err = users.Create(ctx, models.CreateUserParams{Email: email, Name: claims.Name})
			if err != nil {
				return err
			}
		default:
			return err
		}

		if _, err := tx.Exec(ctx,
			`INSERT INTO user_identities (user_id, provider, subject, email)
			 VALUES ($1, $2, $3, $4)`,
			user.ID, claims.Provider, subject, email,
		); err != nil {
			return fmt.Errorf("linking user identity: %w", err)
		}
		return nil
	})
	if err != nil {
		// A concurrent callback for the same identity won the race.
		if isUniqueViolation(err) || errors.Is(err, ErrEmailAlreadyExists) {
			return s.getUserByProviderSubject(ctx, s.db, claims.Provider, subject)
		}
		return nil, err
	}
	return user, nil
}

func (s *ProviderAuthService) getUserByProviderSubject(ctx context.Context, db DBConn, provider Provider, subject string) (*models.User, error) {
	user, err := scanUser(db.QueryRow(ctx,
		`SELECT u.id, u.email, u.name, COALESCE(u.password_hash, ''), u.is_admin, u.notify_theme_reveal, u.created_at
		 FROM user_identities ui
		 JOIN users u ON u.id = ui.user_id
		 WHERE ui.provider = $1 AND ui.subject = $2`,
		provider, subject,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting user by provider subject: %w", err)
	}
	return user, nil
}
