package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// lockUserForUpdate serializes writes made on behalf of one user for the rest
// of the transaction. A missing user surfaces as ErrUserNotFound.
func lockUserForUpdate(ctx context.Context, q DBConn, userID uuid.UUID) error {
	var lockedID uuid.UUID
	err := q.QueryRow(ctx, `SELECT id FROM users WHERE id = $1 FOR UPDATE`, userID).Scan(&lockedID)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrUserNotFound
	}
	if err != nil {
		return fmt.Errorf("lock user: %w", err)
	}
	return nil
}

// lockThemeForShare keeps a theme from being deleted or deactivated while a
// submission against it is in flight.
func lockThemeForShare(ctx context.Context, q DBConn, themeID uuid.UUID) (active bool, err error) {
	err = q.QueryRow(ctx, `SELECT is_active FROM themes WHERE id = $1 FOR SHARE`, themeID).Scan(&active)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, ErrThemeNotFound
	}
	if err != nil {
		return false, fmt.Errorf("lock theme: %w", err)
	}
	return active, nil
}
