package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/HammerMeetNail/dailydoodle/internal/contest"
	"github.com/HammerMeetNail/dailydoodle/internal/logging"
	"github.com/HammerMeetNail/dailydoodle/internal/models"
	"github.com/HammerMeetNail/dailydoodle/internal/realtime"
)

var (
	ErrReactionNotFound = errors.New("reaction not found")
	ErrInvalidEmoji     = errors.New("invalid emoji")
)

type ReactionService struct {
	db   DB
	feed realtime.Publisher
}

func NewReactionService(db DB, feed realtime.Publisher) *ReactionService {
	return &ReactionService{db: db, feed: feed}
}

// SetReaction records the user's single reaction on a drawing. Choosing the
// emoji already set removes it, in which case the returned reaction is nil.
func (s *ReactionService) SetReaction(ctx context.Context, userID, drawingID uuid.UUID, emoji string) (*models.Reaction, error) {
	if !models.IsAllowedEmoji(emoji) {
		return nil, ErrInvalidEmoji
	}

	var (
		result    *models.Reaction
		eventType realtime.EventType
		eventID   uuid.UUID
	)
	err := withTx(ctx, s.db, func(tx Tx) error {
		var existingID uuid.UUID
		var existingEmoji string
		err := tx.QueryRow(ctx,
			`SELECT id, emoji FROM reactions WHERE drawing_id = $1 AND user_id = $2 FOR UPDATE`,
			drawingID, userID,
		).Scan(&existingID, &existingEmoji)
		hasExisting := true
		if errors.Is(err, pgx.ErrNoRows) {
			hasExisting = false
		} else if err != nil {
			return fmt.Errorf("checking existing reaction: %w", err)
		}

		if hasExisting && existingEmoji == emoji {
			if _, err := tx.Exec(ctx, `DELETE FROM reactions WHERE id = $1`, existingID); err != nil {
				return fmt.Errorf("removing reaction: %w", err)
			}
			eventType, eventID = realtime.EventDelete, existingID
			return nil
		}

		// xmax is non-zero when ON CONFLICT updated a row another request inserted.
		reaction := &models.Reaction{}
		var existed bool
		var name *string
		var email string
		err = tx.QueryRow(ctx,
			`WITH saved AS (
			   INSERT INTO reactions (drawing_id, user_id, emoji)
			   VALUES ($1, $2, $3)
			   ON CONFLICT (drawing_id, user_id) DO UPDATE SET emoji = EXCLUDED.emoji, created_at = NOW()
			   RETURNING id, drawing_id, user_id, emoji, created_at, (xmax <> 0) AS existed
			 )
			 SELECT s.id, s.drawing_id, s.user_id, s.emoji, s.created_at, s.existed, u.name, u.email
			 FROM saved s
			 JOIN users u ON u.id = s.user_id`,
			drawingID, userID, emoji,
		).Scan(&reaction.ID, &reaction.DrawingID, &reaction.UserID, &reaction.Emoji, &reaction.CreatedAt, &existed, &name, &email)
		if err != nil {
			if isForeignKeyViolation(err) {
				return ErrDrawingNotFound
			}
			return fmt.Errorf("saving reaction: %w", err)
		}
		reaction.User = &models.UserSummary{ID: reaction.UserID, Name: name, Email: email}
		result = reaction
		eventID = reaction.ID
		eventType = realtime.EventInsert
		if hasExisting || existed {
			eventType = realtime.EventUpdate
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	var record any
	if result != nil {
		record = result
	}
	s.publish(ctx, eventType, eventID, drawingID, record)
	return result, nil
}

func (s *ReactionService) RemoveReaction(ctx context.Context, userID, drawingID uuid.UUID) error {
	var id uuid.UUID
	err := s.db.QueryRow(ctx,
		`DELETE FROM reactions WHERE drawing_id = $1 AND user_id = $2 RETURNING id`,
		drawingID, userID,
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrReactionNotFound
	}
	if err != nil {
		return fmt.Errorf("removing reaction: %w", err)
	}
	s.publish(ctx, realtime.EventDelete, id, drawingID, nil)
	return nil
}

// ListForDrawing returns reactions oldest first with their authors.
func (s *ReactionService) ListForDrawing(ctx context.Context, drawingID uuid.UUID) ([]models.Reaction, error) {
	rows, err := s.db.Query(ctx,
		`SELECT r.id, r.drawing_id, r.user_id, r.emoji, r.created_at, u.name, u.email
		 FROM reactions r
		 JOIN users u ON u.id = r.user_id
		 WHERE r.drawing_id = $1
		 ORDER BY r.created_at ASC, r.id ASC`,
		drawingID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing reactions: %w", err)
	}
	defer rows.Close()

	reactions := []models.Reaction{}
	for rows.Next() {
		var r models.Reaction
		var name *string
		var email string
		if err := rows.Scan(&r.ID, &r.DrawingID, &r.UserID, &r.Emoji, &r.CreatedAt, &name, &email); err != nil {
			return nil, fmt.Errorf("scanning reaction: %w", err)
		}
		r.User = &models.UserSummary{ID: r.UserID, Name: name, Email: email}
		reactions = append(reactions, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating reactions: %w", err)
	}
	return reactions, nil
}

func (s *ReactionService) Summary(ctx context.Context, drawingID uuid.UUID) ([]models.ReactionSummary, error) {
	reactions, err := s.ListForDrawing(ctx, drawingID)
	if err != nil {
		return nil, err
	}
	return contest.AggregateReactions(reactions), nil
}

// UserReaction returns the emoji the user has on the drawing, if any.
func (s *ReactionService) UserReaction(ctx context.Context, userID, drawingID uuid.UUID) (string, bool, error) {
	var emoji string
	err := s.db.QueryRow(ctx,
		`SELECT emoji FROM reactions WHERE drawing_id = $1 AND user_id = $2`,
		drawingID, userID,
	).Scan(&emoji)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("getting reaction: %w", err)
	}
	return emoji, true, nil
}

func (s *ReactionService) publish(ctx context.Context, typ realtime.EventType, id, drawingID uuid.UUID, record any) {
	if err := realtime.PublishChange(ctx, s.feed, realtime.TableReactions, typ, id, drawingID, record); err != nil {
		logging.Warn("publishing reaction change failed", map[string]interface{}{
			"drawing_id": drawingID.String(),
			"error":      err.Error(),
		})
	}
}
