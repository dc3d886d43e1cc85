package services

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/HammerMeetNail/dailydoodle/internal/contest"
	"github.com/HammerMeetNail/dailydoodle/internal/models"
)

const defaultHistoryLimit = 500

// GalleryService serves the read side: yesterday's gallery, the grouped
// history, profiles and the single drawing page.
type GalleryService struct {
	db        DBConn
	clock     *contest.Clock
	users     *UserService
	reactions *ReactionService
	comments  *CommentService
}

func NewGalleryService(db DBConn, clock *contest.Clock, users *UserService, reactions *ReactionService, comments *CommentService) *GalleryService {
	return &GalleryService{db: db, clock: clock, users: users, reactions: reactions, comments: comments}
}

// Gallery lists drawings created during the previous UTC day, newest first.
func (s *GalleryService) Gallery(ctx context.Context) ([]models.DrawingWithTheme, error) {
	now := s.clock.Now().UTC()
	end := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	start := end.AddDate(0, 0, -1)

	q := drawingSelect().
		Where(squirrel.GtOrEq{"d.created_at": start}).
		Where(squirrel.Lt{"d.created_at": end}).
		OrderBy("d.created_at DESC")
	return queryDrawings(ctx, s.db, q)
}

// History groups drawings created before the start of the current contest day.
func (s *GalleryService) History(ctx context.Context, limit int) ([]models.HistoryGroup, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	now := s.clock.Now()
	start, err := time.ParseInLocation(models.DateLayout, s.clock.Today(now), s.clock.Location())
	if err != nil {
		return nil, fmt.Errorf("computing day start: %w", err)
	}

	q := drawingSelect().
		Where(squirrel.Lt{"d.created_at": start}).
		OrderBy("d.created_at DESC").
		Limit(uint64(limit))
	drawings, err := queryDrawings(ctx, s.db, q)
	if err != nil {
		return nil, err
	}
	return contest.GroupHistory(drawings), nil
}

func (s *GalleryService) UserDrawings(ctx context.Context, userID uuid.UUID) ([]models.DrawingWithTheme, error) {
	q := drawingSelect().
		Where(squirrel.Eq{"d.user_id": userID}).
		OrderBy("d.created_at DESC")
	drawings, err := queryDrawings(ctx, s.db, q)
	if err != nil {
		return nil, err
	}
	contest.MarkLate(drawings)
	return drawings, nil
}

func (s *GalleryService) Profile(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	drawings, err := s.UserDrawings(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &models.Profile{User: user.Summary(), Drawings: drawings}, nil
}

// Detail assembles the drawing page. viewer is uuid.Nil for anonymous visitors.
func (s *GalleryService) Detail(ctx context.Context, drawingID, viewer uuid.UUID) (*models.DrawingDetail, error) {
	drawings, err := queryDrawings(ctx, s.db, drawingSelect().Where(squirrel.Eq{"d.id": drawingID}))
	if err != nil {
		return nil, err
	}
	if len(drawings) == 0 {
		return nil, ErrDrawingNotFound
	}

	reactions, err := s.reactions.ListForDrawing(ctx, drawingID)
	if err != nil {
		return nil, err
	}
	comments, err := s.comments.List(ctx, drawingID, viewer)
	if err != nil {
		return nil, err
	}

	detail := &models.DrawingDetail{
		Drawing:   drawings[0],
		Reactions: contest.AggregateReactions(reactions),
		Comments:  comments,
	}
	if viewer != uuid.Nil {
		if emoji, ok := contest.CurrentReaction(reactions, viewer); ok {
			detail.MyReaction = &emoji
		}
	}
	return detail, nil
}
