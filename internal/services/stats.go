package services

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/HammerMeetNail/dailydoodle/internal/models"
)

const topDrawingsLimit = 3

type StatsService struct {
	db DBConn
}

func NewStatsService(db DBConn) *StatsService {
	return &StatsService{db: db}
}

// Stats computes the site totals and, when viewer is set, the viewer's own numbers.
func (s *StatsService) Stats(ctx context.Context, viewer uuid.UUID) (*models.Stats, error) {
	stats := &models.Stats{}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := s.db.QueryRow(gctx,
			`SELECT
				(SELECT COUNT(*) FROM drawings),
				(SELECT COUNT(*) FROM reactions),
				(SELECT COUNT(*) FROM themes WHERE is_active)`,
		).Scan(&stats.TotalDrawings, &stats.TotalReactions, &stats.TotalThemes)
		if err != nil {
			return fmt.Errorf("counting totals: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		q := drawingSelect().
			OrderBy("reaction_count DESC", "d.created_at ASC").
			Limit(topDrawingsLimit)
		top, err := queryDrawings(gctx, s.db, q)
		if err != nil {
			return err
		}
		stats.TopDrawings = top
		return nil
	})

	if viewer != uuid.Nil {
		g.Go(func() error {
			mine, err := s.userStats(gctx, viewer)
			if err != nil {
				return err
			}
			stats.Mine = mine
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return stats, nil
}

func (s *StatsService) userStats(ctx context.Context, userID uuid.UUID) (*models.UserStats, error) {
	mine := &models.UserStats{}
	err := s.db.QueryRow(ctx,
		`SELECT
			(SELECT COUNT(*) FROM reactions r JOIN drawings d ON d.id = r.drawing_id WHERE d.user_id = $1),
			(SELECT COUNT(*) FROM reactions WHERE user_id = $1),
			(SELECT COUNT(*) FROM comments WHERE user_id = $1)`,
		userID,
	).Scan(&mine.ReactionsReceived, &mine.ReactionsGiven, &mine.Comments)
	if err != nil {
		return nil, fmt.Errorf("counting user stats: %w", err)
	}

	drawings, err := queryDrawings(ctx, s.db, drawingSelect().Where(squirrel.Eq{"d.user_id": userID}))
	if err != nil {
		return nil, err
	}
	mine.Drawings = len(drawings)
	for _, d := range drawings {
		if d.IsLate {
			mine.LateDrawings++
		}
	}
	return mine, nil
}
