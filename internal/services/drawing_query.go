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

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

// drawingSelect is the joined drawing + theme + author row every listing shares.
func drawingSelect() squirrel.SelectBuilder {
	return psql.Select(
		"d.id", "d.user_id", "d.theme_id", "d.image_url", "d.title", "d.description", "d.created_at",
		"t.id", "t.title", "t.date",
		"u.name", "u.email",
		"(SELECT COUNT(*) FROM reactions r WHERE r.drawing_id = d.id) AS reaction_count",
	).
		From("drawings d").
		Join("users u ON u.id = d.user_id").
		LeftJoin("themes t ON t.id = d.theme_id")
}

func scanDrawingWithTheme(row Row) (models.DrawingWithTheme, error) {
	var (
		d           models.DrawingWithTheme
		themeID     *uuid.UUID
		themeTitle  *string
		themeDate   *time.Time
		authorName  *string
		authorEmail string
	)
	if err := row.Scan(
		&d.ID, &d.UserID, &d.ThemeID, &d.ImageURL, &d.Title, &d.Description, &d.CreatedAt,
		&themeID, &themeTitle, &themeDate,
		&authorName, &authorEmail,
		&d.ReactionCount,
	); err != nil {
		return d, err
	}

	if themeID != nil {
		ref := &models.ThemeRef{ID: *themeID}
		if themeTitle != nil {
			ref.Title = *themeTitle
		}
		if themeDate != nil {
			ref.Date = themeDate.Format(models.DateLayout)
		}
		d.Theme = ref
		d.IsLate = contest.IsLate(d.CreatedAt, ref.Date)
	}
	d.Author = &models.UserSummary{ID: d.UserID, Name: authorName, Email: authorEmail}
	return d, nil
}

func queryDrawings(ctx context.Context, db DBConn, q squirrel.SelectBuilder) ([]models.DrawingWithTheme, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("building drawing query: %w", err)
	}
	rows, err := db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("querying drawings: %w", err)
	}
	defer rows.Close()

	drawings := []models.DrawingWithTheme{}
	for rows.Next() {
		d, err := scanDrawingWithTheme(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning drawing: %w", err)
		}
		drawings = append(drawings, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating drawings: %w", err)
	}
	return drawings, nil
}
