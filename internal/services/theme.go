package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/HammerMeetNail/dailydoodle/internal/contest"
	"github.com/HammerMeetNail/dailydoodle/internal/models"
)

var (
	ErrThemeNotFound = errors.New("theme not found")
	ErrInvalidTheme  = errors.New("invalid theme")
)

const (
	themeColumns        = `id, title, description, date, is_active, reference_images, created_at`
	maxThemeTitleLength = 200
)

type ThemeService struct {
	db    DBConn
	clock *contest.Clock
}

func NewThemeService(db DBConn, clock *contest.Clock) *ThemeService {
	return &ThemeService{db: db, clock: clock}
}

func scanTheme(row Row) (*models.Theme, error) {
	theme := &models.Theme{}
	var date time.Time
	if err := row.Scan(&theme.ID, &theme.Title, &theme.Description, &date, &theme.IsActive, &theme.ReferenceImages, &theme.CreatedAt); err != nil {
		return nil, err
	}
	theme.Date = date.Format(models.DateLayout)
	if theme.ReferenceImages == nil {
		theme.ReferenceImages = []string{}
	}
	return theme, nil
}

func collectThemes(rows Rows) ([]models.Theme, error) {
	defer rows.Close()
	themes := []models.Theme{}
	for rows.Next() {
		theme, err := scanTheme(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning theme: %w", err)
		}
		themes = append(themes, *theme)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating themes: %w", err)
	}
	return themes, nil
}

// Today resolves the theme for the current contest day. While the theme is
// still hidden the store is not queried at all.
func (s *ThemeService) Today(ctx context.Context) (*models.TodayTheme, error) {
	now := s.clock.Now()
	today := s.clock.Today(now)
	result := &models.TodayTheme{Date: today, Participants: []models.UserSummary{}}

	if s.clock.InQuietWindow(now) {
		result.Status = models.ThemeStatusNotRevealed
		return result, nil
	}

	candidates, err := s.activeForDate(ctx, today)
	if err != nil {
		return nil, err
	}
	status, theme := contest.ResolveToday(candidates, today, false)
	result.Status = status
	if theme == nil {
		return result, nil
	}

	result.Theme = theme
	if deadline, err := s.clock.Deadline(theme.Date); err == nil {
		result.Deadline = &deadline
	}
	participants, err := s.Participants(ctx, theme.ID)
	if err != nil {
		return nil, err
	}
	result.Participants = participants
	return result, nil
}

func (s *ThemeService) activeForDate(ctx context.Context, date string) ([]models.Theme, error) {
	day, err := time.Parse(models.DateLayout, date)
	if err != nil {
		return nil, fmt.Errorf("parsing date %q: %w", date, err)
	}
	rows, err := s.db.Query(ctx,
		`SELECT `+themeColumns+`
		 FROM themes
		 WHERE date = $1 AND is_active
		 ORDER BY created_at`,
		day,
	)
	if err != nil {
		return nil, fmt.Errorf("getting active theme: %w", err)
	}
	return collectThemes(rows)
}

// Participants lists the distinct authors for a theme, earliest submission first.
func (s *ThemeService) Participants(ctx context.Context, themeID uuid.UUID) ([]models.UserSummary, error) {
	rows, err := s.db.Query(ctx,
		`SELECT u.id, u.name, u.email
		 FROM users u
		 JOIN (
		   SELECT user_id, MIN(created_at) AS first_at
		   FROM drawings
		   WHERE theme_id = $1
		   GROUP BY user_id
		 ) d ON d.user_id = u.id
		 ORDER BY d.first_at`,
		themeID,
	)
	if err != nil {
		return nil, fmt.Errorf("getting participants: %w", err)
	}
	defer rows.Close()

	participants := []models.UserSummary{}
	for rows.Next() {
		var p models.UserSummary
		if err := rows.Scan(&p.ID, &p.Name, &p.Email); err != nil {
			return nil, fmt.Errorf("scanning participant: %w", err)
		}
		participants = append(participants, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating participants: %w", err)
	}
	return participants, nil
}

func (s *ThemeService) GetByID(ctx context.Context, id uuid.UUID) (*models.Theme, error) {
	theme, err := scanTheme(s.db.QueryRow(ctx, `SELECT `+themeColumns+` FROM themes WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrThemeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting theme: %w", err)
	}
	return theme, nil
}

// List returns every theme in calendar order.
func (s *ThemeService) List(ctx context.Context) ([]models.Theme, error) {
	rows, err := s.db.Query(ctx, `SELECT `+themeColumns+` FROM themes ORDER BY date ASC, created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("listing themes: %w", err)
	}
	return collectThemes(rows)
}

// ListPastActive returns active themes dated on or before date, newest first.
func (s *ThemeService) ListPastActive(ctx context.Context, date string, limit int) ([]models.Theme, error) {
	day, err := time.Parse(models.DateLayout, date)
	if err != nil {
		return nil, fmt.Errorf("parsing date %q: %w", date, err)
	}
	rows, err := s.db.Query(ctx,
		`SELECT `+themeColumns+`
		 FROM themes
		 WHERE is_active AND date <= $1
		 ORDER BY date DESC
		 LIMIT $2`,
		day, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing past themes: %w", err)
	}
	return collectThemes(rows)
}

func ValidateThemeParams(params models.CreateThemeParams) (time.Time, error) {
	title := strings.TrimSpace(params.Title)
	if title == "" || len(title) > maxThemeTitleLength {
		return time.Time{}, fmt.Errorf("%w: title must be between 1 and %d characters", ErrInvalidTheme, maxThemeTitleLength)
	}
	day, err := time.Parse(models.DateLayout, strings.TrimSpace(params.Date))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date must be YYYY-MM-DD", ErrInvalidTheme)
	}
	return day, nil
}

func (s *ThemeService) Create(ctx context.Context, params models.CreateThemeParams) (*models.Theme, error) {
	day, err := ValidateThemeParams(params)
	if err != nil {
		return nil, err
	}

	var description *string
	if d := strings.TrimSpace(params.Description); d != "" {
		description = &d
	}
	images := params.ReferenceImages
	if images == nil {
		images = []string{}
	}

	theme, err := scanTheme(s.db.QueryRow(ctx,
		`INSERT INTO themes (title, description, date, is_active, reference_images)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING `+themeColumns,
		strings.TrimSpace(params.Title), description, day, params.IsActive, images,
	))
	if err != nil {
		return nil, fmt.Errorf("creating theme: %w", err)
	}
	return theme, nil
}

func (s *ThemeService) SetActive(ctx context.Context, id uuid.UUID, active bool) (*models.Theme, error) {
	theme, err := scanTheme(s.db.QueryRow(ctx,
		`UPDATE themes SET is_active = $1 WHERE id = $2 RETURNING `+themeColumns,
		active, id,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrThemeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("updating theme: %w", err)
	}
	return theme, nil
}

func (s *ThemeService) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := s.db.Exec(ctx, `DELETE FROM themes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting theme: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrThemeNotFound
	}
	return nil
}

func (s *ThemeService) RemoveReferenceImage(ctx context.Context, id uuid.UUID, imageURL string) (*models.Theme, error) {
	theme, err := scanTheme(s.db.QueryRow(ctx,
		`UPDATE themes SET reference_images = array_remove(reference_images, $1)
		 WHERE id = $2
		 RETURNING `+themeColumns,
		imageURL, id,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrThemeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("removing reference image: %w", err)
	}
	return theme, nil
}
