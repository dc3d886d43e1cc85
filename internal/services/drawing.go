package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/HammerMeetNail/dailydoodle/internal/contest"
	"github.com/HammerMeetNail/dailydoodle/internal/logging"
	"github.com/HammerMeetNail/dailydoodle/internal/models"
	"github.com/HammerMeetNail/dailydoodle/internal/realtime"
)

var (
	ErrInvalidUpload    = errors.New("invalid upload")
	ErrNoActiveTheme    = errors.New("no active theme today")
	ErrSubmissionClosed = errors.New("submissions are closed for this theme")
	ErrAlreadySubmitted = errors.New("already submitted for this theme")
	ErrDrawingNotFound  = errors.New("drawing not found")
	ErrThemeNotOpen     = errors.New("theme is not open for submissions")
)

const (
	DefaultDrawingTitle     = "Untitled"
	DefaultLateDrawingTitle = "Untitled (late)"
	DefaultMaxUploadBytes   = 10 << 20
	maxDrawingTitleLength   = 120
	maxDrawingDescLength    = 1000
	sniffLength             = 512
)

var allowedImageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// SubmitParams is one uploaded drawing plus its form fields.
type SubmitParams struct {
	Title       string
	Description string
	Filename    string
	Size        int64
	File        io.Reader
}

// ThemeLookup is the part of ThemeService the submission gate depends on.
type ThemeLookup interface {
	Today(ctx context.Context) (*models.TodayTheme, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Theme, error)
	ListPastActive(ctx context.Context, date string, limit int) ([]models.Theme, error)
}

type DrawingOptions struct {
	MaxUploadBytes int64
	LateThemeLimit int
}

type DrawingService struct {
	db             DB
	themes         ThemeLookup
	clock          *contest.Clock
	media          MediaUploader
	feed           realtime.Publisher
	httpClient     *http.Client
	maxUploadBytes int64
	lateLimit      int
}

func NewDrawingService(db DB, themes ThemeLookup, clock *contest.Clock, media MediaUploader, feed realtime.Publisher, opts DrawingOptions) *DrawingService {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if opts.LateThemeLimit <= 0 {
		opts.LateThemeLimit = 30
	}
	return &DrawingService{
		db:             db,
		themes:         themes,
		clock:          clock,
		media:          media,
		feed:           feed,
		httpClient:     &http.Client{Timeout: 30 * time.Second},
		maxUploadBytes: opts.MaxUploadBytes,
		lateLimit:      opts.LateThemeLimit,
	}
}

// CheckEligibility returns ErrAlreadySubmitted when the user already has a
// drawing for the theme.
func (s *DrawingService) CheckEligibility(ctx context.Context, userID, themeID uuid.UUID) error {
	return checkEligibility(ctx, s.db, userID, themeID)
}

func checkEligibility(ctx context.Context, q DBConn, userID, themeID uuid.UUID) error {
	var exists bool
	err := q.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM drawings WHERE user_id = $1 AND theme_id = $2)`,
		userID, themeID,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("checking existing drawing: %w", err)
	}
	if exists {
		return ErrAlreadySubmitted
	}
	return nil
}

// Submit posts a drawing for today's theme. Nothing is uploaded or written
// unless a theme is active, the day is still open and the user has not
// already submitted.
func (s *DrawingService) Submit(ctx context.Context, userID uuid.UUID, params SubmitParams) (*models.Drawing, error) {
	body, ext, err := s.validateUpload(params)
	if err != nil {
		return nil, err
	}

	today, err := s.themes.Today(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolving today's theme: %w", err)
	}
	if today.Status != models.ThemeStatusActive || today.Theme == nil {
		return nil, ErrNoActiveTheme
	}
	if !s.clock.SubmissionOpen(today.Theme.Date, s.clock.Now()) {
		return nil, ErrSubmissionClosed
	}

	return s.submitFor(ctx, userID, today.Theme, params, body, ext, DefaultDrawingTitle, ErrNoActiveTheme)
}

// LateCandidates lists recent active themes the user has not drawn for yet.
func (s *DrawingService) LateCandidates(ctx context.Context, userID uuid.UUID) ([]models.Theme, error) {
	now := s.clock.Now()
	today := s.clock.Today(now)
	themes, err := s.themes.ListPastActive(ctx, today, s.lateLimit)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query(ctx,
		`SELECT theme_id FROM drawings WHERE user_id = $1 AND theme_id IS NOT NULL`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing submitted themes: %w", err)
	}
	defer rows.Close()

	submitted := make(map[uuid.UUID]struct{})
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning theme id: %w", err)
		}
		submitted[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating submitted themes: %w", err)
	}

	candidates := []models.Theme{}
	for _, t := range themes {
		if !s.revealed(t.Date, now) {
			continue
		}
		if _, done := submitted[t.ID]; !done {
			candidates = append(candidates, t)
		}
	}
	return candidates, nil
}

// SubmitLate posts a drawing for a past or current active theme. The daily
// cutoff does not apply.
func (s *DrawingService) SubmitLate(ctx context.Context, userID, themeID uuid.UUID, params SubmitParams) (*models.Drawing, error) {
	body, ext, err := s.validateUpload(params)
	if err != nil {
		return nil, err
	}

	theme, err := s.themes.GetByID(ctx, themeID)
	if err != nil {
		return nil, err
	}
	if !theme.IsActive || !s.revealed(theme.Date, s.clock.Now()) {
		return nil, ErrThemeNotOpen
	}

	return s.submitFor(ctx, userID, theme, params, body, ext, DefaultLateDrawingTitle, ErrThemeNotOpen)
}

// revealed reports whether a theme dated date is public at now. Today's theme
// stays hidden during the quiet window; future themes always do.
func (s *DrawingService) revealed(date string, now time.Time) bool {
	today := s.clock.Today(now)
	if date == today {
		return !s.clock.InQuietWindow(now)
	}
	return date < today
}

func (s *DrawingService) submitFor(ctx context.Context, userID uuid.UUID, theme *models.Theme, params SubmitParams, body io.Reader, ext, fallbackTitle string, inactiveErr error) (*models.Drawing, error) {
	if err := s.CheckEligibility(ctx, userID, theme.ID); err != nil {
		return nil, err
	}

	imageURL, err := s.media.Upload(ctx, fmt.Sprintf("%s_%s%s", theme.Date, userID, ext), body)
	if err != nil {
		return nil, err
	}

	title := strings.TrimSpace(params.Title)
	if title == "" {
		title = fallbackTitle
	}
	var description *string
	if d := strings.TrimSpace(params.Description); d != "" {
		description = &d
	}

	drawing := &models.Drawing{}
	err = withTx(ctx, s.db, func(tx Tx) error {
		if err := lockUserForUpdate(ctx, tx, userID); err != nil {
			return err
		}
		active, err := lockThemeForShare(ctx, tx, theme.ID)
		if err != nil {
			return err
		}
		if !active {
			return inactiveErr
		}
		if err := checkEligibility(ctx, tx, userID, theme.ID); err != nil {
			return err
		}

		err = tx.QueryRow(ctx,
			`INSERT INTO drawings (user_id, theme_id, image_url, title, description)
			 VALUES ($1, $2, $3, $4, $5)
			 RETURNING id, user_id, theme_id, image_url, title, description, created_at`,
			userID, theme.ID, imageURL, title, description,
		).Scan(&drawing.ID, &drawing.UserID, &drawing.ThemeID, &drawing.ImageURL, &drawing.Title, &drawing.Description, &drawing.CreatedAt)
		if err != nil {
			if isUniqueViolation(err) {
				return ErrAlreadySubmitted
			}
			return fmt.Errorf("inserting drawing: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := realtime.PublishChange(ctx, s.feed, realtime.TableDrawings, realtime.EventInsert, drawing.ID, drawing.ID, drawing); err != nil {
		logging.Warn("publishing drawing insert failed", map[string]interface{}{"drawing_id": drawing.ID.String(), "error": err.Error()})
	}
	return drawing, nil
}

// validateUpload checks size and sniffs the content type, returning a reader
// that still yields the whole file.
func (s *DrawingService) validateUpload(params SubmitParams) (io.Reader, string, error) {
	if params.File == nil {
		return nil, "", fmt.Errorf("%w: a file is required", ErrInvalidUpload)
	}
	if params.Size <= 0 {
		return nil, "", fmt.Errorf("%w: file is empty", ErrInvalidUpload)
	}
	if params.Size > s.maxUploadBytes {
		return nil, "", fmt.Errorf("%w: file exceeds %d bytes", ErrInvalidUpload, s.maxUploadBytes)
	}
	if len(strings.TrimSpace(params.Title)) > maxDrawingTitleLength {
		return nil, "", fmt.Errorf("%w: title must be at most %d characters", ErrInvalidUpload, maxDrawingTitleLength)
	}
	if len(strings.TrimSpace(params.Description)) > maxDrawingDescLength {
		return nil, "", fmt.Errorf("%w: description must be at most %d characters", ErrInvalidUpload, maxDrawingDescLength)
	}

	head := make([]byte, sniffLength)
	n, err := io.ReadFull(params.File, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, "", fmt.Errorf("reading upload: %w", err)
	}
	head = head[:n]
	contentType := http.DetectContentType(head)
	ext, ok := allowedImageTypes[contentType]
	if !ok {
		return nil, "", fmt.Errorf("%w: unsupported file type %s", ErrInvalidUpload, contentType)
	}
	return io.MultiReader(bytes.NewReader(head), params.File), ext, nil
}

func (s *DrawingService) GetByID(ctx context.Context, id uuid.UUID) (*models.DrawingWithTheme, error) {
	drawings, err := queryDrawings(ctx, s.db, drawingSelect().Where(squirrel.Eq{"d.id": id}))
	if err != nil {
		return nil, err
	}
	if len(drawings) == 0 {
		return nil, ErrDrawingNotFound
	}
	return &drawings[0], nil
}

// Delete removes a drawing with its comments and reactions.
func (s *DrawingService) Delete(ctx context.Context, id uuid.UUID) error {
	var deleted uuid.UUID
	err := s.db.QueryRow(ctx, `DELETE FROM drawings WHERE id = $1 RETURNING id`, id).Scan(&deleted)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrDrawingNotFound
	}
	if err != nil {
		return fmt.Errorf("deleting drawing: %w", err)
	}
	if err := realtime.PublishChange(ctx, s.feed, realtime.TableDrawings, realtime.EventDelete, id, id, nil); err != nil {
		logging.Warn("publishing drawing delete failed", map[string]interface{}{"drawing_id": id.String(), "error": err.Error()})
	}
	return nil
}

// DrawingDownload is an open image stream ready to be sent as an attachment.
type DrawingDownload struct {
	Body          io.ReadCloser
	ContentType   string
	ContentLength int64
	Filename      string
}

// Download fetches the stored image. The caller must close Body.
func (s *DrawingService) Download(ctx context.Context, id uuid.UUID) (*DrawingDownload, error) {
	drawing, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, drawing.ImageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating image request: %w", err)
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMediaUpload, err)
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("%w: image fetch returned %d", ErrMediaUpload, resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return &DrawingDownload{
		Body:          resp.Body,
		ContentType:   contentType,
		ContentLength: resp.ContentLength,
		Filename:      DownloadFilename(drawing.Title, drawing.ImageURL),
	}, nil
}

// DownloadFilename builds a filesystem-safe name from the title and the
// extension of the stored image URL.
func DownloadFilename(title, imageURL string) string {
	var b strings.Builder
	lastDash := false
	for _, r := range strings.ToLower(strings.TrimSpace(title)) {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
			lastDash = false
		case !lastDash && b.Len() > 0:
			b.WriteByte('-')
			lastDash = true
		}
	}
	name := strings.Trim(b.String(), "-")
	if name == "" {
		name = "drawing"
	}
	if len(name) > 80 {
		name = strings.Trim(name[:80], "-")
	}

	ext := ".png"
	path := imageURL
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	if slash := strings.LastIndex(path, "/"); slash >= 0 {
		if dot := strings.LastIndex(path[slash:], "."); dot >= 0 {
			candidate := strings.ToLower(path[slash+dot:])
			switch candidate {
			case ".jpg", ".jpeg", ".png", ".gif", ".webp":
				ext = candidate
			}
		}
	}
	return name + ext
}
