package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/HammerMeetNail/dailydoodle/internal/models"
)

// Interfaces consumed by the HTTP handlers. Each concrete service is
// asserted against its interface below.

type AuthServiceInterface interface {
	Register(ctx context.Context, email, password, name string) (*models.User, error)
	Login(ctx context.Context, email, password string) (*models.User, error)
	CreateSession(ctx context.Context, userID uuid.UUID) (string, error)
	ValidateSession(ctx context.Context, token string) (*models.User, error)
	DeleteSession(ctx context.Context, token string) error
}

type UserServiceInterface interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdateNotifyThemeReveal(ctx context.Context, userID uuid.UUID, enabled bool) error
}

type ProviderAuthServiceInterface interface {
	LinkOrCreateUser(ctx context.Context, claims IdentityClaims) (*models.User, error)
}

type ThemeServiceInterface interface {
	Today(ctx context.Context) (*models.TodayTheme, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Theme, error)
	List(ctx context.Context) ([]models.Theme, error)
	Create(ctx context.Context, params models.CreateThemeParams) (*models.Theme, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) (*models.Theme, error)
	Delete(ctx context.Context, id uuid.UUID) error
	RemoveReferenceImage(ctx context.Context, id uuid.UUID, imageURL string) (*models.Theme, error)
}

type DrawingServiceInterface interface {
	CheckEligibility(ctx context.Context, userID, themeID uuid.UUID) error
	Submit(ctx context.Context, userID uuid.UUID, params SubmitParams) (*models.Drawing, error)
	LateCandidates(ctx context.Context, userID uuid.UUID) ([]models.Theme, error)
	SubmitLate(ctx context.Context, userID, themeID uuid.UUID, params SubmitParams) (*models.Drawing, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.DrawingWithTheme, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Download(ctx context.Context, id uuid.UUID) (*DrawingDownload, error)
}

type GalleryServiceInterface interface {
	Gallery(ctx context.Context) ([]models.DrawingWithTheme, error)
	History(ctx context.Context, limit int) ([]models.HistoryGroup, error)
	Profile(ctx context.Context, userID uuid.UUID) (*models.Profile, error)
	Detail(ctx context.Context, drawingID, viewer uuid.UUID) (*models.DrawingDetail, error)
}

type ReactionServiceInterface interface {
	SetReaction(ctx context.Context, userID, drawingID uuid.UUID, emoji string) (*models.Reaction, error)
	RemoveReaction(ctx context.Context, userID, drawingID uuid.UUID) error
	ListForDrawing(ctx context.Context, drawingID uuid.UUID) ([]models.Reaction, error)
}

type CommentServiceInterface interface {
	List(ctx context.Context, drawingID, viewer uuid.UUID) ([]models.Comment, error)
	Create(ctx context.Context, userID, drawingID uuid.UUID, content string) (*models.Comment, error)
	Update(ctx context.Context, userID, commentID uuid.UUID, content string) (*models.Comment, error)
	Delete(ctx context.Context, userID, commentID uuid.UUID) error
	Like(ctx context.Context, userID, commentID uuid.UUID) (*models.CommentLike, error)
	Unlike(ctx context.Context, userID, commentID uuid.UUID) error
}

type StatsServiceInterface interface {
	Stats(ctx context.Context, viewer uuid.UUID) (*models.Stats, error)
}

var (
	_ AuthServiceInterface         = (*AuthService)(nil)
	_ UserServiceInterface         = (*UserService)(nil)
	_ ProviderAuthServiceInterface = (*ProviderAuthService)(nil)
	_ ThemeServiceInterface        = (*ThemeService)(nil)
	_ ThemeLookup                  = (*ThemeService)(nil)
	_ DrawingServiceInterface      = (*DrawingService)(nil)
	_ GalleryServiceInterface      = (*GalleryService)(nil)
	_ ReactionServiceInterface     = (*ReactionService)(nil)
	_ CommentServiceInterface      = (*CommentService)(nil)
	_ StatsServiceInterface        = (*StatsService)(nil)
	_ MediaUploader                = (*CloudinaryUploader)(nil)
	_ EmailSender                  = (*ResendSender)(nil)
	_ EmailSender                  = (*ConsoleSender)(nil)
)
