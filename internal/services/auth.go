package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/HammerMeetNail/dailydoodle/internal/database"
	"github.com/HammerMeetNail/dailydoodle/internal/models"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidEmail       = errors.New("invalid email")
	ErrWeakPassword       = errors.New("password too weak")
	ErrSessionNotFound    = errors.New("session not found")
)

const (
	SessionDuration   = 30 * 24 * time.Hour
	MinPasswordLength = 8
	bcryptCost        = 12
)

type AuthService struct {
	users *UserService
	redis RedisClient
}

func NewAuthService(db DBConn, redis RedisClient) *AuthService {
	return &AuthService{users: NewUserService(db), redis: redis}
}

func (s *AuthService) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(hash), nil
}

func (s *AuthService) CheckPassword(hash, password string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func (s *AuthService) Register(ctx context.Context, email, password, name string) (*models.User, error) {
	email = normalizeEmail(email)
	if _, err := mail.ParseAddress(email); err != nil || !strings.Contains(email, "@") {
		return nil, ErrInvalidEmail
	}
	if len(password) < MinPasswordLength {
		return nil, ErrWeakPassword
	}

	hash, err := s.HashPassword(password)
	if err != nil {
		return nil, err
	}
	return s.users.Create(ctx, models.CreateUserParams{Email: email, PasswordHash: hash, Name: name})
}

// Login checks credentials. Unknown emails and wrong passwords look the same to callers.
func (s *AuthService) Login(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !s.CheckPassword(user.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

func (s *AuthService) CreateSession(ctx context.Context, userID uuid.UUID) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating session token: %w", err)
	}
	token := base64.RawURLEncoding.EncodeToString(buf)

	if err := s.redis.Set(ctx, sessionKey(token), userID.String(), SessionDuration); err != nil {
		return "", fmt.Errorf("storing session: %w", err)
	}
	return token, nil
}

// ValidateSession resolves a session token to its user and extends the session.
func (s *AuthService) ValidateSession(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, ErrSessionNotFound
	}
	key := sessionKey(token)
	raw, err := s.redis.Get(ctx, key)
	if errors.Is(err, ErrCacheMiss) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading session: %w", err)
	}

	userID, err := uuid.Parse(raw)
	if err != nil {
		_ = s.redis.Del(ctx, key)
		return nil, ErrSessionNotFound
	}

	user, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, ErrUserNotFound) {
		_ = s.redis.Del(ctx, key)
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}

	_ = s.redis.Expire(ctx, key, SessionDuration)
	return user, nil
}

func (s *AuthService) DeleteSession(ctx context.Context, token string) error {
	if err := s.redis.Del(ctx, sessionKey(token)); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

// Sessions are keyed by a digest so a leaked keyspace does not leak tokens.
func sessionKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return database.Key("session", hex.EncodeToString(sum[:]))
}
