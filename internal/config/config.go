package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Contest   ContestConfig
	Media     MediaConfig
	Email     EmailConfig
	OAuth     OAuthConfig
	RateLimit RateLimitConfig
}

type ServerConfig struct {
	Host        string
	Port        int
	Secure      bool   // Use HTTPS-only cookies
	Environment string // "development", "production", "test"
	Debug       bool
	BaseURL     string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// ContestConfig holds the daily contest time rules.
type ContestConfig struct {
	Timezone       string
	QuietStartHour int
	QuietEndHour   int
	MaxUploadBytes int64
	LateThemeLimit int
}

type MediaConfig struct {
	CloudName    string
	UploadPreset string
	BaseURL      string
}

type EmailConfig struct {
	Provider     string // "resend", "console"
	FromAddress  string
	FromName     string
	ResendAPIKey string
}

type OAuthConfig struct {
	Google OAuthProviderConfig
}

type OAuthProviderConfig struct {
	Enabled      bool
	ClientID     string
	ClientSecret string
	RedirectURL  string
	IssuerURL    string
	Scopes       []string
}

type RateLimitConfig struct {
	UploadsPerHour int64
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// UploadURL is the unsigned image upload endpoint of the media CDN.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:        getEnv("SERVER_HOST", "0.0.0.0"),
			Port:        getEnvInt("SERVER_PORT", 8080),
			Secure:      getEnvBool("SERVER_SECURE", false),
			Environment: getEnv("APP_ENV", "development"),
			Debug:       getEnvBool("DEBUG", false),
			BaseURL:     getEnv("APP_BASE_URL", "http://localhost:8080"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "doodle"),
			Password: getEnv("DB_PASSWORD", "doodle"),
			DBName:   getEnv("DB_NAME", "daily_doodle"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Contest: ContestConfig{
			Timezone:       getEnvNonEmpty("CONTEST_TIMEZONE", "Europe/Paris"),
			QuietStartHour: getEnvInt("CONTEST_QUIET_START_HOUR", 0),
			QuietEndHour:   getEnvInt("CONTEST_QUIET_END_HOUR", 6),
			MaxUploadBytes: int64(getEnvInt("CONTEST_MAX_UPLOAD_BYTES", 10<<20)),
			LateThemeLimit: getEnvInt("CONTEST_LATE_THEME_LIMIT", 30),
		},
		Media: MediaConfig{
			CloudName:    getEnv("MEDIA_CLOUD_NAME", ""),
			UploadPreset: getEnv("MEDIA_UPLOAD_PRESET", ""),
			BaseURL:      getEnvNonEmpty("MEDIA_BASE_URL", "https://api.cloudinary.com"),
		},
		Email: EmailConfig{
			Provider:     getEnv("EMAIL_PROVIDER", "console"),
			FromAddress:  getEnv("EMAIL_FROM_ADDRESS", "noreply@dailydoodle.app"),
			FromName:     getEnv("EMAIL_FROM_NAME", "Daily Doodle"),
			ResendAPIKey: getEnv("RESEND_API_KEY", ""),
		},
		OAuth: OAuthConfig{
			Google: OAuthProviderConfig{
				Enabled:      getEnvBool("GOOGLE_OAUTH_ENABLED", false),
				ClientID:     getEnv("GOOGLE_OAUTH_CLIENT_ID", ""),
				ClientSecret: getEnv("GOOGLE_OAUTH_CLIENT_SECRET", ""),
				RedirectURL:  getEnv("GOOGLE_OAUTH_REDIRECT_URL", ""),
				IssuerURL:    getEnvNonEmpty("GOOGLE_OIDC_ISSUER_URL", "https://accounts.google.com"),
				Scopes:       getEnvList("GOOGLE_OIDC_SCOPES", []string{"openid", "email", "profile"}),
			},
		},
		RateLimit: RateLimitConfig{
			UploadsPerHour: int64(getEnvInt("UPLOAD_RATE_LIMIT", 20)),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate rejects settings the contest rules cannot work with.
func (c *Config) Validate() error {
	if c.Contest.QuietStartHour < 0 || c.Contest.QuietStartHour > 23 {
		return fmt.Errorf("CONTEST_QUIET_START_HOUR out of range: %d", c.Contest.QuietStartHour)
	}
	if c.Contest.QuietEndHour < 0 || c.Contest.QuietEndHour > 24 {
		return fmt.Errorf("CONTEST_QUIET_END_HOUR out of range: %d", c.Contest.QuietEndHour)
	}
	if c.Contest.MaxUploadBytes <= 0 {
		return fmt.Errorf("CONTEST_MAX_UPLOAD_BYTES must be positive")
	}
	if c.Contest.LateThemeLimit <= 0 {
		return fmt.Errorf("CONTEST_LATE_THEME_LIMIT must be positive")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvNonEmpty(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		if strings.TrimSpace(value) != "" {
			return value
		}
		return defaultValue
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValues []string) []string {
	if value, exists := os.LookupEnv(key); exists {
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			return defaultValues
		}
		parts := strings.Split(trimmed, ",")
		out := make([]string, 0, len(parts))
		for _, part := range parts {
			item := strings.TrimSpace(part)
			if item != "" {
				out = append(out, item)
			}
		}
		return out
	}
	return defaultValues
}
