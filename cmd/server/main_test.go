package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/HammerMeetNail/dailydoodle/internal/config"
	"github.com/HammerMeetNail/dailydoodle/internal/logging"
)

func noEnv(string) (string, bool) { return "", false }

func TestResolveUploadRateLimit_Defaults(t *testing.T) {
	logger := logging.New().SetOutput(&bytes.Buffer{})
	cfg := &config.Config{
		Server:    config.ServerConfig{Environment: "production"},
		RateLimit: config.RateLimitConfig{UploadsPerHour: 20},
	}

	if limit := resolveUploadRateLimit(cfg, logger, noEnv); limit != 20 {
		t.Fatalf("expected configured limit 20, got %d", limit)
	}
}

func TestResolveUploadRateLimit_ZeroFallsBack(t *testing.T) {
	logger := logging.New().SetOutput(&bytes.Buffer{})
	cfg := &config.Config{Server: config.ServerConfig{Environment: "production"}}

	if limit := resolveUploadRateLimit(cfg, logger, noEnv); limit != 20 {
		t.Fatalf("expected fallback limit 20, got %d", limit)
	}
}

func TestResolveUploadRateLimit_DevelopmentDefault(t *testing.T) {
	logger := logging.New().SetOutput(&bytes.Buffer{})
	cfg := &config.Config{Server: config.ServerConfig{Environment: "development"}}

	if limit := resolveUploadRateLimit(cfg, logger, noEnv); limit != 100 {
		t.Fatalf("expected dev limit 100, got %d", limit)
	}
}

func TestResolveUploadRateLimit_FromEnv(t *testing.T) {
	logger := logging.New().SetOutput(&bytes.Buffer{})
	cfg := &config.Config{Server: config.ServerConfig{Environment: "production"}}

	limit := resolveUploadRateLimit(cfg, logger, func(key string) (string, bool) {
		return "5", true
	})
	if limit != 5 {
		t.Fatalf("expected env limit 5, got %d", limit)
	}
}

func TestResolveUploadRateLimit_InvalidEnv(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.New().SetOutput(&buf)
	cfg := &config.Config{
		Server:    config.ServerConfig{Environment: "production"},
		RateLimit: config.RateLimitConfig{UploadsPerHour: 7},
	}

	limit := resolveUploadRateLimit(cfg, logger, func(key string) (string, bool) {
		return "nope", true
	})
	if limit != 7 {
		t.Fatalf("expected fallback limit 7, got %d", limit)
	}
	if !bytes.Contains(buf.Bytes(), []byte("UPLOAD_RATE_LIMIT_OVERRIDE")) {
		t.Fatalf("expected warning in log, got %s", buf.String())
	}
}

func TestResolveAnnouncePollInterval_Defaults(t *testing.T) {
	logger := logging.New().SetOutput(&bytes.Buffer{})
	if interval := resolveAnnouncePollInterval(logger, noEnv); interval != time.Minute {
		t.Fatalf("expected default interval 1m, got %v", interval)
	}
}

func TestResolveAnnouncePollInterval_FromEnv(t *testing.T) {
	logger := logging.New().SetOutput(&bytes.Buffer{})
	interval := resolveAnnouncePollInterval(logger, func(key string) (string, bool) {
		return "30s", true
	})
	if interval != 30*time.Second {
		t.Fatalf("expected interval 30s, got %v", interval)
	}
}

func TestResolveAnnouncePollInterval_InvalidEnv(t *testing.T) {
	logger := logging.New().SetOutput(&bytes.Buffer{})
	for _, value := range []string{"nope", "-5s", "0s"} {
		interval := resolveAnnouncePollInterval(logger, func(key string) (string, bool) {
			return value, true
		})
		if interval != time.Minute {
			t.Fatalf("%q: expected fallback interval 1m, got %v", value, interval)
		}
	}
}
