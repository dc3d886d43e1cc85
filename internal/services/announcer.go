package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/HammerMeetNail/dailydoodle/internal/contest"
	"github.com/HammerMeetNail/dailydoodle/internal/database"
	"github.com/HammerMeetNail/dailydoodle/internal/logging"
	"github.com/HammerMeetNail/dailydoodle/internal/models"
)

const revealDedupTTL = 48 * time.Hour

type revealRecipientLister interface {
	ListRevealRecipients(ctx context.Context) ([]models.User, error)
}

type todayResolver interface {
	Today(ctx context.Context) (*models.TodayTheme, error)
}

// Announcer emails opted-in users once per contest day after the theme is revealed.
type Announcer struct {
	themes  todayResolver
	users   revealRecipientLister
	email   EmailSender
	redis   RedisClient
	clock   *contest.Clock
	baseURL string
}

func NewAnnouncer(themes todayResolver, users revealRecipientLister, email EmailSender, redis RedisClient, clock *contest.Clock, baseURL string) *Announcer {
	return &Announcer{
		themes:  themes,
		users:   users,
		email:   email,
		redis:   redis,
		clock:   clock,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// RunOnce sends the day's announcement if it is due and has not gone out yet.
// It returns the number of emails delivered.
func (a *Announcer) RunOnce(ctx context.Context) (int, error) {
	if a.clock.InQuietWindow(a.clock.Now()) {
		return 0, nil
	}

	today, err := a.themes.Today(ctx)
	if err != nil {
		return 0, fmt.Errorf("resolving today's theme: %w", err)
	}
	if today.Status != models.ThemeStatusActive || today.Theme == nil {
		return 0, nil
	}

	claimed, err := a.redis.SetNX(ctx, database.Key("theme-reveal", today.Date), today.Theme.ID.String(), revealDedupTTL)
	if err != nil {
		return 0, fmt.Errorf("claiming reveal announcement: %w", err)
	}
	if !claimed {
		return 0, nil
	}

	recipients, err := a.users.ListRevealRecipients(ctx)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, user := range recipients {
		subject, html, text := buildRevealEmail(revealEmailParams{
			Recipient:   user,
			Theme:       *today.Theme,
			BaseURL:     a.baseURL,
			SettingsURL: a.baseURL + "/#settings",
		})
		if err := a.email.Send(ctx, EmailMessage{To: user.Email, Subject: subject, HTML: html, Text: text}); err != nil {
			logging.Warn("Theme reveal email failed", map[string]interface{}{
				"user_id": user.ID.String(),
				"error":   err.Error(),
			})
			continue
		}
		sent++
	}

	logging.Info("Theme reveal announced", map[string]interface{}{
		"date":       today.Date,
		"theme_id":   today.Theme.ID.String(),
		"recipients": len(recipients),
		"sent":       sent,
	})
	return sent, nil
}

// Run polls until ctx is canceled.
func (a *Announcer) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if _, err := a.RunOnce(ctx); err != nil {
			logging.Warn("Theme reveal run failed", map[string]interface{}{"error": err.Error()})
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
