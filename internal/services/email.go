package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/resend/resend-go/v2"

	"github.com/HammerMeetNail/dailydoodle/internal/config"
	"github.com/HammerMeetNail/dailydoodle/internal/logging"
)

var ErrEmailNotConfigured = errors.New("email provider is not configured")

type EmailMessage struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

type EmailSender interface {
	Send(ctx context.Context, msg EmailMessage) error
}

// resendEmails is the slice of the Resend SDK used for delivery.
type resendEmails interface {
	SendWithContext(ctx context.Context, params *resend.SendEmailRequest) (*resend.SendEmailResponse, error)
}

type ResendSender struct {
	emails resendEmails
	from   string
}

func NewResendSender(apiKey, from string) *ResendSender {
	return &ResendSender{emails: resend.NewClient(apiKey).Emails, from: from}
}

func (s *ResendSender) Send(ctx context.Context, msg EmailMessage) error {
	_, err := s.emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{msg.To},
		Subject: sanitizeSubject(msg.Subject),
		Html:    msg.HTML,
		Text:    msg.Text,
	})
	if err != nil {
		return fmt.Errorf("sending email via resend: %w", err)
	}
	return nil
}

// ConsoleSender logs messages instead of delivering them.
type ConsoleSender struct {
	logger *logging.Logger
}

func NewConsoleSender(logger *logging.Logger) *ConsoleSender {
	if logger == nil {
		logger = logging.Default
	}
	return &ConsoleSender{logger: logger}
}

func (s *ConsoleSender) Send(ctx context.Context, msg EmailMessage) error {
	s.logger.Info("Email (console provider)", map[string]interface{}{
		"to":      msg.To,
		"subject": sanitizeSubject(msg.Subject),
		"text":    msg.Text,
	})
	return nil
}

// NewEmailSender picks the delivery provider from configuration.
func NewEmailSender(cfg config.EmailConfig, logger *logging.Logger) (EmailSender, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "resend":
		if cfg.ResendAPIKey == "" {
			return nil, fmt.Errorf("%w: RESEND_API_KEY is empty", ErrEmailNotConfigured)
		}
		return NewResendSender(cfg.ResendAPIKey, formatFrom(cfg.FromName, cfg.FromAddress)), nil
	case "", "console":
		return NewConsoleSender(logger), nil
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", ErrEmailNotConfigured, cfg.Provider)
	}
}

func formatFrom(name, address string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return address
	}
	return fmt.Sprintf("%s <%s>", name, address)
}

func sanitizeSubject(subject string) string {
	cleaned := strings.NewReplacer("\r", " ", "\n", " ").Replace(subject)
	cleaned = strings.TrimSpace(cleaned)
	if runes := []rune(cleaned); len(runes) > 120 {
		cleaned = string(runes[:117]) + "..."
	}
	return cleaned
}
