package services

import (
	"fmt"
	"html"
	"strings"

	"github.com/HammerMeetNail/dailydoodle/internal/models"
)

type revealEmailParams struct {
	Recipient   models.User
	Theme       models.Theme
	BaseURL     string
	SettingsURL string
}

func templateEscape(s string) string {
	return html.EscapeString(s)
}

// buildRevealEmail returns subject, html and text bodies announcing a theme.
func buildRevealEmail(params revealEmailParams) (string, string, string) {
	greeting := "Hi"
	if params.Recipient.Name != nil && strings.TrimSpace(*params.Recipient.Name) != "" {
		greeting = "Hi " + strings.TrimSpace(*params.Recipient.Name)
	}
	drawURL := params.BaseURL + "/"
	subject := sanitizeSubject(fmt.Sprintf("Today's theme: %s", params.Theme.Title))

	descriptionHTML, descriptionText := "", ""
	if params.Theme.Description != nil && strings.TrimSpace(*params.Theme.Description) != "" {
		desc := strings.TrimSpace(*params.Theme.Description)
		descriptionHTML = fmt.Sprintf(`<p style="color: #666;">%s</p>`, templateEscape(desc))
		descriptionText = desc + "\n\n"
	}

	references := ""
	if len(params.Theme.ReferenceImages) > 0 {
		imgs := make([]string, 0, len(params.Theme.ReferenceImages))
		for _, url := range params.Theme.ReferenceImages {
			imgs = append(imgs, fmt.Sprintf(`<img src="%s" alt="reference" style="max-width: 180px; border-radius: 6px; margin-right: 8px;">`, templateEscape(url)))
		}
		references = "<p>" + strings.Join(imgs, "") + "</p>"
	}

	body := fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
</head>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; max-width: 640px; margin: 0 auto; padding: 24px;">
  <h1 style="color: #333; font-size: 24px;">Daily Doodle</h1>
  <p>%s, the theme for %s is out.</p>
  <p style="font-size: 22px; margin-bottom: 4px;"><strong>%s</strong></p>
  %s
  %s
  <p>
    <a href="%s" style="display: inline-block; background: #e85d3f; color: white; padding: 10px 18px; text-decoration: none; border-radius: 6px; margin: 12px 0;">Start drawing</a>
  </p>
  <p style="color: #666;">Submissions close at midnight.</p>
  <hr style="border: none; border-top: 1px solid #eee; margin: 30px 0;">
  <p style="color: #666; font-size: 14px;">Stop these emails: <a href="%s">%s</a></p>
</body>
</html>`,
		templateEscape(greeting),
		templateEscape(params.Theme.Date),
		templateEscape(params.Theme.Title),
		descriptionHTML,
		references,
		templateEscape(drawURL),
		templateEscape(params.SettingsURL),
		templateEscape(params.SettingsURL),
	)

	text := fmt.Sprintf(`%s, the theme for %s is out.

%s

%sStart drawing: %s
Submissions close at midnight.

Stop these emails: %s

--
Daily Doodle`,
		greeting,
		params.Theme.Date,
		params.Theme.Title,
		descriptionText,
		drawURL,
		params.SettingsURL,
	)

	return subject, body, text
}
