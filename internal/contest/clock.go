// Package contest holds the pure rules of the daily drawing contest:
// which theme is open, when submissions close, and how drawings and
// reactions are folded into views.
package contest

import (
	"fmt"
	"time"
	_ "time/tzdata"

	"github.com/HammerMeetNail/dailydoodle/internal/models"
)

// Clock evaluates contest time rules in the reference timezone.
type Clock struct {
	loc        *time.Location
	quietStart int
	quietEnd   int
	now        func() time.Time
}

var loadLocation = time.LoadLocation

// NewClock builds a Clock for the named IANA zone. The quiet window covers the
// hours in [quietStart, quietEnd) and may wrap past midnight.
func NewClock(timezone string, quietStart, quietEnd int) (*Clock, error) {
	loc, err := loadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("loading contest timezone %q: %w", timezone, err)
	}
	if quietStart < 0 || quietStart > 23 || quietEnd < 0 || quietEnd > 24 {
		return nil, fmt.Errorf("invalid quiet window %d-%d", quietStart, quietEnd)
	}
	return &Clock{
		loc:        loc,
		quietStart: quietStart,
		quietEnd:   quietEnd,
		now:        time.Now,
	}, nil
}

// WithNow returns a copy of the clock that reads the current time from now.
func (c *Clock) WithNow(now func() time.Time) *Clock {
	cp := *c
	cp.now = now
	return &cp
}

func (c *Clock) Now() time.Time {
	return c.now()
}

func (c *Clock) Location() *time.Location {
	return c.loc
}

// Today is the calendar date of t in the reference zone.
func (c *Clock) Today(t time.Time) string {
	return t.In(c.loc).Format(models.DateLayout)
}

func (c *Clock) InQuietWindow(t time.Time) bool {
	if c.quietStart == c.quietEnd {
		return false
	}
	hour := t.In(c.loc).Hour()
	if c.quietStart < c.quietEnd {
		return hour >= c.quietStart && hour < c.quietEnd
	}
	return hour >= c.quietStart || hour < c.quietEnd
}

// Deadline is midnight at the end of themeDate in the reference zone.
func (c *Clock) Deadline(themeDate string) (time.Time, error) {
	day, err := time.ParseInLocation(models.DateLayout, themeDate, c.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing theme date %q: %w", themeDate, err)
	}
	return day.AddDate(0, 0, 1), nil
}

// SubmissionOpen reports whether an on-time submission for themeDate is still accepted at t.
func (c *Clock) SubmissionOpen(themeDate string, t time.Time) bool {
	deadline, err := c.Deadline(themeDate)
	if err != nil {
		return false
	}
	return t.Before(deadline)
}

// RevealTime is the instant the theme for date becomes visible.
func (c *Clock) RevealTime(date string) (time.Time, error) {
	day, err := time.ParseInLocation(models.DateLayout, date, c.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing date %q: %w", date, err)
	}
	if c.quietStart >= c.quietEnd {
		return day, nil
	}
	return day.Add(time.Duration(c.quietEnd) * time.Hour), nil
}

// ResolveToday picks the theme for today out of candidates. During the quiet
// window nothing is revealed whatever the candidates hold.
func ResolveToday(candidates []models.Theme, today string, quiet bool) (models.ThemeStatus, *models.Theme) {
	if quiet {
		return models.ThemeStatusNotRevealed, nil
	}
	for i := range candidates {
		if candidates[i].IsActive && candidates[i].Date == today {
			theme := candidates[i]
			return models.ThemeStatusActive, &theme
		}
	}
	return models.ThemeStatusNone, nil
}
