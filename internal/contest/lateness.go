package contest

import (
	"strings"
	"time"

	"github.com/HammerMeetNail/dailydoodle/internal/models"
)

// IsLate reports whether a drawing created at createdAt was posted after its
// theme day. The comparison is on UTC calendar dates; a drawing is never early.
func IsLate(createdAt time.Time, themeDate string) bool {
	themeDate = strings.TrimSpace(themeDate)
	if len(themeDate) > len(models.DateLayout) {
		themeDate = themeDate[:len(models.DateLayout)]
	}
	if _, err := time.Parse(models.DateLayout, themeDate); err != nil {
		return false
	}
	return createdAt.UTC().Format(models.DateLayout) > themeDate
}

// MarkLate sets IsLate on every drawing that carries a theme.
func MarkLate(drawings []models.DrawingWithTheme) {
	for i := range drawings {
		if drawings[i].Theme != nil {
			drawings[i].IsLate = IsLate(drawings[i].CreatedAt, drawings[i].Theme.Date)
		}
	}
}
