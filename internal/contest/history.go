package contest

import (
	"sort"

	"github.com/HammerMeetNail/dailydoodle/internal/models"
)

// GroupHistory buckets drawings by theme, or by UTC creation date for drawings
// without one. Groups are ordered by date descending; drawings keep input order.
func GroupHistory(drawings []models.DrawingWithTheme) []models.HistoryGroup {
	groups := []models.HistoryGroup{}
	index := make(map[string]int)

	for _, d := range drawings {
		key, date := groupKey(d)
		i, ok := index[key]
		if !ok {
			g := models.HistoryGroup{Key: key, Date: date}
			if d.Theme != nil {
				id := d.Theme.ID
				g.ThemeID = &id
			}
			groups = append(groups, g)
			i = len(groups) - 1
			index[key] = i
		}
		if groups[i].Title == "" && d.Theme != nil && d.Theme.Title != "" {
			groups[i].Title = d.Theme.Title
		}
		groups[i].Drawings = append(groups[i].Drawings, d)
	}

	sort.SliceStable(groups, func(a, b int) bool {
		return groups[a].Date > groups[b].Date
	})
	return groups
}

func groupKey(d models.DrawingWithTheme) (key, date string) {
	if d.Theme != nil {
		date = d.Theme.Date
		if date == "" {
			date = d.CreatedAt.UTC().Format(models.DateLayout)
		}
		return d.Theme.ID.String(), date
	}
	date = d.CreatedAt.UTC().Format(models.DateLayout)
	return date, date
}
