package contest

import (
	"sort"

	"github.com/google/uuid"

	"github.com/HammerMeetNail/dailydoodle/internal/models"
)

// DefaultPreviewSize is how many emojis a drawing card previews.
const DefaultPreviewSize = 3

// AggregateReactions counts reactions per emoji, most used first. Ties keep
// the order in which each emoji was first seen.
func AggregateReactions(reactions []models.Reaction) []models.ReactionSummary {
	summaries := []models.ReactionSummary{}
	index := make(map[string]int)

	for _, r := range reactions {
		i, ok := index[r.Emoji]
		if !ok {
			summaries = append(summaries, models.ReactionSummary{Emoji: r.Emoji, Users: []string{}})
			i = len(summaries) - 1
			index[r.Emoji] = i
		}
		summaries[i].Count++
		summaries[i].Users = append(summaries[i].Users, reactorName(r))
	}

	sort.SliceStable(summaries, func(a, b int) bool {
		return summaries[a].Count > summaries[b].Count
	})
	return summaries
}

func reactorName(r models.Reaction) string {
	if r.User != nil {
		return r.User.DisplayName()
	}
	return r.UserID.String()
}

// CurrentReaction returns the emoji userID left, if any.
func CurrentReaction(reactions []models.Reaction, userID uuid.UUID) (string, bool) {
	for _, r := range reactions {
		if r.UserID == userID {
			return r.Emoji, true
		}
	}
	return "", false
}

// TopReactions trims an aggregated summary to its first n entries.
func TopReactions(summary []models.ReactionSummary, n int) []models.ReactionSummary {
	if n <= 0 {
		n = DefaultPreviewSize
	}
	if len(summary) <= n {
		return summary
	}
	return summary[:n]
}
