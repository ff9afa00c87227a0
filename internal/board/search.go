package board

import (
	"strings"

	"donationBoard/internal/model"
)

// Filter keeps the events whose name contains query, ignoring case. A blank query
// keeps everything. Order is preserved.
func Filter(events []model.Event, query string) []model.Event {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return events
	}

	out := make([]model.Event, 0, len(events))
	for _, e := range events {
		if strings.Contains(strings.ToLower(e.Name), q) {
			out = append(out, e)
		}
	}
	return out
}
