package syncer

import (
	"strings"
	"time"
)

// Layouts the carrier has been seen emitting, most specific first
var eventDateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// parseEventDate turns a CTT event_date string into a UTC timestamp.
// Zoneless layouts are taken as UTC. Unparseable dates are simply dropped -
// the event is still created, just without happened_at.
func parseEventDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}

	for _, layout := range eventDateLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts.UTC(), true
		}
	}
	return time.Time{}, false
}
