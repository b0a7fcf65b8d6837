package normalize

import (
	"strings"
	"time"
)

// localeLayout is the primary wire format used by the ad platforms feeding
// this pipeline: date, the literal separator "às", then time.
const localeLayout = "2006-01-02 às 15:04:05"

// ParseReceivedAt parses an event timestamp. It tries the locale-specific
// layout first, then strict RFC 3339, and finally falls back to now().
//
// The now-fallback deliberately trades provenance for availability: a
// malformed timestamp must never abort ingestion. The second return value
// reports that the fallback fired so callers can log the fabricated instant.
func ParseReceivedAt(raw string, now func() time.Time) (time.Time, bool) {
	if now == nil {
		now = time.Now
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return now().UTC(), true
	}

	if t, err := time.ParseInLocation(localeLayout, raw, time.UTC); err == nil {
		return t, false
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), false
	}

	return now().UTC(), true
}
