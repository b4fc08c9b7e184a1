// Package timefmt renders source-system timestamps for the ticket narrative.
// The event source sends epoch milliseconds, occasionally ISO 8601, and
// occasionally garbage; formatting is total so a bad timestamp can never
// block ticket creation or a transition.
package timefmt

import (
	"strconv"
	"strings"
	"time"
)

// DisplayLayout matches the ticketing system's date/time display format.
const DisplayLayout = "2006-01-02 15:04:05"

// Display converts an epoch-millisecond or ISO 8601 timestamp into the
// ticketing display form. Empty input yields "Unknown"; anything unparseable
// yields a sentinel embedding the raw value.
func Display(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "Unknown"
	}
	if ms, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
		return time.UnixMilli(ms).UTC().Format(DisplayLayout)
	}
	if t, err := time.Parse(time.RFC3339, trimmed); err == nil {
		return t.UTC().Format(DisplayLayout)
	}
	return "Invalid timestamp: " + raw
}

// Now renders a wall-clock time in the display form, for "processed at"
// narrative lines.
func Now(t time.Time) string {
	return t.UTC().Format(DisplayLayout)
}
