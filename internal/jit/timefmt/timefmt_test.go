package timefmt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDisplay(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"empty is unknown", "", "Unknown"},
		{"whitespace is unknown", "   ", "Unknown"},
		{"epoch milliseconds", "1773570600000", "2026-03-15 10:30:00"},
		{"epoch with surrounding spaces", " 1773570600000 ", "2026-03-15 10:30:00"},
		{"iso 8601", "2026-03-15T10:30:00Z", "2026-03-15 10:30:00"},
		{"iso 8601 with offset", "2026-03-15T12:30:00+02:00", "2026-03-15 10:30:00"},
		{"garbage embeds the raw value", "not-a-time", "Invalid timestamp: not-a-time"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Display(tt.raw))
		})
	}
}

func TestNow(t *testing.T) {
	loc := time.FixedZone("EST", -5*3600)
	at := time.Date(2026, 3, 15, 5, 30, 0, 0, loc)
	assert.Equal(t, "2026-03-15 10:30:00", Now(at), "rendered in UTC")
}
