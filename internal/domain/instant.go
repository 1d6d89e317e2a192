package domain

import (
	"fmt"
	"strings"
	"time"
)

// InstantLayout is the storage format for target instants: UTC with
// millisecond precision, e.g. "2025-06-01T07:00:00.000Z".
const InstantLayout = "2006-01-02T15:04:05.000Z07:00"

// localLayouts are the wall-clock forms accepted from a datetime-local input.
var localLayouts = []string{
	"2006-01-02T15:04",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02 15:04:05",
}

// NormalizeLocalDateTime interprets raw as a wall-clock time in loc and
// returns the equivalent UTC instant truncated to the millisecond.
// Values that already carry an offset (RFC 3339) are accepted as-is.
func NormalizeLocalDateTime(raw string, loc *time.Location) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, fmt.Errorf("%w: date is required", ErrValidation)
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t.UTC().Truncate(time.Millisecond), nil
		}
	}
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return t.UTC().Truncate(time.Millisecond), nil
	}
	return time.Time{}, fmt.Errorf("%w: date %q is not a valid date-time", ErrValidation, raw)
}

// FormatInstant renders t in InstantLayout.
func FormatInstant(t time.Time) string {
	return t.UTC().Format(InstantLayout)
}

// ParseInstant parses a stored instant (any RFC 3339 form) into UTC.
func ParseInstant(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}
