package record

import (
	"fmt"
	"time"
)

// TimestampLayout is the persisted timestamp format (second precision, UTC).
const TimestampLayout = "2006-01-02 15:04:05"

// FormatTimestamp renders t in TimestampLayout after converting to UTC.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// FloorSecond rounds t down to a whole second.
func FloorSecond(t time.Time) time.Time {
	return t.Truncate(time.Second)
}

// CeilSecond rounds t up to a whole second.
func CeilSecond(t time.Time) time.Time {
	floor := t.Truncate(time.Second)
	if floor.Before(t) {
		return floor.Add(time.Second)
	}
	return floor
}

// FormatSpan renders a [start, end] span outward to whole seconds, so the
// persisted span always covers the in-memory one.
func FormatSpan(start, end time.Time) (string, string) {
	return FormatTimestamp(FloorSecond(start)), FormatTimestamp(CeilSecond(end))
}

// ParseTimestamp parses a TimestampLayout string as UTC.
func ParseTimestamp(s string) (time.Time, error) {
	t, err := time.ParseInLocation(TimestampLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}

// DurationMillis converts d to the persisted integer-millisecond form.
func DurationMillis(d time.Duration) int64 {
	return d.Milliseconds()
}

// MillisDuration converts persisted milliseconds back to a time.Duration.
func MillisDuration(ms int64) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
