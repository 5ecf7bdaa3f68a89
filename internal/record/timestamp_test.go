package record

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatTimestamp_UTCSecondPrecision(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	ts := time.Date(2026, 3, 14, 17, 30, 45, 999_000_000, loc)

	assert.Equal(t, "2026-03-14 15:30:45", FormatTimestamp(ts))
}

func TestSecondRounding(t *testing.T) {
	whole := time.Date(2026, 3, 2, 9, 0, 5, 0, time.UTC)

	tests := []struct {
		name  string
		in    time.Time
		floor time.Time
		ceil  time.Time
	}{
		{"whole second", whole, whole, whole},
		{"fraction", whole.Add(50 * time.Millisecond), whole, whole.Add(time.Second)},
		{"just below next", whole.Add(999 * time.Millisecond), whole, whole.Add(time.Second)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.floor.Equal(FloorSecond(tt.in)), "floor %s", FloorSecond(tt.in))
			assert.True(t, tt.ceil.Equal(CeilSecond(tt.in)), "ceil %s", CeilSecond(tt.in))
		})
	}
}

func TestFormatSpan_CoversSubSecondWindow(t *testing.T) {
	start := time.Date(2026, 3, 2, 9, 0, 0, 50_000_000, time.UTC)
	end := start.Add(300 * time.Millisecond)

	s, e := FormatSpan(start, end)
	assert.Equal(t, "2026-03-02 09:00:00", s)
	assert.Equal(t, "2026-03-02 09:00:01", e)
}

func TestParseTimestamp_RoundTrip(t *testing.T) {
	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	got, err := ParseTimestamp(FormatTimestamp(ts))
	require.NoError(t, err)
	assert.True(t, ts.Equal(got))
	assert.Equal(t, time.UTC, got.Location())
}

func TestParseTimestamp_Invalid(t *testing.T) {
	_, err := ParseTimestamp("2026-01-02T03:04:05Z")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse timestamp")
}

func TestDurationMillis(t *testing.T) {
	assert.Equal(t, int64(1500), DurationMillis(1500*time.Millisecond))
	assert.Equal(t, int64(0), DurationMillis(999*time.Microsecond))
	assert.Equal(t, 2*time.Second, MillisDuration(2000))
}

func TestIntervalEntry_Span(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	e := IntervalEntry{StartTime: start, EndTime: start.Add(time.Minute)}

	assert.Equal(t, time.Minute, e.Span())
}
