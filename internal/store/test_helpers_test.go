package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/blinkwatch/internal/record"
)

// baseTime anchors test timestamps on a whole second.
var baseTime = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

// createTestStore opens a fresh store in a temp directory.
func createTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, opts...)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestInterval returns the i-th minute-long window after baseTime.
func createTestInterval(i, blinks int) record.IntervalEntry {
	start := baseTime.Add(time.Duration(i) * time.Minute)
	return record.IntervalEntry{
		StartTime:        start,
		EndTime:          start.Add(time.Minute),
		BlinkCount:       blinks,
		PresenceDuration: 45 * time.Second,
	}
}

// insertN inserts n consecutive intervals with blink counts from blinks(i).
func insertN(t *testing.T, s *Store, n int, blinks func(i int) int) {
	t.Helper()
	for i := 0; i < n; i++ {
		require.NoError(t, s.InsertInterval(context.Background(), createTestInterval(i, blinks(i))))
	}
}

// flush waits for the rollup worker to settle.
func flush(t *testing.T, s *Store) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, s.Flush(ctx))
}
