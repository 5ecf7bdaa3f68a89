package store

import (
	"context"
	"time"

	"github.com/roach88/blinkwatch/internal/record"
)

// InsertInterval appends one closed sampling window to the interval log.
//
// Content is never rejected, only storage-layer failures are returned
// (matching ErrUnavailable). Start is stored rounded down and end rounded up
// to the second, so the stored span still covers PresenceDuration. After a successful write
// the rollup worker is signalled; InsertInterval does not wait for it.
func (s *Store) InsertInterval(ctx context.Context, entry record.IntervalEntry) error {
	if s.isClosed() {
		return unavailable("insert interval", ErrClosed)
	}

	start, end := record.FormatSpan(entry.StartTime, entry.EndTime)

	started := time.Now()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO interval (start_time, end_time, blink_count, presence_duration)
		VALUES (?, ?, ?, ?)
	`,
		start,
		end,
		entry.BlinkCount,
		record.DurationMillis(entry.PresenceDuration),
	)
	s.recorder.ObserveInsertDuration(time.Since(started))
	if err != nil {
		return unavailable("insert interval", err)
	}

	s.worker.trigger()
	return nil
}
