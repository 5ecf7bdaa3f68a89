package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/blinkwatch/internal/record"
)

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Snapshot holds both logs as of a single point in time.
type Snapshot struct {
	Intervals []record.IntervalEntry
	Averages  []record.AverageEntry
}

// CalculateAvg returns every average row in insertion order.
// Read-only; returns an empty slice (not nil) when no rollup has run.
func (s *Store) CalculateAvg(ctx context.Context) ([]record.AverageEntry, error) {
	if s.isClosed() {
		return nil, unavailable("calculate avg", ErrClosed)
	}
	return readAverages(ctx, s.db)
}

// ReadIntervals returns every interval row not yet folded, oldest first.
func (s *Store) ReadIntervals(ctx context.Context) ([]record.IntervalEntry, error) {
	if s.isClosed() {
		return nil, unavailable("read intervals", ErrClosed)
	}
	return readIntervals(ctx, s.db)
}

// Snapshot reads both logs inside one transaction, so a rollup committing
// between the two reads cannot make a row appear in both or neither.
func (s *Store) Snapshot(ctx context.Context) (Snapshot, error) {
	if s.isClosed() {
		return Snapshot{}, unavailable("snapshot", ErrClosed)
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return Snapshot{}, unavailable("snapshot: begin tx", err)
	}
	defer tx.Rollback()

	var snap Snapshot
	if snap.Intervals, err = readIntervals(ctx, tx); err != nil {
		return Snapshot{}, err
	}
	if snap.Averages, err = readAverages(ctx, tx); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

func readAverages(ctx context.Context, q queryer) ([]record.AverageEntry, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, start_time, end_time, avg_value, sample_count
		FROM avg
		ORDER BY id ASC
	`)
	if err != nil {
		return nil, unavailable("calculate avg", err)
	}
	defer rows.Close()

	averages := []record.AverageEntry{}
	for rows.Next() {
		var (
			id, avg, count int64
			start, end     string
		)
		if err := rows.Scan(&id, &start, &end, &avg, &count); err != nil {
			return nil, unavailable("calculate avg: scan", err)
		}
		entry, err := averageFromRow(id, start, end, avg, count)
		if err != nil {
			return nil, err
		}
		averages = append(averages, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, unavailable("calculate avg: iterate", err)
	}

	return averages, nil
}

func readIntervals(ctx context.Context, q queryer) ([]record.IntervalEntry, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, start_time, end_time, blink_count, presence_duration
		FROM interval
		ORDER BY id ASC
	`)
	if err != nil {
		return nil, unavailable("read intervals", err)
	}
	defer rows.Close()

	intervals := []record.IntervalEntry{}
	for rows.Next() {
		entry, err := scanInterval(rows)
		if err != nil {
			return nil, err
		}
		intervals = append(intervals, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, unavailable("read intervals: iterate", err)
	}

	return intervals, nil
}

// CountIntervals returns the number of interval rows not yet folded.
func (s *Store) CountIntervals(ctx context.Context) (int, error) {
	if s.isClosed() {
		return 0, unavailable("count intervals", ErrClosed)
	}

	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM interval").Scan(&n); err != nil {
		return 0, unavailable("count intervals", err)
	}
	return n, nil
}

func scanInterval(rows *sql.Rows) (record.IntervalEntry, error) {
	var (
		id, blinks, presenceMs int64
		start, end             string
	)
	if err := rows.Scan(&id, &start, &end, &blinks, &presenceMs); err != nil {
		return record.IntervalEntry{}, unavailable("scan interval", err)
	}

	startTime, err := record.ParseTimestamp(start)
	if err != nil {
		return record.IntervalEntry{}, fmt.Errorf("interval %d: %w", id, err)
	}
	endTime, err := record.ParseTimestamp(end)
	if err != nil {
		return record.IntervalEntry{}, fmt.Errorf("interval %d: %w", id, err)
	}

	return record.IntervalEntry{
		ID:               id,
		StartTime:        startTime,
		EndTime:          endTime,
		BlinkCount:       int(blinks),
		PresenceDuration: record.MillisDuration(presenceMs),
	}, nil
}

func averageFromRow(id int64, start, end string, avg, count int64) (record.AverageEntry, error) {
	startTime, err := record.ParseTimestamp(start)
	if err != nil {
		return record.AverageEntry{}, fmt.Errorf("avg %d: %w", id, err)
	}
	endTime, err := record.ParseTimestamp(end)
	if err != nil {
		return record.AverageEntry{}, fmt.Errorf("avg %d: %w", id, err)
	}

	return record.AverageEntry{
		ID:            id,
		StartTime:     startTime,
		EndTime:       endTime,
		AvgBlinkCount: int(avg),
		SampleCount:   int(count),
	}, nil
}
