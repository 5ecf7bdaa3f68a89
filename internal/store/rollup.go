package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/roach88/blinkwatch/internal/metrics"
	"github.com/roach88/blinkwatch/internal/record"
)

// RollupResult describes one rollup check.
// Folded is false when fewer than BatchSize interval rows existed.
type RollupResult struct {
	Folded      bool
	Average     record.AverageEntry
	IntervalIDs []int64 // Ids deleted by this rollup, newest first
}

// Rollup runs one rollup check: fold the newest BatchSize interval rows into
// one average row and delete exactly those rows.
//
// Select, insert and delete share one BEGIN IMMEDIATE transaction, so a
// concurrent insert can neither be deleted unread nor shift the batch. At most
// one Rollup runs at a time per Store.
func (s *Store) Rollup(ctx context.Context) (RollupResult, error) {
	if s.isClosed() {
		return RollupResult{}, unavailable("rollup", ErrClosed)
	}
	return s.runRollup(ctx)
}

func (s *Store) runRollup(ctx context.Context) (RollupResult, error) {
	s.rollupMu.Lock()
	defer s.rollupMu.Unlock()

	started := time.Now()
	res, err := s.rollup(ctx)
	s.recorder.ObserveRollupDuration(time.Since(started))

	switch {
	case err != nil:
		s.recorder.IncRollup(metrics.ResultFailed)
	case res.Folded:
		s.recorder.IncRollup(metrics.ResultSuccess)
	default:
		s.recorder.IncRollup(metrics.ResultNoop)
	}
	return res, err
}

type batchRow struct {
	id         int64
	startTime  string
	endTime    string
	blinkCount int64
}

func (s *Store) rollup(ctx context.Context) (RollupResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return RollupResult{}, unavailable("rollup: begin tx", err)
	}
	defer tx.Rollback() // No-op if committed

	batch, err := selectNewest(ctx, tx, s.batchSize)
	if err != nil {
		return RollupResult{}, unavailable("rollup: select", err)
	}
	if len(batch) < s.batchSize {
		return RollupResult{}, nil
	}

	var sum int64
	ids := make([]int64, len(batch))
	for i, row := range batch {
		sum += row.blinkCount
		ids[i] = row.id
	}
	avg := sum / int64(s.batchSize)
	newest := batch[0]
	oldest := batch[len(batch)-1]

	result, err := tx.ExecContext(ctx, `
		INSERT INTO avg (start_time, end_time, avg_value, sample_count)
		VALUES (?, ?, ?, ?)
	`, oldest.startTime, newest.endTime, avg, len(batch))
	if err != nil {
		return RollupResult{}, unavailable("rollup: insert avg", err)
	}
	avgID, err := result.LastInsertId()
	if err != nil {
		return RollupResult{}, unavailable("rollup: avg id", err)
	}

	if err := deleteExactly(ctx, tx, ids); err != nil {
		return RollupResult{}, unavailable("rollup: delete", err)
	}

	if err := tx.Commit(); err != nil {
		return RollupResult{}, unavailable("rollup: commit", err)
	}

	entry, err := averageFromRow(avgID, oldest.startTime, newest.endTime, avg, int64(len(batch)))
	if err != nil {
		return RollupResult{}, err
	}
	return RollupResult{Folded: true, Average: entry, IntervalIDs: ids}, nil
}

// selectNewest returns up to n interval rows, newest first.
func selectNewest(ctx context.Context, tx *sql.Tx, n int) ([]batchRow, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT id, start_time, end_time, blink_count
		FROM interval
		ORDER BY id DESC
		LIMIT ?
	`, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	batch := make([]batchRow, 0, n)
	for rows.Next() {
		var r batchRow
		if err := rows.Scan(&r.id, &r.startTime, &r.endTime, &r.blinkCount); err != nil {
			return nil, err
		}
		batch = append(batch, r)
	}
	return batch, rows.Err()
}

// deleteExactly removes the given ids and fails unless every one was deleted.
func deleteExactly(ctx context.Context, tx *sql.Tx, ids []int64) error {
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	result, err := tx.ExecContext(ctx, "DELETE FROM interval WHERE id IN ("+placeholders+")", args...)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n != int64(len(ids)) {
		return fmt.Errorf("deleted %d rows, expected %d", n, len(ids))
	}
	return nil
}

// drainRollups is the worker body: fold batches until a check is a no-op.
// Signals coalesce, so one wake-up may stand for several inserts.
func (s *Store) drainRollups(ctx context.Context) {
	for {
		res, err := s.runRollup(ctx)
		if err != nil {
			s.logger.Error("rollup failed", "error", err)
			return
		}
		if !res.Folded {
			return
		}
		s.logger.Debug("rollup folded intervals",
			"avg_id", res.Average.ID,
			"avg_blink_count", res.Average.AvgBlinkCount,
			"intervals", len(res.IntervalIDs),
		)
	}
}
