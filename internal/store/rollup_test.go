package store

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/blinkwatch/internal/metrics"
	"github.com/roach88/blinkwatch/internal/record"
)

// insertDirect writes interval rows without signalling the worker.
func insertDirect(t *testing.T, s *Store, entries ...record.IntervalEntry) {
	t.Helper()
	for _, e := range entries {
		_, err := s.db.Exec(`
			INSERT INTO interval (start_time, end_time, blink_count, presence_duration)
			VALUES (?, ?, ?, ?)
		`, record.FormatTimestamp(e.StartTime), record.FormatTimestamp(e.EndTime),
			e.BlinkCount, record.DurationMillis(e.PresenceDuration))
		require.NoError(t, err)
	}
}

func TestRollup_FoldsBatchOnInsert(t *testing.T) {
	s := createTestStore(t)
	insertN(t, s, 20, func(i int) int { return i })
	flush(t, s)

	ctx := context.Background()
	averages, err := s.CalculateAvg(ctx)
	require.NoError(t, err)
	require.Len(t, averages, 1)

	avg := averages[0]
	// 0+1+...+19 = 190; 190/20 floors to 9.
	assert.Equal(t, 9, avg.AvgBlinkCount)
	assert.Equal(t, 20, avg.SampleCount)
	assert.True(t, createTestInterval(0, 0).StartTime.Equal(avg.StartTime))
	assert.True(t, createTestInterval(19, 0).EndTime.Equal(avg.EndTime))

	n, err := s.CountIntervals(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRollup_NoopBelowBatchSize(t *testing.T) {
	s := createTestStore(t)
	insertN(t, s, 19, func(int) int { return 3 })
	flush(t, s)

	ctx := context.Background()
	res, err := s.Rollup(ctx)
	require.NoError(t, err)
	assert.False(t, res.Folded)

	averages, err := s.CalculateAvg(ctx)
	require.NoError(t, err)
	assert.Empty(t, averages)

	n, err := s.CountIntervals(ctx)
	require.NoError(t, err)
	assert.Equal(t, 19, n)
}

func TestRollup_SelectsNewestRows(t *testing.T) {
	s := createTestStore(t)

	entries := make([]record.IntervalEntry, 25)
	for i := range entries {
		entries[i] = createTestInterval(i, i)
	}
	insertDirect(t, s, entries...)

	ctx := context.Background()
	res, err := s.Rollup(ctx)
	require.NoError(t, err)
	require.True(t, res.Folded)
	require.Len(t, res.IntervalIDs, 20)

	// Rows 5..24: sum 290, floor(290/20) = 14.
	assert.Equal(t, 14, res.Average.AvgBlinkCount)
	assert.True(t, entries[5].StartTime.Equal(res.Average.StartTime))
	assert.True(t, entries[24].EndTime.Equal(res.Average.EndTime))

	remaining, err := s.ReadIntervals(ctx)
	require.NoError(t, err)
	require.Len(t, remaining, 5)
	for i, r := range remaining {
		assert.Equal(t, i, r.BlinkCount)
	}

	// Five rows left: the next check is a no-op.
	res, err = s.Rollup(ctx)
	require.NoError(t, err)
	assert.False(t, res.Folded)
}

func TestRollup_AverageSpanCoversBatch(t *testing.T) {
	s := createTestStore(t, WithBatchSize(3))

	insertDirect(t, s,
		record.IntervalEntry{StartTime: baseTime, EndTime: baseTime.Add(10 * time.Second), BlinkCount: 1},
		record.IntervalEntry{StartTime: baseTime.Add(10 * time.Second), EndTime: baseTime.Add(20 * time.Second), BlinkCount: 2},
		record.IntervalEntry{StartTime: baseTime.Add(20 * time.Second), EndTime: baseTime.Add(30 * time.Second), BlinkCount: 2},
	)

	res, err := s.Rollup(context.Background())
	require.NoError(t, err)
	require.True(t, res.Folded)

	assert.Equal(t, 1, res.Average.AvgBlinkCount)
	assert.Equal(t, 30*time.Second, res.Average.EndTime.Sub(res.Average.StartTime))
	assert.Equal(t, 3, res.Average.SampleCount)
}

func TestRollup_ConcurrentInserts(t *testing.T) {
	s := createTestStore(t)

	const (
		writers   = 8
		perWriter = 25
		total     = writers * perWriter
		blinks    = 3
		rollers   = 3
	)

	ctx := context.Background()
	var (
		wg       sync.WaitGroup
		rollWg   sync.WaitGroup
		mu       sync.Mutex
		manualID = map[int64]bool{}
		stop     = make(chan struct{})
	)
	errs := make(chan error, total+rollers)

	// Manual rollups race the worker while inserts are in flight.
	for r := 0; r < rollers; r++ {
		rollWg.Add(1)
		go func() {
			defer rollWg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				res, err := s.Rollup(ctx)
				if err != nil {
					errs <- err
					return
				}
				mu.Lock()
				for _, id := range res.IntervalIDs {
					if manualID[id] {
						mu.Unlock()
						errs <- fmt.Errorf("interval %d folded twice", id)
						return
					}
					manualID[id] = true
				}
				mu.Unlock()
			}
		}()
	}

	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				errs <- s.InsertInterval(ctx, createTestInterval(w*perWriter+i, blinks))
			}
		}(w)
	}
	wg.Wait()
	close(stop)
	rollWg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}
	flush(t, s)

	averages, err := s.CalculateAvg(ctx)
	require.NoError(t, err)
	intervals, err := s.ReadIntervals(ctx)
	require.NoError(t, err)
	remaining := len(intervals)

	assert.Equal(t, total, len(averages)*s.BatchSize()+remaining)
	assert.Less(t, remaining, s.BatchSize())

	blinkSum := 0
	for _, avg := range averages {
		assert.Equal(t, s.BatchSize(), avg.SampleCount)
		assert.Equal(t, blinks, avg.AvgBlinkCount)
		blinkSum += avg.AvgBlinkCount * avg.SampleCount
	}
	for _, iv := range intervals {
		blinkSum += iv.BlinkCount
		assert.False(t, manualID[iv.ID], "interval %d still stored after being folded", iv.ID)
	}
	assert.Equal(t, total*blinks, blinkSum)
}

func TestRollup_RecordsMetrics(t *testing.T) {
	rec := &countingRecorder{}
	s := createTestStore(t, WithBatchSize(2), WithRecorder(rec))

	insertDirect(t, s, createTestInterval(0, 1), createTestInterval(1, 1))

	ctx := context.Background()
	_, err := s.Rollup(ctx)
	require.NoError(t, err)
	_, err = s.Rollup(ctx)
	require.NoError(t, err)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal(t, 1, rec.rollups[metrics.ResultSuccess])
	assert.GreaterOrEqual(t, rec.rollups[metrics.ResultNoop], 1)
}

func TestClose_DrainsPendingRollup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, WithBatchSize(2))
	require.NoError(t, err)

	insertN(t, s, 2, func(int) int { return 4 })
	require.NoError(t, s.Close())

	s2, err := Open(path, WithBatchSize(2))
	require.NoError(t, err)
	defer s2.Close()

	averages, err := s2.CalculateAvg(context.Background())
	require.NoError(t, err)
	require.Len(t, averages, 1)
	assert.Equal(t, 4, averages[0].AvgBlinkCount)
}

type countingRecorder struct {
	metrics.NoopRecorder

	mu      sync.Mutex
	rollups map[metrics.ResultLabel]int
}

func (r *countingRecorder) IncRollup(result metrics.ResultLabel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.rollups == nil {
		r.rollups = map[metrics.ResultLabel]int{}
	}
	r.rollups[result]++
}
