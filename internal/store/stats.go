package store

import (
	"context"
	"fmt"
	"time"

	"github.com/DataDog/sketches-go/ddsketch"

	"github.com/roach88/blinkwatch/internal/record"
)

// sketchAccuracy is the relative accuracy of blink-count percentiles.
const sketchAccuracy = 0.01

// Stats summarizes interval rows that ended at or after Since.
//
// P50Blinks and P90Blinks follow DDSketch's lower-rank quantile: the value at
// rank floor(q*(n-1)) of the sorted blink counts, within 1% relative error.
// For {10, 20, 30} both are 20.
type Stats struct {
	Since           time.Time     `json:"since"`
	Intervals       int           `json:"intervals"`
	TotalBlinks     int           `json:"total_blinks"`
	TotalPresence   time.Duration `json:"total_presence"`
	MeanBlinks      float64       `json:"mean_blinks"`
	BlinksPerMinute float64       `json:"blinks_per_minute"`
	P50Blinks       float64       `json:"p50_blinks"`
	P90Blinks       float64       `json:"p90_blinks"`
	AverageRows     int           `json:"average_rows"`

	// Recent* cover intervals that ended at or after RecentSince. They are
	// zero unless WithRecentSince was given.
	RecentSince      time.Time `json:"recent_since,omitzero"`
	RecentIntervals  int       `json:"recent_intervals"`
	RecentMeanBlinks float64   `json:"recent_mean_blinks"`

	// PercentChange is the recent mean relative to MeanBlinks, in percent.
	// Zero when either side has no intervals.
	PercentChange float64 `json:"percent_change"`
}

type statsOptions struct {
	recentSince time.Time
}

// StatsOption configures a Stats call.
type StatsOption func(*statsOptions)

// WithRecentSince compares intervals ending at or after t against the whole
// summary.
func WithRecentSince(t time.Time) StatsOption {
	return func(o *statsOptions) {
		o.recentSince = t
	}
}

// Stats computes a summary over unfolded interval rows with end_time >= since,
// plus the total number of average rows. Timestamps compare as strings since
// the persisted layout is fixed-width and big-endian.
func (s *Store) Stats(ctx context.Context, since time.Time, opts ...StatsOption) (Stats, error) {
	if s.isClosed() {
		return Stats{}, unavailable("stats", ErrClosed)
	}

	var o statsOptions
	for _, opt := range opts {
		opt(&o)
	}

	st := Stats{Since: record.FloorSecond(since.UTC())}
	var recentFrom string
	if !o.recentSince.IsZero() {
		st.RecentSince = record.FloorSecond(o.recentSince.UTC())
		recentFrom = record.FormatTimestamp(st.RecentSince)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT end_time, blink_count, presence_duration
		FROM interval
		WHERE end_time >= ?
		ORDER BY id ASC
	`, record.FormatTimestamp(since))
	if err != nil {
		return Stats{}, unavailable("stats", err)
	}
	defer rows.Close()

	sketch, err := ddsketch.NewDefaultDDSketch(sketchAccuracy)
	if err != nil {
		return Stats{}, fmt.Errorf("stats: create sketch: %w", err)
	}

	recentBlinks := 0
	for rows.Next() {
		var (
			endTime            string
			blinks, presenceMs int64
		)
		if err := rows.Scan(&endTime, &blinks, &presenceMs); err != nil {
			return Stats{}, unavailable("stats: scan", err)
		}
		st.Intervals++
		st.TotalBlinks += int(blinks)
		st.TotalPresence += record.MillisDuration(presenceMs)
		if err := sketch.Add(float64(blinks)); err != nil {
			return Stats{}, fmt.Errorf("stats: sketch add: %w", err)
		}
		if recentFrom != "" && endTime >= recentFrom {
			st.RecentIntervals++
			recentBlinks += int(blinks)
		}
	}
	if err := rows.Err(); err != nil {
		return Stats{}, unavailable("stats: iterate", err)
	}

	if st.Intervals > 0 {
		st.MeanBlinks = float64(st.TotalBlinks) / float64(st.Intervals)
		st.P50Blinks, _ = sketch.GetValueAtQuantile(0.50)
		st.P90Blinks, _ = sketch.GetValueAtQuantile(0.90)
	}
	if minutes := st.TotalPresence.Minutes(); minutes > 0 {
		st.BlinksPerMinute = float64(st.TotalBlinks) / minutes
	}
	if st.RecentIntervals > 0 {
		st.RecentMeanBlinks = float64(recentBlinks) / float64(st.RecentIntervals)
		if st.MeanBlinks > 0 {
			st.PercentChange = (st.RecentMeanBlinks - st.MeanBlinks) / st.MeanBlinks * 100
		}
	}

	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM avg").Scan(&st.AverageRows); err != nil {
		return Stats{}, unavailable("stats: count avg", err)
	}

	return st, nil
}
