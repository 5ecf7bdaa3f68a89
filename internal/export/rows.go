package export

import (
	"time"

	"github.com/roach88/blinkwatch/internal/record"
)

// IntervalRow is an interval in Parquet format. Times are Unix milliseconds.
type IntervalRow struct {
	ID         int64 `parquet:"id"`
	StartMs    int64 `parquet:"start_ms"`
	EndMs      int64 `parquet:"end_ms"`
	BlinkCount int32 `parquet:"blink_count"`
	PresenceMs int64 `parquet:"presence_ms"`
}

// AverageRow is an average in Parquet format. Times are Unix milliseconds.
type AverageRow struct {
	ID            int64 `parquet:"id"`
	StartMs       int64 `parquet:"start_ms"`
	EndMs         int64 `parquet:"end_ms"`
	AvgBlinkCount int32 `parquet:"avg_blink_count"`
	SampleCount   int32 `parquet:"sample_count"`
}

// IntervalToRow converts an IntervalEntry to an IntervalRow.
func IntervalToRow(e *record.IntervalEntry) IntervalRow {
	return IntervalRow{
		ID:         e.ID,
		StartMs:    e.StartTime.UnixMilli(),
		EndMs:      e.EndTime.UnixMilli(),
		BlinkCount: int32(e.BlinkCount),
		PresenceMs: record.DurationMillis(e.PresenceDuration),
	}
}

// RowToInterval converts an IntervalRow to an IntervalEntry.
func RowToInterval(r *IntervalRow) record.IntervalEntry {
	return record.IntervalEntry{
		ID:               r.ID,
		StartTime:        time.UnixMilli(r.StartMs).UTC(),
		EndTime:          time.UnixMilli(r.EndMs).UTC(),
		BlinkCount:       int(r.BlinkCount),
		PresenceDuration: record.MillisDuration(r.PresenceMs),
	}
}

// AverageToRow converts an AverageEntry to an AverageRow.
func AverageToRow(a *record.AverageEntry) AverageRow {
	return AverageRow{
		ID:            a.ID,
		StartMs:       a.StartTime.UnixMilli(),
		EndMs:         a.EndTime.UnixMilli(),
		AvgBlinkCount: int32(a.AvgBlinkCount),
		SampleCount:   int32(a.SampleCount),
	}
}

// RowToAverage converts an AverageRow to an AverageEntry.
func RowToAverage(r *AverageRow) record.AverageEntry {
	return record.AverageEntry{
		ID:            r.ID,
		StartTime:     time.UnixMilli(r.StartMs).UTC(),
		EndTime:       time.UnixMilli(r.EndMs).UTC(),
		AvgBlinkCount: int(r.AvgBlinkCount),
		SampleCount:   int(r.SampleCount),
	}
}
