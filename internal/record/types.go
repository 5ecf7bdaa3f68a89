package record

import "time"

// FrameObservation is the per-frame input to the presence sampler.
// It is never stored.
type FrameObservation struct {
	EyeCount   int           `json:"eye_count"`
	CapturedAt time.Time     `json:"captured_at"`
	FrameDelta time.Duration `json:"frame_delta"` // Filled by the sampler
}

// IntervalEntry is one completed sampling window.
//
// Invariants: EndTime after StartTime, PresenceDuration <= EndTime-StartTime,
// BlinkCount >= 0. ID is zero until the entry has been persisted.
type IntervalEntry struct {
	ID               int64         `json:"id,omitempty"`
	StartTime        time.Time     `json:"start_time"`
	EndTime          time.Time     `json:"end_time"`
	BlinkCount       int           `json:"blink_count"`
	PresenceDuration time.Duration `json:"presence_duration"`
}

// Span returns the wall-clock length of the window.
func (e IntervalEntry) Span() time.Duration {
	return e.EndTime.Sub(e.StartTime)
}

// AverageEntry is the rollup of SampleCount consecutive intervals.
// StartTime is the oldest folded interval's start, EndTime the newest one's end.
type AverageEntry struct {
	ID            int64     `json:"id,omitempty"`
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
	AvgBlinkCount int       `json:"avg_blink_count"`
	SampleCount   int       `json:"sample_count"`
}
