package metrics

import "time"

// ResultLabel enumerates outcome categories for counters.
type ResultLabel string

const (
	ResultSuccess ResultLabel = "success"
	ResultFailed  ResultLabel = "failed"
	ResultNoop    ResultLabel = "noop"
)

// Recorder defines observability hooks for sampling and aggregation.
// Implementations must be safe for concurrent use.
type Recorder interface {
	IncFrames()
	IncBlinks()
	SetEyesPresent(present bool)
	IncWindow(result ResultLabel)
	ObserveInsertDuration(d time.Duration)
	IncRollup(result ResultLabel)
	ObserveRollupDuration(d time.Duration)
}

// NoopRecorder is a Recorder that does nothing.
type NoopRecorder struct{}

func (NoopRecorder) IncFrames() {}
func (NoopRecorder) IncBlinks() {}
func (NoopRecorder) SetEyesPresent(bool) {}
func (NoopRecorder) IncWindow(ResultLabel) {}
func (NoopRecorder) ObserveInsertDuration(time.Duration) {}
func (NoopRecorder) IncRollup(ResultLabel) {}
func (NoopRecorder) ObserveRollupDuration(time.Duration) {}
