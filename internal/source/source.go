package source

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/roach88/blinkwatch/internal/sampler"
)

// ErrNotOpen is returned by Next before Open or after Close.
var ErrNotOpen = errors.New("trace source not open")

// Source replays a Trace as sampler frames.
//
// Thread-safety: Next is called from the sampling goroutine only; Close may
// be called concurrently.
type Source struct {
	trace *Trace
	pace  bool

	mu   sync.Mutex
	pos  int
	open bool
}

// Option configures a Source.
type Option func(*Source)

// WithPacing makes Next wait Interval between frames, as a camera would.
func WithPacing(pace bool) Option {
	return func(s *Source) { s.pace = pace }
}

// NewSource creates a source for trace.
func NewSource(trace *Trace, opts ...Option) *Source {
	s := &Source{trace: trace}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open rewinds the trace.
func (s *Source) Open(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pos = 0
	s.open = true
	return nil
}

// Next returns the next frame, or io.EOF once the trace is exhausted.
func (s *Source) Next(ctx context.Context) (sampler.Frame, error) {
	s.mu.Lock()
	if !s.open {
		s.mu.Unlock()
		return sampler.Frame{}, ErrNotOpen
	}
	i := s.pos
	if i >= s.trace.Len() {
		s.mu.Unlock()
		return sampler.Frame{}, io.EOF
	}
	s.pos++
	s.mu.Unlock()

	if s.pace && i > 0 {
		timer := time.NewTimer(s.trace.Interval)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return sampler.Frame{}, ctx.Err()
		}
	}

	frame := sampler.Frame{
		Seq:  int64(i + 1),
		Data: []byte{byte(s.trace.EyesAt(i))},
	}
	if !s.trace.Start.IsZero() {
		frame.CapturedAt = s.trace.Start.Add(time.Duration(i) * s.trace.Interval)
	}
	return frame, nil
}

// Close ends the stream. Safe to call more than once.
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.open = false
	return nil
}

// TraceDetector reports the eye count carried in a trace frame.
type TraceDetector struct {
	// FailAt fails detection on this frame sequence number; zero never.
	FailAt int64
}

// ErrDetectorFailed is the scripted detection failure.
var ErrDetectorFailed = errors.New("scripted detector failure")

// DetectEyes returns one Rect per eye in the frame.
func (d TraceDetector) DetectEyes(_ context.Context, f sampler.Frame) ([]sampler.Rect, error) {
	if d.FailAt > 0 && f.Seq == d.FailAt {
		return nil, ErrDetectorFailed
	}
	if len(f.Data) == 0 {
		return nil, nil
	}
	n := int(f.Data[0])
	rects := make([]sampler.Rect, n)
	for i := range rects {
		rects[i] = sampler.Rect{X: i * 40, Y: 0, W: 30, H: 15}
	}
	return rects, nil
}

// NewDetector returns the detector matching trace.
func NewDetector(trace *Trace) TraceDetector {
	return TraceDetector{FailAt: trace.FailAt}
}
