package sampler

import (
	"time"

	"github.com/roach88/blinkwatch/internal/record"
)

// Step is the outcome of observing one frame.
type Step struct {
	Frame        record.FrameObservation
	Blink        bool
	EyesPresent  bool
	NoEyesStreak int
	State        State

	// Interval is set when this frame closed a window.
	Interval *record.IntervalEntry
}

// Snapshot is a read-only view of the sampler's current window.
type Snapshot struct {
	State        State
	WindowStart  time.Time
	WindowBlinks int
	Presence     time.Duration
	EyesPresent  bool
	NoEyesStreak int
}

// Sampler is the presence and blink state machine for one session.
//
// Thread-safety: Sampler is not safe for concurrent use. One goroutine feeds
// it frames in capture order.
type Sampler struct {
	cfg Config

	state        State
	blinkCounter int
	prevEyeCount int
	lastBlinkAt  time.Time
	presence     time.Duration
	noEyesStreak int
	eyesPresent  bool
	windowStart  time.Time

	lastFrameAt time.Time // Latest capture time seen
	seenFrame   bool
}

// New creates a sampler whose first window starts at now.
// Zero or negative thresholds in cfg take their defaults.
func New(cfg Config, now time.Time) *Sampler {
	return &Sampler{
		cfg:         cfg.withDefaults(),
		state:       StateIdle,
		lastBlinkAt: now,
		windowStart: now,
	}
}

// Observe advances the state machine by one frame.
//
// capturedAt values that go backwards contribute no presence; the window
// clock only moves forward.
func (s *Sampler) Observe(eyeCount int, capturedAt time.Time) Step {
	var delta time.Duration
	if s.seenFrame {
		delta = capturedAt.Sub(s.lastFrameAt)
	}
	if delta < 0 {
		delta = 0
	} else {
		s.lastFrameAt = capturedAt
	}
	s.seenFrame = true

	if s.state == StateIdle || s.state == StateWindowClosing {
		s.state = StateTracking
	}

	if eyeCount >= 1 {
		s.noEyesStreak = 0
		s.eyesPresent = true
		s.presence += delta
	} else {
		s.noEyesStreak++
		if s.noEyesStreak >= s.cfg.AbsenceFrames {
			s.eyesPresent = false
		}
	}

	blink := s.prevEyeCount == 2 && eyeCount < 2 &&
		capturedAt.Sub(s.lastBlinkAt) >= s.cfg.BlinkRefractory
	if blink {
		s.blinkCounter++
		s.lastBlinkAt = capturedAt
	}
	s.prevEyeCount = eyeCount

	step := Step{
		Frame: record.FrameObservation{
			EyeCount:   eyeCount,
			CapturedAt: capturedAt,
			FrameDelta: delta,
		},
		Blink:        blink,
		EyesPresent:  s.eyesPresent,
		NoEyesStreak: s.noEyesStreak,
	}

	if s.presence >= s.cfg.Window {
		step.Interval = &record.IntervalEntry{
			StartTime:        s.windowStart,
			EndTime:          capturedAt,
			BlinkCount:       s.blinkCounter,
			PresenceDuration: s.presence,
		}
		s.windowStart = capturedAt
		s.blinkCounter = 0
		s.presence = 0
		s.noEyesStreak = 0
		s.state = StateWindowClosing
	}

	step.State = s.state
	return step
}

// Snapshot returns the current window's counters.
func (s *Sampler) Snapshot() Snapshot {
	return Snapshot{
		State:        s.state,
		WindowStart:  s.windowStart,
		WindowBlinks: s.blinkCounter,
		Presence:     s.presence,
		EyesPresent:  s.eyesPresent,
		NoEyesStreak: s.noEyesStreak,
	}
}

// Config returns the effective thresholds.
func (s *Sampler) Config() Config {
	return s.cfg
}
