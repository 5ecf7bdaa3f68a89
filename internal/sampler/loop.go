package sampler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/blinkwatch/internal/alert"
	"github.com/roach88/blinkwatch/internal/metrics"
	"github.com/roach88/blinkwatch/internal/record"
)

// Status is a point-in-time view of a running session.
type Status struct {
	SessionID      string        `json:"session_id"`
	State          State         `json:"state"`
	Frames         int64         `json:"frames"`
	SessionBlinks  int           `json:"session_blinks"`
	WindowBlinks   int           `json:"window_blinks"`
	Presence       time.Duration `json:"presence"`
	EyesPresent    bool          `json:"eyes_present"`
	NoEyesStreak   int           `json:"no_eyes_streak"`
	WindowsEmitted int           `json:"windows_emitted"`
	WindowsFailed  int           `json:"windows_failed"`
	Rate           float64       `json:"rate"`
	RateStatus     alert.Status  `json:"rate_status"`
	LastAlert      *alert.Alert  `json:"last_alert,omitempty"`
}

// Loop drives a Sampler from a frame source and delivers closed windows.
//
// Thread-safety model:
//   - Run(): must be called from exactly one goroutine, once
//   - Status(): safe from any goroutine
type Loop struct {
	source   FrameSource
	detector Detector
	sink     IntervalSink

	cfg      Config
	alertCfg alert.Config
	notifier alert.Notifier
	clock    Clock
	ids      IDGenerator
	logger   *slog.Logger
	recorder metrics.Recorder

	mu     sync.Mutex
	status Status
}

// LoopOption configures a Loop.
type LoopOption func(*Loop)

// WithConfig sets the sampler thresholds.
func WithConfig(cfg Config) LoopOption {
	return func(l *Loop) { l.cfg = cfg }
}

// WithAlertConfig sets the blink-rate thresholds.
func WithAlertConfig(cfg alert.Config) LoopOption {
	return func(l *Loop) { l.alertCfg = cfg }
}

// WithNotifier sets where blink-rate alerts go (default: the loop logger).
func WithNotifier(n alert.Notifier) LoopOption {
	return func(l *Loop) { l.notifier = n }
}

// WithClock sets the clock used for frames without a capture time.
func WithClock(c Clock) LoopOption {
	return func(l *Loop) { l.clock = c }
}

// WithIDGenerator sets the session id generator.
func WithIDGenerator(g IDGenerator) LoopOption {
	return func(l *Loop) { l.ids = g }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) LoopOption {
	return func(l *Loop) { l.logger = logger }
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) LoopOption {
	return func(l *Loop) { l.recorder = r }
}

// NewLoop creates a loop reading from source, detecting with detector and
// writing closed windows to sink.
func NewLoop(source FrameSource, detector Detector, sink IntervalSink, opts ...LoopOption) *Loop {
	l := &Loop{
		source:   source,
		detector: detector,
		sink:     sink,
		cfg:      DefaultConfig(),
		alertCfg: alert.DefaultConfig(),
		clock:    systemClock{},
		ids:      UUIDv7Generator{},
		logger:   slog.Default(),
		recorder: metrics.NoopRecorder{},
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.notifier == nil {
		l.notifier = alert.LogNotifier{Logger: l.logger}
	}
	l.status = Status{State: StateIdle, RateStatus: alert.StatusWarmup}
	return l
}

// Run samples until the source is exhausted, ctx is cancelled, or a fatal
// error occurs.
//
// Returns nil on exhaustion, ctx.Err() on cancellation, and a *SessionError
// for acquisition or detector failures. Cancellation is checked once per
// frame; a frame already read finishes detection and delivery first.
// Insert failures are logged and counted; they never stop the loop.
func (l *Loop) Run(ctx context.Context) error {
	sessionID := l.ids.Generate()
	logger := l.logger.With("component", "sampler", "session_id", sessionID)
	l.update(func(st *Status) { st.SessionID = sessionID })
	defer l.update(func(st *Status) { st.State = StateStopped })

	if err := l.source.Open(ctx); err != nil {
		return acquisitionError("open frame source", 0, err)
	}
	defer func() {
		if err := l.source.Close(); err != nil {
			logger.Warn("close frame source", "error", err)
		}
	}()

	logger.Info("sampling started",
		"window", l.cfg.Window,
		"absence_frames", l.cfg.AbsenceFrames,
		"blink_refractory", l.cfg.BlinkRefractory,
	)

	var (
		s       *Sampler
		monitor *alert.Monitor
		frames  int64
		blinks  int
	)

	for {
		if err := ctx.Err(); err != nil {
			logger.Info("sampling cancelled", "frames", frames, "blinks", blinks)
			return err
		}

		frame, err := l.source.Next(ctx)
		if errors.Is(err, io.EOF) || (err == nil && frame.Empty()) {
			logger.Info("frame source exhausted", "frames", frames, "blinks", blinks)
			return nil
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				logger.Info("sampling cancelled", "frames", frames, "blinks", blinks)
				return ctxErr
			}
			return acquisitionError("read frame", frames+1, err)
		}
		frames++

		// The frame in hand completes even if ctx is cancelled meanwhile.
		frameCtx := context.WithoutCancel(ctx)

		rects, err := l.detector.DetectEyes(frameCtx, frame)
		if err != nil {
			return detectorError(frames, err)
		}

		capturedAt := frame.CapturedAt
		if capturedAt.IsZero() {
			capturedAt = l.clock.Now()
		}
		if s == nil {
			s = New(l.cfg, capturedAt)
			monitor = alert.NewMonitor(l.alertCfg, capturedAt)
		}

		step := s.Observe(len(rects), capturedAt)
		l.recorder.IncFrames()
		l.recorder.SetEyesPresent(step.EyesPresent)
		if step.Blink {
			blinks++
			l.recorder.IncBlinks()
			logger.Debug("blink", "frame", frames, "at", capturedAt)
		}

		delivered := true
		if step.Interval != nil {
			delivered = l.deliver(frameCtx, logger, *step.Interval)
		}

		rateStatus, raised := monitor.Evaluate(blinks, capturedAt)
		if raised != nil {
			if err := l.notifier.Notify(frameCtx, *raised); err != nil {
				logger.Warn("alert notify failed", "error", err)
			}
		}

		snap := s.Snapshot()
		l.update(func(st *Status) {
			st.State = step.State
			st.Frames = frames
			st.SessionBlinks = blinks
			st.WindowBlinks = snap.WindowBlinks
			st.Presence = snap.Presence
			st.EyesPresent = snap.EyesPresent
			st.NoEyesStreak = snap.NoEyesStreak
			st.Rate = monitor.Rate()
			st.RateStatus = rateStatus
			st.LastAlert = monitor.LastAlert()
			if step.Interval != nil {
				if delivered {
					st.WindowsEmitted++
				} else {
					st.WindowsFailed++
				}
			}
		})
	}
}

// deliver hands one closed window to the sink. Failures are logged and
// counted; the entry is not retried.
func (l *Loop) deliver(ctx context.Context, logger *slog.Logger, entry record.IntervalEntry) bool {
	if err := l.sink.InsertInterval(ctx, entry); err != nil {
		l.recorder.IncWindow(metrics.ResultFailed)
		logger.Error("interval insert failed",
			"error", err,
			"start", entry.StartTime,
			"end", entry.EndTime,
			"blinks", entry.BlinkCount,
		)
		return false
	}
	l.recorder.IncWindow(metrics.ResultSuccess)
	logger.Info("interval closed",
		"start", entry.StartTime,
		"end", entry.EndTime,
		"blinks", entry.BlinkCount,
		"presence", entry.PresenceDuration,
	)
	return true
}

// Status returns a snapshot of the session.
func (l *Loop) Status() Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	st := l.status
	if st.LastAlert != nil {
		a := *st.LastAlert
		st.LastAlert = &a
	}
	return st
}

func (l *Loop) update(fn func(st *Status)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fn(&l.status)
}
