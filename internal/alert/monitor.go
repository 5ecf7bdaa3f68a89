package alert

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Status classifies a blink rate.
type Status string

const (
	// StatusWarmup means the session is too young to compute a rate.
	StatusWarmup Status = "warmup"

	// StatusNormal means the rate is at or above NormalRate.
	StatusNormal Status = "normal"

	// StatusBelowAverage means the rate is below NormalRate.
	StatusBelowAverage Status = "below_average"

	// StatusCritical means the rate is below LowRate.
	StatusCritical Status = "critical"
)

// Defaults for Config.
const (
	DefaultMinElapsed  = 30 * time.Second
	DefaultMinInterval = 5 * time.Second
	DefaultNormalRate  = 12.0
	DefaultLowRate     = 8.0
)

// Config holds the rate thresholds in blinks per minute.
type Config struct {
	MinElapsed  time.Duration
	MinInterval time.Duration
	NormalRate  float64
	LowRate     float64
}

// DefaultConfig returns the standard thresholds.
func DefaultConfig() Config {
	return Config{
		MinElapsed:  DefaultMinElapsed,
		MinInterval: DefaultMinInterval,
		NormalRate:  DefaultNormalRate,
		LowRate:     DefaultLowRate,
	}
}

// Alert is raised when the blink rate is not normal.
type Alert struct {
	Status  Status    `json:"status"`
	Rate    float64   `json:"rate"`
	At      time.Time `json:"at"`
	Message string    `json:"message"`
}

// Notifier receives alerts. Implementations must not block for long; the
// sampling loop calls Notify inline.
type Notifier interface {
	Notify(ctx context.Context, a Alert) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, a Alert) error

// Notify calls f.
func (f NotifierFunc) Notify(ctx context.Context, a Alert) error {
	return f(ctx, a)
}

// LogNotifier writes alerts to a structured logger at warn level.
type LogNotifier struct {
	Logger *slog.Logger
}

// Notify logs the alert.
func (n LogNotifier) Notify(ctx context.Context, a Alert) error {
	logger := n.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.WarnContext(ctx, a.Message,
		"status", a.Status,
		"rate", fmt.Sprintf("%.1f", a.Rate),
	)
	return nil
}

// Monitor tracks one session's blink rate.
//
// Thread-safety: Monitor is not safe for concurrent use. The sampling loop
// owns it.
type Monitor struct {
	cfg       Config
	start     time.Time
	status    Status
	rate      float64
	lastAlert *Alert
}

// NewMonitor creates a monitor for a session that started at start.
// Zero-valued thresholds take their defaults.
func NewMonitor(cfg Config, start time.Time) *Monitor {
	def := DefaultConfig()
	if cfg.MinElapsed <= 0 {
		cfg.MinElapsed = def.MinElapsed
	}
	if cfg.MinInterval <= 0 {
		cfg.MinInterval = def.MinInterval
	}
	if cfg.NormalRate <= 0 {
		cfg.NormalRate = def.NormalRate
	}
	if cfg.LowRate <= 0 {
		cfg.LowRate = def.LowRate
	}
	return &Monitor{cfg: cfg, start: start, status: StatusWarmup}
}

// Evaluate updates the rate from the session blink total at now.
// It returns the current status and, if one is due, a new alert.
//
// The status is refreshed on every call after warmup; only alerts are
// rate-limited.
func (m *Monitor) Evaluate(blinks int, now time.Time) (Status, *Alert) {
	elapsed := now.Sub(m.start)
	if elapsed <= m.cfg.MinElapsed {
		return m.status, nil
	}

	m.rate = float64(blinks) / elapsed.Minutes()
	m.status = m.classify(m.rate)

	if m.status == StatusNormal {
		return m.status, nil
	}
	if m.lastAlert != nil && now.Sub(m.lastAlert.At) < m.cfg.MinInterval {
		return m.status, nil
	}

	a := &Alert{
		Status:  m.status,
		Rate:    m.rate,
		At:      now,
		Message: message(m.status, m.rate),
	}
	m.lastAlert = a
	return m.status, a
}

// Status returns the most recent classification.
func (m *Monitor) Status() Status {
	return m.status
}

// Rate returns the most recent blinks-per-minute figure; zero during warmup.
func (m *Monitor) Rate() float64 {
	return m.rate
}

// LastAlert returns the most recently raised alert, or nil.
func (m *Monitor) LastAlert() *Alert {
	return m.lastAlert
}

func (m *Monitor) classify(rate float64) Status {
	switch {
	case rate < m.cfg.LowRate:
		return StatusCritical
	case rate < m.cfg.NormalRate:
		return StatusBelowAverage
	default:
		return StatusNormal
	}
}

func message(status Status, rate float64) string {
	if status == StatusCritical {
		return fmt.Sprintf("very low blink rate (%.1f bpm), take a break", rate)
	}
	return fmt.Sprintf("blink rate (%.1f bpm) is below average, try the 20-20-20 rule", rate)
}
