package sampler

import (
	"fmt"
	"time"
)

// Defaults for Config.
const (
	DefaultWindow          = 60 * time.Second
	DefaultAbsenceFrames   = 5
	DefaultBlinkRefractory = 100 * time.Millisecond

	// MinWindow is the shortest accepted window. Interval rows store whole
	// seconds, so a shorter window could persist with end equal to start.
	MinWindow = time.Second
)

// Config holds the sampler thresholds.
type Config struct {
	// Window is the presence needed to close a sampling window.
	Window time.Duration

	// AbsenceFrames is how many consecutive empty frames flip presence off.
	AbsenceFrames int

	// BlinkRefractory is the minimum spacing between counted blinks.
	BlinkRefractory time.Duration
}

// DefaultConfig returns the standard thresholds.
func DefaultConfig() Config {
	return Config{
		Window:          DefaultWindow,
		AbsenceFrames:   DefaultAbsenceFrames,
		BlinkRefractory: DefaultBlinkRefractory,
	}
}

// Validate rejects thresholds the state machine cannot run with.
func (c Config) Validate() error {
	if c.Window < MinWindow {
		return fmt.Errorf("window must be at least %s, got %s", MinWindow, c.Window)
	}
	if c.AbsenceFrames < 1 {
		return fmt.Errorf("absence_frames must be at least 1, got %d", c.AbsenceFrames)
	}
	if c.BlinkRefractory <= 0 {
		return fmt.Errorf("blink_refractory must be positive, got %s", c.BlinkRefractory)
	}
	return nil
}

// withDefaults fills zero fields from DefaultConfig.
func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.Window <= 0 {
		c.Window = def.Window
	}
	if c.AbsenceFrames <= 0 {
		c.AbsenceFrames = def.AbsenceFrames
	}
	if c.BlinkRefractory <= 0 {
		c.BlinkRefractory = def.BlinkRefractory
	}
	return c
}
