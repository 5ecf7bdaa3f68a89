package sampler

import "fmt"

// State is the sampler lifecycle state.
type State int

const (
	// StateIdle is the state before the first frame.
	StateIdle State = iota

	// StateTracking is the steady state while frames arrive.
	StateTracking

	// StateWindowClosing is reported on the step that closed a window.
	StateWindowClosing

	// StateStopped is set by the loop on exhaustion, cancellation or a fatal
	// error. Terminal.
	StateStopped
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateTracking:
		return "tracking"
	case StateWindowClosing:
		return "window_closing"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler so JSON output uses names.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler for the names String
// returns.
func (s *State) UnmarshalText(text []byte) error {
	for _, candidate := range []State{StateIdle, StateTracking, StateWindowClosing, StateStopped} {
		if candidate.String() == string(text) {
			*s = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown sampler state %q", text)
}
