package source

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// MaxEyeCount is the largest eye count a trace frame can carry.
const MaxEyeCount = 255

// Trace is a scripted sequence of eye counts.
type Trace struct {
	// Name identifies the trace in logs.
	Name string `yaml:"name"`

	// Start stamps the first frame. Zero leaves frames unstamped so the
	// sampling loop uses its clock.
	Start time.Time `yaml:"start,omitempty"`

	// Interval is the spacing between frames.
	Interval time.Duration `yaml:"interval"`

	// Frames lists eye counts in capture order.
	Frames []int `yaml:"frames"`

	// Repeat plays Frames this many times; zero means once.
	Repeat int `yaml:"repeat,omitempty"`

	// FailAt makes TraceDetector fail on this 1-based frame; zero never.
	FailAt int64 `yaml:"fail_at,omitempty"`
}

// Len returns the total number of frames the trace produces.
func (t *Trace) Len() int {
	return len(t.Frames) * max(t.Repeat, 1)
}

// EyesAt returns the eye count of the i-th frame (0-based).
func (t *Trace) EyesAt(i int) int {
	return t.Frames[i%len(t.Frames)]
}

// LoadTrace reads and parses a trace YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or fails validation.
func LoadTrace(path string) (*Trace, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read trace file: %w", err)
	}
	return ParseTrace(data)
}

// ParseTrace parses and validates trace YAML.
func ParseTrace(data []byte) (*Trace, error) {
	var trace Trace
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&trace); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := trace.Validate(); err != nil {
		return nil, fmt.Errorf("invalid trace: %w", err)
	}
	return &trace, nil
}

// Validate checks that required fields are present and in range.
func (t *Trace) Validate() error {
	if t.Name == "" {
		return errors.New("name is required")
	}
	if t.Interval <= 0 {
		return fmt.Errorf("interval must be positive, got %s", t.Interval)
	}
	if len(t.Frames) == 0 {
		return errors.New("frames list is required and must be non-empty")
	}
	for i, eyes := range t.Frames {
		if eyes < 0 || eyes > MaxEyeCount {
			return fmt.Errorf("frames[%d]: eye count %d out of range [0, %d]", i, eyes, MaxEyeCount)
		}
	}
	if t.Repeat < 0 {
		return fmt.Errorf("repeat must not be negative, got %d", t.Repeat)
	}
	if t.FailAt < 0 {
		return fmt.Errorf("fail_at must not be negative, got %d", t.FailAt)
	}
	return nil
}
