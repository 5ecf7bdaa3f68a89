package testutil

import (
	"context"
	"sync"

	"github.com/roach88/blinkwatch/internal/record"
)

// RecordingSink collects inserted intervals in memory.
//
// Err, when set, is returned by every InsertInterval and the entry is not
// recorded. Thread-safety: safe for concurrent use.
type RecordingSink struct {
	mu      sync.Mutex
	entries []record.IntervalEntry
	err     error
	calls   int
}

// NewRecordingSink returns an empty sink that accepts every insert.
func NewRecordingSink() *RecordingSink {
	return &RecordingSink{}
}

// InsertInterval records entry, or returns the configured failure.
func (s *RecordingSink) InsertInterval(_ context.Context, entry record.IntervalEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return s.err
	}
	s.entries = append(s.entries, entry)
	return nil
}

// FailWith makes subsequent inserts fail with err. Pass nil to recover.
func (s *RecordingSink) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// Entries returns a copy of the recorded intervals in insertion order.
func (s *RecordingSink) Entries() []record.IntervalEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]record.IntervalEntry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Calls returns how many inserts were attempted, failed ones included.
func (s *RecordingSink) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}
