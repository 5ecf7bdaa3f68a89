package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/blinkwatch/internal/metrics"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - Legacy shape: interval(id, blink_count, timestamp), avg(id, avg_value, timestamp)
// 1 - Start/end/duration intervals, avg spans with sample_count
const currentSchemaVersion = 1

// Defaults for Open.
const (
	DefaultMaxConns    = 15
	DefaultBatchSize   = 20
	DefaultBusyTimeout = 5 * time.Second
)

// Store provides durable storage for interval and average logs.
//
// Thread-safety: all methods are safe for concurrent use. Rollups are
// serialized through rollupMu and the single worker goroutine.
type Store struct {
	db        *sql.DB
	batchSize int
	logger    *slog.Logger
	recorder  metrics.Recorder

	rollupMu sync.Mutex
	worker   *rollupWorker

	closeOnce sync.Once
	closeErr  error
	mu        sync.RWMutex
	closed    bool
}

type options struct {
	maxConns    int
	batchSize   int
	busyTimeout time.Duration
	logger      *slog.Logger
	recorder    metrics.Recorder
}

// Option configures Open.
type Option func(*options)

// WithMaxConns bounds the connection pool (default 15).
func WithMaxConns(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxConns = n
		}
	}
}

// WithBatchSize sets how many interval rows one rollup folds (default 20).
func WithBatchSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.batchSize = n
		}
	}
}

// WithBusyTimeout sets how long a connection waits for the write lock.
func WithBusyTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.busyTimeout = d
		}
	}
}

// WithLogger sets the logger used by the rollup worker.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(o *options) {
		if r != nil {
			o.recorder = r
		}
	}
}

// Open creates or opens a SQLite database at the given path, applies the
// schema and migrations, and starts the rollup worker.
//
// This function is idempotent - safe to call multiple times on one path.
func Open(path string, opts ...Option) (*Store, error) {
	o := options{
		maxConns:    DefaultMaxConns,
		batchSize:   DefaultBatchSize,
		busyTimeout: DefaultBusyTimeout,
		logger:      slog.Default(),
		recorder:    metrics.NoopRecorder{},
	}
	for _, opt := range opts {
		opt(&o)
	}

	db, err := sql.Open("sqlite3", dsn(path, o.busyTimeout))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(o.maxConns)
	db.SetMaxIdleConns(min(o.maxConns, 2))

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	s := &Store{
		db:        db,
		batchSize: o.batchSize,
		logger:    o.logger.With("component", "store"),
		recorder:  o.recorder,
	}
	s.worker = newRollupWorker(s.drainRollups)
	s.worker.start()

	return s, nil
}

// dsn builds a go-sqlite3 connection string carrying per-connection settings.
func dsn(path string, busyTimeout time.Duration) string {
	q := url.Values{}
	q.Set("_busy_timeout", fmt.Sprintf("%d", busyTimeout.Milliseconds()))
	q.Set("_synchronous", "NORMAL")
	q.Set("_foreign_keys", "on")
	q.Set("_txlock", "immediate")
	return "file:" + path + "?" + q.Encode()
}

// Close stops the rollup worker after it drains pending signals, then closes
// the connection pool. Safe to call more than once.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()

		if s.worker != nil {
			s.worker.stop()
		}
		s.closeErr = s.db.Close()
	})
	return s.closeErr
}

// BatchSize returns the number of interval rows folded per rollup.
func (s *Store) BatchSize() int {
	return s.batchSize
}

// Flush blocks until every rollup signal sent before the call has been
// processed, or ctx is done.
func (s *Store) Flush(ctx context.Context) error {
	if s.isClosed() {
		return &Error{Op: "flush", Err: ErrClosed}
	}
	return s.worker.flush(ctx)
}

// TriggerRollup signals the worker without inserting. Used by the periodic
// sweep so failed rollups are retried even when no new intervals arrive.
func (s *Store) TriggerRollup() {
	if s.isClosed() {
		return
	}
	s.worker.trigger()
}

func (s *Store) isClosed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

// applyPragmas sets database-wide SQLite configuration.
// journal_mode is persistent in the file, so one connection is enough.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// applySchema creates tables if they don't exist and runs migrations.
// This function is idempotent.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	if err := runMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	query := fmt.Sprintf("PRAGMA %s", name)
	if err := s.db.QueryRow(query).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
