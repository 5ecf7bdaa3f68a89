package cli

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/roach88/blinkwatch/internal/config"
	"github.com/roach88/blinkwatch/internal/testutil"
)

// pairsTrace is 160 frames of [2,2,0,0] at 250ms: 40 blinks, 79 present
// deltas, so 19 one-second windows of 2 blinks each. Every window spans
// exactly 2s on whole seconds.
const pairsTrace = `name: pairs
start: 2026-03-02T09:00:00Z
interval: 250ms
frames: [2, 2, 0, 0]
repeat: 40
`

// failingTrace fails detection on the third frame.
const failingTrace = `name: failing
start: 2026-03-02T09:00:00Z
interval: 100ms
frames: [2, 0, 2, 0]
fail_at: 3
`

const testSessionID = "session-cli-test"

// newTestRootOptions returns options as PersistentPreRunE would leave them,
// with a one-second window and batches of 5 so short traces exercise rollup.
func newTestRootOptions(format string) *RootOptions {
	cfg := config.Default()
	cfg.Sampler.Window = time.Second
	cfg.Rollup.BatchSize = 5
	return &RootOptions{
		Format: format,
		Config: cfg,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// writeFile writes content into a fresh temp dir and returns the path.
func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// execute runs cmd with args and returns stdout and the error.
func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	cmd.SetContext(context.Background())
	err := cmd.Execute()
	return out.String(), err
}

// seedDatabase runs the pairs trace into a new database and returns its path.
// The result holds 3 averages and 4 pending intervals.
func seedDatabase(t *testing.T) string {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "blinks.db")
	tracePath := writeFile(t, "pairs.yaml", pairsTrace)

	opts := newTestRootOptions("text")
	cmd := newTestRunCommand(opts)
	_, err := execute(t, cmd, "--db", dbPath, "--trace", tracePath)
	require.NoError(t, err)
	return dbPath
}

// newTestRunCommand builds a run command with a fixed session id.
func newTestRunCommand(rootOpts *RootOptions) *cobra.Command {
	return newRunCommand(&RunOptions{
		RootOptions: rootOpts,
		IDGenerator: testutil.NewFixedIDGenerator(testSessionID),
	})
}
