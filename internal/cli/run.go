package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/go-co-op/gocron/v2"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/blinkwatch/internal/metrics"
	"github.com/roach88/blinkwatch/internal/sampler"
	"github.com/roach88/blinkwatch/internal/source"
	"github.com/roach88/blinkwatch/internal/store"
)

// shutdownTimeout bounds the final flush and the metrics server shutdown.
const shutdownTimeout = 5 * time.Second

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database    string
	TracePath   string
	MetricsAddr string
	Realtime    bool

	// IDGenerator allows overriding the session id generator (for testing).
	// If nil, defaults to sampler.UUIDv7Generator.
	IDGenerator sampler.IDGenerator
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return newRunCommand(&RunOptions{RootOptions: rootOpts})
}

func newRunCommand(opts *RunOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Sample a frame trace and store blink intervals",
		Long: `Run a sampling session over a recorded frame trace.

Each frame's eye count drives the presence sampler. Every closed window is
written to the database, and the rollup worker folds full batches of
intervals into averages. The session ends when the trace is exhausted or on
Ctrl-C; pending rollups are flushed before exit.

Example:
  blinkwatch run --trace ./testdata/pairs.yaml --db ./blinkwatch.db
  blinkwatch run --trace ./session.yaml --realtime --metrics-addr :9090`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSession(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default from config)")
	cmd.Flags().StringVar(&opts.TracePath, "trace", "", "path to YAML frame trace (required)")
	cmd.Flags().StringVar(&opts.MetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	cmd.Flags().BoolVar(&opts.Realtime, "realtime", false, "pace frames at the trace interval")
	_ = cmd.MarkFlagRequired("trace")

	return cmd
}

func runSession(opts *RunOptions, cmd *cobra.Command) error {
	cfg := opts.Config
	logger := opts.logger()
	dbPath := opts.dbPath(opts.Database)
	formatter := opts.formatter(cmd)

	trace, err := source.LoadTrace(opts.TracePath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load trace", err).WithCode(ErrCodeTrace)
	}
	formatter.VerboseLog("Loaded trace %q: %d frames every %s", trace.Name, trace.Len(), trace.Interval)

	reg := prom.NewRegistry()
	recorder := metrics.NewPrometheusRecorder(reg)

	// Open database (create if not exists)
	logger.Info("opening database", "path", dbPath)
	storeOpts := append(cfg.StoreOptions(), store.WithLogger(logger), store.WithRecorder(recorder))
	st, err := store.Open(dbPath, storeOpts...)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err).WithCode(ErrCodeDatabase)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			logger.Error("error closing database", "error", closeErr)
		}
	}()
	formatter.VerboseLog("Opened database %s (rollup batch %d)", dbPath, st.BatchSize())

	var ln net.Listener
	if addr := opts.metricsAddr(); addr != "" {
		ln, err = net.Listen("tcp", addr)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to listen for metrics", err).WithCode(ErrCodeMetrics)
		}
		logger.Info("serving metrics", "addr", ln.Addr().String())
	}

	sweep, err := startRollupSweep(st, cfg.Rollup.SweepInterval, logger)
	if err != nil {
		if ln != nil {
			_ = ln.Close()
		}
		return WrapExitError(ExitFailure, "failed to start rollup sweep", err)
	}
	defer sweep.stop()

	// Setup signal handling for graceful shutdown
	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan) // Prevent signal handler leak

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	loopOpts := []sampler.LoopOption{
		sampler.WithConfig(cfg.SamplerConfig()),
		sampler.WithAlertConfig(cfg.AlertConfig()),
		sampler.WithLogger(logger),
		sampler.WithRecorder(recorder),
	}
	if opts.IDGenerator != nil {
		loopOpts = append(loopOpts, sampler.WithIDGenerator(opts.IDGenerator))
	}
	loop := sampler.NewLoop(
		source.NewSource(trace, source.WithPacing(opts.Realtime)),
		source.NewDetector(trace),
		st,
		loopOpts...,
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		// The session ending stops the metrics server too.
		defer cancel()
		err := loop.Run(gctx)
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil
		}
		return err
	})
	if ln != nil {
		srv := &http.Server{
			Handler:           metrics.HTTPHandler(reg),
			ReadHeaderTimeout: shutdownTimeout,
		}
		g.Go(func() error {
			if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancelShutdown()
			return srv.Shutdown(shutdownCtx)
		})
	}

	runErr := g.Wait()

	// Pending rollups finish before the summary so it reflects the final table.
	flushCtx, cancelFlush := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelFlush()
	if err := st.Flush(flushCtx); err != nil {
		logger.Warn("rollup flush failed", "error", err)
	}

	status := loop.Status()
	if runErr != nil {
		switch {
		case sampler.IsAcquisitionError(runErr):
			return WrapExitError(ExitFailure, "sampling session failed", runErr).WithCode(ErrCodeAcquisition)
		case sampler.IsDetectorError(runErr):
			return WrapExitError(ExitFailure, "sampling session failed", runErr).WithCode(ErrCodeDetector)
		}
		return WrapExitError(ExitFailure, "run failed", runErr).WithCode(ErrCodeMetrics)
	}

	logger.Info("session stopped gracefully", "session_id", status.SessionID)
	return formatter.Render(status, func(w io.Writer) error {
		return writeStatus(w, status)
	})
}

func (o *RunOptions) metricsAddr() string {
	if o.MetricsAddr != "" {
		return o.MetricsAddr
	}
	return o.Config.Metrics.Addr
}

// writeStatus prints a session summary.
func writeStatus(w io.Writer, st sampler.Status) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Session:\t%s\n", st.SessionID)
	fmt.Fprintf(tw, "Frames:\t%d\n", st.Frames)
	fmt.Fprintf(tw, "Blinks:\t%d\n", st.SessionBlinks)
	fmt.Fprintf(tw, "Windows:\t%d stored, %d failed\n", st.WindowsEmitted, st.WindowsFailed)
	fmt.Fprintf(tw, "Rate:\t%.1f bpm (%s)\n", st.Rate, st.RateStatus)
	if st.LastAlert != nil {
		fmt.Fprintf(tw, "Last alert:\t%s\n", st.LastAlert.Message)
	}
	return tw.Flush()
}

// rollupSweep re-signals the rollup worker on a fixed period so a rollup that
// failed earlier is retried even when no new intervals arrive.
type rollupSweep struct {
	scheduler gocron.Scheduler
	logger    *slog.Logger
}

// startRollupSweep schedules st.TriggerRollup every interval.
// A non-positive interval returns an inert sweep.
func startRollupSweep(st *store.Store, every time.Duration, logger *slog.Logger) (*rollupSweep, error) {
	sw := &rollupSweep{logger: logger}
	if every <= 0 {
		return sw, nil
	}

	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}
	_, err = s.NewJob(
		gocron.DurationJob(every),
		gocron.NewTask(st.TriggerRollup),
		gocron.WithName("rollup-sweep"),
	)
	if err != nil {
		_ = s.Shutdown()
		return nil, fmt.Errorf("create rollup sweep job: %w", err)
	}
	s.Start()
	sw.scheduler = s
	logger.Debug("rollup sweep started", "interval", every)
	return sw, nil
}

func (r *rollupSweep) stop() {
	if r.scheduler == nil {
		return
	}
	if err := r.scheduler.Shutdown(); err != nil {
		r.logger.Warn("rollup sweep shutdown", "error", err)
	}
}
