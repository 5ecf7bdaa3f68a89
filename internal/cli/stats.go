package cli

import (
	"io"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/roach88/blinkwatch/internal/record"
	"github.com/roach88/blinkwatch/internal/store"
)

// DefaultRecentWindow is the default --recent lookback.
const DefaultRecentWindow = 20 * time.Minute

// StatsOptions holds flags for the stats command.
type StatsOptions struct {
	*RootOptions
	Database string
	Since    time.Duration
	Recent   time.Duration

	// Now allows overriding the reference time for --since (for testing).
	Now func() time.Time
}

// NewStatsCommand creates the stats command.
func NewStatsCommand(rootOpts *RootOptions) *cobra.Command {
	return newStatsCommand(&StatsOptions{RootOptions: rootOpts, Now: time.Now})
}

func newStatsCommand(opts *StatsOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarize pending intervals",
		Long: `Summarize interval rows that have not been rolled up yet.

Reports totals, blink rate over presence time, and p50/p90 blink counts per
interval. With --since, only intervals ending inside the lookback are counted.
--recent compares the mean of the latest intervals against the whole summary.

Example:
  blinkwatch stats --db ./blinkwatch.db
  blinkwatch stats --db ./blinkwatch.db --since 1h --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default from config)")
	cmd.Flags().DurationVar(&opts.Since, "since", 0, "only count intervals ending within this lookback (0 = all)")
	cmd.Flags().DurationVar(&opts.Recent, "recent", DefaultRecentWindow, "compare intervals ending within this lookback (0 = off)")

	return cmd
}

func runStats(opts *StatsOptions, cmd *cobra.Command) error {
	if opts.Since < 0 || opts.Recent < 0 {
		return NewExitError(ExitCommandError, "--since and --recent must not be negative").WithCode(ErrCodeUsage)
	}

	st, err := opts.openExisting(opts.dbPath(opts.Database))
	if err != nil {
		return err
	}
	defer st.Close()

	now := opts.Now()
	var since time.Time
	if opts.Since > 0 {
		since = now.Add(-opts.Since)
	}
	var statsOpts []store.StatsOption
	if opts.Recent > 0 {
		statsOpts = append(statsOpts, store.WithRecentSince(now.Add(-opts.Recent)))
	}

	stats, err := st.Stats(cmd.Context(), since, statsOpts...)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to compute stats", err).WithCode(ErrCodeStorage)
	}

	return opts.formatter(cmd).Render(stats, func(w io.Writer) error {
		return writeStats(w, stats)
	})
}

// writeStats prints stats with locale-aware number grouping.
func writeStats(w io.Writer, s store.Stats) error {
	p := message.NewPrinter(language.English)
	if !s.Since.IsZero() {
		p.Fprintf(w, "Since:              %s\n", record.FormatTimestamp(s.Since))
	}
	p.Fprintf(w, "Intervals:          %d\n", s.Intervals)
	p.Fprintf(w, "Total blinks:       %d\n", s.TotalBlinks)
	p.Fprintf(w, "Total presence:     %s\n", s.TotalPresence)
	p.Fprintf(w, "Mean blinks:        %.1f\n", s.MeanBlinks)
	p.Fprintf(w, "Blinks per minute:  %.1f\n", s.BlinksPerMinute)
	p.Fprintf(w, "p50 blinks:         %.1f\n", s.P50Blinks)
	p.Fprintf(w, "p90 blinks:         %.1f\n", s.P90Blinks)
	if !s.RecentSince.IsZero() {
		p.Fprintf(w, "Recent since:       %s\n", record.FormatTimestamp(s.RecentSince))
		p.Fprintf(w, "Recent intervals:   %d\n", s.RecentIntervals)
		p.Fprintf(w, "Recent mean blinks: %.1f\n", s.RecentMeanBlinks)
		p.Fprintf(w, "Change vs mean:     %+.1f%%\n", s.PercentChange)
	}
	_, err := p.Fprintf(w, "Average rows:       %d\n", s.AverageRows)
	return err
}
