package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/blinkwatch/internal/record"
)

// RollupOptions holds flags for the rollup command.
type RollupOptions struct {
	*RootOptions
	Database string
}

// RollupSummary reports what a manual rollup folded.
type RollupSummary struct {
	Folded    int                   `json:"folded"`
	Averages  []record.AverageEntry `json:"averages"`
	Remaining int                   `json:"remaining"`
}

// NewRollupCommand creates the rollup command.
func NewRollupCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RollupOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "rollup",
		Short: "Fold pending intervals into averages",
		Long: `Run rollup checks until fewer than one batch of intervals remains.

The sampler triggers rollup after every insert; this command is for databases
whose rollups were interrupted or whose batch size changed.

Example:
  blinkwatch rollup --db ./blinkwatch.db`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRollup(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default from config)")

	return cmd
}

func runRollup(opts *RollupOptions, cmd *cobra.Command) error {
	st, err := opts.openExisting(opts.dbPath(opts.Database))
	if err != nil {
		return err
	}
	defer st.Close()

	formatter := opts.formatter(cmd)
	ctx := cmd.Context()
	summary := RollupSummary{Averages: []record.AverageEntry{}}
	for {
		res, err := st.Rollup(ctx)
		if err != nil {
			return WrapExitError(ExitFailure, "rollup failed", err).WithCode(ErrCodeStorage)
		}
		if !res.Folded {
			break
		}
		summary.Folded++
		summary.Averages = append(summary.Averages, res.Average)
		formatter.VerboseLog("Folded %d intervals into average %d", len(res.IntervalIDs), res.Average.ID)
	}

	summary.Remaining, err = st.CountIntervals(ctx)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to count intervals", err).WithCode(ErrCodeStorage)
	}

	return formatter.Render(summary, func(w io.Writer) error {
		fmt.Fprintf(w, "Folded %d batch(es) of %d intervals; %d interval(s) pending.\n",
			summary.Folded, st.BatchSize(), summary.Remaining)
		if summary.Folded == 0 {
			return nil
		}
		return writeAverages(w, summary.Averages)
	})
}
