package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/blinkwatch/internal/record"
)

// AveragesOptions holds flags for the averages command.
type AveragesOptions struct {
	*RootOptions
	Database string
}

// NewAveragesCommand creates the averages command.
func NewAveragesCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AveragesOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "averages",
		Short: "List rolled-up blink averages",
		Long: `List every average row, oldest first.

Each row folds one batch of consecutive intervals; avg_blink_count is the
integer mean of their blink counts.

Example:
  blinkwatch averages --db ./blinkwatch.db
  blinkwatch averages --db ./blinkwatch.db --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAverages(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default from config)")

	return cmd
}

func runAverages(opts *AveragesOptions, cmd *cobra.Command) error {
	st, err := opts.openExisting(opts.dbPath(opts.Database))
	if err != nil {
		return err
	}
	defer st.Close()

	avgs, err := st.CalculateAvg(cmd.Context())
	if err != nil {
		return WrapExitError(ExitFailure, "failed to read averages", err).WithCode(ErrCodeStorage)
	}

	return opts.formatter(cmd).Render(avgs, func(w io.Writer) error {
		return writeAverages(w, avgs)
	})
}

func writeAverages(w io.Writer, avgs []record.AverageEntry) error {
	if len(avgs) == 0 {
		_, err := fmt.Fprintln(w, "No averages recorded.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTART\tEND\tAVG BLINKS\tSAMPLES")
	for _, a := range avgs {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%d\n",
			a.ID,
			record.FormatTimestamp(a.StartTime),
			record.FormatTimestamp(a.EndTime),
			a.AvgBlinkCount,
			a.SampleCount,
		)
	}
	return tw.Flush()
}
