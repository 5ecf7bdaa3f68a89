package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/blinkwatch/internal/record"
)

// IntervalsOptions holds flags for the intervals command.
type IntervalsOptions struct {
	*RootOptions
	Database string
}

// NewIntervalsCommand creates the intervals command.
func NewIntervalsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &IntervalsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "intervals",
		Short: "List intervals not yet rolled up",
		Long: `List the interval rows still waiting for rollup, oldest first.

Example:
  blinkwatch intervals --db ./blinkwatch.db`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIntervals(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default from config)")

	return cmd
}

func runIntervals(opts *IntervalsOptions, cmd *cobra.Command) error {
	st, err := opts.openExisting(opts.dbPath(opts.Database))
	if err != nil {
		return err
	}
	defer st.Close()

	entries, err := st.ReadIntervals(cmd.Context())
	if err != nil {
		return WrapExitError(ExitFailure, "failed to read intervals", err).WithCode(ErrCodeStorage)
	}

	return opts.formatter(cmd).Render(entries, func(w io.Writer) error {
		return writeIntervals(w, entries)
	})
}

func writeIntervals(w io.Writer, entries []record.IntervalEntry) error {
	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, "No pending intervals.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTART\tEND\tBLINKS\tPRESENCE")
	for _, e := range entries {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\n",
			e.ID,
			record.FormatTimestamp(e.StartTime),
			record.FormatTimestamp(e.EndTime),
			e.BlinkCount,
			e.PresenceDuration,
		)
	}
	return tw.Flush()
}
