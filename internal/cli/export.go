package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/blinkwatch/internal/export"
)

// ExportOptions holds flags for the export command.
type ExportOptions struct {
	*RootOptions
	Database string
	OutDir   string
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export intervals and averages to Parquet",
		Long: `Write the interval and average tables to Parquet files in a directory.

Two files are produced: intervals.parquet and averages.parquet. The database
is only read.

Example:
  blinkwatch export --db ./blinkwatch.db --out ./export`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default from config)")
	cmd.Flags().StringVarP(&opts.OutDir, "out", "o", "", "output directory (required)")
	_ = cmd.MarkFlagRequired("out")

	return cmd
}

func runExport(opts *ExportOptions, cmd *cobra.Command) error {
	st, err := opts.openExisting(opts.dbPath(opts.Database))
	if err != nil {
		return err
	}
	defer st.Close()

	formatter := opts.formatter(cmd)
	formatter.VerboseLog("Exporting %s to %s", opts.dbPath(opts.Database), opts.OutDir)

	res, err := export.Export(cmd.Context(), st, opts.OutDir)
	if err != nil {
		return WrapExitError(ExitFailure, "export failed", err).WithCode(ErrCodeExport)
	}

	return formatter.Render(res, func(w io.Writer) error {
		fmt.Fprintf(w, "Exported %d interval(s) to %s\n", res.Intervals, res.IntervalsPath)
		fmt.Fprintf(w, "Exported %d average(s) to %s\n", res.Averages, res.AveragesPath)
		return nil
	})
}
