package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/blinkwatch/internal/config"
	"github.com/roach88/blinkwatch/internal/store"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string

	// Config is loaded in PersistentPreRunE; subcommands read it.
	Config config.Config

	// Logger is built from Config.Log and --verbose.
	Logger *slog.Logger
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// Execute runs the blinkwatch CLI with args and returns the process exit
// code. Every failure is written through the output formatter, so
// --format json yields an error envelope on stdout.
func Execute(args []string, stdout, stderr io.Writer) int {
	opts, cmd := newRootCommand()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.Execute()
	if err != nil {
		if !isValidFormat(opts.Format) {
			opts.Format = "text"
		}
		opts.formatter(cmd).ReportError(err)
	}
	return GetExitCode(err)
}

// NewRootCommand creates the root command for the blinkwatch CLI.
func NewRootCommand() *cobra.Command {
	_, cmd := newRootCommand()
	return cmd
}

func newRootCommand() (*RootOptions, *cobra.Command) {
	opts := &RootOptions{Config: config.Default()}

	cmd := &cobra.Command{
		Use:   "blinkwatch",
		Short: "blinkwatch - blink and attention monitor",
		Long: `Samples eye presence from a frame source, counts blinks per presence
window, and stores the windows in SQLite with periodic rollup into averages.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Validate format flag
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats)).WithCode(ErrCodeUsage)
			}
			return opts.load(cmd)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "path to YAML config file")

	// Add subcommands
	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewAveragesCommand(opts))
	cmd.AddCommand(NewIntervalsCommand(opts))
	cmd.AddCommand(NewRollupCommand(opts))
	cmd.AddCommand(NewStatsCommand(opts))
	cmd.AddCommand(NewExportCommand(opts))

	return opts, cmd
}

// load reads the config file and installs the process logger.
func (o *RootOptions) load(cmd *cobra.Command) error {
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err).WithCode(ErrCodeConfig)
	}
	o.Config = cfg
	o.Logger = config.NewLogger(cfg.Log, cmd.ErrOrStderr(), o.Verbose)
	slog.SetDefault(o.Logger)
	return nil
}

// logger returns the configured logger, or slog.Default before load.
func (o *RootOptions) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.Default()
	}
	return o.Logger
}

// formatter returns an OutputFormatter for cmd's writers.
func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

// dbPath returns the --db override or the configured path.
func (o *RootOptions) dbPath(override string) string {
	if override != "" {
		return override
	}
	return o.Config.Database.Path
}

// openExisting opens a store that must already exist on disk.
// Read commands use it so a typo does not create an empty database.
func (o *RootOptions) openExisting(path string) (*store.Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, WrapExitError(ExitCommandError, "database not found", err).WithCode(ErrCodeDatabase)
	}
	opts := append(o.Config.StoreOptions(), store.WithLogger(o.logger()))
	st, err := store.Open(path, opts...)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err).WithCode(ErrCodeDatabase)
	}
	return st, nil
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}
