package cli

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/cadence/internal/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose  bool
	Format   string // "json" | "text"
	Database string // overrides CADENCE_DB
	Owner    string // overrides CADENCE_OWNER

	// Env replaces the process environment when non-nil.
	Env map[string]string

	// Now and NewID replace the wall clock and UUIDv7 ids when non-nil.
	Now   func() time.Time
	NewID func() string

	config config.Config
	logger *slog.Logger
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the cadence CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cadence",
		Short: "Periodic reviews, one per period",
		Long: `Write weekly, monthly, quarterly and annual reviews.

Every owner has at most one review per period. Submitting again for the
same period replaces the answers of the existing review.

Environment:
  CADENCE_DB         SQLite database file (default cadence.db)
  CADENCE_OWNER      authenticated owner id
  CADENCE_TZ         time zone used to resolve today's period (default Local)
  CADENCE_LOG_LEVEL  debug, info, warn or error (default info)`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return opts.setup(cmd.ErrOrStderr())
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "path to SQLite database (overrides CADENCE_DB)")
	cmd.PersistentFlags().StringVar(&opts.Owner, "owner", "", "owner id (overrides CADENCE_OWNER)")

	// Add subcommands
	cmd.AddCommand(NewPeriodCommand(opts))
	cmd.AddCommand(NewShowCommand(opts))
	cmd.AddCommand(NewSubmitCommand(opts))
	cmd.AddCommand(NewEditCommand(opts))
	cmd.AddCommand(NewProgressCommand(opts))
	cmd.AddCommand(NewStreakCommand(opts))
	cmd.AddCommand(NewProfileCommand(opts))
	cmd.AddCommand(NewRepairCommand(opts))

	return cmd
}

// setup loads configuration, applies flag overrides and builds the logger.
func (o *RootOptions) setup(logOut io.Writer) error {
	var (
		cfg config.Config
		err error
	)
	if o.Env != nil {
		cfg, err = config.LoadFrom(o.Env)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "load configuration", err)
	}
	if o.Database != "" {
		cfg.DBPath = o.Database
	}
	if o.Owner != "" {
		cfg.Owner = o.Owner
	}

	level, err := cfg.Level()
	if err != nil {
		return WrapExitError(ExitCommandError, "load configuration", err)
	}
	if o.Verbose {
		level = slog.LevelDebug
	}
	if _, err := cfg.Location(); err != nil {
		return WrapExitError(ExitCommandError, "load configuration", err)
	}

	o.config = cfg
	o.logger = slog.New(slog.NewTextHandler(logOut, &slog.HandlerOptions{Level: level}))
	return nil
}

// formatter returns the OutputFormatter for cmd's writers.
func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
