// Package cli implements the infobase command line.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/infobase/internal/config"
	"github.com/roach88/infobase/internal/memstore"
	"github.com/roach88/infobase/internal/sqlstore"
	"github.com/roach88/infobase/internal/store"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string
	Database   string

	// Resolved in PersistentPreRunE.
	Config config.Config
	Logger *slog.Logger

	// OpenStore replaces backend selection from the configuration.
	OpenStore func(ctx context.Context) (store.Store, error)
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the infobase CLI.
func NewRootCommand() *cobra.Command {
	return NewRootCommandWithOptions(&RootOptions{})
}

// NewRootCommandWithOptions creates the root command around opts.
func NewRootCommandWithOptions(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "infobase",
		Short: "Infobase - a versioned object graph store",
		Long: `Infobase stores typed, versioned Things that reference each other by key.
Every write is recorded as a change; listings, sequences and users live
alongside the object graph.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Validate format flag
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return opts.resolve(cmd)
		},
	}

	cmd.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		return WrapExitError(ExitCommandError, "invalid flags", err)
	})

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "infobase.yaml", "path to config file (optional)")
	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "path to SQLite database (overrides config)")

	// Add subcommands
	cmd.AddCommand(NewInitCommand(opts))
	cmd.AddCommand(NewGetCommand(opts))
	cmd.AddCommand(NewThingsCommand(opts))
	cmd.AddCommand(NewVersionsCommand(opts))
	cmd.AddCommand(NewChangesCommand(opts))
	cmd.AddCommand(NewChangeCommand(opts))
	cmd.AddCommand(NewWriteCommand(opts))
	cmd.AddCommand(NewLoadCommand(opts))
	cmd.AddCommand(NewNewKeyCommand(opts))
	cmd.AddCommand(NewSeqCommand(opts))
	cmd.AddCommand(NewUserCommand(opts))

	return cmd
}

// resolve loads the configuration and installs the logger.
func (o *RootOptions) resolve(cmd *cobra.Command) error {
	cfg, err := config.LoadOptional(o.ConfigPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if o.Database != "" {
		cfg.Store.Backend = config.BackendSQLite
		cfg.Store.Path = o.Database
	}
	o.Config = cfg

	level, err := cfg.Log.SlogLevel()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if o.Verbose {
		level = slog.LevelDebug
	}
	o.Logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	return nil
}

func (o *RootOptions) open(ctx context.Context) (store.Store, error) {
	if o.OpenStore != nil {
		return o.OpenStore(ctx)
	}
	logger := o.Logger
	if logger == nil {
		logger = slog.Default()
	}
	switch o.Config.Store.Backend {
	case config.BackendMemory:
		return memstore.New(memstore.WithLogger(logger)), nil
	case config.BackendSQLite, "":
		path := o.Config.Store.Path
		if path == "" {
			path = config.DefaultPath
		}
		return sqlstore.Open(path, sqlstore.WithLogger(logger))
	default:
		return nil, fmt.Errorf("unknown store backend %q", o.Config.Store.Backend)
	}
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

// withStore opens the configured store, runs fn and closes the store.
func (o *RootOptions) withStore(cmd *cobra.Command, fn func(ctx context.Context, s store.Store, f *OutputFormatter) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	f := o.formatter(cmd)

	s, err := o.open(ctx)
	if err != nil {
		_ = f.Error(ErrCodeStore, fmt.Sprintf("failed to open store: %v", err), nil)
		return WrapExitError(ExitCommandError, "failed to open store", err)
	}
	defer s.Close()

	return fn(ctx, s, f)
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}
