package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/aryankumar/coalesce/internal/config"
)

// rootOptions is shared by every subcommand. It is filled in by the root
// command's PersistentPreRunE before any RunE executes.
type rootOptions struct {
	cfgFile string

	manager *config.Manager
	config  *config.CoalesceConfig
	logger  *slog.Logger

	// fs is where sections are resolved and files are read
	fs afero.Fs

	// logOutput receives log records, os.Stderr unless a test replaces it
	logOutput io.Writer
}

// Execute runs the root command with the provided context
func Execute(ctx context.Context) error {
	return newRootCmd().ExecuteContext(ctx)
}

// newRootCmd creates the root command
func newRootCmd() *cobra.Command {
	return newRootCmdWith(&rootOptions{fs: afero.NewOsFs(), logOutput: os.Stderr})
}

func newRootCmdWith(opts *rootOptions) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "coalesce",
		Short: "Coalesce - concurrent code analysis runner",
		Long: `Coalesce runs configurable analysis checks over the files of a project.

Each configured section selects files and the checks to run on them. Local
checks look at one file at a time and are spread over parallel workers;
global checks see the whole project. Results are streamed as they arrive.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.initConfig(cmd)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.cfgFile, "config", "", "config file (default is ./.coalesce.yaml or $HOME/.coalesce.yaml)")
	flags.StringP("output", "o", "", "output format (table, json, yaml, toml)")
	flags.BoolP("verbose", "v", false, "verbose output with debug logging")
	flags.Bool("no-color", false, "disable colored output")
	flags.IntP("jobs", "j", 0, "number of parallel workers (default is the number of CPUs, at most 8)")
	flags.Duration("poll-interval", 0, "how long to wait for worker messages before re-checking liveness")
	flags.Duration("timeout", 0, "timeout for a whole run (default 10m)")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newCompletionCmd())
	rootCmd.AddCommand(newRunCmd(opts))
	rootCmd.AddCommand(newSectionsCmd(opts))
	rootCmd.AddCommand(newInitCmd(opts))

	return rootCmd
}

// initConfig loads configuration and sets up logging
func (o *rootOptions) initConfig(cmd *cobra.Command) error {
	o.setupLogging(cmd)

	o.manager = config.NewManager(o.cfgFile)
	if err := o.manager.BindFlags(cmd.Flags()); err != nil {
		return err
	}

	cfg, err := o.manager.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	o.config = cfg

	if used := o.manager.ConfigFileUsed(); used != "" {
		o.logger.Debug("loaded configuration", "file", used, "sections", len(cfg.Sections))
	}
	return nil
}

// setupLogging configures structured logging with slog.
// Only warnings are shown unless --verbose is set, so that stderr stays
// quiet next to streamed results.
func (o *rootOptions) setupLogging(cmd *cobra.Command) {
	verbose, _ := cmd.Flags().GetBool("verbose")
	noColor, _ := cmd.Flags().GetBool("no-color")

	logLevel := slog.LevelWarn
	if verbose {
		logLevel = slog.LevelDebug
	}

	handlerOpts := &slog.HandlerOptions{
		Level: logLevel,
	}

	out := o.logOutput
	if out == nil {
		out = os.Stderr
	}

	var handler slog.Handler
	if noColor {
		handler = slog.NewJSONHandler(out, handlerOpts)
	} else {
		handler = slog.NewTextHandler(out, handlerOpts)
	}

	o.logger = slog.New(handler)
	slog.SetDefault(o.logger)

	if verbose {
		o.logger.Debug("verbose logging enabled")
	}
}
