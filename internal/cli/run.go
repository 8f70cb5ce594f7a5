package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/aryankumar/coalesce/internal/catalog"
	"github.com/aryankumar/coalesce/internal/config"
	"github.com/aryankumar/coalesce/internal/executor"
	"github.com/aryankumar/coalesce/internal/output"
	"github.com/aryankumar/coalesce/internal/util"
)

type runFlags struct {
	wide        bool
	minSeverity string
	failOn      string
}

// Exit policies accepted by --fail-on
const (
	failOnAny   = "any"
	failOnMajor = "major"
	failOnNone  = "none"
)

// runTally counts what a run showed
type runTally struct {
	shown int
	major bool
}

// failed applies the exit policy
func (t runTally) failed(policy string) bool {
	switch policy {
	case failOnNone:
		return false
	case failOnMajor:
		return t.major
	default:
		return t.shown > 0
	}
}

// namedSection pairs a section's name with its configuration
type namedSection struct {
	name string
	cfg  config.SectionConfig
}

func newRunCmd(opts *rootOptions) *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "run [section...]",
		Short: "Run the checks of one or more sections",
		Long: `Run the checks of the named sections, or of every enabled section when
none is named.

In table mode results are printed as soon as each file is analysed. The json,
yaml and toml formats print all results once the run is complete. By default
the command exits with status 1 when any result was reported; --fail-on major
only fails on major results and --fail-on none never does.`,
		Example: `  # Run every enabled section
  coalesce run

  # Run two sections with 4 workers
  coalesce run go docs -j 4

  # Only report major findings, as JSON
  coalesce run --min-severity major -o json

  # Report everything but only fail on major results
  coalesce run --fail-on major`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSections(cmd.Context(), cmd.OutOrStdout(), opts, args, flags)
		},
		ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
			m := config.NewManager(opts.cfgFile)
			if _, err := m.Load(); err != nil {
				return nil, cobra.ShellCompDirectiveNoFileComp
			}
			return m.SectionNames(), cobra.ShellCompDirectiveNoFileComp
		},
	}

	cmd.Flags().BoolVar(&flags.wide, "wide", false, "show full file paths")
	cmd.Flags().StringVar(&flags.minSeverity, "min-severity", "info", "hide results below this severity (info, normal, major)")
	cmd.Flags().StringVar(&flags.failOn, "fail-on", failOnAny, "exit with status 1 on shown results (any, major, none)")

	return cmd
}

func runSections(ctx context.Context, out io.Writer, opts *rootOptions, names []string, flags runFlags) error {
	logger := opts.logger
	defaults := opts.config.Defaults

	format, err := output.ParseFormat(defaults.OutputFormat)
	if err != nil {
		return err
	}

	minSeverity, ok := executor.ParseSeverity(flags.minSeverity)
	if !ok {
		return fmt.Errorf("%w: unknown severity %q", util.ErrInvalidConfig, flags.minSeverity)
	}
	switch flags.failOn {
	case failOnAny, failOnMajor, failOnNone:
	default:
		return fmt.Errorf("%w: --fail-on must be one of %s, %s or %s, got %q",
			util.ErrInvalidConfig, failOnAny, failOnMajor, failOnNone, flags.failOn)
	}

	sections, err := opts.resolveSections(names)
	if err != nil {
		return err
	}
	if len(sections) == 0 {
		logger.Warn("no enabled sections to run")
		return nil
	}

	if defaults.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaults.Timeout)
		defer cancel()
	}

	builder := catalog.NewBuilder(opts.fs, logger)
	pool := executor.NewPool(defaults.Jobs, logger,
		executor.WithPollInterval(defaults.PollInterval),
		executor.WithFs(opts.fs),
		executor.WithProgress(func(localDone, globalDone, workers int) {
			logger.Debug("worker progress",
				"local_done", localDone,
				"global_done", globalDone,
				"workers", workers)
		}),
	)

	formatOpts := []output.Option{
		output.WithNoColor(defaults.NoColor),
		output.WithWide(flags.wide),
	}

	var (
		console   *output.Console
		collector output.Collector
		sink      executor.Sink
	)
	if format == output.FormatTable {
		console = output.NewConsole(out, formatOpts...)
		sink = console.Sink()
	} else {
		sink = collector.Sink()
	}

	var tally runTally
	sink = filterSink(sink, minSeverity, &tally)

	var runErr error
	for _, s := range sections {
		cat, err := builder.Build(s.name, s.cfg)
		if err != nil {
			runErr = err
			break
		}

		summary, err := pool.ExecuteSection(ctx, catalog.Section(s.name, s.cfg), cat, sink)
		logger.Debug("section finished",
			"section", s.name,
			"files", len(summary.FileArtifacts),
			"workers", summary.Workers,
			"any_results", summary.AnyResults,
			"duration", summary.Duration)
		if err != nil {
			runErr = err
			break
		}
	}

	// Whatever was delivered before a failure is still reported
	if console != nil {
		console.Summary()
	} else if err := output.NewFormatter(format, formatOpts...).FormatResults(out, collector.Results()); err != nil {
		return fmt.Errorf("failed to write results: %w", err)
	}

	if runErr != nil {
		return runErr
	}
	if tally.failed(flags.failOn) {
		return util.ErrResultsFound
	}
	return nil
}

// resolveSections returns the sections to run in order.
// Without any configured section the built-in default section is used.
func (o *rootOptions) resolveSections(names []string) ([]namedSection, error) {
	if len(names) == 0 && len(o.config.Sections) == 0 {
		o.logger.Debug("no sections configured, using the default section")
		return []namedSection{{name: config.DefaultSectionName, cfg: config.DefaultSection()}}, nil
	}

	resolved, err := o.manager.Resolve(names)
	if err != nil {
		return nil, err
	}

	sections := make([]namedSection, 0, len(resolved))
	for _, name := range resolved {
		cfg, _ := o.manager.GetSection(name)
		sections = append(sections, namedSection{name: name, cfg: cfg})
	}
	return sections, nil
}

// filterSink forwards results at or above min and tallies the visible ones
// it forwards
func filterSink(next executor.Sink, min executor.Severity, tally *runTally) executor.Sink {
	return func(section executor.Section, results []executor.Result, file *executor.Artifact) {
		kept := executor.FilterBySeverity(results, min)
		visible := executor.FilterVisible(kept)
		tally.shown += len(visible)
		if executor.HasMajor(visible) {
			tally.major = true
		}
		if len(kept) > 0 {
			next(section, kept, file)
		}
	}
}
