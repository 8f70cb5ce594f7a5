package check

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/aryankumar/coalesce/internal/executor"
	"github.com/aryankumar/coalesce/internal/procgroup"
)

// DefaultCommandTimeout bounds a single external command run
const DefaultCommandTimeout = 30 * time.Second

// DefaultOutputPattern matches "path:line[:col]: [severity:] message"
const DefaultOutputPattern = `^[^:]+:(?P<line>\d+)(?::\d+)?:\s*(?:(?P<severity>error|warning|info|note):\s*)?(?P<message>.+)$`

// command runs an external tool on each file in its own process group and
// turns matching output lines into results
type command struct {
	base
	re     *regexp.Regexp
	opts   commandOptions
	logger *slog.Logger
}

type commandOptions struct {
	Command       []string          `mapstructure:"command"`
	Dir           string            `mapstructure:"dir"`
	Timeout       time.Duration     `mapstructure:"timeout"`
	Pattern       string            `mapstructure:"pattern"`
	Stderr        bool              `mapstructure:"stderr"`
	Severity      executor.Severity `mapstructure:"severity"`
	ExitCodeFault bool              `mapstructure:"exitCodeFault"`
}

func newCommand(name string, settings map[string]interface{}, opts Options) (Check, error) {
	co := commandOptions{
		Timeout:  DefaultCommandTimeout,
		Pattern:  DefaultOutputPattern,
		Severity: executor.SeverityNormal,
	}
	if err := decodeSettings(settings, &co); err != nil {
		return nil, err
	}
	if len(co.Command) == 0 {
		return nil, fmt.Errorf("command is required")
	}
	if co.Timeout <= 0 {
		return nil, fmt.Errorf("timeout must be positive, got %s", co.Timeout)
	}

	re, err := regexp.Compile(co.Pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid output pattern %q: %w", co.Pattern, err)
	}

	return &command{
		base:   base{name: name, kind: KindCommand},
		re:     re,
		opts:   co,
		logger: opts.Logger,
	}, nil
}

// argv substitutes {file} in the configured command, appending the path when
// no argument mentions it
func (c *command) argv(path string) []string {
	argv := make([]string, 0, len(c.opts.Command)+1)
	substituted := false
	for _, arg := range c.opts.Command {
		if strings.Contains(arg, "{file}") {
			substituted = true
			arg = strings.ReplaceAll(arg, "{file}", path)
		}
		argv = append(argv, arg)
	}
	if !substituted {
		argv = append(argv, path)
	}
	return argv
}

// RunLocal implements executor.LocalTask
func (c *command) RunLocal(ctx context.Context, _ executor.Section, file *executor.Artifact) ([]executor.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	stderr := procgroup.Discard
	if c.opts.Stderr {
		stderr = procgroup.Capture
	}

	argv := c.argv(file.Path)
	start := time.Now()
	g, err := procgroup.Run(ctx, argv, procgroup.Capture, stderr,
		procgroup.WithDir(c.opts.Dir),
		procgroup.WithLogger(c.logger),
	)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%s timed out after %s", argv[0], c.opts.Timeout)
		}
		return nil, err
	}

	code, _ := g.Wait()
	c.logger.Debug("command finished",
		"file", file.Path,
		"exit_code", code,
		"duration", time.Since(start),
	)

	results := c.parse(file.Path, g.Stdout())
	if c.opts.Stderr {
		results = append(results, c.parse(file.Path, g.Stderr())...)
	}

	if c.opts.ExitCodeFault && code != 0 && len(results) == 0 {
		return nil, fmt.Errorf("%s exited with code %d", argv[0], code)
	}
	return results, nil
}

// parse converts output lines matching the pattern into results.
// Named groups line, severity and message are honoured when present.
func (c *command) parse(path string, output []byte) []executor.Result {
	var results []executor.Result

	lineIdx := c.re.SubexpIndex("line")
	sevIdx := c.re.SubexpIndex("severity")
	msgIdx := c.re.SubexpIndex("message")

	// Lines of any length are kept
	for _, line := range bytes.Split(output, []byte("\n")) {
		text := string(bytes.TrimSuffix(line, []byte("\r")))
		if text == "" {
			continue
		}
		m := c.re.FindStringSubmatch(text)
		if m == nil {
			continue
		}

		r := executor.Result{
			Origin:   c.name,
			Message:  strings.TrimSpace(text),
			File:     path,
			Severity: c.opts.Severity,
		}
		if lineIdx > 0 && m[lineIdx] != "" {
			if n, err := strconv.Atoi(m[lineIdx]); err == nil {
				r.Line = n
			}
		}
		if sevIdx > 0 && m[sevIdx] != "" {
			if sev, ok := executor.ParseSeverity(m[sevIdx]); ok {
				r.Severity = sev
			}
		}
		if msgIdx > 0 && m[msgIdx] != "" {
			r.Message = strings.TrimSpace(m[msgIdx])
		}
		results = append(results, r)
	}

	return results
}
