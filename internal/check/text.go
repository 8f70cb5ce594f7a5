package check

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/aryankumar/coalesce/internal/executor"
)

// Check kinds
const (
	KindLineLength         = "line-length"
	KindTrailingWhitespace = "trailing-whitespace"
	KindPattern            = "pattern"
	KindLineCount          = "line-count"
	KindDuplicateFiles     = "duplicate-files"
	KindCommand            = "command"
	KindLua                = "lua"
)

// DefaultMaxLineLength applies when neither the check nor the section sets a limit
const DefaultMaxLineLength = 80

// lineLength reports lines longer than a maximum number of characters
type lineLength struct {
	base
	opts lineLengthOptions
}

type lineLengthOptions struct {
	Max      int                `mapstructure:"max"`
	Severity executor.Severity `mapstructure:"severity"`
}

func newLineLength(name string, settings map[string]interface{}, _ Options) (Check, error) {
	opts := lineLengthOptions{Severity: executor.SeverityNormal}
	if err := decodeSettings(settings, &opts); err != nil {
		return nil, err
	}
	if opts.Max < 0 {
		return nil, fmt.Errorf("max must not be negative, got %d", opts.Max)
	}
	return &lineLength{base: base{name: name, kind: KindLineLength}, opts: opts}, nil
}

// RunLocal implements executor.LocalTask.
// Without its own max the section's max_line_length setting is used.
func (c *lineLength) RunLocal(_ context.Context, section executor.Section, file *executor.Artifact) ([]executor.Result, error) {
	max := c.opts.Max
	if max == 0 {
		max = intSetting(section, "max_line_length", DefaultMaxLineLength)
	}

	var results []executor.Result
	for i, line := range file.Lines {
		n := utf8.RuneCountInString(line)
		if n <= max {
			continue
		}
		results = append(results, executor.Result{
			Origin:   c.name,
			Message:  fmt.Sprintf("line is %d characters long, maximum is %d", n, max),
			File:     file.Path,
			Line:     i + 1,
			Severity: c.opts.Severity,
		})
	}
	return results, nil
}

// trailingWhitespace reports lines ending in spaces or tabs
type trailingWhitespace struct {
	base
	opts severityOptions
}

type severityOptions struct {
	Severity executor.Severity `mapstructure:"severity"`
}

func newTrailingWhitespace(name string, settings map[string]interface{}, _ Options) (Check, error) {
	opts := severityOptions{Severity: executor.SeverityInfo}
	if err := decodeSettings(settings, &opts); err != nil {
		return nil, err
	}
	return &trailingWhitespace{base: base{name: name, kind: KindTrailingWhitespace}, opts: opts}, nil
}

// RunLocal implements executor.LocalTask
func (c *trailingWhitespace) RunLocal(_ context.Context, _ executor.Section, file *executor.Artifact) ([]executor.Result, error) {
	var results []executor.Result
	for i, line := range file.Lines {
		if line == strings.TrimRight(line, " \t") {
			continue
		}
		results = append(results, executor.Result{
			Origin:   c.name,
			Message:  "trailing whitespace",
			File:     file.Path,
			Line:     i + 1,
			Severity: c.opts.Severity,
		})
	}
	return results, nil
}

// pattern reports lines matching a regular expression
type pattern struct {
	base
	re   *regexp.Regexp
	opts patternOptions
}

type patternOptions struct {
	Pattern  string            `mapstructure:"pattern"`
	Message  string            `mapstructure:"message"`
	Severity executor.Severity `mapstructure:"severity"`
}

func newPattern(name string, settings map[string]interface{}, _ Options) (Check, error) {
	opts := patternOptions{Severity: executor.SeverityNormal}
	if err := decodeSettings(settings, &opts); err != nil {
		return nil, err
	}
	if opts.Pattern == "" {
		return nil, fmt.Errorf("pattern is required")
	}

	re, err := regexp.Compile(opts.Pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", opts.Pattern, err)
	}
	if opts.Message == "" {
		opts.Message = "line matches {match}"
	}

	return &pattern{base: base{name: name, kind: KindPattern}, re: re, opts: opts}, nil
}

// RunLocal implements executor.LocalTask.
// {match} in the message is replaced by the quoted matched text.
func (c *pattern) RunLocal(_ context.Context, _ executor.Section, file *executor.Artifact) ([]executor.Result, error) {
	var results []executor.Result
	for i, line := range file.Lines {
		loc := c.re.FindStringIndex(line)
		if loc == nil {
			continue
		}
		match := line[loc[0]:loc[1]]
		results = append(results, executor.Result{
			Origin:   c.name,
			Message:  strings.ReplaceAll(c.opts.Message, "{match}", fmt.Sprintf("%q", match)),
			File:     file.Path,
			Line:     i + 1,
			Severity: c.opts.Severity,
		})
	}
	return results, nil
}

// lineCount records the number of lines in each file as a hidden result
type lineCount struct {
	base
}

func newLineCount(name string, settings map[string]interface{}, _ Options) (Check, error) {
	if err := decodeSettings(settings, &struct{}{}); err != nil {
		return nil, err
	}
	return &lineCount{base: base{name: name, kind: KindLineCount}}, nil
}

// RunLocal implements executor.LocalTask
func (c *lineCount) RunLocal(_ context.Context, _ executor.Section, file *executor.Artifact) ([]executor.Result, error) {
	return []executor.Result{{
		Origin:   c.name,
		Message:  fmt.Sprintf("%d lines", len(file.Lines)),
		File:     file.Path,
		Severity: executor.SeverityInfo,
		Hidden:   true,
	}}, nil
}
