package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/aryankumar/coalesce/internal/executor"
	"github.com/aryankumar/coalesce/internal/util"
)

// Format represents the output format type
type Format string

const (
	// FormatTable outputs results as a borderless table
	FormatTable Format = "table"
	// FormatJSON outputs results in JSON format
	FormatJSON Format = "json"
	// FormatYAML outputs results in YAML format
	FormatYAML Format = "yaml"
	// FormatTOML outputs results in TOML format
	FormatTOML Format = "toml"
)

// DefaultPathWidth is the widest path the table shows before truncating
const DefaultPathWidth = 50

// ParseFormat converts a format name into a Format
func ParseFormat(name string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(name))); f {
	case FormatTable, FormatJSON, FormatYAML, FormatTOML:
		return f, nil
	case "":
		return FormatTable, nil
	default:
		return "", fmt.Errorf("%w: unknown output format %q", util.ErrInvalidConfig, name)
	}
}

// Formatter defines the interface for output formatting
type Formatter interface {
	// Format outputs a single data item to the writer
	Format(w io.Writer, data interface{}) error

	// FormatResults outputs a list of results to the writer.
	// Hidden results are never written.
	FormatResults(w io.Writer, results []executor.Result) error
}

// Option is a functional option for configuring formatters
type Option func(*Options)

// Options holds configuration for formatters
type Options struct {
	// NoColor disables color output
	NoColor bool

	// NoHeaders disables table headers
	NoHeaders bool

	// Wide shows full paths instead of truncating them
	Wide bool

	// Root is the directory paths are shown relative to
	Root string
}

// WithNoColor disables color output
func WithNoColor(noColor bool) Option {
	return func(o *Options) {
		o.NoColor = noColor
	}
}

// WithNoHeaders disables table headers
func WithNoHeaders(noHeaders bool) Option {
	return func(o *Options) {
		o.NoHeaders = noHeaders
	}
}

// WithWide enables wide output
func WithWide(wide bool) Option {
	return func(o *Options) {
		o.Wide = wide
	}
}

// WithRoot shows paths relative to root
func WithRoot(root string) Option {
	return func(o *Options) {
		o.Root = root
	}
}

// NewFormatter creates a new formatter based on the specified format
func NewFormatter(format Format, opts ...Option) Formatter {
	options := &Options{}
	for _, opt := range opts {
		opt(options)
	}

	switch format {
	case FormatJSON:
		return NewJSONFormatter(options)
	case FormatYAML:
		return NewYAMLFormatter(options)
	case FormatTOML:
		return NewTOMLFormatter(options)
	case FormatTable:
		fallthrough
	default:
		return NewTableFormatter(options)
	}
}

// displayPath shortens a path for human-readable output
func (o *Options) displayPath(path string) string {
	width := DefaultPathWidth
	if o.Wide {
		width = 0
	}
	return util.DisplayPath(o.Root, path, width)
}

// visible drops hidden results and never returns nil, so that encoders
// write an empty list rather than null
func visible(results []executor.Result) []executor.Result {
	return executor.FilterVisible(results)
}
