package output

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/aryankumar/coalesce/internal/executor"
)

// ColorScheme provides color functions for different output elements
type ColorScheme struct {
	// Path colors file paths and line numbers
	Path func(format string, a ...interface{}) string

	// Origin colors the name of the check that produced a result
	Origin func(format string, a ...interface{}) string

	// Major colors major findings
	Major func(format string, a ...interface{}) string

	// Normal colors normal findings
	Normal func(format string, a ...interface{}) string

	// Info colors informational findings
	Info func(format string, a ...interface{}) string

	// Success colors a clean run
	Success func(format string, a ...interface{}) string

	// Header colors table headers
	Header func(format string, a ...interface{}) string

	// Disabled indicates if colors are disabled
	Disabled bool
}

// NewColorScheme creates a new color scheme
// Colors are automatically disabled for non-TTY outputs or when noColor is true
func NewColorScheme(w io.Writer, noColor bool) *ColorScheme {
	useColor := !noColor && isTTY(w)

	if !useColor {
		plain := fmt.Sprintf
		return &ColorScheme{
			Path:     plain,
			Origin:   plain,
			Major:    plain,
			Normal:   plain,
			Info:     plain,
			Success:  plain,
			Header:   plain,
			Disabled: true,
		}
	}

	// color.NoColor reflects stdout only; w is known to be a terminal here
	enable := func(c *color.Color) func(string, ...interface{}) string {
		c.EnableColor()
		return c.Sprintf
	}

	return &ColorScheme{
		Path:     enable(color.New(color.FgCyan)),
		Origin:   enable(color.New(color.FgBlue)),
		Major:    enable(color.New(color.FgRed, color.Bold)),
		Normal:   enable(color.New(color.FgYellow)),
		Info:     enable(color.New(color.FgWhite)),
		Success:  enable(color.New(color.FgGreen)),
		Header:   enable(color.New(color.FgWhite, color.Bold)),
		Disabled: false,
	}
}

// isTTY checks if the writer is a TTY
func isTTY(w io.Writer) bool {
	if f, ok := w.(*os.File); ok {
		return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return false
}

// SeverityColor returns the color function for a severity
func (cs *ColorScheme) SeverityColor(sev executor.Severity) func(format string, a ...interface{}) string {
	switch sev {
	case executor.SeverityMajor:
		return cs.Major
	case executor.SeverityNormal:
		return cs.Normal
	default:
		return cs.Info
	}
}
