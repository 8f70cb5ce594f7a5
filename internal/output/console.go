package output

import (
	"fmt"
	"io"
	"sync"

	"github.com/aryankumar/coalesce/internal/executor"
)

// Console prints results as they are delivered, one line per result,
// in the form "path:line: severity [origin] message"
type Console struct {
	w       io.Writer
	options *Options
	colors  *ColorScheme

	mu      sync.Mutex
	printed []executor.Result
}

// NewConsole creates a console printer writing to w
func NewConsole(w io.Writer, opts ...Option) *Console {
	options := &Options{}
	for _, opt := range opts {
		opt(options)
	}
	return &Console{
		w:       w,
		options: options,
		colors:  NewColorScheme(w, options.NoColor),
	}
}

// Sink returns an executor.Sink that prints every visible result
func (c *Console) Sink() executor.Sink {
	return func(section executor.Section, results []executor.Result, _ *executor.Artifact) {
		c.mu.Lock()
		defer c.mu.Unlock()

		for _, r := range results {
			if r.Hidden {
				continue
			}
			c.printed = append(c.printed, r)
			fmt.Fprintln(c.w, c.line(section, r))
		}
	}
}

func (c *Console) line(section executor.Section, r executor.Result) string {
	location := section.Name
	if r.File != "" {
		location = c.options.displayPath(r.File)
		if r.Line > 0 {
			location = fmt.Sprintf("%s:%d", location, r.Line)
		}
	}

	return fmt.Sprintf("%s: %s [%s] %s",
		c.colors.Path(location),
		c.colors.SeverityColor(r.Severity)(r.Severity.String()),
		c.colors.Origin(r.Origin),
		r.Message,
	)
}

// Summary prints the summary line for everything printed so far
func (c *Console) Summary() {
	c.mu.Lock()
	defer c.mu.Unlock()

	PrintSummary(c.w, c.printed, c.colors)
}

// Collector accumulates visible results for formatters that need the
// complete list before writing
type Collector struct {
	mu      sync.Mutex
	results []executor.Result
}

// Sink returns an executor.Sink that records every visible result
func (c *Collector) Sink() executor.Sink {
	return func(_ executor.Section, results []executor.Result, _ *executor.Artifact) {
		c.mu.Lock()
		defer c.mu.Unlock()

		for _, r := range results {
			if !r.Hidden {
				c.results = append(c.results, r)
			}
		}
	}
}

// Results returns a copy of the collected results in delivery order
func (c *Collector) Results() []executor.Result {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]executor.Result, len(c.results))
	copy(out, c.results)
	return out
}
