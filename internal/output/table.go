package output

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/aryankumar/coalesce/internal/executor"
)

// TableFormatter formats output as a borderless table
type TableFormatter struct {
	options *Options
}

// NewTableFormatter creates a new table formatter
func NewTableFormatter(opts *Options) *TableFormatter {
	if opts == nil {
		opts = &Options{}
	}
	return &TableFormatter{
		options: opts,
	}
}

// Format outputs a single data item as a table
func (f *TableFormatter) Format(w io.Writer, data interface{}) error {
	table := f.createTable(w)

	switch v := data.(type) {
	case map[string]interface{}:
		return f.formatMap(table, v)
	case []map[string]interface{}:
		return f.formatMapSlice(table, v)
	default:
		fmt.Fprintln(w, v)
		return nil
	}
}

// FormatResults outputs results as a table followed by a summary line
func (f *TableFormatter) FormatResults(w io.Writer, results []executor.Result) error {
	results = visible(results)
	colors := NewColorScheme(w, f.options.NoColor)

	if len(results) == 0 {
		PrintSummary(w, results, colors)
		return nil
	}

	table := f.createTable(w)

	headers := []string{"FILE", "LINE", "SEVERITY", "ORIGIN", "MESSAGE"}
	if !f.options.NoHeaders {
		if colors.Disabled {
			table.SetHeader(headers)
		} else {
			coloredHeaders := make([]string, len(headers))
			for i, h := range headers {
				coloredHeaders[i] = colors.Header(h)
			}
			table.SetHeader(coloredHeaders)
		}
	}

	for _, result := range results {
		table.Append(f.formatResultRow(result, colors))
	}

	table.Render()

	fmt.Fprintln(w, "")
	PrintSummary(w, results, colors)

	return nil
}

// formatResultRow formats a single result as a table row
func (f *TableFormatter) formatResultRow(result executor.Result, colors *ColorScheme) []string {
	file := "-"
	if result.File != "" {
		file = colors.Path(f.options.displayPath(result.File))
	}

	line := "-"
	if result.Line > 0 {
		line = strconv.Itoa(result.Line)
	}

	return []string{
		file,
		line,
		colors.SeverityColor(result.Severity)(result.Severity.String()),
		colors.Origin(result.Origin),
		result.Message,
	}
}

// formatMap formats a map as a two-column table (key-value pairs)
func (f *TableFormatter) formatMap(table *tablewriter.Table, data map[string]interface{}) error {
	if !f.options.NoHeaders {
		table.SetHeader([]string{"KEY", "VALUE"})
	}

	for k, v := range data {
		table.Append([]string{k, fmt.Sprintf("%v", v)})
	}

	table.Render()
	return nil
}

// formatMapSlice formats a slice of maps as a table
func (f *TableFormatter) formatMapSlice(table *tablewriter.Table, data []map[string]interface{}) error {
	if len(data) == 0 {
		return nil
	}

	var headers []string
	for k := range data[0] {
		headers = append(headers, strings.ToUpper(k))
	}

	if !f.options.NoHeaders {
		table.SetHeader(headers)
	}

	for _, item := range data {
		var row []string
		for _, h := range headers {
			row = append(row, fmt.Sprintf("%v", item[strings.ToLower(h)]))
		}
		table.Append(row)
	}

	table.Render()
	return nil
}

// createTable creates a new borderless, tab-padded table
func (f *TableFormatter) createTable(w io.Writer) *tablewriter.Table {
	table := tablewriter.NewWriter(w)

	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")
	table.SetNoWhiteSpace(true)

	return table
}

// PrintSummary prints a one-line count of results by severity
func PrintSummary(w io.Writer, results []executor.Result, colors *ColorScheme) {
	summary := executor.Summarize(visible(results))

	if summary.Total == 0 {
		fmt.Fprintln(w, colors.Success("No issues found"))
		return
	}

	parts := []string{
		colorCount(summary.Major, "major", colors.Major),
		colorCount(summary.Normal, "normal", colors.Normal),
		colorCount(summary.Info, "info", colors.Info),
	}

	fmt.Fprintf(w, "Summary: %s", strings.Join(parts, ", "))
	if summary.Files > 0 {
		fmt.Fprintf(w, " in %d file(s)", summary.Files)
	}
	fmt.Fprintln(w)
}

func colorCount(n int, label string, fn func(string, ...interface{}) string) string {
	text := fmt.Sprintf("%d %s", n, label)
	if n == 0 {
		return text
	}
	return fn(text)
}
