package output

import (
	"io"

	"github.com/pelletier/go-toml/v2"

	"github.com/aryankumar/coalesce/internal/executor"
)

// TOMLFormatter formats output as TOML
type TOMLFormatter struct {
	options *Options
}

// tomlResults wraps results since a TOML document cannot be a bare array
type tomlResults struct {
	Results []executor.Result `toml:"results"`
}

// NewTOMLFormatter creates a new TOML formatter
func NewTOMLFormatter(opts *Options) *TOMLFormatter {
	if opts == nil {
		opts = &Options{}
	}
	return &TOMLFormatter{
		options: opts,
	}
}

// Format outputs a single data item as TOML.
// data must be a struct or a map.
func (f *TOMLFormatter) Format(w io.Writer, data interface{}) error {
	encoder := toml.NewEncoder(w)
	encoder.SetIndentTables(true)
	return encoder.Encode(data)
}

// FormatResults outputs visible results as an array of tables named results
func (f *TOMLFormatter) FormatResults(w io.Writer, results []executor.Result) error {
	return f.Format(w, tomlResults{Results: visible(results)})
}
