package executor

import (
	"context"
	"fmt"
	"strings"
)

// Severity ranks how important a result is
type Severity int

const (
	// SeverityInfo is purely informational
	SeverityInfo Severity = iota
	// SeverityNormal is the default severity for findings
	SeverityNormal
	// SeverityMajor marks findings that need attention, including task faults
	SeverityMajor
)

// String returns the lowercase name of the severity
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityNormal:
		return "normal"
	case SeverityMajor:
		return "major"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// MarshalText encodes the severity by name
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a severity name
func (s *Severity) UnmarshalText(text []byte) error {
	sev, ok := ParseSeverity(string(text))
	if !ok {
		return fmt.Errorf("unknown severity %q", string(text))
	}
	*s = sev
	return nil
}

// ParseSeverity converts a severity name into a Severity
// Unknown names fall back to SeverityNormal and report false
func ParseSeverity(name string) (Severity, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "info", "note":
		return SeverityInfo, true
	case "normal", "warning", "warn":
		return SeverityNormal, true
	case "major", "error", "fatal":
		return SeverityMajor, true
	default:
		return SeverityNormal, false
	}
}

// Result is a single analysis finding produced by a task
type Result struct {
	// Origin is the name of the task that produced the result
	Origin string `json:"origin" yaml:"origin" toml:"origin"`

	// Message describes the finding
	Message string `json:"message" yaml:"message" toml:"message"`

	// File is the affected file (empty for project-wide findings)
	File string `json:"file,omitempty" yaml:"file,omitempty" toml:"file,omitempty"`

	// Line is the 1-based line number (0 if not line specific)
	Line int `json:"line,omitempty" yaml:"line,omitempty" toml:"line,omitempty"`

	// Severity ranks the finding
	Severity Severity `json:"severity" yaml:"severity" toml:"severity"`

	// Hidden results are internal bookkeeping and never reach a Sink
	Hidden bool `json:"-" yaml:"-" toml:"-"`
}

// String returns a one-line representation of the result
func (r Result) String() string {
	var sb strings.Builder
	if r.File != "" {
		sb.WriteString(r.File)
		if r.Line > 0 {
			sb.WriteString(fmt.Sprintf(":%d", r.Line))
		}
		sb.WriteString(": ")
	}
	sb.WriteString(fmt.Sprintf("[%s] %s: %s", r.Severity, r.Origin, r.Message))
	return sb.String()
}

// Section identifies the analysis profile being run
// It is passed through to tasks and sinks and never interpreted by the executor
type Section struct {
	Name     string
	Settings map[string]interface{}
}

// Setting returns a section setting, or def if it is not set
func (s Section) Setting(key string, def interface{}) interface{} {
	if v, ok := s.Settings[key]; ok {
		return v
	}
	return def
}

// Artifact is the loaded content of one file
type Artifact struct {
	// Path is the file path as listed in the catalog
	Path string

	// Lines holds the file content split into lines, without line terminators
	Lines []string

	// Content is the raw file content
	Content []byte
}

// LocalTask analyses one file at a time
type LocalTask interface {
	Name() string
	RunLocal(ctx context.Context, section Section, file *Artifact) ([]Result, error)
}

// GlobalTask analyses the whole project at once
type GlobalTask interface {
	Name() string
	RunGlobal(ctx context.Context, section Section, files map[string]*Artifact) ([]Result, error)
}

// Catalog lists the work of one section run
// Both task lists and the file list are treated as immutable during a run
type Catalog struct {
	// Files are the paths local tasks apply to
	Files []string

	// Local tasks run once per file
	Local []LocalTask

	// Global tasks run once per section
	Global []GlobalTask
}

// TaskCount returns the total number of task executions the catalog describes
func (c Catalog) TaskCount() int {
	return len(c.Files)*len(c.Local) + len(c.Global)
}

// Sink receives each result batch once it has been announced on the control channel
// file is nil for global results
type Sink func(section Section, results []Result, file *Artifact)

// TaskFault describes a task that returned an error or panicked
type TaskFault struct {
	Task string
	Key  int
	Err  error
}

// Error implements the error interface
func (f *TaskFault) Error() string {
	return fmt.Sprintf("task %q (key %d) failed: %v", f.Task, f.Key, f.Err)
}

// Unwrap returns the underlying error
func (f *TaskFault) Unwrap() error {
	return f.Err
}

// Result converts the fault into a visible major result
func (f *TaskFault) Result(file string) Result {
	return Result{
		Origin:   f.Task,
		Message:  fmt.Sprintf("task failed: %v", f.Err),
		File:     file,
		Severity: SeverityMajor,
	}
}
