package executor

import (
	"fmt"
	"strings"
)

// FilterVisible returns the results that are not hidden
func FilterVisible(results []Result) []Result {
	filtered := make([]Result, 0, len(results))
	for _, r := range results {
		if !r.Hidden {
			filtered = append(filtered, r)
		}
	}
	return filtered
}

// FilterBySeverity returns results at or above min
func FilterBySeverity(results []Result, min Severity) []Result {
	filtered := make([]Result, 0, len(results))
	for _, r := range results {
		if r.Severity >= min {
			filtered = append(filtered, r)
		}
	}
	return filtered
}

// GroupByFile groups results by file
// Project-wide results are grouped under the empty string
func GroupByFile(results []Result) map[string][]Result {
	grouped := make(map[string][]Result)
	for _, r := range results {
		grouped[r.File] = append(grouped[r.File], r)
	}
	return grouped
}

// CountBySeverity returns the number of results at exactly sev
func CountBySeverity(results []Result, sev Severity) int {
	count := 0
	for _, r := range results {
		if r.Severity == sev {
			count++
		}
	}
	return count
}

// Summary counts results by severity
type Summary struct {
	Total  int
	Info   int
	Normal int
	Major  int
	Files  int
}

// Summarize creates a summary of the results
func Summarize(results []Result) Summary {
	files := GroupByFile(results)
	delete(files, "")

	return Summary{
		Total:  len(results),
		Info:   CountBySeverity(results, SeverityInfo),
		Normal: CountBySeverity(results, SeverityNormal),
		Major:  CountBySeverity(results, SeverityMajor),
		Files:  len(files),
	}
}

// String returns a human-readable string representation of the summary
func (s Summary) String() string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Total: %d, ", s.Total))
	sb.WriteString(fmt.Sprintf("Major: %d, ", s.Major))
	sb.WriteString(fmt.Sprintf("Normal: %d, ", s.Normal))
	sb.WriteString(fmt.Sprintf("Info: %d", s.Info))

	if s.Files > 0 {
		sb.WriteString(fmt.Sprintf(" in %d file(s)", s.Files))
	}

	return sb.String()
}

// HasMajor returns true if any result is of major severity
func HasMajor(results []Result) bool {
	for _, r := range results {
		if r.Severity == SeverityMajor {
			return true
		}
	}
	return false
}
