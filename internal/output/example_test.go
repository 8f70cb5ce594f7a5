package output_test

import (
	"os"

	"github.com/aryankumar/coalesce/internal/executor"
	"github.com/aryankumar/coalesce/internal/output"
)

func ExampleConsole() {
	console := output.NewConsole(os.Stdout, output.WithNoColor(true))
	sink := console.Sink()

	sink(executor.Section{Name: "go"}, []executor.Result{
		{Origin: "pattern", Message: `line matches "TODO"`, File: "main.go", Line: 7, Severity: executor.SeverityInfo},
		{Origin: "line-count", Message: "20 lines", File: "main.go", Hidden: true},
	}, nil)
	console.Summary()

	// Output:
	// main.go:7: info [pattern] line matches "TODO"
	// Summary: 0 major, 0 normal, 1 info in 1 file(s)
}

func ExampleJSONFormatter_FormatResults() {
	formatter := output.NewFormatter(output.FormatJSON)

	formatter.FormatResults(os.Stdout, []executor.Result{
		{Origin: "line-length", Message: "line is 130 characters long, maximum is 120", File: "main.go", Line: 12, Severity: executor.SeverityNormal},
	})

	// Output:
	// [
	//   {
	//     "origin": "line-length",
	//     "message": "line is 130 characters long, maximum is 120",
	//     "file": "main.go",
	//     "line": 12,
	//     "severity": "normal"
	//   }
	// ]
}

func ExampleNewFormatter() {
	formatter := output.NewFormatter(output.FormatYAML)

	formatter.FormatResults(os.Stdout, []executor.Result{
		{Origin: "duplicate-files", Message: "identical to a.go", File: "b.go", Severity: executor.SeverityMajor},
	})

	// Output:
	// - origin: duplicate-files
	//   message: identical to a.go
	//   file: b.go
	//   severity: major
}
