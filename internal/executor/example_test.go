package executor_test

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/aryankumar/coalesce/internal/executor"
	"github.com/spf13/afero"
)

// todoCheck reports lines containing TODO
type todoCheck struct{}

func (todoCheck) Name() string { return "todo" }

func (todoCheck) RunLocal(_ context.Context, _ executor.Section, file *executor.Artifact) ([]executor.Result, error) {
	var results []executor.Result
	for i, line := range file.Lines {
		if strings.Contains(line, "TODO") {
			results = append(results, executor.Result{
				Origin:   "todo",
				Message:  "unresolved TODO",
				File:     file.Path,
				Line:     i + 1,
				Severity: executor.SeverityInfo,
			})
		}
	}
	return results, nil
}

// Example demonstrates executing a section with a single worker
func Example() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))

	fs := afero.NewMemMapFs()
	afero.WriteFile(fs, "main.go", []byte("package main\n// TODO: flags\n"), 0o644)
	afero.WriteFile(fs, "util.go", []byte("package main\n"), 0o644)

	pool := executor.NewPool(1, logger, executor.WithFs(fs))

	catalog := executor.Catalog{
		Files: []string{"main.go", "util.go"},
		Local: []executor.LocalTask{todoCheck{}},
	}

	summary, err := pool.ExecuteSection(context.Background(), executor.Section{Name: "default"}, catalog,
		func(section executor.Section, results []executor.Result, file *executor.Artifact) {
			fmt.Printf("%s: %d result(s)\n", file.Path, len(results))
			for _, r := range results {
				fmt.Println("  " + r.String())
			}
		})
	if err != nil {
		fmt.Println("error:", err)
		return
	}

	fmt.Printf("any results: %v, files: %d\n", summary.AnyResults, len(summary.FileArtifacts))
	// Output:
	// main.go: 1 result(s)
	//   main.go:2: [info] todo: unresolved TODO
	// util.go: 0 result(s)
	// any results: true, files: 2
}

// ExampleSummarize demonstrates result aggregation helpers
func ExampleSummarize() {
	results := []executor.Result{
		{Origin: "line-length", File: "a.go", Line: 3, Severity: executor.SeverityNormal},
		{Origin: "line-length", File: "a.go", Line: 9, Severity: executor.SeverityNormal},
		{Origin: "command", File: "b.go", Severity: executor.SeverityMajor},
		{Origin: "line-count", File: "b.go", Hidden: true},
	}

	visible := executor.FilterVisible(results)
	fmt.Println(executor.Summarize(visible))
	fmt.Println(executor.HasMajor(visible))
	// Output:
	// Total: 3, Major: 1, Normal: 2, Info: 0 in 2 file(s)
	// true
}

// ExampleAggregator demonstrates draining a scripted control channel
func ExampleAggregator() {
	ch := executor.NewControlChannel(4)
	ctx := context.Background()
	ch.Post(ctx, executor.LocalMessage(1))
	ch.Post(ctx, executor.GlobalMessage(1))
	ch.Post(ctx, executor.LocalDoneMessage())
	ch.Post(ctx, executor.GlobalDoneMessage())

	agg := executor.NewAggregator(executor.AggregatorConfig{
		Local:  executor.NewResultBufferFrom(map[int][]executor.Result{1: {{Message: "local"}}}),
		Global: executor.NewResultBufferFrom(map[int][]executor.Result{1: {{Message: "global"}}}),
		Sink: func(_ executor.Section, results []executor.Result, _ *executor.Artifact) {
			fmt.Println(results[0].Message)
		},
		Logger: slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn})),
	})

	// No worker handles: the loop ends as soon as the channel is drained
	stats := agg.Drain(ch, nil)
	fmt.Printf("dispatched=%d markers=%d/%d\n", stats.Dispatched, stats.LocalDone, stats.GlobalDone)
	// Output:
	// local
	// global
	// dispatched=2 markers=1/1
}
