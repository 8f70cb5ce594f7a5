//go:build !windows

package integration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"

	"github.com/aryankumar/coalesce/internal/catalog"
	"github.com/aryankumar/coalesce/internal/config"
	"github.com/aryankumar/coalesce/internal/executor"
	"github.com/aryankumar/coalesce/internal/output"
)

const workflowConfig = `
defaults:
  jobs: 2
  pollInterval: 10ms
sections:
  src:
    root: %s
    files: ["**/*.go"]
    checks:
      - kind: trailing-whitespace
      - kind: duplicate-files
      - name: tool
        kind: command
        settings:
          command: ["sh", "-c", "echo \"$1:1: note: $(grep -c '' \"$1\") lines\"", "sh", "{file}"]
          timeout: 10s
      - name: census
        kind: lua
        settings:
          scope: global
          script: |
            function check_all(files)
              local n = 0
              for _ in pairs(files) do n = n + 1 end
              return {{message = "checked " .. n .. " files", severity = "info"}}
            end
`

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
}

func byOrigin(results []executor.Result, origin string) []executor.Result {
	var out []executor.Result
	for _, r := range results {
		if r.Origin == origin {
			out = append(out, r)
		}
	}
	return out
}

// loadSection writes cfg to a config file, loads it and returns the named section
func loadSection(t *testing.T, cfg, name string) (*config.CoalesceConfig, config.SectionConfig) {
	t.Helper()

	path := filepath.Join(t.TempDir(), ".coalesce.yaml")
	if err := os.WriteFile(path, []byte(cfg), 0644); err != nil {
		t.Fatal(err)
	}

	loaded, err := config.NewManager(path).Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	section, ok := loaded.Sections[name]
	if !ok {
		t.Fatalf("section %q not loaded", name)
	}
	return loaded, section
}

// TestFullWorkflow tests the complete workflow from config loading to execution
func TestFullWorkflow(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"a.go":        "package a \n",
		"pkg/copy.go": "package a \n",
		"pkg/b.go":    "package b\n\nfunc B() {}\n",
		"README.md":   "not analysed\n",
	})

	cfg, section := loadSection(t, fmt.Sprintf(workflowConfig, root), "src")
	logger := testLogger()

	cat, err := catalog.NewBuilder(afero.NewOsFs(), logger).Build("src", section)
	if err != nil {
		t.Fatalf("failed to build catalog: %v", err)
	}
	if len(cat.Files) != 3 || len(cat.Local) != 2 || len(cat.Global) != 2 {
		t.Fatalf("catalog has %d files, %d local, %d global tasks", len(cat.Files), len(cat.Local), len(cat.Global))
	}

	pool := executor.NewPool(cfg.Defaults.Jobs, logger, executor.WithPollInterval(cfg.Defaults.PollInterval))

	var collector output.Collector
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	summary, err := pool.ExecuteSection(ctx, catalog.Section("src", section), cat, collector.Sink())
	if err != nil {
		t.Fatalf("execution failed: %v", err)
	}

	if !summary.AnyResults {
		t.Error("expected results")
	}
	if summary.Workers != 2 {
		t.Errorf("Workers = %d, want 2", summary.Workers)
	}
	if len(summary.FileArtifacts) != 3 {
		t.Errorf("loaded %d files, want 3", len(summary.FileArtifacts))
	}
	if summary.Crashed != 0 || summary.Violations != 0 {
		t.Errorf("crashed = %d, violations = %d", summary.Crashed, summary.Violations)
	}

	results := collector.Results()

	tool := byOrigin(results, "tool")
	if len(tool) != 3 {
		t.Errorf("got %d command results, want 3: %v", len(tool), tool)
	}
	for _, r := range tool {
		if r.Line != 1 || r.Severity != executor.SeverityInfo || !strings.HasSuffix(r.Message, "lines") {
			t.Errorf("unexpected command result: %+v", r)
		}
	}

	if ws := byOrigin(results, "trailing-whitespace"); len(ws) != 2 {
		t.Errorf("got %d trailing whitespace results, want 2: %v", len(ws), ws)
	}

	dups := byOrigin(results, "duplicate-files")
	if len(dups) != 1 {
		t.Fatalf("got %d duplicate results, want 1: %v", len(dups), dups)
	}
	if dups[0].File != filepath.Join(root, "pkg", "copy.go") || !strings.HasSuffix(dups[0].Message, "a.go") {
		t.Errorf("unexpected duplicate result: %+v", dups[0])
	}

	census := byOrigin(results, "census")
	if len(census) != 1 || census[0].Message != "checked 3 files" {
		t.Errorf("unexpected lua results: %v", census)
	}
}

// TestContextCancellation tests that a cancelled run stops its external commands
func TestContextCancellation(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	root := t.TempDir()
	writeFiles(t, root, map[string]string{"a.go": "package a\n", "b.go": "package b\n"})

	cfg := fmt.Sprintf(`
sections:
  slow:
    root: %s
    files: ["*.go"]
    checks:
      - kind: command
        settings:
          command: ["sh", "-c", "sleep 30", "sh", "{file}"]
          timeout: 1m
`, root)
	_, section := loadSection(t, cfg, "slow")
	logger := testLogger()

	cat, err := catalog.NewBuilder(afero.NewOsFs(), logger).Build("slow", section)
	if err != nil {
		t.Fatalf("failed to build catalog: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err = executor.NewPool(2, logger).ExecuteSection(ctx, catalog.Section("slow", section), cat, func(executor.Section, []executor.Result, *executor.Artifact) {})

	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("error = %v, want deadline exceeded", err)
	}
	if elapsed := time.Since(start); elapsed > 10*time.Second {
		t.Errorf("cancelled run took %s", elapsed)
	}
}

// TestRaceConditions runs several sections concurrently, each on its own pool
func TestRaceConditions(t *testing.T) {
	root := t.TempDir()
	files := make(map[string]string)
	for i := 0; i < 20; i++ {
		files[fmt.Sprintf("f%02d.txt", i)] = fmt.Sprintf("line %d \nTODO\n", i)
	}
	writeFiles(t, root, files)

	section := config.SectionConfig{
		Root:  root,
		Files: []string{"*.txt"},
		Checks: []config.CheckConfig{
			{Kind: "trailing-whitespace"},
			{Kind: "pattern", Settings: map[string]interface{}{"pattern": "TODO"}},
			{Kind: "line-count"},
		},
	}

	logger := testLogger()
	builder := catalog.NewBuilder(afero.NewOsFs(), logger)

	var wg sync.WaitGroup
	counts := make([]int, 4)
	for i := range counts {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			cat, err := builder.Build("race", section)
			if err != nil {
				t.Errorf("build failed: %v", err)
				return
			}

			var collector output.Collector
			pool := executor.NewPool(i+1, logger, executor.WithPollInterval(5*time.Millisecond))
			if _, err := pool.ExecuteSection(context.Background(), catalog.Section("race", section), cat, collector.Sink()); err != nil {
				t.Errorf("execution failed: %v", err)
				return
			}
			counts[i] = len(collector.Results())
		}(i)
	}
	wg.Wait()

	// Two visible results per file; line counts are hidden
	for i, n := range counts {
		if n != 40 {
			t.Errorf("pool with %d workers delivered %d results, want 40", i+1, n)
		}
	}
}
