package check

import (
	"context"
	"reflect"
	"strings"
	"testing"

	"github.com/spf13/afero"

	"github.com/aryankumar/coalesce/internal/executor"
)

const todoScript = `
function check(path, lines)
  local out = {}
  for i, line in ipairs(lines) do
    if string.find(line, "TODO", 1, true) then
      table.insert(out, {line = i, message = "todo in " .. section, severity = "info"})
    end
  end
  return out
end
`

func TestLua_Local(t *testing.T) {
	c := mustLocal(t, Spec{Name: "todo", Kind: KindLua, Settings: map[string]interface{}{"script": todoScript}})

	results, err := c.RunLocal(context.Background(), executor.Section{Name: "default"},
		artifact("a.go", "package a", "// TODO one", "x := 1 // TODO two"))
	if err != nil {
		t.Fatalf("RunLocal failed: %v", err)
	}

	want := []executor.Result{
		{Origin: "todo", Message: "todo in default", File: "a.go", Line: 2, Severity: executor.SeverityInfo},
		{Origin: "todo", Message: "todo in default", File: "a.go", Line: 3, Severity: executor.SeverityInfo},
	}
	if !reflect.DeepEqual(results, want) {
		t.Errorf("results = %+v, want %+v", results, want)
	}
}

func TestLua_Global(t *testing.T) {
	script := `
function check_all(files)
  local out = {}
  local count = 0
  for path, lines in pairs(files) do
    count = count + 1
    if #lines > settings.max_lines then
      table.insert(out, {file = path, message = "too many lines"})
    end
  end
  table.insert(out, count .. " files")
  return out
end
`
	c, err := New(Spec{Name: "size", Kind: KindLua, Settings: map[string]interface{}{
		"script":   script,
		"scope":    "global",
		"severity": "major",
	}}, testOptions())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	global, ok := c.(executor.GlobalTask)
	if !ok {
		t.Fatal("global scope should produce a global task")
	}

	section := executor.Section{Name: "s", Settings: map[string]interface{}{"max_lines": 2}}
	results, err := global.RunGlobal(context.Background(), section, map[string]*executor.Artifact{
		"big.go":   artifact("big.go", "1", "2", "3"),
		"small.go": artifact("small.go", "1"),
	})
	if err != nil {
		t.Fatalf("RunGlobal failed: %v", err)
	}

	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %+v", results)
	}
	if results[0].File != "big.go" || results[0].Severity != executor.SeverityMajor {
		t.Errorf("unexpected first result %+v", results[0])
	}
	if results[1].Message != "2 files" || results[1].File != "" {
		t.Errorf("unexpected summary result %+v", results[1])
	}
}

func TestLua_ScriptFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	afero.WriteFile(fs, "checks/todo.lua", []byte(todoScript), 0o644)

	opts := testOptions()
	opts.Fs = fs
	c, err := New(Spec{Kind: KindLua, Settings: map[string]interface{}{"file": "checks/todo.lua"}}, opts)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	results, err := c.(executor.LocalTask).RunLocal(context.Background(), executor.Section{}, artifact("a", "TODO"))
	if err != nil {
		t.Fatalf("RunLocal failed: %v", err)
	}
	if len(results) != 1 || results[0].Origin != KindLua {
		t.Errorf("unexpected results %+v", results)
	}
}

func TestLua_Sandbox(t *testing.T) {
	tests := []struct {
		name   string
		script string
	}{
		{name: "no os library", script: `function check(p, l) os.exit(1) end`},
		{name: "no io library", script: `function check(p, l) io.open("/etc/passwd") end`},
		{name: "no dofile", script: `function check(p, l) dofile("/tmp/x.lua") end`},
		{name: "no require", script: `function check(p, l) require("os") end`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := mustLocal(t, Spec{Kind: KindLua, Settings: map[string]interface{}{"script": tt.script}})
			if _, err := c.RunLocal(context.Background(), executor.Section{}, artifact("a")); err == nil {
				t.Error("expected sandbox violation to fail")
			}
		})
	}
}

func TestLua_Errors(t *testing.T) {
	tests := []struct {
		name     string
		settings map[string]interface{}
		buildErr string
		runErr   string
	}{
		{
			name:     "no script",
			settings: map[string]interface{}{},
			buildErr: "script or file is required",
		},
		{
			name:     "both script and file",
			settings: map[string]interface{}{"script": "x = 1", "file": "a.lua"},
			buildErr: "mutually exclusive",
		},
		{
			name:     "syntax error",
			settings: map[string]interface{}{"script": "function check("},
			buildErr: "failed to parse script",
		},
		{
			name:     "bad scope",
			settings: map[string]interface{}{"script": "x = 1", "scope": "project"},
			buildErr: "scope must be",
		},
		{
			name:     "missing entry point",
			settings: map[string]interface{}{"script": "x = 1"},
			runErr:   "does not define function check",
		},
		{
			name:     "runtime error",
			settings: map[string]interface{}{"script": `function check(p, l) error("boom") end`},
			runErr:   "boom",
		},
		{
			name:     "wrong return type",
			settings: map[string]interface{}{"script": `function check(p, l) return 42 end`},
			runErr:   "expected a table",
		},
		{
			name:     "entry without message",
			settings: map[string]interface{}{"script": `function check(p, l) return {{line = 1}} end`},
			runErr:   "no message",
		},
		{
			name:     "unknown severity",
			settings: map[string]interface{}{"script": `function check(p, l) return {{message = "m", severity = "loud"}} end`},
			runErr:   "unknown severity",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New(Spec{Kind: KindLua, Settings: tt.settings}, testOptions())
			if tt.buildErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.buildErr) {
					t.Fatalf("New() error = %v, want %q", err, tt.buildErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("New failed: %v", err)
			}

			_, err = c.(executor.LocalTask).RunLocal(context.Background(), executor.Section{}, artifact("a", "x"))
			if err == nil || !strings.Contains(err.Error(), tt.runErr) {
				t.Errorf("RunLocal() error = %v, want %q", err, tt.runErr)
			}
		})
	}
}

func TestLua_NilReturn(t *testing.T) {
	c := mustLocal(t, Spec{Kind: KindLua, Settings: map[string]interface{}{"script": `function check(p, l) end`}})

	results, err := c.RunLocal(context.Background(), executor.Section{}, artifact("a"))
	if err != nil || len(results) != 0 {
		t.Errorf("RunLocal() = %v, %v; want no results", results, err)
	}
}
