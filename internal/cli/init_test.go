package cli

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"

	"github.com/aryankumar/coalesce/internal/config"
)

func runInit(t *testing.T, path string, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCmdWith(&rootOptions{fs: afero.NewMemMapFs(), logOutput: io.Discard})
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(append([]string{"--config", path, "init"}, args...))

	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestInitCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "coalesce.yaml")

	out, err := runInit(t, path)
	if err != nil {
		t.Fatalf("init failed: %v", err)
	}
	if !strings.Contains(out, "Wrote "+path) {
		t.Errorf("unexpected output: %q", out)
	}

	m := config.NewManager(path)
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("written config does not load: %v", err)
	}

	section, ok := cfg.Sections[config.DefaultSectionName]
	if !ok {
		t.Fatalf("default section missing: %+v", cfg.Sections)
	}
	if len(section.Checks) != len(config.DefaultSection().Checks) {
		t.Errorf("got %d checks, want %d", len(section.Checks), len(config.DefaultSection().Checks))
	}
	if cfg.Defaults.OutputFormat != config.DefaultOutputFormat {
		t.Errorf("OutputFormat = %q, want %q", cfg.Defaults.OutputFormat, config.DefaultOutputFormat)
	}
}

func TestInitCommand_ExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "coalesce.yaml")

	if _, err := runInit(t, path); err != nil {
		t.Fatalf("first init failed: %v", err)
	}

	_, err := runInit(t, path)
	if err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Errorf("second init error = %v, want already exists", err)
	}

	if _, err := runInit(t, path, "--force"); err != nil {
		t.Errorf("init --force failed: %v", err)
	}
}
