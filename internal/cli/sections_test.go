package cli

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/spf13/afero"

	"github.com/aryankumar/coalesce/internal/check"
	"github.com/aryankumar/coalesce/internal/config"
)

func TestSectionsCommand(t *testing.T) {
	out, err := executeCmd(t, afero.NewMemMapFs(), runConfig, "sections", "--no-color")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, want := range []string{"NAME", "docs", "go", "**/*.go", "todo (pattern)", "trailing-whitespace", "no", "Total sections: 2"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	if strings.Index(out, "docs") > strings.Index(out, "**/*.go") {
		t.Errorf("sections are not sorted by name:\n%s", out)
	}
}

func TestSectionsCommand_JSON(t *testing.T) {
	out, err := executeCmd(t, afero.NewMemMapFs(), runConfig, "sections", "-o", "json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var infos []config.SectionInfo
	if err := json.Unmarshal([]byte(out), &infos); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if len(infos) != 2 || infos[0].Name != "docs" || !infos[0].Disabled {
		t.Errorf("unexpected sections: %+v", infos)
	}
}

func TestSectionsCommand_TOML(t *testing.T) {
	out, err := executeCmd(t, afero.NewMemMapFs(), runConfig, "sections", "-o", "toml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Count(out, "[[sections]]") != 2 {
		t.Errorf("expected two [[sections]] tables:\n%s", out)
	}
}

func TestSectionsCommand_Empty(t *testing.T) {
	out, err := executeCmd(t, afero.NewMemMapFs(), "", "sections")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "No sections configured") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestSectionsCommand_Kinds(t *testing.T) {
	out, err := executeCmd(t, afero.NewMemMapFs(), "", "sections", "--kinds")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := strings.Join(check.Kinds(), "\n") + "\n"
	if out != want {
		t.Errorf("output = %q, want %q", out, want)
	}
}
