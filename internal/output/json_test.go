package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/aryankumar/coalesce/internal/executor"
)

func TestNewJSONFormatter(t *testing.T) {
	if f := NewJSONFormatter(nil); f == nil || f.options == nil {
		t.Fatal("NewJSONFormatter(nil) did not set options")
	}
}

func TestJSONFormatter_Format(t *testing.T) {
	var buf bytes.Buffer
	data := map[string]interface{}{"name": "go", "files": 3}

	if err := NewJSONFormatter(nil).Format(&buf, data); err != nil {
		t.Fatalf("Format() error = %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, buf.String())
	}
	if decoded["name"] != "go" {
		t.Errorf("name = %v, want go", decoded["name"])
	}
}

func TestJSONFormatter_FormatResults(t *testing.T) {
	tests := []struct {
		name      string
		results   []executor.Result
		wantCount int
	}{
		{
			name:      "nil results encode as empty array",
			results:   nil,
			wantCount: 0,
		},
		{
			name:      "hidden results are dropped",
			results:   sampleResults(),
			wantCount: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := NewJSONFormatter(nil).FormatResults(&buf, tt.results); err != nil {
				t.Fatalf("FormatResults() error = %v", err)
			}

			if strings.TrimSpace(buf.String()) == "null" {
				t.Fatal("FormatResults() wrote null")
			}

			var decoded []executor.Result
			if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
				t.Fatalf("output is not valid JSON: %v\n%s", err, buf.String())
			}
			if len(decoded) != tt.wantCount {
				t.Errorf("decoded %d results, want %d", len(decoded), tt.wantCount)
			}
		})
	}
}

func TestJSONFormatter_Fields(t *testing.T) {
	var buf bytes.Buffer
	if err := NewJSONFormatter(nil).FormatResults(&buf, sampleResults()[:1]); err != nil {
		t.Fatalf("FormatResults() error = %v", err)
	}

	var decoded []map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}

	want := map[string]interface{}{
		"origin":   "line-length",
		"message":  "line is 130 characters long, maximum is 120",
		"file":     "src/main.go",
		"line":     float64(12),
		"severity": "normal",
	}
	for k, v := range want {
		if decoded[0][k] != v {
			t.Errorf("%s = %v, want %v", k, decoded[0][k], v)
		}
	}
	if _, ok := decoded[0]["hidden"]; ok {
		t.Error("hidden field was encoded")
	}
}

func TestJSONFormatter_Indentation(t *testing.T) {
	var buf bytes.Buffer
	if err := NewJSONFormatter(nil).FormatResults(&buf, sampleResults()); err != nil {
		t.Fatalf("FormatResults() error = %v", err)
	}
	if !strings.Contains(buf.String(), "\n  {\n    \"origin\"") {
		t.Errorf("output is not indented with two spaces:\n%s", buf.String())
	}
}
