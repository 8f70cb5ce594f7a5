package executor

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/afero"
)

// LoadArtifact reads path from fs and splits it into lines
func LoadArtifact(fs afero.Fs, path string) (*Artifact, error) {
	content, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	return &Artifact{
		Path:    path,
		Lines:   SplitLines(string(content)),
		Content: content,
	}, nil
}

// SplitLines splits text on newlines, dropping \r terminators and the empty
// element after a trailing newline
func SplitLines(text string) []string {
	if text == "" {
		return []string{}
	}
	lines := strings.Split(text, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return lines
}

// loadArtifacts reads every path, skipping files that cannot be read
func loadArtifacts(fs afero.Fs, paths []string, logger *slog.Logger) []*Artifact {
	artifacts := make([]*Artifact, 0, len(paths))
	for _, path := range paths {
		a, err := LoadArtifact(fs, path)
		if err != nil {
			logger.Warn("skipping unreadable file", "file", path, "error", err)
			continue
		}
		artifacts = append(artifacts, a)
	}
	return artifacts
}
