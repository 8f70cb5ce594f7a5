package util

import (
	"path/filepath"
	"strings"
)

// DisplayPath shortens a file path for tabular output.
// Paths under root are shown relative to it; paths longer than max keep their
// tail behind a "..." prefix. A max of zero disables truncation.
func DisplayPath(root, path string, max int) string {
	if path == "" {
		return ""
	}

	if root != "" && root != "." {
		if rel, err := filepath.Rel(root, path); err == nil && !strings.HasPrefix(rel, "..") {
			path = rel
		}
	}
	path = filepath.ToSlash(path)

	if max <= 0 || len(path) <= max {
		return path
	}
	if max <= 3 {
		return path[len(path)-max:]
	}

	tail := path[len(path)-(max-3):]
	// Prefer cutting at a directory boundary
	if idx := strings.Index(tail, "/"); idx >= 0 && idx < len(tail)-1 {
		tail = tail[idx:]
	}
	return "..." + tail
}
