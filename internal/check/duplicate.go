package check

import (
	"context"
	"crypto/sha256"
	"fmt"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/aryankumar/coalesce/internal/executor"
)

// duplicateFiles reports files whose content is identical to an earlier file
type duplicateFiles struct {
	base
	opts duplicateOptions
}

type duplicateOptions struct {
	IgnoreEmpty bool              `mapstructure:"ignoreEmpty"`
	Severity    executor.Severity `mapstructure:"severity"`
}

func newDuplicateFiles(name string, settings map[string]interface{}, _ Options) (Check, error) {
	opts := duplicateOptions{IgnoreEmpty: true, Severity: executor.SeverityNormal}
	if err := decodeSettings(settings, &opts); err != nil {
		return nil, err
	}
	return &duplicateFiles{base: base{name: name, kind: KindDuplicateFiles}, opts: opts}, nil
}

// RunGlobal implements executor.GlobalTask.
// Within a group of identical files the lexically first path is the original.
func (c *duplicateFiles) RunGlobal(ctx context.Context, _ executor.Section, files map[string]*executor.Artifact) ([]executor.Result, error) {
	paths := maps.Keys(files)
	slices.Sort(paths)

	first := make(map[[sha256.Size]byte]string)
	var results []executor.Result

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		file := files[path]
		if c.opts.IgnoreEmpty && len(file.Content) == 0 {
			continue
		}

		sum := sha256.Sum256(file.Content)
		original, seen := first[sum]
		if !seen {
			first[sum] = path
			continue
		}

		results = append(results, executor.Result{
			Origin:   c.name,
			Message:  fmt.Sprintf("identical to %s", original),
			File:     path,
			Severity: c.opts.Severity,
		})
	}

	return results, nil
}
