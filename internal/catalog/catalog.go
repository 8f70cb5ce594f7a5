// Package catalog turns a configured section into the files and tasks the
// executor runs.
package catalog

import (
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/afero"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/aryankumar/coalesce/internal/check"
	"github.com/aryankumar/coalesce/internal/config"
	"github.com/aryankumar/coalesce/internal/executor"
	"github.com/aryankumar/coalesce/internal/util"
)

// Builder resolves sections against a file system
type Builder struct {
	fs     afero.Fs
	logger *slog.Logger
}

// NewBuilder creates a builder over fs
func NewBuilder(fs afero.Fs, logger *slog.Logger) *Builder {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{fs: fs, logger: logger}
}

// Section builds the immutable section value handed to tasks
func Section(name string, cfg config.SectionConfig) executor.Section {
	settings := make(map[string]interface{}, len(cfg.Settings))
	for k, v := range cfg.Settings {
		settings[k] = v
	}
	return executor.Section{Name: name, Settings: settings}
}

// Build resolves the section's files and instantiates its checks.
// Every pattern and check error is reported, not only the first.
func (b *Builder) Build(name string, cfg config.SectionConfig) (executor.Catalog, error) {
	logger := b.logger.With("section", name)
	errs := &util.MultiError{}

	files, err := b.Files(cfg)
	if err != nil {
		errs.Add(util.AddContext(err, "section", name))
	}

	var cat executor.Catalog
	cat.Files = files

	for _, cc := range cfg.Checks {
		c, err := check.New(check.Spec{Name: cc.Name, Kind: cc.Kind, Settings: cc.Settings}, check.Options{
			Logger: logger,
			Fs:     b.fs,
		})
		if err != nil {
			errs.Add(util.AddContext(err, "section", name))
			continue
		}

		added := false
		if local, ok := c.(executor.LocalTask); ok {
			cat.Local = append(cat.Local, local)
			added = true
		}
		if global, ok := c.(executor.GlobalTask); ok {
			cat.Global = append(cat.Global, global)
			added = true
		}
		if !added {
			errs.Add(util.WrapCheckError(c.Name(), fmt.Errorf("kind %q is neither local nor global", c.Kind())))
		}
	}

	if err := errs.ErrorOrNil(); err != nil {
		return executor.Catalog{}, err
	}

	logger.Debug("catalog built",
		"files", len(cat.Files),
		"local_tasks", len(cat.Local),
		"global_tasks", len(cat.Global),
	)
	return cat, nil
}

// Files resolves the section's file patterns relative to its root, drops
// ignored paths, and returns the result sorted without duplicates.
// Returned paths are joined with the root.
func (b *Builder) Files(cfg config.SectionConfig) ([]string, error) {
	root := cfg.Root
	if root == "" {
		root = config.DefaultRoot
	}

	for _, p := range append(append([]string{}, cfg.Files...), cfg.Ignore...) {
		if !doublestar.ValidatePattern(p) {
			return nil, util.AddContext(fmt.Errorf("%w: bad pattern", util.ErrInvalidConfig), "pattern", p)
		}
	}

	selected := make(map[string]bool)
	err := afero.Walk(b.fs, root, func(p string, info fs.FileInfo, err error) error {
		if err != nil {
			if p == root {
				return err
			}
			b.logger.Warn("skipping unreadable path", "path", p, "error", err)
			return nil
		}

		rel, relErr := filepath.Rel(root, p)
		if relErr != nil {
			return relErr
		}
		rel = filepath.ToSlash(rel)

		if info.IsDir() {
			if rel != "." && (matchAny(cfg.Ignore, rel) || matchAny(cfg.Ignore, rel+"/")) {
				return filepath.SkipDir
			}
			return nil
		}

		if matchAny(cfg.Files, rel) && !matchAny(cfg.Ignore, rel) {
			selected[filepath.Join(root, filepath.FromSlash(rel))] = true
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", root, err)
	}

	files := maps.Keys(selected)
	slices.Sort(files)
	return files, nil
}

// matchAny reports whether the slash-separated path rel matches one of
// patterns. A "**" segment matches any number of directories.
func matchAny(patterns []string, rel string) bool {
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}
