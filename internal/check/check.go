// Package check implements the analysis tasks that a section can run.
//
// Each configured check has a kind that selects its implementation and a
// free-form settings map decoded into the kind's options. A constructed check
// implements executor.LocalTask, executor.GlobalTask, or both.
package check

import (
	"fmt"
	"log/slog"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/afero"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/aryankumar/coalesce/internal/executor"
	"github.com/aryankumar/coalesce/internal/util"
)

// Spec describes one configured check
type Spec struct {
	Name     string
	Kind     string
	Settings map[string]interface{}
}

// Check is a constructed check.
// Callers type-assert to executor.LocalTask or executor.GlobalTask.
type Check interface {
	Name() string
	Kind() string
}

// Options carries dependencies shared by every check
type Options struct {
	Logger *slog.Logger
	Fs     afero.Fs
}

type factory func(name string, settings map[string]interface{}, opts Options) (Check, error)

var registry = map[string]factory{
	KindLineLength:         newLineLength,
	KindTrailingWhitespace: newTrailingWhitespace,
	KindPattern:            newPattern,
	KindLineCount:          newLineCount,
	KindDuplicateFiles:     newDuplicateFiles,
	KindCommand:            newCommand,
	KindLua:                newLua,
}

// Kinds returns the registered check kinds in sorted order
func Kinds() []string {
	kinds := maps.Keys(registry)
	slices.Sort(kinds)
	return kinds
}

// New builds the check described by spec.
// An empty name defaults to the kind.
func New(spec Spec, opts Options) (Check, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}

	name := spec.Name
	if name == "" {
		name = spec.Kind
	}
	if name == "" {
		return nil, util.NewValidationError("checks.name", nil, "check needs a name or a kind")
	}

	build, ok := registry[spec.Kind]
	if !ok {
		return nil, util.WrapCheckError(name, fmt.Errorf("%w: %q", util.ErrUnknownCheck, spec.Kind))
	}

	c, err := build(name, spec.Settings, opts.withCheck(name, spec.Kind))
	if err != nil {
		return nil, util.WrapCheckError(name, err)
	}
	return c, nil
}

func (o Options) withCheck(name, kind string) Options {
	o.Logger = o.Logger.With("check", name, "kind", kind)
	return o
}

// decodeSettings decodes a settings map into out.
// Keys match case-insensitively; unknown keys are rejected.
func decodeSettings(settings map[string]interface{}, out interface{}) error {
	if len(settings) == 0 {
		return nil
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.TextUnmarshallerHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return err
	}

	if err := decoder.Decode(settings); err != nil {
		return fmt.Errorf("%w: %v", util.ErrInvalidConfig, err)
	}
	return nil
}

// base carries the identity shared by every check
type base struct {
	name string
	kind string
}

func (b base) Name() string { return b.name }
func (b base) Kind() string { return b.kind }

// intSetting reads an integer section setting, accepting the numeric types
// produced by YAML, TOML and JSON decoders
func intSetting(section executor.Section, key string, def int) int {
	switch v := section.Setting(key, def).(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case uint64:
		return int(v)
	default:
		return def
	}
}
