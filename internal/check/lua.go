package check

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/afero"
	lua "github.com/yuin/gopher-lua"
	"github.com/yuin/gopher-lua/parse"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/aryankumar/coalesce/internal/executor"
)

// Lua scopes
const (
	ScopeLocal  = "local"
	ScopeGlobal = "global"
)

// Entry points a script must define for its scope
const (
	luaLocalEntry  = "check"
	luaGlobalEntry = "check_all"
)

// luaScript is a compiled script shared by every run of a Lua check.
// Each run gets its own LState since states are not goroutine-safe.
type luaScript struct {
	base
	proto  *lua.FunctionProto
	opts   luaOptions
	logger *slog.Logger
}

type luaOptions struct {
	Script   string            `mapstructure:"script"`
	File     string            `mapstructure:"file"`
	Scope    string            `mapstructure:"scope"`
	Severity executor.Severity `mapstructure:"severity"`
}

// luaLocal runs check(path, lines) once per file
type luaLocal struct{ *luaScript }

// luaGlobal runs check_all(files) once per section
type luaGlobal struct{ *luaScript }

func newLua(name string, settings map[string]interface{}, opts Options) (Check, error) {
	lo := luaOptions{Scope: ScopeLocal, Severity: executor.SeverityNormal}
	if err := decodeSettings(settings, &lo); err != nil {
		return nil, err
	}

	src := lo.Script
	chunkName := name
	switch {
	case src != "" && lo.File != "":
		return nil, fmt.Errorf("script and file are mutually exclusive")
	case lo.File != "":
		data, err := afero.ReadFile(opts.Fs, lo.File)
		if err != nil {
			return nil, fmt.Errorf("failed to read script: %w", err)
		}
		src = string(data)
		chunkName = lo.File
	case src == "":
		return nil, fmt.Errorf("script or file is required")
	}

	proto, err := compileLua(src, chunkName)
	if err != nil {
		return nil, err
	}

	s := &luaScript{
		base:   base{name: name, kind: KindLua},
		proto:  proto,
		opts:   lo,
		logger: opts.Logger,
	}

	switch strings.ToLower(lo.Scope) {
	case ScopeLocal:
		return luaLocal{s}, nil
	case ScopeGlobal:
		return luaGlobal{s}, nil
	default:
		return nil, fmt.Errorf("scope must be %q or %q, got %q", ScopeLocal, ScopeGlobal, lo.Scope)
	}
}

func compileLua(src, name string) (*lua.FunctionProto, error) {
	chunk, err := parse.Parse(strings.NewReader(src), name)
	if err != nil {
		return nil, fmt.Errorf("failed to parse script: %w", err)
	}
	proto, err := lua.Compile(chunk, name)
	if err != nil {
		return nil, fmt.Errorf("failed to compile script: %w", err)
	}
	return proto, nil
}

// newState creates a sandboxed state with the script loaded.
// Only the base, table, string and math libraries are available, with file
// and module loading removed from base.
func (s *luaScript) newState(ctx context.Context, section executor.Section) (*lua.LState, error) {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)
	for _, name := range []string{"dofile", "loadfile", "require", "module"} {
		L.SetGlobal(name, lua.LNil)
	}

	L.SetContext(ctx)
	L.SetGlobal("section", lua.LString(section.Name))
	L.SetGlobal("settings", settingsTable(L, section.Settings))

	L.Push(L.NewFunctionFromProto(s.proto))
	if err := L.PCall(0, 0, nil); err != nil {
		L.Close()
		return nil, fmt.Errorf("failed to load script: %w", err)
	}
	return L, nil
}

// call invokes the entry point with args and converts its return value
func (s *luaScript) call(L *lua.LState, entry string, defaultFile string, args ...lua.LValue) ([]executor.Result, error) {
	fn, ok := L.GetGlobal(entry).(*lua.LFunction)
	if !ok {
		return nil, fmt.Errorf("script does not define function %s", entry)
	}

	if err := L.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, args...); err != nil {
		return nil, fmt.Errorf("%s failed: %w", entry, err)
	}
	ret := L.Get(-1)
	L.Pop(1)

	return s.toResults(ret, defaultFile)
}

// toResults accepts nil, or a table of entries where each entry is a message
// string or a table with line, message, severity and file fields
func (s *luaScript) toResults(ret lua.LValue, defaultFile string) ([]executor.Result, error) {
	if ret == lua.LNil {
		return nil, nil
	}
	tbl, ok := ret.(*lua.LTable)
	if !ok {
		return nil, fmt.Errorf("expected a table of results, got %s", ret.Type())
	}

	var results []executor.Result
	var convErr error
	tbl.ForEach(func(_, v lua.LValue) {
		if convErr != nil {
			return
		}
		r := executor.Result{Origin: s.name, File: defaultFile, Severity: s.opts.Severity}

		switch entry := v.(type) {
		case lua.LString:
			r.Message = string(entry)
		case *lua.LTable:
			r.Message = lua.LVAsString(entry.RawGetString("message"))
			if n, ok := entry.RawGetString("line").(lua.LNumber); ok {
				r.Line = int(n)
			}
			if f, ok := entry.RawGetString("file").(lua.LString); ok {
				r.File = string(f)
			}
			if sev, ok := entry.RawGetString("severity").(lua.LString); ok {
				parsed, valid := executor.ParseSeverity(string(sev))
				if !valid {
					convErr = fmt.Errorf("unknown severity %q", string(sev))
					return
				}
				r.Severity = parsed
			}
			if hidden, ok := entry.RawGetString("hidden").(lua.LBool); ok {
				r.Hidden = bool(hidden)
			}
		default:
			convErr = fmt.Errorf("result entries must be strings or tables, got %s", v.Type())
			return
		}

		if r.Message == "" {
			convErr = fmt.Errorf("result entry has no message")
			return
		}
		results = append(results, r)
	})

	return results, convErr
}

// RunLocal implements executor.LocalTask
func (c luaLocal) RunLocal(ctx context.Context, section executor.Section, file *executor.Artifact) ([]executor.Result, error) {
	L, err := c.newState(ctx, section)
	if err != nil {
		return nil, err
	}
	defer L.Close()

	return c.call(L, luaLocalEntry, file.Path, lua.LString(file.Path), linesTable(L, file.Lines))
}

// RunGlobal implements executor.GlobalTask
func (c luaGlobal) RunGlobal(ctx context.Context, section executor.Section, files map[string]*executor.Artifact) ([]executor.Result, error) {
	L, err := c.newState(ctx, section)
	if err != nil {
		return nil, err
	}
	defer L.Close()

	paths := maps.Keys(files)
	slices.Sort(paths)

	tbl := L.NewTable()
	for _, path := range paths {
		tbl.RawSetString(path, linesTable(L, files[path].Lines))
	}

	return c.call(L, luaGlobalEntry, "", tbl)
}

func linesTable(L *lua.LState, lines []string) *lua.LTable {
	tbl := L.CreateTable(len(lines), 0)
	for _, line := range lines {
		tbl.Append(lua.LString(line))
	}
	return tbl
}

// settingsTable exposes scalar section settings to scripts
func settingsTable(L *lua.LState, settings map[string]interface{}) *lua.LTable {
	tbl := L.NewTable()
	for k, v := range settings {
		switch val := v.(type) {
		case string:
			tbl.RawSetString(k, lua.LString(val))
		case bool:
			tbl.RawSetString(k, lua.LBool(val))
		case int:
			tbl.RawSetString(k, lua.LNumber(val))
		case int64:
			tbl.RawSetString(k, lua.LNumber(val))
		case float64:
			tbl.RawSetString(k, lua.LNumber(val))
		}
	}
	return tbl
}
