// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package luasandbox executes Scribunto-style Lua modules inside a
// restricted interpreter. Every invocation runs in a fresh state with
// a wall-clock budget, a capped call stack, and only whitelisted
// libraries, so a faulty module cannot affect other pages or the host.
// Per prd003-expansion R3.4.
package luasandbox

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	lua "github.com/yuin/gopher-lua"
	"github.com/yuin/gopher-lua/parse"

	"github.com/pdiddy/wiktengine/internal/expand"
	"github.com/pdiddy/wiktengine/pkg/types"
)

// Preprocessor expands a wikitext fragment on behalf of module code.
// The pipeline wires the expansion engine in here; frame:preprocess is
// an identity function when none is set.
type Preprocessor func(ctx context.Context, title, src string) (string, error)

// Sandbox runs module functions. Like the expansion engine it is owned
// by a single worker: the compiled-chunk cache is not locked.
type Sandbox struct {
	cfg        types.SandboxConfig
	log        zerolog.Logger
	preprocess Preprocessor

	// protos caches compiled module chunks keyed by name and revision.
	// Compilation is pure, so reuse across invocations is safe even
	// though each invocation gets a fresh state.
	protos map[string]*lua.FunctionProto
}

// New returns a sandbox with defaults applied for unset limits.
func New(cfg types.SandboxConfig, log zerolog.Logger) *Sandbox {
	if cfg.Timeout <= 0 {
		cfg.Timeout = types.DefaultPipelineConfig().Sandbox.Timeout
	}
	if cfg.CallStackSize <= 0 {
		cfg.CallStackSize = 120
	}
	if cfg.RegistrySize <= 0 {
		cfg.RegistrySize = 2048
	}
	return &Sandbox{
		cfg:    cfg,
		log:    log,
		protos: make(map[string]*lua.FunctionProto),
	}
}

// SetPreprocessor installs the fragment expander used by
// frame:preprocess. Called once during pipeline assembly, after the
// expansion engine exists.
func (s *Sandbox) SetPreprocessor(p Preprocessor) {
	s.preprocess = p
}

// Invoke loads a module, calls one of its exported functions with a
// frame object, and returns the rendered string. Exceeding the
// execution budget reports expand.ErrTimeout; every other failure is a
// sandbox fault.
func (s *Sandbox) Invoke(ctx context.Context, mod *types.ModuleDefinition, fn string, frame *expand.Frame) (string, error) {
	proto, err := s.compiled(mod)
	if err != nil {
		return "", fmt.Errorf("compiling module %s: %w", mod.Name, err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	L := lua.NewState(lua.Options{
		SkipOpenLibs:        true,
		CallStackSize:       s.cfg.CallStackSize,
		RegistrySize:        s.cfg.RegistrySize,
		IncludeGoStackTrace: false,
	})
	defer L.Close()
	L.SetContext(ctx)

	s.openLibs(L)
	registerMW(L, s, frame)

	// Run the chunk; Scribunto modules evaluate to their export table.
	L.Push(L.NewFunctionFromProto(proto))
	if err := L.PCall(0, 1, nil); err != nil {
		return "", s.mapError(ctx, mod, fn, err)
	}
	exports, ok := L.Get(-1).(*lua.LTable)
	if !ok {
		return "", fmt.Errorf("module %s did not return a table", mod.Name)
	}
	L.Pop(1)

	target := L.GetField(exports, fn)
	callee, ok := target.(*lua.LFunction)
	if !ok {
		return "", fmt.Errorf("module %s does not export function %q", mod.Name, fn)
	}

	L.Push(callee)
	L.Push(newFrameValue(L, s, frame))
	if err := L.PCall(1, 1, nil); err != nil {
		return "", s.mapError(ctx, mod, fn, err)
	}

	ret := L.Get(-1)
	switch ret.Type() {
	case lua.LTString, lua.LTNumber:
		return lua.LVAsString(ret), nil
	case lua.LTNil:
		return "", nil
	default:
		return "", fmt.Errorf("module %s.%s returned %s, want string", mod.Name, fn, ret.Type())
	}
}

// compiled parses and compiles a module once per (name, revision).
func (s *Sandbox) compiled(mod *types.ModuleDefinition) (*lua.FunctionProto, error) {
	key := fmt.Sprintf("%s@%d", mod.Name, mod.Revision)
	if proto, ok := s.protos[key]; ok {
		return proto, nil
	}
	chunk, err := parse.Parse(strings.NewReader(mod.Source), mod.Name)
	if err != nil {
		return nil, err
	}
	proto, err := lua.Compile(chunk, mod.Name)
	if err != nil {
		return nil, err
	}
	s.protos[key] = proto
	return proto, nil
}

// openLibs loads the whitelisted standard libraries and strips the
// escape hatches OpenBase brings along.
func (s *Sandbox) openLibs(L *lua.LState) {
	for _, lib := range []struct {
		name string
		open lua.LGFunction
	}{
		{lua.LoadLibName, lua.OpenPackage},
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	} {
		L.Push(L.NewFunction(lib.open))
		L.Push(lua.LString(lib.name))
		L.Call(1, 0)
	}
	for _, name := range []string{"dofile", "loadfile", "load", "loadstring", "require", "print", "collectgarbage"} {
		L.SetGlobal(name, lua.LNil)
	}
}

func (s *Sandbox) mapError(ctx context.Context, mod *types.ModuleDefinition, fn string, err error) error {
	if ctxErr := ctx.Err(); errors.Is(ctxErr, context.DeadlineExceeded) {
		s.log.Debug().Str("module", mod.Name).Str("fn", fn).
			Dur("budget", s.cfg.Timeout).Msg("module exceeded execution budget")
		return fmt.Errorf("module %s.%s: %w", mod.Name, fn, expand.ErrTimeout)
	}
	var apiErr *lua.ApiError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("module %s.%s: %s", mod.Name, fn, apiErr.Object.String())
	}
	return fmt.Errorf("module %s.%s: %w", mod.Name, fn, err)
}
