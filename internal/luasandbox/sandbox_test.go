// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package luasandbox

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/wiktengine/internal/expand"
	"github.com/pdiddy/wiktengine/pkg/types"
)

func testModule(src string) *types.ModuleDefinition {
	return &types.ModuleDefinition{Name: "Module:Test", Source: src, Revision: 1}
}

func testFrame(args map[string]string) *expand.Frame {
	if args == nil {
		args = map[string]string{}
	}
	return &expand.Frame{Title: "sortaa", Args: args}
}

func TestInvokeReturnsString(t *testing.T) {
	s := New(types.SandboxConfig{}, zerolog.Nop())
	mod := testModule(`
		local p = {}
		function p.hello(frame)
			return "hello from lua"
		end
		return p
	`)

	out, err := s.Invoke(context.Background(), mod, "hello", testFrame(nil))
	require.NoError(t, err)
	assert.Equal(t, "hello from lua", out)
}

func TestInvokeReadsFrameArgs(t *testing.T) {
	s := New(types.SandboxConfig{}, zerolog.Nop())
	mod := testModule(`
		local p = {}
		function p.table(frame)
			return frame.args["1"] .. "/" .. frame.args.type
		end
		return p
	`)

	out, err := s.Invoke(context.Background(), mod, "table", testFrame(map[string]string{
		"1":    "fi",
		"type": "A",
	}))
	require.NoError(t, err)
	assert.Equal(t, "fi/A", out)
}

func TestInvokeParentFrame(t *testing.T) {
	s := New(types.SandboxConfig{}, zerolog.Nop())
	mod := testModule(`
		local p = {}
		function p.up(frame)
			local parent = frame:getParent()
			if parent == nil then
				return "no parent"
			end
			return parent.args.word
		end
		return p
	`)

	t.Run("with parent", func(t *testing.T) {
		frame := testFrame(nil)
		frame.Parent = &expand.Frame{Title: "sortaa", Args: map[string]string{"word": "sortaa"}}
		out, err := s.Invoke(context.Background(), mod, "up", frame)
		require.NoError(t, err)
		assert.Equal(t, "sortaa", out)
	})

	t.Run("top level", func(t *testing.T) {
		out, err := s.Invoke(context.Background(), mod, "up", testFrame(nil))
		require.NoError(t, err)
		assert.Equal(t, "no parent", out)
	})
}

func TestInvokeUsesMWHelpers(t *testing.T) {
	s := New(types.SandboxConfig{}, zerolog.Nop())
	mod := testModule(`
		local p = {}
		function p.go(frame)
			local parts = mw.text.split("a,b,c", ",")
			local title = mw.title.getCurrentTitle()
			return mw.text.trim("  x  ") .. "|" .. parts[2] .. "|" ..
				mw.ustring.upper(title.text)
		end
		return p
	`)

	out, err := s.Invoke(context.Background(), mod, "go", testFrame(nil))
	require.NoError(t, err)
	assert.Equal(t, "x|b|SORTAA", out)
}

func TestInvokePreprocessHook(t *testing.T) {
	s := New(types.SandboxConfig{}, zerolog.Nop())
	s.SetPreprocessor(func(_ context.Context, title, src string) (string, error) {
		return "[" + title + ":" + src + "]", nil
	})
	mod := testModule(`
		local p = {}
		function p.go(frame)
			return frame:preprocess("{{x}}")
		end
		return p
	`)

	out, err := s.Invoke(context.Background(), mod, "go", testFrame(nil))
	require.NoError(t, err)
	assert.Equal(t, "[sortaa:{{x}}]", out)
}

func TestRunawayLoopHitsBudget(t *testing.T) {
	s := New(types.SandboxConfig{Timeout: 50 * time.Millisecond}, zerolog.Nop())
	mod := testModule(`
		local p = {}
		function p.spin(frame)
			while true do end
		end
		return p
	`)

	start := time.Now()
	_, err := s.Invoke(context.Background(), mod, "spin", testFrame(nil))
	require.Error(t, err)
	assert.ErrorIs(t, err, expand.ErrTimeout)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestLuaErrorIsFault(t *testing.T) {
	s := New(types.SandboxConfig{}, zerolog.Nop())
	mod := testModule(`
		local p = {}
		function p.boom(frame)
			error("deliberate failure")
		end
		return p
	`)

	_, err := s.Invoke(context.Background(), mod, "boom", testFrame(nil))
	require.Error(t, err)
	assert.NotErrorIs(t, err, expand.ErrTimeout)
	assert.Contains(t, err.Error(), "deliberate failure")
}

func TestInvokeRejectsBadModules(t *testing.T) {
	s := New(types.SandboxConfig{}, zerolog.Nop())

	tests := []struct {
		name    string
		src     string
		fn      string
		wantErr string
	}{
		{"syntax error", `this is not lua`, "go", "compiling"},
		{"no export table", `return 42`, "go", "did not return a table"},
		{"missing function", `return {}`, "go", "does not export"},
		{"non-string result", `return { go = function(f) return {} end }`, "go", "want string"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Invoke(context.Background(), testModule(tt.src), tt.fn, testFrame(nil))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSandboxStripsEscapeHatches(t *testing.T) {
	s := New(types.SandboxConfig{}, zerolog.Nop())
	mod := testModule(`
		local p = {}
		function p.probe(frame)
			local blocked = {}
			for _, name in ipairs({"dofile", "loadfile", "require", "os", "io"}) do
				if _G[name] == nil then
					blocked[#blocked + 1] = name
				end
			end
			return table.concat(blocked, ",")
		end
		return p
	`)

	out, err := s.Invoke(context.Background(), mod, "probe", testFrame(nil))
	require.NoError(t, err)
	assert.Equal(t, "dofile,loadfile,require,os,io", out)
}

func TestInvocationsAreIsolated(t *testing.T) {
	s := New(types.SandboxConfig{}, zerolog.Nop())
	mod := testModule(`
		local p = {}
		function p.count(frame)
			leak = (leak or 0) + 1
			return tostring(leak)
		end
		return p
	`)

	for i := 0; i < 3; i++ {
		out, err := s.Invoke(context.Background(), mod, "count", testFrame(nil))
		require.NoError(t, err)
		assert.Equal(t, "1", out, "global state must not survive across invocations")
	}
}

func TestCompiledChunkCacheKeysOnRevision(t *testing.T) {
	s := New(types.SandboxConfig{}, zerolog.Nop())

	v1 := &types.ModuleDefinition{Name: "Module:V", Revision: 1,
		Source: `return { go = function(f) return "one" end }`}
	v2 := &types.ModuleDefinition{Name: "Module:V", Revision: 2,
		Source: `return { go = function(f) return "two" end }`}

	out, err := s.Invoke(context.Background(), v1, "go", testFrame(nil))
	require.NoError(t, err)
	assert.Equal(t, "one", out)

	out, err = s.Invoke(context.Background(), v2, "go", testFrame(nil))
	require.NoError(t, err)
	assert.Equal(t, "two", out)

	assert.Len(t, s.protos, 2)
}
