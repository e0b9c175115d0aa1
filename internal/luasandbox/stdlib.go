// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package luasandbox

import (
	"strings"

	lua "github.com/yuin/gopher-lua"

	"github.com/pdiddy/wiktengine/internal/expand"
)

// newFrameValue builds the frame object handed to module functions:
// frame.args holds the expanded arguments, frame:getParent() walks up
// the invocation chain, frame:preprocess(text) expands wikitext via
// the installed preprocessor.
func newFrameValue(L *lua.LState, s *Sandbox, frame *expand.Frame) *lua.LTable {
	t := L.NewTable()

	args := L.NewTable()
	for k, v := range frame.Args {
		args.RawSetString(k, lua.LString(v))
	}
	t.RawSetString("args", args)

	t.RawSetString("getParent", L.NewFunction(func(L *lua.LState) int {
		if frame.Parent == nil {
			L.Push(lua.LNil)
			return 1
		}
		L.Push(newFrameValue(L, s, frame.Parent))
		return 1
	}))

	t.RawSetString("preprocess", L.NewFunction(func(L *lua.LState) int {
		src := L.CheckString(2)
		if s.preprocess == nil {
			L.Push(lua.LString(src))
			return 1
		}
		out, err := s.preprocess(L.Context(), frame.Title, src)
		if err != nil {
			L.RaiseError("preprocess: %v", err)
			return 0
		}
		L.Push(lua.LString(out))
		return 1
	}))

	return t
}

// registerMW installs the subset of the mw library the shipped modules
// rely on: mw.text helpers, mw.ustring as an alias of the string
// library, and mw.title.getCurrentTitle.
func registerMW(L *lua.LState, s *Sandbox, frame *expand.Frame) {
	mw := L.NewTable()

	text := L.NewTable()
	text.RawSetString("trim", L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LString(strings.TrimSpace(L.CheckString(1))))
		return 1
	}))
	text.RawSetString("split", L.NewFunction(func(L *lua.LState) int {
		src := L.CheckString(1)
		sep := L.CheckString(2)
		out := L.NewTable()
		for _, part := range strings.Split(src, sep) {
			out.Append(lua.LString(part))
		}
		L.Push(out)
		return 1
	}))
	mw.RawSetString("text", text)

	// The source wiki's titles are plain ASCII-safe strings in our
	// corpus, so the 8-bit string library stands in for ustring.
	mw.RawSetString("ustring", L.GetGlobal(lua.StringLibName))

	title := L.NewTable()
	title.RawSetString("getCurrentTitle", L.NewFunction(func(L *lua.LState) int {
		cur := L.NewTable()
		cur.RawSetString("text", lua.LString(frame.Title))
		cur.RawSetString("fullText", lua.LString(frame.Title))
		L.Push(cur)
		return 1
	}))
	mw.RawSetString("title", title)

	mw.RawSetString("log", L.NewFunction(func(L *lua.LState) int {
		s.log.Debug().Str("page", frame.Title).
			Str("msg", L.OptString(1, "")).Msg("mw.log")
		return 0
	}))

	L.SetGlobal("mw", mw)
}
