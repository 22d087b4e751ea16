// Package lua runs Lua programs on gopher-lua with a debugger hook surface,
// so that an interrupt.Register can observe them.
//
// gopher-lua has no debug hooks of its own. The engine instead rewrites each
// chunk's syntax tree before compiling it:
//   - every statement is preceded by a call to a Go step function carrying
//     the statement's line, which fires traps and single-step interrupts
//   - every function body, and the main chunk, starts with a call to a Go
//     enter function, which fires the execute hook
//
// Each compiled function becomes one Script, keyed by the chunk name and the
// line it is defined on (0 for the main chunk). Its executable lines are the
// lines that start a statement.
//
// # Usage
//
//	eng, err := lua.New(lua.WithSearchPath([]string{"lib"}))
//	if err != nil {
//	    return err
//	}
//	defer eng.Close()
//
//	reg := interrupt.New(eng)
//	cov := coverage.New(reg)
//	defer cov.Close()
//
//	if err := eng.DoFile("main.lua"); err != nil {
//	    return err
//	}
//
// Modules loaded with require go through the same instrumentation.
package lua
