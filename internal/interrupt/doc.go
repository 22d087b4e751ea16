// Package interrupt multiplexes a script engine's debugger hooks between
// independent subscribers.
//
// A script engine exposes each debugger hook (debug mode, the single-step
// interrupt function, per-script single-step mode, new/destroy-script
// notification, call/execute notification) as one global slot. Several
// consumers want those hooks at the same time: a coverage collector, a
// breakpoint client, a profiler. The Register owns the slots and hands out
// Connections instead.
//
// # Hook Locks
//
// Every slot is guarded by a HookLock, a reference count that installs the
// hook on its 0→1 transition and removes it on 1→0:
//
//	ConnectSingleStep   debug-mode, interrupt-function, single-step-mode
//	ConnectNewScript    debug-mode, new-script
//	ConnectCallExecute  debug-mode, call-execute
//	AddBreakpoint       debug-mode (plus one engine trap)
//
// # Connections
//
// Each subscribe call returns a Connection. Disposing it removes the callback
// and releases the locks it took, exactly once. Disposing twice panics with
// an InvariantError, as does releasing a lock that is not held: both mean
// the hook accounting is already wrong.
//
// # Scripts
//
// The register records every script the engine loads under its
// (filename, base line) key, so that late single-step subscribers can enable
// stepping on scripts that already exist, and so that AddBreakpoint can
// resolve "file X, line Y" to the innermost enclosing script. Scripts are
// only seen while the new-script hook is installed, so single-step and
// breakpoint clients normally hold a new-script connection as well.
//
// # Dispatch
//
// Engine callbacks are delivered synchronously, in subscription order, from
// inside the engine's own evaluation. The info value passed to subscribers is
// shared by all of them and is only valid for the duration of the call.
//
//	reg := interrupt.New(engine)
//	conn := reg.ConnectSingleStep(func(info *interrupt.InterruptInfo) {
//	    fmt.Printf("%s:%d\n", info.Filename, info.Line)
//	})
//	defer conn.Dispose()
package interrupt
