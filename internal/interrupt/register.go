package interrupt

import (
	"fmt"

	"go.uber.org/zap"
)

// Register multiplexes the engine's global hook slots between any number of
// subscribers. Each slot is installed while at least one subscriber needs it
// and removed when the last one disconnects.
//
// A Register is not safe for concurrent use. The engine calls back into it
// synchronously while evaluating code, and every subscribe and dispose call
// must come from that same thread of control.
type Register struct {
	engine Engine
	logger *zap.Logger

	locks       [hookCount]*HookLock
	callbacks   [categoryCount]callbackList
	scripts     *scriptRegistry
	breakpoints map[*Connection]*breakpoint
	live        map[*Connection]struct{}
}

// Option configures a Register.
type Option func(*Register)

// WithLogger sets the logger used for hook transitions.
func WithLogger(l *zap.Logger) Option {
	return func(r *Register) {
		if l != nil {
			r.logger = l
		}
	}
}

// New creates a register for engine. No hook is installed until the first
// subscription needs it.
func New(engine Engine, opts ...Option) *Register {
	r := &Register{
		engine:      engine,
		logger:      zap.NewNop(),
		scripts:     newScriptRegistry(),
		breakpoints: make(map[*Connection]*breakpoint),
		live:        make(map[*Connection]struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}

	r.locks[HookDebugMode] = NewHookLock(HookDebugMode,
		func() { r.engine.SetDebugMode(true) },
		func() { r.engine.SetDebugMode(false) })
	r.locks[HookInterruptFunction] = NewHookLock(HookInterruptFunction,
		func() { r.engine.SetInterruptHook(r.onInterrupt) },
		func() { r.engine.SetInterruptHook(nil) })
	r.locks[HookSingleStepMode] = NewHookLock(HookSingleStepMode,
		func() { r.setSingleStepMode(true) },
		func() { r.setSingleStepMode(false) })
	r.locks[HookNewScript] = NewHookLock(HookNewScript,
		func() { r.engine.SetScriptHooks(r.onNewScript, r.onDestroyScript) },
		func() { r.engine.SetScriptHooks(nil, nil) })
	r.locks[HookCallExecute] = NewHookLock(HookCallExecute,
		func() { r.engine.SetExecuteHook(r.onExecute) },
		func() { r.engine.SetExecuteHook(nil) })

	return r
}

// ConnectSingleStep subscribes fn to single-step events. Scripts loaded
// before the subscription are stepped as well.
func (r *Register) ConnectSingleStep(fn StepFunc) *Connection {
	if fn == nil {
		violate("Register.ConnectSingleStep", "nil callback")
	}
	r.lock(HookDebugMode, HookInterruptFunction, HookSingleStepMode)
	return r.insert(CategorySingleStep, func(c *Connection) entry {
		return &stepEntry{conn: c, fn: fn}
	}, HookDebugMode, HookInterruptFunction, HookSingleStepMode)
}

// ConnectNewScript subscribes fn to new-script events.
func (r *Register) ConnectNewScript(fn ScriptFunc) *Connection {
	if fn == nil {
		violate("Register.ConnectNewScript", "nil callback")
	}
	r.lock(HookDebugMode, HookNewScript)
	return r.insert(CategoryNewScript, func(c *Connection) entry {
		return &scriptEntry{conn: c, fn: fn}
	}, HookDebugMode, HookNewScript)
}

// ConnectCallExecute subscribes fn to function call and execution events.
func (r *Register) ConnectCallExecute(fn CallFunc) *Connection {
	if fn == nil {
		violate("Register.ConnectCallExecute", "nil callback")
	}
	r.lock(HookDebugMode, HookCallExecute)
	return r.insert(CategoryCallExecute, func(c *Connection) entry {
		return &callEntry{conn: c, fn: fn}
	}, HookDebugMode, HookCallExecute)
}

// insert registers a callback entry and returns its connection. Disposing
// the connection removes the entry and releases hooks in reverse order.
func (r *Register) insert(category Category, build func(c *Connection) entry, hooks ...Hook) *Connection {
	conn := newConnection(category, func(c *Connection) {
		if !r.callbacks[category].remove(c) {
			violate("Connection.Dispose", "%s connection %s has no callback", category, c.ID())
		}
		delete(r.live, c)
		r.unlock(hooks...)
	})
	r.callbacks[category].add(build(conn))
	r.live[conn] = struct{}{}
	return conn
}

// AddBreakpoint installs a trap at filename:line that calls fn each time
// execution reaches it. The line is resolved against the live script with
// the closest base line at or before it.
func (r *Register) AddBreakpoint(filename string, line int, fn StepFunc) (*Connection, error) {
	if fn == nil {
		violate("Register.AddBreakpoint", "nil callback")
	}

	script, ok := r.scripts.floor(filename, line)
	if !ok {
		return nil, &ResolveError{Filename: filename, Line: line, Err: ErrNotFound}
	}

	pc, err := r.engine.LineToPC(script, line)
	if err != nil {
		return nil, &ResolveError{Filename: filename, Line: line, Err: err}
	}

	r.lock(HookDebugMode)

	bp := &breakpoint{
		Breakpoint: Breakpoint{
			Filename: filename,
			Line:     r.engine.PCToLine(script, pc),
			Script:   script,
			PC:       pc,
		},
		fn:    fn,
		valid: true,
	}

	if err := r.engine.SetTrap(script, pc, r.trapHandler(bp)); err != nil {
		r.unlock(HookDebugMode)
		return nil, fmt.Errorf("setting trap at %s:%d: %w", filename, line, err)
	}

	conn := newConnection(CategoryBreakpoint, r.removeBreakpoint)
	r.breakpoints[conn] = bp
	r.live[conn] = struct{}{}

	r.logger.Debug("breakpoint added",
		zap.String("file", filename),
		zap.Int("line", bp.Line))

	return conn, nil
}

// removeBreakpoint is the release func of breakpoint connections.
func (r *Register) removeBreakpoint(c *Connection) {
	bp, ok := r.breakpoints[c]
	if !ok {
		violate("Connection.Dispose", "breakpoint connection %s is not registered", c.ID())
	}
	delete(r.breakpoints, c)
	delete(r.live, c)

	if bp.valid {
		r.engine.ClearTrap(bp.Script, bp.PC)
	}
	r.unlock(HookDebugMode)
}

// trapHandler returns the engine trap handler for bp.
func (r *Register) trapHandler(bp *breakpoint) TrapHandler {
	return func(s Script, pc PC) {
		if !bp.valid {
			return
		}
		info := r.interruptInfo(s, pc)
		bp.fn(info)
	}
}

// Close verifies that every connection has been disposed.
func (r *Register) Close() error {
	if n := len(r.live); n > 0 {
		return fmt.Errorf("%w: %d", ErrConnectionsOpen, n)
	}
	return nil
}

// Scripts returns the keys of every live script in load order.
func (r *Register) Scripts() []ScriptKey {
	return r.scripts.keys()
}

// Breakpoints returns the installed breakpoints.
func (r *Register) Breakpoints() []Breakpoint {
	out := make([]Breakpoint, 0, len(r.breakpoints))
	for _, bp := range r.breakpoints {
		out = append(out, bp.Breakpoint)
	}
	return out
}

// Locked returns the reference count held on hook.
func (r *Register) Locked(hook Hook) int {
	return r.locks[hook].Count()
}

// Subscribers returns the number of callbacks registered for category.
func (r *Register) Subscribers(category Category) int {
	if category == CategoryBreakpoint {
		return len(r.breakpoints)
	}
	return r.callbacks[category].len()
}

func (r *Register) lock(hooks ...Hook) {
	for _, h := range hooks {
		r.locks[h].Lock()
		if r.locks[h].Count() == 1 {
			r.logger.Debug("hook installed", zap.Stringer("hook", h))
		}
	}
}

func (r *Register) unlock(hooks ...Hook) {
	for i := len(hooks) - 1; i >= 0; i-- {
		h := hooks[i]
		r.locks[h].Unlock()
		if !r.locks[h].Active() {
			r.logger.Debug("hook removed", zap.Stringer("hook", h))
		}
	}
}

// setSingleStepMode toggles single-step mode on every live script.
func (r *Register) setSingleStepMode(on bool) {
	r.scripts.each(func(_ ScriptKey, s Script) {
		r.engine.SetSingleStepMode(s, on)
	})
}

func (r *Register) interruptInfo(s Script, pc PC) *InterruptInfo {
	return &InterruptInfo{
		Filename:     s.Filename(),
		Line:         r.engine.PCToLine(s, pc),
		FunctionName: functionNameOr(r.engine.FunctionName(s)),
	}
}

// onNewScript is the engine's new-script hook.
func (r *Register) onNewScript(filename string, baseLine int, s Script) {
	r.scripts.insert(ScriptKey{Filename: filename, BaseLine: baseLine}, s)

	if r.locks[HookSingleStepMode].Active() {
		r.engine.SetSingleStepMode(s, true)
	}

	info := NewScriptInfo(filename, baseLine, s, func() []int {
		return r.engine.ExecutableLines(s)
	})
	dispatch(r.callbacks[CategoryNewScript].snapshot(), nil, info, nil)
}

// onDestroyScript is the engine's destroy-script hook.
func (r *Register) onDestroyScript(s Script) {
	key := ScriptKey{Filename: s.Filename(), BaseLine: s.BaseLine()}
	r.scripts.remove(key, s)

	for _, bp := range r.breakpoints {
		if bp.Script == s && bp.valid {
			bp.valid = false
			r.logger.Debug("breakpoint invalidated by script teardown",
				zap.String("file", bp.Filename),
				zap.Int("line", bp.Line))
		}
	}
}

// onInterrupt is the engine's single-step interrupt hook.
func (r *Register) onInterrupt(s Script, pc PC) {
	entries := r.callbacks[CategorySingleStep].snapshot()
	if len(entries) == 0 {
		return
	}
	dispatch(entries, r.interruptInfo(s, pc), nil, nil)
}

// onExecute is the engine's call/execute hook.
func (r *Register) onExecute(s Script, before bool) {
	entries := r.callbacks[CategoryCallExecute].snapshot()
	if len(entries) == 0 {
		return
	}
	info := &CallInfo{
		InterruptInfo: InterruptInfo{
			Filename:     s.Filename(),
			Line:         s.BaseLine(),
			FunctionName: functionNameOr(r.engine.FunctionName(s)),
		},
		Before: before,
	}
	dispatch(entries, nil, nil, info)
}
