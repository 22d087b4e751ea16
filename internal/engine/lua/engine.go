package lua

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	glua "github.com/yuin/gopher-lua"
	"github.com/yuin/gopher-lua/parse"
	"go.uber.org/zap"

	"github.com/dshills/stepcov/internal/interrupt"
)

type trapKey struct {
	script *Script
	pc     interrupt.PC
}

// Engine runs Lua programs on gopher-lua and exposes the debugger hook
// surface the interrupt register multiplexes.
//
// gopher-lua's LState is not goroutine-safe. DoFile, DoString and Close
// serialize on a mutex. The hook surface (the interrupt.Engine methods) does
// not lock: it is called from hooks running inside DoFile, or between runs.
type Engine struct {
	L *glua.LState

	mu     sync.Mutex
	closed bool

	logger     *zap.Logger
	searchPath []string
	args       []string
	ctx        context.Context

	debug     bool
	interrupt interrupt.InterruptHook
	onNew     interrupt.NewScriptHook
	onDestroy interrupt.DestroyScriptHook
	execute   interrupt.ExecuteHook

	stepFn  *glua.LFunction
	enterFn *glua.LFunction

	protos map[*glua.FunctionProto]*Script
	live   []*Script
	traps  map[trapKey]interrupt.TrapHandler

	// fault holds an invariant violation raised inside a hook until the run
	// unwinds, since gopher-lua turns Go panics into Lua errors.
	fault *interrupt.InvariantError
}

// Option configures an Engine.
type Option func(*Engine)

// WithSearchPath adds directories searched by require, before package.path.
func WithSearchPath(dirs []string) Option {
	return func(e *Engine) {
		e.searchPath = append(e.searchPath, dirs...)
	}
}

// WithArgs sets the program arguments, exposed as the global arg table and
// as the main chunk's varargs.
func WithArgs(args []string) Option {
	return func(e *Engine) {
		e.args = append([]string(nil), args...)
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithContext makes running chunks stop with an error once ctx is done.
func WithContext(ctx context.Context) Option {
	return func(e *Engine) {
		e.ctx = ctx
	}
}

// New creates an engine with the standard libraries open.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{
		logger: zap.NewNop(),
		protos: make(map[*glua.FunctionProto]*Script),
		traps:  make(map[trapKey]interrupt.TrapHandler),
	}
	for _, opt := range opts {
		opt(e)
	}

	e.L = glua.NewState()
	if e.ctx != nil {
		e.L.SetContext(e.ctx)
	}

	e.stepFn = e.L.NewFunction(e.luaStep)
	e.enterFn = e.L.NewFunction(e.luaEnter)
	e.installBase()
	if err := e.installLoader(); err != nil {
		e.L.Close()
		return nil, err
	}

	return e, nil
}

// DoFile loads the file at path, announces its scripts and runs it. Loading
// a file again first destroys the scripts of the previous load.
func (e *Engine) DoFile(path string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrEngineClosed
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return &ChunkError{Name: path, Op: "load", Err: err}
	}
	src, err := os.ReadFile(abs)
	if err != nil {
		return &ChunkError{Name: abs, Op: "load", Err: err}
	}

	e.setArgs(abs)
	fn, err := e.load(abs, src, true)
	if err != nil {
		return err
	}
	return e.run(abs, fn, e.argValues()...)
}

// DoString loads src under name and runs it.
func (e *Engine) DoString(name, src string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrEngineClosed
	}

	fn, err := e.load(name, []byte(src), true)
	if err != nil {
		return err
	}
	return e.run(name, fn)
}

// load parses and instruments src, compiles it and announces every
// resulting script. With replace set, the scripts of an earlier load under
// the same name are destroyed first.
func (e *Engine) load(name string, src []byte, replace bool) (*glua.LFunction, error) {
	if bytes.HasPrefix(src, []byte("#")) {
		src = append([]byte("--"), src...)
	}

	chunk, err := parse.Parse(bytes.NewReader(src), name)
	if err != nil {
		return nil, &ChunkError{Name: name, Op: "load", Err: err}
	}
	chunk, main, in := instrument(chunk)

	proto, err := glua.Compile(chunk, name)
	if err != nil {
		return nil, &ChunkError{Name: name, Op: "load", Err: err}
	}
	proto = mainProto(proto)

	if replace {
		e.destroyFile(name)
	}

	loaded := scripts(name, proto, main, in)
	for _, s := range loaded {
		e.protos[s.proto] = s
		e.live = append(e.live, s)
	}
	e.logger.Debug("chunk loaded",
		zap.String("chunk", name),
		zap.Int("scripts", len(loaded)))

	for _, s := range loaded {
		if e.onNew != nil {
			e.onNew(s.filename, s.baseLine, s)
		}
	}
	return e.bind(proto), nil
}

// bind creates the main chunk closure with the hook functions as its
// upvalues.
func (e *Engine) bind(proto *glua.FunctionProto) *glua.LFunction {
	fn := e.L.NewFunctionFromProto(proto)
	for i, name := range proto.DbgUpvalues {
		uv := &glua.Upvalue{}
		switch name {
		case stepFunc:
			uv.SetValue(e.stepFn)
		case enterFunc:
			uv.SetValue(e.enterFn)
		default:
			uv.SetValue(glua.LNil)
		}
		fn.Upvalues[i] = uv
	}
	return fn
}

// run calls fn in protected mode. An invariant violation raised by a hook
// is re-raised once the Lua stack has unwound.
func (e *Engine) run(name string, fn *glua.LFunction, args ...glua.LValue) error {
	top := e.L.GetTop()
	e.L.Push(fn)
	for _, a := range args {
		e.L.Push(a)
	}
	err := e.L.PCall(len(args), glua.MultRet, nil)
	e.L.SetTop(top)

	if f := e.fault; f != nil {
		e.fault = nil
		panic(f)
	}
	if err != nil {
		return &ChunkError{Name: name, Op: "run", Err: err}
	}
	return nil
}

func (e *Engine) setArgs(script string) {
	t := e.L.NewTable()
	t.RawSetInt(0, glua.LString(script))
	for i, a := range e.args {
		t.RawSetInt(i+1, glua.LString(a))
	}
	e.L.SetGlobal("arg", t)
}

func (e *Engine) argValues() []glua.LValue {
	out := make([]glua.LValue, len(e.args))
	for i, a := range e.args {
		out[i] = glua.LString(a)
	}
	return out
}

// destroyFile tears down every live script loaded from name.
func (e *Engine) destroyFile(name string) {
	var keep, gone []*Script
	for _, s := range e.live {
		if s.filename == name {
			gone = append(gone, s)
		} else {
			keep = append(keep, s)
		}
	}
	if len(gone) == 0 {
		return
	}
	e.live = keep
	e.destroy(gone)
}

// destroy notifies teardown of scripts, innermost first.
func (e *Engine) destroy(list []*Script) {
	for i := len(list) - 1; i >= 0; i-- {
		s := list[i]
		delete(e.protos, s.proto)
		for k := range e.traps {
			if k.script == s {
				delete(e.traps, k)
			}
		}
		if e.onDestroy != nil {
			e.onDestroy(s)
		}
	}
}

// Live returns the number of live scripts.
func (e *Engine) Live() int {
	return len(e.live)
}

// Close destroys every live script and closes the Lua state.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}

	live := e.live
	e.live = nil
	e.destroy(live)

	e.L.Close()
	e.closed = true
	return nil
}

// caller returns the script whose code called the running Go function.
func (e *Engine) caller(L *glua.LState) *Script {
	dbg, ok := L.GetStack(1)
	if !ok {
		return nil
	}
	fn, err := L.GetInfo("f", dbg, glua.LNil)
	if err != nil {
		return nil
	}
	lf, ok := fn.(*glua.LFunction)
	if !ok || lf.IsG {
		return nil
	}
	return e.protos[lf.Proto]
}

// catch records an invariant violation before gopher-lua converts the panic.
func (e *Engine) catch() {
	if r := recover(); r != nil {
		if ie, ok := r.(*interrupt.InvariantError); ok && e.fault == nil {
			e.fault = ie
		}
		panic(r)
	}
}

// luaStep is called before every statement with the statement's line.
func (e *Engine) luaStep(L *glua.LState) int {
	if !e.debug {
		return 0
	}
	line := L.CheckInt(1)
	s := e.caller(L)
	if s == nil {
		return 0
	}

	defer e.catch()
	pc := interrupt.PC(line)
	if h, ok := e.traps[trapKey{s, pc}]; ok {
		h(s, pc)
	}
	if s.stepping && e.interrupt != nil {
		e.interrupt(s, pc)
	}
	return 0
}

// luaEnter is called on entry to every function and main chunk.
func (e *Engine) luaEnter(L *glua.LState) int {
	if !e.debug || e.execute == nil {
		return 0
	}
	s := e.caller(L)
	if s == nil {
		return 0
	}

	defer e.catch()
	e.execute(s, true)
	return 0
}

func (e *Engine) script(s interrupt.Script) (*Script, error) {
	ls, ok := s.(*Script)
	if !ok || e.protos[ls.proto] != ls {
		return nil, fmt.Errorf("%w: %s:%d", ErrForeignScript, s.Filename(), s.BaseLine())
	}
	return ls, nil
}

// SetDebugMode implements interrupt.Engine. No hook fires while it is off.
func (e *Engine) SetDebugMode(on bool) {
	e.debug = on
	e.logger.Debug("debug mode", zap.Bool("on", on))
}

// SetInterruptHook implements interrupt.Engine.
func (e *Engine) SetInterruptHook(h interrupt.InterruptHook) {
	e.interrupt = h
}

// SetScriptHooks implements interrupt.Engine.
func (e *Engine) SetScriptHooks(onNew interrupt.NewScriptHook, onDestroy interrupt.DestroyScriptHook) {
	e.onNew = onNew
	e.onDestroy = onDestroy
}

// SetExecuteHook implements interrupt.Engine.
func (e *Engine) SetExecuteHook(h interrupt.ExecuteHook) {
	e.execute = h
}

// SetSingleStepMode implements interrupt.Engine.
func (e *Engine) SetSingleStepMode(s interrupt.Script, on bool) {
	if ls, err := e.script(s); err == nil {
		ls.stepping = on
	}
}

// ExecutableLines implements interrupt.Engine.
func (e *Engine) ExecutableLines(s interrupt.Script) []int {
	ls, err := e.script(s)
	if err != nil {
		return nil
	}
	return ls.Lines()
}

// FunctionName implements interrupt.Engine.
func (e *Engine) FunctionName(s interrupt.Script) string {
	if ls, ok := s.(*Script); ok {
		return ls.name
	}
	return ""
}

// LineToPC implements interrupt.Engine. Locations are statement lines; a
// line without a statement snaps forward to the next one in the script.
func (e *Engine) LineToPC(s interrupt.Script, line int) (interrupt.PC, error) {
	ls, err := e.script(s)
	if err != nil {
		return 0, err
	}
	got, ok := ls.snap(line)
	if !ok {
		return 0, fmt.Errorf("%w %d in %s", ErrNoCode, line, ls.filename)
	}
	return interrupt.PC(got), nil
}

// PCToLine implements interrupt.Engine.
func (e *Engine) PCToLine(_ interrupt.Script, pc interrupt.PC) int {
	return int(pc)
}

// SetTrap implements interrupt.Engine.
func (e *Engine) SetTrap(s interrupt.Script, pc interrupt.PC, h interrupt.TrapHandler) error {
	ls, err := e.script(s)
	if err != nil {
		return err
	}
	if !ls.hasLine(int(pc)) {
		return fmt.Errorf("%w %d in %s", ErrNoCode, pc, ls.filename)
	}
	e.traps[trapKey{ls, pc}] = h
	return nil
}

// ClearTrap implements interrupt.Engine.
func (e *Engine) ClearTrap(s interrupt.Script, pc interrupt.PC) {
	if ls, ok := s.(*Script); ok {
		delete(e.traps, trapKey{ls, pc})
	}
}

var _ interrupt.Engine = (*Engine)(nil)
