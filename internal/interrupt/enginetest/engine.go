// Package enginetest provides a scripted interrupt.Engine for tests.
//
// The Engine does not evaluate anything. Tests drive it explicitly: Load
// announces a script, Step executes one line of it, Call enters it and
// Destroy tears it down. Hooks fire only when the real engine would fire
// them, so the register sees the same sequence of events.
package enginetest

import (
	"fmt"
	"sort"

	"github.com/dshills/stepcov/internal/interrupt"
)

// Script is a scripted script handle.
type Script struct {
	filename string
	baseLine int
	name     string
	lines    []int
}

// Filename implements interrupt.Script.
func (s *Script) Filename() string { return s.filename }

// BaseLine implements interrupt.Script.
func (s *Script) BaseLine() int { return s.baseLine }

type trapKey struct {
	script *Script
	pc     interrupt.PC
}

// Engine is a scripted interrupt.Engine.
type Engine struct {
	DebugMode bool

	interrupt interrupt.InterruptHook
	onNew     interrupt.NewScriptHook
	onDestroy interrupt.DestroyScriptHook
	execute   interrupt.ExecuteHook

	stepping map[*Script]bool
	traps    map[trapKey]interrupt.TrapHandler

	// Calls counts hook slot changes by name, e.g. "SetInterruptHook(on)".
	Calls map[string]int
}

// New creates an idle scripted engine.
func New() *Engine {
	return &Engine{
		stepping: make(map[*Script]bool),
		traps:    make(map[trapKey]interrupt.TrapHandler),
		Calls:    make(map[string]int),
	}
}

// Load announces a new script covering lines, which must be its executable
// lines. The new-script hook fires if installed.
func (e *Engine) Load(filename string, baseLine int, name string, lines ...int) *Script {
	sorted := append([]int(nil), lines...)
	sort.Ints(sorted)
	s := &Script{filename: filename, baseLine: baseLine, name: name, lines: sorted}
	if e.onNew != nil {
		e.onNew(filename, baseLine, s)
	}
	return s
}

// Destroy tears s down. The destroy-script hook fires if installed.
func (e *Engine) Destroy(s *Script) {
	delete(e.stepping, s)
	for k := range e.traps {
		if k.script == s {
			delete(e.traps, k)
		}
	}
	if e.onDestroy != nil {
		e.onDestroy(s)
	}
}

// Step executes line of s: traps fire first, then the interrupt hook when
// single-step mode is enabled for s. Nothing fires outside debug mode.
func (e *Engine) Step(s *Script, line int) {
	if !e.DebugMode {
		return
	}
	pc := interrupt.PC(line)
	if h, ok := e.traps[trapKey{s, pc}]; ok {
		h(s, pc)
	}
	if e.stepping[s] && e.interrupt != nil {
		e.interrupt(s, pc)
	}
}

// Run steps through lines of s in order.
func (e *Engine) Run(s *Script, lines ...int) {
	for _, line := range lines {
		e.Step(s, line)
	}
}

// Call enters s. The execute hook fires if installed.
func (e *Engine) Call(s *Script) {
	if e.execute != nil {
		e.execute(s, true)
	}
}

// Stepping reports whether single-step mode is on for s.
func (e *Engine) Stepping(s *Script) bool {
	return e.stepping[s]
}

// Trapped reports whether a trap is installed at line of s.
func (e *Engine) Trapped(s *Script, line int) bool {
	_, ok := e.traps[trapKey{s, interrupt.PC(line)}]
	return ok
}

// HasInterruptHook reports whether the interrupt hook is installed.
func (e *Engine) HasInterruptHook() bool { return e.interrupt != nil }

// HasScriptHooks reports whether the script hooks are installed.
func (e *Engine) HasScriptHooks() bool { return e.onNew != nil }

// HasExecuteHook reports whether the execute hook is installed.
func (e *Engine) HasExecuteHook() bool { return e.execute != nil }

func (e *Engine) record(name string, on bool) {
	state := "off"
	if on {
		state = "on"
	}
	e.Calls[name+"("+state+")"]++
}

// SetDebugMode implements interrupt.Engine.
func (e *Engine) SetDebugMode(on bool) {
	e.record("SetDebugMode", on)
	e.DebugMode = on
}

// SetInterruptHook implements interrupt.Engine.
func (e *Engine) SetInterruptHook(h interrupt.InterruptHook) {
	e.record("SetInterruptHook", h != nil)
	e.interrupt = h
}

// SetScriptHooks implements interrupt.Engine.
func (e *Engine) SetScriptHooks(onNew interrupt.NewScriptHook, onDestroy interrupt.DestroyScriptHook) {
	e.record("SetScriptHooks", onNew != nil)
	e.onNew = onNew
	e.onDestroy = onDestroy
}

// SetExecuteHook implements interrupt.Engine.
func (e *Engine) SetExecuteHook(h interrupt.ExecuteHook) {
	e.record("SetExecuteHook", h != nil)
	e.execute = h
}

// SetSingleStepMode implements interrupt.Engine.
func (e *Engine) SetSingleStepMode(s interrupt.Script, on bool) {
	e.stepping[s.(*Script)] = on
}

// ExecutableLines implements interrupt.Engine.
func (e *Engine) ExecutableLines(s interrupt.Script) []int {
	return append([]int(nil), s.(*Script).lines...)
}

// FunctionName implements interrupt.Engine.
func (e *Engine) FunctionName(s interrupt.Script) string {
	return s.(*Script).name
}

// LineToPC implements interrupt.Engine. The location is the first
// executable line at or after line.
func (e *Engine) LineToPC(s interrupt.Script, line int) (interrupt.PC, error) {
	for _, l := range s.(*Script).lines {
		if l >= line {
			return interrupt.PC(l), nil
		}
	}
	return 0, fmt.Errorf("no code at or after line %d", line)
}

// PCToLine implements interrupt.Engine.
func (e *Engine) PCToLine(_ interrupt.Script, pc interrupt.PC) int {
	return int(pc)
}

// SetTrap implements interrupt.Engine.
func (e *Engine) SetTrap(s interrupt.Script, pc interrupt.PC, h interrupt.TrapHandler) error {
	e.traps[trapKey{s.(*Script), pc}] = h
	return nil
}

// ClearTrap implements interrupt.Engine.
func (e *Engine) ClearTrap(s interrupt.Script, pc interrupt.PC) {
	delete(e.traps, trapKey{s.(*Script), pc})
}

var _ interrupt.Engine = (*Engine)(nil)
