package interrupt_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/stepcov/internal/interrupt"
	"github.com/dshills/stepcov/internal/interrupt/enginetest"
)

func TestConnectSingleStepLocksHooks(t *testing.T) {
	eng := enginetest.New()
	reg := interrupt.New(eng)

	conn := reg.ConnectSingleStep(func(*interrupt.InterruptInfo) {})

	assert.True(t, eng.DebugMode)
	assert.True(t, eng.HasInterruptHook())
	assert.Equal(t, 1, reg.Locked(interrupt.HookDebugMode))
	assert.Equal(t, 1, reg.Locked(interrupt.HookInterruptFunction))
	assert.Equal(t, 1, reg.Locked(interrupt.HookSingleStepMode))
	assert.Equal(t, 0, reg.Locked(interrupt.HookNewScript))
	assert.Equal(t, interrupt.CategorySingleStep, conn.Category())

	conn.Dispose()

	assert.False(t, eng.DebugMode)
	assert.False(t, eng.HasInterruptHook())
	for _, h := range []interrupt.Hook{interrupt.HookDebugMode, interrupt.HookInterruptFunction, interrupt.HookSingleStepMode} {
		assert.Equal(t, 0, reg.Locked(h), h.String())
	}
	assert.NoError(t, reg.Close())
}

func TestSharedHooksInstalledOnce(t *testing.T) {
	eng := enginetest.New()
	reg := interrupt.New(eng)

	step := reg.ConnectSingleStep(func(*interrupt.InterruptInfo) {})
	script := reg.ConnectNewScript(func(*interrupt.ScriptInfo) {})
	call := reg.ConnectCallExecute(func(*interrupt.CallInfo) {})

	assert.Equal(t, 3, reg.Locked(interrupt.HookDebugMode))
	assert.Equal(t, 1, eng.Calls["SetDebugMode(on)"], "debug mode installed on first lock only")

	step.Dispose()
	script.Dispose()
	assert.True(t, eng.DebugMode, "debug mode held by the call/execute connection")
	assert.Equal(t, 0, eng.Calls["SetDebugMode(off)"])

	call.Dispose()
	assert.False(t, eng.DebugMode)
	assert.Equal(t, 1, eng.Calls["SetDebugMode(off)"])
	assert.False(t, eng.HasScriptHooks())
	assert.False(t, eng.HasExecuteHook())
}

func TestDisposeReleasesOnlyOwnLocks(t *testing.T) {
	eng := enginetest.New()
	reg := interrupt.New(eng)

	a := reg.ConnectNewScript(func(*interrupt.ScriptInfo) {})
	b := reg.ConnectSingleStep(func(*interrupt.InterruptInfo) {})

	a.Dispose()

	assert.Equal(t, 1, reg.Locked(interrupt.HookDebugMode))
	assert.Equal(t, 0, reg.Locked(interrupt.HookNewScript))
	assert.Equal(t, 1, reg.Locked(interrupt.HookSingleStepMode))

	b.Dispose()
}

func TestDoubleDisposePanics(t *testing.T) {
	reg := interrupt.New(enginetest.New())
	conn := reg.ConnectNewScript(func(*interrupt.ScriptInfo) {})
	conn.Dispose()
	assert.True(t, conn.Disposed())

	defer func() {
		r := recover()
		require.NotNil(t, r, "second dispose must not be a silent no-op")
		_, ok := r.(*interrupt.InvariantError)
		assert.True(t, ok, "panic value is %T", r)
		assert.Equal(t, 0, reg.Locked(interrupt.HookDebugMode), "no lock released twice")
	}()
	conn.Dispose()
}

func TestConnectionIDsAreUnique(t *testing.T) {
	reg := interrupt.New(enginetest.New())
	a := reg.ConnectNewScript(func(*interrupt.ScriptInfo) {})
	b := reg.ConnectNewScript(func(*interrupt.ScriptInfo) {})
	defer a.Dispose()
	defer b.Dispose()

	assert.NotEmpty(t, a.ID())
	assert.NotEqual(t, a.ID(), b.ID())
}

func TestDispatchInSubscriptionOrder(t *testing.T) {
	eng := enginetest.New()
	reg := interrupt.New(eng)
	scripts := reg.ConnectNewScript(func(*interrupt.ScriptInfo) {})
	defer scripts.Dispose()

	var order []string
	var seen []*interrupt.InterruptInfo
	first := reg.ConnectSingleStep(func(info *interrupt.InterruptInfo) {
		order = append(order, "first")
		seen = append(seen, info)
	})
	second := reg.ConnectSingleStep(func(info *interrupt.InterruptInfo) {
		order = append(order, "second")
		seen = append(seen, info)
	})
	defer first.Dispose()
	defer second.Dispose()

	s := eng.Load("/src/a.js", 1, "f", 1, 2)
	eng.Step(s, 2)

	assert.Equal(t, []string{"first", "second"}, order)
	require.Len(t, seen, 2)
	assert.Same(t, seen[0], seen[1], "every subscriber gets the same info")
	assert.Equal(t, "/src/a.js", seen[0].Filename)
	assert.Equal(t, 2, seen[0].Line)
	assert.Equal(t, "f", seen[0].FunctionName)
}

func TestDisposedSubscriberStopsReceiving(t *testing.T) {
	eng := enginetest.New()
	reg := interrupt.New(eng)
	scripts := reg.ConnectNewScript(func(*interrupt.ScriptInfo) {})
	defer scripts.Dispose()

	var a, b int
	connA := reg.ConnectSingleStep(func(*interrupt.InterruptInfo) { a++ })
	connB := reg.ConnectSingleStep(func(*interrupt.InterruptInfo) { b++ })
	s := eng.Load("/src/a.js", 0, "", 1)

	eng.Step(s, 1)
	connA.Dispose()
	eng.Step(s, 1)

	assert.Equal(t, 1, a)
	assert.Equal(t, 2, b)
	connB.Dispose()
}

func TestLateSingleStepSubscriberSeesLoadedScripts(t *testing.T) {
	eng := enginetest.New()
	reg := interrupt.New(eng)

	scripts := reg.ConnectNewScript(func(*interrupt.ScriptInfo) {})
	defer scripts.Dispose()

	s := eng.Load("/src/a.js", 0, "", 1, 2)
	assert.False(t, eng.Stepping(s))

	var lines []int
	step := reg.ConnectSingleStep(func(info *interrupt.InterruptInfo) {
		lines = append(lines, info.Line)
	})
	assert.True(t, eng.Stepping(s), "single-step enabled on already-live script")

	eng.Run(s, 1, 2)
	assert.Equal(t, []int{1, 2}, lines)

	later := eng.Load("/src/b.js", 0, "", 1)
	assert.True(t, eng.Stepping(later), "scripts loaded while stepping are stepped")

	step.Dispose()
	assert.False(t, eng.Stepping(s))
	assert.False(t, eng.Stepping(later))
}

func TestNewScriptInfo(t *testing.T) {
	eng := enginetest.New()
	reg := interrupt.New(eng)

	var infos []*interrupt.ScriptInfo
	var lines [][]int
	conn := reg.ConnectNewScript(func(info *interrupt.ScriptInfo) {
		infos = append(infos, info)
		lines = append(lines, info.ExecutableLines())
	})
	defer conn.Dispose()

	s := eng.Load("/src/a.js", 3, "g", 5, 3, 4)

	require.Len(t, infos, 1)
	assert.Equal(t, "/src/a.js", infos[0].Filename)
	assert.Equal(t, 3, infos[0].BaseLine)
	assert.Same(t, s, infos[0].Script)
	assert.Equal(t, [][]int{{3, 4, 5}}, lines)
	assert.Equal(t, []interrupt.ScriptKey{{Filename: "/src/a.js", BaseLine: 3}}, reg.Scripts())
}

func TestDestroyScriptRemovesRecordWithoutCallback(t *testing.T) {
	eng := enginetest.New()
	reg := interrupt.New(eng)

	calls := 0
	conn := reg.ConnectNewScript(func(*interrupt.ScriptInfo) { calls++ })
	defer conn.Dispose()

	s := eng.Load("/src/a.js", 0, "", 1)
	eng.Destroy(s)

	assert.Equal(t, 1, calls, "destroy does not invoke new-script callbacks")
	assert.Empty(t, reg.Scripts())

	eng.Load("/src/a.js", 0, "", 1)
	assert.Len(t, reg.Scripts(), 1, "key reusable after destroy")
}

func TestCallExecute(t *testing.T) {
	eng := enginetest.New()
	reg := interrupt.New(eng)

	var got []interrupt.CallInfo
	conn := reg.ConnectCallExecute(func(info *interrupt.CallInfo) {
		got = append(got, *info)
	})
	defer conn.Dispose()

	eng.Call(eng.Load("/src/a.js", 4, "", 4))

	require.Len(t, got, 1)
	assert.True(t, got[0].Before)
	assert.Equal(t, "/src/a.js", got[0].Filename)
	assert.Equal(t, 4, got[0].Line)
	assert.Equal(t, "(unknown)", got[0].FunctionName)
}

func TestAddBreakpoint(t *testing.T) {
	eng := enginetest.New()
	reg := interrupt.New(eng)
	scripts := reg.ConnectNewScript(func(*interrupt.ScriptInfo) {})
	defer scripts.Dispose()

	top := eng.Load("/src/a.js", 0, "", 1, 2, 9)
	fn := eng.Load("/src/a.js", 3, "f", 4, 6)

	var hits []int
	conn, err := reg.AddBreakpoint("/src/a.js", 5, func(info *interrupt.InterruptInfo) {
		hits = append(hits, info.Line)
	})
	require.NoError(t, err)

	assert.True(t, eng.Trapped(fn, 6), "trap resolved in the enclosing script, snapped to code")
	assert.False(t, eng.Trapped(top, 9))
	assert.Equal(t, 2, reg.Locked(interrupt.HookDebugMode))

	bps := reg.Breakpoints()
	require.Len(t, bps, 1)
	assert.Equal(t, 6, bps[0].Line)

	eng.Run(fn, 4, 6, 6)
	assert.Equal(t, []int{6, 6}, hits)

	conn.Dispose()
	assert.False(t, eng.Trapped(fn, 6))
	assert.Equal(t, 1, reg.Locked(interrupt.HookDebugMode))
	assert.Empty(t, reg.Breakpoints())
}

func TestAddBreakpointNotFound(t *testing.T) {
	eng := enginetest.New()
	reg := interrupt.New(eng)
	scripts := reg.ConnectNewScript(func(*interrupt.ScriptInfo) {})
	defer scripts.Dispose()

	eng.Load("/src/a.js", 10, "", 10)

	_, err := reg.AddBreakpoint("/src/b.js", 10, func(*interrupt.InterruptInfo) {})
	require.Error(t, err)
	assert.True(t, errors.Is(err, interrupt.ErrNotFound))

	_, err = reg.AddBreakpoint("/src/a.js", 2, func(*interrupt.InterruptInfo) {})
	var resolveErr *interrupt.ResolveError
	require.True(t, errors.As(err, &resolveErr))
	assert.Equal(t, "/src/a.js", resolveErr.Filename)
	assert.Equal(t, 2, resolveErr.Line)

	assert.Equal(t, 1, reg.Locked(interrupt.HookDebugMode), "failed resolution takes no lock")
}

func TestBreakpointInvalidatedByScriptDestroy(t *testing.T) {
	eng := enginetest.New()
	reg := interrupt.New(eng)
	scripts := reg.ConnectNewScript(func(*interrupt.ScriptInfo) {})
	defer scripts.Dispose()

	s := eng.Load("/src/a.js", 0, "", 1)
	conn, err := reg.AddBreakpoint("/src/a.js", 1, func(*interrupt.InterruptInfo) {})
	require.NoError(t, err)

	eng.Destroy(s)
	assert.NotPanics(t, conn.Dispose)
	assert.Equal(t, 1, reg.Locked(interrupt.HookDebugMode))
}

func TestCloseReportsOpenConnections(t *testing.T) {
	reg := interrupt.New(enginetest.New())
	conn := reg.ConnectCallExecute(func(*interrupt.CallInfo) {})

	err := reg.Close()
	assert.ErrorIs(t, err, interrupt.ErrConnectionsOpen)

	conn.Dispose()
	assert.NoError(t, reg.Close())
}

func TestSubscribeDuringDispatchTakesEffectNextEvent(t *testing.T) {
	eng := enginetest.New()
	reg := interrupt.New(eng)
	scripts := reg.ConnectNewScript(func(*interrupt.ScriptInfo) {})
	defer scripts.Dispose()

	var late int
	var lateConn *interrupt.Connection
	first := reg.ConnectSingleStep(func(*interrupt.InterruptInfo) {
		if lateConn == nil {
			lateConn = reg.ConnectSingleStep(func(*interrupt.InterruptInfo) { late++ })
		}
	})
	s := eng.Load("/src/a.js", 0, "", 1)

	eng.Step(s, 1)
	assert.Equal(t, 0, late)
	eng.Step(s, 1)
	assert.Equal(t, 1, late)

	first.Dispose()
	lateConn.Dispose()
}

func TestSingleStepNeedsTrackedScripts(t *testing.T) {
	eng := enginetest.New()
	reg := interrupt.New(eng)

	steps := 0
	conn := reg.ConnectSingleStep(func(*interrupt.InterruptInfo) { steps++ })
	defer conn.Dispose()

	s := eng.Load("/src/a.js", 0, "", 1)
	eng.Step(s, 1)

	assert.Equal(t, 0, steps, "scripts loaded without a new-script subscriber are not stepped")
	assert.Empty(t, reg.Scripts())
}

func TestNilCallbackPanics(t *testing.T) {
	reg := interrupt.New(enginetest.New())
	assert.Panics(t, func() { reg.ConnectSingleStep(nil) })
	assert.Equal(t, 0, reg.Locked(interrupt.HookDebugMode))
}
