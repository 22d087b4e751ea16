package interrupt

// Hook identifies one global engine hook slot guarded by a HookLock.
type Hook int

const (
	// HookDebugMode guards the engine's debug mode.
	HookDebugMode Hook = iota
	// HookInterruptFunction guards the global interrupt hook.
	HookInterruptFunction
	// HookSingleStepMode guards per-script single-step mode.
	HookSingleStepMode
	// HookNewScript guards the new-script and destroy-script hooks.
	HookNewScript
	// HookCallExecute guards the call/execute hook.
	HookCallExecute

	hookCount
)

// String returns a human-readable hook name.
func (h Hook) String() string {
	switch h {
	case HookDebugMode:
		return "debug-mode"
	case HookInterruptFunction:
		return "interrupt-function"
	case HookSingleStepMode:
		return "single-step-mode"
	case HookNewScript:
		return "new-script"
	case HookCallExecute:
		return "call-execute"
	default:
		return "unknown"
	}
}

// HookLock reference-counts users of one engine hook. The hook is active
// exactly while the count is above zero.
type HookLock struct {
	hook       Hook
	count      int
	activate   func()
	deactivate func()
}

// NewHookLock creates a lock that calls activate on the 0→1 transition and
// deactivate on the 1→0 transition.
func NewHookLock(hook Hook, activate, deactivate func()) *HookLock {
	return &HookLock{
		hook:       hook,
		activate:   activate,
		deactivate: deactivate,
	}
}

// Lock takes one reference.
func (l *HookLock) Lock() {
	l.count++
	if l.count == 1 {
		l.activate()
	}
}

// Unlock drops one reference. Unlocking a lock with no references panics.
func (l *HookLock) Unlock() {
	if l.count == 0 {
		violate("HookLock.Unlock", "%s lock released while unlocked", l.hook)
	}
	l.count--
	if l.count == 0 {
		l.deactivate()
	}
}

// Count returns the number of references held.
func (l *HookLock) Count() int {
	return l.count
}

// Active reports whether the hook is installed.
func (l *HookLock) Active() bool {
	return l.count > 0
}
