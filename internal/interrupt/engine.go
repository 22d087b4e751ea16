package interrupt

// Script is an opaque handle for one compiled script fragment held by the
// engine. Handles are compared by identity.
type Script interface {
	// Filename returns the absolute path of the file the script came from.
	Filename() string

	// BaseLine returns the first source line of the fragment.
	BaseLine() int
}

// PC is an engine-internal program location inside a script.
type PC int

// Raw engine hook signatures. The register installs exactly one of each.
type (
	// InterruptHook is called before each statement of a script that has
	// single-step mode enabled.
	InterruptHook func(s Script, pc PC)

	// NewScriptHook is called when the engine has compiled a new script.
	NewScriptHook func(filename string, baseLine int, s Script)

	// DestroyScriptHook is called when the engine tears a script down.
	DestroyScriptHook func(s Script)

	// ExecuteHook is called around function calls and top-level executions.
	ExecuteHook func(s Script, before bool)

	// TrapHandler is called when execution reaches a trapped location.
	TrapHandler func(s Script, pc PC)
)

// Engine is the hook surface a script engine exposes to the register.
//
// Every hook slot is global: installing a hook replaces the previous one and
// installing nil removes it. The register is the only caller expected to
// touch these slots.
type Engine interface {
	// SetDebugMode toggles the engine's debug mode. Traps and single-step
	// mode have no effect while debug mode is off.
	SetDebugMode(on bool)

	// SetInterruptHook installs the single-step interrupt hook.
	SetInterruptHook(h InterruptHook)

	// SetScriptHooks installs the new-script and destroy-script hooks.
	SetScriptHooks(onNew NewScriptHook, onDestroy DestroyScriptHook)

	// SetExecuteHook installs the call/execute hook.
	SetExecuteHook(h ExecuteHook)

	// SetSingleStepMode toggles single-step mode for one script.
	SetSingleStepMode(s Script, on bool)

	// ExecutableLines returns the lines that hold executable instructions
	// in the script, in ascending order.
	ExecutableLines(s Script) []int

	// FunctionName returns the name of the function the script implements,
	// or "" for top-level code and anonymous functions.
	FunctionName(s Script) string

	// LineToPC converts a source line inside the script to a location.
	LineToPC(s Script, line int) (PC, error)

	// PCToLine converts a location back to its source line.
	PCToLine(s Script, pc PC) int

	// SetTrap installs a trap at the location.
	SetTrap(s Script, pc PC, h TrapHandler) error

	// ClearTrap removes the trap at the location, if any.
	ClearTrap(s Script, pc PC)
}
