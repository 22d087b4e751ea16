package interrupt

// unknownFunction names code with no enclosing named function.
const unknownFunction = "(unknown)"

// InterruptInfo describes the location of a single-step or trap event.
type InterruptInfo struct {
	// Filename is the file being executed.
	Filename string

	// Line is the line about to execute.
	Line int

	// FunctionName is the enclosing function, or "(unknown)".
	FunctionName string
}

// CallInfo describes a call/execute event.
type CallInfo struct {
	InterruptInfo

	// Before is true on entry and false on exit.
	Before bool
}

// ScriptInfo describes a newly loaded script.
type ScriptInfo struct {
	// Filename is the file the script came from.
	Filename string

	// BaseLine is the first line of the script.
	BaseLine int

	// Script is the engine handle.
	Script Script

	lines    func() []int
	cached   []int
	computed bool
}

// ExecutableLines returns the lines the engine reports as holding
// executable instructions. The engine is queried on first use only.
func (i *ScriptInfo) ExecutableLines() []int {
	if !i.computed {
		i.computed = true
		if i.lines != nil {
			i.cached = i.lines()
		}
	}
	return i.cached
}

// NewScriptInfo builds a ScriptInfo whose executable lines come from lines.
// The register builds these itself; the constructor exists for consumers
// that feed recorded events.
func NewScriptInfo(filename string, baseLine int, s Script, lines func() []int) *ScriptInfo {
	return &ScriptInfo{
		Filename: filename,
		BaseLine: baseLine,
		Script:   s,
		lines:    lines,
	}
}

func functionNameOr(name string) string {
	if name == "" {
		return unknownFunction
	}
	return name
}
