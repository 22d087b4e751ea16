package interrupt

// Breakpoint is a trap installed through AddBreakpoint.
type Breakpoint struct {
	// Filename is the requested file.
	Filename string

	// Line is the line the trap resolved to.
	Line int

	// Script is the script holding the trap.
	Script Script

	// PC is the trapped location.
	PC PC
}

// breakpoint owns exactly one engine trap until its connection is disposed
// or its script is destroyed.
type breakpoint struct {
	Breakpoint

	fn    StepFunc
	valid bool
}
