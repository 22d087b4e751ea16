// Package coverage records per-line execution counts for scripts run under
// an interrupt.Register and writes them as LCOV tracefiles.
//
// A Coverage subscribes to new-script and single-step events. The first time
// a script from a file loads, the file gets a LineStats table with one entry
// per source line, all Unknown. Every script load then marks the lines the
// engine reports as executable, unless the line is lexical noise for the
// file's Syntax (blank, a comment, a lone closing token), as Unhit. Each
// single-step event adds a hit to its line.
//
// Only lines that are not Unknown appear in the tracefile:
//
//	SF:/src/a.js
//	FNF:0
//	FNH:0
//	BRF:0
//	BRH:0
//	DA:1,1
//	LH:1
//	LF:1
//	end_of_record
package coverage
