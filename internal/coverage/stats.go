package coverage

import "bytes"

// Line states stored in a LineStats table. Any value above Unhit is a hit
// count.
const (
	Unknown = -1
	Unhit   = 0
)

// LineStats holds the state of every line of one source file, indexed by
// 1-based line number. Index 0 is unused.
type LineStats []int

// newLineStats returns a table for a file of n lines, all Unknown.
func newLineStats(n int) LineStats {
	s := make(LineStats, n+1)
	for i := range s {
		s[i] = Unknown
	}
	return s
}

// countLines returns the number of lines in src: one more than the number
// of newline characters.
func countLines(src []byte) int {
	return 1 + bytes.Count(src, []byte{'\n'})
}

// Lines returns the number of source lines the table covers.
func (s LineStats) Lines() int {
	if len(s) == 0 {
		return 0
	}
	return len(s) - 1
}

// InRange reports whether line is a valid index into the table.
func (s LineStats) InRange(line int) bool {
	return line >= 1 && line < len(s)
}

// State returns the state of line, or Unknown if it is out of range.
func (s LineStats) State(line int) int {
	if !s.InRange(line) {
		return Unknown
	}
	return s[line]
}

// Each calls fn for every executable line in ascending order.
func (s LineStats) Each(fn func(line, hits int)) {
	for line := 1; line < len(s); line++ {
		if s[line] != Unknown {
			fn(line, s[line])
		}
	}
}

// Found returns the number of executable lines.
func (s LineStats) Found() int {
	n := 0
	s.Each(func(int, int) { n++ })
	return n
}

// Hit returns the number of executable lines with at least one hit.
func (s LineStats) Hit() int {
	n := 0
	s.Each(func(_, hits int) {
		if hits > 0 {
			n++
		}
	})
	return n
}

// Clone returns a copy of the table.
func (s LineStats) Clone() LineStats {
	return append(LineStats(nil), s...)
}
