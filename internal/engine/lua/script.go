package lua

import (
	"sort"

	glua "github.com/yuin/gopher-lua"
)

// Script is one compiled Lua function: a chunk's main body or a function
// defined inside it. It implements interrupt.Script.
type Script struct {
	filename string
	baseLine int
	lastLine int
	name     string
	lines    []int
	proto    *glua.FunctionProto

	stepping bool
}

// Filename returns the chunk name the script was loaded from.
func (s *Script) Filename() string { return s.filename }

// BaseLine returns the line the function is defined on, 0 for a main chunk.
func (s *Script) BaseLine() int { return s.baseLine }

// LastLine returns the last line of the function.
func (s *Script) LastLine() int { return s.lastLine }

// Name returns the function name, empty when it has none.
func (s *Script) Name() string { return s.name }

// Lines returns the lines that hold a statement of this function, ascending.
func (s *Script) Lines() []int {
	return append([]int(nil), s.lines...)
}

// snap returns the first statement line at or after line.
func (s *Script) snap(line int) (int, bool) {
	i := sort.SearchInts(s.lines, line)
	if i == len(s.lines) {
		return 0, false
	}
	return s.lines[i], true
}

func (s *Script) hasLine(line int) bool {
	got, ok := s.snap(line)
	return ok && got == line
}

// scripts builds the Script tree for proto, main chunk first, matching each
// nested prototype with what instrumentation recorded for its span.
func scripts(filename string, proto *glua.FunctionProto, info *funcInfo, in *instrumenter) []*Script {
	out := []*Script{{
		filename: filename,
		baseLine: proto.LineDefined,
		lastLine: proto.LastLineDefined,
		name:     info.name,
		lines:    info.lines,
		proto:    proto,
	}}
	for _, child := range proto.FunctionPrototypes {
		ci := in.take(child.LineDefined, child.LastLineDefined)
		out = append(out, scripts(filename, child, ci, in)...)
	}
	return out
}
