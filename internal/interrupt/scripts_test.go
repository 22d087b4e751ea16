package interrupt

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type stubScript struct {
	file string
	base int
}

func (s *stubScript) Filename() string { return s.file }
func (s *stubScript) BaseLine() int    { return s.base }

func register(r *scriptRegistry, file string, base int) *stubScript {
	s := &stubScript{file: file, base: base}
	r.insert(ScriptKey{Filename: file, BaseLine: base}, s)
	return s
}

func TestScriptRegistryFloor(t *testing.T) {
	r := newScriptRegistry()
	top := register(r, "/src/a.js", 0)
	fn := register(r, "/src/a.js", 10)
	inner := register(r, "/src/a.js", 14)
	register(r, "/src/b.js", 12)

	tests := []struct {
		name string
		file string
		line int
		want Script
		ok   bool
	}{
		{"before any function", "/src/a.js", 3, top, true},
		{"on a base line", "/src/a.js", 10, fn, true},
		{"between base lines", "/src/a.js", 12, fn, true},
		{"innermost", "/src/a.js", 40, inner, true},
		{"other file ignored", "/src/c.js", 12, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := r.floor(tt.file, tt.line)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Same(t, tt.want, got)
			}
		})
	}
}

func TestScriptRegistryFloorNoEnclosingScript(t *testing.T) {
	r := newScriptRegistry()
	register(r, "/src/a.js", 5)

	_, ok := r.floor("/src/a.js", 4)
	assert.False(t, ok)
}

func TestScriptRegistryReload(t *testing.T) {
	r := newScriptRegistry()
	key := ScriptKey{Filename: "/src/a.js", BaseLine: 1}

	first := register(r, "/src/a.js", 1)
	second := register(r, "/src/a.js", 1)
	assert.Equal(t, []ScriptKey{key}, r.keys(), "one live record per key")

	got, ok := r.floor("/src/a.js", 3)
	assert.True(t, ok)
	assert.Same(t, second, got, "later load wins")

	assert.False(t, r.remove(key, first), "destroying the replaced script keeps its successor")
	got, ok = r.floor("/src/a.js", 1)
	assert.True(t, ok)
	assert.Same(t, second, got)

	assert.True(t, r.remove(key, second))
	assert.Empty(t, r.keys())
	_, ok = r.floor("/src/a.js", 3)
	assert.False(t, ok)
}

func TestScriptRegistryKeysInLoadOrder(t *testing.T) {
	r := newScriptRegistry()
	register(r, "/src/b.js", 0)
	register(r, "/src/a.js", 0)
	register(r, "/src/a.js", 7)

	assert.Equal(t, []ScriptKey{
		{Filename: "/src/b.js", BaseLine: 0},
		{Filename: "/src/a.js", BaseLine: 0},
		{Filename: "/src/a.js", BaseLine: 7},
	}, r.keys())
}
