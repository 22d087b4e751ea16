package lua

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	glua "github.com/yuin/gopher-lua"
	"github.com/yuin/gopher-lua/ast"
	"github.com/yuin/gopher-lua/parse"
)

func parseChunk(t *testing.T, src string) []ast.Stmt {
	t.Helper()
	chunk, err := parse.Parse(strings.NewReader(src), "test.lua")
	require.NoError(t, err)
	return chunk
}

func TestInstrumentRecordsStatementLines(t *testing.T) {
	chunk := parseChunk(t, `local t = {}
for i = 1, 3 do
  if i > 1 then
    t[i] = i
  else
    t[i] = 0
  end
end
while false do
  break
end
::done::
return t
`)
	out, main, _ := instrument(chunk)

	assert.Equal(t, []int{1, 2, 3, 4, 6, 9, 10, 13}, main.lines)
	require.Len(t, out, 2)

	decl, ok := out[0].(*ast.LocalAssignStmt)
	require.True(t, ok)
	assert.Equal(t, []string{stepFunc, enterFunc}, decl.Names)

	ret, ok := out[1].(*ast.ReturnStmt)
	require.True(t, ok)
	body := ret.Exprs[0].(*ast.FunctionExpr)
	assert.True(t, body.ParList.HasVargs)
	assert.Greater(t, len(body.Stmts), len(chunk))

	first, ok := body.Stmts[0].(*ast.FuncCallStmt)
	require.True(t, ok)
	assert.Equal(t, enterFunc, first.Expr.(*ast.FuncCallExpr).Func.(*ast.IdentExpr).Value)
}

func TestHooksAreUpvalues(t *testing.T) {
	chunk, _, _ := instrument(parseChunk(t, "local function f()\n  return 1\nend\nf()\n"))
	proto, err := glua.Compile(chunk, "test.lua")
	require.NoError(t, err)

	main := mainProto(proto)
	assert.Equal(t, 0, main.LineDefined)
	assert.ElementsMatch(t, []string{stepFunc, enterFunc}, main.DbgUpvalues)
	require.Len(t, main.FunctionPrototypes, 1)
	assert.ElementsMatch(t, []string{stepFunc, enterFunc}, main.FunctionPrototypes[0].DbgUpvalues)
}

func TestInstrumentNamesFunctions(t *testing.T) {
	chunk := parseChunk(t, `local function a() end
function b.c.d() end
function e:f() end
g = function() end
local h = { i = function() end }
call(function() end)
`)
	_, _, in := instrument(chunk)

	names := map[int]string{}
	for key, list := range in.funcs {
		for _, fi := range list {
			names[key.line] = fi.name
		}
	}
	assert.Equal(t, map[int]string{
		1: "a",
		2: "b.c.d",
		3: "e:f",
		4: "g",
		5: "i",
		6: "",
	}, names)
}

func TestScriptsMatchPrototypes(t *testing.T) {
	src := "local function outer()\n  local function inner()\n    return 1\n  end\n  return inner()\nend\nouter()\n"
	chunk, main, in := instrument(parseChunk(t, src))
	proto, err := glua.Compile(chunk, "test.lua")
	require.NoError(t, err)

	list := scripts("test.lua", mainProto(proto), main, in)
	require.Len(t, list, 3)

	assert.Equal(t, 0, list[0].BaseLine())
	assert.Equal(t, []int{1, 7}, list[0].Lines())

	assert.Equal(t, 1, list[1].BaseLine())
	assert.Equal(t, "outer", list[1].Name())
	assert.Equal(t, []int{2, 5}, list[1].Lines())
	assert.Equal(t, 6, list[1].LastLine())

	assert.Equal(t, 2, list[2].BaseLine())
	assert.Equal(t, "inner", list[2].Name())
	assert.Equal(t, []int{3}, list[2].Lines())
}

func TestScriptSnap(t *testing.T) {
	s := &Script{lines: []int{2, 5, 9}}

	tests := []struct {
		line int
		want int
		ok   bool
	}{
		{1, 2, true},
		{2, 2, true},
		{3, 5, true},
		{9, 9, true},
		{10, 0, false},
	}
	for _, tt := range tests {
		got, ok := s.snap(tt.line)
		assert.Equal(t, tt.ok, ok, "line %d", tt.line)
		assert.Equal(t, tt.want, got, "line %d", tt.line)
	}
	assert.True(t, s.hasLine(5))
	assert.False(t, s.hasLine(6))
}
