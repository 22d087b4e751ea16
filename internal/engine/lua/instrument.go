package lua

import (
	"sort"
	"strconv"

	glua "github.com/yuin/gopher-lua"
	"github.com/yuin/gopher-lua/ast"
)

// Names of the upvalues instrumented chunks call into.
const (
	stepFunc  = "__stepcov_step"
	enterFunc = "__stepcov_enter"
)

// funcInfo is what instrumentation learns about one function body.
type funcInfo struct {
	name     string
	line     int
	lastLine int
	lines    []int
}

func (fi *funcInfo) addLine(line int) {
	i := sort.SearchInts(fi.lines, line)
	if i < len(fi.lines) && fi.lines[i] == line {
		return
	}
	fi.lines = append(fi.lines, 0)
	copy(fi.lines[i+1:], fi.lines[i:])
	fi.lines[i] = line
}

type spanKey struct {
	line, lastLine int
}

// instrumenter rewrites a chunk so that every statement is preceded by a
// step call carrying its line, and every function body starts with an
// enter call.
type instrumenter struct {
	funcs map[spanKey][]*funcInfo
}

// instrument rewrites chunk and wraps it as
//
//	local __stepcov_step, __stepcov_enter
//	return function(...) <chunk> end
//
// The inner function is the program's main chunk. The engine binds the two
// locals as its upvalues, so the hooks reach every nested function whatever
// environment the program installs. It returns the info of the main chunk
// plus an index of every nested function by source span.
func instrument(chunk []ast.Stmt) ([]ast.Stmt, *funcInfo, *instrumenter) {
	in := &instrumenter{funcs: make(map[spanKey][]*funcInfo)}
	main := &funcInfo{}
	body := in.block(chunk, main)

	line, last := 1, 0
	if len(chunk) > 0 {
		line = chunk[0].Line()
		end := chunk[len(chunk)-1]
		last = end.LastLine()
		if last == 0 {
			last = end.Line()
		}
		last++
	}
	body = append([]ast.Stmt{hookCall(enterFunc, line)}, body...)

	fn := &ast.FunctionExpr{
		ParList: &ast.ParList{HasVargs: true, Names: []string{}},
		Stmts:   body,
	}
	fn.SetLastLine(last)

	decl := &ast.LocalAssignStmt{Names: []string{stepFunc, enterFunc}, Exprs: []ast.Expr{}}
	decl.SetLine(line)
	ret := &ast.ReturnStmt{Exprs: []ast.Expr{fn}}
	ret.SetLine(line)
	return []ast.Stmt{decl, ret}, main, in
}

// mainProto returns the prototype of the wrapped main chunk.
func mainProto(proto *glua.FunctionProto) *glua.FunctionProto {
	return proto.FunctionPrototypes[0]
}

// take returns the next function recorded for span, in source order.
func (in *instrumenter) take(line, lastLine int) *funcInfo {
	key := spanKey{line, lastLine}
	list := in.funcs[key]
	if len(list) == 0 {
		return &funcInfo{line: line, lastLine: lastLine}
	}
	in.funcs[key] = list[1:]
	return list[0]
}

func (in *instrumenter) block(stmts []ast.Stmt, fi *funcInfo) []ast.Stmt {
	out := make([]ast.Stmt, 0, 2*len(stmts))
	for _, st := range stmts {
		in.stmt(st, fi)
		if _, ok := st.(*ast.LabelStmt); !ok {
			out = append(out, hookCall(stepFunc, st.Line(), number(st.Line())))
			fi.addLine(st.Line())
		}
		out = append(out, st)
	}
	return out
}

func (in *instrumenter) stmt(st ast.Stmt, fi *funcInfo) {
	switch st := st.(type) {
	case *ast.AssignStmt:
		for _, e := range st.Lhs {
			in.expr(e, "")
		}
		for i, e := range st.Rhs {
			name := ""
			if i < len(st.Lhs) {
				name = exprName(st.Lhs[i])
			}
			in.expr(e, name)
		}
	case *ast.LocalAssignStmt:
		for i, e := range st.Exprs {
			name := ""
			if i < len(st.Names) {
				name = st.Names[i]
			}
			in.expr(e, name)
		}
	case *ast.FuncCallStmt:
		in.expr(st.Expr, "")
	case *ast.DoBlockStmt:
		st.Stmts = in.block(st.Stmts, fi)
	case *ast.WhileStmt:
		in.expr(st.Condition, "")
		st.Stmts = in.block(st.Stmts, fi)
	case *ast.RepeatStmt:
		st.Stmts = in.block(st.Stmts, fi)
		in.expr(st.Condition, "")
	case *ast.IfStmt:
		in.expr(st.Condition, "")
		st.Then = in.block(st.Then, fi)
		st.Else = in.block(st.Else, fi)
	case *ast.NumberForStmt:
		in.expr(st.Init, "")
		in.expr(st.Limit, "")
		in.expr(st.Step, "")
		st.Stmts = in.block(st.Stmts, fi)
	case *ast.GenericForStmt:
		for _, e := range st.Exprs {
			in.expr(e, "")
		}
		st.Stmts = in.block(st.Stmts, fi)
	case *ast.FuncDefStmt:
		in.function(st.Func, funcName(st.Name))
	case *ast.ReturnStmt:
		for _, e := range st.Exprs {
			in.expr(e, "")
		}
	}
}

func (in *instrumenter) expr(e ast.Expr, name string) {
	switch e := e.(type) {
	case nil:
	case *ast.FunctionExpr:
		in.function(e, name)
	case *ast.AttrGetExpr:
		in.expr(e.Object, "")
		in.expr(e.Key, "")
	case *ast.TableExpr:
		for _, f := range e.Fields {
			key := ""
			if s, ok := f.Key.(*ast.StringExpr); ok {
				key = s.Value
			}
			in.expr(f.Key, "")
			in.expr(f.Value, key)
		}
	case *ast.FuncCallExpr:
		in.expr(e.Func, "")
		in.expr(e.Receiver, "")
		for _, a := range e.Args {
			in.expr(a, "")
		}
	case *ast.LogicalOpExpr:
		in.expr(e.Lhs, "")
		in.expr(e.Rhs, "")
	case *ast.RelationalOpExpr:
		in.expr(e.Lhs, "")
		in.expr(e.Rhs, "")
	case *ast.StringConcatOpExpr:
		in.expr(e.Lhs, "")
		in.expr(e.Rhs, "")
	case *ast.ArithmeticOpExpr:
		in.expr(e.Lhs, "")
		in.expr(e.Rhs, "")
	case *ast.UnaryMinusOpExpr:
		in.expr(e.Expr, "")
	case *ast.UnaryNotOpExpr:
		in.expr(e.Expr, "")
	case *ast.UnaryLenOpExpr:
		in.expr(e.Expr, "")
	}
}

func (in *instrumenter) function(fe *ast.FunctionExpr, name string) {
	fi := &funcInfo{name: name, line: fe.Line(), lastLine: fe.LastLine()}
	key := spanKey{fi.line, fi.lastLine}
	in.funcs[key] = append(in.funcs[key], fi)

	body := in.block(fe.Stmts, fi)
	fe.Stmts = append([]ast.Stmt{hookCall(enterFunc, fe.Line())}, body...)
}

// hookCall builds the statement `fn(args...)` positioned at line.
func hookCall(fn string, line int, args ...ast.Expr) ast.Stmt {
	ident := &ast.IdentExpr{Value: fn}
	ident.SetLine(line)

	call := &ast.FuncCallExpr{Func: ident, Args: args}
	call.SetLine(line)
	call.SetLastLine(line)

	st := &ast.FuncCallStmt{Expr: call}
	st.SetLine(line)
	st.SetLastLine(line)
	return st
}

func number(n int) ast.Expr {
	e := &ast.NumberExpr{Value: strconv.Itoa(n)}
	e.SetLine(n)
	return e
}

// exprName renders a = function, a.b = function and similar targets.
func exprName(e ast.Expr) string {
	switch e := e.(type) {
	case *ast.IdentExpr:
		return e.Value
	case *ast.AttrGetExpr:
		obj := exprName(e.Object)
		key, ok := e.Key.(*ast.StringExpr)
		if obj == "" || !ok {
			return ""
		}
		return obj + "." + key.Value
	}
	return ""
}

func funcName(n *ast.FuncName) string {
	if n == nil {
		return ""
	}
	if n.Func != nil {
		return exprName(n.Func)
	}
	recv := exprName(n.Receiver)
	if recv == "" {
		return n.Method
	}
	return recv + ":" + n.Method
}
