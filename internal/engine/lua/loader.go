package lua

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	glua "github.com/yuin/gopher-lua"
)

// installLoader replaces the package.path searcher with one that loads
// modules through the instrumenting compiler, and puts the search path in
// front of package.path.
func (e *Engine) installLoader() error {
	pkg, ok := e.L.GetGlobal("package").(*glua.LTable)
	if !ok {
		return errors.New("package library not open")
	}
	loaders, ok := e.L.GetField(pkg, "loaders").(*glua.LTable)
	if !ok {
		return errors.New("package.loaders missing")
	}

	var patterns []string
	for _, dir := range e.searchPath {
		patterns = append(patterns,
			filepath.Join(dir, "?.lua"),
			filepath.Join(dir, "?", "init.lua"))
	}
	if path, ok := e.L.GetField(pkg, "path").(glua.LString); ok && path != "" {
		patterns = append(patterns, string(path))
	}
	e.L.SetField(pkg, "path", glua.LString(strings.Join(patterns, ";")))

	e.L.RawSetInt(loaders, 2, e.L.NewFunction(e.luaLoader))
	return nil
}

// luaLoader is the require searcher for Lua files. It returns the loaded
// chunk, or a message listing the paths it tried.
func (e *Engine) luaLoader(L *glua.LState) int {
	name := L.CheckString(1)
	path, tried := e.findModule(L, name)
	if path == "" {
		L.Push(glua.LString(tried))
		return 1
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		L.RaiseError("%s", err.Error())
	}
	src, err := os.ReadFile(abs)
	if err != nil {
		L.RaiseError("%s", err.Error())
	}
	fn, err := e.load(abs, src, true)
	if err != nil {
		L.RaiseError("%s", err.Error())
	}
	L.Push(fn)
	return 1
}

func (e *Engine) findModule(L *glua.LState, name string) (string, string) {
	file := strings.ReplaceAll(name, ".", string(os.PathSeparator))
	path, _ := L.GetField(L.GetGlobal("package"), "path").(glua.LString)

	var tried []string
	for _, pattern := range strings.Split(string(path), ";") {
		if pattern == "" {
			continue
		}
		candidate := strings.ReplaceAll(pattern, "?", file)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, ""
		}
		tried = append(tried, "\n\tno file '"+candidate+"'")
	}
	return "", strings.Join(tried, "")
}

// installBase replaces the base library functions that compile code, so
// every chunk a program evaluates is instrumented and announced.
func (e *Engine) installBase() {
	e.L.SetGlobal("dofile", e.L.NewFunction(e.luaDoFile))
	e.L.SetGlobal("loadfile", e.L.NewFunction(e.luaLoadFile))
	e.L.SetGlobal("loadstring", e.L.NewFunction(e.luaLoadString))
	e.L.SetGlobal("load", e.L.NewFunction(e.luaLoad))
}

// loadFile loads the file at path through the instrumenting compiler.
func (e *Engine) loadFile(path string) (*glua.LFunction, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	src, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("cannot open %s", path)
	}
	return e.load(abs, src, true)
}

// luaDoFile runs a file and returns its results. Load errors are raised.
func (e *Engine) luaDoFile(L *glua.LState) int {
	path := L.CheckString(1)
	top := L.GetTop()
	fn, err := e.loadFile(path)
	if err != nil {
		L.RaiseError("%s", err.Error())
	}
	L.Push(fn)
	L.Call(0, glua.MultRet)
	return L.GetTop() - top
}

// luaLoadFile returns the compiled file, or nil and a message.
func (e *Engine) luaLoadFile(L *glua.LState) int {
	fn, err := e.loadFile(L.CheckString(1))
	return pushLoaded(L, fn, err)
}

// luaLoadString compiles a string chunk. Chunks loaded from strings never
// replace each other, since many share a name.
func (e *Engine) luaLoadString(L *glua.LState) int {
	src := L.CheckString(1)
	name := L.OptString(2, "<string>")
	fn, err := e.load(name, []byte(src), false)
	return pushLoaded(L, fn, err)
}

// luaLoad compiles the pieces returned by a reader function.
func (e *Engine) luaLoad(L *glua.LState) int {
	reader := L.CheckFunction(1)
	name := L.OptString(2, "=(load)")
	top := L.GetTop()

	var buf strings.Builder
	for {
		L.SetTop(top)
		L.Push(reader)
		L.Call(0, 1)
		piece := L.Get(-1)
		if piece == glua.LNil {
			break
		}
		if !glua.LVCanConvToString(piece) {
			L.SetTop(top)
			L.Push(glua.LNil)
			L.Push(glua.LString("reader function must return a string"))
			return 2
		}
		if piece.String() == "" {
			break
		}
		buf.WriteString(piece.String())
	}
	L.SetTop(top)

	fn, err := e.load(name, []byte(buf.String()), false)
	return pushLoaded(L, fn, err)
}

func pushLoaded(L *glua.LState, fn *glua.LFunction, err error) int {
	if err != nil {
		L.Push(glua.LNil)
		L.Push(glua.LString(err.Error()))
		return 2
	}
	L.Push(fn)
	return 1
}
