package coverage

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/dshills/stepcov/internal/interrupt"
)

// Registrar is the part of interrupt.Register that coverage subscribes to.
type Registrar interface {
	ConnectNewScript(fn interrupt.ScriptFunc) *interrupt.Connection
	ConnectSingleStep(fn interrupt.StepFunc) *interrupt.Connection
}

// SourceReader returns the text of a source file.
type SourceReader func(path string) ([]byte, error)

// Option configures a Coverage.
type Option func(*Coverage)

// WithFilter sets the file filter. The default covers every file.
func WithFilter(f Filter) Option {
	return func(c *Coverage) {
		c.filter = f
	}
}

// WithSourceReader replaces os.ReadFile as the source of file text.
func WithSourceReader(r SourceReader) Option {
	return func(c *Coverage) {
		if r != nil {
			c.read = r
		}
	}
}

// WithSyntax fixes the lexical syntax for every file instead of choosing it
// by extension.
func WithSyntax(sx Syntax) Option {
	return func(c *Coverage) {
		c.syntax = &sx
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Coverage) {
		if l != nil {
			c.logger = l
		}
	}
}

type fileStats struct {
	stats  LineStats
	source *source
	syntax Syntax
}

// Coverage collects per-line execution counts for every file whose scripts
// the engine loads while it is connected.
type Coverage struct {
	filter Filter
	read   SourceReader
	syntax *Syntax
	logger *zap.Logger

	files   []string
	tables  map[string]*fileStats
	skipped map[string]bool // unreadable, warned once

	scriptConn *interrupt.Connection
	stepConn   *interrupt.Connection
}

// New subscribes a collector to reg's new-script and single-step events.
func New(reg Registrar, opts ...Option) *Coverage {
	c := &Coverage{
		read:    os.ReadFile,
		logger:  zap.NewNop(),
		tables:  make(map[string]*fileStats),
		skipped: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.scriptConn = reg.ConnectNewScript(c.onNewScript)
	c.stepConn = reg.ConnectSingleStep(c.onSingleStep)
	return c
}

// Close disconnects from the register. The collected tables remain readable.
func (c *Coverage) Close() {
	if c.stepConn != nil {
		c.stepConn.Dispose()
		c.stepConn = nil
	}
	if c.scriptConn != nil {
		c.scriptConn.Dispose()
		c.scriptConn = nil
	}
}

// Files returns the covered files in the order they were first seen.
func (c *Coverage) Files() []string {
	return append([]string(nil), c.files...)
}

// Stats returns a copy of the table for file.
func (c *Coverage) Stats(file string) (LineStats, bool) {
	fs, ok := c.tables[file]
	if !ok {
		return nil, false
	}
	return fs.stats.Clone(), true
}

func (c *Coverage) onNewScript(info *interrupt.ScriptInfo) {
	if c.filter.Skip(info.Filename) || c.skipped[info.Filename] {
		return
	}

	fs, err := c.lookupOrCreate(info.Filename)
	if err != nil {
		c.skipped[info.Filename] = true
		c.logger.Warn("skipping coverage for file",
			zap.String("file", info.Filename),
			zap.Error(err))
		return
	}

	classify(fs.stats, fs.source, fs.syntax, info.ExecutableLines())
}

func (c *Coverage) lookupOrCreate(path string) (*fileStats, error) {
	if fs, ok := c.tables[path]; ok {
		return fs, nil
	}

	text, err := c.read(path)
	if err != nil {
		return nil, unreadable(path, err)
	}

	sx := SyntaxForPath(path)
	if c.syntax != nil {
		sx = *c.syntax
	}
	fs := &fileStats{
		stats:  newLineStats(countLines(text)),
		source: newSource(text, sx),
		syntax: sx,
	}
	c.tables[path] = fs
	c.files = append(c.files, path)

	c.logger.Debug("tracking file",
		zap.String("file", path),
		zap.Int("lines", fs.stats.Lines()),
		zap.String("syntax", sx.Name))
	return fs, nil
}

func (c *Coverage) onSingleStep(info *interrupt.InterruptInfo) {
	fs, ok := c.tables[info.Filename]
	if !ok {
		return
	}
	if !fs.stats.InRange(info.Line) {
		panic(&interrupt.InvariantError{
			Op:      "Coverage.onSingleStep",
			Message: fmt.Sprintf("%s:%d is outside the file's %d lines", info.Filename, info.Line, fs.stats.Lines()),
		})
	}
	if fs.stats[info.Line] == Unknown {
		fs.stats[info.Line] = Unhit
	}
	fs.stats[info.Line]++
}
