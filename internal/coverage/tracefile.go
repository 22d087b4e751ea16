package coverage

import (
	"bytes"
	"fmt"
	"io"
	"os"
)

// WriteRecord writes the LCOV record for one source file to w.
func WriteRecord(w io.Writer, path string, stats LineStats) error {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "SF:%s\n", path)
	buf.WriteString("FNF:0\nFNH:0\nBRF:0\nBRH:0\n")

	found, hit := 0, 0
	stats.Each(func(line, hits int) {
		fmt.Fprintf(&buf, "DA:%d,%d\n", line, hits)
		found++
		if hits > 0 {
			hit++
		}
	})

	fmt.Fprintf(&buf, "LH:%d\n", hit)
	fmt.Fprintf(&buf, "LF:%d\n", found)
	buf.WriteString("end_of_record\n")

	_, err := w.Write(buf.Bytes())
	return err
}

// TracefileWriter renders coverage tables as LCOV tracefiles, either all
// into one file or into one <source>.info file per source.
type TracefileWriter struct {
	path    string
	file    *os.File
	written []string
}

// SingleFile opens path, truncating it, for all records of the run. The file
// stays open until Close.
func SingleFile(path string) (*TracefileWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("opening tracefile: %w", err)
	}
	return &TracefileWriter{path: path, file: f}, nil
}

// PerFile returns a writer that writes each record next to its source.
func PerFile() *TracefileWriter {
	return &TracefileWriter{}
}

// NewTracefileWriter picks the output mode: an empty path writes per file,
// anything else writes every record to that one file.
func NewTracefileWriter(path string) (*TracefileWriter, error) {
	if path == "" {
		return PerFile(), nil
	}
	return SingleFile(path)
}

// WriteFile writes the record for one source file.
func (w *TracefileWriter) WriteFile(source string, stats LineStats) error {
	if w.file != nil {
		if err := WriteRecord(w.file, source, stats); err != nil {
			return fmt.Errorf("writing %s: %w", w.path, err)
		}
		w.note(w.path)
		return nil
	}

	out := source + ".info"
	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("opening tracefile: %w", err)
	}
	if err := WriteRecord(f, source, stats); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", out, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", out, err)
	}
	w.note(out)
	return nil
}

// Write writes a record for every file c has seen, in first-seen order.
func (w *TracefileWriter) Write(c *Coverage) error {
	for _, file := range c.files {
		if err := w.WriteFile(file, c.tables[file].stats); err != nil {
			return err
		}
	}
	return nil
}

// Written returns the tracefiles written so far.
func (w *TracefileWriter) Written() []string {
	return append([]string(nil), w.written...)
}

// Close closes the single output file, if any.
func (w *TracefileWriter) Close() error {
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}

func (w *TracefileWriter) note(path string) {
	for _, p := range w.written {
		if p == path {
			return
		}
	}
	w.written = append(w.written, path)
}
