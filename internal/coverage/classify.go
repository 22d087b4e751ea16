package coverage

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Syntax describes the lexical conventions used to tell countable statements
// from lines the engine instruments but a reader would not count.
type Syntax struct {
	Name        string
	LineComment string
	BlockOpen   string
	BlockClose  string
	// Quotes lists the characters that delimit string literals.
	Quotes string
	// LongBrackets enables Lua long brackets: [==[ strings ]==] and, after
	// the line comment marker, --[==[ comments ]==].
	LongBrackets bool
	// Noise lists characters stripped from the end of a line before it is
	// inspected.
	Noise string
	// Closers are words that, alone on a line, close a block.
	Closers []string
}

// JavaScriptSyntax classifies JavaScript sources.
var JavaScriptSyntax = Syntax{
	Name:        "javascript",
	LineComment: "//",
	BlockOpen:   "/*",
	BlockClose:  "*/",
	Quotes:      "\"'`",
	Noise:       ";])}",
}

// LuaSyntax classifies Lua sources.
var LuaSyntax = Syntax{
	Name:         "lua",
	LineComment:  "--",
	Quotes:       "\"'",
	LongBrackets: true,
	Noise:        ";])},",
	Closers:      []string{"end", "else", "do", "then"},
}

var syntaxes = map[string]Syntax{
	"javascript": JavaScriptSyntax,
	"js":         JavaScriptSyntax,
	"lua":        LuaSyntax,
}

// SyntaxByName returns the syntax registered under name.
func SyntaxByName(name string) (Syntax, error) {
	s, ok := syntaxes[strings.ToLower(name)]
	if !ok {
		return Syntax{}, fmt.Errorf("unknown syntax %q", name)
	}
	return s, nil
}

// SyntaxForPath picks a syntax from the file extension. Anything that is not
// Lua is treated as JavaScript.
func SyntaxForPath(path string) Syntax {
	if strings.EqualFold(filepath.Ext(path), ".lua") {
		return LuaSyntax
	}
	return JavaScriptSyntax
}

// source is the text of one covered file, split for classification.
type source struct {
	text   string
	code   string // text with every comment byte blanked, newlines kept
	starts []int  // byte offset of each line, index 0 is line 1
}

func newSource(text []byte, sx Syntax) *source {
	s := &source{text: string(text), starts: []int{0}}
	for i, c := range text {
		if c == '\n' {
			s.starts = append(s.starts, i+1)
		}
	}
	s.code = sx.stripComments(s.text)
	return s
}

// line returns the text of 1-based line n without its terminator.
func (s *source) line(n int) string {
	return s.slice(s.text, n)
}

// codeLine returns line n with comments blanked.
func (s *source) codeLine(n int) string {
	return s.slice(s.code, n)
}

func (s *source) slice(text string, n int) string {
	start := s.starts[n-1]
	end := len(text)
	if n < len(s.starts) {
		end = s.starts[n] - 1
	}
	return text[start:end]
}

// stripComments returns text with the bytes of every comment replaced by
// spaces. String literals are skipped so comment markers inside them do not
// count. Unterminated strings end at the line break, unless delimited by a
// backquote or a long bracket.
func (sx Syntax) stripComments(text string) string {
	out := []byte(text)
	blank := func(from, to int) {
		for j := from; j < to && j < len(out); j++ {
			if out[j] != '\n' {
				out[j] = ' '
			}
		}
	}

	for i := 0; i < len(text); {
		rest := text[i:]
		switch {
		case sx.BlockOpen != "" && strings.HasPrefix(rest, sx.BlockOpen):
			end := strings.Index(rest[len(sx.BlockOpen):], sx.BlockClose)
			n := len(rest)
			if end >= 0 {
				n = len(sx.BlockOpen) + end + len(sx.BlockClose)
			}
			blank(i, i+n)
			i += n

		case sx.LineComment != "" && strings.HasPrefix(rest, sx.LineComment):
			n := len(rest)
			if sx.LongBrackets {
				if m := longBracketEnd(rest[len(sx.LineComment):]); m >= 0 {
					n = len(sx.LineComment) + m
					blank(i, i+n)
					i += n
					break
				}
			}
			if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
				n = nl
			}
			blank(i, i+n)
			i += n

		case sx.LongBrackets && rest[0] == '[' && longBracketLevel(rest) >= 0:
			m := longBracketEnd(rest)
			if m < 0 {
				m = len(rest)
			}
			i += m

		case strings.IndexByte(sx.Quotes, rest[0]) >= 0:
			i += stringEnd(rest)

		default:
			i++
		}
	}
	return string(out)
}

// longBracketLevel returns n for an opening [=*n[ at the start of s, or -1.
func longBracketLevel(s string) int {
	if len(s) < 2 || s[0] != '[' {
		return -1
	}
	n := 0
	for 1+n < len(s) && s[1+n] == '=' {
		n++
	}
	if 1+n < len(s) && s[1+n] == '[' {
		return n
	}
	return -1
}

// longBracketEnd returns the length of the long bracket opened at the start
// of s including its closer, len(s) when it is never closed, or -1 when s
// does not start with one.
func longBracketEnd(s string) int {
	level := longBracketLevel(s)
	if level < 0 {
		return -1
	}
	open := level + 2
	closer := "]" + strings.Repeat("=", level) + "]"
	end := strings.Index(s[open:], closer)
	if end < 0 {
		return len(s)
	}
	return open + end + len(closer)
}

// stringEnd returns the length of the quoted literal at the start of s.
func stringEnd(s string) int {
	quote := s[0]
	for j := 1; j < len(s); j++ {
		switch s[j] {
		case '\\':
			j++
		case quote:
			return j + 1
		case '\n':
			if quote != '`' {
				return j
			}
		}
	}
	return len(s)
}

// isNoise reports whether line n of src should stay Unknown even though the
// engine reports code on it.
func (sx Syntax) isNoise(src *source, n int) bool {
	text := strings.TrimRight(src.codeLine(n), " \t\r"+sx.Noise)
	text = strings.TrimLeft(text, " \t")

	if text == "" {
		return true
	}
	for _, w := range sx.Closers {
		if text == w {
			return true
		}
	}
	return false
}

// classify marks each engine-reported line that is still Unknown and is not
// lexical noise as Unhit. Lines outside the table are ignored.
func classify(stats LineStats, src *source, sx Syntax, lines []int) {
	for _, n := range lines {
		if !stats.InRange(n) || stats[n] != Unknown {
			continue
		}
		if n > len(src.starts) || sx.isNoise(src, n) {
			continue
		}
		stats[n] = Unhit
	}
}
