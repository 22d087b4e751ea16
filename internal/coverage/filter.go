package coverage

import (
	"os"
	"path/filepath"
	"strings"
)

// Filter decides which source files are covered.
type Filter struct {
	// Include, when non-empty, limits coverage to paths containing one of
	// its substrings.
	Include []string
	// Exclude removes paths containing any of its substrings.
	Exclude []string
	// Installed lists directories whose scripts are never covered.
	Installed []string
}

// NewFilter returns a filter for include and exclude that also skips scripts
// installed under $XDG_DATA_DIRS.
func NewFilter(include, exclude []string) Filter {
	return Filter{
		Include:   include,
		Exclude:   exclude,
		Installed: filepath.SplitList(os.Getenv("XDG_DATA_DIRS")),
	}
}

// Skip reports whether path is excluded from coverage.
func (f Filter) Skip(path string) bool {
	for _, dir := range f.Installed {
		if dir != "" && strings.HasPrefix(path, dir) {
			return true
		}
	}
	if containsAny(path, f.Exclude) {
		return true
	}
	if len(f.Include) > 0 && !containsAny(path, f.Include) {
		return true
	}
	return false
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if sub != "" && strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
