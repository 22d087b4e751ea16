package coverage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterSkip(t *testing.T) {
	f := Filter{
		Include:   []string{"/src/"},
		Exclude:   []string{"/src/vendor"},
		Installed: []string{"/usr/share", ""},
	}

	tests := []struct {
		path string
		skip bool
	}{
		{"/src/a.lua", false},
		{"/src/vendor/x.lua", true},
		{"/usr/share/gjs/src/lib.js", true},
		{"/home/me/other.lua", true},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.skip, f.Skip(tt.path))
		})
	}
}

func TestFilterZeroValueCoversEverything(t *testing.T) {
	assert.False(t, Filter{}.Skip("/anything.js"))
}

func TestNewFilterReadsInstalledDirs(t *testing.T) {
	t.Setenv("XDG_DATA_DIRS", "/usr/local/share:/usr/share")

	f := NewFilter(nil, nil)
	assert.Equal(t, []string{"/usr/local/share", "/usr/share"}, f.Installed)
	assert.True(t, f.Skip("/usr/share/app/main.js"))
	assert.False(t, f.Skip("/home/me/main.js"))
}

func TestNewFilterEmptyEnvironment(t *testing.T) {
	t.Setenv("XDG_DATA_DIRS", "")

	f := NewFilter(nil, nil)
	assert.False(t, f.Skip("/home/me/main.js"))
}
