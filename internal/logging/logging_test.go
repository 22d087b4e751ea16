package logging

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want LogLevel
		err  bool
	}{
		{"debug", LogLevelDebug, false},
		{"INFO", LogLevelInfo, false},
		{"warning", LogLevelWarn, false},
		{"", LogLevelWarn, false},
		{"error", LogLevelError, false},
		{"loud", LogLevelWarn, true},
	}
	for _, tt := range tests {
		got, err := ParseLogLevel(tt.in)
		if tt.err {
			assert.Error(t, err, tt.in)
		} else {
			assert.NoError(t, err, tt.in)
		}
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestLogLevelString(t *testing.T) {
	assert.Equal(t, "DEBUG", LogLevelDebug.String())
	assert.Equal(t, "ERROR", LogLevelError.String())
	assert.Equal(t, "UNKNOWN", LogLevel(42).String())
}

func TestNewFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: LogLevelWarn, Output: &buf, Prefix: "stepcov"})

	l.Info("quiet")
	l.Warn("loud", zap.String("file", "a.lua"))
	require.NoError(t, l.Sync())

	out := buf.String()
	assert.NotContains(t, out, "quiet")
	assert.Contains(t, out, "loud")
	assert.Contains(t, out, "stepcov")
	assert.Contains(t, out, "a.lua")
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer
	l := WithComponent(New(Config{Level: LogLevelDebug, Output: &buf}), "coverage")

	l.Debug("hello")
	assert.Contains(t, buf.String(), "component")
	assert.Contains(t, buf.String(), "coverage")
}

func TestGlobalLogger(t *testing.T) {
	t.Cleanup(func() { Set(nil) })

	assert.NotNil(t, Get())
	l := zap.NewExample()
	Set(l)
	assert.Same(t, l, Get())
	Set(nil)
	assert.NotSame(t, l, Get())
}
