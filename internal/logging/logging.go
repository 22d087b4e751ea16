// Package logging builds the zap loggers used across stepcov.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogLevel represents the severity level of a log message.
type LogLevel int

const (
	// LogLevelDebug is for detailed debugging information.
	LogLevelDebug LogLevel = iota
	// LogLevelInfo is for general informational messages.
	LogLevelInfo
	// LogLevelWarn is for warning messages.
	LogLevelWarn
	// LogLevelError is for error messages.
	LogLevelError
)

// String returns the string representation of the log level.
func (l LogLevel) String() string {
	switch l {
	case LogLevelDebug:
		return "DEBUG"
	case LogLevelInfo:
		return "INFO"
	case LogLevelWarn:
		return "WARN"
	case LogLevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

func (l LogLevel) zap() zapcore.Level {
	switch l {
	case LogLevelDebug:
		return zapcore.DebugLevel
	case LogLevelInfo:
		return zapcore.InfoLevel
	case LogLevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.WarnLevel
	}
}

// ParseLogLevel parses a level name. The empty string means warn.
func ParseLogLevel(s string) (LogLevel, error) {
	switch strings.ToLower(s) {
	case "debug":
		return LogLevelDebug, nil
	case "info":
		return LogLevelInfo, nil
	case "", "warn", "warning":
		return LogLevelWarn, nil
	case "error":
		return LogLevelError, nil
	default:
		return LogLevelWarn, fmt.Errorf("unknown log level %q", s)
	}
}

// Config configures a logger.
type Config struct {
	// Level is the minimum log level to output.
	Level LogLevel
	// Output is where logs are written. Defaults to os.Stderr.
	Output io.Writer
	// Prefix names the logger.
	Prefix string
}

// DefaultConfig returns the default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:  LogLevelWarn,
		Output: os.Stderr,
		Prefix: "stepcov",
	}
}

// New creates a console logger writing to cfg.Output.
func New(cfg Config) *zap.Logger {
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}
	enc := zap.NewDevelopmentEncoderConfig()
	enc.TimeKey = ""
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(enc),
		zapcore.Lock(zapcore.AddSync(cfg.Output)),
		cfg.Level.zap(),
	)
	l := zap.New(core)
	if cfg.Prefix != "" {
		l = l.Named(cfg.Prefix)
	}
	return l
}

// WithComponent returns a child logger with the component field set.
func WithComponent(l *zap.Logger, component string) *zap.Logger {
	return l.With(zap.String("component", component))
}

var (
	globalMu     sync.RWMutex
	globalLogger = zap.NewNop()
)

// Get returns the process-wide logger. It discards everything until Set.
func Get() *zap.Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalLogger
}

// Set replaces the process-wide logger. A nil logger restores the no-op one.
func Set(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	globalMu.Lock()
	globalLogger = l
	globalMu.Unlock()
}
