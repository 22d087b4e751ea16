package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/dshills/stepcov/internal/logging"
)

// EnvConfig names the environment variable holding the default config path.
const EnvConfig = "STEPCOV_CONFIG"

// Config holds every setting of a coverage run.
type Config struct {
	// Include limits coverage to files whose path contains one of these.
	Include []string `toml:"include" yaml:"include"`
	// Exclude removes files whose path contains one of these.
	Exclude []string `toml:"exclude" yaml:"exclude"`
	// SearchPath lists directories searched for required modules.
	SearchPath []string `toml:"search_path" yaml:"search_path"`
	// Output is the single tracefile path. Empty writes <source>.info files.
	Output string `toml:"output" yaml:"output"`
	// Summary is an optional JSON summary path.
	Summary string `toml:"summary" yaml:"summary"`
	// LogLevel is debug, info, warn or error.
	LogLevel string `toml:"log_level" yaml:"log_level"`
	// Syntax forces the lexical syntax; empty picks it per file.
	Syntax string `toml:"syntax" yaml:"syntax"`
	// Args are passed to the program.
	Args []string `toml:"args" yaml:"args"`
	// DebounceMS is the watch-mode quiet period in milliseconds.
	DebounceMS int `toml:"debounce_ms" yaml:"debounce_ms"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		LogLevel:   "warn",
		DebounceMS: 200,
	}
}

// Debounce returns the watch-mode quiet period.
func (c Config) Debounce() time.Duration {
	return time.Duration(c.DebounceMS) * time.Millisecond
}

// Load reads the config file at path over the defaults. An empty path falls
// back to $STEPCOV_CONFIG. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		path = os.Getenv(EnvConfig)
	}
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config file %s: %w", path, err)
	}

	if err := decode(path, data, &cfg); err != nil {
		return Default(), err
	}
	return cfg, nil
}

func decode(path string, data []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if err := toml.Unmarshal(data, cfg); err != nil {
			pe := &ParseError{Path: path, Message: err.Error(), Err: err}
			var de *toml.DecodeError
			if errors.As(err, &de) {
				pe.Line, _ = de.Position()
			}
			return pe
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return &ParseError{Path: path, Message: err.Error(), Err: err}
		}
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
	return nil
}

// Merge overlays the settings of o that are set. Lists are appended.
func (c *Config) Merge(o Config) {
	c.Include = append(c.Include, o.Include...)
	c.Exclude = append(c.Exclude, o.Exclude...)
	c.SearchPath = append(c.SearchPath, o.SearchPath...)
	if o.Output != "" {
		c.Output = o.Output
	}
	if o.Summary != "" {
		c.Summary = o.Summary
	}
	if o.LogLevel != "" {
		c.LogLevel = o.LogLevel
	}
	if o.Syntax != "" {
		c.Syntax = o.Syntax
	}
	if len(o.Args) > 0 {
		c.Args = o.Args
	}
	if o.DebounceMS > 0 {
		c.DebounceMS = o.DebounceMS
	}
}

var syntaxes = []string{"", "auto", "js", "javascript", "lua"}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if _, err := logging.ParseLogLevel(c.LogLevel); err != nil {
		return &ValidationError{Field: "log_level", Value: c.LogLevel, Message: err.Error()}
	}

	known := false
	for _, s := range syntaxes {
		if strings.EqualFold(c.Syntax, s) {
			known = true
			break
		}
	}
	if !known {
		return &ValidationError{Field: "syntax", Value: c.Syntax, Message: "expected js, lua or auto"}
	}

	if c.DebounceMS < 0 {
		return &ValidationError{Field: "debounce_ms", Value: c.DebounceMS, Message: "must not be negative"}
	}
	if c.Output != "" && c.Output == c.Summary {
		return &ValidationError{Field: "summary", Value: c.Summary, Message: "same path as output"}
	}
	return nil
}
