// Package config loads stepcov settings.
//
// Settings come from three places, later ones overriding earlier ones:
//
//	┌─────────────────────────────┐
//	│  3. Command Line Flags      │  ← Highest priority (Merge)
//	├─────────────────────────────┤
//	│  2. Config File             │  ← -c FILE or $STEPCOV_CONFIG
//	├─────────────────────────────┤
//	│  1. Built-in Defaults       │  ← Lowest priority
//	└─────────────────────────────┘
//
// The file format follows the extension: .toml or .yaml/.yml.
//
//	include = ["/src/"]
//	exclude = ["/src/vendor"]
//	search_path = ["lib"]
//	output = "coverage.info"
//	log_level = "info"
package config
