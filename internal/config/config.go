// Package config loads crawler settings from a layered JSONC configuration,
// following the same load/merge/override pattern throughout this codebase.
package config

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"time"
)

// ServerOverride replaces the built-in command and/or globs for a language
// that already has a built-in LSP server entry; it cannot add a new
// language. File enumeration uses a fixed extension table, so Globs does
// not change which files are opened.
type ServerOverride struct {
	Command []string `json:"command,omitempty"`
	Globs   []string `json:"globs,omitempty"`
}

// Config holds the crawler's tunable settings (spec.md's C3/C4/C5
// parameters), layered from global config, project config, then env vars.
type Config struct {
	// Concurrency bounds the scheduler's fan-out (C4).
	Concurrency int `json:"concurrency,omitempty"`
	// RequestTimeoutSec bounds a single LSP request (C2).
	RequestTimeoutSec int `json:"requestTimeoutSec,omitempty"`
	// StallTimeoutSec is loaded and merged like the other fields, but the
	// harvester does not read it: stalls are detected from request
	// timeouts and transport errors (C5).
	StallTimeoutSec int `json:"stallTimeoutSec,omitempty"`
	// MaxStallRestarts bounds how many times the harvester will restart
	// a stalled client before giving up (C5).
	MaxStallRestarts int `json:"maxStallRestarts,omitempty"`
	// IgnoreDirs is loaded and merged, but enumeration does not read it;
	// only the fixed skip-directory list applies (C3).
	IgnoreDirs []string `json:"ignoreDirs,omitempty"`
	// IgnoreGlobs are additional doublestar glob patterns to exclude
	// during enumeration, layered on top of .gitignore (C3).
	IgnoreGlobs []string `json:"ignoreGlobs,omitempty"`
	// Servers overrides the built-in per-language server table (C1/C3).
	Servers map[string]ServerOverride `json:"servers,omitempty"`
	// Watch enables fsnotify-based on-disk sync after bootstrap (C3).
	Watch bool `json:"watch,omitempty"`
}

// RequestTimeout returns RequestTimeoutSec as a time.Duration, or zero if
// unset (callers should then fall back to their own default).
func (c *Config) RequestTimeout() time.Duration {
	if c.RequestTimeoutSec <= 0 {
		return 0
	}
	return time.Duration(c.RequestTimeoutSec) * time.Second
}

// StallTimeout returns StallTimeoutSec as a time.Duration, or zero if unset.
func (c *Config) StallTimeout() time.Duration {
	if c.StallTimeoutSec <= 0 {
		return 0
	}
	return time.Duration(c.StallTimeoutSec) * time.Second
}

// defaults returns the baked-in configuration used when nothing overrides it.
func defaults() *Config {
	return &Config{
		Concurrency:      8,
		RequestTimeoutSec: 30,
		StallTimeoutSec:   60,
		MaxStallRestarts:  3,
	}
}

// Load loads configuration from multiple sources, in priority order:
//  1. Global config (~/.config/codegraph/)
//  2. Project config (<directory>/.codegraph/)
//  3. Environment variables
func Load(directory string) (*Config, error) {
	cfg := defaults()

	globalPath := GetPaths().Config
	_ = loadConfigFile(filepath.Join(globalPath, "codegraph.json"), cfg)
	_ = loadConfigFile(filepath.Join(globalPath, "codegraph.jsonc"), cfg)

	if directory != "" {
		_ = loadConfigFile(filepath.Join(directory, ".codegraph", "codegraph.json"), cfg)
		_ = loadConfigFile(filepath.Join(directory, ".codegraph", "codegraph.jsonc"), cfg)
	}

	applyEnvOverrides(cfg)

	return cfg, nil
}

// loadConfigFile loads a single config file, tolerating a missing file.
func loadConfigFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err // file doesn't exist, skip
	}

	data = stripJSONComments(data)

	var fileConfig Config
	if err := json.Unmarshal(data, &fileConfig); err != nil {
		return err
	}

	mergeConfig(cfg, &fileConfig)
	return nil
}

// stripJSONComments removes // and /* */ comments from JSONC.
func stripJSONComments(data []byte) []byte {
	singleLine := regexp.MustCompile(`//.*$`)
	lines := bytes.Split(data, []byte("\n"))
	for i, line := range lines {
		lines[i] = singleLine.ReplaceAll(line, nil)
	}
	data = bytes.Join(lines, []byte("\n"))

	multiLine := regexp.MustCompile(`/\*[\s\S]*?\*/`)
	data = multiLine.ReplaceAll(data, nil)

	return data
}

// mergeConfig merges source into target, field by field.
func mergeConfig(target, source *Config) {
	if source.Concurrency != 0 {
		target.Concurrency = source.Concurrency
	}
	if source.RequestTimeoutSec != 0 {
		target.RequestTimeoutSec = source.RequestTimeoutSec
	}
	if source.StallTimeoutSec != 0 {
		target.StallTimeoutSec = source.StallTimeoutSec
	}
	if source.MaxStallRestarts != 0 {
		target.MaxStallRestarts = source.MaxStallRestarts
	}
	if source.IgnoreDirs != nil {
		target.IgnoreDirs = append(target.IgnoreDirs, source.IgnoreDirs...)
	}
	if source.IgnoreGlobs != nil {
		target.IgnoreGlobs = append(target.IgnoreGlobs, source.IgnoreGlobs...)
	}
	if source.Servers != nil {
		if target.Servers == nil {
			target.Servers = make(map[string]ServerOverride)
		}
		for lang, override := range source.Servers {
			target.Servers[lang] = override
		}
	}
	if source.Watch {
		target.Watch = true
	}
}

// applyEnvOverrides applies environment variable overrides, the final
// and highest-priority layer.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("CODEGRAPH_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Concurrency = n
		}
	}
	if v := os.Getenv("CODEGRAPH_REQUEST_TIMEOUT_SEC"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.RequestTimeoutSec = n
		}
	}
	if v := os.Getenv("CODEGRAPH_STALL_TIMEOUT_SEC"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.StallTimeoutSec = n
		}
	}
	if os.Getenv("CODEGRAPH_WATCH") == "1" {
		cfg.Watch = true
	}
}

// Save writes cfg as indented JSON to path, creating parent directories
// as needed.
func Save(cfg *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
