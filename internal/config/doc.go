// Package config provides layered configuration loading, merging, and
// XDG path management for the crawler.
//
// # Configuration Loading
//
// Load merges configuration from multiple sources in priority order:
//
//  1. Built-in defaults
//  2. Global config (~/.config/codegraph/codegraph.json[c])
//  3. Project config (<directory>/.codegraph/codegraph.json[c])
//  4. Environment variables (CODEGRAPH_CONCURRENCY, CODEGRAPH_REQUEST_TIMEOUT_SEC,
//     CODEGRAPH_STALL_TIMEOUT_SEC, CODEGRAPH_WATCH)
//
// # Supported Formats
//
// Both .json and .jsonc (JSON with // and /* */ comments) are accepted.
//
// # Configuration Merging
//
// Scalars overwrite; IgnoreDirs/IgnoreGlobs append; Servers overrides merge
// key by key, letting a project override a single language's server
// command without redeclaring the rest.
//
// # Path Management
//
// Paths follows the XDG Base Directory Specification for codegraph's own
// data (never the crawled project's):
//   - Data: ~/.local/share/codegraph
//   - Config: ~/.config/codegraph
//   - Cache: ~/.cache/codegraph
//   - State: ~/.local/state/codegraph
package config
