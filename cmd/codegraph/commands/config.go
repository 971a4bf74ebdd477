package commands

import (
	"codegraph/internal/config"
	"codegraph/internal/workspace"
)

// serverOverrideFor converts pcfg's per-language Servers entry, if any,
// into the lsp.ServerOverride Bootstrap expects. lang is resolved after
// workspace language auto-detection, so this is only useful once lang is
// known; commands that accept an explicit --lang flag may resolve it
// earlier.
func serverOverrideFor(pcfg *config.Config, lang string) *workspace.ServerOverride {
	if lang == "" {
		return nil
	}
	override, ok := pcfg.Servers[lang]
	if !ok {
		return nil
	}
	return &workspace.ServerOverride{Command: override.Command, Globs: override.Globs}
}
