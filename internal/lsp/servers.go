package lsp

// ServerSpec names the child process command, the LSP languageId, and the
// file globs a language owns (spec.md §4.3's table).
type ServerSpec struct {
	Lang       string
	Command    []string
	LanguageID string
	Globs      []string
}

// ServerOverride replaces a builtin ServerSpec's command and/or globs for
// one language (internal/config.ServerOverride, mirrored here so lsp does
// not need to import config).
type ServerOverride struct {
	Command []string
	Globs   []string
}

// resolveServerSpec looks up lang's builtin ServerSpec and applies override,
// if given: a non-empty Command or Globs replaces the builtin's.
func resolveServerSpec(lang string, override *ServerOverride) (ServerSpec, bool) {
	spec, ok := builtinServers()[lang]
	if !ok || override == nil {
		return spec, ok
	}
	if len(override.Command) > 0 {
		spec.Command = override.Command
	}
	if len(override.Globs) > 0 {
		spec.Globs = override.Globs
	}
	return spec, true
}

// builtinServers is the default lang -> ServerSpec table. Callers may
// override an existing entry via Config.Servers (internal/config), applied
// through resolveServerSpec; a language missing from the table cannot be
// added that way.
func builtinServers() map[string]ServerSpec {
	return map[string]ServerSpec{
		"py": {
			Lang:       "py",
			Command:    []string{"pyright-langserver", "--stdio"},
			LanguageID: "python",
			Globs:      []string{"*.py", "*.pyi"},
		},
		"ts": {
			Lang:       "ts",
			Command:    []string{"typescript-language-server", "--stdio"},
			LanguageID: "typescript",
			Globs:      []string{"*.ts", "*.tsx"},
		},
		"tsx": {
			Lang:       "tsx",
			Command:    []string{"typescript-language-server", "--stdio"},
			LanguageID: "typescript",
			Globs:      []string{"*.ts", "*.tsx"},
		},
		"c": {
			Lang:       "c",
			Command:    []string{"clangd", "--pch-storage=memory"},
			LanguageID: "c",
			Globs:      []string{"*.c", "*.h"},
		},
		"cpp": {
			Lang:       "cpp",
			Command:    []string{"clangd"},
			LanguageID: "cpp",
			Globs:      []string{"*.cpp", "*.hpp"},
		},
	}
}
