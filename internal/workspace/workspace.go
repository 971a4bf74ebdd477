// Package workspace implements the bootstrap façade (spec.md's C3): it
// enumerates source files under a root, spawns and opens them with the
// matching language server, and optionally keeps them in sync with
// on-disk changes via a file watcher.
package workspace

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/bmatcuk/doublestar/v4"
	ignore "github.com/sabhiram/go-gitignore"

	"codegraph/internal/lsp"
	"codegraph/internal/logging"
)

// skipDirs is the fixed set of directory names bootstrap never descends
// into (spec.md §4.3).
var skipDirs = map[string]bool{
	".git": true, ".github": true, "__pycache__": true, ".venv": true,
	"venv": true, "env": true, ".mypy_cache": true, ".pytest_cache": true,
	"node_modules": true, "dist": true, "build": true, ".idea": true, ".vscode": true,
}

// langExtensions maps a language key to the file extensions it owns, used
// by DetectLanguages to scan a root's file-type distribution.
var langExtensions = map[string][]string{
	"py":  {".py", ".pyi"},
	"ts":  {".ts", ".tsx"},
	"c":   {".c", ".h"},
	"cpp": {".cpp", ".hpp"},
}

// Workspace owns one LSP client bound to one root directory.
type Workspace struct {
	Root   string
	Client *lsp.Client

	ignore      *ignore.GitIgnore
	ignoreGlobs []string
	watcher     *Watcher
}

// LanguageCount is one entry of DetectLanguages' ordered distribution.
type LanguageCount struct {
	Lang  string
	Count int
}

// DetectLanguages scans root's file-type distribution and returns the
// languages found, ordered by descending file count (spec.md §4.3). An
// empty result means NoLanguage.
func DetectLanguages(root string) ([]LanguageCount, error) {
	counts := make(map[string]int)

	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil //nolint:nilerr // unreadable entries are skipped, not fatal
		}
		if d.IsDir() {
			if skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		for lang, exts := range langExtensions {
			for _, e := range exts {
				if ext == e {
					counts[lang]++
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	result := make([]LanguageCount, 0, len(counts))
	for lang, n := range counts {
		if n > 0 {
			result = append(result, LanguageCount{Lang: lang, Count: n})
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Lang < result[j].Lang
	})
	return result, nil
}

// NoLanguageError is returned when no recognized source file is found
// under the root (spec.md §4.3).
type NoLanguageError struct{ Root string }

func (e *NoLanguageError) Error() string {
	return fmt.Sprintf("workspace: no recognized language under %s", e.Root)
}

// ServerOverride replaces a language's builtin LSP command and/or globs
// (mirrors config.ServerOverride; kept here so workspace does not need to
// import internal/config).
type ServerOverride = lsp.ServerOverride

// Bootstrap resolves root, detects its dominant language (or uses lang if
// non-empty), spawns the matching server (optionally overridden via
// serverOverride), enumerates files, and opens each non-empty UTF-8 file
// with the server. It returns the initialized Workspace.
func Bootstrap(ctx context.Context, root, lang string, serverOverride *ServerOverride, extraIgnoreGlobs ...string) (*Workspace, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	absRoot, err = filepath.EvalSymlinks(absRoot)
	if err != nil {
		return nil, err
	}

	if lang == "" {
		langs, err := DetectLanguages(absRoot)
		if err != nil {
			return nil, err
		}
		if len(langs) == 0 {
			return nil, &NoLanguageError{Root: absRoot}
		}
		lang = langs[0].Lang
	}

	gi := loadGitignore(absRoot)

	client := lsp.NewClient(absRoot)
	if err := client.Start(ctx, lang, serverOverride); err != nil {
		return nil, err
	}

	ws := &Workspace{Root: absRoot, Client: client, ignore: gi, ignoreGlobs: extraIgnoreGlobs}

	files, err := ws.enumerate(lang)
	if err != nil {
		_ = client.Shutdown(ctx)
		return nil, err
	}

	for _, f := range files {
		if err := ws.openFile(ctx, f, lang); err != nil {
			logging.Warn().Err(err).Str("file", f).Msg("workspace: failed to open file during bootstrap")
		}
	}

	return ws, nil
}

// loadGitignore reads root/.gitignore; a missing, unreadable, or
// non-UTF-8 file degrades silently to "no ignore patterns" (spec.md §4.3).
func loadGitignore(root string) *ignore.GitIgnore {
	data, err := os.ReadFile(filepath.Join(root, ".gitignore"))
	if err != nil {
		return nil
	}
	if !utf8.Valid(data) {
		return nil
	}
	return ignore.CompileIgnoreLines(strings.Split(string(data), "\n")...)
}

// enumerate recursively walks the root, skipping skipDirs, gitignored
// paths and paths matching the extra ignore globs, returning every file
// whose extension is listed for lang in langExtensions. The server spec's
// globs, including any override, are not consulted.
func (w *Workspace) enumerate(lang string) ([]string, error) {
	exts := langExtensions[lang]
	var files []string

	err := filepath.WalkDir(w.Root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil //nolint:nilerr
		}
		rel, relErr := filepath.Rel(w.Root, path)
		if relErr != nil || strings.HasPrefix(rel, "..") {
			// Defensively drop anything outside the resolved root.
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			if path != w.Root && skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			if w.ignore != nil && w.ignore.MatchesPath(rel+"/") {
				return filepath.SkipDir
			}
			return nil
		}

		if w.ignore != nil && w.ignore.MatchesPath(rel) {
			return nil
		}
		if w.matchesExtraIgnore(rel) {
			return nil
		}

		ext := strings.ToLower(filepath.Ext(path))
		for _, e := range exts {
			if ext == e {
				files = append(files, path)
				break
			}
		}
		return nil
	})
	return files, err
}

// matchesExtraIgnore reports whether rel matches one of the workspace's
// doublestar ignore globs (config.Config.IgnoreGlobs, layered on top of
// the fixed skip-dirs list and any .gitignore).
func (w *Workspace) matchesExtraIgnore(rel string) bool {
	for _, pattern := range w.ignoreGlobs {
		if ok, err := doublestar.Match(pattern, rel); err == nil && ok {
			return true
		}
	}
	return false
}

// openFile reads path as UTF-8 (with replacement), skips empty files, and
// sends didOpen for it (spec.md §4.3 bootstrap flow).
func (w *Workspace) openFile(ctx context.Context, path, lang string) error {
	content, err := readUTF8(path)
	if err != nil {
		return err
	}
	if len(content) == 0 {
		return nil
	}
	uri := lsp.PathToURI(path)
	languageID := languageIDFor(lang)
	return w.Client.DidOpen(ctx, uri, content, languageID)
}

func languageIDFor(lang string) string {
	switch lang {
	case "py":
		return "python"
	case "ts", "tsx":
		return "typescript"
	case "c":
		return "c"
	case "cpp":
		return "cpp"
	default:
		return lang
	}
}

// readUTF8 reads a file decoding invalid byte sequences with U+FFFD,
// matching spec.md §4.3's "read as UTF-8 (with replacement)".
func readUTF8(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var sb strings.Builder
	r := bufio.NewReader(f)
	buf := make([]byte, 32*1024)
	for {
		n, readErr := r.Read(buf)
		if n > 0 {
			sb.Write([]byte(strings.ToValidUTF8(string(buf[:n]), "�")))
		}
		if readErr != nil {
			break
		}
	}
	return sb.String(), nil
}

// Relativize renders uri relative to the workspace root, matching the
// output format spec.md §6 expects for invocation edges.
func (w *Workspace) Relativize(uri string) string {
	path := lsp.URIToPath(uri)
	rel, err := filepath.Rel(w.Root, path)
	if err != nil {
		return path
	}
	return filepath.ToSlash(rel)
}

// StartWatch builds and starts a file watcher over w's root, keeping open
// documents synced with on-disk changes for the lifetime of the workspace
// (spec.md §4.3's optional sync, the CLI's --watch mode).
func (w *Workspace) StartWatch(lang string) (*Watcher, error) {
	watcher, err := NewWatcher(w, lang)
	if err != nil {
		return nil, err
	}
	watcher.Start()
	return watcher, nil
}

// Shutdown tears down the workspace's client and watcher, if any.
func (w *Workspace) Shutdown(ctx context.Context) error {
	if w.watcher != nil {
		_ = w.watcher.Stop()
	}
	return w.Client.Shutdown(ctx)
}
