package lsp

import (
	"net/url"
	"path/filepath"
	"strings"
)

// pathToFileURI derives a canonical file:// URI from an absolute,
// resolved filesystem path (spec.md §3, §6).
func pathToFileURI(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}
	return u.String()
}

// uriToPath reverses pathToFileURI, decoding percent-escapes.
func uriToPath(uri string) string {
	u, err := url.Parse(uri)
	if err != nil {
		return strings.TrimPrefix(uri, "file://")
	}
	return filepath.FromSlash(u.Path)
}

// PathToURI is the exported form of pathToFileURI, used by callers outside
// the package (workspace bootstrap, the harvester) to derive a document
// URI from a filesystem path.
func PathToURI(path string) string { return pathToFileURI(path) }

// URIToPath is the exported form of uriToPath.
func URIToPath(uri string) string { return uriToPath(uri) }
