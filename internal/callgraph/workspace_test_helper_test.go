package callgraph

import (
	"testing"

	"codegraph/internal/lsp"
	"codegraph/internal/workspace"
)

// fakeWorkspace returns a Workspace with a real root (for Relativize's
// path math) and an unstarted client — enough for the edge-assembly tests,
// which never drive the client's process lifecycle.
func fakeWorkspace(t *testing.T) *workspace.Workspace {
	t.Helper()
	root := t.TempDir()
	return &workspace.Workspace{Root: root, Client: lsp.NewClient(root)}
}
