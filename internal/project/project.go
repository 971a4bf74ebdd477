// Package project is the thin Git-repository-validation collaborator:
// it answers "is this a git worktree, and where's its root" for callers
// that want to confirm they're crawling a real repository. It adds no
// design complexity to the crawler core and is entirely optional.
package project

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Info describes a directory's relationship to a git repository.
type Info struct {
	IsGitRepo bool
	Worktree  string
	GitDir    string
}

// Detect walks up from directory looking for a .git entry and, if found,
// asks git for the canonical worktree and git-dir (handling worktrees and
// submodules where .git is a file, not a directory).
func Detect(directory string) (*Info, error) {
	absDir, err := filepath.Abs(directory)
	if err != nil {
		return nil, err
	}

	gitDir := findGitDir(absDir)
	if gitDir == "" {
		return &Info{IsGitRepo: false}, nil
	}

	worktree := filepath.Dir(gitDir)
	if out, err := runGit(worktree, "rev-parse", "--show-toplevel"); err == nil {
		worktree = out
	}
	if out, err := runGit(worktree, "rev-parse", "--git-dir"); err == nil {
		if !filepath.IsAbs(out) {
			out = filepath.Join(worktree, out)
		}
		gitDir = out
	}

	return &Info{IsGitRepo: true, Worktree: worktree, GitDir: gitDir}, nil
}

// findGitDir walks up from start looking for a .git directory or file.
func findGitDir(start string) string {
	current := start
	for {
		gitPath := filepath.Join(current, ".git")
		if info, err := os.Stat(gitPath); err == nil {
			if info.IsDir() {
				return gitPath
			}
			if content, err := os.ReadFile(gitPath); err == nil {
				line := strings.TrimSpace(string(content))
				if strings.HasPrefix(line, "gitdir: ") {
					gitdir := strings.TrimPrefix(line, "gitdir: ")
					if !filepath.IsAbs(gitdir) {
						gitdir = filepath.Join(current, gitdir)
					}
					return gitdir
				}
			}
		}

		parent := filepath.Dir(current)
		if parent == current {
			return ""
		}
		current = parent
	}
}

func runGit(dir string, args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}
