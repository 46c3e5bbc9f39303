package unconsole

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-git/go-git/v5"
)

// RepoStatus describes the version-control safety net around a root directory.
type RepoStatus struct {
	Tracked bool
	Root    string
	Dirty   []string
}

func FindRepoRoot(start string) (string, error) {
	repo, err := git.PlainOpenWithOptions(start, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return "", err
	}
	wt, err := repo.Worktree()
	if err != nil {
		return "", err
	}
	return wt.Filesystem.Root(), nil
}

// CheckRepo reports whether dir lives in a git worktree and which files under dir have
// uncommitted changes.
func CheckRepo(dir string) (RepoStatus, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return RepoStatus{}, err
	}
	repo, err := git.PlainOpenWithOptions(abs, &git.PlainOpenOptions{DetectDotGit: true})
	if err == git.ErrRepositoryNotExists {
		return RepoStatus{}, nil
	}
	if err != nil {
		return RepoStatus{}, fmt.Errorf("open repo: %w", err)
	}

	wt, err := repo.Worktree()
	if err != nil {
		return RepoStatus{}, fmt.Errorf("get worktree: %w", err)
	}
	status, err := wt.Status()
	if err != nil {
		return RepoStatus{}, fmt.Errorf("get status: %w", err)
	}

	rs := RepoStatus{Tracked: true, Root: wt.Filesystem.Root()}
	prefix, err := filepath.Rel(rs.Root, abs)
	if err != nil {
		return rs, err
	}
	prefix = filepath.ToSlash(prefix)
	for path, fs := range status {
		if fs.Worktree == git.Unmodified && fs.Staging == git.Unmodified {
			continue
		}
		if fs.Worktree == git.Untracked {
			continue
		}
		if prefix == "." || path == prefix || strings.HasPrefix(path, prefix+"/") {
			rs.Dirty = append(rs.Dirty, path)
		}
	}
	sort.Strings(rs.Dirty)
	return rs, nil
}
