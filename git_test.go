package unconsole

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func initRepo(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	writeTree(t, dir, files)

	wt, err := repo.Worktree()
	require.NoError(t, err)
	for name := range files {
		_, err := wt.Add(name)
		require.NoError(t, err)
	}
	_, err = wt.Commit("initial", &git.CommitOptions{
		Author: &object.Signature{Name: "test", Email: "test@example.com", When: time.Now()},
	})
	require.NoError(t, err)
	return dir
}

func TestCheckRepoOutsideGit(t *testing.T) {
	status, err := CheckRepo(t.TempDir())
	require.NoError(t, err)
	assert.False(t, status.Tracked)
	assert.Empty(t, status.Dirty)
}

func TestCheckRepoClean(t *testing.T) {
	dir := initRepo(t, map[string]string{"src/a.js": "x();\n"})

	status, err := CheckRepo(filepath.Join(dir, "src"))
	require.NoError(t, err)
	assert.True(t, status.Tracked)
	assert.Empty(t, status.Dirty)

	root, err := FindRepoRoot(filepath.Join(dir, "src"))
	require.NoError(t, err)
	assert.Equal(t, dir, root)
}

func TestCheckRepoDirty(t *testing.T) {
	dir := initRepo(t, map[string]string{"src/a.js": "x();\n", "other/b.js": "y();\n"})
	require.NoError(t, os.WriteFile(filepath.Join(dir, "src", "a.js"), []byte("changed\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other", "b.js"), []byte("changed\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "src", "new.js"), []byte("untracked\n"), 0644))

	status, err := CheckRepo(filepath.Join(dir, "src"))
	require.NoError(t, err)
	assert.Equal(t, []string{"src/a.js"}, status.Dirty)

	status, err = CheckRepo(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"other/b.js", "src/a.js"}, status.Dirty)
}

func TestDefaultStateDirUsesRepoRoot(t *testing.T) {
	dir := initRepo(t, map[string]string{"src/a.js": "x();\n"})
	assert.Equal(t, filepath.Join(dir, stateDirName), DefaultStateDir(filepath.Join(dir, "src")))
}
