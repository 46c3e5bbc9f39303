package unconsole

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sanitizeWithHistory(t *testing.T, sm *StateManager, root string) Result {
	t.Helper()
	s := NewSanitizer(nil, nil, Options{}, nil)
	s.BeforeWrite(sm.Backup)
	s.OnChange(sm.Record)
	res, err := s.SanitizeTree(context.Background(), root)
	require.NoError(t, err)
	return res
}

func TestStateUndoRedo(t *testing.T) {
	root := t.TempDir()
	original := "console.log(1);\nrun();\n"
	writeTree(t, root, map[string]string{"a.js": original, "sub/b.ts": original})

	sm, err := NewStateManager(filepath.Join(t.TempDir(), stateDirName))
	require.NoError(t, err)

	res := sanitizeWithHistory(t, sm, root)
	require.Equal(t, 2, res.ChangedCount())
	id, err := sm.Commit(root)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	a := filepath.Join(root, "a.js")
	assert.Equal(t, "run();\n", readFile(t, a))

	s, err := sm.Undo(NewLocalFS())
	require.NoError(t, err)
	assert.Equal(t, "Undone "+id, s.Message)
	assert.Len(t, s.Modified, 2)
	assert.Empty(t, s.Failed)
	assert.Equal(t, original, readFile(t, a))
	assert.Equal(t, original, readFile(t, filepath.Join(root, "sub", "b.ts")))

	s, err = sm.Undo(NewLocalFS())
	require.NoError(t, err)
	assert.Equal(t, "Nothing to undo", s.Message)

	s, err = sm.Redo(NewLocalFS())
	require.NoError(t, err)
	assert.Equal(t, "Redone "+id, s.Message)
	assert.Equal(t, "run();\n", readFile(t, a))

	s, err = sm.Redo(NewLocalFS())
	require.NoError(t, err)
	assert.Equal(t, "Nothing to redo", s.Message)
}

func TestStateUndoSkipsEditedFiles(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"a.js": "console.log(1);\n", "b.js": "console.info(2);\n"})

	sm, err := NewStateManager(filepath.Join(t.TempDir(), stateDirName))
	require.NoError(t, err)
	sanitizeWithHistory(t, sm, root)
	_, err = sm.Commit(root)
	require.NoError(t, err)

	edited := "user edit\n"
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.js"), []byte(edited), 0644))

	s, err := sm.Undo(NewLocalFS())
	require.NoError(t, err)
	require.Len(t, s.Failed, 1)
	assert.Equal(t, filepath.Join(root, "a.js"), s.Failed[0])
	assert.Equal(t, edited, readFile(t, filepath.Join(root, "a.js")))
	assert.Equal(t, "console.info(2);\n", readFile(t, filepath.Join(root, "b.js")))
}

func TestStatePersistsAndTruncatesRedo(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(t.TempDir(), stateDirName)
	writeTree(t, root, map[string]string{"a.js": "console.log(1);\n"})

	sm, err := NewStateManager(dir)
	require.NoError(t, err)
	sanitizeWithHistory(t, sm, root)
	first, err := sm.Commit(root)
	require.NoError(t, err)

	// A fresh manager sees the saved history.
	sm, err = NewStateManager(dir)
	require.NoError(t, err)
	require.Len(t, sm.History(), 1)
	assert.Equal(t, first, sm.History()[0].ID)

	_, err = sm.Undo(NewLocalFS())
	require.NoError(t, err)

	writeTree(t, root, map[string]string{"b.js": "console.debug(2);\n"})
	sanitizeWithHistory(t, sm, root)
	second, err := sm.Commit(root)
	require.NoError(t, err)

	require.Len(t, sm.History(), 1)
	assert.Equal(t, second, sm.History()[0].ID)
	assert.Len(t, sm.History()[0].Operations, 2)

	s, err := sm.Redo(NewLocalFS())
	require.NoError(t, err)
	assert.Equal(t, "Nothing to redo", s.Message)
}

func TestStateCommitEmpty(t *testing.T) {
	sm, err := NewStateManager(filepath.Join(t.TempDir(), stateDirName))
	require.NoError(t, err)

	id, err := sm.Commit("src")
	require.NoError(t, err)
	assert.Empty(t, id)
	assert.Empty(t, sm.History())
}

func TestStateHistoryIsBounded(t *testing.T) {
	root := t.TempDir()
	sm, err := NewStateManager(filepath.Join(t.TempDir(), stateDirName))
	require.NoError(t, err)

	path := filepath.Join(root, "a.js")
	for i := 0; i < maxHistory+5; i++ {
		old := []byte("console.log(" + string(rune('a'+i%26)) + ");\n")
		c := Change{Path: path, Old: old, New: []byte{}}
		require.NoError(t, sm.Backup(c))
		sm.Record(c)
		_, err := sm.Commit(root)
		require.NoError(t, err)
	}
	assert.Len(t, sm.History(), maxHistory)
}

func TestBlobRoundTrip(t *testing.T) {
	dir := t.TempDir()
	content := []byte("console.log(1);\n")
	hash := ContentSHA256(content)

	require.NoError(t, WriteBlob(dir, hash, content))
	require.NoError(t, WriteBlob(dir, hash, content))
	got, err := ReadBlob(dir, hash)
	require.NoError(t, err)
	assert.Equal(t, content, got)
}
