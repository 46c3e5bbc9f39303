package unconsole

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"
)

// eventuallyStripped rewrites path with dirty content until the watcher has stripped it.
func eventuallyStripped(t *testing.T, path, dirty, want string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.Eventually(t, func() bool {
		data, err := os.ReadFile(path)
		if err == nil && string(data) == want {
			return true
		}
		_ = os.WriteFile(path, []byte(dirty), 0644)
		return false
	}, 5*time.Second, 50*time.Millisecond)
}

func TestWatcherStripsChangedFiles(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "node_modules"), 0755))

	var mu sync.Mutex
	var changed []string
	s := NewSanitizer(nil, nil, Options{}, zaptest.NewLogger(t))
	s.OnChange(func(c Change) {
		mu.Lock()
		defer mu.Unlock()
		changed = append(changed, c.Path)
	})

	w, err := NewWatcher(s, root, zaptest.NewLogger(t))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- w.Run(ctx) }()

	dirty := "console.log(1);\nx();\n"
	eventuallyStripped(t, filepath.Join(root, "a.js"), dirty, "x();\n")
	eventuallyStripped(t, filepath.Join(root, "nested", "b.ts"), dirty, "x();\n")

	excluded := filepath.Join(root, "node_modules", "c.js")
	require.NoError(t, os.WriteFile(excluded, []byte(dirty), 0644))
	ignored := filepath.Join(root, "notes.md")
	require.NoError(t, os.WriteFile(ignored, []byte(dirty), 0644))
	time.Sleep(200 * time.Millisecond)

	cancel()
	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}

	assert.Equal(t, dirty, readFile(t, excluded))
	assert.Equal(t, dirty, readFile(t, ignored))

	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, changed, filepath.Join(root, "a.js"))
	assert.Contains(t, changed, filepath.Join(root, "nested", "b.ts"))
}

func TestWatcherMissingRoot(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	s := NewSanitizer(nil, nil, Options{}, nil)
	w, err := NewWatcher(s, filepath.Join(t.TempDir(), "missing"), nil)
	require.NoError(t, err)
	assert.Error(t, w.Run(context.Background()))
}
