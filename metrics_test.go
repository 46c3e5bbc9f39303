package unconsole

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsWriteFile(t *testing.T) {
	m := NewMetrics()
	m.Observe(Result{
		Scanned: 5,
		Changed: []string{"a.js", "b.js"},
		Removed: 7,
		Failed:  []*FileError{{Op: "read", Path: "c.js", Err: errors.New("denied")}},
	})
	m.Observe(Result{Scanned: 1})

	path := filepath.Join(t.TempDir(), "unconsole.prom")
	require.NoError(t, m.WriteFile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	assert.Contains(t, out, "unconsole_files_scanned_total 6")
	assert.Contains(t, out, "unconsole_files_changed_total 2")
	assert.Contains(t, out, "unconsole_files_failed_total 1")
	assert.Contains(t, out, "unconsole_statements_removed_total 7")
}
