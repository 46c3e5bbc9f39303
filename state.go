package unconsole

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"gopkg.in/yaml.v3"
)

const (
	stateDirName  = ".unconsole"
	stateFileName = "history.yaml"
	BlobsDir      = "blobs"
	maxHistory    = 50
)

// Operation records one rewritten file by the hashes of its content before and after.
type Operation struct {
	Path           string `yaml:"path"`
	OldContentHash string `yaml:"old"`
	ContentHash    string `yaml:"new"`
}

type HistoryEntry struct {
	ID         string      `yaml:"id"`
	Timestamp  int64       `yaml:"timestamp"`
	Root       string      `yaml:"root"`
	Operations []Operation `yaml:"operations"`
}

type State struct {
	CurrentIndex int            `yaml:"current"`
	History      []HistoryEntry `yaml:"history"`
}

// StateManager keeps the run history and the blobs needed to undo and redo it.
type StateManager struct {
	StateDir  string
	statePath string
	state     *State

	mu      sync.Mutex
	pending []Operation
}

func NewStateManager(dir string) (*StateManager, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}
	m := &StateManager{
		StateDir:  dir,
		statePath: filepath.Join(dir, stateFileName),
		state:     &State{CurrentIndex: -1},
	}
	if err := m.load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load history: %w", err)
	}
	return m, nil
}

// DefaultStateDir places the state dir at the enclosing git repository root, falling
// back to the working directory.
func DefaultStateDir(start string) string {
	if root, err := FindRepoRoot(start); err == nil {
		return filepath.Join(root, stateDirName)
	}
	wd, err := os.Getwd()
	if err != nil {
		return stateDirName
	}
	return filepath.Join(wd, stateDirName)
}

func (m *StateManager) load() error {
	data, err := os.ReadFile(m.statePath)
	if err != nil {
		return err
	}
	state := &State{CurrentIndex: -1}
	if err := yaml.Unmarshal(data, state); err != nil {
		return err
	}
	if state.CurrentIndex >= len(state.History) {
		state.CurrentIndex = len(state.History) - 1
	}
	m.state = state
	return nil
}

func (m *StateManager) save() error {
	data, err := yaml.Marshal(m.state)
	if err != nil {
		return err
	}
	tmp := m.statePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, m.statePath)
}

// Backup stores both versions of a change as blobs before the file is rewritten.
func (m *StateManager) Backup(c Change) error {
	if err := WriteBlob(m.StateDir, ContentSHA256(c.Old), c.Old); err != nil {
		return err
	}
	return WriteBlob(m.StateDir, ContentSHA256(c.New), c.New)
}

// Record queues a written change for the next Commit. Safe for concurrent use.
func (m *StateManager) Record(c Change) {
	op := Operation{Path: absPath(c.Path), OldContentHash: ContentSHA256(c.Old), ContentHash: ContentSHA256(c.New)}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending = append(m.pending, op)
}

// Commit turns the queued operations into a history entry, dropping any redo entries.
// It returns the entry id, or "" when nothing was queued.
func (m *StateManager) Commit(root string) (string, error) {
	m.mu.Lock()
	ops := m.pending
	m.pending = nil
	m.mu.Unlock()

	if len(ops) == 0 {
		return "", nil
	}

	if m.state.CurrentIndex < len(m.state.History)-1 {
		m.state.History = m.state.History[:m.state.CurrentIndex+1]
	}
	entry := HistoryEntry{
		ID:         ulid.Make().String(),
		Timestamp:  time.Now().UTC().Unix(),
		Root:       absPath(root),
		Operations: ops,
	}
	m.state.History = append(m.state.History, entry)
	if over := len(m.state.History) - maxHistory; over > 0 {
		m.state.History = m.state.History[over:]
	}
	m.state.CurrentIndex = len(m.state.History) - 1
	return entry.ID, m.save()
}

func (m *StateManager) History() []HistoryEntry {
	return m.state.History
}

// Undo restores the files of the entry at the cursor. A file whose content no longer
// matches what the run wrote is left alone and reported as failed.
func (m *StateManager) Undo(fsys FileSystem) (Summary, error) {
	if m.state.CurrentIndex < 0 {
		return Summary{Message: "Nothing to undo"}, nil
	}
	entry := m.state.History[m.state.CurrentIndex]
	m.state.CurrentIndex--
	if err := m.save(); err != nil {
		return Summary{}, err
	}

	s := Summary{Message: "Undone " + entry.ID}
	for _, op := range entry.Operations {
		if m.restore(fsys, op.Path, op.ContentHash, op.OldContentHash) {
			s.Modified = append(s.Modified, op.Path)
		} else {
			s.Failed = append(s.Failed, op.Path)
		}
	}
	return s, nil
}

// Redo re-applies the entry after the cursor.
func (m *StateManager) Redo(fsys FileSystem) (Summary, error) {
	if m.state.CurrentIndex+1 >= len(m.state.History) {
		return Summary{Message: "Nothing to redo"}, nil
	}
	m.state.CurrentIndex++
	entry := m.state.History[m.state.CurrentIndex]
	if err := m.save(); err != nil {
		return Summary{}, err
	}

	s := Summary{Message: "Redone " + entry.ID}
	for _, op := range entry.Operations {
		if m.restore(fsys, op.Path, op.OldContentHash, op.ContentHash) {
			s.Modified = append(s.Modified, op.Path)
		} else {
			s.Failed = append(s.Failed, op.Path)
		}
	}
	return s, nil
}

func (m *StateManager) restore(fsys FileSystem, path, expectHash, targetHash string) bool {
	current, err := fsys.ReadFile(path)
	if err != nil || ContentSHA256(current) != expectHash {
		return false
	}
	content, err := ReadBlob(m.StateDir, targetHash)
	if err != nil {
		return false
	}
	info, err := fsys.Stat(path)
	if err != nil {
		return false
	}
	return fsys.WriteFile(path, content, info.Mode) == nil
}

func absPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}
