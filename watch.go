package unconsole

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher re-strips eligible files under root whenever they are created or written.
// Its own rewrites trigger one more event each, which finds nothing left to strip.
type Watcher struct {
	watcher   *fsnotify.Watcher
	sanitizer *Sanitizer
	root      string
	logger    *zap.Logger
	onError   func(*FileError)
}

func NewWatcher(s *Sanitizer, root string, logger *zap.Logger) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{watcher: w, sanitizer: s, root: root, logger: logger}, nil
}

// OnError registers a callback for files that could not be stripped.
func (w *Watcher) OnError(cb func(*FileError)) { w.onError = cb }

// Run adds every non-excluded directory under root and handles events until ctx is
// done. The underlying watcher is closed on return.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	if err := w.addTree(w.root); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("Watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			w.logger.Warn("Cannot walk", zap.String("path", path), zap.Error(err))
			return filepath.SkipDir
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && w.sanitizer.IsExcluded(d.Name()) {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			w.logger.Warn("Cannot watch", zap.String("path", path), zap.Error(err))
		}
		return nil
	})
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return
	}

	info, err := os.Stat(event.Name)
	if err != nil {
		return
	}
	if info.IsDir() {
		if event.Has(fsnotify.Create) && w.sanitizer.IncludedDir(w.root, event.Name) {
			if err := w.addTree(event.Name); err != nil {
				w.logger.Warn("Cannot watch new directory", zap.String("path", event.Name), zap.Error(err))
			}
		}
		return
	}
	if !info.Mode().IsRegular() || !w.sanitizer.Eligible(w.root, event.Name) {
		return
	}

	w.logger.Debug("File event", zap.String("path", event.Name), zap.String("op", event.Op.String()))
	if _, err := w.sanitizer.SanitizeFile(event.Name); err != nil {
		var fe *FileError
		if !errors.As(err, &fe) {
			fe = &FileError{Op: "sanitize", Path: event.Name, Err: err}
		}
		w.logger.Warn("Skipping file", zap.String("path", fe.Path), zap.Error(fe.Err))
		if w.onError != nil {
			w.onError(fe)
		}
	}
}
