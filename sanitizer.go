package unconsole

import (
	"context"
	"errors"
	"fmt"
	iofs "io/fs"
	"path/filepath"
	"strings"
	"sync/atomic"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	DefaultExtensions = []string{".js", ".jsx", ".ts", ".tsx"}
	DefaultExclude    = []string{"node_modules", ".git", "dist", "build", "vendor", stateDirName}
)

type Options struct {
	Extensions []string
	Exclude    []string
	FailFast   bool
	Jobs       int
	DryRun     bool
}

// Change describes one file whose text differs after stripping.
type Change struct {
	Path    string
	Old     []byte
	New     []byte
	Removed int
}

// Result aggregates a single run. Changed keeps discovery order.
type Result struct {
	Scanned int
	Changed []string
	Removed int
	Failed  []*FileError
}

func (r Result) ChangedCount() int { return len(r.Changed) }

type ProgressUpdate func(current, total int)

type Sanitizer struct {
	fs          FileSystem
	rules       RuleSet
	opts        Options
	logger      *zap.Logger
	onChange    func(Change)
	beforeWrite func(Change) error
	progress    ProgressUpdate
}

func NewSanitizer(fsys FileSystem, rules RuleSet, opts Options, logger *zap.Logger) *Sanitizer {
	if fsys == nil {
		fsys = NewLocalFS()
	}
	if rules == nil {
		rules = DefaultRules()
	}
	if opts.Extensions == nil {
		opts.Extensions = DefaultExtensions
	}
	if opts.Exclude == nil {
		opts.Exclude = DefaultExclude
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sanitizer{fs: fsys, rules: rules, opts: opts, logger: logger}
}

// OnChange registers a callback invoked for every changed file, in discovery order.
func (s *Sanitizer) OnChange(cb func(Change)) { s.onChange = cb }

// BeforeWrite registers a hook run before a file is rewritten. An error skips the write.
func (s *Sanitizer) BeforeWrite(hook func(Change) error) { s.beforeWrite = hook }

func (s *Sanitizer) SetProgressCallback(cb ProgressUpdate) { s.progress = cb }

// SanitizeTree strips every eligible file under root. Per-file I/O failures are
// collected in Result.Failed and the walk continues, unless FailFast is set.
func (s *Sanitizer) SanitizeTree(ctx context.Context, root string) (Result, error) {
	info, err := s.fs.Stat(root)
	if err != nil {
		if errors.Is(err, iofs.ErrNotExist) {
			return Result{}, &RootNotFoundError{Path: root}
		}
		return Result{}, &FileError{Op: "stat", Path: root, Err: err}
	}
	if !info.IsDir {
		return Result{}, fmt.Errorf("%s: %w", root, ErrNotDirectory)
	}

	files, failed := s.collect(root)
	res := Result{Failed: failed}
	if len(failed) > 0 && s.opts.FailFast {
		return res, failed[0]
	}
	s.logger.Debug("Collected files", zap.String("root", root), zap.Int("files", len(files)))

	if s.opts.Jobs > 1 {
		err = s.processParallel(ctx, files, &res)
	} else {
		err = s.processSequential(ctx, files, &res)
	}
	return res, err
}

// collect walks dir depth-first in listing order and returns eligible files. The
// accumulated paths are returned to the caller rather than kept in shared state.
func (s *Sanitizer) collect(dir string) ([]string, []*FileError) {
	entries, err := s.fs.ReadDir(dir)
	if err != nil {
		return nil, []*FileError{{Op: "readdir", Path: dir, Err: err}}
	}

	var files []string
	var failed []*FileError
	for _, e := range entries {
		path := filepath.Join(dir, e.Name)
		switch {
		case e.IsDir:
			if s.IsExcluded(e.Name) {
				continue
			}
			sub, subFailed := s.collect(path)
			files = append(files, sub...)
			failed = append(failed, subFailed...)
		case e.Regular && HasAllowedExtension(e.Name, s.opts.Extensions):
			files = append(files, path)
		}
	}
	return files, failed
}

type outcome struct {
	change  Change
	changed bool
	err     *FileError
}

func (s *Sanitizer) processSequential(ctx context.Context, files []string, res *Result) error {
	for i, path := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		o := s.process(path)
		s.record(res, o)
		s.reportProgress(i+1, len(files))
		if o.err != nil && s.opts.FailFast {
			return o.err
		}
	}
	return nil
}

// processParallel strips files concurrently and merges outcomes in discovery order.
func (s *Sanitizer) processParallel(ctx context.Context, files []string, res *Result) error {
	outcomes := make([]*outcome, len(files))
	var done atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Jobs)
	for i, path := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			o := s.process(path)
			outcomes[i] = &o
			s.reportProgress(int(done.Add(1)), len(files))
			if o.err != nil && s.opts.FailFast {
				return o.err
			}
			return nil
		})
	}
	err := g.Wait()

	for _, o := range outcomes {
		if o != nil {
			s.record(res, *o)
		}
	}
	return err
}

func (s *Sanitizer) record(res *Result, o outcome) {
	res.Scanned++
	if o.err != nil {
		s.logger.Warn("Skipping file", zap.String("path", o.err.Path), zap.String("op", o.err.Op), zap.Error(o.err.Err))
		res.Failed = append(res.Failed, o.err)
		return
	}
	if !o.changed {
		return
	}
	res.Changed = append(res.Changed, o.change.Path)
	res.Removed += o.change.Removed
	if s.onChange != nil {
		s.onChange(o.change)
	}
}

func (s *Sanitizer) process(path string) outcome {
	c, changed, err := s.sanitize(path)
	if err != nil {
		var fe *FileError
		if !errors.As(err, &fe) {
			fe = &FileError{Op: "sanitize", Path: path, Err: err}
		}
		return outcome{err: fe}
	}
	return outcome{change: c, changed: changed}
}

// SanitizeFile strips one file and writes it back only when the text changed.
func (s *Sanitizer) SanitizeFile(path string) (bool, error) {
	c, changed, err := s.sanitize(path)
	if err != nil {
		return false, err
	}
	if changed && s.onChange != nil {
		s.onChange(c)
	}
	return changed, nil
}

func (s *Sanitizer) sanitize(path string) (Change, bool, error) {
	info, err := s.fs.Stat(path)
	if err != nil {
		return Change{}, false, &FileError{Op: "read", Path: path, Err: err}
	}
	data, err := s.fs.ReadFile(path)
	if err != nil {
		return Change{}, false, &FileError{Op: "read", Path: path, Err: err}
	}
	if !utf8.Valid(data) {
		s.logger.Debug("Skipping non-UTF-8 file", zap.String("path", path))
		return Change{}, false, nil
	}

	text := string(data)
	stripped, removed := s.rules.Strip(text)
	if stripped == text {
		return Change{}, false, nil
	}

	c := Change{Path: path, Old: data, New: []byte(stripped), Removed: removed}
	if s.opts.DryRun {
		return c, true, nil
	}
	if s.beforeWrite != nil {
		if err := s.beforeWrite(c); err != nil {
			return Change{}, false, &FileError{Op: "backup", Path: path, Err: err}
		}
	}
	if err := s.fs.WriteFile(path, c.New, info.Mode); err != nil {
		return Change{}, false, &FileError{Op: "write", Path: path, Err: err}
	}
	s.logger.Debug("Stripped file", zap.String("path", path), zap.Int("removed", removed))
	return c, true, nil
}

func (s *Sanitizer) reportProgress(current, total int) {
	if s.progress != nil {
		s.progress(current, total)
	}
}

// IsExcluded reports whether a directory name matches an exclude pattern.
func (s *Sanitizer) IsExcluded(name string) bool {
	for _, pattern := range s.opts.Exclude {
		if matched, _ := filepath.Match(pattern, name); matched {
			return true
		}
	}
	return false
}

// Eligible reports whether path, found under root, would be visited by SanitizeTree.
func (s *Sanitizer) Eligible(root, path string) bool {
	return s.IncludedDir(root, filepath.Dir(path)) && HasAllowedExtension(path, s.opts.Extensions)
}

// IncludedDir reports whether dir is root or lies below it with no excluded directory
// on the way down.
func (s *Sanitizer) IncludedDir(root, dir string) bool {
	rel, err := filepath.Rel(root, dir)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return false
	}
	if rel == "." {
		return true
	}
	for _, name := range strings.Split(filepath.ToSlash(rel), "/") {
		if s.IsExcluded(name) {
			return false
		}
	}
	return true
}

func HasAllowedExtension(path string, extensions []string) bool {
	if len(extensions) == 0 {
		return true
	}
	ext := filepath.Ext(path)
	for _, e := range extensions {
		if ext == e {
			return true
		}
	}
	return false
}
