package unconsole

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	iofs "io/fs"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// App runs one invocation: a tree sweep, a watch loop, a filter pass, or a history step.
type App struct {
	cfg            *Config
	logger         *zap.Logger
	out            io.Writer
	color          bool
	reporter       *Reporter
	sourceProvider *SourceProvider

	newFS        func() (FileSystem, func(), error)
	stateOnce    sync.Once
	stateManager *StateManager
	stateErr     error
}

func NewApp(cfg *Config, logger *zap.Logger, out io.Writer) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if out == nil {
		out = os.Stdout
	}
	a := &App{
		cfg:            cfg,
		logger:         logger,
		out:            out,
		reporter:       NewReporter(out, false),
		sourceProvider: NewSourceProvider(),
	}
	a.newFS = a.openFS
	return a, nil
}

// SetTerminal enables the spinner and diff colouring when out is an interactive terminal.
func (a *App) SetTerminal(tty bool) {
	a.color = tty
	a.reporter = NewReporter(a.out, tty && !a.cfg.NoAnimation)
}

// Run executes the invocation and prints its summary.
func (a *App) Run(ctx context.Context) error {
	summary, err := a.Execute(ctx)
	if out := FormatSummary(summary); out != "" {
		fmt.Fprint(a.out, out)
	}
	return err
}

func (a *App) Execute(ctx context.Context) (summary Summary, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &DetailedError{Err: fmt.Errorf("panic: %v", r), Stack: debug.Stack()}
		}
	}()

	switch {
	case a.cfg.Undo:
		return a.undoLastRun()
	case a.cfg.Redo:
		return a.redoLastRun()
	case a.cfg.Filter:
		return a.filter()
	case a.cfg.Watch:
		return a.watch(ctx)
	default:
		return a.sweep(ctx)
	}
}

func (a *App) openFS() (FileSystem, func(), error) {
	if !a.cfg.Nvim {
		return NewLocalFS(), func() {}, nil
	}
	n, err := NewNvimFS()
	if err != nil {
		return nil, nil, fmt.Errorf("connect to neovim: %w", err)
	}
	return n, n.Close, nil
}

func (a *App) history() (*StateManager, error) {
	a.stateOnce.Do(func() {
		dir := a.cfg.StateDir
		if dir == "" {
			dir = DefaultStateDir(a.cfg.Root)
		}
		a.stateManager, a.stateErr = NewStateManager(dir)
	})
	return a.stateManager, a.stateErr
}

func (a *App) newSanitizer(fsys FileSystem) (*Sanitizer, error) {
	rules, err := a.cfg.Rules()
	if err != nil {
		return nil, err
	}
	s := NewSanitizer(fsys, rules, a.cfg.Options(), a.logger)
	s.SetProgressCallback(a.reporter.Progress)
	s.OnChange(a.onChange)
	if a.cfg.History && !a.cfg.DryRun {
		s.BeforeWrite(func(c Change) error {
			sm, err := a.history()
			if err != nil {
				return err
			}
			return sm.Backup(c)
		})
	}
	return s, nil
}

func (a *App) onChange(c Change) {
	a.reportChange(c)
	if sm := a.stateManager; sm != nil && !a.cfg.DryRun {
		sm.Record(c)
	}
}

func (a *App) reportChange(c Change) {
	a.reporter.Changed(c.Path, c.Removed)
	if !a.cfg.DryRun {
		return
	}
	var buf bytes.Buffer
	if err := WriteDiff(&buf, UnifiedDiff(c), a.color); err != nil {
		a.logger.Warn("Cannot render diff", zap.String("path", c.Path), zap.Error(err))
		return
	}
	a.reporter.Line(strings.TrimRight(buf.String(), "\n"))
}

// checkRepo warns when root is outside version control and enforces --require-clean.
func (a *App) checkRepo(root string) error {
	status, err := CheckRepo(root)
	if err != nil {
		a.logger.Warn("Cannot inspect git status", zap.String("root", root), zap.Error(err))
		if a.cfg.RequireClean {
			return fmt.Errorf("check worktree: %w", err)
		}
		return nil
	}
	if !status.Tracked {
		a.logger.Warn("Root is not inside a git repository; rewrites can only be reverted with --undo", zap.String("root", root))
		return nil
	}
	if a.cfg.RequireClean && len(status.Dirty) > 0 {
		return fmt.Errorf("%w: %s", ErrDirtyTree, strings.Join(status.Dirty, ", "))
	}
	return nil
}

func (a *App) sweep(ctx context.Context) (Summary, error) {
	root := a.cfg.Root
	a.reporter.Start(fmt.Sprintf("Stripping console statements from %s...", root))

	fsys, closeFS, err := a.newFS()
	if err != nil {
		a.reporter.Stop()
		return Summary{}, err
	}
	defer closeFS()

	res, err := a.run(ctx, fsys, root)
	if errors.Is(err, ErrRootNotFound) {
		return Summary{}, withExitCode(err, ExitRootNotFound)
	}
	if res == nil {
		return Summary{}, err
	}

	summary := summaryFromResult(root, *res, a.cfg.DryRun)
	summary.HistoryID, err = a.finish(root, *res, err)
	return summary, err
}

// run performs one full pass over root. A nil result means nothing was walked.
func (a *App) run(ctx context.Context, fsys FileSystem, root string) (*Result, error) {
	defer a.reporter.Stop()

	if _, err := fsys.Stat(root); errors.Is(err, iofs.ErrNotExist) {
		return nil, &RootNotFoundError{Path: root}
	}
	if err := a.checkRepo(root); err != nil {
		return nil, err
	}

	s, err := a.newSanitizer(fsys)
	if err != nil {
		return nil, err
	}
	res, err := s.SanitizeTree(ctx, root)
	if errors.Is(err, ErrRootNotFound) || errors.Is(err, ErrNotDirectory) {
		return nil, err
	}
	return &res, err
}

// finish records history and metrics for a completed pass and maps failures to the
// process exit code.
func (a *App) finish(root string, res Result, runErr error) (string, error) {
	var id string
	if sm := a.stateManager; sm != nil {
		var err error
		if id, err = sm.Commit(root); err != nil {
			a.logger.Warn("Cannot record history", zap.Error(err))
		}
	}

	if a.cfg.MetricsFile != "" {
		m := NewMetrics()
		m.Observe(res)
		if err := m.WriteFile(a.cfg.MetricsFile); err != nil {
			a.logger.Warn("Cannot write metrics", zap.String("path", a.cfg.MetricsFile), zap.Error(err))
		}
	}

	switch {
	case runErr != nil:
		return id, withExitCode(runErr, ExitFailures)
	case len(res.Failed) > 0:
		return id, withExitCode(&FailuresError{Failed: res.Failed}, ExitFailures)
	}
	return id, nil
}

// watch runs a full sweep and then follows changes until ctx is done. Failures from the
// initial sweep are returned once watching stops.
func (a *App) watch(ctx context.Context) (Summary, error) {
	summary, sweepErr := a.sweep(ctx)
	if sweepErr != nil && ExitCode(sweepErr) != ExitFailures {
		return summary, sweepErr
	}
	fmt.Fprint(a.out, FormatSummary(summary))

	fsys, closeFS, err := a.newFS()
	if err != nil {
		return Summary{}, err
	}
	defer closeFS()

	s, err := a.newSanitizer(fsys)
	if err != nil {
		return Summary{}, err
	}
	root := a.cfg.Root
	s.OnChange(func(c Change) {
		a.onChange(c)
		if sm := a.stateManager; sm != nil {
			if _, err := sm.Commit(root); err != nil {
				a.logger.Warn("Cannot record history", zap.Error(err))
			}
		}
	})

	w, err := NewWatcher(s, root, a.logger)
	if err != nil {
		return Summary{}, fmt.Errorf("start watcher: %w", err)
	}
	w.OnError(a.reporter.Failed)

	a.reporter.Line(headerStyle.Render(fmt.Sprintf("Watching %s for changes...", root)))
	if err := w.Run(ctx); err != nil {
		return Summary{}, fmt.Errorf("watch %s: %w", root, err)
	}
	return Summary{Message: "Stopped watching"}, sweepErr
}

// filter strips text from stdin or the clipboard and prints the result. Clipboard input
// is written back to the clipboard as well.
func (a *App) filter() (Summary, error) {
	content, fromClipboard, err := a.sourceProvider.GetContent()
	if err != nil {
		return Summary{}, fmt.Errorf("read input: %w", err)
	}
	rules, err := a.cfg.Rules()
	if err != nil {
		return Summary{}, err
	}

	var stripped string
	var removed int
	if a.cfg.Markdown {
		stripped, removed, err = StripMarkdown(rules, content)
		if err != nil {
			return Summary{}, err
		}
	} else {
		stripped, removed = rules.Strip(content)
	}
	a.logger.Debug("Filtered input", zap.Int("removed", removed), zap.Bool("clipboard", fromClipboard))

	if _, err := io.WriteString(a.out, stripped); err != nil {
		return Summary{}, err
	}
	if fromClipboard && stripped != content {
		if err := a.sourceProvider.WriteClipboard(stripped); err != nil {
			return Summary{}, fmt.Errorf("write clipboard: %w", err)
		}
	}
	return Summary{}, nil
}

func (a *App) undoLastRun() (Summary, error) {
	return a.step((*StateManager).Undo)
}

func (a *App) redoLastRun() (Summary, error) {
	return a.step((*StateManager).Redo)
}

func (a *App) step(apply func(*StateManager, FileSystem) (Summary, error)) (Summary, error) {
	sm, err := a.history()
	if err != nil {
		return Summary{}, err
	}
	fsys, closeFS, err := a.newFS()
	if err != nil {
		return Summary{}, err
	}
	defer closeFS()

	s, err := apply(sm, fsys)
	if err != nil {
		return s, err
	}
	relativizeSummaryPaths(&s)
	if len(s.Failed) > 0 {
		return s, withExitCode(fmt.Errorf("%d file(s) changed since the run and were left alone", len(s.Failed)), ExitFailures)
	}
	return s, nil
}

func relativizeSummaryPaths(s *Summary) {
	wd, err := os.Getwd()
	if err != nil {
		return
	}
	rel := func(paths []string) []string {
		res := make([]string, 0, len(paths))
		for _, p := range paths {
			if r, err := filepath.Rel(wd, p); err == nil {
				p = r
			}
			res = append(res, p)
		}
		return res
	}
	s.Modified = rel(s.Modified)
	s.Failed = rel(s.Failed)
}
