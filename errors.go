package unconsole

import (
	"errors"
	"fmt"
)

var (
	ErrRootNotFound = errors.New("root not found")
	ErrNotDirectory = errors.New("root is not a directory")
	ErrDirtyTree    = errors.New("worktree has uncommitted changes")
)

const (
	ExitFailures     = 1
	ExitRootNotFound = 2
)

// RootNotFoundError names the missing root. It matches ErrRootNotFound with errors.Is.
type RootNotFoundError struct {
	Path string
}

func (e *RootNotFoundError) Error() string {
	return fmt.Sprintf("root directory %s not found", e.Path)
}

func (e *RootNotFoundError) Unwrap() error { return ErrRootNotFound }

// FileError is an I/O failure on a single path. It aborts that file only.
type FileError struct {
	Op   string
	Path string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *FileError) Unwrap() error { return e.Err }

// FailuresError is returned after a full walk that skipped one or more files.
type FailuresError struct {
	Failed []*FileError
}

func (e *FailuresError) Error() string {
	if len(e.Failed) == 1 {
		return e.Failed[0].Error()
	}
	return fmt.Sprintf("%d files failed", len(e.Failed))
}

type DetailedError struct {
	Err   error
	Stack []byte
}

func (e *DetailedError) Error() string { return e.Err.Error() }

func (e *DetailedError) Unwrap() error { return e.Err }

type exitCoder interface {
	ExitCode() int
}

type exitError struct {
	code int
	err  error
}

func (e exitError) Error() string {
	if e.err == nil {
		return ""
	}
	return e.err.Error()
}

func (e exitError) Unwrap() error { return e.err }

func (e exitError) ExitCode() int {
	if e.code == 0 {
		return 1
	}
	return e.code
}

func withExitCode(err error, code int) error {
	if err == nil {
		return nil
	}
	return exitError{code: code, err: err}
}

// ExitCode maps an error returned by Execute to a process exit status.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var coded exitCoder
	if errors.As(err, &coded) {
		return coded.ExitCode()
	}
	if errors.Is(err, ErrRootNotFound) {
		return ExitRootNotFound
	}
	return 1
}
