package unconsole

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExitCode(t *testing.T) {
	failures := &FailuresError{Failed: []*FileError{{Op: "read", Path: "a.js", Err: errors.New("denied")}}}

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, 0},
		{"plain", errors.New("boom"), 1},
		{"root not found", &RootNotFoundError{Path: "src"}, ExitRootNotFound},
		{"wrapped root not found", fmt.Errorf("run: %w", &RootNotFoundError{Path: "src"}), ExitRootNotFound},
		{"explicit code", withExitCode(failures, ExitFailures), ExitFailures},
		{"explicit code wins", withExitCode(&RootNotFoundError{Path: "src"}, 3), 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCode(tt.err))
		})
	}
}

func TestErrorMessages(t *testing.T) {
	nf := &RootNotFoundError{Path: "src"}
	assert.Equal(t, "root directory src not found", nf.Error())
	assert.ErrorIs(t, nf, ErrRootNotFound)

	inner := errors.New("denied")
	fe := &FileError{Op: "write", Path: "a.js", Err: inner}
	assert.Equal(t, "write a.js: denied", fe.Error())
	assert.ErrorIs(t, fe, inner)

	one := &FailuresError{Failed: []*FileError{fe}}
	assert.Equal(t, fe.Error(), one.Error())
	two := &FailuresError{Failed: []*FileError{fe, fe}}
	assert.Equal(t, "2 files failed", two.Error())

	assert.Nil(t, withExitCode(nil, 2))
}
