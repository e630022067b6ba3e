package errors_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/go-task/shexec/errors"
	"github.com/go-task/shexec/internal/status"
)

func TestCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, errors.CodeOk},
		{"plain", errors.New("boom"), errors.CodeUnknown},
		{"not found", &errors.CommandNotFoundError{Name: "zzzznotreal"}, 127},
		{"not executable", &errors.NotExecutableError{Path: "/etc"}, 126},
		{"wrapped not found", fmt.Errorf("running: %w", &errors.CommandNotFoundError{Name: "x"}), 127},
		{"exit status", &errors.ExitStatusError{Status: status.Code(42)}, 42},
		{"signaled", &errors.ExitStatusError{Status: status.Signaled(2)}, 130},
		{"fatal", &errors.FatalError{Op: "pipe", Err: errors.New("too many open files")}, errors.CodeUsage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, errors.Code(tt.err))
		})
	}
}

func TestMessages(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "zzzznotreal: command not found", (&errors.CommandNotFoundError{Name: "zzzznotreal"}).Error())
	assert.Equal(t, `ecoh: command not found. Did you mean "echo"?`, (&errors.CommandNotFoundError{Name: "ecoh", DidYouMean: "echo"}).Error())
	assert.Equal(t, "FOO: readonly variable", (&errors.ReadonlyVariableError{Name: "FOO"}).Error())
	assert.Equal(t, "x: parameter null or not set", (&errors.ExpansionError{Param: "x", Msg: "parameter null or not set"}).Error())
	assert.Equal(t, "3: bad file descriptor", (&errors.IoError{Fd: 3, Err: errors.ErrBadFd}).Error())
	assert.Equal(t, "/nope: no such file", (&errors.IoError{Path: "/nope", Err: errors.New("no such file")}).Error())
}
