package status_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/go-task/shexec/internal/status"
)

func TestNegate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   status.ExitStatus
		want bool
	}{
		{"success", status.OK, false},
		{"failure", status.Failure, true},
		{"not found", status.NotFound, true},
		{"code 255", status.Code(255), true},
		{"sigint", status.Signaled(2), false},
		{"sigkill", status.Signaled(9), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.in.Negate().Success())
		})
	}
}

func TestInt(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0, status.OK.Int())
	assert.Equal(t, 127, status.NotFound.Int())
	assert.Equal(t, 130, status.Signaled(2).Int())
	assert.Equal(t, 1, status.Code(257).Int())
	assert.False(t, status.Signaled(15).Success())

	sig, ok := status.Signaled(15).Signal()
	assert.True(t, ok)
	assert.Equal(t, 15, sig)
}

func TestIsControl(t *testing.T) {
	t.Parallel()

	assert.True(t, status.IsControl(&status.Break{N: 1}))
	assert.True(t, status.IsControl(&status.Exit{Status: status.OK}))
	assert.False(t, status.IsControl(assert.AnError))
	assert.False(t, status.IsControl(nil))
}
