//go:build !windows

package pipeline_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-task/shexec/internal/env"
	"github.com/go-task/shexec/internal/pipeline"
	"github.com/go-task/shexec/internal/spawn"
)

func external(s *spawn.Spawner, args ...string) pipeline.Stage {
	return func(ctx context.Context, fds *env.FdTable) (spawn.Handle, error) {
		return s.Start(ctx, spawn.Request{Args: args, Dir: "/", Path: "/bin:/usr/bin", Fds: fds})
	}
}

func TestExternalLargeTransfer(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	s := spawn.New(nil)
	st, err := pipeline.Run(t.Context(), env.StdIO(nil, &out, nil), []pipeline.Stage{
		external(s, "head", "-c", "10485760", "/dev/zero"),
		external(s, "wc", "-c"),
	}, pipeline.Options{})
	require.NoError(t, err)
	assert.True(t, st.Success())
	assert.Equal(t, "10485760", strings.TrimSpace(out.String()))
}

func TestExternalReaderExitsFirst(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	s := spawn.New(nil)
	st, err := pipeline.Run(t.Context(), env.StdIO(nil, &out, nil), []pipeline.Stage{
		external(s, "yes"),
		external(s, "head", "-n", "2"),
	}, pipeline.Options{})
	require.NoError(t, err)
	assert.True(t, st.Success())
	assert.Equal(t, "y\ny\n", out.String())
}
