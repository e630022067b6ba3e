package pipeline_test

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-task/shexec/errors"
	"github.com/go-task/shexec/internal/env"
	"github.com/go-task/shexec/internal/pipeline"
	"github.com/go-task/shexec/internal/spawn"
	"github.com/go-task/shexec/internal/status"
)

func inProcess(fn func(ctx context.Context, fds *env.FdTable) status.ExitStatus) pipeline.Stage {
	return func(ctx context.Context, fds *env.FdTable) (spawn.Handle, error) {
		return spawn.Go(func() status.ExitStatus { return fn(ctx, fds) }), nil
	}
}

func write(s string, st status.ExitStatus) pipeline.Stage {
	return inProcess(func(_ context.Context, fds *env.FdTable) status.ExitStatus {
		_, _ = io.WriteString(fds.Stdout(), s)
		return st
	})
}

func collect(out *bytes.Buffer, st status.ExitStatus) pipeline.Stage {
	return inProcess(func(_ context.Context, fds *env.FdTable) status.ExitStatus {
		_, _ = io.Copy(out, fds.Stdin())
		return st
	})
}

func TestReduce(t *testing.T) {
	t.Parallel()

	c := status.Code
	tests := []struct {
		name     string
		statuses []status.ExitStatus
		pipefail bool
		want     int
	}{
		{"empty", nil, false, 0},
		{"last wins", []status.ExitStatus{c(1), c(0)}, false, 0},
		{"last fails", []status.ExitStatus{c(0), c(3)}, false, 3},
		{"pipefail right-most", []status.ExitStatus{c(1), c(2), c(0)}, true, 2},
		{"pipefail success", []status.ExitStatus{c(0), c(0)}, true, 0},
		{"pipefail signal", []status.ExitStatus{status.Signaled(13), c(0)}, true, 141},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, test.want, pipeline.Reduce(test.statuses, test.pipefail).Int())
		})
	}
}

func TestConnectsStages(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	st, err := pipeline.Run(t.Context(), env.NewFdTable(), []pipeline.Stage{
		write("hello\n", status.Code(1)),
		inProcess(func(_ context.Context, fds *env.FdTable) status.ExitStatus {
			data, _ := io.ReadAll(fds.Stdin())
			_, _ = io.WriteString(fds.Stdout(), strings.ToUpper(string(data)))
			return status.OK
		}),
		collect(&out, status.OK),
	}, pipeline.Options{})
	require.NoError(t, err)
	assert.True(t, st.Success())
	assert.Equal(t, "HELLO\n", out.String())
}

func TestPipefail(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	stages := []pipeline.Stage{write("x", status.Code(2)), write("y", status.Code(3)), collect(&out, status.OK)}

	st, err := pipeline.Run(t.Context(), env.NewFdTable(), stages, pipeline.Options{})
	require.NoError(t, err)
	assert.Equal(t, 0, st.Int())

	out.Reset()
	st, err = pipeline.Run(t.Context(), env.NewFdTable(), stages, pipeline.Options{Pipefail: true})
	require.NoError(t, err)
	assert.Equal(t, 3, st.Int())
}

func TestStderrToo(t *testing.T) {
	t.Parallel()

	var out, stderr bytes.Buffer
	both := inProcess(func(_ context.Context, fds *env.FdTable) status.ExitStatus {
		_, _ = io.WriteString(fds.Stdout(), "out\n")
		_, _ = io.WriteString(fds.Stderr(), "err\n")
		return status.OK
	})

	fds := env.StdIO(nil, nil, &stderr)
	_, err := pipeline.Run(t.Context(), fds, []pipeline.Stage{both, collect(&out, status.OK)}, pipeline.Options{StderrToo: []bool{true}})
	require.NoError(t, err)
	assert.Equal(t, "out\nerr\n", out.String())
	assert.Empty(t, stderr.String())

	out.Reset()
	_, err = pipeline.Run(t.Context(), fds, []pipeline.Stage{both, collect(&out, status.OK)}, pipeline.Options{})
	require.NoError(t, err)
	assert.Equal(t, "out\n", out.String())
	assert.Equal(t, "err\n", stderr.String())
}

func TestStartFailure(t *testing.T) {
	t.Parallel()

	var (
		mu     sync.Mutex
		failed []int
		out    bytes.Buffer
	)
	notFound := func(context.Context, *env.FdTable) (spawn.Handle, error) {
		return nil, &errors.CommandNotFoundError{Name: "zzzznotreal"}
	}
	st, err := pipeline.Run(t.Context(), env.NewFdTable(), []pipeline.Stage{write("a", status.OK), notFound}, pipeline.Options{
		OnError: func(i int, err error) {
			mu.Lock()
			defer mu.Unlock()
			failed = append(failed, i)
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 127, st.Int())
	assert.Equal(t, []int{1}, failed)
	assert.Empty(t, out.String())
}

func TestLargeTransfer(t *testing.T) {
	t.Parallel()

	const size = 10 << 20
	var n int64
	st, err := pipeline.Run(t.Context(), env.NewFdTable(), []pipeline.Stage{
		inProcess(func(_ context.Context, fds *env.FdTable) status.ExitStatus {
			chunk := bytes.Repeat([]byte("x"), 64<<10)
			for written := 0; written < size; written += len(chunk) {
				if _, err := fds.Stdout().Write(chunk); err != nil {
					return status.Failure
				}
			}
			return status.OK
		}),
		inProcess(func(_ context.Context, fds *env.FdTable) status.ExitStatus {
			n, _ = io.Copy(io.Discard, fds.Stdin())
			return status.OK
		}),
	}, pipeline.Options{Pipefail: true})
	require.NoError(t, err)
	assert.True(t, st.Success())
	assert.Equal(t, int64(size), n)
}

func TestBrokenPipeStopsWriter(t *testing.T) {
	t.Parallel()

	yes := inProcess(func(ctx context.Context, fds *env.FdTable) status.ExitStatus {
		for {
			if _, err := io.WriteString(fds.Stdout(), "y\n"); err != nil {
				if pipeline.BrokenPipe(ctx) {
					return status.Signaled(int(syscall.SIGPIPE))
				}
				return status.Failure
			}
		}
	})
	head := inProcess(func(_ context.Context, fds *env.FdTable) status.ExitStatus {
		buf := make([]byte, 2)
		_, _ = io.ReadFull(fds.Stdin(), buf)
		return status.OK
	})

	st, err := pipeline.Run(t.Context(), env.NewFdTable(), []pipeline.Stage{yes, head}, pipeline.Options{Pipefail: true})
	require.NoError(t, err)
	assert.Equal(t, 128+int(syscall.SIGPIPE), st.Int())
}
