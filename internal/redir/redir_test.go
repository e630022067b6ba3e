package redir_test

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-task/shexec/ast"
	"github.com/go-task/shexec/errors"
	"github.com/go-task/shexec/internal/env"
	"github.com/go-task/shexec/internal/expand"
	"github.com/go-task/shexec/internal/redir"
	"github.com/go-task/shexec/parse"
)

func setup(t *testing.T) (*expand.Config, *env.FdTable, *bytes.Buffer) {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/work/in.txt", []byte("input\n"), 0o644))
	var stdout bytes.Buffer
	e := env.New("/work")
	fds := env.StdIO(nil, &stdout, &stdout)
	e.SetFds(fds)
	return &expand.Config{Env: e, Fs: fs}, fds, &stdout
}

func redirects(t *testing.T, src string) []*ast.Redirect {
	t.Helper()
	script, err := parse.String("cmd "+src, "test")
	require.NoError(t, err)
	return script.Stmts[0].Redirs
}

func TestOutputAndRestore(t *testing.T) {
	t.Parallel()

	cfg, fds, stdout := setup(t)
	before := fds.Snapshot()

	g, err := redir.Apply(context.Background(), cfg, redirects(t, ">out.txt 2>&1"), fds)
	require.NoError(t, err)
	_, err = io.WriteString(fds.Stdout(), "to file\n")
	require.NoError(t, err)
	_, err = io.WriteString(fds.Stderr(), "also\n")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, g.Changed())

	g.Release()
	g.Release()
	assert.Equal(t, before, fds.Snapshot())
	assert.Empty(t, stdout.String())

	data, err := afero.ReadFile(cfg.Fs, "/work/out.txt")
	require.NoError(t, err)
	assert.Equal(t, "to file\nalso\n", string(data))
}

func TestAppendAndInput(t *testing.T) {
	t.Parallel()

	cfg, fds, _ := setup(t)
	g, err := redir.Apply(context.Background(), cfg, redirects(t, "<in.txt >>in.txt"), fds)
	require.NoError(t, err)
	data, err := io.ReadAll(fds.Stdin())
	require.NoError(t, err)
	assert.Equal(t, "input\n", string(data))
	_, err = io.WriteString(fds.Stdout(), "more\n")
	require.NoError(t, err)
	g.Release()

	data, err = afero.ReadFile(cfg.Fs, "/work/in.txt")
	require.NoError(t, err)
	assert.Equal(t, "input\nmore\n", string(data))
}

func TestFailureRestores(t *testing.T) {
	t.Parallel()

	cfg, fds, _ := setup(t)
	before := fds.Snapshot()

	_, err := redir.Apply(context.Background(), cfg, redirects(t, ">ok.txt <missing.txt"), fds)
	var ioErr *errors.IoError
	require.ErrorAs(t, err, &ioErr)
	assert.Equal(t, "missing.txt", ioErr.Path)
	assert.Equal(t, before, fds.Snapshot())

	_, err = redir.Apply(context.Background(), cfg, redirects(t, ">x.txt 1>&7"), fds)
	require.ErrorIs(t, err, errors.ErrBadFd)
	assert.Equal(t, before, fds.Snapshot())
}

func TestCloseAndMove(t *testing.T) {
	t.Parallel()

	cfg, fds, _ := setup(t)
	g, err := redir.Apply(context.Background(), cfg, redirects(t, "3>&1 1>&-"), fds)
	require.NoError(t, err)
	_, open := fds.Get(1)
	assert.False(t, open)
	_, open = fds.Get(3)
	assert.True(t, open)
	g.Release()
	_, open = fds.Get(1)
	assert.True(t, open)
	_, open = fds.Get(3)
	assert.False(t, open)
}

func TestNoclobber(t *testing.T) {
	t.Parallel()

	cfg, fds, _ := setup(t)
	cfg.Env.Options().Noclobber = true

	_, err := redir.Apply(context.Background(), cfg, redirects(t, ">in.txt"), fds)
	require.Error(t, err)

	g, err := redir.Apply(context.Background(), cfg, redirects(t, ">|in.txt"), fds)
	require.NoError(t, err)
	g.Release()
}

func TestHeredocs(t *testing.T) {
	t.Parallel()

	cfg, fds, _ := setup(t)
	require.NoError(t, cfg.Env.Set("WHO", "you", false))

	tests := []struct {
		src  string
		want string
	}{
		{"<<EOF\nhi $WHO\nEOF", "hi you\n"},
		{"<<'EOF'\nhi $WHO\nEOF", "hi $WHO\n"},
		{"<<-EOF\n\t\tindented\n\tEOF", "indented\n"},
		{"<<<\"$WHO there\"", "you there\n"},
	}
	for _, tt := range tests {
		g, err := redir.Apply(context.Background(), cfg, redirects(t, tt.src), fds)
		require.NoError(t, err, tt.src)
		data, err := io.ReadAll(fds.Stdin())
		require.NoError(t, err)
		assert.Equal(t, tt.want, string(data), tt.src)
		g.Release()
	}
}

func TestDevNull(t *testing.T) {
	t.Parallel()

	cfg, fds, stdout := setup(t)
	g, err := redir.Apply(context.Background(), cfg, redirects(t, ">/dev/null"), fds)
	require.NoError(t, err)
	_, err = io.WriteString(fds.Stdout(), "gone")
	require.NoError(t, err)
	g.Release()
	assert.Empty(t, stdout.String())
}

func TestKeep(t *testing.T) {
	t.Parallel()

	cfg, fds, _ := setup(t)
	g, err := redir.Apply(context.Background(), cfg, redirects(t, "2>/dev/null"), fds)
	require.NoError(t, err)
	g.Keep()
	g.Release()
	desc, ok := fds.Get(2)
	require.True(t, ok)
	_, isFile := desc.File()
	assert.True(t, isFile)
}
