//go:build !windows

package spawn_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-task/shexec/errors"
	"github.com/go-task/shexec/internal/env"
	"github.com/go-task/shexec/internal/spawn"
)

func writeScript(t *testing.T, dir, name, body string, mode os.FileMode) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), mode))
	return path
}

func TestLookPathCache(t *testing.T) {
	t.Parallel()

	bin := t.TempDir()
	path := writeScript(t, bin, "hello", "echo hi", 0o755)

	s := spawn.New(nil)
	found, err := s.LookPath("hello", bin, "/")
	require.NoError(t, err)
	assert.Equal(t, path, found)
	assert.Equal(t, [][2]string{{"hello", path}}, s.Hashed(bin))

	other := t.TempDir()
	assert.Empty(t, s.Hashed(other))
	_, err = s.LookPath("hello", other, "/")
	assert.Error(t, err)

	s.Forget()
	assert.Empty(t, s.Hashed(bin))
}

func TestLookPathNotExecutable(t *testing.T) {
	t.Parallel()

	bin := t.TempDir()
	writeScript(t, bin, "plain", "echo hi", 0o644)

	s := spawn.New(nil)
	_, err := s.LookPath("plain", bin, "/")
	var notExec *errors.NotExecutableError
	require.ErrorAs(t, err, &notExec)
	assert.Equal(t, 126, errors.Code(err))

	_, err = s.LookPath("./", bin, bin)
	require.ErrorAs(t, err, &notExec)

	_, err = s.LookPath("./missing", bin, bin)
	assert.Equal(t, 127, errors.Code(err))
}

func TestStartExternal(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeScript(t, dir, "greet", `echo "hello $NAME"; echo oops >&2; exit 3`, 0o755)

	var out, errOut bytes.Buffer
	s := spawn.New(nil)
	h, err := s.Dispatch(t.Context(), spawn.Request{
		Args:    []string{"./greet"},
		Environ: []string{"NAME=world"},
		Dir:     dir,
		Fds:     env.StdIO(strings.NewReader(""), &out, &errOut),
	})
	require.NoError(t, err)
	assert.NotZero(t, h.Pid())
	assert.Equal(t, 3, h.Wait(t.Context()).Int())
	assert.Equal(t, "hello world\n", out.String())
	assert.Equal(t, "oops\n", errOut.String())
}

func TestExtraFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeScript(t, dir, "to3", `echo three >&3`, 0o755)
	f, err := os.Create(filepath.Join(dir, "out"))
	require.NoError(t, err)
	defer f.Close()

	fds := env.StdIO(nil, nil, nil)
	fds.Set(3, env.WriteFd(f))
	s := spawn.New(nil)
	h, err := s.Start(t.Context(), spawn.Request{Args: []string{"./to3"}, Dir: dir, Fds: fds})
	require.NoError(t, err)
	assert.True(t, h.Wait(t.Context()).Success())

	data, err := os.ReadFile(f.Name())
	require.NoError(t, err)
	assert.Equal(t, "three\n", string(data))
}

func TestCancelInterrupts(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeScript(t, dir, "nap", `exec sleep 30`, 0o755)

	ctx, cancel := context.WithCancel(t.Context())
	s := spawn.New(nil)
	s.KillTimeout = 100 * time.Millisecond
	h, err := s.Start(ctx, spawn.Request{Args: []string{"./nap"}, Dir: dir, Fds: env.NewFdTable()})
	require.NoError(t, err)

	cancel()
	select {
	case <-h.Done():
	case <-time.After(10 * time.Second):
		t.Fatal("process was not stopped")
	}
	sig, ok := h.Wait(t.Context()).Signal()
	require.True(t, ok)
	assert.Contains(t, []int{int(syscall.SIGINT), int(syscall.SIGKILL)}, sig)
}

func TestCancelOverridesExitCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
		want syscall.Signal
	}{
		{"trapped", `trap "exit 0" INT; while :; do sleep 0.05; done`, syscall.SIGINT},
		{"ignored", `trap "" INT; while :; do sleep 0.05; done`, syscall.SIGKILL},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			dir := t.TempDir()
			writeScript(t, dir, "loop", tt.body, 0o755)

			ctx, cancel := context.WithCancel(t.Context())
			s := spawn.New(nil)
			s.KillTimeout = 200 * time.Millisecond
			h, err := s.Start(ctx, spawn.Request{Args: []string{"./loop"}, Dir: dir, Fds: env.NewFdTable()})
			require.NoError(t, err)

			time.Sleep(200 * time.Millisecond)
			cancel()
			select {
			case <-h.Done():
			case <-time.After(10 * time.Second):
				t.Fatal("process was not stopped")
			}
			st := h.Wait(t.Context())
			assert.False(t, st.Success())
			sig, ok := st.Signal()
			require.True(t, ok)
			assert.Equal(t, int(tt.want), sig)
		})
	}
}

func TestStartMissingDir(t *testing.T) {
	t.Parallel()

	bin := t.TempDir()
	writeScript(t, bin, "hello", "echo hi", 0o755)
	gone := filepath.Join(t.TempDir(), "gone")

	s := spawn.New(nil)
	_, err := s.Start(t.Context(), spawn.Request{Args: []string{"hello"}, Path: bin, Dir: gone, Fds: env.NewFdTable()})
	var ioErr *errors.IoError
	require.ErrorAs(t, err, &ioErr)
	assert.Equal(t, gone, ioErr.Path)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Equal(t, 1, errors.Code(err))

	_, err = s.Start(t.Context(), spawn.Request{Args: []string{"hello"}, Path: bin, Dir: filepath.Join(bin, "hello"), Fds: env.NewFdTable()})
	require.ErrorAs(t, err, &ioErr)
	assert.Contains(t, err.Error(), "not a directory")
}
