package env_test

import (
	"bytes"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-task/shexec/ast"
	"github.com/go-task/shexec/errors"
	"github.com/go-task/shexec/internal/env"
	"github.com/go-task/shexec/internal/status"
)

func TestSetGet(t *testing.T) {
	t.Parallel()

	e := env.FromEnviron("/", []string{"HOME=/home/me", "broken"})
	v, ok := e.Get("HOME")
	require.True(t, ok)
	assert.True(t, v.Exported)
	assert.Equal(t, "/home/me", v.Value)

	require.NoError(t, e.Set("VAR", "hi", false))
	assert.Equal(t, "hi", e.Value("VAR"))
	assert.Equal(t, "", e.Value("UNSET"))
	assert.Equal(t, []string{"HOME=/home/me"}, e.Environ())

	require.NoError(t, e.Set("VAR", "there", true))
	assert.Equal(t, []string{"HOME=/home/me", "VAR=there"}, e.Environ())
}

func TestReadonly(t *testing.T) {
	t.Parallel()

	e := env.New("/")
	require.NoError(t, e.Set("X", "1", false))
	e.SetReadonly("X")

	var roErr *errors.ReadonlyVariableError
	require.ErrorAs(t, e.Set("X", "2", false), &roErr)
	require.ErrorAs(t, e.Unset("X"), &roErr)
	assert.Equal(t, "1", e.Value("X"))
}

func TestFunctionScope(t *testing.T) {
	t.Parallel()

	e := env.New("/")
	require.NoError(t, e.Set("G", "global", false))
	require.NoError(t, e.Set("L", "outer", false))

	fn := e.PushFunc()
	value := "inner"
	require.NoError(t, fn.Local("L", &value))
	require.NoError(t, fn.Set("G", "changed", false))
	require.NoError(t, fn.Set("NEW", "made", false))

	assert.Equal(t, "inner", fn.Value("L"))
	assert.Equal(t, "outer", e.Value("L"))
	assert.Equal(t, "changed", e.Value("G"))
	assert.Equal(t, "made", e.Value("NEW"))

	fn.SetParams([]string{"a", "b"})
	assert.Empty(t, e.Params())
	fn.Chdir("/tmp")
	assert.Equal(t, "/tmp", e.Dir())
}

func TestFork(t *testing.T) {
	t.Parallel()

	e := env.New("/")
	require.NoError(t, e.Set("X", "0", false))
	e.DefineFunc("f", &ast.Block{})
	e.SetParams([]string{"one"})

	sub := e.Fork()
	require.NoError(t, sub.Set("X", "1", false))
	sub.DefineFunc("g", &ast.Block{})
	sub.UnsetFunc("f")
	sub.Chdir("/tmp")
	require.NoError(t, sub.Shift(1))
	sub.SetLastStatus(status.Code(3))
	sub.Options().Errexit = true

	assert.Equal(t, "0", e.Value("X"))
	_, ok := e.Func("f")
	assert.True(t, ok)
	_, ok = e.Func("g")
	assert.False(t, ok)
	assert.Equal(t, "/", e.Dir())
	assert.Equal(t, []string{"one"}, e.Params())
	assert.Equal(t, "0", e.Value("?"))
	assert.False(t, e.Options().Errexit)
	assert.Equal(t, 1, sub.Subshell())
}

func TestSpecialParams(t *testing.T) {
	t.Parallel()

	e := env.New("/")
	e.SetName("script.sh")
	e.SetParams([]string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j"})
	e.SetLastStatus(status.Signaled(9))
	e.Options().Errexit = true
	e.Options().Nounset = true

	assert.Equal(t, "137", e.Value("?"))
	assert.Equal(t, "10", e.Value("#"))
	assert.Equal(t, "script.sh", e.Value("0"))
	assert.Equal(t, "a", e.Value("1"))
	assert.Equal(t, "j", e.Value("10"))
	assert.Equal(t, "eu", e.Value("-"))
	_, ok := e.Param("11")
	assert.False(t, ok)
	_, ok = e.Param("!")
	assert.False(t, ok)
	e.SetLastBackground(42)
	assert.Equal(t, "42", e.Value("!"))
}

func TestShift(t *testing.T) {
	t.Parallel()

	e := env.New("/")
	e.SetParams([]string{"a", "b"})
	require.Error(t, e.Shift(3))
	assert.Equal(t, []string{"a", "b"}, e.Params())
	require.NoError(t, e.Shift(1))
	assert.Equal(t, []string{"b"}, e.Params())
}

func TestFdTable(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	fds := env.StdIO(nil, &out, nil)
	snap := fds.Snapshot()

	clone := fds.Clone()
	clone.Close(1)
	_, ok := fds.Get(1)
	assert.True(t, ok)

	fds.Set(3, env.ReadFd(&out))
	fds.Close(1)
	_, err := fds.Stdout().Write([]byte("x"))
	require.ErrorIs(t, err, errors.ErrBadFd)

	fds.Restore(snap)
	assert.Equal(t, []int{1}, fds.Fds())
	_, err = fds.Stdout().Write([]byte("ok"))
	require.NoError(t, err)
	assert.Equal(t, "ok", out.String())
}

func TestStdIOConcurrentWriters(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	fds := env.StdIO(nil, &out, &out)
	line := []byte("0123456789abcdef\n")

	var wg sync.WaitGroup
	for _, fd := range []int{1, 1, 2, 2} {
		w := fds.Writer(fd)
		wg.Go(func() {
			for range 500 {
				_, _ = w.Write(line)
			}
		})
	}
	wg.Wait()

	assert.Equal(t, 4*500*len(line), out.Len())
	assert.Equal(t, 4*500, strings.Count(out.String(), string(line)))
}

func TestStdIOKeepsFiles(t *testing.T) {
	t.Parallel()

	fds := env.StdIO(os.Stdin, os.Stdout, os.Stderr)
	f, ok := fds.Get(1)
	require.True(t, ok)
	file, ok := f.File()
	assert.True(t, ok)
	assert.Same(t, os.Stdout, file)
}

func TestOptions(t *testing.T) {
	t.Parallel()

	var o env.Options
	require.NoError(t, o.SetByName("pipefail", true))
	require.NoError(t, o.SetByLetter('x', true))
	require.Error(t, o.SetByName("nope", true))
	require.Error(t, o.SetByLetter('Z', true))
	assert.True(t, o.Pipefail)
	assert.True(t, o.Xtrace)
	assert.Equal(t, "x", o.Flags())

	policy, err := env.ParseGlobPolicy("fail")
	require.NoError(t, err)
	assert.Equal(t, env.GlobFail, policy)
	_, err = env.ParseGlobPolicy("sometimes")
	require.Error(t, err)
}

func TestLoadDotenv(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/proj/.env", []byte("A=from-file\nB=two\n"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/proj/.env.local", []byte("B=ignored\nC=three\n"), 0o644))

	e := env.FromEnviron("/proj", []string{"A=from-env"})
	require.NoError(t, e.LoadDotenv(fs, ".env", ".env.local", "missing.env"))

	assert.Equal(t, "from-env", e.Value("A"))
	assert.Equal(t, "two", e.Value("B"))
	assert.Equal(t, "three", e.Value("C"))
	v, _ := e.Get("C")
	assert.True(t, v.Exported)
}

func TestGetShellEnv(t *testing.T) {
	t.Setenv("SHEXEC_TEST_BOOL", "TRUE")
	t.Setenv("SHEXEC_TEST_DUR_BAD", "abc")
	t.Setenv("SHEXEC_TEST_DUR", "1h30m")
	t.Setenv("SHEXEC_TEST_SLICE", "a, b ,,c")

	b, ok := env.GetShellEnvBool("TEST_BOOL")
	assert.True(t, ok)
	assert.True(t, b)

	_, ok = env.GetShellEnvDuration("TEST_DUR_BAD")
	assert.False(t, ok)

	d, ok := env.GetShellEnvDuration("TEST_DUR")
	assert.True(t, ok)
	assert.Equal(t, 90*time.Minute, d)

	s, ok := env.GetShellEnvStringSlice("TEST_SLICE")
	assert.True(t, ok)
	assert.Equal(t, []string{"a", "b", "c"}, s)

	_, ok = env.GetShellEnvStringSlice("TEST_UNSET")
	assert.False(t, ok)
}
