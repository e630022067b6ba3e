package expand_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-task/shexec/ast"
	"github.com/go-task/shexec/errors"
	"github.com/go-task/shexec/internal/expand"
	"github.com/go-task/shexec/parse"
)

func arithm(t *testing.T, cfg *expand.Config, src string) (int, error) {
	t.Helper()
	script, err := parse.String("(( "+src+" ))", "test")
	require.NoError(t, err)
	return expand.Arithm(context.Background(), cfg, script.Stmts[0].Cmd.(*ast.ArithmCmd).X)
}

func TestArithm(t *testing.T) {
	t.Parallel()

	tests := []struct {
		src  string
		want int
	}{
		{"1 + 2 * 3", 7},
		{"(1 + 2) * 3", 9},
		{"7 / 2", 3},
		{"7 % 3", 1},
		{"-7 / 2", -3},
		{"2 ** 10", 1024},
		{"3 ** 0", 1},
		{"2 ** 62", 1 << 62},
		{"2 ** 64", 0},
		{"1 ** 40000000000", 1},
		{"(-1) ** 40000000001", -1},
		{"1 << 4", 16},
		{"256 >> 4", 16},
		{"6 & 3", 2},
		{"6 | 3", 7},
		{"6 ^ 3", 5},
		{"~0", -1},
		{"!0", 1},
		{"!5", 0},
		{"3 > 2 && 2 > 1", 1},
		{"0 || 0", 0},
		{"1 == 1", 1},
		{"1 != 1", 0},
		{"2 <= 2", 1},
		{"1 ? 10 : 20", 10},
		{"0 ? 10 : 20", 20},
		{"010", 8},
		{"0x1f", 31},
		{"2#101", 5},
		{"16#ff", 255},
		{"36#z", 35},
		{"1, 2", 2},
		{"N + 1", 42},
		{"UNSET_VAR + 1", 1},
		{"INDIRECT * 2", 82},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			t.Parallel()
			cfg := newConfig(t)
			require.NoError(t, cfg.Env.Set("N", "41", false))
			require.NoError(t, cfg.Env.Set("INDIRECT", "N", false))
			got, err := arithm(t, cfg, tt.src)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestArithmAssign(t *testing.T) {
	t.Parallel()

	cfg := newConfig(t)
	got, err := arithm(t, cfg, "x = 5")
	require.NoError(t, err)
	assert.Equal(t, 5, got)

	got, err = arithm(t, cfg, "x += 3")
	require.NoError(t, err)
	assert.Equal(t, 8, got)

	got, err = arithm(t, cfg, "x++")
	require.NoError(t, err)
	assert.Equal(t, 8, got)
	assert.Equal(t, "9", cfg.Env.Value("x"))

	got, err = arithm(t, cfg, "--x")
	require.NoError(t, err)
	assert.Equal(t, 8, got)

	got, err = arithm(t, cfg, "x <<= 1")
	require.NoError(t, err)
	assert.Equal(t, 16, got)
}

func TestArithmErrors(t *testing.T) {
	t.Parallel()

	cfg := newConfig(t)
	require.NoError(t, cfg.Env.Set("BAD", "12abc", false))

	for _, src := range []string{"1 / 0", "5 % 0", "2 ** -1", "BAD + 1", "2#3"} {
		_, err := arithm(t, cfg, src)
		var expErr *errors.ExpansionError
		require.ErrorAs(t, err, &expErr, src)
	}

	cfg.Env.Options().Nounset = true
	_, err := arithm(t, cfg, "MISSING + 1")
	require.Error(t, err)
}
