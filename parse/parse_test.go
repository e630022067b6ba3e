package parse_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-task/shexec/ast"
	"github.com/go-task/shexec/errors"
	"github.com/go-task/shexec/parse"
)

func parseOne(t *testing.T, src string) *ast.Stmt {
	t.Helper()
	script, err := parse.String(src, "test")
	require.NoError(t, err)
	require.Len(t, script.Stmts, 1)
	return script.Stmts[0]
}

func TestSimpleCommand(t *testing.T) {
	t.Parallel()

	st := parseOne(t, `FOO=bar echo hello "$FOO"`)
	call, ok := st.Cmd.(*ast.CallExpr)
	require.True(t, ok)
	require.Len(t, call.Assigns, 1)
	assert.Equal(t, "FOO", call.Assigns[0].Name)
	require.Len(t, call.Args, 3)
	lit, ok := call.Args[0].Lit()
	assert.True(t, ok)
	assert.Equal(t, "echo", lit)

	dq, ok := call.Args[2].Parts[0].(*ast.DblQuoted)
	require.True(t, ok)
	pe, ok := dq.Parts[0].(*ast.ParamExp)
	require.True(t, ok)
	assert.Equal(t, "FOO", pe.Name)
	assert.Equal(t, `FOO=bar echo hello "$FOO"`, st.Text)
}

func TestGlobAndEscapes(t *testing.T) {
	t.Parallel()

	st := parseOne(t, `ls *.go a\*b [ab]c`)
	args := st.Cmd.(*ast.CallExpr).Args

	assert.Equal(t, []ast.WordPart{&ast.Glob{Pattern: "*"}, &ast.Lit{Value: ".go"}}, args[1].Parts)
	assert.Equal(t, []ast.WordPart{&ast.Lit{Value: "a*b"}}, args[2].Parts)
	assert.Equal(t, []ast.WordPart{&ast.Glob{Pattern: "[ab]"}, &ast.Lit{Value: "c"}}, args[3].Parts)
}

func TestTilde(t *testing.T) {
	t.Parallel()

	st := parseOne(t, `echo ~ ~/bin ~root/x '~'`)
	args := st.Cmd.(*ast.CallExpr).Args

	assert.Equal(t, []ast.WordPart{&ast.Tilde{}}, args[1].Parts)
	assert.Equal(t, []ast.WordPart{&ast.Tilde{}, &ast.Lit{Value: "/bin"}}, args[2].Parts)
	assert.Equal(t, []ast.WordPart{&ast.Tilde{User: "root"}, &ast.Lit{Value: "/x"}}, args[3].Parts)
	assert.Equal(t, []ast.WordPart{&ast.SglQuoted{Value: "~"}}, args[4].Parts)
}

func TestParamOperators(t *testing.T) {
	t.Parallel()

	tests := map[string]ast.ParamOp{
		`${x:-def}`: ast.DefaultUnsetNull,
		`${x-def}`:  ast.DefaultUnset,
		`${x:=def}`: ast.AssignUnsetNull,
		`${x?msg}`:  ast.ErrorUnset,
		`${x:+alt}`: ast.AlternateUnsetNull,
		`${x%.go}`:  ast.RemSmallSuffix,
		`${x%%.*}`:  ast.RemLargeSuffix,
		`${x#*/}`:   ast.RemSmallPrefix,
		`${x##*/}`:  ast.RemLargePrefix,
	}
	for src, op := range tests {
		t.Run(src, func(t *testing.T) {
			t.Parallel()
			st := parseOne(t, "echo "+src)
			pe := st.Cmd.(*ast.CallExpr).Args[1].Parts[0].(*ast.ParamExp)
			assert.Equal(t, "x", pe.Name)
			assert.Equal(t, op, pe.Op)
			require.NotNil(t, pe.Arg)
		})
	}
}

func TestLength(t *testing.T) {
	t.Parallel()

	st := parseOne(t, `echo ${#x}`)
	pe := st.Cmd.(*ast.CallExpr).Args[1].Parts[0].(*ast.ParamExp)
	assert.True(t, pe.Length)
	assert.Equal(t, ast.ParamNone, pe.Op)
}

func TestCompound(t *testing.T) {
	t.Parallel()

	st := parseOne(t, "if a; then b; elif c; then d; else e; fi")
	ic, ok := st.Cmd.(*ast.IfClause)
	require.True(t, ok)
	require.Len(t, ic.Else, 1)
	elif, ok := ic.Else[0].Cmd.(*ast.IfClause)
	require.True(t, ok)
	require.Len(t, elif.Else, 1)
	assert.Equal(t, ast.Call("e").Cmd, elif.Else[0].Cmd)

	st = parseOne(t, "for i; do echo $i; done")
	fc := st.Cmd.(*ast.ForClause)
	assert.True(t, fc.InParams)
	assert.Equal(t, "i", fc.Name)

	st = parseOne(t, "a | b | c")
	bc := st.Cmd.(*ast.BinaryCmd)
	assert.Equal(t, ast.Pipe, bc.Op)
	_, nested := bc.X.Cmd.(*ast.BinaryCmd)
	assert.True(t, nested)

	st = parseOne(t, "while false; do :; done &")
	assert.True(t, st.Background)
	_, ok = st.Cmd.(*ast.WhileClause)
	assert.True(t, ok)
}

func TestRedirects(t *testing.T) {
	t.Parallel()

	st := parseOne(t, "cmd <in >out 2>&1 3>>log &>all")
	require.Len(t, st.Redirs, 5)
	assert.Equal(t, 0, st.Redirs[0].Fd)
	assert.Equal(t, ast.RdrIn, st.Redirs[0].Op)
	assert.Equal(t, 1, st.Redirs[1].Fd)
	assert.Equal(t, ast.RdrOut, st.Redirs[1].Op)
	assert.Equal(t, 2, st.Redirs[2].Fd)
	assert.Equal(t, ast.DplOut, st.Redirs[2].Op)
	assert.Equal(t, 3, st.Redirs[3].Fd)
	assert.Equal(t, ast.AppOut, st.Redirs[3].Op)
	assert.Equal(t, ast.RdrAll, st.Redirs[4].Op)
}

func TestHeredoc(t *testing.T) {
	t.Parallel()

	st := parseOne(t, "cat <<EOF\nhello \\$HOME $X\nEOF")
	require.Len(t, st.Redirs, 1)
	rd := st.Redirs[0]
	assert.Equal(t, ast.Hdoc, rd.Op)
	assert.False(t, rd.Quoted)
	require.NotNil(t, rd.Hdoc)
	assert.Equal(t, &ast.Lit{Value: "hello $HOME "}, rd.Hdoc.Parts[0])

	st = parseOne(t, "cat <<'EOF'\n$X\nEOF")
	rd = st.Redirs[0]
	assert.True(t, rd.Quoted)
	assert.Equal(t, ast.LitWord("$X\n"), rd.Hdoc)
}

func TestArithm(t *testing.T) {
	t.Parallel()

	st := parseOne(t, "echo $((a > 1 ? 2 : 3))")
	ae := st.Cmd.(*ast.CallExpr).Args[1].Parts[0].(*ast.ArithmExp)
	tern, ok := ae.X.(*ast.ArithTernary)
	require.True(t, ok)
	cond := tern.Cond.(*ast.ArithBinary)
	assert.Equal(t, ast.Gtr, cond.Op)

	st = parseOne(t, "(( i++ ))")
	cmd := st.Cmd.(*ast.ArithmCmd)
	un := cmd.X.(*ast.ArithUnary)
	assert.Equal(t, ast.Inc, un.Op)
	assert.True(t, un.Post)
}

func TestDeclClause(t *testing.T) {
	t.Parallel()

	st := parseOne(t, "export -p FOO BAR=baz")
	decl, ok := st.Cmd.(*ast.DeclClause)
	require.True(t, ok)
	assert.Equal(t, "export", decl.Variant)
	require.Len(t, decl.Args, 3)
	assert.True(t, decl.Args[0].Naked)
	assert.True(t, decl.Args[1].Naked)
	assert.Equal(t, "FOO", decl.Args[1].Name)
	assert.False(t, decl.Args[2].Naked)
	assert.Equal(t, "BAR", decl.Args[2].Name)
}

func TestUnsupported(t *testing.T) {
	t.Parallel()

	for _, src := range []string{
		"[[ -n x ]]",
		"a=(1 2 3)",
		"diff <(ls) <(ls -a)",
		"echo ${x/a/b}",
		"for ((i=0; i<3; i++)); do :; done",
		"time sleep 1",
	} {
		t.Run(src, func(t *testing.T) {
			t.Parallel()
			_, err := parse.String(src, "test")
			var unsupportedErr *errors.UnsupportedError
			require.ErrorAs(t, err, &unsupportedErr)
			assert.Equal(t, errors.CodeUsage, errors.Code(err))
		})
	}
}

func TestSyntaxError(t *testing.T) {
	t.Parallel()

	_, err := parse.String("if true; then", "broken.sh")
	var parseErr *errors.ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Contains(t, err.Error(), "broken.sh")
}

func TestInteractive(t *testing.T) {
	t.Parallel()

	var (
		complete   []int
		incomplete int
	)
	err := parse.Interactive(strings.NewReader("echo a; echo b\nif true\nthen echo c\nfi\n"), "stdin", func(script *ast.Script, more bool, err error) bool {
		require.NoError(t, err)
		if more {
			incomplete++
			return true
		}
		complete = append(complete, len(script.Stmts))
		return true
	})
	require.NoError(t, err)
	assert.Equal(t, []int{2, 1}, complete)
	assert.GreaterOrEqual(t, incomplete, 1)

	err = parse.Interactive(strings.NewReader("echo )\n"), "stdin", func(*ast.Script, bool, error) bool {
		return true
	})
	var parseErr *errors.ParseError
	assert.ErrorAs(t, err, &parseErr)
}
