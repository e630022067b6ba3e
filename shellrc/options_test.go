package shellrc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/go-task/shexec"
	"github.com/go-task/shexec/shellrc/ast"
)

func TestRunnerOptions(t *testing.T) {
	t.Parallel()

	assert.Empty(t, RunnerOptions(nil))

	var r shexec.Runner
	r.SetOptions(RunnerOptions(&ast.ShellRC{
		Options:     ast.Options{Errexit: ptr(true), Pipefail: ptr(true), Xtrace: ptr(false)},
		Glob:        "fail",
		Dotenv:      []string{".env"},
		KillTimeout: ptr(3 * time.Second),
		Path:        []string{"/opt/bin"},
	})...)

	assert.True(t, r.Options.Errexit)
	assert.True(t, r.Options.Pipefail)
	assert.False(t, r.Options.Nounset)
	assert.Equal(t, shexec.GlobFail, r.Options.Glob)
	assert.Equal(t, []string{".env"}, r.Dotenv)
	assert.Equal(t, 3*time.Second, r.KillTimeout)
	assert.Equal(t, []string{"/opt/bin"}, r.Path)
}
