package flags

import (
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-task/shexec"
)

func parse(t *testing.T, args ...string) *Flags {
	t.Helper()
	var f Flags
	fs := pflag.NewFlagSet("shexec", pflag.ContinueOnError)
	f.Register(fs)
	require.NoError(t, fs.Parse(args))
	return &f
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{name: "defaults"},
		{name: "all options", args: []string{"-euxfC", "--pipefail", "-o", "allexport", "--glob=null", "--dotenv", ".env"}},
		{name: "empty command", args: []string{"-c", ""}, wantErr: "-c requires a non-empty command"},
		{name: "bad glob", args: []string{"--glob", "always"}, wantErr: `unknown glob policy "always"`},
		{name: "bad option", args: []string{"-o", "nosuch"}, wantErr: "nosuch: invalid option name"},
		{name: "empty dotenv", args: []string{"--dotenv="}, wantErr: "--dotenv requires a file name"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			err := parse(t, test.args...).Validate()
			if test.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), test.wantErr)
		})
	}
}

func TestRunnerOptions(t *testing.T) {
	t.Parallel()

	var r shexec.Runner
	r.Options.Nounset = true
	r.SetOptions(parse(t, "-e", "--pipefail", "-o", "xtrace", "--glob", "fail", "--dir", "/tmp", "-v").RunnerOptions()...)

	assert.True(t, r.Options.Errexit)
	assert.True(t, r.Options.Pipefail)
	assert.True(t, r.Options.Xtrace)
	assert.True(t, r.Options.Nounset, "flags left alone keep the configured value")
	assert.Equal(t, shexec.GlobFail, r.Options.Glob)
	assert.Equal(t, "/tmp", r.Dir)
	assert.True(t, r.Verbose)

	r = shexec.Runner{}
	r.Options.Errexit = true
	r.SetOptions(parse(t, "--errexit=false").RunnerOptions()...)
	assert.False(t, r.Options.Errexit)
}
