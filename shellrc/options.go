package shellrc

import (
	"github.com/go-task/shexec"
	"github.com/go-task/shexec/internal/env"
	"github.com/go-task/shexec/shellrc/ast"
)

// RunnerOptions turns a configuration into options for [shexec.New]. A nil
// config gives no options.
func RunnerOptions(config *ast.ShellRC) []shexec.RunnerOption {
	if config == nil {
		return nil
	}
	var opts []shexec.RunnerOption
	o := config.Options
	for _, opt := range []struct {
		value *bool
		apply func(bool) shexec.RunnerOption
	}{
		{o.Errexit, shexec.WithErrexit},
		{o.Nounset, shexec.WithNounset},
		{o.Pipefail, shexec.WithPipefail},
		{o.Noglob, shexec.WithNoglob},
		{o.Noclobber, shexec.WithNoclobber},
		{o.Xtrace, shexec.WithXtrace},
	} {
		if opt.value != nil {
			opts = append(opts, opt.apply(*opt.value))
		}
	}
	if config.Glob != "" {
		if policy, err := env.ParseGlobPolicy(config.Glob); err == nil {
			opts = append(opts, shexec.WithGlobPolicy(policy))
		}
	}
	if len(config.Dotenv) > 0 {
		opts = append(opts, shexec.WithDotenv(config.Dotenv...))
	}
	if config.KillTimeout != nil {
		opts = append(opts, shexec.WithKillTimeout(*config.KillTimeout))
	}
	if len(config.Path) > 0 {
		opts = append(opts, shexec.WithPath(config.Path...))
	}
	return opts
}
