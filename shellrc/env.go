package shellrc

import (
	"github.com/go-task/shexec/internal/env"
	"github.com/go-task/shexec/shellrc/ast"
)

// FromEnv returns the configuration given by SHEXEC_ process variables, like
// SHEXEC_PIPEFAIL=1 or SHEXEC_KILL_TIMEOUT=5s. It is meant to be merged last.
func FromEnv() *ast.ShellRC {
	var config ast.ShellRC
	for key, dst := range map[string]**bool{
		"ERREXIT":   &config.Options.Errexit,
		"NOUNSET":   &config.Options.Nounset,
		"PIPEFAIL":  &config.Options.Pipefail,
		"NOGLOB":    &config.Options.Noglob,
		"NOCLOBBER": &config.Options.Noclobber,
		"XTRACE":    &config.Options.Xtrace,
	} {
		if b, ok := env.GetShellEnvBool(key); ok {
			*dst = &b
		}
	}
	config.Glob = env.GetShellEnv("GLOB")
	if d, ok := env.GetShellEnvDuration("KILL_TIMEOUT"); ok {
		config.KillTimeout = &d
	}
	config.Dotenv, _ = env.GetShellEnvStringSlice("DOTENV")
	config.Path, _ = env.GetShellEnvStringSlice("PATH")
	return &config
}
