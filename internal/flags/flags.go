package flags

import (
	"fmt"
	"slices"

	"github.com/spf13/pflag"

	"github.com/go-task/shexec"
	"github.com/go-task/shexec/errors"
	"github.com/go-task/shexec/internal/env"
)

const Usage = `shexec [flags...] [script [args...]]
  shexec [flags...] -c command [name [args...]]

Runs a POSIX shell script. Without a script or -c, commands are read from
the standard input, interactively when it is a terminal.`

// Flags holds the command line of shexec.
type Flags struct {
	Command   string
	Errexit   bool
	Nounset   bool
	Xtrace    bool
	Noglob    bool
	Noclobber bool
	Pipefail  bool
	Options   []string
	Glob      string
	Dotenv    []string
	Config    string
	Verbose   bool
	Color     bool
	Dir       string
	Version   bool

	set *pflag.FlagSet
}

// Register adds the flags to fs.
func (f *Flags) Register(fs *pflag.FlagSet) {
	f.set = fs
	fs.StringVarP(&f.Command, "command", "c", "", "Runs the given command string instead of a script.")
	fs.BoolVarP(&f.Errexit, "errexit", "e", false, "Exits when a command fails.")
	fs.BoolVarP(&f.Nounset, "nounset", "u", false, "Treats unset variables as an error.")
	fs.BoolVarP(&f.Xtrace, "xtrace", "x", false, "Prints commands before running them.")
	fs.BoolVarP(&f.Noglob, "noglob", "f", false, "Disables pathname expansion.")
	fs.BoolVarP(&f.Noclobber, "noclobber", "C", false, "Refuses to overwrite files with >.")
	fs.BoolVar(&f.Pipefail, "pipefail", false, "A pipeline fails when any of its commands fails.")
	fs.StringArrayVarP(&f.Options, "option", "o", nil, "Turns on the named option, like set -o.")
	fs.StringVar(&f.Glob, "glob", "", "What to do with patterns matching no file: [passthrough|null|fail].")
	fs.StringArrayVar(&f.Dotenv, "dotenv", nil, "Loads variables from a .env file.")
	fs.StringVar(&f.Config, "config", "", "Reads the configuration from this file instead of .shexecrc.yml.")
	fs.BoolVarP(&f.Verbose, "verbose", "v", false, "Enables verbose mode.")
	fs.BoolVar(&f.Color, "color", true, "Colored output. Enabled by default. Set flag to false or use NO_COLOR=1 to disable.")
	fs.StringVar(&f.Dir, "dir", "", "Sets the working directory.")
	fs.BoolVar(&f.Version, "version", false, "Shows the shexec version.")
}

// Validate checks the values that pflag cannot check by itself.
func (f *Flags) Validate() error {
	if f.set != nil && f.set.Changed("command") && f.Command == "" {
		return usageErrorf("-c requires a non-empty command")
	}
	if _, err := env.ParseGlobPolicy(f.Glob); err != nil {
		return usageErrorf("--glob: %v", err)
	}
	var opts env.Options
	for _, name := range f.Options {
		if err := opts.SetByName(name, true); err != nil {
			return usageErrorf("-o %v", err)
		}
	}
	if slices.Contains(f.Dotenv, "") {
		return usageErrorf("--dotenv requires a file name")
	}
	return nil
}

func usageErrorf(format string, args ...any) error {
	return &errors.UsageError{Err: fmt.Errorf(format, args...)}
}

func (f *Flags) changed(name string) bool {
	return f.set != nil && f.set.Changed(name)
}

// RunnerOptions returns the options given on the command line. Flags left
// alone give no option, so they do not override the configuration files.
func (f *Flags) RunnerOptions() []shexec.RunnerOption {
	var opts []shexec.RunnerOption
	for _, opt := range []struct {
		name  string
		value bool
		apply func(bool) shexec.RunnerOption
	}{
		{"errexit", f.Errexit, shexec.WithErrexit},
		{"nounset", f.Nounset, shexec.WithNounset},
		{"xtrace", f.Xtrace, shexec.WithXtrace},
		{"noglob", f.Noglob, shexec.WithNoglob},
		{"noclobber", f.Noclobber, shexec.WithNoclobber},
		{"pipefail", f.Pipefail, shexec.WithPipefail},
	} {
		if f.changed(opt.name) {
			opts = append(opts, opt.apply(opt.value))
		}
	}
	if len(f.Options) > 0 {
		names := slices.Clone(f.Options)
		opts = append(opts, func(r *shexec.Runner) {
			for _, name := range names {
				_ = r.Options.SetByName(name, true)
			}
		})
	}
	if f.Glob != "" {
		if policy, err := env.ParseGlobPolicy(f.Glob); err == nil {
			opts = append(opts, shexec.WithGlobPolicy(policy))
		}
	}
	if len(f.Dotenv) > 0 {
		opts = append(opts, shexec.WithDotenv(f.Dotenv...))
	}
	if f.Dir != "" {
		opts = append(opts, shexec.WithDir(f.Dir))
	}
	opts = append(opts, shexec.WithVerbose(f.Verbose))
	return opts
}
