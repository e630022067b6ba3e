package execext

import (
	"context"
	"io"

	"github.com/spf13/afero"

	"github.com/go-task/shexec"
	"github.com/go-task/shexec/errors"
	"github.com/go-task/shexec/parse"
)

// RunCommandOptions is the options for the RunCommand func
type RunCommandOptions struct {
	Command string
	Dir     string
	Env     []string
	Params  []string
	Dotenv  []string
	Fs      afero.Fs
	Stdin   io.Reader
	Stdout  io.Writer
	Stderr  io.Writer
	Options []shexec.RunnerOption
}

// ErrNilOptions is returned when a nil options is given
var ErrNilOptions = errors.New("execext: nil options given")

// RunCommand parses a command string and runs it on a new Runner. Background
// jobs it leaves behind are waited for before returning.
func RunCommand(ctx context.Context, opts *RunCommandOptions) error {
	if opts == nil {
		return ErrNilOptions
	}

	script, err := parse.String(opts.Command, "")
	if err != nil {
		return err
	}

	runnerOpts := []shexec.RunnerOption{
		shexec.WithDir(opts.Dir),
		shexec.WithStdIO(opts.Stdin, opts.Stdout, opts.Stderr),
		shexec.WithParams(opts.Params...),
	}
	if len(opts.Env) > 0 {
		runnerOpts = append(runnerOpts, shexec.WithEnv(opts.Env))
	}
	if len(opts.Dotenv) > 0 {
		runnerOpts = append(runnerOpts, shexec.WithDotenv(opts.Dotenv...))
	}
	if opts.Fs != nil {
		runnerOpts = append(runnerOpts, shexec.WithFs(opts.Fs))
	}
	r, err := shexec.New(append(runnerOpts, opts.Options...)...)
	if err != nil {
		return err
	}
	defer r.Close()

	if err := r.Run(ctx, script); err != nil {
		return err
	}
	return r.Wait(ctx)
}

// IsExitError returns true the given error is an exit status error
func IsExitError(err error) bool {
	var exitErr *errors.ExitStatusError
	return errors.As(err, &exitErr)
}
