package shexec

import (
	"context"
	"io"
	"slices"

	"github.com/spf13/afero"

	"github.com/go-task/shexec/ast"
	"github.com/go-task/shexec/errors"
	"github.com/go-task/shexec/internal/builtins"
	"github.com/go-task/shexec/internal/env"
	"github.com/go-task/shexec/internal/expand"
	"github.com/go-task/shexec/internal/jobs"
	"github.com/go-task/shexec/internal/logger"
	"github.com/go-task/shexec/internal/spawn"
	"github.com/go-task/shexec/internal/status"
	"github.com/go-task/shexec/parse"
)

// shell is the evaluation state of one thread of execution: the top level,
// a subshell, a pipeline stage or a function body. Subshells get their own
// shell over a forked environment, so a shell is never shared between
// goroutines.
type shell struct {
	r   *Runner
	env *env.Env

	loops int
	funcs int
	// noErrexit is non-zero while evaluating conditions, the left side of
	// && and || and negated pipelines.
	noErrexit int

	keepRedirs  bool
	substStatus *status.ExitStatus
}

func (r *Runner) shell() *shell {
	return &shell{r: r, env: r.env}
}

// fork returns a subshell over a copy of the environment.
func (s *shell) fork() *shell {
	return &shell{
		r:         s.r,
		env:       s.env.Fork(),
		loops:     s.loops,
		funcs:     s.funcs,
		noErrexit: s.noErrexit,
	}
}

// with returns a shell sharing s's state but evaluating in e.
func (s *shell) with(e *env.Env) *shell {
	c := *s
	c.env = e
	c.keepRedirs = false
	c.substStatus = nil
	return &c
}

func (s *shell) expandConfig() *expand.Config {
	return &expand.Config{Env: s.env, Fs: s.r.Fs, CmdSubst: s.cmdSubst}
}

// cmdSubst runs a command substitution in a subshell whose standard output
// is w. Its status is remembered for assignment-only commands.
func (s *shell) cmdSubst(ctx context.Context, w io.Writer, stmts []*ast.Stmt) error {
	sub := s.fork()
	sub.env.Fds().Set(1, env.WriteFd(w))
	st, err := sub.stmts(ctx, stmts)
	st, err = subshellStatus(st, err)
	s.substStatus = &st
	return err
}

// report prints err on the shell's standard error as "name: message".
func (s *shell) report(err error) {
	s.r.Logger.FOutf(s.env.Fds().Stderr(), logger.Red, "%s: %v\n", s.env.Name(), err)
}

// failed reports a command failure and turns it into a status. Expansion
// errors end the shell under errexit or nounset; fatal errors and control
// values are passed on.
func (s *shell) failed(err error) (status.ExitStatus, error) {
	if status.IsControl(err) {
		return status.OK, err
	}
	var fatal *errors.FatalError
	if errors.As(err, &fatal) {
		return status.Code(fatal.Code()), err
	}
	s.report(err)
	st := status.Code(errors.Code(err))

	var expErr *errors.ExpansionError
	opts := s.env.Options()
	if errors.As(err, &expErr) && (opts.Nounset || opts.Errexit && s.noErrexit == 0) && !opts.Interactive {
		return st, &status.Exit{Status: st}
	}
	return st, nil
}

// subshellStatus consumes the control values that cannot leave a subshell.
func subshellStatus(st status.ExitStatus, err error) (status.ExitStatus, error) {
	var (
		exit *status.Exit
		ret  *status.Return
	)
	switch {
	case err == nil:
		return st, nil
	case errors.As(err, &exit):
		return exit.Status, nil
	case errors.As(err, &ret):
		return ret.Status, nil
	case status.IsControl(err):
		return st, nil
	}
	return st, err
}

func (s *shell) Jobs() *jobs.Controller   { return s.r.jobs }
func (s *shell) Spawner() *spawn.Spawner { return s.r.spawner }
func (s *shell) Fs() afero.Fs            { return s.r.Fs }
func (s *shell) InFunction() bool        { return s.funcs > 0 }

func (s *shell) Parse(r io.Reader, name string) (*ast.Script, error) {
	return parse.Parse(r, name)
}

// Eval runs script in the current environment. Control values are returned
// to the caller: return inside a sourced file ends that file only because
// source consumes it.
func (s *shell) Eval(ctx context.Context, script *ast.Script, _ *env.FdTable) (status.ExitStatus, error) {
	return s.stmts(ctx, script.Stmts)
}

// Exec runs args like a simple command without assignments, as command and
// exec do.
func (s *shell) Exec(ctx context.Context, args []string, fds *env.FdTable, skipFunctions bool) (status.ExitStatus, error) {
	if !skipFunctions {
		if body, ok := s.env.Func(args[0]); ok {
			return s.callFunc(ctx, body, args, nil)
		}
	}
	jctx, release := s.jobContext(ctx)
	defer release()
	h, err := s.r.spawner.Dispatch(jctx, s.request(args, s.env, fds))
	if err != nil {
		if h != nil {
			return h.Wait(ctx), err
		}
		return s.commandError(args[0], err)
	}
	return h.Wait(ctx), nil
}

// Lookup resolves name the way a simple command would.
func (s *shell) Lookup(name string) (spawn.Kind, string) {
	reg := s.r.spawner.Builtins
	switch {
	case slices.Contains(builtins.Keywords, name):
		return spawn.KindKeyword, ""
	case reg.IsSpecial(name):
		return spawn.KindSpecialBuiltin, ""
	}
	if _, ok := s.env.Func(name); ok {
		return spawn.KindFunction, ""
	}
	if _, ok := reg.Lookup(name); ok {
		return spawn.KindBuiltin, ""
	}
	path, err := s.r.spawner.LookPath(name, s.env.Value("PATH"), s.env.Dir())
	if err != nil {
		return spawn.KindNotFound, ""
	}
	return spawn.KindFile, path
}

func (s *shell) request(args []string, e *env.Env, fds *env.FdTable) spawn.Request {
	return spawn.Request{
		Args:    args,
		Environ: e.Environ(),
		Dir:     e.Dir(),
		Path:    e.Value("PATH"),
		Fds:     fds,
		Env:     e,
		Shell:   s.with(e),
	}
}

// jobContext gives a foreground command of an interactive shell a process
// group that owns the terminal. Commands already inside a job keep its group.
// The returned function takes the terminal back.
func (s *shell) jobContext(ctx context.Context) (context.Context, func()) {
	if s.r.tty == nil || jobs.GroupFrom(ctx) != nil {
		return ctx, func() {}
	}
	g := jobs.NewGroup()
	g.Terminal = s.r.tty
	return jobs.WithGroup(ctx, g), g.Release
}

// commandError reports a failure to resolve or start a command. A command
// that was not found gets a suggestion among the builtins, functions and
// executables in $PATH.
func (s *shell) commandError(name string, err error) (status.ExitStatus, error) {
	var notFound *errors.CommandNotFoundError
	if errors.As(err, &notFound) && !notFound.NoSuchFile && notFound.DidYouMean == "" {
		notFound.DidYouMean = s.r.spawner.Suggest(name, s.env.Value("PATH"), s.env.Funcs())
	}
	return s.failed(err)
}
