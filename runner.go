package shexec

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/go-task/shexec/ast"
	"github.com/go-task/shexec/errors"
	"github.com/go-task/shexec/internal/builtins"
	"github.com/go-task/shexec/internal/env"
	"github.com/go-task/shexec/internal/jobs"
	"github.com/go-task/shexec/internal/logger"
	"github.com/go-task/shexec/internal/spawn"
	"github.com/go-task/shexec/internal/status"
	"github.com/go-task/shexec/internal/term"
)

type (
	// ExitStatus is the status of a finished command.
	ExitStatus = status.ExitStatus
	// GlobPolicy decides what happens to a pattern that matches no file.
	GlobPolicy = env.GlobPolicy
	// Builtin is a command implemented in Go.
	Builtin = spawn.Builtin
	// BuiltinFunc adapts a function to Builtin.
	BuiltinFunc = spawn.BuiltinFunc
	// Call is the invocation of a Builtin.
	Call = spawn.Call
)

const (
	GlobPassThrough = env.GlobPassThrough
	GlobNull        = env.GlobNull
	GlobFail        = env.GlobFail
)

type (
	// A RunnerOption is a functional option for a Runner
	RunnerOption func(*Runner)
	// A Runner evaluates scripts. Its environment persists between calls to
	// Run, like the state of an interactive shell.
	Runner struct {
		Stdin  io.Reader
		Stdout io.Writer
		Stderr io.Writer

		Dir         string
		Environ     []string
		Params      []string
		Name        string
		Dotenv      []string
		Path        []string
		Fs          afero.Fs
		Options     env.Options
		KillTimeout time.Duration
		Interactive bool
		Logger      *logger.Logger
		Verbose     bool

		builtins map[string]Builtin

		env     *env.Env
		jobs    *jobs.Controller
		spawner *spawn.Spawner
		log     *slog.Logger
		session string
		tty     *os.File

		exited bool
		status status.ExitStatus
	}
)

// New returns a Runner configured by opts. By default it uses the process
// environment, working directory and standard streams.
func New(opts ...RunnerOption) (*Runner, error) {
	r := &Runner{
		Stdin:       os.Stdin,
		Stdout:      os.Stdout,
		Stderr:      os.Stderr,
		Name:        "shexec",
		KillTimeout: spawn.DefaultKillTimeout,
		session:     uuid.NewString(),
	}
	r.SetOptions(opts...)
	if err := r.setup(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Runner) SetOptions(opts ...RunnerOption) {
	for _, opt := range opts {
		opt(r)
	}
}

func (r *Runner) setup() error {
	if r.Dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return err
		}
		r.Dir = wd
	}
	dir, err := filepath.Abs(r.Dir)
	if err != nil {
		return err
	}
	r.Dir = dir
	if r.Environ == nil {
		r.Environ = os.Environ()
	}
	if r.Fs == nil {
		r.Fs = afero.NewOsFs()
	}
	if ok, err := afero.IsDir(r.Fs, r.Dir); err != nil || !ok {
		return &errors.IoError{Path: r.Dir, Err: errors.New("not a directory")}
	}
	fds := env.StdIO(r.Stdin, r.Stdout, r.Stderr)
	if r.Logger == nil {
		r.Logger = logger.New(fds.Stdout(), fds.Stderr(), r.Verbose, false)
	}
	handler, err := logger.NewShellLogHandler(&logger.ShellLogHandlerOptions{
		Logger:    r.Logger,
		ShowAttrs: r.Logger.Verbose,
	})
	if err != nil {
		return err
	}
	r.log = slog.New(handler).With("session", r.session)

	registry := builtins.Default()
	for name, b := range r.builtins {
		registry.Register(name, b, false)
	}
	r.spawner = spawn.New(registry)
	r.spawner.KillTimeout = r.KillTimeout
	r.jobs = jobs.NewController()

	e := env.FromEnviron(r.Dir, r.Environ)
	e.SetFds(fds)
	e.SetName(r.Name)
	e.SetParams(r.Params)
	*e.Options() = r.Options
	e.Options().Interactive = r.Interactive
	_ = e.Set("PWD", r.Dir, true)
	if len(r.Path) > 0 {
		path := slices.Clone(r.Path)
		if old := e.Value("PATH"); old != "" {
			path = append(path, old)
		}
		_ = e.Set("PATH", strings.Join(path, string(os.PathListSeparator)), true)
	}
	if _, ok := e.Get("IFS"); !ok {
		_ = e.Set("IFS", " \t\n", false)
	}
	if err := e.LoadDotenv(r.Fs, r.Dotenv...); err != nil {
		return err
	}
	r.env = e

	if r.Interactive {
		r.tty, _ = term.TerminalFile(r.Stdin)
	}
	return nil
}

func WithStdIO(stdin io.Reader, stdout, stderr io.Writer) RunnerOption {
	return func(r *Runner) {
		r.Stdin = stdin
		r.Stdout = stdout
		r.Stderr = stderr
	}
}

// WithEnv replaces the process environment with a NAME=value list.
func WithEnv(environ []string) RunnerOption {
	return func(r *Runner) {
		r.Environ = append([]string{}, environ...)
	}
}

func WithDir(dir string) RunnerOption {
	return func(r *Runner) {
		r.Dir = dir
	}
}

// WithParams sets the positional parameters $1..$n.
func WithParams(params ...string) RunnerOption {
	return func(r *Runner) {
		r.Params = params
	}
}

// WithName sets $0.
func WithName(name string) RunnerOption {
	return func(r *Runner) {
		r.Name = name
	}
}

// WithDotenv loads variables from .env files. Variables already in the
// environment win.
func WithDotenv(paths ...string) RunnerOption {
	return func(r *Runner) {
		r.Dotenv = append(r.Dotenv, paths...)
	}
}

// WithPath puts dirs in front of $PATH.
func WithPath(dirs ...string) RunnerOption {
	return func(r *Runner) {
		r.Path = append(r.Path, dirs...)
	}
}

// WithFs sets the filesystem used for globbing, redirections and cd.
func WithFs(fs afero.Fs) RunnerOption {
	return func(r *Runner) {
		r.Fs = fs
	}
}

func WithPipefail(pipefail bool) RunnerOption {
	return func(r *Runner) {
		r.Options.Pipefail = pipefail
	}
}

func WithErrexit(errexit bool) RunnerOption {
	return func(r *Runner) {
		r.Options.Errexit = errexit
	}
}

func WithNounset(nounset bool) RunnerOption {
	return func(r *Runner) {
		r.Options.Nounset = nounset
	}
}

func WithNoglob(noglob bool) RunnerOption {
	return func(r *Runner) {
		r.Options.Noglob = noglob
	}
}

func WithNoclobber(noclobber bool) RunnerOption {
	return func(r *Runner) {
		r.Options.Noclobber = noclobber
	}
}

func WithXtrace(xtrace bool) RunnerOption {
	return func(r *Runner) {
		r.Options.Xtrace = xtrace
	}
}

func WithGlobPolicy(policy GlobPolicy) RunnerOption {
	return func(r *Runner) {
		r.Options.Glob = policy
	}
}

func WithLogger(l *logger.Logger) RunnerOption {
	return func(r *Runner) {
		r.Logger = l
	}
}

func WithVerbose(verbose bool) RunnerOption {
	return func(r *Runner) {
		r.Verbose = verbose
	}
}

// WithBuiltins adds builtins, replacing the ones with the same names.
func WithBuiltins(builtins map[string]Builtin) RunnerOption {
	return func(r *Runner) {
		if r.builtins == nil {
			r.builtins = make(map[string]Builtin)
		}
		for name, b := range builtins {
			r.builtins[name] = b
		}
	}
}

// WithKillTimeout sets how long an interrupted process is given before it
// is killed.
func WithKillTimeout(timeout time.Duration) RunnerOption {
	return func(r *Runner) {
		r.KillTimeout = timeout
	}
}

// WithInteractive makes the Runner report finished background jobs before
// each statement and hand the terminal to foreground commands.
func WithInteractive(interactive bool) RunnerOption {
	return func(r *Runner) {
		r.Interactive = interactive
	}
}

// Run evaluates script. It returns nil when the final status is zero and an
// *errors.ExitStatusError otherwise; other errors are fatal. A script whose
// context was cancelled never succeeds.
func (r *Runner) Run(ctx context.Context, script *ast.Script) error {
	r.exited = false
	s := r.shell()
	r.log.Log(ctx, logger.LevelVerbose, "running script", "name", script.Name, "statements", len(script.Stmts))

	var (
		st  status.ExitStatus
		err error
	)
	for _, stmt := range script.Stmts {
		if r.Interactive {
			for _, line := range r.jobs.Notify() {
				r.Logger.FOutf(r.env.Fds().Stderr(), logger.Default, "%s\n", line)
			}
		}
		st, err = s.stmt(ctx, stmt)
		if err != nil {
			break
		}
	}

	var (
		exit *status.Exit
		ret  *status.Return
	)
	switch {
	case err == nil:
	case errors.As(err, &exit):
		st, r.exited = exit.Status, true
	case errors.As(err, &ret):
		st, r.exited = ret.Status, true
	case status.IsControl(err):
		// A break or continue with more levels than loops.
	default:
		r.status = st
		r.log.Log(ctx, logger.LevelError, err.Error())
		return err
	}
	if ctx.Err() != nil && st.Success() {
		st = status.Signaled(int(syscall.SIGINT))
	}
	r.env.SetLastStatus(st)
	r.status = st
	if !st.Success() {
		return &errors.ExitStatusError{Status: st}
	}
	return nil
}

// Exited reports whether the last Run ended with exit or return.
func (r *Runner) Exited() bool {
	return r.exited
}

// Status returns the final status of the last Run.
func (r *Runner) Status() ExitStatus {
	return r.status
}

// Env returns the value of a shell variable.
func (r *Runner) Env(name string) (string, bool) {
	v, ok := r.env.Get(name)
	return v.Value, ok
}

// WorkDir returns the current working directory of the shell.
func (r *Runner) WorkDir() string {
	return r.env.Dir()
}

// Wait waits for every background job.
func (r *Runner) Wait(ctx context.Context) error {
	return r.jobs.WaitAll(ctx)
}

// Close interrupts the background jobs still running and waits for them.
func (r *Runner) Close() {
	r.jobs.Shutdown()
}
