// Package spawn dispatches a command to a builtin or an external program and
// hands back something to wait on.
package spawn

import (
	"context"
	"fmt"
	"io"
	"maps"
	"slices"

	"github.com/spf13/afero"

	"github.com/go-task/shexec/ast"
	"github.com/go-task/shexec/internal/env"
	"github.com/go-task/shexec/internal/jobs"
	"github.com/go-task/shexec/internal/status"
)

// Handle is a started command.
type Handle interface {
	// Wait blocks until the command finished and returns its status.
	Wait(ctx context.Context) status.ExitStatus
	// Pid returns the process id, or 0 for commands run in-process.
	Pid() int
	// Done is closed once the command finished.
	Done() <-chan struct{}
}

type doneHandle struct {
	st   status.ExitStatus
	done chan struct{}
}

// Done returns a handle for a command that already finished with st.
func Done(st status.ExitStatus) Handle {
	h := &doneHandle{st: st, done: make(chan struct{})}
	close(h.done)
	return h
}

func (h *doneHandle) Wait(context.Context) status.ExitStatus { return h.st }
func (h *doneHandle) Pid() int                              { return 0 }
func (h *doneHandle) Done() <-chan struct{}                 { return h.done }

type goHandle struct {
	st   status.ExitStatus
	done chan struct{}
}

// Go runs fn on a new goroutine and returns a handle for its result.
func Go(fn func() status.ExitStatus) Handle {
	h := &goHandle{done: make(chan struct{})}
	go func() {
		defer close(h.done)
		h.st = fn()
	}()
	return h
}

func (h *goHandle) Wait(ctx context.Context) status.ExitStatus {
	<-h.done
	return h.st
}

func (h *goHandle) Pid() int              { return 0 }
func (h *goHandle) Done() <-chan struct{} { return h.done }

// Kind classifies what a command name resolves to.
type Kind int

const (
	KindNotFound Kind = iota
	KindKeyword
	KindFunction
	KindSpecialBuiltin
	KindBuiltin
	KindFile
)

func (k Kind) String() string {
	switch k {
	case KindKeyword:
		return "keyword"
	case KindFunction:
		return "function"
	case KindSpecialBuiltin, KindBuiltin:
		return "builtin"
	case KindFile:
		return "file"
	default:
		return ""
	}
}

// Shell is what builtins may ask of the shell that runs them.
type Shell interface {
	Jobs() *jobs.Controller
	Spawner() *Spawner
	Fs() afero.Fs
	// Parse reads a script without running it.
	Parse(r io.Reader, name string) (*ast.Script, error)
	// Eval runs script in the current shell environment.
	Eval(ctx context.Context, script *ast.Script, fds *env.FdTable) (status.ExitStatus, error)
	// Exec runs a command as if it was typed, optionally bypassing
	// shell functions.
	Exec(ctx context.Context, args []string, fds *env.FdTable, skipFunctions bool) (status.ExitStatus, error)
	// Lookup resolves name to the kind of command it would run and, for
	// files, the path.
	Lookup(name string) (Kind, string)
	InFunction() bool
}

// Call is the invocation of a builtin.
type Call struct {
	Args  []string
	Env   *env.Env
	Fds   *env.FdTable
	Shell Shell

	// KeepRedirections is set by a builtin that makes the redirections of
	// its command permanent.
	KeepRedirections bool
}

func (c *Call) Stdin() io.Reader  { return c.Fds.Stdin() }
func (c *Call) Stdout() io.Writer { return c.Fds.Stdout() }
func (c *Call) Stderr() io.Writer { return c.Fds.Stderr() }

// Errorf reports an error on the call's stderr prefixed with the builtin
// name and returns the failure status.
func (c *Call) Errorf(format string, a ...any) status.ExitStatus {
	fmt.Fprintf(c.Stderr(), "%s: %s\n", c.Args[0], fmt.Sprintf(format, a...))
	return status.Failure
}

// Usage reports a usage error and returns status 2.
func (c *Call) Usage(format string, a ...any) status.ExitStatus {
	c.Errorf(format, a...)
	return status.Code(status.CodeUsage)
}

// Builtin is a command implemented inside the shell. A non-nil error is a
// control value or a fatal error; ordinary failures are reported on stderr
// and through the status.
type Builtin interface {
	Run(ctx context.Context, call *Call) (status.ExitStatus, error)
}

// BuiltinFunc adapts a function to Builtin.
type BuiltinFunc func(ctx context.Context, call *Call) (status.ExitStatus, error)

func (f BuiltinFunc) Run(ctx context.Context, call *Call) (status.ExitStatus, error) {
	return f(ctx, call)
}

type entry struct {
	builtin Builtin
	special bool
}

// Registry maps names to builtins.
type Registry struct {
	m map[string]entry
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{m: make(map[string]entry)}
}

// Register adds or replaces a builtin. Special builtins keep their prefix
// assignments and are found before shell functions.
func (r *Registry) Register(name string, b Builtin, special bool) {
	r.m[name] = entry{builtin: b, special: special}
}

// Remove drops a builtin.
func (r *Registry) Remove(name string) {
	delete(r.m, name)
}

// Lookup returns the builtin registered as name.
func (r *Registry) Lookup(name string) (Builtin, bool) {
	e, ok := r.m[name]
	return e.builtin, ok
}

// IsSpecial reports whether name is a special builtin.
func (r *Registry) IsSpecial(name string) bool {
	return r.m[name].special
}

// Names returns the registered names in order.
func (r *Registry) Names() []string {
	return slices.Sorted(maps.Keys(r.m))
}

// Clone returns an independent copy of the registry.
func (r *Registry) Clone() *Registry {
	return &Registry{m: maps.Clone(r.m)}
}
