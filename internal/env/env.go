// Package env holds the state a shell command runs in: variables, functions,
// open file descriptors, options, the working directory and the positional
// parameters.
package env

import (
	"maps"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/go-task/shexec/ast"
	"github.com/go-task/shexec/errors"
	"github.com/go-task/shexec/internal/status"
)

// Variable is a shell variable and its attributes.
type Variable struct {
	Value    string
	Exported bool
	ReadOnly bool
	Local    bool
}

type frame map[string]Variable

// shared is the part of an environment that function calls see and modify
// in place. Subshells get their own copy.
type shared struct {
	funcs   map[string]ast.Command
	dir     string
	status  status.ExitStatus
	opts    Options
	name    string
	pid     int
	lastBg  string
	subDeep int
}

// Env is a shell environment. Frame 0 holds the global variables and every
// function call pushes a frame on top of it.
type Env struct {
	frames []frame
	sh     *shared
	params []string
	fds    *FdTable
}

// New returns an empty environment rooted at dir.
func New(dir string) *Env {
	return &Env{
		frames: []frame{{}},
		sh: &shared{
			funcs: map[string]ast.Command{},
			dir:   dir,
			name:  "shexec",
			pid:   os.Getpid(),
		},
		fds: NewFdTable(),
	}
}

// FromEnviron returns an environment whose global frame holds every NAME=value
// entry of list, exported.
func FromEnviron(dir string, list []string) *Env {
	e := New(dir)
	for _, kv := range list {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || name == "" {
			continue
		}
		e.frames[0][name] = Variable{Value: value, Exported: true}
	}
	return e
}

// Get looks a variable up from the innermost frame outwards.
func (e *Env) Get(name string) (Variable, bool) {
	for i := len(e.frames) - 1; i >= 0; i-- {
		if v, ok := e.frames[i][name]; ok {
			return v, true
		}
	}
	return Variable{}, false
}

// Value returns the value of a variable or special parameter, or "" when it
// is unset.
func (e *Env) Value(name string) string {
	v, _ := e.Param(name)
	return v
}

func (e *Env) lookupFrame(name string) frame {
	for i := len(e.frames) - 1; i >= 0; i-- {
		if _, ok := e.frames[i][name]; ok {
			return e.frames[i]
		}
	}
	return nil
}

// Set assigns a variable. The value is stored in the innermost frame that
// already defines the name, or in the global frame. The exported flag is
// only ever added, never cleared.
func (e *Env) Set(name, value string, exported bool) error {
	f := e.lookupFrame(name)
	if f == nil {
		f = e.frames[0]
	}
	v := f[name]
	if v.ReadOnly {
		return &errors.ReadonlyVariableError{Name: name}
	}
	v.Value = value
	v.Exported = v.Exported || exported || e.sh.opts.Allexport
	f[name] = v
	return nil
}

// Local declares name in the innermost frame. A nil value declares it
// without assigning, which leaves it empty.
func (e *Env) Local(name string, value *string) error {
	top := e.frames[len(e.frames)-1]
	v, ok := top[name]
	if ok && v.ReadOnly {
		return &errors.ReadonlyVariableError{Name: name}
	}
	if !ok {
		v = Variable{Local: true}
	}
	if value != nil {
		v.Value = *value
	}
	top[name] = v
	return nil
}

// Unset removes the innermost definition of name.
func (e *Env) Unset(name string) error {
	f := e.lookupFrame(name)
	if f == nil {
		return nil
	}
	if f[name].ReadOnly {
		return &errors.ReadonlyVariableError{Name: name}
	}
	delete(f, name)
	return nil
}

// Export marks a variable as exported, creating it empty if needed.
func (e *Env) Export(name string) {
	f := e.lookupFrame(name)
	if f == nil {
		f = e.frames[0]
	}
	v := f[name]
	v.Exported = true
	f[name] = v
}

// SetReadonly marks a variable as readonly, creating it empty if needed.
func (e *Env) SetReadonly(name string) {
	f := e.lookupFrame(name)
	if f == nil {
		f = e.frames[0]
	}
	v := f[name]
	v.ReadOnly = true
	f[name] = v
}

// Each calls fn for every visible variable, sorted by name.
func (e *Env) Each(fn func(name string, v Variable) bool) {
	visible := e.visible()
	for _, name := range slices.Sorted(maps.Keys(visible)) {
		if !fn(name, visible[name]) {
			return
		}
	}
}

func (e *Env) visible() map[string]Variable {
	out := make(map[string]Variable)
	for _, f := range e.frames {
		maps.Copy(out, f)
	}
	return out
}

// Environ returns the sorted NAME=value list of exported variables, as passed
// to spawned processes.
func (e *Env) Environ() []string {
	var list []string
	e.Each(func(name string, v Variable) bool {
		if v.Exported {
			list = append(list, name+"="+v.Value)
		}
		return true
	})
	return list
}

// DefineFunc defines or replaces a function.
func (e *Env) DefineFunc(name string, body ast.Command) {
	e.sh.funcs[name] = body
}

// Func returns the body of a function.
func (e *Env) Func(name string) (ast.Command, bool) {
	body, ok := e.sh.funcs[name]
	return body, ok
}

// UnsetFunc removes a function.
func (e *Env) UnsetFunc(name string) {
	delete(e.sh.funcs, name)
}

// Funcs returns the sorted names of the defined functions.
func (e *Env) Funcs() []string {
	return slices.Sorted(maps.Keys(e.sh.funcs))
}

// PushFunc returns the environment for a function call or a temporary
// assignment scope. Variables declared local go to the new frame and die
// with it; every other change is visible to the caller.
func (e *Env) PushFunc() *Env {
	frames := make([]frame, len(e.frames), len(e.frames)+1)
	copy(frames, e.frames)
	return &Env{
		frames: append(frames, frame{}),
		sh:     e.sh,
		params: e.params,
		fds:    e.fds,
	}
}

// Fork returns an independent copy, as used by subshells. Nothing done to the
// copy is visible in e and the two may be used from different goroutines.
func (e *Env) Fork() *Env {
	frames := make([]frame, len(e.frames))
	for i, f := range e.frames {
		frames[i] = maps.Clone(f)
	}
	sh := *e.sh
	sh.funcs = maps.Clone(e.sh.funcs)
	sh.subDeep++
	return &Env{
		frames: frames,
		sh:     &sh,
		params: slices.Clone(e.params),
		fds:    e.fds.Clone(),
	}
}

// Subshell reports how many forks deep the environment is.
func (e *Env) Subshell() int { return e.sh.subDeep }

// Fds returns the file descriptor table.
func (e *Env) Fds() *FdTable { return e.fds }

// SetFds replaces the file descriptor table.
func (e *Env) SetFds(fds *FdTable) { e.fds = fds }

// Options returns the shell options. Changes through the pointer apply to
// the environment.
func (e *Env) Options() *Options { return &e.sh.opts }

// Dir returns the working directory.
func (e *Env) Dir() string { return e.sh.dir }

// Chdir sets the working directory without any checks and updates PWD.
func (e *Env) Chdir(dir string) {
	old := e.sh.dir
	e.sh.dir = dir
	_ = e.Set("OLDPWD", old, false)
	_ = e.Set("PWD", dir, false)
}

// LastStatus returns $?.
func (e *Env) LastStatus() status.ExitStatus { return e.sh.status }

// SetLastStatus sets $?.
func (e *Env) SetLastStatus(st status.ExitStatus) { e.sh.status = st }

// Params returns the positional parameters $1..$n.
func (e *Env) Params() []string { return e.params }

// SetParams replaces the positional parameters.
func (e *Env) SetParams(params []string) { e.params = params }

// Shift drops the first n positional parameters. Shifting more than there
// are fails and leaves them untouched.
func (e *Env) Shift(n int) error {
	if n < 0 || n > len(e.params) {
		return errors.New("shift count out of range")
	}
	e.params = e.params[n:]
	return nil
}

// Name returns $0.
func (e *Env) Name() string { return e.sh.name }

// SetName sets $0.
func (e *Env) SetName(name string) { e.sh.name = name }

// SetPid sets $$.
func (e *Env) SetPid(pid int) { e.sh.pid = pid }

// LastBackground returns $!, or "" when no job was started in the background.
func (e *Env) LastBackground() string { return e.sh.lastBg }

// SetLastBackground sets $!.
func (e *Env) SetLastBackground(pid int) { e.sh.lastBg = strconv.Itoa(pid) }

// Param resolves a special or positional parameter, or a variable.
func (e *Env) Param(name string) (string, bool) {
	switch name {
	case "?":
		return strconv.Itoa(e.sh.status.Int()), true
	case "#":
		return strconv.Itoa(len(e.params)), true
	case "@", "*":
		return strings.Join(e.params, " "), len(e.params) > 0
	case "$":
		return strconv.Itoa(e.sh.pid), true
	case "!":
		return e.sh.lastBg, e.sh.lastBg != ""
	case "-":
		return e.sh.opts.Flags(), true
	case "0":
		return e.sh.name, true
	}
	if n, err := strconv.Atoi(name); err == nil {
		if n < 1 || n > len(e.params) {
			return "", false
		}
		return e.params[n-1], true
	}
	v, ok := e.Get(name)
	return v.Value, ok
}

// IsSpecial reports whether name is a special or positional parameter, which
// cannot be assigned to.
func IsSpecial(name string) bool {
	if len(name) == 1 && strings.Contains("?#@*$!-0123456789", name) {
		return true
	}
	_, err := strconv.Atoi(name)
	return err == nil
}

// ValidName reports whether name can be used as a variable name.
func ValidName(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}
