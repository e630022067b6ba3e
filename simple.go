package shexec

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-task/shexec/ast"
	"github.com/go-task/shexec/errors"
	"github.com/go-task/shexec/internal/builtins"
	"github.com/go-task/shexec/internal/env"
	"github.com/go-task/shexec/internal/expand"
	"github.com/go-task/shexec/internal/logger"
	"github.com/go-task/shexec/internal/spawn"
	"github.com/go-task/shexec/internal/status"
)

const maxFuncDepth = 1000

// call runs a simple command.
func (s *shell) call(ctx context.Context, ce *ast.CallExpr) (status.ExitStatus, error) {
	s.substStatus = nil
	args, err := expand.Fields(ctx, s.expandConfig(), ce.Args...)
	if err != nil {
		return s.failed(err)
	}

	if len(args) == 0 {
		traced, err := s.assign(ctx, s.env, ce.Assigns, false)
		s.trace(traced, nil)
		if err != nil {
			return s.failed(err)
		}
		if s.substStatus != nil {
			return *s.substStatus, nil
		}
		return status.OK, nil
	}

	name := args[0]
	if s.r.spawner.Builtins.IsSpecial(name) {
		traced, err := s.assign(ctx, s.env, ce.Assigns, false)
		s.trace(traced, args)
		if err != nil {
			return s.failed(err)
		}
		return s.builtin(ctx, s.env, args)
	}

	e := s.env
	if len(ce.Assigns) > 0 {
		e = s.env.PushFunc()
	}
	traced, err := s.assign(ctx, e, ce.Assigns, true)
	s.trace(traced, args)
	if err != nil {
		return s.failed(err)
	}

	if body, ok := s.env.Func(name); ok {
		return s.callFunc(ctx, body, args, e)
	}
	if _, ok := s.r.spawner.Builtins.Lookup(name); ok {
		return s.builtin(ctx, e, args)
	}
	return s.external(ctx, e, args)
}

// assign performs the assignments of a command into e. Temporary
// assignments live in e's innermost frame and are exported. Each value is
// expanded after the previous assignment took effect.
func (s *shell) assign(ctx context.Context, e *env.Env, assigns []*ast.Assign, temporary bool) ([]string, error) {
	cfg := s.with(e).expandConfig()
	cfg.CmdSubst = s.cmdSubst
	traced := make([]string, 0, len(assigns))
	for _, as := range assigns {
		value := ""
		if as.Value != nil {
			var err error
			if value, err = expand.Literal(ctx, cfg, as.Value); err != nil {
				return traced, err
			}
		}
		if as.Append {
			value = e.Value(as.Name) + value
		}
		traced = append(traced, as.Name+"="+builtins.Quote(value))

		if !temporary {
			if err := e.Set(as.Name, value, false); err != nil {
				return traced, err
			}
			continue
		}
		if v, ok := e.Get(as.Name); ok && v.ReadOnly {
			return traced, &errors.ReadonlyVariableError{Name: as.Name}
		}
		if err := e.Local(as.Name, &value); err != nil {
			return traced, err
		}
		e.Export(as.Name)
	}
	return traced, nil
}

// trace prints a command about to run when xtrace is on, prefixed by $PS4.
func (s *shell) trace(assigns, args []string) {
	if !s.env.Options().Xtrace || len(assigns)+len(args) == 0 {
		return
	}
	words := append([]string{}, assigns...)
	for _, arg := range args {
		words = append(words, builtins.Quote(arg))
	}
	ps4, ok := s.env.Get("PS4")
	prefix := "+ "
	if ok {
		prefix = ps4.Value
	}
	s.r.Logger.FOutf(s.env.Fds().Stderr(), logger.Default, "%s%s\n", prefix, strings.Join(words, " "))
}

// callFunc runs a function body with args as its positional parameters.
// base holds the temporary assignments of the call, if any.
func (s *shell) callFunc(ctx context.Context, body ast.Command, args []string, base *env.Env) (status.ExitStatus, error) {
	if base == nil {
		base = s.env
	}
	if s.funcs >= maxFuncDepth {
		return s.failed(&errors.FatalError{Op: args[0], Err: errors.New("maximum function nesting level exceeded")})
	}
	fe := base.PushFunc()
	fe.SetParams(args[1:])
	fs := s.with(fe)
	fs.funcs++
	fs.loops = 0

	s.r.log.Log(ctx, logger.LevelVerbose, "calling function", "name", args[0], "depth", fs.funcs)
	st, err := fs.command(ctx, body)
	var ret *status.Return
	if errors.As(err, &ret) {
		return ret.Status, nil
	}
	return st, err
}

// builtin runs a builtin in e. Control values other than break and continue
// are passed on as they are; those two only make sense inside a loop.
func (s *shell) builtin(ctx context.Context, e *env.Env, args []string) (status.ExitStatus, error) {
	b, _ := s.r.spawner.Builtins.Lookup(args[0])
	call := &spawn.Call{Args: args, Env: e, Fds: e.Fds(), Shell: s.with(e)}
	st, err := b.Run(ctx, call)
	if call.KeepRedirections {
		s.keepRedirs = true
	}
	if err == nil {
		return st, nil
	}

	var (
		brk  *status.Break
		cont *status.Continue
	)
	switch {
	case errors.As(err, &brk):
		if s.loops == 0 {
			s.report(fmt.Errorf("%s: only meaningful in a loop", args[0]))
			return status.OK, nil
		}
		brk.N = min(brk.N, s.loops)
		return st, brk
	case errors.As(err, &cont):
		if s.loops == 0 {
			s.report(fmt.Errorf("%s: only meaningful in a loop", args[0]))
			return status.OK, nil
		}
		cont.N = min(cont.N, s.loops)
		return st, cont
	case status.IsControl(err):
		return st, err
	}
	return s.failed(err)
}

// external starts a program and waits for it. In an interactive shell the
// program gets the terminal while it runs.
func (s *shell) external(ctx context.Context, e *env.Env, args []string) (status.ExitStatus, error) {
	jctx, release := s.jobContext(ctx)
	defer release()
	h, err := s.r.spawner.Start(jctx, s.request(args, e, e.Fds()))
	if err != nil {
		return s.commandError(args[0], err)
	}
	return h.Wait(ctx), nil
}

// decl runs export, readonly, local and the like, whose arguments are
// assignments that are not subject to field splitting.
func (s *shell) decl(ctx context.Context, dc *ast.DeclClause) (status.ExitStatus, error) {
	s.substStatus = nil
	cfg := s.expandConfig()
	args := []string{dc.Variant}
	for _, as := range dc.Args {
		switch {
		case as.Naked && as.Name == "":
			fields, err := expand.Fields(ctx, cfg, as.Value)
			if err != nil {
				return s.failed(err)
			}
			args = append(args, fields...)
		case as.Naked:
			args = append(args, as.Name)
		default:
			value := ""
			if as.Value != nil {
				var err error
				if value, err = expand.Literal(ctx, cfg, as.Value); err != nil {
					return s.failed(err)
				}
			}
			if as.Append {
				value = s.env.Value(as.Name) + value
			}
			args = append(args, as.Name+"="+value)
		}
	}
	s.trace(nil, args)

	if _, ok := s.r.spawner.Builtins.Lookup(dc.Variant); !ok {
		return s.external(ctx, s.env, args)
	}
	return s.builtin(ctx, s.env, args)
}
