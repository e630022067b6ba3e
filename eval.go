package shexec

import (
	"context"
	"fmt"
	"strings"
	"syscall"

	"github.com/go-task/shexec/ast"
	"github.com/go-task/shexec/errors"
	"github.com/go-task/shexec/internal/env"
	"github.com/go-task/shexec/internal/expand"
	"github.com/go-task/shexec/internal/jobs"
	"github.com/go-task/shexec/internal/logger"
	"github.com/go-task/shexec/internal/pipeline"
	"github.com/go-task/shexec/internal/redir"
	"github.com/go-task/shexec/internal/spawn"
	"github.com/go-task/shexec/internal/status"
)

// stmts runs a list of statements and returns the status of the last one.
func (s *shell) stmts(ctx context.Context, list []*ast.Stmt) (status.ExitStatus, error) {
	st := status.OK
	for _, stmt := range list {
		var err error
		if st, err = s.stmt(ctx, stmt); err != nil {
			return st, err
		}
	}
	return st, nil
}

// interrupted is the outcome of a statement reached after ctx was done.
func interrupted(ctx context.Context) (status.ExitStatus, error) {
	st := status.Signaled(int(syscall.SIGINT))
	if pipeline.BrokenPipe(ctx) {
		st = status.Signaled(int(syscall.SIGPIPE))
	}
	return st, &status.Exit{Status: st}
}

func (s *shell) stmt(ctx context.Context, stmt *ast.Stmt) (status.ExitStatus, error) {
	if ctx.Err() != nil {
		return interrupted(ctx)
	}
	if stmt.Background {
		st := s.background(ctx, stmt)
		s.env.SetLastStatus(st)
		return st, nil
	}

	st, err := s.redirected(ctx, stmt)
	s.env.SetLastStatus(st)
	if err != nil {
		return st, err
	}
	if !st.Success() && s.env.Options().Errexit && s.noErrexit == 0 && !stmt.Negated && exitsOnFailure(stmt.Cmd) {
		return st, &status.Exit{Status: st}
	}
	return st, nil
}

// exitsOnFailure reports whether a failure of cmd itself ends the shell
// under errexit. Compound commands only fail through their last command,
// which was already checked, and and-or lists are exempt.
func exitsOnFailure(cmd ast.Command) bool {
	switch cmd := cmd.(type) {
	case *ast.CallExpr, *ast.Subshell, *ast.ArithmCmd, *ast.DeclClause:
		return true
	case *ast.BinaryCmd:
		return cmd.Op == ast.Pipe || cmd.Op == ast.PipeAll
	}
	return false
}

// redirected runs the command of stmt with its redirections in place.
func (s *shell) redirected(ctx context.Context, stmt *ast.Stmt) (status.ExitStatus, error) {
	guard, err := redir.Apply(ctx, s.expandConfig(), stmt.Redirs, s.env.Fds())
	if err != nil {
		return s.failed(err)
	}
	defer func() {
		if s.keepRedirs {
			s.keepRedirs = false
			guard.Keep()
			return
		}
		guard.Release()
	}()

	if !stmt.Negated {
		return s.command(ctx, stmt.Cmd)
	}
	s.noErrexit++
	st, err := s.command(ctx, stmt.Cmd)
	s.noErrexit--
	if err != nil {
		return st, err
	}
	return st.Negate(), nil
}

func (s *shell) command(ctx context.Context, cmd ast.Command) (status.ExitStatus, error) {
	switch cmd := cmd.(type) {
	case *ast.CallExpr:
		return s.call(ctx, cmd)
	case *ast.DeclClause:
		return s.decl(ctx, cmd)
	case *ast.BinaryCmd:
		switch cmd.Op {
		case ast.AndStmt, ast.OrStmt:
			return s.andOr(ctx, cmd)
		default:
			return s.pipeline(ctx, cmd)
		}
	case *ast.Block:
		return s.stmts(ctx, cmd.Stmts)
	case *ast.Subshell:
		return subshellStatus(s.fork().stmts(ctx, cmd.Stmts))
	case *ast.IfClause:
		return s.ifClause(ctx, cmd)
	case *ast.WhileClause:
		return s.whileClause(ctx, cmd)
	case *ast.ForClause:
		return s.forClause(ctx, cmd)
	case *ast.CaseClause:
		return s.caseClause(ctx, cmd)
	case *ast.FuncDecl:
		s.env.DefineFunc(cmd.Name, &ast.Block{Stmts: []*ast.Stmt{cmd.Body}})
		return status.OK, nil
	case *ast.ArithmCmd:
		n, err := expand.Arithm(ctx, s.expandConfig(), cmd.X)
		if err != nil {
			return s.failed(err)
		}
		return status.FromBool(n != 0), nil
	case nil:
		return status.OK, nil
	}
	return s.failed(&errors.UnsupportedError{Pos: "?", What: fmt.Sprintf("%T", cmd)})
}

// condition evaluates stmts without errexit.
func (s *shell) condition(ctx context.Context, stmts []*ast.Stmt) (status.ExitStatus, error) {
	s.noErrexit++
	defer func() { s.noErrexit-- }()
	return s.stmts(ctx, stmts)
}

func (s *shell) andOr(ctx context.Context, cmd *ast.BinaryCmd) (status.ExitStatus, error) {
	s.noErrexit++
	st, err := s.stmt(ctx, cmd.X)
	s.noErrexit--
	if err != nil {
		return st, err
	}
	if st.Success() == (cmd.Op == ast.AndStmt) {
		return s.stmt(ctx, cmd.Y)
	}
	return st, nil
}

func (s *shell) ifClause(ctx context.Context, cmd *ast.IfClause) (status.ExitStatus, error) {
	st, err := s.condition(ctx, cmd.Cond)
	if err != nil {
		return st, err
	}
	if st.Success() {
		return s.stmts(ctx, cmd.Then)
	}
	if len(cmd.Else) > 0 {
		return s.stmts(ctx, cmd.Else)
	}
	return status.OK, nil
}

// loopControl consumes a break or continue aimed at the current loop.
// stop tells the loop to end; err is what it passes on.
func loopControl(err error) (stop bool, rest error) {
	var (
		brk  *status.Break
		cont *status.Continue
	)
	switch {
	case errors.As(err, &brk):
		if brk.N > 1 {
			return true, &status.Break{N: brk.N - 1}
		}
		return true, nil
	case errors.As(err, &cont):
		if cont.N > 1 {
			return true, &status.Continue{N: cont.N - 1}
		}
		return false, nil
	}
	return true, err
}

func (s *shell) whileClause(ctx context.Context, cmd *ast.WhileClause) (status.ExitStatus, error) {
	s.loops++
	defer func() { s.loops-- }()

	st := status.OK
	for {
		cst, err := s.condition(ctx, cmd.Cond)
		if err != nil {
			if stop, err := loopControl(err); stop {
				return cst, err
			}
			continue
		}
		if cst.Success() == cmd.Until {
			return st, nil
		}
		var bst status.ExitStatus
		bst, err = s.stmts(ctx, cmd.Do)
		st = bst
		if err != nil {
			if stop, err := loopControl(err); stop {
				return st, err
			}
		}
	}
}

func (s *shell) forClause(ctx context.Context, cmd *ast.ForClause) (status.ExitStatus, error) {
	var items []string
	if cmd.InParams {
		items = append(items, s.env.Params()...)
	} else {
		var err error
		if items, err = expand.Fields(ctx, s.expandConfig(), cmd.Items...); err != nil {
			return s.failed(err)
		}
	}

	s.loops++
	defer func() { s.loops-- }()

	st := status.OK
	for _, item := range items {
		if err := s.env.Set(cmd.Name, item, false); err != nil {
			return s.failed(err)
		}
		var err error
		if st, err = s.stmts(ctx, cmd.Do); err != nil {
			if stop, err := loopControl(err); stop {
				return st, err
			}
		}
	}
	return st, nil
}

func (s *shell) caseClause(ctx context.Context, cmd *ast.CaseClause) (status.ExitStatus, error) {
	cfg := s.expandConfig()
	word, err := expand.Literal(ctx, cfg, cmd.Word)
	if err != nil {
		return s.failed(err)
	}

	st := status.OK
	fall := false
	for _, item := range cmd.Items {
		if !fall {
			matched := false
			for _, p := range item.Patterns {
				pat, err := expand.Pattern(ctx, cfg, p)
				if err != nil {
					return s.failed(err)
				}
				if expand.Match(pat, word) {
					matched = true
					break
				}
			}
			if !matched {
				continue
			}
		}
		if st, err = s.stmts(ctx, item.Stmts); err != nil {
			return st, err
		}
		switch item.Op {
		case ast.CaseFallthrough:
			fall = true
		case ast.CaseResume:
			fall = false
		default:
			return st, nil
		}
	}
	return st, nil
}

// pipeline runs a | b | c. Every stage runs on its own goroutine in a
// subshell; external commands of all stages share one process group.
func (s *shell) pipeline(ctx context.Context, cmd *ast.BinaryCmd) (status.ExitStatus, error) {
	var (
		stmts     []*ast.Stmt
		stderrToo []bool
	)
	var flatten func(st *ast.Stmt, all bool)
	flatten = func(st *ast.Stmt, all bool) {
		if bc, ok := st.Cmd.(*ast.BinaryCmd); ok && (bc.Op == ast.Pipe || bc.Op == ast.PipeAll) && !st.Negated && !st.Background && len(st.Redirs) == 0 {
			flatten(bc.X, bc.Op == ast.PipeAll)
			flatten(bc.Y, all)
			return
		}
		stmts = append(stmts, st)
		stderrToo = append(stderrToo, all)
	}
	flatten(cmd.X, cmd.Op == ast.PipeAll)
	flatten(cmd.Y, false)

	if jobs.GroupFrom(ctx) == nil {
		var release func()
		ctx, release = s.jobContext(ctx)
		defer release()
		if jobs.GroupFrom(ctx) == nil {
			ctx = jobs.WithGroup(ctx, jobs.NewGroup())
		}
	}

	stages := make([]pipeline.Stage, len(stmts))
	for i, stmt := range stmts {
		sub := s.fork()
		stages[i] = func(ctx context.Context, fds *env.FdTable) (spawn.Handle, error) {
			sub.env.SetFds(fds)
			return spawn.Go(func() status.ExitStatus {
				st, err := subshellStatus(sub.stmt(ctx, stmt))
				if pipeline.BrokenPipe(ctx) {
					return status.Signaled(int(syscall.SIGPIPE))
				}
				if err != nil {
					sub.report(err)
				}
				return st
			}), nil
		}
	}

	return pipeline.Run(ctx, s.env.Fds(), stages, pipeline.Options{
		Pipefail:  s.env.Options().Pipefail,
		StderrToo: stderrToo,
		OnError:   func(_ int, err error) { s.report(err) },
	})
}

// background starts stmt as a job and returns at once. $! is set to the
// job's process group, or to a job-specific number when it runs no process.
func (s *shell) background(ctx context.Context, stmt *ast.Stmt) status.ExitStatus {
	sub := s.fork()
	fg := *stmt
	fg.Background = false
	text := stmtText(stmt)

	job := s.r.jobs.Launch(ctx, jobs.Spec{
		Text:       text,
		Background: true,
		WaitStart:  s.startsProcess(&fg),
		Run: func(ctx context.Context) status.ExitStatus {
			st, err := subshellStatus(sub.stmt(ctx, &fg))
			if err != nil {
				sub.report(err)
			}
			return st
		},
	})
	s.env.SetLastBackground(job.Pid())
	s.r.log.Log(ctx, logger.LevelVerbose, "job started", "job", job.ID, "pid", job.Pid(), "text", text)
	if s.r.Interactive {
		s.r.Logger.FOutf(s.env.Fds().Stderr(), logger.Default, "[%d] %d\n", job.ID, job.Pid())
	}
	return status.OK
}

// startsProcess reports whether stmt runs an external program right away,
// directly or as a pipeline stage. Command names that are not literal are
// assumed to.
func (s *shell) startsProcess(stmt *ast.Stmt) bool {
	switch cmd := stmt.Cmd.(type) {
	case *ast.BinaryCmd:
		if cmd.Op == ast.Pipe || cmd.Op == ast.PipeAll {
			return s.startsProcess(cmd.X) || s.startsProcess(cmd.Y)
		}
		return s.startsProcess(cmd.X)
	case *ast.CallExpr:
		if len(cmd.Args) == 0 {
			return false
		}
		name, ok := cmd.Args[0].Lit()
		if !ok {
			return true
		}
		kind, _ := s.Lookup(name)
		return kind == spawn.KindFile
	}
	return false
}

// stmtText is the text shown for a job.
func stmtText(stmt *ast.Stmt) string {
	if stmt.Text != "" {
		return strings.TrimSuffix(strings.TrimSpace(stmt.Text), "&")
	}
	if ce, ok := stmt.Cmd.(*ast.CallExpr); ok {
		var words []string
		for _, w := range ce.Args {
			if lit, ok := w.Lit(); ok {
				words = append(words, lit)
			}
		}
		if len(words) > 0 {
			return strings.Join(words, " ")
		}
	}
	return fmt.Sprintf("%T", stmt.Cmd)[len("*ast."):]
}
