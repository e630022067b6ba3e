// Package redir applies the redirections of one command to a descriptor
// table and undoes them afterwards.
package redir

import (
	"context"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/afero"

	"github.com/go-task/shexec/ast"
	"github.com/go-task/shexec/errors"
	"github.com/go-task/shexec/internal/env"
	"github.com/go-task/shexec/internal/expand"
	"github.com/go-task/shexec/internal/filepathext"
)

// DevNull is accepted as a redirection target on every platform.
const DevNull = "/dev/null"

type prior struct {
	desc env.FileDesc
	open bool
}

// Guard remembers what a set of redirections changed.
type Guard struct {
	fds      *env.FdTable
	saved    map[int]prior
	order    []int
	closers  []io.Closer
	released bool
}

func (g *Guard) save(fd int) {
	if _, ok := g.saved[fd]; ok {
		return
	}
	desc, open := g.fds.Get(fd)
	g.saved[fd] = prior{desc: desc, open: open}
	g.order = append(g.order, fd)
}

func (g *Guard) set(fd int, desc env.FileDesc) {
	g.save(fd)
	g.fds.Set(fd, desc)
}

func (g *Guard) close(fd int) {
	g.save(fd)
	g.fds.Close(fd)
}

// Release restores every slot touched by the redirections and closes the
// handles they opened. It is safe to call more than once.
func (g *Guard) Release() {
	if g == nil || g.released {
		return
	}
	g.released = true
	for i := len(g.order) - 1; i >= 0; i-- {
		fd := g.order[i]
		p := g.saved[fd]
		if p.open {
			g.fds.Set(fd, p.desc)
		} else {
			g.fds.Close(fd)
		}
	}
	for _, c := range g.closers {
		c.Close()
	}
}

// Keep makes the redirections permanent, as exec without a command does.
// The opened handles stay open for the rest of the shell's life.
func (g *Guard) Keep() {
	if g == nil {
		return
	}
	g.released = true
}

// Changed returns the slots the redirections touched.
func (g *Guard) Changed() []int {
	if g == nil {
		return nil
	}
	return g.order
}

// Apply performs redirs left to right on fds. When one fails, the slots
// already changed are restored before the error is returned.
func Apply(ctx context.Context, cfg *expand.Config, redirs []*ast.Redirect, fds *env.FdTable) (*Guard, error) {
	g := &Guard{fds: fds, saved: make(map[int]prior)}
	for _, rd := range redirs {
		if err := g.apply(ctx, cfg, rd); err != nil {
			g.Release()
			return nil, err
		}
	}
	return g, nil
}

func (g *Guard) apply(ctx context.Context, cfg *expand.Config, rd *ast.Redirect) error {
	switch rd.Op {
	case ast.Hdoc, ast.DashHdoc:
		body, err := heredoc(ctx, cfg, rd)
		if err != nil {
			return err
		}
		return g.feed(rd.Fd, body)

	case ast.WordHdoc:
		body, err := expand.Literal(ctx, cfg, rd.Word)
		if err != nil {
			return err
		}
		return g.feed(rd.Fd, body+"\n")
	}

	target, err := expand.Literal(ctx, cfg, rd.Word)
	if err != nil {
		return err
	}

	switch rd.Op {
	case ast.DplIn, ast.DplOut:
		if target == "-" {
			g.close(rd.Fd)
			return nil
		}
		move := strings.HasSuffix(target, "-")
		src, err := strconv.Atoi(strings.TrimSuffix(target, "-"))
		if err != nil {
			if rd.Op == ast.DplOut && rd.Fd == 1 {
				return g.open(cfg, target, ast.RdrAll, 1)
			}
			return &errors.IoError{Op: rd.Op.String(), Fd: rd.Fd, Err: errors.ErrBadFd}
		}
		desc, ok := g.fds.Get(src)
		if !ok || (rd.Op == ast.DplIn && desc.Reader == nil) || (rd.Op == ast.DplOut && desc.Writer == nil) {
			return &errors.IoError{Fd: src, Err: errors.ErrBadFd}
		}
		g.set(rd.Fd, desc)
		if move && src != rd.Fd {
			g.close(src)
		}
		return nil
	}
	return g.open(cfg, target, rd.Op, rd.Fd)
}

func (g *Guard) open(cfg *expand.Config, target string, op ast.RedirOp, fd int) error {
	var flag int
	switch op {
	case ast.RdrIn:
		flag = os.O_RDONLY
	case ast.RdrOut, ast.RdrClob, ast.RdrAll:
		flag = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	case ast.AppOut, ast.AppAll:
		flag = os.O_WRONLY | os.O_CREATE | os.O_APPEND
	case ast.RdrInOut:
		flag = os.O_RDWR | os.O_CREATE
	default:
		return &errors.IoError{Op: op.String(), Fd: fd, Err: errors.New("unsupported redirection")}
	}

	var f io.ReadWriteCloser
	if target == DevNull {
		file, err := os.OpenFile(os.DevNull, flag, 0)
		if err != nil {
			return ioError(target, err)
		}
		f = file
	} else {
		fsys := cfg.Fs
		if fsys == nil {
			fsys = afero.NewOsFs()
		}
		path := filepathext.SmartJoin(cfg.Env.Dir(), target)
		noclobber := cfg.Env.Options().Noclobber && (op == ast.RdrOut || op == ast.RdrAll)
		if noclobber {
			if info, err := fsys.Stat(path); err == nil && info.Mode().IsRegular() {
				return &errors.IoError{Path: target, Err: errors.New("cannot overwrite existing file")}
			}
		}
		file, err := fsys.OpenFile(path, flag, 0o644)
		if err != nil {
			return ioError(target, err)
		}
		f = file
	}
	g.closers = append(g.closers, f)

	var desc env.FileDesc
	switch op {
	case ast.RdrIn:
		desc = env.ReadFd(f)
	case ast.RdrInOut:
		desc = env.FileDesc{Reader: f, Writer: f}
	default:
		desc = env.WriteFd(f)
	}
	g.set(fd, desc)
	if op == ast.RdrAll || op == ast.AppAll {
		g.set(2, desc)
	}
	return nil
}

func ioError(target string, err error) error {
	var pathErr *fs.PathError
	if errors.As(err, &pathErr) {
		err = pathErr.Err
	}
	return &errors.IoError{Path: target, Err: err}
}

// feed connects fd to a pipe whose other end receives body. The write
// happens in its own goroutine, since pipe buffers are bounded.
func (g *Guard) feed(fd int, body string) error {
	pr, pw, err := os.Pipe()
	if err != nil {
		return &errors.FatalError{Op: "pipe", Err: err}
	}
	go func() {
		_, _ = io.WriteString(pw, body)
		pw.Close()
	}()
	g.closers = append(g.closers, pr)
	g.set(fd, env.ReadFd(pr))
	return nil
}

func heredoc(ctx context.Context, cfg *expand.Config, rd *ast.Redirect) (string, error) {
	word := rd.Hdoc
	if word == nil {
		return "", nil
	}
	if rd.Op == ast.DashHdoc {
		word = stripTabs(word)
	}
	if rd.Quoted {
		lit, _ := word.Lit()
		return lit, nil
	}
	return expand.Document(ctx, cfg, word)
}

// stripTabs removes the leading tabs of every line of the literal parts of
// a heredoc body.
func stripTabs(word *ast.Word) *ast.Word {
	out := &ast.Word{}
	lineStart := true
	for _, part := range word.Parts {
		lit, ok := part.(*ast.Lit)
		if !ok {
			out.Parts = append(out.Parts, part)
			lineStart = false
			continue
		}
		lines := strings.Split(lit.Value, "\n")
		for i, line := range lines {
			if i > 0 || lineStart {
				lines[i] = strings.TrimLeft(line, "\t")
			}
		}
		value := strings.Join(lines, "\n")
		lineStart = strings.HasSuffix(value, "\n")
		out.Parts = append(out.Parts, &ast.Lit{Value: value})
	}
	return out
}
