// Package pipeline connects the stages of a pipeline with OS pipes, starts
// them all and reduces their statuses to one.
package pipeline

import (
	"context"
	goerrors "errors"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/go-task/shexec/errors"
	"github.com/go-task/shexec/internal/env"
	"github.com/go-task/shexec/internal/spawn"
	"github.com/go-task/shexec/internal/status"
)

// ErrBrokenPipe is the cancellation cause of a stage that wrote to a pipe
// nobody reads anymore.
var ErrBrokenPipe = goerrors.New("broken pipe")

// BrokenPipe reports whether ctx was cancelled because its stage wrote to a
// closed pipe.
func BrokenPipe(ctx context.Context) bool {
	return goerrors.Is(context.Cause(ctx), ErrBrokenPipe)
}

// Stage starts one element of a pipeline with the given descriptors. It must
// not block until the stage finished.
type Stage func(ctx context.Context, fds *env.FdTable) (spawn.Handle, error)

// Options control how stages are connected and reduced.
type Options struct {
	// Pipefail makes the pipeline fail with the right-most failing status.
	Pipefail bool
	// StderrToo connects fd 2 of stage i to the pipe too, as |& does. It is
	// indexed like the stages; a missing entry means false.
	StderrToo []bool
	// OnError is called with the error of a stage that failed to start.
	// The stage then counts as having finished with that error's code.
	OnError func(i int, err error)
}

type link struct{ r, w *os.File }

// Run starts every stage before waiting for any, then waits for all of them.
// Only a failure to create the pipes is returned as an error.
func Run(ctx context.Context, fds *env.FdTable, stages []Stage, opts Options) (status.ExitStatus, error) {
	if len(stages) == 0 {
		return status.OK, nil
	}

	links := make([]link, 0, len(stages)-1)
	for range len(stages) - 1 {
		r, w, err := os.Pipe()
		if err != nil {
			for _, l := range links {
				l.r.Close()
				l.w.Close()
			}
			return status.Code(errors.CodeUsage), &errors.FatalError{Op: "pipe", Err: err}
		}
		links = append(links, link{r: r, w: w})
	}

	statuses := make([]status.ExitStatus, len(stages))
	handles := make([]spawn.Handle, len(stages))
	cancels := make([]context.CancelCauseFunc, len(stages))

	var launch errgroup.Group
	for i, stage := range stages {
		sctx, cancel := context.WithCancelCause(ctx)
		cancels[i] = cancel

		stageFds := fds.Clone()
		if i > 0 {
			stageFds.Set(0, env.ReadFd(links[i-1].r))
		}
		if i < len(links) {
			w := &pipeWriter{f: links[i].w, broken: func() { cancel(ErrBrokenPipe) }}
			stageFds.Set(1, env.WriteFd(w))
			if i < len(opts.StderrToo) && opts.StderrToo[i] {
				stageFds.Set(2, env.WriteFd(w))
			}
		}
		launch.Go(func() error {
			h, err := stage(sctx, stageFds)
			if err != nil {
				if opts.OnError != nil {
					opts.OnError(i, err)
				}
				h = spawn.Done(status.Code(errors.Code(err)))
			}
			handles[i] = h
			return nil
		})
	}
	_ = launch.Wait()

	// A started process holds its own duplicates of the pipe ends, and an
	// in-process stage uses ours until it returns, so each stage's ends are
	// closed once it finished.
	var await errgroup.Group
	for i, h := range handles {
		await.Go(func() error {
			statuses[i] = h.Wait(ctx)
			if i > 0 {
				links[i-1].r.Close()
			}
			if i < len(links) {
				links[i].w.Close()
			}
			cancels[i](nil)
			return nil
		})
	}
	_ = await.Wait()

	return Reduce(statuses, opts.Pipefail), nil
}

// Reduce combines the statuses of the stages of a pipeline: the last one, or
// with pipefail the right-most failure.
func Reduce(statuses []status.ExitStatus, pipefail bool) status.ExitStatus {
	if len(statuses) == 0 {
		return status.OK
	}
	if pipefail {
		for i := len(statuses) - 1; i >= 0; i-- {
			if !statuses[i].Success() {
				return statuses[i]
			}
		}
		return status.OK
	}
	return statuses[len(statuses)-1]
}

// pipeWriter is the write end of a pipe as seen by in-process stages. A write
// to a pipe without readers cancels the stage, which is how a process would
// be terminated by SIGPIPE.
type pipeWriter struct {
	f      *os.File
	broken func()
}

func (w *pipeWriter) Write(p []byte) (int, error) {
	n, err := w.f.Write(p)
	if err != nil && isBrokenPipe(err) {
		w.broken()
	}
	return n, err
}

// OSFile hands the pipe itself to child processes.
func (w *pipeWriter) OSFile() *os.File {
	return w.f
}
