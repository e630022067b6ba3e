package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"sync"

	"github.com/go-task/shexec"
	"github.com/go-task/shexec/ast"
	"github.com/go-task/shexec/errors"
	"github.com/go-task/shexec/internal/logger"
	"github.com/go-task/shexec/parse"
)

// repl reads and runs statements from a terminal until EOF or exit. An
// interrupt cancels the statement being run, not the shell.
func repl(ctx context.Context, r *shexec.Runner, stdin io.Reader, log *logger.Logger) error {
	var (
		mu     sync.Mutex
		cancel context.CancelFunc = func() {}
	)
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt)
	defer signal.Stop(sigs)
	go func() {
		for range sigs {
			mu.Lock()
			cancel()
			mu.Unlock()
		}
	}()

	prompt := func(name, def string) {
		ps, ok := r.Env(name)
		if !ok {
			ps = def
		}
		log.FOutf(log.Stderr, logger.Default, "%s", ps)
	}

	for {
		prompt("PS1", "$ ")
		err := parse.Interactive(stdin, "stdin", func(script *ast.Script, incomplete bool, err error) bool {
			switch {
			case incomplete:
				prompt("PS2", "> ")
				return true
			case err != nil:
				log.Errf(logger.Red, "shexec: %v", err)
			default:
				sctx, stop := context.WithCancel(ctx)
				mu.Lock()
				cancel = stop
				mu.Unlock()
				err := r.Run(sctx, script)
				stop()
				var exitErr *errors.ExitStatusError
				if err != nil && !errors.As(err, &exitErr) {
					log.Errf(logger.Red, "shexec: %v", err)
				}
				if r.Exited() {
					return false
				}
			}
			prompt("PS1", "$ ")
			return true
		})
		var parseErr *errors.ParseError
		if !errors.As(err, &parseErr) || r.Exited() {
			if err != nil {
				return err
			}
			break
		}
		log.Errf(logger.Red, "shexec: %v", err)
	}

	if st := r.Status(); !st.Success() {
		return &errors.ExitStatusError{Status: st}
	}
	return nil
}
