package shexec

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-task/shexec/internal/logger"
)

const maxInterruptSignals = 3

// InterceptInterruptSignals catches SIGINT and SIGTERM so that the shell is
// not killed immediately and the commands it runs have time to clean up.
// Each signal cancels the running script and the background jobs through
// cancel; the third one forces the process out.
func (r *Runner) InterceptInterruptSignals(cancel context.CancelFunc) {
	ch := make(chan os.Signal, maxInterruptSignals)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)

	go func() {
		for i := range maxInterruptSignals {
			sig := <-ch

			if i+1 >= maxInterruptSignals {
				r.Logger.Errf(logger.Red, "%s: Signal received for the third time: %q. Forcing shutdown", r.Name, sig)
				os.Exit(1)
			}

			r.Logger.Errf(logger.Yellow, "%s: Signal received: %q", r.Name, sig)
			r.log.Log(context.Background(), logger.LevelVerbose, "interrupting", "signal", sig.String(), "jobs", r.jobs.Len())
			cancel()
			r.jobs.CancelAll()
		}
	}()
}
