// This code is released under the MIT License
// Copyright (c) 2020 Marco Molteni and the timeit contributors.

// Command sleepit works for a while and reports on stdout what it is doing,
// so that tests can tell how a shell delivered a signal to it. With handle,
// the first SIGINT cancels the work and starts a cleanup phase.
package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/pflag"
)

const usage = `usage: sleepit <default|handle> [flags]

  default   keep the default action for SIGINT and terminate abruptly
  handle    on SIGINT cancel the work and clean up before exiting

sleepit prints "sleepit: ready" once signals can be sent to it.`

// Exit codes when the work is interrupted.
const (
	exitCleanedUp  = 3
	exitTerminated = 4
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 || (args[0] != "default" && args[0] != "handle") {
		fmt.Fprintln(stderr, usage)
		return 2
	}
	mode := args[0]

	flags := pflag.NewFlagSet(mode, pflag.ContinueOnError)
	flags.SetOutput(stderr)
	sleep := flags.Duration("sleep", 5*time.Second, "how long to work")
	cleanup := flags.Duration("cleanup", 5*time.Second, "how long to clean up (handle only)")
	termAfter := flags.Int("term-after", 0, "exit right away on the `N`th signal (handle only)")
	if err := flags.Parse(args[1:]); err != nil {
		return 2
	}
	if flags.NArg() > 0 {
		fmt.Fprintf(stderr, "%s: unexpected arguments: %v\n", mode, flags.Args())
		return 2
	}

	if mode == "default" {
		return supervise(stdout, *sleep, 0, 0, nil)
	}
	if *termAfter == 1 {
		fmt.Fprintln(stderr, "handle: term-after cannot be 1")
		return 2
	}
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt)
	return supervise(stdout, *sleep, *cleanup, *termAfter, signals)
}

// supervise runs the work phase and, after the first signal, the cleanup
// phase. The work is stopped before the cleanup starts.
func supervise(out io.Writer, sleep, cleanup time.Duration, termAfter int, signals <-chan os.Signal) int {
	fmt.Fprintln(out, "sleepit: ready")
	fmt.Fprintf(out, "sleepit: PID=%d sleep=%v cleanup=%v\n", os.Getpid(), sleep, cleanup)

	work := startPhase(out, "work", sleep)
	workDone := work.done
	var (
		clean     *phase
		cleanDone <-chan struct{}
		count     int
	)
	for {
		select {
		case sig := <-signals:
			count++
			fmt.Fprintf(out, "sleepit: got signal=%s count=%d\n", sig, count)
			if count == 1 {
				work.stop()
				workDone = nil
				clean = startPhase(out, "cleanup", cleanup)
				cleanDone = clean.done
			}
			if count == termAfter {
				clean.stop()
				return exitTerminated
			}
		case <-workDone:
			return 0
		case <-cleanDone:
			return exitCleanedUp
		}
	}
}

// phase is a stretch of simulated work. done is closed only when it ran to
// the end.
type phase struct {
	done   chan struct{}
	cancel chan struct{}
	exited chan struct{}
}

func startPhase(out io.Writer, name string, d time.Duration) *phase {
	p := &phase{
		done:   make(chan struct{}),
		cancel: make(chan struct{}),
		exited: make(chan struct{}),
	}
	go func() {
		defer close(p.exited)
		fmt.Fprintf(out, "sleepit: %s started\n", name)
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-timer.C:
			fmt.Fprintf(out, "sleepit: %s done\n", name)
			close(p.done)
		case <-p.cancel:
			fmt.Fprintf(out, "sleepit: %s canceled\n", name)
		}
	}()
	return p
}

// stop cancels the phase and waits until it reported back.
func (p *phase) stop() {
	close(p.cancel)
	<-p.exited
}
