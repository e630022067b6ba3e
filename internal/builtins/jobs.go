package builtins

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"

	"github.com/pborman/getopt/v2"

	"github.com/go-task/shexec/internal/jobs"
	"github.com/go-task/shexec/internal/spawn"
	"github.com/go-task/shexec/internal/status"
)

// Wait waits for the given jobs or pids, or for every job. The status is
// that of the last one waited for.
func Wait(ctx context.Context, call *spawn.Call) (status.ExitStatus, error) {
	ctl := call.Shell.Jobs()
	if len(call.Args) == 1 {
		if err := ctl.WaitAll(ctx); err != nil {
			return status.Signaled(int(syscall.SIGINT)), nil
		}
		return status.OK, nil
	}
	st := status.OK
	for _, spec := range call.Args[1:] {
		job, err := ctl.Lookup(spec)
		if err != nil {
			if strings.HasPrefix(spec, "%") {
				st = call.Errorf("%v", err)
			} else {
				call.Errorf("pid %s is not a child of this shell", spec)
				st = status.NotFound
			}
			continue
		}
		st = ctl.Wait(ctx, job)
	}
	return st, nil
}

// Jobs lists the jobs, with -l including their process ids and with -p
// printing only those.
func Jobs(_ context.Context, call *spawn.Call) (status.ExitStatus, error) {
	set := getopt.New()
	long := set.Bool('l', "include process ids")
	pids := set.Bool('p', "print only process ids")
	if _, st, ok := parseFlags(call, set); !ok {
		return st, nil
	}
	if err := call.Shell.Jobs().Fprint(call.Stdout(), *long, *pids); err != nil {
		return call.Errorf("%v", err), nil
	}
	return status.OK, nil
}

func jobArg(call *spawn.Call) (*jobs.Job, bool) {
	spec := ""
	if len(call.Args) > 1 {
		spec = call.Args[1]
	}
	job, err := call.Shell.Jobs().Lookup(spec)
	if err != nil {
		if spec == "" {
			call.Errorf("current: no such job")
		} else {
			call.Errorf("%v", err)
		}
		return nil, false
	}
	return job, true
}

// Fg brings a job to the foreground and waits for it.
func Fg(ctx context.Context, call *spawn.Call) (status.ExitStatus, error) {
	job, ok := jobArg(call)
	if !ok {
		return status.Failure, nil
	}
	fmt.Fprintln(call.Stdout(), job.Text)
	st, err := call.Shell.Jobs().Foreground(ctx, job)
	if err != nil {
		return call.Errorf("%v", err), nil
	}
	return st, nil
}

// Bg resumes a stopped job in the background.
func Bg(_ context.Context, call *spawn.Call) (status.ExitStatus, error) {
	job, ok := jobArg(call)
	if !ok {
		return status.Failure, nil
	}
	if err := call.Shell.Jobs().Continue(job); err != nil {
		return call.Errorf("%v", err), nil
	}
	fmt.Fprintf(call.Stdout(), "[%d] %s &\n", job.ID, job.Text)
	return status.OK, nil
}

// Kill sends a signal, SIGTERM by default, to jobs and processes. With -l
// it lists the signal names.
func Kill(_ context.Context, call *spawn.Call) (status.ExitStatus, error) {
	args := call.Args[1:]
	var sig os.Signal = syscall.SIGTERM

	// -SIG and -NUM are not options getopt could describe.
	if len(args) > 0 && len(args[0]) > 1 && args[0][0] == '-' && args[0] != "-s" && args[0] != "-l" && args[0] != "--" {
		s, err := jobs.ParseSignal(args[0][1:])
		if err != nil {
			return call.Usage("%v", err), nil
		}
		sig, args = s, args[1:]
	} else {
		set := getopt.New()
		name := set.String('s', "", "signal to send")
		list := set.Bool('l', "list signal names")
		var (
			st status.ExitStatus
			ok bool
		)
		if args, st, ok = parseFlags(call, set); !ok {
			return st, nil
		}
		if *list {
			return listSignals(call, args), nil
		}
		if *name != "" {
			s, err := jobs.ParseSignal(*name)
			if err != nil {
				return call.Usage("%v", err), nil
			}
			sig = s
		}
	}
	if len(args) == 0 {
		return call.Usage("usage: kill [-s sigspec | -sigspec] pid | jobspec ..."), nil
	}

	ctl := call.Shell.Jobs()
	st := status.OK
	for _, target := range args {
		if job, err := ctl.Lookup(target); err == nil {
			if err := ctl.Signal(job, sig.(syscall.Signal)); err != nil {
				st = call.Errorf("%s: %v", target, err)
			}
			continue
		} else if strings.HasPrefix(target, "%") {
			st = call.Errorf("%v", err)
			continue
		}
		pid, err := strconv.Atoi(target)
		if err != nil {
			st = call.Errorf("%s: arguments must be process or job IDs", target)
			continue
		}
		if err := signalPid(pid, sig); err != nil {
			st = call.Errorf("(%d) - %v", pid, err)
		}
	}
	return st, nil
}

func signalPid(pid int, sig os.Signal) error {
	p, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	err = p.Signal(sig)
	if errors.Is(err, os.ErrProcessDone) {
		return errors.New("no such process")
	}
	return err
}

func listSignals(call *spawn.Call, args []string) status.ExitStatus {
	if len(args) == 0 {
		var names []string
		for n := 1; n < 32; n++ {
			if name := jobs.SignalName(n); name != "" {
				names = append(names, name)
			}
		}
		fmt.Fprintln(call.Stdout(), strings.Join(names, " "))
		return status.OK
	}
	st := status.OK
	for _, arg := range args {
		n, err := strconv.Atoi(arg)
		if err != nil {
			st = call.Errorf("%s: invalid signal specification", arg)
			continue
		}
		if n > status.SignalOffset {
			n -= status.SignalOffset
		}
		name := jobs.SignalName(n)
		if name == "" {
			st = call.Errorf("%s: invalid signal specification", arg)
			continue
		}
		fmt.Fprintln(call.Stdout(), name)
	}
	return st
}
