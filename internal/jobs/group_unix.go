//go:build !windows

package jobs

import (
	"errors"
	"os"
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

func configure(cmd *exec.Cmd, pgid int, tty *os.File) {
	attr := &syscall.SysProcAttr{Setpgid: true, Pgid: pgid}
	if tty != nil && pgid == 0 {
		attr.Foreground = true
		attr.Ctty = int(tty.Fd())
	}
	cmd.SysProcAttr = attr
}

func joinFailed(err error) bool {
	return errors.Is(err, syscall.EPERM) || errors.Is(err, syscall.ESRCH)
}

func signalGroup(pgids []int, procs []*os.Process, sig os.Signal) error {
	s, ok := sig.(syscall.Signal)
	if !ok {
		return errors.New("unsupported signal")
	}
	var errs []error
	for _, pgid := range pgids {
		if err := unix.Kill(-pgid, s); err != nil && !errors.Is(err, unix.ESRCH) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func interruptGroup(pgids []int, procs []*os.Process) error {
	return signalGroup(pgids, procs, syscall.SIGINT)
}

// reclaimTerminal makes the shell's process group the foreground group of
// tty again. SIGTTOU is ignored meanwhile, as a background process changing
// the foreground group would otherwise be stopped.
func reclaimTerminal(tty *os.File) {
	signalIgnoreTTOU()
	_ = unix.IoctlSetPointerInt(int(tty.Fd()), unix.TIOCSPGRP, unix.Getpgrp())
}

// StopSignal and ContinueSignal suspend and resume a job.
var (
	StopSignal     os.Signal = syscall.SIGSTOP
	ContinueSignal os.Signal = syscall.SIGCONT
)

// ParseSignal accepts a signal number or a name, with or without the SIG
// prefix.
func ParseSignal(s string) (os.Signal, error) {
	if n, ok := atoi(s); ok {
		return syscall.Signal(n), nil
	}
	sig := unix.SignalNum(signalName(s))
	if sig == 0 {
		return nil, errors.New(s + ": invalid signal specification")
	}
	return sig, nil
}

// SignalName returns the name of sig without the SIG prefix.
func SignalName(sig int) string {
	name := unix.SignalName(syscall.Signal(sig))
	if name == "" {
		return ""
	}
	return name[3:]
}
