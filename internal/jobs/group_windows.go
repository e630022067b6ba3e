//go:build windows

package jobs

import (
	"errors"
	"os"
	"os/exec"
	"strings"
	"syscall"

	"golang.org/x/sys/windows"
)

func configure(cmd *exec.Cmd, pgid int, tty *os.File) {
	cmd.SysProcAttr = &syscall.SysProcAttr{CreationFlags: windows.CREATE_NEW_PROCESS_GROUP}
}

func joinFailed(err error) bool { return false }

func signalGroup(pgids []int, procs []*os.Process, sig os.Signal) error {
	if sig == os.Interrupt {
		return interruptGroup(pgids, procs)
	}
	if sig != os.Kill && sig != syscall.SIGTERM {
		return errors.ErrUnsupported
	}
	var errs []error
	for _, p := range procs {
		if err := p.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// interruptGroup sends a Ctrl-Break event to each process group, which is
// the only console event that can target a group.
func interruptGroup(pgids []int, procs []*os.Process) error {
	var errs []error
	for _, pgid := range pgids {
		if err := windows.GenerateConsoleCtrlEvent(windows.CTRL_BREAK_EVENT, uint32(pgid)); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func reclaimTerminal(tty *os.File) {}

// Jobs cannot be suspended on Windows.
var (
	StopSignal     os.Signal
	ContinueSignal os.Signal
)

var signalNames = map[string]syscall.Signal{
	"HUP":  syscall.SIGHUP,
	"INT":  syscall.SIGINT,
	"QUIT": syscall.SIGQUIT,
	"KILL": syscall.SIGKILL,
	"TERM": syscall.SIGTERM,
}

// ParseSignal accepts a signal number or a name, with or without the SIG
// prefix.
func ParseSignal(s string) (os.Signal, error) {
	if n, ok := atoi(s); ok {
		return syscall.Signal(n), nil
	}
	name := strings.TrimPrefix(signalName(s), "SIG")
	if sig, ok := signalNames[name]; ok {
		return sig, nil
	}
	return nil, errors.New(s + ": invalid signal specification")
}

// SignalName returns the name of sig without the SIG prefix.
func SignalName(sig int) string {
	for name, s := range signalNames {
		if int(s) == sig {
			return name
		}
	}
	return ""
}
