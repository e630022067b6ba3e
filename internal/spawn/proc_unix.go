//go:build !windows

package spawn

import (
	"errors"
	"os"
	"syscall"

	"github.com/go-task/shexec/internal/status"
)

func exitStatus(ps *os.ProcessState, err error) status.ExitStatus {
	if ps == nil {
		if err != nil {
			return status.Failure
		}
		return status.OK
	}
	if ws, ok := ps.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return status.Signaled(int(ws.Signal()))
	}
	return status.Code(ps.ExitCode())
}

func isExecFormat(err error) bool {
	return errors.Is(err, syscall.ENOEXEC)
}
