//go:build windows

package spawn

import (
	"errors"
	"os"

	"golang.org/x/sys/windows"

	"github.com/go-task/shexec/internal/status"
)

func exitStatus(ps *os.ProcessState, err error) status.ExitStatus {
	if ps == nil {
		if err != nil {
			return status.Failure
		}
		return status.OK
	}
	return status.Code(ps.ExitCode())
}

func isExecFormat(err error) bool {
	return errors.Is(err, windows.ERROR_BAD_EXE_FORMAT)
}
