//go:build !windows

package jobs

import (
	"os/signal"
	"syscall"
)

func signalIgnoreTTOU() {
	signal.Ignore(syscall.SIGTTOU)
}
