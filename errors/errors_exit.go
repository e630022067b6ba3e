package errors

import "github.com/go-task/shexec/internal/status"

// ExitStatusError is returned by a Runner when a script finishes with a
// non-zero status. Its code is the status itself, so embedders can pass it
// straight to os.Exit.
type ExitStatusError struct {
	Status status.ExitStatus
}

func (err *ExitStatusError) Error() string {
	return err.Status.String()
}

func (err *ExitStatusError) Code() int {
	return err.Status.Int()
}
