package errors

import (
	"fmt"
	"strconv"
)

// ErrBadFd is wrapped by IoError when a redirection refers to a descriptor
// that is not open or cannot be used in the requested direction.
var ErrBadFd = New("bad file descriptor")

// IoError is returned when a redirection, a file open or a descriptor
// duplication fails. It aborts the owning command only.
type IoError struct {
	Op   string
	Path string
	Fd   int
	Err  error
}

func (err *IoError) Error() string {
	switch {
	case err.Path != "":
		return fmt.Sprintf("%s: %v", err.Path, err.Err)
	case err.Op != "":
		return fmt.Sprintf("%s %s: %v", err.Op, strconv.Itoa(err.Fd), err.Err)
	default:
		return fmt.Sprintf("%d: %v", err.Fd, err.Err)
	}
}

func (err *IoError) Code() int {
	return CodeUnknown
}

func (err *IoError) Unwrap() error {
	return err.Err
}

// FatalError is returned when the runtime runs out of an operating system
// resource it cannot do without, like pipes or processes. It stops the whole
// evaluation and is bubbled up to the embedder.
type FatalError struct {
	Op  string
	Err error
}

func (err *FatalError) Error() string {
	return fmt.Sprintf("fatal: %s: %v", err.Op, err.Err)
}

func (err *FatalError) Code() int {
	return CodeUsage
}

func (err *FatalError) Unwrap() error {
	return err.Err
}
