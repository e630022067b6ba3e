package status

import (
	"fmt"
	"strconv"
)

// SignalOffset is added to a signal number to form the conventional exit code
// of a process terminated by that signal.
const SignalOffset = 128

// Conventional exit codes
const (
	CodeSuccess       = 0
	CodeFailure       = 1
	CodeUsage         = 2
	CodeNotExecutable = 126
	CodeNotFound      = 127
)

// ExitStatus is the result of running a command: either an exit code in the
// range 0-255 or the number of the signal that terminated it.
type ExitStatus struct {
	code     uint8
	signal   int
	signaled bool
}

var (
	// OK is the status of a successful command.
	OK = ExitStatus{}
	// Failure is the generic failure status.
	Failure = Code(CodeFailure)
	// NotFound is the status of a command that could not be found.
	NotFound = Code(CodeNotFound)
	// NotExecutable is the status of a command that was found but could not
	// be executed.
	NotExecutable = Code(CodeNotExecutable)
)

// Code returns an exit status for the given exit code. Codes are truncated to
// 8 bits, as they are by the operating system.
func Code(n int) ExitStatus {
	return ExitStatus{code: uint8(n)}
}

// Signaled returns an exit status for a process terminated by signal sig.
func Signaled(sig int) ExitStatus {
	return ExitStatus{signal: sig, signaled: true}
}

// FromBool returns OK if ok is true and Failure otherwise.
func FromBool(ok bool) ExitStatus {
	if ok {
		return OK
	}
	return Failure
}

// Success reports whether the status is a zero exit code. A signal
// termination is never a success.
func (s ExitStatus) Success() bool {
	return !s.signaled && s.code == 0
}

// Signal returns the terminating signal, if any.
func (s ExitStatus) Signal() (int, bool) {
	return s.signal, s.signaled
}

// Int returns the status as it is reported through $? and process exit codes.
func (s ExitStatus) Int() int {
	if s.signaled {
		return SignalOffset + s.signal
	}
	return int(s.code)
}

// Negate implements the ! pipeline prefix: a non-zero exit code becomes
// success, everything else (including signal termination) becomes a failure.
func (s ExitStatus) Negate() ExitStatus {
	if !s.signaled && s.code != 0 {
		return OK
	}
	return Failure
}

func (s ExitStatus) String() string {
	if s.signaled {
		return fmt.Sprintf("signal %d", s.signal)
	}
	return "exit status " + strconv.Itoa(int(s.code))
}
