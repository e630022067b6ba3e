package status

import "errors"

// The control values below are not failures. They travel through the error
// return of builtins and evaluator methods until the enclosing construct that
// consumes them is reached: a loop for Break and Continue, a function call for
// Return and the top level for Exit.

// Break leaves the N-th enclosing loop.
type Break struct {
	N int
}

func (b *Break) Error() string { return "break" }

// Continue resumes the N-th enclosing loop.
type Continue struct {
	N int
}

func (c *Continue) Error() string { return "continue" }

// Return leaves the current function with the given status.
type Return struct {
	Status ExitStatus
}

func (r *Return) Error() string { return "return: " + r.Status.String() }

// Exit terminates the current shell with the given status.
type Exit struct {
	Status ExitStatus
}

func (e *Exit) Error() string { return "exit: " + e.Status.String() }

// IsControl reports whether err is one of the control values.
func IsControl(err error) bool {
	var (
		b *Break
		c *Continue
		r *Return
		e *Exit
	)
	return errors.As(err, &b) || errors.As(err, &c) || errors.As(err, &r) || errors.As(err, &e)
}
