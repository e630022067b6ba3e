package errors

import "fmt"

// ExpansionError is returned when a word cannot be expanded: bad parameter
// substitutions, malformed arithmetic, ${name?} on an unset parameter or a
// glob without matches under the fail policy.
type ExpansionError struct {
	Param string
	Msg   string
	Err   error
}

func (err *ExpansionError) Error() string {
	msg := err.Msg
	if err.Err != nil {
		if msg == "" {
			msg = err.Err.Error()
		} else {
			msg = fmt.Sprintf("%s: %v", msg, err.Err)
		}
	}
	if err.Param == "" {
		return msg
	}
	return fmt.Sprintf("%s: %s", err.Param, msg)
}

func (err *ExpansionError) Code() int {
	return CodeUnknown
}

func (err *ExpansionError) Unwrap() error {
	return err.Err
}

// ReadonlyVariableError is returned when a readonly variable is assigned or
// unset.
type ReadonlyVariableError struct {
	Name string
}

func (err *ReadonlyVariableError) Error() string {
	return fmt.Sprintf("%s: readonly variable", err.Name)
}

func (err *ReadonlyVariableError) Code() int {
	return CodeUnknown
}
