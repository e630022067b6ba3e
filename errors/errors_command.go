package errors

import (
	"fmt"
	"strings"
)

// CommandNotFoundError is returned when a command name is neither a function,
// a builtin nor an executable in $PATH.
type CommandNotFoundError struct {
	Name       string
	DidYouMean string
	// NoSuchFile is set when Name is a path that does not exist.
	NoSuchFile bool
}

func (err *CommandNotFoundError) Error() string {
	if err.NoSuchFile {
		return err.Name + ": no such file or directory"
	}
	if err.DidYouMean != "" {
		return fmt.Sprintf("%s: command not found. Did you mean %q?", err.Name, err.DidYouMean)
	}
	return fmt.Sprintf("%s: command not found", err.Name)
}

func (err *CommandNotFoundError) Code() int {
	return CodeCommandNotFound
}

// NotExecutableError is returned when a command was found but cannot be
// executed, because it is a directory or lacks the execute permission.
type NotExecutableError struct {
	Path string
	Err  error
}

func (err *NotExecutableError) Error() string {
	return fmt.Sprintf("%s: %v", err.Path, err.Err)
}

func (err *NotExecutableError) Code() int {
	return CodeCommandNotExecutable
}

func (err *NotExecutableError) Unwrap() error {
	return err.Err
}

// UnsupportedError is returned by the parser adapter for syntax that the
// runtime does not implement.
type UnsupportedError struct {
	Pos  string
	What string
}

func (err *UnsupportedError) Error() string {
	return fmt.Sprintf("%s: %s is not supported", err.Pos, err.What)
}

func (err *UnsupportedError) Code() int {
	return CodeUsage
}

// ParseError is returned when a script cannot be parsed.
type ParseError struct {
	Name string
	Err  error
}

func (err *ParseError) Error() string {
	msg := err.Err.Error()
	if err.Name != "" && !strings.HasPrefix(msg, err.Name) {
		return fmt.Sprintf("%s: %s", err.Name, msg)
	}
	return msg
}

func (err *ParseError) Code() int {
	return CodeUsage
}

func (err *ParseError) Unwrap() error {
	return err.Err
}
