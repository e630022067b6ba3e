package errors

import "errors"

// General exit codes
const (
	CodeOk      int = iota // Used when the script exits without errors
	CodeUnknown            // Used when no other exit code is appropriate
	CodeUsage              // Used for invalid invocations and fatal runtime errors
)

// Command resolution exit codes
const (
	CodeCommandNotExecutable int = iota + 126
	CodeCommandNotFound
)

// ShellError extends the standard error interface with a Code method. This code
// is used as the exit status of the failing command, or of the whole program
// when the error reaches the embedder.
type ShellError interface {
	error
	Code() int
}

// New returns an error that formats as the given text. Each call to New returns
// a distinct error value even if the text is identical. This wraps the standard
// errors.New function so that we don't need to alias that package.
func New(text string) error {
	return errors.New(text)
}

// Is wraps the standard errors.Is function so that we don't need to alias that package.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As wraps the standard errors.As function so that we don't need to alias that package.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// Code returns the exit code associated with err. A nil error maps to CodeOk
// and errors that do not implement ShellError map to CodeUnknown.
func Code(err error) int {
	if err == nil {
		return CodeOk
	}
	var shellErr ShellError
	if errors.As(err, &shellErr) {
		return shellErr.Code()
	}
	return CodeUnknown
}
