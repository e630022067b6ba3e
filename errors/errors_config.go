package errors

import "fmt"

// ConfigError is returned when a configuration file cannot be read, decoded
// or validated.
type ConfigError struct {
	Path string
	Err  error
}

func (err *ConfigError) Error() string {
	return fmt.Sprintf("%s: %v", err.Path, err.Err)
}

func (err *ConfigError) Code() int {
	return CodeUsage
}

func (err *ConfigError) Unwrap() error {
	return err.Err
}

// UsageError is returned for an invalid command line.
type UsageError struct {
	Err error
}

func (err *UsageError) Error() string {
	return err.Err.Error()
}

func (err *UsageError) Code() int {
	return CodeUsage
}

func (err *UsageError) Unwrap() error {
	return err.Err
}
