package logger

import (
	"fmt"
	"io"
	"os"

	"github.com/go-task/shexec/internal/term"
)

// Logger is just a wrapper that prints stuff to STDOUT or STDERR,
// with optional color.
type Logger struct {
	Stdout  io.Writer
	Stderr  io.Writer
	Verbose bool
	Color   bool
}

// New returns a logger writing to stdout and stderr. Colour is only kept
// when stderr is a terminal and NO_COLOR is not set.
func New(stdout, stderr io.Writer, verbose, color bool) *Logger {
	if color && (os.Getenv("NO_COLOR") != "" || !term.IsTerminalWriter(stderr)) {
		color = false
	}
	return &Logger{Stdout: stdout, Stderr: stderr, Verbose: verbose, Color: color}
}

// Outf prints stuff to STDOUT.
func (l *Logger) Outf(color Color, s string, args ...any) {
	l.FOutf(l.Stdout, color, s+"\n", args...)
}

// FOutf prints stuff to the given writer.
func (l *Logger) FOutf(w io.Writer, color Color, s string, args ...any) {
	if len(args) == 0 {
		s, args = "%s", []any{s}
	}
	if !l.Color {
		fmt.Fprintf(w, s, args...)
		return
	}
	print := color()
	print(w, s, args...)
}

// VerboseOutf prints stuff to STDOUT if verbose mode is enabled.
func (l *Logger) VerboseOutf(color Color, s string, args ...any) {
	if l.Verbose {
		l.Outf(color, s, args...)
	}
}

// Errf prints stuff to STDERR.
func (l *Logger) Errf(color Color, s string, args ...any) {
	l.FOutf(l.Stderr, color, s+"\n", args...)
}

// VerboseErrf prints stuff to STDERR if verbose mode is enabled.
func (l *Logger) VerboseErrf(color Color, s string, args ...any) {
	if l.Verbose {
		l.Errf(color, s, args...)
	}
}
