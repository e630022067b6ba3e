package term

import (
	"io"
	"os"

	"golang.org/x/term"
)

// IsTerminal reports whether both stdin and stdout are terminals.
func IsTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

type fder interface {
	Fd() uintptr
}

// IsTerminalWriter reports whether w writes to a terminal.
func IsTerminalWriter(w io.Writer) bool {
	f, ok := w.(fder)
	return ok && term.IsTerminal(int(f.Fd()))
}

// TerminalFile returns r as a file when it reads from a terminal.
func TerminalFile(r io.Reader) (*os.File, bool) {
	f, ok := r.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return nil, false
	}
	return f, true
}
