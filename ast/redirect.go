package ast

import "fmt"

// RedirOp is the operator of a redirection.
type RedirOp int

const (
	RdrIn     RedirOp = iota // <
	RdrOut                   // >
	RdrClob                  // >|
	AppOut                   // >>
	RdrInOut                 // <>
	DplIn                    // <&
	DplOut                   // >&
	Hdoc                     // <<
	DashHdoc                 // <<-
	WordHdoc                 // <<<
	RdrAll                   // &>
	AppAll                   // &>>
)

var redirOpStrings = [...]string{
	RdrIn:    "<",
	RdrOut:   ">",
	RdrClob:  ">|",
	AppOut:   ">>",
	RdrInOut: "<>",
	DplIn:    "<&",
	DplOut:   ">&",
	Hdoc:     "<<",
	DashHdoc: "<<-",
	WordHdoc: "<<<",
	RdrAll:   "&>",
	AppAll:   "&>>",
}

func (o RedirOp) String() string {
	if int(o) >= 0 && int(o) < len(redirOpStrings) {
		return redirOpStrings[o]
	}
	return fmt.Sprintf("RedirOp(%d)", int(o))
}

// RedirOpFromString returns the operator spelled s.
func RedirOpFromString(s string) (RedirOp, bool) {
	for i, str := range redirOpStrings {
		if str == s {
			return RedirOp(i), true
		}
	}
	return 0, false
}

// DefaultFd returns the descriptor a redirection applies to when none is
// written before the operator.
func (o RedirOp) DefaultFd() int {
	switch o {
	case RdrIn, RdrInOut, DplIn, Hdoc, DashHdoc, WordHdoc:
		return 0
	}
	return 1
}

// Redirect is a redirection of descriptor Fd. For heredocs Word is the
// delimiter and Hdoc the body; Quoted is set when the delimiter was quoted,
// in which case the body is not expanded.
type Redirect struct {
	Fd     int
	Op     RedirOp
	Word   *Word
	Hdoc   *Word
	Quoted bool
}
