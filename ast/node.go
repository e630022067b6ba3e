// Package ast declares the closed set of syntax nodes evaluated by the shell
// runtime. Trees are usually produced by the parse package, but they can also
// be built by hand.
package ast

import "fmt"

// Pos is a position in the source a node was parsed from. The zero value
// means the position is unknown.
type Pos struct {
	Line uint
	Col  uint
}

func (p Pos) IsValid() bool { return p.Line > 0 }

func (p Pos) String() string {
	if !p.IsValid() {
		return "?"
	}
	return fmt.Sprintf("%d:%d", p.Line, p.Col)
}

// Script is a whole program: a list of statements and the name it was read
// from, used in error messages and as $0 for sourced files.
type Script struct {
	Name  string
	Stmts []*Stmt
}

// Stmt is a command together with its modifiers.
type Stmt struct {
	Pos        Pos
	Cmd        Command
	Negated    bool
	Background bool
	Redirs     []*Redirect

	// Text is the source text of the statement, shown in job listings and
	// traces. It may be empty for hand-built trees.
	Text string
}

// Command is one of the command node types of this package.
type Command interface {
	commandNode()
}

func (*CallExpr) commandNode()    {}
func (*BinaryCmd) commandNode()   {}
func (*Block) commandNode()       {}
func (*Subshell) commandNode()    {}
func (*IfClause) commandNode()    {}
func (*WhileClause) commandNode() {}
func (*ForClause) commandNode()   {}
func (*CaseClause) commandNode()  {}
func (*FuncDecl) commandNode()    {}
func (*ArithmCmd) commandNode()   {}
func (*DeclClause) commandNode()  {}

// CallExpr is a simple command: optional variable assignments followed by
// words. With no words, the assignments apply to the shell itself.
type CallExpr struct {
	Assigns []*Assign
	Args    []*Word
}

// Assign is a NAME=value assignment. A nil Value assigns the empty string.
//
// Within a DeclClause an assignment may be Naked: either a bare name, as in
// "export FOO", or an option word with an empty Name, as in "export -p".
type Assign struct {
	Name   string
	Value  *Word
	Append bool
	Naked  bool
}

// BinCmdOp is the operator of a BinaryCmd.
type BinCmdOp int

const (
	AndStmt BinCmdOp = iota // &&
	OrStmt                  // ||
	Pipe                    // |
	PipeAll                 // |&
)

func (o BinCmdOp) String() string {
	switch o {
	case AndStmt:
		return "&&"
	case OrStmt:
		return "||"
	case Pipe:
		return "|"
	case PipeAll:
		return "|&"
	}
	return fmt.Sprintf("BinCmdOp(%d)", int(o))
}

// BinaryCmd joins two statements with a logical or pipe operator. A pipeline
// of three commands is a left-nested pair of BinaryCmds.
type BinaryCmd struct {
	Op   BinCmdOp
	X, Y *Stmt
}

// Block is a brace group: { stmts; }
type Block struct {
	Stmts []*Stmt
}

// Subshell is a parenthesised list run in a copy of the environment.
type Subshell struct {
	Stmts []*Stmt
}

// IfClause is an if statement. An elif chain is represented as an Else list
// holding a single IfClause statement.
type IfClause struct {
	Cond []*Stmt
	Then []*Stmt
	Else []*Stmt
}

// WhileClause is a while or until loop.
type WhileClause struct {
	Until bool
	Cond  []*Stmt
	Do    []*Stmt
}

// ForClause is a for loop. When InParams is set the loop had no "in" list and
// iterates over the positional parameters.
type ForClause struct {
	Name     string
	Items    []*Word
	InParams bool
	Do       []*Stmt
}

// CaseOp terminates a case item.
type CaseOp int

const (
	CaseBreak       CaseOp = iota // ;;
	CaseFallthrough               // ;&
	CaseResume                    // ;;&
)

// CaseClause is a case statement.
type CaseClause struct {
	Word  *Word
	Items []*CaseItem
}

// CaseItem is one pattern list of a case statement and its body.
type CaseItem struct {
	Op       CaseOp
	Patterns []*Word
	Stmts    []*Stmt
}

// FuncDecl defines a function.
type FuncDecl struct {
	Name string
	Body *Stmt
}

// ArithmCmd is an arithmetic command: (( expr ))
type ArithmCmd struct {
	X ArithExpr
}

// DeclClause is a declaration builtin whose arguments are assignments, like
// export, local or readonly.
type DeclClause struct {
	Variant string
	Args    []*Assign
}
