package ast

import "fmt"

// ArithExpr is one of the arithmetic node types of this package.
type ArithExpr interface {
	arithNode()
}

func (*ArithWord) arithNode()    {}
func (*ArithBinary) arithNode()  {}
func (*ArithUnary) arithNode()   {}
func (*ArithParen) arithNode()   {}
func (*ArithTernary) arithNode() {}

// ArithOp is an arithmetic operator.
type ArithOp int

const (
	Add ArithOp = iota
	Sub
	Mul
	Quo
	Rem
	Pow
	Shl
	Shr
	And
	Or
	Xor
	LAnd
	LOr
	Eql
	Neq
	Lss
	Leq
	Gtr
	Geq
	Comma

	Not    // !
	BitNeg // ~
	Inc    // ++
	Dec    // --
	Plus   // unary +
	Minus  // unary -

	Assgn
	AddAssgn
	SubAssgn
	MulAssgn
	QuoAssgn
	RemAssgn
	ShlAssgn
	ShrAssgn
	AndAssgn
	OrAssgn
	XorAssgn
)

var arithOpStrings = map[ArithOp]string{
	Add: "+", Sub: "-", Mul: "*", Quo: "/", Rem: "%", Pow: "**",
	Shl: "<<", Shr: ">>", And: "&", Or: "|", Xor: "^",
	LAnd: "&&", LOr: "||",
	Eql: "==", Neq: "!=", Lss: "<", Leq: "<=", Gtr: ">", Geq: ">=",
	Comma: ",",
	Not: "!", BitNeg: "~", Inc: "++", Dec: "--", Plus: "+", Minus: "-",
	Assgn: "=", AddAssgn: "+=", SubAssgn: "-=", MulAssgn: "*=",
	QuoAssgn: "/=", RemAssgn: "%=", ShlAssgn: "<<=", ShrAssgn: ">>=",
	AndAssgn: "&=", OrAssgn: "|=", XorAssgn: "^=",
}

func (o ArithOp) String() string {
	if s, ok := arithOpStrings[o]; ok {
		return s
	}
	return fmt.Sprintf("ArithOp(%d)", int(o))
}

// IsAssign reports whether the operator stores into its left operand.
func (o ArithOp) IsAssign() bool {
	return o >= Assgn && o <= XorAssgn
}

// BinaryArithOp returns the binary operator spelled s.
func BinaryArithOp(s string) (ArithOp, bool) {
	for op := Add; op <= XorAssgn; op++ {
		if op >= Not && op <= Minus {
			continue
		}
		if arithOpStrings[op] == s {
			return op, true
		}
	}
	return 0, false
}

// ArithWord is an operand: a number, a variable name or a word whose
// expansion is evaluated as a number.
type ArithWord struct {
	Word *Word
}

// ArithBinary is a binary operation, including assignments whose X must
// name a variable.
type ArithBinary struct {
	Op   ArithOp
	X, Y ArithExpr
}

// ArithUnary is a unary operation. Post is set for x++ and x--.
type ArithUnary struct {
	Op   ArithOp
	Post bool
	X    ArithExpr
}

// ArithParen is a parenthesised expression.
type ArithParen struct {
	X ArithExpr
}

// ArithTernary is cond ? then : else.
type ArithTernary struct {
	Cond, Then, Else ArithExpr
}
