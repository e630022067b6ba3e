package ast

import "strings"

// Word is a shell word made of adjacent parts, like foo"$bar"'baz'.
type Word struct {
	Parts []WordPart
}

// Lit returns the word's value if it is made of literal parts only.
func (w *Word) Lit() (string, bool) {
	if w == nil {
		return "", false
	}
	var sb strings.Builder
	for _, part := range w.Parts {
		lit, ok := part.(*Lit)
		if !ok {
			return "", false
		}
		sb.WriteString(lit.Value)
	}
	return sb.String(), true
}

// WordPart is one of the word part types of this package.
type WordPart interface {
	wordPart()
}

func (*Lit) wordPart()       {}
func (*SglQuoted) wordPart() {}
func (*DblQuoted) wordPart() {}
func (*ParamExp) wordPart()  {}
func (*CmdSubst) wordPart()  {}
func (*ArithmExp) wordPart() {}
func (*Tilde) wordPart()     {}
func (*Glob) wordPart()      {}

// Lit is unquoted literal text with escapes already resolved. Its
// characters never act as pattern metacharacters.
type Lit struct {
	Value string
}

// SglQuoted is a single quoted string.
type SglQuoted struct {
	Value string
}

// DblQuoted is a double quoted string. Its parts are not split or globbed.
type DblQuoted struct {
	Parts []WordPart
}

// ParamOp is the operator of a parameter expansion.
type ParamOp int

const (
	ParamNone        ParamOp = iota
	DefaultUnset             // -
	DefaultUnsetNull         // :-
	AssignUnset              // =
	AssignUnsetNull          // :=
	ErrorUnset               // ?
	ErrorUnsetNull           // :?
	AlternateUnset           // +
	AlternateUnsetNull       // :+
	RemSmallSuffix           // %
	RemLargeSuffix           // %%
	RemSmallPrefix           // #
	RemLargePrefix           // ##
)

var paramOpStrings = [...]string{
	ParamNone:          "",
	DefaultUnset:       "-",
	DefaultUnsetNull:   ":-",
	AssignUnset:        "=",
	AssignUnsetNull:    ":=",
	ErrorUnset:         "?",
	ErrorUnsetNull:     ":?",
	AlternateUnset:     "+",
	AlternateUnsetNull: ":+",
	RemSmallSuffix:     "%",
	RemLargeSuffix:     "%%",
	RemSmallPrefix:     "#",
	RemLargePrefix:     "##",
}

func (o ParamOp) String() string {
	if int(o) < len(paramOpStrings) {
		return paramOpStrings[o]
	}
	return "?"
}

// ParamOpFromString returns the operator spelled s.
func ParamOpFromString(s string) (ParamOp, bool) {
	for i, str := range paramOpStrings {
		if i > 0 && str == s {
			return ParamOp(i), true
		}
	}
	return ParamNone, false
}

// NullIsUnset reports whether the operator is one of the colon variants.
func (o ParamOp) NullIsUnset() bool {
	switch o {
	case DefaultUnsetNull, AssignUnsetNull, ErrorUnsetNull, AlternateUnsetNull:
		return true
	}
	return false
}

// ParamExp is a parameter expansion: $name, ${name}, ${#name} or
// ${name<op>arg}.
type ParamExp struct {
	Name   string
	Length bool
	Op     ParamOp
	Arg    *Word
}

// CmdSubst is a command substitution: $(stmts) or `stmts`.
type CmdSubst struct {
	Stmts []*Stmt
}

// ArithmExp is an arithmetic expansion: $(( expr ))
type ArithmExp struct {
	X ArithExpr
}

// Tilde is a leading tilde prefix. An empty User means the current user.
type Tilde struct {
	User string
}

// Glob is unquoted text that contains pattern metacharacters.
type Glob struct {
	Pattern string
}
