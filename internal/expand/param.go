package expand

import (
	"regexp"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"

	"mvdan.cc/sh/v3/pattern"

	"github.com/go-task/shexec/ast"
	"github.com/go-task/shexec/errors"
	"github.com/go-task/shexec/internal/env"
)

// paramList returns the positional parameters for an unquoted $@ or $*,
// which are split one by one.
func (x *expander) paramList(pe *ast.ParamExp) ([]string, bool) {
	if pe.Length || pe.Op != ast.ParamNone {
		return nil, false
	}
	if pe.Name != "@" && pe.Name != "*" {
		return nil, false
	}
	return x.env().Params(), true
}

func (x *expander) lookup(name string) (string, bool) {
	e := x.env()
	switch name {
	case "@":
		return strings.Join(e.Params(), " "), len(e.Params()) > 0
	case "*":
		return strings.Join(e.Params(), ifsJoiner(e)), len(e.Params()) > 0
	}
	return e.Param(name)
}

func ifsJoiner(e *env.Env) string {
	v, ok := e.Get("IFS")
	if !ok {
		return " "
	}
	if v.Value == "" {
		return ""
	}
	_, size := utf8.DecodeRuneInString(v.Value)
	return v.Value[:size]
}

func (x *expander) paramString(pe *ast.ParamExp, quoted bool) (string, error) {
	name := pe.Name
	value, set := x.lookup(name)

	if pe.Length {
		if name == "@" || name == "*" {
			return strconv.Itoa(len(x.env().Params())), nil
		}
		if !set && x.nounset(name) {
			return "", unbound(name)
		}
		return strconv.Itoa(utf8.RuneCountInString(value)), nil
	}

	unset := !set || (pe.Op.NullIsUnset() && value == "")

	switch pe.Op {
	case ast.ParamNone:
		if !set && x.nounset(name) {
			return "", unbound(name)
		}
		return value, nil

	case ast.DefaultUnset, ast.DefaultUnsetNull:
		if unset {
			return x.literal(argParts(pe), quoted)
		}
		return value, nil

	case ast.AssignUnset, ast.AssignUnsetNull:
		if !unset {
			return value, nil
		}
		if env.IsSpecial(name) {
			return "", &errors.ExpansionError{Param: name, Msg: "cannot assign in this way"}
		}
		arg, err := x.literal(argParts(pe), quoted)
		if err != nil {
			return "", err
		}
		if err := x.env().Set(name, arg, false); err != nil {
			return "", err
		}
		return arg, nil

	case ast.ErrorUnset, ast.ErrorUnsetNull:
		if !unset {
			return value, nil
		}
		msg, err := x.literal(argParts(pe), quoted)
		if err != nil {
			return "", err
		}
		if msg == "" {
			msg = "parameter null or not set"
		}
		return "", &errors.ExpansionError{Param: name, Msg: msg}

	case ast.AlternateUnset, ast.AlternateUnsetNull:
		if unset {
			return "", nil
		}
		return x.literal(argParts(pe), quoted)

	case ast.RemSmallSuffix, ast.RemLargeSuffix, ast.RemSmallPrefix, ast.RemLargePrefix:
		if !set && x.nounset(name) {
			return "", unbound(name)
		}
		pat, err := Pattern(x.ctx, x.cfg, pe.Arg)
		if err != nil {
			return "", err
		}
		fromEnd := pe.Op == ast.RemSmallSuffix || pe.Op == ast.RemLargeSuffix
		shortest := pe.Op == ast.RemSmallSuffix || pe.Op == ast.RemSmallPrefix
		return removePattern(value, pat, fromEnd, shortest), nil
	}
	return "", &errors.ExpansionError{Param: name, Msg: "bad substitution"}
}

func argParts(pe *ast.ParamExp) []ast.WordPart {
	if pe.Arg == nil {
		return nil
	}
	return pe.Arg.Parts
}

func (x *expander) nounset(name string) bool {
	if name == "@" || name == "*" {
		return false
	}
	return x.env().Options().Nounset
}

func unbound(name string) error {
	return &errors.ExpansionError{Param: name, Msg: "unbound variable"}
}

// removePattern strips from str the shortest or longest prefix, or suffix
// when fromEnd is set, that pat matches as a whole. Cuts are only made at
// rune boundaries.
func removePattern(str, pat string, fromEnd, shortest bool) string {
	expr, err := pattern.Regexp(pat, 0)
	if err != nil {
		return str
	}
	rx, err := regexp.Compile("^(?:" + expr + ")$")
	if err != nil {
		return str
	}

	cuts := make([]int, 0, len(str)+1)
	for i := range str {
		cuts = append(cuts, i)
	}
	cuts = append(cuts, len(str))

	// Order the cuts so that the removed part grows.
	if fromEnd {
		slices.Reverse(cuts)
	}
	if !shortest {
		slices.Reverse(cuts)
	}
	for _, i := range cuts {
		if fromEnd && rx.MatchString(str[i:]) {
			return str[:i]
		}
		if !fromEnd && rx.MatchString(str[:i]) {
			return str[i:]
		}
	}
	return str
}
