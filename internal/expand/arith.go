package expand

import (
	"context"
	"strconv"
	"strings"

	"github.com/go-task/shexec/ast"
	"github.com/go-task/shexec/errors"
	"github.com/go-task/shexec/internal/env"
)

// maxArithDepth bounds how many times a variable value naming another
// variable is followed.
const maxArithDepth = 16

// Arithm evaluates an arithmetic expression.
func Arithm(ctx context.Context, cfg *Config, expr ast.ArithExpr) (int, error) {
	x := newExpander(ctx, cfg)
	n, err := x.arithm(expr)
	return int(n), err
}

func (x *expander) arithmString(ae *ast.ArithmExp) (string, error) {
	n, err := x.arithm(ae.X)
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(n, 10), nil
}

func arithErr(msg string) error {
	return &errors.ExpansionError{Msg: msg}
}

func (x *expander) arithm(expr ast.ArithExpr) (int64, error) {
	switch expr := expr.(type) {
	case nil:
		return 0, nil
	case *ast.ArithWord:
		return x.arithWord(expr.Word)
	case *ast.ArithParen:
		return x.arithm(expr.X)
	case *ast.ArithTernary:
		cond, err := x.arithm(expr.Cond)
		if err != nil {
			return 0, err
		}
		if cond != 0 {
			return x.arithm(expr.Then)
		}
		return x.arithm(expr.Else)
	case *ast.ArithUnary:
		return x.arithUnary(expr)
	case *ast.ArithBinary:
		return x.arithBinary(expr)
	}
	return 0, arithErr("invalid arithmetic expression")
}

// arithName returns the variable name an operand refers to, if any.
func arithName(expr ast.ArithExpr) (string, bool) {
	if paren, ok := expr.(*ast.ArithParen); ok {
		return arithName(paren.X)
	}
	w, ok := expr.(*ast.ArithWord)
	if !ok {
		return "", false
	}
	lit, ok := w.Word.Lit()
	if !ok || !env.ValidName(lit) {
		return "", false
	}
	return lit, true
}

func (x *expander) arithWord(word *ast.Word) (int64, error) {
	if lit, ok := word.Lit(); ok && env.ValidName(lit) {
		return x.arithVar(lit, 0)
	}
	s, err := x.literal(word.Parts, true)
	if err != nil {
		return 0, err
	}
	s = strings.TrimSpace(s)
	if env.ValidName(s) {
		return x.arithVar(s, 0)
	}
	return parseNumber(s)
}

func (x *expander) arithVar(name string, depth int) (int64, error) {
	value, set := x.env().Param(name)
	if !set && x.env().Options().Nounset {
		return 0, unbound(name)
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, nil
	}
	if env.ValidName(value) {
		if depth >= maxArithDepth {
			return 0, arithErr(name + ": expression recursion level exceeded")
		}
		return x.arithVar(value, depth+1)
	}
	return parseNumber(value)
}

func (x *expander) setArithVar(name string, n int64) error {
	return x.env().Set(name, strconv.FormatInt(n, 10), false)
}

func (x *expander) arithUnary(expr *ast.ArithUnary) (int64, error) {
	switch expr.Op {
	case ast.Inc, ast.Dec:
		name, ok := arithName(expr.X)
		if !ok {
			return 0, arithErr(expr.Op.String() + ": operand is not a variable")
		}
		old, err := x.arithVar(name, 0)
		if err != nil {
			return 0, err
		}
		n := old + 1
		if expr.Op == ast.Dec {
			n = old - 1
		}
		if err := x.setArithVar(name, n); err != nil {
			return 0, err
		}
		if expr.Post {
			return old, nil
		}
		return n, nil
	}
	n, err := x.arithm(expr.X)
	if err != nil {
		return 0, err
	}
	switch expr.Op {
	case ast.Not:
		return boolInt(n == 0), nil
	case ast.BitNeg:
		return ^n, nil
	case ast.Plus:
		return n, nil
	case ast.Minus:
		return -n, nil
	}
	return 0, arithErr("invalid unary operator " + expr.Op.String())
}

func (x *expander) arithBinary(expr *ast.ArithBinary) (int64, error) {
	switch expr.Op {
	case ast.LAnd, ast.LOr:
		left, err := x.arithm(expr.X)
		if err != nil {
			return 0, err
		}
		if (left != 0) == (expr.Op == ast.LOr) {
			return boolInt(left != 0), nil
		}
		right, err := x.arithm(expr.Y)
		if err != nil {
			return 0, err
		}
		return boolInt(right != 0), nil
	}

	if expr.Op.IsAssign() {
		return x.arithAssign(expr)
	}

	left, err := x.arithm(expr.X)
	if err != nil {
		return 0, err
	}
	right, err := x.arithm(expr.Y)
	if err != nil {
		return 0, err
	}
	return binary(expr.Op, left, right)
}

func (x *expander) arithAssign(expr *ast.ArithBinary) (int64, error) {
	name, ok := arithName(expr.X)
	if !ok {
		return 0, arithErr(expr.Op.String() + ": attempted assignment to non-variable")
	}
	right, err := x.arithm(expr.Y)
	if err != nil {
		return 0, err
	}
	n := right
	if expr.Op != ast.Assgn {
		old, err := x.arithVar(name, 0)
		if err != nil {
			return 0, err
		}
		if n, err = binary(assignOps[expr.Op], old, right); err != nil {
			return 0, err
		}
	}
	if err := x.setArithVar(name, n); err != nil {
		return 0, err
	}
	return n, nil
}

var assignOps = map[ast.ArithOp]ast.ArithOp{
	ast.AddAssgn: ast.Add,
	ast.SubAssgn: ast.Sub,
	ast.MulAssgn: ast.Mul,
	ast.QuoAssgn: ast.Quo,
	ast.RemAssgn: ast.Rem,
	ast.ShlAssgn: ast.Shl,
	ast.ShrAssgn: ast.Shr,
	ast.AndAssgn: ast.And,
	ast.OrAssgn:  ast.Or,
	ast.XorAssgn: ast.Xor,
}

func binary(op ast.ArithOp, x, y int64) (int64, error) {
	switch op {
	case ast.Add:
		return x + y, nil
	case ast.Sub:
		return x - y, nil
	case ast.Mul:
		return x * y, nil
	case ast.Quo:
		if y == 0 {
			return 0, arithErr("division by zero")
		}
		return x / y, nil
	case ast.Rem:
		if y == 0 {
			return 0, arithErr("division by zero")
		}
		return x % y, nil
	case ast.Pow:
		if y < 0 {
			return 0, arithErr("exponent less than 0")
		}
		return pow(x, y), nil
	case ast.Shl:
		return x << uint64(y&63), nil
	case ast.Shr:
		return x >> uint64(y&63), nil
	case ast.And:
		return x & y, nil
	case ast.Or:
		return x | y, nil
	case ast.Xor:
		return x ^ y, nil
	case ast.Eql:
		return boolInt(x == y), nil
	case ast.Neq:
		return boolInt(x != y), nil
	case ast.Lss:
		return boolInt(x < y), nil
	case ast.Leq:
		return boolInt(x <= y), nil
	case ast.Gtr:
		return boolInt(x > y), nil
	case ast.Geq:
		return boolInt(x >= y), nil
	case ast.Comma:
		return y, nil
	}
	return 0, arithErr("invalid binary operator " + op.String())
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

// parseNumber parses decimal, octal (leading 0), hexadecimal (0x) and
// base#digits integer constants, with an optional sign.
func parseNumber(s string) (int64, error) {
	orig := s
	neg := false
	switch {
	case strings.HasPrefix(s, "-"):
		neg, s = true, s[1:]
	case strings.HasPrefix(s, "+"):
		s = s[1:]
	}
	if s == "" {
		return 0, arithErr(orig + ": syntax error: operand expected")
	}

	base := 10
	switch {
	case strings.Contains(s, "#"):
		prefix, digits, _ := strings.Cut(s, "#")
		b, err := strconv.Atoi(prefix)
		if err != nil || b < 2 || b > 64 {
			return 0, arithErr(orig + ": invalid arithmetic base")
		}
		n, err := parseBase(digits, b)
		if err != nil {
			return 0, arithErr(orig + ": value too great for base")
		}
		if neg {
			n = -n
		}
		return n, nil
	case strings.HasPrefix(s, "0x"), strings.HasPrefix(s, "0X"):
		base, s = 16, s[2:]
	case len(s) > 1 && s[0] == '0':
		base, s = 8, s[1:]
	}
	n, err := strconv.ParseInt(s, base, 64)
	if err != nil {
		return 0, arithErr(orig + ": value too great for base")
	}
	if neg {
		n = -n
	}
	return n, nil
}

// parseBase parses digits in bases up to 64, using 0-9, a-z, A-Z, @ and _.
// Up to base 36 letters are case insensitive.
func parseBase(digits string, base int) (int64, error) {
	if digits == "" {
		return 0, arithErr("missing digits")
	}
	var n int64
	for _, r := range digits {
		var d int
		switch {
		case r >= '0' && r <= '9':
			d = int(r - '0')
		case r >= 'a' && r <= 'z':
			d = int(r-'a') + 10
		case r >= 'A' && r <= 'Z':
			if base <= 36 {
				d = int(r-'A') + 10
			} else {
				d = int(r-'A') + 36
			}
		case r == '@':
			d = 62
		case r == '_':
			d = 63
		default:
			return 0, arithErr("invalid digit")
		}
		if d >= base {
			return 0, arithErr("digit out of range")
		}
		n = n*int64(base) + int64(d)
	}
	return n, nil
}

// pow computes x**y by squaring, wrapping on overflow like the other
// operators.
func pow(x, y int64) int64 {
	result := int64(1)
	for y > 0 {
		if y&1 == 1 {
			result *= x
		}
		x *= x
		y >>= 1
	}
	return result
}
