package parse

import (
	"mvdan.cc/sh/v3/syntax"

	"github.com/go-task/shexec/ast"
)

func (c *converter) arithm(expr syntax.ArithmExpr) (ast.ArithExpr, error) {
	switch expr := expr.(type) {
	case nil:
		return nil, nil
	case *syntax.Word:
		w, err := c.word(expr)
		if err != nil {
			return nil, err
		}
		return &ast.ArithWord{Word: w}, nil

	case *syntax.ParenArithm:
		x, err := c.arithm(expr.X)
		if err != nil {
			return nil, err
		}
		return &ast.ArithParen{X: x}, nil

	case *syntax.UnaryArithm:
		x, err := c.arithm(expr.X)
		if err != nil {
			return nil, err
		}
		var op ast.ArithOp
		switch expr.Op {
		case syntax.Not:
			op = ast.Not
		case syntax.BitNegation:
			op = ast.BitNeg
		case syntax.Inc:
			op = ast.Inc
		case syntax.Dec:
			op = ast.Dec
		case syntax.Plus:
			op = ast.Plus
		case syntax.Minus:
			op = ast.Minus
		default:
			return nil, unsupported(expr, "arithmetic operator "+expr.Op.String())
		}
		return &ast.ArithUnary{Op: op, Post: expr.Post, X: x}, nil

	case *syntax.BinaryArithm:
		if expr.Op == syntax.TernQuest {
			colon, ok := expr.Y.(*syntax.BinaryArithm)
			if !ok || colon.Op != syntax.TernColon {
				return nil, unsupported(expr, "ternary without colon")
			}
			cond, err := c.arithm(expr.X)
			if err != nil {
				return nil, err
			}
			then, err := c.arithm(colon.X)
			if err != nil {
				return nil, err
			}
			els, err := c.arithm(colon.Y)
			if err != nil {
				return nil, err
			}
			return &ast.ArithTernary{Cond: cond, Then: then, Else: els}, nil
		}
		op, ok := ast.BinaryArithOp(expr.Op.String())
		if !ok {
			return nil, unsupported(expr, "arithmetic operator "+expr.Op.String())
		}
		x, err := c.arithm(expr.X)
		if err != nil {
			return nil, err
		}
		y, err := c.arithm(expr.Y)
		if err != nil {
			return nil, err
		}
		return &ast.ArithBinary{Op: op, X: x, Y: y}, nil
	}
	return nil, unsupported(expr, "arithmetic expression")
}
