// Package parse reads shell source with mvdan.cc/sh and converts it into the
// runtime's own tree.
package parse

import (
	"bytes"
	"io"
	"strings"

	"mvdan.cc/sh/v3/syntax"

	"github.com/go-task/shexec/ast"
	"github.com/go-task/shexec/errors"
)

// Parse reads a whole script from r. The name is used in error messages.
func Parse(r io.Reader, name string) (*ast.Script, error) {
	f, err := syntax.NewParser(syntax.Variant(syntax.LangBash)).Parse(r, name)
	if err != nil {
		return nil, &errors.ParseError{Name: name, Err: err}
	}
	return Convert(f)
}

// String parses src.
func String(src, name string) (*ast.Script, error) {
	return Parse(strings.NewReader(src), name)
}

// Interactive reads statements from r as they are typed, one line at a time,
// and calls fn with the statements of each complete line. fn is called with
// incomplete set when a line leaves a statement open, like an unterminated
// if or quote. Reading stops at EOF, at a syntax error or when fn returns
// false. Syntax errors are returned as *errors.ParseError, so that a
// caller can report them and go on reading.
func Interactive(r io.Reader, name string, fn func(script *ast.Script, incomplete bool, err error) bool) error {
	p := syntax.NewParser(syntax.Variant(syntax.LangBash))
	err := p.Interactive(r, func(stmts []*syntax.Stmt) bool {
		if p.Incomplete() {
			return fn(nil, true, nil)
		}
		c := &converter{printer: syntax.NewPrinter()}
		converted, err := c.stmts(stmts)
		if err != nil {
			return fn(nil, false, err)
		}
		return fn(&ast.Script{Name: name, Stmts: converted}, false, nil)
	})
	var (
		syntaxErr syntax.ParseError
		langErr   syntax.LangError
	)
	if errors.As(err, &syntaxErr) || errors.As(err, &langErr) {
		return &errors.ParseError{Name: name, Err: err}
	}
	return err
}

// Convert turns an mvdan.cc/sh file into a script. Syntax the runtime does not
// implement, like [[ ]] tests or arrays, is rejected with an
// *errors.UnsupportedError.
func Convert(f *syntax.File) (*ast.Script, error) {
	c := &converter{printer: syntax.NewPrinter()}
	stmts, err := c.stmts(f.Stmts)
	if err != nil {
		return nil, err
	}
	return &ast.Script{Name: f.Name, Stmts: stmts}, nil
}

type converter struct {
	printer *syntax.Printer
	buf     bytes.Buffer
}

func pos(p syntax.Pos) ast.Pos {
	if !p.IsValid() {
		return ast.Pos{}
	}
	return ast.Pos{Line: p.Line(), Col: p.Col()}
}

func unsupported(node syntax.Node, what string) error {
	return &errors.UnsupportedError{Pos: pos(node.Pos()).String(), What: what}
}

func (c *converter) text(node syntax.Node) string {
	c.buf.Reset()
	if err := c.printer.Print(&c.buf, node); err != nil {
		return ""
	}
	return strings.TrimSpace(c.buf.String())
}

func (c *converter) stmts(list []*syntax.Stmt) ([]*ast.Stmt, error) {
	out := make([]*ast.Stmt, 0, len(list))
	for _, st := range list {
		s, err := c.stmt(st)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func (c *converter) stmt(st *syntax.Stmt) (*ast.Stmt, error) {
	if st == nil {
		return nil, nil
	}
	if st.Coprocess {
		return nil, unsupported(st, "coprocess")
	}
	s := &ast.Stmt{
		Pos:        pos(st.Pos()),
		Negated:    st.Negated,
		Background: st.Background,
		Text:       c.text(st),
	}
	for _, rd := range st.Redirs {
		r, err := c.redirect(rd)
		if err != nil {
			return nil, err
		}
		s.Redirs = append(s.Redirs, r)
	}
	if st.Cmd != nil {
		cmd, err := c.command(st.Cmd)
		if err != nil {
			return nil, err
		}
		s.Cmd = cmd
	}
	return s, nil
}

func (c *converter) command(cmd syntax.Command) (ast.Command, error) {
	switch cmd := cmd.(type) {
	case *syntax.CallExpr:
		call := &ast.CallExpr{}
		for _, as := range cmd.Assigns {
			a, err := c.assign(as)
			if err != nil {
				return nil, err
			}
			call.Assigns = append(call.Assigns, a)
		}
		args, err := c.words(cmd.Args)
		if err != nil {
			return nil, err
		}
		call.Args = args
		return call, nil

	case *syntax.BinaryCmd:
		var op ast.BinCmdOp
		switch cmd.Op {
		case syntax.AndStmt:
			op = ast.AndStmt
		case syntax.OrStmt:
			op = ast.OrStmt
		case syntax.Pipe:
			op = ast.Pipe
		case syntax.PipeAll:
			op = ast.PipeAll
		default:
			return nil, unsupported(cmd, "operator "+cmd.Op.String())
		}
		x, err := c.stmt(cmd.X)
		if err != nil {
			return nil, err
		}
		y, err := c.stmt(cmd.Y)
		if err != nil {
			return nil, err
		}
		return &ast.BinaryCmd{Op: op, X: x, Y: y}, nil

	case *syntax.Block:
		stmts, err := c.stmts(cmd.Stmts)
		if err != nil {
			return nil, err
		}
		return &ast.Block{Stmts: stmts}, nil

	case *syntax.Subshell:
		stmts, err := c.stmts(cmd.Stmts)
		if err != nil {
			return nil, err
		}
		return &ast.Subshell{Stmts: stmts}, nil

	case *syntax.IfClause:
		return c.ifClause(cmd)

	case *syntax.WhileClause:
		cond, err := c.stmts(cmd.Cond)
		if err != nil {
			return nil, err
		}
		do, err := c.stmts(cmd.Do)
		if err != nil {
			return nil, err
		}
		return &ast.WhileClause{Until: cmd.Until, Cond: cond, Do: do}, nil

	case *syntax.ForClause:
		if cmd.Select {
			return nil, unsupported(cmd, "select")
		}
		iter, ok := cmd.Loop.(*syntax.WordIter)
		if !ok {
			return nil, unsupported(cmd, "C-style for loop")
		}
		fc := &ast.ForClause{Name: iter.Name.Value, InParams: !iter.InPos.IsValid()}
		items, err := c.words(iter.Items)
		if err != nil {
			return nil, err
		}
		fc.Items = items
		if fc.Do, err = c.stmts(cmd.Do); err != nil {
			return nil, err
		}
		return fc, nil

	case *syntax.CaseClause:
		word, err := c.word(cmd.Word)
		if err != nil {
			return nil, err
		}
		cc := &ast.CaseClause{Word: word}
		for _, ci := range cmd.Items {
			item := &ast.CaseItem{}
			switch ci.Op {
			case syntax.Break:
				item.Op = ast.CaseBreak
			case syntax.Fallthrough:
				item.Op = ast.CaseFallthrough
			case syntax.Resume:
				item.Op = ast.CaseResume
			default:
				return nil, unsupported(ci, "case operator "+ci.Op.String())
			}
			if item.Patterns, err = c.words(ci.Patterns); err != nil {
				return nil, err
			}
			if item.Stmts, err = c.stmts(ci.Stmts); err != nil {
				return nil, err
			}
			cc.Items = append(cc.Items, item)
		}
		return cc, nil

	case *syntax.FuncDecl:
		body, err := c.stmt(cmd.Body)
		if err != nil {
			return nil, err
		}
		return &ast.FuncDecl{Name: cmd.Name.Value, Body: body}, nil

	case *syntax.ArithmCmd:
		x, err := c.arithm(cmd.X)
		if err != nil {
			return nil, err
		}
		return &ast.ArithmCmd{X: x}, nil

	case *syntax.DeclClause:
		switch cmd.Variant.Value {
		case "export", "local", "readonly":
		default:
			return nil, unsupported(cmd, cmd.Variant.Value)
		}
		decl := &ast.DeclClause{Variant: cmd.Variant.Value}
		for _, as := range cmd.Args {
			a, err := c.assign(as)
			if err != nil {
				return nil, err
			}
			decl.Args = append(decl.Args, a)
		}
		return decl, nil

	case *syntax.TestClause:
		return nil, unsupported(cmd, "[[ ]] test")
	case *syntax.LetClause:
		return nil, unsupported(cmd, "let")
	case *syntax.TimeClause:
		return nil, unsupported(cmd, "time")
	case *syntax.CoprocClause:
		return nil, unsupported(cmd, "coproc")
	}
	return nil, unsupported(cmd, "command")
}

func (c *converter) ifClause(cmd *syntax.IfClause) (*ast.IfClause, error) {
	cond, err := c.stmts(cmd.Cond)
	if err != nil {
		return nil, err
	}
	then, err := c.stmts(cmd.Then)
	if err != nil {
		return nil, err
	}
	ic := &ast.IfClause{Cond: cond, Then: then}
	switch {
	case cmd.Else == nil:
	case len(cmd.Else.Cond) == 0:
		if ic.Else, err = c.stmts(cmd.Else.Then); err != nil {
			return nil, err
		}
	default:
		elif, err := c.ifClause(cmd.Else)
		if err != nil {
			return nil, err
		}
		ic.Else = []*ast.Stmt{{Pos: pos(cmd.Else.Pos()), Cmd: elif}}
	}
	return ic, nil
}

func (c *converter) assign(as *syntax.Assign) (*ast.Assign, error) {
	if as.Array != nil || as.Index != nil {
		return nil, unsupported(as, "array assignment")
	}
	a := &ast.Assign{Append: as.Append, Naked: as.Naked}
	if as.Name != nil {
		a.Name = as.Name.Value
	}
	if as.Value != nil {
		w, err := c.word(as.Value)
		if err != nil {
			return nil, err
		}
		a.Value = w
	}
	return a, nil
}

func (c *converter) redirect(rd *syntax.Redirect) (*ast.Redirect, error) {
	op, ok := ast.RedirOpFromString(rd.Op.String())
	if !ok {
		return nil, unsupported(rd, "redirection "+rd.Op.String())
	}
	r := &ast.Redirect{Op: op, Fd: op.DefaultFd()}
	if rd.N != nil {
		n, err := fdNumber(rd.N.Value)
		if err != nil {
			return nil, unsupported(rd, "named descriptor "+rd.N.Value)
		}
		r.Fd = n
	}
	word, err := c.word(rd.Word)
	if err != nil {
		return nil, err
	}
	r.Word = word
	if rd.Hdoc != nil {
		r.Quoted = quotedDelim(rd.Word)
		if r.Quoted {
			r.Hdoc = ast.LitWord(rawText(rd.Hdoc))
		} else if r.Hdoc, err = c.document(rd.Hdoc); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func fdNumber(s string) (int, error) {
	n := 0
	if s == "" {
		return 0, errors.New("empty descriptor")
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, errors.New("not a number")
		}
		n = n*10 + int(r-'0')
	}
	return n, nil
}

func quotedDelim(w *syntax.Word) bool {
	if w == nil {
		return false
	}
	for _, part := range w.Parts {
		switch part := part.(type) {
		case *syntax.SglQuoted, *syntax.DblQuoted:
			return true
		case *syntax.Lit:
			if strings.Contains(part.Value, `\`) {
				return true
			}
		}
	}
	return false
}

// rawText joins the literal parts of a heredoc body whose delimiter was
// quoted. Such bodies are never expanded.
func rawText(w *syntax.Word) string {
	var sb strings.Builder
	for _, part := range w.Parts {
		if lit, ok := part.(*syntax.Lit); ok {
			sb.WriteString(lit.Value)
		}
	}
	return sb.String()
}
