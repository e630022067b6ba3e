package parse

import (
	"strings"

	"mvdan.cc/sh/v3/syntax"

	"github.com/go-task/shexec/ast"
)

func (c *converter) words(list []*syntax.Word) ([]*ast.Word, error) {
	out := make([]*ast.Word, 0, len(list))
	for _, w := range list {
		word, err := c.word(w)
		if err != nil {
			return nil, err
		}
		out = append(out, word)
	}
	return out, nil
}

func (c *converter) word(w *syntax.Word) (*ast.Word, error) {
	return c.wordTilde(w, true)
}

// wordTilde converts a word. Tilde prefixes are only recognised when tilde is
// set, which is not the case for operator words inside double quotes.
func (c *converter) wordTilde(w *syntax.Word, tilde bool) (*ast.Word, error) {
	if w == nil {
		return nil, nil
	}
	word := &ast.Word{}
	for i, part := range w.Parts {
		if lit, ok := part.(*syntax.Lit); ok && i == 0 && tilde {
			var last bool
			if len(w.Parts) == 1 {
				last = true
			}
			rest, tilde := splitTilde(lit.Value, last)
			if tilde != nil {
				word.Parts = append(word.Parts, tilde)
				word.Parts = appendUnquoted(word.Parts, rest)
				continue
			}
		}
		parts, err := c.wordPart(part, false)
		if err != nil {
			return nil, err
		}
		word.Parts = append(word.Parts, parts...)
	}
	return word, nil
}

// document converts an unquoted heredoc body, where backslashes only escape
// $, `, \ and newlines and no pattern characters are special.
func (c *converter) document(w *syntax.Word) (*ast.Word, error) {
	word := &ast.Word{}
	for _, part := range w.Parts {
		if lit, ok := part.(*syntax.Lit); ok {
			word.Parts = append(word.Parts, &ast.Lit{Value: unescape(lit.Value, "$`\\\n")})
			continue
		}
		parts, err := c.wordPart(part, true)
		if err != nil {
			return nil, err
		}
		word.Parts = append(word.Parts, parts...)
	}
	return word, nil
}

func (c *converter) wordPart(part syntax.WordPart, quoted bool) ([]ast.WordPart, error) {
	switch part := part.(type) {
	case *syntax.Lit:
		if quoted {
			return []ast.WordPart{&ast.Lit{Value: unescape(part.Value, "$`\"\\\n")}}, nil
		}
		return appendUnquoted(nil, part.Value), nil

	case *syntax.SglQuoted:
		value := part.Value
		if part.Dollar {
			value = ansiC(value)
		}
		return []ast.WordPart{&ast.SglQuoted{Value: value}}, nil

	case *syntax.DblQuoted:
		dq := &ast.DblQuoted{}
		for _, inner := range part.Parts {
			parts, err := c.wordPart(inner, true)
			if err != nil {
				return nil, err
			}
			dq.Parts = append(dq.Parts, parts...)
		}
		return []ast.WordPart{dq}, nil

	case *syntax.ParamExp:
		pe, err := c.paramExp(part, quoted)
		if err != nil {
			return nil, err
		}
		return []ast.WordPart{pe}, nil

	case *syntax.CmdSubst:
		if part.TempFile || part.ReplyVar {
			return nil, unsupported(part, "${ } command substitution")
		}
		stmts, err := c.stmts(part.Stmts)
		if err != nil {
			return nil, err
		}
		return []ast.WordPart{&ast.CmdSubst{Stmts: stmts}}, nil

	case *syntax.ArithmExp:
		x, err := c.arithm(part.X)
		if err != nil {
			return nil, err
		}
		return []ast.WordPart{&ast.ArithmExp{X: x}}, nil

	case *syntax.ProcSubst:
		return nil, unsupported(part, "process substitution")
	case *syntax.ExtGlob:
		return nil, unsupported(part, "extended glob")
	case *syntax.BraceExp:
		return nil, unsupported(part, "brace expansion")
	}
	return nil, unsupported(part, "word part")
}

func (c *converter) paramExp(pe *syntax.ParamExp, quoted bool) (*ast.ParamExp, error) {
	switch {
	case pe.Param == nil:
		return nil, unsupported(pe, "nested parameter expansion")
	case pe.Excl:
		return nil, unsupported(pe, "indirect expansion")
	case pe.Width:
		return nil, unsupported(pe, "width expansion")
	case pe.Index != nil:
		return nil, unsupported(pe, "array index")
	case pe.Slice != nil:
		return nil, unsupported(pe, "substring expansion")
	case pe.Repl != nil:
		return nil, unsupported(pe, "pattern replacement")
	case pe.Names != 0:
		return nil, unsupported(pe, "name prefix expansion")
	}
	out := &ast.ParamExp{Name: pe.Param.Value, Length: pe.Length}
	if pe.Exp != nil {
		op, ok := ast.ParamOpFromString(pe.Exp.Op.String())
		if !ok {
			return nil, unsupported(pe, "parameter operator "+pe.Exp.Op.String())
		}
		out.Op = op
		arg, err := c.wordTilde(pe.Exp.Word, !quoted)
		if err != nil {
			return nil, err
		}
		if arg == nil {
			arg = &ast.Word{}
		}
		out.Arg = arg
	}
	return out, nil
}

// splitTilde extracts a leading tilde prefix from the raw first literal of a
// word. The prefix runs up to the first slash, or to the end of the literal
// when it is the only part of the word.
func splitTilde(raw string, last bool) (string, *ast.Tilde) {
	if !strings.HasPrefix(raw, "~") {
		return raw, nil
	}
	end := strings.IndexByte(raw, '/')
	if end < 0 {
		if !last {
			return raw, nil
		}
		end = len(raw)
	}
	user := raw[1:end]
	for _, r := range user {
		if !portableNameChar(r) {
			return raw, nil
		}
	}
	return raw[end:], &ast.Tilde{User: user}
}

func portableNameChar(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '.', r == '_', r == '-':
		return true
	}
	return false
}

// appendUnquoted splits a raw unquoted literal into literal text with escapes
// resolved and glob parts holding unescaped pattern metacharacters.
func appendUnquoted(parts []ast.WordPart, raw string) []ast.WordPart {
	var lit, glob strings.Builder
	flushLit := func() {
		if lit.Len() > 0 {
			parts = append(parts, &ast.Lit{Value: lit.String()})
			lit.Reset()
		}
	}
	flushGlob := func() {
		if glob.Len() > 0 {
			parts = append(parts, &ast.Glob{Pattern: glob.String()})
			glob.Reset()
		}
	}
	for i := 0; i < len(raw); i++ {
		ch := raw[i]
		switch ch {
		case '\\':
			if i+1 < len(raw) {
				i++
				if raw[i] == '\n' {
					continue
				}
				flushGlob()
				lit.WriteByte(raw[i])
				continue
			}
			flushGlob()
			lit.WriteByte(ch)
		case '*', '?':
			flushLit()
			glob.WriteByte(ch)
		case '[':
			if end := bracketEnd(raw, i); end > 0 {
				flushLit()
				glob.WriteString(raw[i : end+1])
				i = end
				continue
			}
			flushGlob()
			lit.WriteByte(ch)
		default:
			flushGlob()
			lit.WriteByte(ch)
		}
	}
	flushLit()
	flushGlob()
	return parts
}

// bracketEnd returns the index of the bracket closing the expression opened
// at raw[start], or -1.
func bracketEnd(raw string, start int) int {
	i := start + 1
	if i < len(raw) && (raw[i] == '!' || raw[i] == '^') {
		i++
	}
	if i < len(raw) && raw[i] == ']' {
		i++
	}
	for ; i < len(raw); i++ {
		switch raw[i] {
		case '\\':
			i++
		case ']':
			return i
		}
	}
	return -1
}

// unescape removes the backslashes preceding any of the characters in
// special. An escaped newline is a line continuation and disappears.
func unescape(raw, special string) string {
	if !strings.Contains(raw, `\`) {
		return raw
	}
	var sb strings.Builder
	for i := 0; i < len(raw); i++ {
		if raw[i] == '\\' && i+1 < len(raw) && strings.IndexByte(special, raw[i+1]) >= 0 {
			i++
			if raw[i] != '\n' {
				sb.WriteByte(raw[i])
			}
			continue
		}
		sb.WriteByte(raw[i])
	}
	return sb.String()
}

// ansiC resolves the escapes of a $'...' string.
func ansiC(raw string) string {
	var sb strings.Builder
	for i := 0; i < len(raw); i++ {
		if raw[i] != '\\' || i+1 == len(raw) {
			sb.WriteByte(raw[i])
			continue
		}
		i++
		switch raw[i] {
		case 'a':
			sb.WriteByte('\a')
		case 'b':
			sb.WriteByte('\b')
		case 'e', 'E':
			sb.WriteByte(0x1b)
		case 'f':
			sb.WriteByte('\f')
		case 'n':
			sb.WriteByte('\n')
		case 'r':
			sb.WriteByte('\r')
		case 't':
			sb.WriteByte('\t')
		case 'v':
			sb.WriteByte('\v')
		case '\\', '\'', '"', '?':
			sb.WriteByte(raw[i])
		default:
			sb.WriteByte('\\')
			sb.WriteByte(raw[i])
		}
	}
	return sb.String()
}
