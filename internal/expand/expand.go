// Package expand turns words into strings: tilde, parameter, command and
// arithmetic expansion, then field splitting and pathname expansion.
package expand

import (
	"bytes"
	"context"
	"io"
	"strings"

	"github.com/spf13/afero"

	"github.com/go-task/shexec/ast"
	"github.com/go-task/shexec/errors"
	"github.com/go-task/shexec/internal/env"
)

// Config holds what expansions need from the running shell.
type Config struct {
	Env *env.Env

	// Fs is used for pathname expansion. Defaults to the OS filesystem.
	Fs afero.Fs

	// CmdSubst runs the statements of a command substitution in a subshell,
	// writing their standard output to w. When nil, command substitutions
	// fail.
	CmdSubst func(ctx context.Context, w io.Writer, stmts []*ast.Stmt) error
}

func (cfg *Config) fs() afero.Fs {
	if cfg.Fs == nil {
		return afero.NewOsFs()
	}
	return cfg.Fs
}

type quoteLevel uint8

const (
	// quoteNone marks the result of an unquoted expansion or a glob part:
	// pattern characters in it are active.
	quoteNone quoteLevel = iota
	// quoteLit marks text that is matched literally.
	quoteLit
)

type fieldPart struct {
	val   string
	quote quoteLevel
}

type expander struct {
	ctx context.Context
	cfg *Config

	fields [][]fieldPart
	cur    []fieldPart
	keep   bool
}

func newExpander(ctx context.Context, cfg *Config) *expander {
	return &expander{ctx: ctx, cfg: cfg}
}

func (x *expander) env() *env.Env { return x.cfg.Env }

// Fields expands words into fields, applying field splitting and pathname
// expansion.
func Fields(ctx context.Context, cfg *Config, words ...*ast.Word) ([]string, error) {
	var out []string
	for _, word := range words {
		x := newExpander(ctx, cfg)
		fields, err := x.wordFields(word)
		if err != nil {
			return nil, err
		}
		for _, field := range fields {
			expanded, err := x.glob(field)
			if err != nil {
				return nil, err
			}
			out = append(out, expanded...)
		}
	}
	return out, nil
}

// Literal expands a word into a single string without splitting or pathname
// expansion, as for assignments and redirection targets.
func Literal(ctx context.Context, cfg *Config, word *ast.Word) (string, error) {
	if word == nil {
		return "", nil
	}
	x := newExpander(ctx, cfg)
	return x.literal(word.Parts, false)
}

// Document expands the body of a heredoc.
func Document(ctx context.Context, cfg *Config, word *ast.Word) (string, error) {
	if word == nil {
		return "", nil
	}
	x := newExpander(ctx, cfg)
	return x.literal(word.Parts, true)
}

// Pattern expands a word into a pattern for Match. Quoted text has its
// pattern characters escaped.
func Pattern(ctx context.Context, cfg *Config, word *ast.Word) (string, error) {
	if word == nil {
		return "", nil
	}
	x := newExpander(ctx, cfg)
	var sb strings.Builder
	for _, part := range word.Parts {
		switch part := part.(type) {
		case *ast.Glob:
			sb.WriteString(part.Pattern)
		case *ast.Lit:
			sb.WriteString(QuoteMeta(part.Value))
		case *ast.SglQuoted:
			sb.WriteString(QuoteMeta(part.Value))
		case *ast.DblQuoted:
			s, err := x.literal(part.Parts, true)
			if err != nil {
				return "", err
			}
			sb.WriteString(QuoteMeta(s))
		case *ast.Tilde:
			sb.WriteString(QuoteMeta(x.tilde(part)))
		default:
			s, err := x.literal([]ast.WordPart{part}, false)
			if err != nil {
				return "", err
			}
			sb.WriteString(s)
		}
	}
	return sb.String(), nil
}

// literal joins the expansion of parts into one string. "$@" and "$*" are
// joined with a space and the first character of IFS respectively.
func (x *expander) literal(parts []ast.WordPart, quoted bool) (string, error) {
	var sb strings.Builder
	for _, part := range parts {
		switch part := part.(type) {
		case *ast.Lit:
			sb.WriteString(part.Value)
		case *ast.Glob:
			sb.WriteString(part.Pattern)
		case *ast.SglQuoted:
			sb.WriteString(part.Value)
		case *ast.DblQuoted:
			s, err := x.literal(part.Parts, true)
			if err != nil {
				return "", err
			}
			sb.WriteString(s)
		case *ast.Tilde:
			sb.WriteString(x.tilde(part))
		case *ast.ParamExp:
			s, err := x.paramString(part, quoted)
			if err != nil {
				return "", err
			}
			sb.WriteString(s)
		case *ast.CmdSubst:
			s, err := x.cmdSubst(part)
			if err != nil {
				return "", err
			}
			sb.WriteString(s)
		case *ast.ArithmExp:
			s, err := x.arithmString(part)
			if err != nil {
				return "", err
			}
			sb.WriteString(s)
		}
	}
	return sb.String(), nil
}

func (x *expander) cmdSubst(cs *ast.CmdSubst) (string, error) {
	if x.cfg.CmdSubst == nil {
		return "", &errors.ExpansionError{Msg: "command substitution is not available"}
	}
	var buf bytes.Buffer
	if err := x.cfg.CmdSubst(x.ctx, &buf, cs.Stmts); err != nil {
		return "", err
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}

// wordFields expands the parts of a word into unsplit fields made of parts
// that remember whether they were quoted.
func (x *expander) wordFields(word *ast.Word) ([][]fieldPart, error) {
	x.fields, x.cur, x.keep = nil, nil, false
	for _, part := range word.Parts {
		switch part := part.(type) {
		case *ast.Lit:
			x.appendLit(part.Value)
		case *ast.SglQuoted:
			x.keep = true
			x.appendLit(part.Value)
		case *ast.Tilde:
			x.appendLit(x.tilde(part))
		case *ast.Glob:
			x.cur = append(x.cur, fieldPart{val: part.Pattern, quote: quoteNone})
		case *ast.DblQuoted:
			if err := x.dblQuoted(part); err != nil {
				return nil, err
			}
		case *ast.ParamExp:
			if list, ok := x.paramList(part); ok {
				for i, param := range list {
					if i > 0 {
						x.flush(true)
					}
					x.splitInto(param)
				}
				continue
			}
			s, err := x.paramString(part, false)
			if err != nil {
				return nil, err
			}
			x.splitInto(s)
		case *ast.CmdSubst:
			s, err := x.cmdSubst(part)
			if err != nil {
				return nil, err
			}
			x.splitInto(s)
		case *ast.ArithmExp:
			s, err := x.arithmString(part)
			if err != nil {
				return nil, err
			}
			x.splitInto(s)
		}
	}
	x.flush(false)
	return x.fields, nil
}

func (x *expander) appendLit(s string) {
	x.cur = append(x.cur, fieldPart{val: s, quote: quoteLit})
}

// flush ends the current field. Empty fields survive only when forced or
// when they contained quotes.
func (x *expander) flush(force bool) {
	if len(x.cur) > 0 || x.keep || force {
		x.fields = append(x.fields, x.cur)
	}
	x.cur, x.keep = nil, false
}

func (x *expander) dblQuoted(dq *ast.DblQuoted) error {
	onlyAt := len(dq.Parts) > 0
	for _, part := range dq.Parts {
		if pe, ok := part.(*ast.ParamExp); !ok || !isAt(pe) {
			onlyAt = false
		}
	}
	if !onlyAt {
		x.keep = true
	}
	for _, part := range dq.Parts {
		if pe, ok := part.(*ast.ParamExp); ok && isAt(pe) {
			for i, param := range x.env().Params() {
				if i > 0 {
					x.flush(true)
				}
				x.keep = true
				x.appendLit(param)
			}
			continue
		}
		s, err := x.literal([]ast.WordPart{part}, true)
		if err != nil {
			return err
		}
		x.appendLit(s)
	}
	return nil
}

func isAt(pe *ast.ParamExp) bool {
	return pe.Name == "@" && !pe.Length && pe.Op == ast.ParamNone
}

// splitInto splits the result of an unquoted expansion on IFS and appends
// the pieces to the current and following fields.
func (x *expander) splitInto(s string) {
	fields, lead, trail := newSplitter(x.env()).split(s)
	if lead {
		x.flush(false)
	}
	for i, f := range fields {
		if i > 0 {
			x.flush(true)
		}
		if f != "" {
			x.cur = append(x.cur, fieldPart{val: f, quote: quoteNone})
		}
	}
	if trail {
		x.flush(false)
	}
}
