package ast

// LitWord returns a word holding the literal s.
func LitWord(s string) *Word {
	return &Word{Parts: []WordPart{&Lit{Value: s}}}
}

// Call returns a statement running the simple command args.
func Call(args ...string) *Stmt {
	words := make([]*Word, len(args))
	for i, arg := range args {
		words[i] = LitWord(arg)
	}
	return &Stmt{Cmd: &CallExpr{Args: words}}
}
