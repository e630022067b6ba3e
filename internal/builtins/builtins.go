// Package builtins implements the commands that run inside the shell.
package builtins

import (
	"strconv"
	"strings"

	"github.com/pborman/getopt/v2"
	"mvdan.cc/sh/v3/syntax"

	"github.com/go-task/shexec/internal/spawn"
	"github.com/go-task/shexec/internal/status"
)

// Keywords are the reserved words of the shell grammar, as reported by type.
var Keywords = []string{
	"!", "case", "do", "done", "elif", "else", "esac", "fi", "for",
	"function", "if", "in", "then", "until", "while", "{", "}",
}

// special lists the POSIX special builtins. Their prefix assignments persist
// and they are found before functions.
var special = map[string]bool{
	":": true, ".": true, "break": true, "continue": true, "eval": true,
	"exec": true, "exit": true, "export": true, "readonly": true,
	"return": true, "set": true, "shift": true, "unset": true,
}

var catalog = map[string]spawn.BuiltinFunc{
	":":        True,
	"true":     True,
	"false":    False,
	"echo":     Echo,
	"cd":       Cd,
	"pwd":      Pwd,
	"shift":    Shift,
	"exit":     Exit,
	"return":   Return,
	"break":    Break,
	"continue": Continue,
	"export":   Export,
	"readonly": Readonly,
	"unset":    Unset,
	"local":    Local,
	"set":      Set,
	"eval":     Eval,
	".":        Source,
	"source":   Source,
	"exec":     Exec,
	"command":  Command,
	"type":     Type,
	"hash":     Hash,
	"read":     Read,
	"wait":     Wait,
	"jobs":     Jobs,
	"fg":       Fg,
	"bg":       Bg,
	"kill":     Kill,
	"test":     Test,
	"[":        Test,
}

// Register adds every builtin to r.
func Register(r *spawn.Registry) {
	for name, fn := range catalog {
		r.Register(name, fn, special[name])
	}
}

// Default returns a registry holding every builtin.
func Default() *spawn.Registry {
	r := spawn.NewRegistry()
	Register(r)
	return r
}

// parseFlags parses the options of call into set. On failure the usage
// error is reported and ok is false.
func parseFlags(call *spawn.Call, set *getopt.Set) (args []string, st status.ExitStatus, ok bool) {
	set.SetProgram(call.Args[0])
	if err := set.Getopt(call.Args, nil); err != nil {
		return nil, call.Usage("%v", err), false
	}
	return set.Args(), status.OK, true
}

// count parses the optional numeric argument of break, continue, shift and
// the like.
func count(call *spawn.Call, args []string, def int) (int, bool) {
	if len(args) == 0 {
		return def, true
	}
	if len(args) > 1 {
		call.Errorf("too many arguments")
		return 0, false
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		call.Errorf("%s: numeric argument required", args[0])
		return 0, false
	}
	return n, true
}

// Quote renders s so that the shell reads it back unchanged.
func Quote(s string) string {
	if q, err := syntax.Quote(s, syntax.LangPOSIX); err == nil {
		return q
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
