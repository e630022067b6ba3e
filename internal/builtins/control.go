package builtins

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pborman/getopt/v2"
	"github.com/spf13/afero"

	"github.com/go-task/shexec/internal/filepathext"
	"github.com/go-task/shexec/internal/spawn"
	"github.com/go-task/shexec/internal/status"
)

// Exit leaves the shell with the given status, or with $?.
func Exit(_ context.Context, call *spawn.Call) (status.ExitStatus, error) {
	st, _ := exitCode(call)
	return st, &status.Exit{Status: st}
}

// Return leaves the current function with the given status, or with $?.
func Return(_ context.Context, call *spawn.Call) (status.ExitStatus, error) {
	st, _ := exitCode(call)
	return st, &status.Return{Status: st}
}

func exitCode(call *spawn.Call) (status.ExitStatus, bool) {
	args := call.Args[1:]
	if len(args) == 0 {
		return call.Env.LastStatus(), true
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		call.Errorf("%s: numeric argument required", args[0])
		return status.Code(status.CodeUsage), false
	}
	if len(args) > 1 {
		call.Errorf("too many arguments")
		return status.Failure, false
	}
	return status.Code(n), true
}

// Break leaves the n-th enclosing loop.
func Break(_ context.Context, call *spawn.Call) (status.ExitStatus, error) {
	n, ok := loopCount(call)
	if !ok {
		return status.Failure, nil
	}
	return status.OK, &status.Break{N: n}
}

// Continue resumes the n-th enclosing loop.
func Continue(_ context.Context, call *spawn.Call) (status.ExitStatus, error) {
	n, ok := loopCount(call)
	if !ok {
		return status.Failure, nil
	}
	return status.OK, &status.Continue{N: n}
}

func loopCount(call *spawn.Call) (int, bool) {
	n, ok := count(call, call.Args[1:], 1)
	if ok && n < 1 {
		call.Errorf("%d: loop count out of range", n)
		return 0, false
	}
	return n, ok
}

// Eval runs its arguments, joined by spaces, as a script.
func Eval(ctx context.Context, call *spawn.Call) (status.ExitStatus, error) {
	src := strings.Join(call.Args[1:], " ")
	script, err := call.Shell.Parse(strings.NewReader(src), "eval")
	if err != nil {
		return call.Usage("%v", err), nil
	}
	return call.Shell.Eval(ctx, script, call.Fds)
}

// Source runs a file in the current shell. Names without a slash are looked
// up in $PATH, then in the working directory. Extra arguments become the
// positional parameters while the file runs.
func Source(ctx context.Context, call *spawn.Call) (status.ExitStatus, error) {
	if len(call.Args) < 2 {
		return call.Usage("filename argument required"), nil
	}
	name := call.Args[1]
	fs := call.Shell.Fs()
	path, ok := findSource(fs, call, name)
	if !ok {
		return call.Errorf("%s: file not found", name), nil
	}
	f, err := fs.Open(path)
	if err != nil {
		return call.Errorf("%s: %v", name, err), nil
	}
	defer f.Close()
	script, err := call.Shell.Parse(f, name)
	if err != nil {
		return call.Usage("%v", err), nil
	}

	e := call.Env
	if len(call.Args) > 2 {
		saved := e.Params()
		e.SetParams(call.Args[2:])
		defer e.SetParams(saved)
	}
	st, err := call.Shell.Eval(ctx, script, call.Fds)
	if ret, ok := err.(*status.Return); ok {
		return ret.Status, nil
	}
	return st, err
}

func findSource(fs afero.Fs, call *spawn.Call, name string) (string, bool) {
	dir := call.Env.Dir()
	if strings.ContainsRune(name, '/') {
		path := filepathext.SmartJoin(dir, name)
		ok, _ := afero.Exists(fs, path)
		return path, ok
	}
	for _, d := range filepath.SplitList(call.Env.Value("PATH")) {
		path := filepathext.SmartJoin(dir, filepath.Join(orDot(d), name))
		if ok, _ := afero.Exists(fs, path); ok && !isDir(fs, path) {
			return path, true
		}
	}
	path := filepath.Join(dir, name)
	ok, _ := afero.Exists(fs, path)
	return path, ok
}

// Exec replaces the shell with a command: the command runs and the shell
// exits with its status. Without a command, the redirections of the exec
// command stay in effect.
func Exec(ctx context.Context, call *spawn.Call) (status.ExitStatus, error) {
	args := call.Args[1:]
	if len(args) > 0 && args[0] == "--" {
		args = args[1:]
	}
	if len(args) == 0 {
		call.KeepRedirections = true
		return status.OK, nil
	}
	st, err := call.Shell.Exec(ctx, args, call.Fds, true)
	if err != nil {
		return st, err
	}
	return st, &status.Exit{Status: st}
}

// Command runs a command bypassing shell functions, or with -v and -V
// describes how a name would be resolved.
func Command(ctx context.Context, call *spawn.Call) (status.ExitStatus, error) {
	set := getopt.New()
	brief := set.Bool('v', "print the command that would run")
	verbose := set.Bool('V', "describe the command that would run")
	set.Bool('p', "use a default value for PATH")
	args, st, ok := parseFlags(call, set)
	if !ok {
		return st, nil
	}
	if len(args) == 0 {
		return status.OK, nil
	}
	if *brief || *verbose {
		st := status.OK
		for _, name := range args {
			kind, path := call.Shell.Lookup(name)
			switch {
			case kind == spawn.KindNotFound:
				if *verbose {
					call.Errorf("%s: not found", name)
				}
				st = status.Failure
			case *verbose:
				fmt.Fprintln(call.Stdout(), describe(name, kind, path))
			case kind == spawn.KindFile:
				fmt.Fprintln(call.Stdout(), path)
			default:
				fmt.Fprintln(call.Stdout(), name)
			}
		}
		return st, nil
	}
	return call.Shell.Exec(ctx, args, call.Fds, true)
}

// Type describes how each name would be resolved. With -t only the kind is
// printed.
func Type(_ context.Context, call *spawn.Call) (status.ExitStatus, error) {
	set := getopt.New()
	terse := set.Bool('t', "print only the kind of command")
	args, st, ok := parseFlags(call, set)
	if !ok {
		return st, nil
	}
	st = status.OK
	for _, name := range args {
		kind, path := call.Shell.Lookup(name)
		switch {
		case kind == spawn.KindNotFound:
			if !*terse {
				call.Errorf("%s: not found", name)
			}
			st = status.Failure
		case *terse:
			fmt.Fprintln(call.Stdout(), kind)
		default:
			fmt.Fprintln(call.Stdout(), describe(name, kind, path))
		}
	}
	return st, nil
}

func describe(name string, kind spawn.Kind, path string) string {
	switch kind {
	case spawn.KindKeyword:
		return name + " is a shell keyword"
	case spawn.KindFunction:
		return name + " is a function"
	case spawn.KindSpecialBuiltin:
		return name + " is a special shell builtin"
	case spawn.KindBuiltin:
		return name + " is a shell builtin"
	default:
		return name + " is " + path
	}
}

// Hash lists the remembered command locations, remembers the given names,
// or forgets everything with -r.
func Hash(_ context.Context, call *spawn.Call) (status.ExitStatus, error) {
	set := getopt.New()
	reset := set.Bool('r', "forget every remembered location")
	args, st, ok := parseFlags(call, set)
	if !ok {
		return st, nil
	}
	sp := call.Shell.Spawner()
	path := call.Env.Value("PATH")
	if *reset {
		sp.Forget()
	}
	if len(args) == 0 {
		if *reset {
			return status.OK, nil
		}
		hashed := sp.Hashed(path)
		if len(hashed) == 0 {
			fmt.Fprintln(call.Stdout(), "hash: hash table empty")
		}
		for _, h := range hashed {
			fmt.Fprintln(call.Stdout(), h[1])
		}
		return status.OK, nil
	}
	st = status.OK
	for _, name := range args {
		if _, err := sp.LookPath(name, path, call.Env.Dir()); err != nil {
			st = call.Errorf("%s: not found", name)
		}
	}
	return st, nil
}
