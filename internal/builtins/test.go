package builtins

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/afero"
	"golang.org/x/term"

	"github.com/go-task/shexec/internal/filepathext"
	"github.com/go-task/shexec/internal/spawn"
	"github.com/go-task/shexec/internal/status"
)

// Test evaluates a conditional expression. As "[" it requires a closing
// "]". Malformed expressions exit with status 2.
func Test(_ context.Context, call *spawn.Call) (status.ExitStatus, error) {
	args := call.Args[1:]
	if call.Args[0] == "[" {
		if len(args) == 0 || args[len(args)-1] != "]" {
			return call.Usage("missing `]'"), nil
		}
		args = args[:len(args)-1]
	}
	t := &tester{call: call, fs: call.Shell.Fs(), dir: call.Env.Dir()}
	ok, err := t.test(args)
	if err != nil {
		return call.Usage("%v", err), nil
	}
	return status.FromBool(ok), nil
}

type tester struct {
	call *spawn.Call
	fs   afero.Fs
	dir  string

	args []string
	pos  int
}

var binaryOps = map[string]bool{
	"=": true, "==": true, "!=": true, "<": true, ">": true,
	"-eq": true, "-ne": true, "-lt": true, "-le": true, "-gt": true, "-ge": true,
	"-nt": true, "-ot": true, "-ef": true,
}

func isUnaryOp(s string) bool {
	return len(s) == 2 && s[0] == '-' && strings.ContainsRune("bcdefghkLnprsStuwxz", rune(s[1]))
}

// test applies the POSIX rules by argument count, which keep expressions
// like `test -n` or `test ! = x` unambiguous, and parses longer ones.
func (t *tester) test(args []string) (bool, error) {
	switch len(args) {
	case 0:
		return false, nil
	case 1:
		return args[0] != "", nil
	case 2:
		if args[0] == "!" {
			return args[1] == "", nil
		}
		if isUnaryOp(args[0]) {
			return t.unary(args[0], args[1])
		}
		return false, fmt.Errorf("%s: unary operator expected", args[0])
	case 3:
		if binaryOps[args[1]] {
			return t.binary(args[0], args[1], args[2])
		}
		switch {
		case args[1] == "-a":
			return args[0] != "" && args[2] != "", nil
		case args[1] == "-o":
			return args[0] != "" || args[2] != "", nil
		case args[0] == "!":
			ok, err := t.test(args[1:])
			return !ok, err
		case args[0] == "(" && args[2] == ")":
			return args[1] != "", nil
		}
		return false, fmt.Errorf("%s: binary operator expected", args[1])
	case 4:
		if args[0] == "!" {
			ok, err := t.test(args[1:])
			return !ok, err
		}
		if args[0] == "(" && args[3] == ")" {
			return t.test(args[1:3])
		}
	}

	t.args, t.pos = args, 0
	ok, err := t.or()
	if err == nil && t.pos < len(t.args) {
		err = fmt.Errorf("%s: unexpected argument", t.args[t.pos])
	}
	return ok, err
}

func (t *tester) peek() (string, bool) {
	if t.pos < len(t.args) {
		return t.args[t.pos], true
	}
	return "", false
}

func (t *tester) or() (bool, error) {
	ok, err := t.and()
	for err == nil {
		if s, _ := t.peek(); s != "-o" {
			break
		}
		t.pos++
		var rhs bool
		rhs, err = t.and()
		ok = ok || rhs
	}
	return ok, err
}

func (t *tester) and() (bool, error) {
	ok, err := t.not()
	for err == nil {
		if s, _ := t.peek(); s != "-a" {
			break
		}
		t.pos++
		var rhs bool
		rhs, err = t.not()
		ok = ok && rhs
	}
	return ok, err
}

func (t *tester) not() (bool, error) {
	if s, _ := t.peek(); s == "!" {
		t.pos++
		ok, err := t.not()
		return !ok, err
	}
	return t.primary()
}

func (t *tester) primary() (bool, error) {
	s, ok := t.peek()
	if !ok {
		return false, fmt.Errorf("argument expected")
	}
	if s == "(" {
		t.pos++
		res, err := t.or()
		if err != nil {
			return false, err
		}
		if c, _ := t.peek(); c != ")" {
			return false, fmt.Errorf("missing `)'")
		}
		t.pos++
		return res, nil
	}
	if t.pos+2 < len(t.args) && binaryOps[t.args[t.pos+1]] {
		x, op, y := s, t.args[t.pos+1], t.args[t.pos+2]
		t.pos += 3
		return t.binary(x, op, y)
	}
	if isUnaryOp(s) && t.pos+1 < len(t.args) {
		arg := t.args[t.pos+1]
		t.pos += 2
		return t.unary(s, arg)
	}
	t.pos++
	return s != "", nil
}

func (t *tester) path(name string) string {
	return filepathext.SmartJoin(t.dir, name)
}

func (t *tester) stat(name string) (fs.FileInfo, bool) {
	fi, err := t.fs.Stat(t.path(name))
	return fi, err == nil
}

func (t *tester) unary(op, arg string) (bool, error) {
	switch op {
	case "-n":
		return arg != "", nil
	case "-z":
		return arg == "", nil
	case "-t":
		fd, err := strconv.Atoi(arg)
		if err != nil {
			return false, fmt.Errorf("%s: integer expression expected", arg)
		}
		d, ok := t.call.Fds.Get(fd)
		if !ok {
			return false, nil
		}
		f, ok := d.File()
		return ok && term.IsTerminal(int(f.Fd())), nil
	case "-h", "-L":
		lst, ok := t.fs.(afero.Lstater)
		if !ok {
			return false, nil
		}
		fi, _, err := lst.LstatIfPossible(t.path(arg))
		return err == nil && fi.Mode()&fs.ModeSymlink != 0, nil
	}

	fi, ok := t.stat(arg)
	if !ok {
		return false, nil
	}
	mode := fi.Mode()
	switch op {
	case "-e":
		return true, nil
	case "-f":
		return mode.IsRegular(), nil
	case "-d":
		return mode.IsDir(), nil
	case "-b":
		return mode&fs.ModeDevice != 0 && mode&fs.ModeCharDevice == 0, nil
	case "-c":
		return mode&fs.ModeCharDevice != 0, nil
	case "-p":
		return mode&fs.ModeNamedPipe != 0, nil
	case "-S":
		return mode&fs.ModeSocket != 0, nil
	case "-s":
		return fi.Size() > 0, nil
	case "-g":
		return mode&fs.ModeSetgid != 0, nil
	case "-u":
		return mode&fs.ModeSetuid != 0, nil
	case "-k":
		return mode&fs.ModeSticky != 0, nil
	case "-r":
		return mode.Perm()&0o444 != 0, nil
	case "-w":
		return mode.Perm()&0o222 != 0, nil
	case "-x":
		return mode.Perm()&0o111 != 0, nil
	}
	return false, fmt.Errorf("%s: unary operator expected", op)
}

func (t *tester) binary(x, op, y string) (bool, error) {
	switch op {
	case "=", "==":
		return x == y, nil
	case "!=":
		return x != y, nil
	case "<":
		return x < y, nil
	case ">":
		return x > y, nil
	case "-nt", "-ot":
		fx, okx := t.stat(x)
		fy, oky := t.stat(y)
		if op == "-ot" {
			fx, fy, okx, oky = fy, fx, oky, okx
		}
		switch {
		case okx && oky:
			return fx.ModTime().After(fy.ModTime()), nil
		default:
			return okx && !oky, nil
		}
	case "-ef":
		fx, okx := t.stat(x)
		fy, oky := t.stat(y)
		return okx && oky && os.SameFile(fx, fy), nil
	}

	a, err := testInt(x)
	if err != nil {
		return false, err
	}
	b, err := testInt(y)
	if err != nil {
		return false, err
	}
	switch op {
	case "-eq":
		return a == b, nil
	case "-ne":
		return a != b, nil
	case "-lt":
		return a < b, nil
	case "-le":
		return a <= b, nil
	case "-gt":
		return a > b, nil
	default:
		return a >= b, nil
	}
}

func testInt(s string) (int64, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: integer expression expected", s)
	}
	return n, nil
}
