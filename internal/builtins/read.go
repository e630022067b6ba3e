package builtins

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/pborman/getopt/v2"

	"github.com/go-task/shexec/internal/env"
	"github.com/go-task/shexec/internal/expand"
	"github.com/go-task/shexec/internal/spawn"
	"github.com/go-task/shexec/internal/status"
)

// Read reads a line from standard input and assigns its fields to the given
// names, or to REPLY. Without -r a backslash quotes the next character and
// a backslash-newline pair continues the line. The status is 1 at end of
// input.
func Read(_ context.Context, call *spawn.Call) (status.ExitStatus, error) {
	set := getopt.New()
	raw := set.Bool('r', "do not treat backslashes as escapes")
	prompt := set.String('p', "", "print a prompt on standard error first")
	names, st, ok := parseFlags(call, set)
	if !ok {
		return st, nil
	}
	if len(names) == 0 {
		names = []string{"REPLY"}
	}
	for _, name := range names {
		if !env.ValidName(name) {
			return call.Errorf("`%s': not a valid identifier", name), nil
		}
	}
	if *prompt != "" {
		fmt.Fprint(call.Stderr(), *prompt)
	}

	line, escaped, err := readLine(call.Stdin(), *raw)
	if err != nil && !errors.Is(err, io.EOF) {
		return call.Errorf("%v", err), nil
	}

	fields := expand.ReadFields(call.Env, line, escaped, len(names))
	st = status.OK
	if err != nil {
		st = status.Failure
	}
	for i, name := range names {
		value := ""
		if i < len(fields) {
			value = fields[i]
		}
		if err := call.Env.Set(name, value, false); err != nil {
			st = call.Errorf("%v", err)
		}
	}
	return st, nil
}

// readLine reads up to a newline one byte at a time, so that nothing past
// the line is consumed from a shared input. escaped marks the bytes that
// followed a backslash. io.EOF is returned when the input ended before a
// newline.
func readLine(r io.Reader, raw bool) (string, []bool, error) {
	var line []byte
	var escaped []bool
	buf := make([]byte, 1)
	quoted := false
	for {
		n, err := r.Read(buf)
		if n == 1 {
			c := buf[0]
			switch {
			case quoted:
				quoted = false
				if c != '\n' {
					line = append(line, c)
					escaped = append(escaped, true)
				}
			case c == '\\' && !raw:
				quoted = true
			case c == '\n':
				return string(line), escaped, nil
			default:
				line = append(line, c)
				escaped = append(escaped, false)
			}
		}
		if err != nil {
			return string(line), escaped, err
		}
	}
}
