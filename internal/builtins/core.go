package builtins

import (
	"context"
	"io"
	"strconv"
	"strings"

	"github.com/go-task/shexec/internal/spawn"
	"github.com/go-task/shexec/internal/status"
)

func True(context.Context, *spawn.Call) (status.ExitStatus, error) {
	return status.OK, nil
}

func False(context.Context, *spawn.Call) (status.ExitStatus, error) {
	return status.Failure, nil
}

// Echo prints its arguments. Options are only recognised while they consist
// of n, e and E letters; anything else is printed.
func Echo(_ context.Context, call *spawn.Call) (status.ExitStatus, error) {
	args := call.Args[1:]
	newline, escapes := true, false
	for len(args) > 0 && isEchoFlag(args[0]) {
		for _, c := range args[0][1:] {
			switch c {
			case 'n':
				newline = false
			case 'e':
				escapes = true
			case 'E':
				escapes = false
			}
		}
		args = args[1:]
	}

	var sb strings.Builder
	for i, arg := range args {
		if i > 0 {
			sb.WriteByte(' ')
		}
		if !escapes {
			sb.WriteString(arg)
			continue
		}
		s, stop := echoEscapes(arg)
		sb.WriteString(s)
		if stop {
			newline = false
			break
		}
	}
	if newline {
		sb.WriteByte('\n')
	}
	if _, err := io.WriteString(call.Stdout(), sb.String()); err != nil {
		return call.Errorf("write error: %v", err), nil
	}
	return status.OK, nil
}

func isEchoFlag(arg string) bool {
	if len(arg) < 2 || arg[0] != '-' {
		return false
	}
	return strings.Trim(arg[1:], "neE") == ""
}

// echoEscapes interprets the backslash sequences of echo -e. stop reports
// \c, which ends all output.
func echoEscapes(s string) (out string, stop bool) {
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 == len(s) {
			sb.WriteByte(c)
			continue
		}
		i++
		switch s[i] {
		case 'a':
			sb.WriteByte('\a')
		case 'b':
			sb.WriteByte('\b')
		case 'c':
			return sb.String(), true
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
		case '\\':
			sb.WriteByte('\\')
		case '0':
			j := i + 1
			for j < len(s) && j < i+4 && s[j] >= '0' && s[j] <= '7' {
				j++
			}
			n, _ := strconv.ParseUint("0"+s[i+1:j], 8, 8)
			sb.WriteByte(byte(n))
			i = j - 1
		case 'x':
			j := i + 1
			for j < len(s) && j < i+3 && isHex(s[j]) {
				j++
			}
			if j == i+1 {
				sb.WriteString(`\x`)
				continue
			}
			n, _ := strconv.ParseUint(s[i+1:j], 16, 8)
			sb.WriteByte(byte(n))
			i = j - 1
		default:
			sb.WriteByte('\\')
			sb.WriteByte(s[i])
		}
	}
	return sb.String(), false
}

func isHex(c byte) bool {
	return c >= '0' && c <= '9' || c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F'
}
