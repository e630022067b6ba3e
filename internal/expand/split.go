package expand

import (
	"strings"
	"unicode/utf8"

	"github.com/go-task/shexec/internal/env"
)

const defaultIFS = " \t\n"

type splitter struct {
	ifs string
}

func newSplitter(e *env.Env) splitter {
	v, ok := e.Get("IFS")
	if !ok {
		return splitter{ifs: defaultIFS}
	}
	return splitter{ifs: v.Value}
}

func (s splitter) isSep(r rune) bool {
	return strings.ContainsRune(s.ifs, r)
}

func isIFSSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n'
}

func (s splitter) isSpace(r rune) bool {
	return isIFSSpace(r) && s.isSep(r)
}

// split breaks str into fields. IFS whitespace runs act as one delimiter and
// are trimmed at both ends; every other IFS character delimits a field on
// its own, so "a::b" holds an empty field. lead and trail report whether str
// started or ended with a delimiter, which ends the field being built.
func (s splitter) split(str string) (fields []string, lead, trail bool) {
	if s.ifs == "" || str == "" {
		if str == "" {
			return nil, false, false
		}
		return []string{str}, false, false
	}

	trimmed := strings.TrimLeftFunc(str, s.isSpace)
	lead = len(trimmed) < len(str)
	str = trimmed
	trimmed = strings.TrimRightFunc(str, s.isSpace)
	trail = len(trimmed) < len(str)
	str = trimmed
	if str == "" {
		return nil, lead, lead || trail
	}

	runes := []rune(str)
	var cur strings.Builder
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if !s.isSep(r) {
			cur.WriteRune(r)
			continue
		}
		// A delimiter is whitespace around at most one other IFS character.
		for i < len(runes) && s.isSpace(runes[i]) {
			i++
		}
		if i < len(runes) && s.isSep(runes[i]) && !s.isSpace(runes[i]) {
			i++
			for i < len(runes) && s.isSpace(runes[i]) {
				i++
			}
		}
		i--
		fields = append(fields, cur.String())
		cur.Reset()
		if i == len(runes)-1 {
			trail = true
			return fields, lead, trail
		}
	}
	fields = append(fields, cur.String())
	return fields, lead, trail
}

// ReadFields splits line for assignment to n names, as read does: leading
// IFS whitespace is dropped, and the last field keeps the rest of the line
// minus trailing IFS whitespace. Fewer than n fields may be returned.
// Bytes marked in escaped never delimit a field; a nil mask marks none.
func ReadFields(e *env.Env, line string, escaped []bool, n int) []string {
	s := newSplitter(e)
	at := func(i int) (rune, int, bool) {
		r, size := utf8.DecodeRuneInString(line[i:])
		return r, size, i < len(escaped) && escaped[i]
	}
	isSpace := func(i int) bool {
		r, _, esc := at(i)
		return !esc && s.isSpace(r)
	}
	skipSpace := func(i int) int {
		for i < len(line) && isSpace(i) {
			_, size, _ := at(i)
			i += size
		}
		return i
	}

	i := skipSpace(0)
	var fields []string
	for len(fields) < n-1 && i < len(line) {
		j := i
		for j < len(line) {
			r, size, esc := at(j)
			if !esc && s.isSep(r) {
				break
			}
			j += size
		}
		if j == len(line) {
			break
		}
		fields = append(fields, line[i:j])
		i = skipSpace(j)
		if i < len(line) {
			if r, size, esc := at(i); !esc && s.isSep(r) && !s.isSpace(r) {
				i = skipSpace(i + size)
			}
		}
	}

	end := len(line)
	for end > i {
		_, size := utf8.DecodeLastRuneInString(line[i:end])
		if !isSpace(end - size) {
			break
		}
		end -= size
	}
	if end > i {
		fields = append(fields, line[i:end])
	}
	return fields
}
