package expand

import (
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/spf13/afero"
	"mvdan.cc/sh/v3/pattern"

	"github.com/go-task/shexec/errors"
	"github.com/go-task/shexec/internal/env"
)

// HasMeta reports whether pat contains unescaped pattern characters.
func HasMeta(pat string) bool {
	for i := 0; i < len(pat); i++ {
		switch pat[i] {
		case '\\':
			i++
		case '*', '?':
			return true
		case '[':
			if strings.IndexByte(pat[i+1:], ']') >= 0 {
				return true
			}
		}
	}
	return false
}

// QuoteMeta escapes the pattern characters of s.
func QuoteMeta(s string) string {
	if !strings.ContainsAny(s, `*?[]\`) {
		return s
	}
	var sb strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			sb.WriteByte('\\')
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// Match reports whether name matches the whole pattern.
func Match(pat, name string) bool {
	rx, err := compile(pat, 0)
	if err != nil {
		return pat == name
	}
	return rx.MatchString(name)
}

func compile(pat string, mode pattern.Mode) (*regexp.Regexp, error) {
	expr, err := pattern.Regexp(pat, mode)
	if err != nil {
		return nil, err
	}
	return regexp.Compile("^(?:" + expr + ")$")
}

func unescape(pat string) string {
	if !strings.Contains(pat, `\`) {
		return pat
	}
	var sb strings.Builder
	for i := 0; i < len(pat); i++ {
		if pat[i] == '\\' && i+1 < len(pat) {
			i++
		}
		sb.WriteByte(pat[i])
	}
	return sb.String()
}

// glob joins the parts of a field and expands it as a pathname pattern when
// it holds active pattern characters.
func (x *expander) glob(field []fieldPart) ([]string, error) {
	var plain, pat strings.Builder
	active := false
	for _, part := range field {
		plain.WriteString(part.val)
		if part.quote == quoteNone {
			pat.WriteString(part.val)
			active = true
		} else {
			pat.WriteString(QuoteMeta(part.val))
		}
	}
	opts := x.env().Options()
	if !active || opts.Noglob || !HasMeta(pat.String()) {
		return []string{plain.String()}, nil
	}
	matches, err := Glob(x.cfg.fs(), x.env().Dir(), pat.String())
	if err != nil {
		return nil, err
	}
	if len(matches) > 0 {
		return matches, nil
	}
	switch opts.Glob {
	case env.GlobNull:
		return nil, nil
	case env.GlobFail:
		return nil, &errors.ExpansionError{Msg: "no match: " + plain.String()}
	}
	return []string{plain.String()}, nil
}

// Glob returns the sorted paths matching pat, relative to dir unless pat is
// absolute. Names starting with a dot only match a pattern component that
// starts with a dot too.
func Glob(fs afero.Fs, dir, pat string) ([]string, error) {
	abs := filepath.IsAbs(pat) || strings.HasPrefix(pat, "/")
	components := strings.Split(filepath.ToSlash(pat), "/")

	// Each match is the path as written by the user.
	matches := []string{""}
	if abs {
		matches = []string{"/"}
		components = components[1:]
	}
	for i, comp := range components {
		last := i == len(components)-1
		if comp == "" {
			for j := range matches {
				matches[j] = joinMatch(matches[j], "")
			}
			continue
		}
		if !HasMeta(comp) {
			lit := unescape(comp)
			for j := range matches {
				matches[j] = joinMatch(matches[j], lit)
			}
			continue
		}
		rx, err := compile(comp, pattern.Filenames)
		if err != nil {
			return nil, nil
		}
		hidden := strings.HasPrefix(comp, ".") || strings.HasPrefix(comp, `\.`)
		var next []string
		for _, m := range matches {
			entries, err := afero.ReadDir(fs, resolve(dir, m))
			if err != nil {
				continue
			}
			for _, entry := range entries {
				name := entry.Name()
				if strings.HasPrefix(name, ".") && !hidden {
					continue
				}
				if !last && !entry.IsDir() {
					continue
				}
				if rx.MatchString(name) {
					next = append(next, joinMatch(m, name))
				}
			}
		}
		matches = next
		if len(matches) == 0 {
			return nil, nil
		}
	}
	var out []string
	for _, m := range matches {
		if m == "" {
			continue
		}
		if _, err := fs.Stat(resolve(dir, m)); err == nil {
			out = append(out, m)
		}
	}
	slices.Sort(out)
	return out, nil
}

func joinMatch(prefix, name string) string {
	switch {
	case prefix == "":
		return name
	case strings.HasSuffix(prefix, "/"):
		return prefix + name
	}
	return prefix + "/" + name
}

func resolve(dir, path string) string {
	if path == "" {
		return dir
	}
	if filepath.IsAbs(path) || strings.HasPrefix(path, "/") {
		return filepath.FromSlash(path)
	}
	return filepath.Join(dir, filepath.FromSlash(path))
}
