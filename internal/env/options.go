package env

import (
	"fmt"
	"slices"
	"strings"
)

// GlobPolicy decides what happens to a pattern that matches no file.
type GlobPolicy int

const (
	// GlobPassThrough keeps the pattern as a literal word.
	GlobPassThrough GlobPolicy = iota
	// GlobNull removes the word.
	GlobNull
	// GlobFail makes the expansion fail.
	GlobFail
)

func (p GlobPolicy) String() string {
	switch p {
	case GlobNull:
		return "null"
	case GlobFail:
		return "fail"
	}
	return "passthrough"
}

// ParseGlobPolicy parses the names returned by GlobPolicy.String.
func ParseGlobPolicy(s string) (GlobPolicy, error) {
	switch s {
	case "", "passthrough":
		return GlobPassThrough, nil
	case "null":
		return GlobNull, nil
	case "fail":
		return GlobFail, nil
	}
	return 0, fmt.Errorf("unknown glob policy %q", s)
}

// Options are the shell options changed by set.
type Options struct {
	Allexport   bool
	Errexit     bool
	Noclobber   bool
	Noglob      bool
	Nounset     bool
	Pipefail    bool
	Xtrace      bool
	Interactive bool
	Glob        GlobPolicy
}

type option struct {
	name  string
	short byte
	field func(*Options) *bool
}

var options = []option{
	{"allexport", 'a', func(o *Options) *bool { return &o.Allexport }},
	{"errexit", 'e', func(o *Options) *bool { return &o.Errexit }},
	{"noclobber", 'C', func(o *Options) *bool { return &o.Noclobber }},
	{"noglob", 'f', func(o *Options) *bool { return &o.Noglob }},
	{"nounset", 'u', func(o *Options) *bool { return &o.Nounset }},
	{"pipefail", 0, func(o *Options) *bool { return &o.Pipefail }},
	{"xtrace", 'x', func(o *Options) *bool { return &o.Xtrace }},
}

// SetByName turns the long option name on or off.
func (o *Options) SetByName(name string, on bool) error {
	for _, opt := range options {
		if opt.name == name {
			*opt.field(o) = on
			return nil
		}
	}
	return fmt.Errorf("%s: invalid option name", name)
}

// SetByLetter turns the option with the given letter on or off.
func (o *Options) SetByLetter(letter byte, on bool) error {
	for _, opt := range options {
		if opt.short != 0 && opt.short == letter {
			*opt.field(o) = on
			return nil
		}
	}
	return fmt.Errorf("-%c: invalid option", letter)
}

// Names returns the long option names in order.
func (o *Options) Names() []string {
	names := make([]string, 0, len(options))
	for _, opt := range options {
		names = append(names, opt.name)
	}
	return names
}

// Get returns the state of a long option.
func (o *Options) Get(name string) (bool, bool) {
	for _, opt := range options {
		if opt.name == name {
			return *opt.field(o), true
		}
	}
	return false, false
}

// Flags returns the option letters for $-.
func (o *Options) Flags() string {
	var letters []byte
	for _, opt := range options {
		if opt.short != 0 && *opt.field(o) {
			letters = append(letters, opt.short)
		}
	}
	if o.Interactive {
		letters = append(letters, 'i')
	}
	slices.Sort(letters)
	var sb strings.Builder
	sb.Write(letters)
	return sb.String()
}
