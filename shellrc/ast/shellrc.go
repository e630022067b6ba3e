package ast

import (
	"fmt"
	"slices"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/go-playground/validator/v10"

	"github.com/go-task/shexec/errors"
)

// SupportedVersions is the constraint every configuration version must meet.
const SupportedVersions = "1.x"

type (
	// ShellRC is the content of a .shexecrc.yml file.
	ShellRC struct {
		Version     *semver.Version `yaml:"version"`
		Options     Options         `yaml:"options"`
		Glob        string          `yaml:"glob" validate:"omitempty,oneof=passthrough null fail"`
		Dotenv      []string        `yaml:"dotenv" validate:"dive,required"`
		KillTimeout *time.Duration  `yaml:"kill_timeout" validate:"omitempty,gte=0s"`
		Path        []string        `yaml:"path" validate:"dive,required"`
	}
	// Options holds the set -o options. Nil means not configured.
	Options struct {
		Errexit   *bool `yaml:"errexit"`
		Nounset   *bool `yaml:"nounset"`
		Pipefail  *bool `yaml:"pipefail"`
		Noglob    *bool `yaml:"noglob"`
		Noclobber *bool `yaml:"noclobber"`
		Xtrace    *bool `yaml:"xtrace"`
	}
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Merge combines the current ShellRC with another one. Fields set in other
// win; list entries of other come first.
func (c *ShellRC) Merge(other *ShellRC) {
	if other == nil {
		return
	}
	if other.Version != nil {
		c.Version = other.Version
	}
	c.Options.merge(&other.Options)
	if other.Glob != "" {
		c.Glob = other.Glob
	}
	c.Dotenv = prepend(c.Dotenv, other.Dotenv)
	if other.KillTimeout != nil {
		c.KillTimeout = other.KillTimeout
	}
	c.Path = prepend(c.Path, other.Path)
}

func (o *Options) merge(other *Options) {
	for _, f := range []struct{ dst, src **bool }{
		{&o.Errexit, &other.Errexit},
		{&o.Nounset, &other.Nounset},
		{&o.Pipefail, &other.Pipefail},
		{&o.Noglob, &other.Noglob},
		{&o.Noclobber, &other.Noclobber},
		{&o.Xtrace, &other.Xtrace},
	} {
		if *f.src != nil {
			*f.dst = *f.src
		}
	}
}

func prepend(list, first []string) []string {
	if len(first) == 0 {
		return list
	}
	out := slices.Clone(first)
	for _, v := range list {
		if !slices.Contains(out, v) {
			out = append(out, v)
		}
	}
	return out
}

// Validate checks the version and the value constraints of the fields.
func (c *ShellRC) Validate() error {
	if c.Version != nil {
		constraint, err := semver.NewConstraint(SupportedVersions)
		if err != nil {
			return err
		}
		if !constraint.Check(c.Version) {
			return fmt.Errorf("unsupported version %s, expected %s", c.Version, SupportedVersions)
		}
	}
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("invalid %s: must satisfy %s=%s", verrs[0].Namespace(), verrs[0].Tag(), verrs[0].Param())
		}
		return err
	}
	return nil
}
