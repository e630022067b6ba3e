package logger

import (
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/fatih/color"

	"github.com/go-task/shexec/internal/env"
)

var (
	attrsReset     = envColor("COLOR_RESET", color.Reset)
	attrsFgBlue    = envColor("COLOR_BLUE", color.FgBlue)
	attrsFgGreen   = envColor("COLOR_GREEN", color.FgGreen)
	attrsFgCyan    = envColor("COLOR_CYAN", color.FgCyan)
	attrsFgYellow  = envColor("COLOR_YELLOW", color.FgYellow)
	attrsFgMagenta = envColor("COLOR_MAGENTA", color.FgMagenta)
	attrsFgRed     = envColor("COLOR_RED", color.FgRed)
)

type (
	Color     func() PrintFunc
	PrintFunc func(io.Writer, string, ...any)
)

func Default() PrintFunc {
	return color.New(attrsReset...).FprintfFunc()
}

func Blue() PrintFunc {
	return color.New(attrsFgBlue...).FprintfFunc()
}

func Green() PrintFunc {
	return color.New(attrsFgGreen...).FprintfFunc()
}

func Cyan() PrintFunc {
	return color.New(attrsFgCyan...).FprintfFunc()
}

func Yellow() PrintFunc {
	return color.New(attrsFgYellow...).FprintfFunc()
}

func Magenta() PrintFunc {
	return color.New(attrsFgMagenta...).FprintfFunc()
}

func Red() PrintFunc {
	return color.New(attrsFgRed...).FprintfFunc()
}

// envColor reads SHEXEC_<name>. Three comma separated values are an RGB
// colour; otherwise the value is a semicolon separated list of ANSI codes.
func envColor(name string, defaultColor color.Attribute) []color.Attribute {
	override := env.GetShellEnv(name)
	if override == "" {
		return []color.Attribute{defaultColor}
	}

	attributeStrs := strings.Split(override, ",")
	if len(attributeStrs) == 3 {
		attributeStrs = slices.Concat([]string{"38", "2"}, attributeStrs)
	} else {
		attributeStrs = strings.Split(override, ";")
	}

	attributes := make([]color.Attribute, len(attributeStrs))
	for i, attributeStr := range attributeStrs {
		attribute, err := strconv.Atoi(strings.TrimSpace(attributeStr))
		if err != nil {
			return []color.Attribute{defaultColor}
		}
		attributes[i] = color.Attribute(attribute)
	}
	return attributes
}
