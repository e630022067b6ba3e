package execext

import (
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

// Build returns cmd followed by args quoted for a POSIX shell, so that the
// result can be given to RunCommand.
func Build(cmd string, args ...string) (string, error) {
	words := make([]string, 0, len(args)+1)
	words = append(words, cmd)

	for _, arg := range args {
		quoted, err := syntax.Quote(arg, syntax.LangPOSIX)
		if err != nil {
			return "", err
		}
		words = append(words, quoted)
	}

	return strings.Join(words, " "), nil
}
