package osext

import (
	"os"
	"path/filepath"

	"github.com/mitchellh/go-homedir"
)

// ExpandPaths expands the process variables ($HOME, $XDG_DATA_HOME...) and a
// leading "~" in each path. Relative paths stay relative.
func ExpandPaths(paths []string) ([]string, error) {
	if len(paths) == 0 {
		return paths, nil
	}
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		p, err := homedir.Expand(os.ExpandEnv(p))
		if err != nil {
			return nil, err
		}
		out = append(out, filepath.Clean(p))
	}
	return out, nil
}
