package shellrc

import (
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/afero"

	"github.com/go-task/shexec/internal/fsext"
	"github.com/go-task/shexec/shellrc/ast"
)

var (
	defaultXDGShellRCs = []string{
		"shexecrc.yml",
		"shexecrc.yaml",
	}
	defaultShellRCs = []string{
		".shexecrc.yml",
		".shexecrc.yaml",
	}
)

// GetConfig loads and merges the global and local configuration files. Files
// closer to dir win over the ones in $HOME, which win over the XDG one. A nil
// config is returned when there is no file at all.
func GetConfig(fs afero.Fs, dir string, opts ...ReaderOption) (*ast.ShellRC, error) {
	var config *ast.ShellRC
	reader := NewReader(opts...)
	merge := func(node *Node) error {
		c, err := reader.Read(node)
		if err != nil {
			return err
		}
		if config == nil {
			config = c
		} else {
			config.Merge(c)
		}
		return nil
	}

	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		node, err := NewNode(fs, filepath.Join(xdgConfigHome, "shexec"), defaultXDGShellRCs)
		if err == nil {
			if err := merge(node); err != nil {
				return nil, err
			}
		}
	}

	absDir := fsext.DefaultDir(dir)

	// A home directory above dir is found by the search below.
	home, err := homedir.Dir()
	if err == nil && !within(home, absDir) {
		node, err := NewNode(fs, home, defaultShellRCs)
		if err == nil {
			if err := merge(node); err != nil {
				return nil, err
			}
		}
	}

	entrypoints, err := fsext.SearchAll(fs, absDir, defaultShellRCs)
	if err != nil {
		return config, err
	}
	// Child files override parent ones.
	slices.Reverse(entrypoints)
	for _, entrypoint := range entrypoints {
		node, err := NewNode(fs, entrypoint, defaultShellRCs)
		if err != nil {
			return nil, err
		}
		if err := merge(node); err != nil {
			return nil, err
		}
	}
	return config, nil
}

// GetConfigFile reads a single configuration file, as given to --config.
func GetConfigFile(fs afero.Fs, path string, opts ...ReaderOption) (*ast.ShellRC, error) {
	node, err := NewNode(fs, path, defaultShellRCs)
	if err != nil {
		return nil, err
	}
	return NewReader(opts...).Read(node)
}

func within(parent, dir string) bool {
	rel, err := filepath.Rel(parent, dir)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
