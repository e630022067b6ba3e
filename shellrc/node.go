package shellrc

import (
	"github.com/spf13/afero"

	"github.com/go-task/shexec/internal/fsext"
)

// Node is a configuration file to be read.
type Node struct {
	fs         afero.Fs
	entrypoint string
}

// NewNode resolves entrypoint, a file or a directory holding one of
// filenames, on fs.
func NewNode(fs afero.Fs, entrypoint string, filenames []string) (*Node, error) {
	resolved, err := fsext.SearchPath(fs, entrypoint, filenames)
	if err != nil {
		return nil, err
	}
	return &Node{fs: fs, entrypoint: resolved}, nil
}

// Location returns the path of the file.
func (n *Node) Location() string {
	return n.entrypoint
}
