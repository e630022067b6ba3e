package shellrc

import (
	"os"

	"github.com/spf13/afero"
	"go.yaml.in/yaml/v3"

	"github.com/go-task/shexec/errors"
	"github.com/go-task/shexec/internal/osext"
	"github.com/go-task/shexec/shellrc/ast"
)

type (
	// DebugFunc is a function that can be called to log debug messages.
	DebugFunc func(string)
	// A ReaderOption is any type that can apply a configuration to a [Reader].
	ReaderOption interface {
		ApplyToReader(*Reader)
	}
	// A Reader reads configuration files from a [Node] into an [ast.ShellRC].
	Reader struct {
		debugFunc DebugFunc
	}
)

// NewReader constructs a new [Reader] using the given options.
func NewReader(opts ...ReaderOption) *Reader {
	r := &Reader{}
	r.Options(opts...)
	return r
}

// Options loops through the given [ReaderOption] functions and applies them to
// the [Reader].
func (r *Reader) Options(opts ...ReaderOption) {
	for _, opt := range opts {
		opt.ApplyToReader(r)
	}
}

// WithDebugFunc sets the debug function to be used by the [Reader]. If set,
// this function will be called with debug messages. By default, no debug
// function is set and the logs are not written.
func WithDebugFunc(debugFunc DebugFunc) ReaderOption {
	return &debugFuncOption{debugFunc: debugFunc}
}

type debugFuncOption struct {
	debugFunc DebugFunc
}

func (o *debugFuncOption) ApplyToReader(r *Reader) {
	r.debugFunc = o.debugFunc
}

func (r *Reader) debugf(msg string) {
	if r.debugFunc != nil {
		r.debugFunc(msg)
	}
}

// Read decodes and validates the file of node. An empty file yields an
// empty configuration.
func (r *Reader) Read(node *Node) (*ast.ShellRC, error) {
	if node == nil {
		return nil, os.ErrInvalid
	}
	r.debugf("shellrc: reading " + node.entrypoint)

	b, err := afero.ReadFile(node.fs, node.entrypoint)
	if err != nil {
		return nil, &errors.ConfigError{Path: node.entrypoint, Err: err}
	}

	var config ast.ShellRC
	if err := yaml.Unmarshal(b, &config); err != nil {
		return nil, &errors.ConfigError{Path: node.entrypoint, Err: err}
	}
	if err := config.Validate(); err != nil {
		return nil, &errors.ConfigError{Path: node.entrypoint, Err: err}
	}
	if config.Path, err = osext.ExpandPaths(config.Path); err != nil {
		return nil, &errors.ConfigError{Path: node.entrypoint, Err: err}
	}
	if config.Dotenv, err = osext.ExpandPaths(config.Dotenv); err != nil {
		return nil, &errors.ConfigError{Path: node.entrypoint, Err: err}
	}
	return &config, nil
}
