package expand

import (
	"os/user"

	"github.com/mitchellh/go-homedir"

	"github.com/go-task/shexec/ast"
)

// tilde resolves ~ to $HOME and ~name to the home directory of that user.
// Unknown users leave the prefix untouched.
func (x *expander) tilde(t *ast.Tilde) string {
	if t.User == "" {
		if home, ok := x.env().Get("HOME"); ok {
			return home.Value
		}
		home, err := homedir.Dir()
		if err != nil {
			return "~"
		}
		return home
	}
	u, err := user.Lookup(t.User)
	if err != nil {
		return "~" + t.User
	}
	return u.HomeDir
}
