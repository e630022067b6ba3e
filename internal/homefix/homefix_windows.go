package homefix

import (
	"os"

	"github.com/mitchellh/go-homedir"
)

// init fills in $HOME from the user profile so that ~ expansion, cd without
// arguments and the config lookup agree on the home directory.
func init() {
	if _, ok := os.LookupEnv("HOME"); ok {
		return
	}
	home, err := homedir.Dir()
	if err != nil || home == "" {
		return
	}
	_ = os.Setenv("HOME", home)
}
