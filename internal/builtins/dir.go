package builtins

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/pborman/getopt/v2"
	"github.com/spf13/afero"

	"github.com/go-task/shexec/internal/filepathext"
	"github.com/go-task/shexec/internal/spawn"
	"github.com/go-task/shexec/internal/status"
)

// Cd changes the working directory. A relative operand is first looked up
// in $CDPATH; "-" goes back to $OLDPWD. The new directory is printed when it
// was not given literally.
func Cd(_ context.Context, call *spawn.Call) (status.ExitStatus, error) {
	set := getopt.New()
	set.Bool('L', "follow symbolic links lexically")
	physical := set.Bool('P', "resolve symbolic links")
	args, st, ok := parseFlags(call, set)
	if !ok {
		return st, nil
	}

	e := call.Env
	var target string
	announce := false
	switch len(args) {
	case 0:
		home, ok := e.Get("HOME")
		if !ok || home.Value == "" {
			return call.Errorf("HOME not set"), nil
		}
		target = home.Value
	case 1:
		target = args[0]
	default:
		return call.Errorf("too many arguments"), nil
	}
	if target == "-" {
		old, ok := e.Get("OLDPWD")
		if !ok || old.Value == "" {
			return call.Errorf("OLDPWD not set"), nil
		}
		target = old.Value
		announce = true
	}

	fs := call.Shell.Fs()
	dir := ""
	if !filepath.IsAbs(target) && !filepathext.IsDotPath(target) {
		if cdpath, ok := e.Get("CDPATH"); ok && cdpath.Value != "" {
			for _, base := range filepath.SplitList(cdpath.Value) {
				candidate := filepathext.Logical(e.Dir(), filepath.Join(orDot(base), target))
				if isDir(fs, candidate) {
					dir = candidate
					announce = announce || base != ""
					break
				}
			}
		}
	}
	if dir == "" {
		dir = filepathext.Logical(e.Dir(), target)
	}
	if !isDir(fs, dir) {
		if _, err := fs.Stat(dir); err == nil {
			return call.Errorf("%s: not a directory", target), nil
		}
		return call.Errorf("%s: no such file or directory", target), nil
	}
	if *physical {
		if resolved, err := filepath.EvalSymlinks(dir); err == nil {
			dir = resolved
		}
	}
	e.Chdir(dir)
	if announce {
		fmt.Fprintln(call.Stdout(), dir)
	}
	return status.OK, nil
}

// Pwd prints the working directory, with -P after resolving symbolic links.
func Pwd(_ context.Context, call *spawn.Call) (status.ExitStatus, error) {
	set := getopt.New()
	set.Bool('L', "print the logical directory")
	physical := set.Bool('P', "print the physical directory")
	if _, st, ok := parseFlags(call, set); !ok {
		return st, nil
	}
	dir := call.Env.Dir()
	if *physical {
		resolved, err := filepath.EvalSymlinks(dir)
		if err != nil {
			return call.Errorf("%v", err), nil
		}
		dir = resolved
	}
	fmt.Fprintln(call.Stdout(), dir)
	return status.OK, nil
}

func isDir(fs afero.Fs, path string) bool {
	ok, err := afero.IsDir(fs, path)
	return err == nil && ok
}

func orDot(dir string) string {
	if dir == "" {
		return "."
	}
	return dir
}
