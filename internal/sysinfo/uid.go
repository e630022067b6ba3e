//go:build !windows

package sysinfo

import (
	"os"
	"syscall"

	"github.com/spf13/afero"
)

// Owner returns the user id owning path. Filesystems that carry no owner
// information, like in-memory ones, report the current user.
func Owner(fsys afero.Fs, path string) (int, error) {
	info, err := fsys.Stat(path)
	if err != nil {
		return 0, err
	}
	var uid int
	if stat, ok := info.Sys().(*syscall.Stat_t); ok {
		uid = int(stat.Uid)
	} else {
		uid = os.Getuid()
	}
	return uid, nil
}
