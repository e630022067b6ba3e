//go:build windows

package sysinfo

import "github.com/spf13/afero"

// NOTE: This always returns -1 since there is currently no easy way to get
// file owner information on Windows.
func Owner(fsys afero.Fs, path string) (int, error) {
	if _, err := fsys.Stat(path); err != nil {
		return 0, err
	}
	return -1, nil
}
