package fsext

import (
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/go-task/shexec/internal/filepathext"
	"github.com/go-task/shexec/internal/sysinfo"
)

// DefaultDir returns dir as an absolute path, or the current working
// directory when dir is empty.
func DefaultDir(dir string) string {
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return ""
		}
		return wd
	}
	dir, err := filepath.Abs(dir)
	if err != nil {
		return ""
	}
	return dir
}

// SearchPath checks whether path is a file and returns it if so. When path
// is a directory, the first of the possible filenames found in it is
// returned instead. os.ErrNotExist is returned when nothing matches.
func SearchPath(fsys afero.Fs, path string, possibleFilenames []string) (string, error) {
	fi, err := fsys.Stat(path)
	if err != nil {
		return "", err
	}

	// If the path exists and is a regular file, device, symlink, or named pipe,
	// return the absolute path to it
	if fi.Mode().IsRegular() ||
		fi.Mode()&os.ModeDevice != 0 ||
		fi.Mode()&os.ModeSymlink != 0 ||
		fi.Mode()&os.ModeNamedPipe != 0 {
		return filepath.Abs(path)
	}

	for _, filename := range possibleFilenames {
		alt := filepathext.SmartJoin(path, filename)
		if fi, err := fsys.Stat(alt); err == nil && !fi.IsDir() {
			return filepath.Abs(alt)
		}
	}

	return "", os.ErrNotExist
}

// SearchAll walks up from dir to the root directory and returns every file
// with one of the possible filenames, closest first. The walk stops early
// when the owner of a directory changes, so that files of other users are
// never picked up.
func SearchAll(fsys afero.Fs, dir string, possibleFilenames []string) ([]string, error) {
	var found []string
	owner, err := sysinfo.Owner(fsys, dir)
	if err != nil {
		return nil, err
	}
	for {
		for _, filename := range possibleFilenames {
			path := filepath.Join(dir, filename)
			if fi, err := fsys.Stat(path); err == nil && !fi.IsDir() {
				found = append(found, path)
				break
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return found, nil
		}
		parentOwner, err := sysinfo.Owner(fsys, parent)
		if err != nil || parentOwner != owner {
			return found, nil
		}
		dir = parent
	}
}
