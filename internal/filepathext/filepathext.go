package filepathext

import (
	"path/filepath"
	"strings"
)

// SmartJoin joins two paths, but only if the second is not already an
// absolute path.
func SmartJoin(a, b string) string {
	if filepath.IsAbs(b) {
		return b
	}
	return filepath.Join(a, b)
}

// Logical resolves target against dir lexically, the way cd -L does: a ".."
// component removes the preceding one without following symlinks.
func Logical(dir, target string) string {
	return filepath.Clean(SmartJoin(dir, target))
}

// IsDotPath reports whether path starts with a "." or ".." component, which
// bypasses a CDPATH search.
func IsDotPath(path string) bool {
	first, _, _ := strings.Cut(filepath.ToSlash(path), "/")
	return first == "." || first == ".."
}
