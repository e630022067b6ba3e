package fsext

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultDir(t *testing.T) {
	t.Parallel()

	wd, err := os.Getwd()
	require.NoError(t, err)

	tests := []struct {
		name     string
		dir      string
		expected string
	}{
		{
			name:     "default to current working directory",
			dir:      "",
			expected: wd,
		},
		{
			name:     "resolves relative dir path",
			dir:      "./dir",
			expected: filepath.Join(wd, "dir"),
		},
		{
			name:     "keeps absolute dir path",
			dir:      filepath.Join(wd, "dir"),
			expected: filepath.Join(wd, "dir"),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.expected, DefaultDir(tt.dir))
		})
	}
}

func testFs(t *testing.T) afero.Fs {
	t.Helper()
	fsys := afero.NewMemMapFs()
	require.NoError(t, fsys.MkdirAll("/home/me/project/sub/.shexecrc.yml", 0o755))
	for _, name := range []string{
		"/.shexecrc.yml",
		"/home/me/.shexecrc.yaml",
		"/home/me/project/.shexecrc.yml",
		"/home/me/project/.shexecrc.yaml",
		"/home/me/project/bar.txt",
		"/home/me/project/foo.txt",
	} {
		require.NoError(t, afero.WriteFile(fsys, name, nil, 0o644))
	}
	return fsys
}

func TestSearchPath(t *testing.T) {
	t.Parallel()

	fsys := testFs(t)
	tests := []struct {
		name              string
		path              string
		possibleFilenames []string
		expected          string
	}{
		{
			name:     "file path is returned as is",
			path:     "/home/me/project/foo.txt",
			expected: "/home/me/project/foo.txt",
		},
		{
			name:              "foo.txt first if listed first",
			path:              "/home/me/project",
			possibleFilenames: []string{"foo.txt", "bar.txt"},
			expected:          "/home/me/project/foo.txt",
		},
		{
			name:              "bar.txt first if listed first",
			path:              "/home/me/project",
			possibleFilenames: []string{"bar.txt", "foo.txt"},
			expected:          "/home/me/project/bar.txt",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			path, err := SearchPath(fsys, tt.path, tt.possibleFilenames)
			require.NoError(t, err)
			assert.Equal(t, filepath.FromSlash(tt.expected), path)
		})
	}

	_, err := SearchPath(fsys, "/home/me/project", []string{"missing.txt"})
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestSearchAll(t *testing.T) {
	t.Parallel()

	fsys := testFs(t)
	found, err := SearchAll(fsys, "/home/me/project/sub", []string{".shexecrc.yml", ".shexecrc.yaml"})
	require.NoError(t, err)
	// Directories named like a candidate are skipped, and only the first
	// candidate found in a directory counts.
	assert.Equal(t, []string{
		filepath.FromSlash("/home/me/project/.shexecrc.yml"),
		filepath.FromSlash("/home/me/.shexecrc.yaml"),
		filepath.FromSlash("/.shexecrc.yml"),
	}, found)
}
