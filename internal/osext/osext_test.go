package osext

import (
	"testing"

	"github.com/mitchellh/go-homedir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandPaths(t *testing.T) { //nolint:paralleltest // modifies the environment
	t.Setenv("HOME", "/home/me")
	t.Setenv("TOOLS", "/opt/tools")
	homedir.DisableCache = true

	paths, err := ExpandPaths([]string{"~/bin", "$TOOLS/bin/", ".env", "${NOPE}x"})
	require.NoError(t, err)
	assert.Equal(t, []string{"/home/me/bin", "/opt/tools/bin", ".env", "x"}, paths)

	paths, err = ExpandPaths(nil)
	require.NoError(t, err)
	assert.Nil(t, paths)

	_, err = ExpandPaths([]string{"~other/bin"})
	assert.Error(t, err)
}
