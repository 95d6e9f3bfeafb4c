package funmapdal

import (
	"testing"

	"github.com/jamesrr39/goutil/gofs/mockfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPathsConfig_EnsurePaths(t *testing.T) {
	fs := mockfs.NewMockFs()

	pathsConfig := &PathsConfig{
		TraceDir:   "/data/funmap/traces",
		ProfileDir: "/data/funmap/profiles",
	}

	err := pathsConfig.EnsurePaths(fs)
	require.Nil(t, err)

	for _, dirPath := range []string{pathsConfig.TraceDir, pathsConfig.ProfileDir} {
		fileInfo, statErr := fs.Stat(dirPath)
		require.NoError(t, statErr)
		assert.True(t, fileInfo.IsDir())
	}
}
