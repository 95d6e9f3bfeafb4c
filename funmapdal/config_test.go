package funmapdal

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/jamesrr39/goutil/gofs/mockfs"
	"github.com/jamesrr39/goutil/userextra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_missingFile(t *testing.T) {
	fs := mockfs.NewMockFs()

	tests := []struct {
		name string
		path string
	}{
		{"no path given", ""},
		{"file does not exist", "/etc/funmap/config.yaml"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config, err := LoadConfig(fs, tt.path)
			require.Error(t, err)
			assert.Nil(t, config)
		})
	}
}

func TestLoadDefaultConfig(t *testing.T) {
	// nothing at the default path of an empty file system
	config, err := LoadDefaultConfig(mockfs.NewMockFs())
	require.Nil(t, err)
	assert.Equal(t, DefaultConfig(), config)
	assert.Nil(t, config.Validate())

	fs := mockfs.NewMockFs()
	path, expandErr := userextra.ExpandUser(DefaultConfigPath)
	require.NoError(t, expandErr)
	require.NoError(t, fs.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, fs.WriteFile(path, []byte("workingSetRadius: 3"), 0644))

	config, err = LoadDefaultConfig(fs)
	require.Nil(t, err)
	assert.Equal(t, 3, config.WorkingSetRadius)
}

func TestLoadConfig_overrides(t *testing.T) {
	fs := mockfs.NewMockFs()
	err := fs.WriteFile("/config.yaml", []byte(`
apiBaseURL: http://localhost:9000
maxConcurrentRequests: 2
requestTimeout: 5s
buildingElevation: 1.5
reference:
  lon: 2.25
  lat: 48.6
initialChunk:
  minLon: 2.26
  minLat: 48.61
  maxLon: 2.27
  maxLat: 48.62
workingSetRadius: 2
`), 0644)
	require.NoError(t, err)

	config, loadErr := LoadConfig(fs, "/config.yaml")
	require.Nil(t, loadErr)

	assert.Equal(t, "http://localhost:9000", config.APIBaseURL)
	assert.Equal(t, 2, config.MaxConcurrentRequests)
	assert.Equal(t, 5*time.Second, config.RequestTimeout)
	assert.Equal(t, float32(1.5), config.BuildingElevation)
	assert.Equal(t, 2, config.WorkingSetRadius)
	assert.Equal(t, 2.26, config.InitialChunk.MinLon)

	// untouched fields keep their defaults
	assert.Equal(t, DefaultUserAgent, config.UserAgent)
	assert.Equal(t, DefaultFrameInterval, config.FrameInterval)

	lon, lat := config.Projection().Reference()
	assert.Equal(t, 2.25, lon)
	assert.Equal(t, 48.6, lat)
}

func TestLoadConfig_invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"not yaml", "maxConcurrentRequests: [1"},
		{"no concurrency", "maxConcurrentRequests: 0"},
		{"negative elevation", "buildingElevation: -1"},
		{"initial chunk too big", "initialChunk: {minLon: 2, minLat: 48, maxLon: 3, maxLat: 49}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := mockfs.NewMockFs()
			require.NoError(t, fs.WriteFile("/config.yaml", []byte(tt.content), 0644))

			_, err := LoadConfig(fs, "/config.yaml")
			assert.Error(t, err)
		})
	}
}

func TestConfig_Projection_defaultsToInitialChunk(t *testing.T) {
	config := DefaultConfig()
	lon, lat := config.Projection().Reference()
	assert.Equal(t, config.InitialChunk.MinLon, lon)
	assert.Equal(t, config.InitialChunk.MinLat, lat)
}

func TestPathsConfig_EnsurePaths_fromConfig(t *testing.T) {
	fs := mockfs.NewMockFs()
	pc := &PathsConfig{
		TraceDir:   "/data/traces",
		ProfileDir: "/data/profiles",
	}

	err := pc.EnsurePaths(fs)
	require.Nil(t, err)

	for _, dirPath := range []string{"/data/traces", "/data/profiles"} {
		fileInfo, statErr := fs.Stat(dirPath)
		require.NoError(t, statErr)
		assert.True(t, fileInfo.IsDir())
	}
}
