package main

import (
	"testing"

	"github.com/hocman2/funmap/chunk"
	"github.com/hocman2/funmap/funmap"
	"github.com/hocman2/funmap/funmapdal"
	"github.com/hocman2/funmap/mapbuild"
	"github.com/jamesrr39/goutil/errorsx"
	"github.com/paulmach/osm"
	"github.com/stretchr/testify/assert"
)

func Test_parseTile(t *testing.T) {
	tests := []struct {
		name          string
		input         string
		wantX         int
		wantY         int
		wantZoomLevel int
		wantErr       bool
	}{
		{"valid tile", "15/16592/11272", 16592, 11272, 15, false},
		{"too few fragments", "15/16592", 0, 0, 0, true},
		{"not a number", "15/a/11272", 0, 0, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x, y, zoomLevel, err := parseTile(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.Nil(t, err)
			assert.Equal(t, tt.wantX, x)
			assert.Equal(t, tt.wantY, y)
			assert.Equal(t, tt.wantZoomLevel, zoomLevel)
		})
	}
}

func Test_settledChunkCount(t *testing.T) {
	projection := funmap.NewProjection(2, 48)
	c := chunk.New(osm.Bounds{MinLon: 2, MinLat: 48, MaxLon: 2.001, MaxLat: 48.001}, projection)
	neighbours := c.Neighbours()

	assert.Equal(t, 1, settledChunkCount(mapbuild.Result{Target: c}))
	assert.Equal(t, 1, settledChunkCount(mapbuild.Result{Target: c, Err: &mapbuild.HTTPError{StatusCode: 404}}))
	assert.Equal(t, 3, settledChunkCount(mapbuild.Result{
		Target: c,
		Err: &mapbuild.TransportError{
			Cause:   errorsx.Errorf("connection reset"),
			Aborted: neighbours[:2],
		},
	}))
}

func Test_parseAt(t *testing.T) {
	tests := []struct {
		name          string
		input         string
		wantX         int
		wantY         int
		wantZoomLevel int
		wantErr       bool
	}{
		{"with a zoom level", "2.2945,48.8584,15", 16592, 11272, 15, false},
		{"default zoom level", "2.2945, 48.8584", 66371, 45091, DEFAULT_AT_ZOOM_LEVEL, false},
		{"missing latitude", "2.2945", 0, 0, 0, true},
		{"not a number", "2.2945,north", 0, 0, 0, true},
		{"outside of the world", "200,48", 0, 0, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x, y, zoomLevel, err := parseAt(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.Nil(t, err)
			assert.Equal(t, tt.wantX, x)
			assert.Equal(t, tt.wantY, y)
			assert.Equal(t, tt.wantZoomLevel, zoomLevel)
		})
	}
}

func Test_initialChunk(t *testing.T) {
	config := funmapdal.DefaultConfig()
	projection := config.Projection()

	c, err := initialChunk(config, projection, "", "")
	assert.Nil(t, err)
	assert.Equal(t, config.InitialChunk.ToBounds(), c.GeoBounds())

	c, err = initialChunk(config, projection, "15/16592/11272", "")
	assert.Nil(t, err)
	assert.Equal(t, chunk.TileBounds(16592, 11272, 15), c.GeoBounds())

	c, err = initialChunk(config, projection, "", "2.2945,48.8584,15")
	assert.Nil(t, err)
	assert.Equal(t, chunk.TileBounds(16592, 11272, 15), c.GeoBounds())
	assert.True(t, funmap.ContainsPoint(c.GeoBounds(), 2.2945, 48.8584))

	_, err = initialChunk(config, projection, "15/16592/11272", "2.2945,48.8584")
	assert.Error(t, err)

	// a whole-world tile is too big for one request
	_, err = initialChunk(config, projection, "", "2.2945,48.8584,0")
	assert.Error(t, err)
}
