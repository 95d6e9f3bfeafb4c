package funmap

import (
	"testing"

	"github.com/paulmach/osm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOverlaps(t *testing.T) {
	container := osm.Bounds{MinLon: -1, MinLat: -1, MaxLon: 1, MaxLat: 1}

	tests := []struct {
		name string
		item osm.Bounds
		want bool
	}{
		{"north of the container", osm.Bounds{MinLon: -1, MinLat: 89, MaxLon: 1, MaxLat: 90}, false},
		{"south of the container", osm.Bounds{MinLon: -1, MinLat: -51, MaxLon: 1, MaxLat: -50}, false},
		{"west of the container", osm.Bounds{MinLon: -3, MinLat: -1, MaxLon: -2, MaxLat: 1}, false},
		{"east of the container", osm.Bounds{MinLon: 2, MinLat: -1, MaxLon: 3, MaxLat: 1}, false},
		{"only touching the north edge", osm.Bounds{MinLon: 0.2, MinLat: 1, MaxLon: 0.8, MaxLat: 2}, false},
		{"fully inside", osm.Bounds{MinLon: -0.5, MinLat: -0.5, MaxLon: 0.5, MaxLat: 0.5}, true},
		{"across the north-west corner", osm.Bounds{MinLon: -1.5, MinLat: 0.5, MaxLon: -0.5, MaxLat: 1.5}, true},
		{"covering the container", osm.Bounds{MinLon: -2, MinLat: -2, MaxLon: 2, MaxLat: 2}, true},
		{"same bounds", container, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Overlaps(container, tt.item))
			// the order of the arguments doesn't matter
			assert.Equal(t, tt.want, Overlaps(tt.item, container))
		})
	}
}

func TestContainsPoint(t *testing.T) {
	bounds := osm.Bounds{MinLon: -1, MinLat: -1, MaxLon: 1, MaxLat: 1}

	tests := []struct {
		name string
		lon  float64
		lat  float64
		want bool
	}{
		{"inside", -0.5, 0.5, true},
		{"north of the bounds", -0.5, 1.5, false},
		{"west of the bounds", -1.5, 0.5, false},
		{"on the south edge", 0, -1, true},
		{"on the west edge", -1, 0, true},
		{"on the north edge", 0, 1, false},
		{"on the east edge", 1, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ContainsPoint(bounds, tt.lon, tt.lat))
		})
	}
}

func TestIsValidPoint(t *testing.T) {
	assert.True(t, IsValidPoint(2.26, 48.61))
	assert.True(t, IsValidPoint(-180, -90))
	assert.False(t, IsValidPoint(200, 48))
	assert.False(t, IsValidPoint(2, -91))
}

func TestValidateChunkBounds(t *testing.T) {
	tests := []struct {
		name    string
		bounds  osm.Bounds
		wantErr bool
	}{
		{
			"small chunk",
			osm.Bounds{MinLon: 2.25797, MinLat: 48.61416, MaxLon: 2.26037, MaxLat: 48.61511},
			false,
		}, {
			"inverted",
			osm.Bounds{MinLon: 2.26037, MinLat: 48.61416, MaxLon: 2.25797, MaxLat: 48.61511},
			true,
		}, {
			"empty",
			osm.Bounds{MinLon: 2, MinLat: 48, MaxLon: 2, MaxLat: 48},
			true,
		}, {
			"too big for one request",
			osm.Bounds{MinLon: 2, MinLat: 48, MaxLon: 3, MaxLat: 49},
			true,
		}, {
			"outside of the world",
			osm.Bounds{MinLon: 179.9, MinLat: 10, MaxLon: 180.1, MaxLat: 10.1},
			true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateChunkBounds(tt.bounds)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.Nil(t, err)
			}
		})
	}
}

func TestNewWayFromOSMWay(t *testing.T) {
	nodes := map[uint64]Node{
		1: {ID: 1, Longitude: 2.1, Latitude: 48.1, Visible: true},
		2: {ID: 2, Longitude: 2.2, Latitude: 48.1, Visible: true},
	}

	osmWay := &osm.Way{
		ID: 10,
		Nodes: osm.WayNodes{
			{ID: 1},
			{ID: 2},
			{ID: 3},
			{ID: 1},
		},
		Tags: osm.Tags{
			{Key: "highway", Value: "residential"},
			{Key: "highway", Value: "primary"},
			{Key: "name", Value: "Rue de la Paix"},
		},
	}

	way, missing := NewWayFromOSMWay(osmWay, nodes, NewTagPool())
	assert.Equal(t, 1, missing)
	assert.Equal(t, uint64(10), way.ID)
	require.Len(t, way.Nodes, 3)
	assert.Equal(t, nodes[1], way.Nodes[0])
	assert.Equal(t, nodes[2], way.Nodes[1])
	assert.True(t, way.IsClosed())

	tag, ok := way.Tags.Find("highway")
	require.True(t, ok)
	assert.Equal(t, "residential", tag.Value)
	assert.Len(t, way.Tags, 2)
}

func TestRoadPolyline(t *testing.T) {
	projection := NewProjection(2, 48)
	way := &Way{
		Nodes: []Node{
			{ID: 1, Longitude: 2, Latitude: 48},
			{ID: 2, Longitude: 2.001, Latitude: 48},
			{ID: 3, Longitude: 2.001, Latitude: 48.001},
		},
	}

	line := RoadPolyline(way, projection)
	require.Len(t, line, 3)
	assert.Equal(t, 0.0, line[0].X())
	assert.Equal(t, 0.0, line[0].Y())
	assert.Greater(t, line[1].X(), 0.0)
	assert.Less(t, line[2].Y(), 0.0)
}
