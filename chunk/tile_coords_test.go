package chunk

import (
	"testing"

	"github.com/hocman2/funmap/funmap"
	"github.com/stretchr/testify/assert"
)

func TestTileBounds(t *testing.T) {
	bounds := TileBounds(0, 0, 0)
	assert.Equal(t, -180.0, bounds.MinLon)
	assert.Equal(t, 180.0, bounds.MaxLon)
	assert.InDelta(t, -85.0511, bounds.MinLat, 1e-4)
	assert.InDelta(t, 85.0511, bounds.MaxLat, 1e-4)
}

func TestTileAt(t *testing.T) {
	tests := []struct {
		name  string
		lon   float64
		lat   float64
		zoom  int
		wantX int
		wantY int
	}{
		{"whole world", 2.2945, 48.8584, 0, 0, 0},
		{"eiffel tower", 2.2945, 48.8584, 15, 16592, 11272},
		{"south west quadrant", -50, -30, 1, 0, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x, y := TileAt(tt.lon, tt.lat, tt.zoom)
			assert.Equal(t, tt.wantX, x)
			assert.Equal(t, tt.wantY, y)

			assert.True(t, funmap.ContainsPoint(TileBounds(x, y, tt.zoom), tt.lon, tt.lat))
		})
	}
}

func TestNewFromTile(t *testing.T) {
	projection := funmap.NewProjection(2.29, 48.85)
	c := NewFromTile(16592, 11272, 15, projection)

	assert.Equal(t, TileBounds(16592, 11272, 15), c.GeoBounds())
	assert.Nil(t, funmap.ValidateChunkBounds(c.GeoBounds()))
}
