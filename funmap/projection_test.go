package funmap

import (
	"math"
	"testing"

	"github.com/paulmach/osm"
	"github.com/stretchr/testify/assert"
)

func TestProjection_roundTrip(t *testing.T) {
	references := [][2]float64{
		{0, 0},
		{2.25797, 48.61416},
		{-73.5673, 45.5017},
		{151.2093, -33.8688},
	}
	points := [][2]float64{
		{2.26037, 48.61511},
		{-73.6, 45.49},
		{151.0, -33.9},
		{0.001, -0.001},
	}

	for _, ref := range references {
		projection := NewProjection(ref[0], ref[1])
		for _, point := range points {
			lon, lat := projection.ToGeo(projection.ToPlanar(point[0], point[1]))
			assert.InDelta(t, point[0], lon, 1e-9)
			assert.InDelta(t, point[1], lat, 1e-9)
		}
	}
}

func TestProjection_ToPlanar(t *testing.T) {
	projection := NewProjection(2, 48)

	origin := projection.ToPlanar(2, 48)
	assert.Equal(t, 0.0, origin.X())
	assert.Equal(t, 0.0, origin.Y())

	east := projection.ToPlanar(3, 48)
	assert.InDelta(t, EarthRadius*math.Pi/180*math.Cos(48*math.Pi/180), east.X(), 1e-6)
	assert.Equal(t, 0.0, east.Y())

	// north is towards negative Y
	north := projection.ToPlanar(2, 49)
	assert.Equal(t, 0.0, north.X())
	assert.InDelta(t, -EarthRadius*math.Pi/180, north.Y(), 1e-6)
}

func TestProjection_BoundsToPlanar(t *testing.T) {
	projection := NewProjection(2, 48)
	bound := projection.BoundsToPlanar(osm.Bounds{MinLon: 2, MinLat: 48, MaxLon: 2.01, MaxLat: 48.01})

	assert.Equal(t, 0.0, bound.Min.X())
	assert.Less(t, bound.Min.Y(), 0.0)
	assert.Greater(t, bound.Max.X(), 0.0)
	assert.Equal(t, 0.0, bound.Max.Y())
}

func TestProjection_Reference(t *testing.T) {
	lon, lat := NewProjection(1.5, -2.5).Reference()
	assert.Equal(t, 1.5, lon)
	assert.Equal(t, -2.5, lat)
}
