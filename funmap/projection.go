package funmap

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/osm"
)

// EarthRadius is scaled so that 1 world unit is 1 decimetre
const EarthRadius = 6371.0 * 100.0

// Projection is an equirectangular tangent-plane projection anchored at a reference point.
// All chunks of a session must be built with the same Projection.
type Projection struct {
	refLon float64
	refLat float64
	cosRef float64
}

func NewProjection(refLon, refLat float64) *Projection {
	return &Projection{
		refLon: refLon,
		refLat: refLat,
		cosRef: math.Cos(refLat * math.Pi / 180.0),
	}
}

func (p *Projection) Reference() (lon, lat float64) {
	return p.refLon, p.refLat
}

// ToPlanar projects a geographic coordinate. The Y axis is inverted to follow the rendering convention.
func (p *Projection) ToPlanar(lon, lat float64) orb.Point {
	dLat := (lat - p.refLat) * math.Pi / 180.0
	dLon := (lon - p.refLon) * math.Pi / 180.0

	return orb.Point{
		EarthRadius * dLon * p.cosRef,
		-EarthRadius * dLat,
	}
}

func (p *Projection) ToGeo(point orb.Point) (lon, lat float64) {
	lon = (180.0*point.X())/(math.Pi*EarthRadius*p.cosRef) + p.refLon
	lat = (180.0*-point.Y())/(math.Pi*EarthRadius) + p.refLat
	return lon, lat
}

// BoundsToPlanar returns the planar bound covering the projected bounds.
// Because of the inverted Y axis, the south-west corner ends up with the largest Y.
func (p *Projection) BoundsToPlanar(bounds osm.Bounds) orb.Bound {
	southWest := p.ToPlanar(bounds.MinLon, bounds.MinLat)
	northEast := p.ToPlanar(bounds.MaxLon, bounds.MaxLat)

	return orb.Bound{Min: southWest, Max: southWest}.Extend(northEast)
}
