package chunk

import (
	"math"

	"github.com/hocman2/funmap/funmap"
	"github.com/paulmach/osm"
)

// TileAt gives the slippy map tile containing the point
func TileAt(lon, lat float64, zoomLevel int) (x, y int) {
	x = int(
		math.Floor((lon + 180.0) / 360.0 * (math.Exp2(float64(zoomLevel)))),
	)
	y = int(
		math.Floor(
			(1.0 - math.Log(
				math.Tan(lat*math.Pi/180.0)+1.0/math.Cos(lat*math.Pi/180.0))/math.Pi) / 2.0 * (math.Exp2(float64(zoomLevel))),
		),
	)
	return
}

// TileBounds is the geographic area covered by a slippy map tile
func TileBounds(x, y, zoomLevel int) osm.Bounds {
	n := math.Pow(2, float64(zoomLevel))
	longitudeMin := float64(x)/n*360 - 180
	latRad := math.Atan(math.Sinh(math.Pi * (1 - 2*float64(y)/n)))
	latitudeMax := latRad * 180 / math.Pi

	longitudeMax := float64(x+1)/n*360 - 180
	latRad = math.Atan(math.Sinh(math.Pi * (1 - 2*float64(y+1)/n)))
	latitudeMin := latRad * 180 / math.Pi

	return osm.Bounds{
		MinLat: latitudeMin,
		MaxLat: latitudeMax,
		MinLon: longitudeMin,
		MaxLon: longitudeMax,
	}
}

func NewFromTile(x, y, zoomLevel int, projection *funmap.Projection) *Chunk {
	return New(TileBounds(x, y, zoomLevel), projection)
}
