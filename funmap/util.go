package funmap

import (
	"github.com/jamesrr39/goutil/errorsx"
	"github.com/paulmach/orb"
	"github.com/paulmach/osm"
)

// MaxRequestAreaDegrees is the largest bbox area (in square degrees) the OSM API map call accepts
const MaxRequestAreaDegrees = 0.25

// Overlaps reports whether a and b share some area. Bounds only touching along an edge do not overlap.
func Overlaps(a, b osm.Bounds) bool {
	return a.MinLon < b.MaxLon && b.MinLon < a.MaxLon &&
		a.MinLat < b.MaxLat && b.MinLat < a.MaxLat
}

func IsTotallyInside(container osm.Bounds, item osm.Bounds) bool {
	return item.MaxLat <= container.MaxLat && item.MaxLon <= container.MaxLon && item.MinLat >= container.MinLat && item.MinLon >= container.MinLon
}

var worldBounds = osm.Bounds{MinLon: -180, MinLat: -90, MaxLon: 180, MaxLat: 90}

// ContainsPoint tests if a point lies in the bounds.
// The south and west edges are part of the bounds, the north and east ones are not,
// so a point on the edge between two adjacent chunks belongs to one of them only.
func ContainsPoint(bounds osm.Bounds, lon, lat float64) bool {
	return lon >= bounds.MinLon && lon < bounds.MaxLon &&
		lat >= bounds.MinLat && lat < bounds.MaxLat
}

// IsValidPoint checks the point is a longitude and latitude on earth
func IsValidPoint(lon, lat float64) bool {
	return IsTotallyInside(worldBounds, osm.Bounds{MinLon: lon, MinLat: lat, MaxLon: lon, MaxLat: lat})
}

// ValidateChunkBounds checks the bounds can be requested from the map API in one call
func ValidateChunkBounds(bounds osm.Bounds) errorsx.Error {
	if bounds.MinLat >= bounds.MaxLat || bounds.MinLon >= bounds.MaxLon {
		return errorsx.Errorf("bounds are empty or inverted: %#v", bounds)
	}

	if !IsTotallyInside(worldBounds, bounds) {
		return errorsx.Errorf("bounds are outside of the world: %#v", bounds)
	}

	area := (bounds.MaxLat - bounds.MinLat) * (bounds.MaxLon - bounds.MinLon)
	if area > MaxRequestAreaDegrees {
		return errorsx.Errorf("bounds area %f is bigger than the maximum of %f square degrees", area, MaxRequestAreaDegrees)
	}

	return nil
}

func NewNodeFromOSMNode(obj *osm.Node) Node {
	return Node{
		ID:        uint64(obj.ID),
		Longitude: obj.Lon,
		Latitude:  obj.Lat,
		Visible:   obj.Visible,
	}
}

// NewWayFromOSMWay resolves the way's node references against the nodes seen so far.
// References to unknown nodes are dropped, the amount dropped is returned.
func NewWayFromOSMWay(obj *osm.Way, nodes map[uint64]Node, tagPool *TagPool) (*Way, int) {
	way := &Way{
		ID:    uint64(obj.ID),
		Nodes: make([]Node, 0, len(obj.Nodes)),
		Tags:  make(TagSet, len(obj.Tags)),
	}

	missing := 0
	for _, wayNode := range obj.Nodes {
		node, ok := nodes[uint64(wayNode.ID)]
		if !ok {
			missing++
			continue
		}
		way.Nodes = append(way.Nodes, node)
	}

	for _, tag := range obj.Tags {
		way.Tags.Insert(tagPool.Tag(tag.Key, tag.Value))
	}

	return way, missing
}

// RoadPolyline projects the way's nodes, in order, to planar coordinates
func RoadPolyline(way *Way, projection *Projection) orb.LineString {
	lineString := make(orb.LineString, 0, len(way.Nodes))
	for _, node := range way.Nodes {
		lineString = append(lineString, projection.ToPlanar(node.Longitude, node.Latitude))
	}
	return lineString
}
