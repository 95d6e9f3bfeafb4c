package chunk

import (
	"fmt"
	"sync"

	"github.com/hocman2/funmap/funmap"
	"github.com/hocman2/funmap/triangulator"
	"github.com/paulmach/orb"
	"github.com/paulmach/osm"
)

type Status int

const (
	StatusPending Status = iota
	StatusGenerating
	StatusGenerated
	StatusInvalid
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusGenerating:
		return "generating"
	case StatusGenerated:
		return "generated"
	case StatusInvalid:
		return "invalid"
	default:
		return fmt.Sprintf("unknown status (%d)", int(s))
	}
}

// Chunk is a rectangular tile of the world.
// Status and payload are guarded by the same lock, so a reader never sees one without the other.
type Chunk struct {
	id         string
	geoBounds  osm.Bounds
	projection *funmap.Projection
	// south-west and north-east corners, in planar coordinates
	worldMin orb.Point
	worldMax orb.Point

	mu     *sync.Mutex
	status Status
	meshes []*triangulator.BuiltMesh
	roads  []*funmap.Way
}

func New(bounds osm.Bounds, projection *funmap.Projection) *Chunk {
	return &Chunk{
		id:         idFromBounds(bounds),
		geoBounds:  bounds,
		projection: projection,
		worldMin:   projection.ToPlanar(bounds.MinLon, bounds.MinLat),
		worldMax:   projection.ToPlanar(bounds.MaxLon, bounds.MaxLat),
		mu:         new(sync.Mutex),
		status:     StatusPending,
	}
}

func idFromBounds(bounds osm.Bounds) string {
	return fmt.Sprintf("%.7f_%.7f_%.7f_%.7f", bounds.MinLon, bounds.MinLat, bounds.MaxLon, bounds.MaxLat)
}

func (c *Chunk) ID() string {
	return c.id
}

func (c *Chunk) Projection() *funmap.Projection {
	return c.projection
}

func (c *Chunk) GeoBounds() osm.Bounds {
	return c.geoBounds
}

// WorldCorners are the projected south-west and north-east corners
func (c *Chunk) WorldCorners() (southWest, northEast orb.Point) {
	return c.worldMin, c.worldMax
}

// WorldBounds is the chunk area in planar coordinates
func (c *Chunk) WorldBounds() orb.Bound {
	return orb.Bound{Min: c.worldMin, Max: c.worldMin}.Extend(c.worldMax)
}

func (c *Chunk) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.status
}

func (c *Chunk) SetStatus(status Status) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.status = status
}

// WithData runs fn while holding the chunk lock. fn must not keep the slices after returning.
func (c *Chunk) WithData(fn func(meshes []*triangulator.BuiltMesh, roads []*funmap.Way)) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fn(c.meshes, c.roads)
}

// WithGeneratedData runs fn while holding the chunk lock, if the chunk is generated.
// The status seen under the lock is returned, whether fn ran or not.
func (c *Chunk) WithGeneratedData(fn func(meshes []*triangulator.BuiltMesh, roads []*funmap.Way)) Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status == StatusGenerated {
		fn(c.meshes, c.roads)
	}
	return c.status
}

// Upload replaces the chunk payload and marks the chunk as generated
func (c *Chunk) Upload(meshes []*triangulator.BuiltMesh, roads []*funmap.Way) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.meshes = meshes
	c.roads = roads
	c.status = StatusGenerated
}

// Unload drops the payload and puts the chunk back to pending
func (c *Chunk) Unload() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.meshes = nil
	c.roads = nil
	c.status = StatusPending
}

// UnloadUnlessGenerating is Unload, except for a chunk being generated, which is left alone.
// It returns the status the chunk had before.
func (c *Chunk) UnloadUnlessGenerating() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	previous := c.status
	if previous == StatusGenerating {
		return previous
	}

	c.meshes = nil
	c.roads = nil
	c.status = StatusPending
	return previous
}

func (c *Chunk) Counts() (meshes, roads int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.meshes), len(c.roads)
}

// Direction indexes the array returned by Neighbours
type Direction int

const (
	North Direction = iota
	NorthEast
	East
	SouthEast
	South
	SouthWest
	West
	NorthWest
)

var directionOffsets = [8][2]int{
	North:     {0, 1},
	NorthEast: {1, 1},
	East:      {1, 0},
	SouthEast: {1, -1},
	South:     {0, -1},
	SouthWest: {-1, -1},
	West:      {-1, 0},
	NorthWest: {-1, 1},
}

// Neighbours creates the 8 chunks around this one, each the same size in planar coordinates.
// The new chunks are pending and share nothing with this chunk except the projection.
func (c *Chunk) Neighbours() [8]*Chunk {
	var neighbours [8]*Chunk
	for direction, offset := range directionOffsets {
		neighbours[direction] = c.Offset(offset[0], offset[1])
	}

	return neighbours
}

// Offset creates the chunk found by moving this one by whole chunk sizes, eastwards and northwards
func (c *Chunk) Offset(columns, rows int) *Chunk {
	shiftX := float64(columns) * (c.worldMax.X() - c.worldMin.X())
	shiftY := float64(rows) * (c.worldMax.Y() - c.worldMin.Y())

	minLon, minLat := c.projection.ToGeo(orb.Point{c.worldMin.X() + shiftX, c.worldMin.Y() + shiftY})
	maxLon, maxLat := c.projection.ToGeo(orb.Point{c.worldMax.X() + shiftX, c.worldMax.Y() + shiftY})

	return New(osm.Bounds{
		MinLon: minLon,
		MinLat: minLat,
		MaxLon: maxLon,
		MaxLat: maxLat,
	}, c.projection)
}

func (c *Chunk) String() string {
	return fmt.Sprintf("chunk %s (%s)", c.id, c.Status())
}
