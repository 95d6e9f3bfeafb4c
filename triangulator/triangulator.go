package triangulator

import (
	"errors"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/hocman2/funmap/funmap"
	"github.com/jamesrr39/goutil/errorsx"
	"github.com/paulmach/orb"
)

// DefaultElevation is the height of an extruded building, in world units
const DefaultElevation = 0.5

var (
	ErrNotClosed      = errors.New("way is not closed")
	ErrTooFewVertices = errors.New("polygon needs at least 3 distinct vertices")
	ErrNoEarFound     = errors.New("no ear found in polygon")
)

type Options struct {
	Elevation float32
}

func DefaultOptions() Options {
	return Options{
		Elevation: DefaultElevation,
	}
}

// vertex is an entry of the polygon arena. prev and next are indexes into the same arena.
type vertex struct {
	pos    orb.Point
	convex bool
	prev   int
	next   int
}

type polygon struct {
	vertices []vertex
	// clockwise as seen from above, looking down the elevation axis
	clockwise bool
	elevation float32
	triangles []Triangle
}

// Triangulate turns a closed way into an extruded mesh: 2 wall triangles per edge, followed by the roof.
func Triangulate(way *funmap.Way, projection *funmap.Projection, options Options) (*BuiltMesh, errorsx.Error) {
	if !way.IsClosed() {
		return nil, errorsx.Wrap(ErrNotClosed, "wayID", way.ID)
	}

	// the closing node repeats the first one
	nodes := way.Nodes[:len(way.Nodes)-1]
	if len(nodes) < 3 {
		return nil, errorsx.Wrap(ErrTooFewVertices, "wayID", way.ID, "vertexCount", len(nodes))
	}

	origin := projection.ToPlanar(nodes[0].Longitude, nodes[0].Latitude)
	points := make([]orb.Point, len(nodes))
	for i, node := range nodes {
		p := projection.ToPlanar(node.Longitude, node.Latitude)
		points[i] = orb.Point{p.X() - origin.X(), -(p.Y() - origin.Y())}
	}

	triangles, wallCount, err := triangulateLocal(points, options.Elevation)
	if err != nil {
		return nil, errorsx.Wrap(err, "wayID", way.ID)
	}

	return &BuiltMesh{
		WayID:       way.ID,
		Triangles:   triangles,
		WallCount:   wallCount,
		WorldOffset: origin,
	}, nil
}

// SkippedWay is a way that could not be triangulated
type SkippedWay struct {
	WayID uint64
	Err   errorsx.Error
}

// TriangulateAll triangulates every way. Ways that fail are returned with their error and do not stop the others.
func TriangulateAll(ways []*funmap.Way, projection *funmap.Projection, options Options) ([]*BuiltMesh, []SkippedWay) {
	var meshes []*BuiltMesh
	var skipped []SkippedWay
	for _, way := range ways {
		mesh, err := Triangulate(way, projection, options)
		if err != nil {
			skipped = append(skipped, SkippedWay{WayID: way.ID, Err: err})
			continue
		}
		meshes = append(meshes, mesh)
	}
	return meshes, skipped
}

func triangulateLocal(points []orb.Point, elevation float32) ([]Triangle, int, errorsx.Error) {
	if len(points) < 3 {
		return nil, 0, errorsx.Wrap(ErrTooFewVertices, "vertexCount", len(points))
	}

	poly := newPolygon(points, elevation)
	poly.buildWalls()
	wallCount := len(poly.triangles)

	err := poly.clipEars()
	if err != nil {
		return nil, 0, err
	}

	return poly.triangles, wallCount, nil
}

func newPolygon(points []orb.Point, elevation float32) *polygon {
	count := len(points)
	vertices := make([]vertex, count)
	for i, point := range points {
		vertices[i] = vertex{
			pos:  point,
			prev: (i + count - 1) % count,
			next: (i + 1) % count,
		}
	}

	poly := &polygon{
		vertices:  vertices,
		clockwise: doubleSignedArea(points) > 0,
		elevation: elevation,
		triangles: make([]Triangle, 0, 3*count-2),
	}

	for i := range vertices {
		poly.updateConvex(i)
	}

	return poly
}

// doubleSignedArea is the shoelace sum
func doubleSignedArea(points []orb.Point) float64 {
	var sum float64
	for i, p := range points {
		q := points[(i+1)%len(points)]
		sum += p.X()*q.Y() - q.X()*p.Y()
	}
	return sum
}

func (p *polygon) updateConvex(i int) {
	v := p.vertices[i]
	prev := p.vertices[v.prev].pos
	next := p.vertices[v.next].pos

	ax, ay := prev.X()-v.pos.X(), prev.Y()-v.pos.Y()
	bx, by := next.X()-v.pos.X(), next.Y()-v.pos.Y()
	cross := ax*by - ay*bx

	if p.clockwise {
		p.vertices[i].convex = cross < 0
	} else {
		p.vertices[i].convex = cross > 0
	}
}

func (p *polygon) to3D(point orb.Point, elevation float32) mgl32.Vec3 {
	return mgl32.Vec3{float32(point.X()), elevation, float32(point.Y())}
}

func (p *polygon) buildWalls() {
	for _, v := range p.vertices {
		next := p.vertices[v.next]

		bottom := p.to3D(v.pos, 0)
		top := p.to3D(v.pos, p.elevation)
		nextBottom := p.to3D(next.pos, 0)
		nextTop := p.to3D(next.pos, p.elevation)

		if p.clockwise {
			p.triangles = append(p.triangles,
				Triangle{bottom, top, nextTop},
				Triangle{nextBottom, bottom, nextTop},
			)
		} else {
			p.triangles = append(p.triangles,
				Triangle{bottom, nextTop, top},
				Triangle{nextTop, bottom, nextBottom},
			)
		}
	}
}

func (p *polygon) emitCap(a, b, c int) {
	va := p.to3D(p.vertices[a].pos, p.elevation)
	vb := p.to3D(p.vertices[b].pos, p.elevation)
	vc := p.to3D(p.vertices[c].pos, p.elevation)

	if p.clockwise {
		p.triangles = append(p.triangles, Triangle{va, vc, vb})
	} else {
		p.triangles = append(p.triangles, Triangle{va, vb, vc})
	}
}

// isEar checks no reflex vertex lies inside, or on the border of, the triangle formed by i and its neighbours
func (p *polygon) isEar(i int) bool {
	v := p.vertices[i]
	if !v.convex {
		return false
	}

	a := p.vertices[v.prev].pos
	b := v.pos
	c := p.vertices[v.next].pos

	for j := p.vertices[v.next].next; j != v.prev; j = p.vertices[j].next {
		other := p.vertices[j]
		if other.convex {
			continue
		}
		if pointInTriangle(other.pos, a, b, c) {
			return false
		}
	}

	return true
}

func (p *polygon) clipEars() errorsx.Error {
	remaining := len(p.vertices)
	current := 0
	clipped := 0
	sinceLastClip := 0

	for remaining > 3 {
		if sinceLastClip >= remaining {
			return errorsx.Wrap(ErrNoEarFound, "clippedEars", clipped, "remainingVertices", remaining)
		}

		v := p.vertices[current]
		if !p.isEar(current) {
			current = v.next
			sinceLastClip++
			continue
		}

		p.emitCap(v.prev, current, v.next)

		p.vertices[v.prev].next = v.next
		p.vertices[v.next].prev = v.prev
		p.updateConvex(v.prev)
		p.updateConvex(v.next)

		remaining--
		clipped++
		sinceLastClip = 0
		current = v.next
	}

	v := p.vertices[current]
	p.emitCap(v.prev, current, v.next)

	return nil
}

func pointInTriangle(point, a, b, c orb.Point) bool {
	if point.Equal(a) || point.Equal(b) || point.Equal(c) {
		return false
	}

	d1 := edgeSide(point, a, b)
	d2 := edgeSide(point, b, c)
	d3 := edgeSide(point, c, a)

	return (d1 >= 0 && d2 >= 0 && d3 >= 0) || (d1 <= 0 && d2 <= 0 && d3 <= 0)
}

func edgeSide(point, a, b orb.Point) float64 {
	return (point.X()-b.X())*(a.Y()-b.Y()) - (a.X()-b.X())*(point.Y()-b.Y())
}
