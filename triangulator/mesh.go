package triangulator

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/paulmach/orb"
)

// Triangle is three vertices in counter-clockwise order when seen from the side the face points to
type Triangle [3]mgl32.Vec3

// Normal is the unit face normal. Degenerate triangles get the zero vector.
func (t Triangle) Normal() mgl32.Vec3 {
	normal := t[1].Sub(t[0]).Cross(t[2].Sub(t[0]))
	if normal.Len() == 0 {
		return mgl32.Vec3{}
	}
	return normal.Normalize()
}

// BuiltMesh is an extruded building footprint.
// Triangle coordinates are relative to WorldOffset, the planar position of the first
// polygon vertex. X follows planar X, Y is the elevation and Z is the inverted planar Y.
type BuiltMesh struct {
	WayID       uint64
	Triangles   []Triangle
	WallCount   int
	WorldOffset orb.Point
}

// Walls are the side triangles, emitted before the roof
func (m *BuiltMesh) Walls() []Triangle {
	return m.Triangles[:m.WallCount]
}

// Caps are the roof triangles
func (m *BuiltMesh) Caps() []Triangle {
	return m.Triangles[m.WallCount:]
}

// Vertices is the flat vertex buffer, 9 floats per triangle
func (m *BuiltMesh) Vertices() []float32 {
	buf := make([]float32, 0, len(m.Triangles)*9)
	for _, triangle := range m.Triangles {
		for _, vertex := range triangle {
			buf = append(buf, vertex[0], vertex[1], vertex[2])
		}
	}
	return buf
}

// Normals is the flat normal buffer matching Vertices, the face normal is repeated for each vertex
func (m *BuiltMesh) Normals() []float32 {
	buf := make([]float32, 0, len(m.Triangles)*9)
	for _, triangle := range m.Triangles {
		normal := triangle.Normal()
		for i := 0; i < 3; i++ {
			buf = append(buf, normal[0], normal[1], normal[2])
		}
	}
	return buf
}
