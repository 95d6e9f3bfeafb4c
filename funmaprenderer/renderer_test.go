package funmaprenderer

import (
	"image"
	"image/color"
	"testing"

	"github.com/hocman2/funmap/chunk"
	"github.com/hocman2/funmap/fonts"
	"github.com/hocman2/funmap/funmap"
	"github.com/hocman2/funmap/triangulator"
	"github.com/paulmach/osm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assertColorNear(t *testing.T, expected, actual color.Color) {
	t.Helper()

	er, eg, eb, ea := expected.RGBA()
	ar, ag, ab, aa := actual.RGBA()
	const delta = 0x300

	assert.InDelta(t, er, ar, delta, "red")
	assert.InDelta(t, eg, ag, delta, "green")
	assert.InDelta(t, eb, ab, delta, "blue")
	assert.InDelta(t, ea, aa, delta, "alpha")
}

func hasPixelOtherThan(img image.Image, c color.Color) bool {
	r, g, b, a := c.RGBA()
	bounds := img.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			pr, pg, pb, pa := img.At(x, y).RGBA()
			if pr != r || pg != g || pb != b || pa != a {
				return true
			}
		}
	}
	return false
}

func makeWay(id uint64, tag funmap.Tag, coords [][2]float64) *funmap.Way {
	way := &funmap.Way{ID: id, Tags: funmap.NewTagSet(tag)}
	for i, coord := range coords {
		way.Nodes = append(way.Nodes, funmap.Node{ID: id*100 + uint64(i), Longitude: coord[0], Latitude: coord[1], Visible: true})
	}
	return way
}

func TestPreviewRenderer_RenderChunk(t *testing.T) {
	projection := funmap.NewProjection(2, 48)
	c := chunk.New(osm.Bounds{MinLon: 2, MinLat: 48, MaxLon: 2.001, MaxLat: 48.001}, projection)

	building := makeWay(1, funmap.Tag{Key: "building", Value: "yes"}, [][2]float64{
		{2.0004, 48.0004},
		{2.0006, 48.0004},
		{2.0006, 48.0006},
		{2.0004, 48.0006},
	})
	building.Nodes = append(building.Nodes, building.Nodes[0])
	mesh, err := triangulator.Triangulate(building, projection, triangulator.DefaultOptions())
	require.Nil(t, err)

	road := makeWay(2, funmap.Tag{Key: "highway", Value: "residential"}, [][2]float64{
		{2, 48.0002},
		{2.001, 48.0002},
	})

	c.Upload([]*triangulator.BuiltMesh{mesh}, []*funmap.Way{road})

	style := DefaultStyle()
	renderer := NewPreviewRenderer(fonts.DefaultFont(), style)

	img, err := renderer.RenderChunk(c, image.Rect(0, 0, 100, 100))
	require.Nil(t, err)

	// inside the roof, away from the diagonal shared by the two cap triangles
	assertColorNear(t, style.BuildingFill, img.At(45, 52))
	assertColorNear(t, style.Background, img.At(2, 2))
	assertColorNear(t, style.Background, img.At(70, 30))

	// the road runs along the southern fifth of the chunk
	assert.NotEqual(t, style.Background, img.At(50, 80))
}

func TestPreviewRenderer_RenderChunk_notGenerated(t *testing.T) {
	projection := funmap.NewProjection(2, 48)
	c := chunk.New(osm.Bounds{MinLon: 2, MinLat: 48, MaxLon: 2.001, MaxLat: 48.001}, projection)
	c.SetStatus(chunk.StatusInvalid)

	style := DefaultStyle()
	renderer := NewPreviewRenderer(fonts.DefaultFont(), style)

	img, err := renderer.RenderChunk(c, image.Rect(0, 0, 256, 256))
	require.Nil(t, err)

	assert.Equal(t, image.Rect(0, 0, 256, 256), img.Bounds())
	assert.True(t, hasPixelOtherThan(img, style.Background))
}

func TestNewPixelMapper(t *testing.T) {
	projection := funmap.NewProjection(2, 48)
	c := chunk.New(osm.Bounds{MinLon: 2, MinLat: 48, MaxLon: 2.001, MaxLat: 48.001}, projection)

	toPixel := newPixelMapper(c.WorldBounds(), image.Rect(0, 0, 100, 100))

	x, y := toPixel(projection.ToPlanar(2, 48.001))
	assert.InDelta(t, 0, x, 1e-6)
	assert.InDelta(t, 0, y, 1e-6)

	x, y = toPixel(projection.ToPlanar(2.001, 48))
	assert.InDelta(t, 100, x, 1e-6)
	assert.InDelta(t, 100, y, 1e-6)
}

func TestNewImageWithBackground(t *testing.T) {
	img := NewImageWithBackground(image.Rect(0, 0, 4, 4), color.White)
	assert.False(t, hasPixelOtherThan(img, color.White))
}
