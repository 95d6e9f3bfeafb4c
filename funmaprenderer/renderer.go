package funmaprenderer

import (
	"image"
	"image/color"

	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"github.com/hocman2/funmap/chunk"
	"github.com/hocman2/funmap/funmap"
	"github.com/hocman2/funmap/triangulator"
	"github.com/jamesrr39/goutil/errorsx"
	"github.com/llgcode/draw2d/draw2dimg"
	"github.com/paulmach/orb"
)

// ChunkRenderer draws top-down previews of chunks
type ChunkRenderer interface {
	RenderChunk(c *chunk.Chunk, size image.Rectangle) (image.Image, errorsx.Error)
	RenderTextTile(size image.Rectangle, text string) (image.Image, errorsx.Error)
}

type Style struct {
	Background   color.Color
	BuildingFill color.Color
	RoadLine     color.Color
	RoadWidth    float64
	TextColor    color.Color
	TextSize     float64
}

func DefaultStyle() Style {
	return Style{
		Background:   color.RGBA{R: 0xf5, G: 0xf5, B: 0xf5, A: 0xff},
		BuildingFill: color.RGBA{R: 0x70, G: 0x1f, B: 0x7e, A: 0xff},
		RoadLine:     color.RGBA{R: 0x00, G: 0x79, B: 0xf1, A: 0xff},
		RoadWidth:    2,
		TextColor:    color.Black,
		TextSize:     16,
	}
}

type PreviewRenderer struct {
	font  *truetype.Font
	style Style
}

func NewPreviewRenderer(font *truetype.Font, style Style) *PreviewRenderer {
	return &PreviewRenderer{
		font:  font,
		style: style,
	}
}

func (pr *PreviewRenderer) RenderTextTile(size image.Rectangle, text string) (image.Image, errorsx.Error) {
	img := NewImageWithBackground(size, pr.style.Background)
	x := size.Max.X / 4
	y := size.Max.Y / 2

	ctx := freetype.NewContext()
	ctx.SetDPI(72)
	ctx.SetFont(pr.font)
	ctx.SetFontSize(pr.style.TextSize)
	ctx.SetClip(img.Bounds())
	ctx.SetDst(img)
	ctx.SetSrc(image.NewUniform(pr.style.TextColor))

	_, err := ctx.DrawString(text, freetype.Pt(x, y))
	if err != nil {
		return nil, errorsx.Wrap(err)
	}

	return img, nil
}

// RenderChunk draws the building roofs and the roads of a generated chunk.
// Chunks without data get a text tile with their status.
func (pr *PreviewRenderer) RenderChunk(c *chunk.Chunk, size image.Rectangle) (image.Image, errorsx.Error) {
	img := NewImageWithBackground(size, pr.style.Background)
	toPixel := newPixelMapper(c.WorldBounds(), size)

	status := c.WithGeneratedData(func(meshes []*triangulator.BuiltMesh, roads []*funmap.Way) {
		gc := draw2dimg.NewGraphicContext(img)
		for _, mesh := range meshes {
			drawRoof(gc, mesh, toPixel, pr.style.BuildingFill)
		}

		for _, road := range roads {
			drawRoad(gc, funmap.RoadPolyline(road, c.Projection()), toPixel, pr.style)
		}
	})
	if status != chunk.StatusGenerated {
		return pr.RenderTextTile(size, "("+status.String()+")")
	}

	return img, nil
}

type pixelMapper func(point orb.Point) (x, y float64)

// newPixelMapper maps planar points to pixels. Planar Y grows southwards, like image Y.
func newPixelMapper(bound orb.Bound, size image.Rectangle) pixelMapper {
	width := bound.Max.X() - bound.Min.X()
	height := bound.Max.Y() - bound.Min.Y()
	imgWidth := float64(size.Dx())
	imgHeight := float64(size.Dy())

	return func(point orb.Point) (float64, float64) {
		x := (point.X() - bound.Min.X()) / width * imgWidth
		y := (point.Y() - bound.Min.Y()) / height * imgHeight
		return x + float64(size.Min.X), y + float64(size.Min.Y)
	}
}

// meshPointToPlanar undoes the local frame of the mesh: X is planar X, Z is the inverted planar Y
func meshPointToPlanar(mesh *triangulator.BuiltMesh, x, z float32) orb.Point {
	return orb.Point{
		mesh.WorldOffset.X() + float64(x),
		mesh.WorldOffset.Y() - float64(z),
	}
}

func drawRoof(gc *draw2dimg.GraphicContext, mesh *triangulator.BuiltMesh, toPixel pixelMapper, fill color.Color) {
	gc.SetFillColor(fill)
	for _, triangle := range mesh.Caps() {
		gc.BeginPath()
		for i, vertex := range triangle {
			x, y := toPixel(meshPointToPlanar(mesh, vertex[0], vertex[2]))
			if i == 0 {
				gc.MoveTo(x, y)
			} else {
				gc.LineTo(x, y)
			}
		}
		gc.Close()
		gc.Fill()
	}
}

func drawRoad(gc *draw2dimg.GraphicContext, line orb.LineString, toPixel pixelMapper, style Style) {
	if len(line) < 2 {
		return
	}

	gc.SetStrokeColor(style.RoadLine)
	gc.SetLineWidth(style.RoadWidth)
	gc.BeginPath()
	for i, point := range line {
		x, y := toPixel(point)
		if i == 0 {
			gc.MoveTo(x, y)
		} else {
			gc.LineTo(x, y)
		}
	}
	gc.Stroke()
}
