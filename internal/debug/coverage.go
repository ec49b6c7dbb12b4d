// Package debug renders diagnostic views of a tile map.
package debug

import (
	"image"
	"image/color"
	gomath "math"

	"golang.org/x/image/draw"

	"github.com/Faultbox/geotiles/internal/tile"
	"github.com/Faultbox/geotiles/internal/tilemap"
	"github.com/Faultbox/geotiles/pkg/projection"
)

// Background fills map areas with no visible tile.
var Background = color.RGBA{24, 24, 24, 255}

// GridColor outlines each visible tile.
var GridColor = color.RGBA{0, 0, 0, 255}

// zoomPalette colours tiles by zoom level, cycling past its length.
var zoomPalette = []color.RGBA{
	{230, 25, 75, 255},
	{60, 180, 75, 255},
	{255, 225, 25, 255},
	{0, 130, 200, 255},
	{245, 130, 48, 255},
	{145, 30, 180, 255},
	{70, 240, 240, 255},
	{240, 50, 230, 255},
}

// ZoomColor returns the colour used for tiles at zoom z.
func ZoomColor(z int) color.RGBA {
	return zoomPalette[z%len(zoomPalette)]
}

// Coverage draws a top-down map of the visible tiles, width pixels wide,
// coloured by zoom. The height follows the projection's aspect ratio.
func Coverage(m *tilemap.Map, width int) *image.RGBA {
	p := m.Projection()
	height := max(1, int(gomath.Round(float64(width)*p.MapHeight/p.MapWidth)))
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), &image.Uniform{Background}, image.Point{}, draw.Src)

	m.Root().Walk(func(t *tile.Tile) {
		if !t.Visible() {
			return
		}
		c := t.Coord()
		r := pixelRect(p, p.ProjBounds(c.X, c.Y, uint32(c.Z)), width, height)
		draw.Draw(img, r, &image.Uniform{ZoomColor(int(c.Z))}, image.Point{}, draw.Src)
		outline(img, r, GridColor)
	})
	return img
}

// pixelRect maps plane bounds to image pixels; row 0 is the north edge.
func pixelRect(p *projection.Projection, b projection.Bounds, width, height int) image.Rectangle {
	sx := float64(width) / p.MapWidth
	sy := float64(height) / p.MapHeight
	return image.Rect(
		int(gomath.Round((b.MinX+p.MapWidth/2)*sx)),
		int(gomath.Round((p.MapHeight/2-b.MaxY)*sy)),
		int(gomath.Round((b.MaxX+p.MapWidth/2)*sx)),
		int(gomath.Round((p.MapHeight/2-b.MinY)*sy)),
	)
}

func outline(img *image.RGBA, r image.Rectangle, c color.RGBA) {
	r = r.Intersect(img.Bounds())
	if r.Empty() {
		return
	}
	for x := r.Min.X; x < r.Max.X; x++ {
		img.SetRGBA(x, r.Min.Y, c)
		img.SetRGBA(x, r.Max.Y-1, c)
	}
	for y := r.Min.Y; y < r.Max.Y; y++ {
		img.SetRGBA(r.Min.X, y, c)
		img.SetRGBA(r.Max.X-1, y, c)
	}
}
