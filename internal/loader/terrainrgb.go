package loader

import (
	"context"
	"image"

	"golang.org/x/image/draw"

	"github.com/Faultbox/geotiles/internal/fetch"
	"github.com/Faultbox/geotiles/pkg/geometry"
)

// DefaultGridSize is the vertex count per side of elevation meshes.
const DefaultGridSize = 33

// TerrainRGBLoader builds meshes from Mapbox Terrain-RGB tiles.
type TerrainRGBLoader struct {
	Fetcher     fetch.Fetcher
	GridSize    int
	SkirtHeight float32
}

// NewTerrainRGBLoader creates a "terrain-rgb" geometry loader.
func NewTerrainRGBLoader(f fetch.Fetcher) *TerrainRGBLoader {
	return &TerrainRGBLoader{Fetcher: f, GridSize: DefaultGridSize, SkirtHeight: geometry.DefaultSkirtHeight}
}

func (l *TerrainRGBLoader) DataType() string { return "terrain-rgb" }

func (l *TerrainRGBLoader) Info() Info {
	return Info{Version: "1.0.0", Author: "geotiles", Description: "Terrain-RGB elevation loader"}
}

// Load fetches the tile and decodes heights in meters.
func (l *TerrainRGBLoader) Load(ctx context.Context, p TileParams) (*geometry.Data, error) {
	img, err := fetchImage(ctx, l.Fetcher, p)
	if err != nil {
		return nil, err
	}
	return geometry.FromElevationWithSkirt(DecodeTerrainRGB(img, l.GridSize), l.SkirtHeight)
}

func (l *TerrainRGBLoader) Unload(*geometry.Data) {}

// DecodeTerrainRGB samples img on a size x size grid and decodes
// height = -10000 + (R*65536 + G*256 + B) * 0.1.
// Samples are taken nearest-neighbour since blending encoded channels
// produces wrong heights.
func DecodeTerrainRGB(img image.Image, size int) []float32 {
	if size < 2 {
		size = DefaultGridSize
	}
	grid := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.NearestNeighbor.Scale(grid, grid.Bounds(), img, img.Bounds(), draw.Src, nil)

	dem := make([]float32, size*size)
	for i := range dem {
		px := grid.Pix[i*4 : i*4+3]
		code := int(px[0])<<16 | int(px[1])<<8 | int(px[2])
		dem[i] = float32(-10000 + float64(code)/10)
	}
	return dem
}
