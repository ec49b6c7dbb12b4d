package loader

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"path"
	"strings"

	"github.com/Faultbox/geotiles/internal/fetch"
	"github.com/Faultbox/geotiles/pkg/geometry"
)

// hgtVoid marks a missing SRTM sample.
const hgtVoid = -32768

// HGTLoader builds meshes from SRTM .hgt rasters (optionally zipped).
type HGTLoader struct {
	Fetcher     fetch.Fetcher
	GridSize    int
	SkirtHeight float32
}

// NewHGTLoader creates an "hgt" geometry loader.
func NewHGTLoader(f fetch.Fetcher) *HGTLoader {
	return &HGTLoader{Fetcher: f, GridSize: DefaultGridSize, SkirtHeight: geometry.DefaultSkirtHeight}
}

func (l *HGTLoader) DataType() string { return "hgt" }

func (l *HGTLoader) Info() Info {
	return Info{Version: "1.0.0", Author: "geotiles", Description: "SRTM height grid loader"}
}

// Load fetches the raster and resamples it to the loader's grid.
func (l *HGTLoader) Load(ctx context.Context, p TileParams) (*geometry.Data, error) {
	data, err := l.Fetcher.Fetch(ctx, fetch.Request{URL: p.URL(), Tile: p.SourceTile})
	if err != nil {
		return nil, err
	}
	dem, err := DecodeHGT(data, l.GridSize)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p.URL(), err)
	}
	return geometry.FromElevationWithSkirt(dem, l.SkirtHeight)
}

func (l *HGTLoader) Unload(*geometry.Data) {}

// DecodeHGT parses big-endian int16 samples of a square raster and samples
// them on a size x size grid. Voids read as 0.
func DecodeHGT(data []byte, size int) ([]float32, error) {
	if bytes.HasPrefix(data, []byte("PK")) {
		unzipped, err := unzipFirst(data)
		if err != nil {
			return nil, err
		}
		data = unzipped
	}

	n := len(data) / 2
	side := int(math.Sqrt(float64(n)))
	if side < 2 || side*side*2 != len(data) {
		return nil, fmt.Errorf("%w: %d bytes is not a square int16 raster", geometry.ErrInvalidInput, len(data))
	}
	if size < 2 {
		size = side
	}

	dem := make([]float32, size*size)
	for y := range size {
		sy := y * (side - 1) / (size - 1)
		for x := range size {
			sx := x * (side - 1) / (size - 1)
			off := (sy*side + sx) * 2
			h := int16(binary.BigEndian.Uint16(data[off:]))
			if h == hgtVoid {
				h = 0
			}
			dem[y*size+x] = float32(h)
		}
	}
	return dem, nil
}

// unzipFirst returns the first regular file of a zip archive.
func unzipFirst(data []byte) ([]byte, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("opening hgt zip: %w", err)
	}
	for _, f := range zr.File {
		if f.FileInfo().IsDir() || strings.HasPrefix(path.Base(f.Name), ".") {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		defer rc.Close()
		return io.ReadAll(rc)
	}
	return nil, fmt.Errorf("%w: empty hgt zip", geometry.ErrInvalidInput)
}
