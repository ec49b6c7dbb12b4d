package loader

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg" // decoders
	_ "image/png"

	_ "golang.org/x/image/webp"

	"github.com/Faultbox/geotiles/internal/fetch"
	"github.com/Faultbox/geotiles/internal/render"
	"github.com/Faultbox/geotiles/pkg/tileid"
)

// ImageLoader builds textured materials from PNG, JPEG or WebP tiles.
type ImageLoader struct {
	Renderer render.Renderer
	Fetcher  fetch.Fetcher
}

// NewImageLoader creates an "image" material loader.
func NewImageLoader(r render.Renderer, f fetch.Fetcher) *ImageLoader {
	return &ImageLoader{Renderer: r, Fetcher: f}
}

func (l *ImageLoader) DataType() string { return "image" }

func (l *ImageLoader) Info() Info {
	return Info{Version: "1.0.0", Author: "geotiles", Description: "Image tile loader"}
}

// Load fetches and decodes the tile image.
func (l *ImageLoader) Load(ctx context.Context, p TileParams) (render.Material, error) {
	img, err := fetchImage(ctx, l.Fetcher, p)
	if err != nil {
		return nil, err
	}
	return l.Renderer.NewMaterial(render.MaterialSpec{
		Name:        "tile-material-" + tileid.String(p.Tile),
		Texture:     img,
		Color:       color.RGBA{255, 255, 255, 255},
		Opacity:     p.Source.Opacity,
		Transparent: p.Source.Transparent,
	}), nil
}

// Unload disposes the material.
func (l *ImageLoader) Unload(m render.Material) {
	m.Dispose()
}

func fetchImage(ctx context.Context, f fetch.Fetcher, p TileParams) (image.Image, error) {
	url := p.URL()
	data, err := f.Fetch(ctx, fetch.Request{URL: url, Tile: p.SourceTile})
	if err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", url, err)
	}
	return img, nil
}
