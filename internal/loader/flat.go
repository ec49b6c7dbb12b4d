package loader

import (
	"context"

	"github.com/Faultbox/geotiles/pkg/geometry"
)

// FlatLoader produces a flat plane for every tile.
type FlatLoader struct{}

func (FlatLoader) DataType() string { return "flat" }

func (FlatLoader) Info() Info {
	return Info{Version: "1.0.0", Author: "geotiles", Description: "Flat plane geometry loader"}
}

func (FlatLoader) Load(context.Context, TileParams) (*geometry.Data, error) {
	return geometry.Plane(), nil
}

func (FlatLoader) Unload(*geometry.Data) {}
