// Package loader turns tile coordinates into renderable meshes. Material and
// geometry loaders are looked up by a source's data type in a Registry;
// MapLoader combines them into one mesh per tile.
package loader

import (
	"context"
	"errors"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"

	"github.com/Faultbox/geotiles/internal/render"
	"github.com/Faultbox/geotiles/internal/source"
	"github.com/Faultbox/geotiles/pkg/geometry"
	"github.com/Faultbox/geotiles/pkg/projection"
)

// Loader errors. Both degrade a tile to fallback content and are only logged.
var (
	ErrMissingLoader = errors.New("no loader registered for data type")
	ErrLoadFailure   = errors.New("tile load failed")
)

// Info describes a loader.
type Info struct {
	Version     string
	Author      string
	Description string
}

// TileParams is everything a loader needs to produce one tile.
type TileParams struct {
	// Tile is the tile's place in the quadtree.
	Tile maptile.Tile
	// SourceTile is the tile to request from the source. It differs from
	// Tile in column when the map's central meridian is shifted.
	SourceTile   maptile.Tile
	Source       *source.Source
	ProjBounds   projection.Bounds
	LonLatBounds orb.Bound
}

// URL resolves the source template for the tile.
func (p TileParams) URL() string {
	return p.Source.TileURL(p.SourceTile)
}

// MaterialLoader builds a tile surface.
type MaterialLoader interface {
	DataType() string
	Info() Info
	Load(ctx context.Context, p TileParams) (render.Material, error)
	Unload(m render.Material)
}

// GeometryLoader builds a tile mesh.
type GeometryLoader interface {
	DataType() string
	Info() Info
	Load(ctx context.Context, p TileParams) (*geometry.Data, error)
	Unload(g *geometry.Data)
}
