// Package fetch retrieves raw tile bytes from local tile stores.
package fetch

import (
	"context"
	"errors"

	"github.com/paulmach/orb/maptile"
)

// ErrNotFound is returned when a store has no data for a tile.
var ErrNotFound = errors.New("tile not found")

// Request identifies one tile. URL is the source template resolved for Tile;
// stores addressed by coordinates may ignore it.
type Request struct {
	URL  string
	Tile maptile.Tile
}

// Fetcher returns the encoded bytes of a tile.
type Fetcher interface {
	Fetch(ctx context.Context, req Request) ([]byte, error)
}

// Func adapts a function to Fetcher.
type Func func(ctx context.Context, req Request) ([]byte, error)

// Fetch calls f.
func (f Func) Fetch(ctx context.Context, req Request) ([]byte, error) {
	return f(ctx, req)
}
