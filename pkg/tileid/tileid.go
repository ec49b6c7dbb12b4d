// Package tileid provides quadtree tile coordinate helpers on top of orb/maptile.
package tileid

import (
	"fmt"
	"math/bits"

	"github.com/google/hilbert"
	"github.com/paulmach/orb/maptile"
)

// MaxZoom is the deepest zoom a Key can encode.
const MaxZoom = 26

// New creates a tile from x, y, z.
func New(x, y, z uint32) maptile.Tile {
	return maptile.New(x, y, maptile.Zoom(z))
}

// Valid reports whether x and y lie within [0, 2^z).
func Valid(t maptile.Tile) bool {
	return t.Z <= MaxZoom && t.X < 1<<t.Z && t.Y < 1<<t.Z
}

// Children returns the four children in row-major order:
// (2x,2y), (2x+1,2y), (2x,2y+1), (2x+1,2y+1).
func Children(t maptile.Tile) [4]maptile.Tile {
	var out [4]maptile.Tile
	for dy := range uint32(2) {
		for dx := range uint32(2) {
			out[dy*2+dx] = maptile.New(t.X*2+dx, t.Y*2+dy, t.Z+1)
		}
	}
	return out
}

// FlipY converts between XYZ and TMS row numbering.
func FlipY(t maptile.Tile) maptile.Tile {
	return maptile.New(t.X, (1<<t.Z)-1-t.Y, t.Z)
}

// Key returns a stable id for t: the count of tiles at shallower zooms plus
// the tile's position along the zoom level's Hilbert curve.
// Key panics if t is not Valid.
func Key(t maptile.Tile) uint64 {
	if !Valid(t) {
		panic(fmt.Sprintf("tileid: invalid tile %s", String(t)))
	}
	code, err := curve(uint32(t.Z)).MapInverse(int(t.X), int(t.Y))
	if err != nil {
		panic(fmt.Sprintf("tileid: key for %s: %v", String(t), err))
	}
	return uint64(code) + shallower(uint32(t.Z))
}

// FromKey is the inverse of Key. It panics for keys beyond MaxZoom.
func FromKey(key uint64) maptile.Tile {
	z := uint32(bits.Len64(3*key+1)-1) / 2
	if z > MaxZoom {
		panic(fmt.Sprintf("tileid: key %d is beyond zoom %d", key, MaxZoom))
	}
	x, y, err := curve(z).Map(int(key - shallower(z)))
	if err != nil {
		panic(fmt.Sprintf("tileid: tile for key %d: %v", key, err))
	}
	return maptile.New(uint32(x), uint32(y), maptile.Zoom(z))
}

// shallower counts the tiles at zooms below z.
func shallower(z uint32) uint64 {
	return (1<<(2*z) - 1) / 3
}

// curve returns the Hilbert curve filling a zoom level. 2^z is always a
// positive power of two, so construction cannot fail for z <= MaxZoom.
func curve(z uint32) *hilbert.Hilbert {
	h, err := hilbert.NewHilbert(1 << z)
	if err != nil {
		panic(fmt.Sprintf("tileid: hilbert curve for zoom %d: %v", z, err))
	}
	return h
}

// String formats t as "z/x/y".
func String(t maptile.Tile) string {
	return fmt.Sprintf("%d/%d/%d", t.Z, t.X, t.Y)
}
