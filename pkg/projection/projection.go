// Package projection converts between geographic coordinates and the flat
// map plane the tile tree is laid out on.
package projection

import (
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

// ID identifies a projection by its EPSG code.
type ID string

// Supported projections.
const (
	Mercator    ID = "3857"
	PlateCarree ID = "4326"
)

// Projection errors.
var (
	ErrUnknownProjection      = errors.New("unknown projection")
	ErrInvalidCenterLongitude = errors.New("center longitude must be -90, 0 or 90")
)

// transform is the per-projection pair of pure functions.
type transform interface {
	project(lon, lat float64) (x, y float64)
	unproject(x, y float64) (lon, lat float64)
}

// Projection maps lon/lat degrees onto a plane centred on Lon0.
type Projection struct {
	ID        ID
	Lon0      float64
	MapWidth  float64
	MapHeight float64
	MapDepth  float64

	t transform
}

// Bounds is a rectangle on the projected plane.
type Bounds struct {
	MinX, MinY float64
	MaxX, MaxY float64
}

// Width returns the horizontal extent.
func (b Bounds) Width() float64 { return b.MaxX - b.MinX }

// Height returns the vertical extent.
func (b Bounds) Height() float64 { return b.MaxY - b.MinY }

// New creates a projection by ID with the given central meridian.
func New(id ID, lon0 float64) (*Projection, error) {
	if lon0 != 0 && lon0 != 90 && lon0 != -90 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCenterLongitude, lon0)
	}

	p := &Projection{ID: id, Lon0: lon0, MapDepth: 1}
	switch id {
	case Mercator:
		p.MapWidth = 2 * math.Pi * earthRadius
		p.MapHeight = p.MapWidth
		p.t = mercator{lon0: lon0}
	case PlateCarree:
		p.MapWidth = 360 * unitsPerDegree
		p.MapHeight = 180 * unitsPerDegree
		p.t = plateCarree{lon0: lon0}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProjection, string(id))
	}
	return p, nil
}

// Project converts lon/lat degrees to plane coordinates.
func (p *Projection) Project(lon, lat float64) (x, y float64) {
	return p.t.project(lon, lat)
}

// Unproject converts plane coordinates to lon/lat degrees.
func (p *Projection) Unproject(x, y float64) (lon, lat float64) {
	return p.t.unproject(x, y)
}

// TileXWithCenterLon returns the source tile column that covers plane
// column x at zoom z once the central meridian is shifted.
// Below zoom 2 a quarter turn is not a whole number of tiles and x is returned as is.
func (p *Projection) TileXWithCenterLon(x, z uint32) uint32 {
	n := int64(1) << z
	shift := n / 4
	tx := int64(x)
	switch p.Lon0 {
	case 90:
		tx += shift
	case -90:
		tx -= shift
	}
	tx %= n
	if tx < 0 {
		tx += n
	}
	return uint32(tx)
}

// ProjBounds returns the plane rectangle covered by tile (x, y, z).
// Row 0 is the top of the map.
func (p *Projection) ProjBounds(x, y, z uint32) Bounds {
	n := float64(uint64(1) << z)
	w := p.MapWidth / n
	h := p.MapHeight / n

	minX := -p.MapWidth/2 + float64(x)*w
	maxY := p.MapHeight/2 - float64(y)*h
	return Bounds{MinX: minX, MinY: maxY - h, MaxX: minX + w, MaxY: maxY}
}

// LonLatBounds returns the geographic rectangle covered by tile (x, y, z).
// With a shifted central meridian a tile may cross the antimeridian, in
// which case Min.Lon() > Max.Lon().
func (p *Projection) LonLatBounds(x, y, z uint32) orb.Bound {
	b := p.ProjBounds(x, y, z)
	minLon, minLat := p.Unproject(b.MinX, b.MinY)
	maxLon, maxLat := p.Unproject(b.MaxX, b.MaxY)
	if z == 0 {
		minLon, maxLon = -180, 180
	}
	return orb.Bound{
		Min: orb.Point{minLon, minLat},
		Max: orb.Point{maxLon, maxLat},
	}
}

// ProjBoundsFromLonLat projects a geographic rectangle onto the plane.
func (p *Projection) ProjBoundsFromLonLat(b orb.Bound) Bounds {
	minX, minY := p.Project(b.Min.Lon(), b.Min.Lat())
	maxX, maxY := p.Project(b.Max.Lon(), b.Max.Lat())
	return Bounds{MinX: minX, MinY: minY, MaxX: maxX, MaxY: maxY}
}

// wrapLon folds a longitude back into [-180, 180].
func wrapLon(lon float64) float64 {
	const eps = 1e-9
	for lon > 180+eps {
		lon -= 360
	}
	for lon < -180-eps {
		lon += 360
	}
	return lon
}
