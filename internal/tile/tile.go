// Package tile implements the quadtree of map tiles: per-frame level of detail,
// asynchronous model loading and the rules for showing and hiding tiles.
//
// All Tile methods must be called from the goroutine that drives frames.
// Loads run elsewhere and come back through a Scheduler.
package tile

import (
	gomath "math"

	"github.com/paulmach/orb/maptile"

	"github.com/Faultbox/geotiles/internal/render"
	"github.com/Faultbox/geotiles/pkg/math"
	"github.com/Faultbox/geotiles/pkg/tileid"
)

// LocalBounds is the volume a tile may occupy in its own frame: the unit
// square on XY with room for terrain from sea trenches to mountain peaks.
var LocalBounds = math.AABB{
	Min: math.Vec3{X: -0.5, Y: -0.5, Z: -300},
	Max: math.Vec3{X: 0.5, Y: 0.5, Z: 9000},
}

// State is a tile's place in the load lifecycle.
type State int

const (
	Unloaded State = iota
	Loading
	Loaded
	Dirty
	Updating
)

func (s State) String() string {
	switch s {
	case Unloaded:
		return "unloaded"
	case Loading:
		return "loading"
	case Loaded:
		return "loaded"
	case Dirty:
		return "dirty"
	case Updating:
		return "updating"
	default:
		return "unknown"
	}
}

// Node is anything a tile can hang from.
type Node interface {
	WorldMatrix() math.Mat4
}

// Tile is one node of the quadtree.
type Tile struct {
	coord    maptile.Tile
	parent   Node
	children []*Tile

	position math.Vec3
	scale    math.Vec3

	model render.Mesh
	op    Op
	// epoch changes whenever the tile is unloaded; results of operations
	// started in an earlier epoch are discarded.
	epoch uint64

	needsMaterial bool
	needsGeometry bool

	metricsReady bool
	center       math.Vec3
	bbox         math.AABB
	diagonal     float64
}

// New creates a detached tile at x, y, z.
func New(x, y, z uint32) *Tile {
	return &Tile{
		coord: tileid.New(x, y, z),
		scale: math.Vec3{X: 1, Y: 1, Z: 1},
	}
}

// Coord returns the tile's coordinates.
func (t *Tile) Coord() maptile.Tile { return t.coord }

// Z returns the zoom level.
func (t *Tile) Z() int { return int(t.coord.Z) }

func (t *Tile) String() string { return tileid.String(t.coord) }

// Parent returns the node the tile hangs from, or nil.
func (t *Tile) Parent() Node { return t.parent }

// SetParent attaches the tile. Cached metrics are recomputed on next use.
func (t *Tile) SetParent(p Node) {
	t.parent = p
	t.invalidate()
}

// SetTransform sets the tile's offset and scale within its parent.
func (t *Tile) SetTransform(position, scale math.Vec3) {
	t.position = position
	t.scale = scale
	t.invalidate()
}

// LocalMatrix returns translation * scale.
func (t *Tile) LocalMatrix() math.Mat4 {
	return math.Translate(t.position.X, t.position.Y, t.position.Z).
		Mul(math.Scale(t.scale.X, t.scale.Y, t.scale.Z))
}

// WorldMatrix composes the tile's transform with its ancestors'.
func (t *Tile) WorldMatrix() math.Mat4 {
	if t.parent == nil {
		return t.LocalMatrix()
	}
	return t.parent.WorldMatrix().Mul(t.LocalMatrix())
}

// Children returns the four children, or nil for a leaf.
func (t *Tile) Children() []*Tile { return t.children }

// IsLeaf reports whether the tile has no children.
func (t *Tile) IsLeaf() bool { return t.children == nil }

// Model returns the tile's mesh, or nil.
func (t *Tile) Model() render.Mesh { return t.model }

// Visible reports whether the tile's mesh is shown.
func (t *Tile) Visible() bool {
	return t.model != nil && t.model.Visible()
}

func (t *Tile) setVisible(v bool) {
	if t.model != nil {
		t.model.SetVisible(v)
	}
}

// State derives the lifecycle state.
func (t *Tile) State() State {
	switch {
	case t.op == OpLoad:
		return Loading
	case t.op == OpUpdate:
		return Updating
	case t.model == nil:
		return Unloaded
	case t.dirty():
		return Dirty
	default:
		return Loaded
	}
}

func (t *Tile) busy() bool { return t.op != opNone }

func (t *Tile) dirty() bool {
	return t.model != nil && (t.needsMaterial || t.needsGeometry)
}

// Center returns the tile center in world space.
func (t *Tile) Center() math.Vec3 {
	t.computeMetrics()
	return t.center
}

// Bounds returns the tile's world-space bounding box.
func (t *Tile) Bounds() math.AABB {
	t.computeMetrics()
	return t.bbox
}

// Diagonal returns the length of the tile's horizontal world-space diagonal.
func (t *Tile) Diagonal() float64 {
	t.computeMetrics()
	return t.diagonal
}

func (t *Tile) computeMetrics() {
	if t.metricsReady {
		return
	}
	world := t.WorldMatrix()
	t.center = world.TransformPoint(math.Vec3{})
	t.bbox = LocalBounds.Transform(world)
	size := t.bbox.Size()
	t.diagonal = gomath.Hypot(size.X, size.Y)
	t.metricsReady = true
}

func (t *Tile) invalidate() {
	t.metricsReady = false
	for _, c := range t.children {
		c.invalidate()
	}
}

// Walk visits the tile and its descendants depth-first, parents first.
func (t *Tile) Walk(fn func(*Tile)) {
	fn(t)
	for _, c := range t.children {
		c.Walk(fn)
	}
}

// createChildren builds the four children in row-major order with the
// transforms that tile them across the parent's unit square. Row 0 is the
// northern half, on +Y.
func (t *Tile) createChildren() {
	coords := tileid.Children(t.coord)
	t.children = make([]*Tile, 4)
	for i, c := range coords {
		dx, dy := float64(i%2), float64(i/2)
		child := &Tile{coord: c}
		child.SetTransform(
			math.Vec3{X: (dx - 0.5) * 0.5, Y: (0.5 - dy) * 0.5},
			math.Vec3{X: 0.5, Y: 0.5, Z: 1},
		)
		child.SetParent(t)
		t.children[i] = child
	}
}

// Refresh flags the tile and every descendant that has or is getting a model.
// Flags accumulate until the refresh runs.
func (t *Tile) Refresh(material, geometry bool) {
	t.Walk(func(d *Tile) {
		if d.model != nil || d.op == OpLoad {
			d.needsMaterial = d.needsMaterial || material
			d.needsGeometry = d.needsGeometry || geometry
		}
	})
}

// Unload releases every descendant, children before parents, then the tile's
// own model when self is true. Ancestors are untouched.
func (t *Tile) Unload(loader ModelLoader, self bool) {
	for _, c := range t.children {
		c.Unload(loader, true)
		c.parent = nil
	}
	t.children = nil

	if !self {
		return
	}
	t.epoch++
	if t.model != nil {
		// An update in flight owns the mesh; its result is discarded on arrival.
		if t.op != OpUpdate {
			loader.Unload(t.model)
		}
		t.model = nil
	}
	t.op = opNone
	t.needsMaterial = false
	t.needsGeometry = false
}
