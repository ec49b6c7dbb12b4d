package tile

import (
	"context"

	"github.com/paulmach/orb/maptile"

	"github.com/Faultbox/geotiles/internal/render"
	"github.com/Faultbox/geotiles/pkg/math"
)

// Camera is what level of detail needs to know about the viewer.
type Camera interface {
	Position() math.Vec3
	InFrustum(box math.AABB) bool
}

// ModelLoader produces and releases tile meshes.
type ModelLoader interface {
	Load(ctx context.Context, t maptile.Tile) (render.Mesh, error)
	Update(ctx context.Context, mesh render.Mesh, t maptile.Tile, material, geometry bool) (render.Mesh, error)
	Unload(mesh render.Mesh)
}

// UpdateParams carries everything a frame update needs.
type UpdateParams struct {
	Camera       Camera
	Loader       ModelLoader
	Scheduler    *Scheduler
	MinLevel     int
	MaxLevel     int
	LODThreshold float64
}

// Update runs one frame for the tile and, unless it started an operation,
// its subtree.
func (t *Tile) Update(p UpdateParams) {
	if t.parent == nil || t.busy() {
		return
	}
	t.computeMetrics()
	inFrustum := p.Camera.InFrustum(t.bbox)

	if t.Z() >= p.MinLevel && p.Scheduler.Available() {
		if t.model == nil {
			if t.startLoad(p) {
				return
			}
		} else if t.dirty() && inFrustum && !t.childDirty() {
			if t.startUpdate(p) {
				return
			}
		}
	}

	t.lod(p, inFrustum)

	for _, c := range t.children {
		c.Update(p)
	}
}

// DistRatio is the camera distance to the tile center over the tile diagonal,
// discounted when the tile is on screen and inflated when it is not.
func (t *Tile) DistRatio(cam Camera) float64 {
	return t.distRatio(cam, cam.InFrustum(t.Bounds()))
}

func (t *Tile) distRatio(cam Camera, inFrustum bool) float64 {
	t.computeMetrics()
	ratio := cam.Position().Distance(t.center) / t.diagonal
	if inFrustum {
		return ratio * 0.8
	}
	return ratio * 2
}

// lod splits near visible tiles and merges far ones. The gap between the two
// thresholds keeps a tile from flickering between states.
func (t *Tile) lod(p UpdateParams, inFrustum bool) {
	ratio := t.distRatio(p.Camera, inFrustum)
	switch {
	case t.Z() < p.MaxLevel && ratio < p.LODThreshold && inFrustum:
		if t.children == nil {
			t.createChildren()
		}
	case t.Z() > p.MinLevel && ratio > p.LODThreshold*2:
		if t.children != nil {
			t.Unload(p.Loader, false)
			t.setVisible(true)
		}
	}
}

func (t *Tile) childDirty() bool {
	for _, c := range t.children {
		if c.dirty() {
			return true
		}
	}
	return false
}

func (t *Tile) startLoad(p UpdateParams) bool {
	return p.Scheduler.TrySubmit(t, OpLoad, p.Loader, func(ctx context.Context) (render.Mesh, error) {
		return p.Loader.Load(ctx, t.coord)
	})
}

func (t *Tile) startUpdate(p UpdateParams) bool {
	mesh, material, geometry := t.model, t.needsMaterial, t.needsGeometry
	ok := p.Scheduler.TrySubmit(t, OpUpdate, p.Loader, func(ctx context.Context) (render.Mesh, error) {
		return p.Loader.Update(ctx, mesh, t.coord, material, geometry)
	})
	if ok {
		t.needsMaterial = false
		t.needsGeometry = false
	}
	return ok
}

// reveal decides visibility once a leaf has its model. Siblings appear
// together, replacing their parent, only when all four are ready.
func (t *Tile) reveal() {
	parent, ok := t.parent.(*Tile)
	if !ok || parent.model == nil {
		t.setVisible(true)
		return
	}
	allLoaded := true
	for _, s := range parent.children {
		if s.model == nil {
			allLoaded = false
			break
		}
	}
	for _, s := range parent.children {
		s.setVisible(allLoaded)
	}
	parent.setVisible(!allLoaded)
}
