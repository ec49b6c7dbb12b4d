package loader

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"sync"
	"sync/atomic"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Faultbox/geotiles/internal/fetch"
	"github.com/Faultbox/geotiles/internal/logger"
	"github.com/Faultbox/geotiles/internal/render"
	"github.com/Faultbox/geotiles/internal/source"
	"github.com/Faultbox/geotiles/pkg/geometry"
	"github.com/Faultbox/geotiles/pkg/projection"
	"github.com/Faultbox/geotiles/pkg/tileid"
)

// BackgroundColor fills tiles whose imagery is missing.
var BackgroundColor = color.RGBA{128, 128, 128, 255}

// WorldBound is the default geographic extent of a map.
var WorldBound = orb.Bound{Min: orb.Point{-180, -90}, Max: orb.Point{180, 90}}

// MapLoader builds one mesh per tile from the map's primary image source and
// optional elevation source. Missing or failing loaders degrade to a flat
// plane and the background material.
type MapLoader struct {
	renderer   render.Renderer
	registry   *Registry
	manager    *LoadingManager
	background render.Material

	mu         sync.RWMutex
	projection *projection.Projection
	images     []*source.Source
	elevation  *source.Source
	bounds     orb.Bound

	downloading atomic.Int32
}

// NewMapLoader creates a loader. The background material is created immediately.
func NewMapLoader(r render.Renderer, reg *Registry, proj *projection.Projection) *MapLoader {
	return &MapLoader{
		renderer:   r,
		registry:   reg,
		manager:    NewLoadingManager(),
		background: r.NewMaterial(render.MaterialSpec{Name: "background", Color: BackgroundColor, Opacity: 1}),
		projection: proj,
		bounds:     WorldBound,
	}
}

// Manager returns the loading progress tracker.
func (l *MapLoader) Manager() *LoadingManager { return l.manager }

// Registry returns the loader registry.
func (l *MapLoader) Registry() *Registry { return l.registry }

// Background returns the fallback material.
func (l *MapLoader) Background() render.Material { return l.background }

// Downloading returns the number of loads in progress.
func (l *MapLoader) Downloading() int { return int(l.downloading.Load()) }

// Projection returns the current projection.
func (l *MapLoader) Projection() *projection.Projection {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.projection
}

// SetProjection replaces the projection used for tile bounds.
func (l *MapLoader) SetProjection(p *projection.Projection) {
	l.mu.Lock()
	l.projection = p
	l.mu.Unlock()
}

// ImageSources returns the image sources; the first one is drawn.
func (l *MapLoader) ImageSources() []*source.Source {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.images
}

// SetImageSources replaces the image sources.
func (l *MapLoader) SetImageSources(srcs []*source.Source) {
	l.mu.Lock()
	l.images = srcs
	l.mu.Unlock()
}

// ElevationSource returns the elevation source, if any.
func (l *MapLoader) ElevationSource() *source.Source {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.elevation
}

// SetElevationSource replaces the elevation source. nil means flat tiles.
func (l *MapLoader) SetElevationSource(src *source.Source) {
	l.mu.Lock()
	l.elevation = src
	l.mu.Unlock()
}

// Bounds returns the geographic extent tiles are fetched for.
func (l *MapLoader) Bounds() orb.Bound {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.bounds
}

// SetBounds limits fetching to tiles intersecting b.
func (l *MapLoader) SetBounds(b orb.Bound) {
	l.mu.Lock()
	l.bounds = b
	l.mu.Unlock()
}

// snapshot is the configuration one load works with.
type snapshot struct {
	proj      *projection.Projection
	image     *source.Source
	elevation *source.Source
	bounds    orb.Bound
}

func (l *MapLoader) snapshot() snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()
	s := snapshot{proj: l.projection, elevation: l.elevation, bounds: l.bounds}
	if len(l.images) > 0 {
		s.image = l.images[0]
	}
	return s
}

func (s snapshot) params(t maptile.Tile, src *source.Source) TileParams {
	x, y, z := t.X, t.Y, uint32(t.Z)
	return TileParams{
		Tile:         t,
		SourceTile:   tileid.New(s.proj.TileXWithCenterLon(x, z), y, z),
		Source:       src,
		ProjBounds:   s.proj.ProjBounds(x, y, z),
		LonLatBounds: s.proj.LonLatBounds(x, y, z),
	}
}

// covers reports whether src has data for the tile described by p.
func (s snapshot) covers(src *source.Source, p TileParams) bool {
	return src.Covers(int(p.Tile.Z)) &&
		intersectsLonLat(s.bounds, p.LonLatBounds) &&
		intersectsLonLat(src.Bound(), p.LonLatBounds)
}

// intersectsLonLat is Bound.Intersects for boxes that may cross the
// antimeridian, which have Min.X > Max.X.
func intersectsLonLat(a, b orb.Bound) bool {
	for _, x := range splitAntimeridian(a) {
		for _, y := range splitAntimeridian(b) {
			if x.Intersects(y) {
				return true
			}
		}
	}
	return false
}

func splitAntimeridian(b orb.Bound) []orb.Bound {
	if b.Min.Lon() <= b.Max.Lon() {
		return []orb.Bound{b}
	}
	return []orb.Bound{
		{Min: b.Min, Max: orb.Point{180, b.Max.Lat()}},
		{Min: orb.Point{-180, b.Min.Lat()}, Max: b.Max},
	}
}

// Load builds a new hidden mesh for t. Geometry and material load
// concurrently. Only cancellation is returned as an error; every other
// failure degrades to fallback content.
func (l *MapLoader) Load(ctx context.Context, t maptile.Tile) (render.Mesh, error) {
	l.downloading.Add(1)
	defer l.downloading.Add(-1)

	key := tileid.String(t)
	l.manager.ItemStart(key)

	cfg := l.snapshot()
	var (
		geo *geometry.Data
		mat render.Material
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		geo, err = l.loadGeometry(gctx, cfg, t)
		return err
	})
	g.Go(func() (err error) {
		mat, err = l.loadMaterial(gctx, cfg, t)
		return err
	})
	if err := g.Wait(); err != nil {
		if mat != nil && mat != l.background {
			mat.Dispose()
		}
		l.manager.ItemError(key, err)
		return nil, err
	}

	mesh := l.renderer.NewMesh("tile-" + key)
	mesh.SetGeometry(geo)
	mesh.SetMaterial(mat)
	mesh.SetVisible(false)
	l.manager.ItemEnd(key)
	return mesh, nil
}

// Update reloads the material and/or geometry of an existing mesh.
// A material that fails to load keeps the mesh's current one.
func (l *MapLoader) Update(ctx context.Context, mesh render.Mesh, t maptile.Tile, material, geom bool) (render.Mesh, error) {
	l.downloading.Add(1)
	defer l.downloading.Add(-1)

	cfg := l.snapshot()
	if geom {
		geo, err := l.loadGeometry(ctx, cfg, t)
		if err != nil {
			return mesh, err
		}
		mesh.SetGeometry(geo)
	}
	if material {
		mat, err := l.loadMaterial(ctx, cfg, t)
		if err != nil {
			return mesh, err
		}
		if mat != l.background || mesh.Material() == nil {
			l.releaseMaterial(cfg, mesh.Material())
			mesh.SetMaterial(mat)
		}
	}
	return mesh, nil
}

// Unload releases a mesh and its material. The background material is shared and kept.
func (l *MapLoader) Unload(mesh render.Mesh) {
	cfg := l.snapshot()
	l.releaseMaterial(cfg, mesh.Material())
	if cfg.elevation != nil {
		if gl, err := l.registry.Geometry(cfg.elevation.DataType); err == nil && mesh.Geometry() != nil {
			gl.Unload(mesh.Geometry())
		}
	}
	mesh.SetMaterial(nil)
	mesh.Dispose()
}

// Dispose releases the background material.
func (l *MapLoader) Dispose() {
	l.background.Dispose()
}

func (l *MapLoader) releaseMaterial(cfg snapshot, m render.Material) {
	if m == nil || m == l.background {
		return
	}
	if cfg.image != nil {
		if ml, err := l.registry.Material(cfg.image.DataType); err == nil {
			ml.Unload(m)
			return
		}
	}
	m.Dispose()
}

func (l *MapLoader) loadGeometry(ctx context.Context, cfg snapshot, t maptile.Tile) (*geometry.Data, error) {
	src := cfg.elevation
	if src == nil {
		return geometry.Plane(), nil
	}
	gl, err := l.registry.Geometry(src.DataType)
	if err != nil {
		logger.Warn("using flat geometry", zap.String("tile", tileid.String(t)), zap.Error(err))
		return geometry.Plane(), nil
	}

	p := cfg.params(t, src)
	if !cfg.covers(src, p) {
		return geometry.Plane(), nil
	}
	geo, err := gl.Load(ctx, p)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		logFailure("geometry load failed", t, src, err)
		return geometry.Plane(), nil
	}
	return geo, nil
}

func (l *MapLoader) loadMaterial(ctx context.Context, cfg snapshot, t maptile.Tile) (render.Material, error) {
	src := cfg.image
	if src == nil {
		return l.background, nil
	}
	ml, err := l.registry.Material(src.DataType)
	if err != nil {
		logger.Warn("using background material", zap.String("tile", tileid.String(t)), zap.Error(err))
		return l.background, nil
	}

	p := cfg.params(t, src)
	if !cfg.covers(src, p) {
		return l.background, nil
	}
	mat, err := ml.Load(ctx, p)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		logFailure("material load failed", t, src, err)
		return l.background, nil
	}
	return mat, nil
}

// logFailure logs a degraded load. Tiles missing from a sparse store are expected.
func logFailure(msg string, t maptile.Tile, src *source.Source, err error) {
	fields := []zap.Field{
		zap.String("tile", tileid.String(t)),
		zap.Error(fmt.Errorf("%w: %s: %w", ErrLoadFailure, src.DataType, err)),
	}
	if errors.Is(err, fetch.ErrNotFound) {
		logger.Debug(msg, fields...)
		return
	}
	logger.Error(msg, fields...)
}
