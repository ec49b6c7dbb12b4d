// Package tilemap owns a tile tree together with its projection, sources and
// loader, and exposes the per-frame entry point and coordinate conversions.
package tilemap

import (
	"context"
	"errors"
	"fmt"

	"github.com/paulmach/orb"
	"go.uber.org/zap"

	"github.com/Faultbox/geotiles/internal/fetch"
	"github.com/Faultbox/geotiles/internal/loader"
	"github.com/Faultbox/geotiles/internal/logger"
	"github.com/Faultbox/geotiles/internal/render"
	"github.com/Faultbox/geotiles/internal/source"
	"github.com/Faultbox/geotiles/internal/tile"
	"github.com/Faultbox/geotiles/pkg/math"
	"github.com/Faultbox/geotiles/pkg/projection"
	"github.com/Faultbox/geotiles/pkg/tileid"
)

// Defaults for Options.
const (
	DefaultMinLevel     = 2
	DefaultMaxLevel     = 19
	DefaultLODThreshold = 1.0
)

var (
	ErrEmptySource   = errors.New("tilemap: image source list is empty")
	ErrNoRenderer    = errors.New("tilemap: renderer is required")
	ErrNoFetcher     = errors.New("tilemap: a fetcher or a registry is required")
	ErrInvalidLevels = errors.New("tilemap: invalid zoom levels")
	ErrInvalidLOD    = errors.New("tilemap: LOD threshold must be positive")
)

// Options configures a Map. Start from DefaultOptions.
type Options struct {
	Renderer render.Renderer
	// Registry resolves loaders by data type. When nil a default registry
	// is built around Fetcher.
	Registry *loader.Registry
	Fetcher  fetch.Fetcher

	ImageSources    []*source.Source
	ElevationSource *source.Source

	MinLevel     int
	MaxLevel     int
	LODThreshold float64
	Lon0         float64
	// Bounds limits fetching to a lon/lat box. The zero value means the whole world.
	Bounds orb.Bound
	// Concurrency caps loads in flight; zero means tile.DefaultConcurrency.
	Concurrency int
	World       math.Mat4
}

// DefaultOptions returns options with default levels and an identity world matrix.
func DefaultOptions() Options {
	return Options{
		MinLevel:     DefaultMinLevel,
		MaxLevel:     DefaultMaxLevel,
		LODThreshold: DefaultLODThreshold,
		World:        math.Identity(),
	}
}

// Map is a level-of-detail tile map. Everything but the loader's own
// goroutines runs on the caller's frame goroutine.
type Map struct {
	// AutoUpdate gates tree evaluation in Update. Completed loads are still applied.
	AutoUpdate bool

	loader    *loader.MapLoader
	scheduler *tile.Scheduler
	cancel    context.CancelFunc
	root      *tile.Tile
	world     math.Mat4

	minLevel     int
	maxLevel     int
	lodThreshold float64
}

// New creates a map and its root tile.
func New(opts Options) (*Map, error) {
	if opts.Renderer == nil {
		return nil, ErrNoRenderer
	}
	if len(opts.ImageSources) == 0 {
		return nil, ErrEmptySource
	}
	if err := validateSources(opts.ImageSources, opts.ElevationSource); err != nil {
		return nil, err
	}
	if err := validateLevels(opts.MinLevel, opts.MaxLevel); err != nil {
		return nil, err
	}
	if opts.LODThreshold <= 0 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidLOD, opts.LODThreshold)
	}

	proj, err := projection.New(opts.ImageSources[0].ProjectionID, opts.Lon0)
	if err != nil {
		return nil, fmt.Errorf("tilemap: %w", err)
	}

	reg := opts.Registry
	if reg == nil {
		if opts.Fetcher == nil {
			return nil, ErrNoFetcher
		}
		reg = loader.NewDefaultRegistry(opts.Renderer, opts.Fetcher)
	}

	ml := loader.NewMapLoader(opts.Renderer, reg, proj)
	ml.SetImageSources(opts.ImageSources)
	ml.SetElevationSource(opts.ElevationSource)
	if !opts.Bounds.IsZero() {
		ml.SetBounds(opts.Bounds)
	}

	world := opts.World
	if world == (math.Mat4{}) {
		world = math.Identity()
	}

	ctx, cancel := context.WithCancel(context.Background())
	m := &Map{
		AutoUpdate:   true,
		loader:       ml,
		scheduler:    tile.NewScheduler(ctx, opts.Concurrency),
		cancel:       cancel,
		root:         tile.New(0, 0, 0),
		world:        world,
		minLevel:     opts.MinLevel,
		maxLevel:     opts.MaxLevel,
		lodThreshold: opts.LODThreshold,
	}
	m.root.SetParent(m)
	m.resize()

	logger.Info("map created",
		zap.String("projection", string(proj.ID)),
		zap.Float64("lon0", proj.Lon0),
		zap.Int("min_level", m.minLevel),
		zap.Int("max_level", m.maxLevel))
	return m, nil
}

func validateSources(images []*source.Source, elevation *source.Source) error {
	for i, s := range images {
		if err := s.Validate(); err != nil {
			return fmt.Errorf("tilemap: image source %d: %w", i, err)
		}
	}
	if elevation != nil {
		if err := elevation.Validate(); err != nil {
			return fmt.Errorf("tilemap: elevation source: %w", err)
		}
	}
	return nil
}

func validateLevels(minLevel, maxLevel int) error {
	if minLevel < 0 || maxLevel < minLevel || maxLevel > tileid.MaxZoom {
		return fmt.Errorf("%w: min %d, max %d", ErrInvalidLevels, minLevel, maxLevel)
	}
	return nil
}

// WorldMatrix places the map in the scene.
func (m *Map) WorldMatrix() math.Mat4 { return m.world }

// SetWorldMatrix moves the map.
func (m *Map) SetWorldMatrix(w math.Mat4) {
	m.world = w
	m.root.SetParent(m)
}

// resize stretches the root tile over the projection's map extent.
func (m *Map) resize() {
	p := m.loader.Projection()
	m.root.SetTransform(math.Vec3{}, math.Vec3{X: p.MapWidth, Y: p.MapHeight, Z: p.MapDepth})
}

// Update applies finished loads and evaluates the tree for one frame.
func (m *Map) Update(cam tile.Camera) {
	m.scheduler.Drain()
	if !m.AutoUpdate {
		return
	}
	m.root.Update(tile.UpdateParams{
		Camera:       cam,
		Loader:       m.loader,
		Scheduler:    m.scheduler,
		MinLevel:     m.minLevel,
		MaxLevel:     m.maxLevel,
		LODThreshold: m.lodThreshold,
	})
}

// Refresh marks every loaded tile for a material and/or geometry reload.
func (m *Map) Refresh(material, geometry bool) {
	m.root.Refresh(material, geometry)
}

// Reload discards every tile model; the tree rebuilds on later frames.
func (m *Map) Reload() {
	m.root.Unload(m.loader, true)
	m.loader.Manager().Reset()
}

// Dispose waits for loads in flight, then releases every tile and the
// background material. Loads still running when ctx ends are canceled.
func (m *Map) Dispose(ctx context.Context) error {
	err := m.scheduler.Settle(ctx)
	if err != nil {
		m.cancel()
		logger.Warn("map disposed with loads in flight", zap.Int("in_flight", m.scheduler.InFlight()))
	}
	m.root.Unload(m.loader, true)
	m.loader.Dispose()
	m.cancel()
	return err
}

// Root returns the root tile.
func (m *Map) Root() *tile.Tile { return m.root }

// Loader returns the map's tile loader.
func (m *Map) Loader() *loader.MapLoader { return m.loader }

// Scheduler returns the scheduler bounding loads in flight.
func (m *Map) Scheduler() *tile.Scheduler { return m.scheduler }

// Projection returns the active projection.
func (m *Map) Projection() *projection.Projection { return m.loader.Projection() }

// Lon0 returns the central meridian.
func (m *Map) Lon0() float64 { return m.Projection().Lon0 }

// Downloading returns the number of tile loads in progress.
func (m *Map) Downloading() int { return m.loader.Downloading() }

// MinLevel returns the shallowest zoom that loads models.
func (m *Map) MinLevel() int { return m.minLevel }

// MaxLevel returns the deepest zoom the tree splits to.
func (m *Map) MaxLevel() int { return m.maxLevel }

// LODThreshold returns the split threshold.
func (m *Map) LODThreshold() float64 { return m.lodThreshold }

// ImageSources returns the image sources; the first one is drawn.
func (m *Map) ImageSources() []*source.Source { return m.loader.ImageSources() }

// ElevationSource returns the elevation source, or nil.
func (m *Map) ElevationSource() *source.Source { return m.loader.ElevationSource() }

// Bounds returns the lon/lat box tiles are fetched for.
func (m *Map) Bounds() orb.Bound { return m.loader.Bounds() }
