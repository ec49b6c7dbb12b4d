package main

import (
	"context"
	"fmt"
	"io"
	gomath "math"
	"time"

	"github.com/schollz/progressbar/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/Faultbox/geotiles/internal/config"
	"github.com/Faultbox/geotiles/internal/debug"
	"github.com/Faultbox/geotiles/internal/fetch"
	"github.com/Faultbox/geotiles/internal/loader"
	"github.com/Faultbox/geotiles/internal/logger"
	"github.com/Faultbox/geotiles/internal/scene"
	"github.com/Faultbox/geotiles/internal/tilemap"
	"github.com/Faultbox/geotiles/pkg/math"
)

// disposeTimeout bounds how long shutdown waits for loads in flight.
const disposeTimeout = 30 * time.Second

type sim struct {
	cfg      *config.Config
	renderer *scene.Renderer
	cached   *fetch.Cached
	m        *tilemap.Map
	camera   *scene.OrbitCamera
	bar      *progressbar.ProgressBar
}

type report struct {
	Frames   int
	Elapsed  time.Duration
	Map      tilemap.Stats
	Loads    loader.Counts
	Renderer scene.RendererStats
	Hits     int
	Misses   int
	Snapshot string
}

func newSim(cfg *config.Config) (*sim, error) {
	cached, err := openFetcher(cfg.Fetch)
	if err != nil {
		return nil, err
	}

	s := &sim{cfg: cfg, renderer: scene.NewRenderer(), cached: cached}

	opts := tilemap.DefaultOptions()
	opts.Renderer = s.renderer
	opts.Fetcher = withTimeout(cached, cfg.Fetch.Timeout)
	opts.ImageSources = cfg.Sources.Images
	opts.ElevationSource = cfg.Sources.Elevation
	opts.MinLevel = cfg.Map.MinLevel
	opts.MaxLevel = cfg.Map.MaxLevel
	opts.LODThreshold = cfg.Map.LODThreshold
	opts.Lon0 = cfg.Map.Lon0
	opts.Concurrency = cfg.Map.Concurrency
	if b, ok, err := cfg.Map.Bound(); err != nil {
		return nil, multierr.Append(err, cached.Close())
	} else if ok {
		opts.Bounds = b
	}

	s.m, err = tilemap.New(opts)
	if err != nil {
		return nil, multierr.Append(err, cached.Close())
	}

	s.camera = scene.NewOrbitCamera()
	s.camera.Viewport = [2]float64{float64(cfg.Sim.Width), float64(cfg.Sim.Height)}
	s.camera.Center = s.m.GeoToWorld(math.Vec3{X: cfg.Sim.Lon, Y: cfg.Sim.Lat})
	s.camera.Distance = cfg.Sim.StartDistance

	if cfg.Sim.Progress {
		s.bar = progressbar.NewOptions(-1,
			progressbar.OptionSetDescription("tiles"),
			progressbar.OptionShowIts(),
			progressbar.OptionShowCount())
	}
	s.hook(s.m.Loader().Manager())
	return s, nil
}

// openFetcher chains the tile directory with any MBTiles archives behind a
// shared cache. Archives win over the directory, later archives first.
func openFetcher(cfg config.FetchConfig) (*fetch.Cached, error) {
	chain := fetch.NewChain(fetch.NewDirFetcher(cfg.TilesDir))
	for _, path := range cfg.MBTiles {
		mb, err := fetch.OpenMBTiles(path)
		if err != nil {
			return nil, multierr.Append(err, chain.Close())
		}
		chain.Add(mb)
		logger.Info("opened mbtiles", zap.String("path", path))
	}
	return fetch.NewCached(chain, cfg.CacheSize), nil
}

func withTimeout(f fetch.Fetcher, d time.Duration) fetch.Fetcher {
	if d <= 0 {
		return f
	}
	return fetch.Func(func(ctx context.Context, req fetch.Request) ([]byte, error) {
		ctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()
		return f.Fetch(ctx, req)
	})
}

func (s *sim) hook(lm *loader.LoadingManager) {
	lm.OnProgress = func(item string, loaded, total int) {
		if s.bar != nil {
			s.bar.Add(1)
		}
	}
	lm.OnError = func(item string, err error) {
		logger.Warn("tile failed", zap.String("tile", item), zap.Error(err))
	}
	lm.OnLoad = func() {
		logger.Debug("all queued tiles loaded")
	}
}

// distanceAt zooms geometrically from the start to the end distance.
func (s *sim) distanceAt(frame int) float64 {
	n := s.cfg.Sim.Frames
	if n <= 1 {
		return s.cfg.Sim.EndDistance
	}
	t := float64(frame) / float64(n-1)
	return s.cfg.Sim.StartDistance * gomath.Pow(s.cfg.Sim.EndDistance/s.cfg.Sim.StartDistance, t)
}

func (s *sim) run(ctx context.Context) (report, error) {
	start := time.Now()
	var ticker *time.Ticker
	if s.cfg.Sim.FrameInterval > 0 {
		ticker = time.NewTicker(s.cfg.Sim.FrameInterval)
		defer ticker.Stop()
	}

	frames := 0
	for frame := range s.cfg.Sim.Frames {
		if err := ctx.Err(); err != nil {
			logger.Info("simulation interrupted", zap.Int("frame", frame))
			break
		}
		s.camera.Distance = s.distanceAt(frame)
		s.camera.HandleDrag(1, 0)
		s.m.Update(s.camera)
		frames++

		if ticker != nil {
			select {
			case <-ticker.C:
			case <-ctx.Done():
			}
		}
		if frame%60 == 0 {
			st := s.m.Stats()
			logger.Debug("frame",
				zap.Int("frame", frame),
				zap.Float64("distance", s.camera.Distance),
				zap.Int("tiles", st.Tiles),
				zap.Int("visible", st.Visible),
				zap.Int("in_flight", st.InFlight),
				zap.Int("downloading", s.m.Downloading()))
		}
	}

	// Let the last requests land so the report shows a settled tree.
	settleCtx, cancel := context.WithTimeout(ctx, disposeTimeout)
	defer cancel()
	if err := s.m.Scheduler().Settle(settleCtx); err != nil && ctx.Err() == nil {
		return report{}, fmt.Errorf("settling loads: %w", err)
	}
	if s.bar != nil {
		s.bar.Finish()
		fmt.Println()
	}

	r := report{
		Frames:   frames,
		Elapsed:  time.Since(start),
		Map:      s.m.Stats(),
		Loads:    s.m.Loader().Manager().Counts(),
		Renderer: s.renderer.Stats(),
	}
	r.Hits, r.Misses = s.cached.Cache.Stats()

	if dir := s.cfg.Sim.SnapshotDir; dir != "" {
		path, err := debug.NewSnapshots(dir, "coverage").Save(debug.Coverage(s.m, s.cfg.Sim.Width))
		if err != nil {
			return r, fmt.Errorf("saving coverage snapshot: %w", err)
		}
		r.Snapshot = path
	}
	return r, nil
}

func (s *sim) close() error {
	ctx, cancel := context.WithTimeout(context.Background(), disposeTimeout)
	defer cancel()
	return multierr.Combine(s.m.Dispose(ctx), s.cached.Close())
}

func (r report) print(w io.Writer) {
	fmt.Fprintf(w, "Frames:     %d in %v\n", r.Frames, r.Elapsed.Round(time.Millisecond))
	fmt.Fprintf(w, "Tiles:      %d (%d leaves, %d visible, depth %d)\n",
		r.Map.Tiles, r.Map.Leaves, r.Map.Visible, r.Map.Depth)
	fmt.Fprintf(w, "Loads:      %d loaded, %d failed, %d total\n",
		r.Loads.Loaded, r.Loads.Failed, r.Loads.Total)
	fmt.Fprintf(w, "Meshes:     %d live, %d created, %d triangles visible\n",
		r.Renderer.MeshesLive, r.Renderer.MeshesCreated, r.Renderer.Triangles)
	fmt.Fprintf(w, "Materials:  %d live, %d created\n",
		r.Renderer.MaterialsLive, r.Renderer.MaterialsCreated)
	fmt.Fprintf(w, "Cache:      %d hits, %d misses\n", r.Hits, r.Misses)
	if r.Snapshot != "" {
		fmt.Fprintf(w, "Snapshot:   %s\n", r.Snapshot)
	}
}
