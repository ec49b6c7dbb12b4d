package tile

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/paulmach/orb/maptile"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/geotiles/internal/render"
	"github.com/Faultbox/geotiles/internal/scene"
	"github.com/Faultbox/geotiles/pkg/math"
	"github.com/Faultbox/geotiles/pkg/tileid"
)

type node struct{}

func (node) WorldMatrix() math.Mat4 { return math.Identity() }

type camera struct {
	pos     math.Vec3
	visible bool
}

func newCamera(z float64) *camera {
	return &camera{pos: math.Vec3{Z: z}, visible: true}
}

func (c *camera) Position() math.Vec3 { return c.pos }

func (c *camera) InFrustum(math.AABB) bool { return c.visible }

func (c *camera) moveTo(z float64) { c.pos = math.Vec3{Z: z} }

type fakeLoader struct {
	renderer *scene.Renderer

	// Loads of tiles matching block wait for gate to close.
	block func(maptile.Tile) bool
	gate  chan struct{}

	failNext atomic.Int32

	mu        sync.Mutex
	active    int
	maxActive int

	loads   atomic.Int32
	updates atomic.Int32
	unloads atomic.Int32
}

func newFakeLoader() *fakeLoader {
	return &fakeLoader{renderer: scene.NewRenderer(), gate: make(chan struct{})}
}

func (l *fakeLoader) Load(ctx context.Context, t maptile.Tile) (render.Mesh, error) {
	l.loads.Add(1)
	l.mu.Lock()
	l.active++
	l.maxActive = max(l.maxActive, l.active)
	l.mu.Unlock()
	defer func() {
		l.mu.Lock()
		l.active--
		l.mu.Unlock()
	}()

	if l.block != nil && l.block(t) {
		select {
		case <-l.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if l.failNext.Load() > 0 {
		l.failNext.Add(-1)
		return nil, errors.New("boom")
	}
	return l.renderer.NewMesh("tile-" + tileid.String(t)), nil
}

func (l *fakeLoader) Update(_ context.Context, mesh render.Mesh, _ maptile.Tile, _, _ bool) (render.Mesh, error) {
	l.updates.Add(1)
	return mesh, nil
}

func (l *fakeLoader) Unload(mesh render.Mesh) {
	l.unloads.Add(1)
	mesh.Dispose()
}

type harness struct {
	root   *Tile
	cam    *camera
	loader *fakeLoader
	params UpdateParams
}

// newHarness hangs a tile at x, y, z under an identity node, scaled to a
// 1000x1000 square centered on the origin.
func newHarness(z uint32, minLevel, maxLevel int, camZ float64) *harness {
	root := New(0, 0, z)
	root.SetTransform(math.Vec3{}, math.Vec3{X: 1000, Y: 1000, Z: 1})
	root.SetParent(node{})

	h := &harness{root: root, cam: newCamera(camZ), loader: newFakeLoader()}
	h.params = UpdateParams{
		Camera:       h.cam,
		Loader:       h.loader,
		Scheduler:    NewScheduler(context.Background(), DefaultConcurrency),
		MinLevel:     minLevel,
		MaxLevel:     maxLevel,
		LODThreshold: 1,
	}
	return h
}

func (h *harness) frame() {
	h.params.Scheduler.Drain()
	h.root.Update(h.params)
}

func (h *harness) settle(t *testing.T) {
	t.Helper()
	require.NoError(t, h.params.Scheduler.Settle(context.Background()))
}

func TestChildrenLayout(t *testing.T) {
	h := newHarness(0, 0, 1, 1000)
	h.root.createChildren()

	kids := h.root.Children()
	require.Len(t, kids, 4)
	want := []maptile.Tile{
		tileid.New(0, 0, 1), tileid.New(1, 0, 1),
		tileid.New(0, 1, 1), tileid.New(1, 1, 1),
	}
	for i, c := range kids {
		require.Equal(t, want[i], c.Coord())
		require.Same(t, h.root, c.Parent())
	}

	// Row 0 is north.
	require.InDelta(t, -250, kids[0].Center().X, 1e-9)
	require.InDelta(t, 250, kids[0].Center().Y, 1e-9)
	require.InDelta(t, 250, kids[3].Center().X, 1e-9)
	require.InDelta(t, -250, kids[3].Center().Y, 1e-9)
	require.InDelta(t, h.root.Diagonal()/2, kids[0].Diagonal(), 1e-9)

	b := kids[1].Bounds()
	require.InDelta(t, 0, b.Min.X, 1e-9)
	require.InDelta(t, 500, b.Max.X, 1e-9)
	require.InDelta(t, -300, b.Min.Z, 1e-9)
	require.InDelta(t, 9000, b.Max.Z, 1e-9)
}

func TestUpdateSkipsDetachedTile(t *testing.T) {
	h := newHarness(0, 0, 5, 10)
	lone := New(0, 0, 0)
	lone.Update(h.params)

	require.Nil(t, lone.Children())
	require.Equal(t, Unloaded, lone.State())
	require.Zero(t, h.params.Scheduler.InFlight())
}

func TestRootLoadsAndShows(t *testing.T) {
	h := newHarness(0, 0, 0, 100000)

	h.frame()
	require.Equal(t, Loading, h.root.State())
	h.frame()
	require.Equal(t, Loading, h.root.State())
	require.Equal(t, 1, h.params.Scheduler.InFlight(), "loading tiles are not requested again")

	h.settle(t)
	require.EqualValues(t, 1, h.loader.loads.Load())
	require.Equal(t, Loaded, h.root.State())
	require.True(t, h.root.Visible())
}

func TestBelowMinLevelNeverLoads(t *testing.T) {
	h := newHarness(0, 1, 1, 100000)
	h.frame()
	h.settle(t)
	require.Equal(t, Unloaded, h.root.State())
	require.Zero(t, h.loader.loads.Load())
}

func TestSiblingsRevealTogether(t *testing.T) {
	h := newHarness(0, 0, 1, 500)

	h.frame()
	h.settle(t)
	require.True(t, h.root.Visible())

	h.frame()
	require.Len(t, h.root.Children(), 4)
	require.Equal(t, 4, h.params.Scheduler.InFlight())

	for i := range 4 {
		require.NoError(t, h.params.Scheduler.ApplyNext(context.Background()))
		if i < 3 {
			require.True(t, h.root.Visible(), "parent stays until every sibling is ready")
			for _, c := range h.root.Children() {
				require.False(t, c.Visible())
			}
			continue
		}
		require.False(t, h.root.Visible())
		for _, c := range h.root.Children() {
			require.True(t, c.Visible())
		}
	}
}

func TestLeafWithoutModeledParentShowsAlone(t *testing.T) {
	h := newHarness(0, 1, 1, 500)

	h.frame()
	require.Len(t, h.root.Children(), 4)
	require.NoError(t, h.params.Scheduler.ApplyNext(context.Background()))

	shown := 0
	for _, c := range h.root.Children() {
		if c.Visible() {
			shown++
		}
	}
	require.Equal(t, 1, shown)
}

// splitLoaded returns a harness whose z=1 tile is loaded and split into four
// loaded, visible children at the maximum level.
func splitLoaded(t *testing.T) *harness {
	t.Helper()
	h := newHarness(1, 0, 2, 500)
	h.frame()
	h.settle(t)
	h.frame()
	h.settle(t)
	require.Len(t, h.root.Children(), 4)
	for _, c := range h.root.Children() {
		require.True(t, c.Visible())
	}
	return h
}

func TestMergeHysteresis(t *testing.T) {
	h := splitLoaded(t)

	// Ratio between the split and merge thresholds: nothing changes.
	for _, z := range []float64{2000, 3000} {
		h.cam.moveTo(z)
		h.frame()
		require.Len(t, h.root.Children(), 4)
	}

	h.cam.moveTo(4000)
	h.frame()
	require.Nil(t, h.root.Children())
	require.True(t, h.root.Visible())
	require.EqualValues(t, 4, h.loader.unloads.Load())
	require.Equal(t, 1, h.loader.renderer.Stats().MeshesLive)

	// Back inside the band: still merged.
	h.cam.moveTo(2000)
	h.frame()
	require.Nil(t, h.root.Children())

	h.cam.moveTo(1500)
	h.frame()
	require.Len(t, h.root.Children(), 4)
}

func TestOffscreenTilesDoNotSplit(t *testing.T) {
	h := newHarness(0, 0, 3, 500)
	h.frame()
	h.settle(t)

	h.cam.visible = false
	h.frame()
	require.Nil(t, h.root.Children())
}

func TestConcurrencyCap(t *testing.T) {
	h := newHarness(0, 2, 3, 1)
	h.loader.block = func(maptile.Tile) bool { return true }

	for range 5 {
		h.frame()
		require.LessOrEqual(t, h.params.Scheduler.InFlight(), DefaultConcurrency)
	}
	require.Equal(t, DefaultConcurrency, h.params.Scheduler.InFlight())
	require.Eventually(t, func() bool {
		return h.loader.loads.Load() == DefaultConcurrency
	}, time.Second, time.Millisecond)

	close(h.loader.gate)
	for range 20 {
		h.frame()
		require.LessOrEqual(t, h.params.Scheduler.InFlight(), DefaultConcurrency)
		h.settle(t)
	}

	require.Greater(t, h.loader.loads.Load(), int32(DefaultConcurrency))
	h.loader.mu.Lock()
	defer h.loader.mu.Unlock()
	require.LessOrEqual(t, h.loader.maxActive, DefaultConcurrency)
}

func TestLateLoadAfterMergeIsDisposed(t *testing.T) {
	h := newHarness(1, 0, 2, 500)
	h.loader.block = func(t maptile.Tile) bool { return t.Z == 2 }

	h.frame()
	h.settle(t)
	h.frame()
	require.Len(t, h.root.Children(), 4)
	require.Equal(t, 4, h.params.Scheduler.InFlight())

	h.cam.moveTo(4000)
	h.frame()
	require.Nil(t, h.root.Children())

	close(h.loader.gate)
	h.settle(t)

	require.EqualValues(t, 4, h.loader.unloads.Load())
	stats := h.loader.renderer.Stats()
	require.Equal(t, 1, stats.MeshesLive)
	require.Equal(t, 1, stats.VisibleMeshes)
}

func TestUnloadDuringUpdate(t *testing.T) {
	h := newHarness(0, 0, 0, 100000)
	h.frame()
	h.settle(t)

	h.root.Refresh(true, false)
	h.frame()
	require.Equal(t, Updating, h.root.State())

	h.root.Unload(h.loader, true)
	require.Equal(t, Unloaded, h.root.State())
	require.Zero(t, h.loader.unloads.Load(), "the update still owns the mesh")
	require.Equal(t, 1, h.loader.renderer.Stats().MeshesLive)

	h.settle(t)
	require.EqualValues(t, 1, h.loader.unloads.Load())
	require.Zero(t, h.loader.renderer.Stats().MeshesLive)
	require.Nil(t, h.root.Model())

	h.frame()
	h.settle(t)
	require.Equal(t, Loaded, h.root.State())
}

func TestFailedLoadLeavesTileUnloaded(t *testing.T) {
	h := newHarness(0, 0, 0, 100000)
	h.loader.failNext.Store(1)

	h.frame()
	h.settle(t)
	require.Equal(t, Unloaded, h.root.State())
	require.Nil(t, h.root.Model())

	h.frame()
	h.settle(t)
	require.Equal(t, Loaded, h.root.State())
	require.EqualValues(t, 2, h.loader.loads.Load())
}

func TestRefreshWaitsForChildren(t *testing.T) {
	h := splitLoaded(t)

	h.root.Refresh(true, false)
	h.root.Walk(func(d *Tile) {
		require.Equal(t, Dirty, d.State())
	})

	h.frame()
	require.Equal(t, Dirty, h.root.State(), "parent waits while children are dirty")
	for _, c := range h.root.Children() {
		require.Equal(t, Updating, c.State())
	}
	h.settle(t)
	require.EqualValues(t, 4, h.loader.updates.Load())

	h.frame()
	h.settle(t)
	require.EqualValues(t, 5, h.loader.updates.Load())
	h.root.Walk(func(d *Tile) {
		require.Equal(t, Loaded, d.State())
	})
}

func TestRefreshSkipsOffscreenTiles(t *testing.T) {
	h := newHarness(0, 0, 0, 100000)
	h.frame()
	h.settle(t)

	h.root.Refresh(false, true)
	h.cam.visible = false
	h.frame()
	require.Equal(t, Dirty, h.root.State())
	require.Zero(t, h.loader.updates.Load())
}

func TestRefreshIgnoresUnloadedTiles(t *testing.T) {
	h := newHarness(0, 1, 1, 100000)
	h.root.Refresh(true, true)
	require.Equal(t, Unloaded, h.root.State())
	require.False(t, h.root.needsMaterial)
}

func TestUnloadKeepsSelf(t *testing.T) {
	h := splitLoaded(t)

	h.root.Unload(h.loader, false)
	require.Nil(t, h.root.Children())
	require.NotNil(t, h.root.Model())
	require.EqualValues(t, 4, h.loader.unloads.Load())

	h.root.Unload(h.loader, true)
	require.Nil(t, h.root.Model())
	require.Equal(t, Unloaded, h.root.State())
	require.Zero(t, h.loader.renderer.Stats().MeshesLive)
}

func TestStateString(t *testing.T) {
	require.Equal(t, "dirty", Dirty.String())
	require.Equal(t, "unknown", State(42).String())
}
