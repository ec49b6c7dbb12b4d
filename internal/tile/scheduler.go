package tile

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/Faultbox/geotiles/internal/logger"
	"github.com/Faultbox/geotiles/internal/render"
	"github.com/Faultbox/geotiles/pkg/tileid"
)

// DefaultConcurrency caps the loads and refreshes in flight across a tree.
const DefaultConcurrency = 10

// Op is an asynchronous tile operation.
type Op int

const (
	opNone Op = iota
	OpLoad
	OpUpdate
)

func (o Op) String() string {
	switch o {
	case OpLoad:
		return "load"
	case OpUpdate:
		return "update"
	default:
		return "none"
	}
}

type task struct {
	tile   *Tile
	op     Op
	epoch  uint64
	loader ModelLoader

	material bool
	geometry bool

	mesh render.Mesh
	err  error
}

// Scheduler runs tile operations on worker goroutines and hands their
// results back to the frame goroutine. At most limit operations are in
// flight; a slot is freed only when its result has been applied.
type Scheduler struct {
	ctx     context.Context
	limit   int64
	sem     *semaphore.Weighted
	results chan *task

	mu       sync.Mutex
	inFlight int
	pending  map[uint64]struct{}
}

// NewScheduler creates a scheduler whose operations run under ctx.
// A limit below one means DefaultConcurrency.
func NewScheduler(ctx context.Context, limit int) *Scheduler {
	if limit < 1 {
		limit = DefaultConcurrency
	}
	return &Scheduler{
		ctx:     ctx,
		limit:   int64(limit),
		sem:     semaphore.NewWeighted(int64(limit)),
		results: make(chan *task, limit),
		pending: make(map[uint64]struct{}),
	}
}

// Limit returns the concurrency cap.
func (s *Scheduler) Limit() int { return int(s.limit) }

// InFlight returns the number of operations not yet applied.
func (s *Scheduler) InFlight() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight
}

// Available reports whether a new operation would fit under the cap.
func (s *Scheduler) Available() bool {
	return s.InFlight() < int(s.limit)
}

// TrySubmit starts fn for tile t unless the cap is reached or an operation
// for the same coordinates is still pending.
func (s *Scheduler) TrySubmit(t *Tile, op Op, loader ModelLoader, fn func(context.Context) (render.Mesh, error)) bool {
	key := tileid.Key(t.coord)

	s.mu.Lock()
	if _, dup := s.pending[key]; dup {
		s.mu.Unlock()
		return false
	}
	if !s.sem.TryAcquire(1) {
		s.mu.Unlock()
		return false
	}
	s.pending[key] = struct{}{}
	s.inFlight++
	s.mu.Unlock()

	tk := &task{
		tile:     t,
		op:       op,
		epoch:    t.epoch,
		loader:   loader,
		material: t.needsMaterial,
		geometry: t.needsGeometry,
	}
	t.op = op

	go func() {
		tk.mesh, tk.err = fn(s.ctx)
		s.results <- tk
	}()
	return true
}

// Drain applies every finished operation without blocking and returns how
// many were applied.
func (s *Scheduler) Drain() int {
	n := 0
	for {
		select {
		case tk := <-s.results:
			s.apply(tk)
			n++
		default:
			return n
		}
	}
}

// ApplyNext blocks until one operation finishes and applies it.
func (s *Scheduler) ApplyNext(ctx context.Context) error {
	select {
	case tk := <-s.results:
		s.apply(tk)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Settle applies results until nothing is in flight.
func (s *Scheduler) Settle(ctx context.Context) error {
	for s.InFlight() > 0 {
		if err := s.ApplyNext(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (s *Scheduler) apply(tk *task) {
	s.mu.Lock()
	delete(s.pending, tileid.Key(tk.tile.coord))
	s.inFlight--
	s.mu.Unlock()
	s.sem.Release(1)

	tk.tile.finish(tk)
}

// finish applies a completed operation on the frame goroutine.
func (t *Tile) finish(tk *task) {
	if tk.epoch != t.epoch {
		// The tile was unloaded while the operation ran.
		if tk.mesh != nil {
			tk.loader.Unload(tk.mesh)
		}
		return
	}
	t.op = opNone

	if tk.err != nil {
		lvl := zap.WarnLevel
		if errors.Is(tk.err, context.Canceled) {
			lvl = zap.DebugLevel
		}
		logger.Log.Log(lvl, "tile operation failed",
			zap.Stringer("tile", t),
			zap.Stringer("op", tk.op),
			zap.Error(tk.err))
		if tk.op == OpUpdate {
			t.needsMaterial = t.needsMaterial || tk.material
			t.needsGeometry = t.needsGeometry || tk.geometry
		}
		return
	}

	t.model = tk.mesh
	if tk.op == OpLoad && t.model != nil && t.IsLeaf() {
		t.reveal()
	}
}
