package tilemap

import (
	"fmt"
	"slices"

	"github.com/paulmach/orb"
	"go.uber.org/zap"

	"github.com/Faultbox/geotiles/internal/logger"
	"github.com/Faultbox/geotiles/internal/source"
	"github.com/Faultbox/geotiles/pkg/projection"
)

// setProjection swaps the projection. Tile addressing depends on it, so a
// change rebuilds the whole tree.
func (m *Map) setProjection(p *projection.Projection) bool {
	cur := m.loader.Projection()
	if p.ID == cur.ID && p.Lon0 == cur.Lon0 {
		return false
	}
	m.loader.SetProjection(p)
	m.resize()
	m.Reload()
	logger.Info("projection changed",
		zap.String("projection", string(p.ID)),
		zap.Float64("lon0", p.Lon0))
	return true
}

// SetProjection switches to projection id, keeping the central meridian.
func (m *Map) SetProjection(id projection.ID) error {
	p, err := projection.New(id, m.Lon0())
	if err != nil {
		return fmt.Errorf("tilemap: %w", err)
	}
	m.setProjection(p)
	return nil
}

// SetLon0 moves the central meridian. Only -90, 0 and 90 are allowed.
func (m *Map) SetLon0(lon0 float64) error {
	p, err := projection.New(m.Projection().ID, lon0)
	if err != nil {
		return fmt.Errorf("tilemap: %w", err)
	}
	m.setProjection(p)
	return nil
}

// SetImageSources replaces the imagery. The first source decides the
// projection and the tiles that are drawn; when either changes the tree is
// rebuilt. Otherwise only materials are refreshed.
func (m *Map) SetImageSources(srcs ...*source.Source) error {
	if len(srcs) == 0 {
		return ErrEmptySource
	}
	if err := validateSources(srcs, nil); err != nil {
		return err
	}
	p, err := projection.New(srcs[0].ProjectionID, m.Lon0())
	if err != nil {
		return fmt.Errorf("tilemap: %w", err)
	}

	prev := m.loader.ImageSources()
	m.loader.SetImageSources(srcs)
	if m.setProjection(p) {
		return nil
	}
	if len(prev) == 0 || !sameTiles(prev[0], srcs[0]) {
		m.Reload()
		logger.Info("primary image source changed",
			zap.String("data_type", srcs[0].DataType),
			zap.String("url", srcs[0].URL))
		return nil
	}
	m.root.Refresh(true, false)
	return nil
}

// sameTiles reports whether a and b address the same tiles.
func sameTiles(a, b *source.Source) bool {
	return a.DataType == b.DataType &&
		a.URL == b.URL &&
		a.TMS == b.TMS &&
		a.ProjectionID == b.ProjectionID &&
		a.MinLevel == b.MinLevel &&
		a.MaxLevel == b.MaxLevel &&
		slices.Equal(a.Bounds, b.Bounds) &&
		slices.Equal(a.Subdomains, b.Subdomains)
}

// SetElevationSource replaces the terrain source and refreshes geometry.
// nil flattens the map.
func (m *Map) SetElevationSource(src *source.Source) error {
	if src != nil {
		if err := src.Validate(); err != nil {
			return fmt.Errorf("tilemap: elevation source: %w", err)
		}
	}
	m.loader.SetElevationSource(src)
	m.root.Refresh(false, true)
	return nil
}

// SetBounds limits fetching to b for tiles loaded from now on.
func (m *Map) SetBounds(b orb.Bound) {
	m.loader.SetBounds(b)
}

// SetLevels sets the zoom range.
func (m *Map) SetLevels(minLevel, maxLevel int) error {
	if err := validateLevels(minLevel, maxLevel); err != nil {
		return err
	}
	m.minLevel, m.maxLevel = minLevel, maxLevel
	return nil
}

// SetLODThreshold sets the split threshold; tiles merge beyond twice this value.
func (m *Map) SetLODThreshold(v float64) error {
	if v <= 0 {
		return fmt.Errorf("%w: %v", ErrInvalidLOD, v)
	}
	m.lodThreshold = v
	return nil
}
