package tilemap

import "github.com/Faultbox/geotiles/internal/tile"

// Stats summarizes the tile tree.
type Stats struct {
	Tiles    int
	Leaves   int
	Visible  int
	Loading  int
	Updating int
	Dirty    int
	Depth    int
	InFlight int
}

// Stats walks the tree.
func (m *Map) Stats() Stats {
	s := Stats{InFlight: m.scheduler.InFlight()}
	m.root.Walk(func(t *tile.Tile) {
		s.Tiles++
		if t.IsLeaf() {
			s.Leaves++
		}
		if t.Visible() {
			s.Visible++
		}
		switch t.State() {
		case tile.Loading:
			s.Loading++
		case tile.Updating:
			s.Updating++
		case tile.Dirty:
			s.Dirty++
		}
		s.Depth = max(s.Depth, t.Z())
	})
	return s
}
