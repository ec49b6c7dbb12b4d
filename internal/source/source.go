// Package source describes tile data sources: where tiles come from and how
// their addresses are built.
package source

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"

	"github.com/Faultbox/geotiles/pkg/projection"
	"github.com/Faultbox/geotiles/pkg/tileid"
)

// Defaults applied to zero-valued fields.
const (
	DefaultMinLevel = 0
	DefaultMaxLevel = 18
	DefaultOpacity  = 1.0
)

// DefaultSubdomains are substituted for {s} when a source lists none.
var DefaultSubdomains = []string{"a", "b", "c"}

// DefaultBound is the lon/lat extent assumed when a source declares no bounds.
var DefaultBound = orb.Bound{
	Min: orb.Point{-180, -projection.MaxLatitude},
	Max: orb.Point{180, projection.MaxLatitude},
}

// Source errors.
var (
	ErrNoDataType = errors.New("source has no data type")
	ErrNoURL      = errors.New("source has no url template")
	ErrBadLevels  = errors.New("source min level exceeds max level")
	ErrBadBounds  = errors.New("source bounds must be [minLon, minLat, maxLon, maxLat]")
)

// Source declares a tile dataset.
// URL templates may use {x}, {y}, {z} and {s} placeholders.
type Source struct {
	DataType     string        `yaml:"data_type"`
	URL          string        `yaml:"url"`
	Attribution  string        `yaml:"attribution,omitempty"`
	MinLevel     int           `yaml:"min_level"`
	MaxLevel     int           `yaml:"max_level"`
	ProjectionID projection.ID `yaml:"projection"`
	Opacity      float64       `yaml:"opacity"`
	Transparent  bool          `yaml:"transparent,omitempty"`
	TMS          bool          `yaml:"tms,omitempty"`
	Bounds       []float64     `yaml:"bounds,flow,omitempty"`
	Subdomains   []string      `yaml:"subdomains,flow,omitempty"`
}

// New creates a source with defaults for everything but type and template.
func New(dataType, url string) *Source {
	s := &Source{DataType: dataType, URL: url}
	s.ApplyDefaults()
	return s
}

// ApplyDefaults fills zero-valued fields.
func (s *Source) ApplyDefaults() {
	if s.MaxLevel == 0 {
		s.MaxLevel = DefaultMaxLevel
	}
	if s.ProjectionID == "" {
		s.ProjectionID = projection.Mercator
	}
	if s.Opacity == 0 {
		s.Opacity = DefaultOpacity
	}
}

// Validate checks the source is usable.
func (s *Source) Validate() error {
	if s.DataType == "" {
		return ErrNoDataType
	}
	if s.URL == "" {
		return fmt.Errorf("%w (data type %q)", ErrNoURL, s.DataType)
	}
	if s.MinLevel > s.MaxLevel {
		return fmt.Errorf("%w: %d > %d", ErrBadLevels, s.MinLevel, s.MaxLevel)
	}
	if len(s.Bounds) != 0 && len(s.Bounds) != 4 {
		return fmt.Errorf("%w: got %d values", ErrBadBounds, len(s.Bounds))
	}
	return nil
}

// Bound returns the declared lon/lat extent, or DefaultBound.
func (s *Source) Bound() orb.Bound {
	if len(s.Bounds) != 4 {
		return DefaultBound
	}
	return orb.Bound{
		Min: orb.Point{s.Bounds[0], s.Bounds[1]},
		Max: orb.Point{s.Bounds[2], s.Bounds[3]},
	}
}

// Covers reports whether the source has data at zoom z.
func (s *Source) Covers(z int) bool {
	return z >= s.MinLevel && z <= s.MaxLevel
}

// TileURL resolves the template for t.
// TMS sources count rows from the bottom.
func (s *Source) TileURL(t maptile.Tile) string {
	if s.TMS {
		t = tileid.FlipY(t)
	}

	r := strings.NewReplacer(
		"{x}", strconv.FormatUint(uint64(t.X), 10),
		"{y}", strconv.FormatUint(uint64(t.Y), 10),
		"{z}", strconv.FormatUint(uint64(t.Z), 10),
	)
	url := r.Replace(s.URL)

	if strings.Contains(url, "{s}") {
		subs := s.Subdomains
		if len(subs) == 0 {
			subs = DefaultSubdomains
		}
		url = strings.ReplaceAll(url, "{s}", subs[rand.IntN(len(subs))])
	}
	return url
}
