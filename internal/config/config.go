// Package config handles tilesim configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/paulmach/orb"

	"github.com/Faultbox/geotiles/internal/fetch"
	"github.com/Faultbox/geotiles/internal/source"
)

// ErrBadBounds is returned for map bounds that are not four numbers.
var ErrBadBounds = errors.New("map bounds must be [minLon, minLat, maxLon, maxLat]")

// Config holds all settings.
type Config struct {
	Map     MapConfig     `yaml:"map"`
	Sources SourcesConfig `yaml:"sources"`
	Fetch   FetchConfig   `yaml:"fetch"`
	Sim     SimConfig     `yaml:"sim"`
	Logging LoggingConfig `yaml:"logging"`
}

// MapConfig holds level-of-detail and projection settings.
type MapConfig struct {
	MinLevel     int       `yaml:"min_level"`
	MaxLevel     int       `yaml:"max_level"`
	LODThreshold float64   `yaml:"lod_threshold"`
	Lon0         float64   `yaml:"lon0"`
	Bounds       []float64 `yaml:"bounds,flow,omitempty"` // [minLon, minLat, maxLon, maxLat]
	Concurrency  int       `yaml:"concurrency"`
}

// SourcesConfig holds the tile sources. The first image source is drawn.
type SourcesConfig struct {
	Images    []*source.Source `yaml:"images"`
	Elevation *source.Source   `yaml:"elevation,omitempty"`
}

// FetchConfig holds where tile bytes come from.
type FetchConfig struct {
	TilesDir  string        `yaml:"tiles_dir"`
	MBTiles   []string      `yaml:"mbtiles"`
	CacheSize int           `yaml:"cache_size"`
	Timeout   time.Duration `yaml:"timeout"`
}

// SimConfig holds the scripted camera flight.
type SimConfig struct {
	Frames        int           `yaml:"frames"`
	FrameInterval time.Duration `yaml:"frame_interval"`
	Width         int           `yaml:"width"`
	Height        int           `yaml:"height"`
	Lon           float64       `yaml:"lon"`
	Lat           float64       `yaml:"lat"`
	StartDistance float64       `yaml:"start_distance"`
	EndDistance   float64       `yaml:"end_distance"`
	Progress      bool          `yaml:"progress"`
	// SnapshotDir receives a coverage PNG of the final frame when set.
	SnapshotDir string `yaml:"snapshot_dir,omitempty"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	Format  string `yaml:"format"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Map: MapConfig{
			MinLevel:     2,
			MaxLevel:     19,
			LODThreshold: 1,
			Lon0:         0,
			Concurrency:  10,
		},
		Sources: SourcesConfig{
			Images: []*source.Source{source.New("image", "{z}/{x}/{y}.png")},
		},
		Fetch: FetchConfig{
			TilesDir:  "tiles",
			CacheSize: fetch.DefaultCacheSize,
			Timeout:   10 * time.Second,
		},
		Sim: SimConfig{
			Frames:        300,
			Width:         1280,
			Height:        720,
			StartDistance: 2e7,
			EndDistance:   2e4,
			Progress:      true,
		},
		Logging: LoggingConfig{
			Level:   "info",
			Format:  "console",
			LogFile: "",
		},
	}
}

// Bound returns the configured map bounds. ok is false when none are set.
func (m MapConfig) Bound() (b orb.Bound, ok bool, err error) {
	if len(m.Bounds) == 0 {
		return orb.Bound{}, false, nil
	}
	if len(m.Bounds) != 4 {
		return orb.Bound{}, false, fmt.Errorf("%w: got %d values", ErrBadBounds, len(m.Bounds))
	}
	return orb.Bound{
		Min: orb.Point{m.Bounds[0], m.Bounds[1]},
		Max: orb.Point{m.Bounds[2], m.Bounds[3]},
	}, true, nil
}

// Validate checks the sources and map settings.
func (c *Config) Validate() error {
	for i, s := range c.Sources.Images {
		s.ApplyDefaults()
		if err := s.Validate(); err != nil {
			return fmt.Errorf("image source %d: %w", i, err)
		}
	}
	if e := c.Sources.Elevation; e != nil {
		e.ApplyDefaults()
		if err := e.Validate(); err != nil {
			return fmt.Errorf("elevation source: %w", err)
		}
	}
	if _, _, err := c.Map.Bound(); err != nil {
		return err
	}
	return nil
}
