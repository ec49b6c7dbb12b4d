package config

import (
	"flag"
	"fmt"
	"strconv"
)

var (
	flagConfig   = flag.String("config", "", "Path to config file")
	flagDebug    = flag.Bool("debug", false, "Enable debug logging")
	flagTiles    = flag.String("tiles", "", "Tile directory")
	flagMBTiles  = flag.String("mbtiles", "", "MBTiles archive searched before the tile directory")
	flagFrames   = flag.Int("frames", 0, "Number of frames to simulate")
	flagLon0     = flag.String("lon0", "", "Central meridian: -90, 0 or 90")
	flagMaxLevel = flag.Int("max-level", 0, "Deepest zoom level")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// ConfigPath returns the explicit config path if provided via -config flag.
func ConfigPath() string {
	return *flagConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) error {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagTiles != "" {
		cfg.Fetch.TilesDir = *flagTiles
	}
	if *flagMBTiles != "" {
		cfg.Fetch.MBTiles = append(cfg.Fetch.MBTiles, *flagMBTiles)
	}
	if *flagFrames > 0 {
		cfg.Sim.Frames = *flagFrames
	}
	if *flagLon0 != "" {
		lon0, err := strconv.ParseFloat(*flagLon0, 64)
		if err != nil {
			return fmt.Errorf("parsing -lon0: %w", err)
		}
		cfg.Map.Lon0 = lon0
	}
	if *flagMaxLevel > 0 {
		cfg.Map.MaxLevel = *flagMaxLevel
	}
	return nil
}
