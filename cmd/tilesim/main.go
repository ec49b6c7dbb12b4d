// Command tilesim flies a headless camera over a tile map and reports how the
// quadtree loads, refines and releases tiles along the way.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"go.uber.org/zap"

	"github.com/Faultbox/geotiles/internal/config"
	"github.com/Faultbox/geotiles/internal/logger"
)

func main() {
	// Parse CLI flags first
	config.ParseFlags()

	if len(os.Args) > 1 && (os.Args[1] == "help" || os.Args[1] == "-h" || os.Args[1] == "--help") {
		printUsage()
		return
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		printUsage()
		os.Exit(1)
	}

	// Initialize logger
	err = logger.InitWithOptions(logger.Options{
		Level:   cfg.Logging.Level,
		Format:  cfg.Logging.Format,
		Console: true,
		File:    logFile(cfg.Logging.LogFile),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("=== tilesim ===")
	logger.Sugar.Debugf("Config: %+v", cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	s, err := newSim(cfg)
	if err != nil {
		logger.Error("failed to set up simulation", zap.Error(err))
		os.Exit(1)
	}

	report, runErr := s.run(ctx)
	if err := s.close(); err != nil {
		logger.Warn("close failed", zap.Error(err))
	}
	if runErr != nil {
		logger.Error("simulation error", zap.Error(runErr))
		os.Exit(1)
	}

	report.print(os.Stdout)
}

func logFile(path string) logger.FileConfig {
	if path == "" {
		return logger.FileConfig{}
	}
	return logger.DefaultFileConfig(path)
}

func printUsage() {
	fmt.Println(`tilesim - headless quadtree tile map simulator

Usage:
  tilesim [options]

Options:
  -config <file>     Config file (default ./config.yaml, then the user config dir)
  -tiles <dir>       Tile directory; image URLs are paths below it
  -mbtiles <file>    MBTiles archive searched before the tile directory
  -frames <n>        Number of frames to simulate
  -lon0 <deg>        Central meridian: -90, 0 or 90
  -max-level <z>     Deepest zoom level
  -debug             Enable debug logging

Examples:
  tilesim -tiles ./tiles -frames 600
  tilesim -mbtiles world.mbtiles -max-level 8
  tilesim -config flight.yaml -lon0 90`)
}
