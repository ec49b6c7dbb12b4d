package main

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Faultbox/geotiles/internal/config"
)

func TestDistanceAt(t *testing.T) {
	cfg := config.Default()
	cfg.Sim.Frames = 3
	cfg.Sim.StartDistance = 1e6
	cfg.Sim.EndDistance = 1e4
	s := &sim{cfg: cfg}

	require.InDelta(t, 1e6, s.distanceAt(0), 1e-6)
	require.InDelta(t, 1e5, s.distanceAt(1), 1e-6)
	require.InDelta(t, 1e4, s.distanceAt(2), 1e-6)

	cfg.Sim.Frames = 1
	require.Equal(t, 1e4, s.distanceAt(0))
}

func TestSimRun(t *testing.T) {
	dir := t.TempDir()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 4))))
	tilePath := filepath.Join(dir, "2", "1", "1.png")
	require.NoError(t, os.MkdirAll(filepath.Dir(tilePath), 0755))
	require.NoError(t, os.WriteFile(tilePath, buf.Bytes(), 0644))

	cfg := config.Default()
	cfg.Fetch.TilesDir = dir
	cfg.Map.MaxLevel = 3
	cfg.Sim.Frames = 5
	cfg.Sim.StartDistance = 2e7
	cfg.Sim.EndDistance = 1e7
	cfg.Sim.Progress = false
	cfg.Sim.Width = 64
	cfg.Sim.SnapshotDir = filepath.Join(dir, "shots")
	require.NoError(t, cfg.Validate())

	s, err := newSim(cfg)
	require.NoError(t, err)

	r, err := s.run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 5, r.Frames)
	require.NotZero(t, r.Loads.Total)
	require.Zero(t, r.Map.InFlight)
	require.NotZero(t, r.Renderer.MeshesLive)

	var out strings.Builder
	r.print(&out)
	require.Contains(t, out.String(), "Frames:     5")
	require.FileExists(t, r.Snapshot)

	require.NoError(t, s.close())
	require.Zero(t, s.renderer.Stats().MeshesLive)
	require.Zero(t, s.renderer.Stats().MaterialsLive)
}
