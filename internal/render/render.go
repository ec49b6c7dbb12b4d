// Package render defines what the tile engine needs from a host renderer.
// The engine creates meshes and materials through a Renderer and never
// touches GPU state itself.
package render

import (
	"image"
	"image/color"

	"github.com/Faultbox/geotiles/pkg/geometry"
)

// MaterialSpec describes a tile surface.
type MaterialSpec struct {
	Name        string
	Texture     image.Image // nil for a plain colour
	Color       color.RGBA
	Opacity     float64
	Transparent bool
}

// Material is a renderer-owned surface.
type Material interface {
	Name() string
	Dispose()
}

// Mesh is a renderer-owned drawable node.
type Mesh interface {
	Name() string
	SetGeometry(g *geometry.Data)
	Geometry() *geometry.Data
	SetMaterial(m Material)
	Material() Material
	SetVisible(v bool)
	Visible() bool
	Dispose()
}

// Renderer creates meshes and materials.
type Renderer interface {
	NewMesh(name string) Mesh
	NewMaterial(spec MaterialSpec) Material
}
