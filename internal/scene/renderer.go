// Package scene provides a headless renderer and an orbit camera for driving
// a tile map without a GPU.
package scene

import (
	"image/color"
	"sync"

	"github.com/Faultbox/geotiles/internal/render"
	"github.com/Faultbox/geotiles/pkg/geometry"
)

var (
	_ render.Renderer = (*Renderer)(nil)
	_ render.Mesh     = (*Mesh)(nil)
	_ render.Material = (*Material)(nil)
)

// Renderer is an in-memory render.Renderer that tracks live resources.
type Renderer struct {
	mu        sync.Mutex
	meshes    map[*Mesh]struct{}
	materials map[*Material]struct{}

	// Stats
	meshesCreated    int
	materialsCreated int
}

// RendererStats counts resources created and still alive.
type RendererStats struct {
	MeshesCreated    int
	MeshesLive       int
	MaterialsCreated int
	MaterialsLive    int
	VisibleMeshes    int
	Triangles        int
}

// NewRenderer creates an empty headless renderer.
func NewRenderer() *Renderer {
	return &Renderer{
		meshes:    make(map[*Mesh]struct{}),
		materials: make(map[*Material]struct{}),
	}
}

// NewMesh creates a hidden mesh.
func (r *Renderer) NewMesh(name string) render.Mesh {
	m := &Mesh{name: name, owner: r}
	r.mu.Lock()
	r.meshes[m] = struct{}{}
	r.meshesCreated++
	r.mu.Unlock()
	return m
}

// NewMaterial creates a material from spec.
func (r *Renderer) NewMaterial(spec render.MaterialSpec) render.Material {
	m := &Material{spec: spec, owner: r}
	r.mu.Lock()
	r.materials[m] = struct{}{}
	r.materialsCreated++
	r.mu.Unlock()
	return m
}

// Stats returns a snapshot of resource counts.
func (r *Renderer) Stats() RendererStats {
	r.mu.Lock()
	meshes := make([]*Mesh, 0, len(r.meshes))
	for m := range r.meshes {
		meshes = append(meshes, m)
	}
	s := RendererStats{
		MeshesCreated:    r.meshesCreated,
		MeshesLive:       len(r.meshes),
		MaterialsCreated: r.materialsCreated,
		MaterialsLive:    len(r.materials),
	}
	r.mu.Unlock()

	for _, m := range meshes {
		if m.Visible() {
			s.VisibleMeshes++
			if g := m.Geometry(); g != nil {
				s.Triangles += len(g.Indices) / 3
			}
		}
	}
	return s
}

// Meshes returns the live meshes.
func (r *Renderer) Meshes() []*Mesh {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Mesh, 0, len(r.meshes))
	for m := range r.meshes {
		out = append(out, m)
	}
	return out
}

func (r *Renderer) release(mesh *Mesh, mat *Material) {
	r.mu.Lock()
	if mesh != nil {
		delete(r.meshes, mesh)
	}
	if mat != nil {
		delete(r.materials, mat)
	}
	r.mu.Unlock()
}

// Mesh is a headless render.Mesh.
type Mesh struct {
	mu       sync.Mutex
	name     string
	geometry *geometry.Data
	material render.Material
	visible  bool
	disposed bool
	owner    *Renderer
}

func (m *Mesh) Name() string { return m.name }

func (m *Mesh) SetGeometry(g *geometry.Data) {
	m.mu.Lock()
	m.geometry = g
	m.mu.Unlock()
}

func (m *Mesh) Geometry() *geometry.Data {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.geometry
}

func (m *Mesh) SetMaterial(mat render.Material) {
	m.mu.Lock()
	m.material = mat
	m.mu.Unlock()
}

func (m *Mesh) Material() render.Material {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.material
}

func (m *Mesh) SetVisible(v bool) {
	m.mu.Lock()
	m.visible = v
	m.mu.Unlock()
}

func (m *Mesh) Visible() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.visible && !m.disposed
}

// Disposed reports whether Dispose has been called.
func (m *Mesh) Disposed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.disposed
}

// Dispose releases the mesh. Its material is left alone.
func (m *Mesh) Dispose() {
	m.mu.Lock()
	if m.disposed {
		m.mu.Unlock()
		return
	}
	m.disposed = true
	m.geometry = nil
	m.mu.Unlock()
	m.owner.release(m, nil)
}

// Material is a headless render.Material.
type Material struct {
	mu       sync.Mutex
	spec     render.MaterialSpec
	disposed bool
	owner    *Renderer
}

func (m *Material) Name() string { return m.spec.Name }

// Spec returns the description the material was created from.
func (m *Material) Spec() render.MaterialSpec { return m.spec }

// Color returns the base colour.
func (m *Material) Color() color.RGBA { return m.spec.Color }

// Disposed reports whether Dispose has been called.
func (m *Material) Disposed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.disposed
}

func (m *Material) Dispose() {
	m.mu.Lock()
	if m.disposed {
		m.mu.Unlock()
		return
	}
	m.disposed = true
	m.mu.Unlock()
	m.owner.release(nil, m)
}
