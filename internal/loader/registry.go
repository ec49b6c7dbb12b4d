package loader

import (
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/Faultbox/geotiles/internal/fetch"
	"github.com/Faultbox/geotiles/internal/logger"
	"github.com/Faultbox/geotiles/internal/render"
)

// Kind tells material loaders from geometry loaders.
type Kind string

const (
	KindMaterial Kind = "material"
	KindGeometry Kind = "geometry"
)

// Registered describes one entry of a Registry.
type Registered struct {
	DataType string
	Kind     Kind
	Info     Info
}

// Registry maps data types to loaders. Registering a data type twice
// replaces the earlier loader.
type Registry struct {
	mu         sync.RWMutex
	materials  map[string]MaterialLoader
	geometries map[string]GeometryLoader
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		materials:  make(map[string]MaterialLoader),
		geometries: make(map[string]GeometryLoader),
	}
}

// NewDefaultRegistry creates a registry holding the built-in loaders:
// "image" materials and "flat", "terrain-rgb" and "hgt" geometries.
func NewDefaultRegistry(r render.Renderer, f fetch.Fetcher) *Registry {
	reg := NewRegistry()
	reg.RegisterMaterial(NewImageLoader(r, f))
	reg.RegisterGeometry(FlatLoader{})
	reg.RegisterGeometry(NewTerrainRGBLoader(f))
	reg.RegisterGeometry(NewHGTLoader(f))
	return reg
}

// RegisterMaterial adds a material loader.
func (r *Registry) RegisterMaterial(l MaterialLoader) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.materials[l.DataType()]; ok {
		logger.Warn("material loader already registered, overwriting", zap.String("data_type", l.DataType()))
	}
	r.materials[l.DataType()] = l
}

// RegisterGeometry adds a geometry loader.
func (r *Registry) RegisterGeometry(l GeometryLoader) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.geometries[l.DataType()]; ok {
		logger.Warn("geometry loader already registered, overwriting", zap.String("data_type", l.DataType()))
	}
	r.geometries[l.DataType()] = l
}

// Material returns the material loader for dataType.
func (r *Registry) Material(dataType string) (MaterialLoader, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.materials[dataType]
	if !ok {
		return nil, fmt.Errorf("%w: material %q", ErrMissingLoader, dataType)
	}
	return l, nil
}

// Geometry returns the geometry loader for dataType.
func (r *Registry) Geometry(dataType string) (GeometryLoader, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.geometries[dataType]
	if !ok {
		return nil, fmt.Errorf("%w: geometry %q", ErrMissingLoader, dataType)
	}
	return l, nil
}

// Loaders lists every registered loader, materials first, by data type.
func (r *Registry) Loaders() []Registered {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Registered, 0, len(r.materials)+len(r.geometries))
	for _, l := range r.materials {
		out = append(out, Registered{DataType: l.DataType(), Kind: KindMaterial, Info: l.Info()})
	}
	for _, l := range r.geometries {
		out = append(out, Registered{DataType: l.DataType(), Kind: KindGeometry, Info: l.Info()})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return out[i].Kind == KindMaterial
		}
		return out[i].DataType < out[j].DataType
	})
	return out
}
