// Package geometry builds tile meshes from elevation rasters.
package geometry

import (
	"errors"
	"fmt"
	"math"
)

// DefaultSkirtHeight is how far skirt walls drop below the tile edge.
const DefaultSkirtHeight = 1000

// ErrInvalidInput is returned for elevation rasters that cannot form a grid.
var ErrInvalidInput = errors.New("invalid elevation input")

// IndexFormat is the element width of an index buffer.
type IndexFormat int

const (
	Uint16 IndexFormat = iota
	Uint32
)

func (f IndexFormat) String() string {
	if f == Uint16 {
		return "uint16"
	}
	return "uint32"
}

// Data is an indexed triangle mesh with per-vertex position, texcoord and normal.
type Data struct {
	Position []float32 // xyz
	TexCoord []float32 // uv
	Normal   []float32 // xyz
	Indices  []uint32
}

// VertexCount returns the number of vertices.
func (d *Data) VertexCount() int {
	return len(d.Position) / 3
}

// IndexFormat reports the narrowest index width that can address every vertex.
func (d *Data) IndexFormat() IndexFormat {
	if d.VertexCount() <= math.MaxUint16+1 {
		return Uint16
	}
	return Uint32
}

// Indices16 returns the index buffer narrowed to 16 bits.
// Returns false if the mesh has too many vertices.
func (d *Data) Indices16() ([]uint16, bool) {
	if d.IndexFormat() != Uint16 {
		return nil, false
	}
	out := make([]uint16, len(d.Indices))
	for i, v := range d.Indices {
		out[i] = uint16(v)
	}
	return out, true
}

// Validate checks attribute lengths agree and every index addresses a vertex.
func (d *Data) Validate() error {
	n := d.VertexCount()
	if len(d.Position)%3 != 0 {
		return fmt.Errorf("%w: position length %d is not a multiple of 3", ErrInvalidInput, len(d.Position))
	}
	if len(d.TexCoord)/2 != n {
		return fmt.Errorf("%w: %d texcoords for %d vertices", ErrInvalidInput, len(d.TexCoord)/2, n)
	}
	if len(d.Normal) != 0 && len(d.Normal) != len(d.Position) {
		return fmt.Errorf("%w: %d normals for %d vertices", ErrInvalidInput, len(d.Normal)/3, n)
	}
	if len(d.Indices)%3 != 0 {
		return fmt.Errorf("%w: index count %d is not a multiple of 3", ErrInvalidInput, len(d.Indices))
	}
	for i, idx := range d.Indices {
		if int(idx) >= n {
			return fmt.Errorf("%w: index %d at %d out of range (%d vertices)", ErrInvalidInput, idx, i, n)
		}
	}
	return nil
}

// Clone returns a deep copy.
func (d *Data) Clone() *Data {
	return &Data{
		Position: append([]float32(nil), d.Position...),
		TexCoord: append([]float32(nil), d.TexCoord...),
		Normal:   append([]float32(nil), d.Normal...),
		Indices:  append([]uint32(nil), d.Indices...),
	}
}

// FromElevation triangulates a square elevation raster.
// The raster side is floor(sqrt(len(dem))); trailing samples are ignored.
// Raster rows run north to south so row order is flipped to make +Y north.
func FromElevation(dem []float32) (*Data, error) {
	if len(dem) < 4 {
		return nil, fmt.Errorf("%w: need at least 4 samples, got %d", ErrInvalidInput, len(dem))
	}
	size := int(math.Sqrt(float64(len(dem))))

	pos := make([]float32, 0, size*size*3)
	uv := make([]float32, 0, size*size*2)
	step := 1 / float32(size-1)

	for y := range size {
		for x := range size {
			xn := float32(x) * step
			yn := float32(y) * step
			uv = append(uv, xn, yn)
			pos = append(pos, xn-0.5, yn-0.5, dem[(size-1-y)*size+x])
		}
	}

	indices := GridIndices(size, size)
	return &Data{
		Position: pos,
		TexCoord: uv,
		Normal:   ComputeNormals(pos, indices),
		Indices:  indices,
	}, nil
}

// FromElevationWithSkirt triangulates the raster and drops a skirt around it.
func FromElevationWithSkirt(dem []float32, skirtHeight float32) (*Data, error) {
	d, err := FromElevation(dem)
	if err != nil {
		return nil, err
	}
	return AddSkirt(d, skirtHeight), nil
}

// GridIndices returns two triangles per cell of a rows x cols vertex grid.
func GridIndices(rows, cols int) []uint32 {
	if rows < 2 || cols < 2 {
		return nil
	}
	indices := make([]uint32, 0, 6*(rows-1)*(cols-1))
	for y := 0; y < rows-1; y++ {
		for x := 0; x < cols-1; x++ {
			a := uint32(y*cols + x)
			b := a + 1
			c := a + uint32(cols)
			d := c + 1
			indices = append(indices, a, b, c, c, b, d)
		}
	}
	return indices
}

// ComputeNormals returns flat per-face normals.
// Shared vertices take the normal of the last triangle that touches them.
func ComputeNormals(pos []float32, indices []uint32) []float32 {
	normals := make([]float32, len(pos))
	for i := 0; i+2 < len(indices); i += 3 {
		i0, i1, i2 := indices[i]*3, indices[i+1]*3, indices[i+2]*3
		v0 := [3]float32{pos[i0], pos[i0+1], pos[i0+2]}
		v1 := [3]float32{pos[i1], pos[i1+1], pos[i1+2]}
		v2 := [3]float32{pos[i2], pos[i2+1], pos[i2+2]}

		edge1 := [3]float32{v1[0] - v0[0], v1[1] - v0[1], v1[2] - v0[2]}
		edge2 := [3]float32{v2[0] - v0[0], v2[1] - v0[1], v2[2] - v0[2]}
		n := normalize(cross(edge1, edge2))

		for _, base := range [3]uint32{i0, i1, i2} {
			normals[base] = n[0]
			normals[base+1] = n[1]
			normals[base+2] = n[2]
		}
	}
	return normals
}

// Plane returns the default flat tile: a 2x2 grid at zero height without skirt.
func Plane() *Data {
	d, _ := FromElevation(make([]float32, 4))
	return d
}

func cross(a, b [3]float32) [3]float32 {
	return [3]float32{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}

func normalize(v [3]float32) [3]float32 {
	l := float32(math.Sqrt(float64(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])))
	if l == 0 {
		return [3]float32{0, 0, 1}
	}
	return [3]float32{v[0] / l, v[1] / l, v[2] / l}
}
