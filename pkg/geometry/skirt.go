package geometry

import (
	"cmp"
	"slices"
)

// Edge is a directed triangle edge between two vertex indices.
type Edge struct {
	A, B uint32
}

func (e Edge) key() (uint32, uint32) {
	return min(e.A, e.B), max(e.A, e.B)
}

// BoundaryEdges returns the edges used by exactly one triangle.
// An edge is interior when its reverse also occurs; after sorting by the
// undirected key such pairs are adjacent and both are dropped.
func BoundaryEdges(indices []uint32) []Edge {
	edges := make([]Edge, 0, len(indices))
	for i := 0; i+2 < len(indices); i += 3 {
		a, b, c := indices[i], indices[i+1], indices[i+2]
		edges = append(edges, Edge{a, b}, Edge{b, c}, Edge{c, a})
	}

	slices.SortStableFunc(edges, func(e1, e2 Edge) int {
		lo1, hi1 := e1.key()
		lo2, hi2 := e2.key()
		if c := cmp.Compare(lo1, lo2); c != 0 {
			return c
		}
		return cmp.Compare(hi1, hi2)
	})

	var out []Edge
	for i := 0; i < len(edges); i++ {
		if i+1 < len(edges) && edges[i].A == edges[i+1].B && edges[i].B == edges[i+1].A {
			i++
			continue
		}
		out = append(out, edges[i])
	}
	return out
}

// AddSkirt extrudes every boundary edge downward by skirtHeight, appending
// two vertices and two triangles per edge. d is modified and returned.
// Skirting a mesh twice doubles the walls.
func AddSkirt(d *Data, skirtHeight float32) *Data {
	edges := BoundaryEdges(d.Indices)
	base := uint32(d.VertexCount())

	pos := make([]float32, 0, len(edges)*6)
	uv := make([]float32, 0, len(edges)*4)
	normals := make([]float32, 0, len(edges)*6)
	tris := make([]uint32, 0, len(edges)*6)

	for i, e := range edges {
		v1 := base + uint32(i*2)
		v2 := v1 + 1

		for _, src := range [2]uint32{e.A, e.B} {
			p := d.Position[src*3 : src*3+3]
			pos = append(pos, p[0], p[1], p[2]-skirtHeight)
			uv = append(uv, d.TexCoord[src*2], d.TexCoord[src*2+1])
			normals = append(normals, 0, 0, 1)
		}

		tris = append(tris,
			e.A, v2, e.B,
			v2, e.A, v1,
		)
	}

	d.Position = append(d.Position, pos...)
	d.TexCoord = append(d.TexCoord, uv...)
	d.Normal = append(d.Normal, normals...)
	d.Indices = append(d.Indices, tris...)
	return d
}
