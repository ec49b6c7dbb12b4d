package math

import "math"

// AABB is an axis-aligned bounding box.
type AABB struct {
	Min Vec3
	Max Vec3
}

// NewAABB creates an AABB from two corners in any order.
func NewAABB(a, b Vec3) AABB {
	return AABB{
		Min: Vec3{math.Min(a.X, b.X), math.Min(a.Y, b.Y), math.Min(a.Z, b.Z)},
		Max: Vec3{math.Max(a.X, b.X), math.Max(a.Y, b.Y), math.Max(a.Z, b.Z)},
	}
}

// Center returns the box center.
func (b AABB) Center() Vec3 {
	return b.Min.Add(b.Max).Scale(0.5)
}

// Size returns the box extents.
func (b AABB) Size() Vec3 {
	return b.Max.Sub(b.Min)
}

// Extend grows the box to contain p.
func (b *AABB) Extend(p Vec3) {
	b.Min = Vec3{math.Min(b.Min.X, p.X), math.Min(b.Min.Y, p.Y), math.Min(b.Min.Z, p.Z)}
	b.Max = Vec3{math.Max(b.Max.X, p.X), math.Max(b.Max.Y, p.Y), math.Max(b.Max.Z, p.Z)}
}

// Contains reports whether p lies inside the box (inclusive).
func (b AABB) Contains(p Vec3) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X &&
		p.Y >= b.Min.Y && p.Y <= b.Max.Y &&
		p.Z >= b.Min.Z && p.Z <= b.Max.Z
}

// Transform returns the world-space box enclosing all eight transformed corners.
func (b AABB) Transform(m Mat4) AABB {
	first := m.TransformPoint(b.Min)
	out := AABB{Min: first, Max: first}
	for i := 1; i < 8; i++ {
		c := Vec3{b.Min.X, b.Min.Y, b.Min.Z}
		if i&1 != 0 {
			c.X = b.Max.X
		}
		if i&2 != 0 {
			c.Y = b.Max.Y
		}
		if i&4 != 0 {
			c.Z = b.Max.Z
		}
		out.Extend(m.TransformPoint(c))
	}
	return out
}

// Plane is a plane in Hessian normal form: Normal·p + D = 0.
type Plane struct {
	Normal Vec3
	D      float64
}

// Distance returns the signed distance from p to the plane.
func (p Plane) Distance(v Vec3) float64 {
	return p.Normal.Dot(v) + p.D
}

// Frustum holds six inward-facing planes: left, right, bottom, top, near, far.
type Frustum [6]Plane

// FrustumFromMatrix extracts the view frustum of a view-projection matrix
// (Gribb/Hartmann, OpenGL clip space).
func FrustumFromMatrix(m Mat4) Frustum {
	row := func(i int) Vec4 {
		return Vec4{m[i], m[4+i], m[8+i], m[12+i]}
	}
	r0, r1, r2, r3 := row(0), row(1), row(2), row(3)

	combine := func(a Vec4, b Vec4, sign float64) Plane {
		n := Vec3{a[0] + sign*b[0], a[1] + sign*b[1], a[2] + sign*b[2]}
		d := a[3] + sign*b[3]
		l := n.Length()
		if l == 0 {
			return Plane{}
		}
		return Plane{Normal: n.Scale(1 / l), D: d / l}
	}

	return Frustum{
		combine(r3, r0, 1),
		combine(r3, r0, -1),
		combine(r3, r1, 1),
		combine(r3, r1, -1),
		combine(r3, r2, 1),
		combine(r3, r2, -1),
	}
}

// IntersectsAABB reports whether any part of the box is inside the frustum.
// Conservative: boxes near frustum corners may report true.
func (f Frustum) IntersectsAABB(b AABB) bool {
	for _, p := range f {
		// Positive vertex: the corner furthest along the plane normal.
		v := b.Min
		if p.Normal.X >= 0 {
			v.X = b.Max.X
		}
		if p.Normal.Y >= 0 {
			v.Y = b.Max.Y
		}
		if p.Normal.Z >= 0 {
			v.Z = b.Max.Z
		}
		if p.Distance(v) < 0 {
			return false
		}
	}
	return true
}
