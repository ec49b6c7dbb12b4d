package math

import "math"

// Ray represents a ray in 3D space with origin and direction.
type Ray struct {
	Origin    Vec3
	Direction Vec3 // Normalized direction
}

// ScreenToRay converts screen coordinates to a world-space ray.
// screenX, screenY are pixel coordinates, viewportW/H are viewport dimensions.
// invViewProj is the inverse of the view-projection matrix.
func ScreenToRay(screenX, screenY, viewportW, viewportH float64, invViewProj Mat4) Ray {
	ndcX := 2.0*screenX/viewportW - 1.0
	ndcY := 1.0 - 2.0*screenY/viewportH // Flip Y

	nearWorld := invViewProj.MulVec4(Vec4{ndcX, ndcY, -1.0, 1.0})
	farWorld := invViewProj.MulVec4(Vec4{ndcX, ndcY, 1.0, 1.0})

	if nearWorld[3] != 0 {
		nearWorld[0] /= nearWorld[3]
		nearWorld[1] /= nearWorld[3]
		nearWorld[2] /= nearWorld[3]
	}
	if farWorld[3] != 0 {
		farWorld[0] /= farWorld[3]
		farWorld[1] /= farWorld[3]
		farWorld[2] /= farWorld[3]
	}

	origin := Vec3{nearWorld[0], nearWorld[1], nearWorld[2]}
	dir := Vec3{farWorld[0], farWorld[1], farWorld[2]}.Sub(origin)

	return Ray{Origin: origin, Direction: dir.Normalize()}
}

// IntersectPlaneZ intersects the ray with the horizontal plane Z = planeZ.
func (r Ray) IntersectPlaneZ(planeZ float64) (Vec3, bool) {
	if math.Abs(r.Direction.Z) < 1e-12 {
		return Vec3{}, false // Ray parallel to plane
	}

	t := (planeZ - r.Origin.Z) / r.Direction.Z
	if t < 0 {
		return Vec3{}, false // Intersection behind ray origin
	}

	return r.Origin.Add(r.Direction.Scale(t)), true
}
