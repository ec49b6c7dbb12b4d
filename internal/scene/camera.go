package scene

import (
	gomath "math"

	"github.com/Faultbox/geotiles/pkg/math"
)

// OrbitCamera orbits a point on the map plane. +Z is up.
type OrbitCamera struct {
	// Center point to orbit around
	Center math.Vec3

	// Spherical coordinates
	Distance float64 // Distance from center
	Pitch    float64 // Elevation above the plane (radians)
	Yaw      float64 // Heading, 0 looks north (radians)

	// Constraints
	MinDistance float64
	MaxDistance float64
	MinPitch    float64
	MaxPitch    float64

	// Projection
	FovY     float64
	Viewport [2]float64 // width, height in pixels

	// Sensitivity
	DragSensitivity float64
	ZoomSensitivity float64
}

// NewOrbitCamera creates an orbit camera looking down at the map origin.
func NewOrbitCamera() *OrbitCamera {
	return &OrbitCamera{
		Distance:        2e7,
		Pitch:           gomath.Pi / 3,
		MinDistance:     100,
		MaxDistance:     1e8,
		MinPitch:        0.1,
		MaxPitch:        gomath.Pi/2 - 0.01,
		FovY:            gomath.Pi / 4,
		Viewport:        [2]float64{1280, 720},
		DragSensitivity: 0.005,
		ZoomSensitivity: 0.1,
	}
}

// Position returns the camera position in world space.
func (c *OrbitCamera) Position() math.Vec3 {
	horiz := c.Distance * gomath.Cos(c.Pitch)
	return math.Vec3{
		X: c.Center.X - horiz*gomath.Sin(c.Yaw),
		Y: c.Center.Y - horiz*gomath.Cos(c.Yaw),
		Z: c.Center.Z + c.Distance*gomath.Sin(c.Pitch),
	}
}

// ViewMatrix returns the view matrix for this camera.
func (c *OrbitCamera) ViewMatrix() math.Mat4 {
	return math.LookAt(c.Position(), c.Center, math.Vec3{Z: 1})
}

// ProjectionMatrix returns a perspective matrix whose clip planes scale with distance.
func (c *OrbitCamera) ProjectionMatrix() math.Mat4 {
	aspect := 1.0
	if c.Viewport[1] > 0 {
		aspect = c.Viewport[0] / c.Viewport[1]
	}
	near := gomath.Max(1, c.Distance*1e-3)
	far := c.Distance * 1e3
	return math.Perspective(c.FovY, aspect, near, far)
}

// ViewProj returns projection * view.
func (c *OrbitCamera) ViewProj() math.Mat4 {
	return c.ProjectionMatrix().Mul(c.ViewMatrix())
}

// InFrustum reports whether any part of box is visible.
func (c *OrbitCamera) InFrustum(box math.AABB) bool {
	return math.FrustumFromMatrix(c.ViewProj()).IntersectsAABB(box)
}

// Ray returns the world ray through a viewport pixel.
func (c *OrbitCamera) Ray(screenX, screenY float64) math.Ray {
	return math.ScreenToRay(screenX, screenY, c.Viewport[0], c.Viewport[1], c.ViewProj().Inverse())
}

// HandleDrag updates rotation based on mouse drag delta.
func (c *OrbitCamera) HandleDrag(deltaX, deltaY float64) {
	c.Yaw -= deltaX * c.DragSensitivity
	c.Pitch += deltaY * c.DragSensitivity
	c.Pitch = clamp(c.Pitch, c.MinPitch, c.MaxPitch)
}

// HandleZoom updates distance based on scroll wheel delta.
func (c *OrbitCamera) HandleZoom(delta float64) {
	c.Distance -= delta * c.Distance * c.ZoomSensitivity
	c.Distance = clamp(c.Distance, c.MinDistance, c.MaxDistance)
}

// HandleMovement pans the center across the plane relative to the heading.
func (c *OrbitCamera) HandleMovement(forward, right float64) {
	// Speed scales with distance for consistent feel
	speed := c.Distance * 0.01

	sin, cos := gomath.Sincos(c.Yaw)
	c.Center.X += (sin*forward + cos*right) * speed
	c.Center.Y += (cos*forward - sin*right) * speed
}

// FitToBounds centers the camera over box at a distance that shows all of it.
func (c *OrbitCamera) FitToBounds(box math.AABB) {
	c.Center = box.Center()
	size := box.Size()
	c.Distance = clamp(gomath.Max(size.X, size.Y), c.MinDistance, c.MaxDistance)
	c.Pitch = gomath.Pi / 3
	c.Yaw = 0
}

func clamp(v, lo, hi float64) float64 {
	return gomath.Max(lo, gomath.Min(hi, v))
}
