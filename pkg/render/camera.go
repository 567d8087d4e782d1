package render

import (
	"math"

	"github.com/plinth3d/plinth/pkg/math3d"
)

// OrbitCamera orbits a target point at a clamped distance. This is the only
// camera model the viewer needs: framing sets the initial pose, the mouse
// adjusts yaw/pitch/distance around it.
type OrbitCamera struct {
	Target math3d.Vec3

	// Orientation of the orbit (radians)
	Yaw   float64 // around Y, 0 = looking down -Z
	Pitch float64 // elevation, positive = above the target

	// Distance from the target, kept within [MinDistance, MaxDistance]
	Distance    float64
	MinDistance float64
	MaxDistance float64

	// Projection parameters
	FOV         float64 // Vertical field of view in radians
	AspectRatio float64 // Width / Height
	Near        float64 // Near clipping plane
	Far         float64 // Far clipping plane

	// Cached matrices (computed on demand)
	viewMatrix     math3d.Mat4
	projMatrix     math3d.Mat4
	viewProjMatrix math3d.Mat4
	viewDirty      bool
	projDirty      bool
}

// NewOrbitCamera creates a camera with default settings; framing overrides
// most of them per model.
func NewOrbitCamera() *OrbitCamera {
	return &OrbitCamera{
		Distance:    5,
		MinDistance: 0.1,
		MaxDistance: 1000,
		FOV:         math.Pi / 3, // 60 degrees
		AspectRatio: 16.0 / 9.0,
		Near:        0.1,
		Far:         1000,
		viewDirty:   true,
		projDirty:   true,
	}
}

// SetTarget sets the orbit center.
func (c *OrbitCamera) SetTarget(target math3d.Vec3) {
	c.Target = target
	c.viewDirty = true
}

// SetDistanceLimits sets the zoom range and re-clamps the current distance.
func (c *OrbitCamera) SetDistanceLimits(minDist, maxDist float64) {
	c.MinDistance = minDist
	c.MaxDistance = maxDist
	c.SetDistance(c.Distance)
}

// SetDistance sets the camera-to-target distance, clamped to the limits.
func (c *OrbitCamera) SetDistance(d float64) {
	if d < c.MinDistance {
		d = c.MinDistance
	}
	if d > c.MaxDistance {
		d = c.MaxDistance
	}
	c.Distance = d
	c.viewDirty = true
}

// Dolly moves the camera toward (negative) or away from (positive) the
// target by delta, within the zoom limits.
func (c *OrbitCamera) Dolly(delta float64) {
	c.SetDistance(c.Distance + delta)
}

// Orbit rotates the camera around the target.
func (c *OrbitCamera) Orbit(deltaYaw, deltaPitch float64) {
	c.Yaw += deltaYaw
	c.Pitch += deltaPitch

	// Clamp pitch short of the poles to avoid a degenerate up vector
	const maxPitch = math.Pi/2 - 0.01
	if c.Pitch > maxPitch {
		c.Pitch = maxPitch
	}
	if c.Pitch < -maxPitch {
		c.Pitch = -maxPitch
	}

	c.viewDirty = true
}

// LookFrom places the camera at a world position, deriving yaw, pitch, and
// distance from the offset to the current target.
func (c *OrbitCamera) LookFrom(pos math3d.Vec3) {
	offset := pos.Sub(c.Target)
	dist := offset.Len()
	if dist == 0 {
		return
	}
	c.Pitch = math.Asin(offset.Y / dist)
	c.Yaw = math.Atan2(offset.X, offset.Z)
	c.SetDistance(dist)
}

// Position returns the camera's world position on the orbit sphere.
func (c *OrbitCamera) Position() math3d.Vec3 {
	cp := math.Cos(c.Pitch)
	return c.Target.Add(math3d.V3(
		c.Distance*cp*math.Sin(c.Yaw),
		c.Distance*math.Sin(c.Pitch),
		c.Distance*cp*math.Cos(c.Yaw),
	))
}

// SetFOV sets the field of view (in radians).
func (c *OrbitCamera) SetFOV(fov float64) {
	c.FOV = fov
	c.projDirty = true
}

// SetAspectRatio sets the aspect ratio.
func (c *OrbitCamera) SetAspectRatio(aspect float64) {
	c.AspectRatio = aspect
	c.projDirty = true
}

// SetClipPlanes sets the near and far clipping planes.
func (c *OrbitCamera) SetClipPlanes(near, far float64) {
	c.Near = near
	c.Far = far
	c.projDirty = true
}

// ViewMatrix returns the view matrix.
func (c *OrbitCamera) ViewMatrix() math3d.Mat4 {
	if c.viewDirty {
		c.viewMatrix = math3d.LookAt(c.Position(), c.Target, math3d.Up())
		c.viewDirty = false
	}
	return c.viewMatrix
}

// ProjectionMatrix returns the projection matrix.
func (c *OrbitCamera) ProjectionMatrix() math3d.Mat4 {
	if c.projDirty {
		c.projMatrix = math3d.Perspective(c.FOV, c.AspectRatio, c.Near, c.Far)
		c.projDirty = false
	}
	return c.projMatrix
}

// ViewProjectionMatrix returns the combined view-projection matrix.
func (c *OrbitCamera) ViewProjectionMatrix() math3d.Mat4 {
	if c.viewDirty || c.projDirty {
		_ = c.ViewMatrix()
		_ = c.ProjectionMatrix()
		c.viewProjMatrix = c.projMatrix.Mul(c.viewMatrix)
	}
	return c.viewProjMatrix
}
