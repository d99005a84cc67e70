// Package camera provides the orbit camera used to look around the room.
package camera

import (
	gomath "math"

	"github.com/Faultbox/roomview/pkg/math"
)

// OrbitCamera orbits around a center point. It doubles as the orbit
// control: while disabled it ignores drag and zoom input, which is how the
// transform gizmo keeps a drag from also rotating the view.
type OrbitCamera struct {
	// Center point to orbit around
	Center math.Vec3

	// Spherical coordinates
	Distance  float32 // Distance from center
	RotationX float32 // Pitch (vertical angle, radians)
	RotationY float32 // Yaw (horizontal angle, radians)

	// Constraints
	MinDistance float32
	MaxDistance float32
	MinPitch    float32
	MaxPitch    float32

	// Sensitivity
	DragSensitivity float32
	ZoomSensitivity float32

	// Damping is the fraction of pending rotation applied per 1/60 s.
	// Zero applies drag input immediately.
	Damping float32

	// Projection
	FOV    float32 // Vertical field of view, radians
	Aspect float32
	Near   float32
	Far    float32

	enabled              bool
	pendingYaw, pendingP float32
}

// NewOrbitCamera creates a new orbit camera with default settings.
func NewOrbitCamera() *OrbitCamera {
	return &OrbitCamera{
		Distance:        18.0,
		RotationX:       0.5,
		RotationY:       gomath.Pi / 4,
		MinDistance:     4.0,
		MaxDistance:     40.0,
		MinPitch:        0.05,
		MaxPitch:        1.45,
		DragSensitivity: 0.005,
		ZoomSensitivity: 0.1,
		FOV:             float32(45 * gomath.Pi / 180),
		Aspect:          16.0 / 9.0,
		Near:            0.1,
		Far:             200,
		enabled:         true,
	}
}

// Enabled reports whether the camera reacts to drag and zoom input.
func (c *OrbitCamera) Enabled() bool {
	return c.enabled
}

// SetEnabled turns user control on or off. Disabling drops rotation that is
// still being damped.
func (c *OrbitCamera) SetEnabled(enabled bool) {
	c.enabled = enabled
	if !enabled {
		c.pendingYaw, c.pendingP = 0, 0
	}
}

// Position returns the camera position in world space.
func (c *OrbitCamera) Position() math.Vec3 {
	x := c.Distance * float32(gomath.Cos(float64(c.RotationX))*gomath.Sin(float64(c.RotationY)))
	y := c.Distance * float32(gomath.Sin(float64(c.RotationX)))
	z := c.Distance * float32(gomath.Cos(float64(c.RotationX))*gomath.Cos(float64(c.RotationY)))

	return c.Center.Add(math.Vec3{X: x, Y: y, Z: z})
}

// ViewMatrix returns the view matrix for this camera.
func (c *OrbitCamera) ViewMatrix() math.Mat4 {
	return math.LookAt(c.Position(), c.Center, math.Vec3{Y: 1})
}

// ProjectionMatrix returns the perspective projection.
func (c *OrbitCamera) ProjectionMatrix() math.Mat4 {
	return math.Perspective(c.FOV, c.Aspect, c.Near, c.Far)
}

// ViewProjection returns projection * view.
func (c *OrbitCamera) ViewProjection() math.Mat4 {
	return c.ProjectionMatrix().Mul(c.ViewMatrix())
}

// SetViewport updates the aspect ratio after a resize.
func (c *OrbitCamera) SetViewport(width, height int) {
	if width > 0 && height > 0 {
		c.Aspect = float32(width) / float32(height)
	}
}

// HandleDrag queues rotation from a mouse drag delta.
func (c *OrbitCamera) HandleDrag(deltaX, deltaY float32) {
	if !c.enabled {
		return
	}
	yaw := -deltaX * c.DragSensitivity
	pitch := deltaY * c.DragSensitivity
	if c.Damping <= 0 {
		c.rotate(yaw, pitch)
		return
	}
	c.pendingYaw += yaw
	c.pendingP += pitch
}

// HandleZoom updates distance based on scroll wheel delta.
func (c *OrbitCamera) HandleZoom(delta float32) {
	if !c.enabled {
		return
	}
	c.Distance -= delta * c.Distance * c.ZoomSensitivity
	c.Distance = clamp(c.Distance, c.MinDistance, c.MaxDistance)
}

// Update applies damped rotation for a frame of dt seconds.
func (c *OrbitCamera) Update(dt float32) {
	if c.Damping <= 0 || (c.pendingYaw == 0 && c.pendingP == 0) {
		return
	}
	f := 1 - float32(gomath.Pow(float64(1-clamp(c.Damping, 0, 1)), float64(dt*60)))
	yaw, pitch := c.pendingYaw*f, c.pendingP*f
	c.pendingYaw -= yaw
	c.pendingP -= pitch
	c.rotate(yaw, pitch)

	if abs(c.pendingYaw) < 1e-5 && abs(c.pendingP) < 1e-5 {
		c.pendingYaw, c.pendingP = 0, 0
	}
}

func (c *OrbitCamera) rotate(yaw, pitch float32) {
	c.RotationY += yaw
	c.RotationX = clamp(c.RotationX+pitch, c.MinPitch, c.MaxPitch)
}

// FitToBounds centers the camera on a box and backs off far enough to see it.
func (c *OrbitCamera) FitToBounds(minB, maxB math.Vec3) {
	c.Center = minB.Add(maxB).Scale(0.5)
	radius := maxB.Sub(minB).Length() / 2
	d := radius / float32(gomath.Tan(float64(c.FOV)/2))
	c.Distance = clamp(d, c.MinDistance, c.MaxDistance)
}

func clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func abs(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
