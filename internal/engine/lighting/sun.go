// Package lighting provides the directional key light of the room.
package lighting

import (
	gomath "math"

	"github.com/Faultbox/roomview/pkg/math"
)

// Sun is a directional light. Strength blends Lambert shading over the
// lighting already baked into textures: 0 shows textures as baked, 1 shades
// fully.
type Sun struct {
	Azimuth   float32 // Degrees around Y, 0 looks down +Z
	Elevation float32 // Degrees above the horizon
	Strength  float32
}

// SunDirection converts azimuth/elevation angles in degrees to a normalized
// vector pointing towards the sun.
func SunDirection(azimuth, elevation float32) math.Vec3 {
	az := float64(azimuth) * gomath.Pi / 180.0
	el := float64(elevation) * gomath.Pi / 180.0

	// Spherical to Cartesian, azimuth around Y, elevation from horizon
	return math.Vec3{
		X: float32(gomath.Cos(el) * gomath.Sin(az)),
		Y: float32(gomath.Sin(el)),
		Z: float32(gomath.Cos(el) * gomath.Cos(az)),
	}
}

// Direction returns the vector towards the sun.
func (s Sun) Direction() math.Vec3 {
	return SunDirection(s.Azimuth, s.Elevation)
}

// Amount returns Strength clamped to [0, 1].
func (s Sun) Amount() float32 {
	return min(max(s.Strength, 0), 1)
}
