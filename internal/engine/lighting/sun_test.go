package lighting

import (
	gomath "math"
	"testing"

	"github.com/Faultbox/roomview/pkg/math"
)

func near(a, b math.Vec3) bool {
	const eps = 1e-5
	return gomath.Abs(float64(a.X-b.X)) < eps &&
		gomath.Abs(float64(a.Y-b.Y)) < eps &&
		gomath.Abs(float64(a.Z-b.Z)) < eps
}

func TestSunDirection(t *testing.T) {
	tests := []struct {
		name          string
		azimuth, elev float32
		want          math.Vec3
	}{
		{"horizon south", 0, 0, math.Vec3{Z: 1}},
		{"horizon east", 90, 0, math.Vec3{X: 1}},
		{"zenith", 37, 90, math.Vec3{Y: 1}},
		{"half up", 0, 45, math.Vec3{Y: float32(gomath.Sqrt2 / 2), Z: float32(gomath.Sqrt2 / 2)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SunDirection(tt.azimuth, tt.elev)
			if !near(got, tt.want) {
				t.Errorf("SunDirection(%v, %v) = %v, want %v", tt.azimuth, tt.elev, got, tt.want)
			}
			if l := got.Length(); gomath.Abs(float64(l-1)) > 1e-5 {
				t.Errorf("length = %v, want 1", l)
			}
		})
	}
}

func TestAmount(t *testing.T) {
	for _, tt := range []struct{ in, want float32 }{{-1, 0}, {0, 0}, {0.3, 0.3}, {2, 1}} {
		if got := (Sun{Strength: tt.in}).Amount(); got != tt.want {
			t.Errorf("Amount(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
