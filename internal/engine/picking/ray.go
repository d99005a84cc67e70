// Package picking provides ray casting and object picking utilities.
package picking

import (
	gomath "math"

	"github.com/Faultbox/roomview/internal/engine/scene"
	"github.com/Faultbox/roomview/pkg/math"
)

// Ray represents a ray in 3D space with origin and direction.
type Ray struct {
	Origin    math.Vec3
	Direction math.Vec3 // Normalized direction
}

// At returns the point at distance t along the ray.
func (r Ray) At(t float32) math.Vec3 {
	return r.Origin.Add(r.Direction.Scale(t))
}

// ScreenToNDC converts pixel coordinates inside a viewport to normalized
// device coordinates (-1 to 1, Y up).
func ScreenToNDC(screenX, screenY, viewportW, viewportH float32) math.Vec2 {
	return math.Vec2{
		X: 2.0*screenX/viewportW - 1.0,
		Y: 1.0 - 2.0*screenY/viewportH, // Flip Y
	}
}

// NDCToRay unprojects a point in normalized device coordinates through the
// inverse view-projection matrix into a world-space ray.
func NDCToRay(ndc math.Vec2, invViewProj math.Mat4) Ray {
	nearWorld := unproject(invViewProj, math.Vec4{ndc.X, ndc.Y, -1.0, 1.0})
	farWorld := unproject(invViewProj, math.Vec4{ndc.X, ndc.Y, 1.0, 1.0})

	return Ray{
		Origin:    nearWorld,
		Direction: farWorld.Sub(nearWorld).Normalize(),
	}
}

func unproject(invViewProj math.Mat4, p math.Vec4) math.Vec3 {
	w := invViewProj.MulVec4(p)
	if w[3] != 0 {
		w[0] /= w[3]
		w[1] /= w[3]
		w[2] /= w[3]
	}
	return math.Vec3{X: w[0], Y: w[1], Z: w[2]}
}

// ScreenToRay converts screen coordinates to a world-space ray.
func ScreenToRay(screenX, screenY, viewportW, viewportH float32, invViewProj math.Mat4) Ray {
	return NDCToRay(ScreenToNDC(screenX, screenY, viewportW, viewportH), invViewProj)
}

// ViewportRay builds the world ray under pixel (x, y) of a viewport whose
// top-left corner is at (left, top). Empty viewports yield no ray.
func ViewportRay(x, y, left, top, width, height float32, viewProj math.Mat4) (Ray, bool) {
	if width <= 0 || height <= 0 {
		return Ray{}, false
	}
	return ScreenToRay(x-left, y-top, width, height, viewProj.Inverse()), true
}

// IntersectPlane intersects the ray with the plane through point with the
// given normal. Intersections behind the origin are rejected.
func (r Ray) IntersectPlane(point, normal math.Vec3) (t float32, ok bool) {
	denom := normal.Dot(r.Direction)
	if gomath.Abs(float64(denom)) < 1e-6 {
		return 0, false // Ray parallel to plane
	}
	t = point.Sub(r.Origin).Dot(normal) / denom
	if t < 0 {
		return 0, false
	}
	return t, true
}

// IntersectBox tests ray intersection with an axis-aligned bounding box.
// Returns the distance to intersection (t) and whether intersection occurred.
// If the ray starts inside the box, returns the exit distance.
func (r Ray) IntersectBox(box scene.Box) (t float32, hit bool) {
	if box.Empty() {
		return 0, false
	}
	tmin := float32(-gomath.MaxFloat32)
	tmax := float32(gomath.MaxFloat32)

	for axis := 0; axis < 3; axis++ {
		o := r.Origin.Component(axis)
		d := r.Direction.Component(axis)
		lo := box.Min.Component(axis)
		hi := box.Max.Component(axis)

		if d == 0 {
			if o < lo || o > hi {
				return 0, false
			}
			continue
		}
		t1 := (lo - o) / d
		t2 := (hi - o) / d
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		if t1 > tmin {
			tmin = t1
		}
		if t2 < tmax {
			tmax = t2
		}
	}

	if tmax < tmin || tmax < 0 {
		return 0, false
	}
	if tmin < 0 {
		return tmax, true
	}
	return tmin, true
}

// IntersectTriangle tests the ray against triangle abc from either side.
func (r Ray) IntersectTriangle(a, b, c math.Vec3) (t float32, hit bool) {
	const eps = 1e-7

	e1 := b.Sub(a)
	e2 := c.Sub(a)
	p := r.Direction.Cross(e2)
	det := e1.Dot(p)
	if det > -eps && det < eps {
		return 0, false
	}
	inv := 1 / det

	s := r.Origin.Sub(a)
	u := s.Dot(p) * inv
	if u < 0 || u > 1 {
		return 0, false
	}
	q := s.Cross(e1)
	v := r.Direction.Dot(q) * inv
	if v < 0 || u+v > 1 {
		return 0, false
	}
	t = e2.Dot(q) * inv
	if t < 0 {
		return 0, false
	}
	return t, true
}

// ClosestOnLine returns the parameter s of the point on the line
// origin + s*dir that is closest to the ray, and the distance between the
// two at that point. Parallel lines report ok=false.
func (r Ray) ClosestOnLine(origin, dir math.Vec3) (s, dist float32, ok bool) {
	w0 := r.Origin.Sub(origin)
	a := r.Direction.Dot(r.Direction)
	b := r.Direction.Dot(dir)
	c := dir.Dot(dir)
	d := r.Direction.Dot(w0)
	e := dir.Dot(w0)

	denom := a*c - b*b
	if gomath.Abs(float64(denom)) < 1e-8 {
		return 0, 0, false
	}
	tRay := (b*e - c*d) / denom
	s = (a*e - b*d) / denom
	if tRay < 0 {
		tRay = 0
	}
	return s, r.At(tRay).Distance(origin.Add(dir.Scale(s))), true
}
