package math

import (
	"math"
	"testing"
)

func TestQuatIdentity(t *testing.T) {
	q := QuatIdentity()
	if q.X != 0 || q.Y != 0 || q.Z != 0 || q.W != 1 {
		t.Errorf("Identity quaternion should be (0,0,0,1), got (%v,%v,%v,%v)", q.X, q.Y, q.Z, q.W)
	}
}

func TestQuatNormalize(t *testing.T) {
	q := Quat{X: 1, Y: 2, Z: 3, W: 4}
	n := q.Normalize()

	length := float32(math.Sqrt(float64(n.X*n.X + n.Y*n.Y + n.Z*n.Z + n.W*n.W)))
	if math.Abs(float64(length-1.0)) > 0.0001 {
		t.Errorf("Normalized quaternion length should be 1, got %v", length)
	}
}

func TestQuatToMat4(t *testing.T) {
	m := QuatIdentity().ToMat4()

	identity := Identity()
	for i := 0; i < 16; i++ {
		if math.Abs(float64(m[i]-identity[i])) > 0.0001 {
			t.Errorf("Identity quat should produce identity matrix, element %d: got %v, want %v", i, m[i], identity[i])
		}
	}
}

func TestQuatFromAxisAngle(t *testing.T) {
	q := QuatFromAxisAngle(Vec3{X: 0, Y: 1, Z: 0}, float32(math.Pi/2))

	expectedW := float32(math.Cos(math.Pi / 4))
	expectedY := float32(math.Sin(math.Pi / 4))

	if math.Abs(float64(q.W-expectedW)) > 0.001 {
		t.Errorf("QuatFromAxisAngle W: expected %v, got %v", expectedW, q.W)
	}
	if math.Abs(float64(q.Y-expectedY)) > 0.001 {
		t.Errorf("QuatFromAxisAngle Y: expected %v, got %v", expectedY, q.Y)
	}
}

func TestQuatRotateMatchesMatrix(t *testing.T) {
	q := QuatFromAxisAngle(Vec3{X: 1, Y: 1, Z: 0}.Normalize(), 1.2)
	v := Vec3{X: 0.3, Y: -2, Z: 5}

	got := q.Rotate(v)
	want := q.ToMat4().TransformVec3(v)
	if !got.ApproxEqual(want, 0.0001) {
		t.Errorf("Rotate = %v, matrix = %v", got, want)
	}
}

func TestQuatConjugateUndoesRotation(t *testing.T) {
	q := QuatFromAxisAngle(Vec3{X: 0, Y: 0, Z: 1}, 0.4)
	v := Vec3{X: 1, Y: 2, Z: 3}

	back := q.Conjugate().Rotate(q.Rotate(v))
	if !back.ApproxEqual(v, 0.0001) {
		t.Errorf("conjugate rotation = %v, want %v", back, v)
	}
}
