package gizmo

import (
	gomath "math"
	"testing"

	"github.com/Faultbox/roomview/internal/engine/input"
	"github.com/Faultbox/roomview/internal/engine/scene"
	"github.com/Faultbox/roomview/pkg/math"
)

type testCamera struct {
	vp  math.Mat4
	eye math.Vec3
}

func (c testCamera) ViewProjection() math.Mat4 { return c.vp }
func (c testCamera) Position() math.Vec3       { return c.eye }

// newTestCamera looks down -Z from z=10; handles at the origin are 1.5 long.
func newTestCamera() testCamera {
	eye := math.Vec3{Z: 10}
	proj := math.Perspective(float32(gomath.Pi/3), 1, 0.1, 100)
	view := math.LookAt(eye, math.Vec3{}, math.Vec3{Y: 1})
	return testCamera{vp: proj.Mul(view), eye: eye}
}

const viewport = 800

func (c testCamera) project(p math.Vec3) (x, y float32) {
	v := c.vp.MulVec4(math.Vec4{p.X, p.Y, p.Z, 1})
	x = (v[0]/v[3] + 1) / 2 * viewport
	y = (1 - v[1]/v[3]) / 2 * viewport
	return x, y
}

type rig struct {
	cam     testCamera
	pointer *input.Pointer
	graph   *scene.Graph
	node    scene.NodeID
	tc      *TransformControls
	drags   []bool
	changes int
}

func newRig(t *testing.T) *rig {
	t.Helper()
	r := &rig{
		cam:     newTestCamera(),
		pointer: input.NewPointer(input.Rect{Width: viewport, Height: viewport}),
		graph:   scene.NewGraph(),
	}
	r.node = r.graph.Add(r.graph.Root(), scene.NewNode("chair"))
	r.tc = NewTransformControls(r.cam, r.pointer, r.graph).(*TransformControls)
	r.tc.SetListener(Listener{
		Dragging: func(d bool) { r.drags = append(r.drags, d) },
		Change:   func() { r.changes++ },
	})
	r.tc.Attach(r.node)
	return r
}

func (r *rig) drag(from, to math.Vec3) {
	fx, fy := r.cam.project(from)
	tx, ty := r.cam.project(to)
	r.pointer.Dispatch(input.PointerEvent{Kind: input.PointerDown, X: fx, Y: fy, Button: input.ButtonLeft})
	r.pointer.Dispatch(input.PointerEvent{Kind: input.PointerMove, X: tx, Y: ty})
	r.pointer.Dispatch(input.PointerEvent{Kind: input.PointerUp, X: tx, Y: ty, Button: input.ButtonLeft})
}

func TestTranslateDrag(t *testing.T) {
	r := newRig(t)

	r.drag(math.Vec3{X: 1}, math.Vec3{X: 2})

	got := r.graph.Node(r.node).Position
	if !got.ApproxEqual(math.Vec3{X: 1}, 1e-3) {
		t.Errorf("position = %v, want (1,0,0)", got)
	}
	if len(r.drags) != 2 || !r.drags[0] || r.drags[1] {
		t.Errorf("dragging notifications = %v, want [true false]", r.drags)
	}
	if r.changes != 1 {
		t.Errorf("changes = %d, want 1", r.changes)
	}
}

func TestTranslateSnap(t *testing.T) {
	r := newRig(t)
	r.tc.SetSnaps(Snaps{Translation: 0.5})

	r.drag(math.Vec3{Y: 1}, math.Vec3{Y: 1.8})

	got := r.graph.Node(r.node).Position
	if !got.ApproxEqual(math.Vec3{Y: 1}, 1e-4) {
		t.Errorf("position = %v, want (0,1,0)", got)
	}
}

func TestTranslateUnderRotatedParent(t *testing.T) {
	r := newRig(t)
	parent := scene.NewNode("shelf")
	parent.Rotation = math.QuatFromAxisAngle(math.Vec3{Z: 1}, gomath.Pi/2)
	p := r.graph.Add(r.graph.Root(), parent)
	r.graph.Reparent(r.node, p)
	r.tc.SetSpace(SpaceWorld)

	r.drag(math.Vec3{X: 1}, math.Vec3{X: 2})

	if got := r.graph.WorldPosition(r.node); !got.ApproxEqual(math.Vec3{X: 1}, 1e-3) {
		t.Errorf("world position = %v, want (1,0,0)", got)
	}
	// The parent turns local -Y into world +X.
	if got := r.graph.Node(r.node).Position; !got.ApproxEqual(math.Vec3{Y: -1}, 1e-3) {
		t.Errorf("local position = %v, want (0,-1,0)", got)
	}
}

func TestScaleDrag(t *testing.T) {
	r := newRig(t)
	r.tc.SetMode(ModeScale)

	r.drag(math.Vec3{X: 1}, math.Vec3{X: 2})

	got := r.graph.Node(r.node).Scale
	if !got.ApproxEqual(math.Vec3{X: 2, Y: 1, Z: 1}, 1e-3) {
		t.Errorf("scale = %v, want (2,1,1)", got)
	}
}

func TestRotateDrag(t *testing.T) {
	r := newRig(t)
	r.tc.SetMode(ModeRotate)

	r.drag(math.Vec3{X: 1.5}, math.Vec3{Y: 1.5})

	rot := r.graph.Node(r.node).Rotation
	if got := rot.Rotate(math.Vec3{X: 1}); !got.ApproxEqual(math.Vec3{Y: 1}, 1e-3) {
		t.Errorf("rotated X = %v, want (0,1,0)", got)
	}
}

func TestRotateSnap(t *testing.T) {
	r := newRig(t)
	r.tc.SetMode(ModeRotate)
	r.tc.SetSnaps(Snaps{Rotation: gomath.Pi / 2})

	// About 60 degrees snaps to 90.
	c, s := float32(gomath.Cos(gomath.Pi/3)), float32(gomath.Sin(gomath.Pi/3))
	r.drag(math.Vec3{X: 1.5}, math.Vec3{X: 1.5 * c, Y: 1.5 * s})

	rot := r.graph.Node(r.node).Rotation
	if got := rot.Rotate(math.Vec3{X: 1}); !got.ApproxEqual(math.Vec3{Y: 1}, 1e-3) {
		t.Errorf("rotated X = %v, want (0,1,0)", got)
	}
}

func TestMissDoesNotDrag(t *testing.T) {
	r := newRig(t)

	r.drag(math.Vec3{X: 1, Y: 1}, math.Vec3{X: 2, Y: 1})

	if len(r.drags) != 0 || r.changes != 0 {
		t.Errorf("drags = %v, changes = %d", r.drags, r.changes)
	}
	if r.graph.Node(r.node).Position != (math.Vec3{}) {
		t.Error("miss moved the node")
	}
}

func TestHiddenAxisNotPickable(t *testing.T) {
	r := newRig(t)
	r.tc.SetAxes(Axes{Y: true, Z: true})

	r.drag(math.Vec3{X: 1}, math.Vec3{X: 2})
	if len(r.drags) != 0 {
		t.Error("hidden X handle was grabbed")
	}
}

func TestDetachEndsDrag(t *testing.T) {
	r := newRig(t)

	x, y := r.cam.project(math.Vec3{X: 1})
	r.pointer.Dispatch(input.PointerEvent{Kind: input.PointerDown, X: x, Y: y, Button: input.ButtonLeft})
	if !r.tc.Dragging() {
		t.Fatal("handle not grabbed")
	}
	r.tc.Detach()
	if r.tc.Dragging() || len(r.drags) != 2 || r.drags[1] {
		t.Errorf("detach mid-drag: dragging = %v, notifications = %v", r.tc.Dragging(), r.drags)
	}
}

func TestHoverHighlight(t *testing.T) {
	r := newRig(t)

	x, y := r.cam.project(math.Vec3{Y: 1})
	r.pointer.Dispatch(input.PointerEvent{Kind: input.PointerMove, X: x, Y: y})
	if r.tc.hover != 1 {
		t.Fatalf("hover = %d, want Y handle", r.tc.hover)
	}

	highlighted := 0
	for _, l := range r.tc.Lines(nil) {
		if l.Color == activeColor {
			highlighted++
		}
	}
	// Shaft plus four arrowhead strokes.
	if highlighted != 5 {
		t.Errorf("highlighted lines = %d, want 5", highlighted)
	}
}

func TestLinesPerMode(t *testing.T) {
	tests := []struct {
		mode Mode
		want int
	}{
		{ModeTranslate, 3 * 5},
		{ModeScale, 3 * 5},
		{ModeRotate, 3 * circleSegs},
	}
	for _, tt := range tests {
		t.Run(tt.mode.String(), func(t *testing.T) {
			r := newRig(t)
			r.tc.SetMode(tt.mode)
			if got := len(r.tc.Lines(nil)); got != tt.want {
				t.Errorf("lines = %d, want %d", got, tt.want)
			}
		})
	}

	r := newRig(t)
	r.tc.Detach()
	if got := r.tc.Lines(nil); len(got) != 0 {
		t.Errorf("detached controls drew %d lines", len(got))
	}
}

func TestDisposeRemovesListeners(t *testing.T) {
	r := newRig(t)
	r.tc.Dispose()
	for _, k := range []input.PointerKind{input.PointerDown, input.PointerMove, input.PointerUp} {
		if n := r.pointer.Listeners(k); n != 0 {
			t.Errorf("kind %d: %d listeners left", k, n)
		}
	}
}
