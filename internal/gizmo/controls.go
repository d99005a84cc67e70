package gizmo

import (
	gomath "math"

	"github.com/Faultbox/roomview/internal/engine/input"
	"github.com/Faultbox/roomview/internal/engine/picking"
	"github.com/Faultbox/roomview/internal/engine/scene"
	"github.com/Faultbox/roomview/internal/event"
	"github.com/Faultbox/roomview/pkg/math"
)

const (
	// handleScale keeps handles a constant size on screen: their world
	// length is size * camera distance * handleScale.
	handleScale = 0.15
	// pickTolerance is how close, relative to handle length, the pointer
	// must pass to grab a handle.
	pickTolerance = 0.12
	minScale      = 1e-3
	circleSegs    = 48
	noAxis        = -1
)

var (
	axisColors = [3]math.Vec3{
		{X: 0.9, Y: 0.2, Z: 0.2},
		{X: 0.2, Y: 0.85, Z: 0.2},
		{X: 0.25, Y: 0.4, Z: 1},
	}
	activeColor = math.Vec3{X: 1, Y: 0.9, Z: 0.2}
	unitAxes    = [3]math.Vec3{{X: 1}, {Y: 1}, {Z: 1}}
)

// TransformControls is a translate, rotate and scale gizmo driven by
// pointer drags. Translate and scale handles are axis lines; rotate handles
// are circles around each axis. Scaling always uses local axes.
type TransformControls struct {
	cam     Camera
	surface input.PointerSource
	graph   *scene.Graph
	toks    []event.Token

	target   scene.NodeID
	mode     Mode
	space    Space
	size     float32
	axes     Axes
	snaps    Snaps
	listener Listener

	hover  int
	active int
	drag   dragState
}

// dragState is captured when a handle is grabbed.
type dragState struct {
	origin    math.Vec3 // world position of the target
	axis      math.Vec3 // world direction of the grabbed handle
	start     float32   // axis parameter under the pointer
	from      math.Vec3 // rotate: grab point relative to origin
	position  math.Vec3
	scale     math.Vec3
	worldRot  math.Quat
	parentInv math.Mat4
	parentRot math.Quat
}

// NewTransformControls is the default Factory.
func NewTransformControls(cam Camera, surface input.PointerSource, graph *scene.Graph) Manipulator {
	tc := &TransformControls{
		cam:     cam,
		surface: surface,
		graph:   graph,
		target:  scene.NoNode,
		mode:    ModeTranslate,
		space:   SpaceLocal,
		size:    1,
		axes:    AllAxes,
		hover:   noAxis,
		active:  noAxis,
	}
	tc.toks = []event.Token{
		surface.AddPointerListener(input.PointerDown, tc.pointerDown),
		surface.AddPointerListener(input.PointerMove, tc.pointerMove),
		surface.AddPointerListener(input.PointerUp, tc.pointerUp),
	}
	return tc
}

// Attach implements Manipulator.
func (tc *TransformControls) Attach(node scene.NodeID) {
	if tc.target != node {
		tc.endDrag()
	}
	tc.target = node
	tc.hover = noAxis
}

// Detach implements Manipulator.
func (tc *TransformControls) Detach() {
	tc.endDrag()
	tc.target = scene.NoNode
	tc.hover = noAxis
}

// SetMode implements Manipulator.
func (tc *TransformControls) SetMode(m Mode) {
	if m != tc.mode {
		tc.endDrag()
	}
	tc.mode = m
}

// SetSpace implements Manipulator.
func (tc *TransformControls) SetSpace(s Space) { tc.space = s }

// SetSize implements Manipulator.
func (tc *TransformControls) SetSize(size float32) {
	if size > 0 {
		tc.size = size
	}
}

// SetAxes implements Manipulator.
func (tc *TransformControls) SetAxes(a Axes) { tc.axes = a }

// SetSnaps implements Manipulator.
func (tc *TransformControls) SetSnaps(s Snaps) { tc.snaps = s }

// SetListener implements Manipulator.
func (tc *TransformControls) SetListener(l Listener) { tc.listener = l }

// Dragging reports whether a handle is held.
func (tc *TransformControls) Dragging() bool { return tc.active != noAxis }

// Dispose implements Manipulator.
func (tc *TransformControls) Dispose() {
	tc.Detach()
	for _, tok := range tc.toks {
		tc.surface.RemovePointerListener(tok)
	}
	tc.toks = nil
}

func (tc *TransformControls) attached() bool {
	return tc.target != scene.NoNode && tc.graph.Valid(tc.target)
}

func (tc *TransformControls) handleLength(origin math.Vec3) float32 {
	return tc.size * tc.cam.Position().Distance(origin) * handleScale
}

// axisDirs returns the world directions of the three handles.
func (tc *TransformControls) axisDirs() [3]math.Vec3 {
	if tc.space == SpaceWorld && tc.mode != ModeScale {
		return unitAxes
	}
	rot := tc.graph.WorldRotation(tc.target)
	var dirs [3]math.Vec3
	for i, a := range unitAxes {
		dirs[i] = rot.Rotate(a).Normalize()
	}
	return dirs
}

func (tc *TransformControls) ray(e input.PointerEvent) (picking.Ray, bool) {
	b := tc.surface.Bounds()
	return picking.ViewportRay(e.X, e.Y, b.X, b.Y, b.Width, b.Height, tc.cam.ViewProjection())
}

// pick returns the handle under ray and its axis parameter or grab point.
func (tc *TransformControls) pick(ray picking.Ray) (axis int, s float32, point math.Vec3) {
	origin := tc.graph.WorldPosition(tc.target)
	length := tc.handleLength(origin)
	best := length * pickTolerance
	axis = noAxis

	for i, dir := range tc.axisDirs() {
		if !tc.axes.has(i) {
			continue
		}
		switch tc.mode {
		case ModeRotate:
			t, ok := ray.IntersectPlane(origin, dir)
			if !ok {
				continue
			}
			p := ray.At(t)
			if d := abs32(p.Distance(origin) - length); d < best {
				best, axis, point = d, i, p
			}
		default:
			at, d, ok := ray.ClosestOnLine(origin, dir)
			if !ok || at < 0 || at > length*(1+pickTolerance) {
				continue
			}
			if d < best {
				best, axis, s = d, i, at
			}
		}
	}
	return axis, s, point
}

func (tc *TransformControls) pointerDown(e input.PointerEvent) {
	if e.Button != input.ButtonLeft || !tc.attached() || tc.active != noAxis {
		return
	}
	ray, ok := tc.ray(e)
	if !ok {
		return
	}
	axis, s, point := tc.pick(ray)
	if axis == noAxis {
		return
	}
	if tc.mode == ModeScale && s < minScale {
		return
	}

	n := tc.graph.Node(tc.target)
	parent := tc.graph.Parent(tc.target)
	origin := tc.graph.WorldPosition(tc.target)
	tc.drag = dragState{
		origin:    origin,
		axis:      tc.axisDirs()[axis],
		start:     s,
		from:      point.Sub(origin),
		position:  n.Position,
		scale:     n.Scale,
		worldRot:  tc.graph.WorldRotation(tc.target),
		parentInv: tc.graph.WorldMatrix(parent).Inverse(),
		parentRot: tc.graph.WorldRotation(parent),
	}
	tc.active = axis
	if tc.listener.Dragging != nil {
		tc.listener.Dragging(true)
	}
}

func (tc *TransformControls) pointerMove(e input.PointerEvent) {
	if !tc.attached() {
		return
	}
	ray, ok := tc.ray(e)
	if !ok {
		return
	}
	if tc.active == noAxis {
		tc.hover, _, _ = tc.pick(ray)
		return
	}
	if tc.update(ray) && tc.listener.Change != nil {
		tc.listener.Change()
	}
}

func (tc *TransformControls) pointerUp(e input.PointerEvent) {
	if e.Button == input.ButtonLeft {
		tc.endDrag()
	}
}

func (tc *TransformControls) endDrag() {
	if tc.active == noAxis {
		return
	}
	tc.active = noAxis
	if tc.listener.Dragging != nil {
		tc.listener.Dragging(false)
	}
}

// update applies the drag under ray to the target and reports whether the
// transform changed.
func (tc *TransformControls) update(ray picking.Ray) bool {
	n := tc.graph.Node(tc.target)
	d := &tc.drag

	switch tc.mode {
	case ModeTranslate:
		s, _, ok := ray.ClosestOnLine(d.origin, d.axis)
		if !ok {
			return false
		}
		delta := snap(s-d.start, tc.snaps.Translation)
		world := d.origin.Add(d.axis.Scale(delta))
		n.Position = d.parentInv.TransformVec3(world)

	case ModeScale:
		s, _, ok := ray.ClosestOnLine(d.origin, d.axis)
		if !ok {
			return false
		}
		f := s / d.start
		base := d.scale.Component(tc.active)
		v := max(snap(base*f, tc.snaps.Scale), minScale)
		n.Scale = d.scale.WithComponent(tc.active, v)

	case ModeRotate:
		t, ok := ray.IntersectPlane(d.origin, d.axis)
		if !ok {
			return false
		}
		to := ray.At(t).Sub(d.origin)
		angle := float32(gomath.Atan2(
			float64(d.axis.Dot(d.from.Cross(to))),
			float64(d.from.Dot(to))))
		angle = snap(angle, tc.snaps.Rotation)
		world := math.QuatFromAxisAngle(d.axis, angle).Mul(d.worldRot)
		n.Rotation = d.parentRot.Conjugate().Mul(world).Normalize()

	default:
		return false
	}
	return true
}

// Lines implements Manipulator.
func (tc *TransformControls) Lines(dst []Line) []Line {
	if !tc.attached() {
		return dst
	}
	origin := tc.graph.WorldPosition(tc.target)
	length := tc.handleLength(origin)

	for i, dir := range tc.axisDirs() {
		if !tc.axes.has(i) {
			continue
		}
		color := axisColors[i]
		if i == tc.active || (tc.active == noAxis && i == tc.hover) {
			color = activeColor
		}
		u, v := perpendicular(dir)

		switch tc.mode {
		case ModeRotate:
			prev := origin.Add(u.Scale(length))
			for k := 1; k <= circleSegs; k++ {
				a := 2 * gomath.Pi * float64(k) / circleSegs
				c, s := float32(gomath.Cos(a)), float32(gomath.Sin(a))
				next := origin.Add(u.Scale(c * length)).Add(v.Scale(s * length))
				dst = append(dst, Line{From: prev, To: next, Color: color})
				prev = next
			}

		case ModeScale:
			tip := origin.Add(dir.Scale(length))
			dst = append(dst, Line{From: origin, To: tip, Color: color})
			h := length * 0.05
			corners := [4]math.Vec3{
				tip.Add(u.Scale(h)).Add(v.Scale(h)),
				tip.Add(u.Scale(-h)).Add(v.Scale(h)),
				tip.Add(u.Scale(-h)).Add(v.Scale(-h)),
				tip.Add(u.Scale(h)).Add(v.Scale(-h)),
			}
			for k := range corners {
				dst = append(dst, Line{From: corners[k], To: corners[(k+1)%4], Color: color})
			}

		default:
			tip := origin.Add(dir.Scale(length))
			dst = append(dst, Line{From: origin, To: tip, Color: color})
			back := tip.Sub(dir.Scale(length * 0.12))
			h := length * 0.05
			dst = append(dst,
				Line{From: tip, To: back.Add(u.Scale(h)), Color: color},
				Line{From: tip, To: back.Sub(u.Scale(h)), Color: color},
				Line{From: tip, To: back.Add(v.Scale(h)), Color: color},
				Line{From: tip, To: back.Sub(v.Scale(h)), Color: color},
			)
		}
	}
	return dst
}

// perpendicular returns two unit vectors orthogonal to d and each other.
func perpendicular(d math.Vec3) (u, v math.Vec3) {
	ref := math.Vec3{X: 1}
	if abs32(d.X) > 0.9 {
		ref = math.Vec3{Y: 1}
	}
	u = d.Cross(ref).Normalize()
	v = d.Cross(u).Normalize()
	return u, v
}

func snap(v, step float32) float32 {
	if step <= 0 {
		return v
	}
	return float32(gomath.Round(float64(v/step))) * step
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
