package interaction

import (
	gomath "math"
	"testing"
	"time"

	"github.com/Faultbox/roomview/internal/anim"
	"github.com/Faultbox/roomview/internal/engine/input"
	"github.com/Faultbox/roomview/internal/engine/scene"
	"github.com/Faultbox/roomview/pkg/math"
)

type fixedCamera struct{ vp math.Mat4 }

func (c fixedCamera) ViewProjection() math.Mat4 { return c.vp }

func newCamera() fixedCamera {
	proj := math.Perspective(float32(gomath.Pi/3), 1, 0.1, 100)
	view := math.LookAt(math.Vec3{Z: 10}, math.Vec3{}, math.Vec3{Y: 1})
	return fixedCamera{vp: proj.Mul(view)}
}

type fixture struct {
	graph   *scene.Graph
	tweener *anim.Tweener
	pointer *input.Pointer
	picker  *Picker
	desk    scene.NodeID // group
	top     scene.NodeID // renderable child of desk, at the origin
	lamp    scene.NodeID // renderable, off to the right
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	g := scene.NewGraph()
	box := scene.Box{Min: math.Vec3{X: -1, Y: -1, Z: -1}, Max: math.Vec3{X: 1, Y: 1, Z: 1}}

	desk := g.Add(g.Root(), scene.NewNode("desk"))
	topNode := scene.NewNode("desk-top")
	topNode.Renderable = true
	topNode.Bounds = box
	top := g.Add(desk, topNode)

	lampNode := scene.NewNode("lamp")
	lampNode.Renderable = true
	lampNode.Bounds = box
	lampNode.Position = math.Vec3{X: 3}
	lamp := g.Add(g.Root(), lampNode)

	f := &fixture{
		graph:   g,
		tweener: anim.NewTweener(),
		pointer: input.NewPointer(input.Rect{Width: 800, Height: 800}),
		desk:    desk,
		top:     top,
		lamp:    lamp,
	}
	f.picker = NewPicker(g, f.tweener, nil)
	f.picker.Init(newCamera(), f.pointer)
	return f
}

func (f *fixture) click(x, y float32) {
	f.pointer.Dispatch(input.PointerEvent{Kind: input.PointerDown, X: x, Y: y, Button: input.ButtonLeft})
	f.pointer.Dispatch(input.PointerEvent{Kind: input.PointerUp, X: x, Y: y, Button: input.ButtonLeft})
}

func TestClickBouncesThenCallsHandler(t *testing.T) {
	f := newFixture(t)

	var clicked []scene.NodeID
	f.picker.Register(f.desk, Config{OnClick: func(n scene.NodeID, _ input.PointerEvent) {
		clicked = append(clicked, n)
		if !f.picker.registry[n].Animating() {
			t.Error("bounce should start before the click handler runs")
		}
	}})

	f.click(400, 400)
	if len(clicked) != 1 || clicked[0] != f.desk {
		t.Fatalf("clicked = %v, want [desk]", clicked)
	}

	// Clicks during the bounce are ignored.
	f.click(400, 400)
	if len(clicked) != 1 {
		t.Fatalf("click during bounce fired handler, clicked = %v", clicked)
	}

	f.tweener.Update(150 * time.Millisecond)
	want := math.Vec3One.Scale(DefaultBounce.Scale)
	if got := f.graph.Node(f.desk).Scale; !got.ApproxEqual(want, 1e-5) {
		t.Errorf("scale at peak = %v, want %v", got, want)
	}

	f.tweener.Update(150 * time.Millisecond)
	if got := f.graph.Node(f.desk).Scale; !got.ApproxEqual(math.Vec3One, 1e-5) {
		t.Errorf("scale after bounce = %v, want 1", got)
	}
	reg, _ := f.picker.Registration(f.desk)
	if reg.Animating() {
		t.Error("registration still animating after bounce")
	}

	f.click(400, 400)
	if len(clicked) != 2 {
		t.Errorf("click after bounce: clicked = %v, want 2 entries", clicked)
	}
}

func TestClickWithoutBounce(t *testing.T) {
	f := newFixture(t)

	n := 0
	f.picker.Register(f.lamp, Config{DisableBounce: true, OnClick: func(scene.NodeID, input.PointerEvent) { n++ }})

	// The lamp sits at x=3; project it to find its pixel.
	vp := newCamera().vp
	p := vp.MulVec4(math.Vec4{3, 0, 0, 1})
	x := (p[0]/p[3] + 1) / 2 * 800

	f.click(x, 400)
	f.click(x, 400)
	if n != 2 {
		t.Errorf("handler calls = %d, want 2", n)
	}
	if f.tweener.Len() != 0 {
		t.Errorf("running animations = %d, want 0", f.tweener.Len())
	}
}

func TestClickMiss(t *testing.T) {
	f := newFixture(t)

	n := 0
	f.picker.Register(f.desk, Config{OnClick: func(scene.NodeID, input.PointerEvent) { n++ }})
	f.click(5, 5)
	if n != 0 {
		t.Errorf("handler fired for a miss")
	}
}

func TestDragIsNotAClick(t *testing.T) {
	f := newFixture(t)

	n := 0
	f.picker.Register(f.desk, Config{OnClick: func(scene.NodeID, input.PointerEvent) { n++ }})
	f.pointer.Dispatch(input.PointerEvent{Kind: input.PointerDown, X: 380, Y: 400, Button: input.ButtonLeft})
	f.pointer.Dispatch(input.PointerEvent{Kind: input.PointerMove, X: 420, Y: 400})
	f.pointer.Dispatch(input.PointerEvent{Kind: input.PointerUp, X: 400, Y: 400, Button: input.ButtonLeft})
	if n != 0 {
		t.Error("drag produced a click")
	}
}

func TestRightClickIgnored(t *testing.T) {
	f := newFixture(t)

	n := 0
	f.picker.Register(f.desk, Config{OnClick: func(scene.NodeID, input.PointerEvent) { n++ }})
	f.pointer.Dispatch(input.PointerEvent{Kind: input.PointerDown, X: 400, Y: 400, Button: input.ButtonRight})
	f.pointer.Dispatch(input.PointerEvent{Kind: input.PointerUp, X: 400, Y: 400, Button: input.ButtonRight})
	if n != 0 {
		t.Error("right click fired the handler")
	}
}

func TestNames(t *testing.T) {
	f := newFixture(t)
	unnamed := f.graph.Add(f.graph.Root(), scene.Node{Scale: math.Vec3One, Visible: true})

	tests := []struct {
		node scene.NodeID
		cfg  Config
		want string
	}{
		{f.desk, Config{Name: "workstation"}, "workstation"},
		{f.lamp, Config{}, "lamp"},
		{unnamed, Config{}, "unnamed"},
	}
	for _, tt := range tests {
		f.picker.Register(tt.node, tt.cfg)
		reg, ok := f.picker.Registration(tt.node)
		if !ok {
			t.Fatalf("node %d not registered", tt.node)
		}
		if reg.Name != tt.want {
			t.Errorf("name = %q, want %q", reg.Name, tt.want)
		}
	}
}

func TestBounceOverrides(t *testing.T) {
	f := newFixture(t)

	f.picker.Register(f.desk, Config{BounceScale: 1.5, BounceDuration: time.Second, BounceEase: anim.Linear})
	reg, _ := f.picker.Registration(f.desk)
	want := BounceConfig{Enabled: true, Scale: 1.5, Duration: time.Second, Ease: anim.Linear}
	if reg.Bounce != want {
		t.Errorf("bounce = %+v, want %+v", reg.Bounce, want)
	}

	f.picker.Register(f.lamp, Config{DisableBounce: true})
	reg, _ = f.picker.Registration(f.lamp)
	if reg.Bounce.Enabled {
		t.Error("DisableBounce ignored")
	}
}

func TestUnregisterMidBounce(t *testing.T) {
	f := newFixture(t)

	unregister := f.picker.Register(f.desk, Config{})
	f.click(400, 400)
	f.tweener.Update(75 * time.Millisecond)
	if f.graph.Node(f.desk).Scale == math.Vec3One {
		t.Fatal("bounce did not start")
	}

	unregister()
	if got := f.graph.Node(f.desk).Scale; got != math.Vec3One {
		t.Errorf("scale after unregister = %v, want original", got)
	}
	if f.tweener.Len() != 0 {
		t.Errorf("animations left running: %d", f.tweener.Len())
	}
	if f.picker.Len() != 0 {
		t.Errorf("registry size = %d, want 0", f.picker.Len())
	}
}

func TestReRegisterKeepsOriginalScale(t *testing.T) {
	f := newFixture(t)

	first := f.picker.Register(f.desk, Config{})
	f.click(400, 400)
	f.tweener.Update(75 * time.Millisecond)

	second := f.picker.Register(f.desk, Config{Name: "again"})
	reg, _ := f.picker.Registration(f.desk)
	if reg.OriginalScale != math.Vec3One {
		t.Errorf("original scale = %v, want 1", reg.OriginalScale)
	}

	// The stale unregister must not remove the new registration.
	first()
	if _, ok := f.picker.Registration(f.desk); !ok {
		t.Fatal("stale unregister removed the replacement")
	}
	second()
	if f.picker.Len() != 0 {
		t.Error("unregister of current registration failed")
	}
}

func TestRegisterGroup(t *testing.T) {
	f := newFixture(t)

	var got []scene.NodeID
	unregister := f.picker.RegisterGroup(f.graph.Root(), Config{OnClick: func(n scene.NodeID, _ input.PointerEvent) {
		got = append(got, n)
	}})
	if f.picker.Len() != 2 {
		t.Fatalf("registered %d nodes, want 2", f.picker.Len())
	}
	if reg, _ := f.picker.Registration(f.top); reg.Name != "desk-top" {
		t.Errorf("child name = %q, want desk-top", reg.Name)
	}

	f.click(400, 400)
	if len(got) != 1 || got[0] != f.top {
		t.Errorf("clicked = %v, want [desk-top]", got)
	}

	unregister()
	if f.picker.Len() != 0 {
		t.Errorf("registry size after unregister = %d", f.picker.Len())
	}
}

func TestHoverCursor(t *testing.T) {
	f := newFixture(t)

	move := func(x, y float32) {
		f.pointer.Dispatch(input.PointerEvent{Kind: input.PointerMove, X: x, Y: y})
	}

	move(400, 400)
	if f.pointer.Cursor() != input.CursorDefault {
		t.Error("empty registry must show the default cursor")
	}

	f.picker.Register(f.desk, Config{})
	move(400, 400)
	if f.pointer.Cursor() != input.CursorPointer || !f.picker.Hovered() {
		t.Errorf("over desk: cursor = %v, hovered = %v", f.pointer.Cursor(), f.picker.Hovered())
	}
	move(5, 5)
	if f.pointer.Cursor() != input.CursorDefault || f.picker.Hovered() {
		t.Errorf("off desk: cursor = %v, hovered = %v", f.pointer.Cursor(), f.picker.Hovered())
	}
}

func TestHiddenNodesAreNotPicked(t *testing.T) {
	f := newFixture(t)

	n := 0
	f.picker.Register(f.desk, Config{OnClick: func(scene.NodeID, input.PointerEvent) { n++ }})
	f.graph.Node(f.desk).Visible = false
	f.click(400, 400)
	if n != 0 {
		t.Error("hidden node was clicked")
	}
}

func TestDestroyAndReinit(t *testing.T) {
	f := newFixture(t)

	f.picker.Register(f.desk, Config{})
	f.click(400, 400)
	f.tweener.Update(75 * time.Millisecond)

	f.picker.Destroy()
	if f.picker.Initialized() || f.picker.Len() != 0 {
		t.Fatal("destroy left state behind")
	}
	if f.pointer.Listeners(input.PointerClick) != 0 || f.pointer.Listeners(input.PointerMove) != 0 {
		t.Error("destroy left pointer listeners")
	}
	if got := f.graph.Node(f.desk).Scale; got != math.Vec3One {
		t.Errorf("scale after destroy = %v, want original", got)
	}
	if f.tweener.Len() != 0 {
		t.Errorf("animations left after destroy: %d", f.tweener.Len())
	}

	// Init is idempotent and works again after Destroy.
	f.picker.Init(newCamera(), f.pointer)
	f.picker.Init(newCamera(), f.pointer)
	if f.pointer.Listeners(input.PointerClick) != 1 {
		t.Errorf("click listeners = %d, want 1", f.pointer.Listeners(input.PointerClick))
	}

	n := 0
	f.picker.Register(f.desk, Config{OnClick: func(scene.NodeID, input.PointerEvent) { n++ }})
	f.click(400, 400)
	if n != 1 {
		t.Errorf("handler calls after reinit = %d, want 1", n)
	}
}

func TestRegisterInvalidNode(t *testing.T) {
	f := newFixture(t)
	unregister := f.picker.Register(scene.NodeID(999), Config{})
	unregister()
	if f.picker.Len() != 0 {
		t.Error("invalid node registered")
	}
}
