package scene

import (
	gomath "math"
	"testing"

	"github.com/Faultbox/roomview/pkg/math"
)

func buildRoom(t *testing.T) (*Graph, NodeID, NodeID, NodeID) {
	t.Helper()
	g := NewGraph()
	desk := g.Add(g.Root(), NewNode("desk"))
	monitor := g.Add(desk, NewNode("monitor"))
	screen := g.Add(monitor, NewNode("screen"))
	if desk == NoNode || monitor == NoNode || screen == NoNode {
		t.Fatal("Add returned NoNode for a live parent")
	}
	return g, desk, monitor, screen
}

func TestAddAndTraverse(t *testing.T) {
	g, desk, monitor, screen := buildRoom(t)
	lamp := g.Add(g.Root(), NewNode("lamp"))

	var order []NodeID
	g.Traverse(g.Root(), func(id NodeID) bool {
		order = append(order, id)
		return true
	})

	want := []NodeID{g.Root(), desk, monitor, screen, lamp}
	if len(order) != len(want) {
		t.Fatalf("traversal = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("traversal = %v, want %v", order, want)
		}
	}

	if g.Add(NodeID(99), NewNode("orphan")) != NoNode {
		t.Error("Add under an invalid parent should return NoNode")
	}
}

func TestTraverseSkipsChildren(t *testing.T) {
	g, desk, _, _ := buildRoom(t)

	var visited int
	g.Traverse(g.Root(), func(id NodeID) bool {
		visited++
		return id != desk
	})
	if visited != 2 {
		t.Errorf("expected root and desk only, visited %d", visited)
	}
}

func TestAncestors(t *testing.T) {
	g, desk, monitor, screen := buildRoom(t)

	var chain []NodeID
	g.Ancestors(screen, func(id NodeID) bool {
		chain = append(chain, id)
		return true
	})
	want := []NodeID{screen, monitor, desk, g.Root()}
	if len(chain) != len(want) {
		t.Fatalf("ancestors = %v, want %v", chain, want)
	}
	for i := range want {
		if chain[i] != want[i] {
			t.Fatalf("ancestors = %v, want %v", chain, want)
		}
	}

	if !g.IsAncestor(desk, screen) {
		t.Error("desk should be an ancestor of screen")
	}
	if g.IsAncestor(screen, desk) {
		t.Error("screen is not an ancestor of desk")
	}
}

func TestRemoveTombstonesSubtree(t *testing.T) {
	g, desk, monitor, screen := buildRoom(t)
	before := g.Len()

	g.Remove(monitor)

	if g.Valid(monitor) || g.Valid(screen) {
		t.Error("removed subtree should be invalid")
	}
	if !g.Valid(desk) {
		t.Error("parent of removed node should stay valid")
	}
	if len(g.Children(desk)) != 0 {
		t.Errorf("desk still lists children %v", g.Children(desk))
	}
	if g.Len() != before-2 {
		t.Errorf("Len = %d, want %d", g.Len(), before-2)
	}

	// slots are not reused
	fresh := g.Add(desk, NewNode("keyboard"))
	if fresh == monitor || fresh == screen {
		t.Error("removed slot was reused")
	}
	if g.Node(monitor) != nil {
		t.Error("Node on a removed id should be nil")
	}

	g.Remove(g.Root())
	if !g.Valid(g.Root()) {
		t.Error("root must not be removable")
	}
}

func TestReparent(t *testing.T) {
	g, desk, monitor, screen := buildRoom(t)

	if g.Reparent(desk, screen) {
		t.Error("reparenting under a descendant must fail")
	}
	if !g.Reparent(screen, desk) {
		t.Fatal("reparent failed")
	}
	if g.Parent(screen) != desk {
		t.Errorf("parent = %d, want %d", g.Parent(screen), desk)
	}
	if len(g.Children(monitor)) != 0 {
		t.Error("old parent still lists the child")
	}
}

func TestFind(t *testing.T) {
	g, _, monitor, _ := buildRoom(t)
	if got := g.Find("monitor"); got != monitor {
		t.Errorf("Find(monitor) = %d, want %d", got, monitor)
	}
	if got := g.Find("nope"); got != NoNode {
		t.Errorf("Find(nope) = %d, want NoNode", got)
	}
}

func TestWorldMatrix(t *testing.T) {
	g, desk, monitor, _ := buildRoom(t)

	g.Node(desk).Position = math.Vec3{X: 10}
	g.Node(desk).Scale = math.Vec3{X: 2, Y: 2, Z: 2}
	g.Node(monitor).Position = math.Vec3{Y: 1}

	got := g.WorldPosition(monitor)
	want := math.Vec3{X: 10, Y: 2}
	if !got.ApproxEqual(want, 1e-5) {
		t.Errorf("WorldPosition = %v, want %v", got, want)
	}
}

func TestWorldRotation(t *testing.T) {
	g, desk, monitor, _ := buildRoom(t)
	half := float32(gomath.Pi / 4)
	g.Node(desk).Rotation = math.QuatFromAxisAngle(math.Vec3{Y: 1}, half)
	g.Node(monitor).Rotation = math.QuatFromAxisAngle(math.Vec3{Y: 1}, half)

	got := g.WorldRotation(monitor).Rotate(math.Vec3{X: 1})
	want := math.Vec3{Z: -1}
	if !got.ApproxEqual(want, 1e-4) {
		t.Errorf("rotated = %v, want %v", got, want)
	}
}

func TestWorldBounds(t *testing.T) {
	g, desk, monitor, _ := buildRoom(t)

	if _, ok := g.WorldBounds(desk); ok {
		t.Error("node without geometry should have no bounds")
	}

	n := g.Node(monitor)
	n.Bounds = Box{Min: math.Vec3{X: -1, Y: -1, Z: -1}, Max: math.Vec3{X: 1, Y: 1, Z: 1}}
	g.Node(desk).Position = math.Vec3{X: 5}
	g.Node(desk).Scale = math.Vec3{X: 3, Y: 3, Z: 3}

	b, ok := g.WorldBounds(monitor)
	if !ok {
		t.Fatal("expected bounds")
	}
	if !b.Min.ApproxEqual(math.Vec3{X: 2, Y: -3, Z: -3}, 1e-5) || !b.Max.ApproxEqual(math.Vec3{X: 8, Y: 3, Z: 3}, 1e-5) {
		t.Errorf("WorldBounds = %+v", b)
	}

	sub, ok := g.SubtreeBounds(desk)
	if !ok || sub != b {
		t.Errorf("SubtreeBounds = %+v, %v; want %+v", sub, ok, b)
	}
}

func TestVisibleInWorld(t *testing.T) {
	g, desk, _, screen := buildRoom(t)
	if !g.VisibleInWorld(screen) {
		t.Error("screen should be visible")
	}
	g.Node(desk).Visible = false
	if g.VisibleInWorld(screen) {
		t.Error("hidden ancestor should hide screen")
	}
}

func TestProperty(t *testing.T) {
	g, desk, _, _ := buildRoom(t)

	scale := g.ScaleProperty(desk)
	if scale != g.ScaleProperty(desk) {
		t.Error("properties of the same node and field should compare equal")
	}
	if scale == g.PositionProperty(desk) {
		t.Error("scale and position must differ")
	}

	scale.SetValue(math.Vec3{X: 2, Y: 2, Z: 2})
	if g.Node(desk).Scale != (math.Vec3{X: 2, Y: 2, Z: 2}) {
		t.Errorf("scale = %v", g.Node(desk).Scale)
	}

	g.Remove(desk)
	scale.SetValue(math.Vec3{X: 9}) // dropped
	if v := scale.Value(); v != (math.Vec3{}) {
		t.Errorf("removed node should read zero, got %v", v)
	}
}
