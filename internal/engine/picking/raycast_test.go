package picking

import (
	"testing"

	"github.com/Faultbox/roomview/internal/engine/scene"
	"github.com/Faultbox/roomview/pkg/math"
)

type quadMesh struct{}

// Triangles covers the plane z=0 for x in [-1, 0] only.
func (quadMesh) Triangles(fn func(a, b, c math.Vec3) bool) {
	fn(math.Vec3{X: -1, Y: -1}, math.Vec3{Y: -1}, math.Vec3{Y: 1})
	fn(math.Vec3{X: -1, Y: -1}, math.Vec3{Y: 1}, math.Vec3{X: -1, Y: 1})
}

func addBox(g *scene.Graph, parent scene.NodeID, name string, pos math.Vec3) scene.NodeID {
	n := scene.NewNode(name)
	n.Renderable = true
	n.Position = pos
	n.Bounds = unitBox()
	return g.Add(parent, n)
}

func TestCastNearest(t *testing.T) {
	g := scene.NewGraph()
	far := addBox(g, g.Root(), "far", math.Vec3{Z: -5})
	near := addBox(g, g.Root(), "near", math.Vec3{Z: 0})

	ray := Ray{Origin: math.Vec3{Z: 10}, Direction: math.Vec3{Z: -1}}
	hit, ok := Cast(g, ray, []scene.NodeID{far, near})
	if !ok {
		t.Fatal("expected a hit")
	}
	if hit.Node != near {
		t.Errorf("nearest = %s, want near", g.Name(hit.Node))
	}
	if hit.Distance != 9 {
		t.Errorf("distance = %v, want 9", hit.Distance)
	}

	all := CastAll(g, ray, []scene.NodeID{g.Root()})
	if len(all) != 2 || all[0].Node != near || all[1].Node != far {
		t.Errorf("CastAll order wrong: %+v", all)
	}
}

func TestCastSkipsHiddenAndDuplicates(t *testing.T) {
	g := scene.NewGraph()
	group := g.Add(g.Root(), scene.NewNode("group"))
	child := addBox(g, group, "child", math.Vec3{})

	ray := Ray{Origin: math.Vec3{Z: 10}, Direction: math.Vec3{Z: -1}}

	hits := CastAll(g, ray, []scene.NodeID{group, child})
	if len(hits) != 1 {
		t.Fatalf("child reachable from two roots should be hit once, got %d", len(hits))
	}

	g.Node(group).Visible = false
	if _, ok := Cast(g, ray, []scene.NodeID{child}); ok {
		t.Error("node under a hidden group should not be hit")
	}
}

func TestCastRefinesWithTriangles(t *testing.T) {
	g := scene.NewGraph()
	n := scene.NewNode("panel")
	n.Renderable = true
	n.Bounds = scene.Box{Min: math.Vec3{X: -1, Y: -1}, Max: math.Vec3{X: 1, Y: 1}}
	n.Mesh = quadMesh{}
	n.Scale = math.Vec3{X: 2, Y: 2, Z: 2}
	panel := g.Add(g.Root(), n)

	left := Ray{Origin: math.Vec3{X: -1, Z: 4}, Direction: math.Vec3{Z: -1}}
	hit, ok := Cast(g, left, []scene.NodeID{panel})
	if !ok {
		t.Fatal("expected a hit on the covered half")
	}
	if hit.Distance < 3.999 || hit.Distance > 4.001 {
		t.Errorf("distance = %v, want 4", hit.Distance)
	}

	right := Ray{Origin: math.Vec3{X: 1, Z: 4}, Direction: math.Vec3{Z: -1}}
	if _, ok := Cast(g, right, []scene.NodeID{panel}); ok {
		t.Error("box hit on the uncovered half should be rejected by the triangles")
	}
}
