package room

import (
	"context"
	"image"
	"testing"

	"github.com/Faultbox/roomview/internal/anim"
	"github.com/Faultbox/roomview/internal/config"
	"github.com/Faultbox/roomview/internal/engine/input"
	"github.com/Faultbox/roomview/internal/engine/model"
	"github.com/Faultbox/roomview/internal/engine/scene"
	"github.com/Faultbox/roomview/internal/engine/texture"
	"github.com/Faultbox/roomview/internal/gizmo"
	"github.com/Faultbox/roomview/internal/interaction"
	"github.com/Faultbox/roomview/internal/resources"
	"github.com/Faultbox/roomview/pkg/math"
)

func cube(name string) *model.Model {
	box := scene.Box{Min: math.Vec3{X: -1, Y: -1, Z: -1}, Max: math.Vec3{X: 1, Y: 1, Z: 1}}
	return &model.Model{
		Name:   name,
		Nodes:  []model.Node{{Name: name + "-mesh", Parent: -1, Rotation: math.QuatIdentity(), Scale: math.Vec3One, Meshes: []int{0}}},
		Meshes: []*model.Mesh{{Name: name, Bounds: box}},
		Bounds: box,
	}
}

func loadStore(t *testing.T, descs []resources.Descriptor) *resources.Store {
	t.Helper()
	store := resources.New(resources.Loaders{
		resources.KindModel: resources.LoaderFunc(func(_ context.Context, d resources.Descriptor) (resources.Payload, error) {
			return cube(d.Name), nil
		}),
		resources.KindTexture: resources.LoaderFunc(func(_ context.Context, d resources.Descriptor) (resources.Payload, error) {
			return texture.New(d.Name, image.NewRGBA(image.Rect(0, 0, 1, 1))), nil
		}),
	})
	t.Cleanup(store.Dispose)
	store.Load(context.Background(), descs)
	return store
}

type env struct {
	graph  *scene.Graph
	picker *interaction.Picker
	gizmo  *gizmo.Controller
}

func newEnv() env {
	g := scene.NewGraph()
	pointer := input.NewPointer(input.Rect{Width: 100, Height: 100})
	picker := interaction.NewPicker(g, anim.NewTweener(), nil)
	gz := gizmo.NewController(nil, nil)
	gz.Init(nil, pointer, g, nil)
	return env{graph: g, picker: picker, gizmo: gz}
}

func TestPopulateByConvention(t *testing.T) {
	store := loadStore(t, []resources.Descriptor{
		{Name: "chairModel", Source: "chair.glb", Kind: resources.KindModel},
		{Name: "chairTexture", Source: "chair.png", Kind: resources.KindTexture},
		{Name: "roomModel", Source: "room.glb", Kind: resources.KindModel},
	})
	e := newEnv()
	l := New(e.graph, e.picker, e.gizmo, nil, nil)
	l.Populate(store)

	chair, ok := l.Placed("chairModel")
	if !ok {
		t.Fatal("chair not placed")
	}
	if _, ok := l.Placed("roomModel"); !ok {
		t.Fatal("room not placed")
	}
	if e.picker.Len() != 2 {
		t.Errorf("interactive objects = %d, want 2", e.picker.Len())
	}

	tex, _ := store.Texture("chairTexture")
	dressed := 0
	e.graph.Traverse(chair, func(id scene.NodeID) bool {
		if n := e.graph.Node(id); n.Renderable && n.Texture == tex {
			dressed++
		}
		return true
	})
	if dressed != 1 {
		t.Errorf("dressed nodes = %d, want 1", dressed)
	}

	// Populating again does not duplicate objects.
	before := e.graph.Len()
	l.Populate(store)
	if e.graph.Len() != before {
		t.Errorf("second populate added %d nodes", e.graph.Len()-before)
	}
}

func TestPopulateConfigured(t *testing.T) {
	store := loadStore(t, []resources.Descriptor{
		{Name: "roomModel", Source: "room.glb", Kind: resources.KindModel},
		{Name: "bakedDayTexture", Source: "day.jpg", Kind: resources.KindTexture},
		{Name: "chairModel", Source: "chair.glb", Kind: resources.KindModel},
	})
	e := newEnv()
	l := New(e.graph, e.picker, e.gizmo, []config.ObjectConfig{
		{Model: "roomModel", Texture: "bakedDayTexture"},
		{Model: "chairModel", Interactive: true},
		{Model: "missingModel"},
	}, nil)
	l.Populate(store)

	room, ok := l.Placed("roomModel")
	if !ok {
		t.Fatal("room not placed")
	}
	if _, ok := l.Placed("missingModel"); ok {
		t.Error("missing model placed")
	}
	if _, ok := e.picker.Registration(room); ok {
		t.Error("room registered as interactive")
	}
	chair, _ := l.Placed("chairModel")
	reg, ok := e.picker.Registration(chair)
	if !ok {
		t.Fatal("chair not interactive")
	}
	if reg.Name != "chairModel" {
		t.Errorf("registration name = %q", reg.Name)
	}

	// A click toggles the gizmo on the chair.
	reg.OnClick(chair, input.PointerEvent{})
	if e.gizmo.State().Attached != chair {
		t.Fatal("click did not attach the gizmo")
	}
	reg.OnClick(chair, input.PointerEvent{})
	if e.gizmo.State().Attached != scene.NoNode {
		t.Fatal("second click did not detach the gizmo")
	}

	b, ok := l.Bounds()
	if !ok {
		t.Fatal("no bounds")
	}
	if b.Min != (math.Vec3{X: -1, Y: -1, Z: -1}) || b.Max != (math.Vec3{X: 1, Y: 1, Z: 1}) {
		t.Errorf("bounds = %+v", b)
	}
}

func TestClear(t *testing.T) {
	store := loadStore(t, []resources.Descriptor{
		{Name: "chairModel", Source: "chair.glb", Kind: resources.KindModel},
	})
	e := newEnv()
	l := New(e.graph, e.picker, e.gizmo, nil, nil)
	l.Populate(store)

	chair, _ := l.Placed("chairModel")
	e.gizmo.Attach(chair, nil)
	l.Clear()

	if e.graph.Valid(chair) {
		t.Error("chair still in the graph")
	}
	if e.picker.Len() != 0 {
		t.Errorf("interactive objects left: %d", e.picker.Len())
	}
	if e.gizmo.State().Attached != scene.NoNode {
		t.Error("gizmo still attached to a removed node")
	}
	if _, ok := l.Bounds(); ok {
		t.Error("bounds reported after clear")
	}
}
