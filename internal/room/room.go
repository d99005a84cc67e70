// Package room places loaded models into the scene graph, dresses them with
// their textures and makes the interactive ones toggle the transform gizmo.
package room

import (
	"strings"

	"go.uber.org/zap"

	"github.com/Faultbox/roomview/internal/config"
	"github.com/Faultbox/roomview/internal/engine/input"
	"github.com/Faultbox/roomview/internal/engine/scene"
	"github.com/Faultbox/roomview/internal/gizmo"
	"github.com/Faultbox/roomview/internal/interaction"
	"github.com/Faultbox/roomview/internal/logger"
	"github.com/Faultbox/roomview/internal/resources"
)

// Layout tracks the objects placed from one store.
type Layout struct {
	graph   *scene.Graph
	picker  *interaction.Picker
	gizmo   *gizmo.Controller
	objects []config.ObjectConfig
	log     *zap.Logger

	// Attach is applied whenever a click attaches the gizmo.
	Attach *gizmo.AttachConfig

	placed     map[string]scene.NodeID
	unregister []func()
}

// New creates an empty layout. See config.SceneConfig for how objects are
// chosen.
func New(graph *scene.Graph, picker *interaction.Picker, gz *gizmo.Controller, objects []config.ObjectConfig, log *zap.Logger) *Layout {
	return &Layout{
		graph:   graph,
		picker:  picker,
		gizmo:   gz,
		objects: objects,
		log:     logger.OrNop(log),
		placed:  make(map[string]scene.NodeID),
	}
}

// Populate places every configured model found in store. Missing resources
// are logged and skipped. Models already placed are left alone.
func (r *Layout) Populate(store *resources.Store) {
	for _, obj := range r.plan(store) {
		if _, ok := r.placed[obj.Model]; ok {
			continue
		}
		m, ok := store.Model(obj.Model)
		if !ok {
			r.log.Warn("scene object has no model", zap.String("model", obj.Model))
			continue
		}
		root := m.Instantiate(r.graph, r.graph.Root())
		if root == scene.NoNode {
			continue
		}
		r.placed[obj.Model] = root

		if obj.Texture != "" {
			r.dress(store, root, obj.Texture)
		}
		if obj.Interactive {
			r.unregister = append(r.unregister, r.picker.Register(root, interaction.Config{
				Name:    obj.Model,
				OnClick: r.toggleGizmo,
			}))
		}
		r.log.Debug("object placed",
			zap.String("model", obj.Model),
			zap.String("texture", obj.Texture),
			zap.Bool("interactive", obj.Interactive))
	}
}

// plan returns the configured objects, or one per model resource named by
// convention: fooModel is dressed with fooTexture or fooVideo.
func (r *Layout) plan(store *resources.Store) []config.ObjectConfig {
	if len(r.objects) > 0 {
		return r.objects
	}
	var plan []config.ObjectConfig
	for _, name := range store.Names() {
		if _, ok := store.Model(name); !ok {
			continue
		}
		obj := config.ObjectConfig{Model: name, Interactive: true}
		base := strings.TrimSuffix(name, "Model")
		for _, candidate := range []string{base + "Video", base + "Texture"} {
			if store.Has(candidate) {
				obj.Texture = candidate
				break
			}
		}
		plan = append(plan, obj)
	}
	return plan
}

// dress applies a texture or video resource to every renderable node under
// root.
func (r *Layout) dress(store *resources.Store, root scene.NodeID, name string) {
	var tex any
	if t, ok := store.Texture(name); ok {
		tex = t
	} else if v, ok := store.Video(name); ok {
		tex = v
	} else {
		r.log.Warn("scene object texture not loaded", zap.String("texture", name))
		return
	}
	r.graph.Traverse(root, func(id scene.NodeID) bool {
		if n := r.graph.Node(id); n.Renderable {
			n.Texture = tex
		}
		return true
	})
}

func (r *Layout) toggleGizmo(node scene.NodeID, _ input.PointerEvent) {
	r.gizmo.Toggle(node, r.Attach)
}

// Placed returns the instance root of a placed model.
func (r *Layout) Placed(model string) (scene.NodeID, bool) {
	id, ok := r.placed[model]
	return id, ok
}

// Bounds returns the world box enclosing every placed object.
func (r *Layout) Bounds() (scene.Box, bool) {
	out := scene.EmptyBox()
	for _, root := range r.placed {
		if b, ok := r.graph.SubtreeBounds(root); ok {
			out = out.Union(b)
		}
	}
	return out, !out.Empty()
}

// Clear unregisters interactive objects and removes placed nodes. The
// gizmo is detached first if it holds one of them.
func (r *Layout) Clear() {
	for _, fn := range r.unregister {
		fn()
	}
	r.unregister = nil

	st := r.gizmo.State()
	for model, root := range r.placed {
		if st.Attached != scene.NoNode && r.graph.IsAncestor(root, st.Attached) {
			r.gizmo.Detach()
		}
		r.graph.Remove(root)
		delete(r.placed, model)
	}
}
