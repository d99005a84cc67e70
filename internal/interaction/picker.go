// Package interaction makes scene nodes clickable: it hit-tests pointer
// events against registered nodes, updates the hover cursor and plays a
// bounce on click.
//
// A Picker is driven from the render goroutine (pointer dispatch and tweener
// updates) and is not safe for concurrent use.
package interaction

import (
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/roomview/internal/anim"
	"github.com/Faultbox/roomview/internal/engine/input"
	"github.com/Faultbox/roomview/internal/engine/picking"
	"github.com/Faultbox/roomview/internal/engine/scene"
	"github.com/Faultbox/roomview/internal/event"
	"github.com/Faultbox/roomview/internal/logger"
	"github.com/Faultbox/roomview/pkg/math"
)

// Camera supplies the projection used to build pick rays.
type Camera interface {
	ViewProjection() math.Mat4
}

// BounceConfig controls the click feedback animation.
type BounceConfig struct {
	Enabled  bool
	Scale    float32
	Duration time.Duration
	Ease     anim.Ease
}

// DefaultBounce is applied to registrations that leave fields unset.
var DefaultBounce = BounceConfig{
	Enabled:  true,
	Scale:    1.15,
	Duration: 150 * time.Millisecond,
	Ease:     anim.BackOutStrong,
}

// ClickFunc is called with the registered node and the click that hit it.
type ClickFunc func(node scene.NodeID, e input.PointerEvent)

// Config describes one registration. Zero fields take the picker defaults.
type Config struct {
	Name           string
	OnClick        ClickFunc
	DisableBounce  bool
	BounceScale    float32
	BounceDuration time.Duration
	BounceEase     anim.Ease
}

// Registration is the state kept per registered node.
type Registration struct {
	Target        scene.NodeID
	Name          string
	OnClick       ClickFunc
	Bounce        BounceConfig
	OriginalScale math.Vec3

	animating bool
}

// Animating reports whether a bounce is in flight.
func (r *Registration) Animating() bool { return r.animating }

// Picker owns the registry of interactive nodes.
type Picker struct {
	// Defaults fill unset Config fields.
	Defaults BounceConfig

	graph    *scene.Graph
	animator anim.Animator
	log      *zap.Logger

	registry map[scene.NodeID]*Registration

	initialized bool
	camera      Camera
	source      input.PointerSource
	clickTok    event.Token
	moveTok     event.Token
	hovered     bool
}

// NewPicker creates a picker over graph, animating bounces with animator.
func NewPicker(graph *scene.Graph, animator anim.Animator, log *zap.Logger) *Picker {
	return &Picker{
		Defaults: DefaultBounce,
		graph:    graph,
		animator: animator,
		log:      logger.OrNop(log),
		registry: make(map[scene.NodeID]*Registration),
	}
}

// Init binds the camera and pointer source and starts listening. Calls after
// the first are ignored until Destroy.
func (p *Picker) Init(camera Camera, source input.PointerSource) {
	if p.initialized {
		return
	}
	p.camera = camera
	p.source = source
	p.clickTok = source.AddPointerListener(input.PointerClick, p.handleClick)
	p.moveTok = source.AddPointerListener(input.PointerMove, p.handleMove)
	p.initialized = true
	p.log.Debug("picker initialized")
}

// Initialized reports whether Init has run.
func (p *Picker) Initialized() bool { return p.initialized }

// Register makes node clickable and returns a function that unregisters it.
// Registering a node again replaces its registration.
func (p *Picker) Register(node scene.NodeID, cfg Config) func() {
	n := p.graph.Node(node)
	if n == nil {
		p.log.Warn("register: invalid node", zap.Int32("node", int32(node)))
		return func() {}
	}

	if old, ok := p.registry[node]; ok && old.animating {
		p.animator.CancelAnimationsOn(p.graph.ScaleProperty(node))
		n.Scale = old.OriginalScale
	}

	reg := &Registration{
		Target:        node,
		Name:          p.displayName(node, cfg.Name),
		OnClick:       cfg.OnClick,
		Bounce:        p.bounceConfig(cfg),
		OriginalScale: n.Scale,
	}
	p.registry[node] = reg
	p.log.Debug("interactive registered", zap.String("name", reg.Name))

	return func() {
		// A replaced registration must not remove its successor.
		if p.registry[node] == reg {
			p.Unregister(node)
		}
	}
}

func (p *Picker) displayName(node scene.NodeID, name string) string {
	if name != "" {
		return name
	}
	if name = p.graph.Name(node); name != "" {
		return name
	}
	return "unnamed"
}

func (p *Picker) bounceConfig(cfg Config) BounceConfig {
	b := p.Defaults
	b.Enabled = b.Enabled && !cfg.DisableBounce
	if cfg.BounceScale > 0 {
		b.Scale = cfg.BounceScale
	}
	if cfg.BounceDuration > 0 {
		b.Duration = cfg.BounceDuration
	}
	if cfg.BounceEase != "" {
		b.Ease = cfg.BounceEase
	}
	return b
}

// RegisterGroup registers every renderable node under root, root included,
// with the same config. Each registration is named after its node unless
// cfg.Name is set. The returned function unregisters all of them.
func (p *Picker) RegisterGroup(root scene.NodeID, cfg Config) func() {
	var unregister []func()
	p.graph.Traverse(root, func(id scene.NodeID) bool {
		if p.graph.Node(id).Renderable {
			unregister = append(unregister, p.Register(id, cfg))
		}
		return true
	})
	return func() {
		for _, fn := range unregister {
			fn()
		}
	}
}

// Unregister stops any bounce on node, restores its original scale and
// removes it from hit-testing.
func (p *Picker) Unregister(node scene.NodeID) {
	reg, ok := p.registry[node]
	if !ok {
		return
	}
	p.animator.CancelAnimationsOn(p.graph.ScaleProperty(node))
	if n := p.graph.Node(node); n != nil {
		n.Scale = reg.OriginalScale
	}
	delete(p.registry, node)
}

// Registration returns the registration of node.
func (p *Picker) Registration(node scene.NodeID) (*Registration, bool) {
	reg, ok := p.registry[node]
	return reg, ok
}

// Len returns the number of registered nodes.
func (p *Picker) Len() int { return len(p.registry) }

// Hovered reports whether the last pointer move was over a registered node.
func (p *Picker) Hovered() bool { return p.hovered }

// roots returns the registered nodes in id order so casts are deterministic.
func (p *Picker) roots() []scene.NodeID {
	roots := make([]scene.NodeID, 0, len(p.registry))
	for id := range p.registry {
		roots = append(roots, id)
	}
	sort.Slice(roots, func(i, j int) bool { return roots[i] < roots[j] })
	return roots
}

func (p *Picker) cast(e input.PointerEvent) (picking.Hit, bool) {
	b := p.source.Bounds()
	ray, ok := picking.ViewportRay(e.X, e.Y, b.X, b.Y, b.Width, b.Height, p.camera.ViewProjection())
	if !ok {
		return picking.Hit{}, false
	}
	return picking.Cast(p.graph, ray, p.roots())
}

// nearestRegistered walks from id up to the first registered node.
func (p *Picker) nearestRegistered(id scene.NodeID) *Registration {
	var found *Registration
	p.graph.Ancestors(id, func(n scene.NodeID) bool {
		found = p.registry[n]
		return found == nil
	})
	return found
}

func (p *Picker) handleClick(e input.PointerEvent) {
	if !p.initialized || len(p.registry) == 0 || e.Button != input.ButtonLeft {
		return
	}
	hit, ok := p.cast(e)
	if !ok {
		return
	}
	reg := p.nearestRegistered(hit.Node)
	if reg == nil || reg.animating {
		return
	}

	p.log.Debug("interactive clicked", zap.String("name", reg.Name))
	if reg.Bounce.Enabled {
		p.bounce(reg)
	}
	if reg.OnClick != nil {
		reg.OnClick(reg.Target, e)
	}
}

func (p *Picker) handleMove(e input.PointerEvent) {
	if !p.initialized {
		return
	}
	over := false
	if len(p.registry) > 0 {
		_, over = p.cast(e)
	}
	p.hovered = over

	if over {
		p.source.SetCursor(input.CursorPointer)
	} else {
		p.source.SetCursor(input.CursorDefault)
	}
}

// bounce scales the node up with the registration's ease, then back to its
// original scale. animating stays set until the second phase completes.
func (p *Picker) bounce(reg *Registration) {
	reg.animating = true
	target := p.graph.ScaleProperty(reg.Target)
	up := reg.OriginalScale.Scale(reg.Bounce.Scale)

	p.animator.AnimateTo(target, up, reg.Bounce.Duration, reg.Bounce.Ease, func() {
		p.animator.AnimateTo(target, reg.OriginalScale, reg.Bounce.Duration, anim.Power2Out, func() {
			reg.animating = false
		})
	})
}

// Destroy stops listening, cancels every bounce and clears the registry.
// Nodes caught mid-bounce get their original scale back. Init may be called
// again afterwards.
func (p *Picker) Destroy() {
	if p.source != nil {
		p.source.RemovePointerListener(p.clickTok)
		p.source.RemovePointerListener(p.moveTok)
	}
	for id, reg := range p.registry {
		p.animator.CancelAnimationsOn(p.graph.ScaleProperty(id))
		if reg.animating {
			if n := p.graph.Node(id); n != nil {
				n.Scale = reg.OriginalScale
			}
		}
	}
	clear(p.registry)

	p.camera = nil
	p.source = nil
	p.clickTok, p.moveTok = 0, 0
	p.hovered = false
	p.initialized = false
	p.log.Debug("picker destroyed")
}
