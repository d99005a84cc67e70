// Package gizmo attaches an on-screen transform manipulator to one scene node
// at a time and keeps the orbit control out of the way while it is dragged.
package gizmo

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/roomview/internal/engine/input"
	"github.com/Faultbox/roomview/internal/engine/scene"
	"github.com/Faultbox/roomview/internal/event"
	"github.com/Faultbox/roomview/internal/logger"
	"github.com/Faultbox/roomview/pkg/math"
)

// ErrNotInitialized is logged when the controller is used before Init.
var ErrNotInitialized = errors.New("gizmo: not initialized")

// Mode selects what dragging a handle changes.
type Mode int

const (
	ModeTranslate Mode = iota + 1
	ModeRotate
	ModeScale
)

var modeNames = map[Mode]string{
	ModeTranslate: "translate",
	ModeRotate:    "rotate",
	ModeScale:     "scale",
}

func (m Mode) String() string {
	if s, ok := modeNames[m]; ok {
		return s
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// Next returns the following mode in translate, rotate, scale order.
func (m Mode) Next() Mode {
	switch m {
	case ModeTranslate:
		return ModeRotate
	case ModeRotate:
		return ModeScale
	default:
		return ModeTranslate
	}
}

// ParseMode parses a configured mode name.
func ParseMode(s string) (Mode, error) {
	for m, name := range modeNames {
		if name == s {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown gizmo mode %q", s)
}

// Space selects the axes handles are aligned to.
type Space int

const (
	SpaceLocal Space = iota + 1
	SpaceWorld
)

func (s Space) String() string {
	switch s {
	case SpaceLocal:
		return "local"
	case SpaceWorld:
		return "world"
	default:
		return fmt.Sprintf("Space(%d)", int(s))
	}
}

// ParseSpace parses a configured space name.
func ParseSpace(s string) (Space, error) {
	switch s {
	case "local":
		return SpaceLocal, nil
	case "world":
		return SpaceWorld, nil
	default:
		return 0, fmt.Errorf("unknown gizmo space %q", s)
	}
}

// Snaps are drag increments. Zero disables snapping for that mode.
type Snaps struct {
	Translation float32
	Rotation    float32 // radians
	Scale       float32
}

// Axes selects which handles are shown.
type Axes struct {
	X, Y, Z bool
}

// AllAxes shows every handle.
var AllAxes = Axes{X: true, Y: true, Z: true}

func (a Axes) has(axis int) bool {
	switch axis {
	case 0:
		return a.X
	case 1:
		return a.Y
	default:
		return a.Z
	}
}

// AttachConfig is applied once when attaching. Zero and nil fields leave the
// current setting alone.
type AttachConfig struct {
	Mode  Mode
	Space Space
	Size  float32

	ShowX, ShowY, ShowZ *bool

	TranslationSnap *float32
	RotationSnap    *float32
	ScaleSnap       *float32
}

// Camera is what a manipulator needs to build pick rays and size handles.
type Camera interface {
	ViewProjection() math.Mat4
	Position() math.Vec3
}

// OrbitControl is the camera control disabled while a handle is dragged.
type OrbitControl interface {
	SetEnabled(enabled bool)
}

// Line is a colored world-space segment of the gizmo's visual.
type Line struct {
	From, To math.Vec3
	Color    math.Vec3
}

// Listener receives manipulator notifications.
type Listener struct {
	Dragging func(dragging bool)
	Change   func()
}

// Manipulator is the interactive gizmo a Controller drives.
type Manipulator interface {
	Attach(node scene.NodeID)
	Detach()
	SetMode(Mode)
	SetSpace(Space)
	SetSize(size float32)
	SetAxes(Axes)
	SetSnaps(Snaps)
	SetListener(Listener)
	// Lines appends the current visual to dst.
	Lines(dst []Line) []Line
	Dispose()
}

// Factory builds a manipulator bound to a camera, pointer surface and graph.
type Factory func(cam Camera, surface input.PointerSource, graph *scene.Graph) Manipulator

// State is the controller state observed by subscribers.
type State struct {
	Attached scene.NodeID
	Mode     Mode
	Space    Space
	Dragging bool
	Visible  bool
}

const (
	topicChange = "change"
	topicState  = "state"
)

// Controller owns the single gizmo of a scene. It is driven from the render
// goroutine and is not safe for concurrent use.
type Controller struct {
	factory Factory
	log     *zap.Logger

	manip       Manipulator
	graph       *scene.Graph
	orbit       OrbitControl
	initialized bool

	state State
	axes  Axes
	snaps Snaps

	changes *event.Channel[scene.NodeID]
	states  *event.Channel[State]
}

// NewController creates a detached controller. A nil factory uses
// NewTransformControls.
func NewController(factory Factory, log *zap.Logger) *Controller {
	if factory == nil {
		factory = NewTransformControls
	}
	return &Controller{
		factory: factory,
		log:     logger.OrNop(log),
		state:   defaultState(),
		axes:    AllAxes,
		changes: event.NewChannel[scene.NodeID](),
		states:  event.NewChannel[State](),
	}
}

func defaultState() State {
	return State{Attached: scene.NoNode, Mode: ModeTranslate, Space: SpaceLocal}
}

// Init builds the manipulator. orbit may be nil. Calls after the first are
// ignored until Destroy.
func (c *Controller) Init(cam Camera, surface input.PointerSource, graph *scene.Graph, orbit OrbitControl) {
	if c.initialized {
		return
	}
	c.graph = graph
	c.orbit = orbit
	c.manip = c.factory(cam, surface, graph)
	c.manip.SetMode(c.state.Mode)
	c.manip.SetSpace(c.state.Space)
	c.manip.SetListener(Listener{
		Dragging: c.handleDragging,
		Change:   c.handleChange,
	})
	c.initialized = true
	c.log.Info("gizmo initialized",
		zap.Stringer("mode", c.state.Mode),
		zap.Stringer("space", c.state.Space))
}

// SetOrbitControl replaces the orbit control toggled by drags.
func (c *Controller) SetOrbitControl(orbit OrbitControl) {
	c.orbit = orbit
}

func (c *Controller) ready(op string) bool {
	if c.initialized {
		return true
	}
	c.log.Warn("gizmo call ignored", zap.String("op", op), zap.Error(ErrNotInitialized))
	return false
}

func (c *Controller) handleDragging(dragging bool) {
	c.state.Dragging = dragging
	if c.orbit != nil {
		c.orbit.SetEnabled(!dragging)
	}
	c.publishState()
}

func (c *Controller) handleChange() {
	if c.state.Attached != scene.NoNode {
		c.changes.Publish(topicChange, c.state.Attached)
	}
}

func (c *Controller) publishState() {
	c.states.Publish(topicState, c.state)
}

// Attach shows the gizmo on node, applying cfg first when non-nil. Attaching
// while attached to another node moves the gizmo without detaching.
func (c *Controller) Attach(node scene.NodeID, cfg *AttachConfig) {
	if !c.ready("attach") {
		return
	}
	if !c.graph.Valid(node) {
		c.log.Warn("gizmo attach: invalid node", zap.Int32("node", int32(node)))
		return
	}
	if cfg != nil {
		c.apply(cfg)
	}

	c.manip.Attach(node)
	c.state.Attached = node
	c.state.Visible = true
	c.log.Debug("gizmo attached", zap.String("node", c.graph.Name(node)))
	c.publishState()
}

func (c *Controller) apply(cfg *AttachConfig) {
	if cfg.Mode != 0 {
		c.state.Mode = cfg.Mode
		c.manip.SetMode(cfg.Mode)
	}
	if cfg.Space != 0 {
		c.state.Space = cfg.Space
		c.manip.SetSpace(cfg.Space)
	}
	if cfg.Size > 0 {
		c.manip.SetSize(cfg.Size)
	}

	axes := c.axes
	if cfg.ShowX != nil {
		axes.X = *cfg.ShowX
	}
	if cfg.ShowY != nil {
		axes.Y = *cfg.ShowY
	}
	if cfg.ShowZ != nil {
		axes.Z = *cfg.ShowZ
	}
	if axes != c.axes {
		c.axes = axes
		c.manip.SetAxes(axes)
	}

	snaps := c.snaps
	if cfg.TranslationSnap != nil {
		snaps.Translation = *cfg.TranslationSnap
	}
	if cfg.RotationSnap != nil {
		snaps.Rotation = *cfg.RotationSnap
	}
	if cfg.ScaleSnap != nil {
		snaps.Scale = *cfg.ScaleSnap
	}
	if snaps != c.snaps {
		c.snaps = snaps
		c.manip.SetSnaps(snaps)
	}
}

// Detach hides the gizmo.
func (c *Controller) Detach() {
	if !c.ready("detach") {
		return
	}
	c.manip.Detach()
	c.state.Attached = scene.NoNode
	c.state.Visible = false
	c.state.Dragging = false
	c.log.Debug("gizmo detached")
	c.publishState()
}

// Toggle detaches when node is the attached node and attaches it otherwise.
func (c *Controller) Toggle(node scene.NodeID, cfg *AttachConfig) {
	if c.initialized && c.state.Attached == node {
		c.Detach()
		return
	}
	c.Attach(node, cfg)
}

// SetMode switches what handles change.
func (c *Controller) SetMode(m Mode) {
	if !c.ready("set mode") {
		return
	}
	c.state.Mode = m
	c.manip.SetMode(m)
	c.publishState()
}

// CycleMode advances to the next mode.
func (c *Controller) CycleMode() {
	c.SetMode(c.state.Mode.Next())
}

// SetSpace switches the handle axes between local and world.
func (c *Controller) SetSpace(s Space) {
	if !c.ready("set space") {
		return
	}
	c.state.Space = s
	c.manip.SetSpace(s)
	c.publishState()
}

// ToggleSpace flips between local and world space.
func (c *Controller) ToggleSpace() {
	if c.state.Space == SpaceWorld {
		c.SetSpace(SpaceLocal)
	} else {
		c.SetSpace(SpaceWorld)
	}
}

// SetSize scales the handles.
func (c *Controller) SetSize(size float32) {
	if !c.ready("set size") {
		return
	}
	c.manip.SetSize(size)
}

// SetSnaps replaces the drag increments.
func (c *Controller) SetSnaps(s Snaps) {
	if !c.ready("set snaps") {
		return
	}
	c.snaps = s
	c.manip.SetSnaps(s)
}

// OnTransformChange calls fn with the attached node whenever a drag changes
// it. The returned function unsubscribes.
func (c *Controller) OnTransformChange(fn func(scene.NodeID)) func() {
	tok := c.changes.Subscribe(topicChange, fn)
	return func() { c.changes.Unsubscribe(tok) }
}

// OnStateChange calls fn after every state transition. The returned function
// unsubscribes.
func (c *Controller) OnStateChange(fn func(State)) func() {
	tok := c.states.Subscribe(topicState, fn)
	return func() { c.states.Unsubscribe(tok) }
}

// State returns the current state.
func (c *Controller) State() State {
	return c.state
}

// Initialized reports whether Init has run.
func (c *Controller) Initialized() bool {
	return c.initialized
}

// Lines appends the gizmo visual to dst. It appends nothing when detached.
func (c *Controller) Lines(dst []Line) []Line {
	if !c.initialized || !c.state.Visible {
		return dst
	}
	return c.manip.Lines(dst)
}

// Destroy detaches, disposes the manipulator, drops subscribers and resets
// every setting. Init may be called again afterwards.
func (c *Controller) Destroy() {
	if c.manip != nil {
		c.manip.Detach()
		c.manip.Dispose()
		c.manip = nil
	}
	if c.state.Dragging && c.orbit != nil {
		c.orbit.SetEnabled(true)
	}

	c.graph = nil
	c.orbit = nil
	c.state = defaultState()
	c.axes = AllAxes
	c.snaps = Snaps{}
	c.changes.Clear()
	c.states.Clear()
	c.initialized = false
	c.log.Debug("gizmo destroyed")
}
