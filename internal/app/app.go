// Package app wires the viewer together: window, renderer, input, camera,
// asset store, picking and the transform gizmo, and runs the frame loop.
package app

import (
	"context"
	"fmt"
	gomath "math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/veandco/go-sdl2/sdl"
	"go.uber.org/zap"

	"github.com/Faultbox/roomview/internal/anim"
	"github.com/Faultbox/roomview/internal/assets"
	"github.com/Faultbox/roomview/internal/config"
	"github.com/Faultbox/roomview/internal/engine/camera"
	"github.com/Faultbox/roomview/internal/engine/debug"
	"github.com/Faultbox/roomview/internal/engine/input"
	"github.com/Faultbox/roomview/internal/engine/lighting"
	"github.com/Faultbox/roomview/internal/engine/model"
	"github.com/Faultbox/roomview/internal/engine/renderer"
	"github.com/Faultbox/roomview/internal/engine/scene"
	"github.com/Faultbox/roomview/internal/engine/texture"
	"github.com/Faultbox/roomview/internal/engine/video"
	"github.com/Faultbox/roomview/internal/engine/window"
	"github.com/Faultbox/roomview/internal/event"
	"github.com/Faultbox/roomview/internal/gizmo"
	"github.com/Faultbox/roomview/internal/interaction"
	"github.com/Faultbox/roomview/internal/resources"
	"github.com/Faultbox/roomview/internal/room"
	"github.com/Faultbox/roomview/pkg/math"
)

// App is the viewer instance. Everything except asset loading runs on the
// goroutine that called New.
type App struct {
	cfg *config.Config
	log *zap.Logger

	window   *window.Window
	renderer *renderer.Renderer
	input    *window.Input
	camera   *camera.OrbitCamera
	graph    *scene.Graph
	tweener  *anim.Tweener
	assets   *assets.Manager
	store    *resources.Store
	picker   *interaction.Picker
	gizmo    *gizmo.Controller
	room     *room.Layout

	pointerToks []event.Token
	running     bool

	cancel   context.CancelFunc
	loads    sync.WaitGroup
	ready    <-chan resources.Progress
	progress atomic.Pointer[resources.Progress]
	shown    float64

	screenshots *debug.ScreenshotCapture
	capture     bool

	lines []gizmo.Line
	edges []math.Vec3
	verts []renderer.LineVertex
}

// boundsColor outlines the object the gizmo is attached to.
var boundsColor = [3]float32{0.9, 0.9, 0.9}

// New creates the window and every subsystem. On error everything created
// so far is closed.
func New(cfg *config.Config, log *zap.Logger) (*App, error) {
	a := &App{
		cfg:   cfg,
		log:   log,
		shown: -1,
	}
	if err := a.init(); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) init() error {
	cfg := a.cfg
	log := a.log
	log.Info("initializing viewer",
		zap.String("title", cfg.Window.Title),
		zap.Int("width", cfg.Window.Width),
		zap.Int("height", cfg.Window.Height),
	)

	var err error
	a.window, err = window.New(window.Config{
		Title:      cfg.Window.Title,
		Width:      cfg.Window.Width,
		Height:     cfg.Window.Height,
		Fullscreen: cfg.Window.Fullscreen,
		VSync:      cfg.Window.VSync,
	}, log.Named("window"))
	if err != nil {
		return fmt.Errorf("failed to create window: %w", err)
	}

	// The renderer needs the GL context the window just created.
	fbW, fbH := a.window.DrawableSize()
	a.renderer, err = renderer.New(renderer.Config{
		Width:      fbW,
		Height:     fbH,
		ClearColor: [4]float32{0.004, 0.004, 0.004, 1},
	}, log.Named("renderer"))
	if err != nil {
		return fmt.Errorf("failed to create renderer: %w", err)
	}
	sun := lighting.Sun{
		Azimuth:   cfg.Lighting.SunAzimuth,
		Elevation: cfg.Lighting.SunElevation,
		Strength:  cfg.Lighting.Strength,
	}
	a.renderer.SetSun(sun.Direction(), sun.Amount())
	a.screenshots = debug.NewScreenshotCapture(cfg.Debug.ScreenshotDir, "roomview")

	winW, winH := a.window.GetSize()
	a.input = window.NewInput(winW, winH, log.Named("input"))
	a.camera = newCamera(cfg.Camera, fbW, fbH)
	a.graph = scene.NewGraph()
	a.tweener = anim.NewTweener()

	a.assets = assets.NewManager(cfg.Assets.Root, log.Named("assets"))
	for _, path := range cfg.Assets.Archives {
		if err := a.assets.AddArchive(path); err != nil {
			return fmt.Errorf("mounting archive: %w", err)
		}
	}
	a.store = newStore(cfg.Assets, a.assets, log)

	a.picker = interaction.NewPicker(a.graph, a.tweener, log.Named("interaction"))
	a.picker.Defaults = bounceDefaults(cfg.Interaction, log)
	a.picker.Init(a.camera, a.input.Pointer)

	a.gizmo = gizmo.NewController(gizmo.NewTransformControls, log.Named("gizmo"))
	a.gizmo.Init(a.camera, a.input.Pointer, a.graph, a.camera)
	applyGizmoConfig(a.gizmo, cfg.Gizmo)

	a.room = room.New(a.graph, a.picker, a.gizmo, cfg.Scene.Objects, log.Named("room"))

	a.bindOrbit()
	a.store.OnProgress(func(p resources.Progress) { a.progress.Store(&p) })
	a.ready, _ = a.store.ReadyChan()

	log.Info("viewer initialized")
	return nil
}

func newCamera(cfg config.CameraConfig, width, height int) *camera.OrbitCamera {
	c := camera.NewOrbitCamera()
	c.FOV = cfg.FOV * gomath.Pi / 180
	c.Near = cfg.Near
	c.Far = cfg.Far
	c.Distance = cfg.Distance
	c.MinDistance = cfg.MinDistance
	c.MaxDistance = cfg.MaxDistance
	c.Center = math.Vec3FromArray(cfg.Target)
	c.Damping = cfg.Damping
	c.SetViewport(width, height)
	return c
}

func newStore(cfg config.AssetsConfig, mgr *assets.Manager, log *zap.Logger) *resources.Store {
	loaders := resources.Loaders{
		resources.KindTexture: resources.TextureLoader(
			texture.NewLoader(mgr, texture.WithLogger(log.Named("texture")))),
		resources.KindModel: resources.ModelLoader(
			model.NewLoader(mgr, model.NewExecDecoder(cfg.DecoderPath, log.Named("draco")), log.Named("model"))),
		resources.KindVideo: resources.VideoLoader(
			video.NewLoader(mgr, video.WithLogger(log.Named("video")))),
	}
	return resources.New(loaders,
		resources.WithLogger(log.Named("resources")),
		resources.WithConcurrency(cfg.Concurrency))
}

func bounceDefaults(cfg config.InteractionConfig, log *zap.Logger) interaction.BounceConfig {
	b := interaction.BounceConfig{
		Enabled:  cfg.Bounce,
		Scale:    cfg.BounceScale,
		Duration: cfg.Duration,
		Ease:     interaction.DefaultBounce.Ease,
	}
	if b.Duration <= 0 {
		b.Duration = interaction.DefaultBounce.Duration
	}
	if cfg.Ease != "" {
		e, err := anim.ParseEase(cfg.Ease)
		if err != nil {
			log.Warn("ignoring interaction ease", zap.Error(err))
		} else {
			b.Ease = e
		}
	}
	return b
}

func applyGizmoConfig(g *gizmo.Controller, cfg config.GizmoConfig) {
	// Validate has already checked mode and space.
	if m, err := gizmo.ParseMode(cfg.Mode); err == nil {
		g.SetMode(m)
	}
	if s, err := gizmo.ParseSpace(cfg.Space); err == nil {
		g.SetSpace(s)
	}
	if cfg.Size > 0 {
		g.SetSize(cfg.Size)
	}
	g.SetSnaps(gizmo.Snaps{
		Translation: cfg.TranslationSnap,
		Rotation:    cfg.RotationSnapDeg * gomath.Pi / 180,
		Scale:       cfg.ScaleSnap,
	})
}

// bindOrbit routes left-drag and wheel to the camera. The camera ignores
// both while the gizmo has it disabled.
func (a *App) bindOrbit() {
	p := a.input.Pointer
	a.pointerToks = append(a.pointerToks,
		p.AddPointerListener(input.PointerMove, func(e input.PointerEvent) {
			if e.Held(input.ButtonLeft) && !a.gizmo.State().Dragging {
				a.camera.HandleDrag(e.DX, e.DY)
			}
		}),
		p.AddPointerListener(input.PointerWheel, func(e input.PointerEvent) {
			a.camera.HandleZoom(e.Wheel)
		}),
	)
}

// Run loads the manifest in the background and runs the frame loop until
// the window closes.
func (a *App) Run() error {
	manifest, err := config.LoadManifest(a.cfg.Assets.Manifest)
	if err != nil {
		return err
	}
	descs := resources.FromManifest(manifest.Items())
	a.log.Info("loading assets", zap.Int("count", len(descs)))

	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	a.loads.Add(1)
	go func() {
		defer a.loads.Done()
		res := a.store.Load(ctx, descs)
		a.log.Info("assets loaded", zap.Int("loaded", len(res)), zap.Int("requested", len(descs)))
	}()

	a.running = true
	lastTime := time.Now()
	frameCount := 0
	fpsTimer := time.Now()

	a.log.Info("starting frame loop")
	for a.running {
		now := time.Now()
		dt := now.Sub(lastTime)
		lastTime = now

		// 1. Input; pointer listeners fire inside Update.
		if a.input.Update() {
			a.running = false
			break
		}
		for _, ev := range a.input.Events() {
			a.handleEvent(ev)
		}

		// 2. Assets
		a.showProgress()
		select {
		case p := <-a.ready:
			a.progress.Store(&p)
			a.populate()
		default:
		}
		a.store.ReleaseRetired()

		// 3. Animation
		a.tweener.Update(dt)
		a.camera.Update(float32(dt.Seconds()))

		// 4. Render and present
		a.render()
		if a.capture {
			a.capture = false
			a.screenshot()
		}
		a.window.SwapBuffers()

		frameCount++
		if time.Since(fpsTimer) >= time.Second {
			a.log.Debug("fps", zap.Int("count", frameCount), zap.Duration("dt", dt))
			frameCount = 0
			fpsTimer = time.Now()
		}
	}
	return nil
}

func (a *App) handleEvent(ev window.Event) {
	switch ev.Type {
	case window.EventWindowResize:
		w, h := a.window.DrawableSize()
		a.renderer.Resize(w, h)
		a.camera.SetViewport(w, h)
	case window.EventKeyDown:
		a.handleKey(ev.Key)
	}
}

func (a *App) handleKey(key sdl.Scancode) {
	switch key {
	case sdl.SCANCODE_G:
		a.gizmo.SetMode(gizmo.ModeTranslate)
	case sdl.SCANCODE_R:
		a.gizmo.SetMode(gizmo.ModeRotate)
	case sdl.SCANCODE_S:
		a.gizmo.SetMode(gizmo.ModeScale)
	case sdl.SCANCODE_Q:
		a.gizmo.ToggleSpace()
	case sdl.SCANCODE_TAB:
		a.gizmo.CycleMode()
	case sdl.SCANCODE_F12:
		a.capture = true
	case sdl.SCANCODE_ESCAPE:
		if a.gizmo.State().Attached != scene.NoNode {
			a.gizmo.Detach()
			return
		}
		a.running = false
	}
}

func (a *App) showProgress() {
	p := a.progress.Load()
	if p == nil || p.Percent == a.shown {
		return
	}
	a.shown = p.Percent
	if p.Loaded < p.Total {
		a.window.SetTitle(fmt.Sprintf("%s - loading %.0f%%", a.cfg.Window.Title, p.Percent))
	} else {
		a.window.SetTitle(a.cfg.Window.Title)
	}
}

func (a *App) populate() {
	a.room.Populate(a.store)
	if b, ok := a.room.Bounds(); ok {
		a.camera.FitToBounds(b.Min, b.Max)
	}
}

func (a *App) render() {
	vp := a.camera.ViewProjection()

	a.renderer.Begin()
	a.renderer.DrawScene(a.graph, vp, a.camera.Position())

	a.lines = a.gizmo.Lines(a.lines[:0])
	a.verts = a.verts[:0]
	for _, l := range a.lines {
		c := l.Color.Array()
		a.verts = append(a.verts,
			renderer.LineVertex{Position: l.From.Array(), Color: c},
			renderer.LineVertex{Position: l.To.Array(), Color: c},
		)
	}
	if a.cfg.Debug.ShowBounds {
		if b, ok := a.graph.SubtreeBounds(a.gizmo.State().Attached); ok {
			a.edges = debug.BoxEdges(a.edges[:0], b, debug.DefaultBoxPadding)
			for _, p := range a.edges {
				a.verts = append(a.verts, renderer.LineVertex{Position: p.Array(), Color: boundsColor})
			}
		}
	}
	a.renderer.DrawLines(a.verts, vp)
	a.renderer.End()
}

func (a *App) screenshot() {
	pixels, w, h := a.renderer.ReadPixels()
	path, err := a.screenshots.CaptureFromPixels(pixels, w, h)
	if err != nil {
		a.log.Warn("screenshot failed", zap.Error(err))
		return
	}
	a.log.Info("screenshot saved", zap.String("path", path))
}

// Close tears everything down in reverse order of creation. It is safe on a
// partially initialized App.
func (a *App) Close() {
	a.log.Info("closing viewer")

	if a.cancel != nil {
		a.cancel()
	}
	a.loads.Wait()

	if a.room != nil {
		a.room.Clear()
	}
	if a.gizmo != nil {
		a.gizmo.Destroy()
	}
	if a.picker != nil {
		a.picker.Destroy()
	}
	if a.input != nil {
		for _, tok := range a.pointerToks {
			a.input.Pointer.RemovePointerListener(tok)
		}
	}
	// Payload disposal frees GL handles, so it runs before the renderer
	// goes away.
	if a.store != nil {
		a.store.Dispose()
	}
	if a.assets != nil {
		a.assets.Close()
	}
	if a.input != nil {
		a.input.Close()
	}
	if a.renderer != nil {
		a.renderer.Close()
	}
	if a.window != nil {
		a.window.Close()
	}
}
