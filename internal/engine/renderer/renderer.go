// Package renderer draws the scene graph with OpenGL and uploads textures and
// meshes on first use.
package renderer

import (
	"fmt"
	"image"
	"unsafe"

	"github.com/go-gl/gl/v4.1-core/gl"
	"go.uber.org/zap"

	"github.com/Faultbox/roomview/internal/engine/model"
	"github.com/Faultbox/roomview/internal/engine/scene"
	"github.com/Faultbox/roomview/internal/engine/shader"
	"github.com/Faultbox/roomview/internal/engine/texture"
	"github.com/Faultbox/roomview/internal/logger"
	"github.com/Faultbox/roomview/pkg/math"
)

// Config holds renderer configuration.
type Config struct {
	Width      int
	Height     int
	ClearColor [4]float32
}

// Bindable is a node texture: a *texture.Texture or anything wrapping one,
// such as a video.
type Bindable interface {
	Bind(u texture.Uploader) (uint32, error)
}

// LineVertex is one endpoint of an overlay line.
type LineVertex struct {
	Position [3]float32
	Color    [3]float32
}

type glMesh struct {
	vao, vbo, ebo uint32
	count         int32
}

// Renderer handles all OpenGL rendering. It must only be used from the
// goroutine that owns the GL context.
type Renderer struct {
	config Config
	log    *zap.Logger

	meshProgram *shader.Program
	lineProgram *shader.Program

	meshes   map[uint32]glMesh
	nextMesh uint32
	white    uint32

	lineVAO, lineVBO uint32

	sunDir      math.Vec3
	sunStrength float32

	// failed remembers payloads that could not be bound so errors log once.
	failed map[any]bool
}

// New creates a new renderer.
// IMPORTANT: Must be called AFTER OpenGL context is created!
func New(cfg Config, log *zap.Logger) (*Renderer, error) {
	r := &Renderer{
		config: cfg,
		log:    logger.OrNop(log),
		meshes: make(map[uint32]glMesh),
		failed: make(map[any]bool),
		sunDir: math.Vec3{Y: 1},
	}

	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize OpenGL: %w", err)
	}

	r.log.Info("OpenGL initialized",
		zap.String("version", gl.GoStr(gl.GetString(gl.VERSION))),
		zap.String("renderer", gl.GoStr(gl.GetString(gl.RENDERER))),
	)

	gl.Enable(gl.DEPTH_TEST)
	gl.DepthFunc(gl.LESS)
	gl.Enable(gl.FRAMEBUFFER_SRGB)
	c := cfg.ClearColor
	if c == ([4]float32{}) {
		c = [4]float32{0.1, 0.1, 0.15, 1.0}
	}
	gl.ClearColor(c[0], c[1], c[2], c[3])

	var err error
	if r.meshProgram, err = shader.New(meshVertexShader, meshFragmentShader); err != nil {
		return nil, fmt.Errorf("mesh shader: %w", err)
	}
	if r.lineProgram, err = shader.New(lineVertexShader, lineFragmentShader); err != nil {
		r.meshProgram.Delete()
		return nil, fmt.Errorf("line shader: %w", err)
	}

	white := image.NewRGBA(image.Rect(0, 0, 1, 1))
	copy(white.Pix, []byte{255, 255, 255, 255})
	if r.white, err = r.UploadTexture(white, texture.ColorSpaceLinear); err != nil {
		r.Close()
		return nil, err
	}

	gl.GenVertexArrays(1, &r.lineVAO)
	gl.GenBuffers(1, &r.lineVBO)
	gl.BindVertexArray(r.lineVAO)
	gl.BindBuffer(gl.ARRAY_BUFFER, r.lineVBO)
	stride := int32(unsafe.Sizeof(LineVertex{}))
	gl.VertexAttribPointerWithOffset(0, 3, gl.FLOAT, false, stride, 0)
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointerWithOffset(1, 3, gl.FLOAT, false, stride, 12)
	gl.EnableVertexAttribArray(1)
	gl.BindVertexArray(0)

	r.Resize(cfg.Width, cfg.Height)
	return r, nil
}

// Close cleans up renderer resources.
func (r *Renderer) Close() {
	r.log.Info("closing renderer")
	for h := range r.meshes {
		r.DeleteMesh(h)
	}
	if r.white != 0 {
		r.DeleteTexture(r.white)
		r.white = 0
	}
	if r.lineVAO != 0 {
		gl.DeleteVertexArrays(1, &r.lineVAO)
		gl.DeleteBuffers(1, &r.lineVBO)
		r.lineVAO, r.lineVBO = 0, 0
	}
	if r.meshProgram != nil {
		r.meshProgram.Delete()
	}
	if r.lineProgram != nil {
		r.lineProgram.Delete()
	}
}

// Resize handles window resize.
func (r *Renderer) Resize(width, height int) {
	r.config.Width = width
	r.config.Height = height
	gl.Viewport(0, 0, int32(width), int32(height))
	r.log.Debug("renderer resized",
		zap.Int("width", width),
		zap.Int("height", height),
	)
}

// Begin starts a new frame.
func (r *Renderer) Begin() {
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)
}

// SetSun sets the key light. dir points towards the light; strength 0 keeps
// baked texture lighting untouched.
func (r *Renderer) SetSun(dir math.Vec3, strength float32) {
	r.sunDir = dir.Normalize()
	r.sunStrength = strength
}

// ReadPixels reads the back buffer as RGBA rows, bottom row first.
func (r *Renderer) ReadPixels() ([]byte, int, int) {
	w, h := r.config.Width, r.config.Height
	pixels := make([]byte, w*h*4)
	if len(pixels) == 0 {
		return nil, 0, 0
	}
	gl.PixelStorei(gl.PACK_ALIGNMENT, 1)
	gl.ReadPixels(0, 0, int32(w), int32(h), gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(pixels))
	return pixels, w, h
}

// End finishes the current frame.
func (r *Renderer) End() {}

// DrawScene draws every visible renderable node of g.
func (r *Renderer) DrawScene(g *scene.Graph, viewProj math.Mat4, eye math.Vec3) {
	p := r.meshProgram
	p.Use()
	p.SetMat4("uViewProj", viewProj)
	p.SetVec3("uEye", eye)
	p.SetVec3("uSunDir", r.sunDir)
	p.SetFloat("uSunStrength", r.sunStrength)
	p.SetInt("uTexture", 0)
	gl.ActiveTexture(gl.TEXTURE0)

	var draw func(id scene.NodeID, parent math.Mat4)
	draw = func(id scene.NodeID, parent math.Mat4) {
		n := g.Node(id)
		if n == nil || !n.Visible {
			return
		}
		world := parent.Mul(g.LocalMatrix(id))

		if mesh, ok := n.Mesh.(*model.Mesh); ok && n.Renderable {
			r.drawMesh(mesh, n.Texture, world)
		}
		for _, c := range g.Children(id) {
			draw(c, world)
		}
	}
	draw(g.Root(), math.Identity())
}

func (r *Renderer) drawMesh(mesh *model.Mesh, tex any, world math.Mat4) {
	if r.failed[mesh] {
		return
	}
	h, err := mesh.Bind(r)
	if err != nil {
		r.failed[mesh] = true
		r.log.Warn("mesh upload failed", zap.String("mesh", mesh.Name), zap.Error(err))
		return
	}

	texHandle := r.white
	if b, ok := tex.(Bindable); ok && !r.failed[tex] {
		if th, err := b.Bind(r); err == nil {
			texHandle = th
		} else {
			r.failed[tex] = true
			r.log.Warn("texture bind failed", zap.Error(err))
		}
	}

	gm := r.meshes[h]
	r.meshProgram.SetMat4("uModel", world)
	gl.BindTexture(gl.TEXTURE_2D, texHandle)
	gl.BindVertexArray(gm.vao)
	gl.DrawElementsWithOffset(gl.TRIANGLES, gm.count, gl.UNSIGNED_INT, 0)
	gl.BindVertexArray(0)
}

// DrawLines draws line segments on top of the scene, two vertices per line.
func (r *Renderer) DrawLines(lines []LineVertex, viewProj math.Mat4) {
	if len(lines) < 2 {
		return
	}
	gl.Disable(gl.DEPTH_TEST)
	defer gl.Enable(gl.DEPTH_TEST)

	r.lineProgram.Use()
	r.lineProgram.SetMat4("uViewProj", viewProj)

	gl.BindVertexArray(r.lineVAO)
	gl.BindBuffer(gl.ARRAY_BUFFER, r.lineVBO)
	size := len(lines) * int(unsafe.Sizeof(LineVertex{}))
	gl.BufferData(gl.ARRAY_BUFFER, size, gl.Ptr(lines), gl.STREAM_DRAW)
	gl.DrawArrays(gl.LINES, 0, int32(len(lines)))
	gl.BindVertexArray(0)
}

// UploadTexture implements texture.Uploader.
func (r *Renderer) UploadTexture(img *image.RGBA, cs texture.ColorSpace) (uint32, error) {
	if len(img.Pix) == 0 {
		return 0, fmt.Errorf("empty image")
	}
	internal := int32(gl.RGBA8)
	if cs == texture.ColorSpaceSRGB {
		internal = gl.SRGB8_ALPHA8
	}

	var h uint32
	gl.GenTextures(1, &h)
	gl.BindTexture(gl.TEXTURE_2D, h)
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)
	b := img.Bounds()
	gl.TexImage2D(gl.TEXTURE_2D, 0, internal, int32(b.Dx()), int32(b.Dy()), 0,
		gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(img.Pix))
	gl.GenerateMipmap(gl.TEXTURE_2D)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR_MIPMAP_LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.REPEAT)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.REPEAT)
	gl.BindTexture(gl.TEXTURE_2D, 0)

	r.log.Debug("texture uploaded", zap.Uint32("handle", h), zap.Stringer("colorSpace", cs))
	return h, nil
}

// UpdateTexture implements texture.Uploader. The image must keep the size
// it was uploaded with.
func (r *Renderer) UpdateTexture(handle uint32, img *image.RGBA) error {
	b := img.Bounds()
	gl.BindTexture(gl.TEXTURE_2D, handle)
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)
	gl.TexSubImage2D(gl.TEXTURE_2D, 0, 0, 0, int32(b.Dx()), int32(b.Dy()),
		gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(img.Pix))
	gl.GenerateMipmap(gl.TEXTURE_2D)
	gl.BindTexture(gl.TEXTURE_2D, 0)
	return nil
}

// DeleteTexture implements texture.Uploader.
func (r *Renderer) DeleteTexture(handle uint32) {
	gl.DeleteTextures(1, &handle)
}

// UploadMesh implements model.Uploader.
func (r *Renderer) UploadMesh(m *model.Mesh) (uint32, error) {
	if len(m.Vertices) == 0 || len(m.Indices) == 0 {
		return 0, fmt.Errorf("empty mesh")
	}

	var gm glMesh
	gl.GenVertexArrays(1, &gm.vao)
	gl.BindVertexArray(gm.vao)

	gl.GenBuffers(1, &gm.vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, gm.vbo)
	stride := int32(unsafe.Sizeof(model.Vertex{}))
	gl.BufferData(gl.ARRAY_BUFFER, len(m.Vertices)*int(stride), gl.Ptr(m.Vertices), gl.STATIC_DRAW)

	gl.GenBuffers(1, &gm.ebo)
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, gm.ebo)
	gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, len(m.Indices)*4, gl.Ptr(m.Indices), gl.STATIC_DRAW)

	gl.VertexAttribPointerWithOffset(0, 3, gl.FLOAT, false, stride, 0)
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointerWithOffset(1, 3, gl.FLOAT, false, stride, 12)
	gl.EnableVertexAttribArray(1)
	gl.VertexAttribPointerWithOffset(2, 2, gl.FLOAT, false, stride, 24)
	gl.EnableVertexAttribArray(2)
	gl.BindVertexArray(0)

	gm.count = int32(len(m.Indices))
	r.nextMesh++
	r.meshes[r.nextMesh] = gm

	r.log.Debug("mesh uploaded",
		zap.String("mesh", m.Name),
		zap.Uint32("vao", gm.vao),
		zap.Int32("indices", gm.count))
	return r.nextMesh, nil
}

// DeleteMesh implements model.Uploader.
func (r *Renderer) DeleteMesh(handle uint32) {
	gm, ok := r.meshes[handle]
	if !ok {
		return
	}
	gl.DeleteVertexArrays(1, &gm.vao)
	gl.DeleteBuffers(1, &gm.vbo)
	gl.DeleteBuffers(1, &gm.ebo)
	delete(r.meshes, handle)
}
