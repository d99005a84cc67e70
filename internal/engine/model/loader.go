package model

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	gomath "math"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"go.uber.org/zap"

	"github.com/Faultbox/roomview/internal/assets"
	"github.com/Faultbox/roomview/internal/engine/scene"
	"github.com/Faultbox/roomview/internal/logger"
	"github.com/Faultbox/roomview/pkg/math"
)

// Loader fetches and decodes glTF models. Only self-contained files are
// supported: GLB or .gltf with embedded data URIs.
type Loader struct {
	fetcher  assets.Fetcher
	decoders DecoderProvider
	log      *zap.Logger
}

// NewLoader creates a model loader.
func NewLoader(f assets.Fetcher, decoders DecoderProvider, log *zap.Logger) *Loader {
	return &Loader{fetcher: f, decoders: decoders, log: logger.OrNop(log)}
}

// Dispose releases the decoder when it holds resources.
func (l *Loader) Dispose() {
	if d, ok := l.decoders.(interface{ Dispose() }); ok {
		d.Dispose()
	}
}

// Load resolves the geometry decoder, then fetches and parses source.
func (l *Loader) Load(ctx context.Context, name, source string) (*Model, error) {
	dec, err := l.decoders.GeometryDecoder(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolving geometry decoder: %w", err)
	}

	data, err := l.fetcher.Fetch(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", source, err)
	}

	doc := new(gltf.Document)
	if err := gltf.NewDecoder(bytes.NewReader(data)).Decode(doc); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", source, err)
	}

	b := builder{doc: doc, dec: dec, log: l.log.With(zap.String("model", name))}
	m, err := b.build(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("building %s: %w", source, err)
	}
	l.log.Debug("model loaded",
		zap.String("name", name),
		zap.Int("nodes", len(m.Nodes)),
		zap.Int("meshes", len(m.Meshes)))
	return m, nil
}

type builder struct {
	doc *gltf.Document
	dec GeometryDecoder
	log *zap.Logger

	model *Model
	// meshes maps a glTF mesh index to the model meshes built from its primitives.
	meshes map[uint32][]int
}

func (b *builder) build(ctx context.Context, name string) (*Model, error) {
	b.model = &Model{Name: name, Bounds: scene.EmptyBox()}
	b.meshes = make(map[uint32][]int)

	var roots []uint32
	switch {
	case b.doc.Scene != nil && int(*b.doc.Scene) < len(b.doc.Scenes):
		roots = b.doc.Scenes[*b.doc.Scene].Nodes
	case len(b.doc.Scenes) > 0:
		roots = b.doc.Scenes[0].Nodes
	default:
		roots = parentless(b.doc)
	}

	for _, r := range roots {
		if err := b.addNode(ctx, r, -1, math.Identity(), 0); err != nil {
			return nil, err
		}
	}
	return b.model, nil
}

// parentless returns the nodes no other node lists as a child.
func parentless(doc *gltf.Document) []uint32 {
	child := make([]bool, len(doc.Nodes))
	for _, n := range doc.Nodes {
		for _, c := range n.Children {
			if int(c) < len(child) {
				child[c] = true
			}
		}
	}
	var roots []uint32
	for i, isChild := range child {
		if !isChild {
			roots = append(roots, uint32(i))
		}
	}
	return roots
}

const maxDepth = 64

func (b *builder) addNode(ctx context.Context, idx uint32, parent int, parentWorld math.Mat4, depth int) error {
	if int(idx) >= len(b.doc.Nodes) {
		return fmt.Errorf("node index %d out of range", idx)
	}
	if depth > maxDepth {
		return fmt.Errorf("node hierarchy deeper than %d", maxDepth)
	}
	gn := b.doc.Nodes[idx]

	n := Node{Name: gn.Name, Parent: parent}
	n.Translation, n.Rotation, n.Scale = nodeTransform(gn)
	if n.Name == "" {
		n.Name = fmt.Sprintf("node%d", idx)
	}
	world := parentWorld.Mul(math.Compose(n.Translation, n.Rotation, n.Scale))

	if gn.Mesh != nil {
		meshes, err := b.mesh(ctx, *gn.Mesh)
		if err != nil {
			return err
		}
		n.Meshes = meshes
		for _, mi := range meshes {
			b.model.Bounds = b.model.Bounds.Union(b.model.Meshes[mi].Bounds.Transform(world))
		}
	}

	self := len(b.model.Nodes)
	b.model.Nodes = append(b.model.Nodes, n)

	for _, c := range gn.Children {
		if err := b.addNode(ctx, c, self, world, depth+1); err != nil {
			return err
		}
	}
	return nil
}

// mesh builds the primitives of a glTF mesh once, even when several nodes
// share it.
func (b *builder) mesh(ctx context.Context, idx uint32) ([]int, error) {
	if built, ok := b.meshes[idx]; ok {
		return built, nil
	}
	if int(idx) >= len(b.doc.Meshes) {
		return nil, fmt.Errorf("mesh index %d out of range", idx)
	}
	gm := b.doc.Meshes[idx]

	var out []int
	for pi, prim := range gm.Primitives {
		if prim.Mode != gltf.PrimitiveTriangles {
			b.log.Debug("skipping non-triangle primitive",
				zap.String("mesh", gm.Name), zap.Int("primitive", pi))
			continue
		}

		mesh, err := b.primitive(ctx, prim)
		if err != nil {
			return nil, fmt.Errorf("mesh %q primitive %d: %w", gm.Name, pi, err)
		}
		mesh.Name = gm.Name
		if len(gm.Primitives) > 1 {
			mesh.Name = fmt.Sprintf("%s.%d", gm.Name, pi)
		}
		if prim.Material != nil && int(*prim.Material) < len(b.doc.Materials) {
			mesh.Material = b.doc.Materials[*prim.Material].Name
		}

		out = append(out, len(b.model.Meshes))
		b.model.Meshes = append(b.model.Meshes, mesh)
	}
	b.meshes[idx] = out
	return out, nil
}

func (b *builder) primitive(ctx context.Context, prim *gltf.Primitive) (*Mesh, error) {
	var geo *Geometry
	var err error
	if ext, ok := prim.Extensions[DracoExtension]; ok {
		geo, err = b.draco(ctx, ext)
	} else {
		geo, err = b.accessors(prim)
	}
	if err != nil {
		return nil, err
	}

	vertices := make([]Vertex, len(geo.Positions))
	for i, p := range geo.Positions {
		vertices[i].Position = p
		if geo.Normals != nil {
			vertices[i].Normal = geo.Normals[i]
		}
		if geo.TexCoords != nil {
			vertices[i].TexCoord = geo.TexCoords[i]
		}
	}

	indices := geo.Indices
	if indices == nil {
		indices = Indexed(len(vertices))
	}
	for _, i := range indices {
		if int(i) >= len(vertices) {
			return nil, fmt.Errorf("index %d out of range (%d vertices)", i, len(vertices))
		}
	}
	if geo.Normals == nil {
		FlatNormals(vertices, indices)
		SmoothNormals(vertices)
	}

	return &Mesh{
		Vertices: vertices,
		Indices:  indices,
		Bounds:   ComputeBounds(vertices),
	}, nil
}

func (b *builder) accessors(prim *gltf.Primitive) (*Geometry, error) {
	pos, ok := prim.Attributes["POSITION"]
	if !ok || int(pos) >= len(b.doc.Accessors) {
		return nil, fmt.Errorf("primitive has no POSITION attribute")
	}

	geo := &Geometry{}
	var err error
	if geo.Positions, err = modeler.ReadPosition(b.doc, b.doc.Accessors[pos], nil); err != nil {
		return nil, fmt.Errorf("reading positions: %w", err)
	}

	if idx, ok := prim.Attributes["NORMAL"]; ok && int(idx) < len(b.doc.Accessors) {
		if geo.Normals, err = modeler.ReadNormal(b.doc, b.doc.Accessors[idx], nil); err != nil {
			return nil, fmt.Errorf("reading normals: %w", err)
		}
	}
	if idx, ok := prim.Attributes["TEXCOORD_0"]; ok && int(idx) < len(b.doc.Accessors) {
		if geo.TexCoords, err = modeler.ReadTextureCoord(b.doc, b.doc.Accessors[idx], nil); err != nil {
			return nil, fmt.Errorf("reading texture coordinates: %w", err)
		}
	}
	if len(geo.Normals) != len(geo.Positions) {
		geo.Normals = nil
	}
	if len(geo.TexCoords) != len(geo.Positions) {
		geo.TexCoords = nil
	}

	if prim.Indices != nil {
		if int(*prim.Indices) >= len(b.doc.Accessors) {
			return nil, fmt.Errorf("indices accessor %d out of range", *prim.Indices)
		}
		if geo.Indices, err = modeler.ReadIndices(b.doc, b.doc.Accessors[*prim.Indices], nil); err != nil {
			return nil, fmt.Errorf("reading indices: %w", err)
		}
	}
	return geo, nil
}

// dracoRef is the part of the extension object the loader needs.
type dracoRef struct {
	BufferView uint32            `json:"bufferView"`
	Attributes map[string]uint32 `json:"attributes"`
}

func (b *builder) draco(ctx context.Context, ext any) (*Geometry, error) {
	raw, err := json.Marshal(ext)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", DracoExtension, err)
	}
	var ref dracoRef
	if err := json.Unmarshal(raw, &ref); err != nil {
		return nil, fmt.Errorf("%s: %w", DracoExtension, err)
	}

	if int(ref.BufferView) >= len(b.doc.BufferViews) {
		return nil, fmt.Errorf("%s: buffer view %d out of range", DracoExtension, ref.BufferView)
	}
	view := b.doc.BufferViews[ref.BufferView]
	if int(view.Buffer) >= len(b.doc.Buffers) {
		return nil, fmt.Errorf("%s: buffer %d out of range", DracoExtension, view.Buffer)
	}
	buf := b.doc.Buffers[view.Buffer].Data
	end := uint64(view.ByteOffset) + uint64(view.ByteLength)
	if end > uint64(len(buf)) {
		return nil, fmt.Errorf("%s: buffer view exceeds buffer", DracoExtension)
	}

	geo, err := b.dec.DecodeGeometry(ctx, buf[view.ByteOffset:end])
	if err != nil {
		return nil, fmt.Errorf("%s: %w", DracoExtension, err)
	}
	return geo, nil
}

// nodeTransform returns the node's TRS, decomposing Matrix when set. Zero
// rotation and scale arrays mean the glTF defaults.
func nodeTransform(n *gltf.Node) (math.Vec3, math.Quat, math.Vec3) {
	var zero, identity [16]float32
	for i := 0; i < 4; i++ {
		identity[i*5] = 1
	}
	if n.Matrix != zero && n.Matrix != identity {
		return decompose(n.Matrix)
	}

	t := math.Vec3FromArray(n.Translation)

	r := math.QuatIdentity()
	if n.Rotation != [4]float32{} {
		r = math.Quat{X: n.Rotation[0], Y: n.Rotation[1], Z: n.Rotation[2], W: n.Rotation[3]}.Normalize()
	}

	s := math.Vec3One
	if n.Scale != [3]float32{} {
		s = math.Vec3FromArray(n.Scale)
	}
	return t, r, s
}

// decompose splits a column-major affine matrix without shear into TRS.
func decompose(mf [16]float32) (math.Vec3, math.Quat, math.Vec3) {
	var m [16]float64
	for i, v := range mf {
		m[i] = float64(v)
	}
	t := math.Vec3{X: mf[12], Y: mf[13], Z: mf[14]}

	sx := gomath.Sqrt(m[0]*m[0] + m[1]*m[1] + m[2]*m[2])
	sy := gomath.Sqrt(m[4]*m[4] + m[5]*m[5] + m[6]*m[6])
	sz := gomath.Sqrt(m[8]*m[8] + m[9]*m[9] + m[10]*m[10])
	// A negative determinant means one axis is mirrored.
	det := m[0]*(m[5]*m[10]-m[9]*m[6]) - m[4]*(m[1]*m[10]-m[9]*m[2]) + m[8]*(m[1]*m[6]-m[5]*m[2])
	if det < 0 {
		sx = -sx
	}
	s := math.Vec3{X: float32(sx), Y: float32(sy), Z: float32(sz)}
	if sx == 0 || sy == 0 || sz == 0 {
		return t, math.QuatIdentity(), s
	}

	// Rotation matrix entries r[row][col].
	r00, r10, r20 := m[0]/sx, m[1]/sx, m[2]/sx
	r01, r11, r21 := m[4]/sy, m[5]/sy, m[6]/sy
	r02, r12, r22 := m[8]/sz, m[9]/sz, m[10]/sz

	var q [4]float64
	trace := r00 + r11 + r22
	switch {
	case trace > 0:
		k := 0.5 / gomath.Sqrt(trace+1)
		q = [4]float64{(r21 - r12) * k, (r02 - r20) * k, (r10 - r01) * k, 0.25 / k}
	case r00 > r11 && r00 > r22:
		k := 2 * gomath.Sqrt(1+r00-r11-r22)
		q = [4]float64{0.25 * k, (r01 + r10) / k, (r02 + r20) / k, (r21 - r12) / k}
	case r11 > r22:
		k := 2 * gomath.Sqrt(1+r11-r00-r22)
		q = [4]float64{(r01 + r10) / k, 0.25 * k, (r12 + r21) / k, (r02 - r20) / k}
	default:
		k := 2 * gomath.Sqrt(1+r22-r00-r11)
		q = [4]float64{(r02 + r20) / k, (r12 + r21) / k, 0.25 * k, (r10 - r01) / k}
	}
	rot := math.Quat{X: float32(q[0]), Y: float32(q[1]), Z: float32(q[2]), W: float32(q[3])}.Normalize()
	return t, rot, s
}
