// Package model loads glTF scenes into CPU meshes and instantiates them into a
// scene graph.
package model

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Faultbox/roomview/internal/engine/scene"
	"github.com/Faultbox/roomview/pkg/math"
)

// ErrDisposed is returned when binding a mesh after Dispose.
var ErrDisposed = errors.New("mesh disposed")

// Vertex represents a model mesh vertex with position, normal, and texture coordinates.
type Vertex struct {
	Position [3]float32
	Normal   [3]float32
	TexCoord [2]float32
}

// Uploader creates GPU buffers for meshes. It is only called from the
// goroutine that owns the graphics context.
type Uploader interface {
	UploadMesh(m *Mesh) (uint32, error)
	DeleteMesh(handle uint32)
}

// Mesh holds one triangle list ready for GPU upload.
type Mesh struct {
	Name     string
	Material string
	Vertices []Vertex
	Indices  []uint32
	Bounds   scene.Box

	mu       sync.Mutex
	handle   uint32
	uploader Uploader
	disposed bool
}

// Triangles calls fn for every triangle in mesh space until fn returns false.
func (m *Mesh) Triangles(fn func(a, b, c math.Vec3) bool) {
	for i := 0; i+2 < len(m.Indices); i += 3 {
		a := math.Vec3FromArray(m.Vertices[m.Indices[i]].Position)
		b := math.Vec3FromArray(m.Vertices[m.Indices[i+1]].Position)
		c := math.Vec3FromArray(m.Vertices[m.Indices[i+2]].Position)
		if !fn(a, b, c) {
			return
		}
	}
}

// Bind returns the GPU handle, uploading the mesh on first use.
func (m *Mesh) Bind(u Uploader) (uint32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.disposed {
		return 0, fmt.Errorf("%s: %w", m.Name, ErrDisposed)
	}
	if m.handle != 0 {
		return m.handle, nil
	}
	h, err := u.UploadMesh(m)
	if err != nil {
		return 0, fmt.Errorf("uploading %s: %w", m.Name, err)
	}
	m.handle = h
	m.uploader = u
	return h, nil
}

// Dispose releases the GPU buffers. Safe to call repeatedly.
func (m *Mesh) Dispose() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.disposed {
		return
	}
	m.disposed = true
	if m.handle != 0 && m.uploader != nil {
		m.uploader.DeleteMesh(m.handle)
	}
	m.handle = 0
	m.uploader = nil
}

// Node is one node of the model hierarchy.
type Node struct {
	Name        string
	Parent      int // -1 for roots
	Translation math.Vec3
	Rotation    math.Quat
	Scale       math.Vec3
	Meshes      []int
}

// Model is a decoded glTF scene.
type Model struct {
	Name   string
	Nodes  []Node
	Meshes []*Mesh
	// Bounds encloses every mesh in model space.
	Bounds scene.Box
}

// Instantiate copies the hierarchy under parent and returns the id of a new
// group node named after the model. Nodes with one mesh become renderable
// themselves; nodes with several get one renderable child per mesh.
func (m *Model) Instantiate(g *scene.Graph, parent scene.NodeID) scene.NodeID {
	root := g.Add(parent, scene.NewNode(m.Name))
	if root == scene.NoNode {
		return scene.NoNode
	}

	ids := make([]scene.NodeID, len(m.Nodes))
	for i, n := range m.Nodes {
		p := root
		if n.Parent >= 0 && n.Parent < i {
			p = ids[n.Parent]
		}

		sn := scene.NewNode(n.Name)
		sn.Position = n.Translation
		sn.Rotation = n.Rotation
		sn.Scale = n.Scale
		if len(n.Meshes) == 1 {
			setMesh(&sn, m.Meshes[n.Meshes[0]])
		}
		ids[i] = g.Add(p, sn)

		if len(n.Meshes) > 1 {
			for _, mi := range n.Meshes {
				mesh := m.Meshes[mi]
				child := scene.NewNode(mesh.Name)
				setMesh(&child, mesh)
				g.Add(ids[i], child)
			}
		}
	}
	return root
}

func setMesh(n *scene.Node, mesh *Mesh) {
	n.Renderable = true
	n.Mesh = mesh
	n.Bounds = mesh.Bounds
}

// Dispose releases every mesh.
func (m *Model) Dispose() {
	for _, mesh := range m.Meshes {
		mesh.Dispose()
	}
}
