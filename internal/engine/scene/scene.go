// Package scene provides the node graph the viewer renders, picks and edits.
//
// Nodes live in an arena owned by Graph and are addressed by NodeID. Removed
// nodes are tombstoned and their slots are never reused, so a stale NodeID
// can be detected with Valid instead of aliasing a newer node.
//
// A Graph is not safe for concurrent use; it belongs to the render goroutine.
package scene

import (
	"github.com/Faultbox/roomview/pkg/math"
)

// NodeID addresses a node in a Graph.
type NodeID int32

// NoNode is the zero reference ("nothing attached", "no parent").
const NoNode NodeID = -1

// Box is an axis-aligned bounding box.
type Box struct {
	Min math.Vec3
	Max math.Vec3
}

// Empty reports whether the box encloses nothing.
func (b Box) Empty() bool {
	return b.Min.X > b.Max.X || b.Min.Y > b.Max.Y || b.Min.Z > b.Max.Z
}

// Center returns the midpoint of the box.
func (b Box) Center() math.Vec3 {
	return b.Min.Add(b.Max).Scale(0.5)
}

// Union returns the smallest box enclosing both boxes.
func (b Box) Union(o Box) Box {
	if b.Empty() {
		return o
	}
	if o.Empty() {
		return b
	}
	return Box{
		Min: math.Vec3{X: min(b.Min.X, o.Min.X), Y: min(b.Min.Y, o.Min.Y), Z: min(b.Min.Z, o.Min.Z)},
		Max: math.Vec3{X: max(b.Max.X, o.Max.X), Y: max(b.Max.Y, o.Max.Y), Z: max(b.Max.Z, o.Max.Z)},
	}
}

// EmptyBox returns a box that Union treats as nothing.
func EmptyBox() Box {
	return Box{
		Min: math.Vec3{X: 1, Y: 1, Z: 1},
		Max: math.Vec3{X: -1, Y: -1, Z: -1},
	}
}

// Transform returns the axis-aligned box enclosing b after transforming its
// eight corners by m.
func (b Box) Transform(m math.Mat4) Box {
	if b.Empty() {
		return b
	}
	out := EmptyBox()
	for i := 0; i < 8; i++ {
		corner := math.Vec3{X: b.Min.X, Y: b.Min.Y, Z: b.Min.Z}
		if i&1 != 0 {
			corner.X = b.Max.X
		}
		if i&2 != 0 {
			corner.Y = b.Max.Y
		}
		if i&4 != 0 {
			corner.Z = b.Max.Z
		}
		p := m.TransformVec3(corner)
		out = out.Union(Box{Min: p, Max: p})
	}
	return out
}

// Node is the data stored per scene node.
type Node struct {
	Name     string
	Position math.Vec3
	Rotation math.Quat
	Scale    math.Vec3
	Visible  bool

	// Renderable marks nodes that carry geometry. Only renderable nodes are
	// pick candidates.
	Renderable bool
	// Bounds is the local-space bounding box of the node's own geometry.
	Bounds Box
	// Mesh is the renderer payload; the graph never inspects it.
	Mesh any
	// Texture overrides the mesh material when set.
	Texture any
}

// NewNode returns a visible node with identity transform.
func NewNode(name string) Node {
	return Node{
		Name:     name,
		Rotation: math.QuatIdentity(),
		Scale:    math.Vec3One,
		Visible:  true,
		Bounds:   EmptyBox(),
	}
}

type slot struct {
	Node
	parent   NodeID
	children []NodeID
	alive    bool
}

// Graph is an arena of nodes rooted at Root.
type Graph struct {
	slots []slot
	root  NodeID
}

// NewGraph creates a graph containing only the root node.
func NewGraph() *Graph {
	g := &Graph{}
	g.slots = append(g.slots, slot{Node: NewNode("scene"), parent: NoNode, alive: true})
	g.root = 0
	return g
}

// Root returns the root node.
func (g *Graph) Root() NodeID {
	return g.root
}

// Valid reports whether id refers to a live node.
func (g *Graph) Valid(id NodeID) bool {
	return id >= 0 && int(id) < len(g.slots) && g.slots[id].alive
}

// Len returns the number of live nodes, root included.
func (g *Graph) Len() int {
	n := 0
	for i := range g.slots {
		if g.slots[i].alive {
			n++
		}
	}
	return n
}

// Add inserts n as the last child of parent. It returns NoNode when parent
// is not a live node.
func (g *Graph) Add(parent NodeID, n Node) NodeID {
	if !g.Valid(parent) {
		return NoNode
	}
	id := NodeID(len(g.slots))
	g.slots = append(g.slots, slot{Node: n, parent: parent, alive: true})
	g.slots[parent].children = append(g.slots[parent].children, id)
	return id
}

// Remove detaches id and tombstones it with its whole subtree.
// The root cannot be removed.
func (g *Graph) Remove(id NodeID) {
	if !g.Valid(id) || id == g.root {
		return
	}
	g.detach(id)
	g.Traverse(id, func(n NodeID) bool {
		s := &g.slots[n]
		s.alive = false
		s.Mesh = nil
		s.Texture = nil
		return true
	})
}

// Reparent moves id under parent, keeping its local transform. Moving a node
// under its own descendant is refused.
func (g *Graph) Reparent(id, parent NodeID) bool {
	if !g.Valid(id) || !g.Valid(parent) || id == g.root {
		return false
	}
	if g.IsAncestor(id, parent) {
		return false
	}
	g.detach(id)
	g.slots[id].parent = parent
	g.slots[parent].children = append(g.slots[parent].children, id)
	return true
}

func (g *Graph) detach(id NodeID) {
	p := g.slots[id].parent
	if p == NoNode {
		return
	}
	siblings := g.slots[p].children
	for i, c := range siblings {
		if c == id {
			g.slots[p].children = append(siblings[:i:i], siblings[i+1:]...)
			break
		}
	}
	g.slots[id].parent = NoNode
}

// Node returns a pointer to the node data, or nil for an invalid id.
// The pointer is invalidated by the next Add.
func (g *Graph) Node(id NodeID) *Node {
	if !g.Valid(id) {
		return nil
	}
	return &g.slots[id].Node
}

// Name returns the node name, or "" for an invalid id.
func (g *Graph) Name(id NodeID) string {
	if !g.Valid(id) {
		return ""
	}
	return g.slots[id].Name
}

// Parent returns the parent of id, or NoNode.
func (g *Graph) Parent(id NodeID) NodeID {
	if !g.Valid(id) {
		return NoNode
	}
	return g.slots[id].parent
}

// Children returns the direct children of id.
func (g *Graph) Children(id NodeID) []NodeID {
	if !g.Valid(id) {
		return nil
	}
	return g.slots[id].children
}

// Traverse visits id and its descendants depth-first, parents before
// children. Returning false from fn skips that node's children.
func (g *Graph) Traverse(id NodeID, fn func(NodeID) bool) {
	if !g.Valid(id) {
		return
	}
	if !fn(id) {
		return
	}
	for _, c := range g.slots[id].children {
		g.Traverse(c, fn)
	}
}

// Ancestors walks from id (inclusive) towards the root until fn returns
// false.
func (g *Graph) Ancestors(id NodeID, fn func(NodeID) bool) {
	for cur := id; g.Valid(cur); cur = g.slots[cur].parent {
		if !fn(cur) {
			return
		}
	}
}

// IsAncestor reports whether ancestor is id or one of id's ancestors.
func (g *Graph) IsAncestor(ancestor, id NodeID) bool {
	found := false
	g.Ancestors(id, func(n NodeID) bool {
		found = n == ancestor
		return !found
	})
	return found
}

// Find returns the first node named name in traversal order.
func (g *Graph) Find(name string) NodeID {
	found := NoNode
	g.Traverse(g.root, func(n NodeID) bool {
		if found != NoNode {
			return false
		}
		if g.slots[n].Name == name {
			found = n
			return false
		}
		return true
	})
	return found
}

// LocalMatrix returns the node's translation * rotation * scale.
func (g *Graph) LocalMatrix(id NodeID) math.Mat4 {
	if !g.Valid(id) {
		return math.Identity()
	}
	n := &g.slots[id].Node
	return math.Compose(n.Position, n.Rotation, n.Scale)
}

// WorldMatrix returns the node's transform relative to the root.
func (g *Graph) WorldMatrix(id NodeID) math.Mat4 {
	if !g.Valid(id) {
		return math.Identity()
	}
	local := g.LocalMatrix(id)
	if p := g.slots[id].parent; p != NoNode {
		return g.WorldMatrix(p).Mul(local)
	}
	return local
}

// WorldPosition returns the node origin in world space.
func (g *Graph) WorldPosition(id NodeID) math.Vec3 {
	m := g.WorldMatrix(id)
	return math.Vec3{X: m[12], Y: m[13], Z: m[14]}
}

// WorldRotation returns the accumulated rotation from the root to id.
func (g *Graph) WorldRotation(id NodeID) math.Quat {
	q := math.QuatIdentity()
	g.Ancestors(id, func(n NodeID) bool {
		q = g.slots[n].Rotation.Mul(q)
		return true
	})
	return q.Normalize()
}

// WorldBounds returns the world-space box of the node's own geometry.
func (g *Graph) WorldBounds(id NodeID) (Box, bool) {
	if !g.Valid(id) || g.slots[id].Bounds.Empty() {
		return Box{}, false
	}
	return g.slots[id].Bounds.Transform(g.WorldMatrix(id)), true
}

// SubtreeBounds returns the world-space box enclosing id and its descendants.
func (g *Graph) SubtreeBounds(id NodeID) (Box, bool) {
	out := EmptyBox()
	g.Traverse(id, func(n NodeID) bool {
		if b, ok := g.WorldBounds(n); ok {
			out = out.Union(b)
		}
		return true
	})
	return out, !out.Empty()
}

// VisibleInWorld reports whether id and all its ancestors are visible.
func (g *Graph) VisibleInWorld(id NodeID) bool {
	visible := g.Valid(id)
	g.Ancestors(id, func(n NodeID) bool {
		if !g.slots[n].Visible {
			visible = false
		}
		return visible
	})
	return visible
}
