package scene

import "github.com/Faultbox/roomview/pkg/math"

type field uint8

const (
	fieldPosition field = iota
	fieldScale
)

// Property is an animatable Vec3 of one node. Properties are comparable, so
// two Property values for the same node and field are equal.
type Property struct {
	g     *Graph
	id    NodeID
	field field
}

// ScaleProperty returns the scale of id as an animation target.
func (g *Graph) ScaleProperty(id NodeID) Property {
	return Property{g: g, id: id, field: fieldScale}
}

// PositionProperty returns the position of id as an animation target.
func (g *Graph) PositionProperty(id NodeID) Property {
	return Property{g: g, id: id, field: fieldPosition}
}

// Node returns the node the property belongs to.
func (p Property) Node() NodeID {
	return p.id
}

// Value reads the current value. Removed nodes read as zero.
func (p Property) Value() math.Vec3 {
	n := p.g.Node(p.id)
	if n == nil {
		return math.Vec3{}
	}
	switch p.field {
	case fieldScale:
		return n.Scale
	default:
		return n.Position
	}
}

// SetValue writes v. Writes to removed nodes are dropped.
func (p Property) SetValue(v math.Vec3) {
	n := p.g.Node(p.id)
	if n == nil {
		return
	}
	switch p.field {
	case fieldScale:
		n.Scale = v
	default:
		n.Position = v
	}
}
