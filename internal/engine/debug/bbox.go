// Package debug provides debug visualization utilities.
package debug

import (
	"github.com/Faultbox/roomview/internal/engine/scene"
	"github.com/Faultbox/roomview/pkg/math"
)

// BoxEdgeVertexCount is the number of endpoints BoxEdges appends (12 edges × 2).
const BoxEdgeVertexCount = 24

// DefaultBoxPadding is the default padding for selection boxes.
const DefaultBoxPadding = 0.05

// BoxEdges appends the wireframe of box, grown by padding on all sides, to
// dst as pairs of endpoints. Empty boxes append nothing.
func BoxEdges(dst []math.Vec3, box scene.Box, padding float32) []math.Vec3 {
	if box.Empty() {
		return dst
	}
	pad := math.Vec3{X: padding, Y: padding, Z: padding}
	lo, hi := box.Min.Sub(pad), box.Max.Add(pad)

	corner := func(x, y, z bool) math.Vec3 {
		c := lo
		if x {
			c.X = hi.X
		}
		if y {
			c.Y = hi.Y
		}
		if z {
			c.Z = hi.Z
		}
		return c
	}

	return append(dst,
		// Bottom face
		corner(false, false, false), corner(true, false, false),
		corner(true, false, false), corner(true, false, true),
		corner(true, false, true), corner(false, false, true),
		corner(false, false, true), corner(false, false, false),
		// Top face
		corner(false, true, false), corner(true, true, false),
		corner(true, true, false), corner(true, true, true),
		corner(true, true, true), corner(false, true, true),
		corner(false, true, true), corner(false, true, false),
		// Vertical edges
		corner(false, false, false), corner(false, true, false),
		corner(true, false, false), corner(true, true, false),
		corner(true, false, true), corner(true, true, true),
		corner(false, false, true), corner(false, true, true),
	)
}
