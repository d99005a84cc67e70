package picking

import (
	"sort"

	"github.com/Faultbox/roomview/internal/engine/scene"
	"github.com/Faultbox/roomview/pkg/math"
)

// TriangleSource is implemented by mesh payloads that can refine a bounding
// box hit to exact geometry. Triangles are in the node's local space.
type TriangleSource interface {
	Triangles(fn func(a, b, c math.Vec3) bool)
}

// Hit is one intersected node.
type Hit struct {
	Node     scene.NodeID
	Distance float32
	Point    math.Vec3
}

// CastAll intersects the ray with every visible renderable node under the
// given roots and returns the hits sorted nearest first. A node reachable
// from several roots is tested once.
func CastAll(g *scene.Graph, ray Ray, roots []scene.NodeID) []Hit {
	seen := make(map[scene.NodeID]struct{})
	var hits []Hit

	for _, root := range roots {
		if !g.VisibleInWorld(root) {
			continue
		}
		g.Traverse(root, func(id scene.NodeID) bool {
			if _, ok := seen[id]; ok {
				return false
			}
			seen[id] = struct{}{}

			n := g.Node(id)
			if !n.Visible {
				return false
			}
			if n.Renderable {
				if hit, ok := intersectNode(g, id, n, ray); ok {
					hits = append(hits, hit)
				}
			}
			return true
		})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Distance < hits[j].Distance
	})
	return hits
}

// Cast returns the nearest hit under roots.
func Cast(g *scene.Graph, ray Ray, roots []scene.NodeID) (Hit, bool) {
	hits := CastAll(g, ray, roots)
	if len(hits) == 0 {
		return Hit{}, false
	}
	return hits[0], true
}

func intersectNode(g *scene.Graph, id scene.NodeID, n *scene.Node, ray Ray) (Hit, bool) {
	world := g.WorldMatrix(id)
	box := n.Bounds.Transform(world)
	t, ok := ray.IntersectBox(box)
	if !ok {
		return Hit{}, false
	}

	tris, refine := n.Mesh.(TriangleSource)
	if !refine {
		return Hit{Node: id, Distance: t, Point: ray.At(t)}, true
	}

	// Test in local space, then measure the distance in world space.
	inv := world.Inverse()
	localOrigin := inv.TransformVec3(ray.Origin)
	localDir := math.Vec3FromArray(inv.TransformDirection(ray.Direction.Array()))
	local := Ray{Origin: localOrigin, Direction: localDir}

	best := float32(-1)
	var bestPoint math.Vec3
	tris.Triangles(func(a, b, c math.Vec3) bool {
		lt, hit := local.IntersectTriangle(a, b, c)
		if !hit {
			return true
		}
		p := world.TransformVec3(local.At(lt))
		d := p.Distance(ray.Origin)
		if best < 0 || d < best {
			best = d
			bestPoint = p
		}
		return true
	})
	if best < 0 {
		return Hit{}, false
	}
	return Hit{Node: id, Distance: best, Point: bestPoint}, true
}
