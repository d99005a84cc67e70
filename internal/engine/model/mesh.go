package model

import (
	"github.com/Faultbox/roomview/internal/engine/scene"
	"github.com/Faultbox/roomview/pkg/math"
)

// FlatNormals assigns each vertex the normal of the last triangle using it.
// Used for primitives that carry no NORMAL attribute.
func FlatNormals(vertices []Vertex, indices []uint32) {
	for i := 0; i+2 < len(indices); i += 3 {
		a := math.Vec3FromArray(vertices[indices[i]].Position)
		b := math.Vec3FromArray(vertices[indices[i+1]].Position)
		c := math.Vec3FromArray(vertices[indices[i+2]].Position)

		n := b.Sub(a).Cross(c.Sub(a))
		if n.Length() < 1e-8 {
			continue
		}
		normal := n.Normalize().Array()
		vertices[indices[i]].Normal = normal
		vertices[indices[i+1]].Normal = normal
		vertices[indices[i+2]].Normal = normal
	}
}

// SmoothNormals averages normals at shared vertex positions.
// This reduces faceted appearance on models.
func SmoothNormals(vertices []Vertex) {
	const epsilon float32 = 0.001

	// Group vertices by quantized position for O(n) lookup
	posMap := make(map[[3]int32][]int)
	for i := range vertices {
		key := [3]int32{
			int32(vertices[i].Position[0] / epsilon),
			int32(vertices[i].Position[1] / epsilon),
			int32(vertices[i].Position[2] / epsilon),
		}
		posMap[key] = append(posMap[key], i)
	}

	for _, idxs := range posMap {
		if len(idxs) < 2 {
			continue
		}

		var sum math.Vec3
		for _, idx := range idxs {
			sum = sum.Add(math.Vec3FromArray(vertices[idx].Normal))
		}
		if sum.Length() < 1e-8 {
			continue
		}

		avg := sum.Normalize().Array()
		for _, idx := range idxs {
			vertices[idx].Normal = avg
		}
	}
}

// Indexed returns sequential indices for non-indexed primitives.
func Indexed(vertexCount int) []uint32 {
	indices := make([]uint32, vertexCount)
	for i := range indices {
		indices[i] = uint32(i)
	}
	return indices
}

// ComputeBounds returns the box enclosing every vertex position.
func ComputeBounds(vertices []Vertex) scene.Box {
	b := scene.EmptyBox()
	for i := range vertices {
		p := math.Vec3FromArray(vertices[i].Position)
		b = b.Union(scene.Box{Min: p, Max: p})
	}
	return b
}
