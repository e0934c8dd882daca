package ge

import (
	"sort"

	"mh-asset-tools/internal/mathutil"
)

// Mesh is the result of one command-stream run. Vertices are keyed by
// absolute vertex index.
type Mesh struct {
	Vertices  map[uint32]Vertex
	Triangles []Triangle
	// Layouts lists every layout declared during the run, in order.
	Layouts []Layout
}

func newMesh() *Mesh {
	return &Mesh{Vertices: make(map[uint32]Vertex)}
}

// Indices returns the materialized vertex indices in ascending order.
func (m *Mesh) Indices() []uint32 {
	idx := make([]uint32, 0, len(m.Vertices))
	for i := range m.Vertices {
		idx = append(idx, i)
	}
	sort.Slice(idx, func(a, b int) bool { return idx[a] < idx[b] })
	return idx
}

// Bounds returns the axis-aligned bounds of all vertex positions.
func (m *Mesh) Bounds() mathutil.Bounds {
	b := mathutil.EmptyBounds()
	for _, v := range m.Vertices {
		b = b.Extend(mathutil.Vec3(v.Position))
	}
	return b
}
