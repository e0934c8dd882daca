// Package obj writes decoded meshes as Wavefront OBJ text.
package obj

import (
	"bufio"
	"fmt"
	"io"

	"mh-asset-tools/internal/ge"
)

// Writer appends meshes to one OBJ stream. Face indices are kept global
// across meshes.
type Writer struct {
	w *bufio.Writer
	// Colors enables the "v x y z r g b" extension for colored vertices.
	Colors bool

	nv, nvt, nvn int
	err          error
}

// NewWriter returns a Writer on w. Call Flush when done.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w), Colors: true}
}

func (w *Writer) printf(format string, args ...any) {
	if w.err != nil {
		return
	}
	_, w.err = fmt.Fprintf(w.w, format, args...)
}

// MaterialLib writes a mtllib reference.
func (w *Writer) MaterialLib(name string) error {
	w.printf("mtllib %s\n", name)
	return w.err
}

// WriteMesh writes m as group name. material may be empty. Vertices are
// written in ascending index order and faces are renumbered to match.
func (w *Writer) WriteMesh(name, material string, m *ge.Mesh) error {
	w.printf("g %s\n", name)
	if material != "" {
		w.printf("usemtl %s\n", material)
	}

	indices := m.Indices()
	var hasUV, hasNormal bool
	for _, v := range m.Vertices {
		hasUV = hasUV || v.HasUV
		hasNormal = hasNormal || v.HasNormal
	}

	remap := make(map[uint32]int, len(indices))
	for i, idx := range indices {
		remap[idx] = i + 1
		v := m.Vertices[idx]
		p := v.Position
		if w.Colors && v.HasColor {
			c := v.Color
			w.printf("v %f %f %f %f %f %f\n", p[0], p[1], p[2],
				float32(c.R)/255, float32(c.G)/255, float32(c.B)/255)
		} else {
			w.printf("v %f %f %f\n", p[0], p[1], p[2])
		}
	}
	if hasUV {
		for _, idx := range indices {
			uv := m.Vertices[idx].UV
			w.printf("vt %f %f\n", uv[0], uv[1])
		}
	}
	if hasNormal {
		for _, idx := range indices {
			n := m.Vertices[idx].Normal
			w.printf("vn %f %f %f\n", n[0], n[1], n[2])
		}
	}

	for ti, t := range m.Triangles {
		var refs [3]string
		for k, idx := range t {
			local, ok := remap[idx]
			if !ok {
				return fmt.Errorf("obj: %s triangle %d: vertex %d was never decoded", name, ti, idx)
			}
			refs[k] = w.ref(local, hasUV, hasNormal)
		}
		w.printf("f %s %s %s\n", refs[0], refs[1], refs[2])
	}

	w.nv += len(indices)
	if hasUV {
		w.nvt += len(indices)
	}
	if hasNormal {
		w.nvn += len(indices)
	}
	return w.err
}

func (w *Writer) ref(local int, uv, normal bool) string {
	v := w.nv + local
	switch {
	case uv && normal:
		return fmt.Sprintf("%d/%d/%d", v, w.nvt+local, w.nvn+local)
	case uv:
		return fmt.Sprintf("%d/%d", v, w.nvt+local)
	case normal:
		return fmt.Sprintf("%d//%d", v, w.nvn+local)
	}
	return fmt.Sprintf("%d", v)
}

// Flush writes any buffered data.
func (w *Writer) Flush() error {
	if w.err != nil {
		return w.err
	}
	return w.w.Flush()
}

// Material is one entry of an MTL library.
type Material struct {
	Name    string
	Texture string // diffuse map path, may be empty
}

// WriteMaterials writes an MTL library.
func WriteMaterials(out io.Writer, mats []Material) error {
	bw := bufio.NewWriter(out)
	for _, m := range mats {
		fmt.Fprintf(bw, "newmtl %s\n", m.Name)
		fmt.Fprintf(bw, "Kd 1.000000 1.000000 1.000000\n")
		if m.Texture != "" {
			fmt.Fprintf(bw, "map_Kd %s\n", m.Texture)
		}
		fmt.Fprintln(bw)
	}
	return bw.Flush()
}
