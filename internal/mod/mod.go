// Package mod reads 3DS-era model containers. Geometry is stored directly:
// a shared vertex buffer and a shared 16-bit strip index buffer.
package mod

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"mh-asset-tools/internal/binfmt"
	"mh-asset-tools/internal/ge"
)

const (
	version    = 0xe6
	headerSize = 64
	meshSize   = 48
	// StripRestart separates strips in the index buffer.
	StripRestart = 0xffff
)

// Part describes one mesh record.
type Part struct {
	Index        int
	VertexCount  int
	Stride       int
	VertexStart  uint32
	VertexOffset uint32
	IndexOffset  uint32
	IndexCount   uint32
}

// Name is a stable label for the part.
func (p Part) Name() string {
	return fmt.Sprintf("mesh%04d", p.Index)
}

// File is an opened container.
type File struct {
	r         io.ReaderAt
	vertexBuf int64
	indexBuf  int64
	parts     []Part
}

// ReadFile loads a whole container into memory and opens it.
func ReadFile(path string) (*File, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("mod: read %s: %w", path, err)
	}
	f, err := Open(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Open parses the header and mesh table of r.
func Open(r io.ReaderAt) (*File, error) {
	h, err := binfmt.ReadRecord(r, 0, headerSize)
	if err != nil {
		return nil, fmt.Errorf("mod: header: %w", err)
	}
	if magic := h.Str(4); magic != "MOD" {
		return nil, fmt.Errorf("mod: %w: magic %q", binfmt.ErrFormat, magic)
	}
	if v := h.U16(); v != version {
		return nil, fmt.Errorf("mod: %w: version 0x%x", binfmt.ErrFormat, v)
	}
	h.Seek(8)
	count := int(h.U16())
	h.Seek(52)
	meshTable := int64(h.U32())
	f := &File{r: r, vertexBuf: int64(h.U32()), indexBuf: int64(h.U32())}

	for i := 0; i < count; i++ {
		m, err := binfmt.ReadRecord(r, meshTable+int64(i*meshSize), meshSize)
		if err != nil {
			return nil, fmt.Errorf("mod: mesh %d: %w", i, err)
		}
		p := Part{Index: i}
		m.Seek(2)
		p.VertexCount = int(m.U16())
		m.Seek(10)
		p.Stride = int(m.U8())
		m.Seek(12)
		p.VertexStart = m.U32()
		p.VertexOffset = m.U32()
		m.Seek(24)
		p.IndexOffset = m.U32()
		p.IndexCount = m.U32()
		if p.Stride < 12 {
			return nil, fmt.Errorf("mod: mesh %d: %w: stride %d too small for a position", i, binfmt.ErrFormat, p.Stride)
		}
		f.parts = append(f.parts, p)
	}
	return f, nil
}

// Parts returns the mesh records in file order.
func (f *File) Parts() []Part {
	return f.parts
}

// Decode reads the positions and strip indices of p. Vertex indices in the
// result are local to the part.
func (f *File) Decode(p Part) (*ge.Mesh, error) {
	mesh := &ge.Mesh{Vertices: make(map[uint32]ge.Vertex, p.VertexCount)}

	vbuf := make([]byte, p.VertexCount*p.Stride)
	addr := f.vertexBuf + int64(p.VertexStart)*int64(p.Stride) + int64(p.VertexOffset)
	if err := readFull(f.r, vbuf, addr); err != nil {
		return nil, fmt.Errorf("mod: %s vertices: %w", p.Name(), err)
	}
	for i := 0; i < p.VertexCount; i++ {
		rec := vbuf[i*p.Stride:]
		var v ge.Vertex
		for c := range v.Position {
			v.Position[c] = math.Float32frombits(binary.LittleEndian.Uint32(rec[c*4:]))
		}
		mesh.Vertices[uint32(i)] = v
	}

	// the buffer holds one index past the recorded count
	ibuf := make([]byte, (int(p.IndexCount)+1)*2)
	if err := readFull(f.r, ibuf, f.indexBuf+int64(p.IndexOffset)*2); err != nil {
		return nil, fmt.Errorf("mod: %s indices: %w", p.Name(), err)
	}
	indices := make([]uint32, len(ibuf)/2)
	for i := range indices {
		indices[i] = uint32(binary.LittleEndian.Uint16(ibuf[i*2:]))
	}

	tris, err := ge.AssembleRestart(indices, ge.PrimStrip, ge.WindingDefault, StripRestart)
	if err != nil {
		return nil, fmt.Errorf("mod: %s: %w", p.Name(), err)
	}
	mesh.Triangles = make([]ge.Triangle, 0, len(tris))
	for _, t := range tris {
		for k := range t {
			if t[k] < p.VertexStart || t[k]-p.VertexStart >= uint32(p.VertexCount) {
				return nil, fmt.Errorf("mod: %s: %w: index %d outside vertices [%d, %d)",
					p.Name(), ge.ErrRecordOverrun, t[k], p.VertexStart, int(p.VertexStart)+p.VertexCount)
			}
			t[k] -= p.VertexStart
		}
		mesh.Triangles = append(mesh.Triangles, t)
	}
	return mesh, nil
}

func readFull(r io.ReaderAt, buf []byte, off int64) error {
	n, err := r.ReadAt(buf, off)
	if n == len(buf) {
		return nil
	}
	if err == nil || errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: %d bytes at 0x%x, source ended after %d", ge.ErrRecordOverrun, len(buf), off, n)
	}
	return err
}
