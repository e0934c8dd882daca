// Package ge interprets the geometry command streams stored in model files.
//
// A stream declares a vertex layout (VTYPE), vertex and index buffer
// addresses (VADDR, IADDR) and primitive kicks (PRIM). Run walks one stream,
// pulls the referenced vertices through an io.ReaderAt and assembles the
// triangles into a Mesh.
package ge

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"mh-asset-tools/internal/logging"
)

// DefaultMaxCommands bounds a run when Options.MaxCommands is zero.
const DefaultMaxCommands = 1 << 16

// Options configures one run.
type Options struct {
	// Base is the file position that VADDR and IADDR operands are relative to.
	Base int64
	// MaxCommands caps the number of words executed.
	MaxCommands int
}

// state holds the interpreter registers for one run.
type state struct {
	mem  io.ReaderAt
	base int64

	vertexAddr  int64
	vertexSet   bool
	indexAddr   int64
	indexSet    bool
	layout      *Layout
	winding     Winding
	indexOffset int

	mesh    *Mesh
	scratch []byte
}

// Run executes cmds against mem. It returns a Mesh only when the stream ends
// with RET; any failure discards the partial result.
func Run(cmds []uint32, mem io.ReaderAt, opts Options) (*Mesh, error) {
	limit := opts.MaxCommands
	if limit <= 0 {
		limit = DefaultMaxCommands
	}
	s := &state{mem: mem, base: opts.Base, mesh: newMesh()}
	log := logging.Logger()

	for pc, word := range cmds {
		if pc >= limit {
			return nil, fmt.Errorf("ge: %w: no RET within %d commands", ErrMalformedStream, limit)
		}
		cmd := Command(word)
		op, operand := cmd.Op(), cmd.Operand()
		var err error

		switch op {
		case OpNOP, OpBASE, OpOFFSET, OpORIGIN:
		case OpVADDR:
			if s.vertexSet {
				s.indexOffset = len(s.mesh.Vertices)
				log.Debug("ge: vertex base moved", "index_offset", s.indexOffset)
			}
			s.vertexAddr = s.base + int64(operand)
			s.vertexSet = true
		case OpIADDR:
			s.indexAddr = s.base + int64(operand)
			s.indexSet = true
		case OpVTYPE:
			err = s.vtype(operand)
		case OpPRIM:
			err = s.prim(operand)
		case OpFFACE:
			s.winding = Winding(operand & 1)
		case OpRET:
			return s.mesh, nil
		default:
			err = ErrUnknownCommand
		}
		if err != nil {
			return nil, &CommandError{Index: pc, Op: op, Err: err}
		}
	}
	return nil, fmt.Errorf("ge: %w: %d commands without RET", ErrMalformedStream, len(cmds))
}

func (s *state) vtype(operand uint32) error {
	l := DeriveLayout(operand)
	if l.MorphCount > 1 {
		return fmt.Errorf("%w: morphing with %d targets", ErrUnsupportedFeature, l.MorphCount)
	}
	s.layout = &l
	s.mesh.Layouts = append(s.mesh.Layouts, l)
	if cap(s.scratch) < l.Size {
		s.scratch = make([]byte, l.Size)
	}
	logging.Logger().Debug("ge: vertex type", "operand", fmt.Sprintf("0x%06x", operand), "layout", l.String())
	return nil
}

func (s *state) prim(operand uint32) error {
	kind := PrimitiveKind((operand >> 16) & 7)
	if kind != PrimList && kind != PrimStrip {
		return fmt.Errorf("%w: %s", ErrUnsupportedPrimitive, kind)
	}
	count := int(operand & 0xffff)

	switch {
	case s.layout == nil:
		return fmt.Errorf("%w: PRIM before VTYPE", ErrMalformedStream)
	case !s.vertexSet:
		return fmt.Errorf("%w: PRIM before VADDR", ErrMalformedStream)
	case !s.layout.Has(FieldPosition):
		return fmt.Errorf("%w: vertex type 0x%06x has no position", ErrMalformedStream, s.layout.Raw)
	}

	var (
		local      []uint32
		restart    uint32
		useRestart bool
	)
	if s.layout.IndexSize != 0 {
		if !s.indexSet {
			return fmt.Errorf("%w: indexed PRIM before IADDR", ErrMalformedStream)
		}
		var err error
		if local, err = s.readIndices(count); err != nil {
			return err
		}
		if kind == PrimStrip {
			restart = uint32(1)<<(8*s.layout.IndexSize) - 1
			useRestart = true
		}
	} else {
		first := uint32(len(s.mesh.Vertices) - s.indexOffset)
		local = make([]uint32, count)
		for k := range local {
			local[k] = first + uint32(k)
		}
	}

	offset := uint32(s.indexOffset)
	for _, li := range local {
		if useRestart && li == restart {
			continue
		}
		v, err := s.fetch(li)
		if err != nil {
			return err
		}
		// A later pull at the same absolute index replaces the earlier one.
		s.mesh.Vertices[li+offset] = v
	}

	tris, err := assemble(local, kind, s.winding, restart, useRestart)
	if err != nil {
		return err
	}
	for _, t := range tris {
		s.mesh.Triangles = append(s.mesh.Triangles, Triangle{t[0] + offset, t[1] + offset, t[2] + offset})
	}
	return nil
}

// fetch reads and decodes the record at local index li.
func (s *state) fetch(li uint32) (Vertex, error) {
	size := s.layout.Size
	addr := s.vertexAddr + int64(li)*int64(size)
	buf := s.scratch[:size]
	if err := s.readAt(buf, addr); err != nil {
		return Vertex{}, fmt.Errorf("vertex %d: %w", li, err)
	}
	return DecodeVertex(buf, s.layout)
}

// readIndices reads count indices at the index cursor and advances it.
func (s *state) readIndices(count int) ([]uint32, error) {
	size := s.layout.IndexSize
	buf := make([]byte, count*size)
	if err := s.readAt(buf, s.indexAddr); err != nil {
		return nil, fmt.Errorf("indices: %w", err)
	}
	s.indexAddr += int64(len(buf))

	idx := make([]uint32, count)
	for i := range idx {
		switch size {
		case 1:
			idx[i] = uint32(buf[i])
		case 2:
			idx[i] = uint32(binary.LittleEndian.Uint16(buf[i*2:]))
		case 4:
			idx[i] = binary.LittleEndian.Uint32(buf[i*4:])
		}
	}
	return idx, nil
}

// readAt fills buf from addr. Running off the end of the source is a
// RecordOverrun; other failures are passed through wrapped.
func (s *state) readAt(buf []byte, addr int64) error {
	if addr < 0 {
		return fmt.Errorf("%w: negative address %d", ErrRecordOverrun, addr)
	}
	n, err := s.mem.ReadAt(buf, addr)
	if n == len(buf) {
		return nil
	}
	if err == nil || errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: %d bytes at 0x%x, source ended after %d", ErrRecordOverrun, len(buf), addr, n)
	}
	return fmt.Errorf("read at 0x%x: %w", addr, err)
}
