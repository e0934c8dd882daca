package ge

import "fmt"

// PrimitiveKind is the PRIM type subfield.
type PrimitiveKind uint8

const (
	PrimList  PrimitiveKind = 3
	PrimStrip PrimitiveKind = 4
)

func (k PrimitiveKind) String() string {
	switch k {
	case PrimList:
		return "list"
	case PrimStrip:
		return "strip"
	}
	return fmt.Sprintf("prim(%d)", uint8(k))
}

// Winding is the FFACE flag. WindingReversed swaps the last two vertices of
// every emitted triangle.
type Winding uint8

const (
	WindingDefault  Winding = 0
	WindingReversed Winding = 1
)

// Triangle holds three vertex indices.
type Triangle [3]uint32

// Assemble converts an index run into triangles.
func Assemble(indices []uint32, kind PrimitiveKind, w Winding) ([]Triangle, error) {
	return assemble(indices, kind, w, 0, false)
}

// AssembleRestart is Assemble with restart as an inline strip-restart marker.
// The marker consumes the next two indices as a new seed edge.
func AssembleRestart(indices []uint32, kind PrimitiveKind, w Winding, restart uint32) ([]Triangle, error) {
	return assemble(indices, kind, w, restart, true)
}

func assemble(indices []uint32, kind PrimitiveKind, w Winding, restart uint32, useRestart bool) ([]Triangle, error) {
	var tris []Triangle
	emit := func(t Triangle) {
		if w == WindingReversed {
			t[1], t[2] = t[2], t[1]
		}
		tris = append(tris, t)
	}

	switch kind {
	case PrimList:
		if len(indices)%3 != 0 {
			return nil, fmt.Errorf("%w: list of %d indices is not a multiple of 3", ErrRecordOverrun, len(indices))
		}
		tris = make([]Triangle, 0, len(indices)/3)
		for i := 0; i < len(indices); i += 3 {
			emit(Triangle{indices[i], indices[i+1], indices[i+2]})
		}
	case PrimStrip:
		if len(indices) < 2 {
			return nil, fmt.Errorf("%w: strip of %d indices", ErrRecordOverrun, len(indices))
		}
		tris = make([]Triangle, 0, len(indices)-2)
		a, b := indices[0], indices[1]
		odd := false
		for i := 2; i < len(indices); i++ {
			c := indices[i]
			if useRestart && c == restart {
				if i+2 >= len(indices) {
					break
				}
				a, b = indices[i+1], indices[i+2]
				odd = false
				i += 2
				continue
			}
			if odd {
				emit(Triangle{b, a, c})
			} else {
				emit(Triangle{a, b, c})
			}
			a, b = b, c
			odd = !odd
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedPrimitive, kind)
	}
	return tris, nil
}
