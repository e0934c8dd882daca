package ge

import (
	"encoding/binary"
	"fmt"
	"image/color"
	"math"
)

// Vertex is one decoded record. Weights are kept raw-normalized and are not
// emitted by any mesh sink.
type Vertex struct {
	Position [3]float32
	Normal   [3]float32
	UV       [2]float32
	Color    color.NRGBA
	Weights  []float32

	HasNormal bool
	HasUV     bool
	HasColor  bool
}

// DecodeVertex decodes one record laid out as l. raw must hold at least
// l.Size bytes.
func DecodeVertex(raw []byte, l *Layout) (Vertex, error) {
	if len(raw) < l.Size {
		return Vertex{}, fmt.Errorf("%w: record needs %d bytes, have %d", ErrRecordOverrun, l.Size, len(raw))
	}
	var v Vertex
	for _, f := range l.Fields {
		b := raw[f.Offset : f.Offset+f.Size()]
		switch f.Kind {
		case FieldWeight:
			v.Weights = make([]float32, f.Components)
			for i := range v.Weights {
				v.Weights[i] = component(b, i, f.Encoding, false) / f.Scale
			}
		case FieldUV:
			v.UV[0] = component(b, 0, f.Encoding, false) / f.Scale
			v.UV[1] = component(b, 1, f.Encoding, false) / f.Scale
			v.HasUV = true
		case FieldColor:
			v.Color = unpackColor(b, f.Color)
			v.HasColor = true
		case FieldNormal:
			for i := 0; i < 3; i++ {
				v.Normal[i] = component(b, i, f.Encoding, true) / f.Scale
			}
			v.HasNormal = true
		case FieldPosition:
			for i := 0; i < 3; i++ {
				signed := !(f.UnsignedLast && i == 2)
				v.Position[i] = component(b, i, f.Encoding, signed) / f.Scale
			}
		}
	}
	return v, nil
}

// component reads the i-th element of a numeric field.
func component(b []byte, i int, enc Encoding, signed bool) float32 {
	switch enc {
	case EncInt8:
		if signed {
			return float32(int8(b[i]))
		}
		return float32(b[i])
	case EncInt16:
		u := binary.LittleEndian.Uint16(b[i*2:])
		if signed {
			return float32(int16(u))
		}
		return float32(u)
	case EncFloat32:
		return math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return 0
}

func unpackColor(b []byte, cf ColorFormat) color.NRGBA {
	switch cf {
	case ColorRGB565:
		p := binary.LittleEndian.Uint16(b)
		return color.NRGBA{R: scaleBits(uint32(p)&31, 31), G: scaleBits(uint32(p>>5)&63, 63), B: scaleBits(uint32(p>>11)&31, 31), A: 255}
	case ColorRGBA5551:
		p := binary.LittleEndian.Uint16(b)
		return color.NRGBA{R: scaleBits(uint32(p)&31, 31), G: scaleBits(uint32(p>>5)&31, 31), B: scaleBits(uint32(p>>10)&31, 31), A: uint8(p>>15) * 255}
	case ColorRGBA4444:
		p := binary.LittleEndian.Uint16(b)
		return color.NRGBA{R: uint8(p&15) * 17, G: uint8(p>>4&15) * 17, B: uint8(p>>8&15) * 17, A: uint8(p>>12&15) * 17}
	case ColorRGBA8888:
		p := binary.LittleEndian.Uint32(b)
		return color.NRGBA{R: uint8(p), G: uint8(p >> 8), B: uint8(p >> 16), A: uint8(p >> 24)}
	}
	return color.NRGBA{}
}

// scaleBits expands an n-bit channel to 8 bits with rounding.
func scaleBits(v, limit uint32) uint8 {
	return uint8((v*255 + limit/2) / limit)
}
