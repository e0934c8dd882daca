package ge

import "fmt"

// FieldKind names one vertex attribute.
type FieldKind uint8

const (
	FieldWeight FieldKind = iota
	FieldUV
	FieldColor
	FieldNormal
	FieldPosition
)

func (k FieldKind) String() string {
	switch k {
	case FieldWeight:
		return "weight"
	case FieldUV:
		return "uv"
	case FieldColor:
		return "color"
	case FieldNormal:
		return "normal"
	case FieldPosition:
		return "position"
	}
	return fmt.Sprintf("field(%d)", uint8(k))
}

// Encoding is the storage type of one component.
type Encoding uint8

const (
	EncAbsent Encoding = iota
	EncInt8
	EncInt16
	EncFloat32
	EncPacked16
	EncPacked32
)

func (e Encoding) String() string {
	switch e {
	case EncAbsent:
		return "absent"
	case EncInt8:
		return "int8"
	case EncInt16:
		return "int16"
	case EncFloat32:
		return "float32"
	case EncPacked16:
		return "packed16"
	case EncPacked32:
		return "packed32"
	}
	return fmt.Sprintf("encoding(%d)", uint8(e))
}

// ColorFormat is the packing of a color field.
type ColorFormat uint8

const (
	ColorNone ColorFormat = iota
	ColorRGB565
	ColorRGBA5551
	ColorRGBA4444
	ColorRGBA8888
)

// Field describes one attribute within a vertex record.
type Field struct {
	Kind       FieldKind
	Encoding   Encoding
	Components int
	Color      ColorFormat
	// Scale divides integer components; 1 for float and raw fields.
	Scale  float32
	Signed bool
	// UnsignedLast marks the raw position variant whose third axis is unsigned.
	UnsignedLast bool
	// Offset is the byte offset of the field within the record.
	Offset int
}

// Size is the byte width of the field.
func (f Field) Size() int {
	switch f.Encoding {
	case EncInt8:
		return f.Components
	case EncInt16:
		return 2 * f.Components
	case EncFloat32:
		return 4 * f.Components
	case EncPacked16:
		return 2
	case EncPacked32:
		return 4
	}
	return 0
}

// Layout is the decode plan derived from a VTYPE operand. Fields holds only
// present attributes, in record order.
type Layout struct {
	Raw         uint32
	Fields      []Field
	Size        int
	IndexSize   int // bytes per index, 0 for unindexed draws
	WeightCount int
	MorphCount  int
	Bypass      bool
}

// Field returns the descriptor of kind, if present.
func (l *Layout) Field(kind FieldKind) (Field, bool) {
	for _, f := range l.Fields {
		if f.Kind == kind {
			return f, true
		}
	}
	return Field{}, false
}

// Has reports whether kind is present.
func (l *Layout) Has(kind FieldKind) bool {
	_, ok := l.Field(kind)
	return ok
}

func (l *Layout) String() string {
	s := fmt.Sprintf("size=%d", l.Size)
	for _, f := range l.Fields {
		s += fmt.Sprintf(" %s:%dx%s", f.Kind, f.Components, f.Encoding)
	}
	if l.IndexSize != 0 {
		s += fmt.Sprintf(" index:%d", l.IndexSize)
	}
	if l.Bypass {
		s += " bypass"
	}
	return s
}

var (
	// 2-bit type codes shared by weight, uv, normal and position.
	numericEnc = [4]Encoding{EncAbsent, EncInt8, EncInt16, EncFloat32}
	// 3-bit color codes; 1-3 are reserved and read as absent.
	colorEnc = [8]ColorFormat{ColorNone, ColorNone, ColorNone, ColorNone,
		ColorRGB565, ColorRGBA5551, ColorRGBA4444, ColorRGBA8888}
	indexSizes = [4]int{0, 1, 2, 4}

	unsignedScale = [4]float32{0, 0x80, 0x8000, 1}
	signedScale   = [4]float32{0, 0x7f, 0x7fff, 1}
)

// DeriveLayout decodes a VTYPE operand. Subfields, low to high: uv(2),
// color(3), normal(2), position(2), weight(2), index(2), unused(1),
// weightCount(3)+1, unused(1), morphCount(3)+1, unused(2), bypass(1).
func DeriveLayout(operand uint32) Layout {
	uvCode := operand & 3
	colorCode := (operand >> 2) & 7
	normalCode := (operand >> 5) & 3
	posCode := (operand >> 7) & 3
	weightCode := (operand >> 9) & 3
	bypass := (operand>>23)&1 != 0

	l := Layout{
		Raw:         operand & 0xffffff,
		IndexSize:   indexSizes[(operand>>11)&3],
		WeightCount: int((operand>>14)&7) + 1,
		MorphCount:  int((operand>>18)&7) + 1,
		Bypass:      bypass,
	}

	add := func(f Field) {
		f.Offset = l.Size
		l.Fields = append(l.Fields, f)
		l.Size += f.Size()
	}

	if weightCode != 0 {
		add(Field{
			Kind:       FieldWeight,
			Encoding:   numericEnc[weightCode],
			Components: l.WeightCount,
			Scale:      unsignedScale[weightCode],
		})
	}
	if uvCode != 0 {
		scale := unsignedScale[uvCode]
		if bypass {
			scale = 1
		}
		add(Field{Kind: FieldUV, Encoding: numericEnc[uvCode], Components: 2, Scale: scale})
	}
	if cf := colorEnc[colorCode]; cf != ColorNone {
		enc := EncPacked16
		if cf == ColorRGBA8888 {
			enc = EncPacked32
		}
		add(Field{Kind: FieldColor, Encoding: enc, Components: 1, Color: cf, Scale: 1})
	}
	if normalCode != 0 {
		scale := signedScale[normalCode]
		if bypass {
			scale = 1
		}
		add(Field{Kind: FieldNormal, Encoding: numericEnc[normalCode], Components: 3, Scale: scale, Signed: true})
	}
	if posCode != 0 {
		f := Field{Kind: FieldPosition, Encoding: numericEnc[posCode], Components: 3, Scale: signedScale[posCode], Signed: true}
		if bypass {
			f.Scale = 1
			f.UnsignedLast = f.Encoding != EncFloat32
		}
		add(f)
	}
	return l
}
