// Package tex reads 3DS texture containers into images.
package tex

import (
	"encoding/binary"
	"fmt"
	"image"
	"image/color"
	"os"

	"mh-asset-tools/internal/binfmt"
	"mh-asset-tools/internal/etc1"
	"mh-asset-tools/internal/logging"
)

// ColorType is the pixel format code from the header.
type ColorType uint8

const (
	RGBA4444 ColorType = 1
	RGBA5551 ColorType = 2
	RGBA8888 ColorType = 3
	RGB565   ColorType = 4
	L8       ColorType = 5
	LA88     ColorType = 7
	ETC1     ColorType = 11
	ETC1A4   ColorType = 12
	L4       ColorType = 14
	L4Alt    ColorType = 15
	L8Alt    ColorType = 16
	RGB888   ColorType = 17
)

var colorTypeNames = map[ColorType]string{
	RGBA4444: "rgba4444",
	RGBA5551: "rgba5551",
	RGBA8888: "rgba8888",
	RGB565:   "rgb565",
	L8:       "l8",
	LA88:     "la88",
	ETC1:     "etc1",
	ETC1A4:   "etc1a4",
	L4:       "l4",
	L4Alt:    "l4",
	L8Alt:    "l8",
	RGB888:   "rgb888",
}

func (c ColorType) String() string {
	if n, ok := colorTypeNames[c]; ok {
		return n
	}
	return fmt.Sprintf("color(%d)", uint8(c))
}

// bitsPerPixel returns the stored size of one pixel, 0 for unknown types.
func (c ColorType) bitsPerPixel() int {
	switch c {
	case L4, L4Alt, ETC1:
		return 4
	case L8, L8Alt, ETC1A4:
		return 8
	case RGBA4444, RGBA5551, RGB565, LA88:
		return 16
	case RGB888:
		return 24
	case RGBA8888:
		return 32
	}
	return 0
}

const (
	magic      = "TEX\x00"
	constant   = 0xa5
	cubeFlag   = 6
	cubeExtra  = 0x6c
	headerSize = 16
	tileWidth  = 16
	tileHeight = 8
)

// Header is the decoded fixed header. Height is the height of one face.
type Header struct {
	Width     int
	Height    int
	Mips      int
	Textures  int
	ColorType ColorType
	Cube      bool
}

// FaceCount returns the number of images stored at the top mip level.
func (h Header) FaceCount() int {
	if h.Cube {
		return 6
	}
	return 1
}

// FaceSize returns the stored byte size of one top-level face.
func (h Header) FaceSize() int {
	return h.Width * h.Height * h.ColorType.bitsPerPixel() / 8
}

// Texture is a decoded container: the top mip of every face.
type Texture struct {
	Header
	Faces []*image.NRGBA
}

// ReadFile reads and decodes a texture file.
func ReadFile(path string) (*Texture, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("tex: read %s: %w", path, err)
	}
	t, err := Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// ParseHeader validates the fixed header and returns it along with the
// offset table and the position pixel data starts at.
func ParseHeader(data []byte) (Header, []uint32, int, error) {
	r := binfmt.NewReader(data)
	var h Header
	if m := string(r.Bytes(4)); m != magic {
		return h, nil, 0, fmt.Errorf("tex: %w: magic %q", binfmt.ErrFormat, m)
	}
	w0, w1, w2 := r.U32(), r.U32(), r.U32()
	if err := r.Err(); err != nil {
		return h, nil, 0, fmt.Errorf("tex: header: %w", err)
	}
	if w0&0xfff != constant {
		return h, nil, 0, fmt.Errorf("tex: %w: header constant 0x%03x", binfmt.ErrFormat, w0&0xfff)
	}
	h = Header{
		Cube:      (w0>>28)&0xf == cubeFlag,
		Mips:      int(w1 & 0x3f),
		Width:     int((w1 >> 6) & 0x1fff),
		Height:    int((w1 >> 19) & 0x1fff),
		Textures:  int(w2 & 0xff),
		ColorType: ColorType((w2 >> 8) & 0xff),
	}
	if h.ColorType.bitsPerPixel() == 0 {
		return h, nil, 0, fmt.Errorf("tex: %w: color type %d", binfmt.ErrFormat, uint8(h.ColorType))
	}
	if h.Width == 0 || h.Height == 0 || h.Mips == 0 || h.Textures == 0 {
		return h, nil, 0, fmt.Errorf("tex: %w: %dx%d with %d mips, %d textures", binfmt.ErrFormat, h.Width, h.Height, h.Mips, h.Textures)
	}

	if h.Cube {
		r.Skip(cubeExtra)
	}
	offsets := make([]uint32, h.Mips*h.Textures)
	for i := range offsets {
		offsets[i] = r.U32()
	}
	if err := r.Err(); err != nil {
		return h, nil, 0, fmt.Errorf("tex: offset table: %w", err)
	}
	return h, offsets, r.Offset(), nil
}

// Decode parses a whole texture container held in data.
func Decode(data []byte) (*Texture, error) {
	h, offsets, start, err := ParseHeader(data)
	if err != nil {
		return nil, err
	}
	logging.Logger().Debug("tex: header", "width", h.Width, "height", h.Height,
		"mips", h.Mips, "color", h.ColorType.String(), "cube", h.Cube)

	t := &Texture{Header: h}
	size := h.FaceSize()
	for face := 0; face < h.FaceCount(); face++ {
		off := start + face*size
		if h.Mips > 1 && face*h.Mips < len(offsets) {
			off = start + int(offsets[face*h.Mips])
		}
		if off+size > len(data) {
			return nil, fmt.Errorf("tex: %w: face %d needs %d bytes at 0x%x, file is %d bytes",
				binfmt.ErrFormat, face, size, off, len(data))
		}
		img, err := DecodePixels(data[off:off+size], h.Width, h.Height, h.ColorType)
		if err != nil {
			return nil, fmt.Errorf("tex: face %d: %w", face, err)
		}
		t.Faces = append(t.Faces, img)
	}
	return t, nil
}

// DecodePixels decodes one face of stored pixel data.
func DecodePixels(data []byte, width, height int, ct ColorType) (*image.NRGBA, error) {
	switch ct {
	case ETC1:
		return etc1.Decode(data, width, height, false)
	case ETC1A4:
		return etc1.Decode(data, width, height, true)
	}
	bpp := ct.bitsPerPixel()
	if bpp == 0 {
		return nil, fmt.Errorf("%w: color type %d", binfmt.ErrFormat, uint8(ct))
	}
	n := width * height
	if len(data) < n*bpp/8 {
		return nil, fmt.Errorf("%w: %dx%d %s needs %d bytes, have %d", binfmt.ErrFormat, width, height, ct, n*bpp/8, len(data))
	}

	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for i := 0; i < n; i++ {
		x, y := Untile(i, width)
		if x >= width || y >= height {
			continue
		}
		img.SetNRGBA(x, y, pixel(data, i, ct))
	}
	return img, nil
}

// pixel decodes the i-th stored pixel.
func pixel(data []byte, i int, ct ColorType) color.NRGBA {
	le := binary.LittleEndian
	switch ct {
	case RGBA4444:
		v := le.Uint16(data[i*2:])
		return color.NRGBA{R: n4(v >> 12), G: n4(v >> 8), B: n4(v >> 4), A: n4(v)}
	case RGBA5551:
		v := le.Uint16(data[i*2:])
		return color.NRGBA{R: n5(v >> 11), G: n5(v >> 6), B: n5(v >> 1), A: uint8(v&1) * 255}
	case RGBA8888:
		p := data[i*4:]
		return color.NRGBA{R: p[3], G: p[2], B: p[1], A: p[0]}
	case RGB565:
		v := le.Uint16(data[i*2:])
		return color.NRGBA{R: n5(v >> 11), G: scale(uint32(v>>5)&63, 63), B: n5(v), A: 255}
	case L8, L8Alt:
		l := data[i]
		return color.NRGBA{R: l, G: l, B: l, A: 255}
	case LA88:
		p := data[i*2:]
		return color.NRGBA{R: p[1], G: p[1], B: p[1], A: p[0]}
	case L4, L4Alt:
		l := n4(uint16(data[i/2] >> (uint(i%2) * 4)))
		return color.NRGBA{R: l, G: l, B: l, A: 255}
	case RGB888:
		p := data[i*3:]
		return color.NRGBA{R: p[2], G: p[1], B: p[0], A: 255}
	}
	return color.NRGBA{}
}

func n4(v uint16) uint8 { return uint8(v&15) * 17 }
func n5(v uint16) uint8 { return scale(uint32(v&31), 31) }

// scale widens a field whose largest value is limit to 8 bits, rounding
// to nearest.
func scale(v, limit uint32) uint8 {
	return uint8((v*255 + limit/2) / limit)
}

// Untile maps the i-th stored pixel to its image position. Pixels are
// Morton-ordered within 16x8 tiles and tiles run in raster order.
func Untile(i, width int) (x, y int) {
	off := i % (tileWidth * tileHeight)
	tile := i / (tileWidth * tileHeight)
	x, y = compact(off), compact(off>>1)
	if across := width / tileWidth; across > 0 {
		x += tileWidth * (tile % across)
		y += tileHeight * (tile / across)
	}
	return x, y
}

// compact gathers the even bits of n.
func compact(n int) int {
	n &= 0x55555555
	n = (n ^ n>>1) & 0x33333333
	n = (n ^ n>>2) & 0x0f0f0f0f
	n = (n ^ n>>4) & 0x00ff00ff
	return (n ^ n>>8) & 0x0000ffff
}
