// Package tmh reads PSP texture packages. A package is a list of images,
// each stored in the GE's swizzled block order with an optional palette.
package tmh

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"image/color"
	"os"

	"mh-asset-tools/internal/binfmt"
	"mh-asset-tools/internal/logging"
	"mh-asset-tools/internal/texture"
)

const (
	magic      = ".TMH0.14"
	headerSize = 16
)

// ErrUnsupportedMode reports a pixel mode that is recognised but not decoded.
var ErrUnsupportedMode = errors.New("tmh: unsupported pixel mode")

// Mode is a GE texture pixel storage mode.
type Mode uint32

const (
	ModeRGB565 Mode = iota
	ModeRGBA5551
	ModeRGBA4444
	ModeRGBA8888
	ModeIndex4
	ModeIndex8
	ModeIndex16
	ModeIndex32
	ModeDXT1
	ModeDXT3
	ModeDXT5
)

var modeNames = [...]string{
	"rgb565", "rgba5551", "rgba4444", "rgba8888",
	"index4", "index8", "index16", "index32",
	"dxt1", "dxt3", "dxt5",
}

func (m Mode) String() string {
	if int(m) < len(modeNames) {
		return modeNames[m]
	}
	return fmt.Sprintf("mode(%d)", uint32(m))
}

// Indexed reports whether pixels are palette indices.
func (m Mode) Indexed() bool {
	return m >= ModeIndex4 && m <= ModeIndex32
}

// block returns the swizzle block size in pixels. A block is 16 bytes by
// 8 rows for the plain modes and one 4x4 cell for the compressed ones.
func (m Mode) block() (w, h int) {
	w = [...]int{8, 8, 8, 4, 32, 16, 8, 4, 4, 4, 4}[m]
	if m >= ModeDXT1 {
		return w, 4
	}
	return w, 8
}

// Palette is the stored color lookup table of an indexed image.
type Palette struct {
	Mode Mode
	Data []byte
}

// Image is one decoded entry, upright.
type Image struct {
	Mode       Mode
	HasPalette bool
	Palette    Mode
	Width      int
	Height     int
	Image      *image.NRGBA
}

// File is a decoded texture package.
type File struct {
	Images []Image
}

// ReadFile reads and decodes a texture package.
func ReadFile(path string) (*File, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("tmh: read %s: %w", path, err)
	}
	f, err := Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Decode parses a whole package held in data.
func Decode(data []byte) (*File, error) {
	r := binfmt.NewReader(data)
	if m := r.Bytes(len(magic)); !bytes.Equal(m, []byte(magic)) {
		return nil, fmt.Errorf("tmh: %w: magic %q", binfmt.ErrFormat, m)
	}
	count := int(r.U32())
	r.Skip(4)
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("tmh: header: %w", err)
	}

	f := &File{}
	for i := 0; i < count; i++ {
		img, err := readImage(r)
		if err != nil {
			return nil, fmt.Errorf("tmh: image %d: %w", i, err)
		}
		logging.Logger().Debug("tmh: image", "index", i, "mode", img.Mode.String(),
			"width", img.Width, "height", img.Height, "palette", img.HasPalette)
		f.Images = append(f.Images, img)
	}
	return f, nil
}

// readImage reads one image header, its pixel block and optional palette.
func readImage(r *binfmt.Reader) (Image, error) {
	var img Image
	r.Skip(12)
	img.HasPalette = r.U32() == 1

	size := int(r.U32())
	r.Skip(4)
	img.Mode = Mode(r.U32())
	img.Width = int(r.U16())
	img.Height = int(r.U16())
	if err := r.Err(); err != nil {
		return img, err
	}
	if size < headerSize {
		return img, fmt.Errorf("%w: pixel block size %d", binfmt.ErrFormat, size)
	}
	pixels := r.Bytes(size - headerSize)

	var pal *Palette
	if img.HasPalette {
		csize := int(r.U32())
		r.Skip(4)
		img.Palette = Mode(r.U32())
		r.Skip(4)
		if err := r.Err(); err != nil {
			return img, err
		}
		if csize < headerSize {
			return img, fmt.Errorf("%w: palette block size %d", binfmt.ErrFormat, csize)
		}
		pal = &Palette{Mode: img.Palette, Data: r.Bytes(csize - headerSize)}
	}
	if err := r.Err(); err != nil {
		return img, err
	}

	nrgba, err := DecodePixels(pixels, img.Mode, img.Width, img.Height, pal)
	if err != nil {
		return img, err
	}
	img.Image = nrgba
	return img, nil
}

// DecodePixels turns one stored pixel block into an upright image. pal is
// required for indexed modes and ignored otherwise.
func DecodePixels(data []byte, mode Mode, width, height int, pal *Palette) (*image.NRGBA, error) {
	if width == 0 || height == 0 {
		return nil, fmt.Errorf("%w: size %dx%d", binfmt.ErrFormat, width, height)
	}
	var px []color.NRGBA
	switch {
	case mode == ModeDXT3 || mode == ModeDXT5:
		return nil, fmt.Errorf("%w %s", ErrUnsupportedMode, mode)
	case mode == ModeDXT1:
		px = decodeDXT1(data)
	case mode.Indexed():
		if pal == nil {
			return nil, fmt.Errorf("%w: %s image without a palette", binfmt.ErrFormat, mode)
		}
		if pal.Mode > ModeRGBA8888 {
			return nil, fmt.Errorf("%w: palette mode %s", binfmt.ErrFormat, pal.Mode)
		}
		colors := decodeColors(pal.Data, pal.Mode)
		idx := decodeIndices(data, mode)
		px = make([]color.NRGBA, len(idx))
		for i, v := range idx {
			if int(v) >= len(colors) {
				return nil, fmt.Errorf("%w: index %d outside %d-entry palette", binfmt.ErrFormat, v, len(colors))
			}
			px[i] = colors[v]
		}
	case mode <= ModeRGBA8888:
		px = decodeColors(data, mode)
	default:
		return nil, fmt.Errorf("%w: pixel mode %d", binfmt.ErrFormat, uint32(mode))
	}

	img, err := deblock(px, mode, width, height)
	if err != nil {
		return nil, err
	}
	return texture.FlipVertical(img), nil
}

// deblock places the block-ordered pixels. The stored buffer is padded to
// whole blocks in both directions.
func deblock(px []color.NRGBA, mode Mode, width, height int) (*image.NRGBA, error) {
	bw, bh := mode.block()
	stride := (width + bw - 1) / bw * bw
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			off := bw*bh*(x/bw) + stride*bh*(y/bh) + bw*(y%bh) + x%bw
			if off >= len(px) {
				return nil, fmt.Errorf("%w: %dx%d %s needs pixel %d, have %d", binfmt.ErrFormat, width, height, mode, off, len(px))
			}
			img.SetNRGBA(x, y, px[off])
		}
	}
	return img, nil
}

// decodeColors decodes direct-color pixels. Red is in the low bits.
func decodeColors(data []byte, mode Mode) []color.NRGBA {
	le := binary.LittleEndian
	var out []color.NRGBA
	switch mode {
	case ModeRGB565:
		for i := 0; i+2 <= len(data); i += 2 {
			v := uint32(le.Uint16(data[i:]))
			out = append(out, color.NRGBA{R: expand(v, 5), G: expand(v>>5, 6), B: expand(v>>11, 5), A: 255})
		}
	case ModeRGBA5551:
		for i := 0; i+2 <= len(data); i += 2 {
			v := uint32(le.Uint16(data[i:]))
			out = append(out, color.NRGBA{R: expand(v, 5), G: expand(v>>5, 5), B: expand(v>>10, 5), A: uint8(v>>15) * 255})
		}
	case ModeRGBA4444:
		for i := 0; i+2 <= len(data); i += 2 {
			v := uint32(le.Uint16(data[i:]))
			out = append(out, color.NRGBA{R: expand(v, 4), G: expand(v>>4, 4), B: expand(v>>8, 4), A: expand(v>>12, 4)})
		}
	case ModeRGBA8888:
		for i := 0; i+4 <= len(data); i += 4 {
			out = append(out, color.NRGBA{R: data[i], G: data[i+1], B: data[i+2], A: data[i+3]})
		}
	}
	return out
}

// decodeIndices unpacks palette indices; 4-bit indices are low nibble first.
func decodeIndices(data []byte, mode Mode) []uint32 {
	le := binary.LittleEndian
	var out []uint32
	switch mode {
	case ModeIndex4:
		out = make([]uint32, 0, len(data)*2)
		for _, b := range data {
			out = append(out, uint32(b&15), uint32(b>>4))
		}
	case ModeIndex8:
		out = make([]uint32, len(data))
		for i, b := range data {
			out[i] = uint32(b)
		}
	case ModeIndex16:
		for i := 0; i+2 <= len(data); i += 2 {
			out = append(out, uint32(le.Uint16(data[i:])))
		}
	case ModeIndex32:
		for i := 0; i+4 <= len(data); i += 4 {
			out = append(out, le.Uint32(data[i:]))
		}
	}
	return out
}

// decodeDXT1 decodes 8-byte cells (four index rows, then two RGB565 end
// points with red in the high bits) into 16 pixels each, cell by cell.
func decodeDXT1(data []byte) []color.NRGBA {
	le := binary.LittleEndian
	out := make([]color.NRGBA, 0, len(data)/8*16)
	for b := 0; b+8 <= len(data); b += 8 {
		c0, c1 := le.Uint16(data[b+4:]), le.Uint16(data[b+6:])
		var p [4]color.NRGBA
		p[0], p[1] = dxtColor(c0), dxtColor(c1)
		if c0 > c1 {
			p[2] = mix(p[0], p[1], 2, 1)
			p[3] = mix(p[0], p[1], 1, 2)
		} else {
			p[2] = mix(p[0], p[1], 1, 1)
			p[3] = color.NRGBA{A: 255}
		}
		for y := 0; y < 4; y++ {
			row := data[b+y]
			for x := 0; x < 4; x++ {
				out = append(out, p[row>>(2*x)&3])
			}
		}
	}
	return out
}

func dxtColor(v uint16) color.NRGBA {
	c := uint32(v)
	return color.NRGBA{R: expand(c>>11, 5), G: expand(c>>5, 6), B: expand(c, 5), A: 255}
}

// mix returns (wa*a + wb*b) / (wa+wb) per channel, rounded down.
func mix(a, b color.NRGBA, wa, wb int) color.NRGBA {
	f := func(x, y uint8) uint8 { return uint8((wa*int(x) + wb*int(y)) / (wa + wb)) }
	return color.NRGBA{R: f(a.R, b.R), G: f(a.G, b.G), B: f(a.B, b.B), A: 255}
}

// expand widens the low bits of v to 8 bits, rounding to nearest.
func expand(v uint32, bits uint) uint8 {
	limit := uint32(1)<<bits - 1
	return uint8(((v&limit)*255 + limit/2) / limit)
}
