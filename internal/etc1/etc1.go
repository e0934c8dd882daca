// Package etc1 decodes ETC1 and ETC1A4 block-compressed textures.
//
// Each 4x4 block is 64 bits of color data: a pixel-index word followed by a
// block-info word, both little-endian. The A4 variant prefixes every block
// with 64 bits of 4-bit alpha. Blocks are stored in 8x8 tiles of four
// blocks, tiles in raster order.
package etc1

import (
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"image/color"
)

// ErrShortData reports a pixel buffer smaller than the image needs.
var ErrShortData = errors.New("etc1: short block data")

var modifierTable = [8][4]int{
	{2, 8, -2, -8},
	{5, 17, -5, -17},
	{9, 29, -9, -29},
	{13, 42, -13, -42},
	{18, 60, -18, -60},
	{24, 80, -24, -80},
	{33, 106, -33, -106},
	{47, 183, -47, -183},
}

// Alpha is the 4-bit alpha plane of one block. Pixel i takes nibble i of
// Alpha[0] for i < 8 and nibble i-8 of Alpha[1] otherwise.
type Alpha [2]uint32

// BlockPixels is one decoded block in raster order (index y*4+x).
type BlockPixels [16]color.NRGBA

// DecodeBlock decodes one color block. alpha may be nil for opaque blocks.
func DecodeBlock(info, indices uint32, alpha *Alpha) BlockPixels {
	var bc1, bc2 [3]int
	if info&2 == 0 {
		bc1 = [3]int{expand4(info >> 28), expand4(info >> 20), expand4(info >> 12)}
		bc2 = [3]int{expand4(info >> 24), expand4(info >> 16), expand4(info >> 8)}
	} else {
		for c, shift := range [3]uint32{27, 19, 11} {
			base := int(info>>shift) & 31
			delta := int(info>>(shift-3)) & 7
			if delta > 3 {
				delta -= 8
			}
			bc1[c] = expand5(base)
			bc2[c] = expand5(base + delta)
		}
	}
	tables := [2]int{int(info>>5) & 7, int(info>>2) & 7}
	return decodePixels(bc1, bc2, tables, info&1 != 0, indices, alpha)
}

func decodePixels(bc1, bc2 [3]int, tables [2]int, flip bool, indices uint32, alpha *Alpha) BlockPixels {
	var out BlockPixels
	for i := 0; i < 16; i++ {
		mi := int(indices>>i)&1 + int(indices>>(i+15))&2
		x, y := i/4, i%4

		bc, table := bc2, tables[1]
		if (!flip && x < 2) || (flip && y < 2) {
			bc, table = bc1, tables[0]
		}
		m := modifierTable[table][mi]

		a := uint8(255)
		if alpha != nil {
			a = uint8(alpha[i/8]>>((i%8)*4)&15) * 17
		}
		out[y*4+x] = color.NRGBA{R: clamp(bc[0] + m), G: clamp(bc[1] + m), B: clamp(bc[2] + m), A: a}
	}
	return out
}

func expand4(v uint32) int {
	v &= 15
	return int(v<<4 + v)
}

// expand5 widens a 5-bit channel. Differential bases can leave the 5-bit
// range; the result is clamped after the modifier is applied.
func expand5(v int) int {
	return v<<3 + v>>2
}

func clamp(v int) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

// PlaceBlock returns the top-left pixel of the block-th block in an image
// width pixels wide. width must be at least 2.
func PlaceBlock(block, width int) (x, y int) {
	sub := block % 4
	half := width / 2
	x = (block - sub) % half * 2
	y = (block - sub) / half * 8
	if sub&1 != 0 {
		x += 4
	}
	if sub&2 != 0 {
		y += 4
	}
	return x, y
}

// BlockSize returns the bytes per block for the opaque or A4 variant.
func BlockSize(withAlpha bool) int {
	if withAlpha {
		return 16
	}
	return 8
}

// DataSize returns the byte length of a width x height image.
func DataSize(width, height int, withAlpha bool) int {
	return width * height / 16 * BlockSize(withAlpha)
}

// Decode decodes a whole tiled ETC1 (or ETC1A4 when withAlpha) image.
// Pixels of blocks that fall outside the image are dropped.
func Decode(data []byte, width, height int, withAlpha bool) (*image.NRGBA, error) {
	if width < 4 || height < 4 || width%4 != 0 || height%4 != 0 {
		return nil, fmt.Errorf("etc1: invalid size %dx%d", width, height)
	}
	need := DataSize(width, height, withAlpha)
	if len(data) < need {
		return nil, fmt.Errorf("%w: %dx%d needs %d bytes, have %d", ErrShortData, width, height, need, len(data))
	}

	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	bs := BlockSize(withAlpha)
	blocks := width * height / 16
	for b := 0; b < blocks; b++ {
		off := b * bs
		var alpha *Alpha
		if withAlpha {
			alpha = &Alpha{binary.LittleEndian.Uint32(data[off:]), binary.LittleEndian.Uint32(data[off+4:])}
			off += 8
		}
		indices := binary.LittleEndian.Uint32(data[off:])
		info := binary.LittleEndian.Uint32(data[off+4:])
		px := DecodeBlock(info, indices, alpha)

		bx, by := PlaceBlock(b, width)
		for y := 0; y < 4; y++ {
			if by+y >= height {
				break
			}
			for x := 0; x < 4; x++ {
				if bx+x >= width {
					break
				}
				c := px[y*4+x]
				i := img.PixOffset(bx+x, by+y)
				img.Pix[i] = c.R
				img.Pix[i+1] = c.G
				img.Pix[i+2] = c.B
				img.Pix[i+3] = c.A
			}
		}
	}
	return img, nil
}
