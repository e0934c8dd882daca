package tex

import (
	"encoding/binary"
	"errors"
	"image/color"
	"testing"

	"mh-asset-tools/internal/binfmt"
)

func header(width, height, mips, textures int, ct ColorType, cube bool) []byte {
	le := binary.LittleEndian
	buf := make([]byte, headerSize)
	copy(buf, magic)
	w0 := uint32(constant) | 2<<28
	if cube {
		w0 = constant | cubeFlag<<28
	}
	le.PutUint32(buf[4:], w0)
	le.PutUint32(buf[8:], uint32(mips)|uint32(width)<<6|uint32(height)<<19)
	le.PutUint32(buf[12:], uint32(textures)|uint32(ct)<<8)
	if cube {
		buf = append(buf, make([]byte, cubeExtra)...)
	}
	return buf
}

func putOffsets(buf []byte, offsets ...uint32) []byte {
	for _, o := range offsets {
		buf = binary.LittleEndian.AppendUint32(buf, o)
	}
	return buf
}

func TestUntile(t *testing.T) {
	tests := []struct {
		i, width int
		x, y     int
	}{
		{0, 16, 0, 0},
		{1, 16, 1, 0},
		{2, 16, 0, 1},
		{3, 16, 1, 1},
		{4, 16, 2, 0},
		{8, 16, 0, 2},
		{127, 16, 15, 7},
		{128, 32, 16, 0},
		{256, 32, 0, 8},
		{128, 16, 0, 8},
	}
	for _, tt := range tests {
		x, y := Untile(tt.i, tt.width)
		if x != tt.x || y != tt.y {
			t.Errorf("Untile(%d, %d) = (%d, %d), want (%d, %d)", tt.i, tt.width, x, y, tt.x, tt.y)
		}
	}
}

func TestPixelFormats(t *testing.T) {
	tests := []struct {
		ct   ColorType
		data []byte
		i    int
		want color.NRGBA
	}{
		{RGBA4444, []byte{0x34, 0x12}, 0, color.NRGBA{17, 34, 51, 68}},
		{RGBA5551, le16(31<<11 | 16<<1 | 1), 0, color.NRGBA{255, 0, 132, 255}},
		{RGB565, le16(63<<5 | 31), 0, color.NRGBA{0, 255, 255, 255}},
		{RGBA8888, []byte{10, 20, 30, 40}, 0, color.NRGBA{40, 30, 20, 10}},
		{LA88, []byte{7, 200}, 0, color.NRGBA{200, 200, 200, 7}},
		{L8, []byte{99}, 0, color.NRGBA{99, 99, 99, 255}},
		{L4, []byte{0x5a}, 0, color.NRGBA{170, 170, 170, 255}},
		{L4Alt, []byte{0x5a}, 1, color.NRGBA{85, 85, 85, 255}},
		{RGB888, []byte{1, 2, 3}, 0, color.NRGBA{3, 2, 1, 255}},
	}
	for _, tt := range tests {
		t.Run(tt.ct.String(), func(t *testing.T) {
			if got := pixel(tt.data, tt.i, tt.ct); got != tt.want {
				t.Errorf("pixel() = %v, want %v", got, tt.want)
			}
		})
	}
}

func le16(v uint16) []byte {
	return binary.LittleEndian.AppendUint16(nil, v)
}

func TestDecodeTiledRGBA(t *testing.T) {
	const w, h = 16, 8
	data := putOffsets(header(w, h, 1, 1, RGBA8888, false), 0)
	for i := 0; i < w*h; i++ {
		data = append(data, 255, 0, 0, byte(i))
	}

	tx, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if tx.Width != w || tx.Height != h || tx.ColorType != RGBA8888 || len(tx.Faces) != 1 {
		t.Fatalf("header = %+v with %d faces", tx.Header, len(tx.Faces))
	}
	img := tx.Faces[0]
	for i := 0; i < w*h; i++ {
		x, y := Untile(i, w)
		if got := img.NRGBAAt(x, y); got.R != uint8(i) || got.A != 255 {
			t.Errorf("pixel %d at (%d,%d) = %v, want R %d", i, x, y, got, i)
		}
	}
}

func TestDecodeCubeMips(t *testing.T) {
	const w, h, faceStride = 16, 8, 160
	var offsets []uint32
	for f := uint32(0); f < 6; f++ {
		offsets = append(offsets, f*faceStride, f*faceStride+w*h)
	}
	data := putOffsets(header(w, h, 2, 6, L8, true), offsets...)
	for f := 0; f < 6; f++ {
		face := make([]byte, faceStride)
		for i := 0; i < w*h; i++ {
			face[i] = byte(f * 10)
		}
		data = append(data, face...)
	}

	tx, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if !tx.Cube || len(tx.Faces) != 6 {
		t.Fatalf("got cube %v with %d faces, want 6", tx.Cube, len(tx.Faces))
	}
	for f, img := range tx.Faces {
		if got := img.NRGBAAt(5, 5).R; got != uint8(f*10) {
			t.Errorf("face %d luminance = %d, want %d", f, got, f*10)
		}
	}
}

func TestDecodeETC1(t *testing.T) {
	data := putOffsets(header(8, 8, 1, 1, ETC1, false), 0)
	block := make([]byte, 8)
	binary.LittleEndian.PutUint32(block[4:], 0x88888800)
	for b := 0; b < 4; b++ {
		data = append(data, block...)
	}
	tx, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if got := tx.Faces[0].NRGBAAt(7, 7); got != (color.NRGBA{138, 138, 138, 255}) {
		t.Errorf("pixel = %v, want 138 gray", got)
	}
}

func TestDecodeErrors(t *testing.T) {
	good := putOffsets(header(16, 8, 1, 1, L8, false), 0)
	good = append(good, make([]byte, 128)...)

	badMagic := append([]byte("XET\x00"), good[4:]...)
	badConst := append([]byte(nil), good...)
	badConst[4] = 0xa6
	badType := append([]byte(nil), good...)
	badType[13] = 9

	tests := []struct {
		name string
		data []byte
	}{
		{"magic", badMagic},
		{"constant", badConst},
		{"color type", badType},
		{"short pixels", good[:len(good)-1]},
		{"short header", good[:10]},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decode(tt.data); !errors.Is(err, binfmt.ErrFormat) {
				t.Errorf("Decode() error = %v, want ErrFormat", err)
			}
		})
	}
}
