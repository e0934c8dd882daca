package pack

import (
	"bytes"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"mh-asset-tools/internal/binfmt"
)

var (
	modelData   = append([]byte("pmo\x00102\x00"), bytes.Repeat([]byte{1}, 40)...)
	exactData   = bytes.Repeat([]byte("x"), 100)
	textureData = append([]byte(".TMH0.14"), make([]byte, 8)...)
)

// dataImage builds a five-sector image: a one-sector table, then entries
// at sectors 1, 2 and 4. Entry 1 records an exact size.
func dataImage() []byte {
	img := make([]byte, 5*SectorSize)
	for i, v := range []uint32{1, 2, 4, 5, 1, uint32(len(exactData))} {
		binary.LittleEndian.PutUint32(img[i*4:], v)
	}
	copy(img[1*SectorSize:], modelData)
	copy(img[2*SectorSize:], exactData)
	copy(img[4*SectorSize:], textureData)
	return img
}

func openData(t *testing.T, img []byte) *Data {
	t.Helper()
	d, err := OpenData(bytes.NewReader(img), int64(len(img)))
	if err != nil {
		t.Fatalf("OpenData() error = %v", err)
	}
	return d
}

func TestOpenData(t *testing.T) {
	d := openData(t, dataImage())
	want := []Entry{
		{Index: 0, Offset: SectorSize, Size: SectorSize},
		{Index: 1, Offset: 2 * SectorSize, Size: 100},
		{Index: 2, Offset: 4 * SectorSize, Size: SectorSize},
	}
	if len(d.Entries) != len(want) {
		t.Fatalf("got %d entries, want %d", len(d.Entries), len(want))
	}
	for i, e := range want {
		if d.Entries[i] != e {
			t.Errorf("entry %d = %+v, want %+v", i, d.Entries[i], e)
		}
	}
	got, err := d.ReadEntry(d.Entries[1])
	if err != nil {
		t.Fatalf("ReadEntry() error = %v", err)
	}
	if !bytes.Equal(got, exactData) {
		t.Errorf("entry 1 = %q, want %q", got, exactData)
	}
}

func TestDataExtract(t *testing.T) {
	d := openData(t, dataImage())
	dir := t.TempDir()
	written, err := d.Extract(dir)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	var names []string
	for _, p := range written {
		names = append(names, filepath.Base(p))
	}
	if want := []string{"0000.pmo", "0001", "0002.tmh"}; !slices.Equal(names, want) {
		t.Errorf("Extract() wrote %v, want %v", names, want)
	}
	got, err := os.ReadFile(filepath.Join(dir, "0001"))
	if err != nil || !bytes.Equal(got, exactData) {
		t.Errorf("0001 = %q, %v", got, err)
	}
}

func TestDataReplace(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		sectors int64 // image size afterwards
	}{
		{"grow", 5000, 6},
		{"shrink", 10, 4},
		{"same", 2 * SectorSize, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := openData(t, dataImage())
			repl := bytes.Repeat([]byte{0xab}, tt.size)
			var out bytes.Buffer
			if err := d.Replace(&out, 1, repl); err != nil {
				t.Fatalf("Replace() error = %v", err)
			}
			if got := int64(out.Len()); got != tt.sectors*SectorSize {
				t.Fatalf("image is %d bytes, want %d sectors", got, tt.sectors)
			}

			r := openData(t, out.Bytes())
			if len(r.Entries) != 3 {
				t.Fatalf("got %d entries, want 3", len(r.Entries))
			}
			if got := r.Entries[1].Size; got != int64(tt.size) {
				t.Errorf("entry 1 size = %d, want %d", got, tt.size)
			}
			for i, want := range [][]byte{modelData, repl, textureData} {
				got, err := r.ReadEntry(r.Entries[i])
				if err != nil {
					t.Fatalf("ReadEntry(%d) error = %v", i, err)
				}
				if !bytes.HasPrefix(got, want) {
					t.Errorf("entry %d does not hold the expected data", i)
				}
			}
		})
	}
}

func TestDataReplaceRange(t *testing.T) {
	d := openData(t, dataImage())
	if err := d.Replace(&bytes.Buffer{}, 3, nil); err == nil {
		t.Error("Replace() of entry 3 succeeded")
	}
}

func TestOpenDataErrors(t *testing.T) {
	noEnd := dataImage()
	binary.LittleEndian.PutUint32(noEnd[12:], 9)
	backwards := dataImage()
	binary.LittleEndian.PutUint32(backwards[4:], 0)
	oversize := dataImage()
	binary.LittleEndian.PutUint32(oversize[20:], 3*SectorSize)

	for name, img := range map[string][]byte{
		"empty table": make([]byte, SectorSize),
		"no end":      noEnd,
		"backwards":   backwards,
		"exact size":  oversize,
		"short":       dataImage()[:2],
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := OpenData(bytes.NewReader(img), int64(len(img))); !errors.Is(err, binfmt.ErrFormat) {
				t.Errorf("OpenData() error = %v, want ErrFormat", err)
			}
		})
	}
}

func packageFile() []byte {
	var b []byte
	for _, v := range []uint32{2, 20, 3, 23, 2} {
		b = binary.LittleEndian.AppendUint32(b, v)
	}
	return append(b, "abcde"...)
}

func TestPackage(t *testing.T) {
	p, err := OpenPackage(bytes.NewReader(packageFile()))
	if err != nil {
		t.Fatalf("OpenPackage() error = %v", err)
	}
	for i, want := range []string{"abc", "de"} {
		got, err := p.ReadEntry(p.Entries[i])
		if err != nil {
			t.Fatalf("ReadEntry(%d) error = %v", i, err)
		}
		if string(got) != want {
			t.Errorf("entry %d = %q, want %q", i, got, want)
		}
	}

	written, err := p.Extract(t.TempDir())
	if err != nil || len(written) != 2 {
		t.Errorf("Extract() = %v, %v", written, err)
	}
}

func TestPackageErrors(t *testing.T) {
	if _, err := OpenPackage(bytes.NewReader(packageFile()[:12])); !errors.Is(err, binfmt.ErrFormat) {
		t.Errorf("OpenPackage() of cut table error = %v, want ErrFormat", err)
	}
	p, err := OpenPackage(bytes.NewReader(packageFile()))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := p.ReadEntry(Entry{Offset: 22, Size: 10}); !errors.Is(err, binfmt.ErrFormat) {
		t.Errorf("ReadEntry() past the end error = %v, want ErrFormat", err)
	}
}

func TestSniff(t *testing.T) {
	tests := []struct {
		data, want string
	}{
		{"pmo\x00102\x00", "pmo"},
		{".TMH0.14\x01", "tmh"},
		{"MOD\x00\xe6\x00", "mod"},
		{"TEX\x00", "tex"},
		{"ARC\x00\x11\x00", "arc"},
		{"ARCC\x11\x00", "arc"},
		{"pmo", ""},
		{"\x00\x00\x00\x00", ""},
	}
	for _, tt := range tests {
		if got := Sniff([]byte(tt.data)); got != tt.want {
			t.Errorf("Sniff(%q) = %q, want %q", tt.data, got, tt.want)
		}
	}
}
