// Package pack reads the flat PSP containers: the sector-aligned DATA.BIN
// image and the offset-table package files stored inside it.
package pack

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"mh-asset-tools/internal/binfmt"
)

// SectorSize is the DATA.BIN allocation unit.
const SectorSize = 2048

// Entry is one stored file.
type Entry struct {
	Index  int
	Offset int64
	Size   int64
}

// Data is an opened DATA.BIN image. Entry sizes are whole sectors unless
// the table records an exact size.
type Data struct {
	r       io.ReaderAt
	toc     []uint32
	sizeAt  map[int]int // entry index to the table word holding its exact size
	Entries []Entry
}

// OpenData parses the table of contents of a size-byte image.
//
// The table is a list of start sectors, one per entry, ending with the
// sector count of the whole image. (index, exact size) pairs follow it.
func OpenData(r io.ReaderAt, size int64) (*Data, error) {
	head, err := binfmt.ReadRecord(r, 0, 4)
	if err != nil {
		return nil, fmt.Errorf("pack: data header: %w", err)
	}
	tocBytes := int(head.U32()) * SectorSize
	if tocBytes == 0 || int64(tocBytes) > size {
		return nil, fmt.Errorf("pack: %w: table of %d bytes in %d-byte image", binfmt.ErrFormat, tocBytes, size)
	}
	rec, err := binfmt.ReadRecord(r, 0, tocBytes)
	if err != nil {
		return nil, fmt.Errorf("pack: table of contents: %w", err)
	}
	d := &Data{r: r, toc: make([]uint32, tocBytes/4), sizeAt: map[int]int{}}
	for i := range d.toc {
		d.toc[i] = rec.U32()
	}

	end := uint32(size / SectorSize)
	count := -1
	for i, v := range d.toc {
		if v == end {
			count = i
			break
		}
	}
	if count < 0 {
		return nil, fmt.Errorf("pack: %w: no end marker for %d sectors", binfmt.ErrFormat, end)
	}

	d.Entries = make([]Entry, count)
	for i := range d.Entries {
		start, next := d.toc[i], d.toc[i+1]
		if next < start {
			return nil, fmt.Errorf("pack: %w: entry %d starts at sector %d after %d", binfmt.ErrFormat, i, start, next)
		}
		d.Entries[i] = Entry{
			Index:  i,
			Offset: int64(start) * SectorSize,
			Size:   int64(next-start) * SectorSize,
		}
	}
	for j := count + 1; j+1 < len(d.toc); j += 2 {
		idx := int(d.toc[j])
		if idx >= count || idx <= 0 {
			break
		}
		exact := int64(d.toc[j+1])
		if exact > d.Entries[idx].Size {
			return nil, fmt.Errorf("pack: %w: entry %d size %d exceeds %d allocated", binfmt.ErrFormat, idx, exact, d.Entries[idx].Size)
		}
		d.Entries[idx].Size = exact
		d.sizeAt[idx] = j + 1
	}
	return d, nil
}

// ReadDataFile opens the image at path.
func ReadDataFile(path string) (*Data, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("pack: read %s: %w", path, err)
	}
	d, err := OpenData(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return d, nil
}

// ReadEntry returns the bytes of e.
func (d *Data) ReadEntry(e Entry) ([]byte, error) {
	return readEntry(d.r, e)
}

// Extract writes every entry below dir and returns the written paths.
func (d *Data) Extract(dir string) ([]string, error) {
	return extract(d.r, d.Entries, dir)
}

// Replace writes a copy of the image to w with entry index holding data.
// Later entries shift by whole sectors and an exact size, when the table
// has one for index, is updated.
func (d *Data) Replace(w io.Writer, index int, data []byte) error {
	if index < 0 || index >= len(d.Entries) {
		return fmt.Errorf("pack: entry %d out of range (%d entries)", index, len(d.Entries))
	}
	old := d.toc[index+1] - d.toc[index]
	blocks := uint32((len(data) + SectorSize - 1) / SectorSize)

	toc := append([]uint32(nil), d.toc...)
	for i := index + 1; i <= len(d.Entries); i++ {
		toc[i] = toc[i] + blocks - old
	}
	if at, ok := d.sizeAt[index]; ok {
		toc[at] = uint32(len(data))
	}
	head := make([]byte, len(toc)*4)
	for i, v := range toc {
		binary.LittleEndian.PutUint32(head[i*4:], v)
	}
	if _, err := w.Write(head); err != nil {
		return fmt.Errorf("pack: write table: %w", err)
	}

	for i := range d.Entries {
		var body []byte
		if i == index {
			body = make([]byte, int(blocks)*SectorSize)
			copy(body, data)
		} else {
			body = make([]byte, int(d.toc[i+1]-d.toc[i])*SectorSize)
			if _, err := d.r.ReadAt(body, int64(d.toc[i])*SectorSize); err != nil && !errors.Is(err, io.EOF) {
				return fmt.Errorf("pack: read entry %d: %w", i, err)
			}
		}
		if _, err := w.Write(body); err != nil {
			return fmt.Errorf("pack: write entry %d: %w", i, err)
		}
	}
	return nil
}

// Package is an opened package file: an entry count followed by
// (offset, size) pairs.
type Package struct {
	r       io.ReaderAt
	Entries []Entry
}

// OpenPackage parses the offset table of r.
func OpenPackage(r io.ReaderAt) (*Package, error) {
	head, err := binfmt.ReadRecord(r, 0, 4)
	if err != nil {
		return nil, fmt.Errorf("pack: package header: %w", err)
	}
	count := int(head.U32())
	rec, err := binfmt.ReadRecord(r, 4, count*8)
	if err != nil {
		return nil, fmt.Errorf("pack: package table: %w", err)
	}
	p := &Package{r: r, Entries: make([]Entry, count)}
	for i := range p.Entries {
		p.Entries[i] = Entry{Index: i, Offset: int64(rec.U32()), Size: int64(rec.U32())}
	}
	return p, nil
}

// ReadPackageFile opens the package at path.
func ReadPackageFile(path string) (*Package, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("pack: read %s: %w", path, err)
	}
	p, err := OpenPackage(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// ReadEntry returns the bytes of e.
func (p *Package) ReadEntry(e Entry) ([]byte, error) {
	return readEntry(p.r, e)
}

// Extract writes every entry below dir and returns the written paths.
func (p *Package) Extract(dir string) ([]string, error) {
	return extract(p.r, p.Entries, dir)
}

func readEntry(r io.ReaderAt, e Entry) ([]byte, error) {
	buf := make([]byte, e.Size)
	n, err := r.ReadAt(buf, e.Offset)
	if n == len(buf) {
		return buf, nil
	}
	if err == nil || errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("pack: %w: entry %d needs %d bytes at 0x%x, %d available", binfmt.ErrFormat, e.Index, e.Size, e.Offset, n)
	}
	return nil, fmt.Errorf("pack: read entry %d: %w", e.Index, err)
}

// extract names each file by its index and, when the contents are
// recognised, the matching extension.
func extract(r io.ReaderAt, entries []Entry, dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("pack: create dir: %w", err)
	}
	var written []string
	for _, e := range entries {
		data, err := readEntry(r, e)
		if err != nil {
			return written, err
		}
		name := fmt.Sprintf("%04d", e.Index)
		if ext := Sniff(data); ext != "" {
			name += "." + ext
		}
		dst := filepath.Join(dir, name)
		if err := os.WriteFile(dst, data, 0o644); err != nil {
			return written, fmt.Errorf("pack: write %s: %w", dst, err)
		}
		written = append(written, dst)
	}
	return written, nil
}

var signatures = []struct {
	magic string
	ext   string
}{
	{".TMH0.14", "tmh"},
	{"pmo\x00", "pmo"},
	{"MOD\x00", "mod"},
	{"TEX\x00", "tex"},
	{"ARC\x00", "arc"},
	{"ARCC", "arc"},
}

// Sniff returns the file extension matching the leading magic of data, or
// "" when it is not recognised.
func Sniff(data []byte) string {
	for _, s := range signatures {
		if bytes.HasPrefix(data, []byte(s.magic)) {
			return s.ext
		}
	}
	return ""
}
