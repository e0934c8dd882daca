// Package arc reads and writes 3DS resource archives: a table of contents
// followed by zlib-compressed payloads. Encrypted (ARCC) archives are read
// with a Blowfish key.
package arc

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/crypto/blowfish"

	"mh-asset-tools/internal/binfmt"
)

const (
	magic          = "ARC\x00"
	magicEncrypted = "ARCC"
	headerSize = 12
	entrySize  = 0x50
	nameSize   = 64

	// Version4U and VersionX differ only in how many size bits are used.
	Version4U = 0x13
	VersionX  = 0x11

	// sizeFlag is set on the size field of every entry Create writes.
	sizeFlag = 0x40000000
)

// Entry is one table-of-contents record.
type Entry struct {
	Name           string // backslash separated, no extension
	TypeCode       uint32
	CompressedSize uint32
	Size           uint32
	Offset         uint32
}

// Type returns the resource class name, or "" when the code is unknown.
func (e Entry) Type() string {
	return byCode[e.TypeCode].name
}

// Ext returns the extension for the entry type, or the code in hex.
func (e Entry) Ext() string {
	if ft, ok := byCode[e.TypeCode]; ok {
		return ft.ext
	}
	return fmt.Sprintf("%08X", e.TypeCode)
}

// Path returns a slash separated relative path including the extension.
func (e Entry) Path() string {
	return strings.ReplaceAll(e.Name, "\\", "/") + "." + e.Ext()
}

// ErrKeyRequired is returned when an encrypted archive is opened without a key.
var ErrKeyRequired = errors.New("arc: encrypted archive needs a key")

// Archive is an opened archive.
type Archive struct {
	r         io.ReaderAt
	Version   uint16
	Encrypted bool
	Entries   []Entry

	reserved uint32
	toc      []byte // plaintext table of contents
	cipher   *blowfish.Cipher
}

// Open parses the header and table of contents of an unencrypted archive.
func Open(r io.ReaderAt) (*Archive, error) {
	return OpenKey(r, nil)
}

// OpenKey parses r, decrypting it with key when it is an ARCC archive.
// key is ignored for plain archives.
func OpenKey(r io.ReaderAt, key []byte) (*Archive, error) {
	h, err := binfmt.ReadRecord(r, 0, headerSize)
	if err != nil {
		return nil, fmt.Errorf("arc: header: %w", err)
	}
	a := &Archive{r: r}
	switch m := string(h.Bytes(4)); m {
	case magic:
	case magicEncrypted:
		a.Encrypted = true
	default:
		return nil, fmt.Errorf("arc: %w: magic %q", binfmt.ErrFormat, m)
	}
	a.Version = h.U16()
	if a.Version != Version4U && a.Version != VersionX {
		return nil, fmt.Errorf("arc: %w: version 0x%x", binfmt.ErrFormat, a.Version)
	}
	if a.Encrypted && a.Version != VersionX {
		return nil, fmt.Errorf("arc: %w: encrypted archive version 0x%x", binfmt.ErrFormat, a.Version)
	}
	count := int(h.U16())
	a.reserved = h.U32()

	if a.Encrypted {
		if len(key) == 0 {
			return nil, ErrKeyRequired
		}
		if a.cipher, err = blowfish.NewCipher(key); err != nil {
			return nil, fmt.Errorf("arc: key: %w", err)
		}
	}

	rec, err := binfmt.ReadRecord(r, headerSize, count*entrySize)
	if err != nil {
		return nil, fmt.Errorf("arc: table of contents: %w", err)
	}
	a.toc = rec.Bytes(count * entrySize)
	if a.cipher != nil {
		decryptBlocks(a.cipher, a.toc)
	}
	toc := binfmt.NewReader(a.toc)
	mask := uint32(0x1fffffff)
	if a.Version == Version4U {
		mask = 0x0fffffff
	}
	a.Entries = make([]Entry, count)
	for i := range a.Entries {
		a.Entries[i] = Entry{
			Name:           toc.Str(nameSize),
			TypeCode:       toc.U32(),
			CompressedSize: toc.U32(),
			Size:           toc.U32() & mask,
			Offset:         toc.U32(),
		}
	}
	return a, toc.Err()
}

// ReadFile opens the archive at path. The whole file is held in memory.
func ReadFile(name string) (*Archive, error) {
	return ReadFileKey(name, nil)
}

// ReadFileKey is ReadFile for archives that may be encrypted.
func ReadFileKey(name string, key []byte) (*Archive, error) {
	raw, err := os.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("arc: read %s: %w", name, err)
	}
	a, err := OpenKey(bytes.NewReader(raw), key)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return a, nil
}

// readPayload returns the stored, still compressed bytes of e.
func (a *Archive) readPayload(e Entry) ([]byte, error) {
	comp := make([]byte, e.CompressedSize)
	if n, err := a.r.ReadAt(comp, int64(e.Offset)); n != len(comp) {
		if err == nil || errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("arc: %s: %w: compressed size %d, %d bytes available", e.Name, binfmt.ErrFormat, e.CompressedSize, n)
		}
		return nil, fmt.Errorf("arc: read %s: %w", e.Name, err)
	}
	if a.cipher != nil {
		decryptBlocks(a.cipher, comp)
	}
	return comp, nil
}

// ReadEntry decompresses the payload of e and checks both recorded sizes.
func (a *Archive) ReadEntry(e Entry) ([]byte, error) {
	comp, err := a.readPayload(e)
	if err != nil {
		return nil, err
	}
	zr, err := zlib.NewReader(bytes.NewReader(comp))
	if err != nil {
		return nil, fmt.Errorf("arc: %s: %w: %v", e.Name, binfmt.ErrFormat, err)
	}
	defer zr.Close()

	var out bytes.Buffer
	out.Grow(int(e.Size))
	// one byte past the recorded size is enough to detect a mismatch
	if _, err := io.Copy(&out, io.LimitReader(zr, int64(e.Size)+1)); err != nil {
		return nil, fmt.Errorf("arc: inflate %s: %w: %v", e.Name, binfmt.ErrFormat, err)
	}
	if out.Len() != int(e.Size) {
		return nil, fmt.Errorf("arc: %s: %w: size %d, inflated to %d", e.Name, binfmt.ErrFormat, e.Size, out.Len())
	}
	return out.Bytes(), nil
}

// Extract writes every entry below dir and returns the written paths.
func (a *Archive) Extract(dir string) ([]string, error) {
	var written []string
	for _, e := range a.Entries {
		rel := path.Clean(e.Path())
		if path.IsAbs(rel) || rel == ".." || strings.HasPrefix(rel, "../") {
			return written, fmt.Errorf("arc: %w: entry %q escapes the output directory", binfmt.ErrFormat, e.Name)
		}
		data, err := a.ReadEntry(e)
		if err != nil {
			return written, err
		}
		dst := filepath.Join(dir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return written, fmt.Errorf("arc: create dir: %w", err)
		}
		if err := os.WriteFile(dst, data, 0o644); err != nil {
			return written, fmt.Errorf("arc: write %s: %w", dst, err)
		}
		written = append(written, dst)
	}
	return written, nil
}

// WriteDecrypted writes a plain copy of the archive to w. Payloads keep
// their offsets and gaps between them are zero filled.
func (a *Archive) WriteDecrypted(w io.Writer) error {
	head := make([]byte, headerSize)
	copy(head, magic)
	binary.LittleEndian.PutUint16(head[4:], a.Version)
	binary.LittleEndian.PutUint16(head[6:], uint16(len(a.Entries)))
	binary.LittleEndian.PutUint32(head[8:], a.reserved)
	if _, err := w.Write(head); err != nil {
		return fmt.Errorf("arc: write header: %w", err)
	}
	if _, err := w.Write(a.toc); err != nil {
		return fmt.Errorf("arc: write table of contents: %w", err)
	}

	entries := append([]Entry(nil), a.Entries...)
	sort.Slice(entries, func(i, j int) bool { return entries[i].Offset < entries[j].Offset })
	pos := int64(headerSize + len(a.toc))
	for _, e := range entries {
		if int64(e.Offset) < pos {
			return fmt.Errorf("arc: %s: %w: payload at 0x%x overlaps 0x%x", e.Name, binfmt.ErrFormat, e.Offset, pos)
		}
		comp, err := a.readPayload(e)
		if err != nil {
			return err
		}
		if gap := int64(e.Offset) - pos; gap > 0 {
			if _, err := w.Write(make([]byte, gap)); err != nil {
				return fmt.Errorf("arc: write padding: %w", err)
			}
		}
		if _, err := w.Write(comp); err != nil {
			return fmt.Errorf("arc: write %s: %w", e.Name, err)
		}
		pos = int64(e.Offset) + int64(len(comp))
	}
	return nil
}

// File is one input to Create. Name is slash separated with an extension
// that selects the type code.
type File struct {
	Name string
	Data []byte
}

// Create writes an archive in the VersionX layout.
func Create(w io.Writer, files []File) error {
	le := binary.LittleEndian
	head := make([]byte, headerSize+len(files)*entrySize)
	copy(head, magic)
	le.PutUint16(head[4:], VersionX)
	le.PutUint16(head[6:], uint16(len(files)))

	var payload bytes.Buffer
	pos := uint32(len(head))
	for i, f := range files {
		ext := path.Ext(f.Name)
		name := strings.ReplaceAll(strings.TrimSuffix(f.Name, ext), "/", "\\")
		if len(name) >= nameSize {
			return fmt.Errorf("arc: name %q longer than %d bytes", name, nameSize-1)
		}

		var comp bytes.Buffer
		zw := zlib.NewWriter(&comp)
		if _, err := zw.Write(f.Data); err != nil {
			return fmt.Errorf("arc: compress %s: %w", f.Name, err)
		}
		if err := zw.Close(); err != nil {
			return fmt.Errorf("arc: compress %s: %w", f.Name, err)
		}

		e := head[headerSize+i*entrySize:]
		copy(e, name)
		le.PutUint32(e[64:], byExt[strings.TrimPrefix(ext, ".")])
		le.PutUint32(e[68:], uint32(comp.Len()))
		le.PutUint32(e[72:], uint32(len(f.Data))|sizeFlag)
		le.PutUint32(e[76:], pos)
		pos += uint32(comp.Len())
		payload.Write(comp.Bytes())
	}

	if _, err := w.Write(head); err != nil {
		return fmt.Errorf("arc: write header: %w", err)
	}
	if _, err := payload.WriteTo(w); err != nil {
		return fmt.Errorf("arc: write payload: %w", err)
	}
	return nil
}
