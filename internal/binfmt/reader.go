// Package binfmt reads fixed-layout little-endian header records.
package binfmt

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

// ErrFormat reports a bad magic, version or field in a container header.
var ErrFormat = errors.New("invalid format")

// Reader is a cursor over one header record. Reads past the end return zero
// and latch an error that Err reports.
type Reader struct {
	data []byte
	off  int
	err  error
}

// NewReader wraps an in-memory record.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// ReadRecord reads n bytes at off from r and returns a cursor over them.
func ReadRecord(r io.ReaderAt, off int64, n int) (*Reader, error) {
	buf := make([]byte, n)
	got, err := r.ReadAt(buf, off)
	if got == n {
		return NewReader(buf), nil
	}
	if err == nil || errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: record at 0x%x truncated (%d of %d bytes)", ErrFormat, off, got, n)
	}
	return nil, fmt.Errorf("read record at 0x%x: %w", off, err)
}

func (r *Reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if r.off+n > len(r.data) {
		r.err = fmt.Errorf("%w: read of %d bytes at 0x%x overruns %d-byte record", ErrFormat, n, r.off, len(r.data))
		r.off = len(r.data)
		return nil
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b
}

// Err returns the first overrun, if any.
func (r *Reader) Err() error { return r.err }

// Offset returns the cursor position.
func (r *Reader) Offset() int { return r.off }

// Seek moves the cursor to an absolute position within the record.
func (r *Reader) Seek(off int) {
	if off < 0 || off > len(r.data) {
		if r.err == nil {
			r.err = fmt.Errorf("%w: seek to 0x%x outside %d-byte record", ErrFormat, off, len(r.data))
		}
		return
	}
	r.off = off
}

// Skip advances the cursor by n bytes.
func (r *Reader) Skip(n int) { r.take(n) }

func (r *Reader) U8() uint8 {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *Reader) U16() uint16 {
	b := r.take(2)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

func (r *Reader) U32() uint32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (r *Reader) F32() float32 {
	return math.Float32frombits(r.U32())
}

// Bytes returns the next n bytes without copying.
func (r *Reader) Bytes(n int) []byte {
	return r.take(n)
}

// Str reads an n-byte field and cuts it at the first NUL.
func (r *Reader) Str(n int) string {
	s := r.take(n)
	for i, b := range s {
		if b == 0 {
			return string(s[:i])
		}
	}
	return string(s)
}
