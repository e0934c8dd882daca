// Package texture writes decoded images to disk and composes multi-face
// textures.
package texture

import (
	"bufio"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/HugoSmits86/nativewebp"
	"github.com/ftrvxmtrx/tga"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

// Format is an output image encoding.
type Format string

const (
	PNG  Format = "png"
	WebP Format = "webp"
	TGA  Format = "tga"
	BMP  Format = "bmp"
	TIFF Format = "tiff"
)

// Formats lists every supported output format.
var Formats = []Format{PNG, WebP, TGA, BMP, TIFF}

// Ext returns the file extension including the dot.
func (f Format) Ext() string { return "." + string(f) }

// ParseFormat accepts a format name or extension, case-insensitively.
func ParseFormat(s string) (Format, error) {
	s = strings.TrimPrefix(strings.ToLower(s), ".")
	switch s {
	case "png", "webp", "tga", "bmp", "tiff":
		return Format(s), nil
	case "tif":
		return TIFF, nil
	}
	return "", fmt.Errorf("texture: unknown image format %q", s)
}

// FormatFromPath picks the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	ext := filepath.Ext(path)
	if ext == "" {
		return "", fmt.Errorf("texture: no extension on %s", path)
	}
	return ParseFormat(ext)
}

// Encode writes img to w in format f.
func Encode(w io.Writer, img image.Image, f Format) error {
	var err error
	switch f {
	case PNG:
		err = png.Encode(w, img)
	case WebP:
		err = nativewebp.Encode(w, img, nil)
	case TGA:
		err = tga.Encode(w, img)
	case BMP:
		err = bmp.Encode(w, img)
	case TIFF:
		err = tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
	default:
		return fmt.Errorf("texture: unknown image format %q", string(f))
	}
	if err != nil {
		return fmt.Errorf("texture: encode %s: %w", f, err)
	}
	return nil
}

// WriteFile encodes img to path, choosing the format from the extension.
func WriteFile(path string, img image.Image) error {
	f, err := FormatFromPath(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("texture: create dir: %w", err)
	}
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("texture: create %s: %w", path, err)
	}
	bw := bufio.NewWriter(out)
	if err := Encode(bw, img, f); err != nil {
		out.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		out.Close()
		return fmt.Errorf("texture: write %s: %w", path, err)
	}
	return out.Close()
}
