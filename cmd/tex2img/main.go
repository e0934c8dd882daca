package main

import (
	"flag"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"mh-asset-tools/internal/tex"
	"mh-asset-tools/internal/texture"
)

func main() {
	format := flag.String("format", "png", "Image format when no output path is given")
	flip := flag.Bool("flip", false, "Flip the image vertically")
	maxSize := flag.Int("max-size", 0, "Scale down so neither side exceeds this (0: keep)")
	split := flag.Bool("split", false, "Write cube faces as separate files")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: tex2img [flags] <input.tex> [output.png|.webp|.tga|.bmp|.tiff]\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}
	in := flag.Arg(0)

	f, err := texture.ParseFormat(*format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}
	out := strings.TrimSuffix(in, filepath.Ext(in)) + f.Ext()
	if flag.NArg() > 1 {
		out = flag.Arg(1)
	}

	t, err := tex.ReadFile(in)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("%s: %dx%d %s, %d mips, %d faces\n", in, t.Width, t.Height, t.ColorType, t.Mips, len(t.Faces))

	faces := t.Faces
	if !*split {
		faces = []*image.NRGBA{texture.Stack(faces)}
	}
	for i, img := range faces {
		if *flip {
			img = texture.FlipVertical(img)
		}
		img = texture.Fit(img, *maxSize)

		path := out
		if len(faces) > 1 {
			ext := filepath.Ext(out)
			path = fmt.Sprintf("%s_face%d%s", strings.TrimSuffix(out, ext), i, ext)
		}
		if err := texture.WriteFile(path, img); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("  → %s\n", path)
	}
}
