package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"mh-asset-tools/internal/obj"
	"mh-asset-tools/internal/texture"
	"mh-asset-tools/internal/tmh"
)

func main() {
	format := flag.String("format", "png", "Image format: png, webp, tga, bmp, tiff")
	maxSize := flag.Int("max-size", 0, "Scale down so neither side exceeds this (0: keep)")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: tmh2img [flags] <input.tmh> [output.mtl]\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}
	in := flag.Arg(0)
	mtlPath := strings.TrimSuffix(in, filepath.Ext(in)) + ".mtl"
	if flag.NArg() > 1 {
		mtlPath = flag.Arg(1)
	}
	f, err := texture.ParseFormat(*format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	pkg, err := tmh.ReadFile(in)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("%s: %d images\n", in, len(pkg.Images))

	base := strings.TrimSuffix(mtlPath, filepath.Ext(mtlPath))
	mats := make([]obj.Material, len(pkg.Images))
	for i, im := range pkg.Images {
		name := fmt.Sprintf("texture%04d", i)
		path := base + "_" + name + f.Ext()
		if err := texture.WriteFile(path, texture.Fit(im.Image, *maxSize)); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		mats[i] = obj.Material{Name: name, Texture: filepath.Base(path)}
		fmt.Printf("  %dx%d %s → %s\n", im.Width, im.Height, im.Mode, path)
	}

	out, err := os.Create(mtlPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := obj.WriteMaterials(out, mats); err != nil {
		out.Close()
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := out.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("  → %s\n", mtlPath)
}
