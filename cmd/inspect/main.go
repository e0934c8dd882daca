package main

import (
	"flag"
	"fmt"
	"os"

	"mh-asset-tools/internal/arc"
	"mh-asset-tools/internal/batch"
	"mh-asset-tools/internal/ge"
	"mh-asset-tools/internal/mod"
	"mh-asset-tools/internal/pack"
	"mh-asset-tools/internal/pmo"
	"mh-asset-tools/internal/tex"
	"mh-asset-tools/internal/tmh"
)

var arcKey = flag.String("key", "", "Blowfish key for encrypted ARCC archives")

func main() {
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: inspect [-key k] <file.pmo|.mod|.tex|.tmh|.arc|.bin>...")
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}
	failed := false
	for _, path := range flag.Args() {
		if err := inspect(path); err != nil {
			fmt.Printf("Error: %v\n", err)
			failed = true
		}
	}
	if failed {
		os.Exit(1)
	}
}

func inspect(path string) error {
	switch batch.KindOf(path) {
	case batch.KindPMO:
		f, err := pmo.ReadFile(path)
		if err != nil {
			return err
		}
		parts := f.Parts()
		fmt.Printf("%s: pmo %s, meshes: %d, groups: %d\n", path, f.Version, f.Meshes, len(parts))
		for _, g := range parts {
			fmt.Printf("  %s: material=%d, texture=%d, commands@0x%x\n", g.Name(), g.Material, g.Texture, g.Start)
			mesh, err := f.Decode(g, ge.Options{})
			if err != nil {
				fmt.Printf("    Error: %v\n", err)
				continue
			}
			for _, l := range mesh.Layouts {
				fmt.Printf("    Layout: %s (%d bytes)\n", l.String(), l.Size)
			}
			printMesh(mesh)
		}
	case batch.KindMOD:
		f, err := mod.ReadFile(path)
		if err != nil {
			return err
		}
		parts := f.Parts()
		fmt.Printf("%s: mod, meshes: %d\n", path, len(parts))
		for _, p := range parts {
			fmt.Printf("  %s: stride=%d, vertex start=%d, indices=%d\n", p.Name(), p.Stride, p.VertexStart, p.IndexCount+1)
			mesh, err := f.Decode(p)
			if err != nil {
				fmt.Printf("    Error: %v\n", err)
				continue
			}
			printMesh(mesh)
		}
	case batch.KindTEX:
		t, err := tex.ReadFile(path)
		if err != nil {
			return err
		}
		fmt.Printf("%s: tex %dx%d, color=%s, mips=%d, textures=%d, cube=%v\n",
			path, t.Width, t.Height, t.ColorType, t.Mips, t.Textures, t.Cube)
	case batch.KindTMH:
		f, err := tmh.ReadFile(path)
		if err != nil {
			return err
		}
		fmt.Printf("%s: tmh, images: %d\n", path, len(f.Images))
		for i, im := range f.Images {
			palette := "none"
			if im.HasPalette {
				palette = im.Palette.String()
			}
			fmt.Printf("  image %d: %dx%d, mode=%s, palette=%s\n", i, im.Width, im.Height, im.Mode, palette)
		}
	case batch.KindData:
		d, err := pack.ReadDataFile(path)
		if err != nil {
			return err
		}
		fmt.Printf("%s: data, entries: %d\n", path, len(d.Entries))
		for _, e := range d.Entries {
			head, err := d.ReadEntry(e)
			if err != nil {
				return err
			}
			kind := pack.Sniff(head)
			if kind == "" {
				kind = "?"
			}
			fmt.Printf("  %04d: offset=0x%x, size=%d, %s\n", e.Index, e.Offset, e.Size, kind)
		}
	case batch.KindARC:
		a, err := arc.ReadFileKey(path, []byte(*arcKey))
		if err != nil {
			return err
		}
		fmt.Printf("%s: arc version 0x%x, encrypted=%v, entries: %d\n", path, a.Version, a.Encrypted, len(a.Entries))
		for _, e := range a.Entries {
			fmt.Printf("  %s: type=%q, compressed=%d, size=%d\n", e.Path(), e.Type(), e.CompressedSize, e.Size)
		}
	default:
		return fmt.Errorf("%s: unknown file type", path)
	}
	return nil
}

func printMesh(m *ge.Mesh) {
	b := m.Bounds()
	fmt.Printf("    verts=%d, tris=%d\n", len(m.Vertices), len(m.Triangles))
	if b.Empty() {
		return
	}
	size := b.Size()
	fmt.Printf("    BBox: X[%.3f, %.3f] Y[%.3f, %.3f] Z[%.3f, %.3f]\n",
		b.Min[0], b.Max[0], b.Min[1], b.Max[1], b.Min[2], b.Max[2])
	c := b.Center()
	fmt.Printf("    Size: %.3f x %.3f x %.3f (diagonal %.3f)\n", size[0], size[1], size[2], size.Len())
	fmt.Printf("    Center: (%.3f, %.3f, %.3f)\n", c[0], c[1], c[2])
}
