package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"mh-asset-tools/internal/ge"
	"mh-asset-tools/internal/logging"
	"mh-asset-tools/internal/obj"
	"mh-asset-tools/internal/pmo"
)

func main() {
	mtl := flag.String("mtl", "", "MTL library to reference (default: <output>.mtl)")
	maxCommands := flag.Int("max-commands", 0, "Command limit per geometry stream (default: 65536)")
	noColors := flag.Bool("no-colors", false, "Omit vertex colors")
	verbose := flag.Bool("v", false, "Log every command stream")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: pmo2obj [flags] <input.pmo> [output.obj]\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}
	in := flag.Arg(0)
	out := strings.TrimSuffix(in, filepath.Ext(in)) + ".obj"
	if flag.NArg() > 1 {
		out = flag.Arg(1)
	}
	if *mtl == "" {
		*mtl = strings.TrimSuffix(filepath.Base(out), filepath.Ext(out)) + ".mtl"
	}
	if *verbose {
		logging.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}

	f, err := pmo.ReadFile(in)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	file, err := os.Create(out)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer file.Close()

	w := obj.NewWriter(file)
	w.Colors = !*noColors
	if err := w.MaterialLib(*mtl); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	opts := ge.Options{MaxCommands: *maxCommands}
	written, skipped := 0, 0
	for _, g := range f.Parts() {
		mesh, err := f.Decode(g, opts)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
			skipped++
			continue
		}
		material := ""
		if g.Texture >= 0 {
			material = fmt.Sprintf("texture%04d", g.Texture)
		}
		if err := w.WriteMesh(g.Name(), material, mesh); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		written++
	}
	if err := w.Flush(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("%s (pmo %s): %d groups written, %d skipped → %s\n", in, f.Version, written, skipped, out)
}
