package main

import (
	"flag"
	"fmt"
	"os"

	"mh-asset-tools/internal/pack"
)

func main() {
	isPackage := flag.Bool("p", false, "Input is a package file instead of DATA.BIN")
	index := flag.Int("x", -1, "Extract only this entry to [output]")
	replace := flag.Int("r", -1, "Replace this entry with <file>, writing the new image to <output>")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage:\n  packx [-p] <input> [output dir]\n  packx [-p] -x N <input> <output file>\n  packx -r N <DATA.BIN> <file> <output>\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}
	if err := run(flag.Args(), *isPackage, *index, *replace); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type container interface {
	ReadEntry(pack.Entry) ([]byte, error)
	Extract(dir string) ([]string, error)
}

func run(args []string, isPackage bool, index, replace int) error {
	in := args[0]
	if replace >= 0 {
		if isPackage || len(args) < 3 {
			return fmt.Errorf("-r needs a DATA.BIN, a replacement file and an output path")
		}
		d, err := pack.ReadDataFile(in)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(args[1])
		if err != nil {
			return err
		}
		out, err := os.Create(args[2])
		if err != nil {
			return err
		}
		if err := d.Replace(out, replace, data); err != nil {
			out.Close()
			return err
		}
		fmt.Printf("%s: entry %d replaced → %s\n", in, replace, args[2])
		return out.Close()
	}

	var c container
	var entries []pack.Entry
	if isPackage {
		p, err := pack.ReadPackageFile(in)
		if err != nil {
			return err
		}
		c, entries = p, p.Entries
	} else {
		d, err := pack.ReadDataFile(in)
		if err != nil {
			return err
		}
		c, entries = d, d.Entries
	}
	fmt.Printf("%s: %d entries\n", in, len(entries))

	if index >= 0 {
		if index >= len(entries) || len(args) < 2 {
			return fmt.Errorf("-x needs an entry below %d and an output file", len(entries))
		}
		data, err := c.ReadEntry(entries[index])
		if err != nil {
			return err
		}
		return os.WriteFile(args[1], data, 0o644)
	}

	dir := "."
	if len(args) > 1 {
		dir = args[1]
	}
	written, err := c.Extract(dir)
	for _, p := range written {
		fmt.Printf("extracted: %s\n", p)
	}
	return err
}
