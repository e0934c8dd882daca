package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"mh-asset-tools/internal/arc"
)

func main() {
	list := flag.Bool("l", false, "List entries instead of extracting")
	create := flag.Bool("c", false, "Create <archive> from the given files")
	key := flag.String("key", "", "Blowfish key for encrypted ARCC archives")
	decrypted := flag.String("d", "", "Write a decrypted copy of <archive> to this path")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage:\n  arcx [-l] [-key k] <archive.arc> [output dir]\n  arcx -key k -d <plain.arc> <archive.arc>\n  arcx -c <archive.arc> <file>...\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}
	name := flag.Arg(0)

	if *create {
		if err := createArchive(name, flag.Args()[1:]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	a, err := arc.ReadFileKey(name, []byte(*key))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *decrypted != "" {
		if err := writeDecrypted(a, *decrypted); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("%s → %s (%d entries)\n", name, *decrypted, len(a.Entries))
		return
	}

	if *list {
		fmt.Printf("%s: version 0x%x, encrypted %v, %d entries\n", name, a.Version, a.Encrypted, len(a.Entries))
		for _, e := range a.Entries {
			typ := e.Type()
			if typ == "" {
				typ = "UNKNOWN"
			}
			fmt.Printf("  %-60s %-20s %10d %10d\n", e.Path(), typ, e.CompressedSize, e.Size)
		}
		return
	}

	dir := "."
	if flag.NArg() > 1 {
		dir = flag.Arg(1)
	}
	written, err := a.Extract(dir)
	for _, p := range written {
		fmt.Printf("extracted: %s\n", p)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func createArchive(name string, inputs []string) error {
	if len(inputs) == 0 {
		return fmt.Errorf("no input files")
	}
	files := make([]arc.File, 0, len(inputs))
	for _, in := range inputs {
		data, err := os.ReadFile(in)
		if err != nil {
			return err
		}
		files = append(files, arc.File{Name: filepath.ToSlash(in), Data: data})
	}

	out, err := os.Create(name)
	if err != nil {
		return err
	}
	if err := arc.Create(out, files); err != nil {
		out.Close()
		return err
	}
	fmt.Printf("%s: %d files\n", name, len(files))
	return out.Close()
}

func writeDecrypted(a *arc.Archive, name string) error {
	out, err := os.Create(name)
	if err != nil {
		return err
	}
	if err := a.WriteDecrypted(out); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
