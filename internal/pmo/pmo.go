// Package pmo reads PSP-era model containers. A file holds meshes, each mesh
// a run of vertex groups, each group one geometry command stream.
package pmo

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"mh-asset-tools/internal/binfmt"
	"mh-asset-tools/internal/ge"
)

// Version identifies the header revision.
type Version int

const (
	VersionMH2 Version = iota + 1 // "1.0\0", 0x20-byte mesh records
	VersionMH3                    // "102\0", 0x30-byte mesh records
)

func (v Version) String() string {
	switch v {
	case VersionMH2:
		return "1.0"
	case VersionMH3:
		return "102"
	}
	return fmt.Sprintf("version(%d)", int(v))
}

const (
	headerSize  = 0x40
	groupSize   = 0x10
	materialRec = 0x10
)

// Group is one vertex group: a command stream and its material.
type Group struct {
	Mesh  int
	Index int // within the mesh
	// Material is the group's material slot; Texture is the texture index the
	// material names, or -1 when the file has no material table.
	Material int
	Texture  int
	// Start and End are file positions of the command stream. End is zero
	// when the record leaves it open.
	Start int64
	End   int64
}

// Name is a stable label for the group, used for output groups and files.
func (g Group) Name() string {
	return fmt.Sprintf("mesh%04d_group%02d", g.Mesh, g.Index)
}

// File is an opened container.
type File struct {
	r       io.ReaderAt
	Version Version
	Meshes  int
	groups  []Group
}

// ReadFile loads a whole container into memory and opens it.
func ReadFile(path string) (*File, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("pmo: read %s: %w", path, err)
	}
	f, err := Open(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Open parses the header and group tables of r.
func Open(r io.ReaderAt) (*File, error) {
	h, err := binfmt.ReadRecord(r, 0, headerSize)
	if err != nil {
		return nil, fmt.Errorf("pmo: header: %w", err)
	}
	if magic := h.Str(4); magic != "pmo" {
		return nil, fmt.Errorf("pmo: %w: magic %q", binfmt.ErrFormat, magic)
	}
	f := &File{r: r}
	switch ver := string(h.Bytes(4)); ver {
	case "102\x00":
		f.Version = VersionMH3
	case "1.0\x00":
		f.Version = VersionMH2
	default:
		return nil, fmt.Errorf("pmo: %w: version %q", binfmt.ErrFormat, ver)
	}

	h.Seek(28)
	f.Meshes = int(h.U16())
	h.Seek(32)
	meshTable := int64(h.U32())
	groupTable := int64(h.U32())
	h.Seek(48)
	materialTable := int64(h.U32())
	cmdBase := int64(h.U32())
	if err := h.Err(); err != nil {
		return nil, fmt.Errorf("pmo: header: %w", err)
	}

	meshSize, countAt, firstAt, matAt := 0x30, 44, 46, 42
	if f.Version == VersionMH2 {
		meshSize, countAt, firstAt, matAt = 0x20, 20, 22, 18
	}

	for m := 0; m < f.Meshes; m++ {
		mr, err := binfmt.ReadRecord(r, meshTable+int64(m*meshSize), meshSize)
		if err != nil {
			return nil, fmt.Errorf("pmo: mesh %d: %w", m, err)
		}
		mr.Seek(matAt)
		matBase := int(mr.U16())
		mr.Seek(countAt)
		count := int(mr.U16())
		mr.Seek(firstAt)
		first := int(mr.U16())

		for g := 0; g < count; g++ {
			gr, err := binfmt.ReadRecord(r, groupTable+int64((first+g)*groupSize), groupSize)
			if err != nil {
				return nil, fmt.Errorf("pmo: mesh %d group %d: %w", m, g, err)
			}
			grp := Group{Mesh: m, Index: g, Material: matBase + int(gr.U8()), Texture: -1}
			gr.Seek(4)
			grp.Start = cmdBase + int64(gr.U32())
			if end := gr.U32(); end > 0 {
				grp.End = cmdBase + int64(end)
			}
			if materialTable != 0 {
				mat, err := binfmt.ReadRecord(r, materialTable+int64(grp.Material*materialRec), materialRec)
				if err != nil {
					return nil, fmt.Errorf("pmo: mesh %d group %d material: %w", m, g, err)
				}
				mat.Seek(8)
				grp.Texture = int(mat.U32())
			}
			f.groups = append(f.groups, grp)
		}
	}
	return f, nil
}

// Parts returns every vertex group in file order.
func (f *File) Parts() []Group {
	return f.groups
}

// Decode runs the command stream of g. Vertex and index addresses in the
// stream are relative to the group's command start.
func (f *File) Decode(g Group, opts ge.Options) (*ge.Mesh, error) {
	limit := opts.MaxCommands
	if limit <= 0 {
		limit = ge.DefaultMaxCommands
	}
	if g.End > g.Start {
		limit = min(limit, int(g.End-g.Start)/4)
	}
	cmds, err := ge.ReadCommands(f.r, g.Start, limit)
	if err != nil {
		return nil, fmt.Errorf("pmo: %s: %w", g.Name(), err)
	}
	opts.Base = g.Start
	mesh, err := ge.Run(cmds, f.r, opts)
	if err != nil {
		return nil, fmt.Errorf("pmo: %s: %w", g.Name(), err)
	}
	return mesh, nil
}
