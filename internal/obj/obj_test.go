package obj

import (
	"bytes"
	"image/color"
	"strings"
	"testing"

	"mh-asset-tools/internal/ge"
)

func TestWriteMeshRemapsIndices(t *testing.T) {
	m := &ge.Mesh{
		Vertices: map[uint32]ge.Vertex{
			7:  {Position: [3]float32{1, 2, 3}},
			3:  {Position: [3]float32{0, 0, 0}},
			12: {Position: [3]float32{-1, 0.5, 0}},
		},
		Triangles: []ge.Triangle{{3, 7, 12}, {12, 7, 3}},
	}
	var buf bytes.Buffer
	w := NewWriter(&buf)
	if err := w.WriteMesh("part0", "texture0001", m); err != nil {
		t.Fatalf("WriteMesh() error = %v", err)
	}
	if err := w.Flush(); err != nil {
		t.Fatal(err)
	}
	want := `g part0
usemtl texture0001
v 0.000000 0.000000 0.000000
v 1.000000 2.000000 3.000000
v -1.000000 0.500000 0.000000
f 1 2 3
f 3 2 1
`
	if got := buf.String(); got != want {
		t.Errorf("output:\n%s\nwant:\n%s", got, want)
	}
}

func TestWriteMeshAttributesAndOffsets(t *testing.T) {
	v := ge.Vertex{
		UV: [2]float32{0.5, 0.25}, Normal: [3]float32{0, 1, 0},
		Color: color.NRGBA{255, 0, 0, 255}, HasUV: true, HasNormal: true, HasColor: true,
	}
	m := &ge.Mesh{
		Vertices:  map[uint32]ge.Vertex{0: v, 1: v, 2: v},
		Triangles: []ge.Triangle{{0, 1, 2}},
	}
	var buf bytes.Buffer
	w := NewWriter(&buf)
	if err := w.MaterialLib("model.mtl"); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"a", "b"} {
		if err := w.WriteMesh(name, "", m); err != nil {
			t.Fatalf("WriteMesh(%s) error = %v", name, err)
		}
	}
	if err := w.Flush(); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, line := range []string{
		"mtllib model.mtl",
		"v 0.000000 0.000000 0.000000 1.000000 0.000000 0.000000",
		"vt 0.500000 0.250000",
		"vn 0.000000 1.000000 0.000000",
		"f 1/1/1 2/2/2 3/3/3",
		"f 4/4/4 5/5/5 6/6/6",
	} {
		if !strings.Contains(out, line+"\n") {
			t.Errorf("output missing %q:\n%s", line, out)
		}
	}
	if strings.Contains(out, "usemtl") {
		t.Error("usemtl written for empty material")
	}
}

func TestWriteMeshWithoutColors(t *testing.T) {
	m := &ge.Mesh{
		Vertices:  map[uint32]ge.Vertex{0: {HasColor: true, HasNormal: true}, 1: {}, 2: {}},
		Triangles: []ge.Triangle{{0, 1, 2}},
	}
	var buf bytes.Buffer
	w := NewWriter(&buf)
	w.Colors = false
	if err := w.WriteMesh("g", "", m); err != nil {
		t.Fatal(err)
	}
	w.Flush()
	out := buf.String()
	if !strings.Contains(out, "v 0.000000 0.000000 0.000000\n") || !strings.Contains(out, "f 1//1 2//2 3//3\n") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestWriteMeshMissingVertex(t *testing.T) {
	m := &ge.Mesh{
		Vertices:  map[uint32]ge.Vertex{0: {}, 1: {}},
		Triangles: []ge.Triangle{{0, 1, 2}},
	}
	if err := NewWriter(&bytes.Buffer{}).WriteMesh("g", "", m); err == nil {
		t.Error("WriteMesh() with undecoded vertex succeeded")
	}
}

func TestWriteMaterials(t *testing.T) {
	var buf bytes.Buffer
	err := WriteMaterials(&buf, []Material{{Name: "texture0000", Texture: "tex0.png"}, {Name: "plain"}})
	if err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "newmtl texture0000\n") || !strings.Contains(out, "map_Kd tex0.png\n") {
		t.Errorf("unexpected output:\n%s", out)
	}
	if strings.Count(out, "map_Kd") != 1 {
		t.Errorf("map_Kd count = %d, want 1", strings.Count(out, "map_Kd"))
	}
}
