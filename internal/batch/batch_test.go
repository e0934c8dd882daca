package batch

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"mh-asset-tools/internal/arc"
	"mh-asset-tools/internal/texture"
)

// texL8 builds a 16x8 luminance texture.
func texL8() []byte {
	le := binary.LittleEndian
	buf := make([]byte, 20, 20+128)
	copy(buf, "TEX\x00")
	le.PutUint32(buf[4:], 0xa5|2<<28)
	le.PutUint32(buf[8:], 1|16<<6|8<<19)
	le.PutUint32(buf[12:], 1|16<<8)
	return append(buf, bytes.Repeat([]byte{0x80}, 128)...)
}

// modTriangle builds a model with one three-vertex strip.
func modTriangle() []byte {
	le := binary.LittleEndian
	const meshTable, vbuf, ibuf = 64, 112, 148
	buf := make([]byte, ibuf+6)
	copy(buf, "MOD\x00")
	le.PutUint16(buf[4:], 0xe6)
	le.PutUint16(buf[8:], 1)
	le.PutUint32(buf[52:], meshTable)
	le.PutUint32(buf[56:], vbuf)
	le.PutUint32(buf[60:], ibuf)
	le.PutUint16(buf[meshTable+2:], 3)
	buf[meshTable+10] = 12
	le.PutUint32(buf[meshTable+28:], 2)
	for i := 0; i < 3; i++ {
		le.PutUint32(buf[vbuf+i*12:], math.Float32bits(float32(i)))
		le.PutUint16(buf[ibuf+i*2:], uint16(i))
	}
	return buf
}

// tmhPixel builds a texture package holding one 1x1 RGBA8888 image.
func tmhPixel() []byte {
	le := binary.LittleEndian
	buf := []byte(".TMH0.14")
	buf = le.AppendUint32(buf, 1)
	buf = le.AppendUint32(buf, 0)
	buf = append(buf, make([]byte, 16)...)
	buf = le.AppendUint32(buf, 20)
	buf = le.AppendUint32(buf, 0)
	buf = le.AppendUint32(buf, 3)
	buf = le.AppendUint16(buf, 1)
	buf = le.AppendUint16(buf, 1)
	return append(buf, 10, 20, 30, 255)
}

// dataImage builds a two-sector DATA.BIN with the texture package as its
// only entry.
func dataImage() []byte {
	img := make([]byte, 2*2048)
	binary.LittleEndian.PutUint32(img, 1)
	binary.LittleEndian.PutUint32(img[4:], 2)
	copy(img[2048:], tmhPixel())
	return img
}

func writeInputs(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	var archive bytes.Buffer
	if err := arc.Create(&archive, []arc.File{
		{Name: "inner/skin.tex", Data: texL8()},
		{Name: "inner/body.mod", Data: modTriangle()},
		{Name: "inner/notes.lmd", Data: []byte("x")},
	}); err != nil {
		t.Fatal(err)
	}
	files := map[string][]byte{
		"tex/a.tex":    texL8(),
		"model/b.mod":  modTriangle(),
		"pack.arc":     archive.Bytes(),
		"bad.pmo":      []byte("pmo\x00999\x00"),
		"psp/skin.tmh": tmhPixel(),
		"DATA.BIN":     dataImage(),
		"readme.txt":   []byte("ignored"),
	}
	for name, data := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, data, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestDiscover(t *testing.T) {
	dir := writeInputs(t)
	os.MkdirAll(filepath.Join(dir, "out"), 0o755)
	os.WriteFile(filepath.Join(dir, "out", "old.tex"), texL8(), 0o644)

	jobs, err := Discover(dir, filepath.Join(dir, "out"))
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	var got []string
	for _, j := range jobs {
		got = append(got, filepath.ToSlash(j.Rel)+":"+string(j.Kind))
	}
	want := "DATA.BIN:data bad.pmo:pmo model/b.mod:mod pack.arc:arc psp/skin.tmh:tmh tex/a.tex:tex"
	if strings.Join(got, " ") != want {
		t.Errorf("Discover() = %v, want %s", got, want)
	}
}

func TestRun(t *testing.T) {
	dir := writeInputs(t)
	out := filepath.Join(t.TempDir(), "out")
	jobs, err := Discover(dir)
	if err != nil {
		t.Fatal(err)
	}

	results := Run(Config{OutputDir: out, Format: texture.BMP, Workers: 3}, jobs)
	if len(results) != len(jobs) {
		t.Fatalf("got %d results, want %d", len(results), len(jobs))
	}
	byName := map[string]Result{}
	for _, r := range results {
		byName[filepath.ToSlash(r.Source)] = r
	}

	if r := byName["bad.pmo"]; r.Success || r.Error == "" {
		t.Errorf("bad.pmo = %+v, want failure", r)
	}
	for _, name := range []string{"model/b.mod", "tex/a.tex", "pack.arc", "psp/skin.tmh", "DATA.BIN"} {
		if r := byName[name]; !r.Success {
			t.Errorf("%s failed: %s", name, r.Error)
		}
	}

	for _, p := range []string{
		"tex/a.bmp",
		"model/b.obj",
		"pack/inner/skin.tex",
		"pack/inner/skin.bmp",
		"pack/inner/body.obj",
		"pack/inner/notes.lmd",
		"psp/skin_texture0000.bmp",
		"DATA/0000.tmh",
		"DATA/0000_texture0000.bmp",
	} {
		if _, err := os.Stat(filepath.Join(out, filepath.FromSlash(p))); err != nil {
			t.Errorf("missing output %s: %v", p, err)
		}
	}

	objText, err := os.ReadFile(filepath.Join(out, "model", "b.obj"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(objText), "f 1 2 3\n") {
		t.Errorf("b.obj has no face:\n%s", objText)
	}

	m := Summarize(results)
	if m.Files != 6 || m.Succeeded != 5 || m.Failed != 1 {
		t.Errorf("Summarize() = %+v", m)
	}
}

func TestWriteManifest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "manifest.json")
	results := []Result{
		{Source: "a.mod", Kind: KindMOD, Parts: 2, Skipped: 1, Success: true},
		{Source: "b.tex", Kind: KindTEX, Error: "boom"},
	}
	if err := WriteManifest(path, results); err != nil {
		t.Fatalf("WriteManifest() error = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("manifest is not JSON: %v", err)
	}
	if m.Files != 2 || m.Succeeded != 1 || m.Failed != 1 || m.Skipped != 1 {
		t.Errorf("manifest = %+v", m)
	}
	if m.Results[1].Error != "boom" {
		t.Errorf("result 1 = %+v", m.Results[1])
	}
}

func TestKindOf(t *testing.T) {
	tests := map[string]Kind{
		"a.PMO":    KindPMO,
		"b.mod":    KindMOD,
		"c.tex":    KindTEX,
		"d.arc":    KindARC,
		"f.tmh":    KindTMH,
		"DATA.BIN": KindData,
		"e.obj":    KindUnknown,
		"noext":    KindUnknown,
	}
	for path, want := range tests {
		if got := KindOf(path); got != want {
			t.Errorf("KindOf(%q) = %q, want %q", path, got, want)
		}
	}
}

func TestTextureFile(t *testing.T) {
	base := filepath.Join("out", "em001")
	got := textureFile(base, 3, texture.PNG)
	if want := filepath.Join("out", "em001_texture0003.png"); got != want {
		t.Errorf("textureFile() = %q, want %q", got, want)
	}
}
