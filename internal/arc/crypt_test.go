package arc

import (
	"bytes"
	"errors"
	"testing"

	"golang.org/x/crypto/blowfish"
)

var testKey = []byte("QZHaM;-5:)dV#")

// encryptBlocks mirrors decryptBlocks for building fixtures.
func encryptBlocks(t *testing.T, key, data []byte) {
	t.Helper()
	c, err := blowfish.NewCipher(key)
	if err != nil {
		t.Fatalf("NewCipher() error = %v", err)
	}
	for i := 0; i+blowfish.BlockSize <= len(data); i += blowfish.BlockSize {
		b := data[i : i+blowfish.BlockSize]
		swapWords(b)
		c.Encrypt(b, b)
		swapWords(b)
	}
}

// encrypted builds a plain archive from files and encrypts it in place the
// way ARCC archives are stored.
func encrypted(t *testing.T, files []File) []byte {
	t.Helper()
	plain := build(t, files)
	var buf bytes.Buffer
	if err := Create(&buf, files); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	raw := buf.Bytes()
	copy(raw, magicEncrypted)
	encryptBlocks(t, testKey, raw[headerSize:headerSize+len(files)*entrySize])
	for _, e := range plain.Entries {
		encryptBlocks(t, testKey, raw[e.Offset:e.Offset+e.CompressedSize])
	}
	return raw
}

func TestSwapWords(t *testing.T) {
	b := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	swapWords(b)
	if want := []byte{4, 3, 2, 1, 8, 7, 6, 5}; !bytes.Equal(b, want) {
		t.Errorf("swapWords() = %v, want %v", b, want)
	}
}

func TestOpenKeyEncrypted(t *testing.T) {
	files := []File{
		{Name: "model/em001/body.mod", Data: bytes.Repeat([]byte("vertex data "), 40)},
		{Name: "model/em001/skin.tex", Data: []byte("pixels")},
	}
	raw := encrypted(t, files)

	a, err := OpenKey(bytes.NewReader(raw), testKey)
	if err != nil {
		t.Fatalf("OpenKey() error = %v", err)
	}
	if !a.Encrypted || a.Version != VersionX {
		t.Errorf("got encrypted %v version 0x%x, want true 0x%x", a.Encrypted, a.Version, VersionX)
	}
	for i, f := range files {
		if got := a.Entries[i].Path(); got != f.Name {
			t.Errorf("entry %d path = %q, want %q", i, got, f.Name)
		}
		data, err := a.ReadEntry(a.Entries[i])
		if err != nil {
			t.Fatalf("ReadEntry(%d) error = %v", i, err)
		}
		if !bytes.Equal(data, f.Data) {
			t.Errorf("entry %d payload = %q, want %q", i, data, f.Data)
		}
	}
}

func TestOpenEncryptedWithoutKey(t *testing.T) {
	raw := encrypted(t, []File{{Name: "a.tex", Data: []byte("x")}})
	if _, err := Open(bytes.NewReader(raw)); !errors.Is(err, ErrKeyRequired) {
		t.Errorf("Open() error = %v, want ErrKeyRequired", err)
	}
	if _, err := OpenKey(bytes.NewReader(raw), bytes.Repeat([]byte("k"), 57)); err == nil {
		t.Error("OpenKey() with a 57-byte key succeeded")
	}
}

func TestWriteDecrypted(t *testing.T) {
	files := []File{
		{Name: "a.mod", Data: []byte("first payload")},
		{Name: "b.tex", Data: bytes.Repeat([]byte{7}, 300)},
	}
	a, err := OpenKey(bytes.NewReader(encrypted(t, files)), testKey)
	if err != nil {
		t.Fatalf("OpenKey() error = %v", err)
	}
	var out bytes.Buffer
	if err := a.WriteDecrypted(&out); err != nil {
		t.Fatalf("WriteDecrypted() error = %v", err)
	}

	plain, err := Open(bytes.NewReader(out.Bytes()))
	if err != nil {
		t.Fatalf("Open() of decrypted copy error = %v", err)
	}
	if plain.Encrypted {
		t.Error("decrypted copy still marked encrypted")
	}
	for i, f := range files {
		data, err := plain.ReadEntry(plain.Entries[i])
		if err != nil {
			t.Fatalf("ReadEntry(%d) error = %v", i, err)
		}
		if !bytes.Equal(data, f.Data) {
			t.Errorf("entry %d payload = %q, want %q", i, data, f.Data)
		}
	}
}
