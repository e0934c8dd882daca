package arc

import (
	"encoding/binary"

	"golang.org/x/crypto/blowfish"
)

// decryptBlocks decrypts data in place. The cipher runs over 32-bit words
// stored byte-swapped; a trailing partial block is left as is.
func decryptBlocks(c *blowfish.Cipher, data []byte) {
	bs := blowfish.BlockSize
	for i := 0; i+bs <= len(data); i += bs {
		b := data[i : i+bs]
		swapWords(b)
		c.Decrypt(b, b)
		swapWords(b)
	}
}

func swapWords(b []byte) {
	for i := 0; i+4 <= len(b); i += 4 {
		binary.BigEndian.PutUint32(b[i:], binary.LittleEndian.Uint32(b[i:]))
	}
}
