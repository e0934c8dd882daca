package ge

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Opcode is the top byte of a command word.
type Opcode uint8

const (
	OpNOP    Opcode = 0x00
	OpVADDR  Opcode = 0x01
	OpIADDR  Opcode = 0x02
	OpPRIM   Opcode = 0x04
	OpRET    Opcode = 0x0b
	OpBASE   Opcode = 0x10
	OpVTYPE  Opcode = 0x12
	OpOFFSET Opcode = 0x13
	OpORIGIN Opcode = 0x14
	OpFFACE  Opcode = 0x9b
)

var opNames = map[Opcode]string{
	OpNOP:    "NOP",
	OpVADDR:  "VADDR",
	OpIADDR:  "IADDR",
	OpPRIM:   "PRIM",
	OpRET:    "RET",
	OpBASE:   "BASE",
	OpVTYPE:  "VTYPE",
	OpOFFSET: "OFFSET",
	OpORIGIN: "ORIGIN",
	OpFFACE:  "FFACE",
}

func (op Opcode) String() string {
	if name, ok := opNames[op]; ok {
		return name
	}
	return fmt.Sprintf("0x%02x", uint8(op))
}

// Command is one 32-bit command word: opcode in bits 24-31, operand in 0-23.
type Command uint32

// MakeCommand packs an opcode and a 24-bit operand.
func MakeCommand(op Opcode, operand uint32) Command {
	return Command(uint32(op)<<24 | operand&0xffffff)
}

func (c Command) Op() Opcode      { return Opcode(c >> 24) }
func (c Command) Operand() uint32 { return uint32(c) & 0xffffff }

const readChunk = 256

// ReadCommands reads little-endian command words starting at off. It stops
// after the first RET, after limit words, or at the end of the source; running
// out of data is not an error here, the interpreter reports the missing RET.
func ReadCommands(src io.ReaderAt, off int64, limit int) ([]uint32, error) {
	if limit <= 0 {
		limit = DefaultMaxCommands
	}
	var cmds []uint32
	buf := make([]byte, readChunk*4)
	for len(cmds) < limit {
		n, err := src.ReadAt(buf, off)
		words := n / 4
		for i := 0; i < words && len(cmds) < limit; i++ {
			w := binary.LittleEndian.Uint32(buf[i*4:])
			cmds = append(cmds, w)
			if Command(w).Op() == OpRET {
				return cmds, nil
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return cmds, nil
			}
			return nil, fmt.Errorf("ge: read commands at 0x%x: %w", off, err)
		}
		off += int64(words * 4)
	}
	return cmds, nil
}
