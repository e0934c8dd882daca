package ge

import (
	"errors"
	"fmt"
)

// Error kinds returned by the interpreter. Match them with errors.Is.
var (
	ErrMalformedStream      = errors.New("malformed command stream")
	ErrUnknownCommand       = errors.New("unknown command")
	ErrUnsupportedFeature   = errors.New("unsupported feature")
	ErrUnsupportedPrimitive = errors.New("unsupported primitive")
	ErrRecordOverrun        = errors.New("record overrun")
)

// CommandError locates a failure within a command stream.
type CommandError struct {
	Index int    // position of the failing word in the stream
	Op    Opcode // opcode of the failing word
	Err   error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("ge: command %d (%s): %v", e.Index, e.Op, e.Err)
}

func (e *CommandError) Unwrap() error { return e.Err }
