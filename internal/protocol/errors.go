package protocol

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownOpcode   = errors.New("protocol: unknown opcode")
	ErrFrameLength     = errors.New("protocol: invalid frame length")
	ErrNoPayload       = errors.New("protocol: opcode has no payload frame")
	ErrOpcodeMismatch  = errors.New("protocol: payload opcode mismatch")
	ErrInvalidAck      = errors.New("protocol: invalid acknowledgement byte")
	ErrInvalidOutcome  = errors.New("protocol: invalid read outcome byte")
	ErrPayloadOverflow = errors.New("protocol: payload exceeds fixed width")
)

// WidthError reports payload content that does not fit an opcode's fixed width.
type WidthError struct {
	Opcode Opcode
	Width  int
	Got    int
}

func (e *WidthError) Error() string {
	return fmt.Sprintf("protocol: %s payload needs %d bytes, fixed width allows %d", e.Opcode, e.Got, e.Width-1)
}

func (e *WidthError) Unwrap() error {
	return ErrPayloadOverflow
}
