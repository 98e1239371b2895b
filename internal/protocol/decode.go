package protocol

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// ReadResult is one decoded READ iteration report.
type ReadResult struct {
	Success bool
	Index   uint16
}

// DecodeAck validates a received acknowledgement byte.
func DecodeAck(b byte) (AckKind, error) {
	switch AckKind(b) {
	case Ack, Invalid:
		return AckKind(b), nil
	default:
		return 0, fmt.Errorf("%w: 0x%02X", ErrInvalidAck, b)
	}
}

// DecodePayload validates a fixed-width payload frame.
// Data keeps the zero padding; use Text or ReadResult to interpret it.
func DecodePayload(frame []byte) (Payload, error) {
	if len(frame) == 0 {
		return Payload{}, fmt.Errorf("%w: empty payload frame", ErrFrameLength)
	}
	op := Opcode(frame[0])
	if !op.Known() {
		return Payload{}, fmt.Errorf("%w: 0x%02X", ErrUnknownOpcode, frame[0])
	}
	width := op.PayloadWidth()
	if width == 0 {
		return Payload{}, fmt.Errorf("%w: %s", ErrNoPayload, op)
	}
	if len(frame) != width {
		return Payload{}, fmt.Errorf("%w: %s payload wants %d bytes, got %d", ErrFrameLength, op, width, len(frame))
	}
	data := make([]byte, width-1)
	copy(data, frame[1:])
	return Payload{Opcode: op, Data: data}, nil
}

// Text returns the string content of a VERSION or PING payload without padding.
func (p Payload) Text() string {
	if i := bytes.IndexByte(p.Data, 0); i >= 0 {
		return string(p.Data[:i])
	}
	return string(p.Data)
}

// ReadResult interprets a READ payload.
func (p Payload) ReadResult() (ReadResult, error) {
	if p.Opcode != OpRead {
		return ReadResult{}, fmt.Errorf("%w: want READ, got %s", ErrOpcodeMismatch, p.Opcode)
	}
	if len(p.Data) != 3 {
		return ReadResult{}, fmt.Errorf("%w: READ payload data has %d bytes", ErrFrameLength, len(p.Data))
	}
	var success bool
	switch p.Data[0] {
	case OutcomeSuccess:
		success = true
	case OutcomeFailure:
	default:
		return ReadResult{}, fmt.Errorf("%w: 0x%02X", ErrInvalidOutcome, p.Data[0])
	}
	return ReadResult{Success: success, Index: binary.BigEndian.Uint16(p.Data[1:3])}, nil
}
