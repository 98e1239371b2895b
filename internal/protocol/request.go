package protocol

import (
	"encoding/binary"
	"fmt"
)

// Request is one assembled command frame.
// Concrete variants: VersionRequest, ShutdownRequest, PingRequest, ReadRequest, UnknownRequest.
type Request interface {
	Opcode() Opcode
	// Payload returns the frame bytes after the opcode.
	Payload() []byte
	isRequest()
}

type VersionRequest struct{}

type ShutdownRequest struct{}

type PingRequest struct{}

// ReadRequest asks for Count sequential retrieval attempts.
type ReadRequest struct {
	Count uint16
}

// UnknownRequest carries a byte that is not in the opcode table.
type UnknownRequest struct {
	Byte byte
}

func (VersionRequest) Opcode() Opcode  { return OpVersion }
func (ShutdownRequest) Opcode() Opcode { return OpShutdown }
func (PingRequest) Opcode() Opcode     { return OpPing }
func (ReadRequest) Opcode() Opcode     { return OpRead }
func (r UnknownRequest) Opcode() Opcode {
	return Opcode(r.Byte)
}

func (VersionRequest) Payload() []byte  { return nil }
func (ShutdownRequest) Payload() []byte { return nil }
func (PingRequest) Payload() []byte     { return nil }
func (UnknownRequest) Payload() []byte  { return nil }

func (r ReadRequest) Payload() []byte {
	out := make([]byte, 2)
	binary.BigEndian.PutUint16(out, r.Count)
	return out
}

func (VersionRequest) isRequest()  {}
func (ShutdownRequest) isRequest() {}
func (PingRequest) isRequest()     {}
func (ReadRequest) isRequest()     {}
func (UnknownRequest) isRequest()  {}

// ParseRequest builds a Request from a complete frame.
// The frame length must match the opcode table exactly.
func ParseRequest(frame []byte) (Request, error) {
	if len(frame) == 0 {
		return nil, fmt.Errorf("%w: empty frame", ErrFrameLength)
	}
	entry, ok := Lookup(frame[0])
	if !ok {
		if len(frame) != 1 {
			return nil, fmt.Errorf("%w: unknown opcode frame has %d bytes", ErrFrameLength, len(frame))
		}
		return UnknownRequest{Byte: frame[0]}, nil
	}
	if len(frame) != entry.FrameLen {
		return nil, fmt.Errorf("%w: %s wants %d bytes, got %d", ErrFrameLength, entry.Name, entry.FrameLen, len(frame))
	}
	switch entry.Opcode {
	case OpVersion:
		return VersionRequest{}, nil
	case OpShutdown:
		return ShutdownRequest{}, nil
	case OpPing:
		return PingRequest{}, nil
	case OpRead:
		return ReadRequest{Count: binary.BigEndian.Uint16(frame[1:3])}, nil
	default:
		return nil, fmt.Errorf("%w: 0x%02X", ErrUnknownOpcode, frame[0])
	}
}

// EncodeRequest returns the wire frame for r, the controller-side inverse of ParseRequest.
func EncodeRequest(r Request) []byte {
	out := make([]byte, 0, MaxFrameLen)
	out = append(out, byte(r.Opcode()))
	return append(out, r.Payload()...)
}
