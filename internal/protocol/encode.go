package protocol

import (
	"encoding/binary"
	"fmt"
)

// Payload is the data block of one payload frame, without the opcode echo or padding.
type Payload struct {
	Opcode Opcode
	Data   []byte
}

// Response is one acknowledgement and the payload frames that follow it on the wire.
type Response struct {
	Ack      AckKind
	Payloads []Payload
}

// VersionPayload carries the firmware version string.
func VersionPayload(version string) Payload {
	return Payload{Opcode: OpVersion, Data: []byte(version)}
}

// PingPayload carries either the probed address or the failure literal.
func PingPayload(text string) Payload {
	return Payload{Opcode: OpPing, Data: []byte(text)}
}

// ReadPayload carries one READ iteration outcome and its 1-based index.
func ReadPayload(success bool, index uint16) Payload {
	data := make([]byte, 3)
	data[0] = OutcomeFailure
	if success {
		data[0] = OutcomeSuccess
	}
	binary.BigEndian.PutUint16(data[1:3], index)
	return Payload{Opcode: OpRead, Data: data}
}

// EncodeAck returns the single-byte acknowledgement frame.
func EncodeAck(kind AckKind) []byte {
	return []byte{byte(kind)}
}

// EncodePayload returns the fixed-width frame for p.
// Bytes past the data are zero so every frame for an opcode has the same length.
func EncodePayload(p Payload) ([]byte, error) {
	width := p.Opcode.PayloadWidth()
	if width == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoPayload, p.Opcode)
	}
	if len(p.Data) > width-1 {
		return nil, &WidthError{Opcode: p.Opcode, Width: width, Got: len(p.Data)}
	}
	frame := make([]byte, width)
	frame[0] = byte(p.Opcode)
	copy(frame[1:], p.Data)
	return frame, nil
}

// Encode returns the outbound frames of r in write order: the ack frame first, then each payload.
func (r Response) Encode() ([][]byte, error) {
	if r.Ack != Ack && r.Ack != Invalid {
		return nil, fmt.Errorf("%w: 0x%02X", ErrInvalidAck, byte(r.Ack))
	}
	if r.Ack == Invalid && len(r.Payloads) > 0 {
		return nil, fmt.Errorf("%w: INVALID is never followed by a payload", ErrNoPayload)
	}
	frames := make([][]byte, 0, 1+len(r.Payloads))
	frames = append(frames, EncodeAck(r.Ack))
	for _, p := range r.Payloads {
		frame, err := EncodePayload(p)
		if err != nil {
			return nil, err
		}
		frames = append(frames, frame)
	}
	return frames, nil
}
