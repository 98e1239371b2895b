package protocol

import "fmt"

// Opcode is the single-byte command identifier sent by the remote controller.
type Opcode byte

const (
	OpVersion  Opcode = 0x01
	OpShutdown Opcode = 0x02
	OpRead     Opcode = 0x03
	OpPing     Opcode = 0x0B
)

// AckKind is the one-byte acknowledgement written before any payload.
type AckKind byte

const (
	Ack     AckKind = 0xFB
	Invalid AckKind = 0xFE
)

// Fixed payload contents expected by the remote controller.
const (
	FirmwareVersion = "01.00"
	DefaultTarget   = "192.168.0.101"
	PingFailure     = "No connection"
)

// Read outcome bytes carried in each READ iteration payload.
const (
	OutcomeSuccess byte = 0x00
	OutcomeFailure byte = 0x01
)

// MaxFrameLen is the longest request frame across the opcode table.
const MaxFrameLen = 3

// OpcodeSpec is one opcode table row.
// FrameLen counts the opcode byte. PayloadWidth is 0 when the opcode answers with ACK only.
type OpcodeSpec struct {
	Opcode       Opcode
	Name         string
	FrameLen     int
	PayloadWidth int
}

var opcodeTable = map[Opcode]OpcodeSpec{
	OpVersion:  {Opcode: OpVersion, Name: "VERSION", FrameLen: 1, PayloadWidth: 1 + len(FirmwareVersion)},
	OpShutdown: {Opcode: OpShutdown, Name: "SHUTDOWN", FrameLen: 1},
	OpRead:     {Opcode: OpRead, Name: "READ", FrameLen: 3, PayloadWidth: 4},
	OpPing:     {Opcode: OpPing, Name: "PING", FrameLen: 1, PayloadWidth: 1 + len(DefaultTarget)},
}

// Lookup resolves an opcode byte against the table.
func Lookup(b byte) (OpcodeSpec, bool) {
	entry, ok := opcodeTable[Opcode(b)]
	return entry, ok
}

// Opcodes returns the known opcodes in wire-value order.
func Opcodes() []Opcode {
	return []Opcode{OpVersion, OpShutdown, OpRead, OpPing}
}

// FrameLen returns the total request length for op, 1 for unknown bytes.
func (op Opcode) FrameLen() int {
	if entry, ok := opcodeTable[op]; ok {
		return entry.FrameLen
	}
	return 1
}

// PayloadWidth returns the fixed payload frame width for op, 0 when none.
func (op Opcode) PayloadWidth() int {
	return opcodeTable[op].PayloadWidth
}

func (op Opcode) Known() bool {
	_, ok := opcodeTable[op]
	return ok
}

func (op Opcode) String() string {
	if entry, ok := opcodeTable[op]; ok {
		return entry.Name
	}
	return fmt.Sprintf("UNKNOWN(0x%02X)", byte(op))
}

func (k AckKind) String() string {
	switch k {
	case Ack:
		return "ACK"
	case Invalid:
		return "INVALID"
	default:
		return fmt.Sprintf("ACK?(0x%02X)", byte(k))
	}
}
