// Package protocol owns the serial wire contract.
//
// Ownership boundary:
// - opcode table and frame lengths
//
// - request variants built from assembled frames
//
// - acknowledgement and payload frame encoding/decoding
//
// Wire summary:
//
//	request:  [OPCODE] or [READ][COUNT_H][COUNT_L]
//	ack:      [ACK=0xFB] or [INVALID=0xFE]
//	payload:  [OPCODE][DATA...][0x00 padding to the opcode's fixed width]
//
// Framing state lives in the frame subpackage; this package is stateless.
package protocol
