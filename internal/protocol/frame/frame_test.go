package frame

import (
	"bytes"
	"errors"
	"testing"

	"github.com/danmuck/uartctl/internal/protocol"
)

func TestSingleByteOpcodesCompleteImmediately(t *testing.T) {
	for _, op := range []protocol.Opcode{protocol.OpVersion, protocol.OpShutdown, protocol.OpPing} {
		a := NewAssembler()
		ev := a.Feed(byte(op))
		if ev.Kind != Complete {
			t.Fatalf("%s: expected complete, got %s", op, ev.Kind)
		}
		if ev.Request.Opcode() != op {
			t.Fatalf("%s: unexpected request opcode %s", op, ev.Request.Opcode())
		}
		if len(ev.Request.Payload()) != 0 {
			t.Fatalf("%s: expected empty payload, got % X", op, ev.Request.Payload())
		}
		if a.Pending() != 0 {
			t.Fatalf("%s: buffer not cleared: %d", op, a.Pending())
		}
	}
}

func TestReadAssemblesThreeBytes(t *testing.T) {
	a := NewAssembler()
	if ev := a.Feed(0x03); ev.Kind != Incomplete {
		t.Fatalf("opcode byte: expected incomplete, got %s", ev.Kind)
	}
	if a.Pending() != 1 {
		t.Fatalf("expected 1 pending byte, got %d", a.Pending())
	}
	if ev := a.Feed(0x12); ev.Kind != Incomplete {
		t.Fatalf("count high: expected incomplete, got %s", ev.Kind)
	}
	ev := a.Feed(0x34)
	if ev.Kind != Complete {
		t.Fatalf("count low: expected complete, got %s", ev.Kind)
	}
	read, ok := ev.Request.(protocol.ReadRequest)
	if !ok {
		t.Fatalf("expected ReadRequest, got %T", ev.Request)
	}
	if read.Count != 0x1234 {
		t.Fatalf("unexpected count: 0x%04X", read.Count)
	}
	if !bytes.Equal(ev.Request.Payload(), []byte{0x12, 0x34}) {
		t.Fatalf("unexpected payload: % X", ev.Request.Payload())
	}
	if a.Pending() != 0 {
		t.Fatalf("buffer not cleared after complete frame")
	}
}

func TestReadPayloadBytesAreNotOpcodes(t *testing.T) {
	a := NewAssembler()
	a.Feed(0x03)
	if ev := a.Feed(0xFF); ev.Kind != Incomplete {
		t.Fatalf("unknown-looking count byte must be buffered, got %s", ev.Kind)
	}
	ev := a.Feed(0x01)
	if ev.Kind != Complete || ev.Request.(protocol.ReadRequest).Count != 0xFF01 {
		t.Fatalf("unexpected event: %+v", ev)
	}
}

func TestUnknownByteIsRejectedWithoutBuffering(t *testing.T) {
	known := map[byte]bool{0x01: true, 0x02: true, 0x03: true, 0x0B: true}
	a := NewAssembler()
	for v := 0; v <= 0xFF; v++ {
		b := byte(v)
		if known[b] {
			continue
		}
		ev := a.Feed(b)
		if ev.Kind != InvalidByte || ev.Byte != b {
			t.Fatalf("byte 0x%02X: expected invalid, got %+v", b, ev)
		}
		if a.Pending() != 0 {
			t.Fatalf("byte 0x%02X left %d pending bytes", b, a.Pending())
		}
	}
	if ev := a.Feed(0x01); ev.Kind != Complete {
		t.Fatalf("assembler not ready after invalid bytes: %s", ev.Kind)
	}
}

func TestStreamOfMixedFrames(t *testing.T) {
	stream := []byte{0x01, 0x55, 0x03, 0x00, 0x02, 0x0B, 0x02}
	a := NewAssembler()
	var kinds []EventKind
	var ops []protocol.Opcode
	for _, b := range stream {
		ev := a.Feed(b)
		kinds = append(kinds, ev.Kind)
		if ev.Kind == Complete {
			ops = append(ops, ev.Request.Opcode())
		}
	}
	wantKinds := []EventKind{Complete, InvalidByte, Incomplete, Incomplete, Complete, Complete, Complete}
	for i := range wantKinds {
		if kinds[i] != wantKinds[i] {
			t.Fatalf("event %d: got %s want %s", i, kinds[i], wantKinds[i])
		}
	}
	wantOps := []protocol.Opcode{protocol.OpVersion, protocol.OpRead, protocol.OpPing, protocol.OpShutdown}
	if len(ops) != len(wantOps) {
		t.Fatalf("unexpected ops: %v", ops)
	}
	for i := range wantOps {
		if ops[i] != wantOps[i] {
			t.Fatalf("op %d: got %s want %s", i, ops[i], wantOps[i])
		}
	}
}

func TestBufferNeverExceedsExpectedLength(t *testing.T) {
	var b Buffer
	if err := b.Append(0x00); !errors.Is(err, ErrBufferFull) {
		t.Fatalf("append on empty buffer: expected ErrBufferFull, got %v", err)
	}
	if err := b.Start(0x01, 1); err != nil {
		t.Fatalf("start: %v", err)
	}
	if !b.Full() {
		t.Fatalf("single-byte frame should be full after start")
	}
	if err := b.Append(0x00); !errors.Is(err, ErrBufferFull) {
		t.Fatalf("expected ErrBufferFull, got %v", err)
	}
	if err := b.Start(0x03, 3); err == nil {
		t.Fatalf("expected start on non-empty buffer to fail")
	}
	if got := b.Take(); !bytes.Equal(got, []byte{0x01}) {
		t.Fatalf("unexpected take: % X", got)
	}
	if !b.Empty() || b.Expected() != 0 {
		t.Fatalf("take must clear the buffer")
	}
	if err := b.Start(0x03, protocol.MaxFrameLen+1); err == nil {
		t.Fatalf("expected oversize frame length to fail")
	}
}

func TestResetDropsPartialFrame(t *testing.T) {
	a := NewAssembler()
	a.Feed(0x03)
	a.Feed(0x00)
	a.Reset()
	if a.Pending() != 0 {
		t.Fatalf("expected empty buffer after reset")
	}
	if ev := a.Feed(0x0B); ev.Kind != Complete {
		t.Fatalf("expected PING to complete after reset, got %s", ev.Kind)
	}
}

func TestFeedHoldsInvariantsForEveryByteSequence(t *testing.T) {
	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("assembler invariant broken: %v", r)
		}
	}()
	a := NewAssembler()
	for first := 0; first <= 0xFF; first++ {
		for second := 0; second <= 0xFF; second++ {
			a.Reset()
			a.Feed(byte(first))
			a.Feed(byte(second))
			ev := a.Feed(0x00)
			if ev.Kind == Incomplete && a.Pending() == 0 {
				t.Fatalf("% X % X 00: incomplete with empty buffer", first, second)
			}
		}
	}
	if a.Pending() > protocol.MaxFrameLen {
		t.Fatalf("pending %d exceeds max frame length", a.Pending())
	}
}
