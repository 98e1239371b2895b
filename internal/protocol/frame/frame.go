package frame

import (
	"errors"
	"fmt"

	"github.com/danmuck/uartctl/internal/protocol"
)

var ErrBufferFull = errors.New("frame: buffer full")

// EventKind classifies the result of feeding one byte.
type EventKind int

const (
	Incomplete EventKind = iota
	Complete
	InvalidByte
)

func (k EventKind) String() string {
	switch k {
	case Incomplete:
		return "incomplete"
	case Complete:
		return "complete"
	case InvalidByte:
		return "invalid"
	default:
		return fmt.Sprintf("event(%d)", int(k))
	}
}

// Event is the assembler outcome for one byte.
// Request is set for Complete, Byte for InvalidByte.
type Event struct {
	Kind    EventKind
	Request protocol.Request
	Byte    byte
}

// Buffer accumulates one in-flight request frame.
// It never holds more than the expected length of the opcode in buf[0].
type Buffer struct {
	buf  [protocol.MaxFrameLen]byte
	n    int
	want int
}

// Len reports buffered bytes.
func (b *Buffer) Len() int {
	return b.n
}

// Expected reports the frame length of the buffered opcode, 0 when empty.
func (b *Buffer) Expected() int {
	return b.want
}

func (b *Buffer) Empty() bool {
	return b.n == 0
}

func (b *Buffer) Full() bool {
	return b.n > 0 && b.n == b.want
}

// Start places an opcode byte into an empty buffer.
func (b *Buffer) Start(op byte, frameLen int) error {
	if b.n != 0 {
		return fmt.Errorf("frame: start on non-empty buffer (%d bytes)", b.n)
	}
	if frameLen < 1 || frameLen > len(b.buf) {
		return fmt.Errorf("frame: frame length %d outside 1..%d", frameLen, len(b.buf))
	}
	b.buf[0] = op
	b.n = 1
	b.want = frameLen
	return nil
}

// Append adds the next byte of the current frame.
func (b *Buffer) Append(v byte) error {
	if b.n == 0 || b.n >= b.want {
		return ErrBufferFull
	}
	b.buf[b.n] = v
	b.n++
	return nil
}

// Take returns a copy of the buffered frame and clears the buffer.
func (b *Buffer) Take() []byte {
	out := make([]byte, b.n)
	copy(out, b.buf[:b.n])
	b.Reset()
	return out
}

func (b *Buffer) Reset() {
	b.buf = [protocol.MaxFrameLen]byte{}
	b.n = 0
	b.want = 0
}

// Assembler turns a byte stream into request frames using the opcode table.
// It is not safe for concurrent use; the engine feeds it from one goroutine.
type Assembler struct {
	buf Buffer
}

func NewAssembler() *Assembler {
	return &Assembler{}
}

// Feed consumes one byte.
// An unknown byte at a frame boundary is rejected at once and never buffered.
func (a *Assembler) Feed(v byte) Event {
	if a.buf.Empty() {
		entry, ok := protocol.Lookup(v)
		if !ok {
			return Event{Kind: InvalidByte, Byte: v}
		}
		must(a.buf.Start(v, entry.FrameLen))
	} else {
		must(a.buf.Append(v))
	}

	if !a.buf.Full() {
		return Event{Kind: Incomplete}
	}
	req, err := protocol.ParseRequest(a.buf.Take())
	must(err)
	return Event{Kind: Complete, Request: req}
}

// must panics on a broken assembler invariant: table frame lengths fit
// MaxFrameLen and a full buffer always holds a parseable frame.
func must(err error) {
	if err != nil {
		panic(fmt.Sprintf("frame: assembler invariant: %v", err))
	}
}

// Pending reports bytes held for a partial frame.
func (a *Assembler) Pending() int {
	return a.buf.Len()
}

// Reset drops any partial frame.
func (a *Assembler) Reset() {
	a.buf.Reset()
}
