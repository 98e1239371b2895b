package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/danmuck/uartctl/internal/dispatch"
	"github.com/danmuck/uartctl/internal/observability"
	"github.com/danmuck/uartctl/internal/protocol"
	"github.com/danmuck/uartctl/internal/protocol/frame"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

var (
	ErrTransportWrite = errors.New("engine: transport write failed")
	ErrTransportRead  = errors.New("engine: transport read failed")
)

// Engine owns the assembler state for one link.
type Engine struct {
	link    io.ReadWriter
	asm     *frame.Assembler
	disp    *dispatch.Dispatcher
	session string

	frames  atomic.Uint64
	invalid atomic.Uint64
	pending atomic.Int64
}

func New(link io.ReadWriter, disp *dispatch.Dispatcher) *Engine {
	if link == nil {
		panic("engine: link cannot be nil")
	}
	if disp == nil {
		panic("engine: dispatcher cannot be nil")
	}
	return &Engine{
		link:    link,
		asm:     frame.NewAssembler(),
		disp:    disp,
		session: uuid.NewString(),
	}
}

// SessionID identifies this engine run in log lines.
func (e *Engine) SessionID() string {
	return e.session
}

// Run reads the link until ctx is done or the link fails.
// Cancellation only interrupts the idle read: a frame already being answered,
// including every iteration of a READ loop, runs to completion first.
// When the link is an io.Closer it is closed on cancellation to unblock Read.
func (e *Engine) Run(ctx context.Context) error {
	log.Info().Msgf("engine.Engine.Run start session=%s target=%q", e.session, e.disp.Target())
	gate := newIdleGate(e.link)
	stop := context.AfterFunc(ctx, gate.cancel)
	defer stop()

	var b [1]byte
	for {
		if ctx.Err() != nil {
			return e.stopped(gate)
		}
		if _, err := io.ReadFull(e.link, b[:]); err != nil {
			if ctx.Err() != nil {
				return e.stopped(gate)
			}
			return fmt.Errorf("%w: %v", ErrTransportRead, err)
		}
		if !gate.busy() {
			// cancelled between the read and the frame; the link is gone
			return e.stopped(gate)
		}
		err := e.Step(context.WithoutCancel(ctx), b[0])
		gate.idle()
		if err != nil {
			if ctx.Err() != nil {
				log.Warn().Err(err).Msgf("engine.Engine.Run error during stop session=%s", e.session)
				return e.stopped(gate)
			}
			log.Error().Err(err).Msgf("engine.Engine.Run fatal session=%s", e.session)
			return err
		}
	}
}

func (e *Engine) stopped(gate *idleGate) error {
	gate.cancel()
	log.Info().Msgf("engine.Engine.Run stop session=%s frames=%d", e.session, e.frames.Load())
	return nil
}

// idleGate closes the link on cancellation, deferring the close while a
// frame is being answered.
type idleGate struct {
	mu        sync.Mutex
	once      sync.Once
	closer    io.Closer
	answering bool
	cancelled bool
}

func newIdleGate(link io.ReadWriter) *idleGate {
	c, _ := link.(io.Closer)
	return &idleGate{closer: c}
}

// busy marks a frame as in progress. It returns false once cancelled.
func (g *idleGate) busy() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.cancelled {
		return false
	}
	g.answering = true
	return true
}

func (g *idleGate) idle() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.answering = false
	if g.cancelled {
		g.close()
	}
}

func (g *idleGate) cancel() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cancelled = true
	if !g.answering {
		g.close()
	}
}

func (g *idleGate) close() {
	g.once.Do(func() {
		if g.closer != nil {
			_ = g.closer.Close()
		}
	})
}

// Step feeds one byte and answers the frame it completes, if any.
func (e *Engine) Step(ctx context.Context, b byte) error {
	ev := e.asm.Feed(b)
	e.pending.Store(int64(e.asm.Pending()))
	observability.RecordFrameEvent(ev.Kind.String())

	var req protocol.Request
	switch ev.Kind {
	case frame.Incomplete:
		return nil
	case frame.InvalidByte:
		e.invalid.Add(1)
		req = protocol.UnknownRequest{Byte: ev.Byte}
	case frame.Complete:
		req = ev.Request
	}

	seq := e.frames.Add(1)
	log.Debug().Msgf("engine.Engine.Step session=%s seq=%d opcode=%s payload=% X", e.session, seq, req.Opcode(), req.Payload())
	return e.disp.Dispatch(ctx, req, linkWriter{w: e.link})
}

// Status is the snapshot served on the health endpoint.
func (e *Engine) Status() map[string]any {
	return map[string]any{
		"session": e.session,
		"frames":  e.frames.Load(),
		"invalid": e.invalid.Load(),
		"pending": e.pending.Load(),
	}
}

// linkWriter writes each encoded frame with exactly one Write call.
type linkWriter struct {
	w io.Writer
}

func (l linkWriter) WriteAck(kind protocol.AckKind) error {
	return l.write(protocol.EncodeAck(kind))
}

func (l linkWriter) WritePayload(p protocol.Payload) error {
	frame, err := protocol.EncodePayload(p)
	if err != nil {
		return err
	}
	return l.write(frame)
}

func (l linkWriter) write(b []byte) error {
	if _, err := l.w.Write(b); err != nil {
		return fmt.Errorf("%w: %v", ErrTransportWrite, err)
	}
	return nil
}
