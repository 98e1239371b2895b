// Package client drives a controller-side exchange with a running engine.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/danmuck/uartctl/internal/protocol"
	"github.com/rs/zerolog/log"
)

var (
	ErrUnexpectedOpcode = errors.New("client: unexpected payload opcode")
	ErrIndexOutOfOrder  = errors.New("client: read index out of order")
)

// RejectedError reports an INVALID acknowledgement for a sent request.
type RejectedError struct {
	Opcode protocol.Opcode
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("client: %s rejected by device", e.Opcode)
}

type deadliner interface {
	SetDeadline(time.Time) error
}

// Controller sends one request at a time and reads the fixed-width answer.
type Controller struct {
	mu   sync.Mutex
	link io.ReadWriter
}

func New(link io.ReadWriter) *Controller {
	if link == nil {
		panic("client: link cannot be nil")
	}
	return &Controller{link: link}
}

// Send writes req as one frame and returns the acknowledgement byte.
// Payload frames that follow an ACK are left on the link for the caller.
func (c *Controller) Send(ctx context.Context, req protocol.Request) (protocol.AckKind, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	done, err := c.begin(ctx)
	if err != nil {
		return 0, err
	}
	defer done()
	return c.send(ctx, req)
}

// Version returns the firmware version string.
func (c *Controller) Version(ctx context.Context) (string, error) {
	p, err := c.exchange(ctx, protocol.VersionRequest{})
	if err != nil {
		return "", err
	}
	return p.Text(), nil
}

// Ping returns the reported text and whether the target was reachable.
func (c *Controller) Ping(ctx context.Context) (string, bool, error) {
	p, err := c.exchange(ctx, protocol.PingRequest{})
	if err != nil {
		return "", false, err
	}
	text := p.Text()
	return text, text != protocol.PingFailure, nil
}

// Shutdown asks the device to power off. Only the ACK comes back.
func (c *Controller) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	done, err := c.begin(ctx)
	if err != nil {
		return err
	}
	defer done()
	return c.expectAck(ctx, protocol.ShutdownRequest{})
}

// Read requests count retrievals and calls fn for every iteration report as it arrives.
// It returns the number of successful iterations.
func (c *Controller) Read(ctx context.Context, count uint16, fn func(protocol.ReadResult)) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	done, err := c.begin(ctx)
	if err != nil {
		return 0, err
	}
	defer done()

	if err := c.expectAck(ctx, protocol.ReadRequest{Count: count}); err != nil {
		return 0, err
	}
	succeeded := 0
	for i := uint16(1); i <= count && i != 0; i++ {
		p, err := c.readPayload(ctx, protocol.OpRead)
		if err != nil {
			return succeeded, err
		}
		res, err := p.ReadResult()
		if err != nil {
			return succeeded, err
		}
		if res.Index != i {
			return succeeded, fmt.Errorf("%w: want %d, got %d", ErrIndexOutOfOrder, i, res.Index)
		}
		if res.Success {
			succeeded++
		}
		if fn != nil {
			fn(res)
		}
	}
	log.Debug().Msgf("client.Controller.Read count=%d succeeded=%d", count, succeeded)
	return succeeded, nil
}

func (c *Controller) exchange(ctx context.Context, req protocol.Request) (protocol.Payload, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	done, err := c.begin(ctx)
	if err != nil {
		return protocol.Payload{}, err
	}
	defer done()

	if err := c.expectAck(ctx, req); err != nil {
		return protocol.Payload{}, err
	}
	return c.readPayload(ctx, req.Opcode())
}

func (c *Controller) expectAck(ctx context.Context, req protocol.Request) error {
	kind, err := c.send(ctx, req)
	if err != nil {
		return err
	}
	if kind == protocol.Invalid {
		return &RejectedError{Opcode: req.Opcode()}
	}
	return nil
}

func (c *Controller) send(ctx context.Context, req protocol.Request) (protocol.AckKind, error) {
	frame := protocol.EncodeRequest(req)
	log.Debug().Msgf("client.Controller.send opcode=%s frame=% X", req.Opcode(), frame)
	if _, err := c.link.Write(frame); err != nil {
		return 0, c.linkErr(ctx, err)
	}
	var b [1]byte
	if _, err := io.ReadFull(c.link, b[:]); err != nil {
		return 0, c.linkErr(ctx, err)
	}
	return protocol.DecodeAck(b[0])
}

func (c *Controller) readPayload(ctx context.Context, want protocol.Opcode) (protocol.Payload, error) {
	buf := make([]byte, want.PayloadWidth())
	if _, err := io.ReadFull(c.link, buf); err != nil {
		return protocol.Payload{}, c.linkErr(ctx, err)
	}
	p, err := protocol.DecodePayload(buf)
	if err != nil {
		return protocol.Payload{}, err
	}
	if p.Opcode != want {
		return protocol.Payload{}, fmt.Errorf("%w: want %s, got %s", ErrUnexpectedOpcode, want, p.Opcode)
	}
	return p, nil
}

// begin applies the ctx deadline to links that support one and
// interrupts blocked reads when ctx is cancelled.
func (c *Controller) begin(ctx context.Context) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d, ok := c.link.(deadliner)
	if !ok {
		return func() {}, nil
	}
	if dl, ok := ctx.Deadline(); ok {
		_ = d.SetDeadline(dl)
	}
	stop := context.AfterFunc(ctx, func() {
		_ = d.SetDeadline(time.Now())
	})
	return func() {
		stop()
		_ = d.SetDeadline(time.Time{})
	}, nil
}

func (c *Controller) linkErr(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return fmt.Errorf("client: link: %w", err)
}
