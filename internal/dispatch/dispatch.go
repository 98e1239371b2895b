// Package dispatch maps assembled requests to provider actions and response frames.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/danmuck/uartctl/internal/actions"
	"github.com/danmuck/uartctl/internal/observability"
	"github.com/danmuck/uartctl/internal/protocol"
	"github.com/rs/zerolog/log"
)

var ErrUnhandledRequest = errors.New("dispatch: unhandled request variant")

// Emitter receives response pieces in wire order.
// Each call is one separate frame write.
type Emitter interface {
	WriteAck(kind protocol.AckKind) error
	WritePayload(p protocol.Payload) error
}

// Dispatcher runs one handler per opcode.
// PING only probes the target; it never triggers a retrieval.
type Dispatcher struct {
	provider actions.Provider
	target   string
}

func New(provider actions.Provider, target string) *Dispatcher {
	if provider == nil {
		panic("dispatch: provider cannot be nil")
	}
	return &Dispatcher{provider: provider, target: target}
}

// Target returns the address probed by PING.
func (d *Dispatcher) Target() string {
	return d.target
}

// Dispatch handles req, writing the acknowledgement before any payload.
// Action failures become payload content; only Emitter errors are returned.
func (d *Dispatcher) Dispatch(ctx context.Context, req protocol.Request, out Emitter) error {
	if _, ok := req.(protocol.UnknownRequest); ok {
		observability.RecordCommand("UNKNOWN")
		log.Debug().Msgf("dispatch.Dispatcher.Dispatch invalid byte=0x%02X", byte(req.Opcode()))
		return out.WriteAck(protocol.Invalid)
	}
	observability.RecordCommand(req.Opcode().String())

	if err := out.WriteAck(protocol.Ack); err != nil {
		return err
	}

	switch r := req.(type) {
	case protocol.VersionRequest:
		log.Info().Msg("dispatch.Dispatcher.Dispatch firmware version requested")
		return out.WritePayload(protocol.VersionPayload(d.provider.Version(ctx)))

	case protocol.ShutdownRequest:
		log.Warn().Msg("dispatch.Dispatcher.Dispatch shutdown requested")
		if err := d.call("shutdown", func() error { return d.provider.Shutdown(ctx) }); err != nil {
			log.Error().Err(err).Msg("dispatch.Dispatcher.Dispatch shutdown failed")
		}
		return nil

	case protocol.PingRequest:
		log.Info().Msgf("dispatch.Dispatcher.Dispatch pinging target=%q", d.target)
		text := d.target
		if err := d.call("probe", func() error { return d.provider.Probe(ctx, d.target) }); err != nil {
			log.Warn().Err(err).Msgf("dispatch.Dispatcher.Dispatch probe failed target=%q", d.target)
			text = protocol.PingFailure
		}
		return out.WritePayload(protocol.PingPayload(text))

	case protocol.ReadRequest:
		return d.read(ctx, r.Count, out)

	default:
		return fmt.Errorf("%w: %T", ErrUnhandledRequest, req)
	}
}

// read runs every requested iteration in order and reports each before starting the next.
func (d *Dispatcher) read(ctx context.Context, count uint16, out Emitter) error {
	log.Info().Msgf("dispatch.Dispatcher.read count=%d", count)
	failed := 0
	for i := 1; i <= int(count); i++ {
		err := d.call("retrieve", func() error { return d.provider.Retrieve(ctx) })
		if err != nil {
			failed++
			log.Warn().Err(err).Msgf("dispatch.Dispatcher.read iteration=%d/%d failed", i, count)
		}
		if werr := out.WritePayload(protocol.ReadPayload(err == nil, uint16(i))); werr != nil {
			return werr
		}
	}
	log.Info().Msgf("dispatch.Dispatcher.read done count=%d failed=%d", count, failed)
	return nil
}

func (d *Dispatcher) call(action string, fn func() error) error {
	start := time.Now()
	err := fn()
	observability.RecordAction(action, err == nil, time.Since(start))
	return err
}
