package client

import (
	"bytes"
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/danmuck/uartctl/internal/actions/actionstest"
	"github.com/danmuck/uartctl/internal/dispatch"
	"github.com/danmuck/uartctl/internal/engine"
	"github.com/danmuck/uartctl/internal/protocol"
	"github.com/danmuck/uartctl/internal/testutil/testlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startEngine(t *testing.T, provider *actionstest.Provider, target string) *Controller {
	t.Helper()
	device, host := net.Pipe()
	ctx, cancel := context.WithCancel(context.Background())
	e := engine.New(device, dispatch.New(provider, target))
	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		_ = host.Close()
		_ = device.Close()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Errorf("engine did not stop")
		}
	})
	return New(host)
}

func TestControllerAgainstEngine(t *testing.T) {
	testlog.Start(t)
	provider := actionstest.New()
	provider.RetrieveResults = []bool{true, false, true}
	c := startEngine(t, provider, protocol.DefaultTarget)
	ctx := context.Background()

	version, err := c.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, protocol.FirmwareVersion, version)

	text, ok, err := c.Ping(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, protocol.DefaultTarget, text)

	var seen []protocol.ReadResult
	succeeded, err := c.Read(ctx, 3, func(r protocol.ReadResult) { seen = append(seen, r) })
	require.NoError(t, err)
	assert.Equal(t, 2, succeeded)
	assert.Equal(t, []protocol.ReadResult{
		{Success: true, Index: 1},
		{Success: false, Index: 2},
		{Success: true, Index: 3},
	}, seen)

	require.NoError(t, c.Shutdown(ctx))
	assert.Equal(t, 1, provider.Shutdowns())
}

func TestControllerPingUnreachable(t *testing.T) {
	testlog.Start(t)
	provider := actionstest.New()
	provider.Reachable = false
	c := startEngine(t, provider, "10.9.9.9")

	text, ok, err := c.Ping(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, protocol.PingFailure, text)
	assert.Equal(t, 0, provider.Retrieves())
}

func TestSendUnknownIsAnsweredInvalid(t *testing.T) {
	testlog.Start(t)
	c := startEngine(t, actionstest.New(), protocol.DefaultTarget)
	ctx := context.Background()

	kind, err := c.Send(ctx, protocol.UnknownRequest{Byte: 0x42})
	require.NoError(t, err)
	assert.Equal(t, protocol.Invalid, kind)

	// the engine is still in sync after the rejection
	version, err := c.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, protocol.FirmwareVersion, version)
}

func TestReadZeroCountReturnsAfterAck(t *testing.T) {
	testlog.Start(t)
	provider := actionstest.New()
	c := startEngine(t, provider, protocol.DefaultTarget)

	calls := 0
	succeeded, err := c.Read(context.Background(), 0, func(protocol.ReadResult) { calls++ })
	require.NoError(t, err)
	assert.Equal(t, 0, succeeded)
	assert.Equal(t, 0, calls)
}

// cannedLink answers every exchange with a fixed byte sequence.
type cannedLink struct {
	bytes.Buffer
	sent []byte
}

func (l *cannedLink) Write(p []byte) (int, error) {
	l.sent = append(l.sent, p...)
	return len(p), nil
}

func TestRejectedError(t *testing.T) {
	testlog.Start(t)
	link := &cannedLink{}
	link.WriteByte(0xFE)

	_, err := New(link).Version(context.Background())
	var rejected *RejectedError
	require.True(t, errors.As(err, &rejected))
	assert.Equal(t, protocol.OpVersion, rejected.Opcode)
	assert.Equal(t, []byte{0x01}, link.sent)
}

func TestReadDetectsOutOfOrderIndex(t *testing.T) {
	testlog.Start(t)
	link := &cannedLink{}
	link.Buffer.Write([]byte{0xFB, 0x03, 0x00, 0x00, 0x02})

	_, err := New(link).Read(context.Background(), 1, nil)
	assert.ErrorIs(t, err, ErrIndexOutOfOrder)
	assert.Equal(t, []byte{0x03, 0x00, 0x01}, link.sent)
}

func TestPayloadOpcodeMismatch(t *testing.T) {
	testlog.Start(t)
	link := &cannedLink{}
	link.Buffer.Write([]byte{0xFB, 0x03, 0x00, 0x00, 0x01, 0x00, 0x00})

	_, err := New(link).Version(context.Background())
	assert.ErrorIs(t, err, ErrUnexpectedOpcode)
}

func TestBadAckByte(t *testing.T) {
	testlog.Start(t)
	link := &cannedLink{}
	link.WriteByte(0x10)

	err := New(link).Shutdown(context.Background())
	assert.ErrorIs(t, err, protocol.ErrInvalidAck)
}

func TestCancelledContextInterruptsRead(t *testing.T) {
	testlog.Start(t)
	device, host := net.Pipe()
	defer device.Close()
	defer host.Close()
	go func() {
		// swallow the request, never answer
		buf := make([]byte, 1)
		_, _ = device.Read(buf)
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	time.AfterFunc(50*time.Millisecond, cancel)
	_, err := New(host).Version(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
