package dispatch

import (
	"context"
	"errors"
	"testing"

	"github.com/danmuck/uartctl/internal/actions/actionstest"
	"github.com/danmuck/uartctl/internal/protocol"
	"github.com/danmuck/uartctl/internal/testutil/testlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dispatch(t *testing.T, d *Dispatcher, req protocol.Request) *Recorder {
	t.Helper()
	rec := &Recorder{}
	require.NoError(t, d.Dispatch(context.Background(), req, rec))
	return rec
}

func TestVersionAcksThenReportsVersion(t *testing.T) {
	testlog.Start(t)
	d := New(actionstest.New(), protocol.DefaultTarget)
	rec := dispatch(t, d, protocol.VersionRequest{})

	assert.Equal(t, protocol.Ack, rec.Response.Ack)
	require.Len(t, rec.Response.Payloads, 1)
	assert.Equal(t, 2, rec.Writes)

	frames, err := rec.Response.Encode()
	require.NoError(t, err)
	assert.Equal(t, []byte{0xFB}, frames[0])
	assert.Equal(t, byte(0x01), frames[1][0])
	assert.Equal(t, []byte{0x01, '0', '1', '.', '0', '0'}, frames[1])
}

func TestShutdownAcksOnlyAndCallsProvider(t *testing.T) {
	testlog.Start(t)
	provider := actionstest.New()
	provider.ShutdownErr = errors.New("permission denied")
	rec := dispatch(t, New(provider, protocol.DefaultTarget), protocol.ShutdownRequest{})

	assert.Equal(t, protocol.Response{Ack: protocol.Ack}, rec.Response)
	assert.Equal(t, 1, provider.Shutdowns())
}

func TestPingSuccessEchoesTarget(t *testing.T) {
	testlog.Start(t)
	provider := actionstest.New()
	rec := dispatch(t, New(provider, "10.1.2.3"), protocol.PingRequest{})

	require.Len(t, rec.Response.Payloads, 1)
	assert.Equal(t, "10.1.2.3", rec.Response.Payloads[0].Text())
	assert.Equal(t, []string{"10.1.2.3"}, provider.Probes())
}

func TestPingFailureReportsLiteralWithoutRetrieval(t *testing.T) {
	testlog.Start(t)
	provider := actionstest.New()
	provider.Reachable = false
	rec := dispatch(t, New(provider, protocol.DefaultTarget), protocol.PingRequest{})

	frames, err := rec.Response.Encode()
	require.NoError(t, err)
	require.Len(t, frames, 2)
	want := append([]byte{0x0B}, []byte(protocol.PingFailure)...)
	assert.Equal(t, want, frames[1])
	assert.Len(t, frames[1], protocol.OpPing.PayloadWidth())
	assert.Equal(t, 0, provider.Retrieves())
}

func TestReadReportsEveryIterationInOrder(t *testing.T) {
	testlog.Start(t)
	provider := actionstest.New()
	provider.RetrieveResults = []bool{true, false, true}
	rec := &Recorder{}
	provider.OnRetrieve = func(call int) {
		// previous iteration must already be on the wire
		assert.Len(t, rec.Response.Payloads, call-1)
	}
	d := New(provider, protocol.DefaultTarget)
	require.NoError(t, d.Dispatch(context.Background(), protocol.ReadRequest{Count: 3}, rec))

	assert.Equal(t, 3, provider.Retrieves())
	require.Len(t, rec.Response.Payloads, 3)
	wantSuccess := []bool{true, false, true}
	for i, p := range rec.Response.Payloads {
		res, err := p.ReadResult()
		require.NoError(t, err)
		assert.Equal(t, uint16(i+1), res.Index)
		assert.Equal(t, wantSuccess[i], res.Success)
	}
}

func TestReadZeroCount(t *testing.T) {
	testlog.Start(t)
	provider := actionstest.New()
	rec := dispatch(t, New(provider, protocol.DefaultTarget), protocol.ReadRequest{Count: 0})

	assert.Equal(t, protocol.Response{Ack: protocol.Ack}, rec.Response)
	assert.Equal(t, 0, provider.Retrieves())
}

func TestReadDoesNotAbortOnFailures(t *testing.T) {
	testlog.Start(t)
	provider := actionstest.New()
	provider.RetrieveResults = make([]bool, 5)
	rec := dispatch(t, New(provider, protocol.DefaultTarget), protocol.ReadRequest{Count: 5})

	assert.Equal(t, 5, provider.Retrieves())
	assert.Len(t, rec.Response.Payloads, 5)
}

func TestUnknownIsRejected(t *testing.T) {
	testlog.Start(t)
	provider := actionstest.New()
	rec := dispatch(t, New(provider, protocol.DefaultTarget), protocol.UnknownRequest{Byte: 0x99})

	assert.Equal(t, protocol.Response{Ack: protocol.Invalid}, rec.Response)
	assert.Equal(t, 1, rec.Writes)
	assert.Empty(t, provider.Probes())
	assert.Equal(t, 0, provider.Retrieves())
}

type failingEmitter struct {
	err   error
	calls int
}

func (f *failingEmitter) WriteAck(protocol.AckKind) error {
	f.calls++
	return f.err
}

func (f *failingEmitter) WritePayload(protocol.Payload) error {
	f.calls++
	return f.err
}

func TestEmitterErrorStopsBeforeAction(t *testing.T) {
	testlog.Start(t)
	provider := actionstest.New()
	out := &failingEmitter{err: errors.New("broken pipe")}
	err := New(provider, protocol.DefaultTarget).Dispatch(context.Background(), protocol.ReadRequest{Count: 4}, out)

	require.Error(t, err)
	assert.Equal(t, 1, out.calls)
	assert.Equal(t, 0, provider.Retrieves())
}
