package transport

import (
	"context"
	"errors"
	"io"
	"net"
	"testing"
	"time"

	"github.com/danmuck/uartctl/internal/testutil/testlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSupportedBaud(t *testing.T) {
	assert.True(t, SupportedBaud(9600))
	assert.True(t, SupportedBaud(115200))
	assert.False(t, SupportedBaud(0))
	assert.False(t, SupportedBaud(9601))
}

func TestIsNetwork(t *testing.T) {
	assert.True(t, IsNetwork("tcp://10.0.0.2:4000"))
	assert.True(t, IsNetwork(" tcp-listen://:4000"))
	assert.False(t, IsNetwork("/dev/ttyO4"))
}

func TestOpenValidatesConfig(t *testing.T) {
	testlog.Start(t)
	ctx := context.Background()

	_, err := Open(ctx, Config{Device: "  "})
	assert.ErrorIs(t, err, ErrEmptyDevice)

	_, err = Open(ctx, Config{Device: "/dev/ttyO4", Baud: 1234})
	assert.ErrorIs(t, err, ErrUnsupportedBaud)

	_, err = Open(ctx, Config{Device: "tcp://no-port"})
	assert.ErrorIs(t, err, ErrInvalidAddress)

	_, err = Open(ctx, Config{Device: "tcp-listen://"})
	assert.ErrorIs(t, err, ErrInvalidAddress)
}

func TestDialCarriesBytes(t *testing.T) {
	testlog.Start(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	got := make(chan []byte, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		buf := make([]byte, 3)
		if _, err := io.ReadFull(conn, buf); err == nil {
			got <- buf
		}
		_, _ = conn.Write([]byte{0xFB})
	}()

	link, err := Open(context.Background(), Config{Device: "tcp://" + ln.Addr().String(), DialTimeout: time.Second})
	require.NoError(t, err)
	defer link.Close()

	_, err = link.Write([]byte{0x03, 0x00, 0x0D})
	require.NoError(t, err)
	ack := make([]byte, 1)
	_, err = io.ReadFull(link, ack)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xFB}, ack)
	assert.Equal(t, []byte{0x03, 0x00, 0x0D}, <-got)
}

func TestListenAcceptsOneController(t *testing.T) {
	testlog.Start(t)
	reserve, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := reserve.Addr().String()
	require.NoError(t, reserve.Close())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	go func() {
		for ctx.Err() == nil {
			conn, err := net.Dial("tcp", addr)
			if err == nil {
				_, _ = conn.Write([]byte{0x01})
				_ = conn.Close()
				return
			}
			time.Sleep(10 * time.Millisecond)
		}
	}()

	link, err := Open(ctx, Config{Device: "tcp-listen://" + addr})
	require.NoError(t, err)
	defer link.Close()
	b := make([]byte, 1)
	_, err = io.ReadFull(link, b)
	require.NoError(t, err)
	assert.Equal(t, byte(0x01), b[0])
}

func TestListenStopsWhenContextDone(t *testing.T) {
	testlog.Start(t)
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	_, err := Open(ctx, Config{Device: "tcp-listen://127.0.0.1:0"})
	assert.ErrorIs(t, err, context.Canceled)
}

type runnerFunc func(ctx context.Context, name string, args ...string) ([]byte, []byte, int32, error)

func (f runnerFunc) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, int32, error) {
	return f(ctx, name, args...)
}

func TestWarmupWindowElapsingIsSuccess(t *testing.T) {
	testlog.Start(t)
	var gotName string
	var gotArgs []string
	w := Warmup{
		Command: DefaultWarmupCommand("/dev/ttyO4", 9600),
		Window:  10 * time.Millisecond,
		Runner: runnerFunc(func(ctx context.Context, name string, args ...string) ([]byte, []byte, int32, error) {
			gotName, gotArgs = name, args
			<-ctx.Done()
			return nil, nil, -1, ctx.Err()
		}),
	}
	require.NoError(t, w.Run(context.Background()))
	assert.Equal(t, "minicom", gotName)
	assert.Equal(t, []string{"-b", "9600", "-o", "-D", "/dev/ttyO4"}, gotArgs)
}

func TestWarmupReportsLaunchFailure(t *testing.T) {
	testlog.Start(t)
	launchErr := errors.New("exec: \"minicom\": executable file not found in $PATH")
	w := Warmup{
		Command: []string{"minicom"},
		Runner: runnerFunc(func(context.Context, string, ...string) ([]byte, []byte, int32, error) {
			return nil, nil, 127, launchErr
		}),
	}
	assert.ErrorIs(t, w.Run(context.Background()), launchErr)
}

func TestWarmupWithoutCommandIsNoop(t *testing.T) {
	testlog.Start(t)
	called := false
	w := Warmup{Runner: runnerFunc(func(context.Context, string, ...string) ([]byte, []byte, int32, error) {
		called = true
		return nil, nil, 0, nil
	})}
	require.NoError(t, w.Run(context.Background()))
	assert.False(t, called)
}
