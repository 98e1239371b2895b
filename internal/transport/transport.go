package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	schemeDial   = "tcp://"
	schemeListen = "tcp-listen://"
)

var (
	ErrEmptyDevice         = errors.New("transport: device is required")
	ErrUnsupportedBaud     = errors.New("transport: unsupported baud rate")
	ErrUnsupportedPlatform = errors.New("transport: serial devices unsupported on this platform")
	ErrInvalidAddress      = errors.New("transport: invalid network address")
)

// Config selects and parameterises a link.
type Config struct {
	Device      string
	Baud        int
	DialTimeout time.Duration
}

// Link is an open byte link.
type Link interface {
	io.ReadWriteCloser
}

var baudRates = []int{1200, 2400, 4800, 9600, 19200, 38400, 57600, 115200, 230400}

// SupportedBaud reports whether baud can be applied to a serial device.
func SupportedBaud(baud int) bool {
	for _, b := range baudRates {
		if b == baud {
			return true
		}
	}
	return false
}

// IsNetwork reports whether device names a network link instead of a UART.
func IsNetwork(device string) bool {
	device = strings.TrimSpace(device)
	return strings.HasPrefix(device, schemeDial) || strings.HasPrefix(device, schemeListen)
}

// Open returns the link named by cfg.Device.
func Open(ctx context.Context, cfg Config) (Link, error) {
	device := strings.TrimSpace(cfg.Device)
	switch {
	case device == "":
		return nil, ErrEmptyDevice
	case strings.HasPrefix(device, schemeDial):
		return dial(ctx, strings.TrimPrefix(device, schemeDial), cfg.DialTimeout)
	case strings.HasPrefix(device, schemeListen):
		return acceptOne(ctx, strings.TrimPrefix(device, schemeListen))
	default:
		if !SupportedBaud(cfg.Baud) {
			return nil, fmt.Errorf("%w: %d", ErrUnsupportedBaud, cfg.Baud)
		}
		return openSerial(device, cfg.Baud)
	}
}

func dial(ctx context.Context, addr string, timeout time.Duration) (Link, error) {
	if _, _, err := net.SplitHostPort(addr); err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidAddress, addr, err)
	}
	dialer := net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("transport: dial %s: %w", addr, err)
	}
	log.Info().Msgf("transport.dial connected remote=%s", conn.RemoteAddr())
	return conn, nil
}

// acceptOne listens on addr and returns the first accepted connection.
// The listener is closed once a controller connects or ctx is done.
func acceptOne(ctx context.Context, addr string) (Link, error) {
	if _, _, err := net.SplitHostPort(addr); err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidAddress, addr, err)
	}
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("transport: listen %s: %w", addr, err)
	}
	stop := context.AfterFunc(ctx, func() { _ = ln.Close() })
	defer stop()
	defer ln.Close()

	log.Info().Msgf("transport.acceptOne listening addr=%s", ln.Addr())
	conn, err := ln.Accept()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("transport: accept %s: %w", addr, err)
	}
	log.Info().Msgf("transport.acceptOne connected remote=%s", conn.RemoteAddr())
	return conn, nil
}
