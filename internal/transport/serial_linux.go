//go:build linux

package transport

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sys/unix"
)

var baudFlags = map[int]uint32{
	1200:   unix.B1200,
	2400:   unix.B2400,
	4800:   unix.B4800,
	9600:   unix.B9600,
	19200:  unix.B19200,
	38400:  unix.B38400,
	57600:  unix.B57600,
	115200: unix.B115200,
	230400: unix.B230400,
}

// Serial is a UART opened in raw 8N1 mode.
type Serial struct {
	f    *os.File
	once sync.Once
	err  error
}

// openSerial opens device without becoming its controlling terminal.
// The fd stays non-blocking so the runtime poller can interrupt reads on Close.
func openSerial(device string, baud int) (Link, error) {
	speed, ok := baudFlags[baud]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedBaud, baud)
	}
	fd, err := unix.Open(device, unix.O_RDWR|unix.O_NOCTTY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("transport: open %s: %w", device, err)
	}
	if err := configureRaw(fd, speed); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("transport: configure %s: %w", device, err)
	}
	log.Info().Msgf("transport.openSerial device=%q baud=%d", device, baud)
	return &Serial{f: os.NewFile(uintptr(fd), device)}, nil
}

// configureRaw applies 8 data bits, receiver on, modem lines ignored,
// parity errors ignored, no echo or line editing, then drops pending input.
func configureRaw(fd int, speed uint32) error {
	t, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		return fmt.Errorf("TCGETS: %w", err)
	}
	t.Iflag = unix.IGNPAR
	t.Oflag = 0
	t.Lflag = 0
	t.Cflag = speed | unix.CS8 | unix.CREAD | unix.CLOCAL
	t.Ispeed = speed
	t.Ospeed = speed
	t.Cc[unix.VMIN] = 1
	t.Cc[unix.VTIME] = 0
	if err := unix.IoctlSetTermios(fd, unix.TCSETS, t); err != nil {
		return fmt.Errorf("TCSETS: %w", err)
	}
	if err := unix.IoctlSetInt(fd, unix.TCFLSH, unix.TCIFLUSH); err != nil {
		return fmt.Errorf("TCFLSH: %w", err)
	}
	return nil
}

func (s *Serial) Read(p []byte) (int, error) {
	return s.f.Read(p)
}

func (s *Serial) Write(p []byte) (int, error) {
	return s.f.Write(p)
}

// SetDeadline bounds pending reads and writes.
func (s *Serial) SetDeadline(t time.Time) error {
	return s.f.SetDeadline(t)
}

func (s *Serial) Name() string {
	return s.f.Name()
}

// Close is safe to call more than once.
func (s *Serial) Close() error {
	s.once.Do(func() {
		s.err = s.f.Close()
		log.Info().Msgf("transport.Serial.Close device=%q", s.f.Name())
	})
	return s.err
}
