package transport

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/danmuck/uartctl/internal/tools"
	"github.com/rs/zerolog/log"
)

// DefaultWarmupWindow is how long the terminal emulator runs before it is killed.
const DefaultWarmupWindow = 2 * time.Second

// Warmup briefly runs a terminal emulator against the device so the UART
// pins are muxed and the line is initialised before the engine opens it.
type Warmup struct {
	Runner  tools.CommandRunner
	Command []string
	Window  time.Duration
}

// DefaultWarmupCommand is the minicom invocation for device at baud.
func DefaultWarmupCommand(device string, baud int) []string {
	return []string{"minicom", "-b", strconv.Itoa(baud), "-o", "-D", device}
}

// Run starts the command and kills it when the window closes.
// Reaching the end of the window is success; any other failure is returned
// for the caller to log, startup continues either way.
func (w Warmup) Run(ctx context.Context) error {
	if len(w.Command) == 0 || strings.TrimSpace(w.Command[0]) == "" {
		return nil
	}
	runner := w.Runner
	if runner == nil {
		runner = tools.ExecRunner{}
	}
	window := w.Window
	if window <= 0 {
		window = DefaultWarmupWindow
	}
	wctx, cancel := context.WithTimeout(ctx, window)
	defer cancel()

	start := time.Now()
	_, stderr, code, err := runner.Run(wctx, w.Command[0], w.Command[1:]...)
	if err != nil && errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		err = nil
	}
	if err != nil {
		log.Warn().Err(err).Msgf("transport.Warmup.Run command=%q exit=%d stderr=%q", strings.Join(w.Command, " "), code, strings.TrimSpace(string(stderr)))
		return err
	}
	log.Info().Msgf("transport.Warmup.Run command=%q elapsed=%s", strings.Join(w.Command, " "), time.Since(start).Round(time.Millisecond))
	return nil
}
