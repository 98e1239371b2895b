package actions

import (
	"context"
	"fmt"
	"strings"

	"github.com/danmuck/uartctl/internal/tools"
	"github.com/rs/zerolog/log"
)

// PingProber runs a ping command with the address appended.
type PingProber struct {
	Runner  tools.CommandRunner
	Command []string
}

func NewPingProber(runner tools.CommandRunner, command []string) PingProber {
	if runner == nil {
		runner = tools.ExecRunner{}
	}
	if len(command) == 0 {
		command = []string{"ping", "-c", "1"}
	}
	return PingProber{Runner: runner, Command: command}
}

func (p PingProber) Probe(ctx context.Context, address string) error {
	address = strings.TrimSpace(address)
	if address == "" {
		return fmt.Errorf("%w: empty address", ErrUnreachable)
	}
	argv := append(append([]string{}, p.Command...), address)
	log.Debug().Msgf("actions.PingProber.Probe address=%q", address)
	if err := runCommand(ctx, p.Runner, argv); err != nil {
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	return nil
}
