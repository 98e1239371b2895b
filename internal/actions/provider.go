package actions

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/danmuck/uartctl/internal/protocol"
	"github.com/danmuck/uartctl/internal/tools"
	"github.com/rs/zerolog/log"
)

var (
	ErrUnreachable       = errors.New("actions: target unreachable")
	ErrRetrieveFailed    = errors.New("actions: file retrieval failed")
	ErrShutdownFailed    = errors.New("actions: shutdown request failed")
	ErrEmptyCommand      = errors.New("actions: empty command")
	ErrRouteUnsupported  = errors.New("actions: route probe unsupported on this platform")
	ErrInvalidHostConfig = errors.New("actions: invalid host config")
)

// Provider is the capability set the dispatcher calls into.
// A nil error means the action succeeded.
type Provider interface {
	Version(ctx context.Context) string
	Probe(ctx context.Context, address string) error
	Retrieve(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

// Prober checks whether an address can be reached.
type Prober interface {
	Probe(ctx context.Context, address string) error
}

// Retriever performs one remote file retrieval attempt.
type Retriever interface {
	Retrieve(ctx context.Context) error
}

// HostConfig wires a Host.
// Zero timeouts leave the corresponding call unbounded.
type HostConfig struct {
	Version         string
	Prober          Prober
	Retriever       Retriever
	Runner          tools.CommandRunner
	ShutdownCommand []string
	ProbeTimeout    time.Duration
	RetrieveTimeout time.Duration
}

// Host is the Provider backed by the local machine.
type Host struct {
	cfg HostConfig
}

func NewHost(cfg HostConfig) (*Host, error) {
	if strings.TrimSpace(cfg.Version) == "" {
		return nil, fmt.Errorf("%w: version is required", ErrInvalidHostConfig)
	}
	if width := protocol.OpVersion.PayloadWidth() - 1; len(cfg.Version) > width {
		return nil, fmt.Errorf("%w: version %q exceeds %d bytes", ErrInvalidHostConfig, cfg.Version, width)
	}
	if cfg.Prober == nil {
		return nil, fmt.Errorf("%w: prober is required", ErrInvalidHostConfig)
	}
	if cfg.Retriever == nil {
		return nil, fmt.Errorf("%w: retriever is required", ErrInvalidHostConfig)
	}
	if len(cfg.ShutdownCommand) == 0 {
		return nil, fmt.Errorf("%w: shutdown command is required", ErrInvalidHostConfig)
	}
	if cfg.Runner == nil {
		cfg.Runner = tools.ExecRunner{}
	}
	return &Host{cfg: cfg}, nil
}

func (h *Host) Version(context.Context) string {
	return h.cfg.Version
}

func (h *Host) Probe(ctx context.Context, address string) error {
	ctx, cancel := withOptionalTimeout(ctx, h.cfg.ProbeTimeout)
	defer cancel()
	return h.cfg.Prober.Probe(ctx, address)
}

func (h *Host) Retrieve(ctx context.Context) error {
	ctx, cancel := withOptionalTimeout(ctx, h.cfg.RetrieveTimeout)
	defer cancel()
	return h.cfg.Retriever.Retrieve(ctx)
}

// Shutdown runs the configured power-off command.
func (h *Host) Shutdown(ctx context.Context) error {
	log.Warn().Msgf("actions.Host.Shutdown command=%q", strings.Join(h.cfg.ShutdownCommand, " "))
	if err := runCommand(ctx, h.cfg.Runner, h.cfg.ShutdownCommand); err != nil {
		return fmt.Errorf("%w: %v", ErrShutdownFailed, err)
	}
	return nil
}

func withOptionalTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// runCommand runs argv and folds stderr into the error on failure.
func runCommand(ctx context.Context, runner tools.CommandRunner, argv []string) error {
	if len(argv) == 0 || strings.TrimSpace(argv[0]) == "" {
		return ErrEmptyCommand
	}
	_, stderr, code, err := runner.Run(ctx, argv[0], argv[1:]...)
	if err != nil {
		msg := strings.TrimSpace(string(stderr))
		if msg == "" {
			msg = err.Error()
		}
		return fmt.Errorf("%s exit=%d: %s", argv[0], code, msg)
	}
	return nil
}
