package main

import (
	"context"
	"fmt"

	"github.com/danmuck/uartctl/internal/actions"
	"github.com/danmuck/uartctl/internal/config"
	"github.com/danmuck/uartctl/internal/dispatch"
	"github.com/danmuck/uartctl/internal/engine"
	"github.com/danmuck/uartctl/internal/observability"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newServeCmd(opts *rootOptions, d deps) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Answer controller commands on the configured link",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg, d)
		},
	}
}

// serve warms up and opens the link, then runs the engine until ctx is done
// or the link fails. The engine closes the link on cancellation once the
// current frame is answered; it is always closed before returning.
func serve(ctx context.Context, cfg config.Config, d deps) error {
	observability.RegisterMetrics()

	hc, err := cfg.HostConfig(d.runner)
	if err != nil {
		return err
	}
	host, err := actions.NewHost(hc)
	if err != nil {
		return err
	}
	validator, err := cfg.MetricsAuth()
	if err != nil {
		return err
	}

	if w, ok := cfg.WarmupStep(d.runner); ok {
		if err := w.Run(ctx); err != nil {
			log.Warn().Err(err).Msgf("uartctl.serve warmup failed device=%q, continuing", cfg.Serial.Device)
		}
	}

	link, err := d.open(ctx, cfg.Transport())
	if err != nil {
		return fmt.Errorf("open %s: %w", cfg.Serial.Device, err)
	}
	defer link.Close()

	e := engine.New(link, dispatch.New(host, cfg.Actions.Target))
	if addr := cfg.Metrics.Listen; addr != "" {
		metricsCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		go func() {
			if err := observability.Serve(metricsCtx, addr, e.Status, validator); err != nil {
				log.Error().Err(err).Msgf("uartctl.serve metrics listener addr=%q", addr)
			}
		}()
	}

	log.Info().Msgf("uartctl.serve device=%q target=%q version=%q session=%s", cfg.Serial.Device, cfg.Actions.Target, cfg.Actions.Version, e.SessionID())
	return e.Run(ctx)
}
