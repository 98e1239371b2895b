package main

import (
	"context"
	"strings"

	"github.com/danmuck/uartctl/internal/config"
	"github.com/danmuck/uartctl/internal/tools"
	"github.com/danmuck/uartctl/internal/transport"
	"github.com/spf13/cobra"
)

// deps are the process boundaries the commands reach through.
type deps struct {
	runner tools.CommandRunner
	open   func(ctx context.Context, cfg transport.Config) (transport.Link, error)
}

func defaultDeps() deps {
	return deps{
		runner: tools.ExecRunner{},
		open:   transport.Open,
	}
}

type rootOptions struct {
	configPath    string
	device        string
	baud          int
	target        string
	metricsListen string
}

// load reads the config file when one is given and applies flag overrides.
func (o *rootOptions) load() (config.Config, error) {
	cfg := config.DefaultConfig()
	if path := strings.TrimSpace(o.configPath); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return config.Config{}, err
		}
		cfg = loaded
	}
	err := cfg.Apply(config.Overrides{
		Device:        o.device,
		Baud:          o.baud,
		Target:        o.target,
		MetricsListen: o.metricsListen,
	})
	if err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func newRootCmd(d deps) *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "uartctl",
		Short:         "Serial command/response engine and controller",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "config file (.toml, .yaml or .yml)")
	flags.StringVar(&opts.device, "device", "", "serial device, tcp://host:port or tcp-listen://addr")
	flags.IntVar(&opts.baud, "baud", 0, "serial baud rate")
	flags.StringVar(&opts.target, "target", "", "address probed by PING")
	flags.StringVar(&opts.metricsListen, "metrics-listen", "", "address for /metrics and /healthz")

	root.AddCommand(
		newServeCmd(opts, d),
		newSendCmd(opts, d),
		newConfigCmd(),
		newVersionCmd(),
	)
	return root
}
