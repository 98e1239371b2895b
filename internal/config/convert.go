package config

import (
	"fmt"
	"strconv"

	"github.com/danmuck/uartctl/internal/actions"
	"github.com/danmuck/uartctl/internal/auth"
	"github.com/danmuck/uartctl/internal/tools"
	"github.com/danmuck/uartctl/internal/transport"
)

func (c Config) Transport() transport.Config {
	return transport.Config{
		Device:      c.Serial.Device,
		Baud:        c.Serial.Baud,
		DialTimeout: c.Serial.DialTimeout,
	}
}

// WarmupStep returns the warm-up to run before opening the link, or false when disabled.
func (c Config) WarmupStep(runner tools.CommandRunner) (transport.Warmup, bool) {
	if !c.Warmup.Enabled {
		return transport.Warmup{}, false
	}
	return transport.Warmup{Runner: runner, Command: c.Warmup.Command, Window: c.Warmup.Window}, true
}

// HostConfig maps the actions section onto the host action provider.
func (c Config) HostConfig(runner tools.CommandRunner) (actions.HostConfig, error) {
	a := c.Actions
	hc := actions.HostConfig{
		Version:         a.Version,
		Runner:          runner,
		ShutdownCommand: a.ShutdownCommand,
		ProbeTimeout:    a.ProbeTimeout,
		RetrieveTimeout: a.RetrieveTimeout,
	}
	switch a.ProbeMode {
	case ProbeExec:
		hc.Prober = actions.NewPingProber(runner, a.ProbeCommand)
	case ProbeRoute:
		hc.Prober = actions.RouteProber{}
	default:
		return actions.HostConfig{}, fmt.Errorf("%w: actions.probe_mode %q", ErrInvalid, a.ProbeMode)
	}
	switch a.RetrieveMode {
	case RetrieveExec:
		hc.Retriever = actions.CommandRetriever{Runner: runner, Command: a.RetrieveCommand}
	case RetrieveSSH:
		hc.Retriever = actions.StreamRetriever{
			Fetcher:    a.SSH.Fetcher(),
			RemotePath: a.SSH.RemotePath,
			LocalPath:  a.SSH.LocalPath,
		}
	default:
		return actions.HostConfig{}, fmt.Errorf("%w: actions.retrieve_mode %q", ErrInvalid, a.RetrieveMode)
	}
	return hc, nil
}

func (s SSHConfig) Fetcher() tools.SSHFetcher {
	port := ""
	if s.Port > 0 {
		port = strconv.Itoa(s.Port)
	}
	return tools.SSHFetcher{
		Host:                        s.Host,
		Port:                        port,
		User:                        s.User,
		KeyPath:                     s.KeyPath,
		KnownHostsPath:              s.KnownHostsPath,
		InsecureSkipHostKeyChecking: s.InsecureSkipHostKeyChecking,
		Timeout:                     s.Timeout,
	}
}

// MetricsAuth returns the validator for the status listener, nil when no token file is set.
func (c Config) MetricsAuth() (auth.Validator, error) {
	if c.Metrics.TokenFile == "" {
		return nil, nil
	}
	tok, err := auth.TokenFromFile(c.Metrics.TokenFile)
	if err != nil {
		return nil, err
	}
	return tok, nil
}
