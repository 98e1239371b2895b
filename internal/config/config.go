// Package config loads and validates the uartctl runtime configuration.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/danmuck/uartctl/internal/protocol"
	"github.com/danmuck/uartctl/internal/transport"
)

const (
	ProbeExec    = "exec"
	ProbeRoute   = "route"
	RetrieveExec = "exec"
	RetrieveSSH  = "ssh"
)

var (
	ErrInvalid           = errors.New("config: invalid")
	ErrUnsupportedFormat = errors.New("config: unsupported file format")
)

// Config is the full runtime configuration for serve and send.
type Config struct {
	Serial  SerialConfig
	Warmup  WarmupConfig
	Actions ActionsConfig
	Metrics MetricsConfig

	// warmupDerived is set while Warmup.Command still follows Serial.
	warmupDerived bool
}

type SerialConfig struct {
	Device      string
	Baud        int
	DialTimeout time.Duration
}

type WarmupConfig struct {
	Enabled bool
	Command []string
	Window  time.Duration
}

// ActionsConfig selects how each device action is carried out on the host.
type ActionsConfig struct {
	Version         string
	Target          string
	ProbeMode       string
	ProbeCommand    []string
	ProbeTimeout    time.Duration
	RetrieveMode    string
	RetrieveCommand []string
	RetrieveTimeout time.Duration
	ShutdownCommand []string
	SSH             SSHConfig
}

// SSHConfig is used when RetrieveMode is ssh.
type SSHConfig struct {
	Host                        string
	Port                        int
	User                        string
	KeyPath                     string
	KnownHostsPath              string
	InsecureSkipHostKeyChecking bool
	Timeout                     time.Duration
	RemotePath                  string
	LocalPath                   string
}

// MetricsConfig controls the HTTP status listener; an empty Listen disables it.
type MetricsConfig struct {
	Listen    string
	TokenFile string
}

func DefaultConfig() Config {
	device := "/dev/ttyO4"
	baud := 9600
	return Config{
		Serial: SerialConfig{
			Device:      device,
			Baud:        baud,
			DialTimeout: 5 * time.Second,
		},
		Warmup: WarmupConfig{
			Enabled: true,
			Command: transport.DefaultWarmupCommand(device, baud),
			Window:  transport.DefaultWarmupWindow,
		},
		Actions: ActionsConfig{
			Version:         protocol.FirmwareVersion,
			Target:          protocol.DefaultTarget,
			ProbeMode:       ProbeExec,
			ProbeCommand:    []string{"ping", "-c", "1"},
			ProbeTimeout:    5 * time.Second,
			RetrieveMode:    RetrieveExec,
			RetrieveCommand: []string{"scp", "-q", "-o", "BatchMode=yes", "root@" + protocol.DefaultTarget + ":/var/lib/uartctl/data.bin", "/var/tmp/data.bin"},
			RetrieveTimeout: 30 * time.Second,
			ShutdownCommand: []string{"sudo", "systemctl", "poweroff"},
			SSH: SSHConfig{
				Port:    22,
				User:    "root",
				Timeout: 10 * time.Second,
			},
		},
		warmupDerived: true,
	}
}

// Overrides are command-line values applied over a loaded file.
// Zero fields are ignored.
type Overrides struct {
	Device        string
	Baud          int
	Target        string
	MetricsListen string
}

// Apply sets every non-zero override and validates the result.
func (c *Config) Apply(o Overrides) error {
	if v := strings.TrimSpace(o.Device); v != "" {
		c.Serial.Device = v
	}
	if o.Baud != 0 {
		c.Serial.Baud = o.Baud
	}
	if v := strings.TrimSpace(o.Target); v != "" {
		c.Actions.Target = v
	}
	if v := strings.TrimSpace(o.MetricsListen); v != "" {
		c.Metrics.Listen = v
	}
	c.deriveWarmup()
	return c.Validate()
}

// deriveWarmup points the default warm-up command at the configured device.
// Network links have no UART to warm up.
func (c *Config) deriveWarmup() {
	if c.warmupDerived {
		c.Warmup.Command = transport.DefaultWarmupCommand(c.Serial.Device, c.Serial.Baud)
	}
	if transport.IsNetwork(c.Serial.Device) {
		c.Warmup.Enabled = false
	}
}

// Load reads path over DefaultConfig and validates the result.
// The format follows the extension: .toml, .yaml or .yml.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		err = loadTOML(path, &cfg)
	case ".yaml", ".yml":
		err = loadYAML(path, &cfg)
	default:
		return Config{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, path)
	}
	if err != nil {
		return Config{}, err
	}
	cfg.deriveWarmup()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that the configuration can be served on the fixed-width wire.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Serial.Device) == "" {
		return fmt.Errorf("%w: serial.device is required", ErrInvalid)
	}
	if !transport.IsNetwork(c.Serial.Device) && !transport.SupportedBaud(c.Serial.Baud) {
		return fmt.Errorf("%w: serial.baud %d unsupported", ErrInvalid, c.Serial.Baud)
	}
	if c.Serial.DialTimeout < 0 {
		return fmt.Errorf("%w: serial.dial_timeout must not be negative", ErrInvalid)
	}
	if c.Warmup.Enabled {
		if len(c.Warmup.Command) == 0 || strings.TrimSpace(c.Warmup.Command[0]) == "" {
			return fmt.Errorf("%w: warmup.command is required when warmup is enabled", ErrInvalid)
		}
		if c.Warmup.Window <= 0 {
			return fmt.Errorf("%w: warmup.window must be positive", ErrInvalid)
		}
	}
	return c.Actions.validate()
}

func (a ActionsConfig) validate() error {
	if err := fitsPayload(protocol.OpVersion, "actions.version", a.Version); err != nil {
		return err
	}
	if err := fitsPayload(protocol.OpPing, "actions.target", a.Target); err != nil {
		return err
	}
	// a reachable target must never be mistaken for the failure literal
	if a.Target == protocol.PingFailure {
		return fmt.Errorf("%w: actions.target collides with %q", ErrInvalid, protocol.PingFailure)
	}
	switch a.ProbeMode {
	case ProbeExec:
		if len(a.ProbeCommand) == 0 {
			return fmt.Errorf("%w: actions.probe_command is required for probe mode %q", ErrInvalid, ProbeExec)
		}
	case ProbeRoute:
	default:
		return fmt.Errorf("%w: actions.probe_mode %q (want %s|%s)", ErrInvalid, a.ProbeMode, ProbeExec, ProbeRoute)
	}
	switch a.RetrieveMode {
	case RetrieveExec:
		if len(a.RetrieveCommand) == 0 {
			return fmt.Errorf("%w: actions.retrieve_command is required for retrieve mode %q", ErrInvalid, RetrieveExec)
		}
	case RetrieveSSH:
		if err := a.SSH.validate(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("%w: actions.retrieve_mode %q (want %s|%s)", ErrInvalid, a.RetrieveMode, RetrieveExec, RetrieveSSH)
	}
	if len(a.ShutdownCommand) == 0 {
		return fmt.Errorf("%w: actions.shutdown_command is required", ErrInvalid)
	}
	if a.ProbeTimeout < 0 || a.RetrieveTimeout < 0 {
		return fmt.Errorf("%w: action timeouts must not be negative", ErrInvalid)
	}
	return nil
}

func (s SSHConfig) validate() error {
	switch {
	case strings.TrimSpace(s.Host) == "":
		return fmt.Errorf("%w: actions.ssh.host is required", ErrInvalid)
	case strings.TrimSpace(s.KeyPath) == "":
		return fmt.Errorf("%w: actions.ssh.key_path is required", ErrInvalid)
	case strings.TrimSpace(s.RemotePath) == "" || strings.TrimSpace(s.LocalPath) == "":
		return fmt.Errorf("%w: actions.ssh.remote_path and local_path are required", ErrInvalid)
	case s.Port < 0 || s.Port > 65535:
		return fmt.Errorf("%w: actions.ssh.port %d out of range", ErrInvalid, s.Port)
	case !s.InsecureSkipHostKeyChecking && strings.TrimSpace(s.KnownHostsPath) == "":
		return fmt.Errorf("%w: actions.ssh.known_hosts_path is required unless host key checking is disabled", ErrInvalid)
	}
	return nil
}

func fitsPayload(op protocol.Opcode, field, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%w: %s is required", ErrInvalid, field)
	}
	if max := op.PayloadWidth() - 1; len(value) > max {
		return fmt.Errorf("%w: %s %q exceeds %d bytes", ErrInvalid, field, value, max)
	}
	return nil
}
