package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

type tomlFile struct {
	Serial struct {
		Device      string `toml:"device"`
		Baud        int    `toml:"baud"`
		DialTimeout string `toml:"dial_timeout"`
	} `toml:"serial"`
	Warmup struct {
		Enabled bool     `toml:"enabled"`
		Command []string `toml:"command"`
		Window  string   `toml:"window"`
	} `toml:"warmup"`
	Actions struct {
		Version         string   `toml:"version"`
		Target          string   `toml:"target"`
		ProbeMode       string   `toml:"probe_mode"`
		ProbeCommand    []string `toml:"probe_command"`
		ProbeTimeout    string   `toml:"probe_timeout"`
		RetrieveMode    string   `toml:"retrieve_mode"`
		RetrieveCommand []string `toml:"retrieve_command"`
		RetrieveTimeout string   `toml:"retrieve_timeout"`
		ShutdownCommand []string `toml:"shutdown_command"`
		SSH             struct {
			Host                        string `toml:"host"`
			Port                        int    `toml:"port"`
			User                        string `toml:"user"`
			KeyPath                     string `toml:"key_path"`
			KnownHostsPath              string `toml:"known_hosts_path"`
			InsecureSkipHostKeyChecking bool   `toml:"insecure_skip_host_key_checking"`
			Timeout                     string `toml:"timeout"`
			RemotePath                  string `toml:"remote_path"`
			LocalPath                   string `toml:"local_path"`
		} `toml:"ssh"`
	} `toml:"actions"`
	Metrics struct {
		Listen    string `toml:"listen"`
		TokenFile string `toml:"token_file"`
	} `toml:"metrics"`
}

// loadTOML overlays only the keys present in the file onto cfg.
func loadTOML(path string, cfg *Config) error {
	var raw tomlFile
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return fmt.Errorf("config: load %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return fmt.Errorf("%w: unknown keys in %s: %s", ErrInvalid, path, strings.Join(keys, ", "))
	}

	set := func(dst *string, src string, key ...string) {
		if meta.IsDefined(key...) {
			*dst = strings.TrimSpace(src)
		}
	}
	setList := func(dst *[]string, src []string, key ...string) {
		if meta.IsDefined(key...) {
			*dst = src
		}
	}
	var durErr error
	setDur := func(dst *time.Duration, src string, key ...string) {
		if durErr != nil || !meta.IsDefined(key...) {
			return
		}
		d, err := time.ParseDuration(strings.TrimSpace(src))
		if err != nil {
			durErr = fmt.Errorf("config: parse %s: %w", strings.Join(key, "."), err)
			return
		}
		*dst = d
	}

	set(&cfg.Serial.Device, raw.Serial.Device, "serial", "device")
	if meta.IsDefined("serial", "baud") {
		cfg.Serial.Baud = raw.Serial.Baud
	}
	setDur(&cfg.Serial.DialTimeout, raw.Serial.DialTimeout, "serial", "dial_timeout")

	if meta.IsDefined("warmup", "enabled") {
		cfg.Warmup.Enabled = raw.Warmup.Enabled
	}
	if meta.IsDefined("warmup", "command") {
		cfg.Warmup.Command = raw.Warmup.Command
		cfg.warmupDerived = false
	}
	setDur(&cfg.Warmup.Window, raw.Warmup.Window, "warmup", "window")

	a := raw.Actions
	set(&cfg.Actions.Version, a.Version, "actions", "version")
	set(&cfg.Actions.Target, a.Target, "actions", "target")
	set(&cfg.Actions.ProbeMode, a.ProbeMode, "actions", "probe_mode")
	setList(&cfg.Actions.ProbeCommand, a.ProbeCommand, "actions", "probe_command")
	setDur(&cfg.Actions.ProbeTimeout, a.ProbeTimeout, "actions", "probe_timeout")
	set(&cfg.Actions.RetrieveMode, a.RetrieveMode, "actions", "retrieve_mode")
	setList(&cfg.Actions.RetrieveCommand, a.RetrieveCommand, "actions", "retrieve_command")
	setDur(&cfg.Actions.RetrieveTimeout, a.RetrieveTimeout, "actions", "retrieve_timeout")
	setList(&cfg.Actions.ShutdownCommand, a.ShutdownCommand, "actions", "shutdown_command")

	set(&cfg.Actions.SSH.Host, a.SSH.Host, "actions", "ssh", "host")
	if meta.IsDefined("actions", "ssh", "port") {
		cfg.Actions.SSH.Port = a.SSH.Port
	}
	set(&cfg.Actions.SSH.User, a.SSH.User, "actions", "ssh", "user")
	set(&cfg.Actions.SSH.KeyPath, a.SSH.KeyPath, "actions", "ssh", "key_path")
	set(&cfg.Actions.SSH.KnownHostsPath, a.SSH.KnownHostsPath, "actions", "ssh", "known_hosts_path")
	if meta.IsDefined("actions", "ssh", "insecure_skip_host_key_checking") {
		cfg.Actions.SSH.InsecureSkipHostKeyChecking = a.SSH.InsecureSkipHostKeyChecking
	}
	setDur(&cfg.Actions.SSH.Timeout, a.SSH.Timeout, "actions", "ssh", "timeout")
	set(&cfg.Actions.SSH.RemotePath, a.SSH.RemotePath, "actions", "ssh", "remote_path")
	set(&cfg.Actions.SSH.LocalPath, a.SSH.LocalPath, "actions", "ssh", "local_path")

	set(&cfg.Metrics.Listen, raw.Metrics.Listen, "metrics", "listen")
	set(&cfg.Metrics.TokenFile, raw.Metrics.TokenFile, "metrics", "token_file")
	return durErr
}
