package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// yamlFile mirrors tomlFile; nil fields were absent from the document.
type yamlFile struct {
	Serial struct {
		Device      *string `yaml:"device"`
		Baud        *int    `yaml:"baud"`
		DialTimeout *string `yaml:"dial_timeout"`
	} `yaml:"serial"`
	Warmup struct {
		Enabled *bool    `yaml:"enabled"`
		Command []string `yaml:"command"`
		Window  *string  `yaml:"window"`
	} `yaml:"warmup"`
	Actions struct {
		Version         *string  `yaml:"version"`
		Target          *string  `yaml:"target"`
		ProbeMode       *string  `yaml:"probe_mode"`
		ProbeCommand    []string `yaml:"probe_command"`
		ProbeTimeout    *string  `yaml:"probe_timeout"`
		RetrieveMode    *string  `yaml:"retrieve_mode"`
		RetrieveCommand []string `yaml:"retrieve_command"`
		RetrieveTimeout *string  `yaml:"retrieve_timeout"`
		ShutdownCommand []string `yaml:"shutdown_command"`
		SSH             struct {
			Host                        *string `yaml:"host"`
			Port                        *int    `yaml:"port"`
			User                        *string `yaml:"user"`
			KeyPath                     *string `yaml:"key_path"`
			KnownHostsPath              *string `yaml:"known_hosts_path"`
			InsecureSkipHostKeyChecking *bool   `yaml:"insecure_skip_host_key_checking"`
			Timeout                     *string `yaml:"timeout"`
			RemotePath                  *string `yaml:"remote_path"`
			LocalPath                   *string `yaml:"local_path"`
		} `yaml:"ssh"`
	} `yaml:"actions"`
	Metrics struct {
		Listen    *string `yaml:"listen"`
		TokenFile *string `yaml:"token_file"`
	} `yaml:"metrics"`
}

func loadYAML(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: load %s: %w", path, err)
	}
	var raw yamlFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("config: load %s: %w", path, err)
	}

	set := func(dst *string, src *string) {
		if src != nil {
			*dst = strings.TrimSpace(*src)
		}
	}
	setList := func(dst *[]string, src []string) {
		if src != nil {
			*dst = src
		}
	}
	var durErr error
	setDur := func(dst *time.Duration, src *string, key string) {
		if durErr != nil || src == nil {
			return
		}
		d, err := time.ParseDuration(strings.TrimSpace(*src))
		if err != nil {
			durErr = fmt.Errorf("config: parse %s: %w", key, err)
			return
		}
		*dst = d
	}

	set(&cfg.Serial.Device, raw.Serial.Device)
	if raw.Serial.Baud != nil {
		cfg.Serial.Baud = *raw.Serial.Baud
	}
	setDur(&cfg.Serial.DialTimeout, raw.Serial.DialTimeout, "serial.dial_timeout")

	if raw.Warmup.Enabled != nil {
		cfg.Warmup.Enabled = *raw.Warmup.Enabled
	}
	if raw.Warmup.Command != nil {
		cfg.Warmup.Command = raw.Warmup.Command
		cfg.warmupDerived = false
	}
	setDur(&cfg.Warmup.Window, raw.Warmup.Window, "warmup.window")

	a := raw.Actions
	set(&cfg.Actions.Version, a.Version)
	set(&cfg.Actions.Target, a.Target)
	set(&cfg.Actions.ProbeMode, a.ProbeMode)
	setList(&cfg.Actions.ProbeCommand, a.ProbeCommand)
	setDur(&cfg.Actions.ProbeTimeout, a.ProbeTimeout, "actions.probe_timeout")
	set(&cfg.Actions.RetrieveMode, a.RetrieveMode)
	setList(&cfg.Actions.RetrieveCommand, a.RetrieveCommand)
	setDur(&cfg.Actions.RetrieveTimeout, a.RetrieveTimeout, "actions.retrieve_timeout")
	setList(&cfg.Actions.ShutdownCommand, a.ShutdownCommand)

	set(&cfg.Actions.SSH.Host, a.SSH.Host)
	if a.SSH.Port != nil {
		cfg.Actions.SSH.Port = *a.SSH.Port
	}
	set(&cfg.Actions.SSH.User, a.SSH.User)
	set(&cfg.Actions.SSH.KeyPath, a.SSH.KeyPath)
	set(&cfg.Actions.SSH.KnownHostsPath, a.SSH.KnownHostsPath)
	if a.SSH.InsecureSkipHostKeyChecking != nil {
		cfg.Actions.SSH.InsecureSkipHostKeyChecking = *a.SSH.InsecureSkipHostKeyChecking
	}
	setDur(&cfg.Actions.SSH.Timeout, a.SSH.Timeout, "actions.ssh.timeout")
	set(&cfg.Actions.SSH.RemotePath, a.SSH.RemotePath)
	set(&cfg.Actions.SSH.LocalPath, a.SSH.LocalPath)

	set(&cfg.Metrics.Listen, raw.Metrics.Listen)
	set(&cfg.Metrics.TokenFile, raw.Metrics.TokenFile)
	return durErr
}
