package config

import (
	"fmt"
	"os"
	"strings"
)

// Template returns a commented sample configuration in the given format.
func Template(format string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "toml":
		return tomlTemplate, nil
	case "yaml", "yml":
		return yamlTemplate, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

func WriteTemplate(path, format string, overwrite bool) error {
	template, err := Template(format)
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config: %s already exists", path)
		}
	}
	return os.WriteFile(path, []byte(template), 0o600)
}

const tomlTemplate = `[serial]
# device path, tcp://host:port or tcp-listen://addr
device = "/dev/ttyO4"
baud = 9600
dial_timeout = "5s"

[warmup]
enabled = true
window = "2s"
# command defaults to minicom against serial.device

[actions]
version = "01.00"
target = "192.168.0.101"
probe_mode = "exec"
probe_command = ["ping", "-c", "1"]
probe_timeout = "5s"
retrieve_mode = "exec"
retrieve_command = ["scp", "-q", "-o", "BatchMode=yes", "root@192.168.0.101:/var/lib/uartctl/data.bin", "/var/tmp/data.bin"]
retrieve_timeout = "30s"
shutdown_command = ["sudo", "systemctl", "poweroff"]

[actions.ssh]
# used when retrieve_mode = "ssh"
host = ""
port = 22
user = "root"
key_path = ""
known_hosts_path = ""
timeout = "10s"
remote_path = ""
local_path = ""

[metrics]
# empty disables the /metrics and /healthz listener
listen = ""
# file holding a bearer token required on both routes; empty leaves them open
token_file = ""
`

const yamlTemplate = `serial:
  # device path, tcp://host:port or tcp-listen://addr
  device: /dev/ttyO4
  baud: 9600
  dial_timeout: 5s

warmup:
  enabled: true
  window: 2s

actions:
  version: "01.00"
  target: 192.168.0.101
  probe_mode: exec
  probe_command: [ping, -c, "1"]
  probe_timeout: 5s
  retrieve_mode: exec
  retrieve_command: [scp, -q, -o, BatchMode=yes, "root@192.168.0.101:/var/lib/uartctl/data.bin", /var/tmp/data.bin]
  retrieve_timeout: 30s
  shutdown_command: [sudo, systemctl, poweroff]
  ssh:
    port: 22
    user: root
    timeout: 10s

metrics:
  listen: ""
  token_file: ""
`
