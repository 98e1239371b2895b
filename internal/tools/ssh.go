package tools

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

var ErrSSHConfig = errors.New("tools: invalid ssh config")

// SSHFetcher streams remote files over an SSH exec session with public-key auth.
type SSHFetcher struct {
	Host                        string
	Port                        string
	User                        string
	KeyPath                     string
	KnownHostsPath              string
	InsecureSkipHostKeyChecking bool
	// Timeout bounds the TCP dial and the SSH handshake, not the transfer.
	Timeout time.Duration
}

// Fetch copies the remote file at path into dst.
// The connection is torn down as soon as ctx is done.
func (f SSHFetcher) Fetch(ctx context.Context, path string, dst io.Writer) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("%w: remote path is required", ErrSSHConfig)
	}
	client, err := f.connect(ctx)
	if err != nil {
		return err
	}
	defer client.Close()
	stop := context.AfterFunc(ctx, func() { _ = client.Close() })
	defer stop()

	session, err := client.NewSession()
	if err != nil {
		return fmt.Errorf("ssh session: %w", err)
	}
	defer session.Close()

	var stderr bytes.Buffer
	session.Stdout = dst
	session.Stderr = &stderr
	if err := session.Run(quoteArgs("cat", "--", path)); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("ssh fetch %s: %w: %s", path, err, msg)
		}
		return fmt.Errorf("ssh fetch %s: %w", path, err)
	}
	return nil
}

func (f SSHFetcher) connect(ctx context.Context) (*ssh.Client, error) {
	addr, err := f.addr()
	if err != nil {
		return nil, err
	}
	cfg, err := f.clientConfig()
	if err != nil {
		return nil, err
	}

	dialer := net.Dialer{Timeout: f.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("ssh dial %s: %w", addr, err)
	}
	if f.Timeout > 0 {
		_ = conn.SetDeadline(time.Now().Add(f.Timeout))
	}
	c, chans, reqs, err := ssh.NewClientConn(conn, addr, cfg)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("ssh handshake %s: %w", addr, err)
	}
	_ = conn.SetDeadline(time.Time{})
	return ssh.NewClient(c, chans, reqs), nil
}

func (f SSHFetcher) addr() (string, error) {
	host := strings.TrimSpace(f.Host)
	switch {
	case host == "":
		return "", fmt.Errorf("%w: host is required", ErrSSHConfig)
	case f.Port != "":
		return net.JoinHostPort(host, f.Port), nil
	}
	if _, _, err := net.SplitHostPort(host); err == nil {
		return host, nil
	}
	return net.JoinHostPort(host, "22"), nil
}

func (f SSHFetcher) clientConfig() (*ssh.ClientConfig, error) {
	if strings.TrimSpace(f.User) == "" {
		return nil, fmt.Errorf("%w: user is required", ErrSSHConfig)
	}
	if strings.TrimSpace(f.KeyPath) == "" {
		return nil, fmt.Errorf("%w: key path is required", ErrSSHConfig)
	}
	pem, err := os.ReadFile(f.KeyPath)
	if err != nil {
		return nil, fmt.Errorf("ssh key: %w", err)
	}
	signer, err := ssh.ParsePrivateKey(pem)
	if err != nil {
		return nil, fmt.Errorf("ssh key %s: %w", f.KeyPath, err)
	}

	hostKeys := ssh.InsecureIgnoreHostKey()
	if !f.InsecureSkipHostKeyChecking {
		path := strings.TrimSpace(f.KnownHostsPath)
		if path == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return nil, fmt.Errorf("%w: known hosts path unset and no home dir", ErrSSHConfig)
			}
			path = filepath.Join(home, ".ssh", "known_hosts")
		}
		if hostKeys, err = knownhosts.New(path); err != nil {
			return nil, fmt.Errorf("ssh known hosts: %w", err)
		}
	}

	return &ssh.ClientConfig{
		User:            f.User,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(signer)},
		HostKeyCallback: hostKeys,
		Timeout:         f.Timeout,
	}, nil
}

// quoteArgs renders argv as a single POSIX shell command line.
func quoteArgs(argv ...string) string {
	quoted := make([]string, len(argv))
	for i, a := range argv {
		quoted[i] = "'" + strings.ReplaceAll(a, "'", `'\''`) + "'"
	}
	return strings.Join(quoted, " ")
}
