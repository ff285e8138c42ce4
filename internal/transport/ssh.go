package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	nnerr "gonntp/internal/errors"
	"gonntp/util"
)

// SSHConfig holds everything needed to reach a news server through an
// SSH jump host.
type SSHConfig struct {
	User          string
	Host          string
	Port          int
	KeyPath       string
	PromptPass    bool
	UseAgent      bool
	StrictHostKey bool
	KnownHosts    string
	ConnTimeout   time.Duration
}

// SSHDialer forwards connections through an SSH jump host with
// direct-tcpip channels.  The SSH session is established lazily on the
// first Dial, re-established if it drops, and torn down on Close.
type SSHDialer struct {
	config SSHConfig
	logger *util.Logger

	mu     sync.Mutex
	client *ssh.Client
}

// NewSSHDialer creates a dialer for the jump host in cfg.
func NewSSHDialer(cfg SSHConfig, logger *util.Logger) *SSHDialer {
	if cfg.Port == 0 {
		cfg.Port = 22
	}
	if cfg.ConnTimeout == 0 {
		cfg.ConnTimeout = 30 * time.Second
	}
	return &SSHDialer{config: cfg, logger: logger}
}

// Dial opens a connection to address from the jump host.
func (d *SSHDialer) Dial(ctx context.Context, network, address string) (net.Conn, error) {
	client, err := d.connect(ctx)
	if err != nil {
		return nil, err
	}

	d.logger.Debug("ssh: forwarding %s %s", network, address)
	conn, err := client.DialContext(ctx, network, address)
	if err != nil {
		return nil, nnerr.WrapSSH("channel", d.config.Host, d.config.Port, err)
	}
	return conn, nil
}

// IsAlive reports whether the SSH session is up.
func (d *SSHDialer) IsAlive() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.client != nil
}

// Close shuts down the SSH session.
func (d *SSHDialer) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.client == nil {
		return nil
	}
	err := d.client.Close()
	d.client = nil
	return err
}

// connect returns the live session, establishing it if needed.
func (d *SSHDialer) connect(ctx context.Context) (*ssh.Client, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.client != nil {
		return d.client, nil
	}

	cfg := d.config
	authMethods, err := BuildAuthMethods(&cfg)
	if err != nil {
		return nil, nnerr.WrapSSH("auth", cfg.Host, cfg.Port, err)
	}
	hkCallback, err := hostKeyCallback(&cfg)
	if err != nil {
		return nil, nnerr.WrapSSH("hostkey", cfg.Host, cfg.Port, err)
	}

	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	d.logger.Verbose("ssh: connecting to %s as %s", addr, cfg.User)

	dialCtx, cancel := context.WithTimeout(ctx, cfg.ConnTimeout)
	defer cancel()

	var dialer net.Dialer
	tcpConn, err := dialer.DialContext(dialCtx, "tcp", addr)
	if err != nil {
		return nil, nnerr.Wrap("dial", addr, err)
	}

	// The SSH handshake itself does not take a context.
	stop := context.AfterFunc(dialCtx, func() { tcpConn.Close() })
	sshConn, chans, reqs, err := ssh.NewClientConn(tcpConn, addr, &ssh.ClientConfig{
		User:            cfg.User,
		Auth:            authMethods,
		HostKeyCallback: hkCallback,
		Timeout:         cfg.ConnTimeout,
	})
	if !stop() {
		if err == nil {
			sshConn.Close()
		}
		return nil, nnerr.Wrap("handshake", addr, dialCtx.Err())
	}
	if err != nil {
		tcpConn.Close()
		return nil, nnerr.WrapSSH("handshake", cfg.Host, cfg.Port, handshakeCause(err))
	}

	client := ssh.NewClient(sshConn, chans, reqs)
	d.client = client
	go d.monitor(client)

	d.logger.Verbose("ssh: session established")
	return client, nil
}

// handshakeCause tags the handshake failures a user can act on.
func handshakeCause(err error) error {
	var keyErr *knownhosts.KeyError
	switch {
	case errors.As(err, &keyErr) && len(keyErr.Want) > 0,
		strings.Contains(err.Error(), "key mismatch"):
		return fmt.Errorf("%w: %w", nnerr.ErrHostKeyMismatch, err)
	case strings.Contains(err.Error(), "unable to authenticate"):
		return fmt.Errorf("%w: %w", nnerr.ErrAuthFailed, err)
	}
	return err
}

// monitor blocks until client's connection ends and forgets it so the
// next Dial reconnects.
func (d *SSHDialer) monitor(client *ssh.Client) {
	err := client.Wait()

	d.mu.Lock()
	if d.client == client {
		d.client = nil
	}
	d.mu.Unlock()

	if err != nil {
		d.logger.Debug("ssh: session closed: %v", err)
	} else {
		d.logger.Debug("ssh: session closed")
	}
}
