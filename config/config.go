// Package config defines the runtime configuration for the gonntp
// command and provides helpers for parsing ports and jump-host
// specifications.
package config

import (
	"fmt"
	"net"
	"regexp"
	"strconv"
	"strings"
	"time"

	nnerr "gonntp/internal/errors"
	"gonntp/stream"
)

// Backend names accepted by --backend.
const (
	BackendAuto  = "auto"
	BackendTLS   = "tls"
	BackendNoise = "noise"
	BackendPlain = "plain"
)

// Config holds every tuneable for a single gonntp invocation.
type Config struct {
	// ── Connection ───────────────────────────────────────────────────
	Host      string
	Port      int // 0 picks DefaultPort or DefaultTLSPort
	LocalAddr string
	LocalPort int // source port, 0 = ephemeral
	Timeout   time.Duration
	KeepAlive time.Duration // 0 = net default, negative disables
	NoDNS     bool
	Retries   int

	// ── Encryption ───────────────────────────────────────────────────
	TLS           bool   // -s: request an encrypted session
	Backend       string // auto, tls, noise, plain
	CAFile        string
	KnownKeysPath string
	NoiseKeyPath  string

	// ── SSH jump host ────────────────────────────────────────────────
	TunnelSpec     string // raw user@host[:port] from -T
	TunnelEnabled  bool
	TunnelUser     string
	TunnelHost     string
	TunnelPort     int
	SSHKeyPath     string
	SSHPassword    bool // true → prompt interactively
	UseSSHAgent    bool
	StrictHostKey  bool
	KnownHostsPath string

	// ── Session ──────────────────────────────────────────────────────
	Interactive bool // -i: relay stdin/stdout after the greeting
	DryRun      bool
	ShowMetrics bool

	// ── Output ───────────────────────────────────────────────────────
	Verbose int
}

// Mode reports the encryption mode the configuration asks for.
func (c *Config) Mode() stream.Mode {
	if c.TLS || c.Backend == BackendTLS || c.Backend == BackendNoise {
		return stream.Encrypted
	}
	return stream.Plain
}

// EffectivePort returns Port, or the well-known port for the mode.
func (c *Config) EffectivePort() int {
	if c.Port != 0 {
		return c.Port
	}
	if c.Mode() == stream.Encrypted {
		return DefaultTLSPort
	}
	return DefaultPort
}

// ── Port helper ──────────────────────────────────────────────────────

// ParsePort accepts a port number or the service names "nntp" and
// "nntps".
func ParsePort(spec string) (int, error) {
	switch strings.ToLower(spec) {
	case "nntp":
		return DefaultPort, nil
	case "nntps", "snews":
		return DefaultTLSPort, nil
	}
	port, err := strconv.Atoi(spec)
	if err != nil {
		return 0, fmt.Errorf("invalid port %q", spec)
	}
	if port < 1 || port > 65535 {
		return 0, fmt.Errorf("port %d out of range 1-65535", port)
	}
	return port, nil
}

// ── Jump-host spec parser ────────────────────────────────────────────

// tunnelRe matches [user@]host[:port].
var tunnelRe = regexp.MustCompile(`^(?:([^@]+)@)?([^:]+)(?::(\d+))?$`)

// ParseTunnelSpec extracts user, host, and port from a string such as
// "admin@bastion.example.com:2222".  Port defaults to 22.
func ParseTunnelSpec(spec string) (user, host string, port int, err error) {
	m := tunnelRe.FindStringSubmatch(spec)
	if m == nil {
		return "", "", 0, fmt.Errorf("invalid jump host spec %q, expected [user@]host[:port]", spec)
	}
	user = m[1]
	host = m[2]
	port = DefaultSSHPort
	if m[3] != "" {
		port, err = strconv.Atoi(m[3])
		if err != nil || port < 1 || port > 65535 {
			return "", "", 0, fmt.Errorf("invalid jump host port %q", m[3])
		}
	}
	if host == "" {
		return "", "", 0, fmt.Errorf("jump host is required")
	}
	return user, host, port, nil
}

// ── Validation ───────────────────────────────────────────────────────

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	if c.Host == "" {
		return &nnerr.ConfigError{
			Field:   "host",
			Message: "hostname is required",
			Hint:    "usage: gonntp [flags] host [port]",
		}
	}
	if c.Port < 0 || c.Port > 65535 {
		return &nnerr.ConfigError{Field: "port", Value: c.Port, Message: "out of range 1-65535"}
	}
	if c.LocalPort < 0 || c.LocalPort > 65535 {
		return &nnerr.ConfigError{Field: "local-port", Value: c.LocalPort, Message: "out of range 0-65535"}
	}
	if c.NoDNS && net.ParseIP(strings.Trim(c.Host, "[]")) == nil {
		return &nnerr.ConfigError{
			Field:   "nodns",
			Value:   c.Host,
			Message: "host is not a numeric address",
			Hint:    "drop -n or pass an IP address",
		}
	}

	switch c.Backend {
	case "", BackendAuto, BackendTLS, BackendNoise, BackendPlain:
	default:
		return &nnerr.ConfigError{
			Field:   "backend",
			Value:   c.Backend,
			Message: "unknown backend",
			Hint:    "choose one of auto, tls, noise, plain",
		}
	}
	if c.TLS && c.Backend == BackendPlain {
		return &nnerr.ConfigError{
			Field:   "backend",
			Value:   c.Backend,
			Message: "cannot encrypt with the plain backend",
			Hint:    "drop -s, or pick --backend=tls or --backend=noise",
		}
	}
	if c.CAFile != "" && c.Backend == BackendNoise {
		return &nnerr.ConfigError{Field: "ca-file", Value: c.CAFile, Message: "only applies to the tls backend"}
	}
	if (c.KnownKeysPath != "" || c.NoiseKeyPath != "") && c.Backend == BackendTLS {
		return &nnerr.ConfigError{
			Field:   "known-keys",
			Message: "Noise keys only apply to the noise backend",
			Hint:    "add --backend=noise",
		}
	}

	if c.Retries < 0 {
		return &nnerr.ConfigError{Field: "retries", Value: c.Retries, Message: "must not be negative"}
	}
	if c.Timeout < 0 {
		return &nnerr.ConfigError{Field: "wait", Value: c.Timeout, Message: "must not be negative"}
	}
	if c.Interactive && c.DryRun {
		return &nnerr.ConfigError{Field: "dry-run", Message: "cannot be combined with -i"}
	}

	if c.TunnelEnabled && c.TunnelHost == "" {
		return &nnerr.ConfigError{
			Field:   "tunnel",
			Value:   c.TunnelSpec,
			Message: "jump host is required",
			Hint:    "use -T user@host[:port]",
		}
	}
	return nil
}
