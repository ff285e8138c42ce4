package config

import "time"

// ── Default values ───────────────────────────────────────────────────
//
// All tuneable defaults live here so they are easy to audit and reuse
// across CLI flags and environment variable loading.

const (
	// DefaultPort is the NNTP port.
	DefaultPort = 119

	// DefaultTLSPort is the port for NNTP with implicit encryption.
	DefaultTLSPort = 563

	// DefaultSSHPort is the standard SSH port.
	DefaultSSHPort = 22

	// DefaultBackend lets the build pick its preferred backend.
	DefaultBackend = BackendAuto

	// DefaultConnTimeout bounds dialing, the handshake and the greeting.
	DefaultConnTimeout = 30 * time.Second

	// DefaultRetryDelay is the wait before the first retry.
	DefaultRetryDelay = 1 * time.Second

	// DefaultMaxRetryBackoff caps the exponential backoff between
	// connection attempts.
	DefaultMaxRetryBackoff = 30 * time.Second
)
