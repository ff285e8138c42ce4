package stream

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/base64"
	"fmt"
	"os"
	"strings"

	"golang.org/x/crypto/curve25519"

	nnerr "gonntp/internal/errors"
)

// Re-exported causes so callers can test with errors.Is without
// importing internal packages.
var (
	ErrNotEnabled     = nnerr.ErrNotEnabled
	ErrInvalidDNSName = nnerr.ErrInvalidDNSName
	ErrUnknownHostKey = nnerr.ErrUnknownHostKey
)

// Connector selects and parameterises the backend that performs an
// encrypted handshake.  A nil Connector means "the highest-priority
// backend compiled into this build".  The set of connectors is closed.
type Connector interface {
	backendName() string
}

// PlainConnector requests no encryption backend at all.  Combined with
// Encrypted mode it always fails with ErrNotEnabled.
type PlainConnector struct{}

// TLSConnector selects the TLS backend.  Config may be nil for the
// defaults (system roots, TLS 1.2 minimum); a non-nil Config is shared
// and never modified.
type TLSConnector struct {
	Config *tls.Config
}

// NoiseConnector selects the Noise backend.  Config may be nil to load
// the known-keys store from its default location.
type NoiseConnector struct {
	Config *NoiseConfig
}

func (PlainConnector) backendName() string { return "plain" }
func (TLSConnector) backendName() string   { return "tls" }
func (NoiseConnector) backendName() string { return "noise" }

// BackendName reports which backend c selects, or "default" when c is
// nil or a nil pointer.
func BackendName(c Connector) string {
	if absent(c) {
		return "default"
	}
	return c.backendName()
}

// absent reports whether c carries no connector, including typed nils.
func absent(c Connector) bool {
	switch p := c.(type) {
	case nil:
		return true
	case *PlainConnector:
		return p == nil
	case *TLSConnector:
		return p == nil
	case *NoiseConnector:
		return p == nil
	}
	return false
}

func tlsConfigOf(c Connector) *tls.Config {
	switch tc := c.(type) {
	case TLSConnector:
		return tc.Config
	case *TLSConnector:
		if tc != nil {
			return tc.Config
		}
	}
	return nil
}

func noiseConfigOf(c Connector) *NoiseConfig {
	switch nc := c.(type) {
	case NoiseConnector:
		return nc.Config
	case *NoiseConnector:
		if nc != nil {
			return nc.Config
		}
	}
	return nil
}

// LoadCertPool reads PEM certificates from path into a new pool, for use
// as tls.Config.RootCAs.
func LoadCertPool(path string) (*x509.CertPool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading CA file: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(data) {
		return nil, fmt.Errorf("no certificates found in %s", path)
	}
	return pool, nil
}

// ── Noise configuration ──────────────────────────────────────────────

// KeyPair is an X25519 key pair.
type KeyPair struct {
	Private []byte
	Public  []byte
}

// KeyPairFromPrivate derives the public half of a 32-byte private key.
func KeyPairFromPrivate(priv []byte) (KeyPair, error) {
	if len(priv) != curve25519.ScalarSize {
		return KeyPair{}, fmt.Errorf("private key must be %d bytes, got %d", curve25519.ScalarSize, len(priv))
	}
	pub, err := curve25519.X25519(priv, curve25519.Basepoint)
	if err != nil {
		return KeyPair{}, fmt.Errorf("deriving public key: %w", err)
	}
	return KeyPair{Private: append([]byte(nil), priv...), Public: pub}, nil
}

// LoadKeyPair reads a base64-encoded private key from path.
func LoadKeyPair(path string) (KeyPair, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return KeyPair{}, fmt.Errorf("reading key: %w", err)
	}
	priv, err := base64.StdEncoding.DecodeString(strings.TrimSpace(string(data)))
	if err != nil {
		return KeyPair{}, fmt.Errorf("decoding key %s: %w", path, err)
	}
	return KeyPairFromPrivate(priv)
}

// NoiseConfig holds the trust and identity settings of the Noise
// backend.  It is immutable once built, so one value can back any
// number of connectors.
type NoiseConfig struct {
	knownKeys KnownKeys
	static    *KeyPair
	prologue  []byte
}

// NoiseOption customises a NoiseConfig.
type NoiseOption func(*NoiseConfig)

// WithClientKey authenticates the client with kp (IK pattern instead of
// NK).
func WithClientKey(kp KeyPair) NoiseOption {
	return func(c *NoiseConfig) {
		c.static = &KeyPair{
			Private: append([]byte(nil), kp.Private...),
			Public:  append([]byte(nil), kp.Public...),
		}
	}
}

// WithPrologue overrides the handshake prologue both sides must share.
func WithPrologue(p []byte) NoiseOption {
	return func(c *NoiseConfig) {
		c.prologue = append([]byte(nil), p...)
	}
}

// NewNoiseConfig builds a configuration trusting the given keys.
func NewNoiseConfig(keys KnownKeys, opts ...NoiseOption) *NoiseConfig {
	c := &NoiseConfig{knownKeys: keys.clone()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// DefaultNoiseConfig trusts the keys in the default known-keys store.
// A missing store yields a configuration that trusts nobody.
func DefaultNoiseConfig() (*NoiseConfig, error) {
	keys, err := LoadDefaultKnownKeys()
	if err != nil {
		return nil, err
	}
	return NewNoiseConfig(keys), nil
}

// KnownKeys returns a copy of the trusted keys.
func (c *NoiseConfig) KnownKeys() KnownKeys { return c.knownKeys.clone() }

// HasClientKey reports whether the client authenticates itself.
func (c *NoiseConfig) HasClientKey() bool { return c.static != nil }
