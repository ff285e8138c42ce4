package config

// loader.go - configuration loading from environment variables.
//
// Precedence order (highest wins):
//   1. CLI flags  (handled by cmd/root.go)
//   2. Environment variables  (this file)
//   3. Defaults   (defaults.go)

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// ── Environment variable mapping ─────────────────────────────────────
//
// Every supported env var uses the GONNTP_ prefix.  Boolean values
// accept "1", "true", "yes" (case-insensitive).

// LoadFromEnv overlays environment variables onto cfg.  Only non-empty
// env vars override the existing value.  This should be called BEFORE
// CLI flag parsing so that flags take precedence.
func LoadFromEnv(cfg *Config) {
	if v := os.Getenv("GONNTP_HOST"); v != "" {
		cfg.Host = v
	}
	if v := os.Getenv("GONNTP_PORT"); v != "" {
		if p, err := ParsePort(v); err == nil {
			cfg.Port = p
		}
	}
	if v := os.Getenv("GONNTP_LOCAL_ADDR"); v != "" {
		cfg.LocalAddr = v
	}
	if envBool("GONNTP_NO_DNS") {
		cfg.NoDNS = true
	}
	if v := envInt("GONNTP_TIMEOUT"); v > 0 {
		cfg.Timeout = secondsDuration(v)
	}
	if v := envInt("GONNTP_KEEPALIVE"); v != 0 {
		cfg.KeepAlive = secondsDuration(v)
	}
	if v := envInt("GONNTP_RETRIES"); v > 0 {
		cfg.Retries = v
	}

	// Encryption
	if envBool("GONNTP_TLS") {
		cfg.TLS = true
	}
	if v := os.Getenv("GONNTP_BACKEND"); v != "" {
		cfg.Backend = strings.ToLower(v)
	}
	if v := os.Getenv("GONNTP_CA_FILE"); v != "" {
		cfg.CAFile = v
	}
	if v := os.Getenv("GONNTP_KNOWN_KEYS"); v != "" {
		cfg.KnownKeysPath = v
	}
	if v := os.Getenv("GONNTP_NOISE_KEY"); v != "" {
		cfg.NoiseKeyPath = v
	}

	// SSH jump host
	if v := os.Getenv("GONNTP_TUNNEL"); v != "" {
		cfg.TunnelSpec = v
	}
	if v := os.Getenv("GONNTP_SSH_KEY"); v != "" {
		cfg.SSHKeyPath = v
	}
	if envBool("GONNTP_SSH_PASSWORD") {
		cfg.SSHPassword = true
	}
	if envBool("GONNTP_SSH_AGENT") {
		cfg.UseSSHAgent = true
	}
	if envBool("GONNTP_STRICT_HOSTKEY") {
		cfg.StrictHostKey = true
	}
	if v := os.Getenv("GONNTP_KNOWN_HOSTS"); v != "" {
		cfg.KnownHostsPath = v
	}

	// Output
	if v := envInt("GONNTP_VERBOSE"); v > 0 {
		cfg.Verbose = v
	}
}

// ── helpers ──────────────────────────────────────────────────────────

func envInt(key string) int {
	v := os.Getenv(key)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}

func envBool(key string) bool {
	v := strings.ToLower(os.Getenv(key))
	return v == "1" || v == "true" || v == "yes"
}

func secondsDuration(sec int) time.Duration {
	return time.Duration(sec) * time.Second
}
