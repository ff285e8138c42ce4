package config

import (
	"errors"
	"testing"

	nnerr "gonntp/internal/errors"
	"gonntp/stream"
)

// ── ParseTunnelSpec ──────────────────────────────────────────────────

func TestParseTunnelSpec(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantUser string
		wantHost string
		wantPort int
		wantErr  bool
	}{
		{"full", "admin@bastion.example.com:2222", "admin", "bastion.example.com", 2222, false},
		{"no port", "root@gateway", "root", "gateway", 22, false},
		{"no user", "jump-host:2200", "", "jump-host", 2200, false},
		{"host only", "gateway.local", "", "gateway.local", 22, false},
		{"bad port", "user@host:999999", "", "", 0, true},
		{"empty", "", "", "", 0, true},
		{"colon only", ":", "", "", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, host, port, err := ParseTunnelSpec(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr = %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if user != tt.wantUser || host != tt.wantHost || port != tt.wantPort {
				t.Errorf("got (%q, %q, %d), want (%q, %q, %d)",
					user, host, port, tt.wantUser, tt.wantHost, tt.wantPort)
			}
		})
	}
}

// ── ParsePort ────────────────────────────────────────────────────────

func TestParsePort(t *testing.T) {
	tests := []struct {
		input   string
		want    int
		wantErr bool
	}{
		{"119", 119, false},
		{"563", 563, false},
		{"nntp", 119, false},
		{"NNTPS", 563, false},
		{"snews", 563, false},
		{"0", 0, true},
		{"70000", 0, true},
		{"abc", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParsePort(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr = %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got %d, want %d", got, tt.want)
			}
		})
	}
}

// ── Mode / EffectivePort ─────────────────────────────────────────────

func TestModeAndPort(t *testing.T) {
	tests := []struct {
		name     string
		cfg      Config
		wantMode stream.Mode
		wantPort int
	}{
		{"default", Config{Host: "x"}, stream.Plain, DefaultPort},
		{"tls flag", Config{Host: "x", TLS: true}, stream.Encrypted, DefaultTLSPort},
		{"tls backend", Config{Host: "x", Backend: BackendTLS}, stream.Encrypted, DefaultTLSPort},
		{"noise backend", Config{Host: "x", Backend: BackendNoise}, stream.Encrypted, DefaultTLSPort},
		{"auto backend", Config{Host: "x", Backend: BackendAuto}, stream.Plain, DefaultPort},
		{"explicit port", Config{Host: "x", TLS: true, Port: 8119}, stream.Encrypted, 8119},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.Mode(); got != tt.wantMode {
				t.Errorf("Mode() = %v, want %v", got, tt.wantMode)
			}
			if got := tt.cfg.EffectivePort(); got != tt.wantPort {
				t.Errorf("EffectivePort() = %d, want %d", got, tt.wantPort)
			}
		})
	}
}

// ── Config.Validate ──────────────────────────────────────────────────

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name:    "valid plain",
			cfg:     Config{Host: "news.example.com", Port: 119},
			wantErr: false,
		},
		{
			name:    "valid tls",
			cfg:     Config{Host: "news.example.com", TLS: true, Backend: BackendTLS, CAFile: "/tmp/ca.pem"},
			wantErr: false,
		},
		{
			name:    "valid noise",
			cfg:     Config{Host: "news.example.com", Backend: BackendNoise, KnownKeysPath: "/tmp/k", NoiseKeyPath: "/tmp/c"},
			wantErr: false,
		},
		{
			name:    "no host",
			cfg:     Config{Port: 119},
			wantErr: true,
		},
		{
			name:    "port out of range",
			cfg:     Config{Host: "x", Port: 70000},
			wantErr: true,
		},
		{
			name:    "unknown backend",
			cfg:     Config{Host: "x", Backend: "quic"},
			wantErr: true,
		},
		{
			name:    "tls with plain backend",
			cfg:     Config{Host: "x", TLS: true, Backend: BackendPlain},
			wantErr: true,
		},
		{
			name:    "ca file with noise",
			cfg:     Config{Host: "x", Backend: BackendNoise, CAFile: "/tmp/ca.pem"},
			wantErr: true,
		},
		{
			name:    "noise key with tls",
			cfg:     Config{Host: "x", Backend: BackendTLS, NoiseKeyPath: "/tmp/c"},
			wantErr: true,
		},
		{
			name:    "nodns with name",
			cfg:     Config{Host: "news.example.com", NoDNS: true},
			wantErr: true,
		},
		{
			name:    "nodns with literal",
			cfg:     Config{Host: "[::1]", NoDNS: true},
			wantErr: false,
		},
		{
			name:    "negative retries",
			cfg:     Config{Host: "x", Retries: -1},
			wantErr: true,
		},
		{
			name:    "interactive dry run",
			cfg:     Config{Host: "x", Interactive: true, DryRun: true},
			wantErr: true,
		},
		{
			name:    "tunnel without host",
			cfg:     Config{Host: "x", TunnelEnabled: true},
			wantErr: true,
		},
		{
			name:    "valid tunnel",
			cfg:     Config{Host: "x", TunnelEnabled: true, TunnelHost: "gw", TunnelUser: "u", TunnelPort: 22},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr = %v", err, tt.wantErr)
			}
			if err != nil {
				var ce *nnerr.ConfigError
				if !errors.As(err, &ce) {
					t.Errorf("Validate() returned %T, want *ConfigError", err)
				}
			}
		})
	}
}
