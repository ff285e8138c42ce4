package core

import (
	"crypto/tls"
	"time"

	"gonntp/config"
	nnerr "gonntp/internal/errors"
	"gonntp/internal/metrics"
	"gonntp/internal/retry"
	"gonntp/internal/transport"
	"gonntp/nntp"
	"gonntp/stream"
	"gonntp/util"
)

// Build constructs the Mode described by cfg.  cfg must already have
// passed Validate.  m may be nil.
func Build(cfg *config.Config, logger *util.Logger, m *metrics.Collector) (Mode, error) {
	connector, err := buildConnector(cfg)
	if err != nil {
		return nil, err
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = config.DefaultConnTimeout
	}

	return &ConnectMode{
		Dialer: &nntp.Dialer{
			Dialer:    buildDialer(cfg, logger),
			Connector: connector,
			Logger:    logger,
			Metrics:   m,
		},
		Host:        cfg.Host,
		Port:        cfg.EffectivePort(),
		Mode:        cfg.Mode(),
		Timeout:     timeout,
		Retry:       buildBackoff(cfg, logger),
		Interactive: cfg.Interactive,
		Logger:      logger,
		Metrics:     m,
	}, nil
}

// ── component builders ───────────────────────────────────────────────

// buildConnector picks the encryption backend.  A nil result leaves the
// choice to the build's default backend.
func buildConnector(cfg *config.Config) (stream.Connector, error) {
	switch cfg.Backend {
	case config.BackendPlain:
		return stream.PlainConnector{}, nil
	case config.BackendTLS:
		return tlsConnector(cfg)
	case config.BackendNoise:
		return noiseConnector(cfg)
	}

	// auto: key material on the command line implies its backend.
	switch {
	case cfg.CAFile != "":
		return tlsConnector(cfg)
	case cfg.KnownKeysPath != "" || cfg.NoiseKeyPath != "":
		return noiseConnector(cfg)
	}
	return nil, nil
}

func tlsConnector(cfg *config.Config) (stream.Connector, error) {
	if cfg.CAFile == "" {
		return stream.TLSConnector{}, nil
	}
	pool, err := stream.LoadCertPool(cfg.CAFile)
	if err != nil {
		return nil, &nnerr.ConfigError{Field: "ca-file", Value: cfg.CAFile, Message: err.Error()}
	}
	return stream.TLSConnector{Config: &tls.Config{
		RootCAs:    pool,
		MinVersion: tls.VersionTLS12,
	}}, nil
}

func noiseConnector(cfg *config.Config) (stream.Connector, error) {
	var (
		keys stream.KnownKeys
		err  error
	)
	if cfg.KnownKeysPath != "" {
		keys, err = stream.LoadKnownKeys(cfg.KnownKeysPath)
	} else {
		keys, err = stream.LoadDefaultKnownKeys()
	}
	if err != nil {
		return nil, &nnerr.ConfigError{Field: "known-keys", Value: cfg.KnownKeysPath, Message: err.Error()}
	}

	var opts []stream.NoiseOption
	if cfg.NoiseKeyPath != "" {
		kp, err := stream.LoadKeyPair(cfg.NoiseKeyPath)
		if err != nil {
			return nil, &nnerr.ConfigError{Field: "noise-key", Value: cfg.NoiseKeyPath, Message: err.Error()}
		}
		opts = append(opts, stream.WithClientKey(kp))
	}
	return stream.NoiseConnector{Config: stream.NewNoiseConfig(keys, opts...)}, nil
}

// buildDialer creates the right transport.Dialer for the given config.
func buildDialer(cfg *config.Config, logger *util.Logger) transport.Dialer {
	if cfg.TunnelEnabled {
		return transport.NewSSHDialer(transport.SSHConfig{
			User:          cfg.TunnelUser,
			Host:          cfg.TunnelHost,
			Port:          cfg.TunnelPort,
			KeyPath:       cfg.SSHKeyPath,
			PromptPass:    cfg.SSHPassword,
			UseAgent:      cfg.UseSSHAgent,
			StrictHostKey: cfg.StrictHostKey,
			KnownHosts:    cfg.KnownHostsPath,
			ConnTimeout:   cfg.Timeout,
		}, logger)
	}

	return &transport.TCPDialer{
		Timeout:   cfg.Timeout,
		KeepAlive: cfg.KeepAlive,
		LocalAddr: cfg.LocalAddr,
		LocalPort: cfg.LocalPort,
	}
}

// buildBackoff returns nil when retries are off.
func buildBackoff(cfg *config.Config, logger *util.Logger) *retry.Backoff {
	if cfg.Retries == 0 {
		return nil
	}
	b := retry.DefaultBackoff()
	b.InitialDelay = config.DefaultRetryDelay
	b.MaxDelay = config.DefaultMaxRetryBackoff
	b.MaxAttempts = cfg.Retries + 1
	b.OnRetry = func(attempt int, err error, wait time.Duration) {
		logger.Warn("attempt %d failed: %v (retrying in %s)", attempt, err, wait.Round(time.Millisecond))
	}
	return b
}
