// Package cmd wires up the CLI flags and dispatches to the client core.
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	flag "github.com/spf13/pflag"

	"gonntp/config"
	"gonntp/internal/core"
	"gonntp/internal/metrics"
	"gonntp/stream"
	"gonntp/util"
)

// version is overridable at link time:
//
//	go build -ldflags "-X gonntp/cmd.version=2.0.0"
var version = "1.0.0" //nolint:gochecknoglobals

// stderr receives usage, plans and metrics.  Tests swap it out.
var stderr io.Writer = os.Stderr //nolint:gochecknoglobals

// Execute parses args and runs one gonntp session.
func Execute(ctx context.Context, args []string) error {
	cfg := &config.Config{Backend: config.DefaultBackend}
	config.LoadFromEnv(cfg)

	fs := flag.NewFlagSet("gonntp", flag.ContinueOnError)
	fs.SetOutput(stderr)

	// ── connection ───────────────────────────────────────────────
	fs.StringVar(&cfg.LocalAddr, "source", cfg.LocalAddr, "Source address to dial from")
	fs.IntVarP(&cfg.LocalPort, "local-port", "p", cfg.LocalPort, "Source port to dial from")
	fs.BoolVarP(&cfg.NoDNS, "no-dns", "n", cfg.NoDNS, "Numeric-only, no DNS resolution")
	fs.IntVarP(&cfg.Retries, "retries", "r", cfg.Retries, "Retry failed connection attempts N times")

	timeoutSec := int(cfg.Timeout / time.Second)
	fs.IntVarP(&timeoutSec, "wait", "w", timeoutSec, "Timeout in seconds per attempt (default 30)")
	keepAliveSec := int(cfg.KeepAlive / time.Second)
	fs.IntVar(&keepAliveSec, "keepalive", keepAliveSec, "TCP keep-alive period in seconds, -1 disables")

	// ── encryption ───────────────────────────────────────────────
	fs.BoolVarP(&cfg.TLS, "tls", "s", cfg.TLS, "Encrypt the session (default port 563)")
	fs.StringVar(&cfg.Backend, "backend", cfg.Backend, "Encryption backend: auto, tls, noise, plain")
	fs.StringVar(&cfg.CAFile, "ca-file", cfg.CAFile, "PEM file of trusted CAs for tls")
	fs.StringVar(&cfg.KnownKeysPath, "known-keys", cfg.KnownKeysPath, "Pinned server keys for noise")
	fs.StringVar(&cfg.NoiseKeyPath, "noise-key", cfg.NoiseKeyPath, "Client private key for noise")

	// ── SSH jump host ────────────────────────────────────────────
	fs.StringVarP(&cfg.TunnelSpec, "tunnel", "T", cfg.TunnelSpec, "Reach the server through [user@]host[:port] over SSH")
	fs.StringVar(&cfg.SSHKeyPath, "ssh-key", cfg.SSHKeyPath, "SSH private key file")
	fs.BoolVar(&cfg.SSHPassword, "ssh-password", cfg.SSHPassword, "Prompt for SSH password")
	fs.BoolVar(&cfg.UseSSHAgent, "ssh-agent", cfg.UseSSHAgent, "Use SSH agent")
	fs.BoolVar(&cfg.StrictHostKey, "strict-hostkey", cfg.StrictHostKey, "Verify SSH host keys")
	fs.StringVar(&cfg.KnownHostsPath, "known-hosts", cfg.KnownHostsPath, "Custom known_hosts path")

	// ── session ──────────────────────────────────────────────────
	fs.BoolVarP(&cfg.Interactive, "interactive", "i", false, "Relay stdin/stdout after the greeting")
	fs.BoolVar(&cfg.DryRun, "dry-run", false, "Validate and print the plan without connecting")
	fs.BoolVar(&cfg.ShowMetrics, "metrics", false, "Print session metrics as JSON on exit")

	// ── output ───────────────────────────────────────────────────
	fs.CountVarP(&cfg.Verbose, "verbose", "v", "Increase verbosity (repeatable)")

	var showVersion, showHelp bool
	fs.BoolVar(&showVersion, "version", false, "Print version and exit")
	fs.BoolVarP(&showHelp, "help", "h", false, "Show this help")

	fs.Usage = func() { printUsage(fs) }

	// ── parse ────────────────────────────────────────────────────
	if err := fs.Parse(args); err != nil {
		return err
	}

	if showHelp || len(args) == 0 {
		printUsage(fs)
		return nil
	}
	if showVersion {
		fmt.Fprintf(stderr, "gonntp %s (backends: %s)\n", version, strings.Join(stream.Backends(), ", "))
		return nil
	}

	if timeoutSec > 0 {
		cfg.Timeout = time.Duration(timeoutSec) * time.Second
	}
	if fs.Changed("keepalive") {
		cfg.KeepAlive = time.Duration(keepAliveSec) * time.Second
	}
	cfg.Backend = strings.ToLower(cfg.Backend)

	// ── positional arguments ─────────────────────────────────────
	if err := parsePositional(cfg, fs.Args()); err != nil {
		return err
	}

	// ── jump host spec ───────────────────────────────────────────
	if cfg.TunnelSpec != "" {
		user, host, port, err := config.ParseTunnelSpec(cfg.TunnelSpec)
		if err != nil {
			return fmt.Errorf("tunnel: %w", err)
		}
		cfg.TunnelEnabled = true
		cfg.TunnelUser = user
		cfg.TunnelHost = host
		cfg.TunnelPort = port
	}

	// ── validate ─────────────────────────────────────────────────
	if err := cfg.Validate(); err != nil {
		return err
	}

	// ── build and run ────────────────────────────────────────────
	logger := util.NewLogger(cfg.Verbose)
	logger.Debug("compiled backends: %s", strings.Join(stream.Backends(), ", "))

	if cfg.DryRun {
		return printPlan(cfg)
	}

	m := metrics.New()
	mode, err := core.Build(cfg, logger, m)
	if err != nil {
		return err
	}

	err = mode.Run(ctx)
	if cfg.ShowMetrics {
		fmt.Fprintln(stderr, m.JSON())
	}
	return err
}

// ── helpers ──────────────────────────────────────────────────────────

// parsePositional reads "host [port]".
func parsePositional(cfg *config.Config, remaining []string) error {
	switch len(remaining) {
	case 0:
		if cfg.Host == "" {
			return fmt.Errorf("hostname required (use --help for usage)")
		}
		return nil
	case 1, 2:
	default:
		return fmt.Errorf("too many arguments: %s", strings.Join(remaining[2:], " "))
	}

	cfg.Host = remaining[0]
	if len(remaining) == 2 {
		port, err := config.ParsePort(remaining[1])
		if err != nil {
			return fmt.Errorf("port: %w", err)
		}
		cfg.Port = port
	}
	return nil
}

// printPlan describes what a real run would do.
func printPlan(cfg *config.Config) error {
	addr, err := util.ResolveAddr(cfg.Host, cfg.EffectivePort(), cfg.NoDNS)
	if err != nil {
		return err
	}

	route := "direct"
	if cfg.TunnelEnabled {
		route = "via ssh " + util.FormatAddr(cfg.TunnelHost, cfg.TunnelPort)
	}
	fmt.Fprintf(stderr, "would connect to %s (%s, backend %s, %s)\n",
		addr, cfg.Mode(), cfg.Backend, route)
	return nil
}

func printUsage(fs *flag.FlagSet) {
	fmt.Fprintf(stderr, `gonntp – NNTP Connection Tool v%s

Opens a session with a news server, over TLS or Noise if asked, and
reports its greeting.

Usage:
  gonntp [options] <host> [port]              Connect and print the greeting
  gonntp -s [options] <host> [port]           Encrypted session
  gonntp -i [options] <host> [port]           Interactive session
  gonntp -T user@gateway <host> [port]        Through an SSH jump host

Options:
`, version)
	fs.PrintDefaults()
	fmt.Fprintf(stderr, `
Examples:
  gonntp news.example.com                     Plain NNTP on 119
  gonntp -s news.example.com                  TLS on 563
  gonntp --backend=noise news.example.com     Noise with pinned keys
  gonntp -r 3 -w 10 news.example.com nntp     Retry, 10s per attempt
  gonntp -T admin@bastion news.internal       SSH jump host
`)
}
