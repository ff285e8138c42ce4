// Package nntp opens client connections to news servers and reads the
// status-coded reply lines they send.
//
// Connect is the entry point: it dials one TCP connection, performs the
// encryption handshake the Mode asks for, and returns the resulting
// stream.Transport.  It never retries and imposes no timeout of its own;
// both belong to the caller, through ctx.
package nntp

import (
	"context"
	"errors"
	"strings"

	nnerr "gonntp/internal/errors"
	"gonntp/internal/metrics"
	"gonntp/internal/transport"
	"gonntp/stream"
	"gonntp/util"
)

// Dialer holds the options for Connect.  The zero value dials directly
// over TCP and lets the build's default backend handle encryption.
type Dialer struct {
	// Dialer opens the raw connection; nil means a plain TCPDialer.
	Dialer transport.Dialer
	// Connector overrides the encryption backend; nil uses the default.
	Connector stream.Connector

	Logger  *util.Logger
	Metrics *metrics.Collector
}

// Connect is Dialer.Connect on a zero Dialer.
func Connect(ctx context.Context, host string, port int, mode stream.Mode) (stream.Transport, error) {
	var d Dialer
	return d.Connect(ctx, host, port, mode)
}

// Connect opens exactly one connection to host:port and upgrades it
// according to mode.  It returns either a fully negotiated Transport or
// an error, never both, and on error no socket is left open.
//
// Dial failures are *errors.IOError; handshake failures are whatever
// stream.Upgrade reports.
func (d *Dialer) Connect(ctx context.Context, host string, port int, mode stream.Mode) (stream.Transport, error) {
	host = strings.TrimSpace(host)
	if host == "" {
		return nil, d.fail(&nnerr.IOError{Op: "dial", Err: errors.New("empty host")})
	}
	if err := util.ValidatePort(port); err != nil {
		return nil, d.fail(&nnerr.IOError{Op: "dial", Addr: host, Err: err})
	}

	addr := util.FormatAddr(host, port)
	log := d.Logger.WithField("addr", addr)

	dialer := d.Dialer
	if dialer == nil {
		dialer = &transport.TCPDialer{}
	}

	log.Verbose("connecting (%s)", mode)
	raw, err := dialer.Dial(ctx, "tcp", addr)
	if err != nil {
		return nil, d.fail(nnerr.Wrap("dial", addr, err))
	}
	log.Debug("connected from %s", raw.LocalAddr())

	conn := newCountingConn(raw, d.Metrics)
	up := stream.Upgrader{Logger: d.Logger, Metrics: d.Metrics}
	return up.Upgrade(ctx, conn, util.StripBrackets(host), mode, d.Connector)
}

func (d *Dialer) fail(err error) error {
	d.Metrics.RecordError(nnerr.CategoryOf(err).String(), err.Error())
	d.Logger.Verbose("connect failed: %v", err)
	return err
}
