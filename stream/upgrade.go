package stream

import (
	"context"
	"fmt"
	"net"

	nnerr "gonntp/internal/errors"
	"gonntp/internal/metrics"
	"gonntp/util"
)

// Upgrader turns raw connections into Transports.  The zero value is
// ready to use; Logger and Metrics are optional.
type Upgrader struct {
	Logger  *util.Logger
	Metrics *metrics.Collector
}

var defaultUpgrader Upgrader

// Upgrade is Upgrader.Upgrade on a zero Upgrader.
func Upgrade(ctx context.Context, raw net.Conn, hostname string, mode Mode, connector Connector) (Transport, error) {
	return defaultUpgrader.Upgrade(ctx, raw, hostname, mode, connector)
}

// Upgrade wraps raw according to mode.
//
// Plain mode returns raw as a PlainTransport whatever connector says.
// Encrypted mode performs exactly one handshake with the backend
// connector selects, or the default backend when connector is nil.
// The result owns raw; on error raw has already been closed.
//
// Failures are *errors.EncryptionError when a backend is missing, the
// hostname is unusable or the peer fails verification, and
// *errors.IOError when the stream itself fails or ctx ends.
func (u *Upgrader) Upgrade(ctx context.Context, raw net.Conn, hostname string, mode Mode, connector Connector) (Transport, error) {
	log := u.Logger.WithField("host", hostname)

	switch mode {
	case Plain:
		if name := BackendName(connector); name != "default" && name != "plain" {
			log.Warn("plain mode requested, ignoring %s connector", name)
		}
		return &PlainTransport{Conn: raw}, nil
	case Encrypted:
	default:
		raw.Close()
		return nil, u.fail(log, nnerr.Encryption("", hostname, fmt.Errorf("unknown mode %v", mode)))
	}

	b, err := selectBackend(connector)
	if err != nil {
		raw.Close()
		return nil, u.fail(log, err)
	}

	log = log.WithField("backend", b.Name())
	log.Debug("starting handshake")

	t, err := b.handshake(ctx, raw, hostname, connector)
	if err != nil {
		raw.Close()
		return nil, u.fail(log, err)
	}

	u.Metrics.HandshakeCompleted(b.Name())
	log.Verbose("handshake complete")
	return t, nil
}

func (u *Upgrader) fail(log *util.Logger, err error) error {
	u.Metrics.HandshakeFailed()
	u.Metrics.RecordError(nnerr.CategoryOf(err).String(), err.Error())
	log.Verbose("upgrade failed: %v", err)
	return err
}
