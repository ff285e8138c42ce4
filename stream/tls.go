//go:build !notls

package stream

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"net"

	nnerr "gonntp/internal/errors"
)

var tlsBackend backend = tlsHandshaker{}

// TLSTransport is a client TLS session.
type TLSTransport struct {
	*tls.Conn
}

func (*TLSTransport) Kind() Kind { return KindTLS }
func (*TLSTransport) sealed()    {}

type tlsHandshaker struct{}

func (tlsHandshaker) Name() string { return "tls" }

func (tlsHandshaker) handshake(ctx context.Context, raw net.Conn, host string, c Connector) (Transport, error) {
	name, err := normalizeHost(host)
	if err != nil {
		return nil, nnerr.Encryption("tls", host, err)
	}

	var cfg *tls.Config
	if shared := tlsConfigOf(c); shared != nil {
		cfg = shared.Clone()
	} else {
		cfg = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	if cfg.ServerName == "" {
		cfg.ServerName = name
	}

	conn := tls.Client(raw, cfg)
	if err := conn.HandshakeContext(ctx); err != nil {
		return nil, handshakeError("tls", host, err, isTLSError)
	}
	return &TLSTransport{Conn: conn}, nil
}

// isTLSError reports failures of the TLS protocol itself, including
// alerts the peer sent and alerts this side raised.
func isTLSError(err error) bool {
	var (
		alert     tls.AlertError
		verifyErr *tls.CertificateVerificationError
		recordErr tls.RecordHeaderError
		authErr   x509.UnknownAuthorityError
		nameErr   x509.HostnameError
		certErr   x509.CertificateInvalidError
		opErr     *net.OpError
	)
	switch {
	case errors.As(err, &alert),
		errors.As(err, &verifyErr),
		errors.As(err, &recordErr),
		errors.As(err, &authErr),
		errors.As(err, &nameErr),
		errors.As(err, &certErr):
		return true
	case errors.As(err, &opErr):
		return opErr.Op == "remote error" || opErr.Op == "local error"
	}
	return false
}
