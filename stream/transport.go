package stream

import (
	"net"
)

// Kind identifies the variant of a Transport.
type Kind int

const (
	KindPlain Kind = iota
	KindTLS
	KindNoise
)

func (k Kind) String() string {
	switch k {
	case KindPlain:
		return "plain"
	case KindTLS:
		return "tls"
	case KindNoise:
		return "noise"
	default:
		return "unknown"
	}
}

// Transport is an established, possibly encrypted, bidirectional byte
// stream.  Its concrete type is one of *PlainTransport, *TLSTransport or
// *NoiseTransport; the last two exist only in builds that include the
// matching backend.  A Transport exclusively owns the connection it
// wraps, and Close releases it.
type Transport interface {
	net.Conn

	// Kind reports the variant.
	Kind() Kind
	// CloseWrite shuts down the sending direction, sending close_notify
	// or the equivalent first where the backend has one.
	CloseWrite() error

	sealed()
}

// PlainTransport carries bytes unchanged.
type PlainTransport struct {
	net.Conn
}

func (*PlainTransport) Kind() Kind { return KindPlain }
func (*PlainTransport) sealed()    {}

// CloseWrite half-closes the connection when it supports that.
func (t *PlainTransport) CloseWrite() error {
	if cw, ok := t.Conn.(interface{ CloseWrite() error }); ok {
		return cw.CloseWrite()
	}
	return nil
}
