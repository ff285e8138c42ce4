//go:build !nonoise

package stream

import (
	"context"
	"errors"
	"net"

	"github.com/flynn/noise"

	nnerr "gonntp/internal/errors"
	"gonntp/internal/noiseconn"
)

var noiseBackend backend = noiseHandshaker{}

// NoiseTransport is a client Noise session.
type NoiseTransport struct {
	*noiseconn.Conn
}

func (*NoiseTransport) Kind() Kind { return KindNoise }
func (*NoiseTransport) sealed()    {}

type noiseHandshaker struct{}

func (noiseHandshaker) Name() string { return "noise" }

func (noiseHandshaker) handshake(ctx context.Context, raw net.Conn, host string, c Connector) (Transport, error) {
	name, err := normalizeHost(host)
	if err != nil {
		return nil, nnerr.Encryption("noise", host, err)
	}

	cfg := noiseConfigOf(c)
	if cfg == nil {
		if cfg, err = DefaultNoiseConfig(); err != nil {
			return nil, nnerr.Encryption("noise", host, err)
		}
	}
	peer, ok := cfg.knownKeys.Lookup(name)
	if !ok {
		return nil, nnerr.Encryption("noise", host, ErrUnknownHostKey)
	}

	cc := noiseconn.ClientConfig{PeerStatic: peer, Prologue: cfg.prologue}
	if cfg.static != nil {
		cc.StaticKeypair = &noise.DHKey{Private: cfg.static.Private, Public: cfg.static.Public}
	}
	conn, err := noiseconn.Client(ctx, raw, cc)
	if err != nil {
		return nil, handshakeError("noise", host, err, isNoiseError)
	}
	return &NoiseTransport{Conn: conn}, nil
}

func isNoiseError(err error) bool {
	return errors.Is(err, noiseconn.ErrHandshake)
}
