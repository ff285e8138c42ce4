package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"

	"golang.org/x/net/idna"

	nnerr "gonntp/internal/errors"
	"gonntp/util"
)

// backend performs the client side of one encryption protocol.  On
// error the caller closes raw.
type backend interface {
	Name() string
	handshake(ctx context.Context, raw net.Conn, host string, c Connector) (Transport, error)
}

// tlsBackend and noiseBackend are nil when compiled out.
var defaultBackends = available(tlsBackend, noiseBackend)

// available drops the compiled-out entries, keeping priority order.
func available(bs ...backend) []backend {
	var out []backend
	for _, b := range bs {
		if b != nil {
			out = append(out, b)
		}
	}
	return out
}

// Backends lists the backends compiled into this build, highest priority
// first.
func Backends() []string {
	names := make([]string, len(defaultBackends))
	for i, b := range defaultBackends {
		names[i] = b.Name()
	}
	return names
}

// selectBackend resolves a connector to a compiled backend.
func selectBackend(c Connector) (backend, error) {
	if absent(c) {
		if len(defaultBackends) == 0 {
			return nil, nnerr.Encryption("", "", ErrNotEnabled)
		}
		return defaultBackends[0], nil
	}
	name := c.backendName()
	for _, b := range defaultBackends {
		if b.Name() == name {
			return b, nil
		}
	}
	return nil, nnerr.Encryption(name, "", ErrNotEnabled)
}

var hostProfile = idna.New(
	idna.MapForLookup(),
	idna.VerifyDNSLength(true),
	idna.BidiRule(),
)

// normalizeHost returns the form of host used for certificate and key
// checks: IP literals as given, DNS names lower-cased in ASCII form
// without a trailing dot.
func normalizeHost(host string) (string, error) {
	h := util.StripBrackets(strings.TrimSpace(host))
	if h == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidDNSName)
	}
	if net.ParseIP(h) != nil {
		return h, nil
	}
	h = strings.TrimSuffix(h, ".")
	ascii, err := hostProfile.ToASCII(h)
	if err != nil || ascii == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidDNSName, host)
	}
	return ascii, nil
}

// handshakeError attributes err to the backend when isCrypto says so, to
// the stream when the stream failed, and to the backend otherwise.
func handshakeError(name, host string, err error, isCrypto func(error) bool) error {
	if isCrypto(err) {
		return nnerr.Encryption(name, host, err)
	}
	if isStreamError(err) {
		return nnerr.Wrap("handshake", host, err)
	}
	return nnerr.Encryption(name, host, err)
}

func isStreamError(err error) bool {
	if errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, io.ErrClosedPipe) ||
		errors.Is(err, net.ErrClosed) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
