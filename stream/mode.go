// Package stream turns a raw byte stream into a Transport: either the
// stream itself or the stream wrapped by one of the encryption backends
// compiled into this build.
//
// Two backends exist.  TLS (crypto/tls) trusts the X.509 system pool or
// a caller-supplied pool.  Noise (github.com/flynn/noise) trusts server
// static keys pinned in a known-keys store.  Either can be left out of a
// build with the notls and nonoise build tags; requests for a missing
// backend fail with ErrNotEnabled.
package stream

import (
	"fmt"
	"strings"
)

// Mode declares whether a connection should be encrypted.
type Mode int

const (
	Plain Mode = iota
	Encrypted
)

func (m Mode) String() string {
	switch m {
	case Plain:
		return "plain"
	case Encrypted:
		return "encrypted"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode accepts "plain", "encrypted" or "tls".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "plain", "":
		return Plain, nil
	case "encrypted", "tls":
		return Encrypted, nil
	default:
		return Plain, fmt.Errorf("unknown mode %q (want plain or encrypted)", s)
	}
}
