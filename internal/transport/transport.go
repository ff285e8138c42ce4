// Package transport opens the raw byte streams that gonntp upgrades and
// speaks NNTP over: direct TCP connections, or TCP connections forwarded
// through an SSH jump host.  What runs over the stream is not its
// concern.
package transport

import (
	"context"
	"net"
)

// Dialer opens outbound connections.
type Dialer interface {
	// Dial establishes a connection to the given network address.
	Dial(ctx context.Context, network, address string) (net.Conn, error)

	// Close releases any long-lived resources held by the dialer
	// (e.g. an SSH session).  Stateless dialers return nil.
	Close() error
}
