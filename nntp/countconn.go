package nntp

import (
	"net"
	"sync"

	"gonntp/internal/metrics"
)

// countingConn reports wire traffic and the connection's lifetime to a
// metrics collector.
type countingConn struct {
	net.Conn
	m      *metrics.Collector
	closed sync.Once
}

// newCountingConn returns c itself when there is nothing to count into.
func newCountingConn(c net.Conn, m *metrics.Collector) net.Conn {
	if m == nil {
		return c
	}
	m.ConnectionOpened()
	return &countingConn{Conn: c, m: m}
}

func (c *countingConn) Read(p []byte) (int, error) {
	n, err := c.Conn.Read(p)
	c.m.BytesReceived(int64(n))
	return n, err
}

func (c *countingConn) Write(p []byte) (int, error) {
	n, err := c.Conn.Write(p)
	c.m.BytesSent(int64(n))
	return n, err
}

func (c *countingConn) Close() error {
	c.closed.Do(c.m.ConnectionClosed)
	return c.Conn.Close()
}

func (c *countingConn) CloseWrite() error {
	if cw, ok := c.Conn.(interface{ CloseWrite() error }); ok {
		return cw.CloseWrite()
	}
	return nil
}
