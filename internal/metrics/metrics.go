// Package metrics provides lightweight counters for tracking the
// connections, handshakes and replies of a gonntp client.
//
// All methods are safe for concurrent use.  A nil *Collector is a
// valid no-op receiver, so callers never need to nil-check.
package metrics

import (
	"encoding/json"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Collector tracks runtime metrics for a gonntp client.
type Collector struct {
	connectionsActive atomic.Int64
	connectionsTotal  atomic.Int64
	bytesIn           atomic.Int64
	bytesOut          atomic.Int64
	handshakes        atomic.Int64
	handshakeFailures atomic.Int64
	replies           atomic.Int64
	errorsTotal       atomic.Int64

	mu           sync.RWMutex
	startTime    time.Time
	byBackend    map[string]int64
	byCategory   map[string]int64
	lastError    time.Time
	lastErrorMsg string
}

// New creates a metrics collector with the start time set to now.
func New() *Collector {
	return &Collector{
		startTime:  time.Now(),
		byBackend:  make(map[string]int64),
		byCategory: make(map[string]int64),
	}
}

// ── Connection metrics ───────────────────────────────────────────────

// ConnectionOpened increments both the active and total counters.
func (c *Collector) ConnectionOpened() {
	if c == nil {
		return
	}
	c.connectionsActive.Add(1)
	c.connectionsTotal.Add(1)
}

// ConnectionClosed decrements the active connection counter.
func (c *Collector) ConnectionClosed() {
	if c == nil {
		return
	}
	c.connectionsActive.Add(-1)
}

// ActiveConnections returns the current number of open connections.
func (c *Collector) ActiveConnections() int64 {
	if c == nil {
		return 0
	}
	return c.connectionsActive.Load()
}

// TotalConnections returns the lifetime connection count.
func (c *Collector) TotalConnections() int64 {
	if c == nil {
		return 0
	}
	return c.connectionsTotal.Load()
}

// ── I/O metrics ──────────────────────────────────────────────────────

// BytesReceived records n bytes read from the network.
func (c *Collector) BytesReceived(n int64) {
	if c == nil {
		return
	}
	c.bytesIn.Add(n)
}

// BytesSent records n bytes written to the network.
func (c *Collector) BytesSent(n int64) {
	if c == nil {
		return
	}
	c.bytesOut.Add(n)
}

// TotalBytesIn returns total bytes received.
func (c *Collector) TotalBytesIn() int64 {
	if c == nil {
		return 0
	}
	return c.bytesIn.Load()
}

// TotalBytesOut returns total bytes sent.
func (c *Collector) TotalBytesOut() int64 {
	if c == nil {
		return 0
	}
	return c.bytesOut.Load()
}

// ── Handshake metrics ────────────────────────────────────────────────

// HandshakeCompleted records a successful handshake on backend.
func (c *Collector) HandshakeCompleted(backend string) {
	if c == nil {
		return
	}
	c.handshakes.Add(1)
	c.mu.Lock()
	c.byBackend[backend]++
	c.mu.Unlock()
}

// HandshakeFailed records a failed handshake attempt.
func (c *Collector) HandshakeFailed() {
	if c == nil {
		return
	}
	c.handshakeFailures.Add(1)
}

// Handshakes returns the number of successful handshakes.
func (c *Collector) Handshakes() int64 {
	if c == nil {
		return 0
	}
	return c.handshakes.Load()
}

// HandshakeFailures returns the number of failed handshakes.
func (c *Collector) HandshakeFailures() int64 {
	if c == nil {
		return 0
	}
	return c.handshakeFailures.Load()
}

// ── Protocol metrics ─────────────────────────────────────────────────

// ReplyParsed records one well-formed reply line.
func (c *Collector) ReplyParsed() {
	if c == nil {
		return
	}
	c.replies.Add(1)
}

// Replies returns the number of well-formed replies.
func (c *Collector) Replies() int64 {
	if c == nil {
		return 0
	}
	return c.replies.Load()
}

// ── Error metrics ────────────────────────────────────────────────────

// RecordError increments the error counter for category and stores the
// message.
func (c *Collector) RecordError(category, msg string) {
	if c == nil {
		return
	}
	c.errorsTotal.Add(1)
	c.mu.Lock()
	c.byCategory[category]++
	c.lastError = time.Now()
	c.lastErrorMsg = msg
	c.mu.Unlock()
}

// ErrorCount returns the total number of errors recorded.
func (c *Collector) ErrorCount() int64 {
	if c == nil {
		return 0
	}
	return c.errorsTotal.Load()
}

// ── Snapshot ─────────────────────────────────────────────────────────

// Snapshot is a point-in-time view of all metrics.
type Snapshot struct {
	Uptime              string           `json:"uptime"`
	ConnectionsActive   int64            `json:"connections_active"`
	ConnectionsTotal    int64            `json:"connections_total"`
	BytesIn             int64            `json:"bytes_in"`
	BytesOut            int64            `json:"bytes_out"`
	Handshakes          int64            `json:"handshakes_total"`
	HandshakeFailures   int64            `json:"handshake_failures"`
	HandshakesByBackend map[string]int64 `json:"handshakes_by_backend,omitempty"`
	Replies             int64            `json:"replies_total"`
	ErrorsTotal         int64            `json:"errors_total"`
	ErrorsByCategory    map[string]int64 `json:"errors_by_category,omitempty"`
	LastError           string           `json:"last_error,omitempty"`
	LastErrorMessage    string           `json:"last_error_message,omitempty"`
}

// Snapshot returns a copy of all current metrics.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := Snapshot{
		Uptime:            time.Since(c.startTime).Truncate(time.Second).String(),
		ConnectionsActive: c.connectionsActive.Load(),
		ConnectionsTotal:  c.connectionsTotal.Load(),
		BytesIn:           c.bytesIn.Load(),
		BytesOut:          c.bytesOut.Load(),
		Handshakes:        c.handshakes.Load(),
		HandshakeFailures: c.handshakeFailures.Load(),
		Replies:           c.replies.Load(),
		ErrorsTotal:       c.errorsTotal.Load(),
	}
	if len(c.byBackend) > 0 {
		s.HandshakesByBackend = copyCounts(c.byBackend)
	}
	if len(c.byCategory) > 0 {
		s.ErrorsByCategory = copyCounts(c.byCategory)
	}
	if !c.lastError.IsZero() {
		s.LastError = c.lastError.Format(time.RFC3339)
		s.LastErrorMessage = c.lastErrorMsg
	}
	return s
}

// Backends returns the backends that completed at least one handshake,
// sorted by name.
func (s Snapshot) Backends() []string {
	names := make([]string, 0, len(s.HandshakesByBackend))
	for name := range s.HandshakesByBackend {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func copyCounts(m map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// JSON returns the snapshot as an indented JSON string.
func (c *Collector) JSON() string {
	s := c.Snapshot()
	data, _ := json.MarshalIndent(s, "", "  ")
	return string(data)
}
