// Package noiseconn runs a Noise protocol session over a byte stream.
//
// Every message on the wire, handshake or transport, is a frame: a
// 2-byte big-endian length followed by that many bytes.  Clients that
// hold a static key use the IK pattern; anonymous clients use NK.  In
// both cases the client must already know the server's static public
// key, which is what authenticates the server.
package noiseconn

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/flynn/noise"
)

const (
	// MaxFrame is the largest frame payload the length prefix allows.
	MaxFrame = 65535
	// tagSize is the AEAD overhead added to every transport message.
	tagSize = 16
	// MaxPlaintext is the largest plaintext carried by one frame.
	MaxPlaintext = MaxFrame - tagSize

	// KeySize is the length of an X25519 key.
	KeySize = 32
)

// DefaultPrologue binds both sides to this framing and version.
var DefaultPrologue = []byte("gonntp-noise-v1")

var (
	// ErrHandshake wraps cryptographic handshake failures.
	ErrHandshake = errors.New("noise handshake failed")
	// ErrDecrypt is returned when a transport frame fails authentication.
	ErrDecrypt = errors.New("noise frame authentication failed")
)

var cipherSuite = noise.NewCipherSuite(noise.DH25519, noise.CipherChaChaPoly, noise.HashBLAKE2s)

// ClientConfig configures the initiating side.
type ClientConfig struct {
	// PeerStatic is the server's pinned static public key.
	PeerStatic []byte
	// StaticKeypair identifies the client; nil selects the NK pattern.
	StaticKeypair *noise.DHKey
	Prologue      []byte
}

// ServerConfig configures the responding side.
type ServerConfig struct {
	StaticKeypair noise.DHKey
	// RequireClientKey rejects anonymous (NK) clients.
	RequireClientKey bool
	Prologue         []byte
}

// Conn is an established Noise session.  Reads and writes may run
// concurrently with each other, but not with themselves.
type Conn struct {
	net.Conn

	send *noise.CipherState
	recv *noise.CipherState

	peerStatic    []byte
	handshakeHash []byte

	rmu     sync.Mutex
	pending []byte // decrypted but unread plaintext
	rframe  []byte

	wmu    sync.Mutex
	wframe []byte
}

// GenerateKeypair returns a fresh X25519 key pair.
func GenerateKeypair() (noise.DHKey, error) {
	return noise.DH25519.GenerateKeypair(rand.Reader)
}

// Client performs the initiator handshake on raw.  The caller keeps
// ownership of raw on failure.
func Client(ctx context.Context, raw net.Conn, cfg ClientConfig) (*Conn, error) {
	if len(cfg.PeerStatic) != KeySize {
		return nil, fmt.Errorf("%w: server key must be %d bytes, got %d", ErrHandshake, KeySize, len(cfg.PeerStatic))
	}

	nc := noise.Config{
		CipherSuite: cipherSuite,
		Random:      rand.Reader,
		Pattern:     noise.HandshakeNK,
		Initiator:   true,
		Prologue:    prologue(cfg.Prologue),
		PeerStatic:  cfg.PeerStatic,
	}
	if cfg.StaticKeypair != nil {
		nc.Pattern = noise.HandshakeIK
		nc.StaticKeypair = *cfg.StaticKeypair
	}

	hs, err := noise.NewHandshakeState(nc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrHandshake, err)
	}

	var c *Conn
	err = withContext(ctx, raw, func() error {
		// -> e, es [, s, ss]
		msg, _, _, err := hs.WriteMessage(nil, nil)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrHandshake, err)
		}
		if err := writeFrame(raw, msg); err != nil {
			return err
		}

		// <- e, ee [, se]
		reply, err := readFrame(raw, nil)
		if err != nil {
			return err
		}
		_, cs1, cs2, err := hs.ReadMessage(nil, reply)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrHandshake, err)
		}
		if cs1 == nil || cs2 == nil {
			return fmt.Errorf("%w: incomplete after two messages", ErrHandshake)
		}
		c = newConn(raw, cs1, cs2, cfg.PeerStatic, hs.ChannelBinding())
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Server performs the responder handshake on raw.  The pattern follows
// the size of the client's first message.
func Server(ctx context.Context, raw net.Conn, cfg ServerConfig) (*Conn, error) {
	var c *Conn
	err := withContext(ctx, raw, func() error {
		first, err := readFrame(raw, nil)
		if err != nil {
			return err
		}

		// NK: e(32) + empty payload tag(16); IK adds s(32+16).
		pattern := noise.HandshakeNK
		if len(first) > KeySize+tagSize {
			pattern = noise.HandshakeIK
		}
		if cfg.RequireClientKey && pattern.Name != noise.HandshakeIK.Name {
			return fmt.Errorf("%w: client key required", ErrHandshake)
		}

		hs, err := noise.NewHandshakeState(noise.Config{
			CipherSuite:   cipherSuite,
			Random:        rand.Reader,
			Pattern:       pattern,
			Initiator:     false,
			Prologue:      prologue(cfg.Prologue),
			StaticKeypair: cfg.StaticKeypair,
		})
		if err != nil {
			return fmt.Errorf("%w: %v", ErrHandshake, err)
		}
		if _, _, _, err := hs.ReadMessage(nil, first); err != nil {
			return fmt.Errorf("%w: %v", ErrHandshake, err)
		}

		msg, cs1, cs2, err := hs.WriteMessage(nil, nil)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrHandshake, err)
		}
		if err := writeFrame(raw, msg); err != nil {
			return err
		}
		// Responder sends with the second cipher state.
		c = newConn(raw, cs2, cs1, hs.PeerStatic(), hs.ChannelBinding())
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

func newConn(raw net.Conn, send, recv *noise.CipherState, peer, hash []byte) *Conn {
	return &Conn{
		Conn:          raw,
		send:          send,
		recv:          recv,
		peerStatic:    append([]byte(nil), peer...),
		handshakeHash: append([]byte(nil), hash...),
	}
}

// PeerStatic returns the peer's static public key, or nil for an
// anonymous client seen from the server.
func (c *Conn) PeerStatic() []byte { return c.peerStatic }

// HandshakeHash returns the channel binding of the session.
func (c *Conn) HandshakeHash() []byte { return c.handshakeHash }

// Read decrypts the next frame when no plaintext is pending.
func (c *Conn) Read(p []byte) (int, error) {
	c.rmu.Lock()
	defer c.rmu.Unlock()

	for len(c.pending) == 0 {
		if len(p) == 0 {
			return 0, nil
		}
		frame, err := readFrame(c.Conn, c.rframe)
		if err != nil {
			return 0, err
		}
		c.rframe = frame[:0]
		plain, err := c.recv.Decrypt(frame[:0], nil, frame)
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrDecrypt, err)
		}
		c.pending = plain
	}

	n := copy(p, c.pending)
	c.pending = c.pending[n:]
	return n, nil
}

// Write encrypts p into as many frames as needed.
func (c *Conn) Write(p []byte) (int, error) {
	c.wmu.Lock()
	defer c.wmu.Unlock()

	written := 0
	for len(p) > 0 {
		chunk := p
		if len(chunk) > MaxPlaintext {
			chunk = chunk[:MaxPlaintext]
		}
		out, err := c.send.Encrypt(c.wframe[:0], nil, chunk)
		if err != nil {
			return written, err
		}
		c.wframe = out[:0]
		if err := writeFrame(c.Conn, out); err != nil {
			return written, err
		}
		written += len(chunk)
		p = p[len(chunk):]
	}
	return written, nil
}

// CloseWrite half-closes the underlying stream when it supports it.
func (c *Conn) CloseWrite() error {
	if cw, ok := c.Conn.(interface{ CloseWrite() error }); ok {
		return cw.CloseWrite()
	}
	return nil
}

// ── framing ──────────────────────────────────────────────────────────

func writeFrame(w io.Writer, payload []byte) error {
	if len(payload) > MaxFrame {
		return fmt.Errorf("noise frame of %d bytes exceeds %d", len(payload), MaxFrame)
	}
	buf := make([]byte, 2+len(payload))
	binary.BigEndian.PutUint16(buf, uint16(len(payload)))
	copy(buf[2:], payload)
	_, err := w.Write(buf)
	return err
}

// readFrame reads one frame, reusing buf when it is large enough.
func readFrame(r io.Reader, buf []byte) ([]byte, error) {
	var header [2]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, err
	}
	n := int(binary.BigEndian.Uint16(header[:]))
	if cap(buf) < n {
		buf = make([]byte, n)
	}
	buf = buf[:n]
	if _, err := io.ReadFull(r, buf); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return buf, nil
}

// withContext runs fn, closing raw if ctx is cancelled first so that
// blocked reads and writes return.
func withContext(ctx context.Context, raw net.Conn, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	stop := context.AfterFunc(ctx, func() { raw.Close() })
	err := fn()
	if !stop() {
		// The context fired; report that rather than the I/O error it
		// provoked.
		return ctx.Err()
	}
	return err
}

func prologue(p []byte) []byte {
	if p == nil {
		return DefaultPrologue
	}
	return p
}
