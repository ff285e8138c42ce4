package stream

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"io"
	"math/big"
	"net"
	"testing"
	"time"

	"github.com/flynn/noise"
	"github.com/stretchr/testify/require"

	"gonntp/internal/noiseconn"
)

const greeting = "200 news.example.com ready\r\n"

// serve accepts connections on a loopback listener and runs handle on
// each until the test ends.
func serve(t *testing.T, handle func(net.Conn)) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			go func() {
				defer c.Close()
				handle(c)
			}()
		}
	}()
	return ln.Addr().String()
}

func dial(t *testing.T, addr string) net.Conn {
	t.Helper()
	c, err := net.DialTimeout("tcp", addr, 5*time.Second)
	require.NoError(t, err)
	return c
}

// greetAndEcho sends the greeting, then echoes until EOF.
func greetAndEcho(c net.Conn) {
	if _, err := io.WriteString(c, greeting); err != nil {
		return
	}
	io.Copy(c, c) //nolint:errcheck
}

// silent reads and discards until the peer goes away.
func silent(c net.Conn) {
	io.Copy(io.Discard, c) //nolint:errcheck
}

// hangUp closes immediately.
func hangUp(net.Conn) {}

// selfSignedTLS returns a server config valid for localhost and
// 127.0.0.1, and a pool that trusts it.
func selfSignedTLS(t *testing.T) (*tls.Config, *x509.CertPool) {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	tmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "gonntp test"},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(time.Hour),
		DNSNames:              []string{"localhost"},
		IPAddresses:           []net.IP{net.IPv4(127, 0, 0, 1)},
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		IsCA:                  true,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)
	cert, err := x509.ParseCertificate(der)
	require.NoError(t, err)

	pool := x509.NewCertPool()
	pool.AddCert(cert)

	return &tls.Config{
		Certificates: []tls.Certificate{{Certificate: [][]byte{der}, PrivateKey: key}},
		MinVersion:   tls.VersionTLS12,
	}, pool
}

// tlsServer wraps handle in a TLS server session.
func tlsServer(cfg *tls.Config, handle func(net.Conn)) func(net.Conn) {
	return func(c net.Conn) {
		tc := tls.Server(c, cfg)
		if err := tc.Handshake(); err != nil {
			return
		}
		handle(tc)
	}
}

// noiseServer wraps handle in a Noise responder session.  Each
// established session's client key is sent on peers when non-nil.
func noiseServer(cfg noiseconn.ServerConfig, peers chan<- []byte, handle func(net.Conn)) func(net.Conn) {
	return func(c net.Conn) {
		nc, err := noiseconn.Server(context.Background(), c, cfg)
		if err != nil {
			return
		}
		if peers != nil {
			peers <- nc.PeerStatic()
		}
		handle(nc)
	}
}

func mustNoiseKey(t *testing.T) noise.DHKey {
	t.Helper()
	kp, err := noiseconn.GenerateKeypair()
	require.NoError(t, err)
	return kp
}

func readGreeting(t *testing.T, r io.Reader) string {
	t.Helper()
	buf := make([]byte, len(greeting))
	_, err := io.ReadFull(r, buf)
	require.NoError(t, err)
	return string(buf)
}

// assertClosed checks that c was closed by its user.
func assertClosed(t *testing.T, c net.Conn) {
	t.Helper()
	_, err := c.Write([]byte("x"))
	require.ErrorIs(t, err, net.ErrClosed)
}
