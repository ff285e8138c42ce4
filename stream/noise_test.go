//go:build !nonoise

package stream

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	nnerr "gonntp/internal/errors"
	"gonntp/internal/noiseconn"
)

func pinned(t *testing.T, host string, key []byte) KnownKeys {
	t.Helper()
	keys := KnownKeys{}
	require.NoError(t, keys.Add(host, key))
	return keys
}

func TestUpgrade_Noise(t *testing.T) {
	server := mustNoiseKey(t)
	addr := serve(t, noiseServer(noiseconn.ServerConfig{StaticKeypair: server}, nil, greetAndEcho))

	cfg := NewNoiseConfig(pinned(t, "news.example.com", server.Public))
	tr, err := Upgrade(context.Background(), dial(t, addr), "News.Example.com", Encrypted, NoiseConnector{Config: cfg})
	require.NoError(t, err)
	defer tr.Close()

	assert.Equal(t, KindNoise, tr.Kind())
	nt, ok := tr.(*NoiseTransport)
	require.True(t, ok)
	assert.Equal(t, server.Public, nt.PeerStatic())
	assert.Equal(t, greeting, readGreeting(t, tr))
}

func TestUpgrade_NoiseClientKey(t *testing.T) {
	server := mustNoiseKey(t)
	peers := make(chan []byte, 1)
	addr := serve(t, noiseServer(noiseconn.ServerConfig{StaticKeypair: server, RequireClientKey: true}, peers, greetAndEcho))

	client, err := KeyPairFromPrivate(mustNoiseKey(t).Private)
	require.NoError(t, err)

	cfg := NewNoiseConfig(pinned(t, "127.0.0.1", server.Public), WithClientKey(client))
	assert.True(t, cfg.HasClientKey())

	tr, err := Upgrade(context.Background(), dial(t, addr), "127.0.0.1", Encrypted, &NoiseConnector{Config: cfg})
	require.NoError(t, err)
	defer tr.Close()

	assert.Equal(t, greeting, readGreeting(t, tr))
	assert.Equal(t, client.Public, <-peers)
}

func TestUpgrade_NoiseUnknownHost(t *testing.T) {
	server := mustNoiseKey(t)
	addr := serve(t, noiseServer(noiseconn.ServerConfig{StaticKeypair: server}, nil, greetAndEcho))

	cfg := NewNoiseConfig(pinned(t, "other.example.com", server.Public))
	raw := dial(t, addr)
	_, err := Upgrade(context.Background(), raw, "news.example.com", Encrypted, NoiseConnector{Config: cfg})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownHostKey)

	var ee *nnerr.EncryptionError
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, "noise", ee.Backend)
	assertClosed(t, raw)
}

func TestUpgrade_NoiseInvalidHostname(t *testing.T) {
	cfg := NewNoiseConfig(KnownKeys{})
	_, err := Upgrade(context.Background(), dial(t, serve(t, silent)), "bad host!", Encrypted, NoiseConnector{Config: cfg})
	assert.ErrorIs(t, err, ErrInvalidDNSName)
	assert.True(t, nnerr.IsEncryption(err))
}

func TestUpgrade_NoiseImpostor(t *testing.T) {
	expected := mustNoiseKey(t)
	impostor := mustNoiseKey(t)
	addr := serve(t, noiseServer(noiseconn.ServerConfig{StaticKeypair: impostor}, nil, greetAndEcho))

	cfg := NewNoiseConfig(pinned(t, "localhost", expected.Public))
	raw := dial(t, addr)
	_, err := Upgrade(context.Background(), raw, "localhost", Encrypted, NoiseConnector{Config: cfg})

	// The impostor cannot decrypt the first message and hangs up; the
	// client only ever sees the stream end.
	require.Error(t, err)
	assert.True(t, nnerr.IsIO(err), "got %T: %v", err, err)
	assertClosed(t, raw)
}

func TestUpgrade_NoisePrologueMismatch(t *testing.T) {
	server := mustNoiseKey(t)
	addr := serve(t, noiseServer(noiseconn.ServerConfig{StaticKeypair: server}, nil, greetAndEcho))

	cfg := NewNoiseConfig(pinned(t, "localhost", server.Public), WithPrologue([]byte("other-v9")))
	_, err := Upgrade(context.Background(), dial(t, addr), "localhost", Encrypted, NoiseConnector{Config: cfg})
	require.Error(t, err)
}

func TestUpgrade_NoiseCancel(t *testing.T) {
	server := mustNoiseKey(t)
	addr := serve(t, silent)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	cfg := NewNoiseConfig(pinned(t, "localhost", server.Public))
	raw := dial(t, addr)
	_, err := Upgrade(ctx, raw, "localhost", Encrypted, NoiseConnector{Config: cfg})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, nnerr.IsIO(err))
	assertClosed(t, raw)
}

func TestUpgrade_NoiseDefaultStore(t *testing.T) {
	server := mustNoiseKey(t)
	addr := serve(t, noiseServer(noiseconn.ServerConfig{StaticKeypair: server}, nil, greetAndEcho))

	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("HOME", dir)
	writeKnownKeys(t, "localhost "+encodeKey(server.Public)+"\n")

	// Nil config: the store is read from its default location.
	tr, err := Upgrade(context.Background(), dial(t, addr), "localhost", Encrypted, NoiseConnector{})
	require.NoError(t, err)
	defer tr.Close()
	assert.Equal(t, greeting, readGreeting(t, tr))
}
