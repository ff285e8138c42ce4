package stream

import (
	"bytes"
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodeKey(k []byte) string { return base64.StdEncoding.EncodeToString(k) }

// writeKnownKeys writes content to the default store location.
func writeKnownKeys(t *testing.T, content string) string {
	t.Helper()
	path, err := DefaultKnownKeysPath()
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o700))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestParseKnownKeys(t *testing.T) {
	k1 := bytes.Repeat([]byte{1}, 32)
	k2 := bytes.Repeat([]byte{2}, 32)

	input := strings.Join([]string{
		"# pinned servers",
		"",
		"news.example.com,News " + encodeKey(k1),
		"   10.0.0.5\t" + encodeKey(k2),
		"[::1] " + encodeKey(k2),
	}, "\n")

	keys, err := ParseKnownKeys(strings.NewReader(input))
	require.NoError(t, err)
	assert.Len(t, keys, 4)

	for host, want := range map[string][]byte{
		"news.example.com":  k1,
		"NEWS.example.com.": k1,
		"news":              k1,
		"10.0.0.5":          k2,
		"::1":               k2,
		"[::1]":             k2,
	} {
		got, ok := keys.Lookup(host)
		if assert.True(t, ok, host) {
			assert.Equal(t, want, got, host)
		}
	}

	_, ok := keys.Lookup("other.example.com")
	assert.False(t, ok)
	_, ok = keys.Lookup("bad host!")
	assert.False(t, ok)
}

func TestParseKnownKeys_Errors(t *testing.T) {
	good := encodeKey(bytes.Repeat([]byte{7}, 32))

	tests := map[string]string{
		"missing key":  "news.example.com\n",
		"extra field":  "news.example.com " + good + " trailing\n",
		"bad base64":   "news.example.com not*base64\n",
		"short key":    "news.example.com " + encodeKey([]byte("short")) + "\n",
		"invalid host": "bad_host! " + good + "\n",
	}

	for name, input := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseKnownKeys(strings.NewReader("# header\n" + input))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "line 2")
		})
	}
}

func TestLoadKnownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "known_keys")
	key := bytes.Repeat([]byte{9}, 32)
	require.NoError(t, os.WriteFile(path, []byte("localhost "+encodeKey(key)+"\n"), 0o600))

	keys, err := LoadKnownKeys(path)
	require.NoError(t, err)
	got, ok := keys.Lookup("localhost")
	require.True(t, ok)
	assert.Equal(t, key, got)

	_, err = LoadKnownKeys(filepath.Join(t.TempDir(), "missing"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadDefaultKnownKeys(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("HOME", dir)

	keys, err := LoadDefaultKnownKeys()
	require.NoError(t, err, "a missing store is empty, not an error")
	assert.Empty(t, keys)

	writeKnownKeys(t, "localhost "+encodeKey(bytes.Repeat([]byte{3}, 32))+"\n")
	keys, err = LoadDefaultKnownKeys()
	require.NoError(t, err)
	assert.Len(t, keys, 1)

	writeKnownKeys(t, "garbage\n")
	_, err = LoadDefaultKnownKeys()
	assert.Error(t, err)
}
