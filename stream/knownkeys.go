package stream

import (
	"bufio"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/curve25519"
)

// KnownKeys maps normalised hostnames to pinned Noise server keys.
//
// The on-disk format follows OpenSSH's known_hosts: one entry per line,
// a comma-separated host list, whitespace, then the base64 key.  Blank
// lines and lines starting with '#' are ignored.
//
//	news.example.com,news 3Nhx...base64...=
type KnownKeys map[string][]byte

// Add pins key for host, replacing any earlier entry.
func (k KnownKeys) Add(host string, key []byte) error {
	if len(key) != curve25519.PointSize {
		return fmt.Errorf("key for %s must be %d bytes, got %d", host, curve25519.PointSize, len(key))
	}
	name, err := normalizeHost(host)
	if err != nil {
		return fmt.Errorf("%s: %w", host, err)
	}
	k[name] = append([]byte(nil), key...)
	return nil
}

// Lookup returns the key pinned for host.
func (k KnownKeys) Lookup(host string) ([]byte, bool) {
	name, err := normalizeHost(host)
	if err != nil {
		return nil, false
	}
	key, ok := k[name]
	return key, ok
}

func (k KnownKeys) clone() KnownKeys {
	out := make(KnownKeys, len(k))
	for h, key := range k {
		out[h] = key
	}
	return out
}

// ParseKnownKeys reads a known-keys store from r.
func ParseKnownKeys(r io.Reader) (KnownKeys, error) {
	keys := make(KnownKeys)
	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			return nil, fmt.Errorf("line %d: want \"hosts key\", got %d fields", lineNo, len(fields))
		}
		key, err := base64.StdEncoding.DecodeString(fields[1])
		if err != nil {
			return nil, fmt.Errorf("line %d: bad key: %w", lineNo, err)
		}
		for _, host := range strings.Split(fields[0], ",") {
			if host == "" {
				continue
			}
			if err := keys.Add(host, key); err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return keys, nil
}

// LoadKnownKeys reads the store at path.
func LoadKnownKeys(path string) (KnownKeys, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	keys, err := ParseKnownKeys(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return keys, nil
}

// DefaultKnownKeysPath is $XDG_CONFIG_HOME/gonntp/known_keys or the
// platform equivalent.
func DefaultKnownKeysPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "gonntp", "known_keys"), nil
}

// LoadDefaultKnownKeys reads the store at DefaultKnownKeysPath.  A
// missing file is an empty store.
func LoadDefaultKnownKeys() (KnownKeys, error) {
	path, err := DefaultKnownKeysPath()
	if err != nil {
		return KnownKeys{}, nil
	}
	keys, err := LoadKnownKeys(path)
	if errors.Is(err, fs.ErrNotExist) {
		return KnownKeys{}, nil
	}
	return keys, err
}
