package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	nnerr "gonntp/internal/errors"
)

// BenchmarkDo measures the loop overhead on paths that never sleep.
func BenchmarkDo(b *testing.B) {
	refused := nnerr.Wrap("dial", "news.example.com:119", errors.New("connection refused"))
	rejected := nnerr.Encryption("tls", "news.example.com", errors.New("bad certificate"))

	cases := map[string]func(int) error{
		"success":   func(int) error { return nil },
		"permanent": func(int) error { return Classify(rejected) },
		"budget":    func(int) error { return Classify(refused) },
	}

	for name, fn := range cases {
		b.Run(name, func(b *testing.B) {
			bo := &Backoff{InitialDelay: time.Nanosecond, MaxAttempts: 1}
			ctx := context.Background()
			for i := 0; i < b.N; i++ {
				bo.Do(ctx, fn) //nolint:errcheck
			}
		})
	}
}

// BenchmarkClassify runs on every failed attempt.
func BenchmarkClassify(b *testing.B) {
	err := nnerr.Wrap("handshake", "news.example.com", context.DeadlineExceeded)
	for i := 0; i < b.N; i++ {
		_ = Classify(err)
	}
}

func BenchmarkJitter(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_ = addJitter(time.Second)
	}
}
