package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"golang.org/x/term"

	nnerr "gonntp/internal/errors"
	"gonntp/internal/metrics"
	"gonntp/internal/retry"
	"gonntp/nntp"
	"gonntp/status"
	"gonntp/stream"
	"gonntp/util"
)

// ConnectMode opens one session with a news server, reports its
// greeting, and then either says QUIT or hands the session to the
// user's terminal.
type ConnectMode struct {
	Dialer  *nntp.Dialer
	Host    string
	Port    int
	Mode    stream.Mode
	Timeout time.Duration // per attempt, and for the greeting

	// Retry, if set, repeats failed attempts.  Errors that another
	// attempt cannot fix end the loop at once.
	Retry *retry.Backoff

	Interactive bool
	Logger      *util.Logger
	Metrics     *metrics.Collector

	// Stdin/Stdout default to os.Stdin/os.Stdout when nil.
	// Override in tests for deterministic I/O.
	Stdin  io.Reader
	Stdout io.Writer
}

func (m *ConnectMode) stdin() io.Reader {
	if m.Stdin != nil {
		return m.Stdin
	}
	return os.Stdin
}

func (m *ConnectMode) stdout() io.Writer {
	if m.Stdout != nil {
		return m.Stdout
	}
	return os.Stdout
}

// Run connects, reads the greeting and prints it.  A greeting outside
// the 2xx range is returned as an error after the session is closed.
func (m *ConnectMode) Run(ctx context.Context) error {
	if m.Dialer.Dialer != nil {
		defer m.Dialer.Dialer.Close()
	}

	t, err := m.connect(ctx)
	if err != nil {
		return err
	}

	sess := nntp.NewSession(t, m.Logger)
	sess.Metrics = m.Metrics
	defer sess.Close()

	if m.Timeout > 0 {
		t.SetReadDeadline(time.Now().Add(m.Timeout)) //nolint:errcheck
	}
	greeting, err := sess.ReadReply()
	if err != nil {
		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() {
			return fmt.Errorf("greeting: %w after %s: %w", nnerr.ErrTimeout, m.Timeout, err)
		}
		return fmt.Errorf("greeting: %w", err)
	}
	t.SetReadDeadline(time.Time{}) //nolint:errcheck

	fmt.Fprintln(m.stdout(), greeting)
	m.Logger.Verbose("%s over %s: %s", t.RemoteAddr(), t.Kind(), describeGreeting(greeting.Code))

	if !greeting.Code.IsSuccess() {
		return fmt.Errorf("server refused service: %s", greeting)
	}

	if m.Interactive {
		if f, ok := m.stdin().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
			m.Logger.Info("connected to %s, type QUIT to end the session", t.RemoteAddr())
		}
		return util.BidirectionalCopy(ctx, sess.Raw(), m.stdin(), m.stdout())
	}

	reply, err := sess.Quit()
	if err != nil {
		m.Logger.Warn("quit: %v", err)
		return nil
	}
	m.Logger.Debug("quit: %s", reply)
	return nil
}

// connect runs the attempt loop.  Each attempt gets its own Timeout.
func (m *ConnectMode) connect(ctx context.Context) (stream.Transport, error) {
	var t stream.Transport
	attempt := func(n int) error {
		actx := ctx
		if m.Timeout > 0 {
			var cancel context.CancelFunc
			actx, cancel = context.WithTimeout(ctx, m.Timeout)
			defer cancel()
		}

		m.Logger.Verbose("connecting to %s (%s, attempt %d)",
			util.FormatAddr(m.Host, m.Port), m.Mode, n)

		tr, err := m.Dialer.Connect(actx, m.Host, m.Port, m.Mode)
		if err != nil {
			return retry.Classify(err)
		}
		t = tr
		return nil
	}

	if m.Retry == nil {
		if err := attempt(1); err != nil {
			return nil, unwrapPermanent(err)
		}
		return t, nil
	}
	if err := m.Retry.Do(ctx, attempt); err != nil {
		return nil, err
	}
	return t, nil
}

func unwrapPermanent(err error) error {
	if pe, ok := err.(*retry.PermanentError); ok {
		return pe.Err
	}
	return err
}

func describeGreeting(c status.Code) string {
	switch c {
	case status.PostingAllowed:
		return "posting allowed"
	case status.NoPostingAllowed:
		return "posting prohibited"
	case status.ServiceTemporarilyUnavailable:
		return "service temporarily unavailable"
	case status.ServicePermanentlyUnavailable:
		return "service permanently unavailable"
	}
	return c.Class()
}
