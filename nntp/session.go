package nntp

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"net/textproto"

	nnerr "gonntp/internal/errors"
	"gonntp/internal/metrics"
	"gonntp/status"
	"gonntp/stream"
	"gonntp/util"
)

// Reply is one decoded status line.
type Reply struct {
	Code status.Code
	Text string
}

func (r Reply) String() string {
	if r.Text == "" {
		return r.Code.String()
	}
	return r.Code.String() + " " + r.Text
}

// Session frames a Transport into CRLF-terminated lines.  It is not safe
// for concurrent use.
type Session struct {
	t      stream.Transport
	text   *textproto.Conn
	log    *util.Logger
	closed bool

	// Metrics, if set, counts decoded replies and malformed lines.
	Metrics *metrics.Collector
}

// NewSession takes ownership of t.
func NewSession(t stream.Transport, logger *util.Logger) *Session {
	return &Session{
		t:    t,
		text: textproto.NewConn(t),
		log:  logger.WithField("peer", t.RemoteAddr().String()),
	}
}

// Transport returns the underlying stream.
func (s *Session) Transport() stream.Transport { return s.t }

// ReadReply reads one line and decodes its status code.
//
// A line with a malformed code yields a *errors.ProtocolError.  The
// line is consumed all the same, so the session stays usable and the
// next call reads the next line.
func (s *Session) ReadReply() (Reply, error) {
	if s.closed {
		return Reply{}, &nnerr.IOError{Op: "read", Addr: s.t.RemoteAddr().String(), Err: nnerr.ErrAlreadyClosed}
	}
	line, err := s.text.ReadLine()
	if err != nil {
		if err == io.EOF {
			err = fmt.Errorf("%w: %w", nnerr.ErrConnectionClosed, err)
		}
		err = nnerr.Wrap("read", s.t.RemoteAddr().String(), err)
		s.Metrics.RecordError(nnerr.CategoryOf(err).String(), err.Error())
		return Reply{}, err
	}
	s.log.Debug("<<< %s", line)

	code, text, err := status.ParseLine(line)
	if err != nil {
		s.Metrics.RecordError(nnerr.CategoryOf(err).String(), err.Error())
		return Reply{}, err
	}
	s.Metrics.ReplyParsed()
	return Reply{Code: code, Text: text}, nil
}

// WriteLine sends one command line, adding the CRLF.
func (s *Session) WriteLine(format string, args ...interface{}) error {
	if s.closed {
		return &nnerr.IOError{Op: "write", Addr: s.t.RemoteAddr().String(), Err: nnerr.ErrAlreadyClosed}
	}
	s.log.Debug(">>> "+format, args...)
	if err := s.text.PrintfLine(format, args...); err != nil {
		return nnerr.Wrap("write", s.t.RemoteAddr().String(), err)
	}
	return nil
}

// Command sends one command line and reads its reply.
func (s *Session) Command(format string, args ...interface{}) (Reply, error) {
	if err := s.WriteLine(format, args...); err != nil {
		return Reply{}, err
	}
	return s.ReadReply()
}

// Quit sends QUIT, reads the farewell and closes the session.
func (s *Session) Quit() (Reply, error) {
	r, err := s.Command("QUIT")
	if cerr := s.Close(); err == nil && cerr != nil {
		err = cerr
	}
	if err == nil && r.Code != status.ConnectionClosing {
		err = fmt.Errorf("unexpected reply to QUIT: %s", r)
	}
	return r, err
}

// Raw returns the stream for byte-level use after line framing is no
// longer wanted.  Reads drain whatever the session already buffered
// before reaching the Transport.  The session must not be used for
// reading afterwards.
func (s *Session) Raw() net.Conn {
	return &bufferedConn{Transport: s.t, r: s.text.R}
}

type bufferedConn struct {
	stream.Transport
	r *bufio.Reader
}

func (c *bufferedConn) Read(p []byte) (int, error) { return c.r.Read(p) }

// Close closes the Transport.  Closing twice reports ErrAlreadyClosed.
func (s *Session) Close() error {
	if s.closed {
		return nnerr.ErrAlreadyClosed
	}
	s.closed = true
	return s.t.Close()
}
