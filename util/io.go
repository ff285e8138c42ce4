package util

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"
)

// DefaultBufSize is the standard buffer size for network I/O (32 KiB).
const DefaultBufSize = 32 * 1024

// bufPool holds DefaultBufSize copy buffers.
var bufPool = sync.Pool{
	New: func() interface{} {
		buf := make([]byte, DefaultBufSize)
		return &buf
	},
}

// GetBuf takes a copy buffer from the pool.  Return it with [PutBuf].
func GetBuf() *[]byte {
	return bufPool.Get().(*[]byte)
}

// PutBuf hands buf back.  nil and resized buffers are dropped.
func PutBuf(buf *[]byte) {
	if buf == nil || cap(*buf) < DefaultBufSize {
		return
	}
	*buf = (*buf)[:DefaultBufSize]
	bufPool.Put(buf)
}

// closeWriter is implemented by streams that support half-close:
// *net.TCPConn, *tls.Conn and every stream.Transport variant.
type closeWriter interface {
	CloseWrite() error
}

// BidirectionalCopy shuffles data between a connection and a local
// reader/writer pair (typically stdin/stdout) until the remote side
// finishes or the context is cancelled.
//
// It returns once the connection side is done.  A read of r that is
// still blocked at that point (a terminal never reports EOF on its own)
// is left behind and ends on its next write to the closed conn.
func BidirectionalCopy(ctx context.Context, conn net.Conn, r io.Reader, w io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	recvErr := make(chan error, 1)
	sendErr := make(chan error, 1)

	// network → writer
	go func() {
		buf := GetBuf()
		defer PutBuf(buf)
		_, err := io.CopyBuffer(w, conn, *buf)
		recvErr <- err
		cancel()
	}()

	// reader → network
	go func() {
		buf := GetBuf()
		defer PutBuf(buf)
		_, err := io.CopyBuffer(conn, r, *buf)
		// Half-close so the server sees the end of our input but can
		// still answer; the other goroutine drains the rest.
		if cw, ok := conn.(closeWriter); ok {
			cw.CloseWrite() //nolint:errcheck
		}
		sendErr <- err
		if err != nil {
			cancel()
		}
	}()

	<-ctx.Done()
	conn.Close() // unblock any pending reads/writes
	err := <-recvErr

	select {
	case serr := <-sendErr:
		if !isHarmless(serr) {
			return serr
		}
	default:
	}
	if !isHarmless(err) {
		return err
	}
	return nil
}

// isHarmless returns true for errors that are expected during shutdown.
func isHarmless(err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) || errors.Is(err, io.ErrClosedPipe) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return errors.Is(opErr.Err, net.ErrClosed)
	}
	return false
}
