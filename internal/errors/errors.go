// Package errors provides the error taxonomy shared by every gonntp
// component.
//
// Failures fall into three categories: I/O (socket and handshake
// transport faults), encryption (backend handshakes, unsupported or
// unconfigured backends, unusable hostnames) and protocol (malformed
// replies).  Each category is a structured type carrying the context a
// caller needs to tell "network unreachable" apart from "this build
// cannot speak an encrypted protocol".
package errors

import (
	"errors"
	"fmt"
	"net"
	"unicode/utf8"
)

// ── Sentinel errors ──────────────────────────────────────────────────

var (
	// ErrNotEnabled is the cause of an encryption failure when no
	// backend able to serve the request is compiled in.
	ErrNotEnabled = errors.New("encryption not enabled")
	// ErrInvalidDNSName is returned when a hostname cannot be used to
	// verify the peer.
	ErrInvalidDNSName = errors.New("invalid DNS name")
	// ErrUnknownHostKey is returned when no pinned key exists for a host.
	ErrUnknownHostKey = errors.New("no pinned key for host")
	// ErrInvalidStatusCode is the cause of every status decoding failure.
	ErrInvalidStatusCode = errors.New("invalid status code")

	ErrConnectionClosed = errors.New("connection closed normally")
	ErrAlreadyClosed    = errors.New("trying to work with closed connection")
	ErrTimeout          = errors.New("operation timed out")
	ErrAuthFailed       = errors.New("authentication failed")
	ErrHostKeyMismatch  = errors.New("host key mismatch")
)

// ── Categories ───────────────────────────────────────────────────────

// Category is the top-level classification of an error.
type Category int

const (
	CategoryNone Category = iota
	CategoryIO
	CategoryEncryption
	CategoryProtocol
)

func (c Category) String() string {
	switch c {
	case CategoryIO:
		return "io"
	case CategoryEncryption:
		return "encryption"
	case CategoryProtocol:
		return "protocol"
	default:
		return "none"
	}
}

// ── Structured error types ───────────────────────────────────────────

// IOError represents a failure of the underlying byte stream.
type IOError struct {
	Op        string // "dial", "read", "write", "handshake"
	Addr      string // network address involved
	Err       error
	Retryable bool // whether the caller may retry
}

func (e *IOError) Error() string {
	s := "io error: "
	if e.Addr != "" {
		s += fmt.Sprintf("%s %s: %v", e.Op, e.Addr, e.Err)
	} else {
		s += fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	if e.Retryable {
		s += " (retryable)"
	}
	return s
}

func (e *IOError) Unwrap() error { return e.Err }

// EncryptionError represents a failure attributed to an encryption
// backend, or to the absence of one.
type EncryptionError struct {
	Backend string // "tls", "noise", "plain" or "" when none was selected
	Host    string
	Err     error
}

func (e *EncryptionError) Error() string {
	switch {
	case e.Backend == "":
		return fmt.Sprintf("encryption error: %v", e.Err)
	case e.Host == "":
		return fmt.Sprintf("%s error: %v", e.Backend, e.Err)
	default:
		return fmt.Sprintf("%s error (%s): %v", e.Backend, e.Host, e.Err)
	}
}

func (e *EncryptionError) Unwrap() error { return e.Err }

// ProtocolError represents a malformed reply.  It is local to the reply
// that produced it and says nothing about the health of the connection.
type ProtocolError struct {
	Input string // offending token, truncated
	Err   error
}

func (e *ProtocolError) Error() string {
	if e.Input == "" {
		return fmt.Sprintf("nntp error: %v", e.Err)
	}
	return fmt.Sprintf("nntp error: %v %q", e.Err, e.Input)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// SSHError represents a jump-host failure with host context.
type SSHError struct {
	Op   string // "handshake", "auth", "hostkey", "channel"
	Host string
	Port int
	Err  error
}

func (e *SSHError) Error() string {
	return fmt.Sprintf("ssh %s %s:%d: %v", e.Op, e.Host, e.Port, e.Err)
}

func (e *SSHError) Unwrap() error { return e.Err }

// ConfigError represents an invalid configuration value.
type ConfigError struct {
	Field   string      // config field name
	Value   interface{} // the invalid value (nil if missing)
	Message string      // human-readable explanation
	Hint    string      // suggestion for the user (optional)
}

func (e *ConfigError) Error() string {
	msg := fmt.Sprintf("config: --%s", e.Field)
	if e.Value != nil {
		msg += fmt.Sprintf("=%v", e.Value)
	}
	msg += ": " + e.Message
	if e.Hint != "" {
		msg += "\n  hint: " + e.Hint
	}
	return msg
}

// ── Constructors ─────────────────────────────────────────────────────

// Wrap creates an IOError, detecting retryability from the underlying
// error.  An error that already carries a category is returned as is.
func Wrap(op, addr string, err error) error {
	if err == nil {
		return nil
	}
	if CategoryOf(err) != CategoryNone {
		return err
	}
	return &IOError{
		Op:        op,
		Addr:      addr,
		Err:       err,
		Retryable: classifyRetryable(err),
	}
}

// Encryption creates an EncryptionError.
func Encryption(backend, host string, err error) *EncryptionError {
	return &EncryptionError{Backend: backend, Host: host, Err: err}
}

// Protocol creates a ProtocolError for the given input.
func Protocol(input string, err error) *ProtocolError {
	const max = 32
	if len(input) > max {
		cut := max
		for cut > 0 && !utf8.RuneStart(input[cut]) {
			cut--
		}
		input = input[:cut] + "..."
	}
	return &ProtocolError{Input: input, Err: err}
}

// WrapSSH creates an SSHError.
func WrapSSH(op, host string, port int, err error) *SSHError {
	return &SSHError{Op: op, Host: host, Port: port, Err: err}
}

// ── Classification helpers ───────────────────────────────────────────

// CategoryOf reports the category of the outermost classified error in
// err's chain.  Joined errors are searched in order.
func CategoryOf(err error) Category {
	switch e := err.(type) {
	case nil:
		return CategoryNone
	case *IOError:
		return CategoryIO
	case *EncryptionError:
		return CategoryEncryption
	case *ProtocolError:
		return CategoryProtocol
	case interface{ Unwrap() []error }:
		for _, inner := range e.Unwrap() {
			if c := CategoryOf(inner); c != CategoryNone {
				return c
			}
		}
		return CategoryNone
	}
	return CategoryOf(errors.Unwrap(err))
}

// IsIO reports whether err is an I/O failure.
func IsIO(err error) bool { return CategoryOf(err) == CategoryIO }

// IsEncryption reports whether err is an encryption failure.
func IsEncryption(err error) bool { return CategoryOf(err) == CategoryEncryption }

// IsProtocol reports whether err is a protocol failure.
func IsProtocol(err error) bool { return CategoryOf(err) == CategoryProtocol }

// IsRetryable reports whether err is worth retrying.  Only I/O failures
// ever are.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var ie *IOError
	if errors.As(err, &ie) {
		return ie.Retryable
	}
	if CategoryOf(err) != CategoryNone {
		return false
	}
	return classifyRetryable(err)
}

// classifyRetryable inspects standard library error types.
func classifyRetryable(err error) bool {
	if err == nil {
		return false
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return opErr.Temporary() //nolint:staticcheck // Temporary is deprecated but still useful
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.Temporary() //nolint:staticcheck
	}
	return false
}

// ── Re-exports for convenience ───────────────────────────────────────

// As is [errors.As].
func As(err error, target interface{}) bool { return errors.As(err, target) }

// Is is [errors.Is].
func Is(err, target error) bool { return errors.Is(err, target) }

// New is [errors.New].
func New(text string) error { return errors.New(text) }

// Unwrap is [errors.Unwrap].
func Unwrap(err error) error { return errors.Unwrap(err) }

// Join is [errors.Join].
func Join(errs ...error) error { return errors.Join(errs...) }
