// Package status decodes the three-digit reply codes that lead every
// NNTP response line.
//
// A Code can only be obtained through one of the constructors, each of
// which rejects anything outside [100, 599]; the zero Code never comes
// back with a nil error.
package status

import (
	"strconv"

	nnerr "gonntp/internal/errors"
)

// ErrInvalidStatusCode is the cause of every decoding failure.
var ErrInvalidStatusCode = nnerr.ErrInvalidStatusCode

// Code is a validated reply code.
type Code uint16

// Reply codes the transport layer and its callers commonly meet.
const (
	HelpTextFollows               Code = 100
	CapabilityListFollows         Code = 101
	PostingAllowed                Code = 200
	NoPostingAllowed              Code = 201
	ConnectionClosing             Code = 205
	GroupSelected                 Code = 211
	InformationFollows            Code = 215
	ArticleFollows                Code = 220
	AuthenticationAccepted        Code = 281
	SendArticle                   Code = 340
	PasswordRequired              Code = 381
	ServiceTemporarilyUnavailable Code = 400
	NoSuchGroup                   Code = 411
	AuthenticationRequired        Code = 480
	EncryptionRequired            Code = 483
	UnknownCommand                Code = 500
	SyntaxError                   Code = 501
	ServicePermanentlyUnavailable Code = 502
	FeatureNotSupported           Code = 503
)

// FromNumeric validates n as a reply code.
func FromNumeric(n int) (Code, error) {
	if n < 100 || n > 599 {
		return 0, nnerr.Protocol(strconv.Itoa(n), ErrInvalidStatusCode)
	}
	return Code(n), nil
}

// FromBytes decodes exactly three ASCII digits, the first of which may
// not be '0'.
func FromBytes(src []byte) (Code, error) {
	if len(src) != 3 {
		return 0, nnerr.Protocol(string(src), ErrInvalidStatusCode)
	}

	a := int(src[0]) - '0'
	b := int(src[1]) - '0'
	c := int(src[2]) - '0'
	if a < 1 || a > 9 || b < 0 || b > 9 || c < 0 || c > 9 {
		return 0, nnerr.Protocol(string(src), ErrInvalidStatusCode)
	}

	return FromNumeric(a*100 + b*10 + c)
}

// Parse decodes a reply code from its textual form.
func Parse(s string) (Code, error) {
	return FromBytes([]byte(s))
}

// ParseLine splits a reply line such as "215 list follows" into its code
// and the remaining text.  The code must be followed by a space or end
// the line.
func ParseLine(line string) (Code, string, error) {
	if len(line) < 3 {
		return 0, "", nnerr.Protocol(line, ErrInvalidStatusCode)
	}
	if len(line) > 3 && line[3] != ' ' {
		return 0, "", nnerr.Protocol(line, ErrInvalidStatusCode)
	}
	code, err := Parse(line[:3])
	if err != nil {
		return 0, "", err
	}
	if len(line) == 3 {
		return code, "", nil
	}
	return code, line[4:], nil
}

// Uint16 returns the numeric value of c.
func (c Code) Uint16() uint16 { return uint16(c) }

func (c Code) String() string { return strconv.Itoa(int(c)) }

// IsInformational reports whether c is in [100, 200).
func (c Code) IsInformational() bool { return c >= 100 && c < 200 }

// IsSuccess reports whether c is in [200, 300).
func (c Code) IsSuccess() bool { return c >= 200 && c < 300 }

// IsInProgress reports whether c is in [300, 400): the command may
// continue with more input.
func (c Code) IsInProgress() bool { return c >= 300 && c < 400 }

// IsServerError reports whether c is in [400, 500).
func (c Code) IsServerError() bool { return c >= 400 && c < 500 }

// IsClientError reports whether c is in [500, 600).
func (c Code) IsClientError() bool { return c >= 500 && c < 600 }

// Class names the hundred-range of c.
func (c Code) Class() string {
	switch {
	case c.IsInformational():
		return "informational"
	case c.IsSuccess():
		return "success"
	case c.IsInProgress():
		return "in-progress"
	case c.IsServerError():
		return "server-error"
	case c.IsClientError():
		return "client-error"
	default:
		return "invalid"
	}
}
