package status

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	nnerr "gonntp/internal/errors"
)

func TestFromNumeric_ValidRange(t *testing.T) {
	for n := 100; n <= 599; n++ {
		code, err := FromNumeric(n)
		require.NoError(t, err, "n=%d", n)
		require.Equal(t, uint16(n), code.Uint16())
	}
}

func TestFromNumeric_OutOfRange(t *testing.T) {
	for _, n := range []int{-1, 0, 1, 42, 99, 600, 999, 1000, 65535, 70000} {
		_, err := FromNumeric(n)
		require.Error(t, err, "n=%d", n)
		assert.ErrorIs(t, err, ErrInvalidStatusCode)
		assert.True(t, nnerr.IsProtocol(err))
	}
}

func TestFromBytes_PositionalDecoding(t *testing.T) {
	code, err := FromBytes([]byte("215"))
	require.NoError(t, err)
	assert.Equal(t, Code(215), code)

	other, err := FromBytes([]byte("222"))
	require.NoError(t, err)
	assert.NotEqual(t, code, other)

	for _, s := range []string{"123", "321", "599", "100", "480"} {
		c, err := Parse(s)
		require.NoError(t, err)
		assert.Equal(t, s, c.String())
	}
}

func TestFromBytes_Invalid(t *testing.T) {
	tests := []string{"0AB", "12", "1234", "abc", "", "099", "600", "1a2", "12 ", " 12", "9-9"}
	for _, in := range tests {
		t.Run(in, func(t *testing.T) {
			_, err := FromBytes([]byte(in))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidStatusCode)
		})
	}
}

func TestClassifiers(t *testing.T) {
	tests := []struct {
		code  string
		class string
	}{
		{"100", "informational"},
		{"199", "informational"},
		{"200", "success"},
		{"215", "success"},
		{"340", "in-progress"},
		{"381", "in-progress"},
		{"411", "server-error"},
		{"483", "server-error"},
		{"500", "client-error"},
		{"599", "client-error"},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			c, err := Parse(tt.code)
			require.NoError(t, err)

			flags := map[string]bool{
				"informational": c.IsInformational(),
				"success":       c.IsSuccess(),
				"in-progress":   c.IsInProgress(),
				"server-error":  c.IsServerError(),
				"client-error":  c.IsClientError(),
			}
			for name, set := range flags {
				assert.Equal(t, name == tt.class, set, "%s classifier on %s", name, tt.code)
			}
			assert.Equal(t, tt.class, c.Class())
		})
	}
}

func TestRoundTrip(t *testing.T) {
	for a := '1'; a <= '5'; a++ {
		for b := '0'; b <= '9'; b++ {
			for c := '0'; c <= '9'; c++ {
				in := []byte{byte(a), byte(b), byte(c)}
				code, err := FromBytes(in)
				require.NoError(t, err)

				again, err := FromNumeric(int(code.Uint16()))
				require.NoError(t, err)
				require.Equal(t, code, again)
				require.Equal(t, string(in), code.String())
			}
		}
	}
}

func TestParseLine(t *testing.T) {
	tests := []struct {
		line     string
		wantCode Code
		wantText string
		wantErr  bool
	}{
		{"200 news.example.com ready - posting allowed", PostingAllowed, "news.example.com ready - posting allowed", false},
		{"215 list follows", InformationFollows, "list follows", false},
		{"205", ConnectionClosing, "", false},
		{"211 ", GroupSelected, "", false},
		{"2150 nope", 0, "", true},
		{"20", 0, "", true},
		{"abc def", 0, "", true},
		{"", 0, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			code, text, err := ParseLine(tt.line)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidStatusCode)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantCode, code)
			assert.Equal(t, tt.wantText, text)
		})
	}
}
