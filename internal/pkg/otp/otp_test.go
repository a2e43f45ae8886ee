package otp

import (
	"regexp"
	"strings"
	"testing"
	"time"

	libotp "github.com/pquerna/otp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// base32 of the RFC 6238 SHA1 seed "12345678901234567890"
const rfcSecret = "GEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQ"

func TestTOTP_RFC6238Vector(t *testing.T) {
	o := NewTOTP("credbite", 30, 1, libotp.DigitsEight)

	code, err := o.GenerateCode(rfcSecret, time.Unix(59, 0).UTC())
	require.NoError(t, err)
	assert.Equal(t, "94287082", code)

	code, err = o.GenerateCode(rfcSecret, time.Unix(1111111109, 0).UTC())
	require.NoError(t, err)
	assert.Equal(t, "07081804", code)
}

func TestTOTP_AcceptsOneStepEitherSide(t *testing.T) {
	o := NewTOTP("credbite", 0, 0, libotp.DigitsSix)
	at := time.Unix(1111111109, 0).UTC()

	for _, tc := range []struct {
		offset time.Duration
		ok     bool
	}{
		{-60 * time.Second, false},
		{-30 * time.Second, true},
		{0, true},
		{30 * time.Second, true},
		{60 * time.Second, false},
	} {
		code, err := o.GenerateCode(rfcSecret, at.Add(tc.offset))
		require.NoError(t, err)
		assert.Equal(t, tc.ok, o.Validate(code, rfcSecret, at), "offset %s", tc.offset)
	}

	assert.False(t, o.Validate("abcdef", rfcSecret, at))
}

func TestTOTP_GenerateAndURI(t *testing.T) {
	o := NewTOTP("credbite", 30, 1, libotp.DigitsSix)

	secret, uri, err := o.Generate("alice@example.com")
	require.NoError(t, err)
	assert.Len(t, secret, 32)
	assert.Regexp(t, regexp.MustCompile(`^[A-Z2-7]{32}$`), secret)
	assert.True(t, strings.HasPrefix(uri, "otpauth://totp/"))
	assert.Contains(t, uri, "secret="+secret)

	again, err := o.URI("alice@example.com", secret)
	require.NoError(t, err)
	assert.Contains(t, again, "secret="+secret)
	assert.Contains(t, again, "issuer=credbite")

	_, err = o.URI("alice@example.com", "not base32!")
	assert.Error(t, err)
}

func TestNumericCode(t *testing.T) {
	for range 50 {
		code, err := NumericCode(6)
		require.NoError(t, err)
		assert.Regexp(t, `^\d{6}$`, code)
	}

	code, err := NumericCode(8)
	require.NoError(t, err)
	assert.Len(t, code, 8)

	_, err = NumericCode(0)
	assert.Error(t, err)
}
