package otp

import (
	"encoding/base32"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// secretSize is the RFC 4226 recommended 160-bit shared secret; it encodes to
// exactly 32 base32 characters.
const secretSize = 20

// TOTP implements RFC 6238 with HMAC-SHA1.
type TOTP struct {
	issuer string
	period uint
	skew   uint
	digits otp.Digits
}

// NewTOTP defaults to a 30 second period, a skew of one step either side and
// six digits.
func NewTOTP(issuer string, period, skew uint, digits otp.Digits) *TOTP {
	if digits != otp.DigitsSix && digits != otp.DigitsEight {
		digits = otp.DigitsSix
	}
	if period == 0 {
		period = 30
	}
	if skew == 0 {
		skew = 1
	}
	return &TOTP{issuer: issuer, period: period, skew: skew, digits: digits}
}

// Generate creates a new secret and its otpauth:// provisioning URI.
func (o *TOTP) Generate(accountName string) (secret, uri string, err error) {
	key, err := totp.Generate(o.generateOpts(accountName, nil))
	if err != nil {
		return "", "", err
	}
	return key.Secret(), key.URL(), nil
}

// URI rebuilds the provisioning URI for an existing base32 secret.
func (o *TOTP) URI(accountName, secret string) (string, error) {
	raw, err := base32.StdEncoding.WithPadding(base32.NoPadding).DecodeString(strings.ToUpper(secret))
	if err != nil {
		return "", err
	}
	key, err := totp.Generate(o.generateOpts(accountName, raw))
	if err != nil {
		return "", err
	}
	return key.URL(), nil
}

func (o *TOTP) generateOpts(accountName string, secret []byte) totp.GenerateOpts {
	return totp.GenerateOpts{
		Issuer:      o.issuer,
		AccountName: accountName,
		Period:      o.period,
		SecretSize:  secretSize,
		Secret:      secret,
		Digits:      o.digits,
		Algorithm:   otp.AlgorithmSHA1,
	}
}

func (o *TOTP) validateOpts() totp.ValidateOpts {
	return totp.ValidateOpts{Period: o.period, Skew: o.skew, Digits: o.digits, Algorithm: otp.AlgorithmSHA1}
}

// Validate accepts codes for the step containing at and skew steps around it.
func (o *TOTP) Validate(code, secret string, at time.Time) bool {
	ok, err := totp.ValidateCustom(code, secret, at, o.validateOpts())
	return ok && err == nil
}

func (o *TOTP) GenerateCode(secret string, at time.Time) (string, error) {
	return totp.GenerateCodeCustom(secret, at, o.validateOpts())
}
