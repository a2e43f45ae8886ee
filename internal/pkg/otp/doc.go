// Package otp covers one-time passwords: RFC 6238 TOTP backed by
// pquerna/otp, and uniformly random numeric codes for e-mail / SMS delivery
// and backup codes.
package otp
