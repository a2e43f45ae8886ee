package entity

import "errors"

var (
	// ErrRateLimited is returned when a credential is requested again inside its cooldown.
	ErrRateLimited = errors.New("identity: credential requested too frequently")

	// ErrInvalidOrExpiredCredential covers every verification failure: unknown,
	// mismatched, expired or already consumed.
	ErrInvalidOrExpiredCredential = errors.New("identity: invalid or expired credential")

	// ErrLocked is returned once an MFA method reached MaxAttempts failures.
	ErrLocked = errors.New("identity: mfa method locked")
)

// MaxAttempts is the number of failed MFA verifications that locks a method.
const MaxAttempts = 5
