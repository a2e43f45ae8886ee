package entity

import (
	"errors"
	"net/http"
)

var (
	// ErrInvalidOrExpiredCode is returned when a delegated code is absent or
	// past its expiry.
	ErrInvalidOrExpiredCode = errors.New("invalid or expired access code")

	// ErrResourceMismatch is returned when a guest code is presented for a
	// resource it was not issued for.
	ErrResourceMismatch = errors.New("resource id mismatch")
)

// RFC 6749 section 5.2 error codes.
const (
	ErrCodeInvalidRequest       = "invalid_request"
	ErrCodeInvalidClient        = "invalid_client"
	ErrCodeInvalidGrant         = "invalid_grant"
	ErrCodeUnauthorizedClient   = "unauthorized_client"
	ErrCodeUnsupportedGrantType = "unsupported_grant_type"
	ErrCodeServerError          = "server_error"
)

// OAuth2Error is a protocol error rendered as {"error", "error_description"}.
type OAuth2Error struct {
	Code        string
	Description string
	cause       error
}

func NewOAuth2Error(code, description string) *OAuth2Error {
	return &OAuth2Error{Code: code, Description: description}
}

// WithCause keeps err reachable through errors.Is / errors.As.
func (e *OAuth2Error) WithCause(err error) *OAuth2Error {
	e.cause = err
	return e
}

func (e *OAuth2Error) Error() string {
	if e.Description == "" {
		return e.Code
	}
	return e.Code + ": " + e.Description
}

func (e *OAuth2Error) Unwrap() error { return e.cause }

func (e *OAuth2Error) StatusCode() int {
	switch e.Code {
	case ErrCodeInvalidClient:
		return http.StatusUnauthorized
	case ErrCodeServerError:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}
