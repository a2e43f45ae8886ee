package jwt

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidSigningMethod is returned when a token is not RS256.
	ErrInvalidSigningMethod = errors.New("invalid JWT signing method")

	// ErrTokenExpired is returned when the token exp is in the past.
	ErrTokenExpired = errors.New("JWT token has expired")

	// ErrInvalidToken is returned for malformed tokens or bad signatures.
	ErrInvalidToken = errors.New("invalid token")

	// ErrUnknownKey is returned when the token kid does not match the active key.
	ErrUnknownKey = errors.New("unknown signing key")
)

// AccessTypeGuest is the access_type of tokens minted from delegated codes.
const AccessTypeGuest = "guest"

// Verifier validates a bearer token and returns its claims.
type Verifier interface {
	Verify(ctx context.Context, token string) (*Claims, error)
}

// Signer produces a signed access token from claims.
type Signer interface {
	Sign(ctx context.Context, clm Claims) (string, error)
}

type clocker interface {
	Now() time.Time
}

type generator interface {
	Generate() string
}

// Claims carries the registered claims plus the access-token attributes
// minted by the extension grants.
type Claims struct {
	jwt.RegisteredClaims

	ClientID    string   `json:"client_id,omitempty"`
	Scope       string   `json:"scope,omitempty"`
	Authorities []string `json:"authorities,omitempty"`
	Email       string   `json:"email,omitempty"`
	Name        string   `json:"name,omitempty"`
	ResourceID  string   `json:"resource_id,omitempty"`
	WorkspaceID string   `json:"workspace_id,omitempty"`
	AccessType  string   `json:"access_type,omitempty"`
}

// IsGuest reports whether the token was minted from a delegated code.
func (c *Claims) IsGuest() bool {
	return c.AccessType == AccessTypeGuest
}

// Scopes splits the space separated scope claim.
func (c *Claims) Scopes() []string {
	return strings.Fields(c.Scope)
}

// HasAuthority reports whether the principal carries role.
func (c *Claims) HasAuthority(role string) bool {
	for _, a := range c.Authorities {
		if a == role {
			return true
		}
	}
	return false
}

type authKey struct{}

// GetAuth returns the claims stored by SetAuth, or nil.
func GetAuth(ctx context.Context) *Claims {
	clm, _ := ctx.Value(authKey{}).(*Claims)
	return clm
}

func SetAuth(ctx context.Context, clm *Claims) context.Context {
	return context.WithValue(ctx, authKey{}, clm)
}
