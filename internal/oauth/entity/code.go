package entity

import "time"

// GuestClaims identify an invited person that has no account.
type GuestClaims struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	OwnerEmail string `json:"owner_email"`
}

// ShareClaims point at an existing user, guest users included.
type ShareClaims struct {
	UserID string `json:"user_id"`
}

// DelegatedClaims is the closed set of subjects a delegated code may carry.
type DelegatedClaims interface {
	GuestClaims | ShareClaims
}

// DelegatedCode is a multi-use capability over one resource. It is stored as
// a single key whose TTL equals its lifetime.
type DelegatedCode[T DelegatedClaims] struct {
	Code        string    `json:"-"`
	Resource    string    `json:"resource"`
	ResourceID  string    `json:"resource_id"`
	Write       bool      `json:"write"`
	Subject     T         `json:"subject"`
	RedirectURL string    `json:"redirect_url,omitempty"`
	WorkspaceID string    `json:"workspace_id,omitempty"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Scopes returns "<resource>:<id>:read" and, for writable codes,
// "<resource>:<id>:write".
func (c *DelegatedCode[T]) Scopes() []string {
	prefix := c.Resource + ":" + c.ResourceID + ":"
	if c.Write {
		return []string{prefix + "read", prefix + "write"}
	}
	return []string{prefix + "read"}
}

func (c *DelegatedCode[T]) IsExpired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}
