package entity

import (
	"time"

	"github.com/samber/lo"

	"github.com/shandysiswandi/credbite/internal/pkg/jwt"
	"github.com/shandysiswandi/credbite/internal/pkg/valueobject"
)

const (
	GrantTypeGuestCode = "urn:ietf:params:oauth:grant-type:guest_code"
	GrantTypeShareCode = "urn:ietf:params:oauth:grant-type:share_code"

	TokenTypeBearer = "Bearer"

	// AccessTypeGuest marks tokens minted from delegated codes.
	AccessTypeGuest = jwt.AccessTypeGuest

	// AuthorityGuest is granted to holders of a guest code.
	AuthorityGuest = "guest"
)

// TokenKind selects which token hash a lookup matches. TokenKindAny matches
// both.
type TokenKind string

const (
	TokenKindAny     TokenKind = ""
	TokenKindAccess  TokenKind = "access_token"
	TokenKindRefresh TokenKind = "refresh_token"
)

// ParseTokenKind reports false for hints this server does not know.
func ParseTokenKind(hint string) (TokenKind, bool) {
	switch TokenKind(hint) {
	case TokenKindAny, TokenKindAccess, TokenKindRefresh:
		return TokenKind(hint), true
	default:
		return TokenKindAny, false
	}
}

type UserStatus int16

const (
	UserStatusActive UserStatus = 2
)

type User struct {
	ID       string
	Email    string
	FullName string
	Status   UserStatus
	Roles    []string
}

// RegisteredClient is an OAuth2 client allowed to call the token endpoint.
type RegisteredClient struct {
	ID               string
	ClientID         string
	ClientSecretHash string
	ClientName       string
	GrantTypes       []string
	Scopes           []string
	// AccessTokenTTL caps token lifetime; zero means the code expiry rules.
	AccessTokenTTL time.Duration
}

func (c *RegisteredClient) AllowsGrant(grantType string) bool {
	return lo.Contains(c.GrantTypes, grantType)
}

// Principal is the transient identity a token is issued for.
type Principal struct {
	Subject     string
	Name        string
	Email       string
	WorkspaceID string
	Authorities []string
}

// Token is one issued token. Value is only set on the issuing path; the
// store keeps Hash.
type Token struct {
	Value     string
	Hash      string
	Type      string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

func (t *Token) IsActive(now time.Time) bool {
	return now.Before(t.ExpiresAt)
}

// AuthorizationRecord is the durable trace of an issued token, used for
// revocation, introspection and token management.
type AuthorizationRecord struct {
	ID                 int64
	RegisteredClientID string
	PrincipalName      string
	GrantType          string
	AuthorizedScopes   []string
	AccessToken        Token
	RefreshToken       *Token
	Attributes         valueobject.JSONMap
	Metadata           valueobject.JSONMap
}
