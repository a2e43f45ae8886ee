package inbound

import (
	"context"
	"net/http"

	"github.com/shandysiswandi/credbite/internal/oauth/usecase"
	"github.com/shandysiswandi/credbite/internal/pkg/jwt"
	"github.com/shandysiswandi/credbite/internal/pkg/router"
)

type uc interface {
	GenerateGuestCode(ctx context.Context, in usecase.GenerateGuestCodeInput) (*usecase.GenerateCodeOutput, error)
	ValidateGuestCode(ctx context.Context, in usecase.ValidateCodeInput) (*usecase.ValidateCodeOutput, error)
	RevokeGuestCode(ctx context.Context, in usecase.RevokeCodeInput) error

	GenerateShareCode(ctx context.Context, in usecase.GenerateShareCodeInput) (*usecase.GenerateCodeOutput, error)
	ValidateShareCode(ctx context.Context, in usecase.ValidateCodeInput) (*usecase.ValidateCodeOutput, error)
	RevokeShareCode(ctx context.Context, in usecase.RevokeCodeInput) error

	Token(ctx context.Context, in usecase.TokenInput) (*usecase.TokenOutput, error)
	Revoke(ctx context.Context, in usecase.RevokeInput) error
	Introspect(ctx context.Context, in usecase.IntrospectInput) (*usecase.IntrospectOutput, error)
	JWKS(ctx context.Context) (*jwt.JWKSet, error)
	Logout(ctx context.Context, in usecase.LogoutInput) error

	ListTokens(ctx context.Context, in usecase.ListTokensInput) (*usecase.ListTokensOutput, error)
	ListPrincipalTokens(ctx context.Context, in usecase.PrincipalTokensInput) ([]usecase.TokenInfo, error)
	RevokeToken(ctx context.Context, in usecase.RevokeTokenInput) error
	RevokePrincipalTokens(ctx context.Context, in usecase.RevokePrincipalTokensInput) (*usecase.RevokePrincipalTokensOutput, error)
}

func RegisterHTTPEndpoint(r *router.Router, uc uc) {
	end := &HTTPEndpoint{uc: uc}
	oauth := &OAuth2Endpoint{uc: uc}

	// Protocol endpoints (client credentials, not bearer)
	r.POSTRaw("/oauth2/token", http.HandlerFunc(oauth.Token))
	r.POSTRaw("/oauth2/revoke", http.HandlerFunc(oauth.Revoke))
	r.POSTRaw("/oauth2/introspect", http.HandlerFunc(oauth.Introspect))
	r.GETRaw("/oauth2/jwks", http.HandlerFunc(oauth.JWKS))
	r.Public(http.MethodPost, "/oauth2/token")
	r.Public(http.MethodPost, "/oauth2/revoke")
	r.Public(http.MethodPost, "/oauth2/introspect")
	r.Public(http.MethodGet, "/oauth2/jwks")

	r.POST("/api/v1/oauth/logout", end.Logout)

	// Delegated access codes (need authenticated & authorization); guest
	// tokens may only validate
	r.POST("/api/v1/guest-codes", end.GenerateGuestCode, router.DenyGuestAccess)
	r.GET("/api/v1/guest-codes/validate", end.ValidateGuestCode)
	r.DELETE("/api/v1/guest-codes/:code", end.RevokeGuestCode, router.DenyGuestAccess)
	r.POST("/api/v1/share-codes", end.GenerateShareCode, router.DenyGuestAccess)
	r.GET("/api/v1/share-codes/validate", end.ValidateShareCode)
	r.DELETE("/api/v1/share-codes/:code", end.RevokeShareCode, router.DenyGuestAccess)

	// Token management (need authenticated & authorization)
	r.GET("/api/v1/admin/oauth2/tokens", end.ListTokens, router.DenyGuestAccess)
	r.DELETE("/api/v1/admin/oauth2/tokens/:id", end.RevokeToken, router.DenyGuestAccess)
	r.GET("/api/v1/admin/oauth2/users/:username/tokens", end.ListPrincipalTokens, router.DenyGuestAccess)
	r.DELETE("/api/v1/admin/oauth2/users/:username/tokens", end.RevokePrincipalTokens, router.DenyGuestAccess)
	r.DELETE("/api/v1/admin/oauth2/users/:username/clients/:client_id/tokens", end.RevokePrincipalTokens, router.DenyGuestAccess)
}
