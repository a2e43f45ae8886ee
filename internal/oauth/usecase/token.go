package usecase

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"

	"github.com/shandysiswandi/credbite/internal/oauth/entity"
	"github.com/shandysiswandi/credbite/internal/pkg/goerror"
	"github.com/shandysiswandi/credbite/internal/pkg/hash"
	"github.com/shandysiswandi/credbite/internal/pkg/jwt"
	"github.com/shandysiswandi/credbite/internal/pkg/valueobject"
)

// TokenInput carries the client credentials, already extracted from either
// HTTP Basic or the form, and the remaining form parameters.
type TokenInput struct {
	ClientID     string
	ClientSecret string
	Params       url.Values
}

type TokenOutput struct {
	AccessToken string
	TokenType   string
	ExpiresIn   int64
	Scope       string
	Extra       map[string]string
}

// Token runs the grant pipeline. Every rejection is an *entity.OAuth2Error.
func (s *Usecase) Token(ctx context.Context, in TokenInput) (*TokenOutput, error) {
	ctx, span := s.startSpan(ctx, "Token")
	defer span.End()

	client, err := s.authenticateClient(ctx, in.ClientID, in.ClientSecret)
	if err != nil {
		return nil, err
	}

	grantType, ok := singleParam(in.Params, paramGrantType)
	if !ok {
		return nil, entity.NewOAuth2Error(entity.ErrCodeInvalidRequest, "OAuth 2.0 Parameter: grant_type")
	}

	provider, ok := s.grants[grantType]
	if !ok {
		slog.WarnContext(ctx, "unsupported grant type", "client_id", client.ClientID, "grant_type", grantType)
		return nil, entity.NewOAuth2Error(entity.ErrCodeUnsupportedGrantType, "")
	}

	req, err := provider.parse(in.Params)
	if err != nil {
		return nil, err
	}

	if !client.AllowsGrant(grantType) {
		slog.WarnContext(ctx, "client not allowed for grant", "client_id", client.ClientID, "grant_type", grantType)
		return nil, entity.NewOAuth2Error(entity.ErrCodeUnauthorizedClient, "")
	}

	res, err := provider.resolve(ctx, req)
	var oerr *entity.OAuth2Error
	if errors.As(err, &oerr) {
		slog.WarnContext(ctx, "grant rejected", "client_id", client.ClientID, "grant_type", grantType, "error", err)
		return nil, err
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to resolve grant", "client_id", client.ClientID, "grant_type", grantType, "error", err)
		return nil, serverError(err)
	}

	return s.issue(ctx, client, grantType, res)
}

func (s *Usecase) issue(ctx context.Context, client *entity.RegisteredClient, grantType string, res *grantResult) (*TokenOutput, error) {
	now := s.clock.Now()
	expiresAt := res.expiresAt
	if client.AccessTokenTTL > 0 && now.Add(client.AccessTokenTTL).Before(expiresAt) {
		expiresAt = now.Add(client.AccessTokenTTL)
	}
	if !expiresAt.After(now) {
		return nil, entity.NewOAuth2Error(entity.ErrCodeInvalidGrant, "Invalid or expired code")
	}

	scope := strings.Join(res.scopes, " ")
	p := res.principal
	clm := jwt.Claims{
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   p.Subject,
			ExpiresAt: jwtlib.NewNumericDate(expiresAt),
		},
		ClientID:    client.ClientID,
		Scope:       scope,
		Authorities: p.Authorities,
		Email:       p.Email,
		Name:        p.Name,
		ResourceID:  res.extra["resource_id"],
		WorkspaceID: p.WorkspaceID,
		AccessType:  entity.AccessTypeGuest,
	}

	token, err := s.signer.Sign(ctx, clm)
	if err != nil || token == "" {
		slog.ErrorContext(ctx, "failed to sign access token", "client_id", client.ClientID, "error", err)
		return nil, entity.NewOAuth2Error(entity.ErrCodeServerError, "The token generator failed to generate the access token.").WithCause(err)
	}

	rec := entity.AuthorizationRecord{
		ID:                 s.uid.Generate(),
		RegisteredClientID: client.ClientID,
		PrincipalName:      res.recordName,
		GrantType:          grantType,
		AuthorizedScopes:   res.scopes,
		AccessToken: entity.Token{
			Value:     token,
			Hash:      hash.Sum(token),
			Type:      entity.TokenTypeBearer,
			IssuedAt:  now,
			ExpiresAt: expiresAt,
		},
		Attributes: valueobject.JSONMap(res.attributes),
		Metadata: valueobject.JSONMap{
			"claims": map[string]any{
				"sub":       p.Subject,
				"scope":     scope,
				"client_id": client.ClientID,
				"exp":       expiresAt.Unix(),
			},
		},
	}

	if err := s.records.save(ctx, rec); err != nil {
		slog.ErrorContext(ctx, "failed to persist authorization", "client_id", client.ClientID, "error", err)
		return nil, serverError(err)
	}

	return &TokenOutput{
		AccessToken: token,
		TokenType:   entity.TokenTypeBearer,
		ExpiresIn:   int64(expiresAt.Sub(now) / time.Second),
		Scope:       scope,
		Extra:       res.extra,
	}, nil
}

func (s *Usecase) authenticateClient(ctx context.Context, clientID, secret string) (*entity.RegisteredClient, error) {
	if clientID == "" {
		return nil, entity.NewOAuth2Error(entity.ErrCodeInvalidClient, "Client authentication failed")
	}

	client, err := s.repoDB.GetClientByClientID(ctx, clientID)
	if errors.Is(err, goerror.ErrNotFound) {
		slog.WarnContext(ctx, "unknown client", "client_id", clientID)
		return nil, entity.NewOAuth2Error(entity.ErrCodeInvalidClient, "Client authentication failed")
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to get client", "client_id", clientID, "error", err)
		return nil, serverError(err)
	}

	if !s.secretHash.Verify(client.ClientSecretHash, secret) {
		slog.WarnContext(ctx, "client secret mismatch", "client_id", clientID)
		return nil, entity.NewOAuth2Error(entity.ErrCodeInvalidClient, "Client authentication failed")
	}

	return client, nil
}

func serverError(err error) error {
	return entity.NewOAuth2Error(entity.ErrCodeServerError, "").WithCause(err)
}

type RevokeInput struct {
	ClientID      string
	ClientSecret  string
	Token         string
	TokenTypeHint string
}

// Revoke implements RFC 7009: unknown tokens and tokens of other clients are
// a silent success. token_type_hint only orders the lookup.
func (s *Usecase) Revoke(ctx context.Context, in RevokeInput) error {
	ctx, span := s.startSpan(ctx, "Revoke")
	defer span.End()

	client, err := s.authenticateClient(ctx, in.ClientID, in.ClientSecret)
	if err != nil {
		return err
	}

	if in.Token == "" {
		return entity.NewOAuth2Error(entity.ErrCodeInvalidRequest, "OAuth 2.0 Parameter: token")
	}
	rec, err := s.records.findByTokenHint(ctx, in.Token, in.TokenTypeHint)
	if errors.Is(err, goerror.ErrNotFound) {
		return nil
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to find authorization by token", "client_id", client.ClientID, "error", err)
		return serverError(err)
	}
	if rec.RegisteredClientID != client.ClientID {
		slog.WarnContext(ctx, "revocation by foreign client ignored", "client_id", client.ClientID, "authorization_id", rec.ID)
		return nil
	}

	if _, err := s.records.remove(ctx, *rec); err != nil {
		slog.ErrorContext(ctx, "failed to remove authorization", "authorization_id", rec.ID, "error", err)
		return serverError(err)
	}
	return nil
}

type IntrospectInput struct {
	ClientID      string
	ClientSecret  string
	Token         string
	TokenTypeHint string
}

// IntrospectOutput follows RFC 7662; everything but Active is empty for an
// inactive token.
type IntrospectOutput struct {
	Active     bool
	Scope      string
	ClientID   string
	Username   string
	TokenType  string
	Subject    string
	IssuedAt   int64
	ExpiresAt  int64
	Attributes map[string]any
}

func (s *Usecase) Introspect(ctx context.Context, in IntrospectInput) (*IntrospectOutput, error) {
	ctx, span := s.startSpan(ctx, "Introspect")
	defer span.End()

	if _, err := s.authenticateClient(ctx, in.ClientID, in.ClientSecret); err != nil {
		return nil, err
	}

	if in.Token == "" {
		return nil, entity.NewOAuth2Error(entity.ErrCodeInvalidRequest, "OAuth 2.0 Parameter: token")
	}
	rec, err := s.records.findByTokenHint(ctx, in.Token, in.TokenTypeHint)
	if errors.Is(err, goerror.ErrNotFound) {
		return &IntrospectOutput{}, nil
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to find authorization by token", "error", err)
		return nil, serverError(err)
	}

	tok := rec.AccessToken
	if rec.RefreshToken != nil && rec.RefreshToken.Hash == hash.Sum(in.Token) {
		tok = *rec.RefreshToken
	}
	if !tok.IsActive(s.clock.Now()) {
		return &IntrospectOutput{}, nil
	}

	claims, _ := rec.Metadata["claims"].(map[string]any)
	sub, _ := claims["sub"].(string)

	return &IntrospectOutput{
		Active:     true,
		Scope:      strings.Join(rec.AuthorizedScopes, " "),
		ClientID:   rec.RegisteredClientID,
		Username:   rec.PrincipalName,
		TokenType:  tok.Type,
		Subject:    sub,
		IssuedAt:   tok.IssuedAt.Unix(),
		ExpiresAt:  tok.ExpiresAt.Unix(),
		Attributes: rec.Attributes,
	}, nil
}

// JWKS publishes the active signing key, creating it on first use.
func (s *Usecase) JWKS(ctx context.Context) (*jwt.JWKSet, error) {
	ctx, span := s.startSpan(ctx, "JWKS")
	defer span.End()

	set, err := s.keys.JWKS(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load signing key", "error", err)
		return nil, goerror.NewServer(err)
	}
	return &set, nil
}

type LogoutInput struct {
	Token string `validate:"required"`
}

// Logout removes the record of the presented access token. An unknown token
// is not an error.
func (s *Usecase) Logout(ctx context.Context, in LogoutInput) error {
	ctx, span := s.startSpan(ctx, "Logout")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return goerror.NewInvalidInput(err)
	}

	rec, err := s.records.findByToken(ctx, in.Token, entity.TokenKindAccess)
	if errors.Is(err, goerror.ErrNotFound) {
		return nil
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to find authorization by token", "error", err)
		return goerror.NewServer(err)
	}

	if _, err := s.records.remove(ctx, *rec); err != nil {
		slog.ErrorContext(ctx, "failed to remove authorization", "authorization_id", rec.ID, "error", err)
		return goerror.NewServer(err)
	}

	slog.InfoContext(ctx, "logged out", "authorization_id", rec.ID, "principal", rec.PrincipalName)
	return nil
}
