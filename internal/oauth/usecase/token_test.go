package usecase

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shandysiswandi/credbite/internal/oauth/entity"
	"github.com/shandysiswandi/credbite/internal/pkg/goerror"
	"github.com/shandysiswandi/credbite/internal/pkg/hash"
)

func issueGuestCode(t *testing.T, h *harness, write bool) string {
	t.Helper()
	out, err := h.uc.GenerateGuestCode(ownerCtx(), GenerateGuestCodeInput{
		Resource: "shortlist", ResourceID: "r1", Write: write, GuestName: "Grace", GuestEmail: "grace@example.com", WorkspaceID: "w1",
	})
	require.NoError(t, err)
	return out.Code
}

func guestParams(code, resourceID string) url.Values {
	return url.Values{
		"grant_type":  {entity.GrantTypeGuestCode},
		"guest_code":  {code},
		"resource_id": {resourceID},
	}
}

func TestToken_GuestGrant(t *testing.T) {
	// Arrange
	h := newHarness(t)
	code := issueGuestCode(t, h, false)

	// Act
	out, err := h.uc.Token(context.Background(), TokenInput{ClientID: "web", ClientSecret: testClientSecret, Params: guestParams(code, "r1")})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "access-1", out.AccessToken)
	assert.Equal(t, "Bearer", out.TokenType)
	assert.Equal(t, int64(24*3600), out.ExpiresIn)
	assert.Equal(t, "shortlist:r1:read", out.Scope)
	assert.Equal(t, "r1", out.Extra["resource_id"])
	assert.Equal(t, "w1", out.Extra["workspace_id"])
	assert.Equal(t, "guest", out.Extra["access_type"])
	assert.Equal(t, "grace@example.com", out.Extra["guest_email"])
	assert.Equal(t, "owner@example.com", out.Extra["resource_owner"])

	clm := h.signer.last
	assert.Equal(t, "grace@example.com", clm.Subject)
	assert.Equal(t, []string{entity.AuthorityGuest}, clm.Authorities)
	assert.Equal(t, "web", clm.ClientID)
	assert.Equal(t, testNow.Add(24*time.Hour), clm.ExpiresAt.Time)

	// persisted before the response, by hash only
	rec, err := h.db.GetAuthorizationByTokenHash(context.Background(), hash.Sum("access-1"), entity.TokenKindAccess)
	require.NoError(t, err)
	assert.Empty(t, rec.AccessToken.Value)
	assert.Equal(t, "grace@example.com", rec.PrincipalName)
	assert.Equal(t, "web", rec.RegisteredClientID)
	assert.Equal(t, entity.GrantTypeGuestCode, rec.GrantType)
	assert.Equal(t, []string{"shortlist:r1:read"}, rec.AuthorizedScopes)
	assert.Equal(t, "r1", rec.Attributes.GetString("resource_id"))
	assert.True(t, h.cache.cached(rec.ID))

	// delegated codes are multi-use
	_, err = h.uc.Token(context.Background(), TokenInput{ClientID: "web", ClientSecret: testClientSecret, Params: guestParams(code, "r1")})
	require.NoError(t, err)
	assert.Equal(t, 2, h.db.recordCount())
}

func TestToken_WriteScopeAndClientTTL(t *testing.T) {
	h := newHarness(t)
	code := issueGuestCode(t, h, true)
	require.NoError(t, h.uc.RegisterClient(context.Background(), RegisterClientInput{
		ClientID: "short", ClientSecret: testClientSecret, GrantTypes: []string{entity.GrantTypeGuestCode}, AccessTokenTTL: time.Hour,
	}))

	out, err := h.uc.Token(context.Background(), TokenInput{ClientID: "short", ClientSecret: testClientSecret, Params: guestParams(code, "r1")})
	require.NoError(t, err)
	assert.Equal(t, "shortlist:r1:read shortlist:r1:write", out.Scope)
	assert.Equal(t, int64(3600), out.ExpiresIn)
}

func TestToken_ShareGrant(t *testing.T) {
	h := newHarness(t)
	share, err := h.uc.GenerateShareCode(ownerCtx(), GenerateShareCodeInput{
		Resource: "project", ResourceID: "p1", GuestName: "Ada", GuestEmail: "ada@example.com", Roles: []string{"viewer"}, WorkspaceID: "w9",
	})
	require.NoError(t, err)

	params := url.Values{"grant_type": {entity.GrantTypeShareCode}, "share_code": {share.Code}}
	out, err := h.uc.Token(context.Background(), TokenInput{ClientID: "web", ClientSecret: testClientSecret, Params: params})
	require.NoError(t, err)

	assert.Equal(t, "u1", out.Extra["sub"])
	assert.Equal(t, "Ada Lovelace", out.Extra["name"])
	assert.Equal(t, "w9", out.Extra["workspace_id"])
	assert.Equal(t, []string{"member"}, h.signer.last.Authorities)
	assert.Equal(t, "u1", h.signer.last.Subject)

	delete(h.db.users, "u1")
	_, err = h.uc.Token(context.Background(), TokenInput{ClientID: "web", ClientSecret: testClientSecret, Params: params})
	assertOAuth2Error(t, err, entity.ErrCodeInvalidGrant)
}

func TestToken_Errors(t *testing.T) {
	h := newHarness(t)
	code := issueGuestCode(t, h, false)
	require.NoError(t, h.uc.RegisterClient(context.Background(), RegisterClientInput{
		ClientID: "share-only", ClientSecret: testClientSecret, GrantTypes: []string{entity.GrantTypeShareCode},
	}))

	tests := []struct {
		name     string
		clientID string
		secret   string
		params   url.Values
		want     string
	}{
		{"missing client", "", "", guestParams(code, "r1"), entity.ErrCodeInvalidClient},
		{"unknown client", "ghost", testClientSecret, guestParams(code, "r1"), entity.ErrCodeInvalidClient},
		{"bad secret", "web", "wrong-secret-value", guestParams(code, "r1"), entity.ErrCodeInvalidClient},
		{"no grant type", "web", testClientSecret, url.Values{}, entity.ErrCodeInvalidRequest},
		{"unknown grant", "web", testClientSecret, url.Values{"grant_type": {"password"}}, entity.ErrCodeUnsupportedGrantType},
		{"missing code", "web", testClientSecret, url.Values{"grant_type": {entity.GrantTypeGuestCode}, "resource_id": {"r1"}}, entity.ErrCodeInvalidRequest},
		{"repeated code", "web", testClientSecret, url.Values{"grant_type": {entity.GrantTypeGuestCode}, "guest_code": {code, code}, "resource_id": {"r1"}}, entity.ErrCodeInvalidRequest},
		{"blank resource", "web", testClientSecret, guestParams(code, " "), entity.ErrCodeInvalidRequest},
		{"client not allowed", "share-only", testClientSecret, guestParams(code, "r1"), entity.ErrCodeUnauthorizedClient},
		{"wrong resource", "web", testClientSecret, guestParams(code, "r2"), entity.ErrCodeInvalidGrant},
		{"unknown code", "web", testClientSecret, guestParams("nope", "r1"), entity.ErrCodeInvalidGrant},
		{"missing share code", "web", testClientSecret, url.Values{"grant_type": {entity.GrantTypeShareCode}}, entity.ErrCodeInvalidRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.uc.Token(context.Background(), TokenInput{ClientID: tt.clientID, ClientSecret: tt.secret, Params: tt.params})
			assertOAuth2Error(t, err, tt.want)
		})
	}
	assert.Zero(t, h.db.recordCount())
}

func TestToken_ResourceMismatchKeepsCause(t *testing.T) {
	h := newHarness(t)
	code := issueGuestCode(t, h, false)

	_, err := h.uc.Token(context.Background(), TokenInput{ClientID: "web", ClientSecret: testClientSecret, Params: guestParams(code, "r2")})
	assert.True(t, errors.Is(err, entity.ErrResourceMismatch))
}

func TestToken_ServerErrors(t *testing.T) {
	h := newHarness(t)
	code := issueGuestCode(t, h, false)
	in := TokenInput{ClientID: "web", ClientSecret: testClientSecret, Params: guestParams(code, "r1")}

	h.signer.fail = errors.New("no key")
	_, err := h.uc.Token(context.Background(), in)
	assertOAuth2Error(t, err, entity.ErrCodeServerError)

	h.signer.fail = nil
	h.db.failCreate = errors.New("db down")
	_, err = h.uc.Token(context.Background(), in)
	assertOAuth2Error(t, err, entity.ErrCodeServerError)
}

func TestToken_CacheFailureFallsThrough(t *testing.T) {
	h := newHarness(t)
	code := issueGuestCode(t, h, false)
	h.cache.fail = errors.New("redis down")

	out, err := h.uc.Token(context.Background(), TokenInput{ClientID: "web", ClientSecret: testClientSecret, Params: guestParams(code, "r1")})
	require.NoError(t, err)

	res, err := h.uc.Introspect(context.Background(), IntrospectInput{ClientID: "web", ClientSecret: testClientSecret, Token: out.AccessToken})
	require.NoError(t, err)
	assert.True(t, res.Active)
}

func TestRevoke(t *testing.T) {
	h := newHarness(t)
	code := issueGuestCode(t, h, false)
	require.NoError(t, h.uc.RegisterClient(context.Background(), RegisterClientInput{
		ClientID: "other", ClientSecret: testClientSecret, GrantTypes: []string{entity.GrantTypeGuestCode},
	}))
	out, err := h.uc.Token(context.Background(), TokenInput{ClientID: "web", ClientSecret: testClientSecret, Params: guestParams(code, "r1")})
	require.NoError(t, err)

	err = h.uc.Revoke(context.Background(), RevokeInput{ClientID: "web", ClientSecret: testClientSecret})
	assertOAuth2Error(t, err, entity.ErrCodeInvalidRequest)

	// another client cannot revoke it
	require.NoError(t, h.uc.Revoke(context.Background(), RevokeInput{ClientID: "other", ClientSecret: testClientSecret, Token: out.AccessToken}))
	assert.Equal(t, 1, h.db.recordCount())

	require.NoError(t, h.uc.Revoke(context.Background(), RevokeInput{ClientID: "web", ClientSecret: testClientSecret, Token: out.AccessToken, TokenTypeHint: "access_token"}))
	assert.Zero(t, h.db.recordCount())

	require.NoError(t, h.uc.Revoke(context.Background(), RevokeInput{ClientID: "web", ClientSecret: testClientSecret, Token: out.AccessToken}))

	err = h.uc.Revoke(context.Background(), RevokeInput{ClientID: "web", ClientSecret: "bad-secret-value-x", Token: out.AccessToken})
	assertOAuth2Error(t, err, entity.ErrCodeInvalidClient)
}

func TestRevoke_HintOnlyOrdersLookup(t *testing.T) {
	for _, hint := range []string{"id_token", "refresh_token", ""} {
		t.Run("hint="+hint, func(t *testing.T) {
			h := newHarness(t)
			code := issueGuestCode(t, h, false)
			out, err := h.uc.Token(context.Background(), TokenInput{ClientID: "web", ClientSecret: testClientSecret, Params: guestParams(code, "r1")})
			require.NoError(t, err)

			require.NoError(t, h.uc.Revoke(context.Background(), RevokeInput{ClientID: "web", ClientSecret: testClientSecret, Token: out.AccessToken, TokenTypeHint: hint}))
			assert.Zero(t, h.db.recordCount())
		})
	}
}

func TestIntrospect(t *testing.T) {
	h := newHarness(t)
	code := issueGuestCode(t, h, false)
	out, err := h.uc.Token(context.Background(), TokenInput{ClientID: "web", ClientSecret: testClientSecret, Params: guestParams(code, "r1")})
	require.NoError(t, err)
	in := IntrospectInput{ClientID: "web", ClientSecret: testClientSecret, Token: out.AccessToken}

	res, err := h.uc.Introspect(context.Background(), in)
	require.NoError(t, err)
	assert.True(t, res.Active)
	assert.Equal(t, "shortlist:r1:read", res.Scope)
	assert.Equal(t, "web", res.ClientID)
	assert.Equal(t, "grace@example.com", res.Username)
	assert.Equal(t, "grace@example.com", res.Subject)
	assert.Equal(t, testNow.Add(24*time.Hour).Unix(), res.ExpiresAt)

	res, err = h.uc.Introspect(context.Background(), IntrospectInput{ClientID: "web", ClientSecret: testClientSecret, Token: "unknown"})
	require.NoError(t, err)
	assert.Equal(t, &IntrospectOutput{}, res)

	h.clock.Advance(24 * time.Hour)
	res, err = h.uc.Introspect(context.Background(), in)
	require.NoError(t, err)
	assert.False(t, res.Active)
}

func TestLogout(t *testing.T) {
	h := newHarness(t)
	code := issueGuestCode(t, h, false)
	out, err := h.uc.Token(context.Background(), TokenInput{ClientID: "web", ClientSecret: testClientSecret, Params: guestParams(code, "r1")})
	require.NoError(t, err)

	require.NoError(t, h.uc.Logout(context.Background(), LogoutInput{Token: out.AccessToken}))
	assert.Zero(t, h.db.recordCount())
	require.NoError(t, h.uc.Logout(context.Background(), LogoutInput{Token: out.AccessToken}))

	assertCode(t, h.uc.Logout(context.Background(), LogoutInput{}), goerror.CodeInvalidInput)
}

func TestJWKS(t *testing.T) {
	h := newHarness(t)

	set, err := h.uc.JWKS(context.Background())
	require.NoError(t, err)
	require.Len(t, set.Keys, 1)
	assert.Equal(t, "k1", set.Keys[0].Kid)

	h.uc.keys = fakeKeys{err: errors.New("db down")}
	_, err = h.uc.JWKS(context.Background())
	assertCode(t, err, goerror.CodeInternal)
}
