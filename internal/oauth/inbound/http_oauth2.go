package inbound

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/shandysiswandi/credbite/internal/oauth/entity"
	"github.com/shandysiswandi/credbite/internal/oauth/usecase"
	"github.com/shandysiswandi/credbite/internal/pkg/router"
)

// OAuth2Endpoint serves the protocol endpoints. Their bodies follow the
// RFCs, so they bypass the JSON envelope.
type OAuth2Endpoint struct {
	uc uc
}

// clientCredentials reads client_secret_basic first, then
// client_secret_post. Basic credentials are form-urlencoded per RFC 6749
// section 2.3.1.
func clientCredentials(r *http.Request) (string, string) {
	if id, secret, ok := r.BasicAuth(); ok {
		if v, err := url.QueryUnescape(id); err == nil {
			id = v
		}
		if v, err := url.QueryUnescape(secret); err == nil {
			secret = v
		}
		return id, secret
	}
	return r.PostForm.Get("client_id"), r.PostForm.Get("client_secret")
}

// parseForm leaves client credentials out of the grant parameters.
func parseForm(r *http.Request) (url.Values, error) {
	if err := r.ParseForm(); err != nil {
		return nil, entity.NewOAuth2Error(entity.ErrCodeInvalidRequest, "Malformed form body")
	}
	params := url.Values{}
	for k, v := range r.PostForm {
		if k == "client_id" || k == "client_secret" {
			continue
		}
		params[k] = v
	}
	return params, nil
}

func noStore(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
}

func writeOAuth2Error(w http.ResponseWriter, r *http.Request, err error) {
	if setter, ok := w.(interface{ SetError(error) }); ok {
		setter.SetError(err)
	}

	var oerr *entity.OAuth2Error
	if !errors.As(err, &oerr) {
		slog.ErrorContext(r.Context(), "unhandled error reached oauth2 endpoint", "error", err)
		oerr = entity.NewOAuth2Error(entity.ErrCodeServerError, "")
	}
	if oerr.Code == entity.ErrCodeInvalidClient {
		w.Header().Set("WWW-Authenticate", `Basic realm="oauth2"`)
	}

	noStore(w)
	router.WriteJSON(w, oauth2ErrorResponse{Error: oerr.Code, ErrorDescription: oerr.Description}, oerr.StatusCode())
}

// Token issues an access token for an extension grant.
// @Summary Token endpoint
// @Description Exchanges a guest_code or share_code for a signed access token. Extra members such as resource_id and workspace_id are returned at the top level.
// @Tags OAuth2
// @Accept x-www-form-urlencoded
// @Produce json
// @Security BasicAuth
// @Param grant_type formData string true "urn:ietf:params:oauth:grant-type:guest_code or urn:ietf:params:oauth:grant-type:share_code"
// @Param guest_code formData string false "Guest code"
// @Param share_code formData string false "Share code"
// @Param resource_id formData string false "Resource the guest code is bound to"
// @Success 200 {object} map[string]any "Access token response"
// @Failure 400 {object} oauth2ErrorResponse "invalid_request, invalid_grant, unauthorized_client or unsupported_grant_type"
// @Failure 401 {object} oauth2ErrorResponse "invalid_client"
// @Failure 500 {object} oauth2ErrorResponse "server_error"
// @Router /oauth2/token [post]
func (h *OAuth2Endpoint) Token(w http.ResponseWriter, r *http.Request) {
	params, err := parseForm(r)
	if err != nil {
		writeOAuth2Error(w, r, err)
		return
	}

	id, secret := clientCredentials(r)
	out, err := h.uc.Token(r.Context(), usecase.TokenInput{ClientID: id, ClientSecret: secret, Params: params})
	if err != nil {
		writeOAuth2Error(w, r, err)
		return
	}

	noStore(w)
	router.WriteJSON(w, tokenBody(out), http.StatusOK)
}

// Revoke implements RFC 7009.
// @Summary Token revocation
// @Tags OAuth2
// @Accept x-www-form-urlencoded
// @Security BasicAuth
// @Param token formData string true "Token to revoke"
// @Param token_type_hint formData string false "access_token or refresh_token"
// @Success 200 "Revoked, or the token was unknown"
// @Failure 400 {object} oauth2ErrorResponse "invalid_request"
// @Failure 401 {object} oauth2ErrorResponse "invalid_client"
// @Router /oauth2/revoke [post]
func (h *OAuth2Endpoint) Revoke(w http.ResponseWriter, r *http.Request) {
	if _, err := parseForm(r); err != nil {
		writeOAuth2Error(w, r, err)
		return
	}

	id, secret := clientCredentials(r)
	if err := h.uc.Revoke(r.Context(), usecase.RevokeInput{
		ClientID:      id,
		ClientSecret:  secret,
		Token:         r.PostForm.Get("token"),
		TokenTypeHint: r.PostForm.Get("token_type_hint"),
	}); err != nil {
		writeOAuth2Error(w, r, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// Introspect implements RFC 7662.
// @Summary Token introspection
// @Tags OAuth2
// @Accept x-www-form-urlencoded
// @Produce json
// @Security BasicAuth
// @Param token formData string true "Token to inspect"
// @Param token_type_hint formData string false "access_token or refresh_token"
// @Success 200 {object} introspectResponse
// @Failure 400 {object} oauth2ErrorResponse "invalid_request"
// @Failure 401 {object} oauth2ErrorResponse "invalid_client"
// @Router /oauth2/introspect [post]
func (h *OAuth2Endpoint) Introspect(w http.ResponseWriter, r *http.Request) {
	if _, err := parseForm(r); err != nil {
		writeOAuth2Error(w, r, err)
		return
	}

	id, secret := clientCredentials(r)
	out, err := h.uc.Introspect(r.Context(), usecase.IntrospectInput{
		ClientID:      id,
		ClientSecret:  secret,
		Token:         r.PostForm.Get("token"),
		TokenTypeHint: r.PostForm.Get("token_type_hint"),
	})
	if err != nil {
		writeOAuth2Error(w, r, err)
		return
	}

	noStore(w)
	router.WriteJSON(w, introspectResponse{
		Active:    out.Active,
		Scope:     out.Scope,
		ClientID:  out.ClientID,
		Username:  out.Username,
		TokenType: out.TokenType,
		Subject:   out.Subject,
		IssuedAt:  out.IssuedAt,
		ExpiresAt: out.ExpiresAt,
		Extra:     out.Attributes,
	}, http.StatusOK)
}

// JWKS publishes the token signing key.
// @Summary JSON Web Key Set
// @Tags OAuth2
// @Produce json
// @Success 200 {object} jwt.JWKSet
// @Failure 500 {object} oauth2ErrorResponse "server_error"
// @Router /oauth2/jwks [get]
func (h *OAuth2Endpoint) JWKS(w http.ResponseWriter, r *http.Request) {
	set, err := h.uc.JWKS(r.Context())
	if err != nil {
		writeOAuth2Error(w, r, err)
		return
	}

	router.WriteJSON(w, set, http.StatusOK)
}
