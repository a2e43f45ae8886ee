package inbound

import (
	"net/http"
	"time"

	"github.com/samber/lo"

	"github.com/shandysiswandi/credbite/internal/oauth/usecase"
)

type GenerateGuestCodeRequest struct {
	Resource    string `json:"resource" example:"shortlist"`
	ResourceID  string `json:"resource_id" example:"r1"`
	Write       bool   `json:"write"`
	GuestName   string `json:"guest_name" example:"Grace Hopper"`
	GuestEmail  string `json:"guest_email" example:"grace@example.com"`
	RedirectURL string `json:"redirect_url"`
	ExpiryHours int    `json:"expiry_hours" example:"24"`
	WorkspaceID string `json:"workspace_id"`
}

type GenerateShareCodeRequest struct {
	Resource    string   `json:"resource" example:"project"`
	ResourceID  string   `json:"resource_id" example:"p1"`
	Write       bool     `json:"write"`
	GuestName   string   `json:"guest_name" example:"Grace Hopper"`
	GuestEmail  string   `json:"guest_email" example:"grace@example.com"`
	Roles       []string `json:"roles" example:"viewer"`
	RedirectURL string   `json:"redirect_url"`
	ExpiryHours int      `json:"expiry_hours" example:"24"`
	WorkspaceID string   `json:"workspace_id"`
}

type GenerateCodeResponse struct {
	Code        string    `json:"code"`
	ResourceID  string    `json:"resource_id"`
	UserID      string    `json:"user_id,omitempty"`
	ExpiresAt   time.Time `json:"expires_at"`
	ExpiryHours int       `json:"expiry_hours"`
}

func (GenerateCodeResponse) StatusCode() int { return http.StatusCreated }

func (GenerateCodeResponse) Message() string { return "Access code created" }

func toGenerateCodeResponse(out *usecase.GenerateCodeOutput) GenerateCodeResponse {
	return GenerateCodeResponse{
		Code:        out.Code,
		ResourceID:  out.ResourceID,
		UserID:      out.UserID,
		ExpiresAt:   out.ExpiresAt,
		ExpiryHours: out.ExpiryHours,
	}
}

type ValidateCodeResponse struct {
	Valid       bool       `json:"valid"`
	Error       string     `json:"error,omitempty"`
	Resource    string     `json:"resource,omitempty"`
	ResourceID  string     `json:"resource_id,omitempty"`
	Write       bool       `json:"write"`
	GuestEmail  string     `json:"guest_email,omitempty"`
	UserID      string     `json:"user_id,omitempty"`
	WorkspaceID string     `json:"workspace_id,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

func toValidateCodeResponse(out *usecase.ValidateCodeOutput) ValidateCodeResponse {
	resp := ValidateCodeResponse{
		Valid:       out.Valid,
		Error:       out.Error,
		Resource:    out.Resource,
		ResourceID:  out.ResourceID,
		Write:       out.Write,
		GuestEmail:  out.GuestEmail,
		UserID:      out.UserID,
		WorkspaceID: out.WorkspaceID,
	}
	if !out.ExpiresAt.IsZero() {
		resp.ExpiresAt = &out.ExpiresAt
	}
	return resp
}

type TokenInfoResponse struct {
	ID            int64     `json:"id,string"`
	PrincipalName string    `json:"principal_name"`
	ClientID      string    `json:"client_id"`
	GrantType     string    `json:"grant_type"`
	TokenType     string    `json:"token_type"`
	IssuedAt      time.Time `json:"issued_at"`
	ExpiresAt     time.Time `json:"expires_at"`
	Scopes        []string  `json:"scopes"`
}

func toTokenInfoResponse(in usecase.TokenInfo, _ int) TokenInfoResponse {
	return TokenInfoResponse{
		ID:            in.ID,
		PrincipalName: in.PrincipalName,
		ClientID:      in.ClientID,
		GrantType:     in.GrantType,
		TokenType:     in.TokenType,
		IssuedAt:      in.IssuedAt,
		ExpiresAt:     in.ExpiresAt,
		Scopes:        in.Scopes,
	}
}

type ListTokensResponse struct {
	Items []TokenInfoResponse `json:"items"`
	total int64
	page  int
	size  int
}

func (r ListTokensResponse) Meta() map[string]any {
	return map[string]any{"total": r.total, "page": r.page, "size": r.size}
}

func toListTokensResponse(out *usecase.ListTokensOutput) ListTokensResponse {
	return ListTokensResponse{
		Items: lo.Map(out.Items, toTokenInfoResponse),
		total: out.Total,
		page:  out.Page,
		size:  out.Size,
	}
}

type RevokePrincipalTokensResponse struct {
	Revoked int `json:"revoked"`
}

func (RevokePrincipalTokensResponse) Message() string { return "Tokens revoked" }

// tokenBody is the RFC 6749 section 5.1 body; extra members are merged at
// the top level and never override the standard ones.
func tokenBody(out *usecase.TokenOutput) map[string]any {
	body := make(map[string]any, len(out.Extra)+4)
	for k, v := range out.Extra {
		body[k] = v
	}
	body["access_token"] = out.AccessToken
	body["token_type"] = out.TokenType
	body["expires_in"] = out.ExpiresIn
	if out.Scope != "" {
		body["scope"] = out.Scope
	}
	return body
}

type oauth2ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

type introspectResponse struct {
	Active    bool           `json:"active"`
	Scope     string         `json:"scope,omitempty"`
	ClientID  string         `json:"client_id,omitempty"`
	Username  string         `json:"username,omitempty"`
	TokenType string         `json:"token_type,omitempty"`
	Subject   string         `json:"sub,omitempty"`
	IssuedAt  int64          `json:"iat,omitempty"`
	ExpiresAt int64          `json:"exp,omitempty"`
	Extra     map[string]any `json:"ext,omitempty"`
}
