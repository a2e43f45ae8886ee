package inbound

import (
	"github.com/samber/lo"

	"github.com/shandysiswandi/credbite/internal/oauth/usecase"
	"github.com/shandysiswandi/credbite/internal/pkg/goerror"
	"github.com/shandysiswandi/credbite/internal/pkg/router"
)

// HTTPEndpoint exposes delegated access codes, logout and token management.
type HTTPEndpoint struct {
	uc uc
}

// GenerateGuestCode issues a guest code for a resource.
// @Summary Create guest code
// @Description Issues a multi-use code bound to one resource and e-mails it to the guest.
// @Tags OAuth2, Access Codes
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body GenerateGuestCodeRequest true "Guest code payload"
// @Success 201 {object} router.successResponse{data=GenerateCodeResponse}
// @Failure 400 {object} router.errorResponse "Invalid request body"
// @Failure 401 {object} router.errorResponse "Authentication required"
// @Failure 403 {object} router.errorResponse "Not allowed"
// @Failure 422 {object} router.errorResponse "Validation error"
// @Router /api/v1/guest-codes [post]
func (h *HTTPEndpoint) GenerateGuestCode(r *router.Request) (any, error) {
	var req GenerateGuestCodeRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	out, err := h.uc.GenerateGuestCode(r.Context(), usecase.GenerateGuestCodeInput{
		Resource:    req.Resource,
		ResourceID:  req.ResourceID,
		Write:       req.Write,
		GuestName:   req.GuestName,
		GuestEmail:  req.GuestEmail,
		RedirectURL: req.RedirectURL,
		ExpiryHours: req.ExpiryHours,
		WorkspaceID: req.WorkspaceID,
	})
	if err != nil {
		return nil, err
	}

	return toGenerateCodeResponse(out), nil
}

// ValidateGuestCode checks a guest code against a resource.
// @Summary Validate guest code
// @Description An invalid code is reported in the body with valid=false, not as an error status.
// @Tags OAuth2, Access Codes
// @Produce json
// @Security BearerAuth
// @Param code query string true "Guest code"
// @Param resource_id query string true "Resource id"
// @Success 200 {object} router.successResponse{data=ValidateCodeResponse}
// @Failure 401 {object} router.errorResponse "Authentication required"
// @Failure 422 {object} router.errorResponse "Validation error"
// @Router /api/v1/guest-codes/validate [get]
func (h *HTTPEndpoint) ValidateGuestCode(r *router.Request) (any, error) {
	out, err := h.uc.ValidateGuestCode(r.Context(), usecase.ValidateCodeInput{
		Code:       r.GetQuery("code"),
		ResourceID: r.GetQuery("resource_id"),
	})
	if err != nil {
		return nil, err
	}

	return toValidateCodeResponse(out), nil
}

// RevokeGuestCode deletes a guest code. Unknown codes succeed.
// @Summary Revoke guest code
// @Tags OAuth2, Access Codes
// @Security BearerAuth
// @Param code path string true "Guest code"
// @Success 204 "No Content"
// @Failure 401 {object} router.errorResponse "Authentication required"
// @Router /api/v1/guest-codes/{code} [delete]
func (h *HTTPEndpoint) RevokeGuestCode(r *router.Request) (any, error) {
	if err := h.uc.RevokeGuestCode(r.Context(), usecase.RevokeCodeInput{Code: r.GetParam("code")}); err != nil {
		return nil, err
	}

	return nil, nil
}

// GenerateShareCode issues a share code, provisioning the guest account when
// the e-mail is new.
// @Summary Create share code
// @Tags OAuth2, Access Codes
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body GenerateShareCodeRequest true "Share code payload"
// @Success 201 {object} router.successResponse{data=GenerateCodeResponse}
// @Failure 400 {object} router.errorResponse "Invalid request body"
// @Failure 401 {object} router.errorResponse "Authentication required"
// @Failure 403 {object} router.errorResponse "Not allowed"
// @Failure 422 {object} router.errorResponse "Validation error"
// @Router /api/v1/share-codes [post]
func (h *HTTPEndpoint) GenerateShareCode(r *router.Request) (any, error) {
	var req GenerateShareCodeRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	out, err := h.uc.GenerateShareCode(r.Context(), usecase.GenerateShareCodeInput{
		Resource:    req.Resource,
		ResourceID:  req.ResourceID,
		Write:       req.Write,
		GuestName:   req.GuestName,
		GuestEmail:  req.GuestEmail,
		Roles:       req.Roles,
		RedirectURL: req.RedirectURL,
		ExpiryHours: req.ExpiryHours,
		WorkspaceID: req.WorkspaceID,
	})
	if err != nil {
		return nil, err
	}

	return toGenerateCodeResponse(out), nil
}

// ValidateShareCode checks a share code; resource_id is optional.
// @Summary Validate share code
// @Tags OAuth2, Access Codes
// @Produce json
// @Security BearerAuth
// @Param code query string true "Share code"
// @Param resource_id query string false "Resource id"
// @Success 200 {object} router.successResponse{data=ValidateCodeResponse}
// @Failure 401 {object} router.errorResponse "Authentication required"
// @Router /api/v1/share-codes/validate [get]
func (h *HTTPEndpoint) ValidateShareCode(r *router.Request) (any, error) {
	out, err := h.uc.ValidateShareCode(r.Context(), usecase.ValidateCodeInput{
		Code:       r.GetQuery("code"),
		ResourceID: r.GetQuery("resource_id"),
	})
	if err != nil {
		return nil, err
	}

	return toValidateCodeResponse(out), nil
}

// RevokeShareCode deletes a share code.
// @Summary Revoke share code
// @Tags OAuth2, Access Codes
// @Security BearerAuth
// @Param code path string true "Share code"
// @Success 204 "No Content"
// @Router /api/v1/share-codes/{code} [delete]
func (h *HTTPEndpoint) RevokeShareCode(r *router.Request) (any, error) {
	if err := h.uc.RevokeShareCode(r.Context(), usecase.RevokeCodeInput{Code: r.GetParam("code")}); err != nil {
		return nil, err
	}

	return nil, nil
}

// Logout removes the authorization record of the presented bearer token.
// @Summary Logout
// @Tags OAuth2
// @Security BearerAuth
// @Success 204 "No Content"
// @Failure 401 {object} router.errorResponse "Authentication required"
// @Router /api/v1/oauth/logout [post]
func (h *HTTPEndpoint) Logout(r *router.Request) (any, error) {
	token, ok := router.BearerToken(r.Request)
	if !ok {
		return nil, goerror.NewBusiness("Authentication required", goerror.CodeUnauthorized)
	}

	if err := h.uc.Logout(r.Context(), usecase.LogoutInput{Token: token}); err != nil {
		return nil, err
	}

	return nil, nil
}

// ListTokens pages live access tokens.
// @Summary List tokens
// @Tags OAuth2, Admin
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page, from 1" default(1)
// @Param size query int false "Page size, at most 100" default(20)
// @Success 200 {object} router.successResponse{data=ListTokensResponse}
// @Failure 401 {object} router.errorResponse "Authentication required"
// @Failure 403 {object} router.errorResponse "Not allowed"
// @Router /api/v1/admin/oauth2/tokens [get]
func (h *HTTPEndpoint) ListTokens(r *router.Request) (any, error) {
	page, err := r.GetQueryInt("page", 1)
	if err != nil {
		return nil, err
	}
	size, err := r.GetQueryInt("size", 20)
	if err != nil {
		return nil, err
	}

	out, err := h.uc.ListTokens(r.Context(), usecase.ListTokensInput{Page: page, Size: size})
	if err != nil {
		return nil, err
	}

	return toListTokensResponse(out), nil
}

// ListPrincipalTokens lists every record of one principal.
// @Summary List tokens of a user
// @Tags OAuth2, Admin
// @Produce json
// @Security BearerAuth
// @Param username path string true "Principal name"
// @Success 200 {object} router.successResponse{data=[]TokenInfoResponse}
// @Failure 403 {object} router.errorResponse "Not allowed"
// @Router /api/v1/admin/oauth2/users/{username}/tokens [get]
func (h *HTTPEndpoint) ListPrincipalTokens(r *router.Request) (any, error) {
	items, err := h.uc.ListPrincipalTokens(r.Context(), usecase.PrincipalTokensInput{PrincipalName: r.GetParam("username")})
	if err != nil {
		return nil, err
	}

	return lo.Map(items, toTokenInfoResponse), nil
}

// RevokeToken removes one record by id.
// @Summary Revoke token
// @Tags OAuth2, Admin
// @Security BearerAuth
// @Param id path int true "Record id"
// @Success 204 "No Content"
// @Failure 404 {object} router.errorResponse "Token not found"
// @Router /api/v1/admin/oauth2/tokens/{id} [delete]
func (h *HTTPEndpoint) RevokeToken(r *router.Request) (any, error) {
	id, err := r.GetParamInt64("id")
	if err != nil {
		return nil, err
	}

	if err := h.uc.RevokeToken(r.Context(), usecase.RevokeTokenInput{ID: id}); err != nil {
		return nil, err
	}

	return nil, nil
}

// RevokePrincipalTokens removes the records of a principal, optionally only
// those of one client.
// @Summary Revoke tokens of a user
// @Tags OAuth2, Admin
// @Produce json
// @Security BearerAuth
// @Param username path string true "Principal name"
// @Param client_id path string false "Client id"
// @Success 200 {object} router.successResponse{data=RevokePrincipalTokensResponse}
// @Router /api/v1/admin/oauth2/users/{username}/tokens [delete]
// @Router /api/v1/admin/oauth2/users/{username}/clients/{client_id}/tokens [delete]
func (h *HTTPEndpoint) RevokePrincipalTokens(r *router.Request) (any, error) {
	out, err := h.uc.RevokePrincipalTokens(r.Context(), usecase.RevokePrincipalTokensInput{
		PrincipalName: r.GetParam("username"),
		ClientID:      r.GetParam("client_id"),
	})
	if err != nil {
		return nil, err
	}

	return RevokePrincipalTokensResponse{Revoked: out.Revoked}, nil
}
