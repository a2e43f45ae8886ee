package inbound

import (
	"github.com/shandysiswandi/credbite/internal/identity/usecase"
	"github.com/shandysiswandi/credbite/internal/pkg/router"
)

// HTTPEndpoint exposes HTTP handlers for verification credentials and MFA.
type HTTPEndpoint struct {
	uc uc
}

// SendVerificationCode issues a verification code for the current user.
// @Summary Send verification code
// @Description Generates a six digit code and e-mails it to the authenticated user.
// @Tags Identity, Verification
// @Produce json
// @Security BearerAuth
// @Success 200 {object} router.successResponse{data=SendVerificationCodeResponse} "Code sent"
// @Failure 401 {object} router.errorResponse "Authentication required"
// @Failure 429 {object} router.errorResponse "Cooldown active"
// @Failure 500 {object} router.errorResponse "Internal server error"
// @Router /api/v1/identity/verification/code [post]
func (h *HTTPEndpoint) SendVerificationCode(r *router.Request) (any, error) {
	resp, err := h.uc.SendVerificationCode(r.Context())
	if err != nil {
		return nil, err
	}

	return SendVerificationCodeResponse{ExpiresAt: resp.ExpiresAt}, nil
}

// VerifyCode consumes the current user's verification code.
// @Summary Verify code
// @Tags Identity, Verification
// @Accept json
// @Security BearerAuth
// @Param request body VerifyCodeRequest true "Code payload"
// @Success 204 "No Content"
// @Failure 400 {object} router.errorResponse "Invalid request body"
// @Failure 401 {object} router.errorResponse "Invalid or expired code"
// @Failure 422 {object} router.errorResponse "Validation error"
// @Router /api/v1/identity/verification/code/verify [post]
func (h *HTTPEndpoint) VerifyCode(r *router.Request) (any, error) {
	clm, err := r.Auth()
	if err != nil {
		return nil, err
	}

	var req VerifyCodeRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	if err := h.uc.VerifyCode(r.Context(), usecase.VerifyCodeInput{UserID: clm.Subject, Code: req.Code}); err != nil {
		return nil, err
	}

	return nil, nil
}

// RequestEmailVerification e-mails a verification link.
// @Summary Request email verification link
// @Description Always answers with the same message so account existence is not revealed.
// @Tags Identity, Verification
// @Accept json
// @Produce json
// @Param request body RequestEmailVerificationRequest true "Verification payload"
// @Success 200 {object} router.successResponse{data=RequestEmailVerificationResponse}
// @Failure 422 {object} router.errorResponse "Validation error"
// @Failure 429 {object} router.errorResponse "Cooldown active"
// @Router /api/v1/identity/verification/email-token [post]
func (h *HTTPEndpoint) RequestEmailVerification(r *router.Request) (any, error) {
	var req RequestEmailVerificationRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	if err := h.uc.RequestEmailVerification(r.Context(), usecase.RequestEmailVerificationInput{
		ClientID: req.ClientID,
		Email:    req.Email,
	}); err != nil {
		return nil, err
	}

	return RequestEmailVerificationResponse{}, nil
}

// VerifyEmailToken consumes a verification link token.
// @Summary Verify email token
// @Tags Identity, Verification
// @Accept json
// @Produce json
// @Param request body VerifyTokenRequest true "Token payload"
// @Success 200 {object} router.successResponse{data=VerifyEmailTokenResponse}
// @Failure 401 {object} router.errorResponse "Invalid or expired token"
// @Router /api/v1/identity/verification/email-token/verify [post]
func (h *HTTPEndpoint) VerifyEmailToken(r *router.Request) (any, error) {
	var req VerifyTokenRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	resp, err := h.uc.VerifyURLToken(r.Context(), usecase.VerifyURLTokenInput{Token: req.Token})
	if err != nil {
		return nil, err
	}

	return VerifyEmailTokenResponse{ClientID: resp.ClientID, UserID: resp.UserID}, nil
}

// RequestPasswordReset e-mails a password reset token.
// @Summary Request password reset
// @Tags Identity, Password
// @Accept json
// @Produce json
// @Param request body RequestPasswordResetRequest true "Reset payload"
// @Success 200 {object} router.successResponse{data=RequestPasswordResetResponse}
// @Failure 429 {object} router.errorResponse "Cooldown active"
// @Router /api/v1/identity/password/reset-token [post]
func (h *HTTPEndpoint) RequestPasswordReset(r *router.Request) (any, error) {
	var req RequestPasswordResetRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	if err := h.uc.RequestPasswordReset(r.Context(), usecase.RequestPasswordResetInput{Email: req.Email}); err != nil {
		return nil, err
	}

	return RequestPasswordResetResponse{}, nil
}

// VerifyResetToken resolves and consumes a reset token.
// @Summary Verify password reset token
// @Tags Identity, Password
// @Accept json
// @Produce json
// @Param request body VerifyTokenRequest true "Token payload"
// @Success 200 {object} router.successResponse{data=VerifyResetTokenResponse}
// @Failure 401 {object} router.errorResponse "Invalid or expired token"
// @Router /api/v1/identity/password/reset-token/verify [post]
func (h *HTTPEndpoint) VerifyResetToken(r *router.Request) (any, error) {
	var req VerifyTokenRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	userID, err := h.uc.VerifyResetToken(r.Context(), usecase.VerifyResetTokenInput{Token: req.Token})
	if err != nil {
		return nil, err
	}

	return VerifyResetTokenResponse{UserID: userID}, nil
}

// ListMFAMethods returns the current user's MFA methods.
// @Summary List MFA methods
// @Tags Identity, MFA
// @Produce json
// @Security BearerAuth
// @Success 200 {object} router.successResponse{data=[]MFAMethodResponse}
// @Router /api/v1/identity/mfa [get]
func (h *HTTPEndpoint) ListMFAMethods(r *router.Request) (any, error) {
	clm, err := r.Auth()
	if err != nil {
		return nil, err
	}

	methods, err := h.uc.ListMFAMethods(r.Context(), usecase.ListMFAMethodsInput{UserID: clm.Subject})
	if err != nil {
		return nil, err
	}

	out := make([]MFAMethodResponse, 0, len(methods))
	for i := range methods {
		out = append(out, toMFAMethodResponse(&methods[i]))
	}
	return out, nil
}

// CreateMFAMethod registers a PENDING MFA method.
// @Summary Create MFA method
// @Description TOTP methods return their secret and provisioning URI; EMAIL and SMS methods receive a first code.
// @Tags Identity, MFA
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateMFAMethodRequest true "Method payload"
// @Success 201 {object} router.successResponse{data=CreateMFAMethodResponse}
// @Failure 409 {object} router.errorResponse "Method type already exists"
// @Failure 422 {object} router.errorResponse "Validation error"
// @Router /api/v1/identity/mfa [post]
func (h *HTTPEndpoint) CreateMFAMethod(r *router.Request) (any, error) {
	clm, err := r.Auth()
	if err != nil {
		return nil, err
	}

	var req CreateMFAMethodRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	resp, err := h.uc.CreateMFAMethod(r.Context(), usecase.CreateMFAMethodInput{UserID: clm.Subject, Type: req.Type})
	if err != nil {
		return nil, err
	}

	return CreateMFAMethodResponse{MFAMethodResponse: toMFAMethodResponse(resp)}, nil
}

// GetMFAMethod returns one MFA method of the current user.
// @Summary Get MFA method
// @Tags Identity, MFA
// @Produce json
// @Security BearerAuth
// @Param id path string true "Method ID"
// @Success 200 {object} router.successResponse{data=MFAMethodResponse}
// @Failure 404 {object} router.errorResponse "Method not found"
// @Router /api/v1/identity/mfa/{id} [get]
func (h *HTTPEndpoint) GetMFAMethod(r *router.Request) (any, error) {
	clm, err := r.Auth()
	if err != nil {
		return nil, err
	}

	resp, err := h.uc.GetMFAMethod(r.Context(), usecase.GetMFAMethodInput{UserID: clm.Subject, MethodID: r.GetParam("id")})
	if err != nil {
		return nil, err
	}

	return toMFAMethodResponse(resp), nil
}

// VerifyMFA checks a code against a method, or the default one when the
// path carries no id.
// @Summary Verify MFA code
// @Tags Identity, MFA
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string false "Method ID"
// @Param request body VerifyMFARequest true "Code payload"
// @Success 200 {object} router.successResponse{data=MFAMethodResponse}
// @Failure 401 {object} router.errorResponse "Invalid code"
// @Failure 423 {object} router.errorResponse "Method locked"
// @Router /api/v1/identity/mfa/{id}/verify [post]
// @Router /api/v1/identity/mfa-verify [post]
func (h *HTTPEndpoint) VerifyMFA(r *router.Request) (any, error) {
	clm, err := r.Auth()
	if err != nil {
		return nil, err
	}

	var req VerifyMFARequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	resp, err := h.uc.VerifyMFA(r.Context(), usecase.VerifyMFAInput{
		UserID:   clm.Subject,
		MethodID: r.GetParam("id"),
		Code:     req.Code,
	})
	if err != nil {
		return nil, err
	}

	return toMFAMethodResponse(resp), nil
}

// SetDefaultMFA makes an ENABLED method the default.
// @Summary Set default MFA method
// @Tags Identity, MFA
// @Security BearerAuth
// @Param id path string true "Method ID"
// @Success 204 "No Content"
// @Failure 409 {object} router.errorResponse "Method not enabled"
// @Router /api/v1/identity/mfa/{id}/default [put]
func (h *HTTPEndpoint) SetDefaultMFA(r *router.Request) (any, error) {
	clm, err := r.Auth()
	if err != nil {
		return nil, err
	}

	if err := h.uc.SetDefaultMFA(r.Context(), usecase.SetDefaultMFAInput{UserID: clm.Subject, MethodID: r.GetParam("id")}); err != nil {
		return nil, err
	}

	return nil, nil
}

// @Summary Delete MFA method
// @Tags Identity, MFA
// @Security BearerAuth
// @Param id path string true "Method ID"
// @Success 204 "No Content"
// @Failure 409 {object} router.errorResponse "Only enabled default method"
// @Router /api/v1/identity/mfa/{id} [delete]
func (h *HTTPEndpoint) DeleteMFAMethod(r *router.Request) (any, error) {
	clm, err := r.Auth()
	if err != nil {
		return nil, err
	}

	if err := h.uc.DeleteMFAMethod(r.Context(), usecase.DeleteMFAMethodInput{UserID: clm.Subject, MethodID: r.GetParam("id")}); err != nil {
		return nil, err
	}

	return nil, nil
}

// @Summary Send MFA code
// @Description EMAIL and SMS methods receive a code; TOTP returns its provisioning URI.
// @Tags Identity, MFA
// @Produce json
// @Security BearerAuth
// @Param id path string true "Method ID"
// @Success 200 {object} router.successResponse{data=SendMFACodeResponse}
// @Failure 429 {object} router.errorResponse "Cooldown active"
// @Router /api/v1/identity/mfa/{id}/send [post]
func (h *HTTPEndpoint) SendMFACode(r *router.Request) (any, error) {
	clm, err := r.Auth()
	if err != nil {
		return nil, err
	}

	resp, err := h.uc.SendMFACode(r.Context(), usecase.SendMFACodeInput{UserID: clm.Subject, MethodID: r.GetParam("id")})
	if err != nil {
		return nil, err
	}

	return SendMFACodeResponse{Type: resp.Type.String(), URI: resp.URI, ExpiresAt: resp.ExpiresAt}, nil
}

// @Summary Generate backup codes
// @Tags Identity, MFA
// @Produce json
// @Security BearerAuth
// @Success 200 {object} router.successResponse{data=BackupCodesResponse}
// @Failure 409 {object} router.errorResponse "No enabled method"
// @Router /api/v1/identity/mfa-backup-codes [post]
func (h *HTTPEndpoint) GenerateBackupCodes(r *router.Request) (any, error) {
	clm, err := r.Auth()
	if err != nil {
		return nil, err
	}

	codes, err := h.uc.GenerateBackupCodes(r.Context(), usecase.GenerateBackupCodesInput{UserID: clm.Subject})
	if err != nil {
		return nil, err
	}

	return BackupCodesResponse{Codes: codes}, nil
}

// @Summary Redeem backup code
// @Tags Identity, MFA
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body VerifyBackupCodeRequest true "Backup code payload"
// @Success 200 {object} router.successResponse{data=VerifyBackupCodeResponse}
// @Failure 401 {object} router.errorResponse "Invalid backup code"
// @Router /api/v1/identity/mfa-backup-codes/verify [post]
func (h *HTTPEndpoint) VerifyBackupCode(r *router.Request) (any, error) {
	clm, err := r.Auth()
	if err != nil {
		return nil, err
	}

	var req VerifyBackupCodeRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	resp, err := h.uc.VerifyBackupCode(r.Context(), usecase.VerifyBackupCodeInput{UserID: clm.Subject, Code: req.Code})
	if err != nil {
		return nil, err
	}

	return VerifyBackupCodeResponse{Remaining: resp.Remaining}, nil
}

// @Summary Reset MFA attempts
// @Tags Identity, MFA, Admin
// @Security BearerAuth
// @Param id path string true "Method ID"
// @Success 204 "No Content"
// @Failure 403 {object} router.errorResponse "Account not allowed"
// @Router /api/v1/identity/admin/mfa/{id}/reset-attempts [post]
func (h *HTTPEndpoint) ResetMFAAttempts(r *router.Request) (any, error) {
	if err := h.uc.ResetMFAAttempts(r.Context(), usecase.ResetMFAAttemptsInput{MethodID: r.GetParam("id")}); err != nil {
		return nil, err
	}

	return nil, nil
}
