package inbound

import (
	"net/http"
	"time"

	"github.com/shandysiswandi/credbite/internal/identity/usecase"
)

type SendVerificationCodeResponse struct {
	ExpiresAt time.Time `json:"expires_at"`
}

func (SendVerificationCodeResponse) Message() string {
	return "A verification code has been sent to your email."
}

type VerifyCodeRequest struct {
	Code string `json:"code"`
}

type RequestEmailVerificationRequest struct {
	ClientID string `json:"client_id"`
	Email    string `json:"email"`
}

type RequestEmailVerificationResponse struct{}

func (RequestEmailVerificationResponse) Message() string {
	return "If an account with that email exists, we have sent a verification link."
}

type VerifyTokenRequest struct {
	Token string `json:"token"`
}

type VerifyEmailTokenResponse struct {
	ClientID string `json:"client_id"`
	UserID   string `json:"user_id"`
}

type RequestPasswordResetRequest struct {
	Email string `json:"email"`
}

type RequestPasswordResetResponse struct{}

func (RequestPasswordResetResponse) Message() string {
	return "If an account with that email exists, we have sent a password reset link."
}

type VerifyResetTokenResponse struct {
	UserID string `json:"user_id"`
}

type CreateMFAMethodRequest struct {
	Type string `json:"type" example:"TOTP"`
}

type VerifyMFARequest struct {
	Code string `json:"code"`
}

type MFAMethodResponse struct {
	ID                   string     `json:"id"`
	Type                 string     `json:"type" example:"TOTP"`
	Status               string     `json:"status" example:"PENDING"`
	IsDefault            bool       `json:"is_default"`
	Attempts             int64      `json:"attempts"`
	Locked               bool       `json:"locked"`
	BackupCodesRemaining int        `json:"backup_codes_remaining"`
	LastVerifiedAt       *time.Time `json:"last_verified_at,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
	Secret               string     `json:"secret,omitempty"`
	URI                  string     `json:"uri,omitempty"`
}

func toMFAMethodResponse(m *usecase.MFAMethodInfo) MFAMethodResponse {
	return MFAMethodResponse{
		ID:                   m.ID,
		Type:                 m.Type.String(),
		Status:               m.Status.String(),
		IsDefault:            m.IsDefault,
		Attempts:             m.Attempts,
		Locked:               m.Locked,
		BackupCodesRemaining: m.BackupCodesRemaining,
		LastVerifiedAt:       m.LastVerifiedAt,
		CreatedAt:            m.CreatedAt,
		Secret:               m.Secret,
		URI:                  m.URI,
	}
}

type CreateMFAMethodResponse struct {
	MFAMethodResponse
}

func (CreateMFAMethodResponse) StatusCode() int { return http.StatusCreated }

type SendMFACodeResponse struct {
	Type      string     `json:"type"`
	URI       string     `json:"uri,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

type BackupCodesResponse struct {
	Codes []string `json:"codes"`
}

func (BackupCodesResponse) Message() string {
	return "Store these backup codes safely. They will not be shown again."
}

type VerifyBackupCodeRequest struct {
	Code string `json:"code"`
}

type VerifyBackupCodeResponse struct {
	Remaining int `json:"remaining"`
}
