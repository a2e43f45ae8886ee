package inbound

import (
	"context"
	"net/http"

	"github.com/shandysiswandi/credbite/internal/identity/usecase"
	"github.com/shandysiswandi/credbite/internal/pkg/router"
)

type uc interface {
	SendVerificationCode(ctx context.Context) (*usecase.SendVerificationCodeOutput, error)
	VerifyCode(ctx context.Context, in usecase.VerifyCodeInput) error

	RequestEmailVerification(ctx context.Context, in usecase.RequestEmailVerificationInput) error
	VerifyURLToken(ctx context.Context, in usecase.VerifyURLTokenInput) (*usecase.VerifyURLTokenOutput, error)

	RequestPasswordReset(ctx context.Context, in usecase.RequestPasswordResetInput) error
	VerifyResetToken(ctx context.Context, in usecase.VerifyResetTokenInput) (string, error)

	CreateMFAMethod(ctx context.Context, in usecase.CreateMFAMethodInput) (*usecase.MFAMethodInfo, error)
	GetMFAMethod(ctx context.Context, in usecase.GetMFAMethodInput) (*usecase.MFAMethodInfo, error)
	ListMFAMethods(ctx context.Context, in usecase.ListMFAMethodsInput) ([]usecase.MFAMethodInfo, error)
	VerifyMFA(ctx context.Context, in usecase.VerifyMFAInput) (*usecase.MFAMethodInfo, error)
	SetDefaultMFA(ctx context.Context, in usecase.SetDefaultMFAInput) error
	DeleteMFAMethod(ctx context.Context, in usecase.DeleteMFAMethodInput) error
	SendMFACode(ctx context.Context, in usecase.SendMFACodeInput) (*usecase.SendMFACodeOutput, error)
	GenerateBackupCodes(ctx context.Context, in usecase.GenerateBackupCodesInput) ([]string, error)
	VerifyBackupCode(ctx context.Context, in usecase.VerifyBackupCodeInput) (*usecase.VerifyBackupCodeOutput, error)
	ResetMFAAttempts(ctx context.Context, in usecase.ResetMFAAttemptsInput) error
}

func RegisterHTTPEndpoint(r *router.Router, uc uc) {
	end := &HTTPEndpoint{uc: uc}

	// Verification (code needs authenticated, never a guest token)
	r.POST("/api/v1/identity/verification/code", end.SendVerificationCode, router.DenyGuestAccess)
	r.POST("/api/v1/identity/verification/code/verify", end.VerifyCode, router.DenyGuestAccess)
	r.POST("/api/v1/identity/verification/email-token", end.RequestEmailVerification)
	r.POST("/api/v1/identity/verification/email-token/verify", end.VerifyEmailToken)
	r.Public(http.MethodPost, "/api/v1/identity/verification/email-token")
	r.Public(http.MethodPost, "/api/v1/identity/verification/email-token/verify")

	// Password reset
	r.POST("/api/v1/identity/password/reset-token", end.RequestPasswordReset)
	r.POST("/api/v1/identity/password/reset-token/verify", end.VerifyResetToken)
	r.Public(http.MethodPost, "/api/v1/identity/password/reset-token")
	r.Public(http.MethodPost, "/api/v1/identity/password/reset-token/verify")

	// MFA (need authenticated, never a guest token)
	r.GET("/api/v1/identity/mfa", end.ListMFAMethods, router.DenyGuestAccess)
	r.POST("/api/v1/identity/mfa", end.CreateMFAMethod, router.DenyGuestAccess)
	r.POST("/api/v1/identity/mfa-verify", end.VerifyMFA, router.DenyGuestAccess)
	r.POST("/api/v1/identity/mfa-backup-codes", end.GenerateBackupCodes, router.DenyGuestAccess)
	r.POST("/api/v1/identity/mfa-backup-codes/verify", end.VerifyBackupCode, router.DenyGuestAccess)
	r.GET("/api/v1/identity/mfa/:id", end.GetMFAMethod, router.DenyGuestAccess)
	r.DELETE("/api/v1/identity/mfa/:id", end.DeleteMFAMethod, router.DenyGuestAccess)
	r.POST("/api/v1/identity/mfa/:id/verify", end.VerifyMFA, router.DenyGuestAccess)
	r.PUT("/api/v1/identity/mfa/:id/default", end.SetDefaultMFA, router.DenyGuestAccess)
	r.POST("/api/v1/identity/mfa/:id/send", end.SendMFACode, router.DenyGuestAccess)

	// MFA administration (need authenticated & authorization)
	r.POST("/api/v1/identity/admin/mfa/:id/reset-attempts", end.ResetMFAAttempts, router.DenyGuestAccess)
}
