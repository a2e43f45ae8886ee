package inbound

import (
	"context"

	"github.com/shandysiswandi/credbite/internal/notification/usecase"
)

type uc interface {
	ConsumeVerificationCode(ctx context.Context, in usecase.ConsumeVerificationCodeInput) error
	ConsumeVerificationLink(ctx context.Context, in usecase.ConsumeVerificationLinkInput) error
	ConsumePasswordReset(ctx context.Context, in usecase.ConsumePasswordResetInput) error
	ConsumeAccessCode(ctx context.Context, in usecase.ConsumeAccessCodeInput) error
}
