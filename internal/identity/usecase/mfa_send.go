package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/shandysiswandi/credbite/internal/identity/entity"
	"github.com/shandysiswandi/credbite/internal/pkg/goerror"
)

type SendMFACodeInput struct {
	UserID string `validate:"required"`
	// MethodID may be empty to use the default method.
	MethodID string
}

type SendMFACodeOutput struct {
	Type entity.MFAType
	// URI is set for TOTP, where nothing is sent.
	URI       string
	ExpiresAt *time.Time
}

// SendMFACode delivers a code for an EMAIL or SMS method, or returns the
// provisioning URI of a TOTP method. The method must be enabled.
func (s *Usecase) SendMFACode(ctx context.Context, in SendMFACodeInput) (*SendMFACodeOutput, error) {
	ctx, span := s.startSpan(ctx, "SendMFACode")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	method, err := s.loadMethod(ctx, in.UserID, in.MethodID)
	if err != nil {
		return nil, err
	}

	if !method.IsEnabled() {
		slog.WarnContext(ctx, "mfa code requested for disabled method", "user_id", in.UserID, "method_id", method.ID)
		return nil, goerror.NewBusiness("MFA method is not enabled", goerror.CodeConflict)
	}

	user, err := s.getUser(ctx, in.UserID)
	if err != nil {
		return nil, err
	}

	switch method.Type {
	case entity.MFATypeTOTP:
		secret, err := s.openSecret(ctx, method)
		if err != nil {
			return nil, err
		}
		uri, err := s.totp.URI(user.Email, secret)
		if err != nil {
			slog.ErrorContext(ctx, "failed to build totp uri", "user_id", user.ID, "method_id", method.ID, "error", err)
			return nil, goerror.NewServer(err)
		}
		return &SendMFACodeOutput{Type: method.Type, URI: uri}, nil

	case entity.MFATypeEmail, entity.MFATypeSMS:
		expiresAt, err := s.sendCode(ctx, user, method.Type, true)
		if err != nil {
			return nil, err
		}
		return &SendMFACodeOutput{Type: method.Type, ExpiresAt: &expiresAt}, nil

	default:
		return nil, goerror.NewBusiness("MFA method type not supported", goerror.CodeInvalidInput)
	}
}
