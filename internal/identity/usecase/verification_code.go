package usecase

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"

	"github.com/shandysiswandi/credbite/internal/pkg/credstore"
	"github.com/shandysiswandi/credbite/internal/pkg/goerror"
	"github.com/shandysiswandi/credbite/internal/pkg/otp"
)

const codeDigits = 6

func codeKey(userID string) string { return "verification:code:" + userID }

func codeCooldownKey(userID string) string { return "verification:cooldown:" + userID }

type GenerateCodeInput struct {
	UserID string `validate:"required"`
}

// GenerateCode issues a six digit code for the user, valid for one
// verification inside the code TTL.
func (s *Usecase) GenerateCode(ctx context.Context, in GenerateCodeInput) (string, error) {
	ctx, span := s.startSpan(ctx, "GenerateCode")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return "", goerror.NewInvalidInput(err)
	}

	return s.issueCode(ctx, in.UserID)
}

func (s *Usecase) issueCode(ctx context.Context, userID string) (string, error) {
	if err := s.ensureNoCooldown(ctx, codeCooldownKey(userID), userID); err != nil {
		return "", err
	}

	code, err := otp.NumericCode(codeDigits)
	if err != nil {
		slog.ErrorContext(ctx, "failed to generate verification code", "user_id", userID, "error", err)
		return "", goerror.NewServer(err)
	}

	if err := s.store.Set(ctx, codeKey(userID), code, s.codeTTL()); err != nil {
		slog.ErrorContext(ctx, "failed to store verification code", "user_id", userID, "error", err)
		return "", goerror.NewServer(err)
	}

	if err := s.store.Set(ctx, codeCooldownKey(userID), "1", s.cooldown()); err != nil {
		slog.ErrorContext(ctx, "failed to store verification cooldown", "user_id", userID, "error", err)
		return "", goerror.NewServer(err)
	}

	return code, nil
}

type VerifyCodeInput struct {
	UserID string `validate:"required"`
	Code   string `validate:"required"`
}

// VerifyCode consumes the user's code. Any failure, including a second use
// of a valid code, is reported as an invalid or expired credential.
func (s *Usecase) VerifyCode(ctx context.Context, in VerifyCodeInput) error {
	ctx, span := s.startSpan(ctx, "VerifyCode")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return goerror.NewInvalidInput(err)
	}

	return s.consumeCode(ctx, in.UserID, in.Code)
}

func (s *Usecase) consumeCode(ctx context.Context, userID, code string) error {
	stored, err := s.store.Get(ctx, codeKey(userID))
	if errors.Is(err, credstore.ErrNotFound) {
		slog.WarnContext(ctx, "verification code not found or expired", "user_id", userID)
		return errInvalidCredential()
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to get verification code", "user_id", userID, "error", err)
		return goerror.NewServer(err)
	}

	if subtle.ConstantTimeCompare([]byte(stored), []byte(code)) != 1 {
		slog.WarnContext(ctx, "verification code mismatch", "user_id", userID)
		return errInvalidCredential()
	}

	return s.consume(ctx, userID, codeKey(userID), codeCooldownKey(userID))
}

type InvalidateCodeInput struct {
	UserID string `validate:"required"`
}

// InvalidateCode drops the pending code and its cooldown. Missing keys are fine.
func (s *Usecase) InvalidateCode(ctx context.Context, in InvalidateCodeInput) error {
	ctx, span := s.startSpan(ctx, "InvalidateCode")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return goerror.NewInvalidInput(err)
	}

	return s.invalidate(ctx, in.UserID, codeKey(in.UserID), codeCooldownKey(in.UserID))
}

func (s *Usecase) ensureNoCooldown(ctx context.Context, key, userID string) error {
	retryAfter, err := s.store.TTL(ctx, key)
	if errors.Is(err, credstore.ErrNotFound) {
		return nil
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to check credential cooldown", "user_id", userID, "error", err)
		return goerror.NewServer(err)
	}

	slog.WarnContext(ctx, "credential requested during cooldown", "user_id", userID, "retry_after", retryAfter.String())
	return errRateLimited(retryAfter)
}

// consume deletes the credential and requires that this call removed it, so
// two concurrent verifications of one credential cannot both succeed.
func (s *Usecase) consume(ctx context.Context, userID, key, cooldownKey string) error {
	n, err := s.store.Delete(ctx, key)
	if err != nil {
		slog.ErrorContext(ctx, "failed to delete credential", "user_id", userID, "error", err)
		return goerror.NewServer(err)
	}
	if n != 1 {
		slog.WarnContext(ctx, "credential already consumed", "user_id", userID)
		return errInvalidCredential()
	}

	if _, err := s.store.Delete(ctx, cooldownKey); err != nil {
		slog.WarnContext(ctx, "failed to clear credential cooldown", "user_id", userID, "error", err)
	}

	return nil
}

func (s *Usecase) invalidate(ctx context.Context, userID string, keys ...string) error {
	if _, err := s.store.Delete(ctx, keys...); err != nil {
		slog.ErrorContext(ctx, "failed to invalidate credential", "user_id", userID, "error", err)
		return goerror.NewServer(err)
	}
	return nil
}
