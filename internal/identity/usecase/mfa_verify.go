package usecase

import (
	"context"
	"log/slog"
	"strings"

	"github.com/shandysiswandi/credbite/internal/identity/entity"
	"github.com/shandysiswandi/credbite/internal/pkg/goerror"
)

type VerifyMFAInput struct {
	UserID string `validate:"required"`
	// MethodID may be empty to verify against the default method.
	MethodID string
	Code     string `validate:"required,max=16"`
}

// VerifyMFA checks a code against one method. Every check first reserves an
// attempt on the counter, so concurrent guesses beyond MaxAttempts are
// rejected as locked without being evaluated, and a locked method rejects even
// a correct code. A success clears the counter and enables a PENDING method.
func (s *Usecase) VerifyMFA(ctx context.Context, in VerifyMFAInput) (*MFAMethodInfo, error) {
	ctx, span := s.startSpan(ctx, "VerifyMFA")
	defer span.End()

	in.Code = strings.TrimSpace(in.Code)
	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	method, err := s.loadMethod(ctx, in.UserID, in.MethodID)
	if err != nil {
		return nil, err
	}

	if method.IsLocked() {
		slog.WarnContext(ctx, "mfa method is locked", "user_id", method.UserID, "method_id", method.ID, "attempts", method.AttemptsCount)
		return nil, errLocked()
	}

	n, err := s.store.IncrWithTTL(ctx, attemptsKey(method.ID), s.attemptWindow())
	if err != nil {
		slog.ErrorContext(ctx, "failed to reserve mfa attempt", "user_id", method.UserID, "method_id", method.ID, "error", err)
		return nil, goerror.NewServer(err)
	}
	if n > entity.MaxAttempts {
		slog.WarnContext(ctx, "mfa method is locked", "user_id", method.UserID, "method_id", method.ID, "attempts", n)
		return nil, errLocked()
	}

	ok, err := s.checkMFACode(ctx, method, in.Code)
	if err != nil {
		return nil, err
	}
	if !ok {
		slog.WarnContext(ctx, "invalid mfa code", "user_id", method.UserID, "method_id", method.ID, "attempts", n)
		return nil, errInvalidCredential()
	}

	if _, err := s.store.Delete(ctx, attemptsKey(method.ID)); err != nil {
		slog.ErrorContext(ctx, "failed to reset mfa attempts", "user_id", method.UserID, "method_id", method.ID, "error", err)
		return nil, goerror.NewServer(err)
	}

	now := s.clock.Now()
	if err := s.repoDB.UpdateMFAVerified(ctx, method.ID, now); err != nil {
		slog.ErrorContext(ctx, "failed to repo update mfa verified", "user_id", method.UserID, "method_id", method.ID, "error", err)
		return nil, goerror.NewServer(err)
	}

	method.Status = entity.MFAStatusEnabled
	method.LastVerifiedAt = &now
	method.AttemptsCount = 0
	method.UpdatedAt = now

	return toMethodInfo(method), nil
}

func (s *Usecase) checkMFACode(ctx context.Context, method *entity.MFAMethod, code string) (bool, error) {
	switch method.Type {
	case entity.MFATypeTOTP:
		secret, err := s.openSecret(ctx, method)
		if err != nil {
			return false, err
		}
		return s.totp.Validate(code, secret, s.clock.Now()), nil

	case entity.MFATypeEmail, entity.MFATypeSMS:
		err := s.consumeCode(ctx, method.UserID, code)
		if err == nil {
			return true, nil
		}
		if goerror.CodeOf(err) == goerror.CodeInternal {
			return false, err
		}
		return false, nil

	default:
		slog.WarnContext(ctx, "mfa method type not supported", "user_id", method.UserID, "method_id", method.ID, "type", method.Type.String())
		return false, nil
	}
}
