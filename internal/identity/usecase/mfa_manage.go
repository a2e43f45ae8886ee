package usecase

import (
	"context"
	"log/slog"

	"github.com/shandysiswandi/credbite/internal/identity/entity"
	"github.com/shandysiswandi/credbite/internal/pkg/goerror"
)

type SetDefaultMFAInput struct {
	UserID   string `validate:"required"`
	MethodID string `validate:"required"`
}

func (s *Usecase) SetDefaultMFA(ctx context.Context, in SetDefaultMFAInput) error {
	ctx, span := s.startSpan(ctx, "SetDefaultMFA")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return goerror.NewInvalidInput(err)
	}

	method, err := s.loadMethod(ctx, in.UserID, in.MethodID)
	if err != nil {
		return err
	}

	if !method.IsEnabled() {
		slog.WarnContext(ctx, "mfa method not enabled for default", "user_id", in.UserID, "method_id", method.ID, "status", method.Status.String())
		return goerror.NewBusiness("Only an enabled MFA method can be the default", goerror.CodeConflict)
	}

	if method.IsDefault {
		return nil
	}

	if err := s.repoDB.SetDefaultMFAMethod(ctx, in.UserID, method.ID); err != nil {
		slog.ErrorContext(ctx, "failed to repo set default mfa method", "user_id", in.UserID, "method_id", method.ID, "error", err)
		return goerror.NewServer(err)
	}

	return nil
}

type DeleteMFAMethodInput struct {
	UserID   string `validate:"required"`
	MethodID string `validate:"required"`
}

// DeleteMFAMethod refuses to remove the default method while it is the only
// enabled one. Removing a default hands the role to another enabled method.
func (s *Usecase) DeleteMFAMethod(ctx context.Context, in DeleteMFAMethodInput) error {
	ctx, span := s.startSpan(ctx, "DeleteMFAMethod")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return goerror.NewInvalidInput(err)
	}

	method, err := s.loadMethod(ctx, in.UserID, in.MethodID)
	if err != nil {
		return err
	}

	methods, err := s.repoDB.GetMFAMethodsByUserID(ctx, in.UserID)
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get mfa methods", "user_id", in.UserID, "error", err)
		return goerror.NewServer(err)
	}

	var successor *entity.MFAMethod
	enabled := 0
	for i := range methods {
		if !methods[i].IsEnabled() {
			continue
		}
		enabled++
		if methods[i].ID != method.ID && successor == nil {
			successor = &methods[i]
		}
	}

	if method.IsDefault && method.IsEnabled() && enabled == 1 {
		slog.WarnContext(ctx, "refusing to delete the only enabled default mfa method", "user_id", in.UserID, "method_id", method.ID)
		return goerror.NewBusiness("Cannot delete the only enabled default MFA method", goerror.CodeConflict)
	}

	deleted, err := s.repoDB.DeleteMFAMethod(ctx, in.UserID, method.ID)
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo delete mfa method", "user_id", in.UserID, "method_id", method.ID, "error", err)
		return goerror.NewServer(err)
	}
	if !deleted {
		return goerror.NewBusiness("MFA method not found", goerror.CodeNotFound)
	}

	if _, err := s.store.Delete(ctx, attemptsKey(method.ID)); err != nil {
		slog.WarnContext(ctx, "failed to drop mfa attempts", "user_id", in.UserID, "method_id", method.ID, "error", err)
	}

	if method.IsDefault && successor != nil {
		if err := s.repoDB.SetDefaultMFAMethod(ctx, in.UserID, successor.ID); err != nil {
			slog.ErrorContext(ctx, "failed to promote default mfa method", "user_id", in.UserID, "method_id", successor.ID, "error", err)
			return goerror.NewServer(err)
		}
	}

	return nil
}

type ResetMFAAttemptsInput struct {
	MethodID string `validate:"required"`
}

// ResetMFAAttempts unlocks a method of any user. It needs the
// "mfa_attempts"/"reset" permission.
func (s *Usecase) ResetMFAAttempts(ctx context.Context, in ResetMFAAttemptsInput) error {
	ctx, span := s.startSpan(ctx, "ResetMFAAttempts")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return goerror.NewInvalidInput(err)
	}

	clm, err := s.authenticatedAndAuthorized(ctx, "mfa_attempts", "reset")
	if err != nil {
		return err
	}

	if _, err := s.store.Delete(ctx, attemptsKey(in.MethodID)); err != nil {
		slog.ErrorContext(ctx, "failed to reset mfa attempts", "method_id", in.MethodID, "by_user_id", clm.Subject, "error", err)
		return goerror.NewServer(err)
	}

	slog.InfoContext(ctx, "mfa attempts reset", "method_id", in.MethodID, "by_user_id", clm.Subject)
	return nil
}
