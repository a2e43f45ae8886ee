package usecase

import (
	"context"
	"log/slog"
	"strings"

	"github.com/shandysiswandi/credbite/internal/pkg/goerror"
	"github.com/shandysiswandi/credbite/internal/pkg/mfa"
)

type GenerateBackupCodesInput struct {
	UserID string `validate:"required"`
}

// GenerateBackupCodes replaces the user's backup codes. The raw codes are
// returned once; only their hashes are stored, on every method of the user.
func (s *Usecase) GenerateBackupCodes(ctx context.Context, in GenerateBackupCodesInput) ([]string, error) {
	ctx, span := s.startSpan(ctx, "GenerateBackupCodes")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	methods, err := s.repoDB.GetMFAMethodsByUserID(ctx, in.UserID)
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get mfa methods", "user_id", in.UserID, "error", err)
		return nil, goerror.NewServer(err)
	}

	hasEnabled := false
	for i := range methods {
		if methods[i].IsEnabled() {
			hasEnabled = true
			break
		}
	}
	if !hasEnabled {
		slog.WarnContext(ctx, "backup codes requested without enabled mfa", "user_id", in.UserID)
		return nil, goerror.NewBusiness("Enable an MFA method before generating backup codes", goerror.CodeConflict)
	}

	codes, joined, err := mfa.GenerateBackupCodes()
	if err != nil {
		slog.ErrorContext(ctx, "failed to generate backup codes", "user_id", in.UserID, "error", err)
		return nil, goerror.NewServer(err)
	}

	if err := s.repoDB.SetBackupCodesHash(ctx, in.UserID, joined); err != nil {
		slog.ErrorContext(ctx, "failed to repo set backup codes", "user_id", in.UserID, "error", err)
		return nil, goerror.NewServer(err)
	}

	return codes, nil
}

type VerifyBackupCodeInput struct {
	UserID string `validate:"required"`
	Code   string `validate:"required,numeric,len=8"`
}

type VerifyBackupCodeOutput struct {
	Remaining int
}

// VerifyBackupCode redeems one backup code. The stored hash list is swapped
// with a compare-and-set, so a code cannot be redeemed twice concurrently.
func (s *Usecase) VerifyBackupCode(ctx context.Context, in VerifyBackupCodeInput) (*VerifyBackupCodeOutput, error) {
	ctx, span := s.startSpan(ctx, "VerifyBackupCode")
	defer span.End()

	in.Code = strings.TrimSpace(in.Code)
	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	methods, err := s.repoDB.GetMFAMethodsByUserID(ctx, in.UserID)
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get mfa methods", "user_id", in.UserID, "error", err)
		return nil, goerror.NewServer(err)
	}

	current := ""
	for i := range methods {
		if methods[i].BackupCodesHash != "" {
			current = methods[i].BackupCodesHash
			break
		}
	}

	remaining, ok := mfa.RedeemBackupCode(current, in.Code)
	if !ok {
		slog.WarnContext(ctx, "backup code not match", "user_id", in.UserID)
		return nil, errInvalidCredential()
	}

	swapped, err := s.repoDB.ReplaceBackupCodesHash(ctx, in.UserID, current, remaining)
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo consume backup code", "user_id", in.UserID, "error", err)
		return nil, goerror.NewServer(err)
	}
	if !swapped {
		slog.WarnContext(ctx, "backup code consumed concurrently", "user_id", in.UserID)
		return nil, errInvalidCredential()
	}

	return &VerifyBackupCodeOutput{Remaining: mfa.CountBackupCodes(remaining)}, nil
}
