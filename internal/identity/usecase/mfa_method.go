package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/shandysiswandi/credbite/internal/identity/entity"
	"github.com/shandysiswandi/credbite/internal/pkg/credstore"
	"github.com/shandysiswandi/credbite/internal/pkg/goerror"
	"github.com/shandysiswandi/credbite/internal/pkg/mfa"
)

func attemptsKey(methodID string) string { return "mfa:attempts:" + methodID }

type MFAMethodInfo struct {
	ID                   string
	Type                 entity.MFAType
	Status               entity.MFAStatus
	IsDefault            bool
	Attempts             int64
	Locked               bool
	BackupCodesRemaining int
	LastVerifiedAt       *time.Time
	CreatedAt            time.Time
	// Secret and URI are only filled for a TOTP method that is still PENDING.
	Secret string
	URI    string
}

type CreateMFAMethodInput struct {
	UserID string `validate:"required"`
	Type   string `validate:"required,oneof=TOTP EMAIL SMS totp email sms"`
}

// CreateMFAMethod registers a PENDING method. A user's first method becomes
// the default. EMAIL and SMS methods get their first code right away.
func (s *Usecase) CreateMFAMethod(ctx context.Context, in CreateMFAMethodInput) (*MFAMethodInfo, error) {
	ctx, span := s.startSpan(ctx, "CreateMFAMethod")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}
	typ := entity.ParseMFAType(in.Type)

	user, err := s.getUser(ctx, in.UserID)
	if err != nil {
		return nil, err
	}

	existing, err := s.repoDB.GetMFAMethodsByUserID(ctx, user.ID)
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get mfa methods", "user_id", user.ID, "error", err)
		return nil, goerror.NewServer(err)
	}
	for i := range existing {
		if existing[i].Type == typ {
			slog.WarnContext(ctx, "mfa method type already registered", "user_id", user.ID, "type", typ.String())
			return nil, goerror.NewBusiness("MFA method of this type already exists", goerror.CodeConflict)
		}
	}

	now := s.clock.Now()
	method := entity.MFAMethod{
		ID:        s.uuid.Generate(),
		UserID:    user.ID,
		Type:      typ,
		Status:    entity.MFAStatusPending,
		IsDefault: len(existing) == 0,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if len(existing) > 0 {
		method.BackupCodesHash = existing[0].BackupCodesHash
	}

	var secret, uri string
	if typ == entity.MFATypeTOTP {
		secret, uri, err = s.totp.Generate(user.Email)
		if err != nil {
			slog.ErrorContext(ctx, "failed to generate totp secret", "user_id", user.ID, "error", err)
			return nil, goerror.NewServer(err)
		}

		method.Secret, err = s.mfaEncryptor.Encrypt([]byte(secret), secretScope(&method))
		if err != nil {
			slog.ErrorContext(ctx, "failed to encrypt totp secret", "user_id", user.ID, "error", err)
			return nil, goerror.NewServer(err)
		}
	}

	err = s.repoDB.CreateMFAMethod(ctx, method)
	if errors.Is(err, goerror.ErrConflict) {
		slog.WarnContext(ctx, "mfa method created concurrently", "user_id", user.ID, "type", typ.String())
		return nil, goerror.NewBusiness("MFA method of this type already exists", goerror.CodeConflict)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo create mfa method", "user_id", user.ID, "error", err)
		return nil, goerror.NewServer(err)
	}

	if typ != entity.MFATypeTOTP {
		if _, err := s.sendCode(ctx, user, typ, true); err != nil {
			// the method exists; the user can ask for another code after the cooldown
			slog.WarnContext(ctx, "failed to send first mfa code", "user_id", user.ID, "method_id", method.ID, "error", err)
		}
	}

	info := toMethodInfo(&method)
	info.Secret, info.URI = secret, uri
	return info, nil
}

type GetMFAMethodInput struct {
	UserID string `validate:"required"`
	// MethodID may be empty to select the default method.
	MethodID string
}

func (s *Usecase) GetMFAMethod(ctx context.Context, in GetMFAMethodInput) (*MFAMethodInfo, error) {
	ctx, span := s.startSpan(ctx, "GetMFAMethod")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	method, err := s.loadMethod(ctx, in.UserID, in.MethodID)
	if err != nil {
		return nil, err
	}

	info := toMethodInfo(method)
	if method.Type == entity.MFATypeTOTP && method.Status == entity.MFAStatusPending {
		secret, err := s.openSecret(ctx, method)
		if err != nil {
			return nil, err
		}
		info.Secret = secret
	}

	return info, nil
}

type ListMFAMethodsInput struct {
	UserID string `validate:"required"`
}

func (s *Usecase) ListMFAMethods(ctx context.Context, in ListMFAMethodsInput) ([]MFAMethodInfo, error) {
	ctx, span := s.startSpan(ctx, "ListMFAMethods")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	methods, err := s.repoDB.GetMFAMethodsByUserID(ctx, in.UserID)
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get mfa methods", "user_id", in.UserID, "error", err)
		return nil, goerror.NewServer(err)
	}

	out := make([]MFAMethodInfo, 0, len(methods))
	for i := range methods {
		if err := s.loadAttempts(ctx, &methods[i]); err != nil {
			return nil, err
		}
		out = append(out, *toMethodInfo(&methods[i]))
	}

	return out, nil
}

// loadMethod resolves methodID, or the default method when it is empty, and
// hides methods owned by someone else behind NotFound.
func (s *Usecase) loadMethod(ctx context.Context, userID, methodID string) (*entity.MFAMethod, error) {
	var (
		method *entity.MFAMethod
		err    error
	)
	if methodID == "" {
		method, err = s.repoDB.GetDefaultMFAMethod(ctx, userID)
	} else {
		method, err = s.repoDB.GetMFAMethodByID(ctx, methodID)
	}
	if errors.Is(err, goerror.ErrNotFound) {
		slog.WarnContext(ctx, "mfa method not found", "user_id", userID, "method_id", methodID)
		return nil, goerror.NewBusiness("MFA method not found", goerror.CodeNotFound)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get mfa method", "user_id", userID, "method_id", methodID, "error", err)
		return nil, goerror.NewServer(err)
	}

	if method.UserID != userID {
		slog.WarnContext(ctx, "mfa method owned by another user", "user_id", userID, "method_id", method.ID)
		return nil, goerror.NewBusiness("MFA method not found", goerror.CodeNotFound)
	}

	if err := s.loadAttempts(ctx, method); err != nil {
		return nil, err
	}

	return method, nil
}

func (s *Usecase) loadAttempts(ctx context.Context, method *entity.MFAMethod) error {
	n, err := credstore.Int(ctx, s.store, attemptsKey(method.ID))
	if err != nil {
		slog.ErrorContext(ctx, "failed to get mfa attempts", "user_id", method.UserID, "method_id", method.ID, "error", err)
		return goerror.NewServer(err)
	}
	// rejected reservations may push the counter past the limit
	method.AttemptsCount = min(n, entity.MaxAttempts)
	return nil
}

func (s *Usecase) openSecret(ctx context.Context, method *entity.MFAMethod) (string, error) {
	plain, err := s.mfaEncryptor.Decrypt(method.Secret, secretScope(method))
	if err != nil {
		slog.ErrorContext(ctx, "failed to decrypt totp secret", "user_id", method.UserID, "method_id", method.ID, "error", err)
		return "", goerror.NewServer(err)
	}
	return string(plain), nil
}

func secretScope(m *entity.MFAMethod) mfa.Scope {
	return mfa.Scope{UserID: m.UserID, MethodID: m.ID, Purpose: mfa.PurposeTOTPSecret}
}

func toMethodInfo(m *entity.MFAMethod) *MFAMethodInfo {
	return &MFAMethodInfo{
		ID:                   m.ID,
		Type:                 m.Type,
		Status:               m.Status,
		IsDefault:            m.IsDefault,
		Attempts:             m.AttemptsCount,
		Locked:               m.IsLocked(),
		BackupCodesRemaining: mfa.CountBackupCodes(m.BackupCodesHash),
		LastVerifiedAt:       m.LastVerifiedAt,
		CreatedAt:            m.CreatedAt,
	}
}
