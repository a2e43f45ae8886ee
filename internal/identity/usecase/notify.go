package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/shandysiswandi/credbite/internal/identity/entity"
	"github.com/shandysiswandi/credbite/internal/pkg/goerror"
)

type SendVerificationCodeOutput struct {
	ExpiresAt time.Time
}

// SendVerificationCode issues a code for the authenticated user and hands it
// to the notification module for e-mail delivery.
func (s *Usecase) SendVerificationCode(ctx context.Context) (*SendVerificationCodeOutput, error) {
	ctx, span := s.startSpan(ctx, "SendVerificationCode")
	defer span.End()

	userID, err := s.currentUserID(ctx)
	if err != nil {
		return nil, err
	}

	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	expiresAt, err := s.sendCode(ctx, user, entity.MFATypeEmail, false)
	if err != nil {
		return nil, err
	}

	return &SendVerificationCodeOutput{ExpiresAt: expiresAt}, nil
}

// sendCode issues a code and publishes it. When publishing fails the code is
// withdrawn so the caller is not stuck behind the cooldown.
func (s *Usecase) sendCode(ctx context.Context, user *entity.User, channel entity.MFAType, forMFA bool) (time.Time, error) {
	code, err := s.issueCode(ctx, user.ID)
	if err != nil {
		return time.Time{}, err
	}

	expiresAt := s.clock.Now().Add(s.codeTTL())
	err = s.repoMessaging.PublishVerificationCodeIssued(ctx, VerificationCodeIssuedEvent{
		EventID:   s.uuid.Generate(),
		UserID:    user.ID,
		Email:     user.Email,
		Phone:     user.Phone,
		FullName:  user.FullName,
		Channel:   channel,
		ForMFA:    forMFA,
		Code:      code,
		ExpiresAt: expiresAt,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to publish verification code", "user_id", user.ID, "error", err)
		_ = s.invalidate(ctx, user.ID, codeKey(user.ID), codeCooldownKey(user.ID))
		return time.Time{}, goerror.NewServer(err)
	}

	return expiresAt, nil
}

type RequestEmailVerificationInput struct {
	ClientID string `validate:"required,excludes=:"`
	Email    string `validate:"required,email"`
}

// RequestEmailVerification mails a verification link. Unknown addresses and
// requests inside the cooldown get the same silent reply as a fresh request,
// so the endpoint cannot be used to enumerate accounts.
func (s *Usecase) RequestEmailVerification(ctx context.Context, in RequestEmailVerificationInput) error {
	ctx, span := s.startSpan(ctx, "RequestEmailVerification")
	defer span.End()

	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := s.validator.Validate(in); err != nil {
		return goerror.NewInvalidInput(err)
	}

	user, err := s.findUserByEmail(ctx, in.Email)
	if err != nil || user == nil {
		return err
	}

	token, err := s.issueToken(ctx, user.ID, in.ClientID+":"+user.ID,
		urlTokenKey(in.ClientID, user.ID), urlTokenCooldownKey(in.ClientID, user.ID), s.urlTokenTTL())
	if errors.Is(err, entity.ErrRateLimited) {
		return nil
	}
	if err != nil {
		return err
	}

	err = s.repoMessaging.PublishVerificationLinkIssued(ctx, VerificationLinkIssuedEvent{
		EventID:   s.uuid.Generate(),
		UserID:    user.ID,
		ClientID:  in.ClientID,
		Email:     user.Email,
		FullName:  user.FullName,
		Token:     token,
		ExpiresAt: s.clock.Now().Add(s.urlTokenTTL()),
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to publish verification link", "user_id", user.ID, "client_id", in.ClientID, "error", err)
		_ = s.invalidate(ctx, user.ID, urlTokenKey(in.ClientID, user.ID), urlTokenCooldownKey(in.ClientID, user.ID))
		return goerror.NewServer(err)
	}

	return nil
}

type RequestPasswordResetInput struct {
	Email string `validate:"required,email"`
}

// RequestPasswordReset mails a reset token; like RequestEmailVerification it
// does not reveal whether the address exists, not even through the cooldown.
func (s *Usecase) RequestPasswordReset(ctx context.Context, in RequestPasswordResetInput) error {
	ctx, span := s.startSpan(ctx, "RequestPasswordReset")
	defer span.End()

	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := s.validator.Validate(in); err != nil {
		return goerror.NewInvalidInput(err)
	}

	user, err := s.findUserByEmail(ctx, in.Email)
	if err != nil || user == nil {
		return err
	}

	token, err := s.issueToken(ctx, user.ID, user.ID, resetTokenKey(user.ID), resetTokenCooldownKey(user.ID), s.resetTokenTTL())
	if errors.Is(err, entity.ErrRateLimited) {
		return nil
	}
	if err != nil {
		return err
	}

	err = s.repoMessaging.PublishPasswordResetRequested(ctx, PasswordResetRequestedEvent{
		EventID:   s.uuid.Generate(),
		UserID:    user.ID,
		Email:     user.Email,
		FullName:  user.FullName,
		Token:     token,
		ExpiresAt: s.clock.Now().Add(s.resetTokenTTL()),
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to publish password reset", "user_id", user.ID, "error", err)
		_ = s.invalidate(ctx, user.ID, resetTokenKey(user.ID), resetTokenCooldownKey(user.ID))
		return goerror.NewServer(err)
	}

	return nil
}

func (s *Usecase) getUser(ctx context.Context, userID string) (*entity.User, error) {
	user, err := s.repoDB.GetUserByID(ctx, userID)
	if errors.Is(err, goerror.ErrNotFound) {
		slog.WarnContext(ctx, "user account not found", "user_id", userID)
		return nil, goerror.NewBusiness("User not found", goerror.CodeNotFound)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get user by id", "user_id", userID, "error", err)
		return nil, goerror.NewServer(err)
	}
	return user, nil
}

// findUserByEmail returns nil, nil for unknown addresses.
func (s *Usecase) findUserByEmail(ctx context.Context, email string) (*entity.User, error) {
	user, err := s.repoDB.GetUserByEmail(ctx, email)
	if errors.Is(err, goerror.ErrNotFound) {
		slog.WarnContext(ctx, "credential requested for unknown email")
		return nil, nil
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get user by email", "error", err)
		return nil, goerror.NewServer(err)
	}
	return user, nil
}
