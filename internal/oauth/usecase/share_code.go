package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/shandysiswandi/credbite/internal/oauth/entity"
	"github.com/shandysiswandi/credbite/internal/pkg/goerror"
	"github.com/shandysiswandi/credbite/internal/shared/event"
)

type GenerateShareCodeInput struct {
	Resource    string   `validate:"required,max=64"`
	ResourceID  string   `validate:"required,max=128"`
	Write       bool
	GuestName   string   `validate:"required,max=128"`
	GuestEmail  string   `validate:"required,email"`
	Roles       []string `validate:"required,min=1,dive,required"`
	RedirectURL string   `validate:"omitempty,url"`
	ExpiryHours int      `validate:"gte=0,lte=720"`
	WorkspaceID string   `validate:"omitempty,max=128"`
}

// GenerateShareCode issues a code bound to a user account. A guest account is
// created with the given roles when the e-mail is unknown.
func (s *Usecase) GenerateShareCode(ctx context.Context, in GenerateShareCodeInput) (*GenerateCodeOutput, error) {
	ctx, span := s.startSpan(ctx, "GenerateShareCode")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	clm, err := s.authenticatedAndAuthorized(ctx, "share_code", "create")
	if err != nil {
		return nil, err
	}

	user, err := s.resolveGuestUser(ctx, in)
	if err != nil {
		return nil, err
	}

	hours := in.ExpiryHours
	if hours == 0 {
		hours = s.defaultExpiryHours()
	}

	dc := &entity.DelegatedCode[entity.ShareClaims]{
		Code:        s.uuid.Generate(),
		Resource:    in.Resource,
		ResourceID:  in.ResourceID,
		Write:       in.Write,
		Subject:     entity.ShareClaims{UserID: user.ID},
		RedirectURL: in.RedirectURL,
		WorkspaceID: in.WorkspaceID,
		ExpiresAt:   expiryFrom(s.clock.Now(), hours),
	}

	if err := s.shareCodes.save(ctx, dc); err != nil {
		slog.ErrorContext(ctx, "failed to store share code", "user_id", user.ID, "resource_id", in.ResourceID, "error", err)
		return nil, goerror.NewServer(err)
	}

	s.announceCode(ctx, AccessCodeIssuedEvent{
		Kind:           string(event.AccessKindShare),
		Code:           dc.Code,
		Resource:       dc.Resource,
		ResourceID:     dc.ResourceID,
		Write:          dc.Write,
		RecipientName:  user.FullName,
		RecipientEmail: user.Email,
		OwnerEmail:     clm.Email,
		RedirectURL:    dc.RedirectURL,
		ExpiresAt:      dc.ExpiresAt,
	})

	return &GenerateCodeOutput{
		Code:        dc.Code,
		ResourceID:  dc.ResourceID,
		UserID:      user.ID,
		ExpiresAt:   dc.ExpiresAt,
		ExpiryHours: hours,
	}, nil
}

func (s *Usecase) resolveGuestUser(ctx context.Context, in GenerateShareCodeInput) (*entity.User, error) {
	email := strings.ToLower(strings.TrimSpace(in.GuestEmail))

	user, err := s.repoDB.GetUserByEmail(ctx, email)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, goerror.ErrNotFound) {
		slog.ErrorContext(ctx, "failed to get user by email", "error", err)
		return nil, goerror.NewServer(err)
	}

	guest := entity.User{
		ID:       s.uuid.Generate(),
		Email:    email,
		FullName: strings.TrimSpace(in.GuestName),
		Status:   entity.UserStatusActive,
		Roles:    in.Roles,
	}
	err = s.repoDB.CreateUser(ctx, guest)
	if errors.Is(err, goerror.ErrConflict) {
		// created concurrently
		if user, err = s.repoDB.GetUserByEmail(ctx, email); err == nil {
			return user, nil
		}
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to create guest user", "error", err)
		return nil, goerror.NewServer(err)
	}

	slog.InfoContext(ctx, "guest user created", "user_id", guest.ID)
	return &guest, nil
}

// ValidateShareCode checks the resource only when ResourceID is given.
func (s *Usecase) ValidateShareCode(ctx context.Context, in ValidateCodeInput) (*ValidateCodeOutput, error) {
	ctx, span := s.startSpan(ctx, "ValidateShareCode")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	if _, err := s.authenticatedAndAuthorized(ctx, "share_code", "validate"); err != nil {
		return nil, err
	}

	dc, err := s.shareCodes.validate(ctx, in.Code, in.ResourceID)
	if rejected, ok := rejectedCode(err); ok {
		return rejected, nil
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to validate share code", "resource_id", in.ResourceID, "error", err)
		return nil, goerror.NewServer(err)
	}

	return &ValidateCodeOutput{
		Valid:       true,
		Resource:    dc.Resource,
		ResourceID:  dc.ResourceID,
		Write:       dc.Write,
		UserID:      dc.Subject.UserID,
		WorkspaceID: dc.WorkspaceID,
		ExpiresAt:   dc.ExpiresAt,
	}, nil
}

// RevokeShareCode is idempotent.
func (s *Usecase) RevokeShareCode(ctx context.Context, in RevokeCodeInput) error {
	ctx, span := s.startSpan(ctx, "RevokeShareCode")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return goerror.NewInvalidInput(err)
	}

	clm, err := s.authenticatedAndAuthorized(ctx, "share_code", "revoke")
	if err != nil {
		return err
	}

	if err := s.shareCodes.revoke(ctx, in.Code); err != nil {
		slog.ErrorContext(ctx, "failed to revoke share code", "by_user_id", clm.Subject, "error", err)
		return goerror.NewServer(err)
	}

	return nil
}
