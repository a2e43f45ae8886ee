package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/shandysiswandi/credbite/internal/oauth/entity"
	"github.com/shandysiswandi/credbite/internal/pkg/goerror"
	"github.com/shandysiswandi/credbite/internal/shared/event"
)

type GenerateGuestCodeInput struct {
	Resource    string `validate:"required,max=64"`
	ResourceID  string `validate:"required,max=128"`
	Write       bool
	GuestName   string `validate:"omitempty,max=128"`
	GuestEmail  string `validate:"required,email"`
	RedirectURL string `validate:"omitempty,url"`
	ExpiryHours int    `validate:"gte=0,lte=720"`
	WorkspaceID string `validate:"omitempty,max=128"`
}

type GenerateCodeOutput struct {
	Code        string
	ResourceID  string
	UserID      string
	ExpiresAt   time.Time
	ExpiryHours int
}

// GenerateGuestCode issues a code that lets a person without an account
// access one resource. The caller becomes the resource owner.
func (s *Usecase) GenerateGuestCode(ctx context.Context, in GenerateGuestCodeInput) (*GenerateCodeOutput, error) {
	ctx, span := s.startSpan(ctx, "GenerateGuestCode")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	clm, err := s.authenticatedAndAuthorized(ctx, "guest_code", "create")
	if err != nil {
		return nil, err
	}

	hours := in.ExpiryHours
	if hours == 0 {
		hours = s.defaultExpiryHours()
	}

	dc := &entity.DelegatedCode[entity.GuestClaims]{
		Code:       s.uuid.Generate(),
		Resource:   in.Resource,
		ResourceID: in.ResourceID,
		Write:      in.Write,
		Subject: entity.GuestClaims{
			Name:       strings.TrimSpace(in.GuestName),
			Email:      strings.ToLower(strings.TrimSpace(in.GuestEmail)),
			OwnerEmail: clm.Email,
		},
		RedirectURL: in.RedirectURL,
		WorkspaceID: in.WorkspaceID,
		ExpiresAt:   expiryFrom(s.clock.Now(), hours),
	}

	if err := s.guestCodes.save(ctx, dc); err != nil {
		slog.ErrorContext(ctx, "failed to store guest code", "resource_id", in.ResourceID, "error", err)
		return nil, goerror.NewServer(err)
	}

	s.announceCode(ctx, AccessCodeIssuedEvent{
		Kind:           string(event.AccessKindGuest),
		Code:           dc.Code,
		Resource:       dc.Resource,
		ResourceID:     dc.ResourceID,
		Write:          dc.Write,
		RecipientName:  dc.Subject.Name,
		RecipientEmail: dc.Subject.Email,
		OwnerEmail:     dc.Subject.OwnerEmail,
		RedirectURL:    dc.RedirectURL,
		ExpiresAt:      dc.ExpiresAt,
	})

	return &GenerateCodeOutput{
		Code:        dc.Code,
		ResourceID:  dc.ResourceID,
		ExpiresAt:   dc.ExpiresAt,
		ExpiryHours: hours,
	}, nil
}

type ValidateCodeInput struct {
	Code       string `validate:"required"`
	ResourceID string `validate:"omitempty,max=128"`
}

// ValidateCodeOutput reports a rejected code with Valid false and a reason
// rather than an error.
type ValidateCodeOutput struct {
	Valid       bool
	Error       string
	Resource    string
	ResourceID  string
	Write       bool
	GuestEmail  string
	UserID      string
	WorkspaceID string
	ExpiresAt   time.Time
}

func (s *Usecase) ValidateGuestCode(ctx context.Context, in ValidateCodeInput) (*ValidateCodeOutput, error) {
	ctx, span := s.startSpan(ctx, "ValidateGuestCode")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}
	if in.ResourceID == "" {
		return nil, goerror.NewInvalidInput(nil, "resource_id", "resource_id is required")
	}

	if _, err := s.authenticatedAndAuthorized(ctx, "guest_code", "validate"); err != nil {
		return nil, err
	}

	dc, err := s.guestCodes.validate(ctx, in.Code, in.ResourceID)
	if rejected, ok := rejectedCode(err); ok {
		return rejected, nil
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to validate guest code", "resource_id", in.ResourceID, "error", err)
		return nil, goerror.NewServer(err)
	}

	return &ValidateCodeOutput{
		Valid:       true,
		Resource:    dc.Resource,
		ResourceID:  dc.ResourceID,
		Write:       dc.Write,
		GuestEmail:  dc.Subject.Email,
		WorkspaceID: dc.WorkspaceID,
		ExpiresAt:   dc.ExpiresAt,
	}, nil
}

type RevokeCodeInput struct {
	Code string `validate:"required"`
}

// RevokeGuestCode is idempotent.
func (s *Usecase) RevokeGuestCode(ctx context.Context, in RevokeCodeInput) error {
	ctx, span := s.startSpan(ctx, "RevokeGuestCode")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return goerror.NewInvalidInput(err)
	}

	clm, err := s.authenticatedAndAuthorized(ctx, "guest_code", "revoke")
	if err != nil {
		return err
	}

	if err := s.guestCodes.revoke(ctx, in.Code); err != nil {
		slog.ErrorContext(ctx, "failed to revoke guest code", "by_user_id", clm.Subject, "error", err)
		return goerror.NewServer(err)
	}

	return nil
}

func rejectedCode(err error) (*ValidateCodeOutput, bool) {
	switch {
	case errors.Is(err, entity.ErrResourceMismatch):
		return &ValidateCodeOutput{Error: "Resource ID mismatch"}, true
	case errors.Is(err, entity.ErrInvalidOrExpiredCode):
		return &ValidateCodeOutput{Error: "Invalid or expired code"}, true
	default:
		return nil, false
	}
}

// announceCode publishes the invitation for delivery. Delivery is best
// effort: failures are logged only.
func (s *Usecase) announceCode(ctx context.Context, msg AccessCodeIssuedEvent) {
	msg.EventID = s.uuid.Generate()
	if err := s.repoMessaging.PublishAccessCodeIssued(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "failed to publish access code issued", "kind", msg.Kind, "resource_id", msg.ResourceID, "error", err)
	}
}
