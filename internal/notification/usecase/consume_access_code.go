package usecase

import (
	"context"
	"log/slog"
	"net/url"
	"time"

	"github.com/shandysiswandi/credbite/internal/notification/entity"
)

type ConsumeAccessCodeInput struct {
	EventID        string `validate:"required"`
	Share          bool
	Code           string `validate:"required"`
	Resource       string `validate:"required"`
	ResourceID     string `validate:"required"`
	Write          bool
	RecipientName  string
	RecipientEmail string `validate:"required,email"`
	OwnerEmail     string
	RedirectURL    string
	ExpiresAt      time.Time
}

// ConsumeAccessCode invites the recipient of a guest or share code. The link
// points at RedirectURL when the issuer gave one, else at the web app.
func (s *Usecase) ConsumeAccessCode(ctx context.Context, in ConsumeAccessCodeInput) error {
	ctx, span := s.startSpan(ctx, "ConsumeAccessCode")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		slog.ErrorContext(ctx, "Validation failed", "event_id", in.EventID, "error", err)
		return nil
	}

	trigger, path, param := entity.TriggerKeyGuestAccess, "/guest", "guest_code"
	if in.Share {
		trigger, path, param = entity.TriggerKeyShareAccess, "/share", "share_code"
	}

	access := "read"
	if in.Write {
		access = "read and write"
	}

	data := s.baseEmailTemplateData()
	data["recipient_name"] = in.RecipientName
	data["owner_email"] = in.OwnerEmail
	data["resource"] = in.Resource
	data["access"] = access
	data["code"] = in.Code
	data["access_url"] = accessURL(in.RedirectURL, s.webURL(path), param, in.Code, in.ResourceID)
	data["expires_at"] = in.ExpiresAt.UTC().Format(time.RFC1123)

	return s.sendEmailNotification(ctx, emailNotificationInput{
		EventID:      in.EventID,
		Email:        in.RecipientEmail,
		TriggerKey:   trigger,
		TemplateData: data,
	})
}

func accessURL(redirect, fallback, param, code, resourceID string) string {
	base := fallback
	if redirect != "" {
		base = redirect
	}

	u, err := url.Parse(base)
	if err != nil {
		return fallback
	}
	q := u.Query()
	q.Set(param, code)
	q.Set("resource_id", resourceID)
	u.RawQuery = q.Encode()
	return u.String()
}
