package usecase

import (
	"context"
	"log/slog"
	"net/url"
	"time"

	"github.com/shandysiswandi/credbite/internal/notification/entity"
)

type ConsumeVerificationCodeInput struct {
	EventID   string `validate:"required"`
	UserID    string `validate:"required"`
	Email     string `validate:"omitempty,email"`
	Phone     string
	FullName  string
	Channel   entity.Channel `validate:"oneof=1 2"`
	ForMFA    bool
	Code      string `validate:"required"`
	ExpiresAt time.Time
}

// ConsumeVerificationCode delivers a one-time code. SMS has no transport
// yet, so SMS codes are logged without the code and dropped.
func (s *Usecase) ConsumeVerificationCode(ctx context.Context, in ConsumeVerificationCodeInput) error {
	ctx, span := s.startSpan(ctx, "ConsumeVerificationCode")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		slog.ErrorContext(ctx, "Validation failed", "event_id", in.EventID, "error", err)
		return nil
	}

	if in.Channel == entity.ChannelSMS {
		slog.WarnContext(ctx, "sms delivery is not configured, code dropped", "event_id", in.EventID, "user_id", in.UserID)
		return nil
	}
	if in.Email == "" {
		slog.ErrorContext(ctx, "email channel without address, code dropped", "event_id", in.EventID, "user_id", in.UserID)
		return nil
	}

	trigger := entity.TriggerKeyEmailVerifyCode
	if in.ForMFA {
		trigger = entity.TriggerKeyMFACode
	}

	data := s.baseEmailTemplateData()
	data["full_name"] = in.FullName
	data["code"] = in.Code
	data["expires_at"] = in.ExpiresAt.UTC().Format(time.RFC1123)

	return s.sendEmailNotification(ctx, emailNotificationInput{
		EventID:      in.EventID,
		Email:        in.Email,
		TriggerKey:   trigger,
		TemplateData: data,
	})
}

type ConsumeVerificationLinkInput struct {
	EventID   string `validate:"required"`
	UserID    string `validate:"required"`
	ClientID  string
	Email     string `validate:"required,email"`
	FullName  string
	Token     string `validate:"required"`
	ExpiresAt time.Time
}

func (s *Usecase) ConsumeVerificationLink(ctx context.Context, in ConsumeVerificationLinkInput) error {
	ctx, span := s.startSpan(ctx, "ConsumeVerificationLink")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		slog.ErrorContext(ctx, "Validation failed", "event_id", in.EventID, "error", err)
		return nil
	}

	q := url.Values{"token": {in.Token}}
	if in.ClientID != "" {
		q.Set("client_id", in.ClientID)
	}

	data := s.baseEmailTemplateData()
	data["full_name"] = in.FullName
	data["verify_url"] = s.webURL("/verify-email?" + q.Encode())
	data["expires_at"] = in.ExpiresAt.UTC().Format(time.RFC1123)

	return s.sendEmailNotification(ctx, emailNotificationInput{
		EventID:      in.EventID,
		Email:        in.Email,
		TriggerKey:   entity.TriggerKeyEmailVerifyLink,
		TemplateData: data,
	})
}

type ConsumePasswordResetInput struct {
	EventID   string `validate:"required"`
	UserID    string `validate:"required"`
	Email     string `validate:"required,email"`
	FullName  string
	Token     string `validate:"required"`
	ExpiresAt time.Time
}

func (s *Usecase) ConsumePasswordReset(ctx context.Context, in ConsumePasswordResetInput) error {
	ctx, span := s.startSpan(ctx, "ConsumePasswordReset")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		slog.ErrorContext(ctx, "Validation failed", "event_id", in.EventID, "error", err)
		return nil
	}

	data := s.baseEmailTemplateData()
	data["full_name"] = in.FullName
	data["reset_url"] = s.webURL("/reset-password?token=" + url.QueryEscape(in.Token))
	data["expires_at"] = in.ExpiresAt.UTC().Format(time.RFC1123)

	return s.sendEmailNotification(ctx, emailNotificationInput{
		EventID:      in.EventID,
		Email:        in.Email,
		TriggerKey:   entity.TriggerKeyPasswordReset,
		TemplateData: data,
	})
}
