package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shandysiswandi/credbite/internal/notification/entity"
	"github.com/shandysiswandi/credbite/internal/pkg/idempotency"
	"github.com/shandysiswandi/credbite/internal/pkg/mail"
)

type emailNotificationInput struct {
	EventID      string
	Email        string
	TriggerKey   entity.TriggerKey
	TemplateData map[string]any
}

// sendEmailNotification renders and sends one e-mail per event id. A
// redelivered event is dropped; a failed send is returned so the broker can
// redeliver it.
func (s *Usecase) sendEmailNotification(ctx context.Context, in emailNotificationInput) error {
	tpl, ok := templates[in.TriggerKey]
	if !ok {
		slog.WarnContext(ctx, "notification template not found", "trigger_key", in.TriggerKey.String())
		return nil
	}

	subject, err := s.renderTemplate("subject", tpl.Subject, in.TemplateData)
	if err != nil {
		slog.ErrorContext(ctx, "failed to render email subject", "trigger_key", in.TriggerKey.String(), "error", err)
		return nil
	}
	body, err := s.renderTemplate("body", tpl.Body, in.TemplateData)
	if err != nil {
		slog.ErrorContext(ctx, "failed to render email body", "trigger_key", in.TriggerKey.String(), "error", err)
		return nil
	}

	err = s.guard.Exec(ctx, "notification:"+in.EventID, func(ctx context.Context) error {
		return s.repoMail.Send(ctx, mail.Message{
			To:       []string{in.Email},
			Subject:  subject,
			HTMLBody: body,
		})
	})
	if errors.Is(err, idempotency.ErrAlreadyCompleted) || errors.Is(err, idempotency.ErrAlreadyInProgress) {
		slog.InfoContext(ctx, "duplicate notification event dropped", "event_id", in.EventID, "trigger_key", in.TriggerKey.String())
		return nil
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to send notification email", "event_id", in.EventID, "trigger_key", in.TriggerKey.String(), "error", err)
		return fmt.Errorf("send %s email: %w", in.TriggerKey, err)
	}

	slog.InfoContext(ctx, "notification email sent", "event_id", in.EventID, "trigger_key", in.TriggerKey.String())
	return nil
}
