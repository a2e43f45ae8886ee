package inbound

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/shandysiswandi/credbite/internal/notification/entity"
	"github.com/shandysiswandi/credbite/internal/notification/usecase"
	"github.com/shandysiswandi/credbite/internal/pkg/instrument"
	"github.com/shandysiswandi/credbite/internal/pkg/messaging"
	"github.com/shandysiswandi/credbite/internal/pkg/uid"
	"github.com/shandysiswandi/credbite/internal/shared/event"
)

const keyOfCorrelationID string = "cID"

type MQHandler struct {
	uc   uc
	uuid uid.StringID
	ins  instrument.Instrumentation
}

func (h *MQHandler) ensureCorrelationID(ctx context.Context, headers []messaging.Header) context.Context {
	for i := range headers {
		if headers[i].Key == keyOfCorrelationID {
			return instrument.SetCorrelationID(ctx, string(headers[i].Value))
		}
	}
	return instrument.SetCorrelationID(ctx, h.uuid.Generate())
}

// decode unmarshals the body into v. A malformed body is logged and acked
// since redelivering it can never succeed.
func decode(ctx context.Context, name string, body []byte, v any) bool {
	if err := json.Unmarshal(body, v); err != nil {
		slog.ErrorContext(ctx, "failed to parse message body", "consumer", name, "error", err)
		return false
	}
	return true
}

func (h *MQHandler) VerificationCodeNotification(ctx context.Context, msg messaging.Message) error {
	ctx = h.ensureCorrelationID(ctx, msg.Headers())

	ctx, span := h.ins.Tracer("notification.inbound.mq").Start(ctx, "VerificationCodeNotification")
	defer span.End()

	var payload event.VerificationCodeIssuedMessage
	if !decode(ctx, "verification code", msg.Body(), &payload) {
		return nil
	}
	slog.InfoContext(ctx, "consume: verification code notification", "event_id", payload.EventID, "channel", payload.Channel)

	if err := h.uc.ConsumeVerificationCode(ctx, usecase.ConsumeVerificationCodeInput{
		EventID:   payload.EventID,
		UserID:    payload.UserID,
		Email:     payload.Email,
		Phone:     payload.Phone,
		FullName:  payload.FullName,
		Channel:   entity.ChannelFromString(string(payload.Channel)),
		ForMFA:    payload.Purpose == event.PurposeMFA,
		Code:      payload.Code,
		ExpiresAt: payload.ExpiresAt,
	}); err != nil {
		slog.ErrorContext(ctx, "failed to consume verification code", "event_id", payload.EventID, "error", err)
		return err
	}

	return nil
}

func (h *MQHandler) VerificationLinkNotification(ctx context.Context, msg messaging.Message) error {
	ctx = h.ensureCorrelationID(ctx, msg.Headers())

	ctx, span := h.ins.Tracer("notification.inbound.mq").Start(ctx, "VerificationLinkNotification")
	defer span.End()

	var payload event.VerificationLinkIssuedMessage
	if !decode(ctx, "verification link", msg.Body(), &payload) {
		return nil
	}
	slog.InfoContext(ctx, "consume: verification link notification", "event_id", payload.EventID)

	if err := h.uc.ConsumeVerificationLink(ctx, usecase.ConsumeVerificationLinkInput{
		EventID:   payload.EventID,
		UserID:    payload.UserID,
		ClientID:  payload.ClientID,
		Email:     payload.Email,
		FullName:  payload.FullName,
		Token:     payload.Token,
		ExpiresAt: payload.ExpiresAt,
	}); err != nil {
		slog.ErrorContext(ctx, "failed to consume verification link", "event_id", payload.EventID, "error", err)
		return err
	}

	return nil
}

func (h *MQHandler) PasswordResetNotification(ctx context.Context, msg messaging.Message) error {
	ctx = h.ensureCorrelationID(ctx, msg.Headers())

	ctx, span := h.ins.Tracer("notification.inbound.mq").Start(ctx, "PasswordResetNotification")
	defer span.End()

	var payload event.PasswordResetRequestedMessage
	if !decode(ctx, "password reset", msg.Body(), &payload) {
		return nil
	}
	slog.InfoContext(ctx, "consume: password reset notification", "event_id", payload.EventID)

	if err := h.uc.ConsumePasswordReset(ctx, usecase.ConsumePasswordResetInput{
		EventID:   payload.EventID,
		UserID:    payload.UserID,
		Email:     payload.Email,
		FullName:  payload.FullName,
		Token:     payload.Token,
		ExpiresAt: payload.ExpiresAt,
	}); err != nil {
		slog.ErrorContext(ctx, "failed to consume password reset", "event_id", payload.EventID, "error", err)
		return err
	}

	return nil
}

func (h *MQHandler) AccessCodeNotification(ctx context.Context, msg messaging.Message) error {
	ctx = h.ensureCorrelationID(ctx, msg.Headers())

	ctx, span := h.ins.Tracer("notification.inbound.mq").Start(ctx, "AccessCodeNotification")
	defer span.End()

	var payload event.AccessCodeIssuedMessage
	if !decode(ctx, "access code", msg.Body(), &payload) {
		return nil
	}
	slog.InfoContext(ctx, "consume: access code notification", "event_id", payload.EventID, "kind", payload.Kind)

	if err := h.uc.ConsumeAccessCode(ctx, usecase.ConsumeAccessCodeInput{
		EventID:        payload.EventID,
		Share:          payload.Kind == event.AccessKindShare,
		Code:           payload.Code,
		Resource:       payload.Resource,
		ResourceID:     payload.ResourceID,
		Write:          payload.Write,
		RecipientName:  payload.RecipientName,
		RecipientEmail: payload.RecipientEmail,
		OwnerEmail:     payload.OwnerEmail,
		RedirectURL:    payload.RedirectURL,
		ExpiresAt:      payload.ExpiresAt,
	}); err != nil {
		slog.ErrorContext(ctx, "failed to consume access code", "event_id", payload.EventID, "error", err)
		return err
	}

	return nil
}
