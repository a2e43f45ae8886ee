package mq

import (
	"context"
	"encoding/json"
	"time"

	"github.com/sethvargo/go-retry"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/shandysiswandi/credbite/internal/identity/entity"
	"github.com/shandysiswandi/credbite/internal/identity/usecase"
	"github.com/shandysiswandi/credbite/internal/pkg/instrument"
	"github.com/shandysiswandi/credbite/internal/pkg/messaging"
	"github.com/shandysiswandi/credbite/internal/shared/event"
)

const keyOfCorrelationID string = "cID"

type Messaging struct {
	client messaging.Publisher
	ins    instrument.Instrumentation
}

func NewMessaging(client messaging.Publisher, ins instrument.Instrumentation) *Messaging {
	return &Messaging{client: client, ins: ins}
}

func (m *Messaging) PublishVerificationCodeIssued(ctx context.Context, msg usecase.VerificationCodeIssuedEvent) error {
	ctx, span := m.ins.Tracer("identity.outbound.mq").Start(ctx, "PublishVerificationCodeIssued")
	defer span.End()

	channel := event.ChannelEmail
	if msg.Channel == entity.MFATypeSMS {
		channel = event.ChannelSMS
	}
	purpose := event.PurposeEmailVerification
	if msg.ForMFA {
		purpose = event.PurposeMFA
	}

	return m.publish(ctx, span, event.VerificationCodeIssuedDestination, msg.UserID, event.VerificationCodeIssuedMessage{
		EventID:   msg.EventID,
		UserID:    msg.UserID,
		Email:     msg.Email,
		Phone:     msg.Phone,
		FullName:  msg.FullName,
		Channel:   channel,
		Purpose:   purpose,
		Code:      msg.Code,
		ExpiresAt: msg.ExpiresAt,
	})
}

func (m *Messaging) PublishVerificationLinkIssued(ctx context.Context, msg usecase.VerificationLinkIssuedEvent) error {
	ctx, span := m.ins.Tracer("identity.outbound.mq").Start(ctx, "PublishVerificationLinkIssued")
	defer span.End()

	return m.publish(ctx, span, event.VerificationLinkIssuedDestination, msg.UserID, event.VerificationLinkIssuedMessage{
		EventID:   msg.EventID,
		UserID:    msg.UserID,
		ClientID:  msg.ClientID,
		Email:     msg.Email,
		FullName:  msg.FullName,
		Token:     msg.Token,
		ExpiresAt: msg.ExpiresAt,
	})
}

func (m *Messaging) PublishPasswordResetRequested(ctx context.Context, msg usecase.PasswordResetRequestedEvent) error {
	ctx, span := m.ins.Tracer("identity.outbound.mq").Start(ctx, "PublishPasswordResetRequested")
	defer span.End()

	return m.publish(ctx, span, event.PasswordResetRequestedDestination, msg.UserID, event.PasswordResetRequestedMessage{
		EventID:   msg.EventID,
		UserID:    msg.UserID,
		Email:     msg.Email,
		FullName:  msg.FullName,
		Token:     msg.Token,
		ExpiresAt: msg.ExpiresAt,
	})
}

// publish keys messages by user so brokers that partition keep one user's
// events in order. Transient broker errors are retried a few times.
func (m *Messaging) publish(ctx context.Context, span trace.Span, destination, key string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	out := messaging.OutgoingMessage{
		Body:    body,
		Key:     []byte(key),
		Headers: []messaging.Header{{Key: keyOfCorrelationID, Value: []byte(instrument.GetCorrelationID(ctx))}},
	}

	backoff := retry.WithMaxRetries(2, retry.NewExponential(50*time.Millisecond))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		if _, err := m.client.Publish(ctx, destination, out); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	return nil
}
