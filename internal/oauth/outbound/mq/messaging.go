package mq

import (
	"context"
	"encoding/json"
	"time"

	"github.com/sethvargo/go-retry"
	"go.opentelemetry.io/otel/codes"

	"github.com/shandysiswandi/credbite/internal/oauth/usecase"
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

// PublishAccessCodeIssued keys the message by resource so notifications for
// one resource stay ordered.
func (m *Messaging) PublishAccessCodeIssued(ctx context.Context, msg usecase.AccessCodeIssuedEvent) error {
	ctx, span := m.ins.Tracer("oauth.outbound.mq").Start(ctx, "PublishAccessCodeIssued")
	defer span.End()

	body, err := json.Marshal(event.AccessCodeIssuedMessage{
		EventID:        msg.EventID,
		Kind:           event.AccessKind(msg.Kind),
		Code:           msg.Code,
		Resource:       msg.Resource,
		ResourceID:     msg.ResourceID,
		Write:          msg.Write,
		RecipientName:  msg.RecipientName,
		RecipientEmail: msg.RecipientEmail,
		OwnerEmail:     msg.OwnerEmail,
		RedirectURL:    msg.RedirectURL,
		ExpiresAt:      msg.ExpiresAt,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	out := messaging.OutgoingMessage{
		Body:    body,
		Key:     []byte(msg.ResourceID),
		Headers: []messaging.Header{{Key: keyOfCorrelationID, Value: []byte(instrument.GetCorrelationID(ctx))}},
	}

	backoff := retry.WithMaxRetries(2, retry.NewExponential(50*time.Millisecond))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		if _, err := m.client.Publish(ctx, event.AccessCodeIssuedDestination, out); err != nil {
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
