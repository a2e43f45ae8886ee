package inbound

import (
	"context"
	"log/slog"
	"slices"

	"github.com/shandysiswandi/credbite/internal/pkg/config"
	"github.com/shandysiswandi/credbite/internal/pkg/goroutine"
	"github.com/shandysiswandi/credbite/internal/pkg/instrument"
	"github.com/shandysiswandi/credbite/internal/pkg/messaging"
	"github.com/shandysiswandi/credbite/internal/pkg/uid"
	"github.com/shandysiswandi/credbite/internal/shared/event"
)

type consumer struct {
	name    string
	topic   string // destination where publisher sent message
	handler messaging.Handler
}

func consumers(h *MQHandler) []consumer {
	return []consumer{
		{
			name:    event.VerificationCodeIssuedConsumerNotification,
			topic:   event.VerificationCodeIssuedDestination,
			handler: h.VerificationCodeNotification,
		},
		{
			name:    event.VerificationLinkIssuedConsumerNotification,
			topic:   event.VerificationLinkIssuedDestination,
			handler: h.VerificationLinkNotification,
		},
		{
			name:    event.PasswordResetRequestedConsumerNotification,
			topic:   event.PasswordResetRequestedDestination,
			handler: h.PasswordResetNotification,
		},
		{
			name:    event.AccessCodeIssuedConsumerNotification,
			topic:   event.AccessCodeIssuedDestination,
			handler: h.AccessCodeNotification,
		},
	}
}

// RegisterMQConsumer starts one consumer per enabled name in
// modules.notification.consumer_names. An empty list enables all of them.
// The consumer name doubles as the nsq channel, nats queue group, kafka
// group and pubsub subscription.
func RegisterMQConsumer(
	ctx context.Context,
	cfg config.Config,
	routine *goroutine.Manager,
	messenger messaging.Consumer,
	uuid uid.StringID,
	uc uc,
	ins instrument.Instrumentation,
) {
	mqHandler := &MQHandler{uc: uc, uuid: uuid, ins: ins}

	enableConsumerNames := cfg.GetArray("modules.notification.consumer_names")
	concurrency := cfg.GetInt("modules.notification.consumer_concurrency")
	if concurrency <= 0 {
		concurrency = 10
	}

	for _, c := range consumers(mqHandler) {
		if len(enableConsumerNames) > 0 && !slices.Contains(enableConsumerNames, c.name) {
			continue
		}

		routine.Go(ctx, func(pCtx context.Context) error {
			slog.InfoContext(ctx, "Running job for handling consumer", "consumer", c.name)
			return messenger.Consume(pCtx,
				c.topic,
				c.handler,
				messaging.WithChannel(c.name),
				messaging.WithQueueGroup(c.name),
				messaging.WithGroup(c.name),
				messaging.WithSubscription(c.name),
				messaging.WithAutoAck(true),
				messaging.WithConcurrency(concurrency),
				messaging.WithMaxInFlight(concurrency),
			)
		})
	}
}
