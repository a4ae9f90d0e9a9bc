package service

import (
	"context"
	"encoding/json"

	"assessment-sync-be/internal/notifier"
	"assessment-sync-be/internal/pkg/logger"
	internalWS "assessment-sync-be/internal/websocket"
	"assessment-sync-be/pkg/events"
	"assessment-sync-be/pkg/integration"
	pktNats "assessment-sync-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill/message"
)

type IChangeFanoutService interface {
	Consume(ctx context.Context) error
}

// ChangeFanoutService is the single consumer of the in-process change topic.
// One consumer per fan-out cycle keeps per-row delivery in commit order; the
// websocket broadcast itself is non-blocking per session, and the slower
// outbound legs (NATS, webhook) run off the loop.
type ChangeFanoutService struct {
	subscriber message.Subscriber
	hub        *internalWS.Hub
	nats       *pktNats.Publisher
	webhook    *integration.WebhookPublisher
	logger     logger.ILogger
}

func NewChangeFanoutService(
	subscriber message.Subscriber,
	hub *internalWS.Hub,
	nats *pktNats.Publisher,
	webhook *integration.WebhookPublisher,
	log logger.ILogger,
) IChangeFanoutService {
	return &ChangeFanoutService{
		subscriber: subscriber,
		hub:        hub,
		nats:       nats,
		webhook:    webhook,
		logger:     log,
	}
}

func (s *ChangeFanoutService) Consume(ctx context.Context) error {
	messages, err := s.subscriber.Subscribe(ctx, notifier.TopicChanges)
	if err != nil {
		return err
	}

	for msg := range messages {
		var ev events.ChangeEvent
		if err := json.Unmarshal(msg.Payload, &ev); err != nil {
			s.logger.Warn("ChangeFanout", "Undecodable change message dropped", map[string]interface{}{"error": err.Error()})
			msg.Ack()
			continue
		}

		s.hub.BroadcastChange(ev)

		if s.nats != nil {
			if err := s.nats.Publish(ctx, ev); err != nil {
				s.logger.Warn("ChangeFanout", "NATS republish failed", map[string]interface{}{"error": err.Error()})
			}
		}

		if s.webhook != nil {
			// Webhook delivery blocks through its retry schedule; it must not
			// hold up the next notification.
			go s.webhook.Notify(ctx, ev)
		}

		msg.Ack()
	}
	return nil
}
