package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/angelmondragon/harvestlink-backend/pkg/db/models"
	"github.com/angelmondragon/harvestlink-backend/pkg/enums"
	"github.com/angelmondragon/harvestlink-backend/pkg/logger"
	"github.com/angelmondragon/harvestlink-backend/pkg/outbox"
	"github.com/angelmondragon/harvestlink-backend/pkg/outbox/idempotency"
	"github.com/angelmondragon/harvestlink-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/harvestlink-backend/pkg/outbox/registry"
)

type notificationWriter interface {
	Create(ctx context.Context, notification *models.Notification) (bool, error)
}

type receiver interface {
	Receive(ctx context.Context, f func(context.Context, *pubsub.Message)) error
}

// Consumer stores in-app notifications from notification_requested events.
type Consumer struct {
	repo         notificationWriter
	subscription receiver
	guard        *idempotency.Guard
	decoders     *registry.DecoderRegistry
	logg         *logger.Logger
}

// NewConsumer builds the notification worker consumer.
func NewConsumer(repo notificationWriter, subscription receiver, guard *idempotency.Guard, logg *logger.Logger) (*Consumer, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("notification subscription required")
	}
	if guard == nil {
		return nil, fmt.Errorf("idempotency guard required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	decoders := registry.NewDecoderRegistry()
	decoders.Register(enums.EventNotificationRequested, 1, registry.JSONDecoder[payloads.NotificationRequestedEvent]())
	return &Consumer{
		repo:         repo,
		subscription: subscription,
		guard:        guard,
		decoders:     decoders,
		logg:         logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		if c.process(ctx, msg).nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	eventType := msg.Attributes["event_type"]
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": eventType,
	})

	if eventType != string(enums.EventNotificationRequested) {
		c.logg.Info(logCtx, "skipping unrelated event")
		return processResult{ack: true}
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return processResult{ack: true}
	}
	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		return processResult{ack: true}
	}
	logCtx = c.logg.WithField(logCtx, "event_id", eventID.String())

	decoded, err := c.decoders.Decode(enums.EventNotificationRequested, envelope.Version, envelope.Data)
	if err != nil {
		c.logg.Error(logCtx, "failed to decode payload", err)
		return processResult{ack: true}
	}
	payload := decoded.(*payloads.NotificationRequestedEvent)
	if payload.UserID == uuid.Nil || !payload.Type.IsValid() || !payload.Role.IsValid() {
		c.logg.Warn(logCtx, "notification payload incomplete")
		return processResult{ack: true}
	}

	seen, err := c.guard.Seen(ctx, idempotency.ConsumerNotificationWorker, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if seen {
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	}

	created, err := c.repo.Create(ctx, toModel(eventID, payload))
	if err != nil {
		c.logg.Error(logCtx, "failed to store notification", err)
		if relErr := c.guard.Release(ctx, idempotency.ConsumerNotificationWorker, eventID); relErr != nil {
			c.logg.Error(logCtx, "failed to release idempotency claim", errors.Join(err, relErr))
		}
		return processResult{nack: true}
	}
	if created {
		c.logg.Info(logCtx, "notification stored")
	}
	return processResult{ack: true}
}

func toModel(eventID uuid.UUID, payload *payloads.NotificationRequestedEvent) *models.Notification {
	id := eventID
	return &models.Notification{
		ID:      uuid.New(),
		EventID: &id,
		UserID:  payload.UserID,
		Role:    payload.Role,
		Type:    payload.Type,
		Title:   payload.Title,
		Message: payload.Message,
		Data:    payload.Data,
	}
}
