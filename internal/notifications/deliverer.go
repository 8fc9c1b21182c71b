package notifications

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/angelmondragon/harvestlink-backend/pkg/enums"
	"github.com/angelmondragon/harvestlink-backend/pkg/outbox"
	"github.com/angelmondragon/harvestlink-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// OutboxDeliverer turns each message into a notification_requested outbox
// event. The outbox publisher ships it to the notification topic.
type OutboxDeliverer struct {
	tx     txRunner
	outbox outboxPublisher
}

func NewOutboxDeliverer(tx txRunner, publisher outboxPublisher) (*OutboxDeliverer, error) {
	if tx == nil {
		return nil, errors.New("transaction runner required")
	}
	if publisher == nil {
		return nil, errors.New("outbox publisher required")
	}
	return &OutboxDeliverer{tx: tx, outbox: publisher}, nil
}

func (d *OutboxDeliverer) Deliver(ctx context.Context, msg Message) error {
	if !msg.Type.IsValid() {
		return errors.New("unknown notification type " + string(msg.Type))
	}
	return d.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return d.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventNotificationRequested,
			AggregateType: enums.AggregateNotification,
			AggregateID:   msg.UserID,
			Data: payloads.NotificationRequestedEvent{
				UserID:  msg.UserID,
				Role:    msg.Role,
				Type:    msg.Type,
				Title:   msg.Title,
				Message: msg.Body,
				Data:    msg.Data,
			},
		})
	})
}
