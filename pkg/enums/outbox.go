package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateOrder        OutboxAggregateType = "order"
	AggregateRequest      OutboxAggregateType = "purchase_request"
	AggregateReview       OutboxAggregateType = "review"
	AggregateNotification OutboxAggregateType = "notification"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateOrder,
	AggregateRequest,
	AggregateReview,
	AggregateNotification,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type enum in Postgres.
type OutboxEventType string

const (
	EventOrderCreated          OutboxEventType = "order_created"
	EventOrderCanceled         OutboxEventType = "order_canceled"
	EventOrderDeleted          OutboxEventType = "order_deleted"
	EventOrderDelivered        OutboxEventType = "order_delivered"
	EventRequestDecided        OutboxEventType = "request_decided"
	EventOrderPaid             OutboxEventType = "order_paid"
	EventPaymentRejected       OutboxEventType = "payment_rejected"
	EventReviewSubmitted       OutboxEventType = "review_submitted"
	EventReviewUpdated         OutboxEventType = "review_updated"
	EventReviewDeleted         OutboxEventType = "review_deleted"
	EventNotificationRequested OutboxEventType = "notification_requested"
)

var validOutboxEventTypes = []OutboxEventType{
	EventOrderCreated,
	EventOrderCanceled,
	EventOrderDeleted,
	EventOrderDelivered,
	EventRequestDecided,
	EventOrderPaid,
	EventPaymentRejected,
	EventReviewSubmitted,
	EventReviewUpdated,
	EventReviewDeleted,
	EventNotificationRequested,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
