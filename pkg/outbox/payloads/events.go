package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/harvestlink-backend/pkg/enums"
)

// OrderStateEvent carries the order status triple after a lifecycle transition.
// It backs order_created, order_canceled, order_deleted and order_delivered.
type OrderStateEvent struct {
	OrderID         uuid.UUID            `json:"order_id"`
	ReferenceNo     string               `json:"reference_no"`
	BuyerID         uuid.UUID            `json:"buyer_id"`
	SellerID        uuid.UUID            `json:"seller_id"`
	RequestStatus   enums.RequestStatus  `json:"request_status"`
	PaidStatus      enums.PaidStatus     `json:"paid_status"`
	DeliveryStatus  enums.DeliveryStatus `json:"delivery_status"`
	TotalPriceCents int64                `json:"total_price_cents"`
	DeliveredAt     *time.Time           `json:"delivered_at,omitempty"`
}

// RequestDecidedEvent is emitted when a seller accepts or rejects a request.
// OrderID is nil when the order could not be resolved.
type RequestDecidedEvent struct {
	RequestID uuid.UUID           `json:"request_id"`
	OrderID   *uuid.UUID          `json:"order_id,omitempty"`
	SellerID  uuid.UUID           `json:"seller_id"`
	BuyerID   uuid.UUID           `json:"buyer_id"`
	Decision  enums.RequestStatus `json:"decision"`
	DecidedAt time.Time           `json:"decided_at"`
}

// PaymentStatusEvent backs order_paid and payment_rejected.
type PaymentStatusEvent struct {
	OrderID     uuid.UUID        `json:"order_id"`
	ReferenceNo string           `json:"reference_no"`
	BuyerID     uuid.UUID        `json:"buyer_id"`
	SellerID    uuid.UUID        `json:"seller_id"`
	AmountCents int64            `json:"amount_cents"`
	PaidStatus  enums.PaidStatus `json:"paid_status"`
	Reason      string           `json:"reason,omitempty"`
}

// ReviewEvent backs review_submitted, review_updated and review_deleted.
type ReviewEvent struct {
	ReviewID      uuid.UUID  `json:"review_id"`
	OrderID       *uuid.UUID `json:"order_id,omitempty"`
	BuyerID       uuid.UUID  `json:"buyer_id"`
	SellerID      uuid.UUID  `json:"seller_id"`
	Rating        int        `json:"rating"`
	AverageRating string     `json:"average_rating"`
	ReviewCount   int        `json:"review_count"`
}

// NotificationRequestedEvent asks the notification worker to store an in-app
// notification for one user.
type NotificationRequestedEvent struct {
	UserID  uuid.UUID              `json:"user_id"`
	Role    enums.UserRole         `json:"role"`
	Type    enums.NotificationType `json:"type"`
	Title   string                 `json:"title"`
	Message string                 `json:"message"`
	Data    map[string]any         `json:"data,omitempty"`
}
