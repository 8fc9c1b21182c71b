package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/harvestlink-backend/pkg/db/models"
	"github.com/angelmondragon/harvestlink-backend/pkg/enums"
	"github.com/angelmondragon/harvestlink-backend/pkg/types"
)

// CreateInput carries a buyer's order request.
type CreateInput struct {
	BuyerID      uuid.UUID
	ProductID    uuid.UUID
	Quantity     int
	DeliveryDate types.Date
	// TotalPrice is the client-computed total, checked against the server
	// total when present.
	TotalPrice *decimal.Decimal
}

// OrderView is the API representation of an order.
type OrderView struct {
	ID              uuid.UUID            `json:"id"`
	ReferenceNo     string               `json:"reference_no"`
	BuyerID         uuid.UUID            `json:"buyer_id"`
	SellerID        uuid.UUID            `json:"seller_id"`
	ProductID       uuid.UUID            `json:"product_id"`
	ProductName     string               `json:"product_name"`
	ProductImageURL *string              `json:"product_image_url,omitempty"`
	Unit            string               `json:"unit"`
	UnitPrice       decimal.Decimal      `json:"unit_price"`
	Quantity        int                  `json:"quantity"`
	TotalPrice      decimal.Decimal      `json:"total_price"`
	DeliveryDate    types.Date           `json:"delivery_date"`
	RequestID       *uuid.UUID           `json:"request_id,omitempty"`
	RequestStatus   enums.RequestStatus  `json:"request_status"`
	PaidStatus      enums.PaidStatus     `json:"paid_status"`
	DeliveryStatus  enums.DeliveryStatus `json:"delivery_status"`
	CanReview       bool                 `json:"can_review"`
	DeliveredAt     *time.Time           `json:"delivered_at,omitempty"`
	CreatedAt       time.Time            `json:"created_at"`
	UpdatedAt       time.Time            `json:"updated_at"`
}

// NewOrderView maps the persisted order into its API shape.
func NewOrderView(o *models.Order) OrderView {
	return OrderView{
		ID:              o.ID,
		ReferenceNo:     o.ReferenceNo,
		BuyerID:         o.BuyerID,
		SellerID:        o.SellerID,
		ProductID:       o.ProductID,
		ProductName:     o.ProductName,
		ProductImageURL: o.ProductImageURL,
		Unit:            o.Unit,
		UnitPrice:       types.DecimalFromCents(o.UnitPriceCents),
		Quantity:        o.Quantity,
		TotalPrice:      types.DecimalFromCents(o.TotalPriceCents),
		DeliveryDate:    types.NewDate(o.DeliveryDate),
		RequestID:       o.RequestID,
		RequestStatus:   o.RequestStatus,
		PaidStatus:      o.PaidStatus,
		DeliveryStatus:  o.DeliveryStatus,
		CanReview:       o.CanReview,
		DeliveredAt:     o.DeliveredAt,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
}

// RequestView is the seller-facing representation of a purchase request.
type RequestView struct {
	ID        uuid.UUID           `json:"id"`
	OrderID   uuid.UUID           `json:"order_id"`
	SellerID  uuid.UUID           `json:"seller_id"`
	BuyerID   uuid.UUID           `json:"buyer_id"`
	ProductID uuid.UUID           `json:"product_id"`
	Status    enums.RequestStatus `json:"status"`
	DecidedAt *time.Time          `json:"decided_at,omitempty"`
	CreatedAt time.Time           `json:"created_at"`
}

// NewRequestView maps a purchase request into its API shape.
func NewRequestView(r *models.PurchaseRequest) RequestView {
	return RequestView{
		ID:        r.ID,
		OrderID:   r.OrderID,
		SellerID:  r.SellerID,
		BuyerID:   r.BuyerID,
		ProductID: r.ProductID,
		Status:    r.Status,
		DecidedAt: r.DecidedAt,
		CreatedAt: r.CreatedAt,
	}
}
