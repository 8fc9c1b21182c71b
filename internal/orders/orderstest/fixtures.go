// Package orderstest seeds orders, products and sellers for service tests.
package orderstest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/harvestlink-backend/internal/notifications"
	"github.com/angelmondragon/harvestlink-backend/pkg/db/models"
	"github.com/angelmondragon/harvestlink-backend/pkg/enums"
)

// Now is the fixed clock used across fulfillment tests.
var Now = time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)

// Clock returns Now.
func Clock() time.Time { return Now }

// SeedSeller inserts a seller with empty rating aggregates.
func SeedSeller(t *testing.T, conn *gorm.DB) *models.Seller {
	t.Helper()
	seller := &models.Seller{ID: uuid.New(), DisplayName: "Green Acres"}
	require.NoError(t, conn.Create(seller).Error)
	return seller
}

// SeedProduct inserts an available, active product priced at 250 cents.
func SeedProduct(t *testing.T, conn *gorm.DB, sellerID uuid.UUID) *models.Product {
	t.Helper()
	p := &models.Product{
		ID:         uuid.New(),
		SellerID:   sellerID,
		Name:       "Tomatoes",
		Unit:       "kg",
		PriceCents: 250,
		Status:     enums.ProductStatusAvailable,
		IsActive:   true,
	}
	require.NoError(t, conn.Create(p).Error)
	return p
}

// OrderState is the status triple an aggregate is seeded with.
type OrderState struct {
	Request   enums.RequestStatus
	Paid      enums.PaidStatus
	Delivery  enums.DeliveryStatus
	CanReview bool
}

// Pending is the state of a freshly created order.
var Pending = OrderState{
	Request:  enums.RequestStatusPending,
	Paid:     enums.PaidStatusPending,
	Delivery: enums.DeliveryStatusPending,
}

// Delivered is a completed order awaiting review.
var Delivered = OrderState{
	Request:   enums.RequestStatusAccepted,
	Paid:      enums.PaidStatusPaid,
	Delivery:  enums.DeliveryStatusDelivered,
	CanReview: true,
}

// SeedOrder inserts an order for 4 units of p and its matching request.
func SeedOrder(t *testing.T, conn *gorm.DB, buyerID uuid.UUID, p *models.Product, state OrderState) (*models.Order, *models.PurchaseRequest) {
	t.Helper()
	orderID, requestID := uuid.New(), uuid.New()
	order := &models.Order{
		ID:              orderID,
		ReferenceNo:     "HL-20260310-" + orderID.String()[:8],
		BuyerID:         buyerID,
		SellerID:        p.SellerID,
		ProductID:       p.ID,
		ProductName:     p.Name,
		Unit:            p.Unit,
		UnitPriceCents:  p.PriceCents,
		Quantity:        4,
		TotalPriceCents: p.PriceCents * 4,
		DeliveryDate:    Now.AddDate(0, 0, 3),
		RequestStatus:   state.Request,
		PaidStatus:      state.Paid,
		DeliveryStatus:  state.Delivery,
		CanReview:       state.CanReview,
		RequestID:       &requestID,
		Version:         1,
	}
	if state.Delivery == enums.DeliveryStatusDelivered {
		delivered := Now.Add(-time.Hour)
		order.DeliveredAt = &delivered
	}
	request := &models.PurchaseRequest{
		ID:        requestID,
		OrderID:   orderID,
		SellerID:  p.SellerID,
		BuyerID:   buyerID,
		ProductID: p.ID,
		Status:    state.Request,
		Version:   1,
	}
	require.NoError(t, conn.Create(order).Error)
	require.NoError(t, conn.Create(request).Error)
	return order, request
}

// ReloadOrder reads the persisted order.
func ReloadOrder(t *testing.T, conn *gorm.DB, id uuid.UUID) models.Order {
	t.Helper()
	var o models.Order
	require.NoError(t, conn.Where("id = ?", id).First(&o).Error)
	return o
}

// ReloadRequest reads the persisted request.
func ReloadRequest(t *testing.T, conn *gorm.DB, id uuid.UUID) models.PurchaseRequest {
	t.Helper()
	var r models.PurchaseRequest
	require.NoError(t, conn.Where("id = ?", id).First(&r).Error)
	return r
}

// OutboxTypes lists the queued outbox event types in insertion order.
func OutboxTypes(t *testing.T, conn *gorm.DB) []enums.OutboxEventType {
	t.Helper()
	var rows []models.OutboxEvent
	require.NoError(t, conn.Order("created_at ASC").Find(&rows).Error)
	out := make([]enums.OutboxEventType, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.EventType)
	}
	return out
}

// Sink records every notification it receives.
type Sink struct {
	mu       sync.Mutex
	messages []notifications.Message
}

func (s *Sink) Notify(_ context.Context, msg notifications.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msg)
}

// Messages returns a copy of what was received.
func (s *Sink) Messages() []notifications.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]notifications.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Types returns the received notification types per recipient.
func (s *Sink) Types(userID uuid.UUID) []enums.NotificationType {
	var out []enums.NotificationType
	for _, msg := range s.Messages() {
		if msg.UserID == userID {
			out = append(out, msg.Type)
		}
	}
	return out
}
