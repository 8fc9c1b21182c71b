package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/harvestlink-backend/pkg/enums"
)

// PurchaseRequest is the seller-facing approval ticket gating an order.
type PurchaseRequest struct {
	ID        uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	OrderID   uuid.UUID           `gorm:"column:order_id;type:uuid;not null;uniqueIndex"`
	SellerID  uuid.UUID           `gorm:"column:seller_id;type:uuid;not null"`
	BuyerID   uuid.UUID           `gorm:"column:buyer_id;type:uuid;not null"`
	ProductID uuid.UUID           `gorm:"column:product_id;type:uuid;not null"`
	Status    enums.RequestStatus `gorm:"column:status;type:request_status;not null;default:'pending'"`
	DecidedAt *time.Time          `gorm:"column:decided_at"`
	Version   int                 `gorm:"column:version;not null;default:1"`
	CreatedAt time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (PurchaseRequest) TableName() string { return "purchase_requests" }
