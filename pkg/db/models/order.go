package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/harvestlink-backend/pkg/enums"
)

// Order is one buyer purchase attempt. Request, payment and delivery progress
// are tracked on three independent status columns.
type Order struct {
	ID              uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	ReferenceNo     string               `gorm:"column:reference_no;not null;uniqueIndex"`
	BuyerID         uuid.UUID            `gorm:"column:buyer_id;type:uuid;not null"`
	SellerID        uuid.UUID            `gorm:"column:seller_id;type:uuid;not null"`
	ProductID       uuid.UUID            `gorm:"column:product_id;type:uuid;not null"`
	ProductName     string               `gorm:"column:product_name;not null"`
	ProductImageURL *string              `gorm:"column:product_image_url"`
	Unit            string               `gorm:"column:unit;not null"`
	UnitPriceCents  int64                `gorm:"column:unit_price_cents;not null"`
	Quantity        int                  `gorm:"column:quantity;not null"`
	TotalPriceCents int64                `gorm:"column:total_price_cents;not null"`
	DeliveryDate    time.Time            `gorm:"column:delivery_date;type:date;not null"`
	RequestStatus   enums.RequestStatus  `gorm:"column:request_status;type:request_status;not null;default:'pending'"`
	PaidStatus      enums.PaidStatus     `gorm:"column:paid_status;type:paid_status;not null;default:'Pending'"`
	DeliveryStatus  enums.DeliveryStatus `gorm:"column:delivery_status;type:delivery_status;not null;default:'Pending'"`
	CanReview       bool                 `gorm:"column:can_review;not null;default:false"`
	DeliveredAt     *time.Time           `gorm:"column:delivered_at"`
	RequestID       *uuid.UUID           `gorm:"column:request_id;type:uuid"`
	Version         int                  `gorm:"column:version;not null;default:1"`
	CreatedAt       time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

func (Order) TableName() string { return "orders" }
