package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/harvestlink-backend/pkg/enums"
)

// Product is the catalog listing. Read-only from the fulfillment core.
type Product struct {
	ID         uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	SellerID   uuid.UUID           `gorm:"column:seller_id;type:uuid;not null"`
	Name       string              `gorm:"column:name;not null"`
	ImageURL   *string             `gorm:"column:image_url"`
	Unit       string              `gorm:"column:unit;not null"`
	PriceCents int64               `gorm:"column:price_cents;not null"`
	Status     enums.ProductStatus `gorm:"column:status;type:product_status;not null;default:'Available'"`
	IsActive   bool                `gorm:"column:is_active;not null"`
	CreatedAt  time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (Product) TableName() string { return "products" }
