package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/harvestlink-backend/pkg/enums"
)

// Review is a buyer's rating of a seller. OrderID is nil for product-only reviews.
type Review struct {
	ID         uuid.UUID              `gorm:"column:id;type:uuid;primaryKey"`
	BuyerID    uuid.UUID              `gorm:"column:buyer_id;type:uuid;not null;uniqueIndex:ux_reviews_buyer_order"`
	SellerID   uuid.UUID              `gorm:"column:seller_id;type:uuid;not null"`
	OrderID    *uuid.UUID             `gorm:"column:order_id;type:uuid;uniqueIndex:ux_reviews_buyer_order"`
	ProductID  uuid.UUID              `gorm:"column:product_id;type:uuid;not null"`
	Rating     int                    `gorm:"column:rating;not null"`
	Title      *string                `gorm:"column:title"`
	Comment    string                 `gorm:"column:comment;not null;default:''"`
	Experience enums.ReviewExperience `gorm:"column:experience;type:review_experience;not null"`
	IsVisible  bool                   `gorm:"column:is_visible;not null"`
	CreatedAt  time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}

func (Review) TableName() string { return "reviews" }
