package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Seller holds the review aggregates this service maintains. Profile fields
// are owned by the account service.
type Seller struct {
	ID            uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	DisplayName   string          `gorm:"column:display_name;not null"`
	AverageRating decimal.Decimal `gorm:"column:average_rating;type:numeric(3,2);not null;default:0"`
	ReviewCount   int             `gorm:"column:review_count;not null;default:0"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (Seller) TableName() string { return "sellers" }
