package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/harvestlink-backend/pkg/enums"
)

// Notification stores in-app notification payloads scoped to a user.
type Notification struct {
	ID        uuid.UUID              `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	EventID   *uuid.UUID             `gorm:"column:event_id;type:uuid;uniqueIndex" json:"event_id,omitempty"`
	UserID    uuid.UUID              `gorm:"column:user_id;type:uuid;not null" json:"user_id"`
	Role      enums.UserRole         `gorm:"column:role;not null" json:"role"`
	Type      enums.NotificationType `gorm:"column:type;type:notification_type;not null" json:"type"`
	Title     string                 `gorm:"column:title;not null" json:"title"`
	Message   string                 `gorm:"column:message;not null" json:"message"`
	Data      map[string]any         `gorm:"column:data;type:jsonb;serializer:json" json:"data,omitempty"`
	ReadAt    *time.Time             `gorm:"column:read_at" json:"read_at,omitempty"`
	CreatedAt time.Time              `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (Notification) TableName() string { return "notifications" }
