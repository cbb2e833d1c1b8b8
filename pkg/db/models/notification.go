package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/stockwatch-backend/pkg/enums"
)

// Notification is an in-app alert. CreatedAt doubles as the dedup timestamp.
type Notification struct {
	ID        uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Type      enums.NotificationType `gorm:"column:type;type:notification_type;not null"`
	Title     string                 `gorm:"column:title;type:text;not null"`
	Message   string                 `gorm:"column:message;type:text;not null"`
	IsRead    bool                   `gorm:"column:is_read;not null;default:false"`
	ProductID *uuid.UUID             `gorm:"column:product_id;type:uuid"`
	OrderID   *uuid.UUID             `gorm:"column:order_id;type:uuid"`
	CreatedAt time.Time              `gorm:"column:created_at;type:timestamptz;autoCreateTime"`
}

func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}
