package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/stockwatch-backend/pkg/enums"
)

// Order is a purchase order awaiting delivery of a product.
type Order struct {
	ID            uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID     uuid.UUID         `gorm:"column:product_id;type:uuid;not null"`
	Quantity      int               `gorm:"column:quantity;not null;default:1"`
	Status        enums.OrderStatus `gorm:"column:status;type:order_status;not null;default:'pending'"`
	ExpectedDate  time.Time         `gorm:"column:expected_date;type:timestamptz;not null"`
	DeliveredDate *time.Time        `gorm:"column:delivered_date;type:timestamptz"`
	CreatedAt     time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time         `gorm:"column:updated_at;autoUpdateTime"`

	// ProductName is populated by reads that join products.
	ProductName string `gorm:"column:product_name;->;-:migration"`
}

// IsOverdueAt reports whether an undelivered order is strictly past its
// expected date. Orders already flagged overdue still qualify.
func (o Order) IsOverdueAt(now time.Time) bool {
	if !o.Status.IsOpen() && o.Status != enums.OrderStatusOverdue {
		return false
	}
	return o.ExpectedDate.Before(now)
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}
