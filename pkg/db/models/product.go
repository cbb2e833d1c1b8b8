package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Product is the stocked item tracked against its reorder point.
type Product struct {
	ID           uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SKU          string    `gorm:"column:sku;not null"`
	Name         string    `gorm:"column:name;not null"`
	StockLevel   int       `gorm:"column:stock_level;not null;default:0"`
	ReorderPoint int       `gorm:"column:reorder_point;not null;default:0"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// NeedsReorder reports whether stock has fallen to or below the reorder point.
func (p Product) NeedsReorder() bool {
	return p.StockLevel <= p.ReorderPoint
}

// OutOfStock reports whether no units remain.
func (p Product) OutOfStock() bool {
	return p.StockLevel <= 0
}

func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
