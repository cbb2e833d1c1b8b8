// Package alerts detects actionable inventory and order conditions and builds
// the notifications describing them.
package alerts

import (
	"context"
	"fmt"

	"github.com/angelmondragon/stockwatch-backend/internal/notifications"
	"github.com/angelmondragon/stockwatch-backend/pkg/db/models"
	"github.com/angelmondragon/stockwatch-backend/pkg/enums"
)

// ProductReader is the product query the low stock detector depends on.
type ProductReader interface {
	FindAtOrBelowReorderPoint(ctx context.Context) ([]models.Product, error)
}

// LowStockDetector finds products that are running low but not yet out of stock.
type LowStockDetector struct {
	products ProductReader
}

func NewLowStockDetector(products ProductReader) (*LowStockDetector, error) {
	if products == nil {
		return nil, fmt.Errorf("product reader required")
	}
	return &LowStockDetector{products: products}, nil
}

// Detect returns products with 0 < stock level <= reorder point. Out of stock
// products are excluded, so a product with reorder point 0 never qualifies.
func (d *LowStockDetector) Detect(ctx context.Context) ([]models.Product, error) {
	candidates, err := d.products.FindAtOrBelowReorderPoint(ctx)
	if err != nil {
		return nil, err
	}
	hits := make([]models.Product, 0, len(candidates))
	for _, product := range candidates {
		if IsLowStock(product) {
			hits = append(hits, product)
		}
	}
	return hits, nil
}

// IsLowStock reports whether product qualifies for a low stock alert.
func IsLowStock(product models.Product) bool {
	return !product.OutOfStock() && product.NeedsReorder()
}

// LowStockAlert builds the notification for a low stock product.
func LowStockAlert(product models.Product) notifications.Alert {
	id := product.ID
	return notifications.Alert{
		Type:  enums.NotificationTypeLowStock,
		Title: fmt.Sprintf("Low stock: %s", product.Name),
		Message: fmt.Sprintf("%s (SKU %s) is low on stock: %d left, reorder point is %d.",
			product.Name, product.SKU, product.StockLevel, product.ReorderPoint),
		ProductID: &id,
	}
}
