package alerts

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/stockwatch-backend/internal/notifications"
	"github.com/angelmondragon/stockwatch-backend/pkg/db/models"
	"github.com/angelmondragon/stockwatch-backend/pkg/enums"
)

const expectedDateLayout = "2006-01-02"

// OrderReader is the order query the overdue detector depends on.
type OrderReader interface {
	FindByStatusesBefore(ctx context.Context, statuses []enums.OrderStatus, before time.Time) ([]models.Order, error)
}

// OverdueOrderDetector finds undelivered orders whose expected date has passed,
// including orders already flagged overdue so a missed alert is retried on the
// next scan and repeats are left to the dedup window.
type OverdueOrderDetector struct {
	orders OrderReader
	now    func() time.Time
}

// OverdueOrderDetectorParams configures an OverdueOrderDetector.
type OverdueOrderDetectorParams struct {
	Orders OrderReader
	Now    func() time.Time
}

func NewOverdueOrderDetector(params OverdueOrderDetectorParams) (*OverdueOrderDetector, error) {
	if params.Orders == nil {
		return nil, fmt.Errorf("order reader required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &OverdueOrderDetector{orders: params.Orders, now: now}, nil
}

// Detect returns scanned orders with expected date strictly before now.
func (d *OverdueOrderDetector) Detect(ctx context.Context) ([]models.Order, error) {
	now := d.now().UTC()
	candidates, err := d.orders.FindByStatusesBefore(ctx, enums.OverdueScanStatuses(), now)
	if err != nil {
		return nil, err
	}
	hits := make([]models.Order, 0, len(candidates))
	for _, order := range candidates {
		if order.IsOverdueAt(now) {
			hits = append(hits, order)
		}
	}
	return hits, nil
}

// OverdueOrderAlert builds the notification for an overdue order.
func OverdueOrderAlert(order models.Order) notifications.Alert {
	id := order.ID
	name := order.ProductName
	if name == "" {
		name = "product " + order.ProductID.String()
	}
	return notifications.Alert{
		Type:  enums.NotificationTypeOverdueOrder,
		Title: fmt.Sprintf("Order overdue: %s", name),
		Message: fmt.Sprintf("Order for %d x %s was expected on %s and has not been delivered.",
			order.Quantity, name, order.ExpectedDate.UTC().Format(expectedDateLayout)),
		OrderID: &id,
	}
}
