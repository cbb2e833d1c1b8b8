package enums

// OrderStatus tracks the lifecycle of a purchase order.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusOverdue   OrderStatus = "overdue"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusConfirmed,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusOverdue,
}

// OpenOrderStatuses are the statuses an order may still become overdue from.
func OpenOrderStatuses() []OrderStatus {
	return []OrderStatus{OrderStatusPending, OrderStatusConfirmed, OrderStatusShipped}
}

// OverdueScanStatuses are the statuses the overdue scan reads: the open ones
// plus orders already flagged overdue, which stay subject to the alert window.
func OverdueScanStatuses() []OrderStatus {
	return append(OpenOrderStatuses(), OrderStatusOverdue)
}

// String implements fmt.Stringer.
func (o OrderStatus) String() string {
	return string(o)
}

// IsValid reports whether the value is a known OrderStatus.
func (o OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == o {
			return true
		}
	}
	return false
}

// IsOpen reports whether the order has neither been delivered nor flagged overdue.
func (o OrderStatus) IsOpen() bool {
	for _, candidate := range OpenOrderStatuses() {
		if candidate == o {
			return true
		}
	}
	return false
}
