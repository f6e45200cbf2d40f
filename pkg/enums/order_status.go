package enums

import (
	"fmt"
	"strings"
)

// OrderStatus tracks fulfilment of an order.
type OrderStatus string

const (
	OrderStatusProcessing OrderStatus = "PROCESSING"
	OrderStatusShipped    OrderStatus = "SHIPPED"
	OrderStatusInTransit  OrderStatus = "IN_TRANSIT"
	OrderStatusDelivered  OrderStatus = "DELIVERED"
	OrderStatusCancelled  OrderStatus = "CANCELLED"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusProcessing,
	OrderStatusShipped,
	OrderStatusInTransit,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

var orderStatusDescriptions = map[OrderStatus]string{
	OrderStatusProcessing: "Pesanan diterima dan sedang diproses oleh penjual.",
	OrderStatusShipped:    "Pesanan telah dikirim dan menunggu penjemputan kurir.",
	OrderStatusInTransit:  "Pesanan sedang dalam perjalanan menuju alamat tujuan.",
	OrderStatusDelivered:  "Pesanan telah diterima oleh pembeli.",
	OrderStatusCancelled:  "Pesanan dibatalkan oleh penjual atau pembeli.",
}

// String implements fmt.Stringer.
func (s OrderStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known OrderStatus.
func (s OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further fulfilment is expected.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// DefaultDescription is the canonical tracking text for the status.
func (s OrderStatus) DefaultDescription() string {
	return orderStatusDescriptions[s]
}

// ParseOrderStatus converts raw input into an OrderStatus. Matching is case-insensitive.
func ParseOrderStatus(value string) (OrderStatus, error) {
	normalized := strings.ToUpper(strings.TrimSpace(value))
	for _, candidate := range validOrderStatuses {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}
