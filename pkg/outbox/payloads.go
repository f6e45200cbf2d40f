package outbox

import "github.com/google/uuid"

// OrderCreatedEvent is emitted when checkout materializes an order.
type OrderCreatedEvent struct {
	OrderID    uuid.UUID `json:"orderId"`
	BuyerID    uuid.UUID `json:"buyerId"`
	TotalPrice int64     `json:"totalPrice"`
	ItemCount  int       `json:"itemCount"`
}

// OrderPaidEvent is emitted once a payment is reconciled as paid.
type OrderPaidEvent struct {
	OrderID         uuid.UUID `json:"orderId"`
	PaymentID       uuid.UUID `json:"paymentId"`
	PaymentIntentID string    `json:"paymentIntentId"`
}

// OrderStatusChangedEvent is emitted for administrative status transitions.
type OrderStatusChangedEvent struct {
	OrderID        uuid.UUID `json:"orderId"`
	Status         string    `json:"status"`
	TrackingNumber *string   `json:"trackingNumber,omitempty"`
}

// PaymentFailedEvent is emitted when an intent cannot be issued.
type PaymentFailedEvent struct {
	OrderID uuid.UUID `json:"orderId"`
	Reason  string    `json:"reason"`
}
