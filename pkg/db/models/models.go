package models

// All lists every persisted model, in dependency order, for test schemas.
func All() []any {
	return []any{
		&Product{},
		&ProductVariant{},
		&Address{},
		&Cart{},
		&CartItem{},
		&Order{},
		&OrderItem{},
		&ShippingInfo{},
		&Payment{},
		&OrderTrackingUpdate{},
		&OutboxEvent{},
	}
}
