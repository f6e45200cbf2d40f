package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/shopfront-backend/pkg/enums"
)

// Order is created once per checkout and never deleted.
type Order struct {
	ID              uuid.UUID             `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	BuyerID         uuid.UUID             `gorm:"column:buyer_id;type:uuid;not null;index" json:"buyerId"`
	SubtotalPrice   int64                 `gorm:"column:subtotal_price;not null" json:"subtotalPrice"`
	ShippingPrice   int64                 `gorm:"column:shipping_price;not null" json:"shippingPrice"`
	TaxPrice        int64                 `gorm:"column:tax_price;not null" json:"taxPrice"`
	TotalPrice      int64                 `gorm:"column:total_price;not null" json:"totalPrice"`
	DeliveryOption  string                `gorm:"column:delivery_option;not null" json:"deliveryOption"`
	OrderStatus     enums.OrderStatus     `gorm:"column:order_status;type:text;not null" json:"orderStatus"`
	TrackingNumber  *string               `gorm:"column:tracking_number" json:"trackingNumber"`
	PaidAt          *time.Time            `gorm:"column:paid_at" json:"paidAt"`
	Items           []OrderItem           `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"orderItems"`
	ShippingInfo    *ShippingInfo         `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"shippingInfo"`
	Payment         *Payment              `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"payment"`
	TrackingUpdates []OrderTrackingUpdate `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"trackingUpdates"`
	CreatedAt       time.Time             `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt       time.Time             `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	assignID(&o.ID)
	return nil
}

// OrderItem snapshots a cart line at order time.
type OrderItem struct {
	ID        uuid.UUID  `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	OrderID   uuid.UUID  `gorm:"column:order_id;type:uuid;not null;index" json:"orderId"`
	VariantID *uuid.UUID `gorm:"column:variant_id;type:uuid" json:"variantId"`
	Title     string     `gorm:"column:title;not null" json:"title"`
	Image     string     `gorm:"column:image;not null;default:''" json:"image"`
	Price     int64      `gorm:"column:price;not null" json:"price"`
	Quantity  int64      `gorm:"column:quantity;not null" json:"quantity"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
}

func (i *OrderItem) BeforeCreate(*gorm.DB) error {
	assignID(&i.ID)
	return nil
}

// ShippingInfo copies the chosen address so later edits do not alter the order.
type ShippingInfo struct {
	ID       uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	OrderID  uuid.UUID `gorm:"column:order_id;type:uuid;not null;uniqueIndex:shipping_infos_order_id_key" json:"orderId"`
	FullName string    `gorm:"column:full_name;not null" json:"fullName"`
	Phone    string    `gorm:"column:phone;not null" json:"phone"`
	Address  string    `gorm:"column:address;not null" json:"address"`
	City     string    `gorm:"column:city;not null" json:"city"`
	State    string    `gorm:"column:state;not null" json:"state"`
	Country  string    `gorm:"column:country;not null" json:"country"`
	Pincode  string    `gorm:"column:pincode;not null" json:"pincode"`
}

func (s *ShippingInfo) BeforeCreate(*gorm.DB) error {
	assignID(&s.ID)
	return nil
}

// OrderTrackingUpdate is an append-only status history entry.
type OrderTrackingUpdate struct {
	ID          uuid.UUID         `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	OrderID     uuid.UUID         `gorm:"column:order_id;type:uuid;not null;index" json:"orderId"`
	Status      enums.OrderStatus `gorm:"column:status;type:text;not null" json:"status"`
	Description string            `gorm:"column:description;not null" json:"description"`
	CreatedAt   time.Time         `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
}

func (u *OrderTrackingUpdate) BeforeCreate(*gorm.DB) error {
	assignID(&u.ID)
	return nil
}
