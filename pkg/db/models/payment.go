package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/shopfront-backend/pkg/enums"
)

// Payment is one-to-one with Order and moves PENDING -> PAID|FAILED.
type Payment struct {
	ID              uuid.UUID           `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	OrderID         uuid.UUID           `gorm:"column:order_id;type:uuid;not null;uniqueIndex:payments_order_id_key" json:"orderId"`
	PaymentStatus   enums.PaymentStatus `gorm:"column:payment_status;type:text;not null" json:"paymentStatus"`
	PaymentType     enums.PaymentType   `gorm:"column:payment_type;type:text;not null" json:"paymentType"`
	PaymentIntentID *string             `gorm:"column:payment_intent_id;uniqueIndex:payments_payment_intent_id_key" json:"paymentIntentId"`
	FailureReason   *string             `gorm:"column:failure_reason" json:"failureReason,omitempty"`
	Order           *Order              `gorm:"foreignKey:OrderID" json:"-"`
	CreatedAt       time.Time           `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt       time.Time           `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

func (p *Payment) BeforeCreate(*gorm.DB) error {
	assignID(&p.ID)
	return nil
}
