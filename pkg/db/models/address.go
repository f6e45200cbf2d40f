package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Address is a buyer-owned delivery address.
type Address struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null;index"`
	FullName  string    `gorm:"column:full_name;not null"`
	Phone     string    `gorm:"column:phone;not null"`
	Address   string    `gorm:"column:address;not null"`
	City      string    `gorm:"column:city;not null"`
	State     string    `gorm:"column:state;not null"`
	Country   string    `gorm:"column:country;not null"`
	Pincode   string    `gorm:"column:pincode;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (a *Address) BeforeCreate(*gorm.DB) error {
	assignID(&a.ID)
	return nil
}
