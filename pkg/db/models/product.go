package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/shopfront-backend/pkg/types"
)

// Product groups purchasable variants under a display name.
type Product struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Name        string    `gorm:"column:name;not null"`
	Description string    `gorm:"column:description;not null;default:''"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	assignID(&p.ID)
	return nil
}

// ProductVariant is the SKU: price is snapshotted into orders, stock is
// decremented only on confirmed payment.
type ProductVariant struct {
	ID         uuid.UUID               `gorm:"column:id;type:uuid;primaryKey"`
	ProductID  uuid.UUID               `gorm:"column:product_id;type:uuid;not null;index"`
	Price      int64                   `gorm:"column:price;not null"`
	Stock      int64                   `gorm:"column:stock;not null;default:0"`
	Image      string                  `gorm:"column:image;not null;default:''"`
	Attributes types.VariantAttributes `gorm:"column:attributes;type:jsonb"`
	Product    *Product                `gorm:"foreignKey:ProductID"`
	CreatedAt  time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}

func (v *ProductVariant) BeforeCreate(*gorm.DB) error {
	assignID(&v.ID)
	return nil
}
