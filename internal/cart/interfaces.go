package cart

import (
	"context"

	"github.com/angelmondragon/shopfront-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CartRepository defines the persistence surface required by the cart service.
type CartRepository interface {
	WithTx(tx *gorm.DB) CartRepository
	FindByUser(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	Create(ctx context.Context, cart *models.Cart) (*models.Cart, error)
	VariantExists(ctx context.Context, variantID uuid.UUID) (bool, error)
	UpsertItem(ctx context.Context, cartID, variantID uuid.UUID, qty int64) error
	UpdateItemQuantity(ctx context.Context, cartID, itemID uuid.UUID, qty int64) (int64, error)
	DeleteItem(ctx context.Context, cartID, itemID uuid.UUID) (int64, error)
	ListItems(ctx context.Context, cartID uuid.UUID) ([]models.CartItem, error)
	Clear(ctx context.Context, cartID uuid.UUID) error
}
