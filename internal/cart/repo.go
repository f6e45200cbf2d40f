package cart

import (
	"context"
	"time"

	"github.com/angelmondragon/shopfront-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository exposes persistence operations for carts and their items.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a cart repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *Repository) WithTx(tx *gorm.DB) CartRepository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// FindByUser loads the user's cart without items.
func (r *Repository) FindByUser(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	var cart models.Cart
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&cart).Error; err != nil {
		return nil, err
	}
	return &cart, nil
}

// Create inserts an empty cart.
func (r *Repository) Create(ctx context.Context, cart *models.Cart) (*models.Cart, error) {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(cart).Error; err != nil {
		return nil, err
	}
	return cart, nil
}

// VariantExists reports whether the variant can be added to a cart.
func (r *Repository) VariantExists(ctx context.Context, variantID uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.ProductVariant{}).
		Where("id = ?", variantID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// UpsertItem inserts the line or adds qty to the existing line for the same
// variant in one statement, so concurrent adds never lose an increment.
func (r *Repository) UpsertItem(ctx context.Context, cartID, variantID uuid.UUID, qty int64) error {
	item := models.CartItem{CartID: cartID, VariantID: variantID, Quantity: qty}
	return r.db.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "cart_id"}, {Name: "variant_id"}},
			DoUpdates: clause.Assignments(map[string]any{
				"quantity":   gorm.Expr("cart_items.quantity + excluded.quantity"),
				"updated_at": time.Now().UTC(),
			}),
		}).
		Create(&item).Error
}

// UpdateItemQuantity sets the quantity of a line owned by cartID.
func (r *Repository) UpdateItemQuantity(ctx context.Context, cartID, itemID uuid.UUID, qty int64) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.CartItem{}).
		Where("id = ? AND cart_id = ?", itemID, cartID).
		Updates(map[string]any{"quantity": qty, "updated_at": time.Now().UTC()})
	return res.RowsAffected, res.Error
}

// DeleteItem removes a line owned by cartID.
func (r *Repository) DeleteItem(ctx context.Context, cartID, itemID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("id = ? AND cart_id = ?", itemID, cartID).
		Delete(&models.CartItem{})
	return res.RowsAffected, res.Error
}

// ListItems returns cart lines with their variant and product, oldest first.
func (r *Repository) ListItems(ctx context.Context, cartID uuid.UUID) ([]models.CartItem, error) {
	var rows []models.CartItem
	if err := r.db.WithContext(ctx).
		Preload("Variant").
		Preload("Variant.Product").
		Where("cart_id = ?", cartID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Clear removes every line from the cart, keeping the cart itself.
func (r *Repository) Clear(ctx context.Context, cartID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("cart_id = ?", cartID).
		Delete(&models.CartItem{}).Error
}
