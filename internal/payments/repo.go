package payments

import (
	"context"
	"time"

	"github.com/angelmondragon/shopfront-backend/pkg/db/models"
	"github.com/angelmondragon/shopfront-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// StockChange reports the result of one floored stock decrement.
type StockChange struct {
	VariantID uuid.UUID
	ProductID uuid.UUID
	Previous  int64
	Stock     int64
}

// Clamped reports whether the decrement hit the zero floor.
func (c StockChange) Clamped(qty int64) bool {
	return c.Previous < qty
}

// Repository persists payments and the order/variant rows reconciliation touches.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a payment repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *Repository) WithTx(tx *gorm.DB) PaymentRepository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

func (r *Repository) FindByOrderID(ctx context.Context, orderID uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		First(&payment).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

// SaveIntent records a freshly issued intent and resets the payment to PENDING.
// A payment that became PAID in the meantime is left untouched and the
// returned count is zero.
func (r *Repository) SaveIntent(ctx context.Context, paymentID uuid.UUID, intentID string) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("id = ? AND payment_status <> ?", paymentID, enums.PaymentStatusPaid).
		Updates(map[string]any{
			"payment_intent_id": intentID,
			"payment_status":    enums.PaymentStatusPending,
			"payment_type":      enums.PaymentTypeOnline,
			"failure_reason":    nil,
			"updated_at":        time.Now().UTC(),
		})
	return res.RowsAffected, res.Error
}

// MarkFailedByOrder flags an unpaid payment as FAILED when issuance fails.
func (r *Repository) MarkFailedByOrder(ctx context.Context, orderID uuid.UUID, reason string) error {
	return r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("order_id = ? AND payment_status <> ?", orderID, enums.PaymentStatusPaid).
		Updates(map[string]any{
			"payment_status": enums.PaymentStatusFailed,
			"failure_reason": reason,
			"updated_at":     time.Now().UTC(),
		}).Error
}

// LockByIntentID row-locks the payment and loads its order items.
func (r *Repository) LockByIntentID(ctx context.Context, intentID string) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Preload("Order").
		Preload("Order.Items").
		Where("payment_intent_id = ?", intentID).
		First(&payment).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

// MarkPaidIfPending flips the payment to PAID unless another writer already did.
func (r *Repository) MarkPaidIfPending(ctx context.Context, paymentID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("id = ? AND payment_status <> ?", paymentID, enums.PaymentStatusPaid).
		Updates(map[string]any{
			"payment_status": enums.PaymentStatusPaid,
			"failure_reason": nil,
			"updated_at":     time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *Repository) StampOrderPaid(ctx context.Context, orderID uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", orderID).
		Updates(map[string]any{"paid_at": at, "updated_at": at}).Error
}

// DecrementStock subtracts qty from the variant stock, flooring at zero, in a
// single row update. Returns gorm.ErrRecordNotFound for a deleted variant.
func (r *Repository) DecrementStock(ctx context.Context, variantID uuid.UUID, qty int64) (*StockChange, error) {
	tx := r.db.WithContext(ctx)

	var variant models.ProductVariant
	if err := tx.
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("id", "product_id", "stock").
		Where("id = ?", variantID).
		First(&variant).Error; err != nil {
		return nil, err
	}

	if err := tx.Model(&models.ProductVariant{}).
		Where("id = ?", variantID).
		Updates(map[string]any{
			"stock":      gorm.Expr("CASE WHEN stock > ? THEN stock - ? ELSE 0 END", qty, qty),
			"updated_at": time.Now().UTC(),
		}).Error; err != nil {
		return nil, err
	}

	var stock int64
	if err := tx.Model(&models.ProductVariant{}).
		Select("stock").
		Where("id = ?", variantID).
		Scan(&stock).Error; err != nil {
		return nil, err
	}

	return &StockChange{
		VariantID: variant.ID,
		ProductID: variant.ProductID,
		Previous:  variant.Stock,
		Stock:     stock,
	}, nil
}

// MarkFailedByIntent marks every unpaid payment with the intent id as FAILED.
// Zero matches is not an error.
func (r *Repository) MarkFailedByIntent(ctx context.Context, intentID, reason string) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("payment_intent_id = ? AND payment_status <> ?", intentID, enums.PaymentStatusPaid).
		Updates(map[string]any{
			"payment_status": enums.PaymentStatusFailed,
			"failure_reason": reason,
			"updated_at":     time.Now().UTC(),
		})
	return res.RowsAffected, res.Error
}
