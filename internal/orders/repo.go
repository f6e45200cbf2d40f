package orders

import (
	"context"
	"time"

	"github.com/angelmondragon/shopfront-backend/pkg/db/models"
	"github.com/angelmondragon/shopfront-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateOrder(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(order).Error
}

func (r *repository) CreateItems(ctx context.Context, items []models.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&items).Error
}

func (r *repository) CreateShippingInfo(ctx context.Context, info *models.ShippingInfo) error {
	return r.db.WithContext(ctx).Create(info).Error
}

func (r *repository) CreatePayment(ctx context.Context, payment *models.Payment) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(payment).Error
}

func (r *repository) AppendTracking(ctx context.Context, update *models.OrderTrackingUpdate) error {
	return r.db.WithContext(ctx).Create(update).Error
}

func (r *repository) FindByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).
		Where("id = ?", orderID).
		First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// FindDetail loads the order with items, shipping, payment and tracking history
// (oldest first).
func (r *repository) FindDetail(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := withRelations(r.db.WithContext(ctx)).
		Where("id = ?", orderID).
		First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) ListByBuyer(ctx context.Context, buyerID uuid.UUID) ([]models.Order, error) {
	var orders []models.Order
	if err := withRelations(r.db.WithContext(ctx)).
		Where("buyer_id = ?", buyerID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *repository) ListAll(ctx context.Context) ([]models.Order, error) {
	var orders []models.Order
	if err := withRelations(r.db.WithContext(ctx)).
		Order("created_at DESC").
		Order("id DESC").
		Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// UpdateStatus sets the status and, when trackingNumber is non-nil, the tracking number.
func (r *repository) UpdateStatus(ctx context.Context, orderID uuid.UUID, status enums.OrderStatus, trackingNumber *string) error {
	updates := map[string]any{
		"order_status": status,
		"updated_at":   time.Now().UTC(),
	}
	if trackingNumber != nil {
		updates["tracking_number"] = *trackingNumber
	}
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", orderID).
		Updates(updates).Error
}

func withRelations(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Items", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("created_at ASC").Order("id ASC")
		}).
		Preload("ShippingInfo").
		Preload("Payment").
		Preload("TrackingUpdates", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("created_at ASC").Order("id ASC")
		})
}
