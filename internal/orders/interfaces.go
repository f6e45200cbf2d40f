package orders

import (
	"context"

	"github.com/angelmondragon/shopfront-backend/internal/payments"
	"github.com/angelmondragon/shopfront-backend/pkg/db/models"
	"github.com/angelmondragon/shopfront-backend/pkg/enums"
	"github.com/angelmondragon/shopfront-backend/pkg/outbox"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository defines persistence operations for the order aggregate.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateOrder(ctx context.Context, order *models.Order) error
	CreateItems(ctx context.Context, items []models.OrderItem) error
	CreateShippingInfo(ctx context.Context, info *models.ShippingInfo) error
	CreatePayment(ctx context.Context, payment *models.Payment) error
	AppendTracking(ctx context.Context, update *models.OrderTrackingUpdate) error
	FindByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	FindDetail(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	ListByBuyer(ctx context.Context, buyerID uuid.UUID) ([]models.Order, error)
	ListAll(ctx context.Context) ([]models.Order, error)
	UpdateStatus(ctx context.Context, orderID uuid.UUID, status enums.OrderStatus, trackingNumber *string) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type cartStore interface {
	FindWithItems(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	Clear(ctx context.Context, cartID uuid.UUID) error
}

type addressFinder interface {
	FindForUser(ctx context.Context, userID, addressID uuid.UUID) (*models.Address, error)
}

type paymentIssuer interface {
	IssueIntent(ctx context.Context, orderID uuid.UUID, amount int64) (*payments.IssuedIntent, error)
	FailIssuance(ctx context.Context, orderID uuid.UUID, cause error) error
}
