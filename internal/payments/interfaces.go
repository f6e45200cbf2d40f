package payments

import (
	"context"
	"time"

	"github.com/angelmondragon/shopfront-backend/pkg/db/models"
	"github.com/angelmondragon/shopfront-backend/pkg/enums"
	"github.com/angelmondragon/shopfront-backend/pkg/outbox"
	stripeclient "github.com/angelmondragon/shopfront-backend/pkg/stripe"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Gateway issues payment intents. Implemented by pkg/stripe.Client.
type Gateway interface {
	CreatePaymentIntent(ctx context.Context, req stripeclient.IntentRequest) (*stripeclient.Intent, error)
	Currency() enums.Currency
}

// PaymentRepository defines the persistence surface required by the payment service.
type PaymentRepository interface {
	WithTx(tx *gorm.DB) PaymentRepository
	FindByOrderID(ctx context.Context, orderID uuid.UUID) (*models.Payment, error)
	SaveIntent(ctx context.Context, paymentID uuid.UUID, intentID string) (int64, error)
	MarkFailedByOrder(ctx context.Context, orderID uuid.UUID, reason string) error
	LockByIntentID(ctx context.Context, intentID string) (*models.Payment, error)
	MarkPaidIfPending(ctx context.Context, paymentID uuid.UUID) (bool, error)
	StampOrderPaid(ctx context.Context, orderID uuid.UUID, at time.Time) error
	DecrementStock(ctx context.Context, variantID uuid.UUID, qty int64) (*StockChange, error)
	MarkFailedByIntent(ctx context.Context, intentID, reason string) (int64, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}
