package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/shopfront-backend/internal/inventory"
	"github.com/angelmondragon/shopfront-backend/pkg/db"
	"github.com/angelmondragon/shopfront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/shopfront-backend/pkg/errors"
	"github.com/angelmondragon/shopfront-backend/pkg/logger"
	"github.com/angelmondragon/shopfront-backend/pkg/metrics"
	"github.com/angelmondragon/shopfront-backend/pkg/outbox"
	stripeclient "github.com/angelmondragon/shopfront-backend/pkg/stripe"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrInvalidAmount         = pkgerrors.New(pkgerrors.CodeValidation, "payment amount must be greater than zero")
	ErrPaymentRecordNotFound = pkgerrors.New(pkgerrors.CodeNotFound, "payment record not found")
	ErrAlreadyPaid           = pkgerrors.New(pkgerrors.CodeAlreadyPaid, "order is already paid")
	ErrIntentFailed          = pkgerrors.New(pkgerrors.CodePaymentGateway, "payment intent could not be created")
	ErrIntentIDRequired      = pkgerrors.New(pkgerrors.CodeValidation, "payment intent id is required")
)

// IssuedIntent is returned to checkout callers.
type IssuedIntent struct {
	PaymentID    uuid.UUID
	IntentID     string
	ClientSecret string
}

// ServiceParams groups the service dependencies.
type ServiceParams struct {
	Repo     PaymentRepository
	Tx       txRunner
	Gateway  Gateway
	Outbox   outboxEmitter
	Notifier inventory.Notifier
	Metrics  *metrics.CheckoutMetrics
	Logger   *logger.Logger
}

// Service issues payment intents and reconciles gateway notifications.
type Service struct {
	repo     PaymentRepository
	tx       txRunner
	gateway  Gateway
	outbox   outboxEmitter
	notifier inventory.Notifier
	metrics  *metrics.CheckoutMetrics
	logg     *logger.Logger
	now      func() time.Time
}

// NewService builds a payment service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("payment repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Gateway == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if params.Notifier == nil {
		params.Notifier = inventory.NopNotifier{}
	}
	if params.Logger == nil {
		params.Logger = logger.Nop()
	}
	return &Service{
		repo:     params.Repo,
		tx:       params.Tx,
		gateway:  params.Gateway,
		outbox:   params.Outbox,
		notifier: params.Notifier,
		metrics:  params.Metrics,
		logg:     params.Logger,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

// IssueIntent requests an intent for amount (store currency units) and records
// its id on the order's payment. Nothing is persisted when the gateway fails.
func (s *Service) IssueIntent(ctx context.Context, orderID uuid.UUID, amount int64) (*IssuedIntent, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	ctx = s.logg.WithOrderID(ctx, orderID.String())

	payment, err := s.repo.FindByOrderID(ctx, orderID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, ErrPaymentRecordNotFound
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
	}
	if payment.PaymentStatus == enums.PaymentStatusPaid {
		return nil, ErrAlreadyPaid
	}

	intent, err := s.gateway.CreatePaymentIntent(ctx, stripeclient.IntentRequest{
		OrderID:  orderID.String(),
		Amount:   amount,
		Currency: s.gateway.Currency(),
	})
	if err != nil {
		s.metrics.IncPaymentIntent(metrics.OutcomeFailure)
		return nil, pkgerrors.Wrap(pkgerrors.CodePaymentGateway, err, ErrIntentFailed.Message())
	}

	saved, err := s.repo.SaveIntent(ctx, payment.ID, intent.ID)
	if err != nil {
		s.metrics.IncPaymentIntent(metrics.OutcomeFailure)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record payment intent")
	}
	if saved == 0 {
		// Paid while the gateway call was in flight; the new intent is abandoned.
		s.logg.Warn(s.logg.WithPaymentIntentID(ctx, intent.ID), "payment settled during intent issuance")
		return nil, ErrAlreadyPaid
	}
	s.metrics.IncPaymentIntent(metrics.OutcomeSuccess)

	s.logg.Info(s.logg.WithPaymentIntentID(ctx, intent.ID), "payment intent issued")
	return &IssuedIntent{
		PaymentID:    payment.ID,
		IntentID:     intent.ID,
		ClientSecret: intent.ClientSecret,
	}, nil
}

// FailIssuance marks the order's payment FAILED after an intent error and
// queues a payment.failed event. The order itself is left untouched.
func (s *Service) FailIssuance(ctx context.Context, orderID uuid.UUID, cause error) error {
	reason := "payment intent creation failed"
	if cause != nil {
		reason = cause.Error()
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).MarkFailedByOrder(ctx, orderID, reason); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark payment failed")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPaymentFailed,
			AggregateType: enums.AggregatePayment,
			AggregateID:   orderID,
			Data:          outbox.PaymentFailedEvent{OrderID: orderID, Reason: reason},
		})
	})
}

type stockUpdate struct {
	StockChange
	clamped bool
}

// MarkSucceeded applies a confirmed payment exactly once: the payment flips to
// PAID, the order is stamped and each variant's stock drops by the ordered
// quantity, floored at zero. Unknown or already-paid intents are no-ops and
// report false.
func (s *Service) MarkSucceeded(ctx context.Context, intentID string) (bool, error) {
	if intentID == "" {
		return false, ErrIntentIDRequired
	}
	ctx = s.logg.WithPaymentIntentID(ctx, intentID)

	var (
		applied bool
		changes []stockUpdate
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		applied = false
		changes = changes[:0]
		repo := s.repo.WithTx(tx)

		payment, err := repo.LockByIntentID(ctx, intentID)
		if err != nil {
			if db.IsNotFound(err) {
				return nil
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock payment")
		}
		if payment.PaymentStatus == enums.PaymentStatusPaid {
			return nil
		}
		flipped, err := repo.MarkPaidIfPending(ctx, payment.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark payment paid")
		}
		if !flipped {
			return nil
		}

		paidAt := s.now()
		if err := repo.StampOrderPaid(ctx, payment.OrderID, paidAt); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "stamp order paid")
		}

		if payment.Order != nil {
			for _, item := range payment.Order.Items {
				if item.VariantID == nil {
					continue
				}
				change, err := repo.DecrementStock(ctx, *item.VariantID, item.Quantity)
				if err != nil {
					if db.IsNotFound(err) {
						continue
					}
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decrement stock")
				}
				changes = append(changes, stockUpdate{StockChange: *change, clamped: change.Clamped(item.Quantity)})
			}
		}

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderPaid,
			AggregateType: enums.AggregateOrder,
			AggregateID:   payment.OrderID,
			Data: outbox.OrderPaidEvent{
				OrderID:         payment.OrderID,
				PaymentID:       payment.ID,
				PaymentIntentID: intentID,
			},
			OccurredAt: paidAt,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "queue order paid event")
		}
		applied = true
		return nil
	})
	if err != nil {
		return false, err
	}
	if !applied {
		s.logg.Info(ctx, "payment success ignored (unknown intent or already paid)")
		return false, nil
	}

	for _, change := range changes {
		s.metrics.IncStockDecrement(change.clamped)
		s.notifier.Notify(ctx, inventory.VariantUpdate{
			ProductID: change.ProductID,
			VariantID: change.VariantID,
			Stock:     change.Stock,
			UpdatedAt: s.now(),
		})
	}
	s.logg.Info(ctx, fmt.Sprintf("payment marked paid, %d variants updated", len(changes)))
	return true, nil
}

// MarkFailed records a failed or canceled payment. No order or inventory
// change is made, and unknown intents are tolerated.
func (s *Service) MarkFailed(ctx context.Context, intentID, reason string) (bool, error) {
	if intentID == "" {
		return false, ErrIntentIDRequired
	}
	ctx = s.logg.WithPaymentIntentID(ctx, intentID)
	if reason == "" {
		reason = "payment failed"
	}

	rows, err := s.repo.MarkFailedByIntent(ctx, intentID, reason)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark payment failed")
	}
	s.logg.Warn(s.logg.WithField(ctx, "rows", rows), "payment failed: "+reason)
	return rows > 0, nil
}

// IsGatewayFailure reports whether err came from the payment gateway.
func IsGatewayFailure(err error) bool {
	return errors.Is(err, ErrIntentFailed) || pkgerrors.IsCode(err, pkgerrors.CodePaymentGateway)
}
