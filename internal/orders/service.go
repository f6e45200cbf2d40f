package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/angelmondragon/shopfront-backend/internal/cart"
	"github.com/angelmondragon/shopfront-backend/pkg/db"
	"github.com/angelmondragon/shopfront-backend/pkg/db/models"
	"github.com/angelmondragon/shopfront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/shopfront-backend/pkg/errors"
	"github.com/angelmondragon/shopfront-backend/pkg/logger"
	"github.com/angelmondragon/shopfront-backend/pkg/metrics"
	"github.com/angelmondragon/shopfront-backend/pkg/outbox"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrAddressRequired  = pkgerrors.New(pkgerrors.CodeValidation, "selected address is required")
	ErrDeliveryRequired = pkgerrors.New(pkgerrors.CodeValidation, "selected delivery option is required")
	ErrInvalidDelivery  = pkgerrors.New(pkgerrors.CodeValidation, "unknown delivery option")
	ErrEmptyCart        = pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	ErrAddressNotFound  = pkgerrors.New(pkgerrors.CodeNotFound, "address not found")
	ErrOrderNotFound    = pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	ErrForbidden        = pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another user")
	ErrInvalidStatus    = pkgerrors.New(pkgerrors.CodeValidation, "invalid order status")
)

// Service defines the order workflow.
type Service interface {
	CreateOrder(ctx context.Context, buyerID uuid.UUID, input CreateOrderInput) (*CheckoutResult, error)
	RequestPaymentIntent(ctx context.Context, requesterID, orderID uuid.UUID) (*CheckoutResult, error)
	UpdateStatus(ctx context.Context, orderID uuid.UUID, input UpdateStatusInput) (*models.Order, error)
	History(ctx context.Context, buyerID uuid.UUID) ([]models.Order, error)
	Detail(ctx context.Context, requesterID, orderID uuid.UUID) (*models.Order, error)
	ListAll(ctx context.Context) ([]models.Order, error)
}

// CreateOrderInput carries the buyer's checkout choices.
type CreateOrderInput struct {
	AddressID        uuid.UUID
	DeliveryOptionID string
}

// UpdateStatusInput is the administrative status change request.
type UpdateStatusInput struct {
	Status         string
	Description    string
	TrackingNumber string
	ActorID        uuid.UUID
}

// CheckoutResult is the order plus the handle the client needs to pay.
type CheckoutResult struct {
	Order          *models.Order `json:"order"`
	ClientSecret   string        `json:"paymentIntentClientSecret"`
	IntentID       string        `json:"paymentIntentId"`
	PublishableKey string        `json:"gatewayPublicKey,omitempty"`
}

// ServiceParams groups the service dependencies.
type ServiceParams struct {
	Repo           Repository
	Tx             txRunner
	Outbox         outboxPublisher
	Carts          cartStore
	Addresses      addressFinder
	Payments       paymentIssuer
	Pricing        *Pricing
	PublishableKey string
	Metrics        *metrics.CheckoutMetrics
	Logger         *logger.Logger
}

type service struct {
	repo           Repository
	tx             txRunner
	outbox         outboxPublisher
	carts          cartStore
	addresses      addressFinder
	payments       paymentIssuer
	pricing        *Pricing
	publishableKey string
	metrics        *metrics.CheckoutMetrics
	logg           *logger.Logger
}

// NewService builds the order workflow service.
func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Repo == nil:
		return nil, fmt.Errorf("orders repository required")
	case params.Tx == nil:
		return nil, fmt.Errorf("transaction runner required")
	case params.Outbox == nil:
		return nil, fmt.Errorf("outbox publisher required")
	case params.Carts == nil:
		return nil, fmt.Errorf("cart store required")
	case params.Addresses == nil:
		return nil, fmt.Errorf("address finder required")
	case params.Payments == nil:
		return nil, fmt.Errorf("payment issuer required")
	case params.Pricing == nil:
		return nil, fmt.Errorf("pricing required")
	}
	if params.Logger == nil {
		params.Logger = logger.Nop()
	}
	return &service{
		repo:           params.Repo,
		tx:             params.Tx,
		outbox:         params.Outbox,
		carts:          params.Carts,
		addresses:      params.Addresses,
		payments:       params.Payments,
		pricing:        params.Pricing,
		publishableKey: params.PublishableKey,
		metrics:        params.Metrics,
		logg:           params.Logger,
	}, nil
}

// CreateOrder materializes the buyer's cart into an order, then asks the
// gateway for a payment intent. A gateway failure leaves the order in place
// with its payment FAILED so the buyer can retry.
func (s *service) CreateOrder(ctx context.Context, buyerID uuid.UUID, input CreateOrderInput) (*CheckoutResult, error) {
	if input.AddressID == uuid.Nil {
		return nil, ErrAddressRequired
	}
	if strings.TrimSpace(input.DeliveryOptionID) == "" {
		return nil, ErrDeliveryRequired
	}
	deliveryID, shipping, ok := s.pricing.ShippingFor(input.DeliveryOptionID)
	if !ok {
		return nil, ErrInvalidDelivery.WithDetails(map[string]any{"selectedDeliveryId": input.DeliveryOptionID})
	}
	ctx = s.logg.WithUserID(ctx, buyerID.String())

	userCart, err := s.carts.FindWithItems(ctx, buyerID)
	if err != nil {
		if errors.Is(err, cart.ErrCartNotFound) {
			return nil, ErrEmptyCart
		}
		return nil, err
	}
	if len(userCart.Items) == 0 {
		return nil, ErrEmptyCart
	}

	address, err := s.addresses.FindForUser(ctx, buyerID, input.AddressID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, ErrAddressNotFound
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load address")
	}

	quote, err := s.pricing.Quote(userCart.Items, shipping)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "price cart")
	}

	order := &models.Order{
		ID:             uuid.New(),
		BuyerID:        buyerID,
		SubtotalPrice:  quote.Subtotal,
		ShippingPrice:  quote.Shipping,
		TaxPrice:       quote.Tax,
		TotalPrice:     quote.Total,
		DeliveryOption: deliveryID,
		OrderStatus:    enums.OrderStatusProcessing,
	}
	ctx = s.logg.WithOrderID(ctx, order.ID.String())

	if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.CreateOrder(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}
		if err := repo.CreateItems(ctx, snapshotItems(order.ID, userCart.Items)); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order items")
		}
		if err := repo.CreateShippingInfo(ctx, snapshotAddress(order.ID, address)); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create shipping info")
		}
		if err := repo.CreatePayment(ctx, &models.Payment{
			OrderID:       order.ID,
			PaymentStatus: enums.PaymentStatusPending,
			PaymentType:   enums.PaymentTypeOnline,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment")
		}
		if err := repo.AppendTracking(ctx, &models.OrderTrackingUpdate{
			OrderID:     order.ID,
			Status:      enums.OrderStatusProcessing,
			Description: enums.OrderStatusProcessing.DefaultDescription(),
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create tracking update")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: buyerID, Role: enums.RoleUser.String()},
			Data: outbox.OrderCreatedEvent{
				OrderID:    order.ID,
				BuyerID:    buyerID,
				TotalPrice: order.TotalPrice,
				ItemCount:  len(userCart.Items),
			},
		})
	}); err != nil {
		return nil, err
	}
	s.metrics.IncOrderCreated()
	s.logg.Info(ctx, "order created")

	intent, err := s.payments.IssueIntent(ctx, order.ID, order.TotalPrice)
	if err != nil {
		s.logg.Error(ctx, "payment intent failed, marking payment failed", err)
		if markErr := s.payments.FailIssuance(ctx, order.ID, err); markErr != nil {
			s.logg.Error(ctx, "failed to mark payment failed", markErr)
		}
		return nil, err
	}

	if err := s.carts.Clear(ctx, userCart.ID); err != nil {
		s.logg.Warn(ctx, "cart clear failed after order creation: "+err.Error())
	}

	detail, err := s.loadDetail(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	return &CheckoutResult{
		Order:          detail,
		ClientSecret:   intent.ClientSecret,
		IntentID:       intent.IntentID,
		PublishableKey: s.publishableKey,
	}, nil
}

// RequestPaymentIntent re-issues an intent for an unpaid order owned by requesterID.
func (s *service) RequestPaymentIntent(ctx context.Context, requesterID, orderID uuid.UUID) (*CheckoutResult, error) {
	order, err := s.ownedOrder(ctx, requesterID, orderID)
	if err != nil {
		return nil, err
	}
	ctx = s.logg.WithOrderID(ctx, order.ID.String())

	intent, err := s.payments.IssueIntent(ctx, order.ID, order.TotalPrice)
	if err != nil {
		return nil, err
	}

	detail, err := s.loadDetail(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	return &CheckoutResult{
		Order:        detail,
		ClientSecret: intent.ClientSecret,
		IntentID:     intent.IntentID,
	}, nil
}

// UpdateStatus moves the order to any known status and appends a tracking
// entry. Transition order is not enforced.
func (s *service) UpdateStatus(ctx context.Context, orderID uuid.UUID, input UpdateStatusInput) (*models.Order, error) {
	status, err := enums.ParseOrderStatus(input.Status)
	if err != nil {
		return nil, ErrInvalidStatus.WithDetails(map[string]any{"status": input.Status})
	}
	description := strings.TrimSpace(input.Description)
	if description == "" {
		description = status.DefaultDescription()
	}
	var tracking *string
	if trimmed := strings.TrimSpace(input.TrackingNumber); trimmed != "" {
		tracking = &trimmed
	}
	ctx = s.logg.WithOrderID(ctx, orderID.String())

	var updated *models.Order
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := repo.FindByID(ctx, orderID); err != nil {
			if db.IsNotFound(err) {
				return ErrOrderNotFound
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if err := repo.UpdateStatus(ctx, orderID, status, tracking); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}
		if err := repo.AppendTracking(ctx, &models.OrderTrackingUpdate{
			OrderID:     orderID,
			Status:      status,
			Description: description,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append tracking update")
		}
		event := outbox.DomainEvent{
			EventType:     enums.EventOrderStatusChanged,
			AggregateType: enums.AggregateOrder,
			AggregateID:   orderID,
			Data: outbox.OrderStatusChangedEvent{
				OrderID:        orderID,
				Status:         status.String(),
				TrackingNumber: tracking,
			},
		}
		if input.ActorID != uuid.Nil {
			event.Actor = &outbox.ActorRef{UserID: input.ActorID, Role: enums.RoleAdmin.String()}
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return err
		}
		order, err := repo.FindDetail(ctx, orderID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order")
		}
		updated = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncStatusChange(status.String())
	s.logg.Info(s.logg.WithField(ctx, "status", status.String()), "order status updated")
	return updated, nil
}

func (s *service) History(ctx context.Context, buyerID uuid.UUID) ([]models.Order, error) {
	orders, err := s.repo.ListByBuyer(ctx, buyerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return orders, nil
}

func (s *service) Detail(ctx context.Context, requesterID, orderID uuid.UUID) (*models.Order, error) {
	if _, err := s.ownedOrder(ctx, requesterID, orderID); err != nil {
		return nil, err
	}
	return s.loadDetail(ctx, orderID)
}

func (s *service) ListAll(ctx context.Context) ([]models.Order, error) {
	orders, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return orders, nil
}

func (s *service) ownedOrder(ctx context.Context, requesterID, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, ErrOrderNotFound
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order.BuyerID != requesterID {
		return nil, ErrForbidden
	}
	return order, nil
}

func (s *service) loadDetail(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindDetail(ctx, orderID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, ErrOrderNotFound
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order detail")
	}
	return order, nil
}

func snapshotItems(orderID uuid.UUID, items []models.CartItem) []models.OrderItem {
	out := make([]models.OrderItem, 0, len(items))
	for _, item := range items {
		variantID := item.VariantID
		line := models.OrderItem{
			OrderID:   orderID,
			VariantID: &variantID,
			Quantity:  item.Quantity,
		}
		if item.Variant != nil {
			line.Price = item.Variant.Price
			line.Image = item.Variant.Image
			if item.Variant.Product != nil {
				line.Title = item.Variant.Product.Name
			}
		}
		out = append(out, line)
	}
	return out
}

func snapshotAddress(orderID uuid.UUID, addr *models.Address) *models.ShippingInfo {
	return &models.ShippingInfo{
		OrderID:  orderID,
		FullName: addr.FullName,
		Phone:    addr.Phone,
		Address:  addr.Address,
		City:     addr.City,
		State:    addr.State,
		Country:  addr.Country,
		Pincode:  addr.Pincode,
	}
}
