package orders

import (
	"context"
	"errors"
	"testing"

	"github.com/angelmondragon/shopfront-backend/internal/addresses"
	"github.com/angelmondragon/shopfront-backend/internal/cart"
	"github.com/angelmondragon/shopfront-backend/internal/payments"
	"github.com/angelmondragon/shopfront-backend/pkg/config"
	"github.com/angelmondragon/shopfront-backend/pkg/db"
	"github.com/angelmondragon/shopfront-backend/pkg/db/dbtest"
	"github.com/angelmondragon/shopfront-backend/pkg/db/models"
	"github.com/angelmondragon/shopfront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/shopfront-backend/pkg/errors"
	"github.com/angelmondragon/shopfront-backend/pkg/logger"
	"github.com/angelmondragon/shopfront-backend/pkg/outbox"
	stripeclient "github.com/angelmondragon/shopfront-backend/pkg/stripe"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type stubGateway struct {
	calls int
	err   error
}

func (g *stubGateway) CreatePaymentIntent(_ context.Context, req stripeclient.IntentRequest) (*stripeclient.Intent, error) {
	g.calls++
	if g.err != nil {
		return nil, g.err
	}
	return &stripeclient.Intent{ID: "pi_" + req.OrderID[:8], ClientSecret: "secret_" + req.OrderID[:8], Amount: req.Amount * 100}, nil
}

func (g *stubGateway) Currency() enums.Currency { return enums.DefaultCurrency }

// failingRepo injects an error into one write of the order transaction.
type failingRepo struct {
	Repository
	failTracking bool
}

func (r *failingRepo) WithTx(tx *gorm.DB) Repository {
	return &failingRepo{Repository: r.Repository.WithTx(tx), failTracking: r.failTracking}
}

func (r *failingRepo) AppendTracking(ctx context.Context, update *models.OrderTrackingUpdate) error {
	if r.failTracking {
		return errors.New("disk full")
	}
	return r.Repository.AppendTracking(ctx, update)
}

// flakyCart fails Clear while delegating reads.
type flakyCart struct {
	cart.Service
}

func (flakyCart) Clear(context.Context, uuid.UUID) error {
	return errors.New("redis unavailable")
}

type fixture struct {
	client  *db.Client
	svc     Service
	carts   cart.Service
	gateway *stubGateway
	buyer   uuid.UUID
	address *models.Address
	variant *models.ProductVariant
}

type fixtureOption func(*ServiceParams)

func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()
	client := dbtest.Open(t)
	outboxSvc := outbox.NewService(outbox.NewRepository(client.DB()), logger.Nop())
	gateway := &stubGateway{}

	carts, err := cart.NewService(cart.NewRepository(client.DB()), client)
	require.NoError(t, err)
	paySvc, err := payments.NewService(payments.ServiceParams{
		Repo:    payments.NewRepository(client.DB()),
		Tx:      client,
		Gateway: gateway,
		Outbox:  outboxSvc,
	})
	require.NoError(t, err)
	pricing, err := NewPricing(config.CheckoutConfig{DeliveryOptions: map[string]int64{"regular": 15000, "express": 30000}})
	require.NoError(t, err)

	params := ServiceParams{
		Repo:           NewRepository(client.DB()),
		Tx:             client,
		Outbox:         outboxSvc,
		Carts:          carts,
		Addresses:      addresses.NewRepository(client.DB()),
		Payments:       paySvc,
		Pricing:        pricing,
		PublishableKey: "pk_test_123",
		Logger:         logger.Nop(),
	}
	for _, opt := range opts {
		opt(&params)
	}
	svc, err := NewService(params)
	require.NoError(t, err)

	buyer := uuid.New()
	return &fixture{
		client:  client,
		svc:     svc,
		carts:   carts,
		gateway: gateway,
		buyer:   buyer,
		address: dbtest.SeedAddress(t, client, buyer),
		variant: dbtest.SeedVariant(t, client, "Kopi Arabika", 25000, 10),
	}
}

func (f *fixture) fillCart(t *testing.T, qty int64) {
	t.Helper()
	_, err := f.carts.AddItem(context.Background(), f.buyer, cart.AddItemInput{VariantID: f.variant.ID, Quantity: qty})
	require.NoError(t, err)
}

func (f *fixture) count(t *testing.T, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.client.DB().Model(model).Count(&n).Error)
	return n
}

func (f *fixture) checkout(t *testing.T) *CheckoutResult {
	t.Helper()
	res, err := f.svc.CreateOrder(context.Background(), f.buyer, CreateOrderInput{AddressID: f.address.ID, DeliveryOptionID: "regular"})
	require.NoError(t, err)
	return res
}

func TestCreateOrderMaterializesCart(t *testing.T) {
	f := newFixture(t)
	f.fillCart(t, 2)

	res := f.checkout(t)
	order := res.Order

	assert.Equal(t, int64(50000), order.SubtotalPrice)
	assert.Equal(t, int64(15000), order.ShippingPrice)
	assert.Equal(t, int64(0), order.TaxPrice)
	assert.Equal(t, int64(65000), order.TotalPrice)
	assert.Equal(t, enums.OrderStatusProcessing, order.OrderStatus)
	assert.Equal(t, "regular", order.DeliveryOption)

	require.Len(t, order.Items, 1)
	assert.Equal(t, "Kopi Arabika", order.Items[0].Title)
	assert.Equal(t, int64(25000), order.Items[0].Price)
	assert.Equal(t, int64(2), order.Items[0].Quantity)
	assert.Equal(t, f.variant.Image, order.Items[0].Image)

	require.NotNil(t, order.ShippingInfo)
	assert.Equal(t, f.address.City, order.ShippingInfo.City)

	require.NotNil(t, order.Payment)
	assert.Equal(t, enums.PaymentStatusPending, order.Payment.PaymentStatus)
	require.NotNil(t, order.Payment.PaymentIntentID)
	assert.Equal(t, res.IntentID, *order.Payment.PaymentIntentID)

	require.Len(t, order.TrackingUpdates, 1)
	assert.Equal(t, enums.OrderStatusProcessing.DefaultDescription(), order.TrackingUpdates[0].Description)

	assert.NotEmpty(t, res.ClientSecret)
	assert.Equal(t, "pk_test_123", res.PublishableKey)

	view, err := f.carts.GetCart(context.Background(), f.buyer)
	require.NoError(t, err)
	assert.Empty(t, view.Items, "cart should be cleared after checkout")

	var events int64
	require.NoError(t, f.client.DB().Model(&models.OutboxEvent{}).Where("event_type = ?", enums.EventOrderCreated).Count(&events).Error)
	assert.Equal(t, int64(1), events)
	assert.Equal(t, int64(10), dbtestStock(t, f), "stock only moves on confirmed payment")
}

func TestCreateOrderValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateOrder(ctx, f.buyer, CreateOrderInput{DeliveryOptionID: "regular"})
	assert.ErrorIs(t, err, ErrAddressRequired)

	_, err = f.svc.CreateOrder(ctx, f.buyer, CreateOrderInput{AddressID: f.address.ID})
	assert.ErrorIs(t, err, ErrDeliveryRequired)

	_, err = f.svc.CreateOrder(ctx, f.buyer, CreateOrderInput{AddressID: f.address.ID, DeliveryOptionID: "drone"})
	assert.ErrorIs(t, err, ErrInvalidDelivery)

	_, err = f.svc.CreateOrder(ctx, f.buyer, CreateOrderInput{AddressID: f.address.ID, DeliveryOptionID: "regular"})
	assert.ErrorIs(t, err, ErrEmptyCart)

	f.fillCart(t, 1)
	_, err = f.svc.CreateOrder(ctx, f.buyer, CreateOrderInput{AddressID: dbtest.SeedAddress(t, f.client, uuid.New()).ID, DeliveryOptionID: "regular"})
	assert.ErrorIs(t, err, ErrAddressNotFound)

	assert.Equal(t, int64(0), f.count(t, &models.Order{}))
	assert.Equal(t, 0, f.gateway.calls)
}

func TestCreateOrderRollsBackOnPartialFailure(t *testing.T) {
	f := newFixture(t, func(p *ServiceParams) {
		p.Repo = &failingRepo{Repository: p.Repo, failTracking: true}
	})
	f.fillCart(t, 1)

	_, err := f.svc.CreateOrder(context.Background(), f.buyer, CreateOrderInput{AddressID: f.address.ID, DeliveryOptionID: "regular"})
	require.Error(t, err)

	assert.Equal(t, int64(0), f.count(t, &models.Order{}))
	assert.Equal(t, int64(0), f.count(t, &models.OrderItem{}))
	assert.Equal(t, int64(0), f.count(t, &models.Payment{}))
	assert.Equal(t, int64(0), f.count(t, &models.ShippingInfo{}))
	assert.Equal(t, int64(0), f.count(t, &models.OutboxEvent{}))
	assert.Equal(t, 0, f.gateway.calls)
}

func TestCreateOrderIntentFailureKeepsOrder(t *testing.T) {
	f := newFixture(t)
	f.gateway.err = errors.New("gateway timeout")
	f.fillCart(t, 1)

	_, err := f.svc.CreateOrder(context.Background(), f.buyer, CreateOrderInput{AddressID: f.address.ID, DeliveryOptionID: "regular"})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodePaymentGateway))

	var order models.Order
	require.NoError(t, f.client.DB().Preload("Payment").First(&order).Error)
	assert.Equal(t, enums.OrderStatusProcessing, order.OrderStatus)
	require.NotNil(t, order.Payment)
	assert.Equal(t, enums.PaymentStatusFailed, order.Payment.PaymentStatus)

	view, err := f.carts.GetCart(context.Background(), f.buyer)
	require.NoError(t, err)
	assert.Len(t, view.Items, 1, "cart is kept when payment could not start")

	// retry succeeds once the gateway recovers
	f.gateway.err = nil
	res, err := f.svc.RequestPaymentIntent(context.Background(), f.buyer, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusPending, res.Order.Payment.PaymentStatus)
	assert.Empty(t, res.PublishableKey)
}

func TestCreateOrderCartClearFailureIsNonFatal(t *testing.T) {
	var carts cart.Service
	f := newFixture(t, func(p *ServiceParams) {
		carts = p.Carts.(cart.Service)
		p.Carts = flakyCart{Service: carts}
	})
	f.fillCart(t, 1)

	res := f.checkout(t)
	assert.NotNil(t, res.Order)

	view, err := carts.GetCart(context.Background(), f.buyer)
	require.NoError(t, err)
	assert.Len(t, view.Items, 1)
}

func TestRequestPaymentIntentGuards(t *testing.T) {
	f := newFixture(t)
	f.fillCart(t, 1)
	res := f.checkout(t)
	ctx := context.Background()
	callsAfterCheckout := f.gateway.calls

	_, err := f.svc.RequestPaymentIntent(ctx, uuid.New(), res.Order.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.svc.RequestPaymentIntent(ctx, f.buyer, uuid.New())
	assert.ErrorIs(t, err, ErrOrderNotFound)

	require.NoError(t, f.client.DB().Model(&models.Payment{}).Where("order_id = ?", res.Order.ID).Update("payment_status", enums.PaymentStatusPaid).Error)
	_, err = f.svc.RequestPaymentIntent(ctx, f.buyer, res.Order.ID)
	assert.ErrorIs(t, err, payments.ErrAlreadyPaid)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeAlreadyPaid))

	assert.Equal(t, callsAfterCheckout, f.gateway.calls, "gateway must not be called for forbidden or paid orders")

	var payment models.Payment
	require.NoError(t, f.client.DB().Where("order_id = ?", res.Order.ID).First(&payment).Error)
	assert.Equal(t, res.IntentID, *payment.PaymentIntentID)
}

func TestUpdateStatus(t *testing.T) {
	f := newFixture(t)
	f.fillCart(t, 1)
	res := f.checkout(t)
	ctx := context.Background()

	_, err := f.svc.UpdateStatus(ctx, res.Order.ID, UpdateStatusInput{Status: "LOST"})
	assert.ErrorIs(t, err, ErrInvalidStatus)

	_, err = f.svc.UpdateStatus(ctx, uuid.New(), UpdateStatusInput{Status: "SHIPPED"})
	assert.ErrorIs(t, err, ErrOrderNotFound)

	order, err := f.svc.UpdateStatus(ctx, res.Order.ID, UpdateStatusInput{
		Status:         "shipped",
		Description:    "  Dikirim via JNE  ",
		TrackingNumber: "  JNE123  ",
	})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusShipped, order.OrderStatus)
	require.NotNil(t, order.TrackingNumber)
	assert.Equal(t, "JNE123", *order.TrackingNumber)
	require.Len(t, order.TrackingUpdates, 2)
	assert.Equal(t, "Dikirim via JNE", order.TrackingUpdates[1].Description)

	order, err = f.svc.UpdateStatus(ctx, res.Order.ID, UpdateStatusInput{Status: "IN_TRANSIT", TrackingNumber: "   "})
	require.NoError(t, err)
	require.Len(t, order.TrackingUpdates, 3)
	assert.Equal(t, enums.OrderStatusInTransit.DefaultDescription(), order.TrackingUpdates[2].Description)
	require.NotNil(t, order.TrackingNumber)
	assert.Equal(t, "JNE123", *order.TrackingNumber, "blank tracking number leaves it unchanged")

	// no transition legality check
	order, err = f.svc.UpdateStatus(ctx, res.Order.ID, UpdateStatusInput{Status: "PROCESSING"})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusProcessing, order.OrderStatus)
}

func TestOrderQueries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fillCart(t, 1)
	first := f.checkout(t)
	f.fillCart(t, 2)
	second := f.checkout(t)

	history, err := f.svc.History(ctx, f.buyer)
	require.NoError(t, err)
	require.Len(t, history, 2)
	ids := map[uuid.UUID]bool{history[0].ID: true, history[1].ID: true}
	assert.True(t, ids[first.Order.ID] && ids[second.Order.ID])

	others, err := f.svc.History(ctx, uuid.New())
	require.NoError(t, err)
	assert.Empty(t, others)

	detail, err := f.svc.Detail(ctx, f.buyer, second.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), detail.Items[0].Quantity)

	_, err = f.svc.Detail(ctx, uuid.New(), second.Order.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	all, err := f.svc.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func dbtestStock(t *testing.T, f *fixture) int64 {
	t.Helper()
	var v models.ProductVariant
	require.NoError(t, f.client.DB().First(&v, "id = ?", f.variant.ID).Error)
	return v.Stock
}
