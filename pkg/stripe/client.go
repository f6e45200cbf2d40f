package stripe

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/paymentintent"
	"github.com/stripe/stripe-go/v84/webhook"

	"github.com/angelmondragon/shopfront-backend/pkg/config"
	"github.com/angelmondragon/shopfront-backend/pkg/enums"
	"github.com/angelmondragon/shopfront-backend/pkg/logger"
)

const (
	testEnv = "test"
	liveEnv = "live"

	metadataOrderID = "orderId"

	maxAmount = 1<<53 - 1
)

var (
	errAPIKeyRequired   = errors.New("stripe secret key is required")
	errInvalidStripeEnv = fmt.Errorf("stripe environment must be %q or %q", testEnv, liveEnv)

	// ErrWebhookSecretMissing is returned when webhook verification is attempted without a secret.
	ErrWebhookSecretMissing = errors.New("stripe webhook secret is not configured")
)

// IntentRequest describes a payment intent for one order.
type IntentRequest struct {
	OrderID string
	// Amount is expressed in the store's currency unit, not gateway minor units.
	Amount   int64
	Currency enums.Currency
}

// Intent is the subset of the gateway response the workflow needs.
type Intent struct {
	ID           string
	ClientSecret string
	Amount       int64
	Currency     string
}

type intentCreator func(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)

// Client wraps Stripe's payment intent and webhook APIs plus env-specific metadata.
type Client struct {
	environment    string
	signingSecret  string
	publishableKey string
	currency       enums.Currency
	createIntent   intentCreator
}

// NewClient configures Stripe with the provided secrets. It is constructed
// once at boot and injected where needed.
func NewClient(ctx context.Context, cfg config.StripeConfig, logg *logger.Logger) (*Client, error) {
	env, err := normalizeEnv(cfg.Environment())
	if err != nil {
		return nil, err
	}

	apiKey := strings.TrimSpace(cfg.SecretKey)
	if apiKey == "" {
		return nil, errAPIKeyRequired
	}
	if err := validateAPIKey(env, apiKey); err != nil {
		return nil, err
	}

	stripe.Key = apiKey

	if logg != nil {
		logg.Info(ctx, fmt.Sprintf("stripe client initialized (%s)", env))
	}

	return &Client{
		environment:    env,
		signingSecret:  strings.TrimSpace(cfg.WebhookSecret),
		publishableKey: strings.TrimSpace(cfg.PublishableKey),
		currency:       enums.NormalizeCurrency(cfg.Currency),
		createIntent:   paymentintent.New,
	}, nil
}

// CreatePaymentIntent issues an intent for the order total with automatic
// payment methods enabled.
func (c *Client) CreatePaymentIntent(ctx context.Context, req IntentRequest) (*Intent, error) {
	if c == nil || c.createIntent == nil {
		return nil, errors.New("stripe client not initialized")
	}
	currency := req.Currency
	if currency == "" {
		currency = c.currency
	}
	minor, err := ToMinorUnits(req.Amount, currency)
	if err != nil {
		return nil, err
	}

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(minor),
		Currency: stripe.String(currency.String()),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	params.AddMetadata(metadataOrderID, req.OrderID)

	pi, err := c.createIntent(params)
	if err != nil {
		return nil, fmt.Errorf("create payment intent: %w", err)
	}
	return &Intent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Amount:       pi.Amount,
		Currency:     string(pi.Currency),
	}, nil
}

// ConstructEvent verifies the signature header and decodes the event.
func (c *Client) ConstructEvent(payload []byte, signature string) (stripe.Event, error) {
	if c == nil || c.signingSecret == "" {
		return stripe.Event{}, ErrWebhookSecretMissing
	}
	return webhook.ConstructEventWithOptions(payload, signature, c.signingSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
}

// ToMinorUnits scales an amount into the gateway's smallest unit. The gateway
// expects zero-decimal currencies scaled by 100 as well, so every currency is
// multiplied by 100.
func ToMinorUnits(amount int64, currency enums.Currency) (int64, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("amount must be positive, got %d", amount)
	}
	scaled := decimal.NewFromInt(amount).Mul(decimal.NewFromInt(100))
	if !scaled.IsInteger() || scaled.GreaterThan(decimal.NewFromInt(maxAmount)) {
		return 0, fmt.Errorf("amount %d %s exceeds gateway limits", amount, currency)
	}
	return scaled.IntPart(), nil
}

// HasWebhookSecret reports whether inbound webhooks can be verified.
func (c *Client) HasWebhookSecret() bool {
	return c != nil && c.signingSecret != ""
}

// PublishableKey returns the key handed to clients to confirm payments.
func (c *Client) PublishableKey() string {
	if c == nil {
		return ""
	}
	return c.publishableKey
}

// Currency returns the default settlement currency.
func (c *Client) Currency() enums.Currency {
	if c == nil {
		return enums.DefaultCurrency
	}
	return c.currency
}

// Environment reports the normalized Stripe environment in use.
func (c *Client) Environment() string {
	if c == nil {
		return ""
	}
	return c.environment
}

func normalizeEnv(raw string) (string, error) {
	env := strings.TrimSpace(strings.ToLower(raw))
	if env == "" {
		env = testEnv
	}
	switch env {
	case testEnv, liveEnv:
		return env, nil
	default:
		return "", errInvalidStripeEnv
	}
}

func validateAPIKey(env, key string) error {
	switch env {
	case testEnv:
		if strings.HasPrefix(key, "sk_test") || strings.HasPrefix(key, "rk_test") {
			return nil
		}
		return fmt.Errorf("stripe environment %q requires a test secret key (sk_test/rk_test)", testEnv)
	case liveEnv:
		if strings.HasPrefix(key, "sk_live") || strings.HasPrefix(key, "rk_live") {
			return nil
		}
		return fmt.Errorf("stripe environment %q requires a live secret key (sk_live/rk_live)", liveEnv)
	default:
		return errInvalidStripeEnv
	}
}
