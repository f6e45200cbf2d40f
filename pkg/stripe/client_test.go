package stripe

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/webhook"

	"github.com/angelmondragon/shopfront-backend/pkg/config"
	"github.com/angelmondragon/shopfront-backend/pkg/enums"
)

func TestNewClientValidatesKeys(t *testing.T) {
	ctx := context.Background()
	if _, err := NewClient(ctx, config.StripeConfig{}, nil); err == nil {
		t.Fatalf("expected missing key to fail")
	}
	if _, err := NewClient(ctx, config.StripeConfig{SecretKey: "sk_live_abc", Env: "test"}, nil); err == nil {
		t.Fatalf("expected live key in test env to fail")
	}
	if _, err := NewClient(ctx, config.StripeConfig{SecretKey: "sk_test_abc", Env: "staging"}, nil); err == nil {
		t.Fatalf("expected unknown env to fail")
	}
	client, err := NewClient(ctx, config.StripeConfig{SecretKey: "sk_test_abc", Currency: "IDR", PublishableKey: "pk_test_1"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client.Currency() != "idr" || client.PublishableKey() != "pk_test_1" || client.Environment() != "test" {
		t.Fatalf("unexpected client state %+v", client)
	}
	if client.HasWebhookSecret() {
		t.Fatalf("expected no webhook secret")
	}
}

func TestToMinorUnitsScalesEveryCurrencyByHundred(t *testing.T) {
	for _, currency := range []enums.Currency{"idr", "jpy", "usd"} {
		got, err := ToMinorUnits(50000, currency)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", currency, err)
		}
		if got != 5000000 {
			t.Fatalf("%s: expected 5000000, got %d", currency, got)
		}
	}
	if _, err := ToMinorUnits(0, "idr"); err == nil {
		t.Fatalf("expected zero amount to fail")
	}
	if _, err := ToMinorUnits(-5, "idr"); err == nil {
		t.Fatalf("expected negative amount to fail")
	}
	if _, err := ToMinorUnits(1<<62, "idr"); err == nil {
		t.Fatalf("expected overflow to fail")
	}
}

func TestCreatePaymentIntentBuildsParams(t *testing.T) {
	var captured *stripe.PaymentIntentParams
	client := &Client{
		currency: "idr",
		createIntent: func(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
			captured = params
			return &stripe.PaymentIntent{ID: "pi_123", ClientSecret: "pi_123_secret", Amount: *params.Amount, Currency: "idr"}, nil
		},
	}

	intent, err := client.CreatePaymentIntent(context.Background(), IntentRequest{OrderID: "order-1", Amount: 50000})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if intent.ID != "pi_123" || intent.ClientSecret != "pi_123_secret" {
		t.Fatalf("unexpected intent %+v", intent)
	}
	if *captured.Amount != 5000000 || *captured.Currency != "idr" {
		t.Fatalf("unexpected params amount=%d currency=%s", *captured.Amount, *captured.Currency)
	}
	if captured.Metadata["orderId"] != "order-1" {
		t.Fatalf("expected orderId metadata, got %v", captured.Metadata)
	}
	if captured.AutomaticPaymentMethods == nil || !*captured.AutomaticPaymentMethods.Enabled {
		t.Fatalf("expected automatic payment methods")
	}
}

func TestCreatePaymentIntentPropagatesGatewayError(t *testing.T) {
	boom := errors.New("card network down")
	client := &Client{
		currency: "idr",
		createIntent: func(*stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
			return nil, boom
		},
	}
	if _, err := client.CreatePaymentIntent(context.Background(), IntentRequest{OrderID: "o", Amount: 1}); !errors.Is(err, boom) {
		t.Fatalf("expected gateway error, got %v", err)
	}
}

func TestConstructEventVerifiesSignature(t *testing.T) {
	client := &Client{signingSecret: "whsec_test"}
	payload := []byte(`{"id":"evt_1","object":"event","type":"payment_intent.succeeded","data":{"object":{"id":"pi_1","object":"payment_intent"}}}`)

	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    "whsec_test",
		Timestamp: time.Now(),
	})
	event, err := client.ConstructEvent(payload, signed.Header)
	if err != nil {
		t.Fatalf("unexpected verification error: %v", err)
	}
	if event.ID != "evt_1" || event.Type != stripe.EventTypePaymentIntentSucceeded {
		t.Fatalf("unexpected event %+v", event)
	}

	if _, err := client.ConstructEvent(payload, "t=1,v1=deadbeef"); err == nil {
		t.Fatalf("expected bad signature to fail")
	}
	if _, err := (&Client{}).ConstructEvent(payload, signed.Header); !errors.Is(err, ErrWebhookSecretMissing) {
		t.Fatalf("expected missing secret error, got %v", err)
	}
}
