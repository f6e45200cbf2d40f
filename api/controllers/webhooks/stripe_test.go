package webhooks

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/webhook"

	stripewebhook "github.com/angelmondragon/shopfront-backend/internal/webhooks/stripe"
	"github.com/angelmondragon/shopfront-backend/pkg/config"
	stripeclient "github.com/angelmondragon/shopfront-backend/pkg/stripe"
)

const testSecret = "whsec_test"

func newVerifier(t *testing.T, secret string) *stripeclient.Client {
	t.Helper()
	client, err := stripeclient.NewClient(context.Background(), config.StripeConfig{
		SecretKey:     "sk_test_123",
		WebhookSecret: secret,
		Currency:      "idr",
		Env:           "test",
	}, nil)
	if err != nil {
		t.Fatalf("stripe client: %v", err)
	}
	return client
}

func newGuard(t *testing.T) *stripewebhook.IdempotencyGuard {
	t.Helper()
	guard, err := stripewebhook.NewIdempotencyGuard(newInMemoryStore(), time.Minute, "stripe-webhook")
	if err != nil {
		t.Fatalf("guard setup: %v", err)
	}
	return guard
}

func buildSignedEvent(t *testing.T, secret string) ([]byte, string) {
	t.Helper()
	payload := []byte(fmt.Sprintf(`{
		"id": "evt_%s",
		"object": "event",
		"type": "payment_intent.succeeded",
		"api_version": %q,
		"data": {"object": {"id": "pi_123", "object": "payment_intent", "status": "succeeded"}}
	}`, uuid.NewString(), stripe.APIVersion))
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    secret,
		Timestamp: time.Now(),
	})
	return payload, signed.Header
}

func post(handler http.Handler, payload []byte, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/stripe", bytes.NewReader(payload))
	if header != "" {
		req.Header.Set("Stripe-Signature", header)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestStripeWebhook_SuccessAndIdempotent(t *testing.T) {
	payload, header := buildSignedEvent(t, testSecret)
	service := &fakeStripeWebhookService{}
	handler := StripeWebhook(service, newVerifier(t, testSecret), newGuard(t), nil)

	rec := post(handler, payload, header)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if service.calls != 1 {
		t.Fatalf("expected service called once, got %d", service.calls)
	}
	if service.lastIntent != "pi_123" {
		t.Fatalf("expected decoded event, got %q", service.lastIntent)
	}

	rec2 := post(handler, payload, header)
	if rec2.Code != http.StatusOK {
		t.Fatalf("expected 200 on duplicate, got %d (%s)", rec2.Code, rec2.Body.String())
	}
	if service.calls != 1 {
		t.Fatalf("expected duplicate not processed, call count %d", service.calls)
	}
}

func TestStripeWebhook_InvalidSignature(t *testing.T) {
	payload, _ := buildSignedEvent(t, testSecret)
	service := &fakeStripeWebhookService{}
	handler := StripeWebhook(service, newVerifier(t, testSecret), newGuard(t), nil)

	rec := post(handler, payload, "t=1,v1=invalid")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid signature, got %d", rec.Code)
	}
	if service.calls != 0 {
		t.Fatalf("service should not be invoked on invalid signature")
	}
}

func TestStripeWebhook_ForeignSecret(t *testing.T) {
	payload, header := buildSignedEvent(t, "whsec_other")
	service := &fakeStripeWebhookService{}
	handler := StripeWebhook(service, newVerifier(t, testSecret), newGuard(t), nil)

	rec := post(handler, payload, header)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if service.calls != 0 {
		t.Fatalf("service should not be invoked")
	}
}

func TestStripeWebhook_MissingSignature(t *testing.T) {
	payload, _ := buildSignedEvent(t, testSecret)
	service := &fakeStripeWebhookService{}
	handler := StripeWebhook(service, newVerifier(t, testSecret), newGuard(t), nil)

	rec := post(handler, payload, "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestStripeWebhook_OversizedPayload(t *testing.T) {
	payload := []byte(fmt.Sprintf(`{
		"id": "evt_big",
		"object": "event",
		"type": "payment_intent.succeeded",
		"api_version": %q,
		"data": {"object": {"id": "pi_big", "object": "payment_intent", "description": %q}}
	}`, stripe.APIVersion, strings.Repeat("x", maxPayloadBytes)))
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    testSecret,
		Timestamp: time.Now(),
	})
	service := &fakeStripeWebhookService{}
	handler := StripeWebhook(service, newVerifier(t, testSecret), newGuard(t), nil)

	rec := post(handler, payload, signed.Header)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	var body struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Error.Code != "VALIDATION_ERROR" {
		t.Fatalf("expected validation error, got %q (%s)", body.Error.Code, body.Error.Message)
	}
	if service.calls != 0 {
		t.Fatalf("service should not be invoked")
	}
}

func TestStripeWebhook_SecretNotConfigured(t *testing.T) {
	payload, header := buildSignedEvent(t, testSecret)
	service := &fakeStripeWebhookService{}
	handler := StripeWebhook(service, newVerifier(t, ""), newGuard(t), nil)

	rec := post(handler, payload, header)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if service.calls != 0 {
		t.Fatalf("service should not be invoked")
	}
}

func TestStripeWebhook_ProcessingErrorReleasesGuard(t *testing.T) {
	payload, header := buildSignedEvent(t, testSecret)
	service := &fakeStripeWebhookService{err: errors.New("db down")}
	handler := StripeWebhook(service, newVerifier(t, testSecret), newGuard(t), nil)

	rec := post(handler, payload, header)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}

	service.err = nil
	rec = post(handler, payload, header)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected redelivery to succeed, got %d", rec.Code)
	}
	if service.calls != 2 {
		t.Fatalf("expected redelivery to be processed, calls=%d", service.calls)
	}
}

func TestStripeWebhook_WithoutGuard(t *testing.T) {
	payload, header := buildSignedEvent(t, testSecret)
	service := &fakeStripeWebhookService{}
	handler := StripeWebhook(service, newVerifier(t, testSecret), nil, nil)

	post(handler, payload, header)
	post(handler, payload, header)
	if service.calls != 2 {
		t.Fatalf("expected every delivery to reach the service, calls=%d", service.calls)
	}
}

type fakeStripeWebhookService struct {
	calls      int
	lastIntent string
	err        error
}

func (f *fakeStripeWebhookService) HandleEvent(ctx context.Context, event *stripe.Event) error {
	f.calls++
	if event.Data != nil {
		var obj struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(event.Data.Raw, &obj); err == nil {
			f.lastIntent = obj.ID
		}
	}
	return f.err
}

type inMemoryStore struct {
	mu   sync.Mutex
	data map[string]string
}

func newInMemoryStore() *inMemoryStore {
	return &inMemoryStore{
		data: make(map[string]string),
	}
}

func (s *inMemoryStore) Get(ctx context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data[key], nil
}

func (s *inMemoryStore) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = fmt.Sprintf("%v", value)
	return nil
}

func (s *inMemoryStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.data[key]; exists {
		return false, nil
	}
	s.data[key] = fmt.Sprintf("%v", value)
	return true, nil
}

func (s *inMemoryStore) IdempotencyKey(scope, id string) string {
	return fmt.Sprintf("sf:idempotency:%s:%s", scope, id)
}

func (s *inMemoryStore) Del(ctx context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		delete(s.data, key)
	}
	return nil
}
