package webhooks

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/angelmondragon/splitpay-backend/pkg/idempotency"
	"github.com/angelmondragon/splitpay-backend/pkg/paystack"
)

const testSecret = "sk_test_webhook"

func TestPaystackWebhook_SuccessAndIdempotent(t *testing.T) {
	payload := chargePayload("ref_123", "success")
	service := &fakePaystackService{}
	handler := PaystackWebhook(service, fakeKey(testSecret), newGuard(t), nil)

	rec := deliver(handler, payload, paystack.Sign(testSecret, payload))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if service.calls != 1 {
		t.Fatalf("expected service called once, got %d", service.calls)
	}

	rec = deliver(handler, payload, paystack.Sign(testSecret, payload))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 on duplicate, got %d (%s)", rec.Code, rec.Body.String())
	}
	if service.calls != 1 {
		t.Fatalf("expected duplicate not processed, call count %d", service.calls)
	}
}

func TestPaystackWebhook_InvalidSignature(t *testing.T) {
	payload := chargePayload("ref_123", "success")
	service := &fakePaystackService{}
	handler := PaystackWebhook(service, fakeKey(testSecret), newGuard(t), nil)

	rec := deliver(handler, payload, paystack.Sign("sk_other", payload))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for invalid signature, got %d", rec.Code)
	}
	rec = deliver(handler, payload, "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for missing signature, got %d", rec.Code)
	}
	if service.calls != 0 {
		t.Fatalf("service should not be invoked on invalid signature")
	}
}

func TestPaystackWebhook_FailureReleasesClaim(t *testing.T) {
	payload := chargePayload("ref_retry", "success")
	service := &fakePaystackService{err: errors.New("db down")}
	handler := PaystackWebhook(service, fakeKey(testSecret), newGuard(t), nil)

	rec := deliver(handler, payload, paystack.Sign(testSecret, payload))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}

	service.err = nil
	rec = deliver(handler, payload, paystack.Sign(testSecret, payload))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected redelivery to succeed, got %d", rec.Code)
	}
	if service.calls != 2 {
		t.Fatalf("expected redelivery to reach the service, got %d calls", service.calls)
	}
}

func TestPaystackWebhook_UnhandledEventAcknowledged(t *testing.T) {
	payload := []byte(`{"event":"transfer.success","data":{"reference":"tr_1"}}`)
	service := &fakePaystackService{}
	handler := PaystackWebhook(service, fakeKey(testSecret), newGuard(t), nil)

	rec := deliver(handler, payload, paystack.Sign(testSecret, payload))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if service.calls != 0 {
		t.Fatalf("unhandled events should not reach the service")
	}
}

func TestPaystackWebhook_MalformedPayload(t *testing.T) {
	payload := []byte(`{"event":`)
	handler := PaystackWebhook(&fakePaystackService{}, fakeKey(testSecret), newGuard(t), nil)

	rec := deliver(handler, payload, paystack.Sign(testSecret, payload))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestPaystackWebhook_MissingReference(t *testing.T) {
	payload := chargePayload("", "success")
	handler := PaystackWebhook(&fakePaystackService{}, fakeKey(testSecret), newGuard(t), nil)

	rec := deliver(handler, payload, paystack.Sign(testSecret, payload))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func deliver(handler http.Handler, payload []byte, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/paystack", bytes.NewReader(payload))
	if signature != "" {
		req.Header.Set(paystack.SignatureHeader, signature)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func chargePayload(reference, status string) []byte {
	return []byte(fmt.Sprintf(`{"event":"charge.success","data":{"id":1,"reference":%q,"amount":10000,"status":%q,"currency":"NGN","metadata":""}}`, reference, status))
}

func newGuard(t *testing.T) *idempotency.Manager {
	t.Helper()
	manager, err := idempotency.NewManager(newInMemoryStore(), time.Minute)
	if err != nil {
		t.Fatalf("guard setup: %v", err)
	}
	return manager
}

type fakeKey string

func (k fakeKey) SecretKey() string { return string(k) }

type fakePaystackService struct {
	calls int
	err   error
}

func (f *fakePaystackService) HandleEvent(ctx context.Context, event *paystack.WebhookEvent) error {
	f.calls++
	return f.err
}

type inMemoryStore struct {
	mu   sync.Mutex
	data map[string]string
}

func newInMemoryStore() *inMemoryStore {
	return &inMemoryStore{data: make(map[string]string)}
}

func (s *inMemoryStore) Get(ctx context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data[key], nil
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
	return fmt.Sprintf("splitpay:idempotency:%s:%s", scope, id)
}

func (s *inMemoryStore) Del(ctx context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		delete(s.data, key)
	}
	return nil
}
