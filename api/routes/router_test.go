package routes

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/splitpay-backend/internal/payouts"
	subaccountsvc "github.com/angelmondragon/splitpay-backend/internal/subaccounts"
	"github.com/angelmondragon/splitpay-backend/internal/settlements"
	pkgAuth "github.com/angelmondragon/splitpay-backend/pkg/auth"
	"github.com/angelmondragon/splitpay-backend/pkg/config"
	"github.com/angelmondragon/splitpay-backend/pkg/db/models"
	"github.com/angelmondragon/splitpay-backend/pkg/enums"
	"github.com/angelmondragon/splitpay-backend/pkg/logger"
	"github.com/angelmondragon/splitpay-backend/pkg/pagination"
	"github.com/angelmondragon/splitpay-backend/pkg/paystack"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubStoreFinder struct{}

func (stubStoreFinder) FindByVendorID(ctx context.Context, vendorID uuid.UUID) (*models.Store, error) {
	code := "ACCT_test"
	return &models.Store{ID: uuid.New(), VendorID: &vendorID, PaystackAccountCode: &code, PaystackAccountActive: true}, nil
}

type stubAccountService struct{}

func (stubAccountService) CreateAccount(ctx context.Context, input subaccountsvc.CreateAccountInput) (*subaccountsvc.AccountLink, error) {
	return &subaccountsvc.AccountLink{AccountCode: "ACCT_test", Active: true}, nil
}

func (stubAccountService) UpdateAccount(ctx context.Context, code string, input subaccountsvc.UpdateAccountInput) (*subaccountsvc.AccountLink, error) {
	return &subaccountsvc.AccountLink{AccountCode: code, Active: true}, nil
}

func (stubAccountService) GetAccount(ctx context.Context, code string) (*paystack.Subaccount, error) {
	return &paystack.Subaccount{SubaccountCode: code}, nil
}

func (stubAccountService) ListAccounts(ctx context.Context, page, perPage int) ([]paystack.Subaccount, error) {
	return []paystack.Subaccount{}, nil
}

func (stubAccountService) CheckOwnership(ctx context.Context, vendorID uuid.UUID, code string) (*models.Store, error) {
	return &models.Store{ID: uuid.New(), VendorID: &vendorID, PaystackAccountCode: &code}, nil
}

type stubSettlementReader struct{}

func (stubSettlementReader) GetSettlements(ctx context.Context, code string, page, perPage int) (*settlements.SettlementPage, error) {
	return &settlements.SettlementPage{Settlements: []paystack.Settlement{}}, nil
}

type stubPayoutService struct {
	mu      sync.Mutex
	settled int
}

func (s *stubPayoutService) Settle(ctx context.Context, orderID uuid.UUID) (*payouts.SettleResult, error) {
	s.mu.Lock()
	s.settled++
	s.mu.Unlock()
	return &payouts.SettleResult{Success: true, OrderID: orderID, Payouts: []payouts.PayoutResult{}}, nil
}

func (s *stubPayoutService) GetEarnings(ctx context.Context, vendorID uuid.UUID, rng *payouts.DateRange) (*payouts.Earnings, error) {
	return &payouts.Earnings{Payouts: []payouts.PayoutDTO{}}, nil
}

func (s *stubPayoutService) GetPayoutHistory(ctx context.Context, vendorID uuid.UUID, page, perPage int) (*payouts.PayoutHistory, error) {
	return &payouts.PayoutHistory{Payouts: []payouts.HistoryEntry{}, Pagination: pagination.NewPage(pagination.Normalize(page, perPage), 0)}, nil
}

type memoryStore struct {
	mu   sync.Mutex
	data map[string]string
}

func (m *memoryStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data[key], nil
}

func (m *memoryStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data[key]; ok {
		return false, nil
	}
	m.data[key] = fmt.Sprint(value)
	return true, nil
}

func (m *memoryStore) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.data, key)
	}
	return nil
}

func (m *memoryStore) IdempotencyKey(scope, id string) string {
	return "splitpay:idempotency:" + scope + ":" + id
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "dev"},
		JWT: config.JWTConfig{Secret: "router-secret", Issuer: "splitpay", ExpirationMinutes: 5},
	}
}

func newTestRouter(t *testing.T, svc *stubPayoutService) http.Handler {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	return NewRouter(
		testConfig(),
		logg,
		stubPinger{},
		stubPinger{},
		&memoryStore{data: map[string]string{}},
		promhttp.HandlerFor(prometheus.NewRegistry(), promhttp.HandlerOpts{}),
		stubStoreFinder{},
		stubAccountService{},
		stubSettlementReader{},
		svc,
		nil,
		nil,
		nil,
	)
}

func bearer(t *testing.T, role enums.MemberRole, vendorID uuid.UUID) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(testConfig().JWT, time.Now(), pkgAuth.AccessTokenPayload{
		VendorID: vendorID,
		Role:     role,
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return "Bearer " + token
}

func TestHealthAndMetricsArePublic(t *testing.T) {
	router := newTestRouter(t, &stubPayoutService{})
	for _, path := range []string{"/health/live", "/health/ready", "/metrics"} {
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, path, nil))
		if resp.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", path, resp.Code)
		}
	}
}

func TestVendorRoutesRequireVendorToken(t *testing.T) {
	router := newTestRouter(t, &stubPayoutService{})

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/vendor/earnings", nil))
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", resp.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/vendor/earnings", nil)
	req.Header.Set("Authorization", bearer(t, enums.MemberRoleAdmin, uuid.Nil))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for admin on vendor route, got %d", resp.Code)
	}

	for _, path := range []string{"/api/v1/vendor/earnings", "/api/v1/vendor/payouts", "/api/v1/vendor/settlements", "/api/v1/vendor/subaccounts/ACCT_test"} {
		req = httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("Authorization", bearer(t, enums.MemberRoleVendor, uuid.New()))
		resp = httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		if resp.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d (%s)", path, resp.Code, resp.Body.String())
		}
	}
}

func TestAdminSettleRequiresIdempotencyKey(t *testing.T) {
	svc := &stubPayoutService{}
	router := newTestRouter(t, svc)
	path := "/api/v1/admin/orders/" + uuid.NewString() + "/settle"
	token := bearer(t, enums.MemberRoleAdmin, uuid.Nil)

	req := httptest.NewRequest(http.MethodPost, path, nil)
	req.Header.Set("Authorization", token)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without Idempotency-Key, got %d", resp.Code)
	}

	for i := 0; i < 2; i++ {
		req = httptest.NewRequest(http.MethodPost, path, nil)
		req.Header.Set("Authorization", token)
		req.Header.Set("Idempotency-Key", "settle-1")
		resp = httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		if resp.Code != http.StatusOK {
			t.Fatalf("attempt %d: expected 200, got %d (%s)", i, resp.Code, resp.Body.String())
		}
	}
	if svc.settled != 1 {
		t.Fatalf("expected replay to be served from the idempotency store, settle ran %d times", svc.settled)
	}
}

func TestVendorCreateSubaccountIsIdempotent(t *testing.T) {
	router := newTestRouter(t, &stubPayoutService{})
	body := `{"businessName":"Acme","accountNumber":"0123456789","bankCode":"058"}`

	req := httptest.NewRequest(http.MethodPost, "/api/v1/vendor/subaccounts", strings.NewReader(body))
	req.Header.Set("Authorization", bearer(t, enums.MemberRoleVendor, uuid.New()))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without Idempotency-Key, got %d", resp.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/vendor/subaccounts", strings.NewReader(body))
	req.Header.Set("Authorization", bearer(t, enums.MemberRoleVendor, uuid.New()))
	req.Header.Set("Idempotency-Key", "create-1")
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%s)", resp.Code, resp.Body.String())
	}
}

func TestPaystackWebhookRejectsUnsignedDelivery(t *testing.T) {
	router := newTestRouter(t, &stubPayoutService{})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/paystack", strings.NewReader(`{"event":"charge.success","data":{}}`))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
}
