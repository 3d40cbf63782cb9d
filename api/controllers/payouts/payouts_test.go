package payouts

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/splitpay-backend/api/middleware"
	payoutsvc "github.com/angelmondragon/splitpay-backend/internal/payouts"
	"github.com/angelmondragon/splitpay-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/splitpay-backend/pkg/errors"
	"github.com/angelmondragon/splitpay-backend/pkg/pagination"
)

type stubEarnings struct {
	vendorID uuid.UUID
	rng      *payoutsvc.DateRange
	page     int
	perPage  int
}

func (s *stubEarnings) GetEarnings(ctx context.Context, vendorID uuid.UUID, rng *payoutsvc.DateRange) (*payoutsvc.Earnings, error) {
	s.vendorID, s.rng = vendorID, rng
	return &payoutsvc.Earnings{TotalEarnings: 6000, TotalPayouts: 5700, PlatformFees: 300, Payouts: []payoutsvc.PayoutDTO{}}, nil
}

func (s *stubEarnings) GetPayoutHistory(ctx context.Context, vendorID uuid.UUID, page, perPage int) (*payoutsvc.PayoutHistory, error) {
	s.vendorID, s.page, s.perPage = vendorID, page, perPage
	return &payoutsvc.PayoutHistory{
		Payouts:    []payoutsvc.HistoryEntry{},
		Pagination: pagination.Page{Page: page, PerPage: perPage},
	}, nil
}

type stubSettler struct {
	orderID uuid.UUID
	err     error
}

func (s *stubSettler) Settle(ctx context.Context, orderID uuid.UUID) (*payoutsvc.SettleResult, error) {
	s.orderID = orderID
	if s.err != nil {
		return &payoutsvc.SettleResult{OrderID: orderID, Message: "order not paid"}, s.err
	}
	return &payoutsvc.SettleResult{
		Success: true,
		OrderID: orderID,
		Payouts: []payoutsvc.PayoutResult{{Amount: 5700, PlatformFee: 300, TotalAmount: 6000, Status: enums.PayoutStatusProcessing}},
	}, nil
}

func withVendor(req *http.Request, vendorID uuid.UUID) *http.Request {
	return req.WithContext(middleware.WithVendorID(req.Context(), vendorID))
}

func TestVendorEarningsParsesRange(t *testing.T) {
	vendorID := uuid.New()
	svc := &stubEarnings{}
	handler := VendorEarnings(svc, nil)

	req := withVendor(httptest.NewRequest(http.MethodGet, "/api/v1/vendor/earnings?from=2024-01-01&to=2024-01-31", nil), vendorID)
	resp := httptest.NewRecorder()
	handler(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", resp.Code, resp.Body.String())
	}
	if svc.vendorID != vendorID {
		t.Fatalf("expected vendor %s, got %s", vendorID, svc.vendorID)
	}
	if svc.rng == nil || svc.rng.From == nil || svc.rng.To == nil {
		t.Fatalf("expected both bounds, got %+v", svc.rng)
	}
	if !svc.rng.From.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected from %v", svc.rng.From)
	}
	if !svc.rng.To.Equal(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC).Add(-time.Nanosecond)) {
		t.Fatalf("expected to bound at end of day, got %v", svc.rng.To)
	}

	var envelope struct {
		Data payoutsvc.Earnings `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.TotalEarnings != 6000 || envelope.Data.PlatformFees != 300 {
		t.Fatalf("unexpected earnings %+v", envelope.Data)
	}
}

func TestVendorEarningsWithoutRange(t *testing.T) {
	svc := &stubEarnings{}
	resp := httptest.NewRecorder()
	VendorEarnings(svc, nil)(resp, withVendor(httptest.NewRequest(http.MethodGet, "/api/v1/vendor/earnings", nil), uuid.New()))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if svc.rng != nil {
		t.Fatalf("expected nil range, got %+v", svc.rng)
	}
}

func TestVendorEarningsRejectsBadDate(t *testing.T) {
	resp := httptest.NewRecorder()
	VendorEarnings(&stubEarnings{}, nil)(resp, withVendor(httptest.NewRequest(http.MethodGet, "/api/v1/vendor/earnings?from=yesterday", nil), uuid.New()))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestVendorEarningsRequiresVendor(t *testing.T) {
	resp := httptest.NewRecorder()
	VendorEarnings(&stubEarnings{}, nil)(resp, httptest.NewRequest(http.MethodGet, "/api/v1/vendor/earnings", nil))
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.Code)
	}
}

func TestVendorPayoutHistoryPaging(t *testing.T) {
	svc := &stubEarnings{}
	resp := httptest.NewRecorder()
	VendorPayoutHistory(svc, nil)(resp, withVendor(httptest.NewRequest(http.MethodGet, "/api/v1/vendor/payouts?page=2&perPage=5", nil), uuid.New()))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if svc.page != 2 || svc.perPage != 5 {
		t.Fatalf("unexpected paging %d/%d", svc.page, svc.perPage)
	}

	resp = httptest.NewRecorder()
	VendorPayoutHistory(svc, nil)(resp, withVendor(httptest.NewRequest(http.MethodGet, "/api/v1/vendor/payouts?page=zero", nil), uuid.New()))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestAdminSettleOrder(t *testing.T) {
	orderID := uuid.New()
	svc := &stubSettler{}
	router := chi.NewRouter()
	router.Post("/orders/{orderId}/settle", AdminSettleOrder(svc, nil))

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/orders/"+orderID.String()+"/settle", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", resp.Code, resp.Body.String())
	}
	if svc.orderID != orderID {
		t.Fatalf("expected order %s, got %s", orderID, svc.orderID)
	}

	var envelope struct {
		Data payoutsvc.SettleResult `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !envelope.Data.Success || len(envelope.Data.Payouts) != 1 || envelope.Data.Payouts[0].Amount != 5700 {
		t.Fatalf("unexpected result %+v", envelope.Data)
	}
}

func TestAdminSettleOrderErrors(t *testing.T) {
	router := chi.NewRouter()
	svc := &stubSettler{err: pkgerrors.New(pkgerrors.CodeStateConflict, "order not paid")}
	router.Post("/orders/{orderId}/settle", AdminSettleOrder(svc, nil))

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/orders/not-a-uuid/settle", nil))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}

	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/orders/"+uuid.NewString()+"/settle", nil))
	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.Code)
	}
}
