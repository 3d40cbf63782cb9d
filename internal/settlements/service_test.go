package settlements

import (
	"context"
	"errors"
	"testing"
	"time"

	pkgerrors "github.com/angelmondragon/splitpay-backend/pkg/errors"
	"github.com/angelmondragon/splitpay-backend/pkg/paystack"
)

type stubGateway struct {
	code        string
	params      paystack.ListParams
	settlements []paystack.Settlement
	txs         []paystack.SettlementTransaction
	meta        *paystack.Meta
	err         error
	calls       int
}

func (g *stubGateway) ListSettlements(ctx context.Context, code string, params paystack.ListParams) ([]paystack.Settlement, *paystack.Meta, error) {
	g.calls++
	g.code = code
	g.params = params
	return g.settlements, g.meta, g.err
}

func (g *stubGateway) ListSettlementTransactions(ctx context.Context, settlementID int64, params paystack.ListParams) ([]paystack.SettlementTransaction, *paystack.Meta, error) {
	g.calls++
	g.params = params
	return g.txs, g.meta, g.err
}

func TestGetSettlementsUsesProviderMeta(t *testing.T) {
	gw := &stubGateway{
		settlements: []paystack.Settlement{{ID: 1, Status: "success"}, {ID: 2, Status: "pending"}},
		meta:        &paystack.Meta{Total: 42, Page: 2, PerPage: 10, PageCount: 5},
	}
	svc, err := NewService(gw)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	page, err := svc.GetSettlements(context.Background(), " ACCT_a ", 2, 10)
	if err != nil {
		t.Fatalf("GetSettlements: %v", err)
	}
	if gw.code != "ACCT_a" {
		t.Fatalf("expected trimmed code, got %q", gw.code)
	}
	if gw.params.Page != 2 || gw.params.PerPage != 10 || gw.params.From != nil {
		t.Fatalf("unexpected params %+v", gw.params)
	}
	if len(page.Settlements) != 2 {
		t.Fatalf("expected 2 settlements, got %d", len(page.Settlements))
	}
	if page.Pagination.Total != 42 || page.Pagination.PageCount != 5 || page.Pagination.Page != 2 || page.Pagination.PerPage != 10 {
		t.Fatalf("unexpected pagination %+v", page.Pagination)
	}
}

func TestGetSettlementsDefaultsPaging(t *testing.T) {
	gw := &stubGateway{}
	svc, _ := NewService(gw)

	page, err := svc.GetSettlements(context.Background(), "ACCT_a", 0, 0)
	if err != nil {
		t.Fatalf("GetSettlements: %v", err)
	}
	if gw.params.Page != 1 || gw.params.PerPage != 25 {
		t.Fatalf("expected defaults 1/25, got %+v", gw.params)
	}
	if page.Settlements == nil || len(page.Settlements) != 0 {
		t.Fatalf("expected empty non-nil slice")
	}
	if page.Pagination.Total != 0 || page.Pagination.PageCount != 0 {
		t.Fatalf("unexpected pagination %+v", page.Pagination)
	}

	if _, err := svc.GetSettlements(context.Background(), "ACCT_a", 1, 1000); err != nil {
		t.Fatalf("GetSettlements: %v", err)
	}
	if gw.params.PerPage != 100 {
		t.Fatalf("expected perPage clamped to 100, got %d", gw.params.PerPage)
	}
}

func TestGetSettlementsRequiresCode(t *testing.T) {
	gw := &stubGateway{}
	svc, _ := NewService(gw)

	if _, err := svc.GetSettlements(context.Background(), "  ", 1, 10); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if gw.calls != 0 {
		t.Fatalf("gateway must not be called")
	}
}

func TestGetSettlementsGatewayErrors(t *testing.T) {
	typed := pkgerrors.New(pkgerrors.CodeGateway, "Invalid subaccount")
	svc, _ := NewService(&stubGateway{err: typed})
	_, err := svc.GetSettlements(context.Background(), "ACCT_a", 1, 10)
	if got := pkgerrors.As(err); got == nil || got.Message() != "Invalid subaccount" {
		t.Fatalf("expected provider message preserved, got %v", err)
	}

	svc, _ = NewService(&stubGateway{err: errors.New("timeout")})
	if _, err := svc.GetSettlements(context.Background(), "ACCT_a", 1, 10); !pkgerrors.IsCode(err, pkgerrors.CodeGateway) {
		t.Fatalf("expected gateway code, got %v", err)
	}
}

func TestGetSettlementsSinceSendsFromBound(t *testing.T) {
	gw := &stubGateway{}
	svc, _ := NewService(gw)

	since := time.Date(2026, 9, 1, 12, 0, 0, 0, time.FixedZone("WAT", 3600))
	if _, err := svc.GetSettlementsSince(context.Background(), "ACCT_a", since, 1, 50); err != nil {
		t.Fatalf("GetSettlementsSince: %v", err)
	}
	if gw.params.From == nil || !gw.params.From.Equal(since) || gw.params.From.Location() != time.UTC {
		t.Fatalf("expected UTC from bound, got %v", gw.params.From)
	}
}

func TestGetSettlementTransactions(t *testing.T) {
	gw := &stubGateway{txs: []paystack.SettlementTransaction{{Reference: "ref-1"}, {Reference: "ref-2"}}}
	svc, _ := NewService(gw)

	page, err := svc.GetSettlementTransactions(context.Background(), 7, 1, 2)
	if err != nil {
		t.Fatalf("GetSettlementTransactions: %v", err)
	}
	if len(page.Transactions) != 2 {
		t.Fatalf("expected 2 transactions, got %d", len(page.Transactions))
	}
	if page.Pagination.Total != 2 || page.Pagination.PageCount != 1 {
		t.Fatalf("unexpected fallback pagination %+v", page.Pagination)
	}

	if _, err := svc.GetSettlementTransactions(context.Background(), 0, 1, 2); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestNewServiceRequiresGateway(t *testing.T) {
	if _, err := NewService(nil); err == nil {
		t.Fatal("expected error")
	}
}
