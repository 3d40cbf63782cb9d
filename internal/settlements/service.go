package settlements

import (
	"context"
	"fmt"
	"strings"
	"time"

	pkgerrors "github.com/angelmondragon/splitpay-backend/pkg/errors"
	"github.com/angelmondragon/splitpay-backend/pkg/pagination"
	"github.com/angelmondragon/splitpay-backend/pkg/paystack"
)

// Gateway lists settlements from the payment provider.
type Gateway interface {
	ListSettlements(ctx context.Context, subaccountCode string, params paystack.ListParams) ([]paystack.Settlement, *paystack.Meta, error)
	ListSettlementTransactions(ctx context.Context, settlementID int64, params paystack.ListParams) ([]paystack.SettlementTransaction, *paystack.Meta, error)
}

// SettlementPage is one page of settlements for a subaccount.
type SettlementPage struct {
	Settlements []paystack.Settlement `json:"settlements"`
	Pagination  pagination.Page       `json:"pagination"`
}

// TransactionPage is one page of charges included in a settlement.
type TransactionPage struct {
	Transactions []paystack.SettlementTransaction `json:"transactions"`
	Pagination   pagination.Page                  `json:"pagination"`
}

// Service reads the provider's settlement ledger. Results are never cached.
type Service interface {
	GetSettlements(ctx context.Context, accountCode string, page, perPage int) (*SettlementPage, error)
	GetSettlementsSince(ctx context.Context, accountCode string, since time.Time, page, perPage int) (*SettlementPage, error)
	GetSettlementTransactions(ctx context.Context, settlementID int64, page, perPage int) (*TransactionPage, error)
}

type service struct {
	gateway Gateway
}

func NewService(gateway Gateway) (Service, error) {
	if gateway == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	return &service{gateway: gateway}, nil
}

func (s *service) GetSettlements(ctx context.Context, accountCode string, page, perPage int) (*SettlementPage, error) {
	return s.list(ctx, accountCode, nil, page, perPage)
}

func (s *service) GetSettlementsSince(ctx context.Context, accountCode string, since time.Time, page, perPage int) (*SettlementPage, error) {
	if since.IsZero() {
		return s.list(ctx, accountCode, nil, page, perPage)
	}
	from := since.UTC()
	return s.list(ctx, accountCode, &from, page, perPage)
}

func (s *service) list(ctx context.Context, accountCode string, from *time.Time, page, perPage int) (*SettlementPage, error) {
	code := strings.TrimSpace(accountCode)
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account code is required")
	}
	params := pagination.Normalize(page, perPage)

	rows, meta, err := s.gateway.ListSettlements(ctx, code, paystack.ListParams{
		Page:    params.Page,
		PerPage: params.PerPage,
		From:    from,
	})
	if err != nil {
		return nil, asGatewayError(err, "list settlements")
	}
	if rows == nil {
		rows = []paystack.Settlement{}
	}
	return &SettlementPage{Settlements: rows, Pagination: pageFromMeta(params, meta, len(rows))}, nil
}

func (s *service) GetSettlementTransactions(ctx context.Context, settlementID int64, page, perPage int) (*TransactionPage, error) {
	if settlementID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "settlement id is required")
	}
	params := pagination.Normalize(page, perPage)

	rows, meta, err := s.gateway.ListSettlementTransactions(ctx, settlementID, paystack.ListParams{
		Page:    params.Page,
		PerPage: params.PerPage,
	})
	if err != nil {
		return nil, asGatewayError(err, "list settlement transactions")
	}
	if rows == nil {
		rows = []paystack.SettlementTransaction{}
	}
	return &TransactionPage{Transactions: rows, Pagination: pageFromMeta(params, meta, len(rows))}, nil
}

// pageFromMeta prefers the provider's counts and falls back to the rows seen.
func pageFromMeta(params pagination.Params, meta *paystack.Meta, seen int) pagination.Page {
	if meta == nil {
		return pagination.NewPage(params, int64((params.Page-1)*params.PerPage+seen))
	}
	out := pagination.NewPage(params, int64(meta.Total))
	if pageCount := meta.PageCount.Int(); pageCount > 0 {
		out.PageCount = pageCount
	}
	return out
}

func asGatewayError(err error, op string) error {
	if typed := pkgerrors.As(err); typed != nil {
		return typed
	}
	return pkgerrors.Wrap(pkgerrors.CodeGateway, err, op)
}
