package paystack

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	pkgerrors "github.com/angelmondragon/splitpay-backend/pkg/errors"
)

// ListSettlements lists settlements for one subaccount.
func (c *Client) ListSettlements(ctx context.Context, subaccountCode string, params ListParams) ([]Settlement, *Meta, error) {
	trimmed := strings.TrimSpace(subaccountCode)
	if trimmed == "" {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "subaccount code is required")
	}
	query := url.Values{}
	query.Set("subaccount", trimmed)
	for k, v := range params.values() {
		query.Set(k, v)
	}
	var out []Settlement
	meta, err := c.do(ctx, call{
		operation: "list_settlements",
		method:    http.MethodGet,
		path:      "settlement",
		query:     query,
	}, &out)
	if err != nil {
		return nil, nil, err
	}
	return out, meta, nil
}

// ListSettlementTransactions lists the charges disbursed by one settlement.
func (c *Client) ListSettlementTransactions(ctx context.Context, settlementID int64, params ListParams) ([]SettlementTransaction, *Meta, error) {
	if settlementID <= 0 {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "settlement id is required")
	}
	query := url.Values{}
	for k, v := range params.values() {
		query.Set(k, v)
	}
	var out []SettlementTransaction
	meta, err := c.do(ctx, call{
		operation: "list_settlement_transactions",
		method:    http.MethodGet,
		path:      "settlement/" + strconv.FormatInt(settlementID, 10) + "/transactions",
		query:     query,
	}, &out)
	if err != nil {
		return nil, nil, err
	}
	return out, meta, nil
}
