package paystack

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	pkgerrors "github.com/angelmondragon/splitpay-backend/pkg/errors"
)

// CreateSubaccount registers a vendor's payable bank account.
func (c *Client) CreateSubaccount(ctx context.Context, req CreateSubaccountRequest) (*Subaccount, error) {
	var out Subaccount
	if _, err := c.do(ctx, call{
		operation: "create_subaccount",
		method:    http.MethodPost,
		path:      "subaccount",
		body:      req,
	}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateSubaccountFor builds the request metadata from store and vendor ids and creates the subaccount.
func (c *Client) CreateSubaccountFor(ctx context.Context, req CreateSubaccountRequest, meta SubaccountMetadata) (*Subaccount, error) {
	encoded, err := encodeMetadata(meta)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode subaccount metadata")
	}
	req.Metadata = encoded
	return c.CreateSubaccount(ctx, req)
}

// UpdateSubaccount sends only the supplied fields.
func (c *Client) UpdateSubaccount(ctx context.Context, code string, req UpdateSubaccountRequest) (*Subaccount, error) {
	trimmed := strings.TrimSpace(code)
	if trimmed == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "subaccount code is required")
	}
	var out Subaccount
	if _, err := c.do(ctx, call{
		operation: "update_subaccount",
		method:    http.MethodPut,
		path:      "subaccount/" + url.PathEscape(trimmed),
		body:      req,
	}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetSubaccount fetches one subaccount by code.
func (c *Client) GetSubaccount(ctx context.Context, code string) (*Subaccount, error) {
	trimmed := strings.TrimSpace(code)
	if trimmed == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "subaccount code is required")
	}
	var out Subaccount
	if _, err := c.do(ctx, call{
		operation: "get_subaccount",
		method:    http.MethodGet,
		path:      "subaccount/" + url.PathEscape(trimmed),
	}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListSubaccounts lists subaccounts on the integration.
func (c *Client) ListSubaccounts(ctx context.Context, params ListParams) ([]Subaccount, *Meta, error) {
	query := url.Values{}
	for k, v := range params.values() {
		query.Set(k, v)
	}
	var out []Subaccount
	meta, err := c.do(ctx, call{
		operation: "list_subaccounts",
		method:    http.MethodGet,
		path:      "subaccount",
		query:     query,
	}, &out)
	if err != nil {
		return nil, nil, err
	}
	return out, meta, nil
}
