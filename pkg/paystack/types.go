package paystack

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Meta is the pagination block returned by list endpoints.
type Meta struct {
	Total     FlexInt `json:"total"`
	Skipped   FlexInt `json:"skipped"`
	PerPage   FlexInt `json:"perPage"`
	Page      FlexInt `json:"page"`
	PageCount FlexInt `json:"pageCount"`
}

// FlexInt decodes integers Paystack sometimes sends as quoted strings.
type FlexInt int64

// UnmarshalJSON accepts both 25 and "25".
func (f *FlexInt) UnmarshalJSON(b []byte) error {
	trimmed := bytes.Trim(bytes.TrimSpace(b), `"`)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseInt(string(trimmed), 10, 64)
	if err != nil {
		return fmt.Errorf("paystack: invalid integer %s: %w", string(b), err)
	}
	*f = FlexInt(v)
	return nil
}

// Int returns the value as an int.
func (f FlexInt) Int() int {
	return int(f)
}

// Subaccount mirrors the subaccount object in Paystack responses.
type Subaccount struct {
	ID                  int64     `json:"id"`
	SubaccountCode      string    `json:"subaccount_code"`
	BusinessName        string    `json:"business_name"`
	Description         string    `json:"description"`
	SettlementBank      string    `json:"settlement_bank"`
	BankID              int64     `json:"bank_id"`
	AccountNumber       string    `json:"account_number"`
	AccountName         string    `json:"account_name"`
	PercentageCharge    float64   `json:"percentage_charge"`
	SettlementSchedule  string    `json:"settlement_schedule"`
	Currency            string    `json:"currency"`
	Active              bool      `json:"active"`
	IsVerified          bool      `json:"is_verified"`
	PrimaryContactEmail string    `json:"primary_contact_email"`
	CreatedAt           time.Time `json:"createdAt"`
	UpdatedAt           time.Time `json:"updatedAt"`
}

// SubaccountMetadata is stored on the Paystack side to tie the subaccount back to a store.
type SubaccountMetadata struct {
	StoreID  string `json:"store_id"`
	VendorID string `json:"vendor_id"`
}

// CreateSubaccountRequest is the body of POST /subaccount.
type CreateSubaccountRequest struct {
	BusinessName     string  `json:"business_name"`
	SettlementBank   string  `json:"settlement_bank"`
	AccountNumber    string  `json:"account_number"`
	PercentageCharge float64 `json:"percentage_charge"`
	Description      string  `json:"description,omitempty"`
	// Metadata is sent as a stringified JSON object.
	Metadata string `json:"metadata,omitempty"`
}

// UpdateSubaccountRequest is the body of PUT /subaccount/{code}. Nil fields are omitted.
type UpdateSubaccountRequest struct {
	BusinessName       *string  `json:"business_name,omitempty"`
	SettlementBank     *string  `json:"settlement_bank,omitempty"`
	AccountNumber      *string  `json:"account_number,omitempty"`
	PercentageCharge   *float64 `json:"percentage_charge,omitempty"`
	Description        *string  `json:"description,omitempty"`
	Active             *bool    `json:"active,omitempty"`
	SettlementSchedule *string  `json:"settlement_schedule,omitempty"`
}

// IsEmpty reports whether no field was supplied.
func (r UpdateSubaccountRequest) IsEmpty() bool {
	return r.BusinessName == nil && r.SettlementBank == nil && r.AccountNumber == nil &&
		r.PercentageCharge == nil && r.Description == nil && r.Active == nil && r.SettlementSchedule == nil
}

// Settlement mirrors one entry of GET /settlement.
type Settlement struct {
	ID              int64     `json:"id"`
	Domain          string    `json:"domain"`
	Status          string    `json:"status"`
	Currency        string    `json:"currency"`
	TotalAmount     int64     `json:"total_amount"`
	EffectiveAmount int64     `json:"effective_amount"`
	TotalFees       int64     `json:"total_fees"`
	TotalProcessed  int64     `json:"total_processed"`
	Deductions      *int64    `json:"deductions"`
	SettlementDate  time.Time `json:"settlement_date"`
	SettledBy       *string   `json:"settled_by"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// IsSettled reports whether funds for the settlement have been disbursed.
func (s Settlement) IsSettled() bool {
	switch s.Status {
	case "success", "processed":
		return true
	}
	return false
}

// SettlementTransaction is a charge included in a settlement.
type SettlementTransaction struct {
	ID        int64      `json:"id"`
	Reference string     `json:"reference"`
	Amount    int64      `json:"amount"`
	Status    string     `json:"status"`
	Currency  string     `json:"currency"`
	PaidAt    *time.Time `json:"paid_at"`
	CreatedAt time.Time  `json:"createdAt"`
}

// ListParams are the page-based query parameters shared by list endpoints.
type ListParams struct {
	Page    int
	PerPage int
	From    *time.Time
	To      *time.Time
}

func (p ListParams) values() map[string]string {
	out := map[string]string{}
	if p.Page > 0 {
		out["page"] = strconv.Itoa(p.Page)
	}
	if p.PerPage > 0 {
		out["perPage"] = strconv.Itoa(p.PerPage)
	}
	if p.From != nil {
		out["from"] = p.From.UTC().Format(time.RFC3339)
	}
	if p.To != nil {
		out["to"] = p.To.UTC().Format(time.RFC3339)
	}
	return out
}

func encodeMetadata(meta SubaccountMetadata) (string, error) {
	raw, err := json.Marshal(meta)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
