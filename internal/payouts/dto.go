package payouts

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/splitpay-backend/pkg/db/models"
	"github.com/angelmondragon/splitpay-backend/pkg/enums"
	"github.com/angelmondragon/splitpay-backend/pkg/pagination"
)

// SettleResult is the outcome of settling one order.
type SettleResult struct {
	Success bool           `json:"success"`
	Message string         `json:"message,omitempty"`
	OrderID uuid.UUID      `json:"orderId"`
	Payouts []PayoutResult `json:"payouts"`
}

// PayoutResult describes what happened to one vendor group.
type PayoutResult struct {
	VendorID    uuid.UUID          `json:"vendorId"`
	StoreID     uuid.UUID          `json:"storeId"`
	PayoutID    *uuid.UUID         `json:"payoutId,omitempty"`
	Amount      int64              `json:"amount"`
	PlatformFee int64              `json:"platformFee"`
	TotalAmount int64              `json:"totalAmount"`
	Status      enums.PayoutStatus `json:"status"`
	Existing    bool               `json:"existing"`
	Failure     *GroupFailure      `json:"failure,omitempty"`
}

// Succeeded reports whether the group has a persisted payout.
func (r PayoutResult) Succeeded() bool {
	return r.Failure == nil
}

// Counts returns how many groups hold a payout and how many failed.
func (r *SettleResult) Counts() (succeeded, failed int) {
	if r == nil {
		return 0, 0
	}
	for _, p := range r.Payouts {
		if p.Succeeded() {
			succeeded++
		} else {
			failed++
		}
	}
	return succeeded, failed
}

// DateRange bounds a query on created_at. Both ends are inclusive and optional.
type DateRange struct {
	From *time.Time
	To   *time.Time
}

// PayoutDTO is the vendor-facing view of a payout.
type PayoutDTO struct {
	ID                  uuid.UUID          `json:"id"`
	OrderID             uuid.UUID          `json:"orderId"`
	StoreID             uuid.UUID          `json:"storeId"`
	Amount              int64              `json:"amount"`
	PlatformFee         int64              `json:"platformFee"`
	TotalAmount         int64              `json:"totalAmount"`
	Status              enums.PayoutStatus `json:"status"`
	SubaccountCode      string             `json:"subaccountCode"`
	SettlementReference *string            `json:"settlementReference,omitempty"`
	Items               []PayoutItemDTO    `json:"items"`
	CompletedAt         *time.Time         `json:"completedAt,omitempty"`
	CreatedAt           time.Time          `json:"createdAt"`
}

// PayoutItemDTO is one line of a payout breakdown.
type PayoutItemDTO struct {
	ProductID   uuid.UUID `json:"productId"`
	ProductName string    `json:"productName,omitempty"`
	Quantity    int       `json:"quantity"`
	Price       int64     `json:"price"`
	Total       int64     `json:"total"`
}

// Earnings aggregates a vendor's payouts.
type Earnings struct {
	TotalEarnings  int64       `json:"totalEarnings"`
	TotalPayouts   int64       `json:"totalPayouts"`
	PendingPayouts int64       `json:"pendingPayouts"`
	PlatformFees   int64       `json:"platformFees"`
	Payouts        []PayoutDTO `json:"payouts"`
}

// HistoryEntry is a payout joined with its originating order.
type HistoryEntry struct {
	PayoutDTO
	PaymentReference *string `json:"paymentReference,omitempty"`
	OrderTotal       int64   `json:"orderTotal"`
}

// PayoutHistory is one page of a vendor's payouts.
type PayoutHistory struct {
	Payouts    []HistoryEntry  `json:"payouts"`
	Pagination pagination.Page `json:"pagination"`
}

// ToDTO converts a payout row into its vendor-facing view.
func ToDTO(p models.VendorPayout) PayoutDTO {
	items := make([]PayoutItemDTO, 0, len(p.Metadata.Items))
	for _, item := range p.Metadata.Items {
		items = append(items, PayoutItemDTO{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			Price:       item.Price,
			Total:       item.Total,
		})
	}
	return PayoutDTO{
		ID:                  p.ID,
		OrderID:             p.OrderID,
		StoreID:             p.StoreID,
		Amount:              p.Amount,
		PlatformFee:         p.PlatformFee,
		TotalAmount:         p.TotalAmount,
		Status:              p.Status,
		SubaccountCode:      p.SubaccountCode,
		SettlementReference: p.SettlementReference,
		Items:               items,
		CompletedAt:         p.CompletedAt,
		CreatedAt:           p.CreatedAt,
	}
}

// SummarizeEarnings folds payouts into the earnings totals.
func SummarizeEarnings(rows []models.VendorPayout) *Earnings {
	earnings := &Earnings{Payouts: make([]PayoutDTO, 0, len(rows))}
	for _, row := range rows {
		earnings.TotalEarnings += row.Amount + row.PlatformFee
		earnings.PlatformFees += row.PlatformFee
		switch {
		case row.Status == enums.PayoutStatusCompleted:
			earnings.TotalPayouts += row.Amount
		case row.Status.IsOutstanding():
			earnings.PendingPayouts += row.Amount
		}
		earnings.Payouts = append(earnings.Payouts, ToDTO(row))
	}
	return earnings
}
