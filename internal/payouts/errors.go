package payouts

import (
	"errors"

	"github.com/angelmondragon/splitpay-backend/internal/orders"
)

// IsOrderNotFound reports whether err aborted settlement because the order does not exist.
func IsOrderNotFound(err error) bool {
	return errors.Is(err, orders.ErrOrderNotFound)
}

// IsOrderNotPaid reports whether err aborted settlement because the order is unpaid.
func IsOrderNotPaid(err error) bool {
	return errors.Is(err, orders.ErrOrderNotPaid)
}

// FailureReason explains why a vendor group produced no payout.
type FailureReason string

const (
	FailureStoreVendorMissing    FailureReason = "store_vendor_missing"
	FailureGatewayAccountMissing FailureReason = "gateway_account_missing"
	FailurePersistence           FailureReason = "persistence_failed"
)

// GroupFailure is attached to a PayoutResult whose group could not be settled.
type GroupFailure struct {
	Reason  FailureReason `json:"reason"`
	Message string        `json:"message"`
}

func (f *GroupFailure) Error() string {
	if f == nil {
		return ""
	}
	return string(f.Reason) + ": " + f.Message
}
