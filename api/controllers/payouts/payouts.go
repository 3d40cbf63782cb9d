package payouts

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/splitpay-backend/api/controllers/vendorcontext"
	"github.com/angelmondragon/splitpay-backend/api/responses"
	"github.com/angelmondragon/splitpay-backend/api/validators"
	payoutsvc "github.com/angelmondragon/splitpay-backend/internal/payouts"
	pkgerrors "github.com/angelmondragon/splitpay-backend/pkg/errors"
	"github.com/angelmondragon/splitpay-backend/pkg/logger"
)

type EarningsService interface {
	GetEarnings(ctx context.Context, vendorID uuid.UUID, rng *payoutsvc.DateRange) (*payoutsvc.Earnings, error)
	GetPayoutHistory(ctx context.Context, vendorID uuid.UUID, page, perPage int) (*payoutsvc.PayoutHistory, error)
}

type SettleService interface {
	Settle(ctx context.Context, orderID uuid.UUID) (*payoutsvc.SettleResult, error)
}

// VendorEarnings totals the vendor's payouts within an optional from/to window.
func VendorEarnings(svc EarningsService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payout service unavailable"))
			return
		}

		vendorID, err := vendorcontext.ResolveVendorID(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		from, err := validators.ParseQueryDate(r, "from", false)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		to, err := validators.ParseQueryDate(r, "to", true)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var rng *payoutsvc.DateRange
		if from != nil || to != nil {
			rng = &payoutsvc.DateRange{From: from, To: to}
		}

		earnings, err := svc.GetEarnings(ctx, vendorID, rng)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, earnings)
	}
}

// VendorPayoutHistory pages through the vendor's payouts newest first.
func VendorPayoutHistory(svc EarningsService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payout service unavailable"))
			return
		}

		vendorID, err := vendorcontext.ResolveVendorID(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		paging, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		history, err := svc.GetPayoutHistory(ctx, vendorID, paging.Page, paging.PerPage)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, history)
	}
}

// AdminSettleOrder runs settlement for a paid order. Replays return the payouts
// already recorded.
func AdminSettleOrder(svc SettleService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payout service unavailable"))
			return
		}

		orderID, err := uuid.Parse(strings.TrimSpace(chi.URLParam(r, "orderId")))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id"))
			return
		}

		result, err := svc.Settle(ctx, orderID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
