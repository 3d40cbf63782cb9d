package subaccounts

import (
	"context"
	"net/http"

	"github.com/angelmondragon/splitpay-backend/api/controllers/vendorcontext"
	"github.com/angelmondragon/splitpay-backend/api/responses"
	"github.com/angelmondragon/splitpay-backend/api/validators"
	settlementsvc "github.com/angelmondragon/splitpay-backend/internal/settlements"
	pkgerrors "github.com/angelmondragon/splitpay-backend/pkg/errors"
	"github.com/angelmondragon/splitpay-backend/pkg/logger"
)

type SettlementReader interface {
	GetSettlements(ctx context.Context, accountCode string, page, perPage int) (*settlementsvc.SettlementPage, error)
}

// VendorSettlements lists the gateway settlements paid into the vendor's subaccount.
func VendorSettlements(svc SettlementReader, finder vendorcontext.StoreFinder, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settlement service unavailable"))
			return
		}

		store, err := vendorcontext.ResolveVendorStore(r, finder)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if store.PaystackAccountCode == nil || *store.PaystackAccountCode == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "payout account not found"))
			return
		}

		paging, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		result, err := svc.GetSettlements(ctx, *store.PaystackAccountCode, paging.Page, paging.PerPage)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
