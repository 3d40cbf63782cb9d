package subaccounts

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/splitpay-backend/api/controllers/vendorcontext"
	"github.com/angelmondragon/splitpay-backend/api/responses"
	"github.com/angelmondragon/splitpay-backend/api/validators"
	subaccountsvc "github.com/angelmondragon/splitpay-backend/internal/subaccounts"
	"github.com/angelmondragon/splitpay-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/splitpay-backend/pkg/errors"
	"github.com/angelmondragon/splitpay-backend/pkg/logger"
	"github.com/angelmondragon/splitpay-backend/pkg/pagination"
	"github.com/angelmondragon/splitpay-backend/pkg/paystack"
)

const maxAccountCodeLen = 64

// AccountService is the subaccount adapter surface the handlers need.
type AccountService interface {
	CreateAccount(ctx context.Context, input subaccountsvc.CreateAccountInput) (*subaccountsvc.AccountLink, error)
	UpdateAccount(ctx context.Context, accountCode string, input subaccountsvc.UpdateAccountInput) (*subaccountsvc.AccountLink, error)
	GetAccount(ctx context.Context, accountCode string) (*paystack.Subaccount, error)
	ListAccounts(ctx context.Context, page, perPage int) ([]paystack.Subaccount, error)
	CheckOwnership(ctx context.Context, vendorID uuid.UUID, accountCode string) (*models.Store, error)
}

type createSubaccountRequest struct {
	StoreID       *uuid.UUID `json:"storeId"`
	BusinessName  string     `json:"businessName" validate:"required"`
	AccountNumber string     `json:"accountNumber" validate:"required"`
	BankCode      string     `json:"bankCode" validate:"required"`
	FeePercent    *float64   `json:"feePercent"`
	Description   string     `json:"description"`
}

type adminSubaccountsResponse struct {
	Subaccounts []paystack.Subaccount `json:"subaccounts"`
	Page        int                   `json:"page"`
	PerPage     int                   `json:"perPage"`
}

// VendorSubaccountCreate links the vendor's store to a new gateway subaccount.
// The store defaults to the vendor's own when storeId is omitted.
func VendorSubaccountCreate(svc AccountService, finder vendorcontext.StoreFinder, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "subaccount service unavailable"))
			return
		}

		vendorID, err := vendorcontext.ResolveVendorID(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var body createSubaccountRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		storeID := uuid.Nil
		if body.StoreID != nil {
			storeID = *body.StoreID
		} else {
			store, err := vendorcontext.ResolveVendorStore(r, finder)
			if err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}
			storeID = store.ID
		}

		link, err := svc.CreateAccount(ctx, subaccountsvc.CreateAccountInput{
			VendorID:      vendorID,
			StoreID:       storeID,
			BusinessName:  body.BusinessName,
			AccountNumber: body.AccountNumber,
			BankCode:      body.BankCode,
			FeePercent:    body.FeePercent,
			Description:   validators.SanitizeString(body.Description, 500),
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, link)
	}
}

// VendorSubaccountUpdate applies a partial update to a subaccount the vendor owns.
func VendorSubaccountUpdate(svc AccountService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "subaccount service unavailable"))
			return
		}

		code, err := ownedAccountCode(r, svc)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var body subaccountsvc.UpdateAccountInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		link, err := svc.UpdateAccount(ctx, code, body)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, link)
	}
}

// VendorSubaccountFetch returns the gateway view of a subaccount the vendor owns.
func VendorSubaccountFetch(svc AccountService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "subaccount service unavailable"))
			return
		}

		code, err := ownedAccountCode(r, svc)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		sub, err := svc.GetAccount(ctx, code)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, sub)
	}
}

// AdminSubaccountList pages through every subaccount on the platform account.
func AdminSubaccountList(svc AccountService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "subaccount service unavailable"))
			return
		}

		paging, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		subs, err := svc.ListAccounts(ctx, paging.Page, paging.PerPage)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		params := pagination.Normalize(paging.Page, paging.PerPage)
		responses.WriteSuccess(w, adminSubaccountsResponse{
			Subaccounts: subs,
			Page:        params.Page,
			PerPage:     params.PerPage,
		})
	}
}

func ownedAccountCode(r *http.Request, svc AccountService) (string, error) {
	vendorID, err := vendorcontext.ResolveVendorID(r)
	if err != nil {
		return "", err
	}
	code := validators.SanitizeString(chi.URLParam(r, "code"), maxAccountCodeLen)
	if code == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "account code is required")
	}
	if _, err := svc.CheckOwnership(r.Context(), vendorID, code); err != nil {
		return "", err
	}
	return code, nil
}
