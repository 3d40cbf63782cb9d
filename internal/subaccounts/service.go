package subaccounts

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/angelmondragon/splitpay-backend/internal/stores"
	"github.com/angelmondragon/splitpay-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/splitpay-backend/pkg/errors"
	"github.com/angelmondragon/splitpay-backend/pkg/logger"
	"github.com/angelmondragon/splitpay-backend/pkg/pagination"
	"github.com/angelmondragon/splitpay-backend/pkg/paystack"
)

const defaultPercentageCharge = 5.0

// Gateway is the subset of the Paystack client the adapter calls.
type Gateway interface {
	CreateSubaccountFor(ctx context.Context, req paystack.CreateSubaccountRequest, meta paystack.SubaccountMetadata) (*paystack.Subaccount, error)
	UpdateSubaccount(ctx context.Context, code string, req paystack.UpdateSubaccountRequest) (*paystack.Subaccount, error)
	GetSubaccount(ctx context.Context, code string) (*paystack.Subaccount, error)
	ListSubaccounts(ctx context.Context, params paystack.ListParams) ([]paystack.Subaccount, *paystack.Meta, error)
}

type storeLinker interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Store, error)
	FindByAccountCode(ctx context.Context, code string) (*models.Store, error)
	UpdateGatewayLink(ctx context.Context, storeID uuid.UUID, accountCode string, active bool) error
	SetGatewayActive(ctx context.Context, accountCode string, active bool) (int64, error)
}

// Service manages the gateway subaccounts payouts are routed to.
type Service interface {
	CreateAccount(ctx context.Context, input CreateAccountInput) (*AccountLink, error)
	UpdateAccount(ctx context.Context, accountCode string, input UpdateAccountInput) (*AccountLink, error)
	GetAccount(ctx context.Context, accountCode string) (*paystack.Subaccount, error)
	ListAccounts(ctx context.Context, page, perPage int) ([]paystack.Subaccount, error)
	CheckOwnership(ctx context.Context, vendorID uuid.UUID, accountCode string) (*models.Store, error)
}

// CreateAccountInput registers a store's bank account with the gateway.
type CreateAccountInput struct {
	VendorID      uuid.UUID `json:"vendorId" validate:"required"`
	StoreID       uuid.UUID `json:"storeId" validate:"required"`
	BusinessName  string    `json:"businessName" validate:"required,max=200"`
	AccountNumber string    `json:"accountNumber" validate:"required,len=10,numeric"`
	BankCode      string    `json:"bankCode" validate:"required,max=20"`
	FeePercent    *float64  `json:"feePercent" validate:"omitempty,gte=0,lte=100"`
	Description   string    `json:"description" validate:"omitempty,max=500"`
}

// UpdateAccountInput carries a partial update. Nil fields are left untouched.
type UpdateAccountInput struct {
	BusinessName  *string  `json:"businessName" validate:"omitempty,min=1,max=200"`
	AccountNumber *string  `json:"accountNumber" validate:"omitempty,len=10,numeric"`
	BankCode      *string  `json:"bankCode" validate:"omitempty,min=1,max=20"`
	FeePercent    *float64 `json:"feePercent" validate:"omitempty,gte=0,lte=100"`
	Description   *string  `json:"description" validate:"omitempty,max=500"`
	Active        *bool    `json:"active"`
}

func (in UpdateAccountInput) toRequest() paystack.UpdateSubaccountRequest {
	return paystack.UpdateSubaccountRequest{
		BusinessName:     in.BusinessName,
		SettlementBank:   in.BankCode,
		AccountNumber:    in.AccountNumber,
		PercentageCharge: in.FeePercent,
		Description:      in.Description,
		Active:           in.Active,
	}
}

// AccountLink is the result of linking or updating a store's subaccount.
type AccountLink struct {
	AccountCode string `json:"accountCode"`
	AccountID   int64  `json:"accountId"`
	Active      bool   `json:"active"`
}

type service struct {
	gateway          Gateway
	stores           storeLinker
	logg             *logger.Logger
	validate         *validator.Validate
	percentageCharge float64
}

// NewService builds the adapter. percentageCharge is the platform share sent when
// a vendor does not supply one; zero selects the 5% default.
func NewService(gateway Gateway, stores storeLinker, logg *logger.Logger, percentageCharge float64) (Service, error) {
	if gateway == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	if stores == nil {
		return nil, fmt.Errorf("stores repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if percentageCharge <= 0 {
		percentageCharge = defaultPercentageCharge
	}
	return &service{
		gateway:          gateway,
		stores:           stores,
		logg:             logg,
		validate:         validator.New(),
		percentageCharge: percentageCharge,
	}, nil
}

func (s *service) CreateAccount(ctx context.Context, input CreateAccountInput) (*AccountLink, error) {
	input.BusinessName = strings.TrimSpace(input.BusinessName)
	input.AccountNumber = strings.TrimSpace(input.AccountNumber)
	input.BankCode = strings.TrimSpace(input.BankCode)
	if err := s.validate.Struct(input); err != nil {
		return nil, validationError(err)
	}

	ctx = s.logg.WithFields(ctx, map[string]any{
		"vendor_id": input.VendorID.String(),
		"store_id":  input.StoreID.String(),
	})

	store, err := s.stores.FindByID(ctx, input.StoreID)
	if err != nil {
		if errors.Is(err, stores.ErrNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "store not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load store")
	}
	if store.VendorID == nil || *store.VendorID != input.VendorID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "store not found")
	}
	if store.HasActiveSubaccount() {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "store already has an active payout account").
			WithDetails(map[string]any{"accountCode": *store.PaystackAccountCode})
	}

	charge := s.percentageCharge
	if input.FeePercent != nil {
		charge = *input.FeePercent
	}
	sub, err := s.gateway.CreateSubaccountFor(ctx, paystack.CreateSubaccountRequest{
		BusinessName:     input.BusinessName,
		SettlementBank:   input.BankCode,
		AccountNumber:    input.AccountNumber,
		PercentageCharge: charge,
		Description:      strings.TrimSpace(input.Description),
	}, paystack.SubaccountMetadata{
		StoreID:  input.StoreID.String(),
		VendorID: input.VendorID.String(),
	})
	if err != nil {
		return nil, asGatewayError(err, "create subaccount")
	}

	if err := s.stores.UpdateGatewayLink(ctx, store.ID, sub.SubaccountCode, true); err != nil {
		if errors.Is(err, stores.ErrAccountCodeTaken) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "payout account is linked to another store").
				WithDetails(map[string]any{"accountCode": sub.SubaccountCode})
		}
		s.logg.Error(s.logg.WithField(ctx, "account_code", sub.SubaccountCode), "subaccount created but store link failed", err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "link subaccount to store").
			WithDetails(map[string]any{"accountCode": sub.SubaccountCode})
	}

	s.logg.Info(s.logg.WithField(ctx, "account_code", sub.SubaccountCode), "subaccount linked")
	return &AccountLink{AccountCode: sub.SubaccountCode, AccountID: sub.ID, Active: true}, nil
}

func (s *service) UpdateAccount(ctx context.Context, accountCode string, input UpdateAccountInput) (*AccountLink, error) {
	code := strings.TrimSpace(accountCode)
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account code is required")
	}
	if err := s.validate.Struct(input); err != nil {
		return nil, validationError(err)
	}
	req := input.toRequest()
	if req.IsEmpty() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one field must be supplied")
	}

	ctx = s.logg.WithField(ctx, "account_code", code)
	sub, err := s.gateway.UpdateSubaccount(ctx, code, req)
	if err != nil {
		return nil, asGatewayError(err, "update subaccount")
	}

	active := sub.Active
	if input.Active != nil {
		active = *input.Active
		affected, err := s.stores.SetGatewayActive(ctx, code, active)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sync store payout flag")
		}
		if affected == 0 {
			s.logg.Warn(ctx, "no store linked to updated subaccount")
		}
	}

	return &AccountLink{AccountCode: sub.SubaccountCode, AccountID: sub.ID, Active: active}, nil
}

func (s *service) GetAccount(ctx context.Context, accountCode string) (*paystack.Subaccount, error) {
	code := strings.TrimSpace(accountCode)
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account code is required")
	}
	sub, err := s.gateway.GetSubaccount(ctx, code)
	if err != nil {
		return nil, asGatewayError(err, "get subaccount")
	}
	return sub, nil
}

func (s *service) ListAccounts(ctx context.Context, page, perPage int) ([]paystack.Subaccount, error) {
	params := pagination.Normalize(page, perPage)
	subs, _, err := s.gateway.ListSubaccounts(ctx, paystack.ListParams{Page: params.Page, PerPage: params.PerPage})
	if err != nil {
		return nil, asGatewayError(err, "list subaccounts")
	}
	if subs == nil {
		subs = []paystack.Subaccount{}
	}
	return subs, nil
}

// CheckOwnership resolves the store linked to accountCode and confirms vendorID owns it.
func (s *service) CheckOwnership(ctx context.Context, vendorID uuid.UUID, accountCode string) (*models.Store, error) {
	store, err := s.stores.FindByAccountCode(ctx, accountCode)
	if err != nil {
		if errors.Is(err, stores.ErrNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payout account not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load store")
	}
	if store.VendorID == nil || *store.VendorID != vendorID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payout account not found")
	}
	return store, nil
}

func asGatewayError(err error, op string) error {
	if typed := pkgerrors.As(err); typed != nil {
		return typed
	}
	return pkgerrors.Wrap(pkgerrors.CodeGateway, err, op)
}

func validationError(err error) error {
	var errs validator.ValidationErrors
	if errors.As(err, &errs) {
		details := make(map[string]string, len(errs))
		for _, fe := range errs {
			details[fe.Field()] = fe.Tag()
		}
		return pkgerrors.New(pkgerrors.CodeValidation, "validation failed").WithDetails(details)
	}
	return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "validation failed")
}
