package paystackwebhook

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/splitpay-backend/internal/orders"
	"github.com/angelmondragon/splitpay-backend/internal/payouts"
	pkgerrors "github.com/angelmondragon/splitpay-backend/pkg/errors"
	"github.com/angelmondragon/splitpay-backend/pkg/logger"
	"github.com/angelmondragon/splitpay-backend/pkg/paystack"
)

type paymentConfirmer interface {
	ConfirmPayment(ctx context.Context, input orders.ConfirmPaymentInput) (*orders.PaymentConfirmation, error)
}

type settler interface {
	Settle(ctx context.Context, orderID uuid.UUID) (*payouts.SettleResult, error)
}

type ServiceParams struct {
	Orders  paymentConfirmer
	Payouts settler
	Logger  *logger.Logger
}

// Service turns verified Paystack deliveries into order payments and settlements.
type Service struct {
	orders  paymentConfirmer
	payouts settler
	logg    *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Orders == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "orders service required")
	}
	if params.Payouts == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payouts service required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &Service{
		orders:  params.Orders,
		payouts: params.Payouts,
		logg:    params.Logger,
	}, nil
}

// DeliveryKey returns the idempotency key for an event, or "" when the event is
// not processed and needs no guard.
func DeliveryKey(event *paystack.WebhookEvent) (string, error) {
	if event == nil || event.Event != paystack.EventChargeSuccess {
		return "", nil
	}
	charge, err := decodeCharge(event)
	if err != nil {
		return "", err
	}
	return event.Event + ":" + charge.Reference, nil
}

// HandleEvent processes one delivery. Events other than charge.success are ignored.
func (s *Service) HandleEvent(ctx context.Context, event *paystack.WebhookEvent) error {
	if event == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "paystack event required")
	}
	ctx = s.logg.WithField(ctx, "webhook_event", event.Event)

	switch event.Event {
	case paystack.EventChargeSuccess:
		charge, err := decodeCharge(event)
		if err != nil {
			return err
		}
		return s.handleChargeSuccess(ctx, charge)
	default:
		s.logg.Info(ctx, "paystack event ignored")
		return nil
	}
}

func (s *Service) handleChargeSuccess(ctx context.Context, charge *paystack.ChargeData) error {
	if !strings.EqualFold(charge.Status, "success") {
		s.logg.Warn(s.logg.WithField(ctx, "charge_status", charge.Status), "charge.success delivered without success status")
		return nil
	}
	ctx = s.logg.WithField(ctx, "payment_reference", charge.Reference)

	input := orders.ConfirmPaymentInput{Reference: charge.Reference}
	if raw := strings.TrimSpace(charge.Metadata.OrderID); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			s.logg.Warn(s.logg.WithField(ctx, "metadata_order_id", raw), "ignoring malformed order id in charge metadata")
		} else {
			input.OrderID = id
		}
	}

	confirmation, err := s.orders.ConfirmPayment(ctx, input)
	if err != nil {
		return err
	}
	order := confirmation.Order
	ctx = s.logg.WithOrderID(ctx, order.ID.String())
	if charge.Amount != order.Total {
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
			"charge_amount": charge.Amount,
			"order_total":   order.Total,
		}), "charged amount differs from order total")
	}

	result, err := s.payouts.Settle(ctx, order.ID)
	if err != nil {
		return err
	}
	succeeded, failed := result.Counts()
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"already_paid": confirmation.AlreadyPaid,
		"succeeded":    succeeded,
		"failed":       failed,
	}), "charge settled")
	return nil
}

func decodeCharge(event *paystack.WebhookEvent) (*paystack.ChargeData, error) {
	var charge paystack.ChargeData
	if err := json.Unmarshal(event.Data, &charge); err != nil {
		return nil, pkgerrors.Wrapf(pkgerrors.CodeValidation, err, "decode %s data", event.Event)
	}
	charge.Reference = strings.TrimSpace(charge.Reference)
	if charge.Reference == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "charge reference missing")
	}
	return &charge, nil
}
