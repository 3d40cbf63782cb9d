package cron

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/splitpay-backend/internal/orderevents"
	"github.com/angelmondragon/splitpay-backend/internal/payouts"
	"github.com/angelmondragon/splitpay-backend/internal/settlements"
	"github.com/angelmondragon/splitpay-backend/pkg/db/models"
	"github.com/angelmondragon/splitpay-backend/pkg/enums"
	"github.com/angelmondragon/splitpay-backend/pkg/logger"
	"github.com/angelmondragon/splitpay-backend/pkg/outbox"
)

const (
	defaultReconcileLookback  = 30 * 24 * time.Hour
	defaultReconcilePageLimit = 5
	reconcilePageSize         = 50
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type linkedStoreLister interface {
	ListWithActiveSubaccount(ctx context.Context) ([]models.Store, error)
}

type settlementReader interface {
	GetSettlementsSince(ctx context.Context, accountCode string, since time.Time, page, perPage int) (*settlements.SettlementPage, error)
	GetSettlementTransactions(ctx context.Context, settlementID int64, page, perPage int) (*settlements.TransactionPage, error)
}

type eventAppender interface {
	Append(ctx context.Context, tx *gorm.DB, input orderevents.AppendInput) (*models.OrderEvent, error)
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// PayoutReconcileJobParams configures the settlement reconciliation job.
type PayoutReconcileJobParams struct {
	Logger      *logger.Logger
	DB          txRunner
	Stores      linkedStoreLister
	Payouts     payouts.Repository
	Settlements settlementReader
	Events      eventAppender
	Outbox      outboxPublisher
	Lookback    time.Duration
	PageLimit   int
	Now         func() time.Time
}

// PayoutCompletedEvent is the outbox payload queued when a payout is matched to a settlement.
type PayoutCompletedEvent struct {
	PayoutID            uuid.UUID `json:"payout_id"`
	OrderID             uuid.UUID `json:"order_id"`
	VendorID            uuid.UUID `json:"vendor_id"`
	StoreID             uuid.UUID `json:"store_id"`
	Amount              int64     `json:"amount"`
	PaymentReference    string    `json:"payment_reference"`
	SettlementReference string    `json:"settlement_reference"`
	CompletedAt         time.Time `json:"completed_at"`
}

// NewPayoutReconcileJob builds the job that moves PROCESSING payouts to COMPLETED
// once the gateway reports their charge as settled.
func NewPayoutReconcileJob(params PayoutReconcileJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Stores == nil {
		return nil, fmt.Errorf("store repository required")
	}
	if params.Payouts == nil {
		return nil, fmt.Errorf("payouts repository required")
	}
	if params.Settlements == nil {
		return nil, fmt.Errorf("settlements reader required")
	}
	if params.Events == nil {
		return nil, fmt.Errorf("order events service required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	lookback := params.Lookback
	if lookback <= 0 {
		lookback = defaultReconcileLookback
	}
	pageLimit := params.PageLimit
	if pageLimit <= 0 {
		pageLimit = defaultReconcilePageLimit
	}
	return &payoutReconcileJob{
		logg:        params.Logger,
		db:          params.DB,
		stores:      params.Stores,
		payouts:     params.Payouts,
		settlements: params.Settlements,
		events:      params.Events,
		outbox:      params.Outbox,
		lookback:    lookback,
		pageLimit:   pageLimit,
		now:         now,
	}, nil
}

type payoutReconcileJob struct {
	logg        *logger.Logger
	db          txRunner
	stores      linkedStoreLister
	payouts     payouts.Repository
	settlements settlementReader
	events      eventAppender
	outbox      outboxPublisher
	lookback    time.Duration
	pageLimit   int
	now         func() time.Time
}

func (j *payoutReconcileJob) Name() string { return "payout-reconcile" }

func (j *payoutReconcileJob) Run(ctx context.Context) error {
	logCtx := j.logg.WithField(ctx, "job", j.Name())
	logCtx = j.logg.WithField(logCtx, "event", "cron.job")

	linked, err := j.stores.ListWithActiveSubaccount(logCtx)
	if err != nil {
		return fmt.Errorf("list linked stores: %w", err)
	}

	var errs error
	completed := 0
	for i := range linked {
		n, err := j.reconcileStore(logCtx, &linked[i])
		completed += n
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("store %s: %w", linked[i].ID, err))
		}
	}

	reportCtx := j.logg.WithFields(logCtx, map[string]any{
		"stores":    len(linked),
		"completed": completed,
		"failures":  len(multierr.Errors(errs)),
	})
	j.logg.Info(reportCtx, "payout reconcile loop complete")
	return errs
}

func (j *payoutReconcileJob) reconcileStore(ctx context.Context, store *models.Store) (int, error) {
	if store.PaystackAccountCode == nil {
		return 0, nil
	}
	code := *store.PaystackAccountCode
	ctx = j.logg.WithFields(ctx, map[string]any{
		"store_id":     store.ID.String(),
		"account_code": code,
	})

	pending, err := j.payouts.ListProcessingByStore(ctx, store.ID)
	if err != nil {
		return 0, fmt.Errorf("list processing payouts: %w", err)
	}
	if len(pending) == 0 {
		return 0, nil
	}

	byReference, err := j.indexByReference(ctx, pending)
	if err != nil {
		return 0, err
	}
	if len(byReference) == 0 {
		return 0, nil
	}

	since := j.now().Add(-j.lookback)
	completed := 0
	for page := 1; page <= j.pageLimit && len(byReference) > 0; page++ {
		result, err := j.settlements.GetSettlementsSince(ctx, code, since, page, reconcilePageSize)
		if err != nil {
			return completed, fmt.Errorf("list settlements: %w", err)
		}
		for _, settlement := range result.Settlements {
			if !settlement.IsSettled() {
				continue
			}
			n, err := j.matchSettlement(ctx, settlement.ID, byReference)
			completed += n
			if err != nil {
				return completed, err
			}
			if len(byReference) == 0 {
				break
			}
		}
		if page >= result.Pagination.PageCount {
			break
		}
	}
	return completed, nil
}

// indexByReference keys PROCESSING payouts by the payment reference of their order.
func (j *payoutReconcileJob) indexByReference(ctx context.Context, pending []models.VendorPayout) (map[string]models.VendorPayout, error) {
	index := make(map[string]models.VendorPayout, len(pending))
	var missing []uuid.UUID
	for _, p := range pending {
		if p.Metadata.PaymentReference != "" {
			index[p.Metadata.PaymentReference] = p
			continue
		}
		missing = append(missing, p.OrderID)
	}
	if len(missing) == 0 {
		return index, nil
	}

	summaries, err := j.payouts.OrderSummaries(ctx, missing)
	if err != nil {
		return nil, fmt.Errorf("load order references: %w", err)
	}
	for _, p := range pending {
		if p.Metadata.PaymentReference != "" {
			continue
		}
		summary, ok := summaries[p.OrderID]
		if !ok || summary.PaymentReference == nil || *summary.PaymentReference == "" {
			j.logg.Warn(j.logg.WithOrderID(ctx, p.OrderID.String()), "processing payout has no payment reference")
			continue
		}
		index[*summary.PaymentReference] = p
	}
	return index, nil
}

func (j *payoutReconcileJob) matchSettlement(ctx context.Context, settlementID int64, byReference map[string]models.VendorPayout) (int, error) {
	settlementRef := strconv.FormatInt(settlementID, 10)
	completed := 0
	for page := 1; page <= j.pageLimit && len(byReference) > 0; page++ {
		result, err := j.settlements.GetSettlementTransactions(ctx, settlementID, page, reconcilePageSize)
		if err != nil {
			return completed, fmt.Errorf("list settlement %s transactions: %w", settlementRef, err)
		}
		for _, txn := range result.Transactions {
			payout, ok := byReference[txn.Reference]
			if !ok {
				continue
			}
			done, err := j.complete(ctx, payout, txn.Reference, settlementRef)
			if err != nil {
				return completed, err
			}
			delete(byReference, txn.Reference)
			if done {
				completed++
			}
		}
		if page >= result.Pagination.PageCount {
			break
		}
	}
	return completed, nil
}

func (j *payoutReconcileJob) complete(ctx context.Context, payout models.VendorPayout, paymentRef, settlementRef string) (bool, error) {
	ctx = j.logg.WithFields(ctx, map[string]any{
		"payout_id":            payout.ID.String(),
		"order_id":             payout.OrderID.String(),
		"settlement_reference": settlementRef,
	})
	completedAt := j.now().UTC()
	done := false

	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		ok, err := j.payouts.WithTx(tx).MarkCompleted(ctx, payout.ID, settlementRef, completedAt)
		if err != nil {
			return fmt.Errorf("mark payout completed: %w", err)
		}
		if !ok {
			return nil
		}
		done = true

		if _, err := j.events.Append(ctx, tx, orderevents.AppendInput{
			OrderID:     payout.OrderID,
			Type:        enums.OrderEventPayoutCompleted,
			Description: fmt.Sprintf("payout to store %s settled in %s", payout.StoreID, settlementRef),
			Metadata: models.OrderEventMetadata{
				PaymentReference:    paymentRef,
				SettlementReference: settlementRef,
				Payouts: []models.PayoutEventRecord{{
					PayoutID:    &payout.ID,
					VendorID:    payout.VendorID,
					StoreID:     payout.StoreID,
					Amount:      payout.Amount,
					PlatformFee: payout.PlatformFee,
					Status:      enums.PayoutStatusCompleted,
				}},
				Succeeded: 1,
			},
		}); err != nil {
			return fmt.Errorf("append payout completed event: %w", err)
		}

		if j.outbox == nil {
			return nil
		}
		return j.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventVendorPayoutCompleted,
			AggregateType: enums.AggregateVendorPayout,
			AggregateID:   payout.ID,
			Data: PayoutCompletedEvent{
				PayoutID:            payout.ID,
				OrderID:             payout.OrderID,
				VendorID:            payout.VendorID,
				StoreID:             payout.StoreID,
				Amount:              payout.Amount,
				PaymentReference:    paymentRef,
				SettlementReference: settlementRef,
				CompletedAt:         completedAt,
			},
		})
	})
	if err != nil {
		return false, err
	}
	if done {
		j.logg.Info(ctx, "payout completed")
	}
	return done, nil
}
