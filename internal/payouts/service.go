package payouts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/angelmondragon/splitpay-backend/internal/orderevents"
	"github.com/angelmondragon/splitpay-backend/internal/orders"
	"github.com/angelmondragon/splitpay-backend/pkg/db/models"
	"github.com/angelmondragon/splitpay-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/splitpay-backend/pkg/errors"
	"github.com/angelmondragon/splitpay-backend/pkg/logger"
	"github.com/angelmondragon/splitpay-backend/pkg/outbox"
	"github.com/angelmondragon/splitpay-backend/pkg/pagination"
)

const defaultSettleConcurrency = 4

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type orderDecomposer interface {
	DecomposeOrder(ctx context.Context, orderID uuid.UUID) (*orders.Decomposition, error)
}

type eventRecorder interface {
	Append(ctx context.Context, tx *gorm.DB, input orderevents.AppendInput) (*models.OrderEvent, error)
	HasEvent(ctx context.Context, orderID uuid.UUID, eventType enums.OrderEventType) (bool, error)
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type metricsRecorder interface {
	IncGroup(outcome string)
	IncRun(result string)
}

// Service settles paid orders into vendor payouts and serves vendor earnings.
type Service interface {
	Settle(ctx context.Context, orderID uuid.UUID) (*SettleResult, error)
	GetEarnings(ctx context.Context, vendorID uuid.UUID, rng *DateRange) (*Earnings, error)
	GetPayoutHistory(ctx context.Context, vendorID uuid.UUID, page, perPage int) (*PayoutHistory, error)
}

// ServiceParams wires the settlement service.
type ServiceParams struct {
	Repository  Repository
	Orders      orderDecomposer
	Events      eventRecorder
	Outbox      outboxPublisher
	Tx          txRunner
	Logger      *logger.Logger
	Metrics     metricsRecorder
	FeeRate     decimal.Decimal
	Concurrency int
}

type service struct {
	repo        Repository
	orders      orderDecomposer
	events      eventRecorder
	outbox      outboxPublisher
	tx          txRunner
	logg        *logger.Logger
	metrics     metricsRecorder
	feeRate     decimal.Decimal
	concurrency int
	now         func() time.Time
}

// VendorPayoutsProcessedEvent is the outbox payload queued after a settle run.
type VendorPayoutsProcessedEvent struct {
	OrderID          uuid.UUID      `json:"order_id"`
	PaymentReference string         `json:"payment_reference,omitempty"`
	Payouts          []PayoutResult `json:"payouts"`
	Succeeded        int            `json:"succeeded"`
	Failed           int            `json:"failed"`
}

// NewService builds the settlement service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repository == nil {
		return nil, fmt.Errorf("payouts repository required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("order decomposer required")
	}
	if params.Events == nil {
		return nil, fmt.Errorf("order events service required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}

	rate := params.FeeRate
	if rate.IsZero() {
		rate = DefaultFeeRate
	}
	if rate.IsNegative() || rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return nil, fmt.Errorf("fee rate must be within [0, 1), got %s", rate.String())
	}
	concurrency := params.Concurrency
	if concurrency <= 0 {
		concurrency = defaultSettleConcurrency
	}

	return &service{
		repo:        params.Repository,
		orders:      params.Orders,
		events:      params.Events,
		outbox:      params.Outbox,
		tx:          params.Tx,
		logg:        params.Logger,
		metrics:     params.Metrics,
		feeRate:     rate,
		concurrency: concurrency,
		now:         time.Now,
	}, nil
}

// Settle creates one payout per vendor group of a paid order. Repeated calls return
// the payouts already recorded instead of creating new ones.
func (s *service) Settle(ctx context.Context, orderID uuid.UUID) (*SettleResult, error) {
	ctx = s.logg.WithOrderID(ctx, orderID.String())
	result := &SettleResult{OrderID: orderID, Payouts: []PayoutResult{}}

	decomposition, err := s.orders.DecomposeOrder(ctx, orderID)
	if err != nil {
		result.Message = "settlement failed"
		if typed := pkgerrors.As(err); typed != nil {
			result.Message = typed.Message()
		}
		s.recordRun(runResult(err))
		s.logg.Warn(s.logg.WithField(ctx, "reason", result.Message), "settle aborted")
		return result, err
	}
	order := decomposition.Order

	existingRows, err := s.repo.ListByOrder(ctx, orderID)
	if err != nil {
		s.recordRun("error")
		result.Message = "settlement failed"
		return result, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load existing payouts")
	}
	existing := make(map[uuid.UUID]models.VendorPayout, len(existingRows))
	for _, row := range existingRows {
		existing[row.StoreID] = row
	}

	s.warnOnDrift(ctx, order, decomposition.Groups)

	results := make([]PayoutResult, len(decomposition.Groups))
	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, group := range decomposition.Groups {
		g.Go(func() error {
			results[i] = s.settleGroup(ctx, order, group, existing)
			return nil
		})
	}
	_ = g.Wait()

	result.Success = true
	result.Payouts = results
	succeeded, failed := result.Counts()
	for _, r := range results {
		s.recordGroup(r)
	}

	if err := s.recordSettlement(ctx, order, result); err != nil {
		s.recordRun("error")
		s.logg.Error(ctx, "failed to record settlement audit event", err)
		return result, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record settlement event")
	}

	s.recordRun("success")
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"groups":    len(results),
		"succeeded": succeeded,
		"failed":    failed,
	}), "order settled")
	return result, nil
}

func (s *service) settleGroup(ctx context.Context, order *models.Order, group orders.VendorGroup, existing map[uuid.UUID]models.VendorPayout) PayoutResult {
	ctx = s.logg.WithStoreID(ctx, group.StoreID.String())

	if group.StoreID != uuid.Nil {
		if row, ok := existing[group.StoreID]; ok {
			return existingResult(row)
		}
	}

	if !group.HasVendor() {
		return failedResult(group, FailureStoreVendorMissing, "store has no owning vendor")
	}
	code, ok := group.ActiveSubaccountCode()
	if !ok {
		return failedResult(group, FailureGatewayAccountMissing, "store has no active payout account")
	}

	fee, net := CalculateFee(group.Subtotal, s.feeRate)
	now := s.now().UTC()
	payout := &models.VendorPayout{
		ID:             uuid.New(),
		VendorID:       group.VendorID,
		StoreID:        group.StoreID,
		OrderID:        order.ID,
		Amount:         net,
		PlatformFee:    fee,
		TotalAmount:    group.Subtotal,
		Status:         enums.PayoutStatusPending,
		SubaccountCode: code,
		Metadata:       s.metadataFor(order, group),
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	var winner *models.VendorPayout
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		created, err := repo.Insert(ctx, payout)
		if err != nil {
			return err
		}
		if !created {
			winner, err = repo.FindByOrderAndStore(ctx, order.ID, group.StoreID)
			return err
		}
		if _, err := repo.MarkProcessing(ctx, payout.ID); err != nil {
			return err
		}
		payout.Status = enums.PayoutStatusProcessing
		return nil
	})
	if err != nil {
		s.logg.Error(ctx, "failed to persist vendor payout", err)
		return failedResult(group, FailurePersistence, "payout could not be saved")
	}
	if winner != nil {
		return existingResult(*winner)
	}

	id := payout.ID
	return PayoutResult{
		VendorID:    payout.VendorID,
		StoreID:     payout.StoreID,
		PayoutID:    &id,
		Amount:      payout.Amount,
		PlatformFee: payout.PlatformFee,
		TotalAmount: payout.TotalAmount,
		Status:      payout.Status,
	}
}

// recordSettlement appends the audit event and queues the outbox event in one
// transaction. A replay where every group already existed is skipped once the
// audit event is present.
func (s *service) recordSettlement(ctx context.Context, order *models.Order, result *SettleResult) error {
	if allExisting(result.Payouts) {
		recorded, err := s.events.HasEvent(ctx, order.ID, enums.OrderEventVendorPayoutsProcessed)
		if err != nil {
			return err
		}
		if recorded {
			return nil
		}
	}

	succeeded, failed := result.Counts()
	reference := paymentReference(order)
	records := make([]models.PayoutEventRecord, 0, len(result.Payouts))
	for _, p := range result.Payouts {
		record := models.PayoutEventRecord{
			PayoutID:    p.PayoutID,
			VendorID:    p.VendorID,
			StoreID:     p.StoreID,
			Amount:      p.Amount,
			PlatformFee: p.PlatformFee,
			Status:      p.Status,
		}
		if p.Failure != nil {
			record.FailureReason = string(p.Failure.Reason)
		}
		records = append(records, record)
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.events.Append(ctx, tx, orderevents.AppendInput{
			OrderID:     order.ID,
			Type:        enums.OrderEventVendorPayoutsProcessed,
			Description: fmt.Sprintf("vendor payouts processed: %d succeeded, %d failed", succeeded, failed),
			Metadata: models.OrderEventMetadata{
				PaymentReference: reference,
				Payouts:          records,
				Succeeded:        succeeded,
				Failed:           failed,
			},
		}); err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventVendorPayoutsProcessed,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Data: VendorPayoutsProcessedEvent{
				OrderID:          order.ID,
				PaymentReference: reference,
				Payouts:          result.Payouts,
				Succeeded:        succeeded,
				Failed:           failed,
			},
		})
	})
}

// warnOnDrift flags orders whose total differs from the sum of their line items.
// Per-group rounding is left as is.
func (s *service) warnOnDrift(ctx context.Context, order *models.Order, groups []orders.VendorGroup) {
	var sum int64
	for _, g := range groups {
		sum += g.Subtotal
	}
	if sum == order.Total {
		return
	}
	s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
		"order_total":    order.Total,
		"items_subtotal": sum,
		"drift":          order.Total - sum,
	}), "order total differs from vendor subtotals")
}

func (s *service) metadataFor(order *models.Order, group orders.VendorGroup) models.PayoutMetadata {
	items := make([]models.PayoutLineItem, 0, len(group.Items))
	for _, item := range group.Items {
		items = append(items, models.PayoutLineItem{
			OrderItemID: item.OrderItemID,
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			Price:       item.Price,
			Total:       item.Total,
		})
	}
	return models.PayoutMetadata{
		PaymentReference: paymentReference(order),
		FeeRate:          s.feeRate.String(),
		Items:            items,
	}
}

// GetEarnings totals a vendor's payouts, optionally bounded by creation time.
func (s *service) GetEarnings(ctx context.Context, vendorID uuid.UUID, rng *DateRange) (*Earnings, error) {
	if vendorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor id is required")
	}
	var from, to *time.Time
	if rng != nil {
		from, to = rng.From, rng.To
		if from != nil && to != nil && from.After(*to) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "from must not be after to").
				WithDetails(map[string]any{"from": from, "to": to})
		}
	}

	rows, err := s.repo.ListByVendor(ctx, vendorID, from, to)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list vendor payouts")
	}
	return SummarizeEarnings(rows), nil
}

// GetPayoutHistory pages through a vendor's payouts newest first.
func (s *service) GetPayoutHistory(ctx context.Context, vendorID uuid.UUID, page, perPage int) (*PayoutHistory, error) {
	if vendorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor id is required")
	}
	params := pagination.Normalize(page, perPage)

	rows, total, err := s.repo.PageByVendor(ctx, vendorID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "page vendor payouts")
	}

	orderIDs := make([]uuid.UUID, 0, len(rows))
	for _, row := range rows {
		orderIDs = append(orderIDs, row.OrderID)
	}
	summaries, err := s.repo.OrderSummaries(ctx, orderIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payout orders")
	}

	entries := make([]HistoryEntry, 0, len(rows))
	for _, row := range rows {
		entry := HistoryEntry{PayoutDTO: ToDTO(row)}
		if summary, ok := summaries[row.OrderID]; ok {
			entry.PaymentReference = summary.PaymentReference
			entry.OrderTotal = summary.Total
		}
		entries = append(entries, entry)
	}

	return &PayoutHistory{
		Payouts:    entries,
		Pagination: pagination.NewPage(params, total),
	}, nil
}

func (s *service) recordGroup(r PayoutResult) {
	if s.metrics == nil {
		return
	}
	switch {
	case r.Failure != nil:
		s.metrics.IncGroup(string(r.Failure.Reason))
	case r.Existing:
		s.metrics.IncGroup("existing")
	default:
		s.metrics.IncGroup("created")
	}
}

func (s *service) recordRun(result string) {
	if s.metrics != nil {
		s.metrics.IncRun(result)
	}
}

func runResult(err error) string {
	switch {
	case IsOrderNotFound(err):
		return "order_not_found"
	case IsOrderNotPaid(err):
		return "order_not_paid"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "error"
	}
}

func existingResult(row models.VendorPayout) PayoutResult {
	id := row.ID
	return PayoutResult{
		VendorID:    row.VendorID,
		StoreID:     row.StoreID,
		PayoutID:    &id,
		Amount:      row.Amount,
		PlatformFee: row.PlatformFee,
		TotalAmount: row.TotalAmount,
		Status:      row.Status,
		Existing:    true,
	}
}

func failedResult(group orders.VendorGroup, reason FailureReason, message string) PayoutResult {
	return PayoutResult{
		VendorID: group.VendorID,
		StoreID:  group.StoreID,
		Status:   enums.PayoutStatusFailed,
		Failure:  &GroupFailure{Reason: reason, Message: message},
	}
}

func allExisting(results []PayoutResult) bool {
	if len(results) == 0 {
		return false
	}
	for _, r := range results {
		if !r.Existing {
			return false
		}
	}
	return true
}

func paymentReference(order *models.Order) string {
	if order == nil || order.PaymentReference == nil {
		return ""
	}
	return *order.PaymentReference
}
