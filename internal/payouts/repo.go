package payouts

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/splitpay-backend/pkg/db/models"
	"github.com/angelmondragon/splitpay-backend/pkg/enums"
	"github.com/angelmondragon/splitpay-backend/pkg/pagination"
)

// ErrNotFound is returned when no payout matches the lookup.
var ErrNotFound = errors.New("payout not found")

// OrderSummary is the slice of an order shown next to a payout.
type OrderSummary struct {
	ID               uuid.UUID
	PaymentReference *string
	Total            int64
}

// Repository persists vendor payouts.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Insert(ctx context.Context, payout *models.VendorPayout) (bool, error)
	MarkProcessing(ctx context.Context, id uuid.UUID) (bool, error)
	MarkCompleted(ctx context.Context, id uuid.UUID, settlementReference string, completedAt time.Time) (bool, error)
	FindByOrderAndStore(ctx context.Context, orderID, storeID uuid.UUID) (*models.VendorPayout, error)
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.VendorPayout, error)
	ListByVendor(ctx context.Context, vendorID uuid.UUID, from, to *time.Time) ([]models.VendorPayout, error)
	PageByVendor(ctx context.Context, vendorID uuid.UUID, params pagination.Params) ([]models.VendorPayout, int64, error)
	OrderSummaries(ctx context.Context, orderIDs []uuid.UUID) (map[uuid.UUID]OrderSummary, error)
	ListProcessingByStore(ctx context.Context, storeID uuid.UUID) ([]models.VendorPayout, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository binds a GORM DB to payout operations.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// Insert creates the payout unless one already exists for (order_id, store_id).
// It reports whether a row was written.
func (r *repository) Insert(ctx context.Context, payout *models.VendorPayout) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "order_id"}, {Name: "store_id"}},
			DoNothing: true,
		}).
		Create(payout)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) MarkProcessing(ctx context.Context, id uuid.UUID) (bool, error) {
	return r.transition(ctx, id, enums.PayoutStatusPending, map[string]any{
		"status": enums.PayoutStatusProcessing,
	})
}

// MarkCompleted records the settlement that disbursed a PROCESSING payout.
func (r *repository) MarkCompleted(ctx context.Context, id uuid.UUID, settlementReference string, completedAt time.Time) (bool, error) {
	return r.transition(ctx, id, enums.PayoutStatusProcessing, map[string]any{
		"status":               enums.PayoutStatusCompleted,
		"settlement_reference": strings.TrimSpace(settlementReference),
		"completed_at":         completedAt.UTC(),
	})
}

func (r *repository) transition(ctx context.Context, id uuid.UUID, from enums.PayoutStatus, updates map[string]any) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.VendorPayout{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) FindByOrderAndStore(ctx context.Context, orderID, storeID uuid.UUID) (*models.VendorPayout, error) {
	var payout models.VendorPayout
	if err := r.db.WithContext(ctx).
		Where("order_id = ? AND store_id = ?", orderID, storeID).
		First(&payout).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &payout, nil
}

func (r *repository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.VendorPayout, error) {
	var rows []models.VendorPayout
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListByVendor returns the vendor's payouts newest first, bounded by created_at.
func (r *repository) ListByVendor(ctx context.Context, vendorID uuid.UUID, from, to *time.Time) ([]models.VendorPayout, error) {
	query := r.db.WithContext(ctx).Where("vendor_id = ?", vendorID)
	if from != nil {
		query = query.Where("created_at >= ?", from.UTC())
	}
	if to != nil {
		query = query.Where("created_at <= ?", to.UTC())
	}
	var rows []models.VendorPayout
	if err := query.
		Order("created_at DESC").
		Order("id DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) PageByVendor(ctx context.Context, vendorID uuid.UUID, params pagination.Params) ([]models.VendorPayout, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).
		Model(&models.VendorPayout{}).
		Where("vendor_id = ?", vendorID).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []models.VendorPayout{}, 0, nil
	}

	var rows []models.VendorPayout
	if err := r.db.WithContext(ctx).
		Where("vendor_id = ?", vendorID).
		Order("created_at DESC").
		Order("id DESC").
		Offset(params.Offset()).
		Limit(params.PerPage).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func (r *repository) OrderSummaries(ctx context.Context, orderIDs []uuid.UUID) (map[uuid.UUID]OrderSummary, error) {
	out := make(map[uuid.UUID]OrderSummary, len(orderIDs))
	if len(orderIDs) == 0 {
		return out, nil
	}
	var rows []models.Order
	if err := r.db.WithContext(ctx).
		Select("id", "payment_reference", "total").
		Where("id IN ?", orderIDs).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.ID] = OrderSummary{ID: row.ID, PaymentReference: row.PaymentReference, Total: row.Total}
	}
	return out, nil
}

// ListProcessingByStore returns payouts awaiting a gateway settlement, oldest first.
func (r *repository) ListProcessingByStore(ctx context.Context, storeID uuid.UUID) ([]models.VendorPayout, error) {
	var rows []models.VendorPayout
	if err := r.db.WithContext(ctx).
		Where("store_id = ? AND status = ?", storeID, enums.PayoutStatusProcessing).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
