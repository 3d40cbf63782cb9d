package stores

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/splitpay-backend/pkg/db"
	"github.com/angelmondragon/splitpay-backend/pkg/db/models"
)

var (
	// ErrNotFound is returned when no store matches the lookup.
	ErrNotFound = errors.New("store not found")
	// ErrAccountCodeTaken is returned when another store already holds the subaccount code.
	ErrAccountCodeTaken = errors.New("subaccount code already linked to another store")
)

// Repository handles store persistence for gateway linkage.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, id uuid.UUID) (*models.Store, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Store, error)
	FindByAccountCode(ctx context.Context, code string) (*models.Store, error)
	FindByVendorID(ctx context.Context, vendorID uuid.UUID) (*models.Store, error)
	ListWithActiveSubaccount(ctx context.Context) ([]models.Store, error)
	UpdateGatewayLink(ctx context.Context, storeID uuid.UUID, accountCode string, active bool) error
	SetGatewayActive(ctx context.Context, accountCode string, active bool) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository binds a GORM DB to store operations.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// FindByID loads a store by its UUID.
func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Store, error) {
	var store models.Store
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&store).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &store, nil
}

// FindByIDs loads the stores for the provided ids keyed by id. Missing ids are absent from the map.
func (r *repository) FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Store, error) {
	out := make(map[uuid.UUID]models.Store, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []models.Store
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.ID] = row
	}
	return out, nil
}

func (r *repository) FindByAccountCode(ctx context.Context, code string) (*models.Store, error) {
	var store models.Store
	if err := r.db.WithContext(ctx).
		Where("paystack_account_code = ?", strings.TrimSpace(code)).
		First(&store).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &store, nil
}

// FindByVendorID returns the vendor's oldest store.
func (r *repository) FindByVendorID(ctx context.Context, vendorID uuid.UUID) (*models.Store, error) {
	var store models.Store
	if err := r.db.WithContext(ctx).
		Where("vendor_id = ?", vendorID).
		Order("created_at ASC").
		First(&store).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &store, nil
}

// ListWithActiveSubaccount returns stores that can receive payouts.
func (r *repository) ListWithActiveSubaccount(ctx context.Context) ([]models.Store, error) {
	var stores []models.Store
	if err := r.db.WithContext(ctx).
		Where("paystack_account_active = ? AND paystack_account_code IS NOT NULL AND paystack_account_code <> ''", true).
		Order("created_at ASC").
		Find(&stores).Error; err != nil {
		return nil, err
	}
	return stores, nil
}

// UpdateGatewayLink stores the subaccount code and active flag on the store.
func (r *repository) UpdateGatewayLink(ctx context.Context, storeID uuid.UUID, accountCode string, active bool) error {
	code := strings.TrimSpace(accountCode)
	if code == "" {
		return fmt.Errorf("account code is required")
	}
	res := r.db.WithContext(ctx).
		Model(&models.Store{}).
		Where("id = ?", storeID).
		Updates(map[string]any{
			"paystack_account_code":   code,
			"paystack_account_active": active,
		})
	if res.Error != nil {
		// paystack_account_code is the only unique column this update writes.
		if db.IsUniqueViolation(res.Error, "") {
			return ErrAccountCodeTaken
		}
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SetGatewayActive toggles the active flag on whichever store holds the code.
func (r *repository) SetGatewayActive(ctx context.Context, accountCode string, active bool) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Store{}).
		Where("paystack_account_code = ?", strings.TrimSpace(accountCode)).
		Update("paystack_account_active", active)
	return res.RowsAffected, res.Error
}
