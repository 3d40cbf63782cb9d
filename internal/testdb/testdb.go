// Package testdb provides sqlite-backed fixtures for repository and service tests.
package testdb

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/splitpay-backend/pkg/db/models"
	"github.com/angelmondragon/splitpay-backend/pkg/enums"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS stores (
  id TEXT PRIMARY KEY,
  vendor_id TEXT,
  name TEXT NOT NULL,
  paystack_account_code TEXT,
  paystack_account_active INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_stores_paystack_account_code ON stores(paystack_account_code) WHERE paystack_account_code IS NOT NULL;`,
	`CREATE TABLE IF NOT EXISTS products (
  id TEXT PRIMARY KEY,
  store_id TEXT NOT NULL,
  name TEXT NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  payment_status TEXT NOT NULL DEFAULT 'UNPAID',
  status TEXT NOT NULL DEFAULT 'PENDING',
  total INTEGER NOT NULL,
  payment_reference TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE IF NOT EXISTS order_items (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  price INTEGER NOT NULL,
  total INTEGER NOT NULL,
  created_at DATETIME
);`,
	`CREATE TABLE IF NOT EXISTS vendor_payouts (
  id TEXT PRIMARY KEY,
  vendor_id TEXT NOT NULL,
  store_id TEXT NOT NULL,
  order_id TEXT NOT NULL,
  amount INTEGER NOT NULL,
  platform_fee INTEGER NOT NULL,
  total_amount INTEGER NOT NULL,
  status TEXT NOT NULL DEFAULT 'PENDING',
  subaccount_code TEXT NOT NULL,
  metadata TEXT,
  settlement_reference TEXT,
  completed_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_vendor_payouts_order_store ON vendor_payouts(order_id, store_id);`,
	`CREATE TABLE IF NOT EXISTS order_events (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  event_type TEXT NOT NULL,
  description TEXT NOT NULL,
  metadata TEXT,
  created_at DATETIME
);`,
	`CREATE TABLE IF NOT EXISTS outbox_events (
  id TEXT PRIMARY KEY,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload TEXT NOT NULL,
  created_at DATETIME,
  published_at DATETIME,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  last_error TEXT
);`,
}

// Open returns an isolated in-memory database with the settlement schema applied.
func Open(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%s?mode=memory&cache=shared", name, uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// One connection keeps concurrent writers from tripping sqlite table locks.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	for _, stmt := range schema {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

// TxRunner adapts a bare *gorm.DB to the WithTx contract of pkg/db.Client.
type TxRunner struct {
	DB *gorm.DB
}

// WithTx runs fn inside a transaction on the wrapped database.
func (r TxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.DB.WithContext(ctx).Transaction(fn)
}

// StoreOption customizes a seeded store.
type StoreOption func(*models.Store)

// WithSubaccount links the store to an active gateway subaccount.
func WithSubaccount(code string) StoreOption {
	return func(s *models.Store) {
		s.PaystackAccountCode = &code
		s.PaystackAccountActive = true
	}
}

// WithInactiveSubaccount links the store to a subaccount that is switched off.
func WithInactiveSubaccount(code string) StoreOption {
	return func(s *models.Store) {
		s.PaystackAccountCode = &code
		s.PaystackAccountActive = false
	}
}

// WithoutVendor leaves the store without an owning vendor.
func WithoutVendor() StoreOption {
	return func(s *models.Store) {
		s.VendorID = nil
	}
}

// SeedStore inserts a store owned by a fresh vendor.
func SeedStore(t *testing.T, db *gorm.DB, name string, opts ...StoreOption) *models.Store {
	t.Helper()
	vendorID := uuid.New()
	store := &models.Store{
		ID:       uuid.New(),
		VendorID: &vendorID,
		Name:     name,
	}
	for _, opt := range opts {
		opt(store)
	}
	require.NoError(t, db.Create(store).Error)
	return store
}

// SeedProduct inserts a product owned by storeID.
func SeedProduct(t *testing.T, db *gorm.DB, storeID uuid.UUID, name string) *models.Product {
	t.Helper()
	product := &models.Product{ID: uuid.New(), StoreID: storeID, Name: name}
	require.NoError(t, db.Create(product).Error)
	return product
}

// Line describes one order item to seed.
type Line struct {
	ProductID uuid.UUID
	Quantity  int
	Price     int64
}

// SeedOrder inserts an order and its items. The order total is the sum of line totals.
func SeedOrder(t *testing.T, db *gorm.DB, status enums.PaymentStatus, reference string, lines ...Line) *models.Order {
	t.Helper()
	order := &models.Order{
		ID:            uuid.New(),
		PaymentStatus: status,
		Status:        enums.OrderStatusPending,
	}
	if reference != "" {
		order.PaymentReference = &reference
	}
	for _, line := range lines {
		order.Total += int64(line.Quantity) * line.Price
	}
	require.NoError(t, db.Omit("Items").Create(order).Error)

	base := time.Now().UTC()
	for i, line := range lines {
		item := &models.OrderItem{
			ID:        uuid.New(),
			OrderID:   order.ID,
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			Price:     line.Price,
			Total:     int64(line.Quantity) * line.Price,
			CreatedAt: base.Add(time.Duration(i) * time.Millisecond),
		}
		require.NoError(t, db.Omit("Product").Create(item).Error)
		order.Items = append(order.Items, *item)
	}
	return order
}
