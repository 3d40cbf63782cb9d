package db

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/angelmondragon/splitpay-backend/pkg/logger"
)

type ledgerRow struct {
	ID        int
	Reference string `gorm:"uniqueIndex"`
}

func newTestClient(t *testing.T) *Client {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 gormlogger.Discard,
	})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&ledgerRow{}))
	client := &Client{conn: conn}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func countRows(t *testing.T, c *Client) int64 {
	t.Helper()
	var n int64
	require.NoError(t, c.DB().Model(&ledgerRow{}).Count(&n).Error)
	return n
}

func TestWithTxCommitsAndRollsBack(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, client.WithTx(ctx, func(tx *gorm.DB) error {
		return tx.Create(&ledgerRow{Reference: "committed"}).Error
	}))
	require.EqualValues(t, 1, countRows(t, client))

	boom := errors.New("boom")
	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(&ledgerRow{Reference: "rolled"}).Error; err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)
	require.EqualValues(t, 1, countRows(t, client))
}

func TestWithTxRollsBackAndRepanics(t *testing.T) {
	client := newTestClient(t)

	require.PanicsWithValue(t, "kaboom", func() {
		_ = client.WithTx(context.Background(), func(tx *gorm.DB) error {
			require.NoError(t, tx.Create(&ledgerRow{Reference: "half"}).Error)
			panic("kaboom")
		})
	})
	require.EqualValues(t, 0, countRows(t, client))
}

func TestPing(t *testing.T) {
	require.NoError(t, newTestClient(t).Ping(context.Background()))
}

func TestIsUniqueViolation(t *testing.T) {
	client := newTestClient(t)
	require.NoError(t, client.DB().Create(&ledgerRow{Reference: "dup"}).Error)
	sqliteErr := client.DB().Create(&ledgerRow{Reference: "dup"}).Error
	require.Error(t, sqliteErr)

	pgxErr := fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505", ConstraintName: "ux_vendor_payouts_order_store"})
	pqErr := &pq.Error{Code: "23505", Constraint: "ux_stores_paystack_account_code"}

	cases := []struct {
		name       string
		err        error
		constraint string
		want       bool
	}{
		{"nil", nil, "", false},
		{"sqlite message", sqliteErr, "", true},
		{"pgx any constraint", pgxErr, "", true},
		{"pgx matching constraint", pgxErr, "ux_vendor_payouts_order_store", true},
		{"pgx other constraint", pgxErr, "ux_stores_paystack_account_code", false},
		{"pgx foreign key", &pgconn.PgError{Code: "23503"}, "", false},
		{"pq matching constraint", pqErr, "ux_stores_paystack_account_code", true},
		{"plain error", errors.New("connection refused"), "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, IsUniqueViolation(tc.err, tc.constraint))
		})
	}
}

func TestQueryLoggerReportsFailuresAndSlowQueries(t *testing.T) {
	buf := &bytes.Buffer{}
	logg := logger.New(logger.Options{Output: buf, Format: logger.FormatJSON})
	ql := newQueryLogger(logg, 50*time.Millisecond)
	ctx := context.Background()
	sql := func() (string, int64) { return "SELECT 1", 1 }

	ql.Trace(ctx, time.Now(), sql, nil)
	require.Empty(t, buf.String(), "fast successful queries are not logged")

	ql.Trace(ctx, time.Now(), sql, gorm.ErrRecordNotFound)
	require.Empty(t, buf.String(), "not found is an expected outcome")

	ql.Trace(ctx, time.Now().Add(-time.Second), sql, nil)
	require.Contains(t, buf.String(), `"message":"slow query"`)
	require.Contains(t, buf.String(), `"sql":"SELECT 1"`)

	buf.Reset()
	ql.Trace(ctx, time.Now(), sql, errors.New("relation does not exist"))
	require.Contains(t, buf.String(), `"message":"query failed"`)

	buf.Reset()
	ql.LogMode(gormlogger.Silent).Trace(ctx, time.Now(), sql, errors.New("ignored"))
	require.Empty(t, buf.String())
}

func TestNewQueryLoggerWithoutLoggerDiscards(t *testing.T) {
	require.Equal(t, gormlogger.Discard, newQueryLogger(nil, time.Second))
}
