package orders

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/splitpay-backend/internal/orderevents"
	"github.com/angelmondragon/splitpay-backend/internal/stores"
	"github.com/angelmondragon/splitpay-backend/internal/testdb"
	"github.com/angelmondragon/splitpay-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/splitpay-backend/pkg/errors"
)

func newTestService(t *testing.T, db *gorm.DB) (Service, orderevents.Service) {
	t.Helper()
	events, err := orderevents.NewService(orderevents.NewRepository(db))
	require.NoError(t, err)
	svc, err := NewService(NewRepository(db), stores.NewRepository(db), testdb.TxRunner{DB: db}, events)
	require.NoError(t, err)
	return svc, events
}

func TestDecomposeGroupsPaidOrder(t *testing.T) {
	db := testdb.Open(t)
	svc, _ := newTestService(t, db)

	storeA := testdb.SeedStore(t, db, "Store A", testdb.WithSubaccount("ACCT_a"))
	storeB := testdb.SeedStore(t, db, "Store B", testdb.WithSubaccount("ACCT_b"))
	shirt := testdb.SeedProduct(t, db, storeA.ID, "shirt")
	mug := testdb.SeedProduct(t, db, storeB.ID, "mug")
	hat := testdb.SeedProduct(t, db, storeA.ID, "hat")

	order := testdb.SeedOrder(t, db, enums.PaymentStatusPaid, "ref_1",
		testdb.Line{ProductID: shirt.ID, Quantity: 2, Price: 2000},
		testdb.Line{ProductID: mug.ID, Quantity: 1, Price: 4000},
		testdb.Line{ProductID: hat.ID, Quantity: 1, Price: 2000},
	)

	groups, err := svc.Decompose(context.Background(), order.ID)
	require.NoError(t, err)
	require.Len(t, groups, 2)

	require.Equal(t, storeA.ID, groups[0].StoreID)
	require.Equal(t, *storeA.VendorID, groups[0].VendorID)
	require.Equal(t, "Store A", groups[0].StoreName)
	require.EqualValues(t, 6000, groups[0].Subtotal)
	require.Len(t, groups[0].Items, 2)
	require.Equal(t, "shirt", groups[0].Items[0].ProductName)

	require.Equal(t, storeB.ID, groups[1].StoreID)
	require.EqualValues(t, 4000, groups[1].Subtotal)

	var sum int64
	for _, g := range groups {
		sum += g.Subtotal
	}
	require.Equal(t, order.Total, sum)
}

func TestDecomposeOrderPreconditions(t *testing.T) {
	db := testdb.Open(t)
	svc, _ := newTestService(t, db)
	ctx := context.Background()

	_, err := svc.Decompose(ctx, uuid.New())
	require.Error(t, err)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
	require.Equal(t, "order not found", pkgerrors.As(err).Message())

	store := testdb.SeedStore(t, db, "Store")
	product := testdb.SeedProduct(t, db, store.ID, "p")
	unpaid := testdb.SeedOrder(t, db, enums.PaymentStatusUnpaid, "", testdb.Line{ProductID: product.ID, Quantity: 1, Price: 100})

	_, err = svc.Decompose(ctx, unpaid.ID)
	require.Error(t, err)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
	require.Equal(t, "order not paid", pkgerrors.As(err).Message())
}

func TestDecomposeKeepsUnresolvableItems(t *testing.T) {
	db := testdb.Open(t)
	svc, _ := newTestService(t, db)

	orphan := testdb.SeedStore(t, db, "Orphan", testdb.WithoutVendor())
	product := testdb.SeedProduct(t, db, orphan.ID, "p")
	order := testdb.SeedOrder(t, db, enums.PaymentStatusPaid, "ref_2",
		testdb.Line{ProductID: product.ID, Quantity: 1, Price: 500},
		testdb.Line{ProductID: uuid.New(), Quantity: 1, Price: 300},
	)

	groups, err := svc.Decompose(context.Background(), order.ID)
	require.NoError(t, err)
	require.Len(t, groups, 2)
	require.Equal(t, uuid.Nil, groups[0].VendorID)
	require.Equal(t, orphan.ID, groups[0].StoreID)
	require.Equal(t, uuid.Nil, groups[1].StoreID)
	require.EqualValues(t, 300, groups[1].Subtotal)
}

func TestConfirmPayment(t *testing.T) {
	db := testdb.Open(t)
	svc, events := newTestService(t, db)
	ctx := context.Background()

	store := testdb.SeedStore(t, db, "Store")
	product := testdb.SeedProduct(t, db, store.ID, "p")
	order := testdb.SeedOrder(t, db, enums.PaymentStatusUnpaid, "", testdb.Line{ProductID: product.ID, Quantity: 1, Price: 100})

	confirmation, err := svc.ConfirmPayment(ctx, ConfirmPaymentInput{OrderID: order.ID, Reference: "ps_ref_9"})
	require.NoError(t, err)
	require.False(t, confirmation.AlreadyPaid)
	require.Equal(t, enums.PaymentStatusPaid, confirmation.Order.PaymentStatus)

	reloaded, err := NewRepository(db).FindByPaymentReference(ctx, "ps_ref_9")
	require.NoError(t, err)
	require.Equal(t, order.ID, reloaded.ID)
	require.Equal(t, enums.PaymentStatusPaid, reloaded.PaymentStatus)

	has, err := events.HasEvent(ctx, order.ID, enums.OrderEventPaymentConfirmed)
	require.NoError(t, err)
	require.True(t, has)

	again, err := svc.ConfirmPayment(ctx, ConfirmPaymentInput{Reference: "ps_ref_9"})
	require.NoError(t, err)
	require.True(t, again.AlreadyPaid)

	list, err := events.List(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
}

func TestConfirmPaymentRequiresIdentifier(t *testing.T) {
	db := testdb.Open(t)
	svc, _ := newTestService(t, db)

	_, err := svc.ConfirmPayment(context.Background(), ConfirmPaymentInput{})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.ConfirmPayment(context.Background(), ConfirmPaymentInput{Reference: "missing"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}
