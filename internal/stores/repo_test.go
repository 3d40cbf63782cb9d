package stores

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/splitpay-backend/internal/testdb"
)

func TestRepositoryGatewayLinkLifecycle(t *testing.T) {
	db := testdb.Open(t)
	repo := NewRepository(db)
	ctx := context.Background()

	store := testdb.SeedStore(t, db, "Acme")
	require.NoError(t, repo.UpdateGatewayLink(ctx, store.ID, "ACCT_acme", true))

	loaded, err := repo.FindByID(ctx, store.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded.PaystackAccountCode)
	assert.Equal(t, "ACCT_acme", *loaded.PaystackAccountCode)
	assert.True(t, loaded.HasActiveSubaccount())

	byCode, err := repo.FindByAccountCode(ctx, "ACCT_acme")
	require.NoError(t, err)
	assert.Equal(t, store.ID, byCode.ID)

	affected, err := repo.SetGatewayActive(ctx, "ACCT_acme", false)
	require.NoError(t, err)
	assert.EqualValues(t, 1, affected)

	active, err := repo.ListWithActiveSubaccount(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestRepositoryUpdateGatewayLinkRejectsTakenCode(t *testing.T) {
	db := testdb.Open(t)
	repo := NewRepository(db)
	testdb.SeedStore(t, db, "Owner", testdb.WithSubaccount("ACCT_shared"))
	other := testdb.SeedStore(t, db, "Other")

	err := repo.UpdateGatewayLink(context.Background(), other.ID, "ACCT_shared", true)
	assert.ErrorIs(t, err, ErrAccountCodeTaken)
}

func TestRepositoryUpdateGatewayLinkMissingStore(t *testing.T) {
	repo := NewRepository(testdb.Open(t))
	err := repo.UpdateGatewayLink(context.Background(), uuid.New(), "ACCT_x", true)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRepositoryFindByIDsSkipsUnknown(t *testing.T) {
	db := testdb.Open(t)
	repo := NewRepository(db)
	a := testdb.SeedStore(t, db, "A", testdb.WithSubaccount("ACCT_a"))
	b := testdb.SeedStore(t, db, "B")

	found, err := repo.FindByIDs(context.Background(), []uuid.UUID{a.ID, b.ID, uuid.New()})
	require.NoError(t, err)
	assert.Len(t, found, 2)
	assert.True(t, found[a.ID].HasActiveSubaccount())
	assert.False(t, found[b.ID].HasActiveSubaccount())

	active, err := repo.ListWithActiveSubaccount(context.Background())
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, a.ID, active[0].ID)
}

func TestRepositoryFindByIDNotFound(t *testing.T) {
	repo := NewRepository(testdb.Open(t))
	_, err := repo.FindByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRepositoryFindByVendorID(t *testing.T) {
	db := testdb.Open(t)
	repo := NewRepository(db)
	store := testdb.SeedStore(t, db, "Acme", testdb.WithSubaccount("ACCT_acme"))

	found, err := repo.FindByVendorID(context.Background(), *store.VendorID)
	require.NoError(t, err)
	assert.Equal(t, store.ID, found.ID)

	_, err = repo.FindByVendorID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}
