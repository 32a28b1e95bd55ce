package repositories_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/storefront/app/models"
	"github.com/shashiranjanraj/storefront/app/repositories"
	"github.com/shashiranjanraj/storefront/pkg/database"
)

func newLedger(t *testing.T) *repositories.GormReconciliationRepository {
	t.Helper()
	db, err := database.OpenLedger("sqlite", filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.CloseLedger(db) })
	require.NoError(t, db.AutoMigrate(&models.Reconciliation{}))
	return repositories.NewReconciliationRepository(db)
}

func TestReconciliationLedger(t *testing.T) {
	ctx := context.Background()
	repo := newLedger(t)

	for i, status := range []models.ReconciliationStatus{models.ReconReversed, models.ReconPending, models.ReconPending} {
		rec := &models.Reconciliation{
			TransactionID: "txn-" + string(rune('a'+i)),
			BuyerID:       "buyer",
			Amount:        1999,
			Currency:      "USD",
			Reason:        "order insert failed",
			Status:        status,
		}
		require.NoError(t, repo.Create(ctx, rec))
		assert.NotZero(t, rec.ID)
	}

	pending, page, err := repo.List(ctx, models.ReconPending, 1, 1)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, int64(2), page.Total)
	assert.Equal(t, 2, page.LastPage)
	assert.Equal(t, "txn-c", pending[0].TransactionID)

	all, page, err := repo.List(ctx, "", 1, 10)
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.Equal(t, int64(3), page.Total)

	resolved, err := repo.Resolve(ctx, pending[0].ID, "refunded by hand")
	require.NoError(t, err)
	assert.Equal(t, models.ReconResolved, resolved.Status)
	require.NotNil(t, resolved.ResolvedAt)

	again, err := repo.FindByID(ctx, pending[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "refunded by hand", again.Note)
	assert.Equal(t, models.ReconResolved, again.Status)

	_, err = repo.Resolve(ctx, 999, "")
	assert.ErrorIs(t, err, repositories.ErrNotFound)
}
