package seeders_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/storefront/app/models"
	"github.com/shashiranjanraj/storefront/app/repositories"
	"github.com/shashiranjanraj/storefront/config"
	"github.com/shashiranjanraj/storefront/database/seeders"
	"github.com/shashiranjanraj/storefront/pkg/auth"
)

func TestEnsureAdminCreatesThenPromotes(t *testing.T) {
	ctx := context.Background()
	stores := repositories.NewMemoryStores()
	acct := seeders.AdminAccount{Name: "Ops", Email: "Ops@Example.com", Password: "hunter22", Answer: "blue"}

	require.NoError(t, seeders.EnsureAdmin(ctx, stores, acct))
	u, err := stores.Users.FindByEmail(ctx, "ops@example.com")
	require.NoError(t, err)
	assert.True(t, u.IsAdmin())
	assert.True(t, auth.CheckPassword(u.Password, "hunter22"))

	// A second run is a no-op and keeps the original password.
	acct.Password = "changed99"
	require.NoError(t, seeders.EnsureAdmin(ctx, stores, acct))
	again, err := stores.Users.FindByEmail(ctx, "ops@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, again.ID)
	assert.True(t, auth.CheckPassword(again.Password, "hunter22"))

	n, err := stores.Users.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestEnsureAdminPromotesExistingAccount(t *testing.T) {
	ctx := context.Background()
	stores := repositories.NewMemoryStores()
	require.NoError(t, stores.Users.Create(ctx, &models.User{Name: "Kim", Email: "kim@example.com", Role: models.RoleStandard}))

	require.NoError(t, seeders.EnsureAdmin(ctx, stores, seeders.AdminAccount{Email: "kim@example.com", Password: "x"}))
	u, err := stores.Users.FindByEmail(ctx, "kim@example.com")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, u.Role)
}

func TestEnsureAdminSkipsWithoutCredentials(t *testing.T) {
	stores := repositories.NewMemoryStores()
	require.NoError(t, seeders.EnsureAdmin(context.Background(), stores, seeders.AdminAccount{Email: "a@b.c"}))

	n, err := stores.Users.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRunAllReportsProgress(t *testing.T) {
	config.Set("SEED_ADMIN_EMAIL", "")
	var out bytes.Buffer
	require.NoError(t, seeders.RunAll(context.Background(), repositories.NewMemoryStores(), &out))
	assert.Contains(t, out.String(), "Running seeder: admin")
	assert.Contains(t, out.String(), "done")
}
