package services_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/storefront/app/models"
	"github.com/shashiranjanraj/storefront/app/repositories"
	"github.com/shashiranjanraj/storefront/app/services"
	"github.com/shashiranjanraj/storefront/pkg/apperror"
	"github.com/shashiranjanraj/storefront/pkg/auth"
)

func TestRegisterHashesSecrets(t *testing.T) {
	f := newFixture(t)
	u := f.register(t, "Alice", " Alice@Example.com ")

	assert.Equal(t, "alice@example.com", u.Email)
	assert.Equal(t, models.RoleStandard, u.Role)
	assert.NotEqual(t, "secret123", u.Password)
	assert.True(t, auth.CheckPassword(u.Password, "secret123"))
	assert.NotEqual(t, "blue", u.Answer)
	assert.True(t, auth.CheckAnswer(u.Answer, "Blue"))
}

func TestRegisterDuplicateEmail(t *testing.T) {
	f := newFixture(t)
	f.register(t, "Alice", "alice@example.com")

	_, err := f.auth.Register(context.Background(), services.RegisterInput{
		Name: "Imposter", Email: "ALICE@example.com", Password: "secret123", Phone: "1", Address: "x", Answer: "y",
	})
	assert.Equal(t, apperror.KindConflict, kindOf(t, err))
	assert.Equal(t, "Already Registered Please Login", apperror.From(err).Message)
}

func TestLoginRoundTrip(t *testing.T) {
	f := newFixture(t)
	alice := f.register(t, "Alice", "alice@example.com")

	u, token, err := f.auth.Login(context.Background(), services.LoginInput{Email: "alice@example.com", Password: "secret123"})
	require.NoError(t, err)
	assert.Equal(t, alice.ID, u.ID)

	claims, err := f.tokens.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, alice.ID.Hex(), claims.SubjectID())
}

func TestLoginFailuresLookTheSame(t *testing.T) {
	f := newFixture(t)
	f.register(t, "Alice", "alice@example.com")
	ctx := context.Background()

	_, _, wrongPassword := f.auth.Login(ctx, services.LoginInput{Email: "alice@example.com", Password: "nope"})
	_, _, unknownEmail := f.auth.Login(ctx, services.LoginInput{Email: "bob@example.com", Password: "secret123"})

	assert.Equal(t, apperror.KindAuthentication, kindOf(t, wrongPassword))
	assert.Equal(t, apperror.KindAuthentication, kindOf(t, unknownEmail))
	assert.Equal(t, apperror.From(wrongPassword).Message, apperror.From(unknownEmail).Message)
}

func TestForgotPassword(t *testing.T) {
	f := newFixture(t)
	f.register(t, "Alice", "alice@example.com")
	ctx := context.Background()

	err := f.auth.ForgotPassword(ctx, services.ForgotPasswordInput{Email: "alice@example.com", Answer: "red", NewPassword: "newsecret"})
	assert.Equal(t, apperror.KindNotFound, kindOf(t, err))

	require.NoError(t, f.auth.ForgotPassword(ctx, services.ForgotPasswordInput{Email: "alice@example.com", Answer: " BLUE", NewPassword: "newsecret"}))

	_, _, err = f.auth.Login(ctx, services.LoginInput{Email: "alice@example.com", Password: "newsecret"})
	assert.NoError(t, err)
}

func TestUpdateProfileIsPartialAndKeepsRole(t *testing.T) {
	f := newFixture(t)
	alice := f.register(t, "Alice", "alice@example.com")
	ctx := context.Background()
	_, err := f.stores.Users.SetRole(ctx, alice.ID, models.RoleAdmin)
	require.NoError(t, err)

	u, err := f.auth.UpdateProfile(ctx, alice.ID.Hex(), services.ProfileInput{Address: "2 High St"})
	require.NoError(t, err)
	assert.Equal(t, "Alice", u.Name)
	assert.Equal(t, "2 High St", u.Address)
	assert.Equal(t, models.RoleAdmin, u.Role)
	assert.True(t, auth.CheckPassword(u.Password, "secret123"))

	_, err = f.auth.UpdateProfile(ctx, "nope", services.ProfileInput{Name: "x"})
	assert.Equal(t, apperror.KindNotFound, kindOf(t, err))
}

func TestIsAdmin(t *testing.T) {
	f := newFixture(t)
	alice := f.register(t, "Alice", "alice@example.com")
	ctx := context.Background()

	ok, err := f.auth.IsAdmin(ctx, alice.ID.Hex())
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = f.users.SetRole(ctx, "alice@example.com", models.RoleAdmin)
	require.NoError(t, err)
	ok, err = f.auth.IsAdmin(ctx, alice.ID.Hex())
	require.NoError(t, err)
	assert.True(t, ok)

	for _, subject := range []string{"", "garbage", "64b7f0c2a1b2c3d4e5f60718"} {
		ok, err := f.auth.IsAdmin(ctx, subject)
		assert.NoError(t, err, subject)
		assert.False(t, ok, subject)
	}
}

func TestUserAdministration(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "Alice", "alice@example.com")
	f.register(t, "Bob", "bob@example.com")

	n, err := f.users.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	found, err := f.users.Search(ctx, "ALI")
	require.NoError(t, err)
	require.Len(t, found, 1)

	require.NoError(t, f.users.Delete(ctx, alice.ID.Hex()))
	assert.Equal(t, apperror.KindNotFound, kindOf(t, f.users.Delete(ctx, alice.ID.Hex())))

	_, err = f.stores.Users.FindByID(ctx, alice.ID)
	assert.ErrorIs(t, err, repositories.ErrNotFound)

	_, err = f.users.SetRole(ctx, "bob@example.com", models.Role(7))
	assert.Equal(t, apperror.KindValidation, kindOf(t, err))
}
