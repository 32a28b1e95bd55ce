package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/storefront/app/models"
	"github.com/shashiranjanraj/storefront/app/repositories"
	"github.com/shashiranjanraj/storefront/app/services"
	"github.com/shashiranjanraj/storefront/pkg/apperror"
	"github.com/shashiranjanraj/storefront/pkg/cache"
	"github.com/shashiranjanraj/storefront/pkg/money"
	"github.com/shashiranjanraj/storefront/pkg/payment"
)

func TestCheckoutChargesExactTotal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "Alice", "alice@example.com")
	c := f.category(t, "Electronics")
	cable := f.product(t, "Cable", "10.00", c)
	mouse := f.product(t, "Mouse", "25.50", c)

	order, replayed, err := f.checkout.Checkout(ctx, alice.ID.Hex(), services.CheckoutInput{
		Cart: cartOf(cable, mouse), Nonce: payment.FakeValidNonce,
	})
	require.NoError(t, err)
	assert.False(t, replayed)

	require.Len(t, f.gateway.Sales, 1)
	assert.Equal(t, money.Amount(3550), f.gateway.Sales[0].Amount)
	assert.Equal(t, "35.50", f.gateway.Sales[0].Amount.String())
	assert.Equal(t, order.Amount, f.gateway.Sales[0].Amount)

	assert.Equal(t, models.StatusNotProcessed, order.Status)
	assert.Equal(t, alice.ID, order.Buyer)
	assert.Equal(t, *f.gateway.Sales[0].Result, order.Payment)

	stored, err := f.stores.Orders.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.Products, stored.Products)
	assert.Len(t, stored.Items, 2)
}

func TestCheckoutRejectsBadCartsBeforeCharging(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "Alice", "alice@example.com")
	c := f.category(t, "Electronics")
	cable := f.product(t, "Cable", "10.00", c)

	cases := map[string]services.CheckoutInput{
		"empty cart":   {Nonce: payment.FakeValidNonce},
		"bad id":       {Cart: []services.CartItem{{ID: "nope", Price: 1000}}, Nonce: payment.FakeValidNonce},
		"unknown item": {Cart: []services.CartItem{{ID: "64b7f0c2a1b2c3d4e5f60718", Price: 1000}}, Nonce: payment.FakeValidNonce},
		"stale price":  {Cart: []services.CartItem{{ID: cable.ID.Hex(), Price: 900}}, Nonce: payment.FakeValidNonce},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, _, err := f.checkout.Checkout(ctx, alice.ID.Hex(), in)
			assert.Equal(t, apperror.KindValidation, kindOf(t, err))
		})
	}
	assert.Zero(t, f.gateway.SaleCount())
}

func TestCheckoutDeclinedCreatesNoOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "Alice", "alice@example.com")
	c := f.category(t, "Electronics")
	cable := f.product(t, "Cable", "10.00", c)

	_, _, err := f.checkout.Checkout(ctx, alice.ID.Hex(), services.CheckoutInput{
		Cart: cartOf(cable), Nonce: payment.FakeDeclinedNonce,
	})
	assert.Equal(t, apperror.KindPaymentDeclined, kindOf(t, err))
	assert.ErrorIs(t, err, payment.ErrDeclined)

	orders, err := f.stores.Orders.FindByBuyer(ctx, alice.ID)
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestCheckoutGatewayFailureIsNotRetried(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "Alice", "alice@example.com")
	c := f.category(t, "Electronics")
	cable := f.product(t, "Cable", "10.00", c)
	f.gateway.SaleErr = &payment.GatewayError{Op: "sale", Status: 503, Err: errors.New("unavailable")}

	_, _, err := f.checkout.Checkout(ctx, alice.ID.Hex(), services.CheckoutInput{Cart: cartOf(cable), Nonce: "n"})
	assert.Equal(t, apperror.KindGateway, kindOf(t, err))
	assert.Equal(t, 1, f.gateway.SaleCount())

	orders, err := f.stores.Orders.All(ctx)
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestCheckoutIdempotencyKeyReplays(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "Alice", "alice@example.com")
	bob := f.register(t, "Bob", "bob@example.com")
	c := f.category(t, "Electronics")
	cable := f.product(t, "Cable", "10.00", c)
	in := services.CheckoutInput{Cart: cartOf(cable), Nonce: payment.FakeValidNonce, IdempotencyKey: "cart-42"}

	first, replayed, err := f.checkout.Checkout(ctx, alice.ID.Hex(), in)
	require.NoError(t, err)
	assert.False(t, replayed)

	second, replayed, err := f.checkout.Checkout(ctx, alice.ID.Hex(), in)
	require.NoError(t, err)
	assert.True(t, replayed)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, f.gateway.SaleCount())

	// Keys are scoped to the buyer.
	_, replayed, err = f.checkout.Checkout(ctx, bob.ID.Hex(), in)
	require.NoError(t, err)
	assert.False(t, replayed)
	assert.Equal(t, 2, f.gateway.SaleCount())
}

func TestCheckoutKeyInFlightConflicts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "Alice", "alice@example.com")
	c := f.category(t, "Electronics")
	cable := f.product(t, "Cable", "10.00", c)

	checkout := services.NewCheckoutService(f.gateway, f.stores.Orders, f.stores.Products, f.ledger, heldLocker{}, services.CheckoutConfig{})
	_, _, err := checkout.Checkout(ctx, alice.ID.Hex(), services.CheckoutInput{Cart: cartOf(cable), Nonce: "n", IdempotencyKey: "k1"})
	assert.Equal(t, apperror.KindConflict, kindOf(t, err))
	assert.Zero(t, f.gateway.SaleCount())
}

type heldLocker struct{}

func (heldLocker) Acquire(context.Context, string, time.Duration) (func(), error) {
	return nil, cache.ErrLocked
}

func TestCheckoutCompensatesWhenOrderWriteFails(t *testing.T) {
	for _, tc := range []struct {
		name       string
		reverseErr error
		want       models.ReconciliationStatus
	}{
		{"reversal succeeds", nil, models.ReconReversed},
		{"reversal fails", &payment.GatewayError{Op: "reverse", Err: errors.New("timeout")}, models.ReconPending},
	} {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			alice := f.register(t, "Alice", "alice@example.com")
			c := f.category(t, "Electronics")
			cable := f.product(t, "Cable", "10.00", c)
			f.gateway.ReverseErr = tc.reverseErr

			orders := failingOrders{OrderRepository: f.stores.Orders, err: errors.New("mongo: write concern timeout")}
			checkout := services.NewCheckoutService(f.gateway, orders, f.stores.Products, f.ledger, cache.NewMemoryLocker(), services.CheckoutConfig{})

			_, _, err := checkout.Checkout(ctx, alice.ID.Hex(), services.CheckoutInput{Cart: cartOf(cable), Nonce: payment.FakeValidNonce})
			assert.Equal(t, apperror.KindInternal, kindOf(t, err))
			assert.NotContains(t, apperror.From(err).Message, "mongo")

			require.Len(t, f.gateway.Reversals, 1)
			assert.Equal(t, f.gateway.Sales[0].Result.Transaction.ID, f.gateway.Reversals[0])

			recs, page, err := f.recon.List(ctx, "", 1, 10)
			require.NoError(t, err)
			require.Len(t, recs, 1)
			assert.Equal(t, int64(1), page.Total)
			assert.Equal(t, tc.want, recs[0].Status)
			assert.Equal(t, int64(1000), recs[0].Amount)
			assert.Equal(t, alice.ID.Hex(), recs[0].BuyerID)
			assert.Contains(t, recs[0].Payload, f.gateway.Reversals[0])
		})
	}
}

func TestCheckoutCompensatesAfterPersistTimeout(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "Alice", "alice@example.com")
	c := f.category(t, "Electronics")
	cable := f.product(t, "Cable", "10.00", c)

	orders := stalledOrders{OrderRepository: f.stores.Orders}
	checkout := services.NewCheckoutService(f.gateway, orders, f.stores.Products, f.ledger, cache.NewMemoryLocker(),
		services.CheckoutConfig{PersistTimeout: 50 * time.Millisecond})

	_, _, err := checkout.Checkout(ctx, alice.ID.Hex(), services.CheckoutInput{Cart: cartOf(cable), Nonce: payment.FakeValidNonce})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, apperror.KindInternal, kindOf(t, err))
	assert.Equal(t, "Order could not be completed", apperror.From(err).Message)

	require.Len(t, f.gateway.Reversals, 1)
	assert.Equal(t, f.gateway.Sales[0].Result.Transaction.ID, f.gateway.Reversals[0])

	recs, _, err := f.recon.List(ctx, "", 1, 10)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, models.ReconReversed, recs[0].Status)
	assert.Contains(t, recs[0].Reason, "deadline exceeded")
}

// stalledOrders never finishes a write before its context expires.
type stalledOrders struct {
	repositories.OrderRepository
}

func (stalledOrders) Create(ctx context.Context, _ *models.Order) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestCheckoutOrderSurvivesClientCancellation(t *testing.T) {
	f := newFixture(t)
	alice := f.register(t, "Alice", "alice@example.com")
	c := f.category(t, "Electronics")
	cable := f.product(t, "Cable", "10.00", c)

	ctx, cancel := context.WithCancel(context.Background())
	orders := cancelOnCreate{OrderRepository: f.stores.Orders, cancel: cancel}
	checkout := services.NewCheckoutService(f.gateway, orders, f.stores.Products, f.ledger, cache.NewMemoryLocker(), services.CheckoutConfig{})

	order, _, err := checkout.Checkout(ctx, alice.ID.Hex(), services.CheckoutInput{Cart: cartOf(cable), Nonce: payment.FakeValidNonce})
	require.NoError(t, err)
	assert.False(t, order.ID.IsZero())
	assert.Empty(t, f.gateway.Reversals)
}

// cancelOnCreate cancels the request context right before the write and
// fails if the write context was cancelled with it.
type cancelOnCreate struct {
	repositories.OrderRepository
	cancel context.CancelFunc
}

func (c cancelOnCreate) Create(ctx context.Context, o *models.Order) error {
	c.cancel()
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.OrderRepository.Create(ctx, o)
}
