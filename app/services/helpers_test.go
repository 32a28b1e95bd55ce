package services_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/storefront/app/models"
	"github.com/shashiranjanraj/storefront/app/repositories"
	"github.com/shashiranjanraj/storefront/app/services"
	"github.com/shashiranjanraj/storefront/pkg/apperror"
	"github.com/shashiranjanraj/storefront/pkg/auth"
	"github.com/shashiranjanraj/storefront/pkg/cache"
	"github.com/shashiranjanraj/storefront/pkg/database"
	"github.com/shashiranjanraj/storefront/pkg/payment"
	"github.com/shashiranjanraj/storefront/pkg/storage"
)

// fixture wires every service over the memory stores, a temp photo disk,
// a sqlite ledger and the fake gateway.
type fixture struct {
	stores  *repositories.Stores
	ledger  *repositories.GormReconciliationRepository
	gateway *payment.Fake
	tokens  *auth.TokenService
	events  *recorder
	disk    *storage.LocalDisk

	auth       *services.AuthService
	users      *services.UserService
	categories *services.CategoryService
	products   *services.ProductService
	orders     *services.OrderService
	checkout   *services.CheckoutService
	recon      *services.ReconciliationService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := database.OpenLedger("sqlite", filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.CloseLedger(db) })
	require.NoError(t, db.AutoMigrate(&models.Reconciliation{}))

	disk, err := storage.NewLocalDisk(t.TempDir())
	require.NoError(t, err)

	f := &fixture{
		stores:  repositories.NewMemoryStores(),
		ledger:  repositories.NewReconciliationRepository(db),
		gateway: payment.NewFake(),
		tokens:  auth.NewTokenService([]byte("test-secret"), 7*24*time.Hour),
		events:  &recorder{},
		disk:    disk,
	}
	f.auth = services.NewAuthService(f.stores.Users, f.tokens)
	f.users = services.NewUserService(f.stores.Users)
	f.categories = services.NewCategoryService(f.stores.Categories)
	f.products = services.NewProductService(f.stores.Products, f.stores.Categories, disk, 1<<20)
	f.orders = services.NewOrderService(f.stores.Orders, f.stores.Products, f.stores.Users, f.events)
	f.checkout = services.NewCheckoutService(f.gateway, f.stores.Orders, f.stores.Products, f.ledger,
		cache.NewMemoryLocker(), services.CheckoutConfig{Currency: "USD"})
	f.recon = services.NewReconciliationService(f.ledger)
	return f
}

func (f *fixture) register(t *testing.T, name, email string) *models.User {
	t.Helper()
	u, err := f.auth.Register(context.Background(), services.RegisterInput{
		Name: name, Email: email, Password: "secret123", Phone: "555-0100", Address: "1 Main St", Answer: "blue",
	})
	require.NoError(t, err)
	return u
}

func (f *fixture) category(t *testing.T, name string) *models.Category {
	t.Helper()
	c, _, err := f.categories.Create(context.Background(), services.CategoryInput{Name: name})
	require.NoError(t, err)
	return c
}

func (f *fixture) product(t *testing.T, name, price string, c *models.Category) *models.Product {
	t.Helper()
	p, err := f.products.Create(context.Background(), services.ProductInput{
		Name: name, Description: name + " description", Price: price,
		Category: c.ID.Hex(), Quantity: "10", Shipping: "true",
	}, nil)
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	return p
}

func cartOf(ps ...*models.Product) []services.CartItem {
	out := make([]services.CartItem, len(ps))
	for i, p := range ps {
		out[i] = services.CartItem{ID: p.ID.Hex(), Price: p.Price}
	}
	return out
}

func kindOf(t *testing.T, err error) apperror.Kind {
	t.Helper()
	require.Error(t, err)
	var ae *apperror.Error
	require.True(t, errors.As(err, &ae), "expected an apperror, got %v", err)
	return ae.Kind
}

// recorder captures fired events.
type recorder struct {
	mu     sync.Mutex
	events []any
}

func (r *recorder) FireAsync(_ context.Context, _ string, payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, payload)
}

func (r *recorder) all() []any {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]any(nil), r.events...)
}

// failingOrders makes every order write fail.
type failingOrders struct {
	repositories.OrderRepository
	err error
}

func (f failingOrders) Create(context.Context, *models.Order) error { return f.err }

