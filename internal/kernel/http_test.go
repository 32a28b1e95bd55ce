package kernel_test

import (
	"bytes"
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/shashiranjanraj/storefront/app/models"
	"github.com/shashiranjanraj/storefront/app/repositories"
	"github.com/shashiranjanraj/storefront/internal/kernel"
	"github.com/shashiranjanraj/storefront/pkg/auth"
	"github.com/shashiranjanraj/storefront/pkg/cache"
	"github.com/shashiranjanraj/storefront/pkg/database"
	"github.com/shashiranjanraj/storefront/pkg/payment"
	"github.com/shashiranjanraj/storefront/pkg/storage"
	"github.com/shashiranjanraj/storefront/pkg/testkit"
)

type app struct {
	handler http.Handler
	stores  *repositories.Stores
	gateway *payment.Fake
}

func newApp(t *testing.T, forbidden int, checks map[string]func(context.Context) error) *app {
	t.Helper()

	db, err := database.OpenLedger("sqlite", filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.CloseLedger(db) })
	require.NoError(t, db.AutoMigrate(&models.Reconciliation{}))

	disk, err := storage.NewLocalDisk(t.TempDir())
	require.NoError(t, err)

	a := &app{stores: repositories.NewMemoryStores(), gateway: payment.NewFake()}
	k, err := kernel.New(kernel.Deps{
		Stores:  a.stores,
		Ledger:  repositories.NewReconciliationRepository(db),
		Gateway: a.gateway,
		Disk:    disk,
		Locker:  cache.NewMemoryLocker(),
		Limiter: cache.NewMemoryLimiter(1000, time.Minute),
		Tokens:  auth.NewTokenService([]byte("kernel-test"), time.Hour),
		Checks:  checks,
	}, kernel.Options{
		ForbiddenStatus: forbidden,
		RequestTimeout:  5 * time.Second,
		MaxPhotoBytes:   1 << 20,
	})
	require.NoError(t, err)

	a.handler = k.Handler()
	return a
}

func (a *app) signUp(t *testing.T, name, email string) (id, token string) {
	t.Helper()

	rec := testkit.Request(t, a.handler, http.MethodPost, "/api/v1/auth/register", map[string]any{
		"name": name, "email": email, "password": "secret123",
		"phone": "555-0100", "address": "1 Main St", "answer": "blue",
	}, nil)
	body := testkit.AssertJSONStatus(t, rec, http.StatusCreated)
	id = body["user"].(map[string]any)["_id"].(string)

	rec = testkit.Request(t, a.handler, http.MethodPost, "/api/v1/auth/login", map[string]any{
		"email": email, "password": "secret123",
	}, nil)
	body = testkit.AssertJSONStatus(t, rec, http.StatusOK)
	return id, body["token"].(string)
}

func (a *app) promote(t *testing.T, id string) {
	t.Helper()
	oid, err := primitive.ObjectIDFromHex(id)
	require.NoError(t, err)
	_, err = a.stores.Users.SetRole(context.Background(), oid, models.RoleAdmin)
	require.NoError(t, err)
}

func bearer(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func productForm(t *testing.T, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestStorefrontFlow(t *testing.T) {
	a := newApp(t, 0, nil)

	aliceID, alice := a.signUp(t, "Alice", "alice@example.com")
	adminID, admin := a.signUp(t, "Root", "root@example.com")
	a.promote(t, adminID)

	// Standard users are kept out of admin routes.
	rec := testkit.Request(t, a.handler, http.MethodGet, "/api/v1/auth/admin-auth", nil, bearer(alice))
	testkit.AssertJSONStatus(t, rec, http.StatusForbidden)
	rec = testkit.Request(t, a.handler, http.MethodGet, "/api/v1/auth/admin-auth", nil, bearer(admin))
	body := testkit.AssertJSONStatus(t, rec, http.StatusOK)
	assert.Equal(t, true, body["ok"])

	rec = testkit.Request(t, a.handler, http.MethodPost, "/api/v1/category/create-category",
		map[string]any{"name": "Electronics"}, bearer(admin))
	body = testkit.AssertJSONStatus(t, rec, http.StatusCreated)
	category := body["category"].(map[string]any)
	assert.Equal(t, "electronics", category["slug"])

	form, contentType := productForm(t, map[string]string{
		"name": "Phone", "description": "A phone", "price": "35.50",
		"category": category["_id"].(string), "quantity": "3", "shipping": "true",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/product/create-product", form)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", admin)
	rec = httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	body = testkit.AssertJSONStatus(t, rec, http.StatusCreated)
	product := body["products"].(map[string]any)

	// Catalog reads need no token and do not change state.
	for i := 0; i < 2; i++ {
		rec = testkit.Request(t, a.handler, http.MethodGet, "/api/v1/product/product-count", nil, nil)
		body = testkit.AssertJSONStatus(t, rec, http.StatusOK)
		assert.EqualValues(t, 1, body["total"])
	}

	rec = testkit.Request(t, a.handler, http.MethodGet, "/api/v1/product/braintree/token", nil, nil)
	body = testkit.AssertJSONStatus(t, rec, http.StatusOK)
	assert.NotEmpty(t, body["clientToken"])

	checkout := map[string]any{
		"nonce": payment.FakeValidNonce,
		"cart":  []map[string]any{{"_id": product["_id"], "price": "35.50"}},
	}
	rec = testkit.Request(t, a.handler, http.MethodPost, "/api/v1/product/braintree/payment", checkout, nil)
	testkit.AssertJSONStatus(t, rec, http.StatusUnauthorized)

	headers := bearer(alice)
	headers["Idempotency-Key"] = "cart-1"
	rec = testkit.Request(t, a.handler, http.MethodPost, "/api/v1/product/braintree/payment", checkout, headers)
	body = testkit.AssertJSONStatus(t, rec, http.StatusCreated)
	order := body["order"].(map[string]any)
	assert.Equal(t, "Not Process", order["status"])
	assert.Equal(t, aliceID, order["buyer"])
	assert.Equal(t, 35.5, order["amount"])

	rec = testkit.Request(t, a.handler, http.MethodPost, "/api/v1/product/braintree/payment", checkout, headers)
	body = testkit.AssertJSONStatus(t, rec, http.StatusOK)
	assert.Equal(t, "true", rec.Header().Get("Idempotent-Replayed"))
	assert.Equal(t, order["_id"], body["order"].(map[string]any)["_id"])
	assert.Len(t, a.gateway.Sales, 1)

	rec = testkit.Request(t, a.handler, http.MethodGet, "/api/v1/auth/orders", nil, bearer(alice))
	body = testkit.AssertJSONStatus(t, rec, http.StatusOK)
	assert.Len(t, body["orders"], 1)

	rec = testkit.Request(t, a.handler, http.MethodPut, "/api/v1/auth/order-status/"+order["_id"].(string),
		map[string]any{"status": "Shipped"}, bearer(alice))
	testkit.AssertJSONStatus(t, rec, http.StatusForbidden)
	rec = testkit.Request(t, a.handler, http.MethodPut, "/api/v1/auth/order-status/"+order["_id"].(string),
		map[string]any{"status": "Shipped"}, bearer(admin))
	testkit.AssertJSONStatus(t, rec, http.StatusOK)
}

func TestForbiddenCompatibilityStatus(t *testing.T) {
	a := newApp(t, http.StatusUnauthorized, nil)
	_, token := a.signUp(t, "Bob", "bob@example.com")

	rec := testkit.Request(t, a.handler, http.MethodGet, "/api/v1/auth/all-users", nil, bearer(token))
	body := testkit.AssertJSONStatus(t, rec, http.StatusUnauthorized)
	assert.Equal(t, "Forbidden", body["message"])
}

func TestGraphQLCatalog(t *testing.T) {
	a := newApp(t, 0, nil)
	adminID, admin := a.signUp(t, "Root", "root@example.com")
	a.promote(t, adminID)

	rec := testkit.Request(t, a.handler, http.MethodPost, "/api/v1/category/create-category",
		map[string]any{"name": "Books"}, bearer(admin))
	testkit.AssertJSONStatus(t, rec, http.StatusCreated)

	rec = testkit.Request(t, a.handler, http.MethodPost, "/api/v1/graphql",
		map[string]any{"query": "{ categories { name slug } productCount }"}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	testkit.AssertJSONEqual(t,
		[]byte(`{"data":{"categories":[{"name":"Books","slug":"books"}],"productCount":0}}`),
		rec.Body.Bytes())
}

func TestFallbacksAndHealth(t *testing.T) {
	a := newApp(t, 0, map[string]func(context.Context) error{
		"mongo": func(context.Context) error { return nil },
	})

	rec := testkit.Request(t, a.handler, http.MethodGet, "/api/v1/nope", nil, nil)
	testkit.AssertJSONStatus(t, rec, http.StatusNotFound)

	rec = testkit.Request(t, a.handler, http.MethodGet, "/health", nil, nil)
	body := testkit.AssertJSONStatus(t, rec, http.StatusOK)
	assert.Equal(t, map[string]any{"mongo": "up"}, body["checks"])

	down := newApp(t, 0, map[string]func(context.Context) error{
		"mongo": func(context.Context) error { return errors.New("no route") },
	})
	rec = testkit.Request(t, down.handler, http.MethodGet, "/health", nil, nil)
	testkit.AssertJSONStatus(t, rec, http.StatusServiceUnavailable)

	rec = testkit.Request(t, a.handler, http.MethodGet, "/metrics", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
