package repositories_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/shashiranjanraj/storefront/app/models"
	"github.com/shashiranjanraj/storefront/app/repositories"
	"github.com/shashiranjanraj/storefront/pkg/money"
	"github.com/shashiranjanraj/storefront/pkg/payment"
)

// drivers yields the memory stores, plus MongoDB when MONGO_TEST_URI is set.
func drivers(t *testing.T) map[string]func(t *testing.T) *repositories.Stores {
	out := map[string]func(t *testing.T) *repositories.Stores{
		"memory": func(*testing.T) *repositories.Stores { return repositories.NewMemoryStores() },
	}

	uri := os.Getenv("MONGO_TEST_URI")
	if uri == "" {
		return out
	}
	out["mongo"] = func(t *testing.T) *repositories.Stores {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
		require.NoError(t, err)
		db := client.Database(fmt.Sprintf("storefront_test_%d", time.Now().UnixNano()))
		require.NoError(t, repositories.EnsureIndexes(ctx, db))

		t.Cleanup(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = db.Drop(ctx)
			_ = client.Disconnect(ctx)
		})
		return repositories.NewMongoStores(db)
	}
	return out
}

func forEachDriver(t *testing.T, fn func(t *testing.T, s *repositories.Stores)) {
	for name, open := range drivers(t) {
		t.Run(name, func(t *testing.T) { fn(t, open(t)) })
	}
}

func TestUsers(t *testing.T) {
	forEachDriver(t, func(t *testing.T, s *repositories.Stores) {
		ctx := context.Background()

		alice := &models.User{Name: "Alice", Email: "alice@example.com", Password: "hash", Phone: "555", Address: "1 Main St"}
		require.NoError(t, s.Users.Create(ctx, alice))
		assert.False(t, alice.ID.IsZero())
		assert.False(t, alice.CreatedAt.IsZero())

		err := s.Users.Create(ctx, &models.User{Name: "Other", Email: "alice@example.com"})
		assert.ErrorIs(t, err, repositories.ErrDuplicate)

		got, err := s.Users.FindByEmail(ctx, "alice@example.com")
		require.NoError(t, err)
		assert.Equal(t, alice.ID, got.ID)
		assert.Equal(t, "hash", got.Password)

		_, err = s.Users.FindByEmail(ctx, "bob@example.com")
		assert.ErrorIs(t, err, repositories.ErrNotFound)

		name := "Alice Smith"
		updated, err := s.Users.UpdateProfile(ctx, alice.ID, repositories.UserUpdate{Name: &name})
		require.NoError(t, err)
		assert.Equal(t, "Alice Smith", updated.Name)
		assert.Equal(t, "555", updated.Phone)

		promoted, err := s.Users.SetRole(ctx, alice.ID, models.RoleAdmin)
		require.NoError(t, err)
		assert.True(t, promoted.IsAdmin())

		bob := &models.User{Name: "Bob", Email: "bob@example.com"}
		require.NoError(t, s.Users.Create(ctx, bob))

		both, err := s.Users.FindByIDs(ctx, []primitive.ObjectID{alice.ID, bob.ID, alice.ID, primitive.NewObjectID()})
		require.NoError(t, err)
		require.Len(t, both, 2)
		assert.ElementsMatch(t, []primitive.ObjectID{alice.ID, bob.ID}, []primitive.ObjectID{both[0].ID, both[1].ID})

		empty, err := s.Users.FindByIDs(ctx, nil)
		require.NoError(t, err)
		assert.Empty(t, empty)

		n, err := s.Users.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)

		found, err := s.Users.Search(ctx, "SMITH")
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, alice.ID, found[0].ID)

		none, err := s.Users.Search(ctx, ".*")
		require.NoError(t, err)
		assert.NotNil(t, none)
		assert.Empty(t, none)

		require.NoError(t, s.Users.Delete(ctx, bob.ID))
		assert.ErrorIs(t, s.Users.Delete(ctx, bob.ID), repositories.ErrNotFound)
	})
}

func TestCategoriesAreUnique(t *testing.T) {
	forEachDriver(t, func(t *testing.T, s *repositories.Stores) {
		ctx := context.Background()

		c := &models.Category{Name: "Electronics", Slug: "electronics"}
		require.NoError(t, s.Categories.Create(ctx, c))

		err := s.Categories.Create(ctx, &models.Category{Name: "Electronics", Slug: "electronics-2"})
		assert.ErrorIs(t, err, repositories.ErrDuplicate)

		books := &models.Category{Name: "Books", Slug: "books"}
		require.NoError(t, s.Categories.Create(ctx, books))

		_, err = s.Categories.Rename(ctx, books.ID, "Electronics", "electronics")
		assert.ErrorIs(t, err, repositories.ErrDuplicate)

		renamed, err := s.Categories.Rename(ctx, books.ID, "Novels", "novels")
		require.NoError(t, err)
		assert.Equal(t, "novels", renamed.Slug)

		bySlug, err := s.Categories.FindBySlug(ctx, "electronics")
		require.NoError(t, err)
		assert.Equal(t, c.ID, bySlug.ID)

		all, err := s.Categories.All(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 2)

		_, err = s.Categories.FindByID(ctx, primitive.NewObjectID())
		assert.ErrorIs(t, err, repositories.ErrNotFound)
	})
}

func TestProducts(t *testing.T) {
	forEachDriver(t, func(t *testing.T, s *repositories.Stores) {
		ctx := context.Background()
		cat := primitive.NewObjectID()
		other := primitive.NewObjectID()

		mk := func(name string, price string, category primitive.ObjectID) *models.Product {
			p := &models.Product{
				Name: name, Slug: name, Description: name + " description",
				Price: money.MustParse(price), Quantity: 5, Category: category,
				Photo: &models.Photo{Key: "products/" + name + ".jpg", ContentType: "image/jpeg", Size: 3},
			}
			require.NoError(t, s.Products.Create(ctx, p))
			time.Sleep(2 * time.Millisecond)
			return p
		}
		phone := mk("phone", "299.99", cat)
		laptop := mk("laptop", "999.00", cat)
		novel := mk("novel", "12.50", other)

		latest, err := s.Products.Latest(ctx, 2)
		require.NoError(t, err)
		require.Len(t, latest, 2)
		assert.Equal(t, novel.ID, latest[0].ID)
		assert.Equal(t, laptop.ID, latest[1].ID)
		assert.Nil(t, latest[0].Photo, "listings never carry photo metadata")

		full, err := s.Products.FindByID(ctx, phone.ID)
		require.NoError(t, err)
		require.NotNil(t, full.Photo)
		assert.Equal(t, "products/phone.jpg", full.Photo.Key)

		page2, err := s.Products.Page(ctx, 2, 2)
		require.NoError(t, err)
		require.Len(t, page2, 1)
		assert.Equal(t, phone.ID, page2[0].ID)

		min := money.MustParse("100")
		filtered, err := s.Products.Filter(ctx, repositories.ProductFilter{Categories: []primitive.ObjectID{cat}, MinPrice: &min})
		require.NoError(t, err)
		assert.Len(t, filtered, 2)

		max := money.MustParse("20")
		cheap, err := s.Products.Filter(ctx, repositories.ProductFilter{MaxPrice: &max})
		require.NoError(t, err)
		require.Len(t, cheap, 1)
		assert.Equal(t, novel.ID, cheap[0].ID)

		related, err := s.Products.Related(ctx, phone.ID, cat, 3)
		require.NoError(t, err)
		require.Len(t, related, 1)
		assert.Equal(t, laptop.ID, related[0].ID)

		found, err := s.Products.Search(ctx, "LAP")
		require.NoError(t, err)
		assert.Len(t, found, 1)

		upd := *phone
		upd.Price = money.MustParse("249.99")
		upd.Photo = nil
		after, err := s.Products.Update(ctx, phone.ID, &upd)
		require.NoError(t, err)
		assert.Equal(t, money.MustParse("249.99"), after.Price)
		require.NotNil(t, after.Photo, "photo kept when none is supplied")

		removed, err := s.Products.Delete(ctx, phone.ID)
		require.NoError(t, err)
		assert.Equal(t, "products/phone.jpg", removed.Photo.Key)

		byIDs, err := s.Products.FindByIDs(ctx, []primitive.ObjectID{phone.ID, laptop.ID, laptop.ID})
		require.NoError(t, err)
		assert.Len(t, byIDs, 1)

		n, err := s.Products.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)
	})
}

func TestOrders(t *testing.T) {
	forEachDriver(t, func(t *testing.T, s *repositories.Stores) {
		ctx := context.Background()
		buyer := primitive.NewObjectID()

		order := func(txn, key string) *models.Order {
			return &models.Order{
				Products:       []primitive.ObjectID{primitive.NewObjectID()},
				Amount:         money.MustParse("10.00"),
				Payment:        payment.Result{Success: true, Transaction: payment.Transaction{ID: txn, Status: "SUBMITTED_FOR_SETTLEMENT"}},
				Buyer:          buyer,
				IdempotencyKey: key,
			}
		}

		first := order("txn-1", "key-1")
		require.NoError(t, s.Orders.Create(ctx, first))
		assert.Equal(t, models.StatusNotProcessed, first.Status)

		err := s.Orders.Create(ctx, order("txn-1", ""))
		assert.ErrorIs(t, err, repositories.ErrDuplicate)

		err = s.Orders.Create(ctx, order("txn-2", "key-1"))
		assert.ErrorIs(t, err, repositories.ErrDuplicate)

		// An empty key is not a key.
		require.NoError(t, s.Orders.Create(ctx, order("txn-3", "")))
		time.Sleep(2 * time.Millisecond)
		require.NoError(t, s.Orders.Create(ctx, order("txn-4", "")))

		replay, err := s.Orders.FindByIdempotencyKey(ctx, buyer, "key-1")
		require.NoError(t, err)
		assert.Equal(t, first.ID, replay.ID)

		_, err = s.Orders.FindByIdempotencyKey(ctx, primitive.NewObjectID(), "key-1")
		assert.ErrorIs(t, err, repositories.ErrNotFound)

		mine, err := s.Orders.FindByBuyer(ctx, buyer)
		require.NoError(t, err)
		require.Len(t, mine, 3)
		assert.Equal(t, "txn-4", mine[0].Payment.Transaction.ID)

		shipped, err := s.Orders.UpdateStatus(ctx, first.ID, models.StatusShipped)
		require.NoError(t, err)
		assert.Equal(t, models.StatusShipped, shipped.Status)

		_, err = s.Orders.UpdateStatus(ctx, primitive.NewObjectID(), models.StatusShipped)
		assert.ErrorIs(t, err, repositories.ErrNotFound)

		all, err := s.Orders.All(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 3)
	})
}
