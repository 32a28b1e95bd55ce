// Package repositories persists the storefront's documents. Every
// repository has a MongoDB driver (production) and an in-memory driver
// (tests, STORE_DRIVER=memory); both honour the same unique constraints.
package repositories

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/shashiranjanraj/storefront/app/models"
	"github.com/shashiranjanraj/storefront/pkg/docstore"
	"github.com/shashiranjanraj/storefront/pkg/money"
	"github.com/shashiranjanraj/storefront/pkg/orm"
)

var (
	ErrNotFound  = docstore.ErrNotFound
	ErrDuplicate = docstore.ErrDuplicate
)

type UserRepository interface {
	// Create assigns ID and timestamps. Email must already be normalised.
	Create(ctx context.Context, u *models.User) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	// FindByIDs skips ids that do not exist.
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateProfile(ctx context.Context, id primitive.ObjectID, upd UserUpdate) (*models.User, error)
	SetRole(ctx context.Context, id primitive.ObjectID, role models.Role) (*models.User, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
	Latest(ctx context.Context, limit int) ([]models.User, error)
	Page(ctx context.Context, page, perPage int) ([]models.User, error)
	// Search matches keyword literally, case-insensitively, against name,
	// email, address and phone.
	Search(ctx context.Context, keyword string) ([]models.User, error)
	Count(ctx context.Context) (int64, error)
}

// UserUpdate is a partial update; nil fields are left unchanged. Password
// carries a hash.
type UserUpdate struct {
	Name     *string
	Phone    *string
	Address  *string
	Password *string
}

type CategoryRepository interface {
	Create(ctx context.Context, c *models.Category) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Category, error)
	FindBySlug(ctx context.Context, slug string) (*models.Category, error)
	FindByName(ctx context.Context, name string) (*models.Category, error)
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Category, error)
	Rename(ctx context.Context, id primitive.ObjectID, name, slug string) (*models.Category, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
	All(ctx context.Context) ([]models.Category, error)
}

// ProductFilter narrows a listing; zero values do not filter.
type ProductFilter struct {
	Categories []primitive.ObjectID
	MinPrice   *money.Amount
	MaxPrice   *money.Amount
}

type ProductRepository interface {
	Create(ctx context.Context, p *models.Product) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Product, error)
	FindBySlug(ctx context.Context, slug string) (*models.Product, error)
	// FindByIDs returns the products that still exist, in no particular order.
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Product, error)
	// Update replaces the editable fields of id with those of p. The photo
	// is replaced only when p.Photo is set.
	Update(ctx context.Context, id primitive.ObjectID, p *models.Product) (*models.Product, error)
	// Delete returns the removed product so its photo can be cleaned up.
	Delete(ctx context.Context, id primitive.ObjectID) (*models.Product, error)
	Latest(ctx context.Context, limit int) ([]models.Product, error)
	Page(ctx context.Context, page, perPage int) ([]models.Product, error)
	Count(ctx context.Context) (int64, error)
	Filter(ctx context.Context, f ProductFilter) ([]models.Product, error)
	Search(ctx context.Context, keyword string) ([]models.Product, error)
	Related(ctx context.Context, productID, categoryID primitive.ObjectID, limit int) ([]models.Product, error)
	ByCategory(ctx context.Context, categoryID primitive.ObjectID) ([]models.Product, error)
}

type OrderRepository interface {
	// Create fails with ErrDuplicate when the payment transaction id, or the
	// buyer's idempotency key, is already recorded.
	Create(ctx context.Context, o *models.Order) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error)
	FindByIdempotencyKey(ctx context.Context, buyer primitive.ObjectID, key string) (*models.Order, error)
	FindByBuyer(ctx context.Context, buyer primitive.ObjectID) ([]models.Order, error)
	// All lists every order, newest first.
	All(ctx context.Context) ([]models.Order, error)
	UpdateStatus(ctx context.Context, id primitive.ObjectID, status models.OrderStatus) (*models.Order, error)
}

type ReconciliationRepository interface {
	Create(ctx context.Context, r *models.Reconciliation) error
	FindByID(ctx context.Context, id uint) (*models.Reconciliation, error)
	// List pages through records, newest first; an empty status lists all.
	List(ctx context.Context, status models.ReconciliationStatus, page, perPage int) ([]models.Reconciliation, orm.Pagination, error)
	Resolve(ctx context.Context, id uint, note string) (*models.Reconciliation, error)
}

// Stores bundles the document repositories of one driver.
type Stores struct {
	Users      UserRepository
	Categories CategoryRepository
	Products   ProductRepository
	Orders     OrderRepository
}

// now is the timestamp stored on documents. MongoDB keeps milliseconds, so
// the memory driver truncates too and both drivers compare equal.
func now() time.Time { return time.Now().UTC().Truncate(time.Millisecond) }
