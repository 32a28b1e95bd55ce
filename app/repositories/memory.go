package repositories

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/shashiranjanraj/storefront/app/models"
	"github.com/shashiranjanraj/storefront/pkg/collection"
)

// NewMemoryStores returns empty in-process repositories. Data lives as long
// as the process; values are copied in and out so callers never share state
// with the store.
func NewMemoryStores() *Stores {
	return &Stores{
		Users:      &MemoryUserRepository{byID: map[primitive.ObjectID]models.User{}},
		Categories: &MemoryCategoryRepository{byID: map[primitive.ObjectID]models.Category{}},
		Products:   &MemoryProductRepository{byID: map[primitive.ObjectID]models.Product{}},
		Orders:     &MemoryOrderRepository{byID: map[primitive.ObjectID]models.Order{}},
	}
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

// newestFirst orders by creation time, then id, descending. ObjectIDs grow
// monotonically within a process, which keeps ties stable.
func newestFirst[T any](items []T, created func(T) (int64, primitive.ObjectID)) []T {
	return collection.SortBy(items, func(a, b T) bool {
		ta, ia := created(a)
		tb, ib := created(b)
		if ta != tb {
			return ta > tb
		}
		return ia.Hex() > ib.Hex()
	})
}

func values[K comparable, V any](m map[K]V) []V {
	out := make([]V, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	return out
}

func limit[T any](s []T, n int) []T {
	if n <= 0 {
		return s
	}
	return collection.Take(s, n)
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// ─── Users ────────────────────────────────────────────────────────────────────

type MemoryUserRepository struct {
	mu   sync.RWMutex
	byID map[primitive.ObjectID]models.User
}

func userCreated(u models.User) (int64, primitive.ObjectID) { return u.CreatedAt.UnixNano(), u.ID }

func (r *MemoryUserRepository) Create(_ context.Context, u *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.byID {
		if existing.Email == u.Email {
			return fmt.Errorf("%w: users.email %q", ErrDuplicate, u.Email)
		}
	}
	u.ID = primitive.NewObjectID()
	u.CreatedAt = now()
	u.UpdatedAt = u.CreatedAt
	r.byID[u.ID] = *u
	return nil
}

func (r *MemoryUserRepository) FindByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (r *MemoryUserRepository) FindByIDs(_ context.Context, ids []primitive.ObjectID) ([]models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []models.User{}
	for _, id := range collection.Unique(ids) {
		if u, ok := r.byID[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (r *MemoryUserRepository) FindByEmail(_ context.Context, email string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := collection.First(values(r.byID), func(u models.User) bool { return u.Email == email })
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (r *MemoryUserRepository) UpdateProfile(_ context.Context, id primitive.ObjectID, upd UserUpdate) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	if upd.Name != nil {
		u.Name = *upd.Name
	}
	if upd.Phone != nil {
		u.Phone = *upd.Phone
	}
	if upd.Address != nil {
		u.Address = *upd.Address
	}
	if upd.Password != nil {
		u.Password = *upd.Password
	}
	u.UpdatedAt = now()
	r.byID[id] = u
	return &u, nil
}

func (r *MemoryUserRepository) SetRole(_ context.Context, id primitive.ObjectID, role models.Role) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	u.Role = role
	u.UpdatedAt = now()
	r.byID[id] = u
	return &u, nil
}

func (r *MemoryUserRepository) Delete(_ context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[id]; !ok {
		return ErrNotFound
	}
	delete(r.byID, id)
	return nil
}

func (r *MemoryUserRepository) sorted() []models.User {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return newestFirst(values(r.byID), userCreated)
}

func (r *MemoryUserRepository) Latest(_ context.Context, n int) ([]models.User, error) {
	return limit(r.sorted(), n), nil
}

func (r *MemoryUserRepository) Page(_ context.Context, page, perPage int) ([]models.User, error) {
	return nonNil(collection.Paginate(r.sorted(), page, perPage)), nil
}

func (r *MemoryUserRepository) Search(_ context.Context, keyword string) ([]models.User, error) {
	return nonNil(collection.Filter(r.sorted(), func(u models.User) bool {
		return containsFold(u.Name, keyword) || containsFold(u.Email, keyword) ||
			containsFold(u.Address, keyword) || containsFold(u.Phone, keyword)
	})), nil
}

func (r *MemoryUserRepository) Count(context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.byID)), nil
}

// ─── Categories ───────────────────────────────────────────────────────────────

type MemoryCategoryRepository struct {
	mu   sync.RWMutex
	byID map[primitive.ObjectID]models.Category
}

func (r *MemoryCategoryRepository) clash(except primitive.ObjectID, name, slug string) error {
	for id, c := range r.byID {
		if id == except {
			continue
		}
		if c.Name == name {
			return fmt.Errorf("%w: categories.name %q", ErrDuplicate, name)
		}
		if c.Slug == slug {
			return fmt.Errorf("%w: categories.slug %q", ErrDuplicate, slug)
		}
	}
	return nil
}

func (r *MemoryCategoryRepository) Create(_ context.Context, c *models.Category) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.clash(primitive.NilObjectID, c.Name, c.Slug); err != nil {
		return err
	}
	c.ID = primitive.NewObjectID()
	r.byID[c.ID] = *c
	return nil
}

func (r *MemoryCategoryRepository) FindByID(_ context.Context, id primitive.ObjectID) (*models.Category, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &c, nil
}

func (r *MemoryCategoryRepository) find(match func(models.Category) bool) (*models.Category, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := collection.First(values(r.byID), match)
	if !ok {
		return nil, ErrNotFound
	}
	return &c, nil
}

func (r *MemoryCategoryRepository) FindBySlug(_ context.Context, slug string) (*models.Category, error) {
	return r.find(func(c models.Category) bool { return c.Slug == slug })
}

func (r *MemoryCategoryRepository) FindByName(_ context.Context, name string) (*models.Category, error) {
	return r.find(func(c models.Category) bool { return c.Name == name })
}

func (r *MemoryCategoryRepository) FindByIDs(_ context.Context, ids []primitive.ObjectID) ([]models.Category, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []models.Category{}
	for _, id := range collection.Unique(ids) {
		if c, ok := r.byID[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *MemoryCategoryRepository) Rename(_ context.Context, id primitive.ObjectID, name, slug string) (*models.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	if err := r.clash(id, name, slug); err != nil {
		return nil, err
	}
	c.Name, c.Slug = name, slug
	r.byID[id] = c
	return &c, nil
}

func (r *MemoryCategoryRepository) Delete(_ context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[id]; !ok {
		return ErrNotFound
	}
	delete(r.byID, id)
	return nil
}

func (r *MemoryCategoryRepository) All(context.Context) ([]models.Category, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := values(r.byID)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// ─── Products ─────────────────────────────────────────────────────────────────

type MemoryProductRepository struct {
	mu   sync.RWMutex
	byID map[primitive.ObjectID]models.Product
}

func productCreated(p models.Product) (int64, primitive.ObjectID) { return p.CreatedAt.UnixNano(), p.ID }

// listing strips the photo like the Mongo projection does.
func listing(ps []models.Product) []models.Product {
	return nonNil(collection.Map(ps, func(p models.Product) models.Product {
		p.Photo = nil
		return p
	}))
}

func (r *MemoryProductRepository) Create(_ context.Context, p *models.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p.ID = primitive.NewObjectID()
	p.CreatedAt = now()
	p.UpdatedAt = p.CreatedAt
	r.byID[p.ID] = clonePhoto(*p)
	return nil
}

func clonePhoto(p models.Product) models.Product {
	if p.Photo != nil {
		ph := *p.Photo
		p.Photo = &ph
	}
	return p
}

func (r *MemoryProductRepository) FindByID(_ context.Context, id primitive.ObjectID) (*models.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	p = clonePhoto(p)
	return &p, nil
}

func (r *MemoryProductRepository) sorted() []models.Product {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return newestFirst(values(r.byID), productCreated)
}

func (r *MemoryProductRepository) FindBySlug(_ context.Context, slug string) (*models.Product, error) {
	p, ok := collection.First(r.sorted(), func(p models.Product) bool { return p.Slug == slug })
	if !ok {
		return nil, ErrNotFound
	}
	p = clonePhoto(p)
	return &p, nil
}

func (r *MemoryProductRepository) FindByIDs(_ context.Context, ids []primitive.ObjectID) ([]models.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []models.Product
	for _, id := range collection.Unique(ids) {
		if p, ok := r.byID[id]; ok {
			out = append(out, p)
		}
	}
	return listing(out), nil
}

func (r *MemoryProductRepository) Update(_ context.Context, id primitive.ObjectID, upd *models.Product) (*models.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	p.Name = upd.Name
	p.Slug = upd.Slug
	p.Description = upd.Description
	p.Price = upd.Price
	p.Quantity = upd.Quantity
	p.Category = upd.Category
	p.Shipping = upd.Shipping
	if upd.Photo != nil {
		ph := *upd.Photo
		p.Photo = &ph
	}
	p.UpdatedAt = now()
	r.byID[id] = p

	p = clonePhoto(p)
	return &p, nil
}

func (r *MemoryProductRepository) Delete(_ context.Context, id primitive.ObjectID) (*models.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	delete(r.byID, id)
	return &p, nil
}

func (r *MemoryProductRepository) Latest(_ context.Context, n int) ([]models.Product, error) {
	return listing(limit(r.sorted(), n)), nil
}

func (r *MemoryProductRepository) Page(_ context.Context, page, perPage int) ([]models.Product, error) {
	return listing(collection.Paginate(r.sorted(), page, perPage)), nil
}

func (r *MemoryProductRepository) Count(context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.byID)), nil
}

func (r *MemoryProductRepository) Filter(_ context.Context, f ProductFilter) ([]models.Product, error) {
	cats := collection.KeyBy(f.Categories, func(id primitive.ObjectID) primitive.ObjectID { return id })
	return listing(collection.Filter(r.sorted(), func(p models.Product) bool {
		if len(cats) > 0 {
			if _, ok := cats[p.Category]; !ok {
				return false
			}
		}
		if f.MinPrice != nil && p.Price < *f.MinPrice {
			return false
		}
		if f.MaxPrice != nil && p.Price > *f.MaxPrice {
			return false
		}
		return true
	})), nil
}

func (r *MemoryProductRepository) Search(_ context.Context, keyword string) ([]models.Product, error) {
	return listing(collection.Filter(r.sorted(), func(p models.Product) bool {
		return containsFold(p.Name, keyword) || containsFold(p.Description, keyword)
	})), nil
}

func (r *MemoryProductRepository) Related(_ context.Context, productID, categoryID primitive.ObjectID, n int) ([]models.Product, error) {
	return listing(limit(collection.Filter(r.sorted(), func(p models.Product) bool {
		return p.Category == categoryID && p.ID != productID
	}), n)), nil
}

func (r *MemoryProductRepository) ByCategory(_ context.Context, categoryID primitive.ObjectID) ([]models.Product, error) {
	return listing(collection.Filter(r.sorted(), func(p models.Product) bool { return p.Category == categoryID })), nil
}

// ─── Orders ───────────────────────────────────────────────────────────────────

type MemoryOrderRepository struct {
	mu   sync.RWMutex
	byID map[primitive.ObjectID]models.Order
}

func orderCreated(o models.Order) (int64, primitive.ObjectID) { return o.CreatedAt.UnixNano(), o.ID }

func (r *MemoryOrderRepository) Create(_ context.Context, o *models.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	txn := o.Payment.Transaction.ID
	for _, existing := range r.byID {
		if txn != "" && existing.Payment.Transaction.ID == txn {
			return fmt.Errorf("%w: orders.payment.transaction.id %q", ErrDuplicate, txn)
		}
		if o.IdempotencyKey != "" && existing.Buyer == o.Buyer && existing.IdempotencyKey == o.IdempotencyKey {
			return fmt.Errorf("%w: orders.idempotency_key %q", ErrDuplicate, o.IdempotencyKey)
		}
	}

	o.ID = primitive.NewObjectID()
	o.CreatedAt = now()
	o.UpdatedAt = o.CreatedAt
	if o.Status == "" {
		o.Status = models.StatusNotProcessed
	}
	r.byID[o.ID] = *o
	return nil
}

func (r *MemoryOrderRepository) FindByID(_ context.Context, id primitive.ObjectID) (*models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	o, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &o, nil
}

func (r *MemoryOrderRepository) sorted() []models.Order {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return newestFirst(values(r.byID), orderCreated)
}

func (r *MemoryOrderRepository) FindByIdempotencyKey(_ context.Context, buyer primitive.ObjectID, key string) (*models.Order, error) {
	if key == "" {
		return nil, ErrNotFound
	}
	o, ok := collection.First(r.sorted(), func(o models.Order) bool {
		return o.Buyer == buyer && o.IdempotencyKey == key
	})
	if !ok {
		return nil, ErrNotFound
	}
	return &o, nil
}

func (r *MemoryOrderRepository) FindByBuyer(_ context.Context, buyer primitive.ObjectID) ([]models.Order, error) {
	return nonNil(collection.Filter(r.sorted(), func(o models.Order) bool { return o.Buyer == buyer })), nil
}

func (r *MemoryOrderRepository) All(context.Context) ([]models.Order, error) {
	return r.sorted(), nil
}

func (r *MemoryOrderRepository) UpdateStatus(_ context.Context, id primitive.ObjectID, status models.OrderStatus) (*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	o.Status = status
	o.UpdatedAt = now()
	r.byID[id] = o
	return &o, nil
}
