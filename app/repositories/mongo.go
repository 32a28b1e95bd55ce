package repositories

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/shashiranjanraj/storefront/app/models"
	"github.com/shashiranjanraj/storefront/pkg/docstore"
)

// Collection names.
const (
	UsersCollection      = "users"
	CategoriesCollection = "categories"
	ProductsCollection   = "products"
	OrdersCollection     = "orders"
)

// NewMongoStores binds every repository to db.
func NewMongoStores(db *mongo.Database) *Stores {
	return &Stores{
		Users:      &MongoUserRepository{col: docstore.New[models.User](db, UsersCollection)},
		Categories: &MongoCategoryRepository{col: docstore.New[models.Category](db, CategoriesCollection)},
		Products:   &MongoProductRepository{col: docstore.New[models.Product](db, ProductsCollection)},
		Orders:     &MongoOrderRepository{col: docstore.New[models.Order](db, OrdersCollection)},
	}
}

// EnsureIndexes creates the unique and lookup indexes of every collection.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	unique := options.Index().SetUnique(true)

	plan := []struct {
		name    string
		indexes []mongo.IndexModel
	}{
		{UsersCollection, []mongo.IndexModel{
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "created_at", Value: -1}}},
		}},
		{CategoriesCollection, []mongo.IndexModel{
			{Keys: bson.D{{Key: "name", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "slug", Value: 1}}, Options: unique},
		}},
		{ProductsCollection, []mongo.IndexModel{
			{Keys: bson.D{{Key: "slug", Value: 1}}},
			{Keys: bson.D{{Key: "category", Value: 1}, {Key: "price", Value: 1}}},
			{Keys: bson.D{{Key: "created_at", Value: -1}}},
		}},
		{OrdersCollection, []mongo.IndexModel{
			{Keys: bson.D{{Key: "payment.transaction.id", Value: 1}}, Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"payment.transaction.id": bson.M{"$type": "string"}})},
			{Keys: bson.D{{Key: "buyer", Value: 1}, {Key: "idempotency_key", Value: 1}}, Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"idempotency_key": bson.M{"$type": "string"}})},
			{Keys: bson.D{{Key: "buyer", Value: 1}, {Key: "created_at", Value: -1}}},
		}},
	}

	for _, p := range plan {
		if _, err := db.Collection(p.name).Indexes().CreateMany(ctx, p.indexes); err != nil {
			return fmt.Errorf("repositories: %s indexes: %w", p.name, err)
		}
	}
	return nil
}

func newest(limit int) *options.FindOptions {
	o := options.Find().SetSort(docstore.Newest())
	if limit > 0 {
		o.SetLimit(int64(limit))
	}
	return o
}

// withoutPhoto keeps listings light; the photo is served by its own route.
func withoutPhoto(o *options.FindOptions) *options.FindOptions {
	return o.SetProjection(bson.M{"photo": 0})
}

// ─── Users ────────────────────────────────────────────────────────────────────

type MongoUserRepository struct {
	col *docstore.Collection[models.User]
}

func (r *MongoUserRepository) Create(ctx context.Context, u *models.User) error {
	u.ID = primitive.NilObjectID
	u.CreatedAt = now()
	u.UpdatedAt = u.CreatedAt

	id, err := r.col.Insert(ctx, u)
	if err != nil {
		return err
	}
	u.ID = id
	return nil
}

func (r *MongoUserRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return r.col.FindByID(ctx, id)
}

func (r *MongoUserRepository) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error) {
	if len(ids) == 0 {
		return []models.User{}, nil
	}
	return r.col.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
}

func (r *MongoUserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.col.FindOne(ctx, bson.M{"email": email})
}

func (r *MongoUserRepository) UpdateProfile(ctx context.Context, id primitive.ObjectID, upd UserUpdate) (*models.User, error) {
	set := bson.M{"updated_at": now()}
	if upd.Name != nil {
		set["name"] = *upd.Name
	}
	if upd.Phone != nil {
		set["phone"] = *upd.Phone
	}
	if upd.Address != nil {
		set["address"] = *upd.Address
	}
	if upd.Password != nil {
		set["password"] = *upd.Password
	}
	return r.col.UpdateByID(ctx, id, bson.M{"$set": set})
}

func (r *MongoUserRepository) SetRole(ctx context.Context, id primitive.ObjectID, role models.Role) (*models.User, error) {
	return r.col.UpdateByID(ctx, id, bson.M{"$set": bson.M{"role": role, "updated_at": now()}})
}

func (r *MongoUserRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	_, err := r.col.DeleteByID(ctx, id)
	return err
}

func (r *MongoUserRepository) Latest(ctx context.Context, limit int) ([]models.User, error) {
	return r.col.Find(ctx, bson.M{}, newest(limit))
}

func (r *MongoUserRepository) Page(ctx context.Context, page, perPage int) ([]models.User, error) {
	return r.col.Find(ctx, bson.M{}, docstore.Page(page, perPage))
}

func (r *MongoUserRepository) Search(ctx context.Context, keyword string) ([]models.User, error) {
	return r.col.Find(ctx, docstore.ContainsAny(keyword, "name", "email", "address", "phone"), newest(0))
}

func (r *MongoUserRepository) Count(ctx context.Context) (int64, error) {
	return r.col.EstimatedCount(ctx)
}

// ─── Categories ───────────────────────────────────────────────────────────────

type MongoCategoryRepository struct {
	col *docstore.Collection[models.Category]
}

func (r *MongoCategoryRepository) Create(ctx context.Context, c *models.Category) error {
	c.ID = primitive.NilObjectID
	id, err := r.col.Insert(ctx, c)
	if err != nil {
		return err
	}
	c.ID = id
	return nil
}

func (r *MongoCategoryRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Category, error) {
	return r.col.FindByID(ctx, id)
}

func (r *MongoCategoryRepository) FindBySlug(ctx context.Context, slug string) (*models.Category, error) {
	return r.col.FindOne(ctx, bson.M{"slug": slug})
}

func (r *MongoCategoryRepository) FindByName(ctx context.Context, name string) (*models.Category, error) {
	return r.col.FindOne(ctx, bson.M{"name": name})
}

func (r *MongoCategoryRepository) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Category, error) {
	if len(ids) == 0 {
		return []models.Category{}, nil
	}
	return r.col.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
}

func (r *MongoCategoryRepository) Rename(ctx context.Context, id primitive.ObjectID, name, slug string) (*models.Category, error) {
	return r.col.UpdateByID(ctx, id, bson.M{"$set": bson.M{"name": name, "slug": slug}})
}

func (r *MongoCategoryRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	_, err := r.col.DeleteByID(ctx, id)
	return err
}

func (r *MongoCategoryRepository) All(ctx context.Context) ([]models.Category, error) {
	return r.col.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
}

// ─── Products ─────────────────────────────────────────────────────────────────

type MongoProductRepository struct {
	col *docstore.Collection[models.Product]
}

func (r *MongoProductRepository) Create(ctx context.Context, p *models.Product) error {
	p.ID = primitive.NilObjectID
	p.CreatedAt = now()
	p.UpdatedAt = p.CreatedAt

	id, err := r.col.Insert(ctx, p)
	if err != nil {
		return err
	}
	p.ID = id
	return nil
}

func (r *MongoProductRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Product, error) {
	return r.col.FindByID(ctx, id)
}

func (r *MongoProductRepository) FindBySlug(ctx context.Context, slug string) (*models.Product, error) {
	return r.col.FindOne(ctx, bson.M{"slug": slug}, options.FindOne().SetSort(docstore.Newest()))
}

func (r *MongoProductRepository) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Product, error) {
	if len(ids) == 0 {
		return []models.Product{}, nil
	}
	return r.col.Find(ctx, bson.M{"_id": bson.M{"$in": ids}}, withoutPhoto(options.Find()))
}

func (r *MongoProductRepository) Update(ctx context.Context, id primitive.ObjectID, p *models.Product) (*models.Product, error) {
	set := bson.M{
		"name":        p.Name,
		"slug":        p.Slug,
		"description": p.Description,
		"price":       p.Price,
		"quantity":    p.Quantity,
		"category":    p.Category,
		"shipping":    p.Shipping,
		"updated_at":  now(),
	}
	if p.Photo != nil {
		set["photo"] = p.Photo
	}
	return r.col.UpdateByID(ctx, id, bson.M{"$set": set})
}

func (r *MongoProductRepository) Delete(ctx context.Context, id primitive.ObjectID) (*models.Product, error) {
	return r.col.DeleteByID(ctx, id)
}

func (r *MongoProductRepository) Latest(ctx context.Context, limit int) ([]models.Product, error) {
	return r.col.Find(ctx, bson.M{}, withoutPhoto(newest(limit)))
}

func (r *MongoProductRepository) Page(ctx context.Context, page, perPage int) ([]models.Product, error) {
	return r.col.Find(ctx, bson.M{}, withoutPhoto(docstore.Page(page, perPage)))
}

func (r *MongoProductRepository) Count(ctx context.Context) (int64, error) {
	return r.col.EstimatedCount(ctx)
}

func (r *MongoProductRepository) Filter(ctx context.Context, f ProductFilter) ([]models.Product, error) {
	q := bson.M{}
	if len(f.Categories) > 0 {
		q["category"] = bson.M{"$in": f.Categories}
	}
	price := bson.M{}
	if f.MinPrice != nil {
		price["$gte"] = *f.MinPrice
	}
	if f.MaxPrice != nil {
		price["$lte"] = *f.MaxPrice
	}
	if len(price) > 0 {
		q["price"] = price
	}
	return r.col.Find(ctx, q, withoutPhoto(newest(0)))
}

func (r *MongoProductRepository) Search(ctx context.Context, keyword string) ([]models.Product, error) {
	return r.col.Find(ctx, docstore.ContainsAny(keyword, "name", "description"), withoutPhoto(newest(0)))
}

func (r *MongoProductRepository) Related(ctx context.Context, productID, categoryID primitive.ObjectID, limit int) ([]models.Product, error) {
	q := bson.M{"category": categoryID, "_id": bson.M{"$ne": productID}}
	return r.col.Find(ctx, q, withoutPhoto(newest(limit)))
}

func (r *MongoProductRepository) ByCategory(ctx context.Context, categoryID primitive.ObjectID) ([]models.Product, error) {
	return r.col.Find(ctx, bson.M{"category": categoryID}, withoutPhoto(newest(0)))
}

// ─── Orders ───────────────────────────────────────────────────────────────────

type MongoOrderRepository struct {
	col *docstore.Collection[models.Order]
}

func (r *MongoOrderRepository) Create(ctx context.Context, o *models.Order) error {
	o.ID = primitive.NilObjectID
	o.CreatedAt = now()
	o.UpdatedAt = o.CreatedAt
	if o.Status == "" {
		o.Status = models.StatusNotProcessed
	}

	id, err := r.col.Insert(ctx, o)
	if err != nil {
		return err
	}
	o.ID = id
	return nil
}

func (r *MongoOrderRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error) {
	return r.col.FindByID(ctx, id)
}

func (r *MongoOrderRepository) FindByIdempotencyKey(ctx context.Context, buyer primitive.ObjectID, key string) (*models.Order, error) {
	if key == "" {
		return nil, ErrNotFound
	}
	return r.col.FindOne(ctx, bson.M{"buyer": buyer, "idempotency_key": key})
}

func (r *MongoOrderRepository) FindByBuyer(ctx context.Context, buyer primitive.ObjectID) ([]models.Order, error) {
	return r.col.Find(ctx, bson.M{"buyer": buyer}, newest(0))
}

func (r *MongoOrderRepository) All(ctx context.Context) ([]models.Order, error) {
	return r.col.Find(ctx, bson.M{}, newest(0))
}

func (r *MongoOrderRepository) UpdateStatus(ctx context.Context, id primitive.ObjectID, status models.OrderStatus) (*models.Order, error) {
	return r.col.UpdateByID(ctx, id, bson.M{"$set": bson.M{"status": status, "updated_at": now()}})
}

// IsNotFound reports whether err means a missing document.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsDuplicate reports whether err is a unique index violation.
func IsDuplicate(err error) bool { return errors.Is(err, ErrDuplicate) }
