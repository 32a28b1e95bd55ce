// Package docstore is a thin typed layer over a MongoDB collection: find,
// insert, update and delete by id, with driver errors mapped to ErrNotFound
// and ErrDuplicate and every operation timed in pkg/metrics.
package docstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/shashiranjanraj/storefront/pkg/metrics"
)

var (
	// ErrNotFound is returned when no document matches.
	ErrNotFound = errors.New("docstore: not found")
	// ErrDuplicate is returned when a write violates a unique index.
	ErrDuplicate = errors.New("docstore: duplicate key")
)

// Collection is a typed handle on one MongoDB collection. T is the document
// struct with bson tags.
type Collection[T any] struct {
	col  *mongo.Collection
	name string
}

// New binds T to the named collection of db.
func New[T any](db *mongo.Database, name string) *Collection[T] {
	return &Collection[T]{col: db.Collection(name), name: name}
}

// Name is the collection name.
func (c *Collection[T]) Name() string { return c.name }

// Raw exposes the driver collection for aggregations.
func (c *Collection[T]) Raw() *mongo.Collection { return c.col }

// EnsureIndexes creates the given indexes; existing identical indexes are a no-op.
func (c *Collection[T]) EnsureIndexes(ctx context.Context, models ...mongo.IndexModel) error {
	if len(models) == 0 {
		return nil
	}
	defer metrics.ObserveStore(c.name, "create_indexes", time.Now())

	if _, err := c.col.Indexes().CreateMany(ctx, models); err != nil {
		return fmt.Errorf("docstore: %s: create indexes: %w", c.name, err)
	}
	return nil
}

func (c *Collection[T]) FindByID(ctx context.Context, id primitive.ObjectID, opts ...*options.FindOneOptions) (*T, error) {
	return c.FindOne(ctx, bson.M{"_id": id}, opts...)
}

func (c *Collection[T]) FindOne(ctx context.Context, filter any, opts ...*options.FindOneOptions) (*T, error) {
	defer metrics.ObserveStore(c.name, "find_one", time.Now())

	var doc T
	if err := c.col.FindOne(ctx, filter, opts...).Decode(&doc); err != nil {
		return nil, c.wrap("find one", err)
	}
	return &doc, nil
}

// Find returns every match; an empty result is an empty slice, never nil.
func (c *Collection[T]) Find(ctx context.Context, filter any, opts ...*options.FindOptions) ([]T, error) {
	defer metrics.ObserveStore(c.name, "find", time.Now())

	cur, err := c.col.Find(ctx, filter, opts...)
	if err != nil {
		return nil, c.wrap("find", err)
	}
	defer cur.Close(ctx)

	out := make([]T, 0)
	if err := cur.All(ctx, &out); err != nil {
		return nil, c.wrap("decode", err)
	}
	return out, nil
}

// Insert stores doc and returns the generated id. doc should leave its _id
// empty (omitempty) so the driver assigns one.
func (c *Collection[T]) Insert(ctx context.Context, doc *T) (primitive.ObjectID, error) {
	defer metrics.ObserveStore(c.name, "insert", time.Now())

	res, err := c.col.InsertOne(ctx, doc)
	if err != nil {
		return primitive.NilObjectID, c.wrap("insert", err)
	}
	id, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, fmt.Errorf("docstore: %s: unexpected id type %T", c.name, res.InsertedID)
	}
	return id, nil
}

// UpdateByID applies update atomically and returns the document after it.
func (c *Collection[T]) UpdateByID(ctx context.Context, id primitive.ObjectID, update any) (*T, error) {
	defer metrics.ObserveStore(c.name, "update", time.Now())

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc T
	if err := c.col.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&doc); err != nil {
		return nil, c.wrap("update", err)
	}
	return &doc, nil
}

// DeleteByID removes the document and returns it as it was.
func (c *Collection[T]) DeleteByID(ctx context.Context, id primitive.ObjectID) (*T, error) {
	defer metrics.ObserveStore(c.name, "delete", time.Now())

	var doc T
	if err := c.col.FindOneAndDelete(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		return nil, c.wrap("delete", err)
	}
	return &doc, nil
}

// Count counts matches exactly; EstimatedCount uses collection metadata.
func (c *Collection[T]) Count(ctx context.Context, filter any) (int64, error) {
	defer metrics.ObserveStore(c.name, "count", time.Now())

	n, err := c.col.CountDocuments(ctx, filter)
	if err != nil {
		return 0, c.wrap("count", err)
	}
	return n, nil
}

func (c *Collection[T]) EstimatedCount(ctx context.Context) (int64, error) {
	defer metrics.ObserveStore(c.name, "estimated_count", time.Now())

	n, err := c.col.EstimatedDocumentCount(ctx)
	if err != nil {
		return 0, c.wrap("count", err)
	}
	return n, nil
}

func (c *Collection[T]) wrap(op string, err error) error {
	return fmt.Errorf("docstore: %s: %s: %w", c.name, op, mapErr(err))
}

// mapErr turns driver errors into the package sentinels, keeping the cause.
func mapErr(err error) error {
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%w: %w", ErrDuplicate, err)
	default:
		return err
	}
}
