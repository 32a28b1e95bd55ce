// Package services holds the storefront's use cases. Services speak in
// apperror kinds; controllers only bind input and render results.
package services

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/shashiranjanraj/storefront/app/models"
	"github.com/shashiranjanraj/storefront/app/repositories"
	"github.com/shashiranjanraj/storefront/pkg/apperror"
	"github.com/shashiranjanraj/storefront/pkg/collection"
	"github.com/shashiranjanraj/storefront/pkg/docstore"
)

// Locker serialises work on a key across instances (cache.RedisLocker) or
// within one process (cache.MemoryLocker).
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), err error)
}

// parseID turns a path id into an ObjectID. A malformed id cannot name an
// existing document, so it reads as not found.
func parseID(hex, notFound string) (primitive.ObjectID, error) {
	id, err := docstore.ParseID(hex)
	if err != nil {
		return primitive.NilObjectID, apperror.NotFound(notFound)
	}
	return id, nil
}

// notFound maps the repository sentinel to a 404 with message and passes
// any other error through.
func notFound(err error, message string) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return apperror.NotFound(message)
	}
	return err
}

// withCategories resolves each product's category with one lookup.
func withCategories(ctx context.Context, categories repositories.CategoryRepository, ps []models.Product) ([]models.ProductWithCategory, error) {
	ids := collection.Unique(collection.Map(ps, func(p models.Product) primitive.ObjectID { return p.Category }))
	cats, err := categories.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := collection.KeyBy(cats, func(c models.Category) primitive.ObjectID { return c.ID })

	out := make([]models.ProductWithCategory, 0, len(ps))
	for _, p := range ps {
		item := models.ProductWithCategory{Product: p}
		if c, ok := byID[p.Category]; ok {
			item.Category = &c
		}
		out = append(out, item)
	}
	return out, nil
}
