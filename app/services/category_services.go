package services

import (
	"context"
	"errors"
	"strings"

	"github.com/gosimple/slug"

	"github.com/shashiranjanraj/storefront/app/models"
	"github.com/shashiranjanraj/storefront/app/repositories"
	"github.com/shashiranjanraj/storefront/pkg/apperror"
)

type CategoryService struct {
	categories repositories.CategoryRepository
}

func NewCategoryService(categories repositories.CategoryRepository) *CategoryService {
	return &CategoryService{categories: categories}
}

type CategoryInput struct {
	Name string `json:"name" validate:"required,max=64"`
}

func slugFor(name string) (string, error) {
	s := slug.Make(name)
	if s == "" {
		return "", apperror.Validation("Validation failed", map[string]string{
			"name": "The name must contain letters or digits.",
		})
	}
	return s, nil
}

// Create adds a category. When one with the same name exists it is
// returned with created == false and nothing is written.
func (s *CategoryService) Create(ctx context.Context, in CategoryInput) (cat *models.Category, created bool, err error) {
	name := strings.TrimSpace(in.Name)

	existing, err := s.categories.FindByName(ctx, name)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, repositories.ErrNotFound) {
		return nil, false, err
	}

	sl, err := slugFor(name)
	if err != nil {
		return nil, false, err
	}

	c := &models.Category{Name: name, Slug: sl}
	if err := s.categories.Create(ctx, c); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, false, apperror.Conflict("Category already exists")
		}
		return nil, false, err
	}
	return c, true, nil
}

// Update renames a category and derives a new slug.
func (s *CategoryService) Update(ctx context.Context, id string, in CategoryInput) (*models.Category, error) {
	oid, err := parseID(id, "Category not found")
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	sl, err := slugFor(name)
	if err != nil {
		return nil, err
	}

	c, err := s.categories.Rename(ctx, oid, name, sl)
	switch {
	case errors.Is(err, repositories.ErrDuplicate):
		return nil, apperror.Conflict("Category already exists")
	case err != nil:
		return nil, notFound(err, "Category not found")
	}
	return c, nil
}

func (s *CategoryService) All(ctx context.Context) ([]models.Category, error) {
	return s.categories.All(ctx)
}

func (s *CategoryService) BySlug(ctx context.Context, sl string) (*models.Category, error) {
	c, err := s.categories.FindBySlug(ctx, sl)
	if err != nil {
		return nil, notFound(err, "Category not found")
	}
	return c, nil
}

func (s *CategoryService) Delete(ctx context.Context, id string) error {
	oid, err := parseID(id, "Category not found")
	if err != nil {
		return err
	}
	return notFound(s.categories.Delete(ctx, oid), "Category not found")
}
