package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/gosimple/slug"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/shashiranjanraj/storefront/app/models"
	"github.com/shashiranjanraj/storefront/app/repositories"
	"github.com/shashiranjanraj/storefront/pkg/apperror"
	"github.com/shashiranjanraj/storefront/pkg/docstore"
	"github.com/shashiranjanraj/storefront/pkg/logger"
	"github.com/shashiranjanraj/storefront/pkg/money"
	"github.com/shashiranjanraj/storefront/pkg/storage"
)

const (
	productsLatest  = 12
	productsPerPage = 8
	productsRelated = 4
	photoDir        = "products"
)

type ProductService struct {
	products   repositories.ProductRepository
	categories repositories.CategoryRepository
	disk       storage.Disk
	maxPhoto   int64
}

func NewProductService(products repositories.ProductRepository, categories repositories.CategoryRepository, disk storage.Disk, maxPhoto int64) *ProductService {
	return &ProductService{products: products, categories: categories, disk: disk, maxPhoto: maxPhoto}
}

// ProductInput is the multipart form of create-product and update-product.
// Numbers arrive as form strings and are parsed by the service.
type ProductInput struct {
	Name        string `form:"name"        validate:"required,max=200"`
	Description string `form:"description" validate:"required"`
	Price       string `form:"price"       validate:"required"`
	Category    string `form:"category"    validate:"required,objectid"`
	Quantity    string `form:"quantity"    validate:"required"`
	Shipping    string `form:"shipping"`
}

// PhotoUpload is an uploaded image; Body is read once.
type PhotoUpload struct {
	Body        io.Reader
	Size        int64
	ContentType string
}

func (s *ProductService) toProduct(ctx context.Context, in ProductInput) (*models.Product, error) {
	errs := map[string]string{}

	price, err := money.Parse(in.Price)
	if err != nil {
		errs["price"] = "The price must be a non-negative amount with at most two decimals."
	}
	qty, err := strconv.Atoi(strings.TrimSpace(in.Quantity))
	if err != nil || qty < 0 {
		errs["quantity"] = "The quantity must be a non-negative integer."
	}
	shipping, _ := strconv.ParseBool(strings.TrimSpace(in.Shipping))

	catID, err := docstore.ParseID(in.Category)
	if err == nil {
		_, err = s.categories.FindByID(ctx, catID)
	}
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		errs["category"] = "The selected category is invalid."
	case err != nil:
		return nil, err
	}

	sl := slug.Make(in.Name)
	if sl == "" {
		errs["name"] = "The name must contain letters or digits."
	}

	if len(errs) > 0 {
		return nil, apperror.Validation("Validation failed", errs)
	}
	return &models.Product{
		Name:        strings.TrimSpace(in.Name),
		Slug:        sl,
		Description: in.Description,
		Price:       price,
		Quantity:    qty,
		Category:    catID,
		Shipping:    shipping,
	}, nil
}

// storePhoto writes the upload to the disk and returns its metadata.
func (s *ProductService) storePhoto(ctx context.Context, up *PhotoUpload) (*models.Photo, error) {
	if up.Size > s.maxPhoto {
		return nil, apperror.Validation("Validation failed", map[string]string{
			"photo": fmt.Sprintf("The photo may not be greater than %d bytes.", s.maxPhoto),
		})
	}
	if !strings.HasPrefix(strings.ToLower(up.ContentType), "image/") {
		return nil, apperror.Validation("Validation failed", map[string]string{
			"photo": "The photo must be an image.",
		})
	}

	key := storage.NewKey(photoDir, up.ContentType)
	if err := s.disk.Put(ctx, key, io.LimitReader(up.Body, s.maxPhoto+1), up.Size, up.ContentType); err != nil {
		return nil, fmt.Errorf("product: store photo: %w", err)
	}
	return &models.Photo{Key: key, ContentType: up.ContentType, Size: up.Size}, nil
}

// dropPhoto removes a photo that is no longer referenced. Failures leave an
// orphan object behind and are only logged.
func (s *ProductService) dropPhoto(ctx context.Context, ph *models.Photo) {
	if ph == nil || ph.Key == "" {
		return
	}
	if err := s.disk.Delete(ctx, ph.Key); err != nil {
		logger.WithCtx(ctx).Warn("product: photo not removed", "key", ph.Key, "error", err)
	}
}

// Create stores the product and, when given, its photo.
func (s *ProductService) Create(ctx context.Context, in ProductInput, photo *PhotoUpload) (*models.Product, error) {
	p, err := s.toProduct(ctx, in)
	if err != nil {
		return nil, err
	}
	if photo != nil {
		if p.Photo, err = s.storePhoto(ctx, photo); err != nil {
			return nil, err
		}
	}

	if err := s.products.Create(ctx, p); err != nil {
		s.dropPhoto(ctx, p.Photo)
		return nil, err
	}
	return p, nil
}

// Update replaces the product's fields. The stored photo is replaced only
// when a new one is uploaded.
func (s *ProductService) Update(ctx context.Context, id string, in ProductInput, photo *PhotoUpload) (*models.Product, error) {
	oid, err := parseID(id, "Product not found")
	if err != nil {
		return nil, err
	}
	current, err := s.products.FindByID(ctx, oid)
	if err != nil {
		return nil, notFound(err, "Product not found")
	}

	p, err := s.toProduct(ctx, in)
	if err != nil {
		return nil, err
	}
	if photo != nil {
		if p.Photo, err = s.storePhoto(ctx, photo); err != nil {
			return nil, err
		}
	}

	updated, err := s.products.Update(ctx, oid, p)
	if err != nil {
		s.dropPhoto(ctx, p.Photo)
		return nil, notFound(err, "Product not found")
	}
	if p.Photo != nil {
		s.dropPhoto(ctx, current.Photo)
	}
	return updated, nil
}

// Delete removes the product and its photo.
func (s *ProductService) Delete(ctx context.Context, id string) error {
	oid, err := parseID(id, "Product not found")
	if err != nil {
		return err
	}
	p, err := s.products.Delete(ctx, oid)
	if err != nil {
		return notFound(err, "Product not found")
	}
	s.dropPhoto(ctx, p.Photo)
	return nil
}

// Photo opens the product image. The caller closes the reader.
func (s *ProductService) Photo(ctx context.Context, id string) (io.ReadCloser, *models.Photo, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, nil, apperror.Validation("Invalid product ID", nil)
	}
	p, err := s.products.FindByID(ctx, oid)
	if err != nil {
		return nil, nil, notFound(err, "Product photo not found")
	}
	if !p.HasPhoto() {
		return nil, nil, apperror.NotFound("Product photo not found")
	}

	rc, err := s.disk.Get(ctx, p.Photo.Key)
	if errors.Is(err, storage.ErrNotExist) {
		return nil, nil, apperror.NotFound("Product photo not found")
	}
	if err != nil {
		return nil, nil, err
	}
	return rc, p.Photo, nil
}

// Latest lists the newest products with their categories.
func (s *ProductService) Latest(ctx context.Context) ([]models.ProductWithCategory, error) {
	ps, err := s.products.Latest(ctx, productsLatest)
	if err != nil {
		return nil, err
	}
	return withCategories(ctx, s.categories, ps)
}

func (s *ProductService) BySlug(ctx context.Context, sl string) (*models.ProductWithCategory, error) {
	p, err := s.products.FindBySlug(ctx, sl)
	if err != nil {
		return nil, notFound(err, "Product not found")
	}
	p.Photo = nil

	out, err := withCategories(ctx, s.categories, []models.Product{*p})
	if err != nil {
		return nil, err
	}
	return &out[0], nil
}

func (s *ProductService) Count(ctx context.Context) (int64, error) {
	return s.products.Count(ctx)
}

func (s *ProductService) Page(ctx context.Context, page int) ([]models.Product, error) {
	return s.products.Page(ctx, page, productsPerPage)
}

func (s *ProductService) Search(ctx context.Context, keyword string) ([]models.Product, error) {
	return s.products.Search(ctx, keyword)
}

// FilterInput is the storefront sidebar: checked category ids and a
// [min, max] price radio.
type FilterInput struct {
	Checked []string       `json:"checked"`
	Radio   []money.Amount `json:"radio"`
}

func (s *ProductService) Filter(ctx context.Context, in FilterInput) ([]models.Product, error) {
	var f repositories.ProductFilter
	for _, raw := range in.Checked {
		id, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			return nil, apperror.Validation("Validation failed", map[string]string{
				"checked": "Every checked entry must be a category id.",
			})
		}
		f.Categories = append(f.Categories, id)
	}

	switch len(in.Radio) {
	case 0:
	case 2:
		lo, hi := in.Radio[0], in.Radio[1]
		if lo > hi {
			return nil, apperror.Validation("Validation failed", map[string]string{
				"radio": "The minimum price must not exceed the maximum.",
			})
		}
		f.MinPrice, f.MaxPrice = &lo, &hi
	default:
		return nil, apperror.Validation("Validation failed", map[string]string{
			"radio": "The price range must have exactly two bounds.",
		})
	}

	return s.products.Filter(ctx, f)
}

// Related lists up to four other products of category cid.
func (s *ProductService) Related(ctx context.Context, pid, cid string) ([]models.ProductWithCategory, error) {
	productID, err := parseID(pid, "Product not found")
	if err != nil {
		return nil, err
	}
	categoryID, err := parseID(cid, "Category not found")
	if err != nil {
		return nil, err
	}
	ps, err := s.products.Related(ctx, productID, categoryID, productsRelated)
	if err != nil {
		return nil, err
	}
	return withCategories(ctx, s.categories, ps)
}

// ByCategory resolves the category slug and lists its products.
func (s *ProductService) ByCategory(ctx context.Context, sl string) (*models.Category, []models.ProductWithCategory, error) {
	c, err := s.categories.FindBySlug(ctx, sl)
	if err != nil {
		return nil, nil, notFound(err, "Category not found")
	}
	ps, err := s.products.ByCategory(ctx, c.ID)
	if err != nil {
		return nil, nil, err
	}
	out, err := withCategories(ctx, s.categories, ps)
	if err != nil {
		return nil, nil, err
	}
	return c, out, nil
}
