// Package graphql exposes the public catalog as a read-only GraphQL schema.
package graphql

import (
	"errors"

	"github.com/graphql-go/graphql"

	"github.com/shashiranjanraj/storefront/app/models"
	"github.com/shashiranjanraj/storefront/app/services"
	"github.com/shashiranjanraj/storefront/pkg/apperror"
	gql "github.com/shashiranjanraj/storefront/pkg/graphql"
	"github.com/shashiranjanraj/storefront/pkg/logger"
)

func categoryMap(c *models.Category) map[string]any {
	if c == nil {
		return nil
	}
	return map[string]any{"id": c.ID.Hex(), "name": c.Name, "slug": c.Slug}
}

func productMap(p models.Product, c *models.Category) map[string]any {
	return map[string]any{
		"id":          p.ID.Hex(),
		"name":        p.Name,
		"slug":        p.Slug,
		"description": p.Description,
		"price":       p.Price.String(),
		"quantity":    p.Quantity,
		"shipping":    p.Shipping,
		"category":    categoryMap(c),
		"createdAt":   p.CreatedAt,
	}
}

func withCategory(ps []models.ProductWithCategory) []map[string]any {
	out := make([]map[string]any, 0, len(ps))
	for _, p := range ps {
		out = append(out, productMap(p.Product, p.Category))
	}
	return out
}

func bare(ps []models.Product) []map[string]any {
	out := make([]map[string]any, 0, len(ps))
	for _, p := range ps {
		out = append(out, productMap(p, nil))
	}
	return out
}

// safe hides causes from clients; only the classified message is returned.
func safe(fn graphql.FieldResolveFn) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (any, error) {
		v, err := fn(p)
		if err != nil {
			ae := apperror.From(err)
			if ae.Kind == apperror.KindInternal {
				logger.WithCtx(p.Context).Error("graphql: resolver failed", "field", p.Info.FieldName, "error", err)
			}
			return nil, errors.New(ae.Message)
		}
		return v, nil
	}
}

// NewSchema builds the catalog schema over the category and product services.
func NewSchema(categories *services.CategoryService, products *services.ProductService) (graphql.Schema, error) {
	categoryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Category",
		Fields: graphql.Fields{
			"id":   &graphql.Field{Type: graphql.NewNonNull(graphql.ID)},
			"name": &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
			"slug": &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		},
	})

	productType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Product",
		Fields: graphql.Fields{
			"id":          &graphql.Field{Type: graphql.NewNonNull(graphql.ID)},
			"name":        &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
			"slug":        &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
			"description": &graphql.Field{Type: graphql.String},
			"price":       &graphql.Field{Type: graphql.NewNonNull(graphql.String), Description: "Decimal string, two fraction digits."},
			"quantity":    &graphql.Field{Type: graphql.Int},
			"shipping":    &graphql.Field{Type: graphql.Boolean},
			"category":    &graphql.Field{Type: categoryType, Description: "Resolved on single-product and latest listings only."},
			"createdAt":   &graphql.Field{Type: graphql.DateTime},
		},
	})

	query := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"categories": &graphql.Field{
				Type: graphql.NewList(categoryType),
				Resolve: safe(func(p graphql.ResolveParams) (any, error) {
					cats, err := categories.All(p.Context)
					if err != nil {
						return nil, err
					}
					out := make([]map[string]any, 0, len(cats))
					for i := range cats {
						out = append(out, categoryMap(&cats[i]))
					}
					return out, nil
				}),
			},
			"category": &graphql.Field{
				Type: categoryType,
				Args: graphql.FieldConfigArgument{"slug": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)}},
				Resolve: safe(func(p graphql.ResolveParams) (any, error) {
					c, err := categories.BySlug(p.Context, p.Args["slug"].(string))
					if err != nil {
						return nil, err
					}
					return categoryMap(c), nil
				}),
			},
			"latestProducts": &graphql.Field{
				Type: graphql.NewList(productType),
				Resolve: safe(func(p graphql.ResolveParams) (any, error) {
					ps, err := products.Latest(p.Context)
					if err != nil {
						return nil, err
					}
					return withCategory(ps), nil
				}),
			},
			"products": &graphql.Field{
				Type: graphql.NewList(productType),
				Args: graphql.FieldConfigArgument{"page": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 1}},
				Resolve: safe(func(p graphql.ResolveParams) (any, error) {
					page, _ := p.Args["page"].(int)
					ps, err := products.Page(p.Context, page)
					if err != nil {
						return nil, err
					}
					return bare(ps), nil
				}),
			},
			"product": &graphql.Field{
				Type: productType,
				Args: graphql.FieldConfigArgument{"slug": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)}},
				Resolve: safe(func(p graphql.ResolveParams) (any, error) {
					pc, err := products.BySlug(p.Context, p.Args["slug"].(string))
					if err != nil {
						return nil, err
					}
					return productMap(pc.Product, pc.Category), nil
				}),
			},
			"searchProducts": &graphql.Field{
				Type: graphql.NewList(productType),
				Args: graphql.FieldConfigArgument{"keyword": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)}},
				Resolve: safe(func(p graphql.ResolveParams) (any, error) {
					ps, err := products.Search(p.Context, p.Args["keyword"].(string))
					if err != nil {
						return nil, err
					}
					return bare(ps), nil
				}),
			},
			"productCount": &graphql.Field{
				Type: graphql.Int,
				Resolve: safe(func(p graphql.ResolveParams) (any, error) {
					return products.Count(p.Context)
				}),
			},
		},
	})

	return gql.NewSchema(query)
}
